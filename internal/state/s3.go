package state

import (
	"context"
	"errors"
	"fmt"

	"github.com/jaxxstorm/pulumi-nginx-demo/internal/platform/s3"
	"github.com/jaxxstorm/pulumi-nginx-demo/internal/util/naming"
)

// ObjectStorage is the subset of the S3 client used by S3Store.
type ObjectStorage interface {
	GetObject(ctx context.Context, bucket, key string) ([]byte, error)
	PutObject(ctx context.Context, bucket, key string, data []byte) error
}

// S3Store keeps state as an object in a bucket.
type S3Store struct {
	stack  string
	bucket string
	key    string
	client ObjectStorage
}

// NewS3Store returns a store writing <prefix>/<stack>.state.yaml in bucket.
func NewS3Store(client ObjectStorage, stack, bucket, prefix string) *S3Store {
	return &S3Store{
		stack:  stack,
		bucket: bucket,
		key:    naming.StateKey(prefix, stack),
		client: client,
	}
}

// Location implements Store.
func (s *S3Store) Location() string {
	return fmt.Sprintf("s3://%s/%s", s.bucket, s.key)
}

// Load implements Store.
func (s *S3Store) Load(ctx context.Context) (*State, error) {
	data, err := s.client.GetObject(ctx, s.bucket, s.key)
	if errors.Is(err, s3.ErrNotFound) {
		return New(s.stack), nil
	}
	if err != nil {
		return nil, err
	}
	st, err := Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.Location(), err)
	}
	return st, nil
}

// Save implements Store.
func (s *S3Store) Save(ctx context.Context, st *State) error {
	data, err := Marshal(st)
	if err != nil {
		return err
	}
	return s.client.PutObject(ctx, s.bucket, s.key, data)
}
