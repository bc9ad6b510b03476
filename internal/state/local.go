package state

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// LocalStore keeps state in a YAML file.
type LocalStore struct {
	stack string
	path  string
}

// NewLocalStore returns a store writing to path.
func NewLocalStore(stack, path string) *LocalStore {
	return &LocalStore{stack: stack, path: path}
}

// Location implements Store.
func (s *LocalStore) Location() string { return s.path }

// Load implements Store.
func (s *LocalStore) Load(_ context.Context) (*State, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return New(s.stack), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read state %s: %w", s.path, err)
	}
	st, err := Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.path, err)
	}
	return st, nil
}

// Save implements Store. The file is replaced atomically.
func (s *LocalStore) Save(_ context.Context, st *State) error {
	data, err := Marshal(st)
	if err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create state directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary state file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write state: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("failed to replace state %s: %w", s.path, err)
	}
	return nil
}
