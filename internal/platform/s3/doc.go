// Package s3 provides a small S3 client used to store stack state. Any
// S3-compatible endpoint works; credentials come from static keys or the
// default AWS credential chain.
package s3
