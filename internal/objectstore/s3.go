package objectstore

import (
	"context"
	"errors"
	"fmt"
)

// ObjectStorageClient is the subset of an S3 client the S3 store needs.
// A missing object must be reported with an error matching ErrNotFound.
type ObjectStorageClient interface {
	PutObject(ctx context.Context, bucket, key, contentType string, data []byte) error
	GetObject(ctx context.Context, bucket, key string) ([]byte, error)
}

// S3 stores objects in one fixed bucket.
type S3 struct {
	client ObjectStorageClient
	bucket string
}

// NewS3 returns an S3 store writing to bucket through client.
func NewS3(client ObjectStorageClient, bucket string) *S3 {
	return &S3{client: client, bucket: bucket}
}

// Bucket returns the bucket objects are written to.
func (s *S3) Bucket() string {
	return s.bucket
}

func (s *S3) Put(ctx context.Context, key, contentType string, data []byte) error {
	copied := make([]byte, len(data))
	copy(copied, data)
	if err := s.client.PutObject(ctx, s.bucket, key, contentType, copied); err != nil {
		return fmt.Errorf("s3 put %s/%s: %w", s.bucket, key, err)
	}
	return nil
}

func (s *S3) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.client.GetObject(ctx, s.bucket, key)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("s3 get %s/%s: %w", s.bucket, key, ErrNotFound)
		}
		return nil, fmt.Errorf("s3 get %s/%s: %w", s.bucket, key, err)
	}
	copied := make([]byte, len(data))
	copy(copied, data)
	return copied, nil
}

var _ ObjectStore = (*S3)(nil)
