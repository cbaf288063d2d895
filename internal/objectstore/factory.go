package objectstore

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

const (
	DefaultRegion = "us-west-1"
	// DefaultBucket is used when credentials enable S3 without naming a bucket.
	DefaultBucket = "docstore-archive"
)

// Options selects and configures the object-storage backend.
type Options struct {
	// S3Enabled is true when S3 credentials are present in the environment.
	S3Enabled bool
	Bucket    string
	Region    string
	Endpoint  string
	// LocalDir selects a directory-backed store and takes precedence over S3.
	LocalDir string
	Logger   *slog.Logger
}

// Open builds the configured backend. It returns (nil, nil) when no backend
// is configured, which callers treat as relational-only mode.
func Open(ctx context.Context, opts Options) (ObjectStore, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	if dir := strings.TrimSpace(opts.LocalDir); dir != "" {
		local, err := NewLocal(dir)
		if err != nil {
			return nil, fmt.Errorf("objectstore: open local backend: %w", err)
		}
		logger.Info("objectstore: using local backend", "dir", dir)
		return local, nil
	}

	if !opts.S3Enabled {
		logger.Debug("objectstore: no backend configured; files stay inline")
		return nil, nil
	}

	bucket := strings.TrimSpace(opts.Bucket)
	if bucket == "" {
		bucket = DefaultBucket
	}
	region := strings.TrimSpace(opts.Region)
	if region == "" {
		region = DefaultRegion
	}
	endpoint := strings.TrimSpace(opts.Endpoint)

	client, err := newAWSS3Client(ctx, region, endpoint)
	if err != nil {
		return nil, fmt.Errorf("objectstore: create s3 client: %w", err)
	}
	logger.Info("objectstore: using S3 backend", "bucket", bucket, "region", region, "endpoint", endpoint)
	return NewS3(client, bucket), nil
}
