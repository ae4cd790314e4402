package storage

import (
	"context"
	"fmt"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/bryanwahyu/automaton-filecheck/internal/domain/filecheck"
)

// MinioStore implements filecheck.ObjectStore on any S3-compatible server.
type MinioStore struct {
	client *minio.Client
	region string
}

var _ filecheck.ObjectStore = (*MinioStore)(nil)

// NewMinio connects to MinIO and makes sure the listed buckets exist.
func NewMinio(ctx context.Context, endpoint, region, accessKey, secretKey string, useSSL bool, buckets ...string) (*MinioStore, error) {
	cli, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
		Region: region,
	})
	if err != nil {
		return nil, err
	}

	s := &MinioStore{client: cli, region: region}
	for _, b := range buckets {
		if err := s.EnsureBucket(ctx, b); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// EnsureBucket creates bucket when missing.
func (s *MinioStore) EnsureBucket(ctx context.Context, bucket string) error {
	exists, err := s.client.BucketExists(ctx, bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", bucket, err)
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: s.region}); err != nil {
		return fmt.Errorf("create bucket %s: %w", bucket, err)
	}
	return nil
}

// Download writes the object to localPath.
func (s *MinioStore) Download(ctx context.Context, obj filecheck.ObjectRef, localPath string) error {
	return s.client.FGetObject(ctx, obj.Bucket, obj.Key, localPath, minio.GetObjectOptions{})
}

// Copy duplicates the object into dstBucket under the same key.
func (s *MinioStore) Copy(ctx context.Context, src filecheck.ObjectRef, dstBucket string) error {
	_, err := s.client.CopyObject(ctx,
		minio.CopyDestOptions{Bucket: dstBucket, Object: src.Key},
		minio.CopySrcOptions{Bucket: src.Bucket, Object: src.Key},
	)
	return err
}

// Delete removes the object.
func (s *MinioStore) Delete(ctx context.Context, obj filecheck.ObjectRef) error {
	return s.client.RemoveObject(ctx, obj.Bucket, obj.Key, minio.RemoveObjectOptions{})
}

// Ping reports whether bucket is reachable, for health checks.
func (s *MinioStore) Ping(ctx context.Context, bucket string) error {
	_, err := s.client.BucketExists(ctx, bucket)
	return err
}
