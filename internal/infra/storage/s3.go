package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/bryanwahyu/automaton-filecheck/internal/domain/filecheck"
)

// S3StoreConfig holds configuration for S3Store.
type S3StoreConfig struct {
	Region    string
	Endpoint  string // Optional custom endpoint (MinIO, LocalStack, tests)
	AccessKey string // Optional; default credential chain when empty
	SecretKey string
}

// S3Store implements filecheck.ObjectStore with the AWS SDK.
type S3Store struct {
	client *s3.Client
}

var _ filecheck.ObjectStore = (*S3Store)(nil)

// NewS3 creates an S3-backed object store.
func NewS3(ctx context.Context, cfg S3StoreConfig) (*S3Store, error) {
	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return &S3Store{client: client}, nil
}

// Download writes the object to localPath.
func (s *S3Store) Download(ctx context.Context, obj filecheck.ObjectRef, localPath string) error {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(obj.Bucket),
		Key:    aws.String(obj.Key),
	})
	if err != nil {
		return fmt.Errorf("s3 get failed: %w", err)
	}
	defer func() { _ = out.Body.Close() }()

	f, err := os.Create(localPath)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, out.Body); err != nil {
		f.Close()
		return fmt.Errorf("s3 read failed: %w", err)
	}
	return f.Close()
}

// Copy duplicates the object into dstBucket under the same key.
func (s *S3Store) Copy(ctx context.Context, src filecheck.ObjectRef, dstBucket string) error {
	_, err := s.client.CopyObject(ctx, &s3.CopyObjectInput{
		Bucket:     aws.String(dstBucket),
		Key:        aws.String(src.Key),
		CopySource: aws.String(src.Bucket + "/" + url.PathEscape(src.Key)),
	})
	if err != nil {
		return fmt.Errorf("s3 copy failed: %w", err)
	}
	return nil
}

// Delete removes the object.
func (s *S3Store) Delete(ctx context.Context, obj filecheck.ObjectRef) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(obj.Bucket),
		Key:    aws.String(obj.Key),
	})
	if err != nil {
		return fmt.Errorf("s3 delete failed: %w", err)
	}
	return nil
}

// Ping reports whether bucket is reachable, for health checks.
func (s *S3Store) Ping(ctx context.Context, bucket string) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(bucket)})
	return err
}
