package blob

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"io/fs"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/pagemark/pagemark/internal/checksum"
)

const pdfContentType = "application/pdf"

// S3Options configures the S3-compatible blob backend.
type S3Options struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// S3 implements Provider against an S3-compatible object store (MinIO, AWS
// S3, etc.). It is safe for concurrent use by multiple goroutines.
type S3 struct {
	client *minio.Client
	bucket string
}

// NewS3 creates a new S3-compatible blob provider. It validates connectivity
// and ensures the bucket exists (creates it if missing).
func NewS3(ctx context.Context, opts S3Options) (*S3, error) {
	if opts.Endpoint == "" {
		return nil, fmt.Errorf("blob: s3 endpoint is required")
	}
	if opts.AccessKey == "" || opts.SecretKey == "" {
		return nil, fmt.Errorf("blob: s3 credentials are required")
	}
	if opts.Bucket == "" {
		return nil, fmt.Errorf("blob: s3 bucket is required")
	}

	cli, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("blob: s3 client: %w", err)
	}

	exists, err := cli.BucketExists(ctx, opts.Bucket)
	if err != nil {
		return nil, fmt.Errorf("blob: check bucket: %w", err)
	}
	if !exists {
		if err := cli.MakeBucket(ctx, opts.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("blob: make bucket: %w", err)
		}
	}

	return &S3{client: cli, bucket: opts.Bucket}, nil
}

// Put stores data under its content digest. The object store is checked
// first so re-uploads of identical bytes transfer nothing.
func (s *S3) Put(ctx context.Context, data []byte) (string, error) {
	digest := checksum.Sum(data)
	key := Location(digest)

	if _, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{}); err == nil {
		return digest, nil
	}

	_, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: pdfContentType})
	if err != nil {
		return "", fmt.Errorf("blob: put object: %w", err)
	}
	return digest, nil
}

// Open returns a reader for the object at location.
func (s *S3) Open(ctx context.Context, location string) (io.ReadCloser, error) {
	// Stat first: GetObject defers errors until the first read, but callers
	// need missing objects reported here.
	if _, err := s.client.StatObject(ctx, s.bucket, location, minio.StatObjectOptions{}); err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, fmt.Errorf("blob: open %s: %w", location, fs.ErrNotExist)
		}
		return nil, fmt.Errorf("blob: stat object: %w", err)
	}
	obj, err := s.client.GetObject(ctx, s.bucket, location, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("blob: get object: %w", err)
	}
	return obj, nil
}

// Remove deletes the object at location. S3 delete is idempotent, so an
// already-absent object is not an error.
func (s *S3) Remove(ctx context.Context, location string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, location, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("blob: remove object: %w", err)
	}
	return nil
}
