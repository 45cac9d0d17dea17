package minio

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/BilalEnesS/doc-panel/internal/shared/storage/object"
)

// Store implements ObjectStore for MinIO or any S3-compatible endpoint.
type Store struct {
	client *minio.Client
	bucket string
}

// New connects to MinIO and ensures the bucket exists.
func New(ctx context.Context, endpoint, accessKey, secretKey, bucket string, useSSL bool) (*Store, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("init minio client: %w", err)
	}
	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	exists, err := client.BucketExists(checkCtx, bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(checkCtx, bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket: %w", err)
		}
	}
	return &Store{client: client, bucket: bucket}, nil
}

// Put buffers the body under the size limit, then uploads it with a known length.
func (s *Store) Put(ctx context.Context, key string, r io.Reader, maxBytes int64) (int64, error) {
	clean, err := object.CleanKey(key)
	if err != nil {
		return 0, err
	}
	var buf bytes.Buffer
	n, err := object.CopyChunked(ctx, &buf, r, maxBytes)
	if err != nil {
		return 0, err
	}
	data := buf.Bytes()
	_, err = s.client.PutObject(ctx, s.bucket, clean, bytes.NewReader(data), n, minio.PutObjectOptions{
		ContentType: http.DetectContentType(data),
	})
	if err != nil {
		return 0, fmt.Errorf("put object: %w", err)
	}
	return n, nil
}

// Open streams an object. Missing keys map to object.ErrNotFound.
func (s *Store) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	clean, err := object.CleanKey(key)
	if err != nil {
		return nil, err
	}
	obj, err := s.client.GetObject(ctx, s.bucket, clean, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get object: %w", err)
	}
	// GetObject is lazy; Stat surfaces a missing key before the caller reads.
	if _, err := obj.Stat(); err != nil {
		obj.Close()
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, object.ErrNotFound
		}
		return nil, fmt.Errorf("stat object: %w", err)
	}
	return obj, nil
}

// Delete removes an object.
func (s *Store) Delete(ctx context.Context, key string) error {
	clean, err := object.CleanKey(key)
	if err != nil {
		return err
	}
	if err := s.client.RemoveObject(ctx, s.bucket, clean, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("delete object: %w", err)
	}
	return nil
}

var _ object.ObjectStore = (*Store)(nil)
