// Package tilestore stores the composite full-z-level PNG blobs produced by
// the optional GET /{z}/full.png endpoint in MinIO. Per-tile PNGs are never
// persisted here, only the explicitly-requested, comparatively rare
// whole-layer composite.
package tilestore

import (
	"bytes"
	"context"
	"fmt"

	"github.com/minio/minio-go/v7"
)

// Store wraps a MinIO client scoped to a single bucket.
type Store struct {
	client *minio.Client
	bucket string
}

// New wraps an already-configured MinIO client.
func New(client *minio.Client, bucket string) *Store {
	return &Store{client: client, bucket: bucket}
}

// EnsureBucket creates the backing bucket if it does not already exist.
func (s *Store) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("checking bucket existence: %w", err)
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("creating bucket: %w", err)
	}
	return nil
}

// objectKey names the composite object for a z-level/style/background
// combination.
func objectKey(z int, style string, withBackground bool) string {
	if withBackground {
		return fmt.Sprintf("full/%d-%s-with-background.png", z, style)
	}
	return fmt.Sprintf("full/%d-%s.png", z, style)
}

// Get returns the stored composite PNG bytes, if present.
func (s *Store) Get(ctx context.Context, z int, style string, withBackground bool) ([]byte, bool) {
	obj, err := s.client.GetObject(ctx, s.bucket, objectKey(z, style, withBackground), minio.GetObjectOptions{})
	if err != nil {
		return nil, false
	}
	defer obj.Close()

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(obj); err != nil {
		return nil, false
	}
	return buf.Bytes(), true
}

// Put stores the composite PNG bytes.
func (s *Store) Put(ctx context.Context, z int, style string, withBackground bool, png []byte) error {
	_, err := s.client.PutObject(ctx, s.bucket, objectKey(z, style, withBackground),
		bytes.NewReader(png), int64(len(png)), minio.PutObjectOptions{ContentType: "image/png"})
	return err
}
