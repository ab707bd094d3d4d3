// Package storage persists participant photos and proof-of-payment
// images in an S3-compatible object store. Photos from a not-yet-paid
// submission are staged under a timestamp-prefixed temporary path and
// promoted into their permanent per-registration location only when the
// webhook finalizer commits.
package storage

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// PhotoStore is the object-storage surface the handlers and finalizer
// need. Refs are object keys within the configured bucket; URL turns a
// key into a public link for persisting on rows.
type PhotoStore interface {
	StagePhoto(ctx context.Context, fullName string, r io.Reader, size int64, contentType string) (string, error)
	PromotePhoto(ctx context.Context, stagedKey string, registrationID uint64, fullName string) (string, error)
	UploadProof(ctx context.Context, registrationID uint64, r io.Reader, size int64, contentType string) (string, error)
	RemoveStaged(ctx context.Context, stagedKey string) error
}

// MinioStore implements PhotoStore over any S3-compatible endpoint.
type MinioStore struct {
	client   *minio.Client
	bucket   string
	endpoint string
	secure   bool
}

// NewMinioStore connects to the object store. The bucket must already
// exist; provisioning is the committee's deploy step, not the app's.
func NewMinioStore(endpoint, accessKey, secretKey, bucket string, useSSL bool) (*MinioStore, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("object store: %w", err)
	}
	return &MinioStore{client: client, bucket: bucket, endpoint: endpoint, secure: useSSL}, nil
}

// sanitizeName makes a participant name safe as an object key segment.
func sanitizeName(name string) string {
	return strings.ReplaceAll(strings.TrimSpace(name), " ", "_")
}

// StagePhoto uploads a matched photo under pending/<timestamp>-<name>.jpg
// and returns the staged object key. The key is what gets serialized into
// the pending transaction payload.
func (s *MinioStore) StagePhoto(ctx context.Context, fullName string, r io.Reader, size int64, contentType string) (string, error) {
	key := fmt.Sprintf("pending/%d-%s.jpg", time.Now().UTC().UnixNano(), sanitizeName(fullName))
	if _, err := s.client.PutObject(ctx, s.bucket, key, r, size, minio.PutObjectOptions{ContentType: contentType}); err != nil {
		return "", fmt.Errorf("stage photo: %w", err)
	}
	return key, nil
}

// PromotePhoto copies a staged photo to its permanent location
// peserta/<registration id>/<name>.jpg and returns the public URL to
// persist on the participant row. The staged copy is left in place: the
// caller's database transaction may still roll back, and a redelivered
// settlement must find the copy source intact. Callers remove staged
// keys via RemoveStaged once their transaction has committed.
func (s *MinioStore) PromotePhoto(ctx context.Context, stagedKey string, registrationID uint64, fullName string) (string, error) {
	dstKey := fmt.Sprintf("peserta/%d/%s.jpg", registrationID, sanitizeName(fullName))
	_, err := s.client.CopyObject(ctx,
		minio.CopyDestOptions{Bucket: s.bucket, Object: dstKey},
		minio.CopySrcOptions{Bucket: s.bucket, Object: stagedKey},
	)
	if err != nil {
		return "", fmt.Errorf("promote photo: %w", err)
	}
	return s.URL(dstKey), nil
}

// UploadProof stores a manual-transfer proof image keyed by registration
// id and upload time, returning its public URL.
func (s *MinioStore) UploadProof(ctx context.Context, registrationID uint64, r io.Reader, size int64, contentType string) (string, error) {
	key := fmt.Sprintf("bukti/%d-%d.jpg", registrationID, time.Now().UTC().Unix())
	if _, err := s.client.PutObject(ctx, s.bucket, key, r, size, minio.PutObjectOptions{ContentType: contentType}); err != nil {
		return "", fmt.Errorf("upload proof: %w", err)
	}
	return s.URL(key), nil
}

// RemoveStaged deletes a staged photo that will never be promoted.
func (s *MinioStore) RemoveStaged(ctx context.Context, stagedKey string) error {
	return s.client.RemoveObject(ctx, s.bucket, stagedKey, minio.RemoveObjectOptions{})
}

// URL builds the public URL for an object key.
func (s *MinioStore) URL(key string) string {
	scheme := "http"
	if s.secure {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s/%s/%s", scheme, s.endpoint, s.bucket, key)
}
