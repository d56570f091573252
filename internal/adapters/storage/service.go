// Package storage provides a domain-agnostic interface for S3-compatible object storage.
// The CRM queue uses it to archive dead-lettered deliveries for manual recovery.
package storage

import (
	"context"
	"time"
)

// ObjectInfo describes a stored object.
type ObjectInfo struct {
	Key          string    `json:"key"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"lastModified"`
}

// StorageService defines the interface for object storage operations.
type StorageService interface {
	// PutObject stores body under key in bucket.
	PutObject(ctx context.Context, bucket, key string, body []byte, contentType string) error

	// ListObjects returns objects under prefix, newest first, at most limit entries.
	ListObjects(ctx context.Context, bucket, prefix string, limit int) ([]ObjectInfo, error)

	// EnsureBucketExists creates the bucket if it doesn't exist.
	EnsureBucketExists(ctx context.Context, bucket string) error
}

// Config defines the configuration interface for storage.
type Config interface {
	GetMinIOEndpoint() string
	GetMinIOAccessKey() string
	GetMinIOSecretKey() string
	GetMinIOUseSSL() bool
	IsMinIOEnabled() bool
}

// BucketArchiver pins a StorageService to one bucket so it can serve as an
// archive for a single kind of record.
type BucketArchiver struct {
	store  StorageService
	bucket string
}

// NewBucketArchiver creates an archiver writing into bucket.
func NewBucketArchiver(store StorageService, bucket string) *BucketArchiver {
	return &BucketArchiver{store: store, bucket: bucket}
}

// Archive stores body under key.
func (a *BucketArchiver) Archive(ctx context.Context, key string, body []byte, contentType string) error {
	return a.store.PutObject(ctx, a.bucket, key, body, contentType)
}

// List returns the newest archived objects under prefix.
func (a *BucketArchiver) List(ctx context.Context, prefix string, limit int) ([]ObjectInfo, error) {
	return a.store.ListObjects(ctx, a.bucket, prefix, limit)
}

// Bucket returns the archive bucket name.
func (a *BucketArchiver) Bucket() string {
	return a.bucket
}
