package storage

import (
	"context"
	"time"
)

// PresignedPost is a time-limited browser-upload descriptor: the caller POSTs
// the file bytes straight to the provider with these form fields attached.
type PresignedPost struct {
	URL    string            `json:"url"`
	Fields map[string]string `json:"fields"`
}

// CompletedPart pairs a part number with the entity tag the provider returned
// for it. The provider requires parts in strictly increasing order on complete.
type CompletedPart struct {
	PartNumber int
	ETag       string
}

// Gateway wraps the object-storage provider's presigned-URL and multipart
// primitives. Every call is a network call and can fail transiently.
type Gateway interface {
	// EnsureBucket creates the bucket when absent. Safe to call repeatedly.
	EnsureBucket(ctx context.Context, bucket string) error

	// EnsureNotification points the bucket's object events at the configured
	// webhook target, create-if-absent.
	EnsureNotification(ctx context.Context, bucket, prefix string) error

	// PresignPost issues a direct-strategy upload descriptor scoped to the
	// exact content type and a maximum byte length.
	PresignPost(ctx context.Context, bucket, key, contentType string, maxBytes int64, expiry time.Duration) (*PresignedPost, error)

	// InitiateMultipart starts a provider-side multipart upload.
	InitiateMultipart(ctx context.Context, bucket, key, contentType string) (string, error)

	// PresignPartPut issues a single-part presigned PUT URL.
	PresignPartPut(ctx context.Context, bucket, key, uploadID string, partNumber int, expiry time.Duration) (string, error)

	// CompleteMultipart finalizes the upload; parts must already be sorted
	// ascending by part number.
	CompleteMultipart(ctx context.Context, bucket, key, uploadID string, parts []CompletedPart) error

	// AbortMultipart discards an in-flight multipart upload.
	AbortMultipart(ctx context.Context, bucket, key, uploadID string) error
}
