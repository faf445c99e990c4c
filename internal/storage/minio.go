package storage

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/minio/minio-go/v7/pkg/notification"

	"uploadgate/internal/logger"
)

// Config holds the provider connection settings.
type Config struct {
	Endpoint        string
	AccessKey       string
	SecretKey       string
	Region          string
	UseSSL          bool
	NotificationARN string // e.g. arn:minio:sqs::primary:webhook
}

// MinioGateway implements Gateway against MinIO or any S3-compatible provider.
// One shared client instance per process; callers inject it where needed.
type MinioGateway struct {
	client *minio.Client
	core   *minio.Core
	region string
	arn    string
}

func NewMinioGateway(cfg Config) (*MinioGateway, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	return &MinioGateway{
		client: client,
		core:   &minio.Core{Client: client},
		region: cfg.Region,
		arn:    cfg.NotificationARN,
	}, nil
}

// EnsureBucket creates the bucket if it does not exist yet.
func (g *MinioGateway) EnsureBucket(ctx context.Context, bucket string) error {
	exists, err := g.client.BucketExists(ctx, bucket)
	if err != nil {
		return fmt.Errorf("bucket-exists %s: %w", bucket, err)
	}
	if exists {
		return nil
	}

	err = g.client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: g.region})
	if err != nil {
		// Concurrent creation loses the race but the bucket is there
		exists, checkErr := g.client.BucketExists(ctx, bucket)
		if checkErr == nil && exists {
			return nil
		}
		return fmt.Errorf("make-bucket %s: %w", bucket, err)
	}

	logger.Info("bucket created", "bucket", bucket)
	return nil
}

// EnsureNotification subscribes the webhook target to object events on the
// bucket, scoped to the upload prefix. A subscription that is already present
// is left untouched.
func (g *MinioGateway) EnsureNotification(ctx context.Context, bucket, prefix string) error {
	arn, err := parseArn(g.arn)
	if err != nil {
		return err
	}

	existing, err := g.client.GetBucketNotification(ctx, bucket)
	if err == nil {
		for _, qc := range existing.QueueConfigs {
			if qc.Queue == g.arn {
				return nil
			}
		}
	}

	queueConfig := notification.NewConfig(arn)
	queueConfig.AddEvents(notification.ObjectCreatedAll, notification.ObjectRemovedAll)
	if prefix != "" {
		queueConfig.AddFilterPrefix(prefix + "/")
	}

	cfg := notification.Configuration{}
	cfg.AddQueue(queueConfig)

	if err := g.client.SetBucketNotification(ctx, bucket, cfg); err != nil {
		return fmt.Errorf("set-notification %s: %w", bucket, err)
	}

	logger.Info("bucket notification configured", "bucket", bucket, "arn", g.arn)
	return nil
}

// PresignPost builds the direct-strategy POST policy: exact content type,
// bounded length, limited lifetime.
func (g *MinioGateway) PresignPost(ctx context.Context, bucket, key, contentType string, maxBytes int64, expiry time.Duration) (*PresignedPost, error) {
	policy := minio.NewPostPolicy()
	if err := policy.SetBucket(bucket); err != nil {
		return nil, fmt.Errorf("presign-post %s: %w", key, err)
	}
	if err := policy.SetKey(key); err != nil {
		return nil, fmt.Errorf("presign-post %s: %w", key, err)
	}
	if err := policy.SetExpires(time.Now().UTC().Add(expiry)); err != nil {
		return nil, fmt.Errorf("presign-post %s: %w", key, err)
	}
	if contentType != "" {
		if err := policy.SetContentType(contentType); err != nil {
			return nil, fmt.Errorf("presign-post %s: %w", key, err)
		}
	}
	if err := policy.SetContentLengthRange(1, maxBytes); err != nil {
		return nil, fmt.Errorf("presign-post %s: %w", key, err)
	}

	u, fields, err := g.client.PresignedPostPolicy(ctx, policy)
	if err != nil {
		return nil, fmt.Errorf("presign-post %s: %w", key, err)
	}

	return &PresignedPost{URL: u.String(), Fields: fields}, nil
}

func (g *MinioGateway) InitiateMultipart(ctx context.Context, bucket, key, contentType string) (string, error) {
	uploadID, err := g.core.NewMultipartUpload(ctx, bucket, key, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("initiate-multipart %s: %w", key, err)
	}
	return uploadID, nil
}

// PresignPartPut signs a PUT for one part of an in-flight multipart upload.
// The provider identifies the part through the uploadId/partNumber query.
func (g *MinioGateway) PresignPartPut(ctx context.Context, bucket, key, uploadID string, partNumber int, expiry time.Duration) (string, error) {
	params := url.Values{}
	params.Set("uploadId", uploadID)
	params.Set("partNumber", strconv.Itoa(partNumber))

	u, err := g.client.Presign(ctx, http.MethodPut, bucket, key, expiry, params)
	if err != nil {
		return "", fmt.Errorf("presign-part %s#%d: %w", key, partNumber, err)
	}
	return u.String(), nil
}

func (g *MinioGateway) CompleteMultipart(ctx context.Context, bucket, key, uploadID string, parts []CompletedPart) error {
	completed := make([]minio.CompletePart, 0, len(parts))
	for _, p := range parts {
		completed = append(completed, minio.CompletePart{
			PartNumber: p.PartNumber,
			ETag:       p.ETag,
		})
	}

	_, err := g.core.CompleteMultipartUpload(ctx, bucket, key, uploadID, completed, minio.PutObjectOptions{})
	if err != nil {
		return fmt.Errorf("complete-multipart %s: %w", key, err)
	}
	return nil
}

func (g *MinioGateway) AbortMultipart(ctx context.Context, bucket, key, uploadID string) error {
	if err := g.core.AbortMultipartUpload(ctx, bucket, key, uploadID); err != nil {
		return fmt.Errorf("abort-multipart %s: %w", key, err)
	}
	return nil
}

// parseArn splits an S3-style notification target ARN into its components.
func parseArn(s string) (notification.Arn, error) {
	fields := strings.Split(s, ":")
	if len(fields) != 6 || fields[0] != "arn" {
		return notification.Arn{}, fmt.Errorf("invalid notification ARN %q", s)
	}
	return notification.NewArn(fields[1], fields[2], fields[3], fields[4], fields[5]), nil
}
