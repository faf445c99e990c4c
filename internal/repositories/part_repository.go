package repositories

import (
	"context"
	"time"

	"gorm.io/gorm"

	"uploadgate/internal/models"
)

type PartRepository interface {
	CreateBatch(ctx context.Context, parts []models.UploadPart) error
	FindBySession(ctx context.Context, sessionID string) ([]models.UploadPart, error)
	MarkUploading(ctx context.Context, sessionID string, partNumber int) error
	SetUploaded(ctx context.Context, sessionID string, partNumber int, etag string) error
	FailPending(ctx context.Context, sessionID string) error
}

type partRepository struct {
	db *gorm.DB
}

func NewPartRepository(db *gorm.DB) PartRepository {
	return &partRepository{db: db}
}

func (r *partRepository) CreateBatch(ctx context.Context, parts []models.UploadPart) error {
	if len(parts) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&parts).Error
}

func (r *partRepository) FindBySession(ctx context.Context, sessionID string) ([]models.UploadPart, error) {
	var parts []models.UploadPart
	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("part_number ASC").
		Find(&parts).Error
	return parts, err
}

// MarkUploading flags a part as in flight. Reissuing a URL for the same part
// hits the same row again, so repeated calls stay idempotent.
func (r *partRepository) MarkUploading(ctx context.Context, sessionID string, partNumber int) error {
	return r.db.WithContext(ctx).
		Model(&models.UploadPart{}).
		Where("session_id = ? AND part_number = ? AND status <> ?",
			sessionID, partNumber, models.PartStatusUploaded).
		Update("status", models.PartStatusUploading).Error
}

func (r *partRepository) SetUploaded(ctx context.Context, sessionID string, partNumber int, etag string) error {
	now := time.Now().UTC()
	return r.db.WithContext(ctx).
		Model(&models.UploadPart{}).
		Where("session_id = ? AND part_number = ?", sessionID, partNumber).
		Updates(map[string]interface{}{
			"status":      models.PartStatusUploaded,
			"e_tag":       etag,
			"uploaded_at": now,
		}).Error
}

// FailPending marks every part that never finished as failed. Parts already
// uploaded are left as historical record.
func (r *partRepository) FailPending(ctx context.Context, sessionID string) error {
	return r.db.WithContext(ctx).
		Model(&models.UploadPart{}).
		Where("session_id = ? AND status <> ?", sessionID, models.PartStatusUploaded).
		Update("status", models.PartStatusFailed).Error
}
