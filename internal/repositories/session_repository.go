package repositories

import (
	"context"
	"time"

	"gorm.io/gorm"

	"uploadgate/internal/models"
)

type SessionRepository interface {
	Create(ctx context.Context, session *models.UploadSession) error
	FindByID(ctx context.Context, id string) (*models.UploadSession, error)
	FindByObjectKey(ctx context.Context, objectKey string) (*models.UploadSession, error)
	FindByGroup(ctx context.Context, groupID string) ([]models.UploadSession, error)
	FindByCaller(ctx context.Context, callerID string) ([]models.UploadSession, error)
	SetMultipart(ctx context.Context, id, uploadID string, totalParts int) error
	MarkUploading(ctx context.Context, id string) (bool, error)
	MarkUploaded(ctx context.Context, id string) (bool, error)
	MarkFailed(ctx context.Context, id string) (bool, error)
	MarkDeleted(ctx context.Context, id string) (bool, error)
	SetCompletedParts(ctx context.Context, id string, count int) error
}

type sessionRepository struct {
	db *gorm.DB
}

func NewSessionRepository(db *gorm.DB) SessionRepository {
	return &sessionRepository{db: db}
}

func (r *sessionRepository) Create(ctx context.Context, session *models.UploadSession) error {
	return r.db.WithContext(ctx).Create(session).Error
}

func (r *sessionRepository) FindByID(ctx context.Context, id string) (*models.UploadSession, error) {
	var session models.UploadSession
	if err := r.db.WithContext(ctx).First(&session, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *sessionRepository) FindByObjectKey(ctx context.Context, objectKey string) (*models.UploadSession, error) {
	var session models.UploadSession
	if err := r.db.WithContext(ctx).First(&session, "object_key = ?", objectKey).Error; err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *sessionRepository) FindByGroup(ctx context.Context, groupID string) ([]models.UploadSession, error) {
	var sessions []models.UploadSession
	err := r.db.WithContext(ctx).
		Where("group_id = ?", groupID).
		Order("created_at ASC").
		Find(&sessions).Error
	return sessions, err
}

func (r *sessionRepository) FindByCaller(ctx context.Context, callerID string) ([]models.UploadSession, error) {
	var sessions []models.UploadSession
	err := r.db.WithContext(ctx).
		Where("caller_id = ?", callerID).
		Order("created_at DESC").
		Find(&sessions).Error
	return sessions, err
}

// SetMultipart records the provider upload id and part count on a freshly
// created chunked session.
func (r *sessionRepository) SetMultipart(ctx context.Context, id, uploadID string, totalParts int) error {
	return r.db.WithContext(ctx).
		Model(&models.UploadSession{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"upload_id":   uploadID,
			"total_parts": totalParts,
		}).Error
}

// MarkUploading moves a session out of pending_upload. Sessions already past
// that state are untouched; the bool reports whether this call moved it.
func (r *sessionRepository) MarkUploading(ctx context.Context, id string) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.UploadSession{}).
		Where("id = ? AND status = ?", id, models.SessionStatusPendingUpload).
		Update("status", models.SessionStatusUploading)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// MarkUploaded performs the terminal-success transition. The conditional
// WHERE makes it single-winner: under concurrent completion signals exactly
// one caller sees true, which gates the group counter and the downstream
// dispatch. Everyone else gets a no-op.
func (r *sessionRepository) MarkUploaded(ctx context.Context, id string) (bool, error) {
	now := time.Now().UTC()
	res := r.db.WithContext(ctx).
		Model(&models.UploadSession{}).
		Where("id = ? AND status IN ?", id, []models.SessionStatus{
			models.SessionStatusPendingUpload, models.SessionStatusUploading,
		}).
		Updates(map[string]interface{}{
			"status":      models.SessionStatusUploaded,
			"uploaded_at": now,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// MarkFailed moves any non-terminal session to failed.
func (r *sessionRepository) MarkFailed(ctx context.Context, id string) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.UploadSession{}).
		Where("id = ? AND status IN ?", id, []models.SessionStatus{
			models.SessionStatusPendingUpload, models.SessionStatusUploading,
		}).
		Update("status", models.SessionStatusFailed)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// MarkDeleted handles provider object-removal events; terminal sessions keep
// their history.
func (r *sessionRepository) MarkDeleted(ctx context.Context, id string) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.UploadSession{}).
		Where("id = ? AND status IN ?", id, []models.SessionStatus{
			models.SessionStatusPendingUpload, models.SessionStatusUploading,
		}).
		Update("status", models.SessionStatusDeleted)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *sessionRepository) SetCompletedParts(ctx context.Context, id string, count int) error {
	return r.db.WithContext(ctx).
		Model(&models.UploadSession{}).
		Where("id = ?", id).
		Update("completed_parts", count).Error
}
