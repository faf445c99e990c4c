package repositories

import (
	"context"

	"gorm.io/gorm"

	"uploadgate/internal/models"
)

type GroupRepository interface {
	Create(ctx context.Context, group *models.UploadGroup) error
	FindByID(ctx context.Context, id string) (*models.UploadGroup, error)
	MarkInProgress(ctx context.Context, id string) error
	IncrementCompleted(ctx context.Context, id string) (bool, error)
}

type groupRepository struct {
	db *gorm.DB
}

func NewGroupRepository(db *gorm.DB) GroupRepository {
	return &groupRepository{db: db}
}

func (r *groupRepository) Create(ctx context.Context, group *models.UploadGroup) error {
	return r.db.WithContext(ctx).Create(group).Error
}

func (r *groupRepository) FindByID(ctx context.Context, id string) (*models.UploadGroup, error) {
	var group models.UploadGroup
	if err := r.db.WithContext(ctx).First(&group, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &group, nil
}

// MarkInProgress moves a pending group to in_progress. A group that already
// left pending is untouched.
func (r *groupRepository) MarkInProgress(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).
		Model(&models.UploadGroup{}).
		Where("id = ? AND status = ?", id, models.GroupStatusPending).
		Update("status", models.GroupStatusInProgress).Error
}

// IncrementCompleted bumps completed_files by one and flips the group to
// completed when the counter reaches total_files. The WHERE guard keeps the
// counter from ever passing total_files and keeps a group that already
// reached failed or cancelled where it is; the caller is responsible for
// only calling this once per session transition. Returns whether a row
// changed.
func (r *groupRepository) IncrementCompleted(ctx context.Context, id string) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.UploadGroup{}).
		Where("id = ? AND completed_files < total_files AND status IN ?", id, []models.GroupStatus{
			models.GroupStatusPending, models.GroupStatusInProgress,
		}).
		Updates(map[string]interface{}{
			"completed_files": gorm.Expr("completed_files + 1"),
			"status": gorm.Expr(
				"CASE WHEN completed_files + 1 >= total_files THEN ? ELSE ? END",
				models.GroupStatusCompleted, models.GroupStatusInProgress,
			),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
