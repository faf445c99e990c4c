package database

import (
	"gorm.io/gorm"

	"uploadgate/internal/models"
)

// AutoMigrate migrates all models.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.UploadGroup{},
		&models.UploadSession{},
		&models.UploadPart{},
	)
}
