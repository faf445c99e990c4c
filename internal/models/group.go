package models

// UploadGroup is a named batch of related file uploads submitted together.
// completed_files only moves forward and never exceeds total_files.
type UploadGroup struct {
	BaseModel
	Name           string      `gorm:"not null" json:"name"`
	Description    string      `json:"description,omitempty"`
	CallerID       *string     `gorm:"index" json:"callerId,omitempty"`
	Status         GroupStatus `gorm:"type:varchar(20);default:'pending';index" json:"status"`
	TotalFiles     int         `gorm:"not null" json:"totalFiles"`
	CompletedFiles int         `gorm:"not null;default:0" json:"completedFiles"`
}
