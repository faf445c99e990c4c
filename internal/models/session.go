package models

import "time"

// UploadSession is the lifecycle record for one physical uploaded object.
// ObjectKey is assigned once at creation and never changes; it is the only
// provider-facing name for the object.
type UploadSession struct {
	BaseModel
	GroupID        *string        `gorm:"type:uuid;index" json:"groupId,omitempty"`
	CallerID       *string        `gorm:"index" json:"callerId,omitempty"`
	FileName       string         `gorm:"not null" json:"fileName"`
	ContentType    string         `json:"contentType"`
	Size           int64          `json:"size"`
	ObjectKey      string         `gorm:"uniqueIndex;not null" json:"objectKey"`
	Strategy       UploadStrategy `gorm:"type:varchar(10);not null" json:"strategy"`
	UploadID       string         `json:"uploadId,omitempty"` // provider multipart id, chunked only
	Status         SessionStatus  `gorm:"type:varchar(20);default:'pending_upload';index" json:"status"`
	TotalParts     int            `json:"totalParts,omitempty"`     // set iff Strategy == chunked
	CompletedParts int            `gorm:"default:0" json:"completedParts,omitempty"`
	UploadedAt     *time.Time     `json:"uploadedAt,omitempty"`
}

// IsMultipart reports whether the session carries a provider multipart upload.
func (s *UploadSession) IsMultipart() bool {
	return s.Strategy == StrategyChunked && s.UploadID != ""
}
