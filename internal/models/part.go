package models

import "time"

// UploadPart is one chunk of a chunked session. Rows for parts 1..TotalParts
// are created in bulk before any part upload begins.
type UploadPart struct {
	BaseModel
	SessionID  string     `gorm:"type:uuid;not null;uniqueIndex:idx_session_part" json:"sessionId"`
	PartNumber int        `gorm:"not null;uniqueIndex:idx_session_part" json:"partNumber"` // 1-based, contiguous
	Size       int64      `json:"size"`
	ETag       string     `gorm:"column:e_tag" json:"etag,omitempty"` // entity tag returned by the provider
	Status     PartStatus `gorm:"type:varchar(20);default:'pending';index" json:"status"`
	UploadedAt *time.Time `json:"uploadedAt,omitempty"`
}
