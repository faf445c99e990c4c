package dto

import "uploadgate/internal/storage"

// FileInput is the caller-declared descriptor of one file to upload.
type FileInput struct {
	Name string `json:"name" binding:"required"`
	Type string `json:"type" binding:"required"`
	Size int64  `json:"size" binding:"required,gt=0"`
}

type InitiateRequest struct {
	Files     []FileInput `json:"files" binding:"required,min=1,dive"`
	GroupName string      `json:"groupName"`
	CallerID  string      `json:"callerId"`
}

// SessionResult is the per-file outcome of initiate. A rejected file carries
// Error and no session; its siblings are unaffected.
type SessionResult struct {
	SessionID       string                 `json:"sessionId,omitempty"`
	FileName        string                 `json:"fileName"`
	ObjectKey       string                 `json:"objectKey,omitempty"`
	Strategy        string                 `json:"strategy,omitempty"`
	PresignedUpload *storage.PresignedPost `json:"presignedUpload,omitempty"` // direct only
	UploadID        string                 `json:"uploadId,omitempty"`        // chunked only
	TotalParts      int                    `json:"totalParts,omitempty"`      // chunked only
	ChunkSize       int64                  `json:"chunkSize,omitempty"`       // chunked only
	Error           string                 `json:"error,omitempty"`
}

type InitiateResponse struct {
	Success  bool            `json:"success"`
	GroupID  *string         `json:"groupId,omitempty"`
	Sessions []SessionResult `json:"sessions"`
}

type PartURLRequest struct {
	SessionID  string `json:"sessionId" binding:"required"`
	PartNumber int    `json:"partNumber" binding:"required,gt=0"`
}

type PartURLResponse struct {
	Success bool   `json:"success"`
	URL     string `json:"url,omitempty"`
}

type CompletedPartInput struct {
	PartNumber int    `json:"partNumber" binding:"required,gt=0"`
	Tag        string `json:"tag" binding:"required"`
}

type CompleteRequest struct {
	SessionID string               `json:"sessionId" binding:"required"`
	Parts     []CompletedPartInput `json:"parts" binding:"required,min=1,dive"`
}

type AbortRequest struct {
	SessionID string `json:"sessionId" binding:"required"`
}

type StatusResponse struct {
	Success bool `json:"success"`
}
