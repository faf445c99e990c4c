package models

type GroupStatus string
type SessionStatus string
type PartStatus string
type UploadStrategy string

const (
	GroupStatusPending    GroupStatus = "pending"
	GroupStatusInProgress GroupStatus = "in_progress"
	GroupStatusCompleted  GroupStatus = "completed"
	GroupStatusFailed     GroupStatus = "failed"
	GroupStatusCancelled  GroupStatus = "cancelled"

	SessionStatusPendingUpload SessionStatus = "pending_upload"
	SessionStatusUploading     SessionStatus = "uploading"
	SessionStatusUploaded      SessionStatus = "uploaded"
	SessionStatusProcessing    SessionStatus = "processing"
	SessionStatusCompleted     SessionStatus = "completed"
	SessionStatusFailed        SessionStatus = "failed"
	SessionStatusDeleted       SessionStatus = "deleted"

	PartStatusPending   PartStatus = "pending"
	PartStatusUploading PartStatus = "uploading"
	PartStatusUploaded  PartStatus = "uploaded"
	PartStatusFailed    PartStatus = "failed"

	StrategyDirect  UploadStrategy = "direct"
	StrategyChunked UploadStrategy = "chunked"
)

// IsTerminal reports whether a session can no longer move forward.
// Transitions are monotonic; a terminal session ignores late signals.
func (s SessionStatus) IsTerminal() bool {
	switch s {
	case SessionStatusUploaded, SessionStatusProcessing, SessionStatusCompleted,
		SessionStatusFailed, SessionStatusDeleted:
		return true
	}
	return false
}
