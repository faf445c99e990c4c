package appErrors

// Error codes grouped by domain
const (
	// Validation
	CodeValidationFailed ErrorCode = "VALIDATION_FAILED"

	// Resources
	CodeSessionNotFound ErrorCode = "SESSION_NOT_FOUND"
	CodeGroupNotFound   ErrorCode = "GROUP_NOT_FOUND"

	// Upload lifecycle
	CodeNotMultipart      ErrorCode = "NOT_MULTIPART"
	CodeWebhookAuthFailed ErrorCode = "WEBHOOK_AUTH_FAILED"

	// System
	CodeStorageError  ErrorCode = "STORAGE_ERROR"
	CodeDatabaseError ErrorCode = "DATABASE_ERROR"
	CodeInternalError ErrorCode = "INTERNAL_ERROR"
)
