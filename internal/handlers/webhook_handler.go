package handlers

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"uploadgate/internal/appErrors"
	"uploadgate/internal/services"
)

// webhookPayload is the provider-defined event envelope.
type webhookPayload struct {
	EventName string          `json:"eventName" binding:"required"`
	Records   []webhookRecord `json:"records" binding:"required,min=1,dive"`
}

type webhookRecord struct {
	Bucket      string    `json:"bucket" binding:"required"`
	ObjectKey   string    `json:"objectKey" binding:"required"`
	Size        int64     `json:"size"`
	Tag         string    `json:"tag"`
	ContentType string    `json:"contentType"`
	EventTime   time.Time `json:"eventTime" binding:"required"`
}

type WebhookHandler struct {
	service   services.WebhookService
	authToken string
}

func NewWebhookHandler(service services.WebhookService, authToken string) *WebhookHandler {
	return &WebhookHandler{service: service, authToken: authToken}
}

func (h *WebhookHandler) RegisterRoutes(api *gin.RouterGroup) {
	api.POST("/webhooks/storage", h.HandleStorageEvent)
}

// HandleStorageEvent godoc
// @Summary Ingest a provider storage notification
// @Description Authenticated with the shared webhook secret. Malformed payloads are rejected without side effects; one bad record never blocks its siblings.
// @Tags webhooks
// @Accept json
// @Produce json
// @Router /webhooks/storage [post]
func (h *WebhookHandler) HandleStorageEvent(c *gin.Context) {
	if !h.authorized(c) {
		// No payload processing and no detail beyond the generic failure
		appErrors.HandleError(c, appErrors.ErrWebhookAuthFailed)
		return
	}

	var payload webhookPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		appErrors.HandleError(c, appErrors.ValidationError("malformed webhook payload"))
		return
	}

	records := make([]services.StorageRecord, 0, len(payload.Records))
	for _, r := range payload.Records {
		records = append(records, services.StorageRecord{
			Bucket:      r.Bucket,
			ObjectKey:   r.ObjectKey,
			Size:        r.Size,
			Tag:         r.Tag,
			ContentType: r.ContentType,
			EventTime:   r.EventTime,
		})
	}

	result := h.service.Ingest(c.Request.Context(), payload.EventName, records)

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"processed": result.Processed,
		"skipped":   result.Skipped,
		"failed":    result.Failed,
	})
}

// authorized checks the shared-secret bearer token in constant time.
func (h *WebhookHandler) authorized(c *gin.Context) bool {
	if h.authToken == "" {
		return false
	}

	header := c.GetHeader("Authorization")
	token := strings.TrimPrefix(header, "Bearer ")
	if token == header {
		// Some providers send the bare secret
		token = header
	}
	if token == "" {
		return false
	}

	return subtle.ConstantTimeCompare([]byte(token), []byte(h.authToken)) == 1
}
