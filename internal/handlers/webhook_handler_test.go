package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"uploadgate/internal/services"
)

type recordingWebhookService struct {
	calls   int
	event   string
	records []services.StorageRecord
	result  services.IngestResult
}

func (s *recordingWebhookService) Ingest(ctx context.Context, eventName string, records []services.StorageRecord) services.IngestResult {
	s.calls++
	s.event = eventName
	s.records = records
	return s.result
}

func newWebhookRouter(service services.WebhookService, token string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	api := router.Group("/api/v1")
	NewWebhookHandler(service, token).RegisterRoutes(api)
	return router
}

func postWebhook(router *gin.Engine, token string, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/storage", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

const validPayload = `{
	"eventName": "s3:ObjectCreated:Post",
	"records": [
		{"bucket": "test-bucket", "objectKey": "uploads/a.png", "size": 42, "eventTime": "2026-01-02T15:04:05Z"}
	]
}`

func TestWebhookHandler_RejectsMissingToken(t *testing.T) {
	service := &recordingWebhookService{}
	router := newWebhookRouter(service, "secret")

	w := postWebhook(router, "", validPayload)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Zero(t, service.calls, "unauthenticated payloads are never processed")
}

func TestWebhookHandler_RejectsWrongToken(t *testing.T) {
	service := &recordingWebhookService{}
	router := newWebhookRouter(service, "secret")

	w := postWebhook(router, "not-the-secret", validPayload)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Zero(t, service.calls)
}

func TestWebhookHandler_RejectsWhenNoTokenConfigured(t *testing.T) {
	service := &recordingWebhookService{}
	router := newWebhookRouter(service, "")

	w := postWebhook(router, "anything", validPayload)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Zero(t, service.calls)
}

func TestWebhookHandler_MalformedPayload(t *testing.T) {
	service := &recordingWebhookService{}
	router := newWebhookRouter(service, "secret")

	w := postWebhook(router, "secret", `{"records": []}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Zero(t, service.calls)
}

func TestWebhookHandler_IngestsAndReportsCounts(t *testing.T) {
	service := &recordingWebhookService{result: services.IngestResult{Processed: 1}}
	router := newWebhookRouter(service, "secret")

	w := postWebhook(router, "secret", validPayload)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, service.calls)
	assert.Equal(t, "s3:ObjectCreated:Post", service.event)
	require.Len(t, service.records, 1)
	assert.Equal(t, "uploads/a.png", service.records[0].ObjectKey)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, true, resp["success"])
	assert.Equal(t, float64(1), resp["processed"])
	assert.Equal(t, float64(0), resp["skipped"])
}

func TestWebhookHandler_AcceptsBareSecret(t *testing.T) {
	service := &recordingWebhookService{}
	router := newWebhookRouter(service, "secret")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/storage", bytes.NewBufferString(validPayload))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "secret")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, service.calls)
}
