package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// HTTPDispatcher posts jobs to an external queue endpoint.
type HTTPDispatcher struct {
	endpoint string
	client   *http.Client
}

func NewHTTPDispatcher(endpoint string) *HTTPDispatcher {
	return &HTTPDispatcher{
		endpoint: endpoint,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

type jobEnvelope struct {
	JobID   string `json:"jobId"`
	JobType string `json:"jobType"`
	Payload any    `json:"payload"`
}

type jobResponse struct {
	JobID string `json:"jobId"`
}

func (d *HTTPDispatcher) Enqueue(ctx context.Context, jobType string, payload any) (string, error) {
	jobID := uuid.NewString()

	body, err := json.Marshal(jobEnvelope{JobID: jobID, JobType: jobType, Payload: payload})
	if err != nil {
		return "", fmt.Errorf("failed to encode job: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build job request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to enqueue job: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		return "", fmt.Errorf("job queue rejected %s: status %d", jobType, resp.StatusCode)
	}

	// The queue may assign its own id; fall back to ours when it does not.
	var out jobResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err == nil && out.JobID != "" {
		return out.JobID, nil
	}
	return jobID, nil
}
