// Package dispatch is the boundary to the downstream processing queue. The
// core enqueues work here exactly once per durably uploaded session; what
// happens to the job afterwards is not its concern.
package dispatch

import (
	"context"

	"github.com/google/uuid"

	"uploadgate/internal/logger"
)

// JobTypeProcessUpload is enqueued for every session that reaches uploaded.
const JobTypeProcessUpload = "process_upload"

// UploadJob is the completed-file descriptor handed downstream.
type UploadJob struct {
	SessionID   string  `json:"sessionId"`
	GroupID     *string `json:"groupId,omitempty"`
	ObjectKey   string  `json:"objectKey"`
	Size        int64   `json:"size"`
	ContentType string  `json:"contentType"`
}

// Dispatcher enqueues downstream work.
type Dispatcher interface {
	Enqueue(ctx context.Context, jobType string, payload any) (string, error)
}

// LogDispatcher is the development fallback: it only records the handoff.
type LogDispatcher struct{}

func NewLogDispatcher() *LogDispatcher {
	return &LogDispatcher{}
}

func (d *LogDispatcher) Enqueue(ctx context.Context, jobType string, payload any) (string, error) {
	jobID := uuid.NewString()
	logger.Info("job enqueued", "job_id", jobID, "job_type", jobType, "payload", payload)
	return jobID, nil
}
