package services

import (
	"context"
	"strings"
	"time"

	"uploadgate/internal/dispatch"
	"uploadgate/internal/logger"
	"uploadgate/internal/models"
	"uploadgate/internal/repositories"
)

// Event name prefixes in the provider's S3 convention.
const (
	eventObjectCreated = "s3:ObjectCreated"
	eventObjectRemoved = "s3:ObjectRemoved"
)

// StorageRecord is one stored-object event inside a provider delivery.
type StorageRecord struct {
	Bucket      string
	ObjectKey   string
	Size        int64
	Tag         string
	ContentType string
	EventTime   time.Time
}

// IngestResult counts per-record outcomes of one delivery. Records the
// provider redelivered or that belong to foreign objects are skipped, not
// failed.
type IngestResult struct {
	Processed int `json:"processed"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`
}

// WebhookService drives terminal lifecycle transitions from asynchronous,
// possibly-duplicated, possibly-out-of-order provider notifications.
type WebhookService interface {
	Ingest(ctx context.Context, eventName string, records []StorageRecord) IngestResult
}

type webhookService struct {
	sessionRepo repositories.SessionRepository
	groupRepo   repositories.GroupRepository
	dispatcher  dispatch.Dispatcher
	broadcaster Broadcaster
}

func NewWebhookService(
	sessionRepo repositories.SessionRepository,
	groupRepo repositories.GroupRepository,
	dispatcher dispatch.Dispatcher,
	broadcaster Broadcaster,
) WebhookService {
	return &webhookService{
		sessionRepo: sessionRepo,
		groupRepo:   groupRepo,
		dispatcher:  dispatcher,
		broadcaster: broadcaster,
	}
}

// Ingest processes every record of a delivery independently: one record's
// failure never blocks its siblings.
func (s *webhookService) Ingest(ctx context.Context, eventName string, records []StorageRecord) IngestResult {
	var result IngestResult

	for _, record := range records {
		outcome, err := s.ingestOne(ctx, eventName, record)
		if err != nil {
			logger.Error("webhook record processing failed",
				"object_key", record.ObjectKey, "event", eventName, "error", err)
			result.Failed++
			continue
		}
		if outcome {
			result.Processed++
		} else {
			result.Skipped++
		}
	}

	return result
}

// ingestOne handles a single record. The bool reports whether any state
// changed; false means the record was dropped as foreign or redelivered.
func (s *webhookService) ingestOne(ctx context.Context, eventName string, record StorageRecord) (bool, error) {
	switch {
	case strings.HasPrefix(eventName, eventObjectCreated):
		return s.objectCreated(ctx, record)
	case strings.HasPrefix(eventName, eventObjectRemoved):
		return s.objectRemoved(ctx, record)
	default:
		logger.Debug("ignoring unhandled storage event", "event", eventName)
		return false, nil
	}
}

func (s *webhookService) objectCreated(ctx context.Context, record StorageRecord) (bool, error) {
	session, ok, err := s.lookup(ctx, record.ObjectKey)
	if err != nil || !ok {
		return false, err
	}

	if session.Status.IsTerminal() {
		// Providers redeliver; a terminal session ignores the repeat.
		logger.Debug("dropping redelivered creation event",
			"object_key", record.ObjectKey, "status", session.Status)
		return false, nil
	}

	if session.Strategy == models.StrategyChunked {
		// Chunked sessions reach uploaded through the explicit complete call;
		// the provider's own creation event for the assembled object is
		// redundant here.
		logger.Debug("dropping creation event for chunked session",
			"session_id", session.ID, "object_key", record.ObjectKey)
		return false, nil
	}

	counted, err := s.sessionRepo.MarkUploaded(ctx, session.ID)
	if err != nil {
		return false, err
	}
	if !counted {
		// A concurrent delivery won the transition.
		return false, nil
	}

	now := time.Now().UTC()
	session.Status = models.SessionStatusUploaded
	session.UploadedAt = &now

	if session.GroupID != nil {
		if _, err := s.groupRepo.IncrementCompleted(ctx, *session.GroupID); err != nil {
			logger.Error("failed to increment group counter",
				"group_id", *session.GroupID, "session_id", session.ID, "error", err)
		}
		if group, err := s.groupRepo.FindByID(ctx, *session.GroupID); err == nil {
			s.broadcaster.GroupUpdated(group)
		}
	}

	s.broadcaster.SessionUpdated(session)

	jobID, err := s.dispatcher.Enqueue(ctx, dispatch.JobTypeProcessUpload, dispatch.UploadJob{
		SessionID:   session.ID,
		GroupID:     session.GroupID,
		ObjectKey:   session.ObjectKey,
		Size:        record.Size,
		ContentType: session.ContentType,
	})
	if err != nil {
		logger.Error("downstream dispatch failed", "session_id", session.ID, "error", err)
		return true, nil
	}

	logger.Info("storage confirmed upload, downstream job enqueued",
		"session_id", session.ID, "object_key", record.ObjectKey, "job_id", jobID)
	return true, nil
}

func (s *webhookService) objectRemoved(ctx context.Context, record StorageRecord) (bool, error) {
	session, ok, err := s.lookup(ctx, record.ObjectKey)
	if err != nil || !ok {
		return false, err
	}

	changed, err := s.sessionRepo.MarkDeleted(ctx, session.ID)
	if err != nil {
		return false, err
	}
	if !changed {
		return false, nil
	}

	session.Status = models.SessionStatusDeleted
	s.broadcaster.SessionUpdated(session)
	logger.Info("session marked deleted after object removal",
		"session_id", session.ID, "object_key", record.ObjectKey)
	return true, nil
}

// lookup resolves an object key to a session. An unknown key is not an
// error: the object may belong to a collaborator outside this system.
func (s *webhookService) lookup(ctx context.Context, objectKey string) (*models.UploadSession, bool, error) {
	session, err := s.sessionRepo.FindByObjectKey(ctx, objectKey)
	if err != nil {
		if isNotFound(err) {
			logger.Debug("no session for object key, dropping event", "object_key", objectKey)
			return nil, false, nil
		}
		return nil, false, err
	}
	return session, true, nil
}
