package services

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"uploadgate/internal/appErrors"
	"uploadgate/internal/config"
	"uploadgate/internal/dispatch"
	"uploadgate/internal/logger"
	"uploadgate/internal/models"
	"uploadgate/internal/policy"
	"uploadgate/internal/repositories"
	"uploadgate/internal/services/dto"
	"uploadgate/internal/storage"
)

// Broadcaster receives a notification after every state-changing operation.
// Implemented by the live hub; a no-op implementation is fine in tests.
type Broadcaster interface {
	SessionUpdated(session *models.UploadSession)
	GroupUpdated(group *models.UploadGroup)
}

// UploadService orchestrates upload sessions: strategy selection, presigned
// credentials, the lifecycle state machine and the downstream handoff.
type UploadService interface {
	Initiate(ctx context.Context, req *dto.InitiateRequest) (*dto.InitiateResponse, error)
	GeneratePartUploadURL(ctx context.Context, sessionID string, partNumber int) (string, error)
	CompleteMultipartUpload(ctx context.Context, sessionID string, parts []dto.CompletedPartInput) error
	AbortMultipartUpload(ctx context.Context, sessionID string) error

	// Snapshot reads for the live channel
	GroupSnapshot(ctx context.Context, groupID string) (*models.UploadGroup, []models.UploadSession, error)
	SessionSnapshot(ctx context.Context, sessionID string) (*models.UploadSession, error)
	CallerSessions(ctx context.Context, callerID string) ([]models.UploadSession, error)
}

type uploadService struct {
	groupRepo   repositories.GroupRepository
	sessionRepo repositories.SessionRepository
	partRepo    repositories.PartRepository
	gateway     storage.Gateway
	dispatcher  dispatch.Dispatcher
	broadcaster Broadcaster
	cfg         *config.Config
}

func NewUploadService(
	groupRepo repositories.GroupRepository,
	sessionRepo repositories.SessionRepository,
	partRepo repositories.PartRepository,
	gateway storage.Gateway,
	dispatcher dispatch.Dispatcher,
	broadcaster Broadcaster,
	cfg *config.Config,
) UploadService {
	return &uploadService{
		groupRepo:   groupRepo,
		sessionRepo: sessionRepo,
		partRepo:    partRepo,
		gateway:     gateway,
		dispatcher:  dispatcher,
		broadcaster: broadcaster,
		cfg:         cfg,
	}
}

func (s *uploadService) policyConfig() policy.Config {
	return policy.Config{
		AllowedTypes:   s.cfg.Upload.AllowedTypes,
		MaxSize:        s.cfg.Upload.MaxSize,
		ChunkThreshold: s.cfg.Upload.ChunkThreshold,
		ChunkSize:      s.cfg.Upload.ChunkSize,
	}
}

// Initiate accepts a batch of files, applies the upload policy per file and
// hands back upload credentials. One rejected file never blocks its siblings.
func (s *uploadService) Initiate(ctx context.Context, req *dto.InitiateRequest) (*dto.InitiateResponse, error) {
	if len(req.Files) == 0 {
		return nil, appErrors.ValidationError("at least one file is required")
	}

	bucket := s.cfg.Storage.Bucket
	if err := s.gateway.EnsureBucket(ctx, bucket); err != nil {
		return nil, appErrors.StorageError("ensure-bucket", err)
	}
	if err := s.gateway.EnsureNotification(ctx, bucket, s.cfg.Upload.Prefix); err != nil {
		return nil, appErrors.StorageError("ensure-notification", err)
	}

	callerID := optional(req.CallerID)

	// A group is created for multi-file batches or when one was asked for by
	// name, before any per-file work: rejected files still count into
	// total_files so the batch shape is preserved.
	var group *models.UploadGroup
	if len(req.Files) > 1 || req.GroupName != "" {
		name := req.GroupName
		if name == "" {
			name = fmt.Sprintf("Upload %s", time.Now().UTC().Format("2006-01-02 15:04:05"))
		}
		group = &models.UploadGroup{
			Name:       name,
			CallerID:   callerID,
			Status:     models.GroupStatusPending,
			TotalFiles: len(req.Files),
		}
		if err := s.groupRepo.Create(ctx, group); err != nil {
			return nil, appErrors.DatabaseError(err)
		}
		s.broadcaster.GroupUpdated(group)
	}

	resp := &dto.InitiateResponse{Sessions: make([]dto.SessionResult, 0, len(req.Files))}
	if group != nil {
		resp.GroupID = &group.ID
	}

	for _, file := range req.Files {
		resp.Sessions = append(resp.Sessions, s.initiateOne(ctx, file, group, callerID))
	}

	for _, result := range resp.Sessions {
		if result.Error == "" {
			resp.Success = true
			break
		}
	}
	return resp, nil
}

// initiateOne runs the policy and provisioning for a single file. Failures
// are reported in the result, never propagated, so siblings keep going.
func (s *uploadService) initiateOne(ctx context.Context, file dto.FileInput, group *models.UploadGroup, callerID *string) dto.SessionResult {
	result := dto.SessionResult{FileName: file.Name}

	decision := policy.Resolve(policy.FileDescriptor{
		Name: file.Name,
		Type: file.Type,
		Size: file.Size,
	}, s.policyConfig())
	if !decision.Allowed {
		result.Error = decision.Reason
		return result
	}

	session := &models.UploadSession{
		CallerID:    callerID,
		FileName:    file.Name,
		ContentType: file.Type,
		Size:        file.Size,
		ObjectKey:   s.newObjectKey(file.Name),
		Strategy:    decision.Strategy,
		Status:      models.SessionStatusPendingUpload,
	}
	if group != nil {
		session.GroupID = &group.ID
	}

	if err := s.sessionRepo.Create(ctx, session); err != nil {
		logger.Error("failed to create upload session", "file", file.Name, "error", err)
		result.Error = "failed to create upload session"
		return result
	}

	result.SessionID = session.ID
	result.ObjectKey = session.ObjectKey
	result.Strategy = string(decision.Strategy)

	switch decision.Strategy {
	case models.StrategyDirect:
		presigned, err := s.gateway.PresignPost(ctx, s.cfg.Storage.Bucket, session.ObjectKey,
			file.Type, file.Size, s.cfg.PresignExpiry())
		if err != nil {
			return s.failInitiated(ctx, session, result, "presign-post", err)
		}
		result.PresignedUpload = presigned

	case models.StrategyChunked:
		uploadID, err := s.gateway.InitiateMultipart(ctx, s.cfg.Storage.Bucket, session.ObjectKey, file.Type)
		if err != nil {
			return s.failInitiated(ctx, session, result, "initiate-multipart", err)
		}

		if err := s.sessionRepo.SetMultipart(ctx, session.ID, uploadID, decision.PartCount); err != nil {
			return s.failInitiated(ctx, session, result, "record-multipart", err)
		}
		session.UploadID = uploadID
		session.TotalParts = decision.PartCount

		if err := s.partRepo.CreateBatch(ctx, buildParts(session.ID, file.Size, decision)); err != nil {
			return s.failInitiated(ctx, session, result, "create-parts", err)
		}

		result.UploadID = uploadID
		result.TotalParts = decision.PartCount
		result.ChunkSize = decision.ChunkSize
	}

	s.broadcaster.SessionUpdated(session)
	return result
}

// failInitiated records a per-file provisioning failure: the session exists
// already, so it is moved to failed rather than left dangling.
func (s *uploadService) failInitiated(ctx context.Context, session *models.UploadSession, result dto.SessionResult, op string, err error) dto.SessionResult {
	logger.Error("upload provisioning failed", "op", op, "session_id", session.ID, "error", err)

	if _, markErr := s.sessionRepo.MarkFailed(ctx, session.ID); markErr != nil {
		logger.Error("failed to mark session failed", "session_id", session.ID, "error", markErr)
	}
	session.Status = models.SessionStatusFailed
	s.broadcaster.SessionUpdated(session)

	result.SessionID = ""
	result.ObjectKey = ""
	result.Strategy = ""
	result.Error = fmt.Sprintf("storage operation %s failed", op)
	return result
}

// buildParts pre-creates rows 1..N: every part is chunk-sized except the last,
// which takes the remainder.
func buildParts(sessionID string, totalSize int64, decision policy.Decision) []models.UploadPart {
	parts := make([]models.UploadPart, 0, decision.PartCount)
	for n := 1; n <= decision.PartCount; n++ {
		size := decision.ChunkSize
		if n == decision.PartCount {
			size = totalSize - int64(decision.PartCount-1)*decision.ChunkSize
		}
		parts = append(parts, models.UploadPart{
			SessionID:  sessionID,
			PartNumber: n,
			Size:       size,
			Status:     models.PartStatusPending,
		})
	}
	return parts
}

// newObjectKey builds a globally unique provider-facing name, keeping the
// original extension for content-type sniffing downstream.
func (s *uploadService) newObjectKey(fileName string) string {
	ext := strings.ToLower(filepath.Ext(fileName))
	return fmt.Sprintf("%s/%s%s", s.cfg.Upload.Prefix, uuid.NewString(), ext)
}

// GeneratePartUploadURL reissues a presigned PUT for one part. Calling it
// again for the same part is fine: the same Part row is touched, no duplicate
// appears.
func (s *uploadService) GeneratePartUploadURL(ctx context.Context, sessionID string, partNumber int) (string, error) {
	session, err := s.findSession(ctx, sessionID)
	if err != nil {
		return "", err
	}
	if !session.IsMultipart() {
		return "", appErrors.ErrNotMultipart
	}
	if partNumber < 1 || partNumber > session.TotalParts {
		return "", appErrors.ValidationError(
			fmt.Sprintf("part number %d out of range 1..%d", partNumber, session.TotalParts))
	}

	url, err := s.gateway.PresignPartPut(ctx, s.cfg.Storage.Bucket, session.ObjectKey,
		session.UploadID, partNumber, s.cfg.PresignExpiry())
	if err != nil {
		return "", appErrors.StorageError("presign-part", err)
	}

	if err := s.partRepo.MarkUploading(ctx, session.ID, partNumber); err != nil {
		return "", appErrors.DatabaseError(err)
	}

	moved, err := s.sessionRepo.MarkUploading(ctx, session.ID)
	if err != nil {
		return "", appErrors.DatabaseError(err)
	}
	if moved {
		session.Status = models.SessionStatusUploading
		s.enterGroupProgress(ctx, session)
		s.broadcaster.SessionUpdated(session)
	}

	return url, nil
}

// CompleteMultipartUpload finalizes a chunked session. Parts may arrive in
// any order; the provider contract requires strictly ascending part numbers,
// so they are sorted before the gateway call. Completing an already-uploaded
// session is a no-op success.
func (s *uploadService) CompleteMultipartUpload(ctx context.Context, sessionID string, parts []dto.CompletedPartInput) error {
	session, err := s.findSession(ctx, sessionID)
	if err != nil {
		return err
	}
	if session.Status.IsTerminal() {
		// Redelivered or retried completion after the fact
		return nil
	}
	if !session.IsMultipart() {
		return appErrors.ErrNotMultipart
	}
	if len(parts) == 0 {
		return appErrors.ValidationError("at least one part is required")
	}

	ordered := make([]dto.CompletedPartInput, len(parts))
	copy(ordered, parts)
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].PartNumber < ordered[j].PartNumber
	})

	// Validate the whole list before touching the store: a bad part number
	// rejects the call without leaving siblings half-marked.
	for _, p := range ordered {
		if p.PartNumber < 1 || p.PartNumber > session.TotalParts {
			return appErrors.ValidationError(
				fmt.Sprintf("part number %d out of range 1..%d", p.PartNumber, session.TotalParts))
		}
	}

	completed := make([]storage.CompletedPart, 0, len(ordered))
	for _, p := range ordered {
		if err := s.partRepo.SetUploaded(ctx, session.ID, p.PartNumber, p.Tag); err != nil {
			return appErrors.DatabaseError(err)
		}
		completed = append(completed, storage.CompletedPart{PartNumber: p.PartNumber, ETag: p.Tag})
	}

	if err := s.sessionRepo.SetCompletedParts(ctx, session.ID, len(ordered)); err != nil {
		return appErrors.DatabaseError(err)
	}

	if err := s.gateway.CompleteMultipart(ctx, s.cfg.Storage.Bucket, session.ObjectKey,
		session.UploadID, completed); err != nil {
		// Session stays non-terminal; the caller may retry complete.
		return appErrors.StorageError("complete-multipart", err)
	}

	counted, err := s.sessionRepo.MarkUploaded(ctx, session.ID)
	if err != nil {
		return appErrors.DatabaseError(err)
	}
	if counted {
		s.finishSession(ctx, session)
	}
	return nil
}

// AbortMultipartUpload is the compensating action for a chunked session. The
// remote abort is best-effort: local state is authoritative and the session
// is marked failed even when the provider call cannot be confirmed.
func (s *uploadService) AbortMultipartUpload(ctx context.Context, sessionID string) error {
	session, err := s.findSession(ctx, sessionID)
	if err != nil {
		return err
	}
	if !session.IsMultipart() {
		return appErrors.ErrNotMultipart
	}
	if session.Status.IsTerminal() {
		// Nothing left to abort; completed sessions keep their group counter.
		return nil
	}

	if err := s.gateway.AbortMultipart(ctx, s.cfg.Storage.Bucket, session.ObjectKey, session.UploadID); err != nil {
		logger.Warn("remote multipart abort failed, marking session failed anyway",
			"session_id", session.ID, "error", err)
	}

	if _, err := s.sessionRepo.MarkFailed(ctx, session.ID); err != nil {
		return appErrors.DatabaseError(err)
	}
	if err := s.partRepo.FailPending(ctx, session.ID); err != nil {
		return appErrors.DatabaseError(err)
	}

	session.Status = models.SessionStatusFailed
	s.broadcaster.SessionUpdated(session)
	return nil
}

// finishSession runs the post-transition work for a session this caller just
// moved to uploaded: group accounting, live update, downstream handoff. The
// caller must hold the winning MarkUploaded result, which makes all of this
// exactly-once per session.
func (s *uploadService) finishSession(ctx context.Context, session *models.UploadSession) {
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
		Size:        session.Size,
		ContentType: session.ContentType,
	})
	if err != nil {
		logger.Error("downstream dispatch failed", "session_id", session.ID, "error", err)
		return
	}
	logger.Info("session uploaded, downstream job enqueued",
		"session_id", session.ID, "job_id", jobID)
}

// enterGroupProgress flips the group to in_progress when its first session
// leaves pending_upload.
func (s *uploadService) enterGroupProgress(ctx context.Context, session *models.UploadSession) {
	if session.GroupID == nil {
		return
	}
	if err := s.groupRepo.MarkInProgress(ctx, *session.GroupID); err != nil {
		logger.Error("failed to mark group in progress", "group_id", *session.GroupID, "error", err)
		return
	}
	if group, err := s.groupRepo.FindByID(ctx, *session.GroupID); err == nil {
		s.broadcaster.GroupUpdated(group)
	}
}

func (s *uploadService) findSession(ctx context.Context, sessionID string) (*models.UploadSession, error) {
	session, err := s.sessionRepo.FindByID(ctx, sessionID)
	if err != nil {
		if appErrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, appErrors.ErrSessionNotFound
		}
		return nil, appErrors.DatabaseError(err)
	}
	return session, nil
}

func (s *uploadService) GroupSnapshot(ctx context.Context, groupID string) (*models.UploadGroup, []models.UploadSession, error) {
	group, err := s.groupRepo.FindByID(ctx, groupID)
	if err != nil {
		if appErrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, appErrors.ErrGroupNotFound
		}
		return nil, nil, appErrors.DatabaseError(err)
	}
	sessions, err := s.sessionRepo.FindByGroup(ctx, groupID)
	if err != nil {
		return nil, nil, appErrors.DatabaseError(err)
	}
	return group, sessions, nil
}

func (s *uploadService) SessionSnapshot(ctx context.Context, sessionID string) (*models.UploadSession, error) {
	return s.findSession(ctx, sessionID)
}

func (s *uploadService) CallerSessions(ctx context.Context, callerID string) ([]models.UploadSession, error) {
	sessions, err := s.sessionRepo.FindByCaller(ctx, callerID)
	if err != nil {
		return nil, appErrors.DatabaseError(err)
	}
	return sessions, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
