package repositories

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"uploadgate/internal/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:" + t.Name() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&models.UploadGroup{},
		&models.UploadSession{},
		&models.UploadPart{},
	))

	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		_ = sqlDB.Close()
	})
	return db
}

func createSession(t *testing.T, db *gorm.DB, session *models.UploadSession) *models.UploadSession {
	t.Helper()
	require.NoError(t, NewSessionRepository(db).Create(context.Background(), session))
	return session
}

func TestSessionMarkUploaded_SingleWinner(t *testing.T) {
	db := newTestDB(t)
	repo := NewSessionRepository(db)
	ctx := context.Background()

	session := createSession(t, db, &models.UploadSession{
		FileName:  "a.txt",
		ObjectKey: "uploads/a",
		Strategy:  models.StrategyDirect,
		Status:    models.SessionStatusPendingUpload,
	})

	counted, err := repo.MarkUploaded(ctx, session.ID)
	require.NoError(t, err)
	require.True(t, counted, "first transition wins")

	counted, err = repo.MarkUploaded(ctx, session.ID)
	require.NoError(t, err)
	require.False(t, counted, "second transition is a no-op")

	got, err := repo.FindByID(ctx, session.ID)
	require.NoError(t, err)
	require.Equal(t, models.SessionStatusUploaded, got.Status)
	require.NotNil(t, got.UploadedAt)
}

func TestSessionMarkUploaded_NeverMovesBackward(t *testing.T) {
	db := newTestDB(t)
	repo := NewSessionRepository(db)
	ctx := context.Background()

	session := createSession(t, db, &models.UploadSession{
		FileName:  "b.txt",
		ObjectKey: "uploads/b",
		Strategy:  models.StrategyDirect,
		Status:    models.SessionStatusFailed,
	})

	counted, err := repo.MarkUploaded(ctx, session.ID)
	require.NoError(t, err)
	require.False(t, counted)

	got, err := repo.FindByID(ctx, session.ID)
	require.NoError(t, err)
	require.Equal(t, models.SessionStatusFailed, got.Status)
}

func TestGroupIncrementCompleted_CapsAtTotal(t *testing.T) {
	db := newTestDB(t)
	repo := NewGroupRepository(db)
	ctx := context.Background()

	group := &models.UploadGroup{Name: "batch", TotalFiles: 2, Status: models.GroupStatusInProgress}
	require.NoError(t, repo.Create(ctx, group))

	changed, err := repo.IncrementCompleted(ctx, group.ID)
	require.NoError(t, err)
	require.True(t, changed)

	got, err := repo.FindByID(ctx, group.ID)
	require.NoError(t, err)
	require.Equal(t, 1, got.CompletedFiles)
	require.Equal(t, models.GroupStatusInProgress, got.Status)

	changed, err = repo.IncrementCompleted(ctx, group.ID)
	require.NoError(t, err)
	require.True(t, changed)

	got, err = repo.FindByID(ctx, group.ID)
	require.NoError(t, err)
	require.Equal(t, 2, got.CompletedFiles)
	require.Equal(t, models.GroupStatusCompleted, got.Status)

	// Counter is saturated, further increments do nothing
	changed, err = repo.IncrementCompleted(ctx, group.ID)
	require.NoError(t, err)
	require.False(t, changed)

	got, err = repo.FindByID(ctx, group.ID)
	require.NoError(t, err)
	require.Equal(t, 2, got.CompletedFiles)
	require.LessOrEqual(t, got.CompletedFiles, got.TotalFiles)
}

func TestGroupIncrementCompleted_TerminalGroupStaysPut(t *testing.T) {
	db := newTestDB(t)
	repo := NewGroupRepository(db)
	ctx := context.Background()

	for _, status := range []models.GroupStatus{
		models.GroupStatusCancelled, models.GroupStatusFailed,
	} {
		group := &models.UploadGroup{Name: "batch", TotalFiles: 3, CompletedFiles: 1, Status: status}
		require.NoError(t, repo.Create(ctx, group))

		// A session finishing after the group went terminal must not revive it
		changed, err := repo.IncrementCompleted(ctx, group.ID)
		require.NoError(t, err)
		require.False(t, changed)

		got, err := repo.FindByID(ctx, group.ID)
		require.NoError(t, err)
		require.Equal(t, status, got.Status)
		require.Equal(t, 1, got.CompletedFiles)
	}
}

func TestGroupMarkInProgress_OnlyFromPending(t *testing.T) {
	db := newTestDB(t)
	repo := NewGroupRepository(db)
	ctx := context.Background()

	group := &models.UploadGroup{Name: "batch", TotalFiles: 1, Status: models.GroupStatusPending}
	require.NoError(t, repo.Create(ctx, group))

	require.NoError(t, repo.MarkInProgress(ctx, group.ID))
	got, err := repo.FindByID(ctx, group.ID)
	require.NoError(t, err)
	require.Equal(t, models.GroupStatusInProgress, got.Status)
}

func TestPartLifecycle(t *testing.T) {
	db := newTestDB(t)
	partRepo := NewPartRepository(db)
	ctx := context.Background()

	session := createSession(t, db, &models.UploadSession{
		FileName:   "v.mp4",
		ObjectKey:  "uploads/v",
		Strategy:   models.StrategyChunked,
		UploadID:   "mp-1",
		TotalParts: 3,
		Status:     models.SessionStatusPendingUpload,
	})

	parts := []models.UploadPart{
		{SessionID: session.ID, PartNumber: 1, Size: 100, Status: models.PartStatusPending},
		{SessionID: session.ID, PartNumber: 2, Size: 100, Status: models.PartStatusPending},
		{SessionID: session.ID, PartNumber: 3, Size: 50, Status: models.PartStatusPending},
	}
	require.NoError(t, partRepo.CreateBatch(ctx, parts))

	// Reissuing a part URL touches the same row, no duplicates
	require.NoError(t, partRepo.MarkUploading(ctx, session.ID, 2))
	require.NoError(t, partRepo.MarkUploading(ctx, session.ID, 2))

	stored, err := partRepo.FindBySession(ctx, session.ID)
	require.NoError(t, err)
	require.Len(t, stored, 3)
	require.Equal(t, models.PartStatusUploading, stored[1].Status)

	require.NoError(t, partRepo.SetUploaded(ctx, session.ID, 2, "etag-2"))

	// Abort path: everything not uploaded goes failed, uploaded stays
	require.NoError(t, partRepo.FailPending(ctx, session.ID))

	stored, err = partRepo.FindBySession(ctx, session.ID)
	require.NoError(t, err)
	require.Equal(t, models.PartStatusFailed, stored[0].Status)
	require.Equal(t, models.PartStatusUploaded, stored[1].Status)
	require.Equal(t, "etag-2", stored[1].ETag)
	require.Equal(t, models.PartStatusFailed, stored[2].Status)
}

func TestFindByObjectKey(t *testing.T) {
	db := newTestDB(t)
	repo := NewSessionRepository(db)
	ctx := context.Background()

	createSession(t, db, &models.UploadSession{
		FileName:  "a.txt",
		ObjectKey: "uploads/known",
		Strategy:  models.StrategyDirect,
		Status:    models.SessionStatusPendingUpload,
	})

	got, err := repo.FindByObjectKey(ctx, "uploads/known")
	require.NoError(t, err)
	require.Equal(t, "a.txt", got.FileName)

	_, err = repo.FindByObjectKey(ctx, "uploads/unknown")
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
