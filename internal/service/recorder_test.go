package service

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"testing"
	"time"

	"saferoute-go/internal/database"
	"saferoute-go/internal/model"
	"saferoute-go/internal/repository"
	"saferoute-go/pkg/models"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Connect(database.Config{
		Driver:     "sqlite",
		SQLitePath: filepath.Join(t.TempDir(), "service.db"),
	}, newTestLogger())
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() { _ = database.Close(db) })
	return db
}

// fakeScoreRepo подменяет только Create; остальные методы не вызываются
type fakeScoreRepo struct {
	repository.ScoreRepository
	create func(ctx context.Context, record *model.SafetyScoreRecord) error
}

func (f *fakeScoreRepo) Create(ctx context.Context, record *model.SafetyScoreRecord) error {
	return f.create(ctx, record)
}

func sampleResult(overall int) *models.SafetyScoreResult {
	return &models.SafetyScoreResult{
		Overall:      overall,
		Factors:      models.SafetyFactors{Lighting: 60, Footfall: 60, Hazards: 40, ProximityToHelp: 60},
		Confidence:   0.7,
		Source:       models.SourceDefault,
		Location:     models.Coordinate{Lat: 13.0827, Lng: 80.2707},
		Context:      models.SafetyContext{}.WithDefaults(),
		CalculatedAt: time.Now().UTC(),
	}
}

func shutdown(t *testing.T, r *Recorder) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, r.Shutdown(ctx))
}

func TestRecorder_WritesScoresAndRoutes(t *testing.T) {
	db := newTestDB(t)
	routeRepo := repository.NewRouteRepository(db)
	scoreRepo := repository.NewScoreRepository(db)
	recorder := NewRecorder(routeRepo, scoreRepo, DefaultRecorderOptions(), newTestLogger())

	assert.True(t, recorder.RecordScores(sampleResult(60), nil, sampleResult(65)))

	planID := uuid.New().String()
	routes := []*model.Route{
		{ID: uuid.New().String(), PlanID: planID, UserID: "user-1", Variant: "safest", TransportMode: "walking"},
		{ID: uuid.New().String(), PlanID: planID, UserID: "user-1", Variant: "fastest", TransportMode: "walking"},
	}
	assert.True(t, recorder.RecordRoutes(routes))

	shutdown(t, recorder)

	stats := recorder.Stats()
	assert.Equal(t, int64(2), stats.Written)
	assert.Zero(t, stats.Failed)
	assert.False(t, stats.IsRunning)

	stored, err := routeRepo.ListByPlan(context.Background(), planID)
	require.NoError(t, err)
	assert.Len(t, stored, 2)

	history, err := scoreRepo.NearLocation(context.Background(), models.Coordinate{Lat: 13.0827, Lng: 80.2707}, 0.001, 10)
	require.NoError(t, err)
	assert.Len(t, history, 2)
}

func TestRecorder_EmptyInputIsNoop(t *testing.T) {
	recorder := NewRecorder(nil, nil, DefaultRecorderOptions(), newTestLogger())
	defer shutdown(t, recorder)

	assert.True(t, recorder.RecordScores())
	assert.True(t, recorder.RecordScores(nil))
	assert.True(t, recorder.RecordRoutes(nil))
	assert.Zero(t, recorder.Stats().Dropped)
}

func TestRecorder_DropsWhenQueueFull(t *testing.T) {
	started := make(chan struct{}, 1)
	release := make(chan struct{})
	repo := &fakeScoreRepo{create: func(ctx context.Context, record *model.SafetyScoreRecord) error {
		select {
		case started <- struct{}{}:
		default:
		}
		<-release
		return nil
	}}
	recorder := NewRecorder(nil, repo, RecorderOptions{QueueSize: 1, Workers: 1, WriteTimeout: time.Second}, newTestLogger())

	require.True(t, recorder.RecordScores(sampleResult(50)))
	<-started // воркер занят первой записью

	assert.True(t, recorder.RecordScores(sampleResult(51)), "fits into the queue")
	assert.False(t, recorder.RecordScores(sampleResult(52)), "queue is full")
	assert.Equal(t, int64(1), recorder.Stats().Dropped)

	close(release)
	shutdown(t, recorder)
	assert.Equal(t, int64(2), recorder.Stats().Written)
}

func TestRecorder_RejectsAfterShutdown(t *testing.T) {
	recorder := NewRecorder(nil, nil, DefaultRecorderOptions(), newTestLogger())
	shutdown(t, recorder)

	assert.False(t, recorder.RecordScores(sampleResult(60)))
	assert.Equal(t, int64(1), recorder.Stats().Dropped)
	// Повторная остановка безопасна
	assert.NoError(t, recorder.Shutdown(context.Background()))
}

func TestRecorder_FailuresAreCounted(t *testing.T) {
	repo := &fakeScoreRepo{create: func(ctx context.Context, record *model.SafetyScoreRecord) error {
		if record.Overall == 99 {
			panic("boom")
		}
		return errors.New("disk full")
	}}
	recorder := NewRecorder(nil, repo, RecorderOptions{Workers: 1}, newTestLogger())

	assert.True(t, recorder.RecordScores(sampleResult(10)))
	assert.True(t, recorder.RecordScores(sampleResult(99)))
	shutdown(t, recorder)

	stats := recorder.Stats()
	assert.Equal(t, int64(2), stats.Failed)
	assert.Zero(t, stats.Written)
}

func TestRecorder_WriteWrapsPersistenceError(t *testing.T) {
	repo := &fakeScoreRepo{create: func(ctx context.Context, record *model.SafetyScoreRecord) error {
		return errors.New("disk full")
	}}
	recorder := NewRecorder(nil, repo, RecorderOptions{Workers: 1}, newTestLogger())
	defer shutdown(t, recorder)

	err := recorder.write(context.Background(), writeJob{scores: []*model.SafetyScoreRecord{model.NewSafetyScoreRecord(sampleResult(1))}})
	assert.ErrorIs(t, err, models.ErrPersistenceWriteFailed)
	assert.ErrorContains(t, err, "disk full")
}

func TestRecorder_ShutdownHonoursContext(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	repo := &fakeScoreRepo{create: func(ctx context.Context, record *model.SafetyScoreRecord) error {
		close(started)
		<-release
		return nil
	}}
	recorder := NewRecorder(nil, repo, RecorderOptions{Workers: 1}, newTestLogger())
	require.True(t, recorder.RecordScores(sampleResult(50)))
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := recorder.Shutdown(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	close(release)
}
