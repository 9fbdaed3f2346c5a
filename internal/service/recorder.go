package service

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"saferoute-go/internal/model"
	"saferoute-go/internal/repository"
	"saferoute-go/pkg/models"

	"github.com/sirupsen/logrus"
)

// RecorderOptions параметры очереди записи
type RecorderOptions struct {
	QueueSize    int
	Workers      int
	WriteTimeout time.Duration
}

// DefaultRecorderOptions параметры по умолчанию
func DefaultRecorderOptions() RecorderOptions {
	return RecorderOptions{QueueSize: 256, Workers: 2, WriteTimeout: 5 * time.Second}
}

// writeJob одна отложенная запись: либо оценки, либо варианты маршрута
type writeJob struct {
	scores []*model.SafetyScoreRecord
	routes []*model.Route
}

// RecorderStats статистика очереди записи
type RecorderStats struct {
	QueueSize   int   `json:"queueSize"`
	MaxCapacity int   `json:"maxCapacity"`
	Workers     int   `json:"workers"`
	IsRunning   bool  `json:"isRunning"`
	Written     int64 `json:"written"`
	Failed      int64 `json:"failed"`
	Dropped     int64 `json:"dropped"`
}

// Recorder асинхронная очередь записи результатов в хранилище.
// Запрос никогда не ждет записи: переполненная очередь отбрасывает задание,
// ошибки записи только логируются.
type Recorder struct {
	routes repository.RouteRepository
	scores repository.ScoreRepository
	jobs   chan writeJob
	opts   RecorderOptions
	logger *logrus.Logger

	wg        sync.WaitGroup
	mutex     sync.RWMutex
	isRunning bool

	written atomic.Int64
	failed  atomic.Int64
	dropped atomic.Int64
}

// NewRecorder создает очередь и запускает воркеры
func NewRecorder(routes repository.RouteRepository, scores repository.ScoreRepository, opts RecorderOptions, logger *logrus.Logger) *Recorder {
	defaults := DefaultRecorderOptions()
	if opts.QueueSize <= 0 {
		opts.QueueSize = defaults.QueueSize
	}
	if opts.Workers <= 0 {
		opts.Workers = defaults.Workers
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = defaults.WriteTimeout
	}

	r := &Recorder{
		routes:    routes,
		scores:    scores,
		jobs:      make(chan writeJob, opts.QueueSize),
		opts:      opts,
		logger:    logger,
		isRunning: true,
	}

	for i := 0; i < opts.Workers; i++ {
		r.wg.Add(1)
		go r.worker(i)
	}

	return r
}

// RecordScores ставит в очередь запись оценок. Возвращает false, если задание отброшено.
func (r *Recorder) RecordScores(results ...*models.SafetyScoreResult) bool {
	records := make([]*model.SafetyScoreRecord, 0, len(results))
	for _, result := range results {
		if result != nil {
			records = append(records, model.NewSafetyScoreRecord(result))
		}
	}
	if len(records) == 0 {
		return true
	}
	return r.enqueue(writeJob{scores: records})
}

// RecordRoutes ставит в очередь запись вариантов маршрута
func (r *Recorder) RecordRoutes(routes []*model.Route) bool {
	if len(routes) == 0 {
		return true
	}
	return r.enqueue(writeJob{routes: routes})
}

func (r *Recorder) enqueue(job writeJob) bool {
	// Отправка под RLock, закрытие канала под Lock: запись в закрытый канал невозможна
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	if !r.isRunning {
		r.dropped.Add(1)
		return false
	}

	select {
	case r.jobs <- job:
		return true
	default:
		r.dropped.Add(1)
		r.logger.Warn("Очередь записи переполнена, результат не будет сохранен")
		return false
	}
}

func (r *Recorder) worker(id int) {
	defer r.wg.Done()

	for job := range r.jobs {
		r.process(id, job)
	}
}

func (r *Recorder) process(id int, job writeJob) {
	defer func() {
		if rec := recover(); rec != nil {
			r.failed.Add(1)
			r.logger.WithField("worker", id).Errorf("Паника при записи результата: %v", rec)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), r.opts.WriteTimeout)
	defer cancel()

	if err := r.write(ctx, job); err != nil {
		r.failed.Add(1)
		r.logger.WithField("worker", id).Errorf("Ошибка записи результата: %v", err)
		return
	}
	r.written.Add(1)
}

func (r *Recorder) write(ctx context.Context, job writeJob) error {
	if len(job.routes) > 0 {
		if err := r.routes.CreatePlan(ctx, job.routes); err != nil {
			return fmt.Errorf("%w: %w", models.ErrPersistenceWriteFailed, err)
		}
	}
	for _, record := range job.scores {
		if err := r.scores.Create(ctx, record); err != nil {
			return fmt.Errorf("%w: %w", models.ErrPersistenceWriteFailed, err)
		}
	}
	return nil
}

// Shutdown прекращает прием заданий и ждет, пока воркеры допишут очередь
func (r *Recorder) Shutdown(ctx context.Context) error {
	r.mutex.Lock()
	if !r.isRunning {
		r.mutex.Unlock()
		return nil
	}
	r.isRunning = false
	close(r.jobs)
	r.mutex.Unlock()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("recorder shutdown: %w", ctx.Err())
	}
}

// Stats возвращает статистику очереди
func (r *Recorder) Stats() RecorderStats {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	return RecorderStats{
		QueueSize:   len(r.jobs),
		MaxCapacity: cap(r.jobs),
		Workers:     r.opts.Workers,
		IsRunning:   r.isRunning,
		Written:     r.written.Load(),
		Failed:      r.failed.Load(),
		Dropped:     r.dropped.Load(),
	}
}
