package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"saferoute-go/internal/repository"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// DefaultRetentionSchedule каждый день в 03:00:00
const DefaultRetentionSchedule = "0 0 3 * * *"

// Purger кэш, из которого можно удалить устаревшие записи
type Purger interface {
	Purge() int
}

// RetentionPolicy сроки хранения данных
type RetentionPolicy struct {
	Schedule    string        // cron с секундами, пусто = DefaultRetentionSchedule
	RouteMaxAge time.Duration // срок хранения маршрутов
	ScoreMaxAge time.Duration // срок хранения журнала оценок, 0 = журнал не очищается
}

// RetentionResult итог одного прогона очистки
type RetentionResult struct {
	RoutesDeleted int64
	ScoresDeleted int64
	CachePurged   int
	Duration      time.Duration
}

// RetentionJob периодически удаляет старые маршруты и чистит кэши.
// Журнал оценок очищается, только если для него задан свой срок хранения.
type RetentionJob struct {
	cronScheduler *cron.Cron
	policy        RetentionPolicy
	timeout       time.Duration
	routes        repository.RouteRepository
	scores        repository.ScoreRepository
	caches        []Purger
	logger        *logrus.Logger
	now           func() time.Time

	mutex   sync.Mutex
	jobID   cron.EntryID
	running bool
}

// NewRetentionJob создает задачу очистки
func NewRetentionJob(policy RetentionPolicy, routes repository.RouteRepository, scores repository.ScoreRepository,
	logger *logrus.Logger, caches ...Purger) (*RetentionJob, error) {
	if policy.Schedule == "" {
		policy.Schedule = DefaultRetentionSchedule
	}
	if policy.RouteMaxAge <= 0 {
		return nil, fmt.Errorf("route retention must be positive, got %s", policy.RouteMaxAge)
	}
	if policy.ScoreMaxAge < 0 {
		return nil, fmt.Errorf("score retention must not be negative, got %s", policy.ScoreMaxAge)
	}
	if _, err := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor).Parse(policy.Schedule); err != nil {
		return nil, fmt.Errorf("invalid retention schedule %q: %w", policy.Schedule, err)
	}

	return &RetentionJob{
		cronScheduler: cron.New(cron.WithSeconds()),
		policy:        policy,
		timeout:       time.Minute,
		routes:        routes,
		scores:        scores,
		caches:        caches,
		logger:        logger,
		now:           time.Now,
	}, nil
}

// Start регистрирует задачу и запускает планировщик
func (j *RetentionJob) Start() error {
	j.mutex.Lock()
	defer j.mutex.Unlock()

	if j.running {
		return nil
	}

	id, err := j.cronScheduler.AddFunc(j.policy.Schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
		defer cancel()
		if _, err := j.RunOnce(ctx); err != nil {
			j.logger.Errorf("Ошибка очистки устаревших данных: %v", err)
		}
	})
	if err != nil {
		return fmt.Errorf("error scheduling retention job: %w", err)
	}

	j.jobID = id
	j.cronScheduler.Start()
	j.running = true
	j.logger.WithFields(logrus.Fields{
		"schedule":      j.policy.Schedule,
		"route_max_age": j.policy.RouteMaxAge.String(),
		"score_max_age": j.policy.ScoreMaxAge.String(),
	}).Info("Очистка данных запланирована")
	return nil
}

// Stop останавливает планировщик и ждет завершения текущего прогона
func (j *RetentionJob) Stop(ctx context.Context) {
	j.mutex.Lock()
	defer j.mutex.Unlock()

	if !j.running {
		return
	}
	j.running = false

	select {
	case <-j.cronScheduler.Stop().Done():
	case <-ctx.Done():
		j.logger.Warn("Очистка данных не завершилась до остановки сервиса")
	}
}

// NextRun время следующего запуска, нулевое если задача не запущена
func (j *RetentionJob) NextRun() time.Time {
	j.mutex.Lock()
	defer j.mutex.Unlock()

	if !j.running {
		return time.Time{}
	}
	return j.cronScheduler.Entry(j.jobID).Next
}

// RunOnce выполняет очистку немедленно
func (j *RetentionJob) RunOnce(ctx context.Context) (RetentionResult, error) {
	started := j.now()
	cutoff := started.Add(-j.policy.RouteMaxAge)
	var result RetentionResult

	routes, err := j.routes.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return result, fmt.Errorf("delete old routes: %w", err)
	}
	result.RoutesDeleted = routes

	if j.policy.ScoreMaxAge > 0 {
		scores, err := j.scores.DeleteOlderThan(ctx, started.Add(-j.policy.ScoreMaxAge))
		if err != nil {
			return result, fmt.Errorf("delete old scores: %w", err)
		}
		result.ScoresDeleted = scores
	}

	for _, c := range j.caches {
		result.CachePurged += c.Purge()
	}
	result.Duration = j.now().Sub(started)

	j.logger.WithFields(logrus.Fields{
		"routes_deleted": result.RoutesDeleted,
		"scores_deleted": result.ScoresDeleted,
		"cache_purged":   result.CachePurged,
		"cutoff":         cutoff.Format(time.RFC3339),
	}).Info("Очистка устаревших данных завершена")

	return result, nil
}
