package service

import (
	"context"
	"time"

	"saferoute-go/internal/cache"
	"saferoute-go/internal/client"
	"saferoute-go/internal/database"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Version версия сервиса, отдается в /health
const Version = "1.0.0"

const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

// SignalsHealthChecker проверка доступности сервиса сигналов
type SignalsHealthChecker interface {
	CheckHealth(ctx context.Context) (*client.HealthResponse, error)
}

// ComponentStatus состояние одной зависимости
type ComponentStatus struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// HealthReport ответ проверки состояния сервиса
type HealthReport struct {
	Status      string          `json:"status"`
	Version     string          `json:"version"`
	Database    ComponentStatus `json:"database"`
	Signals     ComponentStatus `json:"signals"`
	Recorder    RecorderStats   `json:"recorder"`
	FactorCache *cache.Stats    `json:"factorCache,omitempty"`
	Zones       int             `json:"zones"`
	CheckedAt   time.Time       `json:"checkedAt"`
}

// StatusService проверяет состояние сервиса и его зависимостей
type StatusService struct {
	db          *gorm.DB
	signals     SignalsHealthChecker // может быть nil, если сигналы не настроены
	recorder    *Recorder
	factorCache *cache.FactorCache // может быть nil
	safety      *SafetyService
	timeout     time.Duration
	logger      *logrus.Logger
}

// NewStatusService создает сервис проверки состояния
func NewStatusService(db *gorm.DB, signals SignalsHealthChecker, recorder *Recorder, factorCache *cache.FactorCache,
	safety *SafetyService, timeout time.Duration, logger *logrus.Logger) *StatusService {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &StatusService{
		db:          db,
		signals:     signals,
		recorder:    recorder,
		factorCache: factorCache,
		safety:      safety,
		timeout:     timeout,
		logger:      logger,
	}
}

// CheckHealth проверяет базу данных и сервис сигналов.
// Недоступная база делает сервис unhealthy; недоступные сигналы только degraded,
// так как оценка продолжает работать по зонам.
func (s *StatusService) CheckHealth(ctx context.Context) *HealthReport {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	report := &HealthReport{
		Status:    StatusHealthy,
		Version:   Version,
		Database:  ComponentStatus{Status: StatusHealthy},
		Signals:   ComponentStatus{Status: "disabled"},
		Recorder:  s.recorder.Stats(),
		Zones:     len(s.safety.Zones()),
		CheckedAt: time.Now().UTC(),
	}

	if err := database.HealthCheck(ctx, s.db); err != nil {
		s.logger.Errorf("База данных недоступна: %v", err)
		report.Database = ComponentStatus{Status: StatusUnhealthy, Error: err.Error()}
		report.Status = StatusUnhealthy
	}

	if s.signals != nil {
		health, err := s.signals.CheckHealth(ctx)
		switch {
		case err != nil:
			s.logger.Warnf("Сервис сигналов недоступен: %v", err)
			report.Signals = ComponentStatus{Status: StatusUnhealthy, Error: err.Error()}
		case health.Status != "ok" && health.Status != StatusHealthy:
			report.Signals = ComponentStatus{Status: StatusDegraded, Error: "status " + health.Status}
		default:
			report.Signals = ComponentStatus{Status: StatusHealthy}
		}
		if report.Signals.Status != StatusHealthy && report.Status == StatusHealthy {
			report.Status = StatusDegraded
		}
	}

	if s.factorCache != nil {
		stats := s.factorCache.Stats()
		report.FactorCache = &stats
	}

	return report
}

// Ready true, если сервис может обслуживать запросы
func (s *StatusService) Ready(ctx context.Context) bool {
	return s.CheckHealth(ctx).Status != StatusUnhealthy
}
