package service

import (
	"context"
	"fmt"

	"saferoute-go/internal/repository"
	"saferoute-go/internal/safety"
	"saferoute-go/pkg/models"

	"github.com/sirupsen/logrus"
)

// historyRadiusDeg радиус поиска истории вокруг точки, около 110 метров
const historyRadiusDeg = 0.001

// SafetyService оценка безопасности точек и журнал оценок
type SafetyService struct {
	calculator *safety.Calculator
	batch      *safety.BatchScorer
	zones      *safety.ZoneTable
	resolver   *ContextResolver
	recorder   *Recorder
	scoreRepo  repository.ScoreRepository
	logger     *logrus.Logger
}

// NewSafetyService создает сервис оценки безопасности
func NewSafetyService(calculator *safety.Calculator, batch *safety.BatchScorer, zones *safety.ZoneTable,
	resolver *ContextResolver, recorder *Recorder, scoreRepo repository.ScoreRepository, logger *logrus.Logger) *SafetyService {
	return &SafetyService{
		calculator: calculator,
		batch:      batch,
		zones:      zones,
		resolver:   resolver,
		recorder:   recorder,
		scoreRepo:  scoreRepo,
		logger:     logger,
	}
}

// Score считает оценку одной точки и ставит результат в очередь записи
func (s *SafetyService) Score(ctx context.Context, coord models.Coordinate, sctx models.SafetyContext) (*models.SafetyScoreResult, error) {
	if err := coord.Validate(""); err != nil {
		return nil, err
	}
	resolved, err := s.resolver.Resolve(ctx, coord, sctx)
	if err != nil {
		return nil, err
	}

	result, err := s.calculator.ComputeScore(ctx, coord, resolved)
	if err != nil {
		return nil, err
	}

	// Отмененный запрос ничего не сохраняет
	if ctx.Err() == nil {
		s.recorder.RecordScores(result)
	}

	s.logger.WithFields(logrus.Fields{
		"lat":     coord.Lat,
		"lng":     coord.Lng,
		"overall": result.Overall,
		"source":  result.Source,
	}).Debug("Оценка безопасности рассчитана")

	return result, nil
}

// ScoreBatch считает оценки для набора точек с общим контекстом
func (s *SafetyService) ScoreBatch(ctx context.Context, locations []models.Coordinate, sctx models.SafetyContext) ([]safety.BatchItem, error) {
	if len(locations) == 0 || len(locations) > s.batch.MaxBatchSize() {
		// Размер пакета проверяет BatchScorer
		return s.batch.ScoreMany(ctx, locations, sctx)
	}

	// Погода определяется по первой корректной точке пакета
	anchor := locations[0]
	for _, loc := range locations {
		if loc.Validate("") == nil {
			anchor = loc
			break
		}
	}
	resolved, err := s.resolver.Resolve(ctx, anchor, sctx)
	if err != nil {
		return nil, err
	}

	items, err := s.batch.ScoreMany(ctx, locations, resolved)
	if err != nil {
		return nil, err
	}

	if ctx.Err() == nil {
		results := make([]*models.SafetyScoreResult, 0, len(items))
		for _, item := range items {
			if item.Result != nil {
				results = append(results, item.Result)
			}
		}
		s.recorder.RecordScores(results...)
	}

	return items, nil
}

// History последние сохраненные оценки рядом с точкой
func (s *SafetyService) History(ctx context.Context, coord models.Coordinate, limit int) ([]models.SafetyScoreResult, error) {
	if err := coord.Validate(""); err != nil {
		return nil, err
	}

	records, err := s.scoreRepo.NearLocation(ctx, coord, historyRadiusDeg, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load score history: %w", err)
	}

	results := make([]models.SafetyScoreResult, 0, len(records))
	for _, record := range records {
		results = append(results, record.ToResult())
	}
	return results, nil
}

// Zones загруженные профили районов
func (s *SafetyService) Zones() []models.ZoneProfile {
	return s.zones.Zones()
}

// MaxBatchSize предельный размер пакета
func (s *SafetyService) MaxBatchSize() int {
	return s.batch.MaxBatchSize()
}
