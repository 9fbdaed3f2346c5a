package safety

import (
	"context"
	"fmt"

	"saferoute-go/pkg/models"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// DefaultMaxBatchSize предельный размер пакетного запроса
const DefaultMaxBatchSize = 50

// Scorer считает оценку одной точки
type Scorer interface {
	ComputeScore(ctx context.Context, coord models.Coordinate, sctx models.SafetyContext) (*models.SafetyScoreResult, error)
}

// BatchItem результат для одной точки пакета. Заполнено либо Result, либо Err.
type BatchItem struct {
	Index    int
	Location models.Coordinate
	Result   *models.SafetyScoreResult
	Err      error
}

// BatchScorer параллельно считает оценки для набора точек
type BatchScorer struct {
	scorer       Scorer
	maxBatchSize int
	logger       *logrus.Logger
}

// NewBatchScorer создает оркестратор пакетного расчета
func NewBatchScorer(scorer Scorer, maxBatchSize int, logger *logrus.Logger) *BatchScorer {
	if maxBatchSize <= 0 {
		maxBatchSize = DefaultMaxBatchSize
	}
	return &BatchScorer{
		scorer:       scorer,
		maxBatchSize: maxBatchSize,
		logger:       logger,
	}
}

// MaxBatchSize возвращает предельный размер пакета
func (b *BatchScorer) MaxBatchSize() int {
	return b.maxBatchSize
}

// ScoreMany считает оценки для всех точек. Ошибка одной точки не прерывает остальные;
// порядок результатов совпадает с порядком входных точек.
func (b *BatchScorer) ScoreMany(ctx context.Context, locations []models.Coordinate, sctx models.SafetyContext) ([]BatchItem, error) {
	if len(locations) == 0 {
		return nil, models.NewValidationError(models.ErrEmptyBatch, "locations", "список точек пуст")
	}
	if len(locations) > b.maxBatchSize {
		return nil, models.NewValidationError(models.ErrBatchSizeExceeded, "locations",
			fmt.Sprintf("максимум %d точек, получено %d", b.maxBatchSize, len(locations)))
	}
	if err := sctx.Validate(); err != nil {
		return nil, err
	}

	items := make([]BatchItem, len(locations))
	var g errgroup.Group
	g.SetLimit(b.maxBatchSize)

	for i, loc := range locations {
		i, loc := i, loc
		g.Go(func() error {
			item := BatchItem{Index: i, Location: loc}
			result, err := b.scorer.ComputeScore(ctx, loc, sctx)
			if err != nil {
				item.Err = err
			} else {
				item.Result = result
			}
			// Каждая горутина пишет только в свою ячейку
			items[i] = item
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	failed := 0
	for _, item := range items {
		if item.Err != nil {
			failed++
		}
	}
	if failed > 0 {
		b.logger.Warnf("Пакетный расчет: %d из %d точек завершились с ошибкой", failed, len(items))
	}

	return items, nil
}
