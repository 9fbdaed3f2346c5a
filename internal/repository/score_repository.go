package repository

import (
	"context"
	"fmt"
	"time"

	"saferoute-go/internal/model"
	"saferoute-go/pkg/models"

	"gorm.io/gorm"
)

// ScoreRepository журнал рассчитанных оценок. Записи не изменяются;
// удаление возможно только по сроку хранения, если он включен.
type ScoreRepository interface {
	Create(ctx context.Context, record *model.SafetyScoreRecord) error
	NearLocation(ctx context.Context, coord models.Coordinate, radiusDeg float64, limit int) ([]*model.SafetyScoreRecord, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

type scoreRepository struct {
	db *gorm.DB
}

// NewScoreRepository создает новый instance ScoreRepository
func NewScoreRepository(db *gorm.DB) ScoreRepository {
	return &scoreRepository{db: db}
}

// Create сохраняет запись об оценке
func (r *scoreRepository) Create(ctx context.Context, record *model.SafetyScoreRecord) error {
	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		return fmt.Errorf("failed to create score record: %w", err)
	}
	return nil
}

// NearLocation последние записи в квадрате ±radiusDeg вокруг точки, новые первыми
func (r *scoreRepository) NearLocation(ctx context.Context, coord models.Coordinate, radiusDeg float64, limit int) ([]*model.SafetyScoreRecord, error) {
	var records []*model.SafetyScoreRecord

	err := r.db.WithContext(ctx).
		Where("lat BETWEEN ? AND ? AND lng BETWEEN ? AND ?",
			coord.Lat-radiusDeg, coord.Lat+radiusDeg,
			coord.Lng-radiusDeg, coord.Lng+radiusDeg).
		Order("calculated_at DESC").
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get score records by location: %w", err)
	}

	return records, nil
}

// DeleteOlderThan удаляет записи, рассчитанные раньше cutoff. Вызывается только задачей хранения.
func (r *scoreRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Where("calculated_at < ?", cutoff).Delete(&model.SafetyScoreRecord{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to delete old score records: %w", result.Error)
	}
	return result.RowsAffected, nil
}
