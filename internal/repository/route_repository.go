package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"saferoute-go/internal/model"
	"saferoute-go/pkg/models"

	"gorm.io/gorm"
)

// RouteRepository интерфейс для работы с сохраненными вариантами маршрутов
type RouteRepository interface {
	CreatePlan(ctx context.Context, routes []*model.Route) error
	GetByID(ctx context.Context, id string) (*model.Route, error)
	ListByUser(ctx context.Context, userID string, page, pageSize int) ([]*model.Route, int64, error)
	ListByPlan(ctx context.Context, planID string) ([]*model.Route, error)
	Delete(ctx context.Context, id string) error
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// routeRepository реализация RouteRepository
type routeRepository struct {
	db *gorm.DB
}

// NewRouteRepository создает новый instance RouteRepository
func NewRouteRepository(db *gorm.DB) RouteRepository {
	return &routeRepository{
		db: db,
	}
}

// CreatePlan сохраняет все варианты одного запроса в одной транзакции
func (r *routeRepository) CreatePlan(ctx context.Context, routes []*model.Route) error {
	if len(routes) == 0 {
		return nil
	}

	tx := r.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return fmt.Errorf("failed to begin transaction: %w", tx.Error)
	}

	for i, route := range routes {
		if err := tx.Create(route).Error; err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to create route %d: %w", i, err)
		}
	}

	if err := tx.Commit().Error; err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// GetByID получает вариант маршрута по ID
func (r *routeRepository) GetByID(ctx context.Context, id string) (*model.Route, error) {
	var route model.Route
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&route).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("route with id %s: %w", id, models.ErrRouteNotFound)
		}
		return nil, fmt.Errorf("failed to get route: %w", err)
	}
	return &route, nil
}

// ListByUser получает маршруты пользователя с пагинацией, новые первыми
func (r *routeRepository) ListByUser(ctx context.Context, userID string, page, pageSize int) ([]*model.Route, int64, error) {
	var routes []*model.Route
	var total int64

	byUser := func() *gorm.DB {
		return r.db.WithContext(ctx).Model(&model.Route{}).Where("user_id = ?", userID)
	}

	// Подсчитываем общее количество
	if err := byUser().Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count routes: %w", err)
	}

	// Получаем маршруты с пагинацией
	offset := (page - 1) * pageSize
	err := byUser().
		Offset(offset).
		Limit(pageSize).
		Order("created_at DESC").
		Order("id").
		Find(&routes).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list routes: %w", err)
	}

	return routes, total, nil
}

// ListByPlan получает все варианты одного запроса
func (r *routeRepository) ListByPlan(ctx context.Context, planID string) ([]*model.Route, error) {
	var routes []*model.Route
	if err := r.db.WithContext(ctx).Where("plan_id = ?", planID).Order("variant").Find(&routes).Error; err != nil {
		return nil, fmt.Errorf("failed to list plan routes: %w", err)
	}
	return routes, nil
}

// Delete удаляет маршрут по ID
func (r *routeRepository) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Route{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete route: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("route with id %s: %w", id, models.ErrRouteNotFound)
	}
	return nil
}

// DeleteOlderThan окончательно удаляет маршруты, созданные раньше cutoff
func (r *routeRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Unscoped().Where("created_at < ?", cutoff).Delete(&model.Route{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to delete old routes: %w", result.Error)
	}
	return result.RowsAffected, nil
}
