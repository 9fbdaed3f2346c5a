package service

import (
	"context"
	"fmt"
	"io"

	"saferoute-go/internal/geo"
	"saferoute-go/internal/model"
	"saferoute-go/internal/repository"
	"saferoute-go/internal/routing"
	"saferoute-go/pkg/models"

	"github.com/sirupsen/logrus"
)

// RouteService сервис для работы с маршрутами
type RouteService struct {
	planner   *routing.Planner
	resolver  *ContextResolver
	recorder  *Recorder
	routeRepo repository.RouteRepository
	logger    *logrus.Logger
}

// NewRouteService создает новый сервис для работы с маршрутами
func NewRouteService(planner *routing.Planner, resolver *ContextResolver, recorder *Recorder,
	routeRepo repository.RouteRepository, logger *logrus.Logger) *RouteService {
	return &RouteService{
		planner:   planner,
		resolver:  resolver,
		recorder:  recorder,
		routeRepo: routeRepo,
		logger:    logger,
	}
}

// PlanRoutes строит три варианта маршрута и ставит их в очередь на сохранение
func (s *RouteService) PlanRoutes(ctx context.Context, req PlanRoutesRequest) (*models.RoutePlan, error) {
	if err := req.Start.Validate("start"); err != nil {
		return nil, err
	}
	if err := req.End.Validate("end"); err != nil {
		return nil, err
	}
	if req.TransportMode == "" {
		req.TransportMode = models.Walking
	}

	sctx, err := s.resolver.Resolve(ctx, req.Start, req.Context)
	if err != nil {
		return nil, err
	}

	plan, err := s.planner.Plan(ctx, routing.PlanRequest{
		Start:            req.Start,
		End:              req.End,
		TransportMode:    req.TransportMode,
		SafetyPreference: req.SafetyPreference,
		Context:          sctx,
	})
	if err != nil {
		return nil, err
	}

	// Отмененный запрос ничего не сохраняет
	if ctx.Err() == nil {
		routes := model.NewRoutesFromPlan(plan, req.Start, req.End, req.TransportMode, req.UserID)
		if !s.recorder.RecordRoutes(routes) {
			s.logger.WithField("plan_id", plan.ID).Warn("Варианты маршрута не поставлены в очередь записи")
		}
	}

	return plan, nil
}

// GetRoute получает маршрут по ID
func (s *RouteService) GetRoute(ctx context.Context, routeID string) (*RouteResponse, error) {
	route, err := s.routeRepo.GetByID(ctx, routeID)
	if err != nil {
		return nil, fmt.Errorf("failed to get route: %w", err)
	}

	response := modelToResponse(route)
	return &response, nil
}

// ListUserRoutes получает маршруты пользователя с пагинацией
func (s *RouteService) ListUserRoutes(ctx context.Context, userID string, page, pageSize int) (*ListRoutesResponse, error) {
	routes, total, err := s.routeRepo.ListByUser(ctx, userID, page, pageSize)
	if err != nil {
		s.logger.Errorf("Ошибка получения списка маршрутов: %v", err)
		return nil, fmt.Errorf("failed to list routes: %w", err)
	}

	responses := make([]RouteResponse, len(routes))
	for i, route := range routes {
		responses[i] = modelToResponse(route)
	}

	s.logger.WithField("user_id", userID).Debugf("Получено %d маршрутов из %d общих", len(responses), total)
	return &ListRoutesResponse{
		Routes: responses,
		Total:  total,
		Page:   page,
		Size:   pageSize,
	}, nil
}

// ListPlanRoutes получает все варианты одного расчета. Пустой план означает ErrRouteNotFound.
func (s *RouteService) ListPlanRoutes(ctx context.Context, planID string) (*ListRoutesResponse, error) {
	routes, err := s.routeRepo.ListByPlan(ctx, planID)
	if err != nil {
		return nil, fmt.Errorf("failed to list plan routes: %w", err)
	}
	if len(routes) == 0 {
		return nil, fmt.Errorf("plan %s: %w", planID, models.ErrRouteNotFound)
	}

	responses := make([]RouteResponse, len(routes))
	for i, route := range routes {
		responses[i] = modelToResponse(route)
	}
	return &ListRoutesResponse{
		Routes: responses,
		Total:  int64(len(responses)),
		Page:   1,
		Size:   len(responses),
	}, nil
}

// DeleteRoute удаляет маршрут по ID
func (s *RouteService) DeleteRoute(ctx context.Context, routeID string) error {
	if err := s.routeRepo.Delete(ctx, routeID); err != nil {
		return fmt.Errorf("failed to delete route: %w", err)
	}

	s.logger.Infof("Маршрут %s успешно удален", routeID)
	return nil
}

// ExportKML пишет геометрию сохраненного маршрута в формате KML
func (s *RouteService) ExportKML(ctx context.Context, routeID string, w io.Writer) error {
	route, err := s.routeRepo.GetByID(ctx, routeID)
	if err != nil {
		return fmt.Errorf("failed to get route: %w", err)
	}

	return geo.WriteKML(w, geo.KMLRoute{
		Name: fmt.Sprintf("SafeRoute %s", route.Variant),
		Description: fmt.Sprintf("Оценка безопасности %d, %.0f м, %s",
			route.SafetyScore, route.DistanceMeters, route.TransportMode),
		Coordinates: route.Coordinates,
	})
}
