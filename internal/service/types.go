package service

import (
	"time"

	"saferoute-go/internal/model"
	"saferoute-go/pkg/models"
)

// PlanRoutesRequest запрос на построение вариантов маршрута
type PlanRoutesRequest struct {
	Start            models.Coordinate
	End              models.Coordinate
	TransportMode    models.TransportMode
	SafetyPreference *int
	Context          models.SafetyContext
	UserID           string // пустой для анонимных запросов
}

// RouteResponse сохраненный вариант маршрута
type RouteResponse struct {
	models.RouteOption
	PlanID        string               `json:"planId"`
	UserID        string               `json:"userId,omitempty"`
	Start         models.Coordinate    `json:"start"`
	End           models.Coordinate    `json:"end"`
	TransportMode models.TransportMode `json:"transportMode"`
	Recommended   bool                 `json:"recommended"`
	Context       models.SafetyContext `json:"context"`
	CreatedAt     time.Time            `json:"createdAt"`
}

// ListRoutesResponse ответ со списком маршрутов
type ListRoutesResponse struct {
	Routes []RouteResponse `json:"routes"`
	Total  int64           `json:"total"`
	Page   int             `json:"page"`
	Size   int             `json:"size"`
}

// modelToResponse преобразует модель базы данных в ответ API
func modelToResponse(route *model.Route) RouteResponse {
	return RouteResponse{
		RouteOption:   route.ToOption(),
		PlanID:        route.PlanID,
		UserID:        route.UserID,
		Start:         models.Coordinate{Lat: route.StartLat, Lng: route.StartLng},
		End:           models.Coordinate{Lat: route.EndLat, Lng: route.EndLng},
		TransportMode: models.TransportMode(route.TransportMode),
		Recommended:   route.Recommended,
		Context: models.SafetyContext{
			TimeOfDay: models.TimeOfDay(route.TimeOfDay),
			Weather:   models.WeatherCondition(route.WeatherCondition),
			UserType:  models.UserType(route.UserType),
		},
		CreatedAt: route.CreatedAt,
	}
}
