package model

import (
	"time"

	"saferoute-go/pkg/models"

	"gorm.io/gorm"
)

// Route сохраненный вариант маршрута. Три варианта одного запроса связаны PlanID.
type Route struct {
	ID            string  `gorm:"primaryKey;type:varchar(36)" json:"id"`
	PlanID        string  `gorm:"type:varchar(36);not null;index" json:"plan_id"`
	UserID        string  `gorm:"type:varchar(64);index" json:"user_id"`
	Variant       string  `gorm:"type:varchar(16);not null" json:"variant"`
	Recommended   bool    `gorm:"not null;default:false" json:"recommended"`
	StartLat      float64 `gorm:"not null" json:"start_lat"`
	StartLng      float64 `gorm:"not null" json:"start_lng"`
	EndLat        float64 `gorm:"not null" json:"end_lat"`
	EndLng        float64 `gorm:"not null" json:"end_lng"`
	TransportMode string  `gorm:"type:varchar(16);not null" json:"transport_mode"`

	Coordinates     []models.Coordinate  `gorm:"serializer:json;type:text" json:"coordinates"`
	Polyline        string               `gorm:"type:text" json:"polyline"`
	DistanceMeters  float64              `gorm:"not null;default:0" json:"distance_meters"`
	DurationSeconds float64              `gorm:"not null;default:0" json:"duration_seconds"`
	SafetyScore     int                  `gorm:"not null;default:0" json:"safety_score"`
	RiskSegments    []models.RiskSegment `gorm:"serializer:json;type:text" json:"risk_segments"`

	// Факторы безопасности
	Lighting        int `gorm:"not null;default:0" json:"lighting"`
	Footfall        int `gorm:"not null;default:0" json:"footfall"`
	Hazards         int `gorm:"not null;default:0" json:"hazards"`
	ProximityToHelp int `gorm:"not null;default:0" json:"proximity_to_help"`

	// Контекст запроса
	TimeOfDay        string `gorm:"type:varchar(16)" json:"time_of_day"`
	WeatherCondition string `gorm:"type:varchar(16)" json:"weather_condition"`
	UserType         string `gorm:"type:varchar(32)" json:"user_type"`

	CreatedAt time.Time      `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

// TableName указывает имя таблицы для Route
func (Route) TableName() string {
	return "routes"
}

// NewRoutesFromPlan переводит результат планирования в записи для сохранения
func NewRoutesFromPlan(plan *models.RoutePlan, start, end models.Coordinate, mode models.TransportMode, userID string) []*Route {
	routes := make([]*Route, 0, len(plan.Routes))
	for _, option := range plan.Routes {
		routes = append(routes, &Route{
			ID:               option.ID,
			PlanID:           plan.ID,
			UserID:           userID,
			Variant:          string(option.Type),
			Recommended:      option.ID == plan.Summary.RecommendedRoute,
			StartLat:         start.Lat,
			StartLng:         start.Lng,
			EndLat:           end.Lat,
			EndLng:           end.Lng,
			TransportMode:    string(mode),
			Coordinates:      option.Coordinates,
			Polyline:         option.Polyline,
			DistanceMeters:   option.DistanceMeters,
			DurationSeconds:  option.DurationSeconds,
			SafetyScore:      option.SafetyScore,
			RiskSegments:     option.RiskSegments,
			Lighting:         option.SafetyFactors.Lighting,
			Footfall:         option.SafetyFactors.Footfall,
			Hazards:          option.SafetyFactors.Hazards,
			ProximityToHelp:  option.SafetyFactors.ProximityToHelp,
			TimeOfDay:        string(plan.Context.TimeOfDay),
			WeatherCondition: string(plan.Context.Weather),
			UserType:         string(plan.Context.UserType),
		})
	}
	return routes
}

// ToOption восстанавливает вариант маршрута из записи
func (r *Route) ToOption() models.RouteOption {
	segments := r.RiskSegments
	if segments == nil {
		segments = []models.RiskSegment{}
	}
	return models.RouteOption{
		ID:              r.ID,
		Type:            models.VariantType(r.Variant),
		Coordinates:     r.Coordinates,
		Polyline:        r.Polyline,
		DistanceMeters:  r.DistanceMeters,
		DurationSeconds: r.DurationSeconds,
		SafetyScore:     r.SafetyScore,
		SafetyFactors: models.SafetyFactors{
			Lighting:        r.Lighting,
			Footfall:        r.Footfall,
			Hazards:         r.Hazards,
			ProximityToHelp: r.ProximityToHelp,
		},
		RiskSegments: segments,
	}
}
