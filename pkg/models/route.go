package models

import (
	"fmt"
	"time"
)

// VariantType тип альтернативы маршрута
type VariantType string

const (
	VariantSafest   VariantType = "safest"
	VariantFastest  VariantType = "fastest"
	VariantBalanced VariantType = "balanced"
)

// AllVariants порядок, в котором варианты возвращаются клиенту
var AllVariants = []VariantType{VariantSafest, VariantFastest, VariantBalanced}

// TransportMode способ передвижения для расчета времени в пути
type TransportMode string

const (
	Walking TransportMode = "walking"
	Cycling TransportMode = "cycling"
	Driving TransportMode = "driving"
)

// ParseTransportMode проверяет режим передвижения, пустое значение означает walking
func ParseTransportMode(s string) (TransportMode, error) {
	switch TransportMode(s) {
	case "":
		return Walking, nil
	case Walking, Cycling, Driving:
		return TransportMode(s), nil
	}
	return "", NewValidationError(ErrInvalidTransportMode, "preferences.transportMode",
		fmt.Sprintf("неизвестное значение %q", s))
}

// RiskLevel уровень риска участка маршрута
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskModerate RiskLevel = "moderate"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// RiskSegment участок маршрута с повышенным риском (индексы в Coordinates, включительно)
type RiskSegment struct {
	StartIndex  int       `json:"startIndex"`
	EndIndex    int       `json:"endIndex"`
	RiskLevel   RiskLevel `json:"riskLevel"`
	RiskFactors []string  `json:"riskFactors"`
}

// RouteOption один из вариантов маршрута. Неизменяем после построения.
type RouteOption struct {
	ID              string        `json:"id"`
	Type            VariantType   `json:"type"`
	Coordinates     []Coordinate  `json:"coordinates"`
	Polyline        string        `json:"polyline"` // Google encoded polyline
	DistanceMeters  float64       `json:"distanceMeters"`
	DurationSeconds float64       `json:"durationSeconds"`
	SafetyScore     int           `json:"safetyScore"`
	SafetyFactors   SafetyFactors `json:"safetyFactors"`
	RiskSegments    []RiskSegment `json:"riskSegments"`
}

// RouteSummary сводка по вариантам маршрута
type RouteSummary struct {
	TotalRoutes      int         `json:"totalRoutes"`
	SafestScore      int         `json:"safestScore"`
	FastestTime      float64     `json:"fastestTime"`      // секунды
	RecommendedRoute string      `json:"recommendedRoute"` // ID рекомендованного варианта
	RecommendedType  VariantType `json:"recommendedType"`
}

// RouteMetadata служебная информация о расчете
type RouteMetadata struct {
	AlgorithmVersion  string    `json:"algorithmVersion"`
	DataSources       []string  `json:"dataSources"`
	CalculationTimeMs int64     `json:"calculationTimeMs"`
	Timestamp         time.Time `json:"timestamp"`
}

// RoutePlan результат планирования: три варианта, сводка и метаданные
type RoutePlan struct {
	ID       string        `json:"id"`
	Routes   []RouteOption `json:"routes"`
	Summary  RouteSummary  `json:"summary"`
	Metadata RouteMetadata `json:"metadata"`

	// BaseScore средняя оценка по базовой геометрии до поправок вариантов
	BaseScore int `json:"baseScore"`
	// Context контекст, с которым считались оценки
	Context SafetyContext `json:"context"`
}
