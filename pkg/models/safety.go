package models

import (
	"fmt"
	"time"
)

// TimeOfDay время суток, влияющее на оценку
type TimeOfDay string

const (
	Morning   TimeOfDay = "morning"
	Afternoon TimeOfDay = "afternoon"
	Evening   TimeOfDay = "evening"
	Night     TimeOfDay = "night"
)

// WeatherCondition погодные условия
type WeatherCondition string

const (
	WeatherClear  WeatherCondition = "clear"
	WeatherCloudy WeatherCondition = "cloudy"
	WeatherRainy  WeatherCondition = "rainy"
	WeatherStormy WeatherCondition = "stormy"
)

// UserType тип путешественника
type UserType string

const (
	Pedestrian      UserType = "pedestrian"
	TwoWheeler      UserType = "two_wheeler"
	Cyclist         UserType = "cyclist"
	PublicTransport UserType = "public_transport"
)

// ScoreSource источник данных, по которым посчитана оценка
type ScoreSource string

const (
	SourceLive    ScoreSource = "live"
	SourceZone    ScoreSource = "zone"
	SourceDefault ScoreSource = "default"
)

// SafetyFactors нормализованные факторы безопасности, каждый в диапазоне 0-100.
// Hazards имеет обратный смысл: чем больше, тем опаснее.
type SafetyFactors struct {
	Lighting        int `json:"lighting"`        // Освещенность
	Footfall        int `json:"footfall"`        // Пешеходный трафик
	Hazards         int `json:"hazards"`         // Уровень опасностей (больше = хуже)
	ProximityToHelp int `json:"proximityToHelp"` // Близость к экстренным службам
}

// Clamp ограничивает все факторы диапазоном 0-100
func (f SafetyFactors) Clamp() SafetyFactors {
	return SafetyFactors{
		Lighting:        ClampScore(f.Lighting),
		Footfall:        ClampScore(f.Footfall),
		Hazards:         ClampScore(f.Hazards),
		ProximityToHelp: ClampScore(f.ProximityToHelp),
	}
}

// Shift сдвигает факторы на delta: положительные факторы растут, опасности убывают
func (f SafetyFactors) Shift(delta int) SafetyFactors {
	return SafetyFactors{
		Lighting:        f.Lighting + delta,
		Footfall:        f.Footfall + delta,
		Hazards:         f.Hazards - delta,
		ProximityToHelp: f.ProximityToHelp + delta,
	}.Clamp()
}

// SafetyContext контекст запроса. Не сохраняется как сущность, только как метаданные.
type SafetyContext struct {
	TimeOfDay TimeOfDay        `json:"timeOfDay"`
	Weather   WeatherCondition `json:"weatherCondition"`
	UserType  UserType         `json:"userType"`
}

// WithDefaults подставляет значения по умолчанию для пустых полей
func (c SafetyContext) WithDefaults() SafetyContext {
	if c.TimeOfDay == "" {
		c.TimeOfDay = Afternoon
	}
	if c.Weather == "" {
		c.Weather = WeatherClear
	}
	if c.UserType == "" {
		c.UserType = Pedestrian
	}
	return c
}

// Validate проверяет значения перечислений. Пустые значения допустимы.
func (c SafetyContext) Validate() error {
	switch c.TimeOfDay {
	case "", Morning, Afternoon, Evening, Night:
	default:
		return NewValidationError(ErrInvalidContext, "timeOfDay",
			fmt.Sprintf("неизвестное значение %q", c.TimeOfDay))
	}
	switch c.Weather {
	case "", WeatherClear, WeatherCloudy, WeatherRainy, WeatherStormy:
	default:
		return NewValidationError(ErrInvalidContext, "weatherCondition",
			fmt.Sprintf("неизвестное значение %q", c.Weather))
	}
	switch c.UserType {
	case "", Pedestrian, TwoWheeler, Cyclist, PublicTransport:
	default:
		return NewValidationError(ErrInvalidContext, "userType",
			fmt.Sprintf("неизвестное значение %q", c.UserType))
	}
	return nil
}

// SafetyScoreResult результат расчета оценки безопасности для точки.
// Создается один раз на вызов и далее не изменяется.
type SafetyScoreResult struct {
	Overall      int           `json:"overall"`        // Итоговая оценка 0-100
	Factors      SafetyFactors `json:"factors"`        // Факторы после поправок
	Confidence   float64       `json:"confidence"`     // Доверие к оценке 0-1
	Source       ScoreSource   `json:"source"`         // live / zone / default
	Zone         string        `json:"zone,omitempty"` // Имя зоны, если использовалась
	Location     Coordinate    `json:"location"`
	Context      SafetyContext `json:"context"`
	CalculatedAt time.Time     `json:"calculatedAt"`
}

// BoundingBox прямоугольная область в градусах
type BoundingBox struct {
	MinLat float64 `json:"minLat" yaml:"min_lat"`
	MaxLat float64 `json:"maxLat" yaml:"max_lat"`
	MinLng float64 `json:"minLng" yaml:"min_lng"`
	MaxLng float64 `json:"maxLng" yaml:"max_lng"`
}

// Contains проверяет попадание точки в область (границы включительно)
func (b BoundingBox) Contains(c Coordinate) bool {
	return c.Lat >= b.MinLat && c.Lat <= b.MaxLat &&
		c.Lng >= b.MinLng && c.Lng <= b.MaxLng
}

// ZoneProfile справочный профиль района с базовыми характеристиками
type ZoneProfile struct {
	Name            string            `json:"name" yaml:"name"`
	BoundingBox     BoundingBox       `json:"boundingBox" yaml:"bounding_box"`
	BaselineScore   int               `json:"baselineScore" yaml:"baseline_score"`
	Characteristics map[string]string `json:"characteristics" yaml:"characteristics"` // фактор -> уровень
}

// ClampScore ограничивает значение диапазоном 0-100
func ClampScore(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// FactorLevel возвращает человекочитаемый уровень для оценки фактора.
// Используется только при отображении.
func FactorLevel(score int) string {
	switch {
	case score >= 80:
		return "very_high"
	case score >= 60:
		return "high"
	case score >= 40:
		return "medium"
	case score >= 20:
		return "low"
	default:
		return "very_low"
	}
}
