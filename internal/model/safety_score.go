package model

import (
	"time"

	"saferoute-go/pkg/models"

	"github.com/google/uuid"
)

// SafetyScoreRecord неизменяемая запись аудита рассчитанной оценки
type SafetyScoreRecord struct {
	ID               string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Lat              float64   `gorm:"not null;index:idx_score_location" json:"lat"`
	Lng              float64   `gorm:"not null;index:idx_score_location" json:"lng"`
	Overall          int       `gorm:"not null" json:"overall"`
	Lighting         int       `gorm:"not null" json:"lighting"`
	Footfall         int       `gorm:"not null" json:"footfall"`
	Hazards          int       `gorm:"not null" json:"hazards"`
	ProximityToHelp  int       `gorm:"not null" json:"proximity_to_help"`
	Confidence       float64   `gorm:"not null" json:"confidence"`
	Source           string    `gorm:"type:varchar(16);not null" json:"source"`
	Zone             string    `gorm:"type:varchar(128)" json:"zone,omitempty"`
	TimeOfDay        string    `gorm:"type:varchar(16)" json:"time_of_day"`
	WeatherCondition string    `gorm:"type:varchar(16)" json:"weather_condition"`
	UserType         string    `gorm:"type:varchar(32)" json:"user_type"`
	CalculatedAt     time.Time `gorm:"not null;index" json:"calculated_at"`
	CreatedAt        time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// TableName указывает имя таблицы для SafetyScoreRecord
func (SafetyScoreRecord) TableName() string {
	return "safety_scores"
}

// NewSafetyScoreRecord создает запись аудита из результата расчета
func NewSafetyScoreRecord(result *models.SafetyScoreResult) *SafetyScoreRecord {
	return &SafetyScoreRecord{
		ID:               uuid.New().String(),
		Lat:              result.Location.Lat,
		Lng:              result.Location.Lng,
		Overall:          result.Overall,
		Lighting:         result.Factors.Lighting,
		Footfall:         result.Factors.Footfall,
		Hazards:          result.Factors.Hazards,
		ProximityToHelp:  result.Factors.ProximityToHelp,
		Confidence:       result.Confidence,
		Source:           string(result.Source),
		Zone:             result.Zone,
		TimeOfDay:        string(result.Context.TimeOfDay),
		WeatherCondition: string(result.Context.Weather),
		UserType:         string(result.Context.UserType),
		CalculatedAt:     result.CalculatedAt,
	}
}

// ToResult восстанавливает результат расчета из записи
func (r *SafetyScoreRecord) ToResult() models.SafetyScoreResult {
	return models.SafetyScoreResult{
		Overall: r.Overall,
		Factors: models.SafetyFactors{
			Lighting:        r.Lighting,
			Footfall:        r.Footfall,
			Hazards:         r.Hazards,
			ProximityToHelp: r.ProximityToHelp,
		},
		Confidence: r.Confidence,
		Source:     models.ScoreSource(r.Source),
		Zone:       r.Zone,
		Location:   models.Coordinate{Lat: r.Lat, Lng: r.Lng},
		Context: models.SafetyContext{
			TimeOfDay: models.TimeOfDay(r.TimeOfDay),
			Weather:   models.WeatherCondition(r.WeatherCondition),
			UserType:  models.UserType(r.UserType),
		},
		CalculatedAt: r.CalculatedAt,
	}
}
