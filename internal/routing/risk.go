package routing

import (
	"fmt"
	"math"

	"saferoute-go/pkg/models"
)

// RiskThresholds пороги агрегированной оценки
type RiskThresholds struct {
	High     int // ниже - весь маршрут высокого риска
	Moderate int // ниже - средняя треть маршрута умеренного риска
}

// DefaultRiskThresholds пороги по умолчанию
func DefaultRiskThresholds() RiskThresholds {
	return RiskThresholds{High: 40, Moderate: 60}
}

// RiskDetector грубая первичная оценка опасных участков по агрегированной оценке маршрута.
// Срабатывает не более одного правила, high важнее moderate.
type RiskDetector struct {
	thresholds RiskThresholds
}

// NewRiskDetector создает детектор
func NewRiskDetector(thresholds RiskThresholds) (*RiskDetector, error) {
	if thresholds.High > thresholds.Moderate {
		return nil, fmt.Errorf("high risk threshold %d must not exceed moderate threshold %d",
			thresholds.High, thresholds.Moderate)
	}
	return &RiskDetector{thresholds: thresholds}, nil
}

// Detect считает среднюю оценку по точкам и выделяет участки риска
func (d *RiskDetector) Detect(coords []models.Coordinate, perPointScores []int) []models.RiskSegment {
	if len(coords) == 0 || len(perPointScores) == 0 {
		return []models.RiskSegment{}
	}

	sum := 0
	for _, s := range perPointScores {
		sum += s
	}
	aggregate := int(math.Round(float64(sum) / float64(len(perPointScores))))

	return d.DetectForScore(coords, aggregate)
}

// DetectForScore выделяет участки риска по готовой агрегированной оценке
func (d *RiskDetector) DetectForScore(coords []models.Coordinate, aggregate int) []models.RiskSegment {
	n := len(coords)
	if n == 0 {
		return []models.RiskSegment{}
	}

	switch {
	case aggregate < d.thresholds.High:
		return []models.RiskSegment{{
			StartIndex:  0,
			EndIndex:    n - 1,
			RiskLevel:   models.RiskHigh,
			RiskFactors: []string{"low_lighting", "low_footfall"},
		}}
	case aggregate < d.thresholds.Moderate:
		end := 2 * n / 3
		if end > n-1 {
			end = n - 1
		}
		return []models.RiskSegment{{
			StartIndex:  n / 3,
			EndIndex:    end,
			RiskLevel:   models.RiskModerate,
			RiskFactors: []string{"moderate_lighting"},
		}}
	}
	return []models.RiskSegment{}
}
