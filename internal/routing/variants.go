package routing

import (
	"fmt"

	"saferoute-go/pkg/models"
)

// VariantAdjustment поправки варианта к базовым значениям
type VariantAdjustment struct {
	DistanceFactor float64 `json:"distanceFactor"`
	DurationFactor float64 `json:"durationFactor"`
	ScoreDelta     int     `json:"scoreDelta"`
}

// DefaultVariantTable таблица поправок по умолчанию.
// safest платит расстоянием и временем за запас оценки, fastest наоборот.
func DefaultVariantTable() map[models.VariantType]VariantAdjustment {
	return map[models.VariantType]VariantAdjustment{
		models.VariantSafest:   {DistanceFactor: 1.15, DurationFactor: 1.25, ScoreDelta: 15},
		models.VariantFastest:  {DistanceFactor: 0.95, DurationFactor: 0.80, ScoreDelta: -15},
		models.VariantBalanced: {DistanceFactor: 1.05, DurationFactor: 1.10, ScoreDelta: 5},
	}
}

// Adjusted значения варианта после поправок
type Adjusted struct {
	DistanceMeters  float64
	DurationSeconds float64
	SafetyScore     int
}

// VariantAdjuster применяет таблицу поправок. Чистая функция от входа.
type VariantAdjuster struct {
	table map[models.VariantType]VariantAdjustment
}

// NewVariantAdjuster создает корректировщик; таблица должна покрывать все варианты
func NewVariantAdjuster(table map[models.VariantType]VariantAdjustment) (*VariantAdjuster, error) {
	copied := make(map[models.VariantType]VariantAdjustment, len(table))
	for _, variant := range models.AllVariants {
		adj, ok := table[variant]
		if !ok {
			return nil, fmt.Errorf("adjustment for variant %q is missing", variant)
		}
		if adj.DistanceFactor <= 0 || adj.DurationFactor <= 0 {
			return nil, fmt.Errorf("adjustment factors for %q must be positive", variant)
		}
		copied[variant] = adj
	}
	return &VariantAdjuster{table: copied}, nil
}

// Table возвращает копию таблицы поправок
func (a *VariantAdjuster) Table() map[models.VariantType]VariantAdjustment {
	copied := make(map[models.VariantType]VariantAdjustment, len(a.table))
	for k, v := range a.table {
		copied[k] = v
	}
	return copied
}

// Adjust применяет поправки варианта к базовому расстоянию, времени и оценке
func (a *VariantAdjuster) Adjust(distance, duration float64, score int, variant models.VariantType) (Adjusted, error) {
	adj, ok := a.table[variant]
	if !ok {
		return Adjusted{}, fmt.Errorf("unknown variant %q", variant)
	}
	return Adjusted{
		DistanceMeters:  distance * adj.DistanceFactor,
		DurationSeconds: duration * adj.DurationFactor,
		SafetyScore:     models.ClampScore(score + adj.ScoreDelta),
	}, nil
}
