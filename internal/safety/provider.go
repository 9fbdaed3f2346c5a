package safety

import (
	"context"
	"fmt"
	"math"

	"saferoute-go/pkg/models"
)

// FactorReading нормализованные факторы, полученные от живого источника
type FactorReading struct {
	Factors     models.SafetyFactors
	SampleCount int
	Sources     []string
}

// FactorProvider источник живых факторов безопасности.
// (nil, nil) означает, что для точки нет сигнала.
type FactorProvider interface {
	Factors(ctx context.Context, coord models.Coordinate) (*FactorReading, error)
}

// SignalSource возвращает сырые сигналы внешнего сервиса
type SignalSource interface {
	FetchSignals(ctx context.Context, coord models.Coordinate) (*models.RawSignals, error)
}

// SignalsProvider адаптирует SignalSource к FactorProvider через Normalize
type SignalsProvider struct {
	source SignalSource
}

// NewSignalsProvider создает адаптер над источником сырых сигналов
func NewSignalsProvider(source SignalSource) *SignalsProvider {
	return &SignalsProvider{source: source}
}

// Factors получает сырые сигналы и приводит их к четырем факторам
func (p *SignalsProvider) Factors(ctx context.Context, coord models.Coordinate) (*FactorReading, error) {
	raw, err := p.source.FetchSignals(ctx, coord)
	if err != nil {
		return nil, fmt.Errorf("fetch signals for %s: %w", coord, err)
	}
	if raw == nil || raw.Samples <= 0 {
		return nil, nil
	}

	return &FactorReading{
		Factors:     Normalize(*raw),
		SampleCount: raw.Samples,
		Sources:     raw.Sources,
	}, nil
}

// Normalize переводит разнородные сырые сигналы в фиксированный вектор из четырех факторов
func Normalize(raw models.RawSignals) models.SafetyFactors {
	return models.SafetyFactors{
		Lighting:        lightingScore(raw),
		Footfall:        footfallScore(raw.POICount),
		Hazards:         hazardScore(raw),
		ProximityToHelp: proximityScore(raw),
	}.Clamp()
}

func lightingScore(raw models.RawSignals) int {
	intensity := raw.LightIntensity
	if intensity < 0 {
		intensity = 0
	}
	if intensity > 1 {
		intensity = 1
	}

	// Коммерческие районы с большим числом POI обычно лучше освещены
	var poiBonus int
	switch {
	case raw.POICount > 50:
		poiBonus = 20
	case raw.POICount > 20:
		poiBonus = 10
	case raw.POICount > 5:
		poiBonus = 5
	}

	return int(math.Round(intensity*100)) + poiBonus - raw.DarkSpots*10
}

func footfallScore(poiCount int) int {
	switch {
	case poiCount > 100:
		return 95
	case poiCount > 50:
		return 80
	case poiCount > 20:
		return 65
	case poiCount > 5:
		return 45
	default:
		return 25
	}
}

func hazardScore(raw models.RawSignals) int {
	var roadQualityBonus int
	switch {
	case raw.POICount > 30:
		roadQualityBonus = 20
	case raw.POICount > 15:
		roadQualityBonus = 10
	case raw.POICount > 5:
		roadQualityBonus = 5
	}

	return raw.DarkSpots*15 + raw.HazardReports*10 - roadQualityBonus
}

func proximityScore(raw models.RawSignals) int {
	if raw.NearestHelpMeters > 0 {
		switch {
		case raw.NearestHelpMeters <= 500:
			return 90
		case raw.NearestHelpMeters <= 1000:
			return 75
		case raw.NearestHelpMeters <= 2000:
			return 60
		case raw.NearestHelpMeters <= 5000:
			return 40
		default:
			return 20
		}
	}

	switch {
	case raw.EmergencyServices > 10:
		return 90
	case raw.EmergencyServices > 5:
		return 75
	case raw.EmergencyServices > 2:
		return 60
	case raw.EmergencyServices > 0:
		return 40
	default:
		return 20
	}
}
