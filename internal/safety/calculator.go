package safety

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"saferoute-go/pkg/models"

	"github.com/sirupsen/logrus"
)

// Weights веса факторов в итоговой оценке. Сумма должна быть равна 1.
type Weights struct {
	Lighting        float64
	Footfall        float64
	Hazards         float64 // применяется к инвертированному значению (100 - hazards)
	ProximityToHelp float64
}

// Sum сумма весов
func (w Weights) Sum() float64 {
	return w.Lighting + w.Footfall + w.Hazards + w.ProximityToHelp
}

// Options параметры расчета оценки
type Options struct {
	Weights             Weights
	TimeDeltas          map[models.TimeOfDay]int
	WeatherDeltas       map[models.WeatherCondition]int
	UserTypeMultipliers map[models.UserType]float64
	DefaultScore        int           // Значение положительных факторов, когда данных нет
	ProviderTimeout     time.Duration // Предел ожидания живого источника
	MinLiveSamples      int           // Минимум наблюдений для высокого доверия
	HighConfidence      float64
	LowConfidence       float64
}

// DefaultOptions возвращает параметры по умолчанию
func DefaultOptions() Options {
	return Options{
		Weights: Weights{
			Lighting:        0.30,
			Footfall:        0.25,
			Hazards:         0.20,
			ProximityToHelp: 0.25,
		},
		TimeDeltas: map[models.TimeOfDay]int{
			models.Morning:   5,
			models.Afternoon: 0,
			models.Evening:   -10,
			models.Night:     -20,
		},
		WeatherDeltas: map[models.WeatherCondition]int{
			models.WeatherClear:  0,
			models.WeatherCloudy: -2,
			models.WeatherRainy:  -8,
			models.WeatherStormy: -15,
		},
		UserTypeMultipliers: map[models.UserType]float64{
			models.Pedestrian:      1.0,
			models.PublicTransport: 1.0,
			models.TwoWheeler:      0.95,
			models.Cyclist:         0.90,
		},
		DefaultScore:    60,
		ProviderTimeout: 3 * time.Second,
		MinLiveSamples:  3,
		HighConfidence:  0.9,
		LowConfidence:   0.7,
	}
}

// Calculator считает оценку безопасности точки
type Calculator struct {
	provider FactorProvider
	zones    *ZoneTable
	opts     Options
	logger   *logrus.Logger
	now      func() time.Time
}

// NewCalculator создает калькулятор. provider и zones могут быть nil.
func NewCalculator(provider FactorProvider, zones *ZoneTable, opts Options, logger *logrus.Logger) (*Calculator, error) {
	if math.Abs(opts.Weights.Sum()-1.0) > 1e-6 {
		return nil, fmt.Errorf("weights must sum to 1.0, got %.4f", opts.Weights.Sum())
	}
	if opts.ProviderTimeout <= 0 {
		return nil, fmt.Errorf("provider timeout must be positive")
	}
	for _, c := range []float64{opts.HighConfidence, opts.LowConfidence} {
		if c < 0 || c > 1 {
			return nil, fmt.Errorf("confidence %.2f out of range 0-1", c)
		}
	}

	return &Calculator{
		provider: provider,
		zones:    zones,
		opts:     opts,
		logger:   logger,
		now:      time.Now,
	}, nil
}

// resolved факторы и их происхождение до поправок
type resolved struct {
	factors    models.SafetyFactors
	source     models.ScoreSource
	zone       string
	confidence float64
}

// ComputeScore считает оценку для точки с учетом контекста.
// Ошибки возвращаются только для некорректного ввода или отмены запроса.
func (c *Calculator) ComputeScore(ctx context.Context, coord models.Coordinate, sctx models.SafetyContext) (*models.SafetyScoreResult, error) {
	if err := coord.Validate(""); err != nil {
		return nil, err
	}
	if err := sctx.Validate(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sctx = sctx.WithDefaults()

	r := c.resolveFactors(ctx, coord)
	if err := ctx.Err(); err != nil {
		// Клиент отменил запрос, результат не нужен
		return nil, err
	}

	factors := r.factors.
		Shift(c.opts.TimeDeltas[sctx.TimeOfDay]).
		Shift(c.opts.WeatherDeltas[sctx.Weather])

	return &models.SafetyScoreResult{
		Overall:      c.combine(factors, sctx.UserType),
		Factors:      factors,
		Confidence:   r.confidence,
		Source:       r.source,
		Zone:         r.zone,
		Location:     coord,
		Context:      sctx,
		CalculatedAt: c.now().UTC(),
	}, nil
}

// combine взвешивает факторы и применяет множитель типа пользователя
func (c *Calculator) combine(f models.SafetyFactors, userType models.UserType) int {
	w := c.opts.Weights
	weighted := w.Lighting*float64(f.Lighting) +
		w.Footfall*float64(f.Footfall) +
		w.Hazards*float64(100-f.Hazards) +
		w.ProximityToHelp*float64(f.ProximityToHelp)

	multiplier, ok := c.opts.UserTypeMultipliers[userType]
	if !ok {
		multiplier = 1.0
	}

	return models.ClampScore(int(math.Round(weighted * multiplier)))
}

// resolveFactors выбирает источник факторов: живой провайдер, профиль района или значения по умолчанию
func (c *Calculator) resolveFactors(ctx context.Context, coord models.Coordinate) resolved {
	if reading, err := c.fetchLive(ctx, coord); err != nil {
		c.logger.WithFields(logrus.Fields{
			"lat": coord.Lat,
			"lng": coord.Lng,
		}).Warnf("Живые сигналы недоступны, используем резервный источник: %v", err)
	} else if reading != nil {
		confidence := c.opts.LowConfidence
		if reading.SampleCount >= c.opts.MinLiveSamples {
			confidence = c.opts.HighConfidence
		}
		return resolved{
			factors:    reading.Factors.Clamp(),
			source:     models.SourceLive,
			confidence: confidence,
		}
	}

	if zone, ok := c.zones.Lookup(coord); ok {
		return resolved{
			factors:    ZoneFactors(zone),
			source:     models.SourceZone,
			zone:       zone.Name,
			confidence: c.opts.HighConfidence,
		}
	}

	def := models.ClampScore(c.opts.DefaultScore)
	return resolved{
		factors: models.SafetyFactors{
			Lighting:        def,
			Footfall:        def,
			Hazards:         100 - def,
			ProximityToHelp: def,
		},
		source:     models.SourceDefault,
		confidence: c.opts.LowConfidence,
	}
}

type liveResult struct {
	reading *FactorReading
	err     error
}

// fetchLive вызывает провайдера с ограничением по времени.
// Ожидание прерывается по таймауту, даже если провайдер не учитывает контекст.
func (c *Calculator) fetchLive(ctx context.Context, coord models.Coordinate) (*FactorReading, error) {
	if c.provider == nil {
		return nil, nil
	}

	pctx, cancel := context.WithTimeout(ctx, c.opts.ProviderTimeout)
	defer cancel()

	done := make(chan liveResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- liveResult{err: fmt.Errorf("provider panic: %v", r)}
			}
		}()
		reading, err := c.provider.Factors(pctx, coord)
		done <- liveResult{reading: reading, err: err}
	}()

	select {
	case res := <-done:
		if res.err != nil {
			return nil, fmt.Errorf("%w: %w", models.ErrUpstreamSignalUnavailable, res.err)
		}
		return res.reading, nil
	case <-pctx.Done():
		err := pctx.Err()
		if errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("timed out after %s", c.opts.ProviderTimeout)
		}
		return nil, fmt.Errorf("%w: %w", models.ErrUpstreamSignalUnavailable, err)
	}
}
