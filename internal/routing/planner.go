package routing

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"saferoute-go/internal/geo"
	"saferoute-go/internal/safety"
	"saferoute-go/pkg/models"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// AlgorithmVersion версия алгоритма построения вариантов, отдается в метаданных
const AlgorithmVersion = "saferoute-heuristic-1.0"

// PlanRequest запрос на построение вариантов маршрута
type PlanRequest struct {
	Start            models.Coordinate
	End              models.Coordinate
	TransportMode    models.TransportMode
	SafetyPreference *int
	Context          models.SafetyContext
}

// PlannerOptions параметры планировщика
type PlannerOptions struct {
	SampleStride   int // оценка берется в каждой SampleStride-й точке базовой геометрии
	MaxConcurrency int // предел одновременных расчетов оценки
}

// DefaultPlannerOptions параметры по умолчанию
func DefaultPlannerOptions() PlannerOptions {
	return PlannerOptions{SampleStride: 3, MaxConcurrency: 16}
}

// Planner строит три варианта маршрута с оценками безопасности
type Planner struct {
	geometry *GeometryBuilder
	adjuster *VariantAdjuster
	risk     *RiskDetector
	scorer   safety.Scorer
	geo      *geo.Calculator
	opts     PlannerOptions
	logger   *logrus.Logger
	now      func() time.Time
}

// NewPlanner создает планировщик
func NewPlanner(geometry *GeometryBuilder, adjuster *VariantAdjuster, risk *RiskDetector, scorer safety.Scorer,
	geoCalc *geo.Calculator, opts PlannerOptions, logger *logrus.Logger) *Planner {
	if opts.SampleStride <= 0 {
		opts.SampleStride = 1
	}
	if opts.MaxConcurrency <= 0 {
		opts.MaxConcurrency = DefaultPlannerOptions().MaxConcurrency
	}
	return &Planner{
		geometry: geometry,
		adjuster: adjuster,
		risk:     risk,
		scorer:   scorer,
		geo:      geoCalc,
		opts:     opts,
		logger:   logger,
		now:      time.Now,
	}
}

// Plan строит варианты safest, fastest и balanced.
// Оценки считаются по базовой геометрии один раз; поправки вариантов применяются к общему среднему.
func (p *Planner) Plan(ctx context.Context, req PlanRequest) (*models.RoutePlan, error) {
	started := p.now()

	if req.TransportMode == "" {
		req.TransportMode = models.Walking
	}
	if err := p.validate(req); err != nil {
		return nil, err
	}
	sctx := req.Context.WithDefaults()

	base, err := p.geometry.Base(req.Start, req.End)
	if err != nil {
		return nil, err
	}

	samples, err := p.sample(ctx, base, sctx)
	if err != nil {
		return nil, err
	}
	baseScore, baseFactors := aggregate(samples)

	baseDistance := p.geometry.Distance(base)
	baseDuration, err := p.geometry.Duration(baseDistance, req.TransportMode)
	if err != nil {
		return nil, err
	}

	routes := make([]models.RouteOption, 0, len(models.AllVariants))
	for _, variant := range models.AllVariants {
		coords, err := p.geometry.Build(req.Start, req.End, variant)
		if err != nil {
			return nil, fmt.Errorf("build %s geometry: %w", variant, err)
		}
		adjusted, err := p.adjuster.Adjust(baseDistance, baseDuration, baseScore, variant)
		if err != nil {
			return nil, err
		}

		routes = append(routes, models.RouteOption{
			ID:              uuid.New().String(),
			Type:            variant,
			Coordinates:     coords,
			Polyline:        p.geo.EncodePolyline(coords),
			DistanceMeters:  math.Round(adjusted.DistanceMeters*10) / 10,
			DurationSeconds: math.Round(adjusted.DurationSeconds),
			SafetyScore:     adjusted.SafetyScore,
			SafetyFactors:   baseFactors,
			RiskSegments:    p.risk.DetectForScore(coords, adjusted.SafetyScore),
		})
	}

	recommended, err := SelectRecommended(routes, req.SafetyPreference)
	if err != nil {
		return nil, err
	}

	plan := &models.RoutePlan{
		ID:        uuid.New().String(),
		Routes:    routes,
		Summary:   summarize(routes, recommended),
		BaseScore: baseScore,
		Context:   sctx,
		Metadata: models.RouteMetadata{
			AlgorithmVersion:  AlgorithmVersion,
			DataSources:       dataSources(samples),
			CalculationTimeMs: p.now().Sub(started).Milliseconds(),
			Timestamp:         started.UTC(),
		},
	}

	p.logger.WithFields(logrus.Fields{
		"start":       req.Start.String(),
		"end":         req.End.String(),
		"samples":     len(samples),
		"base_score":  baseScore,
		"recommended": recommended.Type,
	}).Info("Построены варианты маршрута")

	return plan, nil
}

func (p *Planner) validate(req PlanRequest) error {
	if err := validateEndpoints(req.Start, req.End); err != nil {
		return err
	}
	if err := req.Context.Validate(); err != nil {
		return err
	}
	if _, err := p.geometry.Duration(0, req.TransportMode); err != nil {
		return err
	}
	if pref := req.SafetyPreference; pref != nil && (*pref < 0 || *pref > 100) {
		return models.NewValidationError(models.ErrInvalidContext, "preferences.safetyPreference",
			fmt.Sprintf("должно быть от 0 до 100, получено %d", *pref))
	}
	return nil
}

// sample параллельно считает оценки в точках выборки; порядок результатов совпадает с порядком точек
func (p *Planner) sample(ctx context.Context, coords []models.Coordinate, sctx models.SafetyContext) ([]*models.SafetyScoreResult, error) {
	indices := SampleIndices(len(coords), p.opts.SampleStride)
	results := make([]*models.SafetyScoreResult, len(indices))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.opts.MaxConcurrency)
	for i, idx := range indices {
		i, idx := i, idx
		g.Go(func() error {
			result, err := p.scorer.ComputeScore(gctx, coords[idx], sctx)
			if err != nil {
				return fmt.Errorf("score point %d: %w", idx, err)
			}
			results[i] = result
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, err
	}
	return results, nil
}

// SampleIndices индексы точек выборки: каждая stride-я точка и всегда последняя
func SampleIndices(n, stride int) []int {
	if n <= 0 {
		return nil
	}
	if stride <= 0 {
		stride = 1
	}
	indices := make([]int, 0, n/stride+2)
	for i := 0; i < n; i += stride {
		indices = append(indices, i)
	}
	if indices[len(indices)-1] != n-1 {
		indices = append(indices, n-1)
	}
	return indices
}

// aggregate среднее по общей оценке и по каждому фактору
func aggregate(samples []*models.SafetyScoreResult) (int, models.SafetyFactors) {
	if len(samples) == 0 {
		return 0, models.SafetyFactors{}
	}

	var overall, lighting, footfall, hazards, proximity int
	for _, s := range samples {
		overall += s.Overall
		lighting += s.Factors.Lighting
		footfall += s.Factors.Footfall
		hazards += s.Factors.Hazards
		proximity += s.Factors.ProximityToHelp
	}

	mean := func(sum int) int {
		return int(math.Round(float64(sum) / float64(len(samples))))
	}
	return models.ClampScore(mean(overall)), models.SafetyFactors{
		Lighting:        mean(lighting),
		Footfall:        mean(footfall),
		Hazards:         mean(hazards),
		ProximityToHelp: mean(proximity),
	}.Clamp()
}

func summarize(routes []models.RouteOption, recommended models.RouteOption) models.RouteSummary {
	summary := models.RouteSummary{
		TotalRoutes:      len(routes),
		RecommendedRoute: recommended.ID,
		RecommendedType:  recommended.Type,
	}
	for i, route := range routes {
		if route.SafetyScore > summary.SafestScore {
			summary.SafestScore = route.SafetyScore
		}
		if i == 0 || route.DurationSeconds < summary.FastestTime {
			summary.FastestTime = route.DurationSeconds
		}
	}
	return summary
}

// dataSources уникальные источники данных, использованные при выборке
func dataSources(samples []*models.SafetyScoreResult) []string {
	seen := make(map[string]struct{})
	for _, s := range samples {
		name := string(s.Source)
		if s.Source == models.SourceZone && s.Zone != "" {
			name = "zone:" + s.Zone
		}
		seen[name] = struct{}{}
	}

	sources := make([]string, 0, len(seen))
	for name := range seen {
		sources = append(sources, name)
	}
	sort.Strings(sources)
	return sources
}
