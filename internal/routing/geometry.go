package routing

import (
	"fmt"

	"saferoute-go/internal/geo"
	"saferoute-go/pkg/models"
)

// GeometryOptions параметры построения геометрии вариантов.
// Геометрия приближенная: прямая с боковыми точками объезда, без привязки к дорожному графу.
type GeometryOptions struct {
	SpeedsKmh         map[models.TransportMode]float64
	Waypoints         map[models.VariantType]int
	OffsetScale       map[models.VariantType]float64 // доля от полного бокового смещения
	DetourOffsetRatio float64                        // смещение как доля прямого расстояния
	DensifyPoints     int                            // промежуточных точек на каждом отрезке
}

// DefaultGeometryOptions возвращает параметры по умолчанию
func DefaultGeometryOptions() GeometryOptions {
	return GeometryOptions{
		SpeedsKmh: map[models.TransportMode]float64{
			models.Walking: 5,
			models.Cycling: 15,
			models.Driving: 30,
		},
		Waypoints: map[models.VariantType]int{
			models.VariantSafest:   2,
			models.VariantBalanced: 1,
			models.VariantFastest:  0,
		},
		OffsetScale: map[models.VariantType]float64{
			models.VariantSafest:   1.0,
			models.VariantBalanced: 0.5,
			models.VariantFastest:  0,
		},
		DetourOffsetRatio: 0.08,
		DensifyPoints:     4,
	}
}

// GeometryBuilder строит последовательность точек маршрута для варианта
type GeometryBuilder struct {
	geo  *geo.Calculator
	opts GeometryOptions
}

// NewGeometryBuilder создает построитель геометрии
func NewGeometryBuilder(geoCalc *geo.Calculator, opts GeometryOptions) (*GeometryBuilder, error) {
	for mode, speed := range opts.SpeedsKmh {
		if speed <= 0 {
			return nil, fmt.Errorf("speed for %s must be positive, got %.2f", mode, speed)
		}
	}
	for variant, n := range opts.Waypoints {
		if n < 0 {
			return nil, fmt.Errorf("waypoint count for %s must not be negative", variant)
		}
	}
	if opts.DetourOffsetRatio < 0 {
		return nil, fmt.Errorf("detour offset ratio must not be negative")
	}
	if opts.DensifyPoints < 0 {
		return nil, fmt.Errorf("densify points must not be negative")
	}

	return &GeometryBuilder{geo: geoCalc, opts: opts}, nil
}

// Base возвращает базовую геометрию: прямую между точками, уплотненную для выборки оценок
func (b *GeometryBuilder) Base(start, end models.Coordinate) ([]models.Coordinate, error) {
	if err := validateEndpoints(start, end); err != nil {
		return nil, err
	}
	return b.geo.Densify([]models.Coordinate{start, end}, b.opts.DensifyPoints), nil
}

// Build строит [start, ...точки объезда, end] для варианта.
// Точки объезда равномерно распределены вдоль прямой и смещены от нее перпендикулярно,
// нечетные влево на полное смещение, четные вправо на половину.
func (b *GeometryBuilder) Build(start, end models.Coordinate, variant models.VariantType) ([]models.Coordinate, error) {
	if err := validateEndpoints(start, end); err != nil {
		return nil, err
	}

	count, ok := b.opts.Waypoints[variant]
	if !ok {
		return nil, fmt.Errorf("unknown variant %q", variant)
	}

	offset := b.geo.DistanceMeters(start, end) * b.opts.DetourOffsetRatio * b.opts.OffsetScale[variant]

	points := make([]models.Coordinate, 0, count+2)
	points = append(points, start)
	for i := 1; i <= count; i++ {
		t := float64(i) / float64(count+1)
		side := offset
		if i%2 == 0 {
			side = -offset / 2
		}
		points = append(points, b.geo.OffsetPoint(start, end, t, side))
	}
	points = append(points, end)

	return b.geo.Densify(points, b.opts.DensifyPoints), nil
}

// Distance длина ломаной в метрах
func (b *GeometryBuilder) Distance(coords []models.Coordinate) float64 {
	return b.geo.PathLength(coords)
}

// Duration время в пути в секундах для заданного способа передвижения
func (b *GeometryBuilder) Duration(distanceMeters float64, mode models.TransportMode) (float64, error) {
	speed, ok := b.opts.SpeedsKmh[mode]
	if !ok {
		return 0, models.NewValidationError(models.ErrInvalidTransportMode, "preferences.transportMode",
			fmt.Sprintf("неизвестное значение %q", mode))
	}
	return distanceMeters / (speed * 1000 / 3600), nil
}

func validateEndpoints(start, end models.Coordinate) error {
	if err := start.Validate("start"); err != nil {
		return err
	}
	return end.Validate("end")
}
