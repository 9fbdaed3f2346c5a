package geo

import (
	"fmt"
	"math"

	"saferoute-go/pkg/models"

	"github.com/twpayne/go-polyline"
)

const (
	earthRadiusKm   = 6371.0
	metersPerDegree = 111320.0
)

// Calculator для географических вычислений
type Calculator struct{}

// NewCalculator создает новый калькулятор
func NewCalculator() *Calculator {
	return &Calculator{}
}

// DistanceMeters вычисляет расстояние между двумя точками в метрах
// Использует формулу гаверсинуса
func (c *Calculator) DistanceMeters(point1, point2 models.Coordinate) float64 {
	if point1 == point2 {
		return 0
	}

	// Преобразуем градусы в радианы
	lat1Rad := point1.Lat * math.Pi / 180
	lon1Rad := point1.Lng * math.Pi / 180
	lat2Rad := point2.Lat * math.Pi / 180
	lon2Rad := point2.Lng * math.Pi / 180

	deltaLat := lat2Rad - lat1Rad
	deltaLon := lon2Rad - lon1Rad

	// Формула гаверсинуса
	a := math.Sin(deltaLat/2)*math.Sin(deltaLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*
			math.Sin(deltaLon/2)*math.Sin(deltaLon/2)

	chord := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusKm * chord * 1000
}

// PathLength суммирует расстояния между соседними точками
func (c *Calculator) PathLength(coords []models.Coordinate) float64 {
	total := 0.0
	for i := 1; i < len(coords); i++ {
		total += c.DistanceMeters(coords[i-1], coords[i])
	}
	return total
}

// InterpolateCoordinates создает интерполированные координаты между двумя точками
func (c *Calculator) InterpolateCoordinates(start, end models.Coordinate, numPoints int) []models.Coordinate {
	if numPoints <= 0 {
		return []models.Coordinate{}
	}

	if numPoints == 1 {
		return []models.Coordinate{start}
	}

	coords := make([]models.Coordinate, numPoints)
	for i := 0; i < numPoints; i++ {
		// Линейная интерполяция
		ratio := float64(i) / float64(numPoints-1)
		coords[i] = models.Coordinate{
			Lat: start.Lat + (end.Lat-start.Lat)*ratio,
			Lng: start.Lng + (end.Lng-start.Lng)*ratio,
		}
	}

	return coords
}

// Densify добавляет perLeg промежуточных точек между каждой парой соседних точек
func (c *Calculator) Densify(coords []models.Coordinate, perLeg int) []models.Coordinate {
	if len(coords) < 2 || perLeg <= 0 {
		return append([]models.Coordinate(nil), coords...)
	}

	result := make([]models.Coordinate, 0, len(coords)+(len(coords)-1)*perLeg)
	for i := 0; i < len(coords)-1; i++ {
		leg := c.InterpolateCoordinates(coords[i], coords[i+1], perLeg+2)
		// Последняя точка отрезка совпадает с первой точкой следующего
		result = append(result, leg[:len(leg)-1]...)
	}
	return append(result, coords[len(coords)-1])
}

// OffsetPoint возвращает точку на доле t прямой start-end, смещенную перпендикулярно
// на offsetMeters (положительное значение - влево по ходу движения).
// Используется локальная равнопромежуточная проекция, пригодная для городских масштабов.
func (c *Calculator) OffsetPoint(start, end models.Coordinate, t, offsetMeters float64) models.Coordinate {
	base := models.Coordinate{
		Lat: start.Lat + (end.Lat-start.Lat)*t,
		Lng: start.Lng + (end.Lng-start.Lng)*t,
	}

	metersPerLng := metersPerDegree * math.Cos(base.Lat*math.Pi/180)
	dx := (end.Lng - start.Lng) * metersPerLng
	dy := (end.Lat - start.Lat) * metersPerDegree
	length := math.Hypot(dx, dy)
	if length == 0 || metersPerLng == 0 {
		return base
	}

	// Нормаль слева от направления движения
	nx, ny := -dy/length, dx/length

	shifted := models.Coordinate{
		Lat: base.Lat + ny*offsetMeters/metersPerDegree,
		Lng: base.Lng + nx*offsetMeters/metersPerLng,
	}
	shifted.Lat = math.Max(-90, math.Min(90, shifted.Lat))
	shifted.Lng = math.Max(-180, math.Min(180, shifted.Lng))
	return shifted
}

// EncodePolyline кодирует последовательность точек в формат Google encoded polyline
func (c *Calculator) EncodePolyline(coords []models.Coordinate) string {
	pairs := make([][]float64, len(coords))
	for i, coord := range coords {
		pairs[i] = []float64{coord.Lat, coord.Lng}
	}
	return string(polyline.EncodeCoords(pairs))
}

// DecodePolyline декодирует encoded polyline в последовательность точек
func (c *Calculator) DecodePolyline(encoded string) ([]models.Coordinate, error) {
	if encoded == "" {
		return nil, fmt.Errorf("encoded polyline is empty")
	}

	pairs, _, err := polyline.DecodeCoords([]byte(encoded))
	if err != nil {
		return nil, fmt.Errorf("failed to decode polyline: %w", err)
	}

	coords := make([]models.Coordinate, len(pairs))
	for i, pair := range pairs {
		coords[i] = models.Coordinate{Lat: pair[0], Lng: pair[1]}
		if err := coords[i].Validate(""); err != nil {
			return nil, fmt.Errorf("decoded polyline point %d: %w", i, err)
		}
	}
	return coords, nil
}
