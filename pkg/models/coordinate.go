package models

import (
	"fmt"
	"math"
)

// Coordinate представляет географические координаты в десятичных градусах
type Coordinate struct {
	Lat float64 `json:"lat"` // Широта
	Lng float64 `json:"lng"` // Долгота
}

// Validate проверяет, что координаты находятся в допустимых диапазонах.
// prefix используется в имени поля ошибки (например "start" -> "start.lat").
func (c Coordinate) Validate(prefix string) error {
	latField, lngField := "lat", "lng"
	if prefix != "" {
		latField = prefix + ".lat"
		lngField = prefix + ".lng"
	}

	if math.IsNaN(c.Lat) || math.IsInf(c.Lat, 0) || c.Lat < -90 || c.Lat > 90 {
		return NewValidationError(ErrInvalidCoordinate, latField,
			fmt.Sprintf("должна быть в диапазоне от -90 до 90, получено %v", c.Lat))
	}
	if math.IsNaN(c.Lng) || math.IsInf(c.Lng, 0) || c.Lng < -180 || c.Lng > 180 {
		return NewValidationError(ErrInvalidCoordinate, lngField,
			fmt.Sprintf("должна быть в диапазоне от -180 до 180, получено %v", c.Lng))
	}
	return nil
}

// String возвращает координаты в виде "lat,lng"
func (c Coordinate) String() string {
	return fmt.Sprintf("%.6f,%.6f", c.Lat, c.Lng)
}
