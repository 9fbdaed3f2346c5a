package cache

import (
	"context"
	"time"

	"saferoute-go/pkg/models"
)

// weatherKeyPrecision 1 знак после запятой: погода одинакова в пределах ~11 км
const weatherKeyPrecision = 1

// WeatherSource источник текущей погоды в точке
type WeatherSource interface {
	CurrentCondition(ctx context.Context, coord models.Coordinate) (models.WeatherCondition, error)
}

// WeatherCache кэширует погоду по грубой сетке координат
type WeatherCache struct {
	next  WeatherSource
	cache *TTLCache[models.WeatherCondition]
}

// NewWeatherCache оборачивает источник погоды кэшем
func NewWeatherCache(next WeatherSource, ttl time.Duration, maxSize int) *WeatherCache {
	return &WeatherCache{
		next:  next,
		cache: NewTTLCache[models.WeatherCondition](ttl, maxSize),
	}
}

// CurrentCondition возвращает погоду из кэша или запрашивает источник
func (c *WeatherCache) CurrentCondition(ctx context.Context, coord models.Coordinate) (models.WeatherCondition, error) {
	key := CoordinateKey(coord, weatherKeyPrecision)
	if condition, ok := c.cache.Get(key); ok {
		return condition, nil
	}

	condition, err := c.next.CurrentCondition(ctx, coord)
	if err != nil {
		return "", err
	}
	c.cache.Set(key, condition)
	return condition, nil
}

// Purge удаляет устаревшие записи
func (c *WeatherCache) Purge() int {
	return c.cache.Purge()
}

// Stats статистика кэша
func (c *WeatherCache) Stats() Stats {
	return c.cache.Stats()
}
