package cache

import (
	"context"
	"time"

	"saferoute-go/internal/safety"
	"saferoute-go/pkg/models"

	"github.com/sirupsen/logrus"
)

// factorKeyPrecision 4 знака после запятой, около 11 метров на экваторе
const factorKeyPrecision = 4

// factorEntry хранит и отсутствие сигнала, чтобы не опрашивать пустые точки повторно
type factorEntry struct {
	reading *safety.FactorReading
}

// FactorCache кэширующая обертка над живым источником факторов.
// Ошибки источника не кэшируются.
type FactorCache struct {
	next   safety.FactorProvider
	cache  *TTLCache[factorEntry]
	logger *logrus.Logger
}

// NewFactorCache оборачивает источник факторов кэшем
func NewFactorCache(next safety.FactorProvider, ttl time.Duration, maxSize int, logger *logrus.Logger) *FactorCache {
	return &FactorCache{
		next:   next,
		cache:  NewTTLCache[factorEntry](ttl, maxSize),
		logger: logger,
	}
}

// Factors возвращает факторы из кэша или запрашивает источник
func (c *FactorCache) Factors(ctx context.Context, coord models.Coordinate) (*safety.FactorReading, error) {
	key := CoordinateKey(coord, factorKeyPrecision)
	if entry, ok := c.cache.Get(key); ok {
		return entry.reading, nil
	}

	reading, err := c.next.Factors(ctx, coord)
	if err != nil {
		return nil, err
	}

	c.cache.Set(key, factorEntry{reading: reading})
	c.logger.WithField("key", key).Debug("Факторы сохранены в кэш")
	return reading, nil
}

// Purge удаляет устаревшие записи
func (c *FactorCache) Purge() int {
	return c.cache.Purge()
}

// Stats статистика кэша
func (c *FactorCache) Stats() Stats {
	return c.cache.Stats()
}
