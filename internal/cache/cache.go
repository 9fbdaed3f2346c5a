package cache

import (
	"fmt"
	"math"
	"sync"
	"time"

	"saferoute-go/pkg/models"
)

type item[V any] struct {
	value     V
	expiresAt time.Time
	lastUsed  time.Time
}

// TTLCache потокобезопасный кэш в памяти с временем жизни записей
// и вытеснением давно неиспользуемых записей при переполнении.
type TTLCache[V any] struct {
	mu      sync.Mutex
	items   map[string]*item[V]
	ttl     time.Duration
	maxSize int
	now     func() time.Time

	hits   int64
	misses int64
}

// Stats статистика обращений к кэшу
type Stats struct {
	Size   int   `json:"size"`
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
}

// NewTTLCache создает кэш. maxSize <= 0 означает 1000 записей.
func NewTTLCache[V any](ttl time.Duration, maxSize int) *TTLCache[V] {
	if maxSize <= 0 {
		maxSize = 1000
	}
	return &TTLCache[V]{
		items:   make(map[string]*item[V]),
		ttl:     ttl,
		maxSize: maxSize,
		now:     time.Now,
	}
}

// Get возвращает значение, если оно есть и не устарело
func (c *TTLCache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	it, ok := c.items[key]
	if !ok {
		c.misses++
		return zero, false
	}

	now := c.now()
	if now.After(it.expiresAt) {
		delete(c.items, key)
		c.misses++
		return zero, false
	}

	it.lastUsed = now
	c.hits++
	return it.value, true
}

// Set сохраняет значение на время ttl
func (c *TTLCache[V]) Set(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.items[key]; !exists && len(c.items) >= c.maxSize {
		c.evictLRU()
	}

	now := c.now()
	c.items[key] = &item[V]{
		value:     value,
		expiresAt: now.Add(c.ttl),
		lastUsed:  now,
	}
}

// Purge удаляет устаревшие записи и возвращает их количество
func (c *TTLCache[V]) Purge() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for key, it := range c.items {
		if now.After(it.expiresAt) {
			delete(c.items, key)
			removed++
		}
	}
	return removed
}

// Len количество записей, включая еще не удаленные устаревшие
func (c *TTLCache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Stats возвращает статистику обращений
func (c *TTLCache[V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{Size: len(c.items), Hits: c.hits, Misses: c.misses}
}

// evictLRU удаляет запись, которая дольше всех не использовалась. Вызывается под блокировкой.
func (c *TTLCache[V]) evictLRU() {
	var oldestKey string
	var oldest time.Time
	first := true
	for key, it := range c.items {
		if first || it.lastUsed.Before(oldest) {
			oldestKey, oldest = key, it.lastUsed
			first = false
		}
	}
	if !first {
		delete(c.items, oldestKey)
	}
}

// CoordinateKey ключ кэша для точки, округленной до precision знаков после запятой
func CoordinateKey(coord models.Coordinate, precision int) string {
	scale := math.Pow(10, float64(precision))
	lat := math.Round(coord.Lat*scale) / scale
	lng := math.Round(coord.Lng*scale) / scale
	return fmt.Sprintf("%.*f:%.*f", precision, lat, precision, lng)
}
