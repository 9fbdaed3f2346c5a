package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// clientIdleTTL через сколько неактивный клиент удаляется из таблицы
const clientIdleTTL = 10 * time.Minute

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter ограничивает частоту запросов отдельно для каждого IP
type RateLimiter struct {
	clients map[string]*clientLimiter
	mutex   sync.Mutex
	rps     rate.Limit
	burst   int
	cleanup *time.Ticker
	done    chan struct{}
	logger  *logrus.Logger
	now     func() time.Time
}

// NewRateLimiter создает ограничитель и запускает очистку неактивных клиентов
func NewRateLimiter(rps float64, burst int, logger *logrus.Logger) *RateLimiter {
	if burst <= 0 {
		burst = int(math.Max(1, math.Ceil(rps)))
	}
	rl := &RateLimiter{
		clients: make(map[string]*clientLimiter),
		rps:     rate.Limit(rps),
		burst:   burst,
		cleanup: time.NewTicker(time.Minute),
		done:    make(chan struct{}),
		logger:  logger,
		now:     time.Now,
	}
	go rl.cleanupLoop()
	return rl
}

// Handler middleware для gin
func (rl *RateLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		clientIP := c.ClientIP()
		limiter := rl.limiterFor(clientIP)

		if !limiter.AllowN(rl.now(), 1) {
			rl.logger.WithFields(logrus.Fields{
				"client_ip": clientIP,
				"path":      c.Request.URL.Path,
			}).Warn("Превышен лимит запросов")

			retryAfter := int(math.Ceil(1 / float64(rl.rps)))
			if retryAfter < 1 {
				retryAfter = 1
			}
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "Слишком много запросов, повторите позже",
			})
			return
		}

		c.Next()
	}
}

func (rl *RateLimiter) limiterFor(clientIP string) *rate.Limiter {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	client, ok := rl.clients[clientIP]
	if !ok {
		client = &clientLimiter{limiter: rate.NewLimiter(rl.rps, rl.burst)}
		rl.clients[clientIP] = client
	}
	client.lastSeen = rl.now()
	return client.limiter
}

func (rl *RateLimiter) cleanupLoop() {
	for {
		select {
		case <-rl.cleanup.C:
			rl.evictIdle()
		case <-rl.done:
			return
		}
	}
}

// evictIdle удаляет клиентов, не приходивших дольше clientIdleTTL
func (rl *RateLimiter) evictIdle() int {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	removed := 0
	now := rl.now()
	for ip, client := range rl.clients {
		if now.Sub(client.lastSeen) > clientIdleTTL {
			delete(rl.clients, ip)
			removed++
		}
	}
	return removed
}

// ActiveClients количество отслеживаемых клиентов
func (rl *RateLimiter) ActiveClients() int {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()
	return len(rl.clients)
}

// Shutdown останавливает фоновую очистку
func (rl *RateLimiter) Shutdown() {
	rl.cleanup.Stop()
	close(rl.done)
}
