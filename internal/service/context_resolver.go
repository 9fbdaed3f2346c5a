package service

import (
	"context"
	"time"

	"saferoute-go/internal/cache"
	"saferoute-go/pkg/models"

	"github.com/sirupsen/logrus"
)

// ContextResolver заполняет пропущенные поля контекста запроса:
// время суток по часам сервера в заданном часовом поясе, погоду из внешнего источника.
type ContextResolver struct {
	weather        cache.WeatherSource // может быть nil
	location       *time.Location
	weatherTimeout time.Duration
	logger         *logrus.Logger
	now            func() time.Time
}

// NewContextResolver создает резолвер. weather может быть nil, тогда погода по умолчанию clear.
func NewContextResolver(weather cache.WeatherSource, location *time.Location, weatherTimeout time.Duration, logger *logrus.Logger) *ContextResolver {
	if location == nil {
		location = time.UTC
	}
	if weatherTimeout <= 0 {
		weatherTimeout = 2 * time.Second
	}
	return &ContextResolver{
		weather:        weather,
		location:       location,
		weatherTimeout: weatherTimeout,
		logger:         logger,
		now:            time.Now,
	}
}

// Resolve проверяет контекст и подставляет недостающие значения для точки coord
func (r *ContextResolver) Resolve(ctx context.Context, coord models.Coordinate, sctx models.SafetyContext) (models.SafetyContext, error) {
	if err := sctx.Validate(); err != nil {
		return sctx, err
	}

	if sctx.TimeOfDay == "" {
		sctx.TimeOfDay = TimeOfDayAt(r.now().In(r.location))
	}

	if sctx.Weather == "" && r.weather != nil {
		wctx, cancel := context.WithTimeout(ctx, r.weatherTimeout)
		condition, err := r.weather.CurrentCondition(wctx, coord)
		cancel()
		if err != nil {
			r.logger.WithFields(logrus.Fields{
				"lat": coord.Lat,
				"lng": coord.Lng,
			}).Warnf("Не удалось получить погоду, используем clear: %v", err)
		} else {
			sctx.Weather = condition
		}
	}

	return sctx.WithDefaults(), nil
}

// TimeOfDayAt время суток для момента t: 5-11 утро, 12-16 день, 17-20 вечер, остальное ночь
func TimeOfDayAt(t time.Time) models.TimeOfDay {
	switch hour := t.Hour(); {
	case hour >= 5 && hour < 12:
		return models.Morning
	case hour >= 12 && hour < 17:
		return models.Afternoon
	case hour >= 17 && hour < 21:
		return models.Evening
	default:
		return models.Night
	}
}
