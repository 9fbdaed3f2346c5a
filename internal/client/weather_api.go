package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"saferoute-go/pkg/models"

	"github.com/sirupsen/logrus"
)

// DefaultWeatherBaseURL публичный адрес Open-Meteo
const DefaultWeatherBaseURL = "https://api.open-meteo.com"

// stormWindKmh скорость ветра, начиная с которой погода считается штормовой
const stormWindKmh = 60

type currentWeatherResponse struct {
	CurrentWeather struct {
		Temperature float64 `json:"temperature"`
		WindSpeed   float64 `json:"windspeed"`
		WeatherCode int     `json:"weathercode"`
	} `json:"current_weather"`
}

// WeatherClient клиент Open-Meteo для определения текущей погоды в точке
type WeatherClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *logrus.Logger
}

// NewWeatherClient создает клиент погоды
func NewWeatherClient(baseURL string, timeout time.Duration, logger *logrus.Logger) *WeatherClient {
	if baseURL == "" {
		baseURL = DefaultWeatherBaseURL
	}
	return &WeatherClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// CurrentCondition возвращает текущую погоду в точке в терминах WeatherCondition
func (c *WeatherClient) CurrentCondition(ctx context.Context, coord models.Coordinate) (models.WeatherCondition, error) {
	params := url.Values{}
	params.Set("latitude", strconv.FormatFloat(coord.Lat, 'f', 4, 64))
	params.Set("longitude", strconv.FormatFloat(coord.Lng, 'f', 4, 64))
	params.Set("current_weather", "true")
	requestURL := fmt.Sprintf("%s/v1/forecast?%s", c.baseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return "", fmt.Errorf("weather rate limit exceeded")
	}
	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("weather API error %d: %s", resp.StatusCode, string(body))
	}

	var response currentWeatherResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}

	condition := ConditionFromWeatherCode(response.CurrentWeather.WeatherCode, response.CurrentWeather.WindSpeed)
	c.logger.WithFields(logrus.Fields{
		"lat":       coord.Lat,
		"lng":       coord.Lng,
		"code":      response.CurrentWeather.WeatherCode,
		"condition": condition,
	}).Debug("Получена текущая погода")

	return condition, nil
}

// ConditionFromWeatherCode переводит код погоды WMO в одну из четырех категорий
func ConditionFromWeatherCode(code int, windSpeedKmh float64) models.WeatherCondition {
	if windSpeedKmh >= stormWindKmh {
		return models.WeatherStormy
	}

	switch {
	case code == 0:
		return models.WeatherClear
	case code >= 1 && code <= 3, code == 45, code == 48:
		return models.WeatherCloudy
	case code >= 51 && code <= 86:
		return models.WeatherRainy
	case code >= 95 && code <= 99:
		return models.WeatherStormy
	default:
		return models.WeatherClear
	}
}
