package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"saferoute-go/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWeatherClient_CurrentCondition(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/forecast", r.URL.Path)
		assert.Equal(t, "true", r.URL.Query().Get("current_weather"))
		assert.Equal(t, "13.0827", r.URL.Query().Get("latitude"))
		_, _ = w.Write([]byte(`{"current_weather":{"temperature":29.4,"windspeed":12.0,"weathercode":61}}`))
	}))
	defer server.Close()

	client := NewWeatherClient(server.URL, time.Second, newTestLogger())
	condition, err := client.CurrentCondition(context.Background(), models.Coordinate{Lat: 13.0827, Lng: 80.2707})
	require.NoError(t, err)
	assert.Equal(t, models.WeatherRainy, condition)
}

func TestWeatherClient_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"rate limited", http.StatusTooManyRequests, ""},
		{"server error", http.StatusBadGateway, "upstream down"},
		{"bad json", http.StatusOK, "{"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client := NewWeatherClient(server.URL, time.Second, newTestLogger())
			_, err := client.CurrentCondition(context.Background(), models.Coordinate{Lat: 1, Lng: 1})
			assert.Error(t, err)
		})
	}
}

func TestConditionFromWeatherCode(t *testing.T) {
	tests := []struct {
		code     int
		wind     float64
		expected models.WeatherCondition
	}{
		{0, 5, models.WeatherClear},
		{2, 5, models.WeatherCloudy},
		{45, 5, models.WeatherCloudy},
		{53, 5, models.WeatherRainy},
		{81, 5, models.WeatherRainy},
		{95, 5, models.WeatherStormy},
		{0, 75, models.WeatherStormy},
		{150, 5, models.WeatherClear},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, ConditionFromWeatherCode(tt.code, tt.wind), "code %d wind %.0f", tt.code, tt.wind)
	}
}

func TestNewWeatherClient_DefaultURL(t *testing.T) {
	client := NewWeatherClient("", time.Second, newTestLogger())
	assert.Equal(t, DefaultWeatherBaseURL, client.baseURL)
}
