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

// HealthResponse ответ внешнего сервиса о своем состоянии
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
}

// SignalsAPIClient клиент геопространственного сервиса сырых сигналов безопасности
type SignalsAPIClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *logrus.Logger
}

// NewSignalsAPIClient создает новый клиент сервиса сигналов
func NewSignalsAPIClient(baseURL string, timeout time.Duration, logger *logrus.Logger) *SignalsAPIClient {
	return &SignalsAPIClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// FetchSignals запрашивает сырые сигналы для точки. Отмена ctx прерывает запрос.
func (c *SignalsAPIClient) FetchSignals(ctx context.Context, coord models.Coordinate) (*models.RawSignals, error) {
	params := url.Values{}
	params.Set("lat", strconv.FormatFloat(coord.Lat, 'f', 6, 64))
	params.Set("lng", strconv.FormatFloat(coord.Lng, 'f', 6, 64))
	requestURL := fmt.Sprintf("%s/signals?%s", c.baseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	c.logger.Debugf("Отправка GET запроса на %s", requestURL)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	// Нет данных для точки: не ошибка, просто нет сигнала
	if resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusNoContent {
		return nil, nil
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("signals API error %d: %s", resp.StatusCode, string(respBody))
	}

	var signals models.RawSignals
	if err := json.Unmarshal(respBody, &signals); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &signals, nil
}

// CheckHealth проверяет состояние сервиса сигналов
func (c *SignalsAPIClient) CheckHealth(ctx context.Context) (*HealthResponse, error) {
	c.logger.Debug("Проверка здоровья сервиса сигналов")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("signals API error %d: %s", resp.StatusCode, string(respBody))
	}

	var health HealthResponse
	if err := json.Unmarshal(respBody, &health); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &health, nil
}
