package handler

import (
	"net/http"

	"saferoute-go/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// HealthHandler отдает состояние сервиса
type HealthHandler struct {
	statusService *service.StatusService
	logger        *logrus.Logger
}

// NewHealthHandler создает обработчик проверки состояния
func NewHealthHandler(statusService *service.StatusService, logger *logrus.Logger) *HealthHandler {
	return &HealthHandler{
		statusService: statusService,
		logger:        logger,
	}
}

// RegisterRoutes регистрирует маршруты API
func (h *HealthHandler) RegisterRoutes(router *gin.Engine) {
	router.GET("/api/v1/health", h.CheckHealth)
}

// CheckHealth проверяет состояние сервиса
func (h *HealthHandler) CheckHealth(c *gin.Context) {
	report := h.statusService.CheckHealth(c.Request.Context())

	if report.Status == service.StatusUnhealthy {
		h.logger.Errorf("Сервис недоступен: база данных %s", report.Database.Status)
		c.JSON(http.StatusServiceUnavailable, report)
		return
	}

	c.JSON(http.StatusOK, report)
}
