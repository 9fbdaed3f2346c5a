package handler

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"

	"saferoute-go/internal/service"
	"saferoute-go/pkg/models"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// coordinateRequest точка в теле запроса
type coordinateRequest struct {
	Lat *float64 `json:"lat" binding:"required,min=-90,max=90"`
	Lng *float64 `json:"lng" binding:"required,min=-180,max=180"`
}

func (r coordinateRequest) toModel() models.Coordinate {
	return models.Coordinate{Lat: *r.Lat, Lng: *r.Lng}
}

// preferencesRequest пожелания к маршруту
type preferencesRequest struct {
	SafetyPreference *int   `json:"safetyPreference" binding:"omitempty,min=0,max=100"`
	TransportMode    string `json:"transportMode"`
	TimeOfTravel     string `json:"timeOfTravel"`
	WeatherCondition string `json:"weatherCondition"`
	UserType         string `json:"userType"`
}

// planRoutesRequest тело POST /routes
type planRoutesRequest struct {
	Start       coordinateRequest   `json:"start"`
	End         coordinateRequest   `json:"end"`
	Preferences *preferencesRequest `json:"preferences"`
	UserID      string              `json:"userId" binding:"omitempty,max=64"`
}

// RouteHandler обрабатывает HTTP запросы для работы с маршрутами
type RouteHandler struct {
	routeService *service.RouteService
	logger       *logrus.Logger
}

// NewRouteHandler создает новый экземпляр RouteHandler
func NewRouteHandler(routeService *service.RouteService, logger *logrus.Logger) *RouteHandler {
	useJSONFieldNames()
	return &RouteHandler{
		routeService: routeService,
		logger:       logger,
	}
}

// RegisterRoutes регистрирует маршруты API
func (h *RouteHandler) RegisterRoutes(router *gin.Engine) {
	api := router.Group("/api/v1")
	{
		api.POST("/routes", h.PlanRoutes)
		api.GET("/routes", h.ListRoutes)
		api.GET("/routes/:id", h.GetRoute)
		api.DELETE("/routes/:id", h.DeleteRoute)
		api.GET("/routes/:id/kml", h.ExportKML)
	}
}

// PlanRoutes строит три варианта маршрута между двумя точками
func (h *RouteHandler) PlanRoutes(c *gin.Context) {
	var req planRoutesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Debugf("Ошибка разбора запроса маршрута: %v", err)
		c.JSON(http.StatusBadRequest, bindError(err))
		return
	}

	input := service.PlanRoutesRequest{
		Start:  req.Start.toModel(),
		End:    req.End.toModel(),
		UserID: req.UserID,
	}
	if p := req.Preferences; p != nil {
		mode, err := models.ParseTransportMode(p.TransportMode)
		if err != nil {
			writeError(c, h.logger, err)
			return
		}
		input.TransportMode = mode
		input.SafetyPreference = p.SafetyPreference
		input.Context = models.SafetyContext{
			TimeOfDay: models.TimeOfDay(p.TimeOfTravel),
			Weather:   models.WeatherCondition(p.WeatherCondition),
			UserType:  models.UserType(p.UserType),
		}
	}

	plan, err := h.routeService.PlanRoutes(c.Request.Context(), input)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, plan)
}

// ListRoutes возвращает один маршрут по routeId, варианты одного расчета по planId
// или маршруты пользователя по userId
func (h *RouteHandler) ListRoutes(c *gin.Context) {
	if routeID := c.Query("routeId"); routeID != "" {
		h.respondRoute(c, routeID)
		return
	}

	if planID := c.Query("planId"); planID != "" {
		response, err := h.routeService.ListPlanRoutes(c.Request.Context(), planID)
		if err != nil {
			writeError(c, h.logger, err)
			return
		}
		c.JSON(http.StatusOK, response)
		return
	}

	userID := c.Query("userId")
	if userID == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:  "Отсутствуют обязательные параметры",
			Fields: []models.FieldError{{Field: "userId", Message: "нужен routeId, planId или userId"}},
		})
		return
	}

	// Получаем параметры пагинации
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}

	size, err := strconv.Atoi(c.DefaultQuery("size", "10"))
	if err != nil || size < 1 || size > 100 {
		size = 10
	}

	response, err := h.routeService.ListUserRoutes(c.Request.Context(), userID, page, size)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, response)
}

// GetRoute возвращает маршрут по ID
func (h *RouteHandler) GetRoute(c *gin.Context) {
	h.respondRoute(c, c.Param("id"))
}

func (h *RouteHandler) respondRoute(c *gin.Context, routeID string) {
	route, err := h.routeService.GetRoute(c.Request.Context(), routeID)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, route)
}

// DeleteRoute удаляет маршрут по ID
func (h *RouteHandler) DeleteRoute(c *gin.Context) {
	routeID := c.Param("id")
	h.logger.Infof("Получен запрос на удаление маршрута с ID: %s", routeID)

	if err := h.routeService.DeleteRoute(c.Request.Context(), routeID); err != nil {
		writeError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Маршрут успешно удален"})
}

// ExportKML отдает геометрию маршрута файлом KML
func (h *RouteHandler) ExportKML(c *gin.Context) {
	routeID := c.Param("id")

	var buf bytes.Buffer
	if err := h.routeService.ExportKML(c.Request.Context(), routeID, &buf); err != nil {
		writeError(c, h.logger, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "route-"+routeID+".kml"))
	c.Data(http.StatusOK, "application/vnd.google-earth.kml+xml", buf.Bytes())
}
