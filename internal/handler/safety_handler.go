package handler

import (
	"net/http"
	"strconv"

	"saferoute-go/internal/service"
	"saferoute-go/pkg/models"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
)

// safetyScoreRequest тело POST /safety-score: одна точка (lat, lng) или пакет (locations).
// Некорректная точка пакета отклоняет весь запрос до расчета.
type safetyScoreRequest struct {
	Lat              *float64            `json:"lat" binding:"omitempty,min=-90,max=90"`
	Lng              *float64            `json:"lng" binding:"omitempty,min=-180,max=180"`
	Locations        []coordinateRequest `json:"locations" binding:"omitempty,dive"`
	UserType         string              `json:"userType"`
	TimeOfDay        string              `json:"timeOfDay"`
	WeatherCondition string              `json:"weatherCondition"`
}

func (r safetyScoreRequest) context() models.SafetyContext {
	return models.SafetyContext{
		TimeOfDay: models.TimeOfDay(r.TimeOfDay),
		Weather:   models.WeatherCondition(r.WeatherCondition),
		UserType:  models.UserType(r.UserType),
	}
}

// safetyScoreQuery параметры GET /safety-score
type safetyScoreQuery struct {
	Lat              *float64 `form:"lat" binding:"required"`
	Lng              *float64 `form:"lng" binding:"required"`
	UserType         string   `form:"userType"`
	TimeOfDay        string   `form:"timeOfDay"`
	WeatherCondition string   `form:"weatherCondition"`
}

// ScoreResponse оценка точки с уровнями факторов для отображения
type ScoreResponse struct {
	*models.SafetyScoreResult
	FactorLevels map[string]string `json:"factorLevels"`
}

// BatchItemResponse результат одной точки пакета
type BatchItemResponse struct {
	Index    int               `json:"index"`
	Location models.Coordinate `json:"location"`
	Score    *ScoreResponse    `json:"score,omitempty"`
	Error    *ErrorResponse    `json:"error,omitempty"`
}

// BatchResponse ответ пакетного расчета
type BatchResponse struct {
	Results   []BatchItemResponse `json:"results"`
	Total     int                 `json:"total"`
	Succeeded int                 `json:"succeeded"`
	Failed    int                 `json:"failed"`
}

func newScoreResponse(result *models.SafetyScoreResult) *ScoreResponse {
	return &ScoreResponse{
		SafetyScoreResult: result,
		FactorLevels: map[string]string{
			"lighting":        models.FactorLevel(result.Factors.Lighting),
			"footfall":        models.FactorLevel(result.Factors.Footfall),
			"hazards":         models.FactorLevel(result.Factors.Hazards),
			"proximityToHelp": models.FactorLevel(result.Factors.ProximityToHelp),
			"overall":         models.FactorLevel(result.Overall),
		},
	}
}

// SafetyHandler обрабатывает запросы оценки безопасности
type SafetyHandler struct {
	safetyService *service.SafetyService
	logger        *logrus.Logger
}

// NewSafetyHandler создает обработчик оценки безопасности
func NewSafetyHandler(safetyService *service.SafetyService, logger *logrus.Logger) *SafetyHandler {
	useJSONFieldNames()
	return &SafetyHandler{
		safetyService: safetyService,
		logger:        logger,
	}
}

// RegisterRoutes регистрирует маршруты API
func (h *SafetyHandler) RegisterRoutes(router *gin.Engine) {
	api := router.Group("/api/v1")
	{
		api.POST("/safety-score", h.Score)
		api.GET("/safety-score", h.ScoreQuery)
		api.GET("/safety-score/history", h.History)
		api.GET("/zones", h.Zones)
	}
}

// Score считает оценку одной точки или пакета точек
func (h *SafetyHandler) Score(c *gin.Context) {
	var req safetyScoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, bindError(err))
		return
	}

	if req.Locations != nil {
		h.scoreBatch(c, req)
		return
	}
	if fields := missingPoint(req); len(fields) > 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Некорректные параметры запроса", Fields: fields})
		return
	}

	result, err := h.safetyService.Score(c.Request.Context(), models.Coordinate{Lat: *req.Lat, Lng: *req.Lng}, req.context())
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, newScoreResponse(result))
}

// missingPoint проверяет, что для одиночного запроса указаны обе координаты
func missingPoint(req safetyScoreRequest) []models.FieldError {
	var fields []models.FieldError
	if req.Lat == nil {
		fields = append(fields, models.FieldError{Field: "lat", Message: "обязательное поле"})
	}
	if req.Lng == nil {
		fields = append(fields, models.FieldError{Field: "lng", Message: "обязательное поле"})
	}
	return fields
}

func (h *SafetyHandler) scoreBatch(c *gin.Context, req safetyScoreRequest) {
	locations := make([]models.Coordinate, len(req.Locations))
	for i, loc := range req.Locations {
		locations[i] = loc.toModel()
	}

	items, err := h.safetyService.ScoreBatch(c.Request.Context(), locations, req.context())
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	response := BatchResponse{Results: make([]BatchItemResponse, len(items)), Total: len(items)}
	for i, item := range items {
		entry := BatchItemResponse{Index: item.Index, Location: item.Location}
		if item.Err != nil {
			entry.Error = &ErrorResponse{Error: item.Err.Error()}
			response.Failed++
		} else {
			entry.Score = newScoreResponse(item.Result)
			response.Succeeded++
		}
		response.Results[i] = entry
	}

	h.logger.WithFields(logrus.Fields{
		"total":  response.Total,
		"failed": response.Failed,
	}).Debug("Пакетный расчет завершен")

	c.JSON(http.StatusOK, response)
}

// ScoreQuery считает оценку точки из параметров строки запроса
func (h *SafetyHandler) ScoreQuery(c *gin.Context) {
	var q safetyScoreQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, bindError(err))
		return
	}

	result, err := h.safetyService.Score(c.Request.Context(), models.Coordinate{Lat: *q.Lat, Lng: *q.Lng}, models.SafetyContext{
		TimeOfDay: models.TimeOfDay(q.TimeOfDay),
		Weather:   models.WeatherCondition(q.WeatherCondition),
		UserType:  models.UserType(q.UserType),
	})
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, newScoreResponse(result))
}

// History последние сохраненные оценки рядом с точкой
func (h *SafetyHandler) History(c *gin.Context) {
	lat, errLat := strconv.ParseFloat(c.Query("lat"), 64)
	lng, errLng := strconv.ParseFloat(c.Query("lng"), 64)
	if errLat != nil || errLng != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Отсутствуют обязательные параметры: lat, lng"})
		return
	}

	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultHistoryLimit)))
	if err != nil || limit < 1 || limit > maxHistoryLimit {
		limit = defaultHistoryLimit
	}

	history, err := h.safetyService.History(c.Request.Context(), models.Coordinate{Lat: lat, Lng: lng}, limit)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"history": history, "total": len(history)})
}

// Zones список загруженных профилей районов
func (h *SafetyHandler) Zones(c *gin.Context) {
	zones := h.safetyService.Zones()
	c.JSON(http.StatusOK, gin.H{"zones": zones, "total": len(zones)})
}
