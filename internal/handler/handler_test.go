package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"saferoute-go/internal/database"
	"saferoute-go/internal/geo"
	"saferoute-go/internal/repository"
	"saferoute-go/internal/routing"
	"saferoute-go/internal/safety"
	"saferoute-go/internal/service"
	"saferoute-go/pkg/models"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	router   *gin.Engine
	recorder *service.Recorder
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	db, err := database.Connect(database.Config{
		Driver:     "sqlite",
		SQLitePath: filepath.Join(t.TempDir(), "handler.db"),
	}, logger)
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() { _ = database.Close(db) })

	routeRepo := repository.NewRouteRepository(db)
	scoreRepo := repository.NewScoreRepository(db)
	recorder := service.NewRecorder(routeRepo, scoreRepo, service.DefaultRecorderOptions(), logger)
	t.Cleanup(func() { _ = recorder.Shutdown(context.Background()) })

	zones, err := safety.DefaultZones()
	require.NoError(t, err)
	calc, err := safety.NewCalculator(nil, zones, safety.DefaultOptions(), logger)
	require.NoError(t, err)
	batch := safety.NewBatchScorer(calc, safety.DefaultMaxBatchSize, logger)
	resolver := service.NewContextResolver(nil, time.UTC, time.Second, logger)

	geoCalc := geo.NewCalculator()
	geometry, err := routing.NewGeometryBuilder(geoCalc, routing.DefaultGeometryOptions())
	require.NoError(t, err)
	adjuster, err := routing.NewVariantAdjuster(routing.DefaultVariantTable())
	require.NoError(t, err)
	risk, err := routing.NewRiskDetector(routing.DefaultRiskThresholds())
	require.NoError(t, err)
	planner := routing.NewPlanner(geometry, adjuster, risk, calc, geoCalc, routing.DefaultPlannerOptions(), logger)

	safetyService := service.NewSafetyService(calc, batch, zones, resolver, recorder, scoreRepo, logger)
	routeService := service.NewRouteService(planner, resolver, recorder, routeRepo, logger)
	statusService := service.NewStatusService(db, nil, recorder, nil, safetyService, time.Second, logger)

	router := gin.New()
	NewRouteHandler(routeService, logger).RegisterRoutes(router)
	NewSafetyHandler(safetyService, logger).RegisterRoutes(router)
	NewHealthHandler(statusService, logger).RegisterRoutes(router)

	return &testServer{router: router, recorder: recorder}
}

func (s *testServer) flush(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.recorder.Shutdown(ctx))
}

func (s *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		payload, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, path, reader)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

var chennaiRoute = map[string]any{
	"start":       map[string]float64{"lat": 13.0827, "lng": 80.2707},
	"end":         map[string]float64{"lat": 13.0398, "lng": 80.2342},
	"preferences": map[string]any{"transportMode": "walking", "timeOfTravel": "afternoon", "weatherCondition": "clear"},
	"userId":      "user-1",
}

func TestPlanRoutes(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/api/v1/routes", chennaiRoute)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	plan := decode[models.RoutePlan](t, w)
	require.Len(t, plan.Routes, 3)
	assert.Equal(t, 3, plan.Summary.TotalRoutes)
	assert.NotEmpty(t, plan.Summary.RecommendedRoute)
	assert.Equal(t, routing.AlgorithmVersion, plan.Metadata.AlgorithmVersion)
	for _, route := range plan.Routes {
		assert.NotNil(t, route.RiskSegments)
		assert.NotEmpty(t, route.Polyline)
	}
}

func TestPlanRoutes_InvalidCoordinates(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/api/v1/routes", map[string]any{
		"start": map[string]float64{"lat": 95, "lng": 80.2707},
		"end":   map[string]float64{"lat": 13.0398, "lng": 80.2342},
	})
	require.Equal(t, http.StatusBadRequest, w.Code)

	resp := decode[ErrorResponse](t, w)
	require.NotEmpty(t, resp.Fields)
	assert.Equal(t, "start.lat", resp.Fields[0].Field)
}

func TestPlanRoutes_BadRequests(t *testing.T) {
	s := newTestServer(t)

	cases := []struct {
		name  string
		body  any
		field string
	}{
		{"missing end", map[string]any{"start": map[string]float64{"lat": 13, "lng": 80}}, "end.lat"},
		{"unknown transport", map[string]any{
			"start":       map[string]float64{"lat": 13, "lng": 80},
			"end":         map[string]float64{"lat": 13.01, "lng": 80.01},
			"preferences": map[string]any{"transportMode": "teleport"},
		}, "preferences.transportMode"},
		{"preference out of range", map[string]any{
			"start":       map[string]float64{"lat": 13, "lng": 80},
			"end":         map[string]float64{"lat": 13.01, "lng": 80.01},
			"preferences": map[string]any{"safetyPreference": 150},
		}, "preferences.safetyPreference"},
		{"unknown user type", map[string]any{
			"start":       map[string]float64{"lat": 13, "lng": 80},
			"end":         map[string]float64{"lat": 13.01, "lng": 80.01},
			"preferences": map[string]any{"userType": "skater"},
		}, "userType"},
		{"wrong type", `{"start": {"lat": "north", "lng": 80}}`, "start.lat"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := s.do(t, http.MethodPost, "/api/v1/routes", tc.body)
			require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
			resp := decode[ErrorResponse](t, w)
			require.NotEmpty(t, resp.Fields)
			assert.Equal(t, tc.field, resp.Fields[0].Field)
		})
	}

	w := s.do(t, http.MethodPost, "/api/v1/routes", "{not json")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStoredRoutes(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/api/v1/routes", chennaiRoute)
	require.Equal(t, http.StatusOK, w.Code)
	plan := decode[models.RoutePlan](t, w)
	s.flush(t)

	routeID := plan.Summary.RecommendedRoute

	w = s.do(t, http.MethodGet, "/api/v1/routes?routeId="+routeID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	stored := decode[service.RouteResponse](t, w)
	assert.Equal(t, routeID, stored.ID)
	assert.True(t, stored.Recommended)

	w = s.do(t, http.MethodGet, "/api/v1/routes/"+routeID, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	require.NotEmpty(t, stored.PlanID)
	w = s.do(t, http.MethodGet, "/api/v1/routes?planId="+stored.PlanID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	variants := decode[service.ListRoutesResponse](t, w)
	require.Len(t, variants.Routes, 3)
	types := map[models.VariantType]bool{}
	for _, route := range variants.Routes {
		assert.Equal(t, stored.PlanID, route.PlanID)
		types[route.Type] = true
	}
	assert.Len(t, types, 3)

	w = s.do(t, http.MethodGet, "/api/v1/routes?userId=user-1&page=1&size=2", nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[service.ListRoutesResponse](t, w)
	assert.Equal(t, int64(3), list.Total)
	assert.Len(t, list.Routes, 2)

	w = s.do(t, http.MethodGet, fmt.Sprintf("/api/v1/routes/%s/kml", routeID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/vnd.google-earth.kml+xml", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Body.String(), "<LineString>")

	w = s.do(t, http.MethodDelete, "/api/v1/routes/"+routeID, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodGet, "/api/v1/routes/"+routeID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, http.MethodDelete, "/api/v1/routes/"+routeID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListRoutes_RequiresFilter(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodGet, "/api/v1/routes", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodGet, "/api/v1/routes?routeId=missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, http.MethodGet, "/api/v1/routes?planId=missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSafetyScore_Single(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/api/v1/safety-score", map[string]any{
		"lat": 13.0398, "lng": 80.2342, "timeOfDay": "afternoon", "weatherCondition": "clear",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	resp := decode[map[string]any](t, w)
	assert.EqualValues(t, 75, resp["overall"])
	assert.Equal(t, "zone", resp["source"])
	levels, ok := resp["factorLevels"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, levels, "lighting")
}

func TestSafetyScore_Query(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodGet, "/api/v1/safety-score?lat=12.5&lng=81.5&timeOfDay=night&weatherCondition=clear", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decode[map[string]any](t, w)
	assert.EqualValues(t, 40, resp["overall"])

	w = s.do(t, http.MethodGet, "/api/v1/safety-score?lat=12.5", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodGet, "/api/v1/safety-score?lat=12.5&lng=200", nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
	resp2 := decode[ErrorResponse](t, w)
	require.NotEmpty(t, resp2.Fields)
	assert.Equal(t, "lng", resp2.Fields[0].Field)
}

func TestSafetyScore_SingleMissingCoordinate(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/api/v1/safety-score", map[string]any{"lat": 13.0})
	require.Equal(t, http.StatusBadRequest, w.Code)
	resp := decode[ErrorResponse](t, w)
	require.Len(t, resp.Fields, 1)
	assert.Equal(t, "lng", resp.Fields[0].Field)
}

func TestSafetyScore_Batch(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/api/v1/safety-score", map[string]any{
		"locations": []map[string]float64{
			{"lat": 13.0827, "lng": 80.2707},
			{"lat": 12.5, "lng": 81.5},
		},
		"timeOfDay":        "afternoon",
		"weatherCondition": "clear",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	resp := decode[BatchResponse](t, w)
	require.Len(t, resp.Results, 2)
	assert.Equal(t, 2, resp.Succeeded)
	assert.Equal(t, 0, resp.Results[0].Index)
	assert.Equal(t, 68, resp.Results[0].Score.Overall)
	assert.Equal(t, 60, resp.Results[1].Score.Overall)
}

func TestSafetyScore_BatchLimits(t *testing.T) {
	s := newTestServer(t)

	locations := make([]map[string]float64, 51)
	for i := range locations {
		locations[i] = map[string]float64{"lat": 13, "lng": 80}
	}
	w := s.do(t, http.MethodPost, "/api/v1/safety-score", map[string]any{"locations": locations})
	require.Equal(t, http.StatusBadRequest, w.Code)
	resp := decode[ErrorResponse](t, w)
	assert.Equal(t, "locations", resp.Fields[0].Field)

	w = s.do(t, http.MethodPost, "/api/v1/safety-score", map[string]any{"locations": []any{}})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPost, "/api/v1/safety-score", map[string]any{
		"locations": []map[string]float64{{"lat": 13, "lng": 80}, {"lat": 100, "lng": 80}},
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
	resp = decode[ErrorResponse](t, w)
	assert.Equal(t, "locations[1].lat", resp.Fields[0].Field)
}

func TestSafetyScore_History(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/api/v1/safety-score", map[string]any{"lat": 13.0398, "lng": 80.2342})
	require.Equal(t, http.StatusOK, w.Code)
	s.flush(t)

	w = s.do(t, http.MethodGet, "/api/v1/safety-score/history?lat=13.0398&lng=80.2342&limit=5", nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[map[string]any](t, w)
	assert.EqualValues(t, 1, resp["total"])

	w = s.do(t, http.MethodGet, "/api/v1/safety-score/history?lat=abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestZonesAndHealth(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodGet, "/api/v1/zones", nil)
	require.Equal(t, http.StatusOK, w.Code)
	zones := decode[map[string]any](t, w)
	assert.EqualValues(t, 9, zones["total"])

	w = s.do(t, http.MethodGet, "/api/v1/health", nil)
	require.Equal(t, http.StatusOK, w.Code)
	report := decode[service.HealthReport](t, w)
	assert.Equal(t, service.StatusHealthy, report.Status)
	assert.Equal(t, "disabled", report.Signals.Status)
}
