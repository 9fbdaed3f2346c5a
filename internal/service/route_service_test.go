package service

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"saferoute-go/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRouteService_PlanAndRetrieve(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	plan, err := env.routes.PlanRoutes(ctx, PlanRoutesRequest{
		Start:   chennaiCentral,
		End:     tNagar,
		Context: afternoonClear,
		UserID:  "user-1",
	})
	require.NoError(t, err)
	require.Len(t, plan.Routes, 3)
	env.flush(t)

	list, err := env.routes.ListUserRoutes(ctx, "user-1", 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(3), list.Total)
	assert.Len(t, list.Routes, 3)

	stored, err := env.routes.GetRoute(ctx, plan.Summary.RecommendedRoute)
	require.NoError(t, err)
	assert.True(t, stored.Recommended)
	assert.Equal(t, plan.ID, stored.PlanID)
	assert.Equal(t, plan.Summary.RecommendedType, stored.Type)
	assert.Equal(t, models.Walking, stored.TransportMode)
	assert.Equal(t, chennaiCentral, stored.Start)
	assert.Equal(t, models.Afternoon, stored.Context.TimeOfDay)
	assert.NotEmpty(t, stored.Polyline)
}

func TestRouteService_ListPlanRoutes(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	plan, err := env.routes.PlanRoutes(ctx, PlanRoutesRequest{Start: chennaiCentral, End: tNagar, Context: afternoonClear})
	require.NoError(t, err)
	env.flush(t)

	variants, err := env.routes.ListPlanRoutes(ctx, plan.ID)
	require.NoError(t, err)
	require.Len(t, variants.Routes, 3)
	assert.Equal(t, int64(3), variants.Total)
	for _, route := range variants.Routes {
		assert.Equal(t, plan.ID, route.PlanID)
	}

	_, err = env.routes.ListPlanRoutes(ctx, "unknown-plan")
	assert.ErrorIs(t, err, models.ErrRouteNotFound)
}

func TestRouteService_PlanResolvesContext(t *testing.T) {
	env := newTestEnv(t)
	env.resolver.now = fixedClock(22)

	plan, err := env.routes.PlanRoutes(context.Background(), PlanRoutesRequest{Start: chennaiCentral, End: tNagar})
	require.NoError(t, err)
	assert.Equal(t, models.Night, plan.Context.TimeOfDay)
	assert.Equal(t, models.WeatherClear, plan.Context.Weather)
}

func TestRouteService_PlanRejectsInvalidCoordinates(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.routes.PlanRoutes(context.Background(), PlanRoutesRequest{
		Start: models.Coordinate{Lat: 95, Lng: 80},
		End:   tNagar,
	})
	require.ErrorIs(t, err, models.ErrInvalidCoordinate)

	var verr *models.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "start.lat", verr.Fields[0].Field)

	env.flush(t)
	assert.Zero(t, env.recorder.Stats().Written)
}

func TestRouteService_CancelledPlanPersistsNothing(t *testing.T) {
	env := newTestEnv(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := env.routes.PlanRoutes(ctx, PlanRoutesRequest{Start: chennaiCentral, End: tNagar})
	assert.Error(t, err)

	env.flush(t)
	assert.Zero(t, env.recorder.Stats().Written)
}

func TestRouteService_DeleteAndExport(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	plan, err := env.routes.PlanRoutes(ctx, PlanRoutesRequest{Start: chennaiCentral, End: tNagar, UserID: "user-2"})
	require.NoError(t, err)
	env.flush(t)

	routeID := plan.Routes[0].ID

	var buf bytes.Buffer
	require.NoError(t, env.routes.ExportKML(ctx, routeID, &buf))
	assert.Contains(t, buf.String(), "<LineString>")

	require.NoError(t, env.routes.DeleteRoute(ctx, routeID))

	_, err = env.routes.GetRoute(ctx, routeID)
	assert.ErrorIs(t, err, models.ErrRouteNotFound)

	err = env.routes.DeleteRoute(ctx, routeID)
	assert.ErrorIs(t, err, models.ErrRouteNotFound)

	err = env.routes.ExportKML(ctx, routeID, &buf)
	assert.ErrorIs(t, err, models.ErrRouteNotFound)
}
