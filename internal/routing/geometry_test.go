package routing

import (
	"testing"

	"saferoute-go/internal/geo"
	"saferoute-go/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	chennaiCentral = models.Coordinate{Lat: 13.0827, Lng: 80.2707}
	tNagar         = models.Coordinate{Lat: 13.0398, Lng: 80.2342}
)

func newGeometryBuilder(t *testing.T) *GeometryBuilder {
	t.Helper()
	builder, err := NewGeometryBuilder(geo.NewCalculator(), DefaultGeometryOptions())
	require.NoError(t, err)
	return builder
}

func TestGeometryBuilder_Build(t *testing.T) {
	builder := newGeometryBuilder(t)

	tests := []struct {
		variant   models.VariantType
		waypoints int
	}{
		{models.VariantFastest, 0},
		{models.VariantBalanced, 1},
		{models.VariantSafest, 2},
	}

	for _, tt := range tests {
		t.Run(string(tt.variant), func(t *testing.T) {
			coords, err := builder.Build(chennaiCentral, tNagar, tt.variant)
			require.NoError(t, err)

			// 2 конечные точки + точки объезда, по 4 промежуточные на каждый из (waypoints+1) отрезков
			expected := tt.waypoints + 2 + (tt.waypoints+1)*4
			assert.Len(t, coords, expected)
			assert.Equal(t, chennaiCentral, coords[0])
			assert.Equal(t, tNagar, coords[len(coords)-1])
		})
	}
}

func TestGeometryBuilder_DetoursAreLonger(t *testing.T) {
	builder := newGeometryBuilder(t)

	fastest, err := builder.Build(chennaiCentral, tNagar, models.VariantFastest)
	require.NoError(t, err)
	balanced, err := builder.Build(chennaiCentral, tNagar, models.VariantBalanced)
	require.NoError(t, err)
	safest, err := builder.Build(chennaiCentral, tNagar, models.VariantSafest)
	require.NoError(t, err)

	straight := builder.Distance(fastest)
	assert.InDelta(t, 6196, straight, 50)
	assert.Greater(t, builder.Distance(balanced), straight)
	assert.Greater(t, builder.Distance(safest), builder.Distance(balanced))
}

func TestGeometryBuilder_Deterministic(t *testing.T) {
	builder := newGeometryBuilder(t)

	first, err := builder.Build(chennaiCentral, tNagar, models.VariantSafest)
	require.NoError(t, err)
	second, err := builder.Build(chennaiCentral, tNagar, models.VariantSafest)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestGeometryBuilder_InvalidInput(t *testing.T) {
	builder := newGeometryBuilder(t)

	_, err := builder.Build(models.Coordinate{Lat: 95, Lng: 0}, tNagar, models.VariantSafest)
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrInvalidCoordinate)

	var validationErr *models.ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, "start.lat", validationErr.Fields[0].Field)

	_, err = builder.Build(chennaiCentral, models.Coordinate{Lat: 0, Lng: 200}, models.VariantSafest)
	assert.ErrorIs(t, err, models.ErrInvalidCoordinate)

	_, err = builder.Build(chennaiCentral, tNagar, "scenic")
	assert.Error(t, err)
}

func TestGeometryBuilder_SameEndpoints(t *testing.T) {
	builder := newGeometryBuilder(t)

	coords, err := builder.Build(chennaiCentral, chennaiCentral, models.VariantSafest)
	require.NoError(t, err)
	assert.Zero(t, builder.Distance(coords))
}

func TestGeometryBuilder_Duration(t *testing.T) {
	builder := newGeometryBuilder(t)

	tests := []struct {
		mode     models.TransportMode
		expected float64
	}{
		{models.Walking, 720},
		{models.Cycling, 240},
		{models.Driving, 120},
	}
	for _, tt := range tests {
		duration, err := builder.Duration(1000, tt.mode)
		require.NoError(t, err)
		assert.InDelta(t, tt.expected, duration, 0.001, string(tt.mode))
	}

	_, err := builder.Duration(1000, "teleport")
	assert.ErrorIs(t, err, models.ErrInvalidTransportMode)
}

func TestNewGeometryBuilder_RejectsBadOptions(t *testing.T) {
	opts := DefaultGeometryOptions()
	opts.SpeedsKmh[models.Walking] = 0

	_, err := NewGeometryBuilder(geo.NewCalculator(), opts)
	assert.Error(t, err)
}
