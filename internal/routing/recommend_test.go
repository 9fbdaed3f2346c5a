package routing

import (
	"testing"

	"saferoute-go/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int {
	return &v
}

func TestSelectRecommended(t *testing.T) {
	routes := []models.RouteOption{
		{ID: "a", Type: models.VariantSafest},
		{ID: "b", Type: models.VariantFastest},
		{ID: "c", Type: models.VariantBalanced},
	}

	tests := []struct {
		name       string
		preference *int
		expected   models.VariantType
	}{
		{"strong safety preference", intPtr(85), models.VariantSafest},
		{"speed preference", intPtr(10), models.VariantFastest},
		{"middle preference", intPtr(50), models.VariantBalanced},
		{"no preference", nil, models.VariantBalanced},
		{"upper boundary is balanced", intPtr(70), models.VariantBalanced},
		{"lower boundary is balanced", intPtr(30), models.VariantBalanced},
		{"just above upper boundary", intPtr(71), models.VariantSafest},
		{"just below lower boundary", intPtr(29), models.VariantFastest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SelectRecommended(routes, tt.preference)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got.Type)
		})
	}
}

func TestSelectRecommended_FallsBackToFirst(t *testing.T) {
	routes := []models.RouteOption{
		{ID: "a", Type: models.VariantFastest},
		{ID: "b", Type: models.VariantSafest},
	}

	got, err := SelectRecommended(routes, nil)
	require.NoError(t, err)
	assert.Equal(t, "a", got.ID)

	got, err = SelectRecommended(routes[1:], intPtr(5))
	require.NoError(t, err)
	assert.Equal(t, "b", got.ID)
}

func TestSelectRecommended_Empty(t *testing.T) {
	_, err := SelectRecommended(nil, intPtr(50))
	assert.ErrorIs(t, err, models.ErrNoRoutes)
}
