package safety

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"saferoute-go/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultZones(t *testing.T) {
	zones, err := DefaultZones()
	require.NoError(t, err)
	assert.Equal(t, 9, zones.Len())

	zone, ok := zones.Lookup(tNagar)
	require.True(t, ok)
	assert.Equal(t, "T. Nagar", zone.Name)
	assert.Equal(t, 72, zone.BaselineScore)

	_, ok = zones.Lookup(openSea)
	assert.False(t, ok)
}

func TestZoneTable_NilSafe(t *testing.T) {
	var zones *ZoneTable

	_, ok := zones.Lookup(tNagar)
	assert.False(t, ok)
	assert.Zero(t, zones.Len())
	assert.Nil(t, zones.Zones())
}

func TestZoneTable_ZonesReturnsCopy(t *testing.T) {
	zones, err := DefaultZones()
	require.NoError(t, err)

	list := zones.Zones()
	list[0].Name = "changed"

	assert.NotEqual(t, "changed", zones.Zones()[0].Name)
}

func TestLoadZones(t *testing.T) {
	input := `
zones:
  - name: Test Square
    bounding_box: {min_lat: 1.0, max_lat: 2.0, min_lng: 3.0, max_lng: 4.0}
    baseline_score: 50
    characteristics:
      lighting: very_high
      proximity: low
`
	zones, err := LoadZones(strings.NewReader(input))
	require.NoError(t, err)

	zone, ok := zones.Lookup(models.Coordinate{Lat: 1.5, Lng: 3.5})
	require.True(t, ok)

	factors := ZoneFactors(zone)
	assert.Equal(t, 70, factors.Lighting)
	assert.Equal(t, 50, factors.Footfall)
	assert.Equal(t, 50, factors.Hazards)
	assert.Equal(t, 43, factors.ProximityToHelp)
}

func TestLoadZones_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"malformed yaml", "zones: [: :"},
		{"missing name", `
zones:
  - bounding_box: {min_lat: 1, max_lat: 2, min_lng: 1, max_lng: 2}
    baseline_score: 50
`},
		{"inverted box", `
zones:
  - name: Bad
    bounding_box: {min_lat: 2, max_lat: 1, min_lng: 1, max_lng: 2}
    baseline_score: 50
`},
		{"baseline out of range", `
zones:
  - name: Bad
    bounding_box: {min_lat: 1, max_lat: 2, min_lng: 1, max_lng: 2}
    baseline_score: 150
`},
		{"unknown level", `
zones:
  - name: Bad
    bounding_box: {min_lat: 1, max_lat: 2, min_lng: 1, max_lng: 2}
    baseline_score: 50
    characteristics:
      lighting: blinding
`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadZones(strings.NewReader(tt.input))
			assert.Error(t, err)
		})
	}
}

func TestLoadZonesFile(t *testing.T) {
	zones, err := LoadZonesFile("")
	require.NoError(t, err)
	assert.Equal(t, 9, zones.Len())

	path := filepath.Join(t.TempDir(), "zones.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
zones:
  - name: Only
    bounding_box: {min_lat: 0, max_lat: 1, min_lng: 0, max_lng: 1}
    baseline_score: 40
`), 0o600))

	zones, err = LoadZonesFile(path)
	require.NoError(t, err)
	assert.Equal(t, 1, zones.Len())

	_, err = LoadZonesFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadZonesFile_ConfigsExample(t *testing.T) {
	zones, err := LoadZonesFile(filepath.Join("..", "..", "configs", "zones.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 2, zones.Len())

	zone, ok := zones.Lookup(tNagar)
	require.True(t, ok)
	assert.Equal(t, "T. Nagar", zone.Name)
}
