package safety

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"os"

	"saferoute-go/pkg/models"

	"gopkg.in/yaml.v3"
)

//go:embed data/zones.yaml
var defaultZonesYAML []byte

// levelScores соответствие качественного уровня характеристики числовой оценке
var levelScores = map[string]int{
	"very_low":  20,
	"low":       35,
	"medium":    55,
	"high":      75,
	"very_high": 90,
}

// ZoneTable неизменяемая таблица профилей районов.
// Загружается один раз при старте и читается без блокировок.
type ZoneTable struct {
	zones []models.ZoneProfile
}

type zonesFile struct {
	Zones []models.ZoneProfile `yaml:"zones"`
}

// NewZoneTable создает таблицу из готового набора профилей
func NewZoneTable(zones []models.ZoneProfile) (*ZoneTable, error) {
	copied := make([]models.ZoneProfile, len(zones))
	for i, zone := range zones {
		if err := validateZone(zone); err != nil {
			return nil, fmt.Errorf("zone %d (%q): %w", i, zone.Name, err)
		}
		characteristics := make(map[string]string, len(zone.Characteristics))
		for k, v := range zone.Characteristics {
			characteristics[k] = v
		}
		zone.Characteristics = characteristics
		copied[i] = zone
	}
	return &ZoneTable{zones: copied}, nil
}

// LoadZones читает профили районов в формате YAML
func LoadZones(r io.Reader) (*ZoneTable, error) {
	var file zonesFile
	if err := yaml.NewDecoder(r).Decode(&file); err != nil {
		return nil, fmt.Errorf("failed to decode zones: %w", err)
	}
	return NewZoneTable(file.Zones)
}

// LoadZonesFile читает профили из файла. Пустой путь означает встроенный набор.
func LoadZonesFile(path string) (*ZoneTable, error) {
	if path == "" {
		return DefaultZones()
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open zones file: %w", err)
	}
	defer f.Close()

	return LoadZones(f)
}

// DefaultZones возвращает встроенный набор профилей
func DefaultZones() (*ZoneTable, error) {
	return LoadZones(bytes.NewReader(defaultZonesYAML))
}

// Lookup находит первый район, в границы которого попадает точка
func (t *ZoneTable) Lookup(coord models.Coordinate) (models.ZoneProfile, bool) {
	if t == nil {
		return models.ZoneProfile{}, false
	}
	for _, zone := range t.zones {
		if zone.BoundingBox.Contains(coord) {
			return zone, true
		}
	}
	return models.ZoneProfile{}, false
}

// Zones возвращает копию всех профилей
func (t *ZoneTable) Zones() []models.ZoneProfile {
	if t == nil {
		return nil
	}
	return append([]models.ZoneProfile(nil), t.zones...)
}

// Len количество загруженных профилей
func (t *ZoneTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.zones)
}

// ZoneFactors строит вектор факторов по профилю района.
// Уровень характеристики усредняется с базовой оценкой района, для hazards
// берется инвертированная базовая оценка. Без характеристики фактор равен базовой оценке.
func ZoneFactors(zone models.ZoneProfile) models.SafetyFactors {
	baseline := models.ClampScore(zone.BaselineScore)
	factor := func(base int, names ...string) int {
		for _, name := range names {
			if level, ok := zone.Characteristics[name]; ok {
				return blendLevel(levelScores[level], base)
			}
		}
		return base
	}

	return models.SafetyFactors{
		Lighting:        factor(baseline, "lighting"),
		Footfall:        factor(baseline, "footfall"),
		Hazards:         factor(100-baseline, "hazards"),
		ProximityToHelp: factor(baseline, "proximityToHelp", "proximity"),
	}.Clamp()
}

// blendLevel среднее уровня и базовой оценки с округлением вверх на половине
func blendLevel(level, base int) int {
	return (level + base + 1) / 2
}

func validateZone(zone models.ZoneProfile) error {
	if zone.Name == "" {
		return fmt.Errorf("name is required")
	}
	box := zone.BoundingBox
	if err := (models.Coordinate{Lat: box.MinLat, Lng: box.MinLng}).Validate("bounding_box.min"); err != nil {
		return err
	}
	if err := (models.Coordinate{Lat: box.MaxLat, Lng: box.MaxLng}).Validate("bounding_box.max"); err != nil {
		return err
	}
	if box.MinLat > box.MaxLat || box.MinLng > box.MaxLng {
		return fmt.Errorf("bounding box min must not exceed max")
	}
	if zone.BaselineScore < 0 || zone.BaselineScore > 100 {
		return fmt.Errorf("baseline score %d out of range 0-100", zone.BaselineScore)
	}
	for name, level := range zone.Characteristics {
		if _, ok := levelScores[level]; !ok {
			return fmt.Errorf("unknown level %q for %s", level, name)
		}
	}
	return nil
}
