package geo

import (
	"fmt"
	"io"

	"saferoute-go/pkg/models"

	"github.com/twpayne/go-kml"
)

// KMLRoute данные одного варианта маршрута для выгрузки в KML
type KMLRoute struct {
	Name        string
	Description string
	Coordinates []models.Coordinate
}

// WriteKML пишет документ KML с линией маршрута и метками начала и конца
func WriteKML(w io.Writer, route KMLRoute) error {
	if len(route.Coordinates) < 2 {
		return fmt.Errorf("kml export needs at least 2 points, got %d", len(route.Coordinates))
	}

	line := make([]kml.Coordinate, len(route.Coordinates))
	for i, c := range route.Coordinates {
		line[i] = kml.Coordinate{Lon: c.Lng, Lat: c.Lat}
	}
	first := line[0]
	last := line[len(line)-1]

	doc := kml.KML(
		kml.Document(
			kml.Name(route.Name),
			kml.Placemark(
				kml.Name(route.Name),
				kml.Description(route.Description),
				kml.LineString(
					kml.Tessellate(true),
					kml.Coordinates(line...),
				),
			),
			kml.Placemark(
				kml.Name("Старт"),
				kml.Point(kml.Coordinates(first)),
			),
			kml.Placemark(
				kml.Name("Финиш"),
				kml.Point(kml.Coordinates(last)),
			),
		),
	)

	if err := doc.WriteIndent(w, "", "  "); err != nil {
		return fmt.Errorf("failed to write kml: %w", err)
	}
	return nil
}
