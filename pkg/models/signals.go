package models

// RawSignals сырые сигналы внешнего геопровайдера для точки
type RawSignals struct {
	LightIntensity    float64  `json:"light_intensity"`     // Ночная яркость VIIRS, 0-1
	POICount          int      `json:"poi_count"`           // Количество точек интереса поблизости
	DarkSpots         int      `json:"dark_spots"`          // Неосвещенные места из муниципальных данных
	HazardReports     int      `json:"hazard_reports"`      // Сообщения пользователей об опасностях
	EmergencyServices int      `json:"emergency_services"`  // Полиция, больницы, пожарные в радиусе 1 км
	NearestHelpMeters float64  `json:"nearest_help_meters"` // Расстояние до ближайшей службы, 0 если неизвестно
	Samples           int      `json:"samples"`             // Количество наблюдений, из которых собраны сигналы
	Sources           []string `json:"sources"`             // Источники данных
}
