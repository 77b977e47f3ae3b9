package importer

import (
	"context"
	"fmt"

	"envmon/models"
	"envmon/services"

	"go.uber.org/zap"
)

// DefaultFleet is the sensor set installed on a fresh database.
var DefaultFleet = []models.Sensor{
	{Name: "AQ-CITY-01", Type: models.DataTypeAir, Measurand: "pm2_5", Unit: "µg/m³", Latitude: 51.5074, Longitude: -0.1278, LocationName: "City Centre", Manufacturer: "Aeroqual", Model: "AQS 1"},
	{Name: "AQ-PARK-01", Type: models.DataTypeAir, Measurand: "no2", Unit: "µg/m³", Latitude: 51.5313, Longitude: -0.1570, LocationName: "Regent's Park", Manufacturer: "Aeroqual", Model: "AQS 1"},
	{Name: "WQ-RIVER-01", Type: models.DataTypeWater, Measurand: "ph", Unit: "pH", Latitude: 51.5081, Longitude: -0.0759, LocationName: "Thames at Tower Bridge", Manufacturer: "YSI", Model: "EXO2"},
	{Name: "WQ-RES-01", Type: models.DataTypeWater, Measurand: "dissolved_oxygen", Unit: "mg/L", Latitude: 51.4341, Longitude: -0.4682, LocationName: "Queen Mary Reservoir", Manufacturer: "YSI", Model: "EXO2"},
	{Name: "WX-HILL-01", Type: models.DataTypeWeather, Measurand: "temperature", Unit: "°C", Latitude: 51.5608, Longitude: -0.1650, LocationName: "Hampstead Heath", Manufacturer: "Vaisala", Model: "WXT536"},
	{Name: "WX-AIRPORT-01", Type: models.DataTypeWeather, Measurand: "wind_speed", Unit: "m/s", Latitude: 51.4700, Longitude: -0.4543, LocationName: "Heathrow", Manufacturer: "Vaisala", Model: "WXT536"},
}

// SeedSensors installs DefaultFleet when no sensors exist and returns how
// many were created.
func SeedSensors(ctx context.Context, sensors *services.SensorService, logger *zap.Logger) (int, error) {
	existing, err := sensors.List(ctx, services.SensorFilter{})
	if err != nil {
		return 0, err
	}
	if len(existing) > 0 {
		return 0, nil
	}

	for i := range DefaultFleet {
		sensor := DefaultFleet[i]
		if err := sensors.Create(ctx, &sensor); err != nil {
			return i, fmt.Errorf("seed sensor %s: %w", sensor.Name, err)
		}
	}
	logger.Info("Seeded default sensors", zap.Int("count", len(DefaultFleet)))
	return len(DefaultFleet), nil
}
