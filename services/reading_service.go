package services

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"envmon/models"
	"envmon/utils"

	"go.uber.org/zap"
)

// Event kinds sent to a Publisher.
const (
	EventReading = "reading"
	EventAlert   = "alert"
)

// Publisher fans events out to live subscribers.
type Publisher interface {
	Publish(kind string, payload any)
}

type nopPublisher struct{}

func (nopPublisher) Publish(string, any) {}

// criticalDeviation is how far past a limit, relative to the limit, a value
// must be for its alert to be critical rather than high.
const criticalDeviation = 0.5

// IngestResult is what a stored reading produced.
type IngestResult struct {
	Points []models.EnvironmentalDataPoint `json:"points"`
	Alerts []models.SensorAlert            `json:"alerts"`
}

// ReadingService validates and stores live readings and raises threshold
// alerts for them.
type ReadingService struct {
	env        *EnvironmentalService
	sensors    *SensorService
	settings   *SettingsService
	alerts     *AlertService
	thresholds *utils.Thresholds
	validator  *utils.Validator
	publisher  Publisher
	logger     *zap.Logger
	now        func() time.Time
}

func NewReadingService(
	env *EnvironmentalService,
	sensors *SensorService,
	settings *SettingsService,
	alerts *AlertService,
	thresholds *utils.Thresholds,
	validator *utils.Validator,
	publisher Publisher,
	logger *zap.Logger,
) *ReadingService {
	if publisher == nil {
		publisher = nopPublisher{}
	}
	return &ReadingService{
		env:        env,
		sensors:    sensors,
		settings:   settings,
		alerts:     alerts,
		thresholds: thresholds,
		validator:  validator,
		publisher:  publisher,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (s *ReadingService) IngestAir(ctx context.Context, r *models.AirQuality) (*IngestResult, error) {
	if !s.validator.ValidateData(r) {
		return nil, fmt.Errorf("%w: reading is required", ErrInvalidInput)
	}
	sensor, err := s.prepare(ctx, models.DataTypeAir, &r.Timestamp, r.SensorID, &r.SensorName, &r.Location)
	if err != nil {
		return nil, err
	}
	if err := s.env.StoreAir(ctx, r); err != nil {
		return nil, err
	}
	return s.evaluate(ctx, models.DataTypeAir, sensor, r.Timestamp, r.Location, r.SensorName, AirMetrics(*r))
}

func (s *ReadingService) IngestWater(ctx context.Context, r *models.WaterQuality) (*IngestResult, error) {
	if !s.validator.ValidateData(r) {
		return nil, fmt.Errorf("%w: reading is required", ErrInvalidInput)
	}
	if !s.validator.ValidateTemperature(r.Temperature) {
		return nil, fmt.Errorf("%w: temperature %.2f out of range", ErrInvalidInput, r.Temperature)
	}
	sensor, err := s.prepare(ctx, models.DataTypeWater, &r.Timestamp, r.SensorID, &r.SensorName, &r.Location)
	if err != nil {
		return nil, err
	}
	if err := s.env.StoreWater(ctx, r); err != nil {
		return nil, err
	}
	return s.evaluate(ctx, models.DataTypeWater, sensor, r.Timestamp, r.Location, r.SensorName, WaterMetrics(*r))
}

func (s *ReadingService) IngestWeather(ctx context.Context, r *models.WeatherCondition) (*IngestResult, error) {
	if !s.validator.ValidateData(r) {
		return nil, fmt.Errorf("%w: reading is required", ErrInvalidInput)
	}
	if !s.validator.ValidateTemperature(r.Temperature) {
		return nil, fmt.Errorf("%w: temperature %.2f out of range", ErrInvalidInput, r.Temperature)
	}
	sensor, err := s.prepare(ctx, models.DataTypeWeather, &r.Timestamp, r.SensorID, &r.SensorName, &r.Location)
	if err != nil {
		return nil, err
	}
	if err := s.env.StoreWeather(ctx, r); err != nil {
		return nil, err
	}
	return s.evaluate(ctx, models.DataTypeWeather, sensor, r.Timestamp, r.Location, r.SensorName, WeatherMetrics(*r))
}

// prepare fills defaults and checks the timestamp and the reporting sensor.
func (s *ReadingService) prepare(ctx context.Context, dataType models.DataType, ts *time.Time, sensorID *uint, sensorName, location *string) (*models.Sensor, error) {
	if ts.IsZero() {
		*ts = s.now()
	}
	if !s.validator.ValidateTimestamp(*ts) {
		return nil, fmt.Errorf("%w: timestamp %s is in the future", ErrInvalidInput, ts.Format(time.RFC3339))
	}

	if sensorID == nil {
		return nil, nil
	}
	sensor, err := s.sensors.Get(ctx, *sensorID)
	if err != nil {
		return nil, err
	}
	if sensor.Type != dataType {
		return nil, fmt.Errorf("%w: sensor %d measures %s, not %s", ErrInvalidInput, sensor.ID, sensor.Type, dataType)
	}
	if !sensor.IsActive {
		return nil, fmt.Errorf("%w: sensor %d is deactivated", ErrInvalidInput, sensor.ID)
	}
	if *sensorName == "" {
		*sensorName = sensor.Name
	}
	if *location == "" {
		*location = sensor.LocationName
	}
	return sensor, nil
}

func (s *ReadingService) evaluate(ctx context.Context, dataType models.DataType, sensor *models.Sensor, ts time.Time, location, sensorName string, values map[string]float64) (*IngestResult, error) {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	result := &IngestResult{}
	for _, k := range keys {
		result.Points = append(result.Points, s.env.point(dataType, k, ts, location, sensorName, values[k]))
	}
	s.publisher.Publish(EventReading, result.Points)

	enabled, override, err := s.alerting(ctx, sensor)
	if err != nil {
		return nil, err
	}
	if !enabled {
		return result, nil
	}

	for _, k := range keys {
		metric, ok := s.thresholds.Lookup(dataType, k)
		if !ok {
			continue
		}
		bounds := metric.Bounds
		if sensor != nil && sensor.Measurand == k {
			if override.MinThreshold != nil {
				bounds.Min = override.MinThreshold
			}
			if override.MaxThreshold != nil {
				bounds.Max = override.MaxThreshold
			}
		}

		value := values[k]
		limit, breached := bounds.Exceeds(value)
		if !breached {
			continue
		}

		direction := "upper"
		if value < limit {
			direction = "lower"
		}
		alert := models.SensorAlert{
			DataType:  dataType,
			Metric:    k,
			Value:     value,
			Threshold: limit,
			Severity:  alertSeverity(value, limit),
			Message: fmt.Sprintf("%s at %s: %.2f %s crosses the %s limit of %.2f",
				metric.Label, location, value, metric.Unit, direction, limit),
			CreatedAt: s.now(),
		}
		if sensor != nil {
			id := sensor.ID
			alert.SensorID = &id
		}
		if err := s.alerts.Raise(ctx, &alert); err != nil {
			return nil, err
		}
		result.Alerts = append(result.Alerts, alert)
		s.publisher.Publish(EventAlert, alert)
	}
	return result, nil
}

// alerting reports whether alerts are on for this reading and returns the
// sensor's overrides.
func (s *ReadingService) alerting(ctx context.Context, sensor *models.Sensor) (bool, models.SensorSettings, error) {
	global := s.settings.Global()
	if !global.AlertsEnabled || global.MaintenanceMode {
		return false, models.SensorSettings{}, nil
	}
	if sensor == nil {
		return true, models.SensorSettings{}, nil
	}
	settings, err := s.settings.SensorSettings(ctx, sensor.ID)
	if err != nil {
		return false, models.SensorSettings{}, err
	}
	return settings.AlertsEnabled, settings, nil
}

func alertSeverity(value, limit float64) models.Severity {
	scale := math.Abs(limit)
	if scale == 0 {
		scale = 1
	}
	if math.Abs(value-limit)/scale >= criticalDeviation {
		return models.SeverityCritical
	}
	return models.SeverityHigh
}
