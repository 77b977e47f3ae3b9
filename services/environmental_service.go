package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"envmon/models"
	"envmon/utils"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// metricColumns whitelists the columns History may select per data type.
var metricColumns = map[models.DataType]map[string]bool{
	models.DataTypeAir:     {"no2": true, "so2": true, "pm2_5": true, "pm10": true},
	models.DataTypeWater:   {"ph": true, "dissolved_oxygen": true, "nitrate": true, "phosphate": true, "temperature": true},
	models.DataTypeWeather: {"temperature": true, "humidity": true, "wind_speed": true, "rainfall": true},
}

var dataTables = map[models.DataType]string{
	models.DataTypeAir:     models.AirQuality{}.TableName(),
	models.DataTypeWater:   models.WaterQuality{}.TableName(),
	models.DataTypeWeather: models.WeatherCondition{}.TableName(),
}

// TableFor returns the table holding readings of a data type.
func TableFor(dataType models.DataType) (string, bool) {
	table, ok := dataTables[dataType]
	return table, ok
}

// HistoryQuery selects one metric of one data type over a time range.
type HistoryQuery struct {
	DataType models.DataType
	Metric   string
	Location string
	From     *time.Time
	To       *time.Time
	// Limit keeps the most recent N points when positive.
	Limit int
}

type EnvironmentalService struct {
	db         *gorm.DB
	logger     *zap.Logger
	thresholds *utils.Thresholds
}

func NewEnvironmentalService(db *gorm.DB, logger *zap.Logger, thresholds *utils.Thresholds) *EnvironmentalService {
	return &EnvironmentalService{db: db, logger: logger, thresholds: thresholds}
}

func (s *EnvironmentalService) StoreAir(ctx context.Context, r *models.AirQuality) error {
	r.Timestamp = r.Timestamp.UTC()
	if err := s.db.WithContext(ctx).Create(r).Error; err != nil {
		return fmt.Errorf("store air quality reading: %w", err)
	}
	return nil
}

func (s *EnvironmentalService) StoreWater(ctx context.Context, r *models.WaterQuality) error {
	r.Timestamp = r.Timestamp.UTC()
	if err := s.db.WithContext(ctx).Create(r).Error; err != nil {
		return fmt.Errorf("store water quality reading: %w", err)
	}
	return nil
}

func (s *EnvironmentalService) StoreWeather(ctx context.Context, r *models.WeatherCondition) error {
	r.Timestamp = r.Timestamp.UTC()
	if err := s.db.WithContext(ctx).Create(r).Error; err != nil {
		return fmt.Errorf("store weather reading: %w", err)
	}
	return nil
}

type pointRow struct {
	Timestamp  time.Time
	Location   string
	SensorName string
	Value      float64
}

// History returns the requested metric as data points in time order, each
// labelled with its threshold status.
func (s *EnvironmentalService) History(ctx context.Context, q HistoryQuery) ([]models.EnvironmentalDataPoint, error) {
	table, ok := TableFor(q.DataType)
	if !ok {
		return nil, fmt.Errorf("%w: unknown data type %q", ErrInvalidInput, q.DataType)
	}
	if !metricColumns[q.DataType][q.Metric] {
		return nil, fmt.Errorf("%w: unknown metric %q for %s", ErrInvalidInput, q.Metric, q.DataType)
	}
	if q.From != nil && q.To != nil && q.From.After(*q.To) {
		return nil, fmt.Errorf("%w: from is after to", ErrInvalidInput)
	}

	query := s.db.WithContext(ctx).Table(table).
		Select(fmt.Sprintf("timestamp, location, sensor_name, %s AS value", q.Metric))
	if q.Location != "" {
		query = query.Where("location = ?", q.Location)
	}
	if q.From != nil {
		query = query.Where("timestamp >= ?", q.From.UTC())
	}
	if q.To != nil {
		query = query.Where("timestamp <= ?", q.To.UTC())
	}
	if q.Limit > 0 {
		query = query.Order("timestamp DESC").Limit(q.Limit)
	} else {
		query = query.Order("timestamp")
	}

	var rows []pointRow
	if err := query.Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("query %s history: %w", q.DataType, err)
	}
	if q.Limit > 0 {
		sort.SliceStable(rows, func(i, j int) bool { return rows[i].Timestamp.Before(rows[j].Timestamp) })
	}

	points := make([]models.EnvironmentalDataPoint, len(rows))
	for i, r := range rows {
		points[i] = s.point(q.DataType, q.Metric, r.Timestamp, r.Location, r.SensorName, r.Value)
	}
	return points, nil
}

// Latest returns every metric of the most recent reading of a data type.
// It returns no points when the table is empty.
func (s *EnvironmentalService) Latest(ctx context.Context, dataType models.DataType) ([]models.EnvironmentalDataPoint, error) {
	var values map[string]float64
	var ts time.Time
	var location, sensorName string

	db := s.db.WithContext(ctx).Order("timestamp DESC").Limit(1)
	switch dataType {
	case models.DataTypeAir:
		var rows []models.AirQuality
		if err := db.Find(&rows).Error; err != nil {
			return nil, fmt.Errorf("latest air quality reading: %w", err)
		}
		if len(rows) == 0 {
			return nil, nil
		}
		r := rows[0]
		ts, location, sensorName, values = r.Timestamp, r.Location, r.SensorName, AirMetrics(r)
	case models.DataTypeWater:
		var rows []models.WaterQuality
		if err := db.Find(&rows).Error; err != nil {
			return nil, fmt.Errorf("latest water quality reading: %w", err)
		}
		if len(rows) == 0 {
			return nil, nil
		}
		r := rows[0]
		ts, location, sensorName, values = r.Timestamp, r.Location, r.SensorName, WaterMetrics(r)
	case models.DataTypeWeather:
		var rows []models.WeatherCondition
		if err := db.Find(&rows).Error; err != nil {
			return nil, fmt.Errorf("latest weather reading: %w", err)
		}
		if len(rows) == 0 {
			return nil, nil
		}
		r := rows[0]
		ts, location, sensorName, values = r.Timestamp, r.Location, r.SensorName, WeatherMetrics(r)
	default:
		return nil, fmt.Errorf("%w: unknown data type %q", ErrInvalidInput, dataType)
	}

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	points := make([]models.EnvironmentalDataPoint, 0, len(keys))
	for _, k := range keys {
		points = append(points, s.point(dataType, k, ts, location, sensorName, values[k]))
	}
	return points, nil
}

// Locations lists the distinct locations with readings of a data type.
func (s *EnvironmentalService) Locations(ctx context.Context, dataType models.DataType) ([]string, error) {
	table, ok := TableFor(dataType)
	if !ok {
		return nil, fmt.Errorf("%w: unknown data type %q", ErrInvalidInput, dataType)
	}
	var locations []string
	err := s.db.WithContext(ctx).Table(table).
		Distinct().
		Where("location <> ''").
		Order("location").
		Pluck("location", &locations).Error
	if err != nil {
		return nil, fmt.Errorf("list %s locations: %w", dataType, err)
	}
	return locations, nil
}

// PurgeOlderThan deletes readings taken before cutoff from every table.
func (s *EnvironmentalService) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	var total int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, model := range []any{&models.AirQuality{}, &models.WaterQuality{}, &models.WeatherCondition{}} {
			result := tx.Where("timestamp < ?", cutoff.UTC()).Delete(model)
			if result.Error != nil {
				return result.Error
			}
			total += result.RowsAffected
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("purge readings before %s: %w", cutoff.Format(time.RFC3339), err)
	}
	return total, nil
}

func (s *EnvironmentalService) point(dataType models.DataType, metric string, ts time.Time, location, sensorName string, value float64) models.EnvironmentalDataPoint {
	p := models.EnvironmentalDataPoint{
		Timestamp:  ts,
		Location:   location,
		DataType:   dataType,
		Metric:     metric,
		SensorName: sensorName,
		Value:      value,
		Status:     s.thresholds.Status(dataType, metric, value),
	}
	if m, ok := s.thresholds.Lookup(dataType, metric); ok {
		p.Unit = m.Unit
	}
	return p
}

func AirMetrics(r models.AirQuality) map[string]float64 {
	return map[string]float64{"no2": r.NO2, "so2": r.SO2, "pm2_5": r.PM25, "pm10": r.PM10}
}

func WaterMetrics(r models.WaterQuality) map[string]float64 {
	return map[string]float64{
		"ph":               r.PH,
		"dissolved_oxygen": r.DissolvedOxygen,
		"nitrate":          r.Nitrate,
		"phosphate":        r.Phosphate,
		"temperature":      r.Temperature,
	}
}

func WeatherMetrics(r models.WeatherCondition) map[string]float64 {
	return map[string]float64{
		"temperature": r.Temperature,
		"humidity":    r.Humidity,
		"wind_speed":  r.WindSpeed,
		"rainfall":    r.Rainfall,
	}
}
