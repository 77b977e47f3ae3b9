// Package importer loads the bundled sample CSV files and the default sensor fleet.
package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"envmon/models"
	"envmon/services"
	"envmon/utils"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const batchSize = 100

// Sample file names looked up in the data directory.
const (
	AirQualityFile   = "Air_quality.csv"
	WaterQualityFile = "Water_quality.csv"
	WeatherFile      = "Weather.csv"
)

var (
	dateLayouts = []string{"02/01/2006", "2006-01-02"}
	timeLayouts = []string{"15:04:05", "15:04"}

	unitSuffix = regexp.MustCompile(`\s*[\(\[].*?[\)\]]`)
	separators = regexp.MustCompile(`[\s\-.]+`)
)

// Result summarises one file.
type Result struct {
	File     string          `json:"file"`
	DataType models.DataType `json:"data_type"`
	Skipped  bool            `json:"skipped"`
	Total    int             `json:"total"`
	Imported int             `json:"imported"`
	Failed   int             `json:"failed"`
	Errors   []string        `json:"errors,omitempty"`
}

// layout describes the columns of one sample file.
type layout struct {
	file     string
	dataType models.DataType
	model    any
	metrics  []string
	newBatch func() batch
}

var layouts = []layout{
	{
		file:     AirQualityFile,
		dataType: models.DataTypeAir,
		model:    &models.AirQuality{},
		metrics:  []string{"no2", "so2", "pm2_5", "pm10"},
		newBatch: func() batch {
			return &rows[models.AirQuality]{build: func(ts time.Time, loc string, v map[string]float64) models.AirQuality {
				return models.AirQuality{Timestamp: ts, Location: loc, NO2: v["no2"], SO2: v["so2"], PM25: v["pm2_5"], PM10: v["pm10"]}
			}}
		},
	},
	{
		file:     WaterQualityFile,
		dataType: models.DataTypeWater,
		model:    &models.WaterQuality{},
		metrics:  []string{"ph", "dissolved_oxygen", "nitrate", "phosphate", "temperature"},
		newBatch: func() batch {
			return &rows[models.WaterQuality]{build: func(ts time.Time, loc string, v map[string]float64) models.WaterQuality {
				return models.WaterQuality{
					Timestamp:       ts,
					Location:        loc,
					PH:              v["ph"],
					DissolvedOxygen: v["dissolved_oxygen"],
					Nitrate:         v["nitrate"],
					Phosphate:       v["phosphate"],
					Temperature:     v["temperature"],
				}
			}}
		},
	},
	{
		file:     WeatherFile,
		dataType: models.DataTypeWeather,
		model:    &models.WeatherCondition{},
		metrics:  []string{"temperature", "humidity", "wind_speed", "rainfall"},
		newBatch: func() batch {
			return &rows[models.WeatherCondition]{build: func(ts time.Time, loc string, v map[string]float64) models.WeatherCondition {
				return models.WeatherCondition{Timestamp: ts, Location: loc, Temperature: v["temperature"], Humidity: v["humidity"], WindSpeed: v["wind_speed"], Rainfall: v["rainfall"]}
			}}
		},
	},
}

type batch interface {
	add(ts time.Time, location string, values map[string]float64)
	len() int
	insert(tx *gorm.DB) error
}

type rows[T any] struct {
	items []T
	build func(time.Time, string, map[string]float64) T
}

func (r *rows[T]) add(ts time.Time, location string, values map[string]float64) {
	r.items = append(r.items, r.build(ts, location, values))
}

func (r *rows[T]) len() int { return len(r.items) }

func (r *rows[T]) insert(tx *gorm.DB) error {
	if len(r.items) == 0 {
		return nil
	}
	return tx.CreateInBatches(r.items, batchSize).Error
}

// Importer reads the sample CSV files into the reading tables.
type Importer struct {
	db        *gorm.DB
	logger    *zap.Logger
	validator *utils.Validator
}

func NewImporter(db *gorm.DB, logger *zap.Logger, validator *utils.Validator) *Importer {
	return &Importer{db: db, logger: logger, validator: validator}
}

// ImportAll imports every sample file found in dir. Missing files and files
// whose table already holds rows are skipped.
func (im *Importer) ImportAll(ctx context.Context, dir string) ([]Result, error) {
	results := make([]Result, 0, len(layouts))
	for _, l := range layouts {
		res, err := im.importFile(ctx, l, filepath.Join(dir, l.file))
		if err != nil {
			return results, err
		}
		results = append(results, *res)
	}
	return results, nil
}

// ImportFile imports one file of the given data type regardless of its name.
func (im *Importer) ImportFile(ctx context.Context, dataType models.DataType, path string) (*Result, error) {
	for _, l := range layouts {
		if l.dataType == dataType {
			return im.importFile(ctx, l, path)
		}
	}
	return nil, fmt.Errorf("%w: unknown data type %q", services.ErrInvalidInput, dataType)
}

func (im *Importer) importFile(ctx context.Context, l layout, path string) (*Result, error) {
	res := &Result{File: filepath.Base(path), DataType: l.dataType}

	var count int64
	if err := im.db.WithContext(ctx).Model(l.model).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("count %s rows: %w", l.dataType, err)
	}
	if count > 0 {
		res.Skipped = true
		im.logger.Info("Table already populated, skipping import",
			zap.String("file", res.File),
			zap.Int64("rows", count),
		)
		return res, nil
	}

	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		res.Skipped = true
		im.logger.Warn("Sample file not found, skipping import", zap.String("path", path))
		return res, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	if err := im.read(ctx, l, f, res); err != nil {
		return nil, fmt.Errorf("import %s: %w", res.File, err)
	}
	im.logger.Info("Imported sample data",
		zap.String("file", res.File),
		zap.Int("imported", res.Imported),
		zap.Int("failed", res.Failed),
	)
	return res, nil
}

func (im *Importer) read(ctx context.Context, l layout, src io.Reader, res *Result) error {
	reader := csv.NewReader(src)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	headers, err := reader.Read()
	if err == io.EOF {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read header: %w", err)
	}

	headerMap := make(map[string]int, len(headers))
	for i, h := range headers {
		headerMap[NormalizeHeader(h)] = i
	}
	for _, col := range append([]string{"date", "time"}, l.metrics...) {
		if _, ok := headerMap[col]; !ok {
			return fmt.Errorf("%w: missing required column %q", services.ErrInvalidInput, col)
		}
	}

	b := l.newBatch()
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		res.Total++
		if err != nil {
			res.Failed++
			res.Errors = append(res.Errors, fmt.Sprintf("line %d: %v", line, err))
			continue
		}

		ts, location, values, err := im.parseRecord(l, record, headerMap)
		if err != nil {
			res.Failed++
			res.Errors = append(res.Errors, fmt.Sprintf("line %d: %v", line, err))
			continue
		}
		b.add(ts, location, values)
	}

	if err := im.db.WithContext(ctx).Transaction(b.insert); err != nil {
		return fmt.Errorf("insert %s rows: %w", l.dataType, err)
	}
	res.Imported = b.len()
	return nil
}

func (im *Importer) parseRecord(l layout, record []string, headerMap map[string]int) (time.Time, string, map[string]float64, error) {
	get := func(col string) string {
		if idx, ok := headerMap[col]; ok && idx < len(record) {
			return strings.TrimSpace(record[idx])
		}
		return ""
	}

	ts, err := ParseTimestamp(get("date"), get("time"))
	if err != nil {
		return time.Time{}, "", nil, err
	}
	if !im.validator.ValidateTimestamp(ts) {
		return time.Time{}, "", nil, fmt.Errorf("timestamp %s is in the future", ts.Format(time.RFC3339))
	}

	values := make(map[string]float64, len(l.metrics))
	for _, m := range l.metrics {
		raw := get(m)
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return time.Time{}, "", nil, fmt.Errorf("invalid %s value %q", m, raw)
		}
		values[m] = v
	}
	if t, ok := values["temperature"]; ok && !im.validator.ValidateTemperature(t) {
		return time.Time{}, "", nil, fmt.Errorf("temperature %.2f out of range", t)
	}

	return ts, get("location"), values, nil
}

// NormalizeHeader lowercases a column name, drops a bracketed unit suffix
// and joins words with underscores: "PM2.5 (µg/m³)" becomes "pm2_5".
func NormalizeHeader(h string) string {
	h = strings.TrimPrefix(h, "\ufeff")
	h = unitSuffix.ReplaceAllString(h, "")
	h = strings.ToLower(strings.TrimSpace(h))
	h = separators.ReplaceAllString(h, "_")
	return strings.Trim(h, "_")
}

// ParseTimestamp combines a dd/mm/yyyy or yyyy-mm-dd date with an
// HH:MM[:SS] time, read as UTC.
func ParseTimestamp(date, clock string) (time.Time, error) {
	for _, dl := range dateLayouts {
		for _, tl := range timeLayouts {
			if ts, err := time.Parse(dl+" "+tl, date+" "+clock); err == nil {
				return ts.UTC(), nil
			}
		}
	}
	return time.Time{}, fmt.Errorf("invalid date/time %q %q", date, clock)
}
