package utils

import (
	"fmt"
	"math"
	"os"
	"sort"

	"envmon/models"

	"gopkg.in/yaml.v3"
)

// Status labels for a single metric value.
const (
	StatusNormal   = "Normal"
	StatusWarning  = "Warning"
	StatusCritical = "Critical"
	StatusUnknown  = "Unknown"
)

// warningBand is the fraction of a bound inside which a value is flagged as a warning.
const warningBand = 0.1

// Bounds is the safe range of a metric. A nil side is unbounded.
type Bounds struct {
	Min *float64 `yaml:"min" json:"min,omitempty"`
	Max *float64 `yaml:"max" json:"max,omitempty"`
}

// Metric describes one measurable column.
type Metric struct {
	Key      string          `json:"key"`
	Label    string          `json:"label"`
	Unit     string          `json:"unit"`
	DataType models.DataType `json:"data_type"`
	Bounds   Bounds          `json:"bounds"`
}

// Thresholds is the per-metric safe-value catalogue.
type Thresholds struct {
	metrics map[models.DataType]map[string]Metric
}

func f(v float64) *float64 { return &v }

// DefaultThresholds returns the built-in catalogue.
func DefaultThresholds() *Thresholds {
	t := &Thresholds{metrics: map[models.DataType]map[string]Metric{}}
	for _, m := range []Metric{
		{Key: "no2", Label: "Nitrogen dioxide", Unit: "µg/m³", DataType: models.DataTypeAir, Bounds: Bounds{Max: f(40)}},
		{Key: "so2", Label: "Sulphur dioxide", Unit: "µg/m³", DataType: models.DataTypeAir, Bounds: Bounds{Max: f(20)}},
		{Key: "pm2_5", Label: "PM2.5", Unit: "µg/m³", DataType: models.DataTypeAir, Bounds: Bounds{Max: f(25)}},
		{Key: "pm10", Label: "PM10", Unit: "µg/m³", DataType: models.DataTypeAir, Bounds: Bounds{Max: f(50)}},

		{Key: "ph", Label: "pH", Unit: "pH", DataType: models.DataTypeWater, Bounds: Bounds{Min: f(6.5), Max: f(8.5)}},
		{Key: "dissolved_oxygen", Label: "Dissolved oxygen", Unit: "mg/L", DataType: models.DataTypeWater, Bounds: Bounds{Min: f(5)}},
		{Key: "nitrate", Label: "Nitrate", Unit: "mg/L", DataType: models.DataTypeWater, Bounds: Bounds{Max: f(50)}},
		{Key: "phosphate", Label: "Phosphate", Unit: "mg/L", DataType: models.DataTypeWater, Bounds: Bounds{Max: f(0.1)}},
		{Key: "temperature", Label: "Water temperature", Unit: "°C", DataType: models.DataTypeWater, Bounds: Bounds{Max: f(25)}},

		{Key: "temperature", Label: "Air temperature", Unit: "°C", DataType: models.DataTypeWeather, Bounds: Bounds{Min: f(-10), Max: f(35)}},
		{Key: "humidity", Label: "Relative humidity", Unit: "%", DataType: models.DataTypeWeather, Bounds: Bounds{Min: f(20), Max: f(90)}},
		{Key: "wind_speed", Label: "Wind speed", Unit: "m/s", DataType: models.DataTypeWeather, Bounds: Bounds{Max: f(20)}},
		{Key: "rainfall", Label: "Rainfall", Unit: "mm", DataType: models.DataTypeWeather, Bounds: Bounds{Max: f(50)}},
	} {
		t.set(m)
	}
	return t
}

func (t *Thresholds) set(m Metric) {
	if t.metrics[m.DataType] == nil {
		t.metrics[m.DataType] = map[string]Metric{}
	}
	t.metrics[m.DataType][m.Key] = m
}

// LoadThresholds merges bound overrides from a YAML file into the defaults.
// The file maps data type to metric key to {min, max}. An empty path
// returns the defaults.
func LoadThresholds(path string) (*Thresholds, error) {
	t := DefaultThresholds()
	if path == "" {
		return t, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read thresholds file: %w", err)
	}

	var overrides map[models.DataType]map[string]Bounds
	if err := yaml.Unmarshal(raw, &overrides); err != nil {
		return nil, fmt.Errorf("parse thresholds file: %w", err)
	}

	for dataType, byMetric := range overrides {
		for key, bounds := range byMetric {
			m, ok := t.Lookup(dataType, key)
			if !ok {
				return nil, fmt.Errorf("unknown metric %s/%s in thresholds file", dataType, key)
			}
			if bounds.Min != nil {
				m.Bounds.Min = bounds.Min
			}
			if bounds.Max != nil {
				m.Bounds.Max = bounds.Max
			}
			t.set(m)
		}
	}
	return t, nil
}

// Lookup returns the metric definition for a data type and key.
func (t *Thresholds) Lookup(dataType models.DataType, key string) (Metric, bool) {
	m, ok := t.metrics[dataType][key]
	return m, ok
}

// Metrics lists the metrics of a data type ordered by key.
func (t *Thresholds) Metrics(dataType models.DataType) []Metric {
	out := make([]Metric, 0, len(t.metrics[dataType]))
	for _, m := range t.metrics[dataType] {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// Status labels a value against the catalogue bounds of its metric.
func (t *Thresholds) Status(dataType models.DataType, key string, value float64) string {
	m, ok := t.Lookup(dataType, key)
	if !ok {
		return StatusUnknown
	}
	return m.Bounds.Status(value)
}

// Status labels a value: Critical outside the bounds, Warning inside the
// band next to a bound, Normal otherwise.
func (b Bounds) Status(value float64) string {
	if _, breached := b.Exceeds(value); breached {
		return StatusCritical
	}

	var margin float64
	if b.Min != nil && b.Max != nil {
		margin = (*b.Max - *b.Min) * warningBand
	}
	if b.Max != nil {
		m := margin
		if b.Min == nil {
			m = math.Abs(*b.Max) * warningBand
		}
		if value >= *b.Max-m {
			return StatusWarning
		}
	}
	if b.Min != nil {
		m := margin
		if b.Max == nil {
			m = math.Abs(*b.Min) * warningBand
		}
		if value <= *b.Min+m {
			return StatusWarning
		}
	}
	return StatusNormal
}

// Exceeds reports whether value lies outside the bounds and, if so, which
// bound was crossed.
func (b Bounds) Exceeds(value float64) (limit float64, breached bool) {
	if b.Max != nil && value > *b.Max {
		return *b.Max, true
	}
	if b.Min != nil && value < *b.Min {
		return *b.Min, true
	}
	return 0, false
}
