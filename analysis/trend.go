// Package analysis computes summary statistics and trends over historical readings.
package analysis

import (
	"math"
	"sort"
	"time"
)

type Trend string

const (
	TrendIncreasing       Trend = "increasing"
	TrendDecreasing       Trend = "decreasing"
	TrendStable           Trend = "stable"
	TrendInsufficientData Trend = "insufficient data"
)

// StableSlope is the absolute slope, in units per hour, below which a series is stable.
const StableSlope = 1e-4

type Sample struct {
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
}

// Report summarises a series. Slope is in value units per hour.
type Report struct {
	Count          int        `json:"count"`
	Mean           float64    `json:"mean"`
	Min            float64    `json:"min"`
	Max            float64    `json:"max"`
	Slope          float64    `json:"slope"`
	Trend          Trend      `json:"trend"`
	Threshold      *float64   `json:"threshold,omitempty"`
	ExceedCount    int        `json:"exceed_count"`
	ExceedPercent  float64    `json:"exceed_percent"`
	FirstTimestamp *time.Time `json:"first_timestamp,omitempty"`
	LastTimestamp  *time.Time `json:"last_timestamp,omitempty"`
}

// Analyze computes mean/min/max, the least-squares slope of value against
// hours since the first sample, and how many values exceed threshold.
// Fewer than two samples yield TrendInsufficientData with a zero slope.
func Analyze(samples []Sample, threshold *float64) Report {
	report := Report{Threshold: threshold, Trend: TrendInsufficientData}
	if len(samples) == 0 {
		return report
	}

	sorted := make([]Sample, len(samples))
	copy(sorted, samples)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	first, last := sorted[0].Timestamp, sorted[len(sorted)-1].Timestamp
	report.FirstTimestamp = &first
	report.LastTimestamp = &last
	report.Count = len(sorted)
	report.Min = math.Inf(1)
	report.Max = math.Inf(-1)

	var sum float64
	for _, s := range sorted {
		sum += s.Value
		report.Min = math.Min(report.Min, s.Value)
		report.Max = math.Max(report.Max, s.Value)
		if threshold != nil && s.Value > *threshold {
			report.ExceedCount++
		}
	}
	report.Mean = sum / float64(report.Count)
	if threshold != nil {
		report.ExceedPercent = float64(report.ExceedCount) / float64(report.Count) * 100
	}

	if report.Count < 2 {
		return report
	}

	report.Slope = slope(sorted)
	report.Trend = Classify(report.Slope)
	return report
}

// Classify maps a slope to a trend.
func Classify(slope float64) Trend {
	switch {
	case math.Abs(slope) < StableSlope:
		return TrendStable
	case slope > 0:
		return TrendIncreasing
	default:
		return TrendDecreasing
	}
}

// slope is the ordinary least-squares slope of value over hours elapsed
// since the first sample. A series with no time spread has slope 0.
func slope(sorted []Sample) float64 {
	origin := sorted[0].Timestamp
	n := float64(len(sorted))

	var sumX, sumY float64
	xs := make([]float64, len(sorted))
	for i, s := range sorted {
		xs[i] = s.Timestamp.Sub(origin).Hours()
		sumX += xs[i]
		sumY += s.Value
	}
	meanX, meanY := sumX/n, sumY/n

	var num, den float64
	for i, s := range sorted {
		dx := xs[i] - meanX
		num += dx * (s.Value - meanY)
		den += dx * dx
	}
	if den == 0 {
		return 0
	}
	return num / den
}
