package utils

import (
	"reflect"
	"time"

	"go.uber.org/zap"
)

const (
	MinTemperature = -50.0
	MaxTemperature = 50.0
)

// Validator runs the input checks applied to incoming readings. Failures are
// logged and reported as false.
type Validator struct {
	logger *zap.Logger
	now    func() time.Time
}

func NewValidator(logger *zap.Logger) *Validator {
	return &Validator{logger: logger, now: time.Now}
}

// WithClock replaces the clock used by ValidateTimestamp.
func (v *Validator) WithClock(now func() time.Time) *Validator {
	v.now = now
	return v
}

// ValidateTemperature accepts values in [MinTemperature, MaxTemperature].
func (v *Validator) ValidateTemperature(value float64) bool {
	if value < MinTemperature || value > MaxTemperature {
		v.logger.Warn("Temperature out of range",
			zap.Float64("value", value),
			zap.Float64("min", MinTemperature),
			zap.Float64("max", MaxTemperature),
		)
		return false
	}
	return true
}

// ValidateTimestamp rejects timestamps strictly after now.
func (v *Validator) ValidateTimestamp(ts time.Time) bool {
	now := v.now()
	if ts.After(now) {
		v.logger.Warn("Timestamp is in the future",
			zap.Time("timestamp", ts),
			zap.Time("now", now),
		)
		return false
	}
	return true
}

// ValidateData rejects nil, including typed nil pointers, maps and slices.
func (v *Validator) ValidateData(data any) bool {
	if isNil(data) {
		v.logger.Warn("Data is null")
		return false
	}
	return true
}

func isNil(data any) bool {
	if data == nil {
		return true
	}
	rv := reflect.ValueOf(data)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}
