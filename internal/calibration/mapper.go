// Package calibration maps raw pinch measurements to target size values.
package calibration

import (
	"errors"
	"fmt"
	"math"
)

// Default calibration constants. A pinch narrower than DefaultPinchMin is
// treated as closed, wider than DefaultPinchMax as fully open.
const (
	DefaultPinchMin = 0.05
	DefaultPinchMax = 0.25
	DefaultSizeMin  = 0.2
	DefaultSizeMax  = 2.0
)

// ErrInvalidRange is returned when a mapper's input or output range is empty
// or reversed.
var ErrInvalidRange = errors.New("invalid calibration range")

// Mapper is a three-segment piecewise-linear function from pinch distance to
// size: clamped to SizeMin below PinchMin, to SizeMax above PinchMax, linear
// in between.
type Mapper struct {
	PinchMin float64 `json:"pinch_min"`
	PinchMax float64 `json:"pinch_max"`
	SizeMin  float64 `json:"size_min"`
	SizeMax  float64 `json:"size_max"`
}

// DefaultMapper returns the mapper with the default thresholds.
func DefaultMapper() Mapper {
	return Mapper{
		PinchMin: DefaultPinchMin,
		PinchMax: DefaultPinchMax,
		SizeMin:  DefaultSizeMin,
		SizeMax:  DefaultSizeMax,
	}
}

// Validate checks that both ranges are finite and strictly increasing.
func (m Mapper) Validate() error {
	for _, v := range []float64{m.PinchMin, m.PinchMax, m.SizeMin, m.SizeMax} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: non-finite bound", ErrInvalidRange)
		}
	}
	if m.PinchMin >= m.PinchMax {
		return fmt.Errorf("%w: pinch_min %g >= pinch_max %g", ErrInvalidRange, m.PinchMin, m.PinchMax)
	}
	if m.SizeMin >= m.SizeMax {
		return fmt.Errorf("%w: size_min %g >= size_max %g", ErrInvalidRange, m.SizeMin, m.SizeMax)
	}
	return nil
}

// Map converts a pinch distance to a size in [SizeMin, SizeMax]. NaN maps to
// SizeMin.
func (m Mapper) Map(distance float64) float64 {
	switch {
	case math.IsNaN(distance) || distance < m.PinchMin:
		return m.SizeMin
	case distance > m.PinchMax:
		return m.SizeMax
	}
	return m.Clamp(m.SizeMin + (distance-m.PinchMin)*(m.SizeMax-m.SizeMin)/(m.PinchMax-m.PinchMin))
}

// Clamp limits size to the mapper's output range.
func (m Mapper) Clamp(size float64) float64 {
	return math.Min(math.Max(size, m.SizeMin), m.SizeMax)
}
