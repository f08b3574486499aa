package calibration

import (
	"errors"
	"fmt"
	"math"
)

// ErrNoSamples is returned when a pose has no recorded pinch distances.
var ErrNoSamples = errors.New("no samples provided")

// Samples holds pinch distances recorded while the user held each pose.
type Samples struct {
	Closed []float64 `json:"closed"`
	Open   []float64 `json:"open"`
}

// Fit derives pinch thresholds from recorded samples: PinchMin is the mean
// closed distance and PinchMax the mean open distance. The output range of
// base is kept.
func Fit(base Mapper, samples Samples) (Mapper, error) {
	closed, err := mean(samples.Closed)
	if err != nil {
		return Mapper{}, fmt.Errorf("closed pose: %w", err)
	}
	open, err := mean(samples.Open)
	if err != nil {
		return Mapper{}, fmt.Errorf("open pose: %w", err)
	}

	fitted := base
	fitted.PinchMin = closed
	fitted.PinchMax = open
	if err := fitted.Validate(); err != nil {
		return Mapper{}, err
	}
	return fitted, nil
}

func mean(values []float64) (float64, error) {
	if len(values) == 0 {
		return 0, ErrNoSamples
	}

	var sum float64
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return 0, fmt.Errorf("sample %d: %w: %g", i, ErrInvalidRange, v)
		}
		sum += v
	}
	return sum / float64(len(values)), nil
}
