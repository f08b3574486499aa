// Package smoothing provides a single-pole exponential filter.
package smoothing

// DefaultAlpha is the fraction of the remaining gap closed on each step.
const DefaultAlpha = 0.15

// Filter relaxes a value toward a target by a fixed fraction per step.
// With alpha in (0,1] it converges monotonically and never overshoots.
type Filter struct {
	alpha float64
	value float64
}

// NewFilter creates a filter starting at initial. Alpha outside (0,1] falls
// back to DefaultAlpha.
func NewFilter(alpha, initial float64) *Filter {
	if !(alpha > 0 && alpha <= 1) {
		alpha = DefaultAlpha
	}
	return &Filter{alpha: alpha, value: initial}
}

// Step moves the value toward target and returns the new value.
func (f *Filter) Step(target float64) float64 {
	f.value += (target - f.value) * f.alpha
	return f.value
}

// Value returns the current smoothed value.
func (f *Filter) Value() float64 {
	return f.value
}

// Alpha returns the smoothing factor.
func (f *Filter) Alpha() float64 {
	return f.alpha
}

// Reset jumps the value to v without smoothing.
func (f *Filter) Reset(v float64) {
	f.value = v
}
