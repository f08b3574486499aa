package smoothing

import (
	"math"
	"testing"
)

const epsilon = 1e-9

func TestFilter_FirstStep(t *testing.T) {
	f := NewFilter(DefaultAlpha, 1.0)

	got := f.Step(0.2)

	if math.Abs(got-0.88) > epsilon {
		t.Errorf("Step(0.2) = %f, want 0.88", got)
	}
	if f.Value() != got {
		t.Errorf("Value() = %f, want %f", f.Value(), got)
	}
}

func TestFilter_Convergence(t *testing.T) {
	f := NewFilter(DefaultAlpha, 1.0)
	prevGap := 0.8

	for n := 1; n <= 60; n++ {
		v := f.Step(0.2)
		gap := v - 0.2

		want := 0.8 * math.Pow(0.85, float64(n))
		if math.Abs(gap-want) > epsilon {
			t.Fatalf("step %d: gap = %g, want %g", n, gap, want)
		}
		if gap <= 0 {
			t.Fatalf("step %d: overshoot or exact arrival, value %g", n, v)
		}
		if gap >= prevGap {
			t.Fatalf("step %d: gap did not shrink (%g >= %g)", n, gap, prevGap)
		}
		prevGap = gap
	}
}

func TestFilter_NinetyPercentIn14Steps(t *testing.T) {
	f := NewFilter(DefaultAlpha, 0)

	steps := 0
	for f.Value() < 0.9 {
		f.Step(1)
		steps++
	}

	if steps != 15 {
		// 0.85^14 = 0.1028, 0.85^15 = 0.0874
		t.Errorf("reached 90%% after %d steps, want 15", steps)
	}
}

func TestFilter_RisingTarget(t *testing.T) {
	f := NewFilter(DefaultAlpha, 0.2)

	for i := 0; i < 100; i++ {
		if v := f.Step(2.0); v > 2.0 {
			t.Fatalf("overshoot: %f", v)
		}
	}
}

func TestNewFilter_InvalidAlpha(t *testing.T) {
	for _, alpha := range []float64{0, -0.5, 1.5, math.NaN()} {
		if got := NewFilter(alpha, 0).Alpha(); got != DefaultAlpha {
			t.Errorf("NewFilter(%f).Alpha() = %f, want %f", alpha, got, DefaultAlpha)
		}
	}
}

func TestFilter_Reset(t *testing.T) {
	f := NewFilter(DefaultAlpha, 1)
	f.Reset(0.5)
	if f.Value() != 0.5 {
		t.Errorf("Value() = %f after Reset(0.5)", f.Value())
	}
}
