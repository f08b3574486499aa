package scene

import (
	"math"
	"sync"
	"testing"
	"time"

	"github.com/golang/geo/r3"

	"github.com/ayusman/handsphere/internal/engine"
)

const epsilon = 1e-9

type fixedSource struct {
	state engine.TargetState
}

func (f fixedSource) Snapshot() engine.TargetState { return f.state }

func TestAnimator_Tick(t *testing.T) {
	src := fixedSource{state: engine.TargetState{
		CurrentSize:   0.88,
		TargetSize:    0.2,
		Color:         engine.Color(0x00FFFF),
		WorldPosition: r3.Vector{},
		WorldRadius:   1.76,
	}}
	at := time.UnixMilli(0)
	a := NewAnimator(src, func() time.Time { return at })

	t.Run("first tick", func(t *testing.T) {
		s := a.Tick()
		if math.Abs(s.RotationX-0.003) > epsilon {
			t.Errorf("RotationX = %v, want 0.003", s.RotationX)
		}
		if math.Abs(s.RotationY-0.008) > epsilon {
			t.Errorf("RotationY = %v, want 0.008", s.RotationY)
		}
		if s.Scale != 0.88 || s.Radius != 1.76 {
			t.Errorf("Scale/Radius = %v/%v, want 0.88/1.76", s.Scale, s.Radius)
		}
		if s.Color != engine.Color(0x00FFFF) {
			t.Errorf("Color = %v, want #00FFFF", s.Color)
		}
		if !s.Timestamp.Equal(at) {
			t.Errorf("Timestamp = %v, want %v", s.Timestamp, at)
		}
	})

	t.Run("rotation accumulates", func(t *testing.T) {
		for i := 0; i < 9; i++ {
			a.Tick()
		}
		s := a.Tick()
		if math.Abs(s.RotationX-11*0.003) > 1e-6 {
			t.Errorf("RotationX after 11 ticks = %v", s.RotationX)
		}
		if math.Abs(s.RotationY-11*0.008) > 1e-6 {
			t.Errorf("RotationY after 11 ticks = %v", s.RotationY)
		}
	})
}

func TestAnimator_RotationWraps(t *testing.T) {
	a := NewAnimator(fixedSource{}, nil)
	for i := 0; i < 2000; i++ {
		s := a.Tick()
		if s.RotationY < 0 || s.RotationY >= 2*math.Pi {
			t.Fatalf("tick %d: RotationY = %v outside [0, 2π)", i, s.RotationY)
		}
	}
}

func TestPulse(t *testing.T) {
	tests := []struct {
		name string
		ms   int64
		want float64
	}{
		{"zero", 0, 0.9},
		{"peak", 785, 1.0},    // π/4 s, truncated to ms
		{"trough", 2356, 0.8}, // 3π/4 s, truncated to ms
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Pulse(time.UnixMilli(tt.ms))
			if math.Abs(got-tt.want) > 1e-3 {
				t.Errorf("Pulse = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestOpacity_Range(t *testing.T) {
	for ms := int64(0); ms < 10000; ms += 37 {
		o := Opacity(time.UnixMilli(ms))
		if o < 0.48-epsilon || o > 0.5+epsilon {
			t.Fatalf("Opacity(%dms) = %v outside [0.48, 0.5]", ms, o)
		}
	}
}

func TestAnimator_ConcurrentTicks(t *testing.T) {
	a := NewAnimator(fixedSource{}, nil)
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				a.Tick()
			}
		}()
	}
	wg.Wait()

	s := a.Tick()
	if math.Abs(s.RotationX-201*0.003) > 1e-6 {
		t.Errorf("RotationX = %v, want %v", s.RotationX, 201*0.003)
	}
}
