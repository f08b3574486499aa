package geometry

import (
	"math"
	"testing"

	"github.com/golang/geo/r3"

	"github.com/ayusman/handsphere/internal/detector"
)

const epsilon = 1e-9

func TestDistance3D(t *testing.T) {
	tests := []struct {
		name string
		a, b detector.Point3D
		want float64
	}{
		{"same point", detector.Point3D{X: 0.2, Y: 0.3, Z: 0.1}, detector.Point3D{X: 0.2, Y: 0.3, Z: 0.1}, 0},
		{"x axis", detector.Point3D{X: 0, Y: 0, Z: 0}, detector.Point3D{X: 0.3, Y: 0, Z: 0}, 0.3},
		{"3-4-5 triangle", detector.Point3D{X: 0, Y: 0, Z: 0}, detector.Point3D{X: 0.3, Y: 0.4, Z: 0}, 0.5},
		{"uses depth", detector.Point3D{X: 0, Y: 0, Z: 0}, detector.Point3D{X: 0, Y: 0, Z: 0.25}, 0.25},
		{"all axes", detector.Point3D{X: 1, Y: 2, Z: 3}, detector.Point3D{X: 2, Y: 4, Z: 5}, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Distance3D(tt.a, tt.b)
			if math.Abs(got-tt.want) > epsilon {
				t.Errorf("Distance3D() = %f, want %f", got, tt.want)
			}
			if back := Distance3D(tt.b, tt.a); math.Abs(back-got) > epsilon {
				t.Errorf("Distance3D not symmetric: %f vs %f", got, back)
			}
		})
	}
}

func TestToWorldSpace(t *testing.T) {
	tests := []struct {
		name string
		in   detector.Point3D
		want r3.Vector
	}{
		{"frame center", detector.Point3D{X: 0.5, Y: 0.5}, r3.Vector{}},
		{"top left", detector.Point3D{X: 0, Y: 0}, r3.Vector{X: -5, Y: 5}},
		{"bottom right", detector.Point3D{X: 1, Y: 1}, r3.Vector{X: 5, Y: -5}},
		{"depth discarded", detector.Point3D{X: 0.5, Y: 0.5, Z: -0.4}, r3.Vector{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ToWorldSpace(tt.in)
			if !got.ApproxEqual(tt.want) {
				t.Errorf("ToWorldSpace(%+v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestToNormalized_InvertsToWorldSpace(t *testing.T) {
	p := detector.Point3D{X: 0.27, Y: 0.81}
	back := ToNormalized(ToWorldSpace(p))

	if math.Abs(back.X-p.X) > epsilon || math.Abs(back.Y-p.Y) > epsilon {
		t.Errorf("round trip = %+v, want %+v", back, p)
	}
}

func TestContains(t *testing.T) {
	t.Run("center is always inside", func(t *testing.T) {
		for _, radius := range []float64{1e-6, 0.4, 2, 4} {
			center := r3.Vector{X: 1, Y: -2, Z: 0}
			if !Contains(center, radius, center) {
				t.Errorf("center not inside sphere of radius %f", radius)
			}
		}
	})

	t.Run("point on the surface is outside", func(t *testing.T) {
		if Contains(r3.Vector{}, 2, r3.Vector{X: 2}) {
			t.Error("expected point at exactly radius to be outside")
		}
	})

	t.Run("point just inside the surface is inside", func(t *testing.T) {
		if !Contains(r3.Vector{}, 2, r3.Vector{X: 1.999}) {
			t.Error("expected point inside radius to be inside")
		}
	})
}

func TestIsWithinTarget(t *testing.T) {
	t.Run("frame center hits a sphere at the origin", func(t *testing.T) {
		if !IsWithinTarget(detector.Point3D{X: 0.5, Y: 0.5}, r3.Vector{}, 2) {
			t.Error("expected frame center to hit target")
		}
	})

	t.Run("boundary is exclusive", func(t *testing.T) {
		// x=1.0 maps exactly to world x=5.
		if IsWithinTarget(detector.Point3D{X: 1.0, Y: 0.5}, r3.Vector{}, 5) {
			t.Error("expected point at world distance == radius to miss")
		}
	})

	t.Run("frame corner misses default target", func(t *testing.T) {
		if IsWithinTarget(detector.Point3D{X: 0, Y: 0}, r3.Vector{}, 2) {
			t.Error("expected corner to miss target")
		}
	})
}
