// Package geometry maps normalized landmark coordinates into the rendering
// world space and answers hit-tests against the target sphere.
package geometry

import (
	"github.com/golang/geo/r3"

	"github.com/ayusman/handsphere/internal/detector"
)

// WorldScale is the width and height, in world units, that the normalized
// camera frame spans.
const WorldScale = 10.0

// Distance3D returns the Euclidean distance between two landmarks using all
// three coordinates.
func Distance3D(a, b detector.Point3D) float64 {
	return vec(a).Distance(vec(b))
}

// ToWorldSpace maps a normalized landmark onto the camera-facing plane of a
// Y-up world. Depth is discarded.
func ToWorldSpace(p detector.Point3D) r3.Vector {
	return r3.Vector{
		X: (p.X - 0.5) * WorldScale,
		Y: (0.5 - p.Y) * WorldScale,
		Z: 0,
	}
}

// ToNormalized is the inverse of ToWorldSpace for points on the z=0 plane.
func ToNormalized(w r3.Vector) detector.Point3D {
	return detector.Point3D{
		X: w.X/WorldScale + 0.5,
		Y: 0.5 - w.Y/WorldScale,
	}
}

// Contains reports whether p lies strictly inside the sphere at center.
func Contains(center r3.Vector, radius float64, p r3.Vector) bool {
	return p.Distance(center) < radius
}

// IsWithinTarget reports whether landmark p, projected to world space, lies
// strictly inside the sphere at center.
func IsWithinTarget(p detector.Point3D, center r3.Vector, radius float64) bool {
	return Contains(center, radius, ToWorldSpace(p))
}

func vec(p detector.Point3D) r3.Vector {
	return r3.Vector{X: p.X, Y: p.Y, Z: p.Z}
}
