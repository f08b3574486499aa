package engine

import (
	"time"

	"github.com/golang/geo/r3"
)

// DefaultBaseRadius is the geometric radius of the target sphere at scale 1.
const DefaultBaseRadius = 2.0

// InitialSize is the scale of the target at startup.
const InitialSize = 1.0

// TargetState is the controlled 3D object. The engine is its only writer;
// readers get copies through Engine.Snapshot.
type TargetState struct {
	CurrentSize   float64   `json:"current_size"`
	TargetSize    float64   `json:"target_size"`
	Color         Color     `json:"color"`
	WorldPosition r3.Vector `json:"world_position"`
	WorldRadius   float64   `json:"world_radius"`
}

// SizeUpdate reports the size control produced by a right hand.
type SizeUpdate struct {
	PinchDistance float64 `json:"pinch_distance"`
	TargetSize    float64 `json:"target_size"`
	CurrentSize   float64 `json:"current_size"`
}

// ColorTrigger reports a debounced color change produced by a left hand.
type ColorTrigger struct {
	Previous Color     `json:"previous"`
	Color    Color     `json:"color"`
	Point    r3.Vector `json:"point"`
	At       time.Time `json:"at"`
}

// ControlUpdate is the result of processing one frame.
//
// LeftHandActive is set whenever a left hand is observed, touching or not.
// Contact is set when a left index fingertip lies inside the target. A frame
// with more than detector.MaxHands hands reports neither.
type ControlUpdate struct {
	Timestamp       time.Time     `json:"timestamp"`
	Hands           int           `json:"hands"`
	RightHandActive bool          `json:"right_hand_active"`
	LeftHandActive  bool          `json:"left_hand_active"`
	Contact         bool          `json:"contact"`
	Size            *SizeUpdate   `json:"size,omitempty"`
	ColorTrigger    *ColorTrigger `json:"color_trigger,omitempty"`
	State           TargetState   `json:"state"`
}
