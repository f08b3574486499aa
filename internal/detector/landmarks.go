// Package detector defines hand landmark observations and the sources that
// produce them.
package detector

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Hand landmark indices following MediaPipe convention.
// See: https://developers.google.com/mediapipe/solutions/vision/hand_landmarker
const (
	Wrist        = 0
	ThumbCMC     = 1
	ThumbMCP     = 2
	ThumbIP      = 3
	ThumbTip     = 4
	IndexMCP     = 5
	IndexPIP     = 6
	IndexDIP     = 7
	IndexTip     = 8
	MiddleMCP    = 9
	MiddlePIP    = 10
	MiddleDIP    = 11
	MiddleTip    = 12
	RingMCP      = 13
	RingPIP      = 14
	RingDIP      = 15
	RingTip      = 16
	PinkyMCP     = 17
	PinkyPIP     = 18
	PinkyDIP     = 19
	PinkyTip     = 20
	NumLandmarks = 21
)

// MaxHands is the number of observations a conforming detector emits per frame.
const MaxHands = 2

// Connections lists the landmark pairs forming the hand skeleton.
var Connections = [][2]int{
	{Wrist, ThumbCMC}, {ThumbCMC, ThumbMCP}, {ThumbMCP, ThumbIP}, {ThumbIP, ThumbTip},
	{Wrist, IndexMCP}, {IndexMCP, IndexPIP}, {IndexPIP, IndexDIP}, {IndexDIP, IndexTip},
	{Wrist, MiddleMCP}, {MiddleMCP, MiddlePIP}, {MiddlePIP, MiddleDIP}, {MiddleDIP, MiddleTip},
	{Wrist, RingMCP}, {RingMCP, RingPIP}, {RingPIP, RingDIP}, {RingDIP, RingTip},
	{Wrist, PinkyMCP}, {PinkyMCP, PinkyPIP}, {PinkyPIP, PinkyDIP}, {PinkyDIP, PinkyTip},
	{IndexMCP, MiddleMCP}, {MiddleMCP, RingMCP}, {RingMCP, PinkyMCP},
}

// ErrInvalidFrame is returned when a frame violates the landmark source contract.
var ErrInvalidFrame = errors.New("invalid frame")

// Handedness classifies an observation as a left or right hand.
type Handedness string

const (
	Left  Handedness = "Left"
	Right Handedness = "Right"
)

// Valid reports whether h is one of the two labels a detector emits.
func (h Handedness) Valid() bool {
	return h == Left || h == Right
}

// Point3D is a normalized landmark: x and y in [0,1] relative to the camera
// frame, z a relative depth estimate.
type Point3D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// HandLandmarks is one detected hand: its handedness and the 21 landmarks in
// anatomical order.
type HandLandmarks struct {
	Points     [NumLandmarks]Point3D `json:"points"`
	Handedness Handedness            `json:"handedness"`
	Score      float64               `json:"score"`
}

// UnmarshalJSON decodes a hand and rejects landmark lists that are not
// exactly NumLandmarks long.
func (h *HandLandmarks) UnmarshalJSON(data []byte) error {
	var raw struct {
		Points     []Point3D  `json:"points"`
		Handedness Handedness `json:"handedness"`
		Score      float64    `json:"score"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if len(raw.Points) != NumLandmarks {
		return fmt.Errorf("%w: hand has %d landmarks, want %d", ErrInvalidFrame, len(raw.Points), NumLandmarks)
	}

	h.Handedness = raw.Handedness
	h.Score = raw.Score
	copy(h.Points[:], raw.Points)
	return nil
}

// Frame is the set of hands observed in one processed camera image.
type Frame struct {
	Hands     []HandLandmarks `json:"hands"`
	Timestamp time.Time       `json:"timestamp"`
}

// Validate checks the frame against the landmark source contract: at most
// MaxHands observations, each labelled Left or Right.
func (f Frame) Validate() error {
	if len(f.Hands) > MaxHands {
		return fmt.Errorf("%w: %d hands, max %d", ErrInvalidFrame, len(f.Hands), MaxHands)
	}
	for i, h := range f.Hands {
		if !h.Handedness.Valid() {
			return fmt.Errorf("%w: hand %d has handedness %q", ErrInvalidFrame, i, h.Handedness)
		}
	}
	return nil
}
