// Package scene advances the render-side animation of the target object
// and packages it for remote renderers.
package scene

import (
	"math"
	"sync"
	"time"

	"github.com/golang/geo/r3"

	"github.com/ayusman/handsphere/internal/engine"
)

// Per-tick rotation increments, in radians.
const (
	RotationStepX = 0.003
	RotationStepY = 0.008
)

// Opacity of the solid fill is BaseOpacity + PulseWeight*pulse, where
// pulse oscillates in [0.8, 1.0].
const (
	BaseOpacity = 0.4
	PulseWeight = 0.1
)

// Source supplies the current target state.
type Source interface {
	Snapshot() engine.TargetState
}

// State is everything a renderer needs to draw one frame.
type State struct {
	Timestamp time.Time    `json:"timestamp"`
	Scale     float64      `json:"scale"`
	Radius    float64      `json:"radius"`
	Position  r3.Vector    `json:"position"`
	Color     engine.Color `json:"color"`
	RotationX float64      `json:"rotation_x"`
	RotationY float64      `json:"rotation_y"`
	Opacity   float64      `json:"opacity"`
}

// Animator turns engine snapshots into scene states, one per render tick.
type Animator struct {
	src Source
	now func() time.Time

	mu        sync.Mutex
	rotationX float64
	rotationY float64
}

// NewAnimator creates an animator reading from src. A nil now uses
// time.Now.
func NewAnimator(src Source, now func() time.Time) *Animator {
	if now == nil {
		now = time.Now
	}
	return &Animator{src: src, now: now}
}

// Tick advances the rotation by one step and returns the resulting state.
func (a *Animator) Tick() State {
	target := a.src.Snapshot()
	now := a.now()

	a.mu.Lock()
	a.rotationX = wrap(a.rotationX + RotationStepX)
	a.rotationY = wrap(a.rotationY + RotationStepY)
	rx, ry := a.rotationX, a.rotationY
	a.mu.Unlock()

	return State{
		Timestamp: now,
		Scale:     target.CurrentSize,
		Radius:    target.WorldRadius,
		Position:  target.WorldPosition,
		Color:     target.Color,
		RotationX: rx,
		RotationY: ry,
		Opacity:   Opacity(now),
	}
}

// Pulse is the glow intensity at t: 0.1*sin(2s)+0.9 with s in seconds.
func Pulse(t time.Time) float64 {
	s := float64(t.UnixMilli()) / 1000
	return 0.1*math.Sin(2*s) + 0.9
}

// Opacity is the fill opacity at t.
func Opacity(t time.Time) float64 {
	return BaseOpacity + PulseWeight*Pulse(t)
}

// wrap keeps the accumulated angle in [0, 2π).
func wrap(angle float64) float64 {
	return math.Mod(angle, 2*math.Pi)
}
