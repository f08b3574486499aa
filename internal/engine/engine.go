// Package engine interprets per-frame hand observations as control signals
// for the target object: a smoothed size driven by the right hand's pinch and
// a debounced color change when the left index fingertip touches the target.
package engine

import (
	"math/rand/v2"
	"sync"
	"time"

	"github.com/golang/geo/r3"

	"github.com/ayusman/handsphere/internal/calibration"
	"github.com/ayusman/handsphere/internal/debounce"
	"github.com/ayusman/handsphere/internal/detector"
	"github.com/ayusman/handsphere/internal/geometry"
	"github.com/ayusman/handsphere/internal/smoothing"
)

// Config holds the engine's tuning constants.
type Config struct {
	Mapper        calibration.Mapper
	Alpha         float64
	Cooldown      time.Duration
	BaseRadius    float64
	WorldPosition r3.Vector
	Palette       []Color
}

// DefaultConfig returns the engine constants used by the reference setup.
func DefaultConfig() Config {
	return Config{
		Mapper:     calibration.DefaultMapper(),
		Alpha:      smoothing.DefaultAlpha,
		Cooldown:   debounce.DefaultCooldown,
		BaseRadius: DefaultBaseRadius,
		Palette:    NeonPalette,
	}
}

// Option configures an Engine.
type Option func(*Engine)

// WithRand sets the random source used to pick palette colors.
func WithRand(r *rand.Rand) Option {
	return func(e *Engine) {
		if r != nil {
			e.rng = r
		}
	}
}

// WithClock sets the time source used for frames without a timestamp.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// Engine owns the TargetState and updates it once per frame. Process and
// Recalibrate hold the write lock for their whole duration; Snapshot returns
// a copy under the read lock.
type Engine struct {
	mu     sync.RWMutex
	cfg    Config
	mapper calibration.Mapper
	filter *smoothing.Filter
	gate   *debounce.Gate
	state  TargetState
	rng    *rand.Rand
	now    func() time.Time
}

// New creates an engine in its initial state. An invalid mapper or empty
// palette is replaced by the default.
func New(cfg Config, opts ...Option) *Engine {
	if cfg.Mapper.Validate() != nil {
		cfg.Mapper = calibration.DefaultMapper()
	}
	if len(cfg.Palette) == 0 {
		cfg.Palette = NeonPalette
	}
	if cfg.BaseRadius <= 0 {
		cfg.BaseRadius = DefaultBaseRadius
	}

	e := &Engine{
		cfg:    cfg,
		mapper: cfg.Mapper,
		filter: smoothing.NewFilter(cfg.Alpha, InitialSize),
		gate:   debounce.NewGate(cfg.Cooldown),
		rng:    rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x9e3779b97f4a7c15)),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.reset()
	return e
}

// Process interprets one frame and returns the resulting control update.
//
// Observations are handled in encounter order. A right hand updates the
// target and smooths the size immediately, so a left hand later in the same
// frame is tested against the grown or shrunk target. The smoothing step is
// taken once per frame: when a frame carries two right hands the later one's
// target wins and the step is recomputed from the size the frame started
// with. The debounce gate allows at most one color trigger per frame. Frames
// with more than detector.MaxHands observations are treated like empty
// frames. Without a right hand the size still relaxes toward the last
// target.
func (e *Engine) Process(frame detector.Frame) ControlUpdate {
	now := frame.Timestamp
	if now.IsZero() {
		now = e.now()
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	update := ControlUpdate{
		Timestamp: now,
		Hands:     len(frame.Hands),
	}

	start := e.state.CurrentSize
	if len(frame.Hands) <= detector.MaxHands {
		for i := range frame.Hands {
			hand := &frame.Hands[i]
			switch hand.Handedness {
			case detector.Right:
				e.applyPinch(&update, hand, start)
			case detector.Left:
				e.applyTouch(&update, hand, now)
			}
		}
	}

	if !update.RightHandActive {
		e.smooth(start)
	}

	update.State = e.state
	return update
}

// smooth takes one filter step from start toward the current target and
// keeps WorldRadius in step with the size.
func (e *Engine) smooth(start float64) {
	e.filter.Reset(start)
	e.state.CurrentSize = e.filter.Step(e.state.TargetSize)
	e.state.WorldRadius = e.cfg.BaseRadius * e.state.CurrentSize
}

func (e *Engine) applyPinch(update *ControlUpdate, hand *detector.HandLandmarks, start float64) {
	distance := geometry.Distance3D(hand.Points[detector.ThumbTip], hand.Points[detector.IndexTip])
	e.state.TargetSize = e.mapper.Map(distance)
	e.smooth(start)

	update.RightHandActive = true
	update.Size = &SizeUpdate{
		PinchDistance: distance,
		TargetSize:    e.state.TargetSize,
		CurrentSize:   e.state.CurrentSize,
	}
}

func (e *Engine) applyTouch(update *ControlUpdate, hand *detector.HandLandmarks, now time.Time) {
	update.LeftHandActive = true

	tip := hand.Points[detector.IndexTip]
	if !geometry.IsWithinTarget(tip, e.state.WorldPosition, e.state.WorldRadius) {
		return
	}
	update.Contact = true

	if !e.gate.Allow(true, now) {
		return
	}

	previous := e.state.Color
	e.state.Color = e.cfg.Palette[e.rng.IntN(len(e.cfg.Palette))]
	update.ColorTrigger = &ColorTrigger{
		Previous: previous,
		Color:    e.state.Color,
		Point:    geometry.ToWorldSpace(tip),
		At:       now,
	}
}

// Snapshot returns a copy of the current target state.
func (e *Engine) Snapshot() TargetState {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state
}

// Mapper returns the calibration currently in use.
func (e *Engine) Mapper() calibration.Mapper {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.mapper
}

// Recalibrate replaces the calibration mapper. Sizes are clamped into the new
// output range so the range invariant keeps holding.
func (e *Engine) Recalibrate(m calibration.Mapper) error {
	if err := m.Validate(); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.mapper = m
	e.state.TargetSize = m.Clamp(e.state.TargetSize)
	e.state.CurrentSize = m.Clamp(e.state.CurrentSize)
	e.filter.Reset(e.state.CurrentSize)
	e.state.WorldRadius = e.cfg.BaseRadius * e.state.CurrentSize
	return nil
}

// Reset returns the target to its startup state. Calibration is kept.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.reset()
}

func (e *Engine) reset() {
	size := e.mapper.Clamp(InitialSize)
	e.filter.Reset(size)
	e.gate = debounce.NewGate(e.cfg.Cooldown)
	e.state = TargetState{
		CurrentSize:   size,
		TargetSize:    size,
		Color:         InitialColor,
		WorldPosition: e.cfg.WorldPosition,
		WorldRadius:   e.cfg.BaseRadius * size,
	}
}
