// Package app wires the gesture engine to its landmark sources, the render
// loop, session recording and plugins.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ayusman/handsphere/internal/calibration"
	"github.com/ayusman/handsphere/internal/capture"
	"github.com/ayusman/handsphere/internal/detector"
	"github.com/ayusman/handsphere/internal/engine"
	"github.com/ayusman/handsphere/internal/logging"
	"github.com/ayusman/handsphere/internal/metrics"
	"github.com/ayusman/handsphere/internal/plugin"
	"github.com/ayusman/handsphere/internal/scene"
	"github.com/ayusman/handsphere/internal/store"
)

// Message kinds sent to the broadcaster.
const (
	MessageControl = "control"
	MessageScene   = "scene"
)

// SettingCalibration is the settings key holding the persisted mapper.
const SettingCalibration = "calibration"

// DefaultRenderFPS is the scene tick rate when none is configured.
const DefaultRenderFPS = 60

// Broadcaster fans messages out to remote renderers.
type Broadcaster interface {
	Broadcast(kind string, payload any)
}

// Options holds the application's collaborators. Only Engine is required.
type Options struct {
	Engine      *engine.Engine
	Detector    detector.Detector
	Camera      capture.Camera
	Latest      *capture.Latest
	Store       *store.Store
	Dispatcher  *plugin.Dispatcher
	Metrics     *metrics.Manager
	Broadcaster Broadcaster
	Logger      *slog.Logger
	RenderFPS   int
}

// Status is a point-in-time summary of the application.
type Status struct {
	Enabled     bool               `json:"enabled"`
	SessionID   string             `json:"session_id,omitempty"`
	Frames      int64              `json:"frames"`
	Hands       int                `json:"hands"`
	State       engine.TargetState `json:"state"`
	Scene       *scene.State       `json:"scene,omitempty"`
	Calibration calibration.Mapper `json:"calibration"`
}

// App orchestrates frame interpretation and its side effects.
type App struct {
	engine      *engine.Engine
	detector    detector.Detector
	camera      capture.Camera
	latest      *capture.Latest
	store       *store.Store
	dispatcher  *plugin.Dispatcher
	metrics     *metrics.Manager
	broadcaster Broadcaster
	logger      *slog.Logger
	animator    *scene.Animator
	renderFPS   int

	enabled   atomic.Bool
	frames    atomic.Int64
	lastScene atomic.Pointer[scene.State]

	mu        sync.RWMutex
	sessionID string
	lastHands []detector.HandLandmarks
	callbacks []func(engine.ColorTrigger)

	pluginMu sync.Mutex
	stopped  bool
	plugins  sync.WaitGroup
}

// New creates an enabled App.
func New(opts Options) *App {
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}
	if opts.RenderFPS <= 0 {
		opts.RenderFPS = DefaultRenderFPS
	}

	a := &App{
		engine:      opts.Engine,
		detector:    opts.Detector,
		camera:      opts.Camera,
		latest:      opts.Latest,
		store:       opts.Store,
		dispatcher:  opts.Dispatcher,
		metrics:     opts.Metrics,
		broadcaster: opts.Broadcaster,
		logger:      opts.Logger,
		animator:    scene.NewAnimator(opts.Engine, nil),
		renderFPS:   opts.RenderFPS,
	}
	a.enabled.Store(true)
	return a
}

// SetEnabled pauses or resumes frame interpretation.
func (a *App) SetEnabled(enabled bool) {
	a.enabled.Store(enabled)
	a.logger.Info("interpretation toggled", "enabled", enabled)
}

// IsEnabled returns whether frames are being interpreted.
func (a *App) IsEnabled() bool {
	return a.enabled.Load()
}

// SetBroadcaster replaces the broadcaster. It must be called before Run.
func (a *App) SetBroadcaster(b Broadcaster) {
	a.broadcaster = b
}

// OnColorChange registers fn to run after every color trigger.
func (a *App) OnColorChange(fn func(engine.ColorTrigger)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.callbacks = append(a.callbacks, fn)
}

// Engine returns the gesture engine.
func (a *App) Engine() *engine.Engine {
	return a.engine
}

// Latest returns the shared camera frame, or nil without a camera.
func (a *App) Latest() *capture.Latest {
	return a.latest
}

// LastHands returns the observations of the most recently processed frame.
func (a *App) LastHands() []detector.HandLandmarks {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return append([]detector.HandLandmarks(nil), a.lastHands...)
}

// SessionID returns the current recording session, or "".
func (a *App) SessionID() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.sessionID
}

// Status summarises the application state.
func (a *App) Status() Status {
	a.mu.RLock()
	hands := len(a.lastHands)
	session := a.sessionID
	a.mu.RUnlock()

	return Status{
		Enabled:     a.IsEnabled(),
		SessionID:   session,
		Frames:      a.frames.Load(),
		Hands:       hands,
		State:       a.engine.Snapshot(),
		Scene:       a.lastScene.Load(),
		Calibration: a.engine.Mapper(),
	}
}

// HandleFrame passes one frame to the engine and fans the result out to
// metrics, the recorder, plugins and the broadcaster. While disabled the
// frame is dropped and the update only carries the current state.
func (a *App) HandleFrame(ctx context.Context, frame detector.Frame) engine.ControlUpdate {
	if !a.IsEnabled() {
		return engine.ControlUpdate{
			Timestamp: frame.Timestamp,
			Hands:     len(frame.Hands),
			State:     a.engine.Snapshot(),
		}
	}

	start := time.Now()
	update := a.engine.Process(frame)
	took := time.Since(start)

	a.frames.Add(1)
	a.metrics.ObserveFrame(took, update.Contact, update.ColorTrigger != nil)
	for _, h := range frame.Hands {
		a.metrics.ObserveHand(string(h.Handedness))
	}
	a.metrics.SetSize(update.State.CurrentSize, update.State.TargetSize)

	a.mu.Lock()
	a.lastHands = append(a.lastHands[:0], frame.Hands...)
	a.mu.Unlock()

	if update.ColorTrigger != nil {
		a.handleTrigger(ctx, *update.ColorTrigger)
	}

	if a.broadcaster != nil {
		a.broadcaster.Broadcast(MessageControl, update)
	}
	return update
}

func (a *App) handleTrigger(ctx context.Context, trigger engine.ColorTrigger) {
	a.logger.Info("color changed", "from", trigger.Previous, "to", trigger.Color)

	session := a.SessionID()
	if a.store != nil && session != "" {
		err := a.store.Events().Add(&store.ColorEvent{
			SessionID:  session,
			Previous:   trigger.Previous.Hex(),
			Color:      trigger.Color.Hex(),
			X:          trigger.Point.X,
			Y:          trigger.Point.Y,
			OccurredAt: trigger.At,
		})
		if err != nil {
			a.logger.Warn("failed to record color event", "error", err)
		}
	}

	a.mu.RLock()
	callbacks := append([]func(engine.ColorTrigger){}, a.callbacks...)
	a.mu.RUnlock()
	for _, fn := range callbacks {
		fn(trigger)
	}

	if a.dispatcher != nil {
		change := plugin.ColorChange{
			SessionID: session,
			Previous:  trigger.Previous.Hex(),
			Color:     trigger.Color.Hex(),
			X:         trigger.Point.X,
			Y:         trigger.Point.Y,
		}
		// Plugins outlive the request or tick that produced the trigger.
		pctx := context.WithoutCancel(ctx)
		a.pluginMu.Lock()
		if a.stopped {
			a.pluginMu.Unlock()
			a.logger.Debug("dropping plugin dispatch after shutdown")
			return
		}
		a.plugins.Add(1)
		a.pluginMu.Unlock()
		go func() {
			defer a.plugins.Done()
			if _, err := a.dispatcher.Dispatch(pctx, plugin.EventColorChange, change); err != nil {
				a.logger.Warn("plugin dispatch failed", "error", err)
			}
		}()
	}
}

// Calibration returns the mapper in use.
func (a *App) Calibration() calibration.Mapper {
	return a.engine.Mapper()
}

// Recalibrate applies m to the engine and persists it.
func (a *App) Recalibrate(m calibration.Mapper) error {
	if err := a.engine.Recalibrate(m); err != nil {
		return err
	}
	if a.store != nil {
		if err := a.store.Settings().Set(SettingCalibration, m); err != nil {
			return fmt.Errorf("persist calibration: %w", err)
		}
	}
	a.logger.Info("calibration updated", "pinch_min", m.PinchMin, "pinch_max", m.PinchMax, "size_min", m.SizeMin, "size_max", m.SizeMax)
	return nil
}

// LoadCalibration applies the persisted mapper, if any.
func (a *App) LoadCalibration() error {
	if a.store == nil {
		return nil
	}

	var m calibration.Mapper
	err := a.store.Settings().Get(SettingCalibration, &m)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load calibration: %w", err)
	}
	if err := a.engine.Recalibrate(m); err != nil {
		return fmt.Errorf("apply stored calibration: %w", err)
	}
	a.logger.Info("loaded stored calibration", "pinch_min", m.PinchMin, "pinch_max", m.PinchMax)
	return nil
}

// Close releases the detector.
func (a *App) Close() error {
	if a.detector == nil {
		return nil
	}
	return a.detector.Close()
}
