package app

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ayusman/handsphere/internal/detector"
	"github.com/ayusman/handsphere/internal/store"
)

// Run records a session and drives the detection and render loops until
// ctx is cancelled. Without a camera only the render loop runs and frames
// arrive through HandleFrame from remote sources.
func (a *App) Run(ctx context.Context) error {
	source := "remote"
	if a.camera != nil {
		source = "camera"
	}
	if err := a.StartSession(source); err != nil {
		return err
	}
	defer a.EndSession()

	a.pluginMu.Lock()
	a.stopped = false
	a.pluginMu.Unlock()

	g, ctx := errgroup.WithContext(ctx)
	if a.camera != nil && a.detector != nil {
		g.Go(func() error { return a.runPipeline(ctx) })
	}
	g.Go(func() error { return a.runRenderLoop(ctx) })

	err := g.Wait()

	// Triggers arriving after this point are not dispatched.
	a.pluginMu.Lock()
	a.stopped = true
	a.pluginMu.Unlock()
	a.plugins.Wait()
	return err
}

// StartSession opens a recording session. It is a no-op without a store.
func (a *App) StartSession(source string) error {
	if a.store == nil {
		return nil
	}

	sess := &store.Session{Source: source}
	if err := a.store.Sessions().Create(sess); err != nil {
		return err
	}

	a.mu.Lock()
	a.sessionID = sess.ID
	a.mu.Unlock()

	a.logger.Info("session started", "session", sess.ID, "source", source)
	return nil
}

// EndSession closes the current session with the processed frame count.
func (a *App) EndSession() {
	a.mu.Lock()
	id := a.sessionID
	a.sessionID = ""
	a.mu.Unlock()

	if a.store == nil || id == "" {
		return
	}
	if err := a.store.Sessions().End(id, a.frames.Load(), time.Now()); err != nil {
		a.logger.Warn("failed to close session", "session", id, "error", err)
		return
	}
	a.logger.Info("session ended", "session", id, "frames", a.frames.Load())
}

// runPipeline reads camera frames at the camera rate, publishes them for
// previews and feeds the detector output to the engine. A camera that
// cannot be opened disables the local pipeline; it is not retried.
func (a *App) runPipeline(ctx context.Context) error {
	if err := a.camera.Open(); err != nil {
		a.logger.Error("camera unavailable, local pipeline disabled", "error", err)
		return nil
	}
	defer func() {
		if err := a.camera.Close(); err != nil {
			a.logger.Warn("error closing camera", "error", err)
		}
	}()

	fps := a.camera.FPS()
	a.logger.Info("detection pipeline started", "fps", fps)

	ticker := time.NewTicker(time.Second / time.Duration(fps))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			a.logger.Info("detection pipeline stopped")
			return nil
		case <-ticker.C:
			if !a.IsEnabled() {
				continue
			}
			a.processCameraFrame(ctx)
		}
	}
}

func (a *App) processCameraFrame(ctx context.Context) {
	mat, err := a.camera.ReadFrame()
	if err != nil {
		a.logger.Debug("error reading frame", "error", err)
		return
	}
	defer mat.Close()

	if a.latest != nil {
		if err := a.latest.Publish(mat); err != nil {
			a.logger.Debug("error publishing frame", "error", err)
		}
	}

	hands, err := a.detector.Detect(mat)
	if err != nil {
		a.logger.Warn("error detecting hands", "error", err)
		return
	}

	a.HandleFrame(ctx, detector.Frame{Hands: hands, Timestamp: time.Now()})
}

// runRenderLoop advances the scene animation at the render rate and
// broadcasts each state.
func (a *App) runRenderLoop(ctx context.Context) error {
	ticker := time.NewTicker(time.Second / time.Duration(a.renderFPS))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			state := a.animator.Tick()
			a.lastScene.Store(&state)
			if a.broadcaster != nil {
				a.broadcaster.Broadcast(MessageScene, state)
			}
		}
	}
}
