package plugin

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// maxConcurrent bounds how many plugins run for one event.
const maxConcurrent = 4

// Observer receives one call per plugin execution.
type Observer interface {
	ObservePlugin(name, status string)
}

// Result is the outcome of running one plugin for an event.
type Result struct {
	Plugin   string
	Response *Response
	Err      error
}

// Dispatcher fans events out to subscribed plugins.
type Dispatcher struct {
	manager  *Manager
	executor *Executor
	observer Observer
	logger   *slog.Logger
}

// NewDispatcher creates a dispatcher. observer may be nil.
func NewDispatcher(manager *Manager, executor *Executor, observer Observer, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Dispatcher{
		manager:  manager,
		executor: executor,
		observer: observer,
		logger:   logger,
	}
}

// Dispatch runs every plugin subscribed to event with data as the request
// payload and returns one result per plugin, in name order. Plugin
// failures are reported in the results, not as an error.
func (d *Dispatcher) Dispatch(ctx context.Context, event string, data any) ([]Result, error) {
	subscribers := d.manager.Subscribers(event)
	if len(subscribers) == 0 {
		return nil, nil
	}

	payload, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", event, err)
	}

	results := make([]Result, len(subscribers))
	now := time.Now()

	var g errgroup.Group
	g.SetLimit(maxConcurrent)
	for i, p := range subscribers {
		g.Go(func() error {
			req := &Request{
				ID:        uuid.New().String(),
				Event:     event,
				Timestamp: now,
				Config:    p.Manifest.Config,
				Data:      payload,
			}
			resp, err := d.executor.Execute(ctx, p, req)
			if err == nil && !resp.Success {
				err = fmt.Errorf("plugin %s: %s", p.Manifest.Name, resp.Error)
			}
			results[i] = Result{Plugin: p.Manifest.Name, Response: resp, Err: err}
			d.observe(p.Manifest.Name, req.ID, err)
			return nil
		})
	}
	_ = g.Wait()

	return results, nil
}

func (d *Dispatcher) observe(name, requestID string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
		d.logger.Warn("plugin failed", "plugin", name, "request", requestID, "error", err)
	} else {
		d.logger.Debug("plugin ran", "plugin", name, "request", requestID)
	}
	if d.observer != nil {
		d.observer.ObservePlugin(name, status)
	}
}
