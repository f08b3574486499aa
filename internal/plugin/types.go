// Package plugin discovers and runs external programs that react to
// engine events.
package plugin

import (
	"encoding/json"
	"slices"
	"time"
)

// EventColorChange is published whenever the debounce gate lets a color
// trigger through.
const EventColorChange = "color_change"

// Manifest describes a plugin's metadata and subscriptions. It is read
// from plugin.json or plugin.yaml.
type Manifest struct {
	Name        string         `json:"name" yaml:"name"`
	Version     string         `json:"version" yaml:"version"`
	Description string         `json:"description" yaml:"description"`
	Executable  string         `json:"executable" yaml:"executable"`
	Events      []string       `json:"events" yaml:"events"`
	Config      map[string]any `json:"config,omitempty" yaml:"config,omitempty"`
}

// Subscribes reports whether the manifest lists event.
func (m Manifest) Subscribes(event string) bool {
	return slices.Contains(m.Events, event)
}

// Request is written as JSON to a plugin's stdin.
type Request struct {
	ID        string          `json:"id"`
	Event     string          `json:"event"`
	Timestamp time.Time       `json:"timestamp"`
	Config    map[string]any  `json:"config,omitempty"`
	Data      json.RawMessage `json:"data"`
}

// ColorChange is the data of a color_change request.
type ColorChange struct {
	SessionID string  `json:"session_id,omitempty"`
	Previous  string  `json:"previous"`
	Color     string  `json:"color"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
}

// Response is read as JSON from a plugin's stdout.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Plugin represents a discovered plugin with its manifest and location.
type Plugin struct {
	Manifest   Manifest
	Path       string
	Executable string
}
