// Package main provides a plugin that mirrors the target color into a
// file, for shell prompts, status bars and LED controllers that poll it.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Request represents the input from the plugin executor.
type Request struct {
	ID        string          `json:"id"`
	Event     string          `json:"event"`
	Timestamp time.Time       `json:"timestamp"`
	Config    Config          `json:"config"`
	Data      json.RawMessage `json:"data"`
}

// Config is the manifest config block.
type Config struct {
	Path   string `json:"path"`
	Append bool   `json:"append"`
}

// ColorChange is the data of a color_change event.
type ColorChange struct {
	SessionID string  `json:"session_id"`
	Previous  string  `json:"previous"`
	Color     string  `json:"color"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
}

// Response represents the output to the plugin executor.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func main() {
	var req Request
	if err := json.NewDecoder(os.Stdin).Decode(&req); err != nil {
		writeErrorResponse(fmt.Sprintf("failed to decode request: %v", err))
		return
	}

	if req.Event != "color_change" {
		writeErrorResponse(fmt.Sprintf("unsupported event: %s", req.Event))
		return
	}

	var change ColorChange
	if err := json.Unmarshal(req.Data, &change); err != nil {
		writeErrorResponse(fmt.Sprintf("invalid color_change data: %v", err))
		return
	}
	if !strings.HasPrefix(change.Color, "#") || len(change.Color) != 7 {
		writeErrorResponse(fmt.Sprintf("invalid color %q", change.Color))
		return
	}

	path, err := writeColor(req.Config, change, req.Timestamp)
	if err != nil {
		writeErrorResponse(err.Error())
		return
	}

	data, _ := json.Marshal(map[string]string{"path": path, "color": change.Color})
	writeSuccessResponse(data)
}

// writeColor stores the color at the configured path, relative paths
// resolving against the plugin directory.
func writeColor(cfg Config, change ColorChange, at time.Time) (string, error) {
	path := cfg.Path
	if path == "" {
		path = "current-color.txt"
	}
	if !filepath.IsAbs(path) {
		abs, err := filepath.Abs(path)
		if err != nil {
			return "", err
		}
		path = abs
	}

	if !cfg.Append {
		return path, os.WriteFile(path, []byte(change.Color+"\n"), 0644)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return "", err
	}
	defer f.Close()

	if at.IsZero() {
		at = time.Now()
	}
	_, err = fmt.Fprintf(f, "%s %s %s\n", at.Format(time.RFC3339Nano), change.Previous, change.Color)
	return path, err
}

// writeErrorResponse writes an error response to stdout.
func writeErrorResponse(errMsg string) {
	resp := Response{
		Success: false,
		Error:   errMsg,
	}
	json.NewEncoder(os.Stdout).Encode(resp)
}

// writeSuccessResponse writes a success response to stdout.
func writeSuccessResponse(data json.RawMessage) {
	resp := Response{
		Success: true,
		Data:    data,
	}
	json.NewEncoder(os.Stdout).Encode(resp)
}
