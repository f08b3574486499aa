// Package server provides the HTTP surface of handsphere: landmark ingest,
// state, previews, recorded sessions, calibration and metrics.
package server

import (
	"encoding/json"
	"errors"
	"image"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/ayusman/handsphere/internal/app"
	"github.com/ayusman/handsphere/internal/detector"
	"github.com/ayusman/handsphere/internal/logging"
	"github.com/ayusman/handsphere/internal/metrics"
	"github.com/ayusman/handsphere/internal/overlay"
	"github.com/ayusman/handsphere/internal/server/api"
	"github.com/ayusman/handsphere/internal/store"
)

// Overlay size limits for /api/overlay.
const (
	DefaultOverlayWidth  = 640
	DefaultOverlayHeight = 480
	MaxOverlayDimension  = 4096
)

// Config holds the server configuration. App is required.
type Config struct {
	StaticDir string
	App       *app.App
	Store     *store.Store
	Metrics   *metrics.Manager
	Hub       *Hub
	Logger    *slog.Logger
}

// Server represents the HTTP server.
type Server struct {
	config Config
	logger *slog.Logger
	mux    *http.ServeMux
	start  time.Time
}

// New creates a new Server with the given configuration.
func New(config Config) *Server {
	logger := config.Logger
	if logger == nil {
		logger = logging.Discard()
	}

	s := &Server{
		config: config,
		logger: logger,
		mux:    http.NewServeMux(),
		start:  time.Now(),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/health", s.handleHealth)

	if s.config.App != nil {
		s.mux.HandleFunc("/api/state", s.handleState)
		s.mux.HandleFunc("/api/enabled", s.handleEnabled)
		s.mux.HandleFunc("/api/frames", s.handleFrames)
		s.mux.HandleFunc("/api/overlay", s.handleOverlay)

		calibration := api.NewCalibrationHandler(s.config.App)
		s.mux.Handle("/api/calibration", calibration)
		s.mux.Handle("/api/calibration/", calibration)

		if latest := s.config.App.Latest(); latest != nil {
			s.mux.Handle("/api/stream", NewStreamHandler(latest))
		}
	}

	if s.config.Hub != nil {
		s.mux.Handle("/api/ws", s.config.Hub)
	}

	if s.config.Store != nil {
		sessions := api.NewSessionHandler(s.config.Store)
		s.mux.Handle("/api/sessions", sessions)
		s.mux.Handle("/api/sessions/", sessions)
	}

	if s.config.Metrics != nil {
		s.mux.Handle("/metrics", s.config.Metrics.Handler())
	}

	if s.config.StaticDir != "" {
		s.mux.Handle("/", http.FileServer(http.Dir(s.config.StaticDir)))
	}
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// handleHealth handles GET requests to /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := map[string]any{
		"status": "ok",
		"uptime": time.Since(s.start).String(),
	}
	if s.config.App != nil {
		response["enabled"] = s.config.App.IsEnabled()
	}
	if s.config.Hub != nil {
		response["clients"] = s.config.Hub.Clients()
	}

	writeJSON(w, http.StatusOK, response)
}

// handleState handles GET /api/state.
func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, s.config.App.Status())
}

// handleEnabled handles GET and PUT /api/enabled.
func (s *Server) handleEnabled(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
	case http.MethodPut:
		var req struct {
			Enabled *bool `json:"enabled"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Enabled == nil {
			writeError(w, http.StatusBadRequest, "Expected {\"enabled\": bool}")
			return
		}
		s.config.App.SetEnabled(*req.Enabled)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"enabled": s.config.App.IsEnabled()})
}

// handleFrames handles POST /api/frames: one frame from a remote landmark
// source, answered with the resulting control update.
func (s *Server) handleFrames(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var frame detector.Frame
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxMessageSize)).Decode(&frame); err != nil {
		s.config.Metrics.RejectFrame("http")
		if errors.Is(err, detector.ErrInvalidFrame) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if err := frame.Validate(); err != nil {
		s.config.Metrics.RejectFrame("http")
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if frame.Timestamp.IsZero() {
		frame.Timestamp = time.Now()
	}

	writeJSON(w, http.StatusOK, s.config.App.HandleFrame(r.Context(), frame))
}

// handleOverlay handles GET /api/overlay?format=png|webp&width=W&height=H.
// The last observed hands and the target are drawn over the latest camera
// frame when one is available.
func (s *Server) handleOverlay(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	q := r.URL.Query()
	format, err := overlay.ParseFormat(q.Get("format"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	width, ok := dimension(q.Get("width"), DefaultOverlayWidth)
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid width")
		return
	}
	height, ok := dimension(q.Get("height"), DefaultOverlayHeight)
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid height")
		return
	}

	a := s.config.App
	var background image.Image
	if latest := a.Latest(); latest != nil {
		background = latest.Image()
	}
	img := overlay.NewRenderer(width, height).Render(a.LastHands(), a.Engine().Snapshot(), background)

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Cache-Control", "no-store")
	if err := overlay.Encode(w, img, format); err != nil {
		s.logger.Warn("overlay encode failed", "format", format, "error", err)
	}
}

func dimension(raw string, def int) (int, bool) {
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 || n > MaxOverlayDimension {
		return 0, false
	}
	return n, true
}
