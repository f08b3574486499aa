package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/ayusman/handsphere/internal/calibration"
)

// Calibrator reads and replaces the live calibration.
type Calibrator interface {
	Calibration() calibration.Mapper
	Recalibrate(m calibration.Mapper) error
}

// CalibrationHandler serves /api/calibration and /api/calibration/fit.
type CalibrationHandler struct {
	calibrator Calibrator
}

// NewCalibrationHandler creates a new CalibrationHandler.
func NewCalibrationHandler(c Calibrator) *CalibrationHandler {
	return &CalibrationHandler{calibrator: c}
}

type fitResponse struct {
	Mapper  calibration.Mapper `json:"mapper"`
	Applied bool               `json:"applied"`
}

func (h *CalibrationHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/calibration"), "/")

	switch {
	case path == "" && r.Method == http.MethodGet:
		writeJSON(w, http.StatusOK, h.calibrator.Calibration())
	case path == "" && r.Method == http.MethodPut:
		h.update(w, r)
	case path == "fit" && r.Method == http.MethodPost:
		h.fit(w, r)
	case path == "" || path == "fit":
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	default:
		writeError(w, http.StatusNotFound, "Not found")
	}
}

// update handles PUT /api/calibration with a complete mapper.
func (h *CalibrationHandler) update(w http.ResponseWriter, r *http.Request) {
	var m calibration.Mapper
	if err := json.NewDecoder(r.Body).Decode(&m); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if err := h.calibrator.Recalibrate(m); err != nil {
		if errors.Is(err, calibration.ErrInvalidRange) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to apply calibration")
		return
	}

	writeJSON(w, http.StatusOK, m)
}

// fit handles POST /api/calibration/fit. The fitted thresholds are applied
// unless ?dry_run=true.
func (h *CalibrationHandler) fit(w http.ResponseWriter, r *http.Request) {
	var samples calibration.Samples
	if err := json.NewDecoder(r.Body).Decode(&samples); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	m, err := calibration.Fit(h.calibrator.Calibration(), samples)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if r.URL.Query().Get("dry_run") == "true" {
		writeJSON(w, http.StatusOK, fitResponse{Mapper: m})
		return
	}

	if err := h.calibrator.Recalibrate(m); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to apply calibration")
		return
	}

	writeJSON(w, http.StatusOK, fitResponse{Mapper: m, Applied: true})
}
