package server

import (
	"fmt"
	"net/http"

	"github.com/ayusman/handsphere/internal/capture"
)

// StreamHandler serves the latest camera frames as MJPEG.
type StreamHandler struct {
	latest *capture.Latest
}

// NewStreamHandler creates a new StreamHandler reading from latest.
func NewStreamHandler(latest *capture.Latest) *StreamHandler {
	return &StreamHandler{latest: latest}
}

// ServeHTTP streams each newly published frame until the client goes away.
func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	flusher, _ := w.(http.Flusher)

	var seq uint64
	for {
		data, next, err := h.latest.Wait(r.Context(), seq)
		if err != nil {
			return
		}
		seq = next

		fmt.Fprintf(w, "--frame\r\n")
		fmt.Fprintf(w, "Content-Type: image/jpeg\r\n")
		fmt.Fprintf(w, "Content-Length: %d\r\n\r\n", len(data))
		if _, err := w.Write(data); err != nil {
			return
		}
		fmt.Fprintf(w, "\r\n")

		if flusher != nil {
			flusher.Flush()
		}
	}
}
