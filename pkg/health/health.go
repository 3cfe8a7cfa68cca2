package health

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/saaga0h/jeeves-gamma/internal/status"
)

// Reporter is the view of the agent state served by the status endpoint
type Reporter interface {
	Snapshot() status.Snapshot
	PublisherConnected() (enabled, connected bool)
}

// Checker provides health check functionality for the agent
type Checker struct {
	reporter Reporter
	logger   *slog.Logger
}

// NewChecker creates a new health checker
func NewChecker(reporter Reporter, logger *slog.Logger) *Checker {
	return &Checker{
		reporter: reporter,
		logger:   logger,
	}
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string           `json:"status"`
	Timestamp string           `json:"timestamp"`
	MQTT      string           `json:"mqtt,omitempty"`
	Gamma     *status.Snapshot `json:"gamma,omitempty"`
}

// HandlerFunc returns a liveness handler: 200 while the process is alive
func (h *Checker) HandlerFunc() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.write(w, http.StatusOK, HealthResponse{
			Status:    "ok",
			Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		})
	}
}

// DetailedHandlerFunc returns a handler reporting the last applied gamma and
// the MQTT connection. It answers 503 until the first value was applied or
// while an enabled MQTT publisher is disconnected.
func (h *Checker) DetailedHandlerFunc() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snapshot := h.reporter.Snapshot()

		mqtt := "disabled"
		if enabled, connected := h.reporter.PublisherConnected(); enabled {
			if connected {
				mqtt = "connected"
			} else {
				mqtt = "disconnected"
			}
		}

		statusText := "healthy"
		statusCode := http.StatusOK
		if snapshot.Applied == 0 || mqtt == "disconnected" {
			statusText = "degraded"
			statusCode = http.StatusServiceUnavailable
		}

		h.write(w, statusCode, HealthResponse{
			Status:    statusText,
			Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
			MQTT:      mqtt,
			Gamma:     &snapshot,
		})
	}
}

func (h *Checker) write(w http.ResponseWriter, code int, response HealthResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)

	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.logger.Error("Failed to encode health response", "error", err)
	}
}
