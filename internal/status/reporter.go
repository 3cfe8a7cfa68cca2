package status

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/saaga0h/jeeves-gamma/internal/scheduler"
	"github.com/saaga0h/jeeves-gamma/pkg/mqtt"
)

// Publisher is the subset of the MQTT client used for status messages
type Publisher interface {
	Publish(topic string, qos byte, retained bool, payload []byte) error
	IsConnected() bool
}

// Snapshot is the most recently applied sample, as served by /status
type Snapshot struct {
	RunID     string  `json:"run_id"`
	Sink      string  `json:"sink"`
	Mode      string  `json:"mode,omitempty"`
	Clock     string  `json:"time,omitempty"`
	Minute    float64 `json:"minute"`
	Red       float64 `json:"red"`
	Green     float64 `json:"green"`
	Blue      float64 `json:"blue"`
	Applied   int     `json:"applied"`
	Timestamp string  `json:"timestamp,omitempty"`
}

// Reporter records applied samples and optionally announces them over MQTT.
// It is the only state shared with the health server.
type Reporter struct {
	mu       sync.RWMutex
	last     Snapshot
	location string

	publisher Publisher
	logger    *slog.Logger
}

// NewReporter creates a reporter for the named sink. A nil publisher
// disables MQTT announcements.
func NewReporter(sink, location string, publisher Publisher, logger *slog.Logger) *Reporter {
	return &Reporter{
		last: Snapshot{
			RunID: uuid.NewString(),
			Sink:  sink,
		},
		location:  location,
		publisher: publisher,
		logger:    logger,
	}
}

// Observe implements scheduler.Observer
func (r *Reporter) Observe(ctx context.Context, s scheduler.Sample) {
	r.mu.Lock()
	r.last.Mode = s.Mode.String()
	r.last.Clock = scheduler.FormatClock(s.Instant)
	r.last.Minute = s.Instant
	r.last.Red = s.Gamma.Red
	r.last.Green = s.Gamma.Green
	r.last.Blue = s.Gamma.Blue
	r.last.Applied++
	r.last.Timestamp = s.At.Format(time.RFC3339)
	snapshot := r.last
	r.mu.Unlock()

	// Simulated sweeps are not announced, only the real current value
	if r.publisher == nil || s.Mode == scheduler.ModeSimulate {
		return
	}

	if err := r.publish(snapshot); err != nil {
		r.logger.Warn("Failed to publish gamma context", "error", err)
	}
}

// Snapshot returns a copy of the last applied sample
func (r *Reporter) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.last
}

// PublisherConnected reports the MQTT state for health checks
func (r *Reporter) PublisherConnected() (enabled, connected bool) {
	if r.publisher == nil {
		return false, false
	}
	return true, r.publisher.IsConnected()
}

func (r *Reporter) publish(s Snapshot) error {
	msg := map[string]interface{}{
		"source":    "gamma-agent",
		"type":      "display_gamma",
		"location":  r.location,
		"run_id":    s.RunID,
		"sink":      s.Sink,
		"mode":      s.Mode,
		"time":      s.Clock,
		"minute":    s.Minute,
		"red":       s.Red,
		"green":     s.Green,
		"blue":      s.Blue,
		"timestamp": s.Timestamp,
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal gamma context: %w", err)
	}

	topic := mqtt.GammaContextTopic(r.location)
	if err := r.publisher.Publish(topic, 0, true, payload); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", topic, err)
	}

	r.logger.Debug("Published gamma context", "topic", topic)
	return nil
}
