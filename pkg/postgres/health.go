package postgres

import (
	"context"
	"fmt"
	"time"
)

// HealthStatus describes the Postgres connection and the configured anchor
// profile
type HealthStatus struct {
	Connected   bool      `json:"connected"`
	Database    string    `json:"database"`
	Profile     string    `json:"profile"`
	AnchorCount int       `json:"anchor_count"`
	Error       string    `json:"error,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// HealthCheck pings the database and counts the directives stored for the
// configured profile
func (c *PostgresClient) HealthCheck(ctx context.Context) (*HealthStatus, error) {
	status := HealthStatus{
		Database:  c.config.PostgresDB,
		Profile:   c.config.AnchorProfile,
		Timestamp: time.Now(),
	}

	if c.db == nil {
		status.Error = "not connected"
		return &status, nil
	}

	if err := c.db.PingContext(ctx); err != nil {
		status.Error = fmt.Sprintf("ping failed: %v", err)
		return &status, nil
	}
	status.Connected = true

	err := c.db.QueryRowContext(ctx,
		"SELECT count(*) FROM gamma_anchors WHERE profile = $1",
		c.config.AnchorProfile).Scan(&status.AnchorCount)
	if err != nil {
		status.Error = fmt.Sprintf("failed to count anchors: %v", err)
	}

	return &status, nil
}
