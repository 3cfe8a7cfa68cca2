package postgres

import (
	"context"
	"database/sql"
)

// Client reads anchor directives from the gamma_anchors table. The agent
// connects once at startup, loads a profile and disconnects.
type Client interface {
	Connect(ctx context.Context) error
	Disconnect() error

	// Query runs the directive lookup for gamma.PostgresSource
	Query(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)

	// HealthCheck pings the database and counts the anchors stored for the
	// configured profile
	HealthCheck(ctx context.Context) (*HealthStatus, error)
}
