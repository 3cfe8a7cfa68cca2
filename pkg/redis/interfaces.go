package redis

import "context"

// Client represents a Redis client interface for testing and abstraction
type Client interface {
	// Get gets the value of a key
	Get(ctx context.Context, key string) (string, error)

	// Ping checks the connection
	Ping(ctx context.Context) error

	// Close closes the connection
	Close() error
}
