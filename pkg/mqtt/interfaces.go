package mqtt

import "context"

// Client is what the gamma agent needs from a broker connection: announce
// the applied gamma as a retained context message and report whether the
// broker is reachable for /status.
type Client interface {
	Connect(ctx context.Context) error
	Disconnect()

	// Publish sends one gamma context message. Retained messages let late
	// subscribers see the display's current colour temperature.
	Publish(topic string, qos byte, retained bool, payload []byte) error

	// IsConnected backs the MQTT field of the detailed health response
	IsConnected() bool
}
