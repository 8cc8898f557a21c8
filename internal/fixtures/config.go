package fixtures

import "time"

// Config holds configuration for the fixture server.
type Config struct {
	// Port is the port on which the fixture server listens.
	Port int

	// HangFor bounds how long /hanging keeps its subresource open. Zero
	// means until the client goes away.
	HangFor time.Duration

	// SlowDelay is the default delay for /slow when no ?ms= is given.
	SlowDelay time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Port:      9999,
		SlowDelay: 2 * time.Second,
	}
}
