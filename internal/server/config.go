package server

import "time"

// Config holds server configuration.
type Config struct {
	// Server settings
	Host string
	Port int

	// API settings
	PathPrefix string

	// CORS settings. CORSOrigins also restricts websocket origins.
	CORSEnabled bool
	CORSOrigins []string

	// Authentication settings
	AuthEnabled bool
	AuthHeader  string

	// Performance settings
	RateLimit int // Requests per minute per IP (0 to disable)
	CacheTTL  time.Duration

	// Sessions detached longer than this are closed (0 keeps them).
	SessionIdleTimeout time.Duration

	// HTTP timeouts. WriteTimeout is zero by default because event
	// streams stay open; websocket pumps set their own deadlines.
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration

	// Features
	MetricsEnabled bool
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Host:               "localhost",
		Port:               8080,
		PathPrefix:         "/api/v1",
		CORSEnabled:        false,
		CORSOrigins:        []string{},
		AuthEnabled:        false,
		AuthHeader:         "X-API-Key",
		RateLimit:          100,
		CacheTTL:           5 * time.Second,
		SessionIdleTimeout: 10 * time.Minute,
		ReadTimeout:        10 * time.Second,
		WriteTimeout:       0,
		IdleTimeout:        120 * time.Second,
		MetricsEnabled:     true,
	}
}
