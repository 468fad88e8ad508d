// Package application defines what leafmap commands need from the CLI
// application, so commands can be tested against a Mock.
package application

import (
	"context"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/gubancs/leafmap"
	"github.com/gubancs/leafmap/internal/server"
	"github.com/gubancs/leafmap/internal/store"
	"github.com/gubancs/leafmap/pkg/events"
)

// Transport names accepted by the serve command.
const (
	TransportWebSocket = "websocket"
	TransportRedis     = "redis"
)

// Application provides the dependencies commands use. All methods must
// be safe for concurrent access.
type Application interface {
	// Logger returns the configured logger instance.
	Logger() *zerolog.Logger

	// Registry returns the event-type registry sessions decode with.
	Registry() *events.Registry

	// SessionOptions returns the options every new session is created with.
	SessionOptions() []leafmap.Option

	// Store opens the configured snapshot store. It returns nil and no
	// error when no store is configured.
	Store(ctx context.Context) (store.Store, error)

	// Redis returns a client for the configured redis address.
	Redis() (redis.UniversalClient, error)

	// ServerConfig returns the configured server settings.
	ServerConfig() server.Config

	// Transport returns the configured browser transport name.
	Transport() string

	// OutputFormat returns the configured output format (json, yaml, table, wide).
	OutputFormat() string

	Version() string
	Commit() string
	Date() string
	BuiltBy() string
}
