// Package app wires configuration, logging and shared clients for the
// leafmap CLI and hands them to commands through application.Application.
package app

import (
	"context"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/gubancs/leafmap"
	"github.com/gubancs/leafmap/internal/cmd/application"
	"github.com/gubancs/leafmap/internal/server"
	"github.com/gubancs/leafmap/internal/store"
	"github.com/gubancs/leafmap/pkg/errors"
	"github.com/gubancs/leafmap/pkg/events"
)

// App holds the CLI's configuration and lazily created clients.
type App struct {
	version string
	commit  string
	date    string
	builtBy string

	config *Config
	logger *zerolog.Logger

	mu       sync.RWMutex
	registry *events.Registry
	redis    redis.UniversalClient
}

var _ application.Application = (*App)(nil)

// New creates an App, loading configuration from files and environment.
func New(version, commit, date, builtBy string, opts ...Option) (*App, error) {
	app := &App{
		version: version,
		commit:  commit,
		date:    date,
		builtBy: builtBy,
	}

	config, err := LoadConfig()
	if err != nil {
		return nil, errors.WrapResource("load", "config", "", err)
	}
	app.config = config

	logger := NewLogger(config)
	app.logger = &logger

	for _, opt := range opts {
		if err := opt(app); err != nil {
			return nil, err
		}
	}

	return app, nil
}

// Version returns the version information.
func (a *App) Version() string {
	return a.version
}

// Commit returns the git commit hash.
func (a *App) Commit() string {
	return a.commit
}

// Date returns the build date.
func (a *App) Date() string {
	return a.date
}

// BuiltBy returns the build system identifier.
func (a *App) BuiltBy() string {
	return a.builtBy
}

// Config returns the application configuration.
func (a *App) Config() *Config {
	return a.config
}

// Logger returns the application logger.
func (a *App) Logger() *zerolog.Logger {
	return a.logger
}

// Registry returns the event-type registry. Unless overridden with
// WithRegistry it is the process-wide default.
func (a *App) Registry() *events.Registry {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.registry != nil {
		return a.registry
	}
	return events.Default()
}

// SessionOptions returns the options derived from the configuration.
func (a *App) SessionOptions() []leafmap.Option {
	return []leafmap.Option{
		leafmap.WithCallTimeout(a.config.CallTimeout),
		leafmap.WithQueueSize(a.config.QueueSize),
		leafmap.WithRegistry(a.Registry()),
		leafmap.WithLogger(a.logger),
	}
}

// Store opens the configured snapshot store; callers close it.
func (a *App) Store(ctx context.Context) (store.Store, error) {
	if a.config.Store == "" {
		return nil, nil
	}
	return store.Open(ctx, store.Config{
		Driver:      a.config.Store,
		SQLitePath:  a.config.SQLitePath,
		DatabaseURL: a.config.DatabaseURL,
	}, a.logger)
}

// Redis returns the shared redis client, creating it on first use.
func (a *App) Redis() (redis.UniversalClient, error) {
	a.mu.RLock()
	if a.redis != nil {
		c := a.redis
		a.mu.RUnlock()
		return c, nil
	}
	a.mu.RUnlock()

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.redis != nil {
		return a.redis, nil
	}
	if a.config.RedisAddr == "" {
		return nil, errors.NewConfigError("redis", "redis_addr is empty", nil)
	}
	a.redis = redis.NewClient(&redis.Options{Addr: a.config.RedisAddr})
	return a.redis, nil
}

// ServerConfig returns the configured server settings.
func (a *App) ServerConfig() server.Config {
	return a.config.Server
}

// Transport returns the configured browser transport.
func (a *App) Transport() string {
	return a.config.Transport
}

// OutputFormat returns the configured output format.
func (a *App) OutputFormat() string {
	return a.config.Format
}

// Shutdown releases clients created by the app.
func (a *App) Shutdown(_ context.Context) error {
	a.mu.Lock()
	c := a.redis
	a.redis = nil
	a.mu.Unlock()

	if c != nil {
		if err := c.Close(); err != nil {
			a.logger.Error().Err(err).Msg("Closing redis client during shutdown")
			return err
		}
	}
	return nil
}

// Option is a functional option for configuring the App.
type Option func(*App) error

// WithConfig sets a custom configuration.
func WithConfig(config *Config) Option {
	return func(a *App) error {
		a.config = config
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *zerolog.Logger) Option {
	return func(a *App) error {
		a.logger = logger
		return nil
	}
}

// WithRegistry sets the event-type registry (useful for testing).
func WithRegistry(r *events.Registry) Option {
	return func(a *App) error {
		a.registry = r
		return nil
	}
}

// WithRedis sets the redis client.
func WithRedis(c redis.UniversalClient) Option {
	return func(a *App) error {
		a.redis = c
		return nil
	}
}
