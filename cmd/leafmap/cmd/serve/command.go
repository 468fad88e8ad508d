// Package serve provides the command that runs the leafmap server.
package serve

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/gubancs/leafmap"
	"github.com/gubancs/leafmap/internal/cmd/application"
	"github.com/gubancs/leafmap/internal/mapdef"
	"github.com/gubancs/leafmap/internal/server"
	"github.com/gubancs/leafmap/internal/server/sessions"
	"github.com/gubancs/leafmap/internal/transport/redisrelay"
	"github.com/gubancs/leafmap/pkg/errors"
	"github.com/gubancs/leafmap/pkg/leaflet"
)

const shutdownTimeout = 30 * time.Second

// NewCommand creates the serve command. Flag defaults come from the
// loaded configuration.
func NewCommand(app application.Application) *cobra.Command {
	defaults := app.ServerConfig()

	cmd := &cobra.Command{
		Use:     "serve",
		Aliases: []string{"server"},
		GroupID: "core",
		Short:   "Start the map session server",
		Long: `Start the HTTP server that hosts map sessions.

Each browser connects to /sessions/{id}/ws and is bound to the session
with that id; reconnecting with the same id reattaches. The server also
provides:
  - a REST API listing sessions and their layer trees
  - snapshot persistence when a store is configured
  - an SSE stream of dispatched events (/events/stream)
  - the registered event types (/event-types)
  - an optional redis pub/sub relay (--transport redis)`,
		Example: `  # Start on the default port
  leafmap serve

  # Seed every new session from a map definition
  leafmap serve --map examples/london.yaml

  # Relay sessions over redis as well
  REDIS_ADDR=localhost:6379 leafmap serve --transport redis`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServer(cmd, app)
		},
	}

	cmd.Flags().Int("port", defaults.Port, "Server port")
	cmd.Flags().String("host", defaults.Host, "Bind address")
	cmd.Flags().String("prefix", defaults.PathPrefix, "API path prefix")

	cmd.Flags().Bool("cors", defaults.CORSEnabled, "Enable CORS for all origins")
	cmd.Flags().StringSlice("cors-origins", defaults.CORSOrigins, "Allowed CORS and websocket origins (comma-separated)")

	cmd.Flags().Bool("auth", defaults.AuthEnabled, "Enable API key authentication (key from LEAFMAP_API_KEY)")
	cmd.Flags().String("auth-header", defaults.AuthHeader, "Authentication header name")

	cmd.Flags().Int("rate-limit", defaults.RateLimit, "Requests per minute per IP (0 to disable)")
	cmd.Flags().Duration("cache-ttl", defaults.CacheTTL, "Snapshot cache TTL")
	cmd.Flags().Duration("session-idle-timeout", defaults.SessionIdleTimeout, "Close sessions detached this long (0 keeps them)")

	cmd.Flags().Duration("read-timeout", defaults.ReadTimeout, "HTTP read timeout")
	cmd.Flags().Duration("write-timeout", defaults.WriteTimeout, "HTTP write timeout (0 for none)")
	cmd.Flags().Duration("idle-timeout", defaults.IdleTimeout, "HTTP idle timeout")

	cmd.Flags().Bool("metrics", defaults.MetricsEnabled, "Enable metrics endpoint")

	cmd.Flags().String("map", "", "map definition (YAML) applied to every new session")
	cmd.Flags().String("transport", app.Transport(), "browser transport: websocket or redis (redis also keeps the HTTP API)")

	return cmd
}

func runServer(cmd *cobra.Command, app application.Application) error {
	ctx := cmd.Context()
	cfg := parseConfig(cmd)
	logger := app.Logger()

	transport := mustGetString(cmd, "transport")
	if transport != application.TransportWebSocket && transport != application.TransportRedis {
		return errors.NewValidationError("transport", transport, "must be websocket or redis")
	}

	opts := app.SessionOptions()
	var def *mapdef.Definition
	if path := mustGetString(cmd, "map"); path != "" {
		d, err := mapdef.Load(path)
		if err != nil {
			return err
		}
		def = d
		opts = append(append([]leafmap.Option{}, opts...), leafmap.WithMapOptions(def.MapOptions()))
		logger.Info().Str("map", path).Int("layers", len(def.Layers)).Msg("Seeding sessions from map definition")
	}

	mgr := sessions.NewManager(logger, opts...)
	if def != nil {
		mgr.OnCreate(func(sess leafmap.Session) {
			seed(sess, def, logger)
		})
	}

	st, err := app.Store(ctx)
	if err != nil {
		return err
	}
	if st != nil {
		defer func() {
			if err := st.Close(); err != nil {
				logger.Warn().Err(err).Msg("Closing snapshot store")
			}
		}()
	}

	logger.Info().
		Int("port", cfg.Port).
		Str("host", cfg.Host).
		Str("prefix", cfg.PathPrefix).
		Bool("cors", cfg.CORSEnabled).
		Bool("auth", cfg.AuthEnabled).
		Int("rate_limit", cfg.RateLimit).
		Dur("cache_ttl", cfg.CacheTTL).
		Str("transport", transport).
		Bool("store", st != nil).
		Msg("Starting leafmap server")

	srv, err := server.New(cfg, mgr, st, app.Registry(), logger)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}
	srv.Start()

	relayErr := make(chan error, 1)
	if transport == application.TransportRedis {
		client, err := app.Redis()
		if err != nil {
			return err
		}
		relay := redisrelay.New(client, redisrelay.WithLogger(logger))
		go func() {
			relayErr <- relay.Serve(ctx, mgr)
		}()
		logger.Info().Str("channel", relay.ConnectChannel()).Msg("Redis relay listening")
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      srv.Handler(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return startWithGracefulShutdown(ctx, httpServer, srv, relayErr, logger)
}

// seed applies def to a freshly created session before any browser is
// attached to it.
func seed(sess leafmap.Session, def *mapdef.Definition, logger *zerolog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var applyErr error
	err := sess.Do(ctx, func(m *leaflet.Map) {
		_, applyErr = def.Apply(m)
	})
	if err == nil {
		err = applyErr
	}
	if err != nil {
		logger.Error().Err(err).Str("session_id", sess.ID()).Msg("Seeding session from map definition")
	}
}

// parseConfig parses command flags into server configuration.
func parseConfig(cmd *cobra.Command) server.Config {
	port := mustGetInt(cmd, "port")
	host := mustGetString(cmd, "host")

	// Environment overrides for container deployments
	if envPort := os.Getenv("HTTP_PORT"); envPort != "" {
		if p, err := parsePort(envPort); err == nil {
			port = p
		}
	}
	if envHost := os.Getenv("HTTP_HOST"); envHost != "" {
		host = envHost
	}

	return server.Config{
		Host:               host,
		Port:               port,
		PathPrefix:         mustGetString(cmd, "prefix"),
		CORSEnabled:        mustGetBool(cmd, "cors"),
		CORSOrigins:        mustGetStringSlice(cmd, "cors-origins"),
		AuthEnabled:        mustGetBool(cmd, "auth"),
		AuthHeader:         mustGetString(cmd, "auth-header"),
		RateLimit:          mustGetInt(cmd, "rate-limit"),
		CacheTTL:           mustGetDuration(cmd, "cache-ttl"),
		SessionIdleTimeout: mustGetDuration(cmd, "session-idle-timeout"),
		ReadTimeout:        mustGetDuration(cmd, "read-timeout"),
		WriteTimeout:       mustGetDuration(cmd, "write-timeout"),
		IdleTimeout:        mustGetDuration(cmd, "idle-timeout"),
		MetricsEnabled:     mustGetBool(cmd, "metrics"),
	}
}

// parsePort safely parses a port string to integer.
func parsePort(portStr string) (int, error) {
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return 0, fmt.Errorf("invalid port number: %s", portStr)
	}
	if port < 1 || port > 65535 {
		return 0, fmt.Errorf("port out of range: %d", port)
	}
	return port, nil
}

// startWithGracefulShutdown serves until ctx ends, then drains HTTP
// connections and stops background services.
func startWithGracefulShutdown(ctx context.Context, httpServer *http.Server, srv *server.Server, relayErr <-chan error, logger *zerolog.Logger) error {
	serverErr := make(chan error, 1)

	go func() {
		logger.Info().Str("addr", httpServer.Addr).Msg("HTTP server listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- fmt.Errorf("server failed: %w", err)
		}
	}()

	var runErr error
	select {
	case runErr = <-serverErr:
	case err := <-relayErr:
		if err != nil && ctx.Err() == nil {
			runErr = fmt.Errorf("redis relay failed: %w", err)
		}
	case <-ctx.Done():
		logger.Info().Msg("Shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("HTTP server shutdown")
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("Background services shutdown had issues")
	}
	if runErr == nil {
		logger.Info().Msg("Server stopped gracefully")
	}
	return runErr
}

func mustGetInt(cmd *cobra.Command, name string) int {
	val, err := cmd.Flags().GetInt(name)
	if err != nil {
		panic(fmt.Sprintf("programming error: failed to get flag %q: %v", name, err))
	}
	return val
}

func mustGetString(cmd *cobra.Command, name string) string {
	val, err := cmd.Flags().GetString(name)
	if err != nil {
		panic(fmt.Sprintf("programming error: failed to get flag %q: %v", name, err))
	}
	return val
}

func mustGetBool(cmd *cobra.Command, name string) bool {
	val, err := cmd.Flags().GetBool(name)
	if err != nil {
		panic(fmt.Sprintf("programming error: failed to get flag %q: %v", name, err))
	}
	return val
}

func mustGetStringSlice(cmd *cobra.Command, name string) []string {
	val, err := cmd.Flags().GetStringSlice(name)
	if err != nil {
		panic(fmt.Sprintf("programming error: failed to get flag %q: %v", name, err))
	}
	return val
}

func mustGetDuration(cmd *cobra.Command, name string) time.Duration {
	val, err := cmd.Flags().GetDuration(name)
	if err != nil {
		panic(fmt.Sprintf("programming error: failed to get flag %q: %v", name, err))
	}
	return val
}
