// Package server exposes leafmap sessions over HTTP: a websocket endpoint
// per session, a REST view of sessions and saved snapshots, and an SSE
// stream of session activity.
package server

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/gubancs/leafmap"
	"github.com/gubancs/leafmap/internal/server/cache"
	"github.com/gubancs/leafmap/internal/server/events"
	"github.com/gubancs/leafmap/internal/server/events/adapters"
	"github.com/gubancs/leafmap/internal/server/middleware"
	"github.com/gubancs/leafmap/internal/server/sessions"
	"github.com/gubancs/leafmap/internal/server/sse"
	ws "github.com/gubancs/leafmap/internal/server/websocket"
	"github.com/gubancs/leafmap/internal/store"
	"github.com/gubancs/leafmap/pkg/bridge"
	"github.com/gubancs/leafmap/pkg/errors"
	eventtypes "github.com/gubancs/leafmap/pkg/events"
	"github.com/gubancs/leafmap/pkg/logging"
)

// Server holds the HTTP server state and dependencies.
type Server struct {
	sessions       *sessions.Manager
	store          store.Store
	registry       *eventtypes.Registry
	cache          *cache.Cache
	broker         *events.Broker
	wsHub          *ws.Hub
	sseBroadcaster *sse.Broadcaster
	upgrader       websocket.Upgrader
	logger         *zerolog.Logger
	config         Config
	ctx            context.Context
	cancel         context.CancelFunc
	wg             sync.WaitGroup
	startTime      time.Time
}

// New creates a server around mgr. st may be nil to run without
// persistence; a nil registry means the process-wide default.
func New(cfg Config, mgr *sessions.Manager, st store.Store, registry *eventtypes.Registry, logger *zerolog.Logger) (*Server, error) {
	if mgr == nil {
		return nil, errors.NewValidationError("sessions", nil, "session manager is required")
	}
	if registry == nil {
		registry = eventtypes.Default()
	}
	logger = logging.OrNop(logger)
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = DefaultConfig().CacheTTL
	}

	broker := events.NewBroker(logger)
	wsHub := ws.NewHub(logger)
	sseBroadcaster := sse.NewBroadcaster(logger)
	broker.Subscribe(adapters.NewSSESubscriber(sseBroadcaster))

	ctx, cancel := context.WithCancel(context.Background())

	origins := cfg.CORSOrigins
	s := &Server{
		sessions:       mgr,
		store:          st,
		registry:       registry,
		cache:          cache.New(cfg.CacheTTL, cfg.CacheTTL*2),
		broker:         broker,
		wsHub:          wsHub,
		sseBroadcaster: sseBroadcaster,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" || len(origins) == 0 {
					return true
				}
				return middleware.OriginAllowed(origin, origins)
			},
		},
		logger:    logger,
		config:    cfg,
		ctx:       ctx,
		cancel:    cancel,
		startTime: time.Now(),
	}

	s.connectHooks()
	logger.Debug().Msg("Server instance created")
	return s, nil
}

// connectHooks publishes session activity to the broker and keeps the
// snapshot cache honest.
func (s *Server) connectHooks() {
	s.sessions.OnCreate(func(sess leafmap.Session) {
		s.broker.Publish(events.SessionCreated, sess.ID(), nil)

		sess.OnAttached(func(id string) {
			s.cache.Invalidate(id)
			s.broker.Publish(events.SessionAttached, id, nil)
		})
		sess.OnDetached(func(id string) {
			s.broker.Publish(events.SessionDetached, id, nil)
		})
		sess.OnEventDispatched(func(id string, e eventtypes.Event) {
			s.cache.Invalidate(id)
			s.broker.Publish(events.EventDispatched, id, dispatchedData(e))
		})
		sess.OnEventDropped(func(id string, msg *bridge.Message, err error) {
			s.broker.Publish(events.EventDropped, id, map[string]any{
				"eventTypeName": msg.EventTypeName,
				"targetId":      msg.TargetID,
				"error":         err.Error(),
			})
		})
	})

	s.sessions.OnRemove(func(id string) {
		s.cache.Invalidate(id)
		s.broker.Publish(events.SessionClosed, id, nil)
	})

	s.wsHub.OnDisconnect(func(id string) {
		if sess, err := s.sessions.Get(id); err == nil {
			sess.Detach()
		}
	})
}

func dispatchedData(e eventtypes.Event) map[string]any {
	data := map[string]any{
		"type":   e.Type().Name(),
		"family": string(e.Type().Family()),
		"event":  e,
	}
	if t := e.Target(); t != nil {
		data["targetId"] = t.ID()
		data["targetKind"] = t.Kind()
	}
	return data
}

// Start starts background services (broker, WebSocket hub, SSE
// broadcaster, idle session sweep).
func (s *Server) Start() {
	s.logger.Debug().Msg("Starting background services")

	s.goRun(func() { s.broker.Run(s.ctx) })
	s.goRun(func() { s.wsHub.Run(s.ctx) })
	s.goRun(func() { s.sseBroadcaster.Run(s.ctx) })

	idle := s.config.SessionIdleTimeout
	s.goRun(func() { s.sessions.Run(s.ctx, sweepInterval(idle), idle) })

	s.logger.Debug().Msg("All background services started")
}

func (s *Server) goRun(fn func()) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		fn()
	}()
}

func sweepInterval(idle time.Duration) time.Duration {
	if every := idle / 2; every > 0 && every < time.Minute {
		return every
	}
	return time.Minute
}

// Handler returns the configured http.Handler with middleware chain applied.
func (s *Server) Handler() http.Handler {
	return s.setupRouter()
}

// Shutdown stops background services and closes every session. It
// returns ctx's error if services do not stop in time.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info().Msg("Shutting down server background services")

	s.cancel()
	s.sessions.Close()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info().Msg("Background services shut down successfully")
		return nil
	case <-ctx.Done():
		s.logger.Warn().Msg("Background services shutdown timed out")
		return ctx.Err()
	}
}

// Sessions returns the session manager.
func (s *Server) Sessions() *sessions.Manager {
	return s.sessions
}

// Cache returns the server's cache instance.
func (s *Server) Cache() *cache.Cache {
	return s.cache
}

// WSHub returns the WebSocket hub.
func (s *Server) WSHub() *ws.Hub {
	return s.wsHub
}

// SSEBroadcaster returns the SSE broadcaster.
func (s *Server) SSEBroadcaster() *sse.Broadcaster {
	return s.sseBroadcaster
}

// Broker returns the event broker for publishing events.
func (s *Server) Broker() *events.Broker {
	return s.broker
}

// StartTime returns the server start time for uptime calculations.
func (s *Server) StartTime() time.Time {
	return s.startTime
}
