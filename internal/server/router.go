package server

import (
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/gubancs/leafmap/internal/server/handlers"
	"github.com/gubancs/leafmap/internal/server/middleware"
	"github.com/gubancs/leafmap/internal/server/response"
)

// setupRouter creates the HTTP handler with routes and middleware.
func (s *Server) setupRouter() http.Handler {
	h := handlers.New(handlers.Deps{
		Sessions:       s.sessions,
		Store:          s.store,
		Registry:       s.registry,
		Cache:          s.cache,
		Broker:         s.broker,
		WSHub:          s.wsHub,
		SSEBroadcaster: s.sseBroadcaster,
		Upgrader:       s.upgrader,
		Logger:         s.logger,
		StartTime:      s.startTime,
	})

	router := mux.NewRouter()
	s.registerRoutes(router, h)

	return s.applyMiddleware(router)
}

// registerRoutes registers all HTTP routes.
func (s *Server) registerRoutes(router *mux.Router, h *handlers.Handlers) {
	notFound := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		response.NotFound(w, "Not found", r.URL.Path)
	})
	methodNotAllowed := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		response.MethodNotAllowed(w, r.Method)
	})
	router.NotFoundHandler = notFound
	router.MethodNotAllowedHandler = methodNotAllowed

	router.HandleFunc("/favicon.ico", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	// Public health endpoints (no auth required)
	router.HandleFunc("/health", h.HandleHealth).Methods(http.MethodGet)

	api := router.PathPrefix(s.config.PathPrefix).Subrouter()
	// Subrouters answer unmatched requests themselves.
	api.NotFoundHandler = notFound
	api.MethodNotAllowedHandler = methodNotAllowed
	api.HandleFunc("/health", h.HandleHealth).Methods(http.MethodGet)
	api.HandleFunc("/ready", h.HandleReady).Methods(http.MethodGet)

	// Sessions
	api.HandleFunc("/sessions", h.HandleListSessions).Methods(http.MethodGet)
	api.HandleFunc("/sessions/{id}", h.HandleGetSession).Methods(http.MethodGet)
	api.HandleFunc("/sessions/{id}", h.HandleDeleteSession).Methods(http.MethodDelete)
	api.HandleFunc("/sessions/{id}/snapshot", h.HandleSaveSnapshot).Methods(http.MethodPost)
	api.HandleFunc("/sessions/{id}/ws", h.HandleWebSocket).Methods(http.MethodGet)

	// Persisted snapshots
	api.HandleFunc("/snapshots", h.HandleListSnapshots).Methods(http.MethodGet)
	api.HandleFunc("/snapshots/{id}", h.HandleGetSnapshot).Methods(http.MethodGet)

	// Registry and activity stream
	api.HandleFunc("/event-types", h.HandleEventTypes).Methods(http.MethodGet)
	api.HandleFunc("/events/stream", h.HandleSSE).Methods(http.MethodGet)

	if s.config.MetricsEnabled {
		router.HandleFunc("/metrics", s.handleMetrics).Methods(http.MethodGet)
	}
}

func (s *Server) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	var attached int
	var dispatched, dropped int64
	var pending int
	for _, info := range s.sessions.List() {
		if info.Attached {
			attached++
		}
		dispatched += info.Dispatched
		dropped += info.Dropped
		pending += info.PendingCalls
	}

	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	_, _ = fmt.Fprintf(w, "# TYPE leafmap_sessions gauge\n")
	_, _ = fmt.Fprintf(w, "leafmap_sessions %d\n", s.sessions.Len())
	_, _ = fmt.Fprintf(w, "# TYPE leafmap_sessions_attached gauge\n")
	_, _ = fmt.Fprintf(w, "leafmap_sessions_attached %d\n", attached)
	_, _ = fmt.Fprintf(w, "# TYPE leafmap_pending_calls gauge\n")
	_, _ = fmt.Fprintf(w, "leafmap_pending_calls %d\n", pending)
	_, _ = fmt.Fprintf(w, "# TYPE leafmap_events_dispatched counter\n")
	_, _ = fmt.Fprintf(w, "leafmap_events_dispatched %d\n", dispatched)
	_, _ = fmt.Fprintf(w, "# TYPE leafmap_events_dropped counter\n")
	_, _ = fmt.Fprintf(w, "leafmap_events_dropped %d\n", dropped)
	_, _ = fmt.Fprintf(w, "# TYPE leafmap_sse_clients gauge\n")
	_, _ = fmt.Fprintf(w, "leafmap_sse_clients %d\n", s.sseBroadcaster.ClientCount())
}

// applyMiddleware wraps handler with middleware chain.
func (s *Server) applyMiddleware(handler http.Handler) http.Handler {
	cfg := s.config

	// Rate limiting (if enabled)
	if cfg.RateLimit > 0 {
		rateLimiter := middleware.NewRateLimiter(s.ctx, cfg.RateLimit, s.logger)
		handler = middleware.RateLimit(rateLimiter)(handler)
	}

	// Authentication (if enabled)
	if cfg.AuthEnabled {
		authConfig := middleware.DefaultAuthConfig(cfg.PathPrefix)
		authConfig.Enabled = true
		authConfig.HeaderName = cfg.AuthHeader
		handler = middleware.Auth(authConfig, s.logger)(handler)
	}

	// CORS (if enabled)
	if cfg.CORSEnabled {
		corsConfig := middleware.DefaultCORSConfig()
		if len(cfg.CORSOrigins) > 0 {
			corsConfig.AllowedOrigins = cfg.CORSOrigins
		} else {
			corsConfig.AllowAll = true
		}
		handler = middleware.CORS(corsConfig)(handler)
	}

	// Logging and recovery (always enabled)
	handler = middleware.Logger(s.logger)(handler)
	handler = middleware.Recovery(s.logger)(handler)

	return handler
}
