// Package handlers provides HTTP request handlers for the leafmap server.
package handlers

import (
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/gubancs/leafmap/internal/server/cache"
	"github.com/gubancs/leafmap/internal/server/events"
	"github.com/gubancs/leafmap/internal/server/sessions"
	"github.com/gubancs/leafmap/internal/server/sse"
	ws "github.com/gubancs/leafmap/internal/server/websocket"
	"github.com/gubancs/leafmap/internal/store"
	eventtypes "github.com/gubancs/leafmap/pkg/events"
)

// Handlers provides access to all HTTP handlers.
type Handlers struct {
	sessions       *sessions.Manager
	store          store.Store
	registry       *eventtypes.Registry
	cache          *cache.Cache
	broker         *events.Broker
	wsHub          *ws.Hub
	sseBroadcaster *sse.Broadcaster
	upgrader       websocket.Upgrader
	logger         *zerolog.Logger
	startTime      time.Time
}

// Deps are the collaborators of the handlers. Store may be nil, in which
// case the snapshot endpoints answer 503.
type Deps struct {
	Sessions       *sessions.Manager
	Store          store.Store
	Registry       *eventtypes.Registry
	Cache          *cache.Cache
	Broker         *events.Broker
	WSHub          *ws.Hub
	SSEBroadcaster *sse.Broadcaster
	Upgrader       websocket.Upgrader
	Logger         *zerolog.Logger
	StartTime      time.Time
}

// New creates a new Handlers instance.
func New(d Deps) *Handlers {
	return &Handlers{
		sessions:       d.Sessions,
		store:          d.Store,
		registry:       d.Registry,
		cache:          d.Cache,
		broker:         d.Broker,
		wsHub:          d.WSHub,
		sseBroadcaster: d.SSEBroadcaster,
		upgrader:       d.Upgrader,
		logger:         d.Logger,
		startTime:      d.StartTime,
	}
}
