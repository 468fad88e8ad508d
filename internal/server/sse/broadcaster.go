// Package sse serves the server's activity stream as Server-Sent Events.
package sse

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// HeartbeatInterval is how often idle streams receive a comment line.
const HeartbeatInterval = 30 * time.Second

// Event is one SSE frame.
type Event struct {
	Event   string `json:"event,omitempty"`
	ID      string `json:"id,omitempty"`
	Session string `json:"-"`
	Data    any    `json:"data"`
}

// Filter selects the events a client receives. Empty fields match all.
type Filter struct {
	Session string
	Types   []string
}

// Match reports whether e passes the filter. A type ending in ".*"
// matches every type with that prefix.
func (f Filter) Match(e Event) bool {
	if f.Session != "" && e.Session != f.Session {
		return false
	}
	if len(f.Types) == 0 {
		return true
	}
	for _, t := range f.Types {
		if t == e.Event {
			return true
		}
		if prefix, ok := strings.CutSuffix(t, "*"); ok && strings.HasPrefix(e.Event, prefix) {
			return true
		}
	}
	return false
}

// FilterFromRequest reads ?session= and ?type= (comma separated).
func FilterFromRequest(r *http.Request) Filter {
	q := r.URL.Query()
	f := Filter{Session: q.Get("session")}
	for _, t := range strings.Split(q.Get("type"), ",") {
		if t = strings.TrimSpace(t); t != "" {
			f.Types = append(f.Types, t)
		}
	}
	return f
}

type client struct {
	ch     chan Event
	filter Filter
}

// Broadcaster manages Server-Sent Events connections.
type Broadcaster struct {
	clients    map[*client]struct{}
	newClients chan *client
	closed     chan *client
	events     chan Event
	mu         sync.RWMutex
	logger     *zerolog.Logger
}

// NewBroadcaster creates a new SSE broadcaster.
func NewBroadcaster(logger *zerolog.Logger) *Broadcaster {
	return &Broadcaster{
		clients:    make(map[*client]struct{}),
		newClients: make(chan *client, 10),
		closed:     make(chan *client, 10),
		events:     make(chan Event, 256),
		logger:     logger,
	}
}

// Run delivers events until ctx is canceled.
func (b *Broadcaster) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			b.mu.Lock()
			for c := range b.clients {
				close(c.ch)
			}
			b.clients = make(map[*client]struct{})
			b.mu.Unlock()
			b.logger.Info().Msg("SSE broadcaster shut down")
			return

		case c := <-b.newClients:
			b.mu.Lock()
			b.clients[c] = struct{}{}
			n := len(b.clients)
			b.mu.Unlock()
			b.logger.Info().
				Int("total_clients", n).
				Str("session_filter", c.filter.Session).
				Msg("SSE client connected")

		case c := <-b.closed:
			b.mu.Lock()
			if _, ok := b.clients[c]; ok {
				delete(b.clients, c)
				close(c.ch)
			}
			n := len(b.clients)
			b.mu.Unlock()
			b.logger.Info().Int("total_clients", n).Msg("SSE client disconnected")

		case event := <-b.events:
			b.mu.RLock()
			for c := range b.clients {
				if !c.filter.Match(event) {
					continue
				}
				select {
				case c.ch <- event:
				default:
					b.logger.Warn().Str("event", event.Event).Msg("SSE client buffer full, event skipped")
				}
			}
			b.mu.RUnlock()
		}
	}
}

// Broadcast queues an event for all matching clients.
func (b *Broadcaster) Broadcast(event Event) {
	select {
	case b.events <- event:
	default:
		b.logger.Warn().Msg("SSE broadcast channel full, event dropped")
	}
}

// ClientCount returns the number of connected SSE clients.
func (b *Broadcaster) ClientCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients)
}

// ServeHTTP streams events matching the request's filter.
func (b *Broadcaster) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	c := &client{ch: make(chan Event, 256), filter: FilterFromRequest(r)}
	b.newClients <- c
	defer func() {
		b.closed <- c
	}()

	b.writeEvent(w, flusher, Event{
		Event: "connected",
		Data: map[string]any{
			"message":   "Connected to leafmap event stream",
			"session":   c.filter.Session,
			"types":     c.filter.Types,
			"timestamp": time.Now(),
		},
	})

	heartbeat := time.NewTicker(HeartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case event, ok := <-c.ch:
			if !ok {
				return
			}
			b.writeEvent(w, flusher, event)
		case <-heartbeat.C:
			_, _ = fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()
		case <-r.Context().Done():
			return
		}
	}
}

func (b *Broadcaster) writeEvent(w http.ResponseWriter, flusher http.Flusher, event Event) {
	data, err := json.Marshal(event.Data)
	if err != nil {
		b.logger.Error().Err(err).Str("event", event.Event).Msg("Failed to marshal SSE event data")
		return
	}
	if event.Event != "" {
		_, _ = fmt.Fprintf(w, "event: %s\n", event.Event)
	}
	if event.ID != "" {
		_, _ = fmt.Fprintf(w, "id: %s\n", event.ID)
	}
	_, _ = fmt.Fprintf(w, "data: %s\n\n", data)
	flusher.Flush()
}
