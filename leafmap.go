// Package leafmap mirrors an interactive browser map on the server.
//
// A Session owns one leaflet.Map, the bridge that carries commands to the
// browser, and the owner loop every mutation runs on. Transports attach
// to a session, feed inbound frames to Receive, and are told about
// outbound messages through the bridge.Sender they attach with.
package leafmap

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/gubancs/leafmap/pkg/bridge"
	"github.com/gubancs/leafmap/pkg/errors"
	"github.com/gubancs/leafmap/pkg/events"
	"github.com/gubancs/leafmap/pkg/leaflet"
	"github.com/gubancs/leafmap/pkg/logging"
)

// Session manages one mirrored map and its remote counterpart
type Session interface {
	// ID returns the session id, which is also the id of its map
	ID() string

	// Do runs fn on the owner loop and waits for it
	Do(ctx context.Context, fn func(*leaflet.Map)) error

	// Post queues fn on the owner loop without waiting
	Post(fn func(*leaflet.Map)) error

	// Snapshot returns the serializable tree of the map
	Snapshot(ctx context.Context) (leaflet.Snapshot, error)

	// Attach connects a transport and sends it the current map
	Attach(ctx context.Context, sender bridge.Sender) error

	// Detach disconnects the transport and fails pending calls
	Detach()

	// Attached reports whether a transport is connected
	Attached() bool

	// Receive handles one inbound frame; safe from any goroutine
	Receive(data []byte) error

	// Info returns counters describing the session
	Info() Info

	// Close stops the owner loop and the bridge
	Close()

	// Done is closed once the session has stopped
	Done() <-chan struct{}

	// OnAttached registers a callback for attach
	OnAttached(AttachedHook)

	// OnDetached registers a callback for detach
	OnDetached(DetachedHook)

	// OnEventDispatched registers a callback for dispatched events
	OnEventDispatched(EventDispatchedHook)

	// OnEventDropped registers a callback for dropped events
	OnEventDropped(EventDroppedHook)
}

// Info describes a session for listings.
type Info struct {
	ID           string    `json:"id" yaml:"id"`
	Attached     bool      `json:"attached" yaml:"attached"`
	CreatedAt    time.Time `json:"createdAt" yaml:"createdAt"`
	AttachedAt   time.Time `json:"attachedAt,omitempty" yaml:"attachedAt,omitempty"`
	Dispatched   int64     `json:"dispatched" yaml:"dispatched"`
	Dropped      int64     `json:"dropped" yaml:"dropped"`
	PendingCalls int       `json:"pendingCalls" yaml:"pendingCalls"`
}

// session is the internal implementation of the Session interface
type session struct {
	config *config
	logger *zerolog.Logger

	loop   *bridge.Loop
	bridge *bridge.Bridge
	m      *leaflet.Map
	cancel context.CancelFunc

	mu         sync.Mutex
	attachedAt time.Time
	createdAt  time.Time

	dispatched atomic.Int64
	dropped    atomic.Int64

	// Event hooks
	*hooks
}

// New creates a session and starts its owner loop
func New(opts ...Option) (Session, error) {
	s := &session{
		config:    defaultConfig(),
		hooks:     newHooks(),
		createdAt: time.Now(),
	}
	if err := s.options(opts...); err != nil {
		return nil, fmt.Errorf("applying options: %w", err)
	}
	if s.config.id == "" {
		s.config.id = uuid.NewString()
	}
	if s.config.registry == nil {
		s.config.registry = events.Default()
	}

	base := s.config.logger
	if base == nil {
		base = logging.Default()
	}
	logger := base.With().Str("session_id", s.config.id).Logger()
	s.logger = &logger

	s.loop = bridge.NewLoop(s.config.queueSize, s.logger)
	bridgeOpts := []bridge.Option{
		bridge.WithLogger(s.logger),
		bridge.WithCallTimeout(s.config.callTimeout),
		bridge.WithLoop(s.loop),
	}
	if s.config.idGenerator != nil {
		bridgeOpts = append(bridgeOpts, bridge.WithIDGenerator(s.config.idGenerator))
	}
	s.bridge = bridge.New(bridgeOpts...)
	s.m = leaflet.NewMap(s.config.mapOptions,
		leaflet.WithID(s.config.id),
		leaflet.WithLogger(s.logger),
		leaflet.WithBridge(s.bridge),
		leaflet.WithRegistry(s.config.registry),
	)

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	go func() {
		_ = s.loop.Run(ctx)
	}()

	s.logger.Debug().Msg("Session started")
	return s, nil
}

// ID returns the session id
func (s *session) ID() string {
	return s.config.id
}

// Do runs fn on the owner loop and waits for it to finish. It must not be
// called from the owner loop itself; use Post there.
func (s *session) Do(ctx context.Context, fn func(*leaflet.Map)) error {
	return s.loop.Do(ctx, func() { fn(s.m) })
}

// Post queues fn on the owner loop
func (s *session) Post(fn func(*leaflet.Map)) error {
	return s.loop.Post(func() { fn(s.m) })
}

// Snapshot returns the serializable tree of the map
func (s *session) Snapshot(ctx context.Context) (leaflet.Snapshot, error) {
	var snap leaflet.Snapshot
	err := s.Do(ctx, func(m *leaflet.Map) {
		snap = m.Snapshot()
	})
	return snap, err
}

// Attach connects sender. The switch and the initial create message run
// as one task on the owner loop, so no mutation falls between the
// snapshot and the first command. Calls in flight on a previous
// transport are failed with ErrNotConnected.
func (s *session) Attach(ctx context.Context, sender bridge.Sender) error {
	if sender == nil {
		return errors.NewValidationError("sender", nil, "sender must not be nil")
	}
	var sendErr error
	err := s.loop.Do(ctx, func() {
		if s.bridge.Connected() {
			s.bridge.FailPending(errors.ErrNotConnected)
		}
		s.bridge.SetSender(sender)
		sendErr = s.bridge.Notify(bridge.KindCreate, s.m.Snapshot())
	})
	if err != nil {
		return errors.WrapResource("attach", "session", s.config.id, err)
	}
	if sendErr != nil {
		s.bridge.SetSender(nil)
		return errors.WrapResource("attach", "session", s.config.id, sendErr)
	}

	s.mu.Lock()
	s.attachedAt = time.Now()
	s.mu.Unlock()

	s.logger.Info().Msg("Session attached")
	s.triggerAttached(s.config.id)
	return nil
}

// Detach disconnects the transport
func (s *session) Detach() {
	if !s.bridge.Connected() {
		return
	}
	s.bridge.SetSender(nil)

	s.mu.Lock()
	s.attachedAt = time.Time{}
	s.mu.Unlock()

	s.logger.Info().Msg("Session detached")
	s.triggerDetached(s.config.id)
}

// Attached reports whether a transport is connected
func (s *session) Attached() bool {
	return s.bridge.Connected()
}

// Receive decodes one inbound frame. Results are correlated by the
// bridge; events are dispatched on the owner loop.
func (s *session) Receive(data []byte) error {
	msg, err := bridge.Decode(data)
	if err != nil {
		s.logger.Warn().Err(err).Int("bytes", len(data)).Msg("Dropping undecodable frame")
		return err
	}
	switch msg.Kind {
	case bridge.KindResult:
		s.bridge.HandleResult(msg)
		return nil
	default:
		return s.loop.Post(func() { s.dispatch(msg) })
	}
}

func (s *session) dispatch(msg *bridge.Message) {
	e, err := s.m.Dispatch(msg)
	if err != nil {
		s.dropped.Add(1)
		s.triggerEventDropped(s.config.id, msg, err)
		return
	}
	s.dispatched.Add(1)
	s.triggerEventDispatched(s.config.id, e)
}

// Info returns counters describing the session
func (s *session) Info() Info {
	s.mu.Lock()
	attachedAt := s.attachedAt
	s.mu.Unlock()
	return Info{
		ID:           s.config.id,
		Attached:     s.bridge.Connected(),
		CreatedAt:    s.createdAt,
		AttachedAt:   attachedAt,
		Dispatched:   s.dispatched.Load(),
		Dropped:      s.dropped.Load(),
		PendingCalls: s.bridge.Pending(),
	}
}

// Close stops the session. Pending calls fail with ErrClosed.
func (s *session) Close() {
	s.bridge.Close()
	s.loop.Close()
	s.cancel()
	s.logger.Debug().Msg("Session closed")
}

// Done is closed once the owner loop has stopped
func (s *session) Done() <-chan struct{} {
	return s.loop.Done()
}
