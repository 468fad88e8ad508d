// Package redisrelay carries bridge messages over Redis pub/sub, for
// deployments where a separate gateway owns the browser connections.
//
// For a session id S and prefix P the gateway subscribes to P:S:out for
// commands and publishes events and results on P:S:in. It announces a
// browser with the session id on P:connect and its departure on
// P:disconnect.
package redisrelay

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/gubancs/leafmap"
	"github.com/gubancs/leafmap/pkg/bridge"
	"github.com/gubancs/leafmap/pkg/errors"
	"github.com/gubancs/leafmap/pkg/logging"
)

const (
	// DefaultPrefix namespaces every channel.
	DefaultPrefix = "leafmap"

	// DefaultPublishTimeout bounds a single outbound publish.
	DefaultPublishTimeout = 5 * time.Second
)

// Sessions resolves the session a connecting gateway asks for.
type Sessions interface {
	GetOrCreate(id string) (leafmap.Session, bool, error)
}

type publisher interface {
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
}

// Relay binds sessions to Redis channels.
type Relay struct {
	client  redis.UniversalClient
	prefix  string
	timeout time.Duration
	logger  *zerolog.Logger

	mu       sync.Mutex
	bindings map[string]*Binding
}

// Option configures a Relay.
type Option func(*Relay)

// WithPrefix sets the channel prefix.
func WithPrefix(prefix string) Option {
	return func(r *Relay) {
		if prefix != "" {
			r.prefix = prefix
		}
	}
}

// WithPublishTimeout bounds each outbound publish.
func WithPublishTimeout(d time.Duration) Option {
	return func(r *Relay) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zerolog.Logger) Option {
	return func(r *Relay) {
		r.logger = logging.OrNop(logger)
	}
}

// New creates a relay over client.
func New(client redis.UniversalClient, opts ...Option) *Relay {
	r := &Relay{
		client:   client,
		prefix:   DefaultPrefix,
		timeout:  DefaultPublishTimeout,
		logger:   logging.Nop(),
		bindings: make(map[string]*Binding),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// OutChannel is where commands for sessionID are published.
func (r *Relay) OutChannel(sessionID string) string {
	return r.prefix + ":" + sessionID + ":out"
}

// InChannel is where the gateway publishes frames for sessionID.
func (r *Relay) InChannel(sessionID string) string {
	return r.prefix + ":" + sessionID + ":in"
}

// ConnectChannel carries session ids of newly connected browsers.
func (r *Relay) ConnectChannel() string { return r.prefix + ":connect" }

// DisconnectChannel carries session ids of departed browsers.
func (r *Relay) DisconnectChannel() string { return r.prefix + ":disconnect" }

// Sender returns a bridge.Sender publishing to the out channel of
// sessionID.
func (r *Relay) Sender(sessionID string) bridge.Sender {
	return &sender{pub: r.client, channel: r.OutChannel(sessionID), timeout: r.timeout}
}

type sender struct {
	pub     publisher
	channel string
	timeout time.Duration
}

// Send publishes msg. It runs on the session's owner loop, so each
// publish is bounded by the relay timeout.
func (s *sender) Send(msg *bridge.Message) error {
	data, err := bridge.Encode(msg)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	if err := s.pub.Publish(ctx, s.channel, data).Err(); err != nil {
		return errors.WrapIO("publish", s.channel, err)
	}
	return nil
}

// Binding is one session attached to its Redis channels.
type Binding struct {
	sessionID string
	pubsub    *redis.PubSub
	cancel    context.CancelFunc
	done      chan struct{}
}

// SessionID returns the bound session id.
func (b *Binding) SessionID() string { return b.sessionID }

// Done is closed once the binding has stopped and the session detached.
func (b *Binding) Done() <-chan struct{} { return b.done }

// Close stops the binding and waits for the session to detach.
func (b *Binding) Close() {
	b.cancel()
	<-b.done
}

// Bind subscribes to the in channel of sess, then attaches sess with a
// sender on its out channel. Inbound frames are fed to sess.Receive
// until the binding is closed.
func (r *Relay) Bind(ctx context.Context, sess leafmap.Session) (*Binding, error) {
	id := sess.ID()
	in := r.InChannel(id)

	ps := r.client.Subscribe(ctx, in)
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, errors.WrapIO("subscribe", in, err)
	}
	if err := sess.Attach(ctx, r.Sender(id)); err != nil {
		_ = ps.Close()
		return nil, err
	}

	bctx, cancel := context.WithCancel(context.Background())
	b := &Binding{sessionID: id, pubsub: ps, cancel: cancel, done: make(chan struct{})}
	go r.pump(bctx, b, sess)

	r.logger.Info().Str("session_id", id).Str("channel", in).Msg("Session bound to Redis")
	return b, nil
}

func (r *Relay) pump(ctx context.Context, b *Binding, sess leafmap.Session) {
	defer close(b.done)
	defer sess.Detach()
	defer b.pubsub.Close()

	ch := b.pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case <-sess.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			if err := sess.Receive([]byte(msg.Payload)); err != nil {
				r.logger.Debug().Err(err).Str("session_id", b.sessionID).Msg("Inbound frame rejected")
			}
		}
	}
}

// Serve listens on the connect and disconnect channels and binds or
// unbinds sessions from sessions until ctx ends. A connect for an
// already bound session rebinds it.
func (r *Relay) Serve(ctx context.Context, sessions Sessions) error {
	ps := r.client.Subscribe(ctx, r.ConnectChannel(), r.DisconnectChannel())
	defer ps.Close()
	if _, err := ps.Receive(ctx); err != nil {
		return errors.WrapIO("subscribe", r.ConnectChannel(), err)
	}
	r.logger.Info().Str("prefix", r.prefix).Msg("Redis relay listening")

	ch := ps.Channel()
	for {
		select {
		case <-ctx.Done():
			r.closeAll()
			return nil
		case msg, ok := <-ch:
			if !ok {
				r.closeAll()
				return nil
			}
			switch msg.Channel {
			case r.ConnectChannel():
				r.connect(ctx, sessions, msg.Payload)
			case r.DisconnectChannel():
				r.Unbind(msg.Payload)
			}
		}
	}
}

func (r *Relay) connect(ctx context.Context, sessions Sessions, id string) {
	r.Unbind(id)

	sess, _, err := sessions.GetOrCreate(id)
	if err != nil {
		r.logger.Warn().Err(err).Str("session_id", id).Msg("Rejecting Redis connect")
		return
	}
	b, err := r.Bind(ctx, sess)
	if err != nil {
		r.logger.Error().Err(err).Str("session_id", id).Msg("Binding session to Redis failed")
		return
	}

	r.mu.Lock()
	r.bindings[id] = b
	r.mu.Unlock()
}

// Unbind closes the binding of id, if any.
func (r *Relay) Unbind(id string) bool {
	r.mu.Lock()
	b, ok := r.bindings[id]
	delete(r.bindings, id)
	r.mu.Unlock()

	if !ok {
		return false
	}
	b.Close()
	r.logger.Info().Str("session_id", id).Msg("Session unbound from Redis")
	return true
}

// Bound returns the number of bound sessions.
func (r *Relay) Bound() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.bindings)
}

func (r *Relay) closeAll() {
	r.mu.Lock()
	all := r.bindings
	r.bindings = make(map[string]*Binding)
	r.mu.Unlock()

	for _, b := range all {
		b.Close()
	}
}
