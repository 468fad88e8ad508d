package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/gubancs/leafmap/pkg/errors"
	"github.com/gubancs/leafmap/pkg/logging"
)

// DefaultCallTimeout bounds how long a Call waits for its result.
const DefaultCallTimeout = 30 * time.Second

// Sender delivers an outbound message to the remote side. Send must not
// wait for the remote side to process the message.
type Sender interface {
	Send(msg *Message) error
}

// SenderFunc adapts a function to Sender.
type SenderFunc func(msg *Message) error

// Send calls f(msg).
func (f SenderFunc) Send(msg *Message) error { return f(msg) }

type pendingCall struct {
	operation string
	targetID  string
	resolve   func(json.RawMessage, error)
	timer     *time.Timer
	stopCtx   func() bool
}

// Bridge correlates calls with their results.
type Bridge struct {
	mu      sync.Mutex
	sender  Sender
	pending map[string]*pendingCall
	closed  bool

	loop    *Loop
	timeout time.Duration
	newID   func() string
	logger  *zerolog.Logger
}

// Option configures a Bridge.
type Option func(*Bridge)

// WithLogger sets the bridge logger.
func WithLogger(logger *zerolog.Logger) Option {
	return func(b *Bridge) {
		b.logger = logger
	}
}

// WithCallTimeout sets the default call timeout. Zero disables it; calls
// then wait until answered, canceled, or the bridge detaches.
func WithCallTimeout(d time.Duration) Option {
	return func(b *Bridge) {
		b.timeout = d
	}
}

// WithLoop makes the bridge complete futures on loop.
func WithLoop(loop *Loop) Option {
	return func(b *Bridge) {
		b.loop = loop
	}
}

// WithIDGenerator overrides the correlation id source.
func WithIDGenerator(fn func() string) Option {
	return func(b *Bridge) {
		b.newID = fn
	}
}

// New creates a detached bridge.
func New(opts ...Option) *Bridge {
	b := &Bridge{
		pending: make(map[string]*pendingCall),
		timeout: DefaultCallTimeout,
		newID:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(b)
	}
	b.logger = logging.OrNop(b.logger)
	return b
}

// SetSender attaches s. A nil sender detaches the bridge and fails every
// pending call with ErrNotConnected.
func (b *Bridge) SetSender(s Sender) {
	b.mu.Lock()
	b.sender = s
	b.mu.Unlock()
	if s == nil {
		b.FailPending(errors.ErrNotConnected)
	}
}

// Connected reports whether a sender is attached.
func (b *Bridge) Connected() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sender != nil && !b.closed
}

// Pending returns the number of calls awaiting a result.
func (b *Bridge) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}

func (b *Bridge) currentSender() (Sender, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, errors.ErrClosed
	}
	if b.sender == nil {
		return nil, errors.ErrNotConnected
	}
	return b.sender, nil
}

// Execute sends a one-way command to target's counterpart. Only argument
// encoding errors are returned. With no sender attached the command is
// dropped; transport failures are logged.
func (b *Bridge) Execute(target Target, operation string, args ...any) error {
	encoded, err := EncodeArgs(operation, args)
	if err != nil {
		return err
	}
	sender, err := b.currentSender()
	if err != nil {
		b.logger.Debug().
			Str("entity_id", target.ID()).
			Str("operation", operation).
			Err(err).
			Msg("Dropping command, no remote counterpart")
		return nil
	}
	msg := &Message{
		Kind:      KindInvoke,
		TargetID:  target.ID(),
		Operation: operation,
		Args:      encoded,
	}
	if err := sender.Send(msg); err != nil {
		b.logger.Warn().
			Str("entity_id", target.ID()).
			Str("operation", operation).
			Err(err).
			Msg("Failed to send command")
	}
	return nil
}

// Notify sends a message of kind carrying payload, such as the initial
// create snapshot.
func (b *Bridge) Notify(kind Kind, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return errors.NewEncodeError(string(kind), -1, err)
	}
	sender, err := b.currentSender()
	if err != nil {
		return err
	}
	if err := sender.Send(&Message{Kind: kind, Payload: data}); err != nil {
		return errors.WrapIO("send", string(kind), err)
	}
	return nil
}

// Call invokes operation on target's counterpart and returns a future for
// its result decoded as T. The call fails when ctx ends, when the bridge
// timeout elapses, when the remote side reports an error, or when the
// bridge detaches first.
func Call[T any](ctx context.Context, b *Bridge, target Target, operation string, args ...any) *Future[T] {
	f := newFuture[T]()
	id := b.newID()
	f.cancel = func() { b.Cancel(id) }

	b.call(ctx, id, target, operation, args, func(raw json.RawMessage, err error) {
		if err != nil {
			var zero T
			f.complete(zero, err)
			return
		}
		f.complete(decodeResult[T](operation, raw))
	})
	return f
}

func (b *Bridge) call(ctx context.Context, id string, target Target, operation string, args []any, resolve func(json.RawMessage, error)) {
	encoded, err := EncodeArgs(operation, args)
	if err != nil {
		resolve(nil, err)
		return
	}
	if err := ctx.Err(); err != nil {
		resolve(nil, fmt.Errorf("call %s: %w: %w", operation, errors.ErrCanceled, err))
		return
	}

	pc := &pendingCall{operation: operation, targetID: target.ID(), resolve: resolve}

	b.mu.Lock()
	switch {
	case b.closed:
		b.mu.Unlock()
		resolve(nil, errors.ErrClosed)
		return
	case b.sender == nil:
		b.mu.Unlock()
		resolve(nil, fmt.Errorf("call %s: %w", operation, errors.ErrNotConnected))
		return
	}
	sender := b.sender
	b.pending[id] = pc
	if b.timeout > 0 {
		timeout := b.timeout
		pc.timer = time.AfterFunc(timeout, func() { b.expire(id, timeout) })
	}
	pc.stopCtx = context.AfterFunc(ctx, func() {
		if pc, ok := b.take(id); ok {
			b.settle(pc, nil, fmt.Errorf("call %s: %w: %w", operation, errors.ErrCanceled, ctx.Err()))
		}
	})
	b.mu.Unlock()

	msg := &Message{
		Kind:      KindCall,
		ID:        id,
		TargetID:  target.ID(),
		Operation: operation,
		Args:      encoded,
	}
	if err := sender.Send(msg); err != nil {
		if pc, ok := b.take(id); ok {
			b.settle(pc, nil, errors.WrapIO("send", operation, err))
		}
	}
}

func (b *Bridge) take(id string) (*pendingCall, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	pc, ok := b.pending[id]
	if ok {
		delete(b.pending, id)
	}
	return pc, ok
}

func (b *Bridge) settle(pc *pendingCall, result json.RawMessage, err error) {
	if pc.timer != nil {
		pc.timer.Stop()
	}
	if pc.stopCtx != nil {
		pc.stopCtx()
	}
	b.post(func() { pc.resolve(result, err) })
}

func (b *Bridge) post(fn func()) {
	if b.loop == nil {
		fn()
		return
	}
	// Settling may happen on the loop itself, so it must not wait for room.
	if err := b.loop.Defer(fn); err != nil {
		// The loop is gone; nothing else can touch entity state.
		fn()
	}
}

func (b *Bridge) expire(id string, timeout time.Duration) {
	pc, ok := b.take(id)
	if !ok {
		return
	}
	b.logger.Warn().
		Str("call_id", id).
		Str("entity_id", pc.targetID).
		Str("operation", pc.operation).
		Dur("timeout", timeout).
		Msg("Remote call timed out")
	b.settle(pc, nil, errors.NewTimeoutError(pc.operation, timeout, "no result from remote side"))
}

// Cancel fails the pending call id with ErrCanceled. It reports whether
// the call was still pending.
func (b *Bridge) Cancel(id string) bool {
	pc, ok := b.take(id)
	if !ok {
		return false
	}
	b.settle(pc, nil, fmt.Errorf("call %s: %w", pc.operation, errors.ErrCanceled))
	return true
}

// HandleResult completes the call msg answers. It is safe to call from
// any goroutine. Results for unknown, expired or already answered calls
// are logged and dropped.
func (b *Bridge) HandleResult(msg *Message) {
	pc, ok := b.take(msg.ID)
	if !ok {
		b.logger.Warn().
			Str("call_id", msg.ID).
			Str("entity_id", msg.TargetID).
			Msg("Dropping unmatched call result")
		return
	}
	if msg.Error != "" {
		b.settle(pc, nil, errors.NewRemoteError(pc.targetID, pc.operation, msg.Error))
		return
	}
	b.settle(pc, msg.Result, nil)
}

// FailPending fails every pending call with err.
func (b *Bridge) FailPending(err error) {
	b.mu.Lock()
	calls := b.pending
	b.pending = make(map[string]*pendingCall)
	b.mu.Unlock()

	for id, pc := range calls {
		b.logger.Debug().
			Str("call_id", id).
			Str("operation", pc.operation).
			Err(err).
			Msg("Failing pending call")
		b.settle(pc, nil, fmt.Errorf("call %s: %w", pc.operation, err))
	}
}

// Close detaches the bridge for good and fails pending calls with
// ErrClosed.
func (b *Bridge) Close() {
	b.mu.Lock()
	b.closed = true
	b.sender = nil
	b.mu.Unlock()
	b.FailPending(errors.ErrClosed)
}
