package bridge

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"

	"github.com/rs/zerolog"

	"github.com/gubancs/leafmap/pkg/errors"
	"github.com/gubancs/leafmap/pkg/logging"
)

// DefaultQueueSize is the task buffer of a Loop created with size <= 0.
const DefaultQueueSize = 256

// Loop is the owner goroutine of a session. Every mutation of the entity
// tree and every future completion runs as a task on it.
type Loop struct {
	tasks     chan func()
	wake      chan struct{}
	done      chan struct{}
	mu        sync.Mutex
	overflow  []func()
	closeOnce sync.Once
	logger    *zerolog.Logger
}

// NewLoop creates a loop with a task buffer of size.
func NewLoop(size int, logger *zerolog.Logger) *Loop {
	if size <= 0 {
		size = DefaultQueueSize
	}
	return &Loop{
		tasks:  make(chan func(), size),
		wake:   make(chan struct{}, 1),
		done:   make(chan struct{}),
		logger: logging.OrNop(logger),
	}
}

// Run executes tasks until ctx is canceled or Close is called.
func (l *Loop) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			l.Close()
			return ctx.Err()
		case <-l.done:
			return nil
		case task := <-l.tasks:
			l.run(task)
			l.drain()
		case <-l.wake:
			l.drain()
		}
	}
}

// drain runs the tasks Defer could not fit in the queue.
func (l *Loop) drain() {
	for {
		l.mu.Lock()
		tasks := l.overflow
		l.overflow = nil
		l.mu.Unlock()
		if len(tasks) == 0 {
			return
		}
		for _, task := range tasks {
			l.run(task)
		}
	}
}

func (l *Loop) run(task func()) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error().
				Str("panic", fmt.Sprint(r)).
				Bytes("stack", debug.Stack()).
				Msg("Owner loop task panicked")
		}
	}()
	task()
}

// Post queues fn. It blocks while the queue is full and fails with
// ErrClosed once the loop has stopped.
func (l *Loop) Post(fn func()) error {
	select {
	case <-l.done:
		return errors.ErrClosed
	default:
	}
	select {
	case l.tasks <- fn:
		return nil
	case <-l.done:
		return errors.ErrClosed
	}
}

// Defer queues fn without ever blocking. When the queue is full fn is
// kept on an unbounded overflow list that the loop drains, so tasks
// running on the loop can schedule follow-ups on it.
func (l *Loop) Defer(fn func()) error {
	select {
	case <-l.done:
		return errors.ErrClosed
	default:
	}
	select {
	case l.tasks <- fn:
		return nil
	default:
	}
	l.mu.Lock()
	l.overflow = append(l.overflow, fn)
	l.mu.Unlock()
	select {
	case l.wake <- struct{}{}:
	default:
	}
	return nil
}

// Do runs fn on the loop and waits for it to finish. It must not be
// called from a task running on the same loop. Ending ctx stops the
// wait, including a wait for room in the queue.
func (l *Loop) Do(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	task := func() {
		defer close(finished)
		fn()
	}
	select {
	case <-l.done:
		return errors.ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	select {
	case l.tasks <- task:
	case <-l.done:
		return errors.ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-finished:
		return nil
	case <-l.done:
		return errors.ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops the loop. Queued tasks that have not started are dropped.
func (l *Loop) Close() {
	l.closeOnce.Do(func() {
		close(l.done)
	})
}

// Done is closed when the loop stops.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}
