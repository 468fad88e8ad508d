package bridge

import (
	"context"
	"sync"
)

// Future is the pending result of a Call.
type Future[T any] struct {
	done   chan struct{}
	mu     sync.Mutex
	value  T
	err    error
	thens  []func(T, error)
	cancel func()
}

func newFuture[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

// Failed returns a future already completed with err.
func Failed[T any](err error) *Future[T] {
	f := newFuture[T]()
	var zero T
	f.complete(zero, err)
	return f
}

// Resolved returns a future already completed with v.
func Resolved[T any](v T) *Future[T] {
	f := newFuture[T]()
	f.complete(v, nil)
	return f
}

// complete settles the future once and runs continuations on the
// calling goroutine. It reports whether this call settled it.
func (f *Future[T]) complete(v T, err error) bool {
	f.mu.Lock()
	select {
	case <-f.done:
		f.mu.Unlock()
		return false
	default:
	}
	f.value, f.err = v, err
	thens := f.thens
	f.thens = nil
	close(f.done)
	f.mu.Unlock()

	for _, fn := range thens {
		fn(v, err)
	}
	return true
}

// Done is closed once the future completes.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Await blocks until the future completes or ctx ends. Ending ctx does
// not cancel the call. Await must not be used from the owner loop, since
// completions are delivered there; use Then instead.
func (f *Future[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Result returns the outcome if the future has completed.
func (f *Future[T]) Result() (value T, err error, ok bool) {
	select {
	case <-f.done:
		return f.value, f.err, true
	default:
		var zero T
		return zero, nil, false
	}
}

// Then registers fn to run on completion. If the future has already
// completed fn runs immediately on the caller's goroutine.
func (f *Future[T]) Then(fn func(T, error)) *Future[T] {
	f.mu.Lock()
	select {
	case <-f.done:
		f.mu.Unlock()
		fn(f.value, f.err)
		return f
	default:
	}
	f.thens = append(f.thens, fn)
	f.mu.Unlock()
	return f
}

// Cancel abandons the call. The future fails with ErrCanceled and a
// response arriving later is discarded.
func (f *Future[T]) Cancel() {
	if f.cancel != nil {
		f.cancel()
	}
}
