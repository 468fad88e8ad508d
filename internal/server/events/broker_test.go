package events

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gubancs/leafmap/pkg/logging"
)

type recordingSubscriber struct {
	mu     sync.Mutex
	events []Event
	closed bool
	err    error
}

func (r *recordingSubscriber) Send(e Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return r.err
}

func (r *recordingSubscriber) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

func (r *recordingSubscriber) snapshot() ([]Event, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...), r.closed
}

func runBroker(t *testing.T) (*Broker, context.CancelFunc, *logging.TestLogger) {
	t.Helper()
	logger := logging.NewTestLogger(t)
	b := NewBroker(logger.Logger)
	ctx, cancel := context.WithCancel(context.Background())
	go b.Run(ctx)
	t.Cleanup(cancel)
	return b, cancel, logger
}

func TestSubscribeBeforeRun(t *testing.T) {
	b := NewBroker(logging.Nop())
	done := make(chan struct{})
	go func() {
		b.Subscribe(&recordingSubscriber{})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Subscribe blocked before Run")
	}
}

func TestPublishInOrder(t *testing.T) {
	b, _, _ := runBroker(t)
	sub := &recordingSubscriber{}
	b.Subscribe(sub)

	for i := 0; i < 5; i++ {
		b.Publish(EventDispatched, "s1", map[string]any{"n": i})
	}

	require.Eventually(t, func() bool {
		evs, _ := sub.snapshot()
		return len(evs) == 5
	}, time.Second, 5*time.Millisecond)

	evs, _ := sub.snapshot()
	for i, e := range evs {
		assert.Equal(t, EventDispatched, e.Type)
		assert.Equal(t, "s1", e.SessionID)
		assert.Equal(t, map[string]any{"n": i}, e.Data)
		assert.False(t, e.Timestamp.IsZero())
	}
}

func TestUnsubscribeCloses(t *testing.T) {
	b, _, _ := runBroker(t)
	sub := &recordingSubscriber{}
	b.Subscribe(sub)
	require.Eventually(t, func() bool { return b.SubscriberCount() == 1 }, time.Second, 5*time.Millisecond)

	b.Unsubscribe(sub)
	require.Eventually(t, func() bool { return b.SubscriberCount() == 0 }, time.Second, 5*time.Millisecond)
	_, closed := sub.snapshot()
	assert.True(t, closed)
}

func TestShutdownClosesSubscribers(t *testing.T) {
	b, cancel, logger := runBroker(t)
	sub := &recordingSubscriber{}
	b.Subscribe(sub)
	require.Eventually(t, func() bool { return b.SubscriberCount() == 1 }, time.Second, 5*time.Millisecond)

	cancel()
	require.Eventually(t, func() bool {
		_, closed := sub.snapshot()
		return closed
	}, time.Second, 5*time.Millisecond)
	assert.Eventually(t, func() bool {
		return strings.Contains(logger.Output(), "Event broker shut down")
	}, time.Second, 5*time.Millisecond)
}

func TestFailingSubscriberDoesNotStopOthers(t *testing.T) {
	b, _, logger := runBroker(t)
	bad := &recordingSubscriber{err: fmt.Errorf("client gone")}
	good := &recordingSubscriber{}
	b.Subscribe(bad)
	b.Subscribe(good)

	b.Publish(SessionAttached, "s1", nil)
	require.Eventually(t, func() bool {
		evs, _ := good.snapshot()
		return len(evs) == 1
	}, time.Second, 5*time.Millisecond)
	assert.Contains(t, logger.Output(), "Failed to send event to subscriber")
}

func TestSubscribeThenPublishIsDelivered(t *testing.T) {
	for i := 0; i < 25; i++ {
		b, _, _ := runBroker(t)
		require.Eventually(t, func() bool {
			b.mu.RLock()
			defer b.mu.RUnlock()
			return b.running
		}, time.Second, time.Millisecond)

		sub := &recordingSubscriber{}
		b.Subscribe(sub)
		b.Publish(SessionAttached, "s1", nil)
		require.Eventually(t, func() bool {
			evs, _ := sub.snapshot()
			return len(evs) == 1
		}, time.Second, time.Millisecond, "run %d", i)
	}
}

func TestSubscribeAfterShutdownCloses(t *testing.T) {
	b, cancel, _ := runBroker(t)
	cancel()
	<-b.stopped

	sub := &recordingSubscriber{}
	b.Subscribe(sub)
	_, closed := sub.snapshot()
	assert.True(t, closed)
	assert.Equal(t, 0, b.SubscriberCount())
}

func TestUnsubscribeBeforeRun(t *testing.T) {
	b := NewBroker(logging.Nop())
	sub := &recordingSubscriber{}
	b.Subscribe(sub)
	require.Equal(t, 1, b.SubscriberCount())

	b.Unsubscribe(sub)
	assert.Equal(t, 0, b.SubscriberCount())
	_, closed := sub.snapshot()
	assert.True(t, closed)
}

func TestPublishDropsWhenFull(t *testing.T) {
	logger := logging.NewTestLogger(t)
	b := NewBroker(logger.Logger)
	for i := 0; i < cap(b.events)+1; i++ {
		b.Publish(EventDispatched, "s1", nil)
	}
	assert.Contains(t, logger.Output(), "Event channel full, event dropped")
}

func TestSubscriberFunc(t *testing.T) {
	var got []EventType
	sub := SubscriberFunc(func(e Event) error {
		got = append(got, e.Type)
		return nil
	})
	require.NoError(t, sub.Send(Event{Type: SnapshotSaved}))
	require.NoError(t, sub.Close())
	assert.Equal(t, []EventType{SnapshotSaved}, got)
}
