package redisrelay

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gubancs/leafmap"
	"github.com/gubancs/leafmap/pkg/bridge"
	"github.com/gubancs/leafmap/pkg/errors"
	"github.com/gubancs/leafmap/pkg/events"
	"github.com/gubancs/leafmap/pkg/logging"
)

type published struct {
	channel string
	message any
}

type fakePublisher struct {
	got []published
	err error
}

func (f *fakePublisher) Publish(ctx context.Context, channel string, message any) *redis.IntCmd {
	cmd := redis.NewIntCmd(ctx)
	if f.err != nil {
		cmd.SetErr(f.err)
		return cmd
	}
	f.got = append(f.got, published{channel: channel, message: message})
	cmd.SetVal(1)
	return cmd
}

func TestChannels(t *testing.T) {
	r := New(nil)
	assert.Equal(t, "leafmap:s1:out", r.OutChannel("s1"))
	assert.Equal(t, "leafmap:s1:in", r.InChannel("s1"))
	assert.Equal(t, "leafmap:connect", r.ConnectChannel())

	r = New(nil, WithPrefix("maps"))
	assert.Equal(t, "maps:s1:out", r.OutChannel("s1"))
	assert.Equal(t, "maps:disconnect", r.DisconnectChannel())
}

func TestSenderPublishesEncodedMessage(t *testing.T) {
	pub := &fakePublisher{}
	s := &sender{pub: pub, channel: "leafmap:s1:out", timeout: time.Second}

	require.NoError(t, s.Send(&bridge.Message{Kind: bridge.KindInvoke, TargetID: "m1", Operation: "setZoom"}))
	require.Len(t, pub.got, 1)
	assert.Equal(t, "leafmap:s1:out", pub.got[0].channel)

	data, ok := pub.got[0].message.([]byte)
	require.True(t, ok)
	var msg bridge.Message
	require.NoError(t, json.Unmarshal(data, &msg))
	assert.Equal(t, "setZoom", msg.Operation)
}

func TestSenderWrapsPublishError(t *testing.T) {
	pub := &fakePublisher{err: errors.New("connection refused")}
	s := &sender{pub: pub, channel: "leafmap:s1:out", timeout: time.Second}

	err := s.Send(&bridge.Message{Kind: bridge.KindInvoke})
	require.Error(t, err)
	var ioErr *errors.IOError
	assert.ErrorAs(t, err, &ioErr)
}

// The tests below need a Redis server; set LEAFMAP_TEST_REDIS_ADDR.

func redisClient(t *testing.T) *redis.Client {
	t.Helper()
	addr := os.Getenv("LEAFMAP_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("LEAFMAP_TEST_REDIS_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, client.Ping(ctx).Err())
	t.Cleanup(func() { _ = client.Close() })
	return client
}

type sessionMap map[string]leafmap.Session

func (m sessionMap) GetOrCreate(id string) (leafmap.Session, bool, error) {
	if s, ok := m[id]; ok {
		return s, false, nil
	}
	return nil, false, errors.NewNotFoundError("session", id)
}

func TestBindRoundTrip(t *testing.T) {
	client := redisClient(t)
	logger := logging.NewTestLogger(t)
	relay := New(client, WithPrefix("test-"+uuid.NewString()), WithLogger(logger.Logger))

	sess, err := leafmap.New(leafmap.WithID("s1"), leafmap.WithRegistry(events.NewRegistry()), leafmap.WithLogger(logger.Logger))
	require.NoError(t, err)
	t.Cleanup(sess.Close)

	ctx := context.Background()
	out := client.Subscribe(ctx, relay.OutChannel("s1"))
	_, err = out.Receive(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { _ = out.Close() })

	b, err := relay.Bind(ctx, sess)
	require.NoError(t, err)
	assert.True(t, sess.Attached())

	select {
	case msg := <-out.Channel():
		assert.Contains(t, msg.Payload, `"kind":"create"`)
	case <-time.After(2 * time.Second):
		t.Fatal("no create message published")
	}

	frame := `{"kind":"event","targetId":"s1","eventTypeName":"click","payload":{"lat":1,"lng":2}}`
	require.NoError(t, client.Publish(ctx, relay.InChannel("s1"), frame).Err())
	require.Eventually(t, func() bool { return sess.Info().Dispatched == 1 }, 2*time.Second, 10*time.Millisecond)

	b.Close()
	assert.False(t, sess.Attached())
}

func TestServeConnectAndDisconnect(t *testing.T) {
	client := redisClient(t)
	logger := logging.NewTestLogger(t)
	relay := New(client, WithPrefix("test-"+uuid.NewString()), WithLogger(logger.Logger))

	sess, err := leafmap.New(leafmap.WithID("s2"), leafmap.WithLogger(logger.Logger))
	require.NoError(t, err)
	t.Cleanup(sess.Close)

	ctx, cancel := context.WithCancel(context.Background())
	served := make(chan error, 1)
	go func() { served <- relay.Serve(ctx, sessionMap{"s2": sess}) }()

	require.Eventually(t, func() bool {
		n, err := client.PubSubNumSub(ctx, relay.ConnectChannel()).Result()
		return err == nil && n[relay.ConnectChannel()] == 1
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, client.Publish(ctx, relay.ConnectChannel(), "s2").Err())
	require.Eventually(t, sess.Attached, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 1, relay.Bound())

	require.NoError(t, client.Publish(ctx, relay.ConnectChannel(), "unknown").Err())
	require.NoError(t, client.Publish(ctx, relay.DisconnectChannel(), "s2").Err())
	require.Eventually(t, func() bool { return !sess.Attached() }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 0, relay.Bound())

	cancel()
	assert.NoError(t, <-served)
}
