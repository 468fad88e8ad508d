package leafmap

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/gubancs/leafmap/pkg/bridge"
	"github.com/gubancs/leafmap/pkg/errors"
	"github.com/gubancs/leafmap/pkg/events"
	"github.com/gubancs/leafmap/pkg/leaflet"
)

// Option is a function that configures a Session
type Option func(*config) error

// config holds the Session construction settings
type config struct {
	id          string
	logger      *zerolog.Logger
	callTimeout time.Duration
	queueSize   int
	registry    *events.Registry
	mapOptions  leaflet.MapOptions
	idGenerator func() string
}

func defaultConfig() *config {
	return &config{
		callTimeout: bridge.DefaultCallTimeout,
		queueSize:   bridge.DefaultQueueSize,
		mapOptions:  leaflet.DefaultMapOptions(),
	}
}

// WithID sets the session id. It is also the id of the session's map.
func WithID(id string) Option {
	return func(c *config) error {
		if id == "" {
			return errors.NewValidationError("id", id, "session id must not be empty")
		}
		c.id = id
		return nil
	}
}

// WithLogger configures the logger used by the session, its bridge and its map
func WithLogger(logger *zerolog.Logger) Option {
	return func(c *config) error {
		c.logger = logger
		return nil
	}
}

// WithCallTimeout configures how long a remote call waits for its result.
// Zero disables the timeout.
func WithCallTimeout(d time.Duration) Option {
	return func(c *config) error {
		if d < 0 {
			return errors.NewValidationError("call_timeout", d, "must not be negative")
		}
		c.callTimeout = d
		return nil
	}
}

// WithQueueSize configures the task buffer of the owner loop
func WithQueueSize(n int) Option {
	return func(c *config) error {
		if n <= 0 {
			return errors.NewValidationError("queue_size", n, "must be positive")
		}
		c.queueSize = n
		return nil
	}
}

// WithRegistry configures the event-type registry inbound events are resolved with
func WithRegistry(r *events.Registry) Option {
	return func(c *config) error {
		if r == nil {
			return errors.NewValidationError("registry", nil, "registry must not be nil")
		}
		c.registry = r
		return nil
	}
}

// WithMapOptions configures the initial state of the session's map
func WithMapOptions(opts leaflet.MapOptions) Option {
	return func(c *config) error {
		c.mapOptions = opts
		return nil
	}
}

// WithCallIDGenerator overrides the correlation ids of remote calls.
// Tests use it to get predictable ids.
func WithCallIDGenerator(fn func() string) Option {
	return func(c *config) error {
		c.idGenerator = fn
		return nil
	}
}

func (s *session) options(opts ...Option) error {
	for _, opt := range opts {
		if err := opt(s.config); err != nil {
			return err
		}
	}
	return nil
}
