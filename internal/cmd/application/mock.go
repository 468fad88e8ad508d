package application

import (
	"context"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/gubancs/leafmap"
	"github.com/gubancs/leafmap/internal/server"
	"github.com/gubancs/leafmap/internal/store"
	"github.com/gubancs/leafmap/pkg/events"
)

// Mock provides a mock implementation of Application for testing.
// A nil function field yields a default value.
//
//	mock := &application.Mock{
//	    StoreFunc: func(context.Context) (store.Store, error) {
//	        return store.NewMemory(), nil
//	    },
//	}
//	cmd := snapshots.NewCommand(mock)
type Mock struct {
	LoggerFunc         func() *zerolog.Logger
	RegistryFunc       func() *events.Registry
	SessionOptionsFunc func() []leafmap.Option
	StoreFunc          func(ctx context.Context) (store.Store, error)
	RedisFunc          func() (redis.UniversalClient, error)
	ServerConfigFunc   func() server.Config
	TransportFunc      func() string
	OutputFormatFunc   func() string
	VersionFunc        func() string
	CommitFunc         func() string
	DateFunc           func() string
	BuiltByFunc        func() string
}

// Logger returns a logger using the mock function or a no-op logger.
func (m *Mock) Logger() *zerolog.Logger {
	if m.LoggerFunc != nil {
		return m.LoggerFunc()
	}
	logger := zerolog.Nop()
	return &logger
}

// Registry returns the mock registry or a fresh one with the core families.
func (m *Mock) Registry() *events.Registry {
	if m.RegistryFunc != nil {
		return m.RegistryFunc()
	}
	return events.NewRegistry()
}

// SessionOptions returns the mock options or none.
func (m *Mock) SessionOptions() []leafmap.Option {
	if m.SessionOptionsFunc != nil {
		return m.SessionOptionsFunc()
	}
	return nil
}

// Store returns the mock store or nil.
func (m *Mock) Store(ctx context.Context) (store.Store, error) {
	if m.StoreFunc != nil {
		return m.StoreFunc(ctx)
	}
	return nil, nil
}

// Redis returns the mock client or nil.
func (m *Mock) Redis() (redis.UniversalClient, error) {
	if m.RedisFunc != nil {
		return m.RedisFunc()
	}
	return nil, nil
}

// ServerConfig returns the mock config or server.DefaultConfig.
func (m *Mock) ServerConfig() server.Config {
	if m.ServerConfigFunc != nil {
		return m.ServerConfigFunc()
	}
	return server.DefaultConfig()
}

// Transport returns the mock transport or "websocket".
func (m *Mock) Transport() string {
	if m.TransportFunc != nil {
		return m.TransportFunc()
	}
	return TransportWebSocket
}

// OutputFormat returns output format using the mock function or "table".
func (m *Mock) OutputFormat() string {
	if m.OutputFormatFunc != nil {
		return m.OutputFormatFunc()
	}
	return "table"
}

// Version returns version using the mock function or "dev".
func (m *Mock) Version() string {
	if m.VersionFunc != nil {
		return m.VersionFunc()
	}
	return "dev"
}

// Commit returns commit using the mock function or "unknown".
func (m *Mock) Commit() string {
	if m.CommitFunc != nil {
		return m.CommitFunc()
	}
	return "unknown"
}

// Date returns date using the mock function or "unknown".
func (m *Mock) Date() string {
	if m.DateFunc != nil {
		return m.DateFunc()
	}
	return "unknown"
}

// BuiltBy returns builtBy using the mock function or "test".
func (m *Mock) BuiltBy() string {
	if m.BuiltByFunc != nil {
		return m.BuiltByFunc()
	}
	return "test"
}

var _ Application = (*Mock)(nil)
