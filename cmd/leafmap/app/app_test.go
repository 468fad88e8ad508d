package app

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/gubancs/leafmap/internal/cmd/application"
	"github.com/gubancs/leafmap/pkg/events"
)

func newTestApp(t *testing.T, config *Config) *App {
	t.Helper()
	if config == nil {
		config = &Config{
			Transport:   application.TransportWebSocket,
			QueueSize:   8,
			CallTimeout: time.Second,
			RedisAddr:   "localhost:6379",
		}
	}
	logger := zerolog.Nop()
	app, err := New("1.0.0", "abc123", "2026-01-01", "test", WithConfig(config), WithLogger(&logger))
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	return app
}

// TestApp_New verifies app initialization.
func TestApp_New(t *testing.T) {
	app, err := New("1.0.0", "abc123", "2026-01-01", "test")
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	if app.Version() != "1.0.0" {
		t.Errorf("Version() = %s, want 1.0.0", app.Version())
	}
	if app.Commit() != "abc123" {
		t.Errorf("Commit() = %s, want abc123", app.Commit())
	}
	if app.Date() != "2026-01-01" {
		t.Errorf("Date() = %s, want 2026-01-01", app.Date())
	}
	if app.BuiltBy() != "test" {
		t.Errorf("BuiltBy() = %s, want test", app.BuiltBy())
	}
	if app.Logger() == nil {
		t.Error("Logger() returned nil")
	}
	if app.Config() == nil {
		t.Error("Config() returned nil")
	}
}

// TestApp_Registry verifies the default and overridden registries.
func TestApp_Registry(t *testing.T) {
	app := newTestApp(t, nil)
	if app.Registry() != events.Default() {
		t.Error("Registry() should default to events.Default()")
	}

	reg := events.NewRegistry()
	if err := WithRegistry(reg)(app); err != nil {
		t.Fatal(err)
	}
	if app.Registry() != reg {
		t.Error("Registry() ignored WithRegistry")
	}
	if len(app.SessionOptions()) == 0 {
		t.Error("SessionOptions() returned no options")
	}
}

// TestApp_Store verifies store selection.
func TestApp_Store(t *testing.T) {
	app := newTestApp(t, nil)

	st, err := app.Store(context.Background())
	if err != nil || st != nil {
		t.Fatalf("Store() without config = %v, %v; want nil, nil", st, err)
	}

	app.config.Store = "memory"
	st, err = app.Store(context.Background())
	if err != nil {
		t.Fatalf("Store() failed: %v", err)
	}
	if st == nil {
		t.Fatal("Store() returned nil for memory driver")
	}
	if err := st.Ping(context.Background()); err != nil {
		t.Errorf("Ping() failed: %v", err)
	}
	_ = st.Close()
}

// TestApp_Redis_Singleton verifies concurrent Redis() calls share one client.
func TestApp_Redis_Singleton(t *testing.T) {
	app := newTestApp(t, nil)
	defer app.Shutdown(context.Background())

	var wg sync.WaitGroup
	clients := make(chan any, 10)
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c, err := app.Redis()
			if err != nil {
				t.Errorf("Redis() failed: %v", err)
				return
			}
			clients <- c
		}()
	}
	wg.Wait()
	close(clients)

	var first any
	for c := range clients {
		if first == nil {
			first = c
		} else if c != first {
			t.Error("Redis() returned different clients")
		}
	}
}

// TestApp_Redis_NoAddress verifies an empty address is a config error.
func TestApp_Redis_NoAddress(t *testing.T) {
	app := newTestApp(t, &Config{Transport: application.TransportRedis, QueueSize: 1})
	if _, err := app.Redis(); err == nil {
		t.Error("Redis() without address should fail")
	}
}

// TestApp_Shutdown verifies shutdown is safe with and without clients.
func TestApp_Shutdown(t *testing.T) {
	app := newTestApp(t, nil)
	if err := app.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown() without clients failed: %v", err)
	}
	if _, err := app.Redis(); err != nil {
		t.Fatal(err)
	}
	if err := app.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown() failed: %v", err)
	}
}

// TestApp_Commands verifies the command tree and a run through it.
func TestApp_Commands(t *testing.T) {
	app := newTestApp(t, nil)
	root := app.createRootCommand()

	for _, name := range []string{"serve", "console", "events", "snapshots", "version"} {
		if cmd, _, err := root.Find([]string{name}); err != nil || cmd.Name() != name {
			t.Errorf("command %s not registered", name)
		}
	}

	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"version"})
	if err := root.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("version failed: %v", err)
	}
	if !strings.Contains(out.String(), "leafmap version 1.0.0") {
		t.Errorf("version output = %q", out.String())
	}
}

// TestApp_ManCommand verifies man page generation.
func TestApp_ManCommand(t *testing.T) {
	app := newTestApp(t, nil)
	root := app.createRootCommand()

	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"man"})
	if err := root.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("man failed: %v", err)
	}
	if !strings.Contains(out.String(), ".TH") || !strings.Contains(out.String(), "LEAFMAP") {
		t.Errorf("man output missing title header:\n%.200s", out.String())
	}
}

// TestApp_EventsCommand runs the events command with a format flag.
func TestApp_EventsCommand(t *testing.T) {
	app := newTestApp(t, nil)
	root := app.createRootCommand()

	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"events", "--family", "mouse", "-o", "json"})
	if err := root.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("events failed: %v", err)
	}
	if app.OutputFormat() != "json" {
		t.Errorf("OutputFormat() = %s, want json", app.OutputFormat())
	}

	var fams []map[string]any
	if err := json.Unmarshal(out.Bytes(), &fams); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out.String())
	}
	if len(fams) != 1 || fams[0]["family"] != "mouse" {
		t.Errorf("families = %v", fams)
	}
}

// TestConfigFlag verifies --config is found before parsing.
func TestConfigFlag(t *testing.T) {
	tests := []struct {
		args []string
		want string
	}{
		{nil, ""},
		{[]string{"serve"}, ""},
		{[]string{"--config", "a.yaml", "serve"}, "a.yaml"},
		{[]string{"serve", "--config=b.yaml"}, "b.yaml"},
		{[]string{"console", "--", "--config", "c.yaml"}, ""},
	}
	for _, tt := range tests {
		if got := configFlag(tt.args); got != tt.want {
			t.Errorf("configFlag(%v) = %q, want %q", tt.args, got, tt.want)
		}
	}
}
