package app

import (
	stderrors "errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gubancs/leafmap/internal/cmd/application"
	"github.com/gubancs/leafmap/pkg/errors"
)

// TestLoadConfig verifies defaults.
func TestLoadConfig(t *testing.T) {
	config, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() failed: %v", err)
	}

	if config.CallTimeout != defaultCallTimeout {
		t.Errorf("CallTimeout = %v, want %v", config.CallTimeout, defaultCallTimeout)
	}
	if config.QueueSize != defaultQueueSize {
		t.Errorf("QueueSize = %d, want %d", config.QueueSize, defaultQueueSize)
	}
	if config.Transport != application.TransportWebSocket {
		t.Errorf("Transport = %s, want websocket", config.Transport)
	}
	if config.Store != "" {
		t.Errorf("Store = %q, want empty", config.Store)
	}
	if config.LogFormat == "" {
		t.Error("LogFormat not set to default")
	}
	if config.Server.Port == 0 {
		t.Error("Server.Port not set to default")
	}
}

// TestConfig_EnvironmentVariables verifies environment variable loading.
func TestConfig_EnvironmentVariables(t *testing.T) {
	t.Setenv("VERBOSE", "true")
	t.Setenv("FORMAT", "json")
	t.Setenv("QUEUE_SIZE", "16")
	t.Setenv("CALL_TIMEOUT", "2s")
	t.Setenv("TRANSPORT", "Redis")
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("SERVER_SESSION_IDLE_TIMEOUT", "1m")

	config, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() failed: %v", err)
	}

	if !config.Verbose {
		t.Error("VERBOSE environment variable not loaded")
	}
	if config.Format != "json" {
		t.Errorf("Format = %s, want json", config.Format)
	}
	if config.QueueSize != 16 {
		t.Errorf("QueueSize = %d, want 16", config.QueueSize)
	}
	if config.CallTimeout != 2*time.Second {
		t.Errorf("CallTimeout = %v, want 2s", config.CallTimeout)
	}
	if config.Transport != application.TransportRedis {
		t.Errorf("Transport = %s, want redis", config.Transport)
	}
	if config.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want 9090", config.Server.Port)
	}
	if config.Server.SessionIdleTimeout != time.Minute {
		t.Errorf("Server.SessionIdleTimeout = %v, want 1m", config.Server.SessionIdleTimeout)
	}
}

// TestConfig_File verifies an explicit config file is read.
func TestConfig_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "leafmap.yaml")
	content := "queue_size: 64\nstore: memory\nserver:\n  port: 9999\n  prefix: /v2\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("LEAFMAP_CONFIG", path)

	config, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() failed: %v", err)
	}

	if config.ConfigFile != path {
		t.Errorf("ConfigFile = %s, want %s", config.ConfigFile, path)
	}
	if config.QueueSize != 64 {
		t.Errorf("QueueSize = %d, want 64", config.QueueSize)
	}
	if config.Store != "memory" {
		t.Errorf("Store = %s, want memory", config.Store)
	}
	if config.Server.Port != 9999 {
		t.Errorf("Server.Port = %d, want 9999", config.Server.Port)
	}
	if config.Server.PathPrefix != "/v2" {
		t.Errorf("Server.PathPrefix = %s, want /v2", config.Server.PathPrefix)
	}
}

// TestConfig_MissingFile verifies an explicit but missing file fails.
func TestConfig_MissingFile(t *testing.T) {
	_, err := LoadConfigFile(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Fatal("LoadConfigFile() with missing file should fail")
	}
	var cfgErr *errors.ConfigError
	if !stderrors.As(err, &cfgErr) {
		t.Errorf("error = %T, want *errors.ConfigError", err)
	}
}

// TestConfig_Validate covers values viper accepts but leafmap does not.
func TestConfig_Validate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Transport:   application.TransportWebSocket,
			QueueSize:   1,
			CallTimeout: time.Second,
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(*Config) {}, false},
		{"zero call timeout", func(c *Config) { c.CallTimeout = 0 }, false},
		{"sqlite store", func(c *Config) { c.Store = "sqlite" }, false},
		{"postgres with url", func(c *Config) { c.Store = "postgres"; c.DatabaseURL = "postgres://localhost/leafmap" }, false},
		{"postgres without url", func(c *Config) { c.Store = "postgres" }, true},
		{"unknown store", func(c *Config) { c.Store = "mongo" }, true},
		{"unknown transport", func(c *Config) { c.Transport = "carrier-pigeon" }, true},
		{"zero queue", func(c *Config) { c.QueueSize = 0 }, true},
		{"negative call timeout", func(c *Config) { c.CallTimeout = -time.Second }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			err := c.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

// TestConfig_EnvValidation verifies invalid environment values fail loading.
func TestConfig_EnvValidation(t *testing.T) {
	t.Setenv("STORE", "postgres")
	t.Setenv("DATABASE_URL", "")

	if _, err := LoadConfig(); err == nil {
		t.Error("LoadConfig() should fail for postgres without database_url")
	}
}

// TestConfig_UpdateFromFlags verifies flag precedence.
func TestConfig_UpdateFromFlags(t *testing.T) {
	config := &Config{Format: "yaml", LogLevel: "error"}

	config.UpdateFromFlags(true, false, true, "", "")
	if !config.Verbose || !config.NoColor {
		t.Error("boolean flags not applied")
	}
	if config.Format != "yaml" {
		t.Errorf("empty format flag replaced Format: %s", config.Format)
	}
	if config.LogLevel != "error" {
		t.Errorf("empty log-level flag replaced LogLevel: %s", config.LogLevel)
	}

	config.UpdateFromFlags(false, true, false, "json", "debug")
	if config.Format != "json" || config.LogLevel != "debug" {
		t.Errorf("Format = %s, LogLevel = %s, want json, debug", config.Format, config.LogLevel)
	}
}
