package app

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/gubancs/leafmap/internal/cmd/application"
	"github.com/gubancs/leafmap/internal/server"
	"github.com/gubancs/leafmap/internal/store"
	"github.com/gubancs/leafmap/pkg/errors"
)

// Config holds the application configuration loaded from config files,
// environment variables and .env files.
type Config struct {
	// Global flags
	Verbose bool
	Quiet   bool
	NoColor bool
	Format  string

	// Config file
	ConfigFile string

	// Session settings. A zero CallTimeout disables call timeouts.
	CallTimeout time.Duration
	QueueSize   int

	// Transport
	Transport   string
	RedisAddr   string
	RedisPrefix string

	// Snapshot store; an empty Store disables persistence
	Store       string
	SQLitePath  string
	DatabaseURL string

	Server server.Config

	// Logging configuration
	LogLevel  string
	LogFormat string
	LogOutput string
}

const (
	defaultCallTimeout = 30 * time.Second
	defaultQueueSize   = 256
)

// LoadConfig loads configuration from all sources in order of precedence:
//  1. Command-line flags (handled by cobra)
//  2. Environment variables
//  3. .env files
//  4. Config file (~/.leafmap.yaml, or the file named by LEAFMAP_CONFIG)
//  5. Defaults
func LoadConfig() (*Config, error) {
	return LoadConfigFile(os.Getenv("LEAFMAP_CONFIG"))
}

// LoadConfigFile is LoadConfig with an explicit config file, which must
// exist. An empty path searches the default locations.
func LoadConfigFile(configFile string) (*Config, error) {
	loadEnvFiles()

	v := viper.New()
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	setDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.NewConfigError("config", "reading "+configFile, err)
		}
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
		v.AddConfigPath(".")
		v.SetConfigType("yaml")
		v.SetConfigName(".leafmap")
		// A missing config file is fine
		_ = v.ReadInConfig()
	}

	return fromViper(v)
}

func setDefaults(v *viper.Viper) {
	d := server.DefaultConfig()
	v.SetDefault("call_timeout", defaultCallTimeout)
	v.SetDefault("queue_size", defaultQueueSize)
	v.SetDefault("transport", application.TransportWebSocket)
	v.SetDefault("redis_addr", "localhost:6379")
	v.SetDefault("redis_prefix", "leafmap")
	v.SetDefault("store", "")
	v.SetDefault("sqlite_path", "leafmap.db")
	v.SetDefault("database_url", "")
	v.SetDefault("server.host", d.Host)
	v.SetDefault("server.port", d.Port)
	v.SetDefault("server.prefix", d.PathPrefix)
	v.SetDefault("server.cors", d.CORSEnabled)
	v.SetDefault("server.cors_origins", d.CORSOrigins)
	v.SetDefault("server.auth", d.AuthEnabled)
	v.SetDefault("server.auth_header", d.AuthHeader)
	v.SetDefault("server.rate_limit", d.RateLimit)
	v.SetDefault("server.cache_ttl", d.CacheTTL)
	v.SetDefault("server.session_idle_timeout", d.SessionIdleTimeout)
	v.SetDefault("server.read_timeout", d.ReadTimeout)
	v.SetDefault("server.write_timeout", d.WriteTimeout)
	v.SetDefault("server.idle_timeout", d.IdleTimeout)
	v.SetDefault("server.metrics", d.MetricsEnabled)
	v.SetDefault("log_format", "auto")
	v.SetDefault("log_output", "stderr")
}

func fromViper(v *viper.Viper) (*Config, error) {
	config := &Config{
		Verbose: v.GetBool("verbose"),
		Quiet:   v.GetBool("quiet"),
		NoColor: v.GetBool("no_color"),
		Format:  v.GetString("format"),

		ConfigFile: v.ConfigFileUsed(),

		CallTimeout: v.GetDuration("call_timeout"),
		QueueSize:   v.GetInt("queue_size"),

		Transport:   strings.ToLower(v.GetString("transport")),
		RedisAddr:   v.GetString("redis_addr"),
		RedisPrefix: v.GetString("redis_prefix"),

		Store:       strings.ToLower(v.GetString("store")),
		SQLitePath:  v.GetString("sqlite_path"),
		DatabaseURL: v.GetString("database_url"),

		Server: server.Config{
			Host:               v.GetString("server.host"),
			Port:               v.GetInt("server.port"),
			PathPrefix:         v.GetString("server.prefix"),
			CORSEnabled:        v.GetBool("server.cors"),
			CORSOrigins:        v.GetStringSlice("server.cors_origins"),
			AuthEnabled:        v.GetBool("server.auth"),
			AuthHeader:         v.GetString("server.auth_header"),
			RateLimit:          v.GetInt("server.rate_limit"),
			CacheTTL:           v.GetDuration("server.cache_ttl"),
			SessionIdleTimeout: v.GetDuration("server.session_idle_timeout"),
			ReadTimeout:        v.GetDuration("server.read_timeout"),
			WriteTimeout:       v.GetDuration("server.write_timeout"),
			IdleTimeout:        v.GetDuration("server.idle_timeout"),
			MetricsEnabled:     v.GetBool("server.metrics"),
		},

		// LogLevel stays empty unless set, so -v/-q can apply
		LogLevel:  v.GetString("log_level"),
		LogFormat: v.GetString("log_format"),
		LogOutput: v.GetString("log_output"),
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate checks values viper cannot type-check.
func (c *Config) Validate() error {
	switch c.Transport {
	case application.TransportWebSocket, application.TransportRedis:
	default:
		return errors.NewConfigError("transport", "unknown transport "+c.Transport, nil)
	}
	switch c.Store {
	case "", store.DriverMemory, store.DriverSQLite:
	case store.DriverPostgres:
		if c.DatabaseURL == "" {
			return errors.NewConfigError("store", "postgres store requires database_url", nil)
		}
	default:
		return errors.NewConfigError("store", "unknown store "+c.Store, nil)
	}
	if c.QueueSize < 1 {
		return errors.NewConfigError("session", "queue_size must be positive", nil)
	}
	if c.CallTimeout < 0 {
		return errors.NewConfigError("session", "call_timeout must not be negative", nil)
	}
	return nil
}

// UpdateFromFlags applies parsed global flags, which take precedence over
// config file and environment values.
func (c *Config) UpdateFromFlags(verbose, quiet, noColor bool, format, logLevel string) {
	c.Verbose = verbose
	c.Quiet = quiet
	c.NoColor = noColor
	if format != "" {
		c.Format = format
	}
	if logLevel != "" {
		c.LogLevel = logLevel
	}
}

// loadEnvFiles loads .env then .env.local; variables already set win.
func loadEnvFiles() {
	for _, envFile := range []string{".env", ".env.local"} {
		_ = godotenv.Load(envFile)
	}
}
