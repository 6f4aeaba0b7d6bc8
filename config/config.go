// Package config loads the xtheme application settings from a YAML file,
// XTHEME_* environment variables and bound command-line flags.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("config: invalid")

// EnvPrefix prefixes environment overrides, e.g. XTHEME_SERVER_ADDR.
const EnvPrefix = "XTHEME"

// Store backends.
const (
	StoreMemory = "memory"
	StoreRedis  = "redis"
	StoreSQLite = "sqlite"
)

// Transports.
const (
	TransportMemory = "memory"
	TransportRedis  = "redis-streams"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Theme     ThemeConfig
	Locale    LocaleConfig
	Store     StoreConfig
	Transport TransportConfig
	Search    SearchConfig
	Log       LogConfig
}

// ServerConfig holds preview server settings.
type ServerConfig struct {
	Addr string
	// Mode is the gin mode: debug, release or test.
	Mode            string
	ShutdownTimeout time.Duration
}

// ThemeConfig locates the theme sources.
type ThemeConfig struct {
	Dir string
	// MockData is an optional YAML file replacing the built-in store data.
	MockData string
}

// LocaleConfig selects and loads translations.
type LocaleConfig struct {
	Default string
	// Dir holds extra *.yaml catalogs merged over the built-in ones.
	Dir   string
	Watch bool
}

// StoreConfig selects the preference store.
type StoreConfig struct {
	Backend string // memory, redis, sqlite
	Path    string // sqlite database file
	Redis   RedisConfig
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Profile  string
}

// TransportConfig selects the event transport.
type TransportConfig struct {
	Name         string // memory, redis-streams
	Redis        RedisConfig
	StreamPrefix string
}

// SearchConfig tunes the search field and the catalog searcher.
type SearchConfig struct {
	Threshold   int
	QuietPeriod time.Duration
	Limit       int
	// Latency simulates a remote search call.
	Latency time.Duration
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level   string // debug, info, warn, error
	Console bool
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		Server:    ServerConfig{Addr: ":3000", Mode: "release", ShutdownTimeout: 5 * time.Second},
		Theme:     ThemeConfig{Dir: "theme"},
		Locale:    LocaleConfig{Default: "en"},
		Store:     StoreConfig{Backend: StoreMemory, Path: ".xtheme/prefs.db", Redis: RedisConfig{Addr: "localhost:6379", Profile: "default"}},
		Transport: TransportConfig{Name: TransportMemory, Redis: RedisConfig{Addr: "localhost:6379"}, StreamPrefix: "xtheme:"},
		Search:    SearchConfig{Threshold: 3, QuietPeriod: 300 * time.Millisecond, Limit: 10},
		Log:       LogConfig{Level: "info", Console: true},
	}
}

// SetDefaults registers Defaults on v so every key is known to env lookup.
func SetDefaults(v *viper.Viper) {
	d := Defaults()
	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("server.mode", d.Server.Mode)
	v.SetDefault("server.shutdown_timeout", d.Server.ShutdownTimeout)
	v.SetDefault("theme.dir", d.Theme.Dir)
	v.SetDefault("theme.mock_data", d.Theme.MockData)
	v.SetDefault("locale.default", d.Locale.Default)
	v.SetDefault("locale.dir", d.Locale.Dir)
	v.SetDefault("locale.watch", d.Locale.Watch)
	v.SetDefault("store.backend", d.Store.Backend)
	v.SetDefault("store.path", d.Store.Path)
	v.SetDefault("store.redis.addr", d.Store.Redis.Addr)
	v.SetDefault("store.redis.password", d.Store.Redis.Password)
	v.SetDefault("store.redis.db", d.Store.Redis.DB)
	v.SetDefault("store.redis.profile", d.Store.Redis.Profile)
	v.SetDefault("transport.name", d.Transport.Name)
	v.SetDefault("transport.redis.addr", d.Transport.Redis.Addr)
	v.SetDefault("transport.redis.password", d.Transport.Redis.Password)
	v.SetDefault("transport.redis.db", d.Transport.Redis.DB)
	v.SetDefault("transport.stream_prefix", d.Transport.StreamPrefix)
	v.SetDefault("search.threshold", d.Search.Threshold)
	v.SetDefault("search.quiet_period", d.Search.QuietPeriod)
	v.SetDefault("search.limit", d.Search.Limit)
	v.SetDefault("search.latency", d.Search.Latency)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.console", d.Log.Console)
}

// Load reads configuration into a validated Config.
// Priority (highest to lowest):
// 1. flags bound on v
// 2. environment variables with XTHEME_ prefix (e.g. XTHEME_STORE_BACKEND)
// 3. file (explicit path, or xtheme.yaml in the working directory)
// 4. built-in defaults
func Load(v *viper.Viper, file string) (Config, error) {
	if v == nil {
		v = viper.New()
	}
	SetDefaults(v)

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("xtheme")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("config: read: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	cfg := Config{
		Server: ServerConfig{
			Addr:            v.GetString("server.addr"),
			Mode:            v.GetString("server.mode"),
			ShutdownTimeout: v.GetDuration("server.shutdown_timeout"),
		},
		Theme: ThemeConfig{
			Dir:      v.GetString("theme.dir"),
			MockData: v.GetString("theme.mock_data"),
		},
		Locale: LocaleConfig{
			Default: v.GetString("locale.default"),
			Dir:     v.GetString("locale.dir"),
			Watch:   v.GetBool("locale.watch"),
		},
		Store: StoreConfig{
			Backend: strings.ToLower(v.GetString("store.backend")),
			Path:    v.GetString("store.path"),
			Redis: RedisConfig{
				Addr:     v.GetString("store.redis.addr"),
				Password: v.GetString("store.redis.password"),
				DB:       v.GetInt("store.redis.db"),
				Profile:  v.GetString("store.redis.profile"),
			},
		},
		Transport: TransportConfig{
			Name: strings.ToLower(v.GetString("transport.name")),
			Redis: RedisConfig{
				Addr:     v.GetString("transport.redis.addr"),
				Password: v.GetString("transport.redis.password"),
				DB:       v.GetInt("transport.redis.db"),
			},
			StreamPrefix: v.GetString("transport.stream_prefix"),
		},
		Search: SearchConfig{
			Threshold:   v.GetInt("search.threshold"),
			QuietPeriod: v.GetDuration("search.quiet_period"),
			Limit:       v.GetInt("search.limit"),
			Latency:     v.GetDuration("search.latency"),
		},
		Log: LogConfig{
			Level:   strings.ToLower(v.GetString("log.level")),
			Console: v.GetBool("log.console"),
		},
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks settings that would otherwise fail late.
func (c Config) Validate() error {
	var errs []error
	if c.Server.Addr == "" {
		errs = append(errs, errors.New("server.addr is empty"))
	}
	switch c.Server.Mode {
	case "debug", "release", "test":
	default:
		errs = append(errs, fmt.Errorf("server.mode %q: want debug, release or test", c.Server.Mode))
	}
	switch c.Store.Backend {
	case StoreMemory:
	case StoreSQLite:
		if c.Store.Path == "" {
			errs = append(errs, errors.New("store.path is required for sqlite"))
		}
	case StoreRedis:
		if c.Store.Redis.Addr == "" {
			errs = append(errs, errors.New("store.redis.addr is required for redis"))
		}
	default:
		errs = append(errs, fmt.Errorf("store.backend %q: want memory, redis or sqlite", c.Store.Backend))
	}
	switch c.Transport.Name {
	case TransportMemory:
	case TransportRedis:
		if c.Transport.Redis.Addr == "" {
			errs = append(errs, errors.New("transport.redis.addr is required for redis-streams"))
		}
	default:
		errs = append(errs, fmt.Errorf("transport.name %q: want memory or redis-streams", c.Transport.Name))
	}
	if c.Search.Threshold < 1 {
		errs = append(errs, fmt.Errorf("search.threshold %d: must be at least 1", c.Search.Threshold))
	}
	if c.Search.QuietPeriod <= 0 {
		errs = append(errs, fmt.Errorf("search.quiet_period %s: must be positive", c.Search.QuietPeriod))
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log.level %q: want debug, info, warn or error", c.Log.Level))
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
}
