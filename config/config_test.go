package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load(viper.New(), "")
	require.NoError(t, err)
	assert.Equal(t, Defaults(), cfg)
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "xtheme.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  addr: ":8080"
store:
  backend: sqlite
  path: /tmp/prefs.db
transport:
  name: redis-streams
  redis:
    addr: redis:6379
search:
  quiet_period: 500ms
  threshold: 2
log:
  level: DEBUG
`), 0o644))

	cfg, err := Load(viper.New(), path)
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, StoreSQLite, cfg.Store.Backend)
	assert.Equal(t, "/tmp/prefs.db", cfg.Store.Path)
	assert.Equal(t, TransportRedis, cfg.Transport.Name)
	assert.Equal(t, "redis:6379", cfg.Transport.Redis.Addr)
	assert.Equal(t, 500*time.Millisecond, cfg.Search.QuietPeriod)
	assert.Equal(t, 2, cfg.Search.Threshold)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "en", cfg.Locale.Default, "unset keys keep defaults")
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "xtheme.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  addr: \":8080\"\n"), 0o644))
	t.Setenv("XTHEME_SERVER_ADDR", ":9090")
	t.Setenv("XTHEME_LOCALE_DEFAULT", "ar")

	cfg, err := Load(viper.New(), path)
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, "ar", cfg.Locale.Default)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(viper.New(), filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cases := map[string]func(*Config){
		"empty addr":         func(c *Config) { c.Server.Addr = "" },
		"bad mode":           func(c *Config) { c.Server.Mode = "prod" },
		"bad backend":        func(c *Config) { c.Store.Backend = "cookie" },
		"sqlite without dir": func(c *Config) { c.Store.Backend = StoreSQLite; c.Store.Path = "" },
		"redis without addr": func(c *Config) { c.Store.Backend = StoreRedis; c.Store.Redis.Addr = "" },
		"bad transport":      func(c *Config) { c.Transport.Name = "kafka" },
		"stream without addr": func(c *Config) {
			c.Transport.Name = TransportRedis
			c.Transport.Redis.Addr = ""
		},
		"zero threshold": func(c *Config) { c.Search.Threshold = 0 },
		"no quiet":       func(c *Config) { c.Search.QuietPeriod = 0 },
		"bad level":      func(c *Config) { c.Log.Level = "trace" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			c := Defaults()
			mutate(&c)
			assert.ErrorIs(t, c.Validate(), ErrInvalid)
		})
	}
	assert.NoError(t, Defaults().Validate())
}
