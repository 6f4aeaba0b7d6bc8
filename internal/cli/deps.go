package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/trickstertwo/xlog"

	"github.com/trickstertwo/xtheme"
	"github.com/trickstertwo/xtheme/adapter/memory"
	"github.com/trickstertwo/xtheme/adapter/redisstream"
	"github.com/trickstertwo/xtheme/catalog"
	"github.com/trickstertwo/xtheme/config"
	"github.com/trickstertwo/xtheme/i18n"
	"github.com/trickstertwo/xtheme/page"
	"github.com/trickstertwo/xtheme/prefs"
	"github.com/trickstertwo/xtheme/prefstore"
	"github.com/trickstertwo/xtheme/search"
	"github.com/trickstertwo/xtheme/sdk"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// openStore builds the configured preference store.
func openStore(ctx context.Context, cfg config.StoreConfig) (sdk.Store, io.Closer, error) {
	switch cfg.Backend {
	case config.StoreRedis:
		s, err := prefstore.NewRedis(ctx, prefstore.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Profile:  cfg.Redis.Profile,
		})
		if err != nil {
			return nil, nil, err
		}
		return s, s, nil
	case config.StoreSQLite:
		s, err := prefstore.OpenSQLite(cfg.Path)
		if err != nil {
			return nil, nil, err
		}
		return s, s, nil
	default:
		return prefstore.NewMemory(), nopCloser{}, nil
	}
}

// openBus builds the shared event bus for the preview server.
func openBus(cfg config.TransportConfig, logger *xlog.Logger) (*xtheme.Bus, error) {
	observer := xtheme.LoggingObserver{Logger: logger}
	switch cfg.Name {
	case config.TransportRedis:
		rc := redisstream.Defaults()
		rc.Addr = cfg.Redis.Addr
		rc.Password = cfg.Redis.Password
		rc.DB = cfg.Redis.DB
		if cfg.StreamPrefix != "" {
			rc.StreamPrefix = cfg.StreamPrefix
		}
		return redisstream.New(rc,
			redisstream.WithLogger(logger),
			redisstream.WithObserver(observer),
		)
	default:
		return memory.New(memory.Config{AssignIDs: true},
			memory.WithLogger(logger),
			memory.WithObserver(observer),
			memory.WithObserverPool(2, 256),
		)
	}
}

// newTranslator loads the built-in catalogs plus the configured directory.
func newTranslator(ctx context.Context, cfg config.LocaleConfig, logger *xlog.Logger) (*i18n.Translator, error) {
	tr, err := i18n.New(cfg.Default, i18n.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	if cfg.Dir == "" {
		return tr, nil
	}
	if err := tr.LoadDir(cfg.Dir); err != nil {
		return nil, err
	}
	tr.SetLocale(cfg.Default)
	if cfg.Watch {
		if err := tr.Watch(ctx, cfg.Dir, 0, nil); err != nil {
			return nil, err
		}
	}
	return tr, nil
}

// loadCatalog returns the configured mock data. A theme may ship its own
// mock.yaml next to its sources.
func loadCatalog(cfg config.ThemeConfig) (*catalog.Data, error) {
	if cfg.MockData != "" {
		return catalog.LoadFile(cfg.MockData)
	}
	if path := filepath.Join(cfg.Dir, "mock.yaml"); fileExists(path) {
		return catalog.LoadFile(path)
	}
	return catalog.Default()
}

func newSearcher(data *catalog.Data, cfg config.SearchConfig, logger *xlog.Logger) *catalog.Searcher {
	return catalog.NewSearcher(data.Products.Featured,
		catalog.WithLimit(cfg.Limit),
		catalog.WithLatency(cfg.Latency),
		catalog.WithSearchLogger(logger),
	)
}

func pageConfig(cfg config.SearchConfig) page.Config {
	return page.Config{
		Search: search.Config{
			Threshold:   cfg.Threshold,
			QuietPeriod: cfg.QuietPeriod,
		},
		Toggles: []prefs.Toggle{prefs.ViewModeToggle()},
	}
}

func fileExists(path string) bool {
	st, err := os.Stat(path)
	return err == nil && !st.IsDir()
}

func closeAll(logger *xlog.Logger, closers ...io.Closer) {
	for _, c := range closers {
		if c == nil {
			continue
		}
		if err := c.Close(); err != nil {
			logger.Warn().Err(err).Msg("close failed")
		}
	}
}
