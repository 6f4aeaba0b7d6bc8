package cli

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/trickstertwo/xtheme/preview"
)

func newServeCommand(a *app) *cobra.Command {
	var (
		addr     string
		themeDir string
		livePage string
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the theme preview with mock store data",
		Long: `Serve renders the theme pages with mock store data and exposes an HTTP API
for catalog search and for publishing platform events. A live page session
runs the theme modules against every published event.

Example:
  xtheme serve                      # preview ./theme on :3000
  xtheme serve --addr :8080 --theme ../my-theme
  XTHEME_TRANSPORT_NAME=redis-streams xtheme serve`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if addr != "" {
				a.cfg.Server.Addr = addr
			}
			if themeDir != "" {
				a.cfg.Theme.Dir = themeDir
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx, livePage)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "address to listen on (overrides config)")
	cmd.Flags().StringVar(&themeDir, "theme", "", "theme directory (overrides config)")
	cmd.Flags().StringVar(&livePage, "live-page", "home", "preview page backing the live session")
	return cmd
}

func (a *app) serve(ctx context.Context, livePage string) error {
	cfg := a.cfg
	gin.SetMode(cfg.Server.Mode)

	data, err := loadCatalog(cfg.Theme)
	if err != nil {
		return err
	}
	tr, err := newTranslator(ctx, cfg.Locale, a.logger)
	if err != nil {
		return err
	}
	store, storeCloser, err := openStore(ctx, cfg.Store)
	if err != nil {
		return err
	}
	bus, err := openBus(cfg.Transport, a.logger)
	if err != nil {
		closeAll(a.logger, storeCloser)
		return fmt.Errorf("event bus: %w", err)
	}
	defer func() {
		_ = bus.Close(context.Background())
		closeAll(a.logger, storeCloser)
	}()

	searcher := newSearcher(data, cfg.Search, a.logger)
	live, err := preview.StartLive(ctx, preview.LiveOptions{
		ThemeDir:   cfg.Theme.Dir,
		Page:       livePage,
		Data:       data,
		Bus:        bus,
		Store:      store,
		Searcher:   searcher,
		Translator: tr,
		Config:     pageConfig(cfg.Search),
		Logger:     a.logger,
	})
	if err != nil {
		a.logger.Warn().Err(err).Str("page", livePage).Msg("live session disabled")
		live = nil
	}

	srv, err := preview.New(preview.Options{
		ThemeDir: cfg.Theme.Dir,
		Data:     data,
		Searcher: searcher,
		Bus:      bus,
		Live:     live,
		Logger:   a.logger,
	})
	if err != nil {
		return err
	}

	printBanner(a.out, cfg.Server.Addr, data.Store.Name)
	err = srv.Run(ctx, cfg.Server.Addr, cfg.Server.ShutdownTimeout)
	if live != nil {
		if cerr := live.Close(context.Background()); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

func printBanner(w io.Writer, addr, store string) {
	if w == nil {
		return
	}
	_, _ = fmt.Fprintf(w, "Previewing %s\n  pages:   http://localhost%s/\n  events:  POST http://localhost%s/api/events/{name}\n  session: http://localhost%s/api/session\n",
		store, hostPort(addr), hostPort(addr), hostPort(addr))
}

// hostPort reduces ":3000" and "0.0.0.0:3000" to ":3000".
func hostPort(addr string) string {
	for i := len(addr) - 1; i >= 0; i-- {
		if addr[i] == ':' {
			return addr[i:]
		}
	}
	return ":" + addr
}
