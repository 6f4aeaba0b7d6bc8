// Package preview serves a theme locally with mock store data: rendered
// preview pages, static assets, catalog search and an endpoint that
// publishes platform events onto the configured bus.
package preview

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/trickstertwo/xlog"

	"github.com/trickstertwo/xtheme"
	"github.com/trickstertwo/xtheme/catalog"
	"github.com/trickstertwo/xtheme/events"
	"github.com/trickstertwo/xtheme/sdk"
)

//go:embed templates/index.html
var overviewHTML string

var overview = template.Must(template.New("index.html").Parse(overviewHTML))

// MaxEventBody caps POST /api/events payloads.
const MaxEventBody = 1 << 20

// Options configures a Server. Data is required.
type Options struct {
	ThemeDir string
	Data     *catalog.Data
	Searcher sdk.Searcher
	// Bus receives events posted to /api/events. Optional.
	Bus *xtheme.Bus
	// Health backs /healthz. Defaults to Bus when nil.
	Health xtheme.HealthChecker
	// Live is reported by /api/session. Optional.
	Live   *Live
	Logger *xlog.Logger
}

// Server is the preview HTTP server.
type Server struct {
	opts   Options
	logger *xlog.Logger
	engine *gin.Engine
}

// New builds the server and its routes.
func New(opts Options) (*Server, error) {
	if opts.Data == nil {
		return nil, errors.New("preview: mock data required")
	}
	if opts.Health == nil && opts.Bus != nil {
		opts.Health = opts.Bus
	}
	s := &Server{opts: opts, logger: opts.Logger}
	if s.logger == nil {
		s.logger = xlog.Default()
	}

	engine := gin.New()
	engine.Use(gin.Recovery(), s.requestLog())
	engine.SetHTMLTemplate(overview)

	engine.GET("/", s.index)
	engine.GET("/preview/:page", s.preview)
	engine.Static("/assets", filepath.Join(opts.ThemeDir, "src", "assets"))
	engine.GET("/healthz", s.health)

	api := engine.Group("/api")
	api.GET("/store", s.store)
	api.GET("/search", s.search)
	api.POST("/events/:name", s.publish)
	api.GET("/session", s.session)

	s.engine = engine
	return s, nil
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler { return s.engine }

// Run serves on addr until ctx is done, then shuts down within timeout.
func (s *Server) Run(ctx context.Context, addr string, timeout time.Duration) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", addr).Msg("preview: listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	sctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		return fmt.Errorf("preview: shutdown: %w", err)
	}
	s.logger.Info().Msg("preview: stopped")
	return nil
}

func (s *Server) requestLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug().
			Dur("dur", time.Since(start)).
			Msg(fmt.Sprintf("preview: %s %s %d", c.Request.Method, c.Request.URL.Path, c.Writer.Status()))
	}
}

// pageLink is one entry of the overview page list.
type pageLink struct {
	Name, Template string
}

func (s *Server) index(c *gin.Context) {
	links := make([]pageLink, 0, len(PageOrder))
	for _, p := range PageOrder {
		links = append(links, pageLink{Name: p, Template: Pages[p]})
	}
	c.HTML(http.StatusOK, "index.html", gin.H{
		"Store": s.opts.Data.Store,
		"Pages": links,
	})
}

func (s *Server) preview(c *gin.Context) {
	name := c.Param("page")
	rel, ok := Pages[name]
	if !ok {
		c.String(http.StatusNotFound, "Page not found")
		return
	}
	raw, err := os.ReadFile(filepath.Join(s.opts.ThemeDir, rel))
	if err != nil {
		s.logger.Warn().Err(err).Str("page", name).Msg("preview: template unavailable")
		c.String(http.StatusInternalServerError, "Error loading template: "+err.Error())
		return
	}
	out, err := Render(string(raw), s.opts.Data)
	if err != nil {
		c.String(http.StatusInternalServerError, err.Error())
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(out))
}

func (s *Server) store(c *gin.Context) {
	c.JSON(http.StatusOK, s.opts.Data)
}

func (s *Server) search(c *gin.Context) {
	q := strings.TrimSpace(c.Query("q"))
	if q == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing query parameter q"})
		return
	}
	if s.opts.Searcher == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "search unavailable"})
		return
	}
	res, err := s.opts.Searcher.Query(c.Request.Context(), q)
	if err != nil {
		s.logger.Warn().Err(err).Str("query", q).Msg("preview: search failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	if res.Items == nil {
		res.Items = []sdk.SearchItem{}
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) publish(c *gin.Context) {
	name := c.Param("name")
	if s.opts.Bus == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "event bus unavailable"})
		return
	}
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, MaxEventBody+1))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if len(body) > MaxEventBody {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "payload too large"})
		return
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		body = []byte("null")
	}
	if err := events.Validate(s.opts.Bus.Codec(), name, body); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	err = s.opts.Bus.Publish(c.Request.Context(), name, rawPayload(body), map[string]string{"source": "preview"})
	switch {
	case errors.Is(err, xtheme.ErrBusClosed):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	case errors.Is(err, xtheme.ErrInvalidEventName):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case err != nil:
		s.logger.Error().Err(err).Str("event", name).Msg("preview: publish failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusAccepted, gin.H{"published": name, "typed": events.Typed(name)})
	}
}

func (s *Server) session(c *gin.Context) {
	if s.opts.Live == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no live session"})
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	st, err := s.opts.Live.Snapshot(ctx)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, st)
}

func (s *Server) health(c *gin.Context) {
	if s.opts.Health == nil {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "bus": "none"})
		return
	}
	h := s.opts.Health.Health(c.Request.Context())
	code := http.StatusOK
	if h.Status == "unhealthy" {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, h)
}

// rawPayload is a pre-encoded JSON payload.
type rawPayload []byte

func (r rawPayload) MarshalJSON() ([]byte, error) { return r, nil }
