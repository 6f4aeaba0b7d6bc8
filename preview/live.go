package preview

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/trickstertwo/xlog"

	"github.com/trickstertwo/xtheme"
	"github.com/trickstertwo/xtheme/badge"
	"github.com/trickstertwo/xtheme/catalog"
	"github.com/trickstertwo/xtheme/dom/htmldoc"
	"github.com/trickstertwo/xtheme/page"
	"github.com/trickstertwo/xtheme/platform"
	"github.com/trickstertwo/xtheme/sdk"
)

// ErrLiveClosed is returned by Snapshot after Close.
var ErrLiveClosed = errors.New("preview: live session closed")

// LiveOptions configures the server-side page session.
type LiveOptions struct {
	ThemeDir   string
	Page       string
	Data       *catalog.Data
	Bus        *xtheme.Bus
	Store      sdk.Store
	Searcher   sdk.Searcher
	Translator sdk.Translator
	Config     page.Config
	Logger     *xlog.Logger
}

// Live keeps one rendered preview page running against the shared bus, so
// events posted to the server visibly drive the theme modules.
type Live struct {
	Session *page.Session
	Doc     *htmldoc.Document
	Notices *platform.Notices
	Tracker *platform.Tracker

	done chan struct{}
}

// LiveState is a point-in-time view of the live page.
type LiveState struct {
	Session  string             `json:"session"`
	Ready    bool               `json:"ready"`
	Failures []string           `json:"failures,omitempty"`
	Badges   map[string]string  `json:"badges"`
	Notices  []platform.Notice  `json:"notices"`
	Tracked  []platform.Tracked `json:"tracked"`
	Query    string             `json:"last_query,omitempty"`
}

// StartLive renders the page, boots a session over it and runs its loop
// until ctx is done or Close is called.
func StartLive(ctx context.Context, opts LiveOptions) (*Live, error) {
	name := opts.Page
	if name == "" {
		name = "home"
	}
	rel, ok := Pages[name]
	if !ok {
		return nil, fmt.Errorf("preview: unknown page %q", name)
	}
	raw, err := os.ReadFile(filepath.Join(opts.ThemeDir, rel))
	if err != nil {
		return nil, fmt.Errorf("preview: live page: %w", err)
	}
	markup, err := Render(string(raw), opts.Data)
	if err != nil {
		return nil, err
	}
	doc, err := htmldoc.ParseString(markup)
	if err != nil {
		return nil, fmt.Errorf("preview: parse live page: %w", err)
	}

	logger := opts.Logger
	if logger == nil {
		logger = xlog.Default()
	}
	l := &Live{
		Doc:     doc,
		Notices: platform.NewNotices(logger),
		Tracker: platform.NewTracker(logger),
		done:    make(chan struct{}),
	}
	l.Session, err = page.New(ctx, opts.Config, page.Deps{
		Doc:        doc,
		Window:     htmldoc.NewWindow("/preview/" + name),
		Bus:        opts.Bus,
		Store:      opts.Store,
		Searcher:   opts.Searcher,
		Translator: opts.Translator,
		Notifier:   l.Notices,
		Tracker:    l.Tracker,
		Logger:     logger,
	})
	if err != nil {
		return nil, err
	}

	go func() {
		defer close(l.done)
		if err := l.Session.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Warn().Err(err).Msg("preview: live loop stopped")
		}
	}()
	l.Session.Start()
	return l, nil
}

// Snapshot reads the page state on its loop.
func (l *Live) Snapshot(ctx context.Context) (LiveState, error) {
	out := make(chan LiveState, 1)
	ok := l.Session.Loop.Post(func() {
		st := LiveState{
			Session: l.Session.ID,
			Ready:   l.Session.Boot.Ran(),
			Badges:  make(map[string]string),
			Notices: l.Notices.All(),
			Tracked: l.Tracker.Events(),
			Query:   l.Session.Search.LastQuery(),
		}
		for _, f := range l.Session.Boot.Failures() {
			st.Failures = append(st.Failures, f.Module+": "+f.Err.Error())
		}
		for _, counter := range []string{badge.Cart, badge.Wishlist} {
			if el := l.Doc.Query(badge.Selector(counter)); el != nil {
				st.Badges[counter] = el.Text()
			}
		}
		out <- st
	})
	if !ok {
		return LiveState{}, ErrLiveClosed
	}
	select {
	case st := <-out:
		return st, nil
	case <-ctx.Done():
		return LiveState{}, ctx.Err()
	case <-l.done:
		return LiveState{}, ErrLiveClosed
	}
}

// Close stops the session and waits for its loop to exit.
func (l *Live) Close(ctx context.Context) error {
	err := l.Session.Close(ctx)
	<-l.done
	return err
}
