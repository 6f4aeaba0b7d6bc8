package simulate

import (
	"context"
	"fmt"
	"time"

	"github.com/trickstertwo/xlog"

	"github.com/trickstertwo/xtheme/dom/htmldoc"
	"github.com/trickstertwo/xtheme/loop"
	"github.com/trickstertwo/xtheme/page"
	"github.com/trickstertwo/xtheme/platform"
	"github.com/trickstertwo/xtheme/sdk"
)

// Epoch is the manual clock start of every run.
var Epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// Env supplies the capabilities shared by every page load of a run.
type Env struct {
	// Store outlives reloads. Required.
	Store      sdk.Store
	Searcher   sdk.Searcher
	Translator sdk.Translator
	Config     page.Config
	Logger     *xlog.Logger
}

// Result summarizes a run.
type Result struct {
	Scenario string
	Steps    int
	// Loads counts page loads, the first included.
	Loads    int
	Failures []string
	Notices  []platform.Notice
	Tracked  []platform.Tracked
	// HTML is the final document.
	HTML string
}

// Runner replays a scenario over markup.
type Runner struct {
	markup string
	env    Env
	logger *xlog.Logger

	clock   *loop.ManualClock
	notices *platform.Notices
	tracker *platform.Tracker

	doc     *htmldoc.Document
	window  *htmldoc.Window
	session *page.Session
	loads   int
	fails   []string
}

// NewRunner prepares a run. Nothing is parsed until Run.
func NewRunner(markup string, env Env) *Runner {
	logger := env.Logger
	if logger == nil {
		logger = xlog.Default()
	}
	return &Runner{
		markup:  markup,
		env:     env,
		logger:  logger,
		clock:   loop.NewManualClock(Epoch),
		notices: platform.NewNotices(logger),
		tracker: platform.NewTracker(logger),
	}
}

// Run executes every step and returns the final state.
func (r *Runner) Run(ctx context.Context, sc *Scenario) (*Result, error) {
	for k, v := range sc.Prefs {
		if err := r.env.Store.Set(ctx, k, v); err != nil {
			return nil, fmt.Errorf("simulate: seed %s: %w", k, err)
		}
	}
	if r.env.Translator != nil && sc.Locale != "" {
		if lt, ok := r.env.Translator.(interface{ SetLocale(string) }); ok {
			lt.SetLocale(sc.Locale)
		}
	}
	if err := r.load(ctx, sc.Path); err != nil {
		return nil, err
	}
	defer func() { _ = r.session.Close(context.Background()) }()

	for i, st := range sc.Steps {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := r.step(ctx, st); err != nil {
			return nil, fmt.Errorf("simulate: step %d (%s): %w", i+1, st.Action(), err)
		}
		r.session.Loop.Drain()
		if r.window.Reloads() > 0 {
			if err := r.reload(ctx, sc.Path); err != nil {
				return nil, err
			}
		}
	}

	return &Result{
		Scenario: sc.Name,
		Steps:    len(sc.Steps),
		Loads:    r.loads,
		Failures: r.fails,
		Notices:  r.notices.All(),
		Tracked:  r.tracker.Events(),
		HTML:     r.doc.Render(),
	}, nil
}

func (r *Runner) step(ctx context.Context, st Step) error {
	switch st.Action() {
	case "emit":
		return r.session.Events.Emit(ctx, st.Emit, st.Payload)
	case "type":
		el := r.doc.Query(st.Type)
		if el == nil {
			return fmt.Errorf("no element matches %q", st.Type)
		}
		r.doc.Type(el, st.Value)
	case "click":
		el := r.doc.Query(st.Click)
		if el == nil {
			return fmt.Errorf("no element matches %q", st.Click)
		}
		r.doc.Click(el)
	case "reveal":
		els := r.doc.QueryAll(st.Reveal)
		if len(els) == 0 {
			return fmt.Errorf("no element matches %q", st.Reveal)
		}
		if r.session.Viewport == nil {
			return nil
		}
		for _, el := range els {
			r.session.Viewport.Reveal(el)
		}
	case "scroll":
		r.window.ScrollTo(*st.Scroll)
	case "advance":
		r.clock.Advance(st.Advance)
	case "reload":
		r.window.Reload()
	}
	return nil
}

func (r *Runner) reload(ctx context.Context, path string) error {
	if err := r.session.Close(ctx); err != nil {
		r.logger.Warn().Err(err).Msg("simulate: closing page before reload")
	}
	return r.load(ctx, path)
}

func (r *Runner) load(ctx context.Context, path string) error {
	doc, err := htmldoc.ParseString(r.markup)
	if err != nil {
		return fmt.Errorf("simulate: parse page: %w", err)
	}
	r.doc = doc
	r.window = htmldoc.NewWindow(path)
	r.session, err = page.New(ctx, r.env.Config, page.Deps{
		Doc:          doc,
		Window:       r.window,
		Store:        r.env.Store,
		Searcher:     r.env.Searcher,
		Translator:   r.env.Translator,
		Notifier:     r.notices,
		Tracker:      r.tracker,
		Clock:        r.clock,
		Logger:       r.logger,
		SearchRunner: func(fn func()) { fn() },
	})
	if err != nil {
		return err
	}
	r.loads++
	r.session.Start()
	r.session.Loop.Drain()
	for _, f := range r.session.Boot.Failures() {
		r.fails = append(r.fails, fmt.Sprintf("load %d: %s: %v", r.loads, f.Module, f.Err))
	}
	return nil
}
