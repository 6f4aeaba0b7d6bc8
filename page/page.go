// Package page assembles one page session: the loop, the event bus, the
// platform capabilities and every theme module, started by the ready signal.
package page

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/trickstertwo/xlog"

	"github.com/trickstertwo/xtheme"
	"github.com/trickstertwo/xtheme/adapter/memory"
	"github.com/trickstertwo/xtheme/analytics"
	"github.com/trickstertwo/xtheme/badge"
	"github.com/trickstertwo/xtheme/bootstrap"
	"github.com/trickstertwo/xtheme/dom"
	"github.com/trickstertwo/xtheme/lazyload"
	"github.com/trickstertwo/xtheme/loop"
	"github.com/trickstertwo/xtheme/navigation"
	"github.com/trickstertwo/xtheme/notifications"
	"github.com/trickstertwo/xtheme/platform"
	"github.com/trickstertwo/xtheme/prefs"
	"github.com/trickstertwo/xtheme/sdk"
	"github.com/trickstertwo/xtheme/search"
)

// ErrNoDocument is returned when a session is created without a document.
var ErrNoDocument = errors.New("page: document required")

// Config tunes the modules of a session.
type Config struct {
	// Session tags events emitted by this page. Default: a random UUID.
	Session      string
	Search       search.Config
	LazySelector string
	Toggles      []prefs.Toggle
	// NoVisibility disables the viewport capability; deferred media then loads at init.
	NoVisibility bool
}

// Deps are the page's collaborators. Only Doc is required.
type Deps struct {
	Doc    dom.Document
	Window dom.Window
	// Bus is shared with other sessions or producers. When nil the session
	// owns an in-memory bus that delivers on its loop.
	Bus        *xtheme.Bus
	Store      sdk.Store
	Searcher   sdk.Searcher
	Translator sdk.Translator
	// Notifier and Tracker default to recording implementations.
	Notifier     sdk.Notifier
	Tracker      sdk.Tracker
	Clock        loop.Clock
	Logger       *xlog.Logger
	SearchRunner search.Runner
}

// Session is one page load.
type Session struct {
	ID       string
	Loop     *loop.Loop
	Bus      *xtheme.Bus
	Events   sdk.Events
	Ready    *sdk.ReadySignal
	Viewport *platform.Viewport
	Notifier sdk.Notifier
	Tracker  sdk.Tracker
	Boot     *bootstrap.Bootstrapper

	Search        *search.Controller
	Prefs         *prefs.Bridge
	Lazy          *lazyload.Loader
	Badges        *badge.Synchronizer
	Notifications *notifications.Dispatcher
	Analytics     *analytics.Hook
	Navigation    *navigation.Controls

	logger    *xlog.Logger
	ownsBus   bool
	cancel    context.CancelFunc
	closeOnce sync.Once
	closeErr  error
}

// New builds a session and attaches its modules to the ready signal. Nothing
// runs until Start.
func New(ctx context.Context, cfg Config, deps Deps) (*Session, error) {
	if deps.Doc == nil {
		return nil, ErrNoDocument
	}
	logger := deps.Logger
	if logger == nil {
		logger = xlog.Default()
	}
	id := cfg.Session
	if id == "" {
		id = uuid.NewString()
	}
	logger = logger.With(xlog.Str("session", id))

	opts := []loop.Option{loop.WithLogger(logger)}
	if deps.Clock != nil {
		opts = append(opts, loop.WithClock(deps.Clock))
	}
	lp := loop.New(opts...)

	s := &Session{
		ID:       id,
		Loop:     lp,
		Ready:    &sdk.ReadySignal{},
		Notifier: deps.Notifier,
		Tracker:  deps.Tracker,
		logger:   logger,
	}
	ctx, s.cancel = context.WithCancel(ctx)

	if deps.Bus != nil {
		s.Bus = deps.Bus
		s.Events = &loopEvents{inner: sdk.NewBusEvents(ctx, deps.Bus, id), exec: lp, logger: logger}
	} else {
		bus, err := memory.New(memory.Config{Executor: lp, AssignIDs: true},
			memory.WithLogger(logger),
			memory.WithMiddleware(xtheme.LoggingMiddleware(nil)),
		)
		if err != nil {
			s.cancel()
			lp.Close()
			return nil, fmt.Errorf("page: bus: %w", err)
		}
		s.Bus, s.ownsBus = bus, true
		s.Events = sdk.NewBusEvents(ctx, bus, id)
	}

	if s.Notifier == nil {
		s.Notifier = platform.NewNotices(logger)
	}
	if s.Tracker == nil {
		s.Tracker = platform.NewTracker(logger)
	}
	var visibility sdk.VisibilityFactory
	if !cfg.NoVisibility {
		s.Viewport = platform.NewViewport(lp)
		visibility = s.Viewport
	}

	resultsSel := cfg.Search.ResultsSelector
	if resultsSel == "" {
		resultsSel = search.DefaultResultsSelector
	}
	s.Search = search.New(cfg.Search, deps.Doc, lp, deps.Searcher,
		search.WithLogger(logger),
		search.WithEvents(s.Events),
		search.WithRunner(deps.SearchRunner),
		search.WithDisplay(search.ElementDisplay(deps.Doc, resultsSel, deps.Translator)),
	)
	s.Prefs = prefs.New(deps.Doc, deps.Store, cfg.Toggles, prefs.WithLogger(logger))
	s.Lazy = lazyload.New(deps.Doc, visibility, lazyload.WithSelector(cfg.LazySelector), lazyload.WithLogger(logger))
	s.Badges = badge.New(deps.Doc, s.Events, badge.WithLogger(logger))
	s.Notifications = notifications.New(s.Events, s.Notifier, deps.Translator, notifications.WithLogger(logger))
	s.Analytics = analytics.New(deps.Doc, deps.Window, s.Events, s.Tracker, analytics.WithLogger(logger))
	s.Navigation = navigation.New(deps.Doc, deps.Window, s.Events, navigation.WithLogger(logger))

	s.Boot = bootstrap.New(logger,
		s.Search,
		s.Prefs,
		s.Lazy,
		s.Badges,
		s.Notifications,
		s.Analytics,
		s.Navigation,
	)
	s.Boot.Attach(ctx, s.Ready, lp)
	return s, nil
}

// Start signals platform readiness. With a manual clock, call Loop.Drain
// afterwards; otherwise Run processes the loop.
func (s *Session) Start() { s.Ready.Fire() }

// Run processes the loop until ctx is done or the session closes.
func (s *Session) Run(ctx context.Context) error { return s.Loop.Run(ctx) }

// Close tears the page down: modules, then the bus if owned, then the loop.
func (s *Session) Close(ctx context.Context) error {
	s.closeOnce.Do(func() {
		errs := []error{s.Boot.Close()}
		s.cancel()
		if s.ownsBus {
			errs = append(errs, s.Bus.Close(ctx))
		}
		s.Loop.Close()
		s.closeErr = errors.Join(errs...)
		s.logger.Debug().Msg("page: session closed")
	})
	return s.closeErr
}

// loopEvents moves deliveries of a shared bus onto the page loop. The
// delivery is acknowledged once the task is queued.
type loopEvents struct {
	inner  *sdk.BusEvents
	exec   xtheme.Executor
	logger *xlog.Logger
}

// ErrSessionClosed is returned for deliveries that reach a closed page.
var ErrSessionClosed = errors.New("page: session closed")

func (e *loopEvents) On(name string, handler xtheme.Handler) (xtheme.Subscription, error) {
	return e.inner.On(name, func(ctx context.Context, evt *xtheme.Event) error {
		ok := e.exec.Post(func() {
			if err := handler(ctx, evt); err != nil {
				e.logger.Warn().Err(err).Str("event", evt.Name).Msg("page: handler failed")
			}
		})
		if !ok {
			return ErrSessionClosed
		}
		return nil
	})
}

func (e *loopEvents) Emit(ctx context.Context, name string, payload any) error {
	return e.inner.Emit(ctx, name, payload)
}
