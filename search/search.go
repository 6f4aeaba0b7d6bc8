// Package search debounces the storefront search field and displays the
// results of the query that was dispatched last.
package search

import (
	"context"
	"errors"
	"time"
	"unicode/utf8"

	"github.com/trickstertwo/xlog"

	"github.com/trickstertwo/xtheme"
	"github.com/trickstertwo/xtheme/dom"
	"github.com/trickstertwo/xtheme/events"
	"github.com/trickstertwo/xtheme/loop"
	"github.com/trickstertwo/xtheme/sdk"
)

const Name = "search"

// ErrNoSearcher is reported to the display when no search capability is configured.
var ErrNoSearcher = errors.New("search: searcher unavailable")

const (
	DefaultThreshold       = 3
	DefaultQuietPeriod     = 300 * time.Millisecond
	DefaultInputSelector   = "[data-search-input]"
	DefaultResultsSelector = "[data-search-results]"
)

// Config tunes the controller.
type Config struct {
	// Threshold is the minimum query length in characters.
	Threshold int
	// QuietPeriod is the time without input before a query is dispatched.
	QuietPeriod     time.Duration
	InputSelector   string
	ResultsSelector string
}

// DefaultConfig returns the storefront defaults.
func DefaultConfig() Config {
	return Config{
		Threshold:       DefaultThreshold,
		QuietPeriod:     DefaultQuietPeriod,
		InputSelector:   DefaultInputSelector,
		ResultsSelector: DefaultResultsSelector,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Threshold <= 0 {
		c.Threshold = d.Threshold
	}
	if c.QuietPeriod <= 0 {
		c.QuietPeriod = d.QuietPeriod
	}
	if c.InputSelector == "" {
		c.InputSelector = d.InputSelector
	}
	if c.ResultsSelector == "" {
		c.ResultsSelector = d.ResultsSelector
	}
	return c
}

// Display shows the outcome of a query. err is non-nil when the query failed;
// res then carries only the query text.
type Display func(res sdk.SearchResults, err error)

// Runner starts fn outside the loop.
type Runner func(fn func())

// Controller owns the debounce session of one search field. All methods except
// the runner's query run on the loop.
type Controller struct {
	cfg      Config
	doc      dom.Document
	sched    loop.Scheduler
	searcher sdk.Searcher
	events   sdk.Events
	display  Display
	run      Runner
	logger   *xlog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	input  dom.Element
	timer  loop.Timer
	seq    uint64
	last   string
	subs   sdk.Subscriptions
}

// Option configures a Controller.
type Option func(*Controller)

// WithDisplay replaces the results renderer.
func WithDisplay(d Display) Option {
	return func(c *Controller) {
		if d != nil {
			c.display = d
		}
	}
}

// WithRunner sets how queries are started. Default: a new goroutine.
func WithRunner(r Runner) Option {
	return func(c *Controller) {
		if r != nil {
			c.run = r
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *xlog.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithEvents subscribes the display to the platform's search::completed event.
func WithEvents(e sdk.Events) Option {
	return func(c *Controller) { c.events = e }
}

// New creates a controller. Without WithDisplay, results are rendered into the
// first element matching cfg.ResultsSelector.
func New(cfg Config, doc dom.Document, sched loop.Scheduler, searcher sdk.Searcher, opts ...Option) *Controller {
	c := &Controller{
		cfg:      cfg.withDefaults(),
		doc:      doc,
		sched:    sched,
		searcher: searcher,
		run:      func(fn func()) { go fn() },
		logger:   xlog.Default(),
	}
	for _, o := range opts {
		o(c)
	}
	if c.display == nil {
		c.display = ElementDisplay(doc, c.cfg.ResultsSelector, nil)
	}
	return c
}

func (c *Controller) Name() string { return Name }

// Init binds the search field. A page without one is left alone.
func (c *Controller) Init(ctx context.Context) error {
	c.ctx, c.cancel = context.WithCancel(ctx)

	if c.events != nil {
		if err := c.subs.Add(c.events.On(events.SearchCompleted, c.onCompleted)); err != nil {
			return err
		}
	}

	if c.doc == nil {
		return nil
	}
	c.input = c.doc.Query(c.cfg.InputSelector)
	if c.input == nil {
		c.logger.Debug().Str("selector", c.cfg.InputSelector).Msg("search: no input on page")
		return nil
	}
	c.input.AddEventListener("input", func(dom.Event) { c.onInput() })
	return nil
}

// Close cancels the pending timer and any in-flight query.
func (c *Controller) Close() error {
	c.stopTimer()
	if c.cancel != nil {
		c.cancel()
	}
	return c.subs.Close()
}

// Pending reports whether a query is scheduled.
func (c *Controller) Pending() bool { return c.timer != nil }

// Dispatched returns how many queries were sent.
func (c *Controller) Dispatched() uint64 { return c.seq }

// LastQuery returns the text of the most recently dispatched query.
func (c *Controller) LastQuery() string { return c.last }

func (c *Controller) onInput() {
	c.stopTimer()
	if utf8.RuneCountInString(c.input.Value()) < c.cfg.Threshold {
		return
	}
	c.timer = c.sched.AfterFunc(c.cfg.QuietPeriod, c.fire)
}

func (c *Controller) stopTimer() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

func (c *Controller) fire() {
	c.timer = nil
	q := c.input.Value()
	c.seq++
	c.last = q
	seq := c.seq

	if c.searcher == nil {
		c.complete(seq, sdk.SearchResults{Query: q}, ErrNoSearcher)
		return
	}

	ctx := c.ctx
	c.run(func() {
		res, err := c.searcher.Query(ctx, q)
		if err != nil {
			res = sdk.SearchResults{Query: q}
		}
		c.sched.Post(func() { c.complete(seq, res, err) })
	})
}

func (c *Controller) complete(seq uint64, res sdk.SearchResults, err error) {
	if seq != c.seq {
		c.logger.Debug().Str("query", res.Query).Msg("search: stale result discarded")
		return
	}
	if err != nil {
		c.logger.Warn().Err(err).Str("query", res.Query).Msg("search: query failed")
	}
	c.show(res, err)
}

func (c *Controller) onCompleted(ctx context.Context, evt *xtheme.Event) error {
	res, err := events.Decode[events.SearchResults](ctx, evt)
	if err != nil {
		c.logger.Warn().Err(err).Msg("search: completed event skipped")
		return nil
	}
	c.show(res, nil)
	return nil
}

func (c *Controller) show(res sdk.SearchResults, err error) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error().Str("query", res.Query).Msg("search: display panic (recovered)")
		}
	}()
	c.display(res, err)
}
