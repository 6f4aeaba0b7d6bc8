// Package lazyload defers loading of media until it becomes visible.
package lazyload

import (
	"context"

	"github.com/trickstertwo/xlog"

	"github.com/trickstertwo/xtheme/dom"
	"github.com/trickstertwo/xtheme/sdk"
)

const (
	Name            = "lazyload"
	DefaultSelector = `img[loading="lazy"]`
	LoadedClass     = "loaded"
)

// Loader owns the set of observed media elements. Every element is loaded at
// most once.
type Loader struct {
	doc      dom.Document
	factory  sdk.VisibilityFactory
	selector string
	logger   *xlog.Logger

	observer sdk.VisibilityObserver
	pending  map[dom.Element]struct{}
	done     map[dom.Element]struct{}
}

// Option configures a Loader.
type Option func(*Loader)

// WithSelector overrides which elements are deferred.
func WithSelector(sel string) Option {
	return func(l *Loader) {
		if sel != "" {
			l.selector = sel
		}
	}
}

// WithLogger sets the logger.
func WithLogger(lg *xlog.Logger) Option {
	return func(l *Loader) {
		if lg != nil {
			l.logger = lg
		}
	}
}

// New creates a loader. A nil factory loads every element at once.
func New(doc dom.Document, factory sdk.VisibilityFactory, opts ...Option) *Loader {
	l := &Loader{
		doc:      doc,
		factory:  factory,
		selector: DefaultSelector,
		logger:   xlog.Default(),
		pending:  make(map[dom.Element]struct{}),
		done:     make(map[dom.Element]struct{}),
	}
	for _, o := range opts {
		o(l)
	}
	return l
}

func (l *Loader) Name() string { return Name }

func (l *Loader) Init(context.Context) error {
	l.Rescan()
	return nil
}

// Rescan registers matching elements that are neither loaded nor observed.
// Media added after Init is only picked up by calling Rescan.
func (l *Loader) Rescan() int {
	if l.doc == nil {
		return 0
	}
	n := 0
	for _, el := range l.doc.QueryAll(l.selector) {
		if l.known(el) {
			continue
		}
		n++
		if l.factory == nil {
			l.load(el)
			continue
		}
		if l.observer == nil {
			l.observer = l.factory.NewObserver(l.onVisibility)
		}
		l.pending[el] = struct{}{}
		l.observer.Observe(el)
	}
	if n > 0 {
		l.logger.Debug().Str("selector", l.selector).Msg("lazyload: registered media")
	}
	return n
}

// Close stops observing.
func (l *Loader) Close() error {
	if l.observer != nil {
		l.observer.Disconnect()
		l.observer = nil
	}
	l.pending = make(map[dom.Element]struct{})
	return nil
}

// Pending reports how many elements wait for visibility.
func (l *Loader) Pending() int { return len(l.pending) }

// Loads reports how many elements were loaded.
func (l *Loader) Loads() int { return len(l.done) }

// Loaded reports whether el was loaded.
func (l *Loader) Loaded(el dom.Element) bool {
	_, ok := l.done[el]
	return ok
}

func (l *Loader) known(el dom.Element) bool {
	if _, ok := l.done[el]; ok {
		return true
	}
	_, ok := l.pending[el]
	return ok
}

func (l *Loader) onVisibility(entries []sdk.VisibilityEntry) {
	for _, e := range entries {
		if !e.Visible {
			continue
		}
		if _, ok := l.pending[e.Target]; !ok {
			continue
		}
		l.load(e.Target)
		if l.observer != nil {
			l.observer.Unobserve(e.Target)
		}
	}
}

func (l *Loader) load(el dom.Element) {
	delete(l.pending, el)
	if _, ok := l.done[el]; ok {
		return
	}
	l.done[el] = struct{}{}
	if src, ok := el.Attr("data-src"); ok && src != "" {
		el.SetAttr("src", src)
	}
	el.AddClass(LoadedClass)
}
