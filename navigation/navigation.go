// Package navigation wires the header and viewport controls: the mobile
// menu, the cart drawer, the scroll-to-top button and currency reloads.
package navigation

import (
	"context"

	"github.com/trickstertwo/xlog"

	"github.com/trickstertwo/xtheme"
	"github.com/trickstertwo/xtheme/dom"
	"github.com/trickstertwo/xtheme/events"
	"github.com/trickstertwo/xtheme/sdk"
)

const Name = "navigation"

const (
	MobileMenuSelector = ".mobile-menu-toggle"
	ScrollTopClass     = "scroll-to-top"
	VisibleClass       = "visible"
	// ScrollTopOffset is the scroll offset above which the button shows.
	ScrollTopOffset = 300
)

type Controls struct {
	doc    dom.Document
	window dom.Window
	events sdk.Events
	logger *xlog.Logger

	ctx       context.Context
	subs      sdk.Subscriptions
	scrollTop dom.Element
}

// Option configures Controls.
type Option func(*Controls)

// WithLogger sets the logger.
func WithLogger(l *xlog.Logger) Option {
	return func(c *Controls) {
		if l != nil {
			c.logger = l
		}
	}
}

func New(doc dom.Document, window dom.Window, ev sdk.Events, opts ...Option) *Controls {
	c := &Controls{doc: doc, window: window, events: ev, logger: xlog.Default(), ctx: context.Background()}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *Controls) Name() string { return Name }

func (c *Controls) Init(ctx context.Context) error {
	c.ctx = ctx
	if c.doc != nil {
		if toggle := c.doc.Query(MobileMenuSelector); toggle != nil {
			toggle.AddEventListener("click", func(dom.Event) { c.emit(events.MobileMenuToggle) })
		}
		c.mountScrollTop()
	}
	if c.events == nil {
		return nil
	}
	if err := c.subs.Add(c.events.On(events.CartItemAdded, func(context.Context, *xtheme.Event) error {
		c.emit(events.CartDrawerOpen)
		return nil
	})); err != nil {
		return err
	}
	return c.subs.Add(c.events.On(events.CurrencyChanged, func(context.Context, *xtheme.Event) error {
		if c.window != nil {
			c.logger.Info().Msg("navigation: currency changed, reloading")
			c.window.Reload()
		}
		return nil
	}))
}

func (c *Controls) Close() error { return c.subs.Close() }

// ScrollTopButton returns the mounted button, or nil.
func (c *Controls) ScrollTopButton() dom.Element { return c.scrollTop }

func (c *Controls) mountScrollTop() {
	body := c.doc.Body()
	if body == nil || c.window == nil {
		return
	}
	btn := c.doc.CreateElement("button")
	btn.AddClass(ScrollTopClass)
	btn.SetAttr("aria-label", "Scroll to top")
	body.AppendChild(btn)
	c.scrollTop = btn

	c.window.AddEventListener("scroll", func(dom.Event) {
		if c.window.ScrollY() > ScrollTopOffset {
			btn.AddClass(VisibleClass)
		} else {
			btn.RemoveClass(VisibleClass)
		}
	})
	btn.AddEventListener("click", func(dom.Event) { c.window.ScrollTo(0) })
}

func (c *Controls) emit(name string) {
	if c.events == nil {
		return
	}
	if err := c.events.Emit(c.ctx, name, nil); err != nil {
		c.logger.Warn().Err(err).Str("event", name).Msg("navigation: emit failed")
	}
}
