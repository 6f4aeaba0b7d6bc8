// Package badge keeps counter badges (cart, wishlist) in step with the
// counts carried by platform events.
package badge

import (
	"context"
	"strconv"

	"github.com/trickstertwo/xlog"

	"github.com/trickstertwo/xtheme"
	"github.com/trickstertwo/xtheme/dom"
	"github.com/trickstertwo/xtheme/events"
	"github.com/trickstertwo/xtheme/sdk"
)

const Name = "badge"

// Counters.
const (
	Cart     = "cart"
	Wishlist = "wishlist"
)

// Selector returns the marker selector of counter.
func Selector(counter string) string {
	return "[data-" + counter + "-count]"
}

// Synchronizer updates badges. All targets of a counter change in one call on
// the loop, so no observer sees them disagree.
type Synchronizer struct {
	doc    dom.Document
	events sdk.Events
	logger *xlog.Logger
	subs   sdk.Subscriptions
}

// Option configures a Synchronizer.
type Option func(*Synchronizer)

// WithLogger sets the logger.
func WithLogger(l *xlog.Logger) Option {
	return func(s *Synchronizer) {
		if l != nil {
			s.logger = l
		}
	}
}

func New(doc dom.Document, ev sdk.Events, opts ...Option) *Synchronizer {
	s := &Synchronizer{doc: doc, events: ev, logger: xlog.Default()}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Synchronizer) Name() string { return Name }

// Init subscribes to every count-bearing event.
func (s *Synchronizer) Init(context.Context) error {
	if s.events == nil {
		return nil
	}
	for name, h := range s.handlers() {
		if err := s.subs.Add(s.events.On(name, h)); err != nil {
			return err
		}
	}
	return nil
}

func (s *Synchronizer) Close() error { return s.subs.Close() }

// Update writes value to every target of counter and returns how many were
// updated. Negative values count as zero; zero hides the badge.
func (s *Synchronizer) Update(counter string, value int) int {
	if s.doc == nil {
		return 0
	}
	if value < 0 {
		value = 0
	}
	display := "block"
	if value == 0 {
		display = "none"
	}
	text := strconv.Itoa(value)
	targets := s.doc.QueryAll(Selector(counter))
	for _, el := range targets {
		el.SetText(text)
		el.SetStyle("display", display)
	}
	return len(targets)
}

func (s *Synchronizer) handlers() map[string]xtheme.Handler {
	cartItem := count(s, Cart, func(ctx context.Context, evt *xtheme.Event) (int, error) {
		p, err := events.Decode[events.CartItem](ctx, evt)
		if err != nil {
			return 0, err
		}
		return events.Count(p.Cart.ItemsCount), nil
	})
	wishlistItem := count(s, Wishlist, func(ctx context.Context, evt *xtheme.Event) (int, error) {
		p, err := events.Decode[events.WishlistItem](ctx, evt)
		if err != nil {
			return 0, err
		}
		return events.Count(p.Count), nil
	})
	return map[string]xtheme.Handler{
		events.CartItemAdded:   cartItem,
		events.CartItemRemoved: cartItem,
		events.CartItemUpdated: cartItem,
		events.CartUpdated: count(s, Cart, func(ctx context.Context, evt *xtheme.Event) (int, error) {
			p, err := events.Decode[events.CartUpdated](ctx, evt)
			if err != nil {
				return 0, err
			}
			return events.Count(p.ItemsCount), nil
		}),
		events.CartCleared: func(context.Context, *xtheme.Event) error {
			s.Update(Cart, 0)
			return nil
		},
		events.WishlistItemAdded:   wishlistItem,
		events.WishlistItemRemoved: wishlistItem,
		events.WishlistUpdated: count(s, Wishlist, func(ctx context.Context, evt *xtheme.Event) (int, error) {
			p, err := events.Decode[events.WishlistUpdated](ctx, evt)
			if err != nil {
				return 0, err
			}
			return events.Count(p.ItemsCount), nil
		}),
	}
}

// count adapts an extractor into a handler that skips malformed payloads.
func count(s *Synchronizer, counter string, extract func(context.Context, *xtheme.Event) (int, error)) xtheme.Handler {
	return func(ctx context.Context, evt *xtheme.Event) error {
		n, err := extract(ctx, evt)
		if err != nil {
			s.logger.Warn().Err(err).Str("event", evt.Name).Msg("badge: payload skipped")
			return nil
		}
		s.Update(counter, n)
		return nil
	}
}
