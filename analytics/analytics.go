// Package analytics reports page views, product views and purchases to the
// platform tracker.
package analytics

import (
	"context"
	"encoding/json"

	"github.com/shopspring/decimal"
	"github.com/trickstertwo/xlog"

	"github.com/trickstertwo/xtheme"
	"github.com/trickstertwo/xtheme/dom"
	"github.com/trickstertwo/xtheme/events"
	"github.com/trickstertwo/xtheme/sdk"
)

const Name = "analytics"

// Tracked event names.
const (
	PageView = "page_view"
	ViewItem = "view_item"
	Purchase = "purchase"
)

// ProductSelector marks the product shown on a product page.
const ProductSelector = "[data-product-id]"

// traced events are only logged.
var traced = []string{
	events.ProductQuickView,
	events.ProductOptionsChanged,
	events.ProductAvailabilityChecked,
	events.FiltersApplied,
	events.ProductsSorted,
	events.OrderUpdated,
	events.NotificationRead,
	events.CartUpdated,
}

type Hook struct {
	doc     dom.Document
	window  dom.Window
	events  sdk.Events
	tracker sdk.Tracker
	logger  *xlog.Logger
	subs    sdk.Subscriptions
}

// Option configures a Hook.
type Option func(*Hook)

// WithLogger sets the logger.
func WithLogger(l *xlog.Logger) Option {
	return func(h *Hook) {
		if l != nil {
			h.logger = l
		}
	}
}

// New creates the hook. A nil tracker keeps only the debug trace.
func New(doc dom.Document, window dom.Window, ev sdk.Events, tracker sdk.Tracker, opts ...Option) *Hook {
	h := &Hook{doc: doc, window: window, events: ev, tracker: tracker, logger: xlog.Default()}
	for _, o := range opts {
		o(h)
	}
	return h
}

func (h *Hook) Name() string { return Name }

func (h *Hook) Init(context.Context) error {
	if h.window != nil {
		h.track(PageView, map[string]any{"page_path": h.window.Path()})
	}
	if h.doc != nil {
		if el := h.doc.Query(ProductSelector); el != nil {
			h.track(ViewItem, map[string]any{"items": []map[string]any{productProps(el)}})
		}
	}
	if h.events == nil {
		return nil
	}
	if err := h.subs.Add(h.events.On(events.OrderCreated, h.onOrder)); err != nil {
		return err
	}
	for _, name := range traced {
		if err := h.subs.Add(h.events.On(name, h.trace)); err != nil {
			return err
		}
	}
	return nil
}

func (h *Hook) Close() error { return h.subs.Close() }

func (h *Hook) onOrder(ctx context.Context, evt *xtheme.Event) error {
	o, err := events.Decode[events.Order](ctx, evt)
	if err != nil {
		h.logger.Warn().Err(err).Msg("analytics: order skipped")
		return nil
	}
	items := make([]any, 0, len(o.Items))
	for _, raw := range o.Items {
		var v any
		if err := json.Unmarshal(raw, &v); err == nil {
			items = append(items, v)
		}
	}
	h.track(Purchase, map[string]any{
		"transaction_id": o.ID.String(),
		"value":          o.Total.String(),
		"currency":       o.Currency,
		"items":          items,
	})
	return nil
}

func (h *Hook) trace(_ context.Context, evt *xtheme.Event) error {
	h.logger.Debug().Str("event", evt.Name).Str("payload", string(evt.Payload)).Msg("analytics: trace")
	return nil
}

func (h *Hook) track(event string, props map[string]any) {
	h.logger.Debug().Str("event", event).Msg("analytics: track")
	if h.tracker != nil {
		h.tracker.Track(event, props)
	}
}

func productProps(el dom.Element) map[string]any {
	id, _ := el.Attr("data-product-id")
	name, _ := el.Attr("data-product-name")
	props := map[string]any{"id": id, "name": name}
	if raw, ok := el.Attr("data-product-price"); ok {
		if price, err := decimal.NewFromString(raw); err == nil {
			props["price"] = price.String()
		}
	}
	return props
}
