// Package sdk declares the storefront platform capabilities the theme
// modules consume. Every capability may be absent; modules check for nil.
package sdk

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/trickstertwo/xtheme"
	"github.com/trickstertwo/xtheme/dom"
)

// Ready signals that the platform finished booting.
type Ready interface {
	OnReady(fn func())
}

// Events is the platform event bus as seen by one page.
type Events interface {
	// On registers handler for name. Every registration receives every event.
	On(name string, handler xtheme.Handler) (xtheme.Subscription, error)
	Emit(ctx context.Context, name string, payload any) error
}

// Notifier renders user-visible messages. Calls are fire-and-forget.
type Notifier interface {
	Success(message string)
	Info(message string)
	Error(message string)
}

// Searcher runs catalog queries. Query may fail.
type Searcher interface {
	Query(ctx context.Context, text string) (SearchResults, error)
}

// SearchResults is the answer to one query.
type SearchResults struct {
	Query string       `json:"query"`
	Items []SearchItem `json:"items"`
	Total int          `json:"total"`
}

// SearchItem is one matched product.
type SearchItem struct {
	ID    int             `json:"id"`
	Name  string          `json:"name"`
	URL   string          `json:"url"`
	Image string          `json:"image,omitempty"`
	Price decimal.Decimal `json:"price"`
}

// Translator resolves message keys. Unknown keys come back unchanged.
type Translator interface {
	Trans(key string, vars map[string]any) string
}

// Store is the persistent key-value preference store.
type Store interface {
	// Get returns ok=false when the key has never been written.
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
}

// VisibilityEntry reports a visibility change of one observed element.
type VisibilityEntry struct {
	Target  dom.Element
	Visible bool
}

// VisibilityObserver watches elements entering and leaving the viewport.
type VisibilityObserver interface {
	Observe(el dom.Element)
	Unobserve(el dom.Element)
	Disconnect()
}

// VisibilityFactory creates observers. A nil factory means the capability is absent.
type VisibilityFactory interface {
	NewObserver(callback func(entries []VisibilityEntry)) VisibilityObserver
}

// Tracker is an analytics sink.
type Tracker interface {
	Track(event string, props map[string]any)
}
