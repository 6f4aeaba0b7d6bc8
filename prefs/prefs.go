// Package prefs reflects persisted UI preferences onto the page and persists
// the user's changes. When the store is missing or failing, values live in a
// session-only map for the life of the page.
package prefs

import (
	"context"

	"github.com/trickstertwo/xlog"

	"github.com/trickstertwo/xtheme/dom"
	"github.com/trickstertwo/xtheme/sdk"
)

const Name = "prefs"

// Toggle describes one preference driven by a group of controls.
type Toggle struct {
	// Key is the store key.
	Key string
	// ControlSelector finds the controls; ControlAttr holds each control's value.
	ControlSelector string
	ControlAttr     string
	// TargetSelector finds the element whose TargetAttr reflects the value.
	TargetSelector string
	TargetAttr     string
	// ActiveClass marks the control of the current value.
	ActiveClass string
}

// ViewModeToggle is the product listing grid/list switch.
func ViewModeToggle() Toggle {
	return Toggle{
		Key:             "products-view-mode",
		ControlSelector: ".view-mode-btn",
		ControlAttr:     "data-view",
		TargetSelector:  ".products-grid",
		TargetAttr:      "data-view",
		ActiveClass:     "active",
	}
}

// Bridge binds toggles to the store.
type Bridge struct {
	doc     dom.Document
	store   sdk.Store
	toggles map[string]Toggle
	order   []string
	logger  *xlog.Logger

	ctx     context.Context
	session map[string]string
}

// Option configures a Bridge.
type Option func(*Bridge)

// WithLogger sets the logger.
func WithLogger(l *xlog.Logger) Option {
	return func(b *Bridge) {
		if l != nil {
			b.logger = l
		}
	}
}

// New creates a bridge. store may be nil. Without toggles the view mode toggle is used.
func New(doc dom.Document, store sdk.Store, toggles []Toggle, opts ...Option) *Bridge {
	if len(toggles) == 0 {
		toggles = []Toggle{ViewModeToggle()}
	}
	b := &Bridge{
		doc:     doc,
		store:   store,
		toggles: make(map[string]Toggle, len(toggles)),
		logger:  xlog.Default(),
		ctx:     context.Background(),
		session: make(map[string]string),
	}
	for _, t := range toggles {
		if _, dup := b.toggles[t.Key]; !dup {
			b.order = append(b.order, t.Key)
		}
		b.toggles[t.Key] = t
	}
	for _, o := range opts {
		o(b)
	}
	return b
}

func (b *Bridge) Name() string { return Name }

// Init wires every toggle present on the page and applies its stored value.
func (b *Bridge) Init(ctx context.Context) error {
	b.ctx = ctx
	if b.doc == nil {
		return nil
	}
	for _, key := range b.order {
		t := b.toggles[key]
		controls := b.doc.QueryAll(t.ControlSelector)
		if len(controls) == 0 || b.doc.Query(t.TargetSelector) == nil {
			continue
		}
		for _, ctl := range controls {
			ctl.AddEventListener("click", func(dom.Event) {
				v, ok := ctl.Attr(t.ControlAttr)
				if !ok {
					return
				}
				b.Choose(t.Key, v)
			})
		}
		b.Apply(t.Key)
	}
	return nil
}

// Close releases nothing; listeners die with the document.
func (b *Bridge) Close() error { return nil }

// Value returns the current value of key: this session's unsaved value first,
// then the store.
func (b *Bridge) Value(key string) (string, bool) {
	if v, ok := b.session[key]; ok {
		return v, true
	}
	if b.store == nil {
		return "", false
	}
	v, ok, err := b.store.Get(b.ctx, key)
	if err != nil {
		b.logger.Warn().Err(err).Str("key", key).Msg("prefs: read failed")
		return "", false
	}
	return v, ok
}

// Apply reflects the current value of key onto the page without persisting it.
// Returns false when there is no value or no control matches it.
func (b *Bridge) Apply(key string) bool {
	t, ok := b.toggles[key]
	if !ok {
		return false
	}
	v, ok := b.Value(key)
	if !ok {
		return false
	}
	return b.reflect(t, v)
}

// Choose records a user choice: the page updates first, then the value is persisted.
func (b *Bridge) Choose(key, value string) {
	t, ok := b.toggles[key]
	if !ok {
		return
	}
	b.reflect(t, value)
	b.persist(key, value)
}

// SessionOnly reports whether key currently lives only in the session map.
func (b *Bridge) SessionOnly(key string) bool {
	_, ok := b.session[key]
	return ok
}

func (b *Bridge) reflect(t Toggle, value string) bool {
	var match dom.Element
	controls := b.doc.QueryAll(t.ControlSelector)
	for _, ctl := range controls {
		if v, ok := ctl.Attr(t.ControlAttr); ok && v == value {
			match = ctl
			break
		}
	}
	if match == nil {
		b.logger.Debug().Str("key", t.Key).Str("value", value).Msg("prefs: no control for value")
		return false
	}
	for _, ctl := range controls {
		ctl.RemoveClass(t.ActiveClass)
	}
	match.AddClass(t.ActiveClass)
	if target := b.doc.Query(t.TargetSelector); target != nil {
		target.SetAttr(t.TargetAttr, value)
	}
	return true
}

func (b *Bridge) persist(key, value string) {
	if b.store == nil {
		b.session[key] = value
		b.logger.Debug().Str("key", key).Msg("prefs: no store, keeping value for this session")
		return
	}
	if err := b.store.Set(b.ctx, key, value); err != nil {
		b.session[key] = value
		b.logger.Warn().Err(err).Str("key", key).Msg("prefs: write failed, keeping value for this session")
		return
	}
	delete(b.session, key)
}
