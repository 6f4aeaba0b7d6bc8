package page

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trickstertwo/xtheme"
	"github.com/trickstertwo/xtheme/adapter/memory"
	"github.com/trickstertwo/xtheme/catalog"
	"github.com/trickstertwo/xtheme/dom/htmldoc"
	"github.com/trickstertwo/xtheme/events"
	"github.com/trickstertwo/xtheme/i18n"
	"github.com/trickstertwo/xtheme/loop"
	"github.com/trickstertwo/xtheme/platform"
	"github.com/trickstertwo/xtheme/prefstore"
	"github.com/trickstertwo/xtheme/sdk"
)

const markup = `<html><body>
<header>
  <button class="mobile-menu-toggle">Menu</button>
  <input data-search-input>
  <div data-search-results></div>
  <span data-cart-count>0</span>
  <span data-wishlist-count>0</span>
</header>
<button class="view-mode-btn active" data-view="grid">Grid</button>
<button class="view-mode-btn" data-view="list">List</button>
<div class="products-grid" data-view="grid">
  <img loading="lazy" data-src="/img/1.jpg">
</div>
</body></html>`

type env struct {
	clock   *loop.ManualClock
	doc     *htmldoc.Document
	window  *htmldoc.Window
	notices *platform.Notices
	tracker *platform.Tracker
	session *Session
}

func open(t *testing.T, store sdk.Store, bus *xtheme.Bus) *env {
	t.Helper()
	doc, err := htmldoc.ParseString(markup)
	require.NoError(t, err)
	tr, err := i18n.New("en")
	require.NoError(t, err)
	data, err := catalog.Default()
	require.NoError(t, err)

	e := &env{
		clock:   loop.NewManualClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)),
		doc:     doc,
		window:  htmldoc.NewWindow("/products"),
		notices: platform.NewNotices(nil),
		tracker: platform.NewTracker(nil),
	}
	e.session, err = New(context.Background(), Config{}, Deps{
		Doc:          doc,
		Window:       e.window,
		Bus:          bus,
		Store:        store,
		Searcher:     catalog.NewSearcher(data.Products.Featured),
		Translator:   tr,
		Notifier:     e.notices,
		Tracker:      e.tracker,
		Clock:        e.clock,
		SearchRunner: func(fn func()) { fn() },
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.session.Close(context.Background()) })

	e.session.Start()
	e.session.Loop.Drain()
	return e
}

func (e *env) emit(t *testing.T, name string, payload any) {
	t.Helper()
	require.NoError(t, e.session.Events.Emit(context.Background(), name, payload))
	e.session.Loop.Drain()
}

func TestNew_RequiresDocument(t *testing.T) {
	_, err := New(context.Background(), Config{}, Deps{})
	assert.ErrorIs(t, err, ErrNoDocument)
}

func TestSession_BootsEveryModule(t *testing.T) {
	e := open(t, prefstore.NewMemory(), nil)

	assert.True(t, e.session.Boot.Ran())
	assert.Empty(t, e.session.Boot.Failures())
	assert.Len(t, e.session.Boot.Modules(), 7)
	assert.Len(t, e.tracker.Named("page_view"), 1)
	assert.NotNil(t, e.doc.Query("button.scroll-to-top"))
	assert.Equal(t, 1, e.session.Lazy.Pending())

	// A second readiness signal does not re-run the modules.
	e.session.Start()
	e.session.Loop.Drain()
	assert.Len(t, e.tracker.Named("page_view"), 1)
}

func TestSession_CartEventFlow(t *testing.T) {
	e := open(t, prefstore.NewMemory(), nil)

	var drawer int
	_, err := e.session.Events.On(events.CartDrawerOpen, func(context.Context, *xtheme.Event) error {
		drawer++
		return nil
	})
	require.NoError(t, err)

	e.emit(t, events.CartItemAdded, map[string]any{"cart": map[string]any{"items_count": 2}})

	badge := e.doc.Query("[data-cart-count]")
	assert.Equal(t, "2", badge.Text())
	assert.Equal(t, "block", badge.Style("display"))
	assert.Equal(t, []platform.Notice{{Severity: platform.SeveritySuccess, Message: "Item added to cart"}}, e.notices.All())
	assert.Equal(t, 1, drawer)
}

func TestSession_ErrorEventAlwaysNotifies(t *testing.T) {
	e := open(t, nil, nil)
	e.emit(t, events.Error, map[string]string{"message": "Payment declined"})
	assert.Equal(t, []platform.Notice{{Severity: platform.SeverityError, Message: "Payment declined"}}, e.notices.All())
}

func TestSession_Search(t *testing.T) {
	e := open(t, nil, nil)

	e.doc.Type(e.doc.Query("[data-search-input]"), "wat")
	e.doc.Type(e.doc.Query("[data-search-input]"), "watch")
	e.clock.Advance(300 * time.Millisecond)
	e.session.Loop.Drain()

	assert.Equal(t, uint64(1), e.session.Search.Dispatched())
	links := e.doc.QueryAll("[data-search-results] a.search-result")
	require.NotEmpty(t, links)
	assert.Equal(t, "Smart Watch", links[0].Text())
}

func TestSession_LazyMedia(t *testing.T) {
	e := open(t, nil, nil)
	img := e.doc.Query("img")
	e.session.Viewport.Reveal(img)
	e.session.Loop.Drain()
	src, _ := img.Attr("src")
	assert.Equal(t, "/img/1.jpg", src)
}

func TestSession_ReloadReappliesPreference(t *testing.T) {
	store := prefstore.NewMemory()

	first := open(t, store, nil)
	first.doc.Click(first.doc.Query(`.view-mode-btn[data-view="list"]`))
	first.session.Loop.Drain()
	require.NoError(t, first.session.Close(context.Background()))

	second := open(t, store, nil)
	view, _ := second.doc.Query(".products-grid").Attr("data-view")
	assert.Equal(t, "list", view)
	assert.True(t, second.doc.Query(`.view-mode-btn[data-view="list"]`).HasClass("active"))
}

func TestSession_SharedBus(t *testing.T) {
	bus, err := memory.New(memory.Config{AssignIDs: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = bus.Close(context.Background()) })

	a := open(t, nil, bus)
	b := open(t, nil, bus)

	require.NoError(t, bus.Publish(context.Background(), events.WishlistUpdated, map[string]int{"items_count": 3}, nil))
	assert.Equal(t, "0", a.doc.Query("[data-wishlist-count]").Text(), "delivery waits for the page loop")

	a.session.Loop.Drain()
	b.session.Loop.Drain()
	assert.Equal(t, "3", a.doc.Query("[data-wishlist-count]").Text())
	assert.Equal(t, "3", b.doc.Query("[data-wishlist-count]").Text())

	require.NoError(t, a.session.Close(context.Background()))
	require.NoError(t, bus.Publish(context.Background(), events.WishlistUpdated, map[string]int{"items_count": 5}, nil))
	b.session.Loop.Drain()
	assert.Equal(t, "5", b.doc.Query("[data-wishlist-count]").Text())
	assert.Equal(t, "3", a.doc.Query("[data-wishlist-count]").Text())
}

func TestSession_CurrencyChangeReloads(t *testing.T) {
	e := open(t, nil, nil)
	e.emit(t, events.CurrencyChanged, map[string]string{"currency": "USD"})
	assert.Equal(t, 1, e.window.Reloads())
}
