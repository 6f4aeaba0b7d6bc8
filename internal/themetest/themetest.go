// Package themetest wires a deterministic page environment for module tests:
// a loop on a manual clock, an in-memory bus delivering on that loop, a
// parsed document and recording platform capabilities.
package themetest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/trickstertwo/xtheme"
	"github.com/trickstertwo/xtheme/adapter/memory"
	"github.com/trickstertwo/xtheme/dom/htmldoc"
	"github.com/trickstertwo/xtheme/loop"
	"github.com/trickstertwo/xtheme/platform"
	"github.com/trickstertwo/xtheme/sdk"
)

// Epoch is the manual clock start.
var Epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// Page is a test page environment.
type Page struct {
	Clock    *loop.ManualClock
	Loop     *loop.Loop
	Bus      *xtheme.Bus
	Events   *sdk.BusEvents
	Doc      *htmldoc.Document
	Window   *htmldoc.Window
	Notices  *platform.Notices
	Tracker  *platform.Tracker
	Viewport *platform.Viewport
}

// T is the part of a test the page helpers report through. Both *testing.T
// and *rapid.T satisfy it.
type T interface {
	Helper()
	Errorf(format string, args ...any)
	FailNow()
}

// New builds a page over markup. Everything is torn down with t.
func New(t testing.TB, markup string) *Page {
	t.Helper()
	p := Open(t, markup)
	t.Cleanup(p.Close)
	return p
}

// Open builds a page over markup that the caller tears down with Close.
// Property tests open one page per iteration.
func Open(t T, markup string) *Page {
	t.Helper()

	doc, err := htmldoc.ParseString(markup)
	require.NoError(t, err)

	clk := loop.NewManualClock(Epoch)
	lp := loop.New(loop.WithClock(clk))
	bus, err := memory.New(memory.Config{Executor: lp, AssignIDs: true})
	require.NoError(t, err)

	p := &Page{
		Clock:    clk,
		Loop:     lp,
		Bus:      bus,
		Events:   sdk.NewBusEvents(context.Background(), bus, "test"),
		Doc:      doc,
		Window:   htmldoc.NewWindow("/"),
		Notices:  platform.NewNotices(nil),
		Tracker:  platform.NewTracker(nil),
		Viewport: platform.NewViewport(lp),
	}
	return p
}

// Close shuts down the bus and the loop.
func (p *Page) Close() {
	_ = p.Bus.Close(context.Background())
	p.Loop.Close()
}

// Emit publishes name with payload and runs every resulting handler.
func (p *Page) Emit(t T, name string, payload any) {
	t.Helper()
	require.NoError(t, p.Bus.Publish(context.Background(), name, payload, nil))
	p.Loop.Drain()
}

// EmitRaw publishes raw JSON as the payload and runs the handlers. raw must
// be valid JSON; use it for payloads of the wrong shape.
func (p *Page) EmitRaw(t T, name, raw string) {
	t.Helper()
	require.NoError(t, p.Bus.Publish(context.Background(), name, rawJSON(raw), nil))
	p.Loop.Drain()
}

// Advance moves the clock and runs every task that became ready.
func (p *Page) Advance(d time.Duration) {
	p.Clock.Advance(d)
	p.Loop.Drain()
}

// Type sets the value of the first element matching sel and runs handlers.
func (p *Page) Type(t T, sel, value string) {
	t.Helper()
	el := p.Doc.Query(sel)
	require.NotNil(t, el, "no element %q", sel)
	p.Doc.Type(el, value)
	p.Loop.Drain()
}

// Click clicks the first element matching sel and runs handlers.
func (p *Page) Click(t T, sel string) {
	t.Helper()
	el := p.Doc.Query(sel)
	require.NotNil(t, el, "no element %q", sel)
	p.Doc.Click(el)
	p.Loop.Drain()
}

// rawJSON marshals to itself.
type rawJSON string

func (r rawJSON) MarshalJSON() ([]byte, error) { return []byte(r), nil }
