package platform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trickstertwo/xtheme/dom/htmldoc"
	"github.com/trickstertwo/xtheme/loop"
	"github.com/trickstertwo/xtheme/sdk"
)

func TestNotices(t *testing.T) {
	n := NewNotices(nil)
	_, ok := n.Last()
	assert.False(t, ok)

	n.Success("saved")
	n.Info("hello")
	n.Error("boom")

	assert.Equal(t, []Notice{
		{Severity: SeveritySuccess, Message: "saved"},
		{Severity: SeverityInfo, Message: "hello"},
		{Severity: SeverityError, Message: "boom"},
	}, n.All())

	last, ok := n.Last()
	require.True(t, ok)
	assert.Equal(t, "boom", last.Message)

	n.Reset()
	assert.Empty(t, n.All())
}

func TestTracker(t *testing.T) {
	tr := NewTracker(nil)
	tr.Track("page_view", map[string]any{"page_path": "/"})
	tr.Track("purchase", map[string]any{"value": "10"})
	tr.Track("page_view", nil)

	assert.Len(t, tr.Events(), 3)
	assert.Len(t, tr.Named("page_view"), 2)
	assert.Empty(t, tr.Named("view_item"))
}

func TestViewport_RevealDeliversOnExecutor(t *testing.T) {
	doc, err := htmldoc.ParseString(`<img id="a"><img id="b">`)
	require.NoError(t, err)
	a, b := doc.Query("#a"), doc.Query("#b")

	lp := loop.New()
	vp := NewViewport(lp)

	var got []sdk.VisibilityEntry
	obs := vp.NewObserver(func(entries []sdk.VisibilityEntry) { got = append(got, entries...) })
	obs.Observe(a)

	assert.True(t, vp.Observed(a))
	assert.False(t, vp.Observed(b))
	assert.Equal(t, 0, vp.Reveal(b))
	assert.Equal(t, 1, vp.Reveal(a))
	assert.Empty(t, got, "delivery waits for the loop")

	lp.Drain()
	require.Len(t, got, 1)
	assert.Equal(t, a, got[0].Target)
	assert.True(t, got[0].Visible)

	vp.Hide(a)
	lp.Drain()
	require.Len(t, got, 2)
	assert.False(t, got[1].Visible)
}

func TestViewport_UnobserveBeforeDelivery(t *testing.T) {
	doc, err := htmldoc.ParseString(`<img id="a">`)
	require.NoError(t, err)
	a := doc.Query("#a")

	lp := loop.New()
	vp := NewViewport(lp)
	calls := 0
	obs := vp.NewObserver(func([]sdk.VisibilityEntry) { calls++ })
	obs.Observe(a)

	vp.Reveal(a)
	obs.Unobserve(a)
	lp.Drain()
	assert.Equal(t, 0, calls)
}

func TestViewport_Disconnect(t *testing.T) {
	doc, err := htmldoc.ParseString(`<img id="a">`)
	require.NoError(t, err)
	a := doc.Query("#a")

	vp := NewViewport(nil)
	calls := 0
	obs := vp.NewObserver(func([]sdk.VisibilityEntry) { calls++ })
	obs.Observe(a)
	vp.Reveal(a)
	assert.Equal(t, 1, calls)

	obs.Disconnect()
	assert.False(t, vp.Observed(a))
	assert.Equal(t, 0, vp.Reveal(a))
	assert.Equal(t, 1, calls)
}
