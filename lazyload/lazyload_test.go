package lazyload

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trickstertwo/xtheme/dom"
	"github.com/trickstertwo/xtheme/internal/themetest"
)

const page = `<html><body>
<img id="a" loading="lazy" data-src="/img/a.jpg">
<img id="b" loading="lazy" data-src="/img/b.jpg">
<img id="c" loading="lazy">
<img id="eager" src="/img/e.jpg">
<div id="more"></div>
</body></html>`

func src(el dom.Element) string {
	v, _ := el.Attr("src")
	return v
}

func TestLoader_LoadsOnVisibility(t *testing.T) {
	p := themetest.New(t, page)
	l := New(p.Doc, p.Viewport)
	require.NoError(t, l.Init(context.Background()))
	a, b := p.Doc.Query("#a"), p.Doc.Query("#b")

	assert.Equal(t, 3, l.Pending())
	assert.Empty(t, src(a))
	assert.False(t, p.Viewport.Observed(p.Doc.Query("#eager")))

	p.Viewport.Reveal(a)
	p.Loop.Drain()

	assert.Equal(t, "/img/a.jpg", src(a))
	assert.True(t, a.HasClass(LoadedClass))
	assert.True(t, l.Loaded(a))
	assert.False(t, p.Viewport.Observed(a))
	assert.Equal(t, 2, l.Pending())
	assert.Empty(t, src(b))
}

func TestLoader_LoadsAtMostOnce(t *testing.T) {
	p := themetest.New(t, page)
	l := New(p.Doc, p.Viewport)
	require.NoError(t, l.Init(context.Background()))
	a := p.Doc.Query("#a")

	p.Viewport.Reveal(a)
	p.Loop.Drain()
	a.SetAttr("src", "/img/replaced.jpg")

	p.Viewport.Hide(a)
	p.Viewport.Reveal(a)
	p.Loop.Drain()
	assert.Equal(t, 0, l.Rescan())

	assert.Equal(t, "/img/replaced.jpg", src(a))
	assert.Equal(t, 1, l.Loads())
}

func TestLoader_HiddenEntriesIgnored(t *testing.T) {
	p := themetest.New(t, page)
	l := New(p.Doc, p.Viewport)
	require.NoError(t, l.Init(context.Background()))
	a := p.Doc.Query("#a")

	p.Viewport.Hide(a)
	p.Loop.Drain()
	assert.False(t, l.Loaded(a))
	assert.True(t, p.Viewport.Observed(a))
}

func TestLoader_WithoutDataSrc(t *testing.T) {
	p := themetest.New(t, page)
	l := New(p.Doc, p.Viewport)
	require.NoError(t, l.Init(context.Background()))
	c := p.Doc.Query("#c")

	p.Viewport.Reveal(c)
	p.Loop.Drain()
	assert.True(t, c.HasClass(LoadedClass))
	_, has := c.Attr("src")
	assert.False(t, has)
}

func TestLoader_NoVisibilityCapabilityLoadsEverything(t *testing.T) {
	p := themetest.New(t, page)
	l := New(p.Doc, nil)
	require.NoError(t, l.Init(context.Background()))

	assert.Equal(t, 0, l.Pending())
	assert.Equal(t, 3, l.Loads())
	assert.Equal(t, "/img/b.jpg", src(p.Doc.Query("#b")))
}

func TestLoader_RescanPicksUpLateMedia(t *testing.T) {
	p := themetest.New(t, page)
	l := New(p.Doc, p.Viewport)
	require.NoError(t, l.Init(context.Background()))

	img := p.Doc.CreateElement("img")
	img.SetAttr("loading", "lazy")
	img.SetAttr("data-src", "/img/late.jpg")
	p.Doc.Query("#more").AppendChild(img)

	assert.False(t, p.Viewport.Observed(img))
	assert.Equal(t, 1, l.Rescan())
	assert.True(t, p.Viewport.Observed(img))

	p.Viewport.Reveal(img)
	p.Loop.Drain()
	assert.Equal(t, "/img/late.jpg", src(img))
}

func TestLoader_CustomSelector(t *testing.T) {
	p := themetest.New(t, `<html><body><video class="deferred" data-src="/v.mp4"></video><img loading="lazy"></body></html>`)
	l := New(p.Doc, nil, WithSelector("video.deferred"))
	require.NoError(t, l.Init(context.Background()))
	assert.Equal(t, 1, l.Loads())
	assert.Equal(t, "/v.mp4", src(p.Doc.Query("video")))
}

func TestLoader_CloseDisconnects(t *testing.T) {
	p := themetest.New(t, page)
	l := New(p.Doc, p.Viewport)
	require.NoError(t, l.Init(context.Background()))
	a := p.Doc.Query("#a")

	require.NoError(t, l.Close())
	assert.Equal(t, 0, p.Viewport.Reveal(a))
	p.Loop.Drain()
	assert.False(t, l.Loaded(a))
}
