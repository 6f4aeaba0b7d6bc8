package htmldoc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trickstertwo/xtheme/dom"
)

const page = `<!DOCTYPE html>
<html><body>
<header>
  <button class="mobile-menu-toggle">menu</button>
  <span class="badge" data-cart-count style="display: none">0</span>
  <input type="search" data-search-input value="">
</header>
<main>
  <div class="view-modes">
    <button class="view-mode-btn active" data-view="grid">Grid</button>
    <button class="view-mode-btn" data-view="list">List</button>
  </div>
  <div class="products-grid" data-view="grid">
    <img loading="lazy" data-src="/a.png" id="first">
    <img loading="eager" src="/b.png">
  </div>
</main>
<footer><span data-cart-count>0</span></footer>
</body></html>`

func parse(t *testing.T) *Document {
	t.Helper()
	doc, err := ParseString(page)
	require.NoError(t, err)
	return doc
}

func TestQuery_Selectors(t *testing.T) {
	doc := parse(t)

	cases := map[string]int{
		"[data-cart-count]":            2,
		".view-mode-btn":               2,
		"button.view-mode-btn.active":  1,
		`[data-view="list"]`:           1,
		"[data-view=grid]":             2,
		`img[loading="lazy"]`:          1,
		"#first":                       1,
		"main img":                     2,
		"footer [data-cart-count]":     1,
		"header .badge, footer span":   2,
		"*":                            0,
		"[data-search-input]":          1,
		".products-grid[data-view]":    1,
		"section .view-mode-btn":       0,
	}
	for sel, want := range cases {
		if sel == "*" {
			assert.Greater(t, len(doc.QueryAll(sel)), 10, sel)
			continue
		}
		assert.Len(t, doc.QueryAll(sel), want, sel)
	}

	assert.Nil(t, doc.Query(".missing"))
	assert.Nil(t, doc.Query("[unterminated"))
	assert.Nil(t, doc.Query(""))
}

func TestQuery_ReturnsSameElement(t *testing.T) {
	doc := parse(t)
	a := doc.Query("#first")
	b := doc.QueryAll(`img[loading="lazy"]`)[0]
	assert.True(t, a == b, "elements are canonical per node")

	set := map[dom.Element]bool{a: true}
	assert.True(t, set[b])
}

func TestElement_ClassesAndAttributes(t *testing.T) {
	doc := parse(t)
	grid := doc.Query(".products-grid")
	require.NotNil(t, grid)

	v, ok := grid.Attr("data-view")
	assert.True(t, ok)
	assert.Equal(t, "grid", v)

	grid.SetAttr("data-view", "list")
	assert.Len(t, doc.QueryAll(`.products-grid[data-view="list"]`), 1)

	grid.AddClass("loaded")
	grid.AddClass("loaded")
	assert.True(t, grid.HasClass("loaded"))
	cls, _ := grid.Attr("class")
	assert.Equal(t, "products-grid loaded", cls)

	grid.RemoveClass("products-grid")
	assert.False(t, grid.HasClass("products-grid"))
	assert.Nil(t, doc.Query(".products-grid"))

	grid.RemoveAttr("data-view")
	_, ok = grid.Attr("data-view")
	assert.False(t, ok)
}

func TestElement_TextAndStyle(t *testing.T) {
	doc := parse(t)
	badge := doc.Query(".badge")
	require.NotNil(t, badge)

	assert.Equal(t, "none", badge.Style("display"))
	badge.SetText("3")
	badge.SetStyle("display", "block")
	badge.SetStyle("color", "red")

	assert.Equal(t, "3", badge.Text())
	assert.Equal(t, "block", badge.Style("display"))
	assert.Equal(t, "red", badge.Style("color"))
	assert.Contains(t, doc.Render(), `style="display: block; color: red"`)
}

func TestDispatch_ListenersAndValues(t *testing.T) {
	doc := parse(t)
	input := doc.Query("[data-search-input]")
	require.NotNil(t, input)

	var seen []string
	input.AddEventListener("input", func(e dom.Event) {
		seen = append(seen, e.Target.Value())
	})
	doc.Type(input, "sho")
	doc.Type(input, "shoe")
	assert.Equal(t, []string{"sho", "shoe"}, seen)
	assert.Equal(t, "shoe", input.Value())

	clicks := 0
	btn := doc.Query(".mobile-menu-toggle")
	btn.AddEventListener("click", func(dom.Event) { clicks++ })
	doc.Click(btn)
	doc.Click(nil)
	assert.Equal(t, 1, clicks)
}

func TestCreateElement_AppendChild(t *testing.T) {
	doc := parse(t)
	btn := doc.CreateElement("BUTTON")
	btn.AddClass("scroll-to-top")
	btn.SetAttr("aria-label", "Scroll to top")
	assert.Nil(t, doc.Query(".scroll-to-top"), "detached elements are not queryable")

	doc.Body().AppendChild(btn)
	assert.True(t, doc.Query(".scroll-to-top") == btn)
	assert.Equal(t, "button", btn.Tag())
}

func TestWindow(t *testing.T) {
	w := NewWindow("/products")
	var offsets []float64
	w.AddEventListener("scroll", func(dom.Event) { offsets = append(offsets, w.ScrollY()) })

	w.ScrollTo(400)
	w.ScrollTo(0)
	w.Reload()

	assert.Equal(t, []float64{400, 0}, offsets)
	assert.Equal(t, 1, w.Reloads())
	assert.Equal(t, "/products", w.Path())
}
