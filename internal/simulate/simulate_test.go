package simulate

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trickstertwo/xtheme/catalog"
	"github.com/trickstertwo/xtheme/i18n"
	"github.com/trickstertwo/xtheme/platform"
	"github.com/trickstertwo/xtheme/prefstore"
)

const markup = `<html><body>
<input data-search-input>
<div data-search-results></div>
<span data-cart-count>0</span>
<span data-wishlist-count>0</span>
<button class="view-mode-btn active" data-view="grid">Grid</button>
<button class="view-mode-btn" data-view="list">List</button>
<div class="products-grid" data-view="grid">
  <img loading="lazy" data-src="/img/1.jpg">
</div>
</body></html>`

const scenarioYAML = `
name: browse
path: /products
steps:
  - emit: cart::updated
    payload:
      items_count: 2
  - type: "[data-search-input]"
    value: watch
  - advance: 300ms
  - reveal: img
  - click: '.view-mode-btn[data-view="list"]'
  - reload: true
  - emit: error
    payload: boom
`

func TestParse(t *testing.T) {
	sc, err := Parse([]byte(scenarioYAML))
	require.NoError(t, err)

	assert.Equal(t, "browse", sc.Name)
	assert.Equal(t, "/products", sc.Path)
	require.Len(t, sc.Steps, 7)
	assert.Equal(t, "emit", sc.Steps[0].Action())
	assert.Equal(t, map[string]any{"items_count": 2}, sc.Steps[0].Payload)
	assert.Equal(t, "type", sc.Steps[1].Action())
	assert.Equal(t, 300*time.Millisecond, sc.Steps[2].Advance)
	assert.Equal(t, "reload", sc.Steps[5].Action())
}

func TestParse_DefaultsPath(t *testing.T) {
	sc, err := Parse([]byte("steps:\n  - reload: true\n"))
	require.NoError(t, err)
	assert.Equal(t, "/", sc.Path)
}

func TestParse_Invalid(t *testing.T) {
	cases := map[string]string{
		"no steps":         "name: empty\n",
		"no action":        "steps:\n  - value: x\n",
		"two actions":      "steps:\n  - click: a\n    reload: true\n",
		"negative advance": "steps:\n  - advance: -1s\n",
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(raw))
			assert.ErrorIs(t, err, ErrInvalidScenario)
		})
	}

	_, err := Parse([]byte("steps: [\n"))
	require.Error(t, err)
}

func newEnv(t *testing.T) Env {
	t.Helper()
	data, err := catalog.Default()
	require.NoError(t, err)
	tr, err := i18n.New("en")
	require.NoError(t, err)
	return Env{
		Store:      prefstore.NewMemory(),
		Searcher:   catalog.NewSearcher(data.Products.Featured),
		Translator: tr,
	}
}

func TestRunner_Run(t *testing.T) {
	sc, err := Parse([]byte(scenarioYAML))
	require.NoError(t, err)

	env := newEnv(t)
	res, err := NewRunner(markup, env).Run(context.Background(), sc)
	require.NoError(t, err)

	assert.Equal(t, "browse", res.Scenario)
	assert.Equal(t, 7, res.Steps)
	assert.Equal(t, 2, res.Loads)
	assert.Empty(t, res.Failures)

	// The view mode survives the reload through the store.
	assert.Contains(t, res.HTML, `class="products-grid" data-view="list"`)
	v, ok, err := env.Store.Get(context.Background(), "products-view-mode")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "list", v)

	require.NotEmpty(t, res.Notices)
	last := res.Notices[len(res.Notices)-1]
	assert.Equal(t, platform.SeverityError, last.Severity)
	assert.Equal(t, "boom", last.Message)

	var views int
	for _, ev := range res.Tracked {
		if ev.Event == "page_view" {
			views++
			assert.Equal(t, "/products", ev.Props["page_path"])
		}
	}
	assert.Equal(t, 2, views)
}

func TestRunner_SeedsPrefs(t *testing.T) {
	sc, err := Parse([]byte("prefs:\n  products-view-mode: list\nsteps:\n  - advance: 1s\n"))
	require.NoError(t, err)

	res, err := NewRunner(markup, newEnv(t)).Run(context.Background(), sc)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Loads)
	assert.Contains(t, res.HTML, `class="products-grid" data-view="list"`)
}

func TestRunner_PageRequestedReload(t *testing.T) {
	sc, err := Parse([]byte("steps:\n  - emit: currency::changed\n    payload: {currency: USD}\n"))
	require.NoError(t, err)

	res, err := NewRunner(markup, newEnv(t)).Run(context.Background(), sc)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Loads)
}

func TestRunner_MissingElement(t *testing.T) {
	sc, err := Parse([]byte("steps:\n  - click: '#nope'\n"))
	require.NoError(t, err)

	_, err = NewRunner(markup, newEnv(t)).Run(context.Background(), sc)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "step 1 (click)")
}
