package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const pageHTML = `<html><body>
<span data-cart-count>0</span>
<span data-wishlist-count>0</span>
<div class="products-grid" data-view="grid"></div>
</body></html>`

const scenario = `name: cart
steps:
  - emit: cart::item-added
    payload: {cart: {items_count: 3}}
`

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Chdir(t.TempDir())
	cmd := NewRootCommand("test")
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "xtheme test\n", out)
}

func TestSimulate(t *testing.T) {
	dir := t.TempDir()
	pagePath := writeFile(t, dir, "page.html", pageHTML)
	scPath := writeFile(t, dir, "scenario.yaml", scenario)

	out, err := run(t, "simulate", pagePath, scPath, "--html", "--log-level", "error")
	require.NoError(t, err)
	assert.Contains(t, out, "cart: 1 steps, 1 page loads")
	assert.Contains(t, out, "[success] Item added to cart")
	assert.Contains(t, out, "page_view")
	assert.Contains(t, out, `<span data-cart-count="" style="display: block">3</span>`)
}

func TestSimulate_PersistsPreferences(t *testing.T) {
	dir := t.TempDir()
	pagePath := writeFile(t, dir, "page.html", pageHTML)
	scPath := writeFile(t, dir, "scenario.yaml", "steps:\n  - advance: 1s\n")
	dbPath := filepath.Join(dir, "prefs.db")

	_, err := run(t, "simulate", pagePath, scPath, "--store", dbPath)
	require.NoError(t, err)
	_, err = os.Stat(dbPath)
	assert.NoError(t, err)
}

func TestSimulate_InvalidScenario(t *testing.T) {
	dir := t.TempDir()
	pagePath := writeFile(t, dir, "page.html", pageHTML)
	scPath := writeFile(t, dir, "scenario.yaml", "steps: []\n")

	_, err := run(t, "simulate", pagePath, scPath)
	require.Error(t, err)
}

func TestSimulate_RequiresTwoArgs(t *testing.T) {
	_, err := run(t, "simulate", "page.html")
	require.Error(t, err)
}

func TestInvalidConfig(t *testing.T) {
	dir := t.TempDir()
	cfg := writeFile(t, dir, "xtheme.yaml", "store:\n  backend: floppy\n")
	_, err := run(t, "--config", cfg, "version")
	require.Error(t, err)
}

func TestHostPort(t *testing.T) {
	assert.Equal(t, ":3000", hostPort(":3000"))
	assert.Equal(t, ":8080", hostPort("0.0.0.0:8080"))
	assert.Equal(t, ":9000", hostPort("9000"))
}
