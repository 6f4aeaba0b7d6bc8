package preview

import (
	"encoding/json"
	"fmt"
	"html"
	"regexp"

	"github.com/trickstertwo/xtheme/catalog"
)

// Pages maps preview page names to template paths under the theme directory.
var Pages = map[string]string{
	"home":     "src/views/pages/index.twig",
	"products": "src/views/pages/product/index.twig",
	"product":  "src/views/pages/product/single.twig",
	"cart":     "src/views/pages/cart.twig",
	"blog":     "src/views/pages/blog/index.twig",
	"brands":   "src/views/pages/brands/index.twig",
}

// PageOrder lists Pages in menu order.
var PageOrder = []string{"home", "products", "product", "cart", "blog", "brands"}

var (
	storeNameRe   = regexp.MustCompile(`\{\{\s*store\.name\s*\}\}`)
	storeLogoRe   = regexp.MustCompile(`\{\{\s*store\.logo\s*\}\}`)
	storeURLRe    = regexp.MustCompile(`\{\{\s*store\.url\s*\}\}`)
	headRe        = regexp.MustCompile(`\{\{\s*twilight\.head\s*\}\}`)
	footerRe      = regexp.MustCompile(`\{\{\s*twilight\.footer\s*\}\}`)
	themeLinkRe   = regexp.MustCompile(`\{\{\s*theme\.link\('([^']+)'\)\s*\}\}`)
	themeScriptRe = regexp.MustCompile(`\{\{\s*theme\.script\('([^']+)'\)\s*\}\}`)
)

// Render substitutes the storefront placeholders of a theme template with
// mock data. Everything else is left as written.
func Render(content string, data *catalog.Data) (string, error) {
	storeJSON, err := json.Marshal(data.Store)
	if err != nil {
		return "", fmt.Errorf("preview: encode store: %w", err)
	}
	productsJSON, err := json.Marshal(data.Products)
	if err != nil {
		return "", fmt.Errorf("preview: encode products: %w", err)
	}

	content = storeNameRe.ReplaceAllLiteralString(content, html.EscapeString(data.Store.Name))
	content = storeLogoRe.ReplaceAllLiteralString(content, html.EscapeString(data.Store.Logo))
	content = storeURLRe.ReplaceAllLiteralString(content, html.EscapeString(data.Store.URL))
	content = headRe.ReplaceAllLiteralString(content,
		"<script>\nwindow.store = "+string(storeJSON)+";\nwindow.products = "+string(productsJSON)+";\n</script>")
	content = footerRe.ReplaceAllLiteralString(content, `<script src="/assets/js/app.js"></script>`)
	content = themeLinkRe.ReplaceAllString(content, `<link rel="stylesheet" href="/assets/styles/$1">`)
	content = themeScriptRe.ReplaceAllString(content, `<script src="/assets/js/$1"></script>`)
	return content, nil
}
