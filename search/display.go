package search

import (
	"strconv"

	"github.com/trickstertwo/xtheme/dom"
	"github.com/trickstertwo/xtheme/sdk"
)

// ElementDisplay renders results as links inside the first element matching
// selector. Failed and empty queries render the no-results message. A missing
// container makes it a no-op.
func ElementDisplay(doc dom.Document, selector string, tr sdk.Translator) Display {
	return func(res sdk.SearchResults, err error) {
		if doc == nil {
			return
		}
		box := doc.Query(selector)
		if box == nil {
			return
		}
		box.SetText("")
		box.SetAttr("data-query", res.Query)
		box.SetAttr("data-count", strconv.Itoa(len(res.Items)))

		if err != nil || len(res.Items) == 0 {
			p := doc.CreateElement("p")
			p.AddClass("search-empty")
			p.SetText(translate(tr, "search.no_results", map[string]any{"query": res.Query}))
			box.AppendChild(p)
			return
		}
		for _, it := range res.Items {
			a := doc.CreateElement("a")
			a.AddClass("search-result")
			a.SetAttr("href", it.URL)
			a.SetAttr("data-product-id", strconv.Itoa(it.ID))
			a.SetText(it.Name)
			box.AppendChild(a)
		}
	}
}

func translate(tr sdk.Translator, key string, vars map[string]any) string {
	if tr == nil {
		return key
	}
	return tr.Trans(key, vars)
}
