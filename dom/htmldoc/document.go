// Package htmldoc implements the dom interfaces over a parsed HTML tree.
// It backs the simulator, the preview server and the module tests.
package htmldoc

import (
	"bytes"
	"io"
	"strings"
	"sync"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/trickstertwo/xtheme/dom"
)

var (
	_ dom.Document = (*Document)(nil)
	_ dom.Element  = (*Element)(nil)
)

// Document is a mutable HTML document with event listeners.
type Document struct {
	root *html.Node

	mu        sync.Mutex
	elems     map[*html.Node]*Element
	listeners map[*html.Node]map[string][]dom.Listener
	values    map[*html.Node]string
	selectors map[string]selector
}

// Parse reads an HTML document.
func Parse(r io.Reader) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, err
	}
	return &Document{
		root:      root,
		elems:     make(map[*html.Node]*Element),
		listeners: make(map[*html.Node]map[string][]dom.Listener),
		values:    make(map[*html.Node]string),
		selectors: make(map[string]selector),
	}, nil
}

// ParseString parses markup held in a string.
func ParseString(markup string) (*Document, error) {
	return Parse(strings.NewReader(markup))
}

// Render serializes the current tree.
func (d *Document) Render() string {
	var buf bytes.Buffer
	_ = html.Render(&buf, d.root)
	return buf.String()
}

// Query returns the first match or nil. Invalid selectors match nothing.
func (d *Document) Query(sel string) dom.Element {
	all := d.queryAll(sel, 1)
	if len(all) == 0 {
		return nil
	}
	return all[0]
}

func (d *Document) QueryAll(sel string) []dom.Element {
	return d.queryAll(sel, -1)
}

func (d *Document) queryAll(sel string, limit int) []dom.Element {
	s, ok := d.compile(sel)
	if !ok {
		return nil
	}
	var out []dom.Element
	var walk func(n *html.Node) bool
	walk = func(n *html.Node) bool {
		if n.Type == html.ElementNode && s.matches(n) {
			out = append(out, d.wrap(n))
			if limit > 0 && len(out) >= limit {
				return false
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if !walk(c) {
				return false
			}
		}
		return true
	}
	walk(d.root)
	return out
}

func (d *Document) compile(sel string) (selector, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if s, ok := d.selectors[sel]; ok {
		return s, true
	}
	s, err := parseSelector(sel)
	if err != nil {
		return nil, false
	}
	d.selectors[sel] = s
	return s, true
}

// CreateElement returns a detached element.
func (d *Document) CreateElement(tag string) dom.Element {
	tag = strings.ToLower(tag)
	n := &html.Node{Type: html.ElementNode, Data: tag, DataAtom: atom.Lookup([]byte(tag))}
	return d.wrap(n)
}

// Body returns the body element, or nil for fragments without one.
func (d *Document) Body() dom.Element {
	return d.Query("body")
}

// Dispatch delivers an event to the listeners of el, in registration order.
func (d *Document) Dispatch(el dom.Element, eventType string) {
	e, ok := el.(*Element)
	if !ok || e == nil {
		return
	}
	d.mu.Lock()
	ls := append([]dom.Listener(nil), d.listeners[e.n][eventType]...)
	d.mu.Unlock()
	for _, fn := range ls {
		fn(dom.Event{Type: eventType, Target: e})
	}
}

// Click dispatches a click on el.
func (d *Document) Click(el dom.Element) { d.Dispatch(el, "click") }

// Type sets the value of a form control and dispatches "input".
func (d *Document) Type(el dom.Element, value string) {
	e, ok := el.(*Element)
	if !ok || e == nil {
		return
	}
	d.mu.Lock()
	d.values[e.n] = value
	d.mu.Unlock()
	d.Dispatch(el, "input")
}

func (d *Document) wrap(n *html.Node) *Element {
	d.mu.Lock()
	defer d.mu.Unlock()
	if e, ok := d.elems[n]; ok {
		return e
	}
	e := &Element{doc: d, n: n}
	d.elems[n] = e
	return e
}

// Element wraps an element node. The same node always yields the same *Element.
type Element struct {
	doc *Document
	n   *html.Node
}

func (e *Element) Tag() string { return e.n.Data }

func (e *Element) Attr(name string) (string, bool) { return getAttr(e.n, name) }

func (e *Element) SetAttr(name, value string) {
	for i := range e.n.Attr {
		if e.n.Attr[i].Key == name {
			e.n.Attr[i].Val = value
			return
		}
	}
	e.n.Attr = append(e.n.Attr, html.Attribute{Key: name, Val: value})
}

func (e *Element) RemoveAttr(name string) {
	out := e.n.Attr[:0]
	for _, a := range e.n.Attr {
		if a.Key != name {
			out = append(out, a)
		}
	}
	e.n.Attr = out
}

func (e *Element) HasClass(class string) bool {
	_, ok := classSet(e.n)[class]
	return ok
}

func (e *Element) AddClass(class string) {
	if e.HasClass(class) {
		return
	}
	v, _ := e.Attr("class")
	e.SetAttr("class", strings.TrimSpace(v+" "+class))
}

func (e *Element) RemoveClass(class string) {
	v, ok := e.Attr("class")
	if !ok {
		return
	}
	var keep []string
	for _, f := range strings.Fields(v) {
		if f != class {
			keep = append(keep, f)
		}
	}
	e.SetAttr("class", strings.Join(keep, " "))
}

func (e *Element) Text() string {
	var sb strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(e.n)
	return sb.String()
}

func (e *Element) SetText(text string) {
	for c := e.n.FirstChild; c != nil; {
		next := c.NextSibling
		e.n.RemoveChild(c)
		c = next
	}
	e.n.AppendChild(&html.Node{Type: html.TextNode, Data: text})
}

func (e *Element) Style(prop string) string {
	for _, kv := range parseStyle(e.n) {
		if kv[0] == prop {
			return kv[1]
		}
	}
	return ""
}

func (e *Element) SetStyle(prop, value string) {
	decls := parseStyle(e.n)
	found := false
	for i := range decls {
		if decls[i][0] == prop {
			decls[i][1] = value
			found = true
		}
	}
	if !found {
		decls = append(decls, [2]string{prop, value})
	}
	parts := make([]string, 0, len(decls))
	for _, kv := range decls {
		parts = append(parts, kv[0]+": "+kv[1])
	}
	e.SetAttr("style", strings.Join(parts, "; "))
}

func (e *Element) Value() string {
	e.doc.mu.Lock()
	v, ok := e.doc.values[e.n]
	e.doc.mu.Unlock()
	if ok {
		return v
	}
	v, _ = e.Attr("value")
	return v
}

func (e *Element) AddEventListener(eventType string, fn dom.Listener) {
	if fn == nil {
		return
	}
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	byType, ok := e.doc.listeners[e.n]
	if !ok {
		byType = make(map[string][]dom.Listener)
		e.doc.listeners[e.n] = byType
	}
	byType[eventType] = append(byType[eventType], fn)
}

func (e *Element) AppendChild(child dom.Element) {
	c, ok := child.(*Element)
	if !ok || c == nil || c.doc != e.doc {
		return
	}
	if c.n.Parent != nil {
		c.n.Parent.RemoveChild(c.n)
	}
	e.n.AppendChild(c.n)
}

func getAttr(n *html.Node, name string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == name {
			return a.Val, true
		}
	}
	return "", false
}

func parseStyle(n *html.Node) [][2]string {
	v, _ := getAttr(n, "style")
	var out [][2]string
	for _, decl := range strings.Split(v, ";") {
		k, val, ok := strings.Cut(decl, ":")
		if !ok {
			continue
		}
		out = append(out, [2]string{strings.TrimSpace(k), strings.TrimSpace(val)})
	}
	return out
}
