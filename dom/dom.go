// Package dom defines the document surface the theme modules touch.
// Mutations are primitive and synchronous; callers own sequencing.
package dom

// Event is a user or host event delivered to an element listener.
type Event struct {
	Type   string
	Target Element
}

// Listener handles a DOM event.
type Listener func(Event)

// Element is a node of the document.
// Implementations must be comparable so elements can key maps.
type Element interface {
	Tag() string
	Attr(name string) (string, bool)
	SetAttr(name, value string)
	RemoveAttr(name string)

	HasClass(class string) bool
	AddClass(class string)
	RemoveClass(class string)

	Text() string
	SetText(text string)

	Style(prop string) string
	SetStyle(prop, value string)

	// Value is the current value of a form control.
	Value() string

	AddEventListener(eventType string, fn Listener)
	AppendChild(child Element)
}

// Document exposes marker discovery and element creation.
type Document interface {
	// Query returns the first element matching selector, or nil.
	Query(selector string) Element
	// QueryAll returns every element matching selector in document order.
	QueryAll(selector string) []Element
	CreateElement(tag string) Element
	Body() Element
}

// Window exposes the viewport and navigation of the page.
type Window interface {
	ScrollY() float64
	ScrollTo(y float64)
	Reload()
	Path() string
	AddEventListener(eventType string, fn Listener)
}
