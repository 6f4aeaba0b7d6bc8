package htmldoc

import (
	"sync"

	"github.com/trickstertwo/xtheme/dom"
)

var _ dom.Window = (*Window)(nil)

// Window is a headless viewport: scrolling and reloads are recorded, not performed.
type Window struct {
	mu        sync.Mutex
	path      string
	scrollY   float64
	reloads   int
	listeners map[string][]dom.Listener
}

// NewWindow returns a window positioned at the top of path.
func NewWindow(path string) *Window {
	return &Window{path: path, listeners: make(map[string][]dom.Listener)}
}

func (w *Window) ScrollY() float64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.scrollY
}

// ScrollTo moves the viewport and dispatches "scroll".
func (w *Window) ScrollTo(y float64) {
	w.mu.Lock()
	w.scrollY = y
	ls := append([]dom.Listener(nil), w.listeners["scroll"]...)
	w.mu.Unlock()
	for _, fn := range ls {
		fn(dom.Event{Type: "scroll"})
	}
}

func (w *Window) Reload() {
	w.mu.Lock()
	w.reloads++
	w.mu.Unlock()
}

// Reloads reports how many reloads were requested.
func (w *Window) Reloads() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.reloads
}

func (w *Window) Path() string { return w.path }

func (w *Window) AddEventListener(eventType string, fn dom.Listener) {
	if fn == nil {
		return
	}
	w.mu.Lock()
	w.listeners[eventType] = append(w.listeners[eventType], fn)
	w.mu.Unlock()
}
