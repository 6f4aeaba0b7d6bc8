package platform

import (
	"sync"

	"github.com/trickstertwo/xtheme"
	"github.com/trickstertwo/xtheme/dom"
	"github.com/trickstertwo/xtheme/sdk"
)

var _ sdk.VisibilityFactory = (*Viewport)(nil)

// Viewport is a scripted visibility source. Reveal and Hide report entries
// to every observer watching the element; callbacks run on the executor.
type Viewport struct {
	exec xtheme.Executor

	mu        sync.Mutex
	observers map[*observer]struct{}
}

// NewViewport returns a viewport delivering on exec (nil: inline).
func NewViewport(exec xtheme.Executor) *Viewport {
	if exec == nil {
		exec = xtheme.InlineExecutor{}
	}
	return &Viewport{exec: exec, observers: make(map[*observer]struct{})}
}

func (v *Viewport) NewObserver(callback func(entries []sdk.VisibilityEntry)) sdk.VisibilityObserver {
	o := &observer{vp: v, cb: callback, targets: make(map[dom.Element]struct{})}
	v.mu.Lock()
	v.observers[o] = struct{}{}
	v.mu.Unlock()
	return o
}

// Reveal reports el entering the viewport. Returns the number of observers notified.
func (v *Viewport) Reveal(el dom.Element) int { return v.report(el, true) }

// Hide reports el leaving the viewport.
func (v *Viewport) Hide(el dom.Element) int { return v.report(el, false) }

// Observed reports whether any observer watches el.
func (v *Viewport) Observed(el dom.Element) bool {
	for _, o := range v.snapshot() {
		if o.watching(el) {
			return true
		}
	}
	return false
}

func (v *Viewport) report(el dom.Element, visible bool) int {
	n := 0
	for _, o := range v.snapshot() {
		if !o.watching(el) || o.cb == nil {
			continue
		}
		entries := []sdk.VisibilityEntry{{Target: el, Visible: visible}}
		if v.exec.Post(func() {
			// Unobserved between report and delivery.
			if o.watching(el) {
				o.cb(entries)
			}
		}) {
			n++
		}
	}
	return n
}

func (v *Viewport) snapshot() []*observer {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]*observer, 0, len(v.observers))
	for o := range v.observers {
		out = append(out, o)
	}
	return out
}

type observer struct {
	vp *Viewport
	cb func([]sdk.VisibilityEntry)

	mu      sync.Mutex
	targets map[dom.Element]struct{}
}

func (o *observer) Observe(el dom.Element) {
	if el == nil {
		return
	}
	o.mu.Lock()
	o.targets[el] = struct{}{}
	o.mu.Unlock()
}

func (o *observer) Unobserve(el dom.Element) {
	o.mu.Lock()
	delete(o.targets, el)
	o.mu.Unlock()
}

func (o *observer) Disconnect() {
	o.mu.Lock()
	o.targets = make(map[dom.Element]struct{})
	o.mu.Unlock()
	o.vp.mu.Lock()
	delete(o.vp.observers, o)
	o.vp.mu.Unlock()
}

func (o *observer) watching(el dom.Element) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	_, ok := o.targets[el]
	return ok
}
