package sdk

import "sync"

var _ Ready = (*ReadySignal)(nil)

// ReadySignal is a Ready driven by the host. Callbacks registered after the
// first Fire run immediately.
type ReadySignal struct {
	mu    sync.Mutex
	fired bool
	fns   []func()
}

func (r *ReadySignal) OnReady(fn func()) {
	if fn == nil {
		return
	}
	r.mu.Lock()
	if r.fired {
		r.mu.Unlock()
		fn()
		return
	}
	r.fns = append(r.fns, fn)
	r.mu.Unlock()
}

// Fire runs every registered callback. A host may signal readiness more than
// once; callbacks see each signal.
func (r *ReadySignal) Fire() {
	r.mu.Lock()
	r.fired = true
	fns := append([]func(){}, r.fns...)
	r.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

// Fired reports whether Fire was called.
func (r *ReadySignal) Fired() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.fired
}
