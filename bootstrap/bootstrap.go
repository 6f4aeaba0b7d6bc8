// Package bootstrap initializes the theme modules once per page load.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/trickstertwo/xlog"

	"github.com/trickstertwo/xtheme"
	"github.com/trickstertwo/xtheme/sdk"
)

// ErrInitPanic wraps a panic raised by a module's Init.
var ErrInitPanic = errors.New("bootstrap: module init panicked")

// Module is one independent theme feature.
type Module interface {
	Name() string
	// Init registers the module's handlers. It must not depend on other modules.
	Init(ctx context.Context) error
}

// Failure records a module whose Init failed.
type Failure struct {
	Module string
	Err    error
}

// Bootstrapper runs every module's Init exactly once, in registration order.
// A failing module never prevents the others from starting.
type Bootstrapper struct {
	logger  *xlog.Logger
	modules []Module

	once     sync.Once
	mu       sync.Mutex
	ran      bool
	failures []Failure
}

// New creates a bootstrapper. A nil logger uses xlog.Default().
func New(logger *xlog.Logger, modules ...Module) *Bootstrapper {
	if logger == nil {
		logger = xlog.Default()
	}
	b := &Bootstrapper{logger: logger}
	for _, m := range modules {
		if m != nil {
			b.modules = append(b.modules, m)
		}
	}
	return b
}

// Modules returns the registered modules.
func (b *Bootstrapper) Modules() []Module {
	return append([]Module(nil), b.modules...)
}

// Run initializes the modules. Later calls do nothing.
func (b *Bootstrapper) Run(ctx context.Context) {
	b.once.Do(func() {
		for _, m := range b.modules {
			if err := b.initOne(ctx, m); err != nil {
				b.logger.Error().Err(err).Str("module", m.Name()).Msg("bootstrap: module init failed")
				b.mu.Lock()
				b.failures = append(b.failures, Failure{Module: m.Name(), Err: err})
				b.mu.Unlock()
				continue
			}
			b.logger.Debug().Str("module", m.Name()).Msg("bootstrap: module ready")
		}
		b.mu.Lock()
		b.ran = true
		b.mu.Unlock()
		failed := len(b.Failures())
		b.logger.Info().Msg(fmt.Sprintf("bootstrap: %d of %d modules ready", len(b.modules)-failed, len(b.modules)))
	})
}

// Attach runs the modules on exec when ready fires. Repeated readiness
// signals are ignored. A nil exec runs inline.
func (b *Bootstrapper) Attach(ctx context.Context, ready sdk.Ready, exec xtheme.Executor) {
	if ready == nil {
		return
	}
	if exec == nil {
		exec = xtheme.InlineExecutor{}
	}
	ready.OnReady(func() {
		if !exec.Post(func() { b.Run(ctx) }) {
			b.logger.Warn().Msg("bootstrap: executor rejected run")
		}
	})
}

// Ran reports whether Run completed.
func (b *Bootstrapper) Ran() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.ran
}

// Failures returns the modules whose Init failed.
func (b *Bootstrapper) Failures() []Failure {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Failure(nil), b.failures...)
}

// Close closes every module that implements io.Closer, in reverse order.
func (b *Bootstrapper) Close() error {
	var errs []error
	for i := len(b.modules) - 1; i >= 0; i-- {
		c, ok := b.modules[i].(io.Closer)
		if !ok {
			continue
		}
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", b.modules[i].Name(), err))
		}
	}
	return errors.Join(errs...)
}

func (b *Bootstrapper) initOne(ctx context.Context, m Module) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrInitPanic, r)
		}
	}()
	return m.Init(ctx)
}
