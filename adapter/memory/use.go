package memory

import (
	"fmt"

	"github.com/trickstertwo/xclock"
	"github.com/trickstertwo/xlog"

	"github.com/trickstertwo/xtheme"
)

// New builds a Bus on the in-memory transport.
//
// Example:
//
//	bus, err := memory.New(memory.Config{Executor: lp},
//	    memory.WithLogger(logger),
//	    memory.WithObserver(observer),
//	)
func New(cfg Config, opts ...Option) (*xtheme.Bus, error) {
	bb := xtheme.NewBusBuilder().
		WithTransport(TransportName, cfg.toMap())

	for _, o := range opts {
		if o != nil {
			o(bb)
		}
	}

	bus, err := bb.Build()
	if err != nil {
		return nil, fmt.Errorf("memory.New: %w", err)
	}
	return bus, nil
}

// toMap converts Config to the generic map expected by the transport factory.
func (c Config) toMap() map[string]any {
	m := map[string]any{
		"assign_ids":       c.AssignIDs,
		"max_redeliveries": c.MaxRedeliveries,
	}
	if c.Executor != nil {
		m["executor"] = c.Executor
	}
	return m
}

// Option configures the xtheme.Bus when calling New.
type Option func(*xtheme.BusBuilder)

// WithLogger injects a custom xlog logger.
func WithLogger(l *xlog.Logger) Option {
	return func(b *xtheme.BusBuilder) { b.WithLogger(l) }
}

// WithClock injects a custom xclock clock.
func WithClock(c xclock.Clock) Option {
	return func(b *xtheme.BusBuilder) { b.WithClock(c) }
}

// WithCodec selects a codec by name (default: "json").
func WithCodec(name string) Option {
	return func(b *xtheme.BusBuilder) { b.WithCodec(name) }
}

// WithMiddleware adds processing middlewares.
func WithMiddleware(mw ...xtheme.Middleware) Option {
	return func(b *xtheme.BusBuilder) { b.WithMiddleware(mw...) }
}

// WithObserver attaches observers for lifecycle events.
func WithObserver(obs ...xtheme.Observer) Option {
	return func(b *xtheme.BusBuilder) { b.WithObserver(obs...) }
}

// WithObserverPool configures an async observer pool for non-blocking notifications.
func WithObserverPool(workers, bufferSize int) Option {
	return func(b *xtheme.BusBuilder) { b.WithObserverPool(workers, bufferSize) }
}
