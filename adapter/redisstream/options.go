package redisstream

import (
	"time"

	"github.com/trickstertwo/xclock"
	"github.com/trickstertwo/xlog"

	"github.com/trickstertwo/xtheme"
)

// Option configures the xtheme.Bus built by New.
type Option func(*xtheme.BusBuilder)

// WithLogger injects a custom xlog logger.
func WithLogger(l *xlog.Logger) Option {
	return func(b *xtheme.BusBuilder) { b.WithLogger(l) }
}

// WithClock injects a custom xclock clock.
func WithClock(c xclock.Clock) Option {
	return func(b *xtheme.BusBuilder) { b.WithClock(c) }
}

// WithMiddleware adds processing middlewares.
func WithMiddleware(mw ...xtheme.Middleware) Option {
	return func(b *xtheme.BusBuilder) { b.WithMiddleware(mw...) }
}

// WithAckTimeout sets the ack/nack timeout.
func WithAckTimeout(d time.Duration) Option {
	return func(b *xtheme.BusBuilder) { b.WithAckTimeout(d) }
}

// WithObserver attaches observers for lifecycle events.
func WithObserver(obs ...xtheme.Observer) Option {
	return func(b *xtheme.BusBuilder) { b.WithObserver(obs...) }
}
