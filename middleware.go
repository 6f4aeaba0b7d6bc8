package xtheme

import (
	"context"
	"fmt"

	"github.com/trickstertwo/xlog"
)

// RecoveryMiddleware prevents panics from escaping a subscriber and converts them into errors.
func RecoveryMiddleware() Middleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, evt *Event) (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("%w: %v", ErrHandlerPanic, r)
				}
			}()
			return next(ctx, evt)
		}
	}
}

// LoggingMiddleware logs handler start/finish at debug level and failures at warn.
// Durations use the delivering bus clock; a nil l logs through the bus logger.
func LoggingMiddleware(l *xlog.Logger) Middleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, evt *Event) error {
			log := loggerOr(ctx, l)
			clock := clockOr(ctx)
			start := clock.Now()
			log.Debug().
				Str("name", evt.Name).
				Str("id", evt.ID).
				Msg("handler start")

			err := next(ctx, evt)
			if err != nil {
				log.Warn().
					Str("name", evt.Name).
					Str("id", evt.ID).
					Dur("dur", clock.Since(start)).
					Err(err).
					Msg("handler failed")
				return err
			}

			log.Debug().
				Str("name", evt.Name).
				Str("id", evt.ID).
				Dur("dur", clock.Since(start)).
				Msg("handler done")
			return nil
		}
	}
}

// Chain composes middlewares around a handler in order.
func Chain(h Handler, mws ...Middleware) Handler {
	if len(mws) == 0 {
		return h
	}
	wrapped := h
	// Apply in reverse so that first middleware wraps last.
	for i := len(mws) - 1; i >= 0; i-- {
		if mws[i] == nil {
			continue
		}
		wrapped = mws[i](wrapped)
	}
	return wrapped
}
