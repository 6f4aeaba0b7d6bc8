package xtheme

import (
	"context"

	"github.com/trickstertwo/xclock"
	"github.com/trickstertwo/xlog"
)

// handlerEnv is what a bus hands every handler it delivers to: the codec for
// decoding payloads, the bus logger and the bus clock.
type handlerEnv struct {
	codec  Codec
	logger *xlog.Logger
	clock  xclock.Clock
}

type handlerEnvKey struct{}

// withHandlerEnv returns ctx carrying the delivery environment of b.
func withHandlerEnv(ctx context.Context, b *Bus) context.Context {
	return context.WithValue(ctx, handlerEnvKey{}, &handlerEnv{
		codec:  b.codec,
		logger: b.logger,
		clock:  b.clock,
	})
}

func envFrom(ctx context.Context) *handlerEnv {
	env, _ := ctx.Value(handlerEnvKey{}).(*handlerEnv)
	return env
}

// CodecFromContext returns the codec of the bus delivering to the handler.
func CodecFromContext(ctx context.Context) (Codec, bool) {
	if env := envFrom(ctx); env != nil && env.codec != nil {
		return env.codec, true
	}
	return nil, false
}

// LoggerFromContext returns the logger of the bus delivering to the handler.
func LoggerFromContext(ctx context.Context) (*xlog.Logger, bool) {
	if env := envFrom(ctx); env != nil && env.logger != nil {
		return env.logger, true
	}
	return nil, false
}

// ClockFromContext returns the clock of the bus delivering to the handler.
func ClockFromContext(ctx context.Context) (xclock.Clock, bool) {
	if env := envFrom(ctx); env != nil && env.clock != nil {
		return env.clock, true
	}
	return nil, false
}

func loggerOr(ctx context.Context, fallback *xlog.Logger) *xlog.Logger {
	if fallback != nil {
		return fallback
	}
	if l, ok := LoggerFromContext(ctx); ok {
		return l
	}
	return xlog.Default()
}

func clockOr(ctx context.Context) xclock.Clock {
	if c, ok := ClockFromContext(ctx); ok {
		return c
	}
	return xclock.Default()
}
