package redisstream

import (
	"fmt"

	"github.com/trickstertwo/xtheme"
)

const TransportName = "redis-streams"

func init() {
	if err := xtheme.RegisterTransport(TransportName, func(cfg map[string]any) (xtheme.Transport, error) {
		tr, err := NewTransport(ConfigFromMap(cfg))
		if err != nil {
			return nil, err
		}
		return tr, nil
	}); err != nil {
		panic(fmt.Errorf("xtheme: failed to register transport %q: %w", TransportName, err))
	}
}

// New builds a Bus on Redis Streams. Construction fails if Redis is unreachable.
func New(cfg Config, opts ...Option) (*xtheme.Bus, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("redisstream.New: %w", err)
	}
	bb := xtheme.NewBusBuilder().
		WithTransport(TransportName, cfg.toMap())

	for _, o := range opts {
		if o != nil {
			o(bb)
		}
	}
	bus, err := bb.Build()
	if err != nil {
		return nil, fmt.Errorf("redisstream.New: %w", err)
	}
	return bus, nil
}
