package xtheme

import (
	"context"
)

// Handler processes a single platform event. Return error to trigger Nack.
type Handler func(ctx context.Context, evt *Event) error

// Middleware composes processing concerns around a Handler.
type Middleware func(next Handler) Handler

// Subscription represents an active subscription that can be closed.
type Subscription interface {
	Close() error
}

// Delivery encapsulates a received event with Ack/Nack semantics.
type Delivery interface {
	Event() *Event
	Ack(ctx context.Context) error
	Nack(ctx context.Context, reason error) error
}

// Transport is the Strategy interface for event backends.
// A topic is a platform event name (e.g. "cart::item-added"); every consumer
// group subscribed to a topic receives each event once.
type Transport interface {
	Publish(ctx context.Context, topic string, evts ...*Event) error
	Subscribe(ctx context.Context, topic, group string, handler func(Delivery)) (Subscription, error)
	Close(ctx context.Context) error
}

// Codec is the Strategy for encoding/decoding payloads.
type Codec interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
	Name() string
}

// Executor runs tasks on the logical execution context that owns handlers.
// Post returns false when the task was rejected (executor closed).
type Executor interface {
	Post(task func()) bool
}

// Observer receives bus lifecycle events. Implementations should be non-blocking.
type Observer interface {
	OnBusEvent(e BusEvent)
}

// HealthChecker provides health status for the preview server health check.
type HealthChecker interface {
	Health(ctx context.Context) HealthStatus
}

// API represents the complete bus surface.
type API interface {
	Publish(ctx context.Context, name string, payload any, meta map[string]string) error
	PublishBatch(ctx context.Context, events ...PublishEvent) error
	Subscribe(ctx context.Context, name, group string, handler Handler) (Subscription, error)
	Close(ctx context.Context) error
	GetMetrics() Metrics
	Health(ctx context.Context) HealthStatus
	AddObserver(obs Observer)
	RemoveObserver(obs Observer)
}

var _ API = (*Bus)(nil)
var _ HealthChecker = (*Bus)(nil)
