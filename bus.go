package xtheme

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/trickstertwo/xclock"
	"github.com/trickstertwo/xlog"
)

// Bus is the central Facade handling publish/subscribe against a Transport.
type Bus struct {
	transport    Transport
	codec        Codec
	clock        xclock.Clock
	logger       *xlog.Logger
	middlewares  []Middleware
	ackTimeout   time.Duration
	observerPool *ObserverPool
	observersMu  sync.RWMutex
	observers    []Observer
	metrics      *busMetrics
	closed       atomic.Bool
	closeOnce    sync.Once
}

// busMetrics uses lock-free atomics for telemetry.
type busMetrics struct {
	publishCount atomic.Uint64
	consumeCount atomic.Uint64
	ackCount     atomic.Uint64
	nackCount    atomic.Uint64
	errorCount   atomic.Uint64
	processingNs atomic.Int64
}

// Codec returns the configured codec (Strategy).
func (b *Bus) Codec() Codec { return b.codec }

// Logger returns the bus logger.
func (b *Bus) Logger() *xlog.Logger { return b.logger }

// Publish encodes and sends a payload under an event name.
// A nil payload is encoded as the codec's null value.
func (b *Bus) Publish(ctx context.Context, name string, payload any, meta map[string]string) error {
	if b.closed.Load() {
		return ErrBusClosed
	}
	if name == "" {
		return ErrInvalidEventName
	}

	b.metrics.publishCount.Add(1)

	data, err := b.codec.Marshal(payload)
	if err != nil {
		b.metrics.errorCount.Add(1)
		return err
	}

	evt := Event{
		Name:       name,
		Payload:    data,
		Metadata:   meta,
		ProducedAt: b.clock.Now(),
	}

	start := b.clock.Now()
	b.notify(BusEvent{Type: EventPublishStart, EventName: name})

	err = b.transport.Publish(ctx, name, &evt)

	duration := b.clock.Since(start)
	b.recordProcessingTime(duration.Nanoseconds())
	b.notify(BusEvent{Type: EventPublishDone, EventName: name, Duration: duration, Err: err})

	if err != nil {
		b.metrics.errorCount.Add(1)
	}
	return err
}

// PublishBatch sends several events; each goes to the topic named after it.
// All events are validated and encoded before anything is sent.
func (b *Bus) PublishBatch(ctx context.Context, events ...PublishEvent) error {
	if b.closed.Load() {
		return ErrBusClosed
	}
	if len(events) == 0 {
		return nil
	}
	for _, e := range events {
		if e.Name == "" {
			return ErrInvalidEventName
		}
	}

	b.metrics.publishCount.Add(uint64(len(events)))

	evts := make([]*Event, len(events))
	for i := range events {
		data, err := b.codec.Marshal(events[i].Payload)
		if err != nil {
			b.metrics.errorCount.Add(1)
			return err
		}
		evts[i] = &Event{
			Name:       events[i].Name,
			Payload:    data,
			Metadata:   events[i].Meta,
			ProducedAt: b.clock.Now(),
		}
	}

	b.notify(BusEvent{Type: EventPublishStart, EventName: "batch"})
	start := b.clock.Now()

	var err error
	for _, evt := range evts {
		if err = b.transport.Publish(ctx, evt.Name, evt); err != nil {
			break
		}
	}

	duration := b.clock.Since(start)
	b.recordProcessingTime(duration.Nanoseconds())
	b.notify(BusEvent{Type: EventPublishDone, EventName: "batch", Duration: duration, Err: err})

	if err != nil {
		b.metrics.errorCount.Add(1)
	}
	return err
}

// Subscribe registers a handler under a consumer group for an event name.
// Panic recovery is always installed first so one subscriber cannot break another.
func (b *Bus) Subscribe(ctx context.Context, name, group string, handler Handler) (Subscription, error) {
	if b.closed.Load() {
		return nil, ErrBusClosed
	}
	if name == "" || group == "" || handler == nil {
		return nil, ErrInvalidSubscription
	}

	base := RecoveryMiddleware()(handler)
	wh := Chain(base, b.middlewares...)
	hctx := withHandlerEnv(ctx, b)

	return b.transport.Subscribe(ctx, name, group, func(d Delivery) {
		defer func() {
			if r := recover(); r != nil {
				b.logger.Warn().Str("event_name", name).Str("group", group).Msg("xtheme: delivery panic (recovered)")
				b.metrics.errorCount.Add(1)
				_ = d.Nack(context.Background(), ErrHandlerPanic)
			}
		}()

		b.metrics.consumeCount.Add(1)
		evt := d.Event()

		b.notify(BusEvent{Type: EventConsumeStart, Group: group, EventID: evt.ID, EventName: evt.Name})

		start := b.clock.Now()
		err := wh(hctx, evt)
		duration := b.clock.Since(start)
		b.recordProcessingTime(duration.Nanoseconds())

		if err == nil {
			b.metrics.ackCount.Add(1)
			b.ackWithTimeout(hctx, d, true, nil)
			b.notify(BusEvent{Type: EventConsumeDone, Group: group, EventID: evt.ID, EventName: evt.Name, Duration: duration})
			b.notify(BusEvent{Type: EventAck, Group: group, EventID: evt.ID, EventName: evt.Name})
			return
		}

		b.metrics.nackCount.Add(1)
		b.ackWithTimeout(hctx, d, false, err)
		b.notify(BusEvent{Type: EventConsumeDone, Group: group, EventID: evt.ID, EventName: evt.Name, Duration: duration, Err: err})
		b.notify(BusEvent{Type: EventNack, Group: group, EventID: evt.ID, EventName: evt.Name, Err: err})
	})
}

func (b *Bus) ackWithTimeout(ctx context.Context, d Delivery, ack bool, reason error) {
	actx := ctx
	cancel := func() {}
	if b.ackTimeout > 0 {
		actx, cancel = context.WithTimeout(ctx, b.ackTimeout)
	}
	defer cancel()

	if ack {
		if err := d.Ack(actx); err != nil {
			b.metrics.errorCount.Add(1)
			b.notify(BusEvent{Type: EventError, Err: err})
			b.logger.Warn().Err(err).Msg("xtheme: ack failed")
		}
		return
	}

	if err := d.Nack(actx, reason); err != nil {
		b.metrics.errorCount.Add(1)
		b.notify(BusEvent{Type: EventError, Err: err})
		b.logger.Warn().Err(err).Msg("xtheme: nack failed")
	}
}

// GetMetrics returns current bus metrics.
func (b *Bus) GetMetrics() Metrics {
	var dropped uint64
	if b.observerPool != nil {
		dropped = b.observerPool.Stats().Dropped
	}
	return Metrics{
		Published:           b.metrics.publishCount.Load(),
		Consumed:            b.metrics.consumeCount.Load(),
		Acked:               b.metrics.ackCount.Load(),
		Nacked:              b.metrics.nackCount.Load(),
		Errors:              b.metrics.errorCount.Load(),
		EventsDropped:       dropped,
		AvgProcessingTimeMs: float64(b.metrics.processingNs.Load()) / 1e6,
	}
}

// Health reports bus health for the preview server health check.
func (b *Bus) Health(ctx context.Context) HealthStatus {
	if b.closed.Load() {
		return HealthStatus{
			Status:    "unhealthy",
			Timestamp: b.clock.Now(),
			Message:   "bus is closed",
		}
	}

	metrics := b.GetMetrics()
	status := "healthy"

	// Degraded if error rate > 5%
	if metrics.Errors > 0 && metrics.Published > 0 {
		errorRate := float64(metrics.Errors) / float64(metrics.Published)
		if errorRate > 0.05 {
			status = "degraded"
		}
	}

	return HealthStatus{
		Status:    status,
		Metrics:   metrics,
		Timestamp: b.clock.Now(),
	}
}

// Close shuts the bus down. Idempotent.
func (b *Bus) Close(ctx context.Context) error {
	var closeErr error

	b.closeOnce.Do(func() {
		b.closed.Store(true)

		if b.observerPool != nil {
			if err := b.observerPool.Close(5 * time.Second); err != nil {
				b.logger.Warn().Err(err).Msg("xtheme: observer pool shutdown timeout")
				closeErr = err
			}
		}

		if err := b.transport.Close(ctx); err != nil {
			b.logger.Error().Err(err).Msg("xtheme: transport close failed")
			closeErr = err
		}
	})

	return closeErr
}

// AddObserver registers an observer (thread-safe).
func (b *Bus) AddObserver(obs Observer) {
	if obs == nil {
		return
	}
	b.observersMu.Lock()
	b.observers = append(b.observers, obs)
	b.observersMu.Unlock()
}

// RemoveObserver removes an observer.
func (b *Bus) RemoveObserver(obs Observer) {
	if obs == nil {
		return
	}
	b.observersMu.Lock()
	defer b.observersMu.Unlock()

	for i, o := range b.observers {
		if o == obs {
			b.observers = append(b.observers[:i], b.observers[i+1:]...)
			break
		}
	}
}

// notify dispatches lifecycle events, through the observer pool when one is configured.
func (b *Bus) notify(e BusEvent) {
	if b.closed.Load() {
		return
	}

	b.observersMu.RLock()
	if len(b.observers) == 0 {
		b.observersMu.RUnlock()
		return
	}
	observers := make([]Observer, len(b.observers))
	copy(observers, b.observers)
	b.observersMu.RUnlock()

	if b.observerPool != nil {
		b.observerPool.Notify(e, observers)
		return
	}
	for _, o := range observers {
		o.OnBusEvent(e)
	}
}

// recordProcessingTime records processing time using an exponential moving average.
func (b *Bus) recordProcessingTime(ns int64) {
	const alpha = 0.2
	current := b.metrics.processingNs.Load()
	if current == 0 {
		b.metrics.processingNs.Store(ns)
		return
	}
	newAvg := int64(float64(ns)*alpha + float64(current)*(1-alpha))
	b.metrics.processingNs.Store(newAvg)
}
