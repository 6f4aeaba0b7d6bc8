package xtheme_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trickstertwo/xtheme"
	"github.com/trickstertwo/xtheme/adapter/memory"
)

type cartUpdated struct {
	ItemsCount int `json:"items_count"`
}

func newBus(t *testing.T, mws ...xtheme.Middleware) *xtheme.Bus {
	t.Helper()
	bus, err := memory.New(memory.Config{AssignIDs: true}, memory.WithMiddleware(mws...))
	require.NoError(t, err)
	t.Cleanup(func() { _ = bus.Close(context.Background()) })
	return bus
}

func TestBus_PublishSubscribe(t *testing.T) {
	bus := newBus(t)
	ctx := context.Background()

	var got []int
	_, err := bus.Subscribe(ctx, "cart::updated", "badge", func(ctx context.Context, evt *xtheme.Event) error {
		p, err := xtheme.Decode[cartUpdated](ctx, evt)
		if err != nil {
			return err
		}
		got = append(got, p.ItemsCount)
		assert.NotEmpty(t, evt.ID)
		assert.Equal(t, "test", evt.Metadata["source"])
		return nil
	})
	require.NoError(t, err)

	require.NoError(t, bus.Publish(ctx, "cart::updated", cartUpdated{ItemsCount: 2}, map[string]string{"source": "test"}))
	require.NoError(t, bus.Publish(ctx, "cart::cleared", nil, nil))
	assert.Equal(t, []int{2}, got)

	m := bus.GetMetrics()
	assert.Equal(t, uint64(2), m.Published)
	assert.Equal(t, uint64(1), m.Consumed)
	assert.Equal(t, uint64(1), m.Acked)
}

func TestBus_EveryGroupReceives(t *testing.T) {
	bus := newBus(t)
	ctx := context.Background()

	var mu sync.Mutex
	seen := map[string]int{}
	for _, g := range []string{"page-a", "page-b"} {
		_, err := bus.Subscribe(ctx, "wishlist::updated", g, func(context.Context, *xtheme.Event) error {
			mu.Lock()
			seen[g]++
			mu.Unlock()
			return nil
		})
		require.NoError(t, err)
	}
	require.NoError(t, bus.Publish(ctx, "wishlist::updated", map[string]int{"items_count": 1}, nil))
	assert.Equal(t, map[string]int{"page-a": 1, "page-b": 1}, seen)
}

func TestBus_PanicIsolated(t *testing.T) {
	bus := newBus(t)
	ctx := context.Background()

	_, err := bus.Subscribe(ctx, "order::created", "broken", func(context.Context, *xtheme.Event) error {
		panic("boom")
	})
	require.NoError(t, err)
	var ok bool
	_, err = bus.Subscribe(ctx, "order::created", "analytics", func(context.Context, *xtheme.Event) error {
		ok = true
		return nil
	})
	require.NoError(t, err)

	require.NoError(t, bus.Publish(ctx, "order::created", map[string]string{"id": "1"}, nil))
	assert.True(t, ok)
	assert.Equal(t, uint64(1), bus.GetMetrics().Nacked)
}

func TestBus_MiddlewareOrder(t *testing.T) {
	var trace []string
	mw := func(tag string) xtheme.Middleware {
		return func(next xtheme.Handler) xtheme.Handler {
			return func(ctx context.Context, evt *xtheme.Event) error {
				trace = append(trace, tag)
				return next(ctx, evt)
			}
		}
	}
	bus := newBus(t, mw("outer"), mw("inner"))
	_, err := bus.Subscribe(context.Background(), "auth::login", "g", func(context.Context, *xtheme.Event) error {
		trace = append(trace, "handler")
		return nil
	})
	require.NoError(t, err)
	require.NoError(t, bus.Publish(context.Background(), "auth::login", nil, nil))
	assert.Equal(t, []string{"outer", "inner", "handler"}, trace)
}

func TestBus_Validation(t *testing.T) {
	bus := newBus(t)
	ctx := context.Background()

	assert.ErrorIs(t, bus.Publish(ctx, "", nil, nil), xtheme.ErrInvalidEventName)
	_, err := bus.Subscribe(ctx, "x", "", func(context.Context, *xtheme.Event) error { return nil })
	assert.ErrorIs(t, err, xtheme.ErrInvalidSubscription)
	_, err = bus.Subscribe(ctx, "x", "g", nil)
	assert.ErrorIs(t, err, xtheme.ErrInvalidSubscription)
}

func TestBus_Closed(t *testing.T) {
	bus := newBus(t)
	ctx := context.Background()
	require.NoError(t, bus.Close(ctx))

	assert.ErrorIs(t, bus.Publish(ctx, "cart::updated", nil, nil), xtheme.ErrBusClosed)
	_, err := bus.Subscribe(ctx, "cart::updated", "g", func(context.Context, *xtheme.Event) error { return nil })
	assert.ErrorIs(t, err, xtheme.ErrBusClosed)
	assert.Equal(t, "unhealthy", bus.Health(ctx).Status)
}

func TestBus_PublishBatch(t *testing.T) {
	bus := newBus(t)
	ctx := context.Background()

	var names []string
	for _, n := range []string{"cart::item-added", "cart::updated"} {
		_, err := bus.Subscribe(ctx, n, "g", func(_ context.Context, evt *xtheme.Event) error {
			names = append(names, evt.Name)
			return nil
		})
		require.NoError(t, err)
	}
	require.NoError(t, bus.PublishBatch(ctx,
		xtheme.PublishEvent{Name: "cart::item-added", Payload: map[string]any{"cart": map[string]int{"items_count": 1}}},
		xtheme.PublishEvent{Name: "cart::updated", Payload: cartUpdated{ItemsCount: 1}},
	))
	assert.Equal(t, []string{"cart::item-added", "cart::updated"}, names)

	assert.ErrorIs(t, bus.PublishBatch(ctx, xtheme.PublishEvent{}), xtheme.ErrInvalidEventName)
}

func TestBus_Observer(t *testing.T) {
	bus := newBus(t)
	var types []xtheme.BusEventType
	bus.AddObserver(xtheme.ObserverFunc(func(e xtheme.BusEvent) { types = append(types, e.Type) }))

	_, err := bus.Subscribe(context.Background(), "error", "g", func(context.Context, *xtheme.Event) error {
		return errors.New("nope")
	})
	require.NoError(t, err)
	require.NoError(t, bus.Publish(context.Background(), "error", "x", nil))

	assert.Equal(t, []xtheme.BusEventType{
		xtheme.EventPublishStart,
		xtheme.EventConsumeStart,
		xtheme.EventConsumeDone,
		xtheme.EventNack,
		xtheme.EventPublishDone,
	}, types)
}

func TestObserverPool_DrainsOnClose(t *testing.T) {
	pool := xtheme.NewObserverPool(context.Background(), 1, 64)
	var mu sync.Mutex
	seen := 0
	obs := xtheme.ObserverFunc(func(xtheme.BusEvent) {
		mu.Lock()
		seen++
		mu.Unlock()
	})
	panicky := xtheme.ObserverFunc(func(xtheme.BusEvent) { panic("observer") })

	for i := 0; i < 10; i++ {
		pool.Notify(xtheme.BusEvent{Type: xtheme.EventAck}, []xtheme.Observer{panicky, obs})
	}
	require.NoError(t, pool.Close(time.Second))
	require.NoError(t, pool.Close(time.Second))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 10, seen)
	st := pool.Stats()
	assert.Equal(t, uint64(10), st.Processed)
	assert.Zero(t, st.Dropped)

	pool.Notify(xtheme.BusEvent{Type: xtheme.EventAck}, []xtheme.Observer{obs})
	assert.Equal(t, 10, seen, "closed pool ignores events")
}

func TestBus_HandlerContext(t *testing.T) {
	tr := memory.NewTransport(memory.Config{})
	bus, closeBus, err := xtheme.New(func(b *xtheme.BusBuilder) {
		b.WithTransportInstance(tr).WithCodecInstance(xtheme.JSONCodec{})
	})
	require.NoError(t, err)
	defer func() { _ = closeBus() }()

	var hasCodec, hasLogger, hasClock bool
	_, err = bus.Subscribe(context.Background(), "profile::updated", "g", func(ctx context.Context, _ *xtheme.Event) error {
		_, hasCodec = xtheme.CodecFromContext(ctx)
		_, hasLogger = xtheme.LoggerFromContext(ctx)
		_, hasClock = xtheme.ClockFromContext(ctx)
		return nil
	})
	require.NoError(t, err)
	require.NoError(t, bus.Publish(context.Background(), "profile::updated", nil, nil))

	assert.True(t, hasCodec)
	assert.True(t, hasLogger)
	assert.True(t, hasClock)
	assert.Equal(t, uint64(1), tr.Stats().Acked)
}

func TestBuilder_NoTransport(t *testing.T) {
	_, err := xtheme.NewBusBuilder().Build()
	assert.ErrorIs(t, err, xtheme.ErrNoTransportConfigured)

	_, err = xtheme.NewBusBuilder().WithTransport("carrier-pigeon", nil).Build()
	var unknown xtheme.ErrUnknownTransport
	assert.ErrorAs(t, err, &unknown)
}

type namedJSON struct{ xtheme.JSONCodec }

func (namedJSON) Name() string { return "json-named" }

func TestBuilder_RegisteredCodec(t *testing.T) {
	require.Error(t, xtheme.RegisterCodec("", func() xtheme.Codec { return namedJSON{} }))
	require.Error(t, xtheme.RegisterCodec("json-named", nil))
	require.NoError(t, xtheme.RegisterCodec("json-named", func() xtheme.Codec { return namedJSON{} }))

	bus, err := xtheme.NewBusBuilder().
		WithTransportInstance(memory.NewTransport(memory.Config{})).
		WithCodec("json-named").
		Build()
	require.NoError(t, err)
	defer func() { _ = bus.Close(context.Background()) }()
	assert.Equal(t, "json-named", bus.Codec().Name())

	_, err = xtheme.NewBusBuilder().
		WithTransportInstance(memory.NewTransport(memory.Config{})).
		WithCodec("msgpack").
		Build()
	assert.Error(t, err)
}
