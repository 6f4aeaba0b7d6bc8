package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/trickstertwo/xtheme"
)

const TransportName = "memory"

func init() {
	if err := xtheme.RegisterTransport(TransportName, func(cfg map[string]any) (xtheme.Transport, error) {
		return NewTransport(ConfigFromMap(cfg)), nil
	}); err != nil {
		panic(fmt.Errorf("xtheme/memory: failed to register transport: %w", err))
	}
}

// ErrClosed is returned by operations on a closed transport.
var ErrClosed = errors.New("memory transport is closed")

// Config controls memory transport behavior.
type Config struct {
	// Executor runs deliveries. Default: xtheme.InlineExecutor (synchronous).
	// A page session passes its loop so every handler runs on one logical context.
	Executor xtheme.Executor
	// AssignIDs instructs the transport to assign IDs for events with empty ID (default: true).
	AssignIDs bool
	// MaxRedeliveries bounds re-posting of a nacked event to the same group (default: 0 = never).
	// UI handlers mutate the DOM and notify the user, so redelivery is opt-in.
	MaxRedeliveries int
}

func ConfigFromMap(cfg map[string]any) Config {
	getInt := func(k string, d int) int {
		switch v := cfg[k].(type) {
		case int:
			return v
		case int64:
			return int(v)
		case float64:
			return int(v)
		default:
			return d
		}
	}
	getBool := func(k string, d bool) bool {
		if v, ok := cfg[k].(bool); ok {
			return v
		}
		return d
	}

	c := Config{
		AssignIDs:       getBool("assign_ids", true),
		MaxRedeliveries: maxInt(0, getInt("max_redeliveries", 0)),
	}
	if ex, ok := cfg["executor"].(xtheme.Executor); ok {
		c.Executor = ex
	}
	return c
}

// Transport implements xtheme.Transport with in-process fan-out.
// Every consumer group subscribed to a topic gets its own delivery task.
type Transport struct {
	cfg Config

	mu     sync.RWMutex
	topics map[string]*topic

	closed atomic.Bool

	metrics *transportMetrics
}

type transportMetrics struct {
	published   atomic.Uint64
	consumed    atomic.Uint64
	acked       atomic.Uint64
	nacked      atomic.Uint64
	redelivered atomic.Uint64
	rejected    atomic.Uint64
}

var _ xtheme.Transport = (*Transport)(nil)

// NewTransport creates a new in-memory transport.
func NewTransport(cfg Config) *Transport {
	if cfg.Executor == nil {
		cfg.Executor = xtheme.InlineExecutor{}
	}
	return &Transport{
		cfg:     cfg,
		topics:  make(map[string]*topic),
		metrics: &transportMetrics{},
	}
}

// Publish fans events out to every group of the topic. Topics without
// subscribers drop the event.
func (t *Transport) Publish(ctx context.Context, topicName string, evts ...*xtheme.Event) error {
	if t.closed.Load() {
		return ErrClosed
	}

	t.mu.RLock()
	top, ok := t.topics[topicName]
	t.mu.RUnlock()

	for _, e := range evts {
		if e == nil {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if t.cfg.AssignIDs && e.ID == "" {
			e.ID = uuid.NewString()
		}
		t.metrics.published.Add(1)
		if !ok {
			continue
		}
		for _, g := range top.snapshot() {
			t.deliver(&deliveryTask{tr: t, group: g, evt: e})
		}
	}
	return nil
}

// Subscribe registers a handler for a topic/group. A group holds one handler;
// subscribing again to the same group replaces it.
func (t *Transport) Subscribe(ctx context.Context, topicName, groupName string, handler func(xtheme.Delivery)) (xtheme.Subscription, error) {
	if t.closed.Load() {
		return nil, ErrClosed
	}

	top := t.ensureTopic(topicName)
	g := &group{name: groupName, handler: handler}
	top.setGroup(g)

	return &subscription{close: func() error {
		g.stopped.Store(true)
		top.removeGroup(g)
		return nil
	}}, nil
}

func (t *Transport) deliver(task *deliveryTask) {
	ok := t.cfg.Executor.Post(func() {
		if task.group.stopped.Load() || t.closed.Load() {
			return
		}
		t.metrics.consumed.Add(1)
		task.group.handler(&memDelivery{task: task})
	})
	if !ok {
		t.metrics.rejected.Add(1)
	}
}

// Close shuts the transport down. Pending deliveries are dropped.
func (t *Transport) Close(_ context.Context) error {
	if t.closed.Swap(true) {
		return nil
	}
	t.mu.Lock()
	t.topics = make(map[string]*topic)
	t.mu.Unlock()
	return nil
}

// Stats returns transport telemetry.
type Stats struct {
	Published   uint64
	Consumed    uint64
	Acked       uint64
	Nacked      uint64
	Redelivered uint64
	Rejected    uint64
}

// Stats returns current transport metrics.
func (t *Transport) Stats() Stats {
	return Stats{
		Published:   t.metrics.published.Load(),
		Consumed:    t.metrics.consumed.Load(),
		Acked:       t.metrics.acked.Load(),
		Nacked:      t.metrics.nacked.Load(),
		Redelivered: t.metrics.redelivered.Load(),
		Rejected:    t.metrics.rejected.Load(),
	}
}

// Internal types

type subscription struct {
	once  sync.Once
	close func() error
}

func (s *subscription) Close() error {
	var err error
	s.once.Do(func() {
		if s.close != nil {
			err = s.close()
		}
	})
	return err
}

type topic struct {
	mu     sync.RWMutex
	groups map[string]*group
}

type group struct {
	name    string
	handler func(xtheme.Delivery)
	stopped atomic.Bool
}

func (tp *topic) setGroup(g *group) {
	tp.mu.Lock()
	if old, ok := tp.groups[g.name]; ok {
		old.stopped.Store(true)
	}
	tp.groups[g.name] = g
	tp.mu.Unlock()
}

func (tp *topic) removeGroup(g *group) {
	tp.mu.Lock()
	if cur, ok := tp.groups[g.name]; ok && cur == g {
		delete(tp.groups, g.name)
	}
	tp.mu.Unlock()
}

func (tp *topic) snapshot() []*group {
	tp.mu.RLock()
	defer tp.mu.RUnlock()
	out := make([]*group, 0, len(tp.groups))
	for _, g := range tp.groups {
		out = append(out, g)
	}
	return out
}

type deliveryTask struct {
	tr       *Transport
	group    *group
	evt      *xtheme.Event
	attempts int
}

type memDelivery struct {
	task    *deliveryTask
	ackOnce sync.Once
}

func (d *memDelivery) Event() *xtheme.Event {
	return d.task.evt
}

// Ack marks the event as processed.
func (d *memDelivery) Ack(_ context.Context) error {
	d.ackOnce.Do(func() {
		d.task.tr.metrics.acked.Add(1)
	})
	return nil
}

// Nack records the failure and re-posts the event when redelivery budget remains.
func (d *memDelivery) Nack(_ context.Context, _ error) error {
	d.ackOnce.Do(func() {
		tr := d.task.tr
		tr.metrics.nacked.Add(1)
		if d.task.attempts >= tr.cfg.MaxRedeliveries {
			return
		}
		tr.metrics.redelivered.Add(1)
		next := *d.task
		next.attempts++
		tr.deliver(&next)
	})
	return nil
}

func (t *Transport) ensureTopic(name string) *topic {
	t.mu.Lock()
	defer t.mu.Unlock()

	if tp, ok := t.topics[name]; ok {
		return tp
	}
	tp := &topic{groups: make(map[string]*group)}
	t.topics[name] = tp
	return tp
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
