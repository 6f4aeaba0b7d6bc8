package redisstream

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/trickstertwo/xtheme"
)

// Transport implements xtheme.Transport on Redis Streams.
type Transport struct {
	cfg    Config
	client *redis.Client

	closed atomic.Bool

	mu   sync.Mutex
	subs map[*subscription]struct{}

	metrics *transportMetrics
}

type transportMetrics struct {
	published     atomic.Uint64
	consumed      atomic.Uint64
	acked         atomic.Uint64
	nacked        atomic.Uint64
	rejected      atomic.Uint64
	publishErrors atomic.Uint64
	consumeErrors atomic.Uint64
}

var _ xtheme.Transport = (*Transport)(nil)

// NewTransport connects to Redis and verifies the connection.
func NewTransport(cfg Config) (*Transport, error) {
	opts := &redis.Options{
		Addr:         cfg.Addr,
		Username:     cfg.Username,
		Password:     cfg.Password,
		DB:           cfg.DB,
		MaxRetries:   3,
		PoolSize:     10,
		MinIdleConns: 2,
	}
	if cfg.TLS {
		opts.TLSConfig = &tls.Config{
			MinVersion:    tls.VersionTLS12,
			ServerName:    cfg.TLSServerName,
			Renegotiation: tls.RenegotiateNever,
		}
	}

	client := redis.NewClient(opts)
	if err := ping(client); err != nil {
		_ = client.Close()
		return nil, err
	}
	return newTransport(cfg, client), nil
}

func newTransport(cfg Config, client *redis.Client) *Transport {
	if cfg.Executor == nil {
		cfg.Executor = xtheme.InlineExecutor{}
	}
	return &Transport{
		cfg:     cfg,
		client:  client,
		subs:    make(map[*subscription]struct{}),
		metrics: &transportMetrics{},
	}
}

// Stream returns the stream key for an event name.
func (t *Transport) Stream(topic string) string { return t.cfg.StreamPrefix + topic }

// Publish appends events to the topic stream with one pipelined XADD per event.
func (t *Transport) Publish(ctx context.Context, topic string, evts ...*xtheme.Event) error {
	if t.closed.Load() {
		return xtheme.ErrBusClosed
	}
	if len(evts) == 0 {
		return nil
	}

	stream := t.Stream(topic)
	pipe := t.client.Pipeline()
	n := 0
	for _, e := range evts {
		if e == nil {
			continue
		}
		vals := make(map[string]any, 4+len(e.Metadata))
		if e.ID != "" {
			vals[fieldID] = e.ID
		}
		vals[fieldName] = e.Name
		vals[fieldPayload] = e.Payload
		vals[fieldProducedAt] = e.ProducedAt.UnixNano()
		for k, v := range e.Metadata {
			vals[fieldMetaPrefix+k] = v
		}

		args := &redis.XAddArgs{
			Stream: stream,
			ID:     "*",
			Values: vals,
		}
		if t.cfg.MaxLenApprox > 0 {
			args.MaxLen = t.cfg.MaxLenApprox
			args.Approx = true
		}
		pipe.XAdd(ctx, args)
		n++
	}

	if _, err := pipe.Exec(ctx); err != nil {
		t.metrics.publishErrors.Add(uint64(n))
		return err
	}
	t.metrics.published.Add(uint64(n))
	return nil
}

// Subscribe starts a poller for topic under group. Each read entry is handed
// to the executor; handler must Ack or Nack it.
func (t *Transport) Subscribe(ctx context.Context, topic, group string, handler func(xtheme.Delivery)) (xtheme.Subscription, error) {
	if t.closed.Load() {
		return nil, xtheme.ErrBusClosed
	}
	stream := t.Stream(topic)

	if t.cfg.AutoCreate {
		// "$" starts from new entries; BUSYGROUP means it already exists.
		if err := t.client.XGroupCreateMkStream(ctx, stream, group, "$").Err(); err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
			return nil, fmt.Errorf("redisstream: create group %s on %s: %w", group, stream, err)
		}
	}

	innerCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	done := make(chan struct{})
	go func() {
		defer close(done)
		t.pollerLoop(innerCtx, stream, group, handler)
	}()

	s := &subscription{}
	s.close = func() error {
		cancel()
		<-done
		t.mu.Lock()
		delete(t.subs, s)
		t.mu.Unlock()
		if t.cfg.EphemeralGroups && !t.closed.Load() {
			cctx, ccancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer ccancel()
			return t.client.XGroupDestroy(cctx, stream, group).Err()
		}
		return nil
	}

	t.mu.Lock()
	t.subs[s] = struct{}{}
	t.mu.Unlock()
	return s, nil
}

func (t *Transport) pollerLoop(ctx context.Context, stream, group string, handler func(xtheme.Delivery)) {
	xArgs := &redis.XReadGroupArgs{
		Group:    group,
		Consumer: t.cfg.Consumer,
		Streams:  []string{stream, ">"},
		Count:    int64(max(1, t.cfg.BatchSize)),
		Block:    t.cfg.Block,
	}

	backoff := 100 * time.Millisecond
	const maxBackoff = 5 * time.Second

	for {
		if ctx.Err() != nil {
			return
		}

		res, err := t.client.XReadGroup(ctx, xArgs).Result()
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				return
			}
			if errors.Is(err, redis.Nil) {
				backoff = 100 * time.Millisecond
				continue
			}
			t.metrics.consumeErrors.Add(1)
			select {
			case <-time.After(backoff):
				backoff = min(backoff*2, maxBackoff)
			case <-ctx.Done():
				return
			}
			continue
		}
		backoff = 100 * time.Millisecond

		for _, str := range res {
			for _, msg := range str.Messages {
				d := &delivery{
					t:      t,
					stream: stream,
					group:  group,
					id:     msg.ID,
					evt:    decodeEvent(msg.ID, msg.Values),
				}
				t.metrics.consumed.Add(1)
				if !t.cfg.Executor.Post(func() { handler(d) }) {
					// Executor closed: leave the entry pending for redelivery.
					t.metrics.rejected.Add(1)
					return
				}
			}
		}
	}
}

// Close stops every subscription and the client. Idempotent.
func (t *Transport) Close(_ context.Context) error {
	if t.closed.Swap(true) {
		return nil
	}
	t.mu.Lock()
	subs := make([]*subscription, 0, len(t.subs))
	for s := range t.subs {
		subs = append(subs, s)
	}
	t.mu.Unlock()
	for _, s := range subs {
		_ = s.Close()
	}
	return t.client.Close()
}

// Stats is a snapshot of transport counters.
type Stats struct {
	Published     uint64
	Consumed      uint64
	Acked         uint64
	Nacked        uint64
	Rejected      uint64
	PublishErrors uint64
	ConsumeErrors uint64
}

func (t *Transport) Stats() Stats {
	return Stats{
		Published:     t.metrics.published.Load(),
		Consumed:      t.metrics.consumed.Load(),
		Acked:         t.metrics.acked.Load(),
		Nacked:        t.metrics.nacked.Load(),
		Rejected:      t.metrics.rejected.Load(),
		PublishErrors: t.metrics.publishErrors.Load(),
		ConsumeErrors: t.metrics.consumeErrors.Load(),
	}
}

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

func ping(c *redis.Client) error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	res, err := c.Ping(ctx).Result()
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return fmt.Errorf("redis ping timeout: %w", err)
		}
		return err
	}
	if strings.ToUpper(res) != "PONG" {
		return fmt.Errorf("unexpected redis ping result: %s", res)
	}
	return nil
}
