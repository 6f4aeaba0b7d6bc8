package redisstream

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/trickstertwo/xtheme"
)

// delivery implements xtheme.Delivery for one stream entry.
type delivery struct {
	t      *Transport
	stream string
	group  string
	id     string
	evt    *xtheme.Event

	once sync.Once
}

func (d *delivery) Event() *xtheme.Event { return d.evt }

// Ack acknowledges the entry, deleting it when AutoDeleteOnAck is set.
func (d *delivery) Ack(ctx context.Context) error {
	var err error
	d.once.Do(func() {
		err = d.t.client.XAck(ctx, d.stream, d.group, d.id).Err()
		if err == nil {
			d.t.metrics.acked.Add(1)
			if d.t.cfg.AutoDeleteOnAck {
				_ = d.t.client.XDel(ctx, d.stream, d.id).Err()
			}
		}
	})
	return err
}

// Nack writes the entry to the dead-letter stream, if configured, and acks the
// original so a poison event cannot loop. Without a dead-letter stream the
// entry stays pending.
func (d *delivery) Nack(ctx context.Context, reason error) error {
	d.t.metrics.nacked.Add(1)
	dl := d.t.cfg.DeadLetter
	if dl == "" {
		return nil
	}

	values := make(map[string]any, 5+len(d.evt.Metadata))
	values["orig_stream"] = d.stream
	values["orig_id"] = d.id
	values["error"] = fmt.Sprintf("%v", reason)
	values[fieldName] = d.evt.Name
	values[fieldPayload] = d.evt.Payload
	for k, v := range d.evt.Metadata {
		values[fieldMetaPrefix+k] = v
	}
	if err := d.t.client.XAdd(ctx, &redis.XAddArgs{Stream: dl, ID: "*", Values: values}).Err(); err != nil {
		return err
	}
	return d.Ack(ctx)
}

// decodeEvent rebuilds an event from stream entry values. The event ID is the
// producer-assigned one when present, else the stream entry ID.
func decodeEvent(entryID string, vals map[string]any) *xtheme.Event {
	evt := &xtheme.Event{ID: entryID, Metadata: make(map[string]string)}

	if v, ok := vals[fieldID]; ok {
		if s := asString(v); s != "" {
			evt.ID = s
		}
	}
	if v, ok := vals[fieldName]; ok {
		evt.Name = asString(v)
	}
	if v, ok := vals[fieldPayload]; ok {
		switch p := v.(type) {
		case []byte:
			evt.Payload = p
		case string:
			evt.Payload = []byte(p)
		}
	}
	if pa := vals[fieldProducedAt]; pa != nil {
		if ns, ok := toInt64(pa); ok && ns > 0 {
			evt.ProducedAt = time.Unix(0, ns)
		}
	}
	for k, v := range vals {
		if strings.HasPrefix(k, fieldMetaPrefix) {
			evt.Metadata[strings.TrimPrefix(k, fieldMetaPrefix)] = asString(v)
		}
	}
	return evt
}

func asString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case []byte:
		return string(s)
	default:
		return fmt.Sprintf("%v", s)
	}
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int32:
		return int64(n), true
	case int:
		return int64(n), true
	case float64:
		return int64(n), true
	case string:
		if n == "" {
			return 0, false
		}
		if i, err := strconv.ParseInt(n, 10, 64); err == nil {
			return i, true
		}
		if f, err := strconv.ParseFloat(n, 64); err == nil {
			return int64(f), true
		}
	case []byte:
		return toInt64(string(n))
	}
	return 0, false
}
