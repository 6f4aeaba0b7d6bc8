package sdk

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/trickstertwo/xtheme"
)

// ErrNoBus is returned by a BusEvents without a bus.
var ErrNoBus = errors.New("sdk: events bus unavailable")

var _ Events = (*BusEvents)(nil)

// BusEvents adapts an xtheme.Bus to Events. Each On call subscribes under its
// own consumer group, so subscribers never compete for an event.
type BusEvents struct {
	bus     *xtheme.Bus
	ctx     context.Context
	session string
}

// NewBusEvents binds bus to one page session. ctx scopes every subscription.
func NewBusEvents(ctx context.Context, bus *xtheme.Bus, session string) *BusEvents {
	if session == "" {
		session = uuid.NewString()
	}
	return &BusEvents{bus: bus, ctx: ctx, session: session}
}

// Session returns the page session tag stamped on emitted events.
func (e *BusEvents) Session() string { return e.session }

func (e *BusEvents) On(name string, handler xtheme.Handler) (xtheme.Subscription, error) {
	if e == nil || e.bus == nil {
		return nil, ErrNoBus
	}
	group := e.session + "/" + uuid.NewString()
	return e.bus.Subscribe(e.ctx, name, group, handler)
}

func (e *BusEvents) Emit(ctx context.Context, name string, payload any) error {
	if e == nil || e.bus == nil {
		return ErrNoBus
	}
	return e.bus.Publish(ctx, name, payload, map[string]string{
		"source":  "theme",
		"session": e.session,
	})
}

// Subscriptions collects subscription handles for teardown.
type Subscriptions struct {
	subs []xtheme.Subscription
}

// Add records sub when err is nil and passes err through.
func (s *Subscriptions) Add(sub xtheme.Subscription, err error) error {
	if err != nil {
		return err
	}
	if sub != nil {
		s.subs = append(s.subs, sub)
	}
	return nil
}

// Len reports the number of live subscriptions.
func (s *Subscriptions) Len() int { return len(s.subs) }

// Close closes every subscription in reverse order.
func (s *Subscriptions) Close() error {
	var errs []error
	for i := len(s.subs) - 1; i >= 0; i-- {
		if err := s.subs[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	s.subs = nil
	return errors.Join(errs...)
}
