// Package notifications turns platform events into user-visible, translated
// messages.
package notifications

import (
	"context"
	"fmt"
	"sort"

	"github.com/trickstertwo/xlog"

	"github.com/trickstertwo/xtheme"
	"github.com/trickstertwo/xtheme/events"
	"github.com/trickstertwo/xtheme/sdk"
)

const Name = "notifications"

// State of one notification.
type State int

const (
	Idle State = iota
	Pending
	Displayed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Pending:
		return "pending"
	case Displayed:
		return "displayed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Notification is one message raised by an event.
type Notification struct {
	Seq      uint64
	Event    string
	Severity Severity
	Message  string
	State    State
}

const historySize = 64

// Dispatcher subscribes to every event of its rule table plus the failure events.
type Dispatcher struct {
	events   sdk.Events
	notifier sdk.Notifier
	tr       sdk.Translator
	rules    map[string]Rule
	logger   *xlog.Logger

	subs    sdk.Subscriptions
	seq     uint64
	history []Notification
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithRules replaces the rule table.
func WithRules(rules map[string]Rule) Option {
	return func(d *Dispatcher) {
		if rules != nil {
			d.rules = rules
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *xlog.Logger) Option {
	return func(d *Dispatcher) {
		if l != nil {
			d.logger = l
		}
	}
}

// New creates a dispatcher. notifier and tr may be nil: messages are then only
// logged, and keys are shown untranslated.
func New(ev sdk.Events, notifier sdk.Notifier, tr sdk.Translator, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		events:   ev,
		notifier: notifier,
		tr:       tr,
		rules:    DefaultRules(),
		logger:   xlog.Default(),
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

func (d *Dispatcher) Name() string { return Name }

func (d *Dispatcher) Init(context.Context) error {
	if d.events == nil {
		return nil
	}
	for _, name := range []string{events.Error, events.AuthError} {
		if err := d.subs.Add(d.events.On(name, d.onFailure)); err != nil {
			return err
		}
	}
	names := make([]string, 0, len(d.rules))
	for name := range d.rules {
		if name == events.Error || name == events.AuthError {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		rule := d.rules[name]
		if err := d.subs.Add(d.events.On(name, d.onRule(rule))); err != nil {
			return err
		}
	}
	return nil
}

func (d *Dispatcher) Close() error { return d.subs.Close() }

// History returns the most recent notifications, oldest first.
func (d *Dispatcher) History() []Notification {
	return append([]Notification(nil), d.history...)
}

func (d *Dispatcher) onRule(rule Rule) xtheme.Handler {
	return func(_ context.Context, evt *xtheme.Event) error {
		var vars map[string]any
		if rule.Vars != nil {
			vars = rule.Vars(evt.Payload)
		}
		d.raise(evt.Name, rule.Severity, d.trans(rule.Key, vars))
		return nil
	}
}

func (d *Dispatcher) onFailure(_ context.Context, evt *xtheme.Event) error {
	msg, ok := failureMessage(evt.Payload)
	if !ok {
		msg = d.trans(DefaultErrorKey, nil)
	}
	d.raise(evt.Name, Error, msg)
	return nil
}

func (d *Dispatcher) raise(event string, sev Severity, msg string) {
	d.seq++
	n := Notification{Seq: d.seq, Event: event, Severity: sev, Message: msg, State: Idle}

	n.State = Pending
	d.show(n)
	n.State = Displayed

	d.history = append(d.history, n)
	if len(d.history) > historySize {
		d.history = d.history[len(d.history)-historySize:]
	}
}

func (d *Dispatcher) show(n Notification) {
	d.logger.Debug().Str("event", n.Event).Str("severity", string(n.Severity)).Str("message", n.Message).Msg("notifications: show")
	if d.notifier == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error().Err(fmt.Errorf("%v", r)).Str("event", n.Event).Msg("notifications: notifier panic (recovered)")
		}
	}()
	switch n.Severity {
	case Success:
		d.notifier.Success(n.Message)
	case Error:
		d.notifier.Error(n.Message)
	default:
		d.notifier.Info(n.Message)
	}
}

func (d *Dispatcher) trans(key string, vars map[string]any) string {
	if d.tr == nil {
		return key
	}
	return d.tr.Trans(key, vars)
}
