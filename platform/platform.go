// Package platform implements the sdk capabilities locally: a notifier and
// an analytics tracker that record and log, and a scripted viewport that
// reports element visibility. The preview server, the simulator and the
// module tests all run against these.
package platform

import (
	"sync"

	"github.com/trickstertwo/xlog"

	"github.com/trickstertwo/xtheme/sdk"
)

// Severity of a user notification.
type Severity string

const (
	SeveritySuccess Severity = "success"
	SeverityInfo    Severity = "info"
	SeverityError   Severity = "error"
)

// Notice is one rendered notification.
type Notice struct {
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
}

var _ sdk.Notifier = (*Notices)(nil)

// Notices records every notification and logs it at info.
type Notices struct {
	logger *xlog.Logger

	mu  sync.Mutex
	all []Notice
}

// NewNotices returns an empty recorder. A nil logger uses xlog.Default().
func NewNotices(logger *xlog.Logger) *Notices {
	if logger == nil {
		logger = xlog.Default()
	}
	return &Notices{logger: logger}
}

func (n *Notices) Success(message string) { n.add(SeveritySuccess, message) }
func (n *Notices) Info(message string)    { n.add(SeverityInfo, message) }
func (n *Notices) Error(message string)   { n.add(SeverityError, message) }

func (n *Notices) add(sev Severity, message string) {
	n.mu.Lock()
	n.all = append(n.all, Notice{Severity: sev, Message: message})
	n.mu.Unlock()
	n.logger.Info().Str("severity", string(sev)).Str("message", message).Msg("notify")
}

// All returns a copy of the recorded notices, oldest first.
func (n *Notices) All() []Notice {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]Notice(nil), n.all...)
}

// Last returns the most recent notice.
func (n *Notices) Last() (Notice, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.all) == 0 {
		return Notice{}, false
	}
	return n.all[len(n.all)-1], true
}

// Reset forgets recorded notices.
func (n *Notices) Reset() {
	n.mu.Lock()
	n.all = nil
	n.mu.Unlock()
}

// Tracked is one analytics call.
type Tracked struct {
	Event string         `json:"event"`
	Props map[string]any `json:"props"`
}

var _ sdk.Tracker = (*Tracker)(nil)

// Tracker records analytics calls and logs them at debug.
type Tracker struct {
	logger *xlog.Logger

	mu  sync.Mutex
	all []Tracked
}

// NewTracker returns an empty tracker. A nil logger uses xlog.Default().
func NewTracker(logger *xlog.Logger) *Tracker {
	if logger == nil {
		logger = xlog.Default()
	}
	return &Tracker{logger: logger}
}

func (t *Tracker) Track(event string, props map[string]any) {
	t.mu.Lock()
	t.all = append(t.all, Tracked{Event: event, Props: props})
	t.mu.Unlock()
	t.logger.Debug().Str("event", event).Msg("track")
}

// Events returns a copy of the recorded calls, oldest first.
func (t *Tracker) Events() []Tracked {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Tracked(nil), t.all...)
}

// Named returns the recorded calls for event.
func (t *Tracker) Named(event string) []Tracked {
	t.mu.Lock()
	defer t.mu.Unlock()
	var out []Tracked
	for _, tr := range t.all {
		if tr.Event == event {
			out = append(out, tr)
		}
	}
	return out
}
