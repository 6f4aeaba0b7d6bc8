package xtheme

import (
	"strings"
	"time"
)

// Event is the envelope traveling the bus. The Payload is encoded via Codec.
type Event struct {
	ID         string            // Unique event identifier (transport may assign if empty)
	Name       string            // Namespaced event name, "domain::action"
	Payload    []byte            // Encoded payload; shape depends on Name
	Metadata   map[string]string // Headers (source, session, ...)
	ProducedAt time.Time         // Production timestamp (from injected clock)
}

// Domain returns the namespace part of the event name ("cart" for "cart::item-added").
// Names without a separator are their own domain ("error").
func (e *Event) Domain() string {
	if i := strings.Index(e.Name, "::"); i >= 0 {
		return e.Name[:i]
	}
	return e.Name
}

// PublishEvent describes a single event in a batch publish call.
type PublishEvent struct {
	Name    string
	Payload any
	Meta    map[string]string
}
