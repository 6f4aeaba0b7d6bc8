package xtheme

import (
	"errors"
	"fmt"
)

type ErrUnknownTransport struct{ name string }

func (e ErrUnknownTransport) Error() string { return fmt.Sprintf("unknown transport: %s", e.name) }

var (
	ErrBusClosed                   = errors.New("xtheme: bus is closed")
	ErrInvalidEventName            = errors.New("xtheme: event name must not be empty")
	ErrInvalidSubscription         = errors.New("xtheme: subscription requires name, group and handler")
	ErrNoTransportConfigured       = errors.New("xtheme: no transport configured")
	ErrHandlerPanic                = errors.New("xtheme: handler panic")
	ErrObserverPoolShutdownTimeout = errors.New("xtheme: observer pool shutdown timed out")
)
