package events

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/trickstertwo/xtheme"
)

// ErrMalformedPayload marks a payload that does not have the shape its event name requires.
var ErrMalformedPayload = errors.New("events: malformed payload")

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report JSON field names in errors.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Decode decodes evt into T with the codec found in ctx and validates it.
// Any failure wraps ErrMalformedPayload.
func Decode[T any](ctx context.Context, evt *xtheme.Event) (T, error) {
	v, err := xtheme.Decode[T](ctx, evt)
	if err != nil {
		return v, fmt.Errorf("%w: %s: %v", ErrMalformedPayload, evt.Name, err)
	}
	if err := check(&v); err != nil {
		return v, fmt.Errorf("%w: %s: %v", ErrMalformedPayload, evt.Name, err)
	}
	return v, nil
}

// Validate checks that payload, encoded with codec, fits the shape registered
// for name. Names without a registered shape accept any payload the codec can read.
func Validate(codec xtheme.Codec, name string, payload []byte) error {
	if codec == nil {
		codec = xtheme.JSONCodec{}
	}
	newShape, ok := shapes[name]
	if !ok {
		var anyv any
		if len(payload) == 0 {
			return nil
		}
		if err := codec.Unmarshal(payload, &anyv); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrMalformedPayload, name, err)
		}
		return nil
	}
	v := newShape()
	if err := codec.Unmarshal(payload, v); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrMalformedPayload, name, err)
	}
	if err := check(v); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrMalformedPayload, name, err)
	}
	return nil
}

// Typed reports whether name has a registered payload shape.
func Typed(name string) bool {
	_, ok := shapes[name]
	return ok
}

func check(v any) error {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return errors.New("nil payload")
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil
	}
	return validate.Struct(rv.Interface())
}

// shapes maps event names to their payload type.
var shapes = map[string]func() any{
	CartItemAdded:       func() any { return new(CartItem) },
	CartItemRemoved:     func() any { return new(CartItem) },
	CartItemUpdated:     func() any { return new(CartItem) },
	CartUpdated:         func() any { return new(CartUpdated) },
	WishlistItemAdded:   func() any { return new(WishlistItem) },
	WishlistItemRemoved: func() any { return new(WishlistItem) },
	WishlistUpdated:     func() any { return new(WishlistUpdated) },
	OrderCreated:        func() any { return new(Order) },
	ProductQuickView:    func() any { return new(Product) },
	SearchCompleted:     func() any { return new(SearchResults) },
	Error:               func() any { return new(Failure) },
	AuthError:           func() any { return new(Failure) },
}
