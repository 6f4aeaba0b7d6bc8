package events

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trickstertwo/xtheme"
)

func event(name, payload string) *xtheme.Event {
	return &xtheme.Event{Name: name, Payload: []byte(payload)}
}

func TestDecode_CartItem(t *testing.T) {
	p, err := Decode[CartItem](context.Background(), event(CartItemAdded, `{"cart":{"items_count":3,"total":"149.50"}}`))
	require.NoError(t, err)
	require.NotNil(t, p.Cart)
	assert.Equal(t, 3, Count(p.Cart.ItemsCount))
	assert.True(t, p.Cart.Total.Equal(decimal.RequireFromString("149.5")))
}

func TestDecode_RejectsMissingFields(t *testing.T) {
	cases := map[string]struct {
		name    string
		payload string
	}{
		"cart missing":        {CartItemAdded, `{}`},
		"items_count missing": {CartItemAdded, `{"cart":{}}`},
		"wrong type":          {CartItemAdded, `{"cart":{"items_count":"three"}}`},
		"not json":            {CartUpdated, `not json`},
		"null":                {WishlistItemAdded, `null`},
		"empty":               {WishlistUpdated, ``},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			var err error
			switch tc.name {
			case CartItemAdded:
				_, err = Decode[CartItem](context.Background(), event(tc.name, tc.payload))
			case CartUpdated:
				_, err = Decode[CartUpdated](context.Background(), event(tc.name, tc.payload))
			case WishlistItemAdded:
				_, err = Decode[WishlistItem](context.Background(), event(tc.name, tc.payload))
			case WishlistUpdated:
				_, err = Decode[WishlistUpdated](context.Background(), event(tc.name, tc.payload))
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrMalformedPayload)
		})
	}
}

func TestDecode_ZeroAndNegativeCountsAreWellFormed(t *testing.T) {
	p, err := Decode[WishlistItem](context.Background(), event(WishlistItemAdded, `{"count":0}`))
	require.NoError(t, err)
	assert.Equal(t, 0, Count(p.Count))

	p, err = Decode[WishlistItem](context.Background(), event(WishlistItemRemoved, `{"count":-1}`))
	require.NoError(t, err)
	assert.Equal(t, -1, Count(p.Count))
}

func TestDecode_Order(t *testing.T) {
	o, err := Decode[Order](context.Background(), event(OrderCreated,
		`{"id":"A1","total":150,"currency":"SAR","items":[{"id":1},{"id":2}]}`))
	require.NoError(t, err)
	assert.Equal(t, ID("A1"), o.ID)
	assert.True(t, o.Total.Equal(decimal.NewFromInt(150)))
	assert.Equal(t, "SAR", o.Currency)
	assert.Len(t, o.Items, 2)

	o, err = Decode[Order](context.Background(), event(OrderCreated, `{"id":42,"total":"10.25","currency":"USD"}`))
	require.NoError(t, err)
	assert.Equal(t, "42", o.ID.String())

	_, err = Decode[Order](context.Background(), event(OrderCreated, `{"id":"A1","currency":"RIYAL"}`))
	assert.ErrorIs(t, err, ErrMalformedPayload)
}

func TestValidate(t *testing.T) {
	c := xtheme.JSONCodec{}
	assert.NoError(t, Validate(c, CartUpdated, []byte(`{"items_count":1}`)))
	assert.ErrorIs(t, Validate(c, CartUpdated, []byte(`{"total":1}`)), ErrMalformedPayload)

	// untyped names accept any JSON
	assert.False(t, Typed(NewsletterSubscribed))
	assert.NoError(t, Validate(c, NewsletterSubscribed, []byte(`{"email":"a@b.c"}`)))
	assert.NoError(t, Validate(nil, CartCleared, nil))
	assert.ErrorIs(t, Validate(c, CartCleared, []byte(`{`)), ErrMalformedPayload)
}

func TestID_UnmarshalJSON(t *testing.T) {
	var id ID
	require.NoError(t, id.UnmarshalJSON([]byte(`"x-1"`)))
	assert.Equal(t, ID("x-1"), id)
	require.NoError(t, id.UnmarshalJSON([]byte(`17`)))
	assert.Equal(t, ID("17"), id)
	require.NoError(t, id.UnmarshalJSON([]byte(`null`)))
	assert.Equal(t, ID(""), id)
	assert.Error(t, id.UnmarshalJSON([]byte(`{}`)))
}
