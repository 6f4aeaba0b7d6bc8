package events

import (
	"bytes"
	"encoding/json"

	"github.com/shopspring/decimal"

	"github.com/trickstertwo/xtheme/sdk"
)

// ID is a platform identifier. The platform sends both numbers and strings.
type ID string

func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*id = ID(n.String())
	return nil
}

func (id ID) String() string { return string(id) }

// CartSummary is the cart snapshot attached to cart item events.
type CartSummary struct {
	ItemsCount *int             `json:"items_count" validate:"required"`
	Total      *decimal.Decimal `json:"total,omitempty"`
}

// CartItem is the payload of cart::item-added, item-removed and item-updated.
type CartItem struct {
	Cart *CartSummary `json:"cart" validate:"required"`
}

// CartUpdated is the payload of cart::updated.
type CartUpdated struct {
	ItemsCount *int             `json:"items_count" validate:"required"`
	Total      *decimal.Decimal `json:"total,omitempty"`
}

// WishlistItem is the payload of wishlist::item-added and item-removed.
type WishlistItem struct {
	Count *int `json:"count" validate:"required"`
}

// WishlistUpdated is the payload of wishlist::updated.
type WishlistUpdated struct {
	ItemsCount *int `json:"items_count" validate:"required"`
}

// Failure is the payload of error and auth::error.
type Failure struct {
	Message string `json:"message"`
}

// Order is the payload of order::created.
type Order struct {
	ID       ID                `json:"id" validate:"required"`
	Total    decimal.Decimal   `json:"total"`
	Currency string            `json:"currency" validate:"required,len=3"`
	Items    []json.RawMessage `json:"items"`
}

// Product is the payload of product::quick-view.
type Product struct {
	ID    ID              `json:"id" validate:"required"`
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}

// SearchResults is the payload of search::completed.
type SearchResults = sdk.SearchResults

// Count returns *p, or 0 for nil.
func Count(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}
