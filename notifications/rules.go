package notifications

import (
	"github.com/tidwall/gjson"

	"github.com/trickstertwo/xtheme/events"
)

// Severity selects the notifier method.
type Severity string

const (
	Success Severity = "success"
	Info    Severity = "info"
	Error   Severity = "error"
)

// Rule turns one event into a translated message.
type Rule struct {
	Severity Severity
	Key      string
	// Vars extracts placeholder values from the raw payload. Optional.
	Vars func(payload []byte) map[string]any
}

// DefaultErrorKey is shown for failures that carry no message.
const DefaultErrorKey = "common.error_occurred"

// DefaultRules returns the storefront notification table. Events missing
// from it, order::created among them, never notify.
func DefaultRules() map[string]Rule {
	points := scalarOr("points")
	return map[string]Rule{
		events.AuthLogin:    {Severity: Success, Key: "auth.login_success"},
		events.AuthLogout:   {Severity: Info, Key: "auth.logout_success"},
		events.AuthRegister: {Severity: Success, Key: "auth.register_success"},

		events.CartItemAdded:     {Severity: Success, Key: "cart.item_added"},
		events.CartItemRemoved:   {Severity: Success, Key: "cart.item_removed"},
		events.CartCleared:       {Severity: Success, Key: "cart.cleared"},
		events.CartCouponApplied: {Severity: Success, Key: "cart.coupon_applied"},
		events.CartCouponRemoved: {Severity: Info, Key: "cart.coupon_removed"},

		events.WishlistItemAdded:   {Severity: Success, Key: "wishlist.item_added"},
		events.WishlistItemRemoved: {Severity: Success, Key: "wishlist.item_removed"},

		events.CommentSubmitted: {Severity: Success, Key: "comment.submitted"},
		events.CommentUpdated:   {Severity: Success, Key: "comment.updated"},
		events.CommentDeleted:   {Severity: Success, Key: "comment.deleted"},
		events.RatingSubmitted:  {Severity: Success, Key: "rating.submitted"},
		events.ReviewSubmitted:  {Severity: Success, Key: "review.submitted"},

		events.LoyaltyPointsEarned:   {Severity: Success, Key: "loyalty.points_earned", Vars: points},
		events.LoyaltyPointsRedeemed: {Severity: Success, Key: "loyalty.points_redeemed", Vars: points},

		events.BookingCreated:   {Severity: Success, Key: "booking.created"},
		events.BookingUpdated:   {Severity: Success, Key: "booking.updated"},
		events.BookingCancelled: {Severity: Info, Key: "booking.cancelled"},

		events.ProfileUpdated:         {Severity: Success, Key: "profile.updated"},
		events.ProfilePasswordChanged: {Severity: Success, Key: "profile.password_changed"},
		events.ProfileAddressAdded:    {Severity: Success, Key: "profile.address_added"},
		events.ProfileAddressUpdated:  {Severity: Success, Key: "profile.address_updated"},
		events.ProfileAddressDeleted:  {Severity: Success, Key: "profile.address_deleted"},

		events.OrderCancelled:       {Severity: Info, Key: "order.cancelled"},
		events.NewsletterSubscribed: {Severity: Success, Key: "newsletter.subscribed"},
	}
}

// pick extracts top-level payload fields as vars. Missing fields are left out.
func pick(fields ...string) func([]byte) map[string]any {
	return func(payload []byte) map[string]any {
		if !gjson.ValidBytes(payload) {
			return nil
		}
		out := make(map[string]any, len(fields))
		for _, f := range fields {
			if r := gjson.GetBytes(payload, f); r.Exists() {
				out[f] = r.Value()
			}
		}
		return out
	}
}

// scalarOr uses a bare number or string payload as the value of field, and
// otherwise reads field from an object payload.
func scalarOr(field string) func([]byte) map[string]any {
	fromObject := pick(field)
	return func(payload []byte) map[string]any {
		if !gjson.ValidBytes(payload) {
			return nil
		}
		r := gjson.ParseBytes(payload)
		switch r.Type {
		case gjson.Number, gjson.String:
			return map[string]any{field: r.Value()}
		case gjson.JSON:
			return fromObject(payload)
		}
		return nil
	}
}

// failureMessage returns the message carried by a failure payload: a string
// payload or the "message" field.
func failureMessage(payload []byte) (string, bool) {
	if !gjson.ValidBytes(payload) {
		return "", false
	}
	r := gjson.ParseBytes(payload)
	if r.Type == gjson.String && r.String() != "" {
		return r.String(), true
	}
	if m := r.Get("message"); m.Type == gjson.String && m.String() != "" {
		return m.String(), true
	}
	return "", false
}
