// Package events names the platform events the theme reacts to and decodes
// their payloads into validated, typed shapes.
package events

// Platform event names.
const (
	AuthLogin    = "auth::login"
	AuthLogout   = "auth::logout"
	AuthRegister = "auth::register"
	AuthError    = "auth::error"

	CartItemAdded     = "cart::item-added"
	CartItemRemoved   = "cart::item-removed"
	CartItemUpdated   = "cart::item-updated"
	CartUpdated       = "cart::updated"
	CartCleared       = "cart::cleared"
	CartCouponApplied = "cart::coupon-applied"
	CartCouponRemoved = "cart::coupon-removed"

	WishlistItemAdded   = "wishlist::item-added"
	WishlistItemRemoved = "wishlist::item-removed"
	WishlistUpdated     = "wishlist::updated"

	ProductQuickView           = "product::quick-view"
	ProductOptionsChanged      = "product::options-changed"
	ProductAvailabilityChecked = "product::availability-checked"

	SearchCompleted = "search::completed"

	CommentSubmitted = "comment::submitted"
	CommentUpdated   = "comment::updated"
	CommentDeleted   = "comment::deleted"

	RatingSubmitted = "rating::submitted"
	ReviewSubmitted = "review::submitted"

	LoyaltyPointsEarned   = "loyalty::points-earned"
	LoyaltyPointsRedeemed = "loyalty::points-redeemed"

	BookingCreated   = "booking::created"
	BookingUpdated   = "booking::updated"
	BookingCancelled = "booking::cancelled"

	ProfileUpdated         = "profile::updated"
	ProfilePasswordChanged = "profile::password-changed"
	ProfileAddressAdded    = "profile::address-added"
	ProfileAddressUpdated  = "profile::address-updated"
	ProfileAddressDeleted  = "profile::address-deleted"

	OrderCreated   = "order::created"
	OrderUpdated   = "order::updated"
	OrderCancelled = "order::cancelled"

	CurrencyChanged = "currency::changed"

	NewsletterSubscribed = "newsletter::subscribed"
	NotificationRead     = "notification::read"

	FiltersApplied = "filters::applied"
	ProductsSorted = "products::sorted"

	// Error is the platform's generic failure event.
	Error = "error"
)

// Events emitted by the theme itself.
const (
	CartDrawerOpen   = "cart-drawer::open"
	MobileMenuToggle = "mobile-menu::toggle"
)
