package services

import "errors"

// Validation errors. They are returned before anything is written.
var (
	ErrEmptyCart                = errors.New("cart is empty")
	ErrInvalidQuantity          = errors.New("quantity must be between 1 and 1000")
	ErrInvalidPrice             = errors.New("dish price resolves below zero")
	ErrDishNotFound             = errors.New("dish not found")
	ErrVariantNotFound          = errors.New("variant not found")
	ErrModifierNotFound         = errors.New("modifier not found")
	ErrInvalidOrderType         = errors.New("unknown order type")
	ErrMissingAddressContext    = errors.New("delivery requires a zone or a branch")
	ErrMissingBranch            = errors.New("pickup requires a branch")
	ErrZoneNotFound             = errors.New("zone not found")
	ErrBranchNotFound           = errors.New("branch not found")
	ErrCustomerIdentityRequired = errors.New("customer id or phone is required")
	ErrBelowMinimumOrder        = errors.New("order is below the zone minimum")
	ErrInvalidStatus            = errors.New("unknown order status")
)

var (
	ErrOrderNotFound = errors.New("order not found")
	ErrNoPickupCode  = errors.New("order has no pickup code")

	// ErrPromoConflict means the promo ran out of uses while the order was being placed.
	ErrPromoConflict = errors.New("promo code usage limit reached, retry")
)

// IsValidation reports whether err is a client-side validation failure.
func IsValidation(err error) bool {
	for _, target := range []error{
		ErrEmptyCart, ErrInvalidQuantity, ErrInvalidPrice, ErrDishNotFound, ErrVariantNotFound,
		ErrModifierNotFound, ErrInvalidOrderType, ErrMissingAddressContext, ErrMissingBranch,
		ErrZoneNotFound, ErrBranchNotFound, ErrCustomerIdentityRequired, ErrBelowMinimumOrder,
		ErrInvalidStatus,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
