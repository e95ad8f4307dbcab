// internal/domain/welcomegift/errors.go
package welcomegift

import (
	"errors"

	"github.com/your-org/beauty-store-backend/internal/domain/cart"
)

var (
	ErrInvalidInput        = errors.New("invalid input")
	ErrInvalidSession      = errors.New("invalid session")
	ErrInvalidAnonymousID  = errors.New("invalid or expired anonymous id")
	ErrGiftNotFound        = errors.New("welcome gift not found")
	ErrGiftInactive        = errors.New("welcome gift is not active")
	ErrAlreadyClaimed      = errors.New("welcome gift already claimed")
	ErrDuplicateOrder      = errors.New("a gift with this order already exists")
	ErrDuplicateCouponCode = errors.New("a gift with this coupon code already exists")
	ErrGiftHasClaims       = errors.New("cannot delete a gift that has been claimed")
	ErrCartMismatch        = errors.New("cart total mismatch")
	ErrGiftNotClaimed      = errors.New("welcome gift not claimed")
	ErrAlreadyRedeemed     = errors.New("welcome gift already redeemed")
	ErrMinOrderNotMet      = errors.New("minimum order amount not met")
	ErrInsufficientItems   = errors.New("not enough items for this offer")
	ErrNoUnusedReward      = errors.New("no unused welcome gift found")
	ErrRewardAlreadyUsed   = errors.New("welcome gift already used")

	// ErrInvalidCart is shared with the cart pricer so callers can test for either.
	ErrInvalidCart = cart.ErrInvalidCart
)
