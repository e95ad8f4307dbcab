// internal/domain/welcomegift/redemption.go
package welcomegift

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/sirupsen/logrus"
	"github.com/your-org/beauty-store-backend/internal/domain/cart"
	"github.com/your-org/beauty-store-backend/internal/domain/product"
	"gorm.io/gorm"
)

// ValidateCouponRequest is submitted at checkout when a welcome-gift code is applied.
// OrderAmount is the client's cart total in paise and is only used as a tamper check.
type ValidateCouponRequest struct {
	CouponCode  string      `json:"couponCode" binding:"required,couponcode"`
	OrderAmount int64       `json:"orderAmount" binding:"gt=0"`
	CartItems   []cart.Line `json:"cartItems" binding:"required,min=1,dive"`
	AnonymousID string      `json:"anonymousId"`
}

// CouponValidation is the server-computed outcome of applying a gift to a cart
type CouponValidation struct {
	Valid          bool       `json:"valid"`
	RewardID       uint       `json:"rewardId"`
	GiftID         uint       `json:"giftId"`
	CouponCode     string     `json:"couponCode"`
	RewardType     RewardType `json:"rewardType"`
	CartTotal      int64      `json:"cartTotal"`
	ShippingFee    int64      `json:"shippingFee"`
	DiscountAmount int64      `json:"discountAmount"`
	FinalAmount    int64      `json:"finalAmount"`
	Reason         string     `json:"reason"`
	Migrated       bool       `json:"migrated,omitempty"`
}

// MarkUsedRequest identifies which reward to redeem. Both fields are optional.
type MarkUsedRequest struct {
	CouponCode string `json:"couponCode" binding:"omitempty,couponcode"`
	OrderRef   string `json:"orderRef" binding:"omitempty,max=100"`
}

// ValidateCoupon re-prices the cart, checks the user holds an unused reward for the
// gift behind couponCode, and computes the discount. It does not consume the reward.
func (s *Service) ValidateCoupon(ctx context.Context, userID uint, req *ValidateCouponRequest) (*CouponValidation, error) {
	if err := validateStruct(req); err != nil {
		couponValidationsTotal.WithLabelValues(outcomeRejected).Inc()
		return nil, err
	}
	code := normalizeCouponCode(req.CouponCode)

	var result *CouponValidation
	err := s.inTx(ctx, func(tx *gorm.DB) error {
		snap, err := s.pricer.Price(tx, req.CartItems)
		if err != nil {
			if errors.Is(err, product.ErrProductNotFound) || errors.Is(err, product.ErrVariantNotFound) {
				return fmt.Errorf("%w: %w", ErrInvalidCart, err)
			}
			return err
		}

		if diff := snap.SubTotal - req.OrderAmount; diff > s.config.CartTolerance || -diff > s.config.CartTolerance {
			return fmt.Errorf("%w: submitted %d, calculated %d", ErrCartMismatch, req.OrderAmount, snap.SubTotal)
		}

		var gift Gift
		err = tx.Where("coupon_code = ?", code).First(&gift).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: %s", ErrGiftNotFound, code)
		}
		if err != nil {
			return fmt.Errorf("failed to load welcome gift: %w", err)
		}

		reward, migrated, err := s.findRewardForGift(tx, userID, gift.ID, req.AnonymousID)
		if err != nil {
			return err
		}
		if reward == nil {
			if !gift.IsActive {
				return ErrGiftInactive
			}
			return ErrGiftNotClaimed
		}
		if reward.IsUsed {
			return ErrAlreadyRedeemed
		}

		if snap.SubTotal < gift.MinOrderAmount {
			return fmt.Errorf("%w: add %s more to use this offer (minimum %s)",
				ErrMinOrderNotMet, formatRupees(gift.MinOrderAmount-snap.SubTotal), formatRupees(gift.MinOrderAmount))
		}

		shippingFee := s.shipping.Fee(snap.SubTotal)
		discount, reason, err := s.discountFor(&gift, snap, shippingFee)
		if err != nil {
			return err
		}

		final := snap.SubTotal + shippingFee - discount
		if final < 0 {
			final = 0
		}
		result = &CouponValidation{
			Valid:          true,
			RewardID:       reward.ID,
			GiftID:         gift.ID,
			CouponCode:     gift.CouponCode,
			RewardType:     gift.RewardType,
			CartTotal:      snap.SubTotal,
			ShippingFee:    shippingFee,
			DiscountAmount: discount,
			FinalAmount:    final,
			Reason:         reason,
			Migrated:       migrated,
		}
		return nil
	})
	if err != nil {
		couponValidationsTotal.WithLabelValues(outcomeOf(err)).Inc()
		return nil, err
	}

	couponValidationsTotal.WithLabelValues(outcomeSuccess).Inc()
	return result, nil
}

// findRewardForGift returns the user's reward for giftID, preferring an unused one.
// When the user holds nothing and anonymousID is valid, an unused anonymous reward
// for the same gift is migrated in the caller's transaction.
func (s *Service) findRewardForGift(tx *gorm.DB, userID, giftID uint, anonymousID string) (*UserReward, bool, error) {
	var reward UserReward
	err := tx.Where("user_id = ? AND gift_id = ?", userID, giftID).
		Order("is_used ASC, claimed_at DESC").
		First(&reward).Error
	if err == nil {
		return &reward, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, fmt.Errorf("failed to load reward: %w", err)
	}

	if anonymousID == "" || !s.identity.Validate(anonymousID) {
		return nil, false, nil
	}
	moved, err := s.migrateInTx(tx, anonymousID, userID, giftID)
	if err != nil {
		return nil, false, err
	}
	if moved == nil {
		return nil, false, nil
	}

	migrationsTotal.WithLabelValues(outcomeSuccess).Inc()
	s.log.WithFields(logrus.Fields{
		"user_id":   userID,
		"reward_id": moved.ID,
	}).Info("anonymous welcome gift migrated during checkout")
	return moved, true, nil
}

// discountFor computes the discount in paise for gift against the priced cart.
func (s *Service) discountFor(gift *Gift, snap *cart.Snapshot, shippingFee int64) (int64, string, error) {
	total := snap.SubTotal

	switch gift.RewardType {
	case RewardPercentage:
		discount := int64(math.Round(float64(total) * gift.RewardValue / 100))
		reason := fmt.Sprintf("%s off your order", formatPercent(gift.RewardValue))
		if gift.MaxDiscount != nil && discount > *gift.MaxDiscount {
			discount = *gift.MaxDiscount
			reason += fmt.Sprintf(" (capped at %s)", formatRupees(*gift.MaxDiscount))
		}
		return minInt64(discount, total), reason, nil

	case RewardFixedAmount:
		discount := minInt64(int64(math.Round(gift.RewardValue)), total)
		return discount, fmt.Sprintf("%s off your order", formatRupees(discount)), nil

	case RewardFreeShipping:
		if shippingFee == 0 {
			return 0, "Your order already ships free", nil
		}
		return shippingFee, "Free shipping on this order", nil

	case RewardBuyOneGetOne:
		if snap.TotalQuantity < s.config.BogoMinItems {
			missing := s.config.BogoMinItems - snap.TotalQuantity
			return 0, "", fmt.Errorf("%w: add %d more item(s) to your cart (minimum %d)",
				ErrInsufficientItems, missing, s.config.BogoMinItems)
		}
		return snap.CheapestUnitPrice(), "Buy one get one: cheapest item free", nil
	}

	return 0, "", fmt.Errorf("unknown reward type %q on gift %d", gift.RewardType, gift.ID)
}

// MarkUsed redeems the user's unused reward once the order is placed.
func (s *Service) MarkUsed(ctx context.Context, userID uint, req *MarkUsedRequest) (*UserReward, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	code := normalizeCouponCode(req.CouponCode)

	var reward UserReward
	err := s.inTx(ctx, func(tx *gorm.DB) error {
		scope := func() *gorm.DB {
			q := tx.Model(&UserReward{}).Where("user_id = ?", userID)
			if code != "" {
				q = q.Where("reward_coupon_code = ?", code)
			}
			return q
		}

		err := scope().Where("is_used = ?", false).Order("claimed_at ASC").First(&reward).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			var used int64
			if err := scope().Where("is_used = ?", true).Count(&used).Error; err != nil {
				return fmt.Errorf("failed to check used rewards: %w", err)
			}
			if used > 0 {
				return ErrRewardAlreadyUsed
			}
			return ErrNoUnusedReward
		}
		if err != nil {
			return fmt.Errorf("failed to load reward: %w", err)
		}

		now := s.now()
		res := tx.Model(&UserReward{}).
			Where("id = ? AND is_used = ?", reward.ID, false).
			Updates(map[string]interface{}{
				"is_used":        true,
				"used_at":        now,
				"used_order_ref": req.OrderRef,
			})
		if res.Error != nil {
			return fmt.Errorf("failed to mark reward used: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrRewardAlreadyUsed
		}

		reward.IsUsed = true
		reward.UsedAt = &now
		reward.UsedOrderRef = req.OrderRef
		return nil
	})
	if err != nil {
		markUsedTotal.WithLabelValues(outcomeOf(err)).Inc()
		return nil, err
	}

	markUsedTotal.WithLabelValues(outcomeSuccess).Inc()
	s.log.WithFields(logrus.Fields{
		"user_id":   userID,
		"reward_id": reward.ID,
		"order_ref": req.OrderRef,
	}).Info("welcome gift redeemed")
	return &reward, nil
}

func minInt64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}

func formatRupees(paise int64) string {
	if paise%100 == 0 {
		return fmt.Sprintf("₹%d", paise/100)
	}
	return fmt.Sprintf("₹%.2f", float64(paise)/100)
}

func formatPercent(v float64) string {
	if v == math.Trunc(v) {
		return fmt.Sprintf("%d%%", int64(v))
	}
	return fmt.Sprintf("%.1f%%", v)
}
