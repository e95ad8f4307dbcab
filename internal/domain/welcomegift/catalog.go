// internal/domain/welcomegift/catalog.go
package welcomegift

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// CreateGiftRequest represents gift creation data
type CreateGiftRequest struct {
	Title          string     `json:"title" binding:"required,max=100"`
	Description    string     `json:"description" binding:"max=500"`
	Icon           string     `json:"icon" binding:"max=50"`
	Color          string     `json:"color" binding:"max=50"`
	RewardText     string     `json:"rewardText" binding:"required,max=200"`
	CouponCode     string     `json:"couponCode" binding:"required,couponcode"`
	Order          int        `json:"order" binding:"required,min=1"`
	RewardType     RewardType `json:"rewardType" binding:"required,oneof=percentage fixed_amount buy_one_get_one free_shipping"`
	RewardValue    float64    `json:"rewardValue" binding:"gte=0"`
	MaxDiscount    *int64     `json:"maxDiscount"`
	MinOrderAmount int64      `json:"minOrderAmount" binding:"gte=0"`
	IsActive       *bool      `json:"isActive"`
}

// UpdateGiftRequest represents a partial gift update
type UpdateGiftRequest struct {
	Title          *string     `json:"title" binding:"omitempty,min=1,max=100"`
	Description    *string     `json:"description" binding:"omitempty,max=500"`
	Icon           *string     `json:"icon" binding:"omitempty,max=50"`
	Color          *string     `json:"color" binding:"omitempty,max=50"`
	RewardText     *string     `json:"rewardText" binding:"omitempty,min=1,max=200"`
	CouponCode     *string     `json:"couponCode" binding:"omitempty,couponcode"`
	Order          *int        `json:"order" binding:"omitempty,min=1"`
	RewardType     *RewardType `json:"rewardType" binding:"omitempty,oneof=percentage fixed_amount buy_one_get_one free_shipping"`
	RewardValue    *float64    `json:"rewardValue" binding:"omitempty,gte=0"`
	MaxDiscount    *int64      `json:"maxDiscount"`
	ClearMaxCap    bool        `json:"clearMaxDiscount"`
	MinOrderAmount *int64      `json:"minOrderAmount" binding:"omitempty,gte=0"`
	IsActive       *bool       `json:"isActive"`
}

// ReorderItem assigns a display order to one gift
type ReorderItem struct {
	ID    uint `json:"id" binding:"required"`
	Order int  `json:"order" binding:"required,min=1"`
}

// ReorderRequest represents a bulk reorder
type ReorderRequest struct {
	Gifts []ReorderItem `json:"gifts" binding:"required,min=1,dive"`
}

// GiftStats is the per-gift slice of the analytics report
type GiftStats struct {
	GiftID         uint       `json:"giftId"`
	Title          string     `json:"title"`
	CouponCode     string     `json:"couponCode"`
	RewardType     RewardType `json:"rewardType"`
	IsActive       bool       `json:"isActive"`
	UsageCount     int64      `json:"usageCount"`
	Claims         int64      `json:"claims"`
	Redeemed       int64      `json:"redeemed"`
	ConversionRate float64    `json:"conversionRate"`
}

// Analytics summarises claims and redemptions across the catalogue
type Analytics struct {
	TotalGifts      int64       `json:"totalGifts"`
	ActiveGifts     int64       `json:"activeGifts"`
	TotalClaims     int64       `json:"totalClaims"`
	TotalRedeemed   int64       `json:"totalRedeemed"`
	UserClaims      int64       `json:"userClaims"`
	AnonymousClaims int64       `json:"anonymousClaims"`
	MigratedClaims  int64       `json:"migratedClaims"`
	ConversionRate  float64     `json:"conversionRate"`
	Gifts           []GiftStats `json:"gifts"`
}

// ListActiveGifts returns active gifts in display order. The result is cached
// when a cache is configured.
func (s *Service) ListActiveGifts(ctx context.Context) ([]Gift, error) {
	if s.cache != nil {
		var cached []Gift
		hit, err := s.cache.GetJSON(ctx, activeGiftsCacheKey, &cached)
		if err != nil {
			s.log.WithError(err).Warn("welcome gift cache read failed")
		} else if hit {
			return cached, nil
		}
	}

	var gifts []Gift
	err := s.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("display_order ASC").
		Find(&gifts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list welcome gifts: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.SetJSON(ctx, activeGiftsCacheKey, gifts, s.config.CatalogCacheTTL); err != nil {
			s.log.WithError(err).Warn("welcome gift cache write failed")
		}
	}
	return gifts, nil
}

// ListAllGifts returns every gift, active or not, in display order
func (s *Service) ListAllGifts(ctx context.Context) ([]Gift, error) {
	var gifts []Gift
	if err := s.db.WithContext(ctx).Order("display_order ASC").Find(&gifts).Error; err != nil {
		return nil, fmt.Errorf("failed to list welcome gifts: %w", err)
	}
	return gifts, nil
}

// GetGift returns a gift by id
func (s *Service) GetGift(ctx context.Context, id uint) (*Gift, error) {
	return findGift(s.db.WithContext(ctx), id)
}

// CreateGift adds a gift to the catalogue
func (s *Service) CreateGift(ctx context.Context, req *CreateGiftRequest) (*Gift, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	if err := validateRewardValue(req.RewardType, req.RewardValue, req.MaxDiscount); err != nil {
		return nil, err
	}

	gift := Gift{
		Title:          req.Title,
		Description:    req.Description,
		Icon:           req.Icon,
		Color:          req.Color,
		RewardText:     req.RewardText,
		CouponCode:     normalizeCouponCode(req.CouponCode),
		DisplayOrder:   req.Order,
		RewardType:     req.RewardType,
		RewardValue:    req.RewardValue,
		MaxDiscount:    req.MaxDiscount,
		MinOrderAmount: req.MinOrderAmount,
		IsActive:       req.IsActive == nil || *req.IsActive,
	}

	err := s.inTx(ctx, func(tx *gorm.DB) error {
		if err := ensureUnique(tx, 0, gift.DisplayOrder, gift.CouponCode); err != nil {
			return err
		}
		if err := tx.Create(&gift).Error; err != nil {
			if isDuplicateKey(err) {
				return ErrDuplicateCouponCode
			}
			return fmt.Errorf("failed to create welcome gift: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidateCatalog(ctx)
	s.log.WithFields(logrus.Fields{"gift_id": gift.ID, "coupon_code": gift.CouponCode}).Info("welcome gift created")
	return &gift, nil
}

// UpdateGift applies a partial update. Order and coupon code stay unique.
func (s *Service) UpdateGift(ctx context.Context, id uint, req *UpdateGiftRequest) (*Gift, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}

	var gift *Gift
	err := s.inTx(ctx, func(tx *gorm.DB) error {
		var err error
		gift, err = findGift(s.forUpdate(tx), id)
		if err != nil {
			return err
		}

		applyGiftUpdate(gift, req)
		if err := validateRewardValue(gift.RewardType, gift.RewardValue, gift.MaxDiscount); err != nil {
			return err
		}
		if err := ensureUnique(tx, gift.ID, gift.DisplayOrder, gift.CouponCode); err != nil {
			return err
		}

		if err := tx.Save(gift).Error; err != nil {
			if isDuplicateKey(err) {
				return ErrDuplicateCouponCode
			}
			return fmt.Errorf("failed to update welcome gift: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidateCatalog(ctx)
	return gift, nil
}

func applyGiftUpdate(g *Gift, req *UpdateGiftRequest) {
	if req.Title != nil {
		g.Title = *req.Title
	}
	if req.Description != nil {
		g.Description = *req.Description
	}
	if req.Icon != nil {
		g.Icon = *req.Icon
	}
	if req.Color != nil {
		g.Color = *req.Color
	}
	if req.RewardText != nil {
		g.RewardText = *req.RewardText
	}
	if req.CouponCode != nil {
		g.CouponCode = normalizeCouponCode(*req.CouponCode)
	}
	if req.Order != nil {
		g.DisplayOrder = *req.Order
	}
	if req.RewardType != nil {
		g.RewardType = *req.RewardType
	}
	if req.RewardValue != nil {
		g.RewardValue = *req.RewardValue
	}
	if req.ClearMaxCap {
		g.MaxDiscount = nil
	} else if req.MaxDiscount != nil {
		g.MaxDiscount = req.MaxDiscount
	}
	if req.MinOrderAmount != nil {
		g.MinOrderAmount = *req.MinOrderAmount
	}
	if req.IsActive != nil {
		g.IsActive = *req.IsActive
	}
}

// DeleteGift removes a gift that nobody has claimed. Claimed gifts can only be deactivated.
func (s *Service) DeleteGift(ctx context.Context, id uint) error {
	err := s.inTx(ctx, func(tx *gorm.DB) error {
		gift, err := findGift(s.forUpdate(tx), id)
		if err != nil {
			return err
		}

		var claims int64
		if err := tx.Model(&UserReward{}).Where("gift_id = ?", gift.ID).Count(&claims).Error; err != nil {
			return fmt.Errorf("failed to count claims: %w", err)
		}
		if claims > 0 {
			return fmt.Errorf("%w: %d claim(s) reference it, deactivate it instead", ErrGiftHasClaims, claims)
		}

		if err := tx.Delete(gift).Error; err != nil {
			return fmt.Errorf("failed to delete welcome gift: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.invalidateCatalog(ctx)
	s.log.WithField("gift_id", id).Info("welcome gift deleted")
	return nil
}

// ToggleGift flips the active flag. Existing claims are unaffected.
func (s *Service) ToggleGift(ctx context.Context, id uint) (*Gift, error) {
	var gift *Gift
	err := s.inTx(ctx, func(tx *gorm.DB) error {
		var err error
		gift, err = findGift(s.forUpdate(tx), id)
		if err != nil {
			return err
		}

		gift.IsActive = !gift.IsActive
		if err := tx.Model(gift).Update("is_active", gift.IsActive).Error; err != nil {
			return fmt.Errorf("failed to toggle welcome gift: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidateCatalog(ctx)
	return gift, nil
}

// ReorderGifts assigns new display orders in one transaction. Gifts are
// first parked on negative orders so swaps never trip the unique index.
func (s *Service) ReorderGifts(ctx context.Context, req *ReorderRequest) ([]Gift, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}

	ids := make([]uint, 0, len(req.Gifts))
	orders := make([]int, 0, len(req.Gifts))
	seenID := make(map[uint]bool, len(req.Gifts))
	seenOrder := make(map[int]bool, len(req.Gifts))
	for _, item := range req.Gifts {
		if seenID[item.ID] {
			return nil, fmt.Errorf("%w: gift %d listed more than once", ErrInvalidInput, item.ID)
		}
		if seenOrder[item.Order] {
			return nil, fmt.Errorf("%w: order %d assigned more than once", ErrDuplicateOrder, item.Order)
		}
		seenID[item.ID] = true
		seenOrder[item.Order] = true
		ids = append(ids, item.ID)
		orders = append(orders, item.Order)
	}

	var gifts []Gift
	err := s.inTx(ctx, func(tx *gorm.DB) error {
		var found int64
		if err := tx.Model(&Gift{}).Where("id IN ?", ids).Count(&found).Error; err != nil {
			return fmt.Errorf("failed to load gifts: %w", err)
		}
		if found != int64(len(ids)) {
			return fmt.Errorf("%w: one or more gifts do not exist", ErrGiftNotFound)
		}

		var clash int64
		err := tx.Model(&Gift{}).
			Where("id NOT IN ? AND display_order IN ?", ids, orders).
			Count(&clash).Error
		if err != nil {
			return fmt.Errorf("failed to check order conflicts: %w", err)
		}
		if clash > 0 {
			return fmt.Errorf("%w: order already used by a gift not being reordered", ErrDuplicateOrder)
		}

		for i, item := range req.Gifts {
			if err := tx.Model(&Gift{}).Where("id = ?", item.ID).Update("display_order", -(i + 1)).Error; err != nil {
				return fmt.Errorf("failed to park gift %d: %w", item.ID, err)
			}
		}
		for _, item := range req.Gifts {
			if err := tx.Model(&Gift{}).Where("id = ?", item.ID).Update("display_order", item.Order).Error; err != nil {
				return fmt.Errorf("failed to reorder gift %d: %w", item.ID, err)
			}
		}

		return tx.Order("display_order ASC").Find(&gifts).Error
	})
	if err != nil {
		return nil, err
	}

	s.invalidateCatalog(ctx)
	return gifts, nil
}

// GetAnalytics reports claim and redemption counts per gift and overall
func (s *Service) GetAnalytics(ctx context.Context) (*Analytics, error) {
	db := s.db.WithContext(ctx)

	var gifts []Gift
	if err := db.Order("display_order ASC").Find(&gifts).Error; err != nil {
		return nil, fmt.Errorf("failed to list welcome gifts: %w", err)
	}

	type giftRow struct {
		GiftID   uint
		Claims   int64
		Redeemed int64
	}
	var rows []giftRow
	err := db.Model(&UserReward{}).
		Select("gift_id, COUNT(*) AS claims, SUM(CASE WHEN is_used = ? THEN 1 ELSE 0 END) AS redeemed", true).
		Group("gift_id").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate claims: %w", err)
	}
	byGift := make(map[uint]giftRow, len(rows))
	for _, r := range rows {
		byGift[r.GiftID] = r
	}

	report := &Analytics{
		TotalGifts: int64(len(gifts)),
		Gifts:      make([]GiftStats, 0, len(gifts)),
	}
	for _, g := range gifts {
		r := byGift[g.ID]
		if g.IsActive {
			report.ActiveGifts++
		}
		report.TotalClaims += r.Claims
		report.TotalRedeemed += r.Redeemed
		report.Gifts = append(report.Gifts, GiftStats{
			GiftID:         g.ID,
			Title:          g.Title,
			CouponCode:     g.CouponCode,
			RewardType:     g.RewardType,
			IsActive:       g.IsActive,
			UsageCount:     g.UsageCount,
			Claims:         r.Claims,
			Redeemed:       r.Redeemed,
			ConversionRate: rate(r.Redeemed, r.Claims),
		})
	}
	report.ConversionRate = rate(report.TotalRedeemed, report.TotalClaims)

	counts := []struct {
		dest  *int64
		where string
	}{
		{&report.UserClaims, "user_id IS NOT NULL"},
		{&report.AnonymousClaims, "anonymous_id IS NOT NULL"},
		{&report.MigratedClaims, "migrated_at IS NOT NULL"},
	}
	for _, c := range counts {
		if err := db.Model(&UserReward{}).Where(c.where).Count(c.dest).Error; err != nil {
			return nil, fmt.Errorf("failed to count claims: %w", err)
		}
	}

	return report, nil
}

func rate(part, total int64) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(part)/float64(total)*10000) / 100
}

func findGift(db *gorm.DB, id uint) (*Gift, error) {
	var gift Gift
	err := db.Where("id = ?", id).First(&gift).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrGiftNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load welcome gift: %w", err)
	}
	return &gift, nil
}

func ensureUnique(tx *gorm.DB, excludeID uint, order int, couponCode string) error {
	taken := func(column string, value interface{}) (bool, error) {
		var n int64
		q := tx.Model(&Gift{}).Where(column+" = ?", value)
		if excludeID > 0 {
			q = q.Where("id <> ?", excludeID)
		}
		err := q.Count(&n).Error
		return n > 0, err
	}

	if dup, err := taken("display_order", order); err != nil {
		return fmt.Errorf("failed to check order: %w", err)
	} else if dup {
		return fmt.Errorf("%w: order %d", ErrDuplicateOrder, order)
	}

	if dup, err := taken("coupon_code", couponCode); err != nil {
		return fmt.Errorf("failed to check coupon code: %w", err)
	} else if dup {
		return fmt.Errorf("%w: %s", ErrDuplicateCouponCode, couponCode)
	}
	return nil
}
