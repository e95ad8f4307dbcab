// internal/domain/welcomegift/claim.go
package welcomegift

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/your-org/beauty-store-backend/internal/domain/user"
	"gorm.io/gorm"
)

// ClaimResult is returned after a successful claim
type ClaimResult struct {
	Gift   *Gift       `json:"gift"`
	Reward *UserReward `json:"reward"`
}

// Eligibility is the should-show-popup decision
type Eligibility struct {
	ShouldShowPopup bool   `json:"shouldShowPopup"`
	HasClaimed      bool   `json:"hasClaimed"`
	Reason          string `json:"reason"`
}

// ClaimGift gives the identity a reward for giftID. A user may claim once ever;
// an anonymous id may hold one unused reward at a time. The usage counter,
// the reward row and the user's claim flag commit together or not at all.
func (s *Service) ClaimGift(ctx context.Context, giftID uint, who Identity) (*ClaimResult, error) {
	if !who.IsUser() {
		if who.AnonymousID == "" || !s.identity.Validate(who.AnonymousID) {
			claimsTotal.WithLabelValues(outcomeInvalidSession).Inc()
			return nil, ErrInvalidAnonymousID
		}
	}

	var result ClaimResult
	err := s.inTx(ctx, func(tx *gorm.DB) error {
		gift, err := findGift(s.forUpdate(tx), giftID)
		if err != nil {
			return err
		}
		if !gift.IsActive {
			return ErrGiftInactive
		}

		if err := s.ensureCanClaim(tx, who); err != nil {
			return err
		}

		now := s.now()
		err = tx.Model(&Gift{}).Where("id = ?", gift.ID).Updates(map[string]interface{}{
			"usage_count":  gorm.Expr("usage_count + ?", 1),
			"last_used_at": now,
		}).Error
		if err != nil {
			return fmt.Errorf("failed to record gift usage: %w", err)
		}

		reward := UserReward{
			GiftID:    gift.ID,
			Reward:    snapshotOf(gift),
			ClaimedAt: now,
		}
		if who.IsUser() {
			reward.UserID = who.UserID
		} else {
			anon := who.AnonymousID
			reward.AnonymousID = &anon
		}
		if err := tx.Create(&reward).Error; err != nil {
			if isDuplicateKey(err) {
				return ErrAlreadyClaimed
			}
			return fmt.Errorf("failed to create reward: %w", err)
		}

		if who.IsUser() {
			if err := stampUserClaim(tx, *who.UserID, gift.ID); err != nil {
				return err
			}
		}

		gift.UsageCount++
		gift.LastUsedAt = &now
		result = ClaimResult{Gift: gift, Reward: &reward}
		return nil
	})
	if err != nil {
		claimsTotal.WithLabelValues(outcomeOf(err)).Inc()
		return nil, err
	}

	claimsTotal.WithLabelValues(outcomeSuccess).Inc()
	s.log.WithFields(logrus.Fields{
		"gift_id":   giftID,
		"reward_id": result.Reward.ID,
		"anonymous": !who.IsUser(),
	}).Info("welcome gift claimed")
	return &result, nil
}

func (s *Service) ensureCanClaim(tx *gorm.DB, who Identity) error {
	var existing int64
	q := tx.Model(&UserReward{})
	if who.IsUser() {
		q = q.Where("user_id = ?", *who.UserID)
	} else {
		q = q.Where("anonymous_id = ? AND is_used = ?", who.AnonymousID, false)
	}
	if err := q.Count(&existing).Error; err != nil {
		return fmt.Errorf("failed to check existing claims: %w", err)
	}
	if existing > 0 {
		return ErrAlreadyClaimed
	}
	return nil
}

func stampUserClaim(tx *gorm.DB, userID, giftID uint) error {
	res := tx.Model(&user.User{}).Where("id = ?", userID).Updates(map[string]interface{}{
		"has_claimed_welcome_gift": true,
		"welcome_gift_id":          giftID,
	})
	if res.Error != nil {
		return fmt.Errorf("failed to update user claim flag: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: user %d not found", ErrInvalidSession, userID)
	}
	return nil
}

// CheckEligibility decides whether the welcome popup should be shown. It never
// fails: lookup problems and bad anonymous ids resolve to not showing it.
func (s *Service) CheckEligibility(ctx context.Context, who Identity) *Eligibility {
	db := s.db.WithContext(ctx)

	var active int64
	if err := db.Model(&Gift{}).Where("is_active = ?", true).Count(&active).Error; err != nil {
		s.log.WithError(err).Warn("eligibility check failed counting gifts")
		return &Eligibility{Reason: "unavailable"}
	}
	if active == 0 {
		return &Eligibility{Reason: "no_active_gifts"}
	}

	if who.IsUser() {
		var claims int64
		if err := db.Model(&UserReward{}).Where("user_id = ?", *who.UserID).Count(&claims).Error; err != nil {
			s.log.WithError(err).WithField("user_id", *who.UserID).Warn("eligibility check failed")
			return &Eligibility{Reason: "unavailable"}
		}
		if claims > 0 {
			return &Eligibility{HasClaimed: true, Reason: "already_claimed"}
		}
		return &Eligibility{ShouldShowPopup: true, Reason: "eligible"}
	}

	if who.AnonymousID == "" {
		return &Eligibility{ShouldShowPopup: true, Reason: "new_visitor"}
	}
	if !s.identity.Validate(who.AnonymousID) {
		return &Eligibility{Reason: "invalid_anonymous_id"}
	}

	var unused int64
	err := db.Model(&UserReward{}).
		Where("anonymous_id = ? AND is_used = ?", who.AnonymousID, false).
		Count(&unused).Error
	if err != nil {
		s.log.WithError(err).Warn("eligibility check failed for anonymous visitor")
		return &Eligibility{Reason: "unavailable"}
	}
	if unused > 0 {
		return &Eligibility{HasClaimed: true, Reason: "already_claimed"}
	}
	return &Eligibility{ShouldShowPopup: true, Reason: "eligible"}
}

// ListUserRewards returns every reward the user holds, newest first
func (s *Service) ListUserRewards(ctx context.Context, userID uint) ([]UserReward, error) {
	var rewards []UserReward
	err := s.db.WithContext(ctx).
		Preload("Gift").
		Where("user_id = ?", userID).
		Order("claimed_at DESC").
		Find(&rewards).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list rewards: %w", err)
	}
	return rewards, nil
}
