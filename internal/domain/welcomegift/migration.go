// internal/domain/welcomegift/migration.go
package welcomegift

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// MigrationResult reports what MigrateAnonymous did
type MigrationResult struct {
	Migrated bool        `json:"migrated"`
	Message  string      `json:"message"`
	Reward   *UserReward `json:"reward,omitempty"`
}

const (
	msgMigrated        = "Welcome gift transferred to your account"
	msgNoMigration     = "No migration needed"
	msgMigrationFailed = "Migration not possible at this time"
)

// MigrateAnonymous moves an unused anonymous reward to userID. It only acts when
// the user holds no reward at all, so running it again is a no-op. It never
// returns an error: failures are logged and reported as not migrated.
func (s *Service) MigrateAnonymous(ctx context.Context, anonymousID string, userID uint) *MigrationResult {
	if anonymousID == "" || !s.identity.Validate(anonymousID) {
		migrationsTotal.WithLabelValues(outcomeNoop).Inc()
		return &MigrationResult{Message: msgNoMigration}
	}

	var moved *UserReward
	err := s.inTx(ctx, func(tx *gorm.DB) error {
		var err error
		moved, err = s.migrateInTx(tx, anonymousID, userID, 0)
		return err
	})
	if err != nil {
		migrationsTotal.WithLabelValues(outcomeError).Inc()
		s.log.WithError(err).WithField("user_id", userID).Warn("welcome gift migration failed")
		return &MigrationResult{Message: msgMigrationFailed}
	}
	if moved == nil {
		migrationsTotal.WithLabelValues(outcomeNoop).Inc()
		return &MigrationResult{Message: msgNoMigration}
	}

	migrationsTotal.WithLabelValues(outcomeSuccess).Inc()
	s.log.WithFields(logrus.Fields{
		"user_id":   userID,
		"reward_id": moved.ID,
		"gift_id":   moved.GiftID,
	}).Info("anonymous welcome gift migrated")
	return &MigrationResult{Migrated: true, Message: msgMigrated, Reward: moved}
}

// migrateInTx transfers the anonymous reward inside tx. giftID, when non-zero,
// restricts the move to a reward for that gift. A nil reward with nil error
// means there was nothing eligible to move.
func (s *Service) migrateInTx(tx *gorm.DB, anonymousID string, userID uint, giftID uint) (*UserReward, error) {
	var held int64
	if err := tx.Model(&UserReward{}).Where("user_id = ?", userID).Count(&held).Error; err != nil {
		return nil, fmt.Errorf("failed to check user rewards: %w", err)
	}
	if held > 0 {
		return nil, nil
	}

	q := s.forUpdate(tx).Where("anonymous_id = ? AND is_used = ?", anonymousID, false)
	if giftID > 0 {
		q = q.Where("gift_id = ?", giftID)
	}
	var reward UserReward
	err := q.First(&reward).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load anonymous reward: %w", err)
	}

	now := s.now()
	origin := anonymousID
	res := tx.Model(&UserReward{}).
		Where("id = ? AND anonymous_id = ? AND is_used = ?", reward.ID, anonymousID, false).
		Updates(map[string]interface{}{
			"user_id":                    userID,
			"anonymous_id":               nil,
			"migrated_from_anonymous_id": origin,
			"migrated_at":                now,
		})
	if res.Error != nil {
		return nil, fmt.Errorf("failed to transfer reward: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, nil
	}

	if err := stampUserClaim(tx, userID, reward.GiftID); err != nil {
		return nil, err
	}

	reward.UserID = &userID
	reward.AnonymousID = nil
	reward.MigratedFromAnonymousID = &origin
	reward.MigratedAt = &now
	return &reward, nil
}
