// internal/domain/welcomegift/service.go
package welcomegift

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sirupsen/logrus"
	"github.com/your-org/beauty-store-backend/internal/config"
	"github.com/your-org/beauty-store-backend/internal/domain/cart"
	"github.com/your-org/beauty-store-backend/internal/domain/checkout"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// IdentityValidator checks anonymous visitor ids.
type IdentityValidator interface {
	Validate(token string) bool
}

// Cache stores the public gift listing. A nil Cache disables caching.
type Cache interface {
	GetJSON(ctx context.Context, key string, dest interface{}) (bool, error)
	SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
}

const activeGiftsCacheKey = "welcome_gifts:active"

// Service implements the welcome-gift lifecycle: catalogue, claim,
// anonymous-to-user migration, coupon validation and redemption.
type Service struct {
	db       *gorm.DB
	cache    Cache
	identity IdentityValidator
	pricer   *cart.Pricer
	shipping *checkout.ShippingPolicy
	config   config.WelcomeGiftConfig
	log      *logrus.Logger
	now      func() time.Time
}

// NewService creates a new welcome gift service. cache may be nil.
func NewService(db *gorm.DB, cache Cache, identity IdentityValidator, cfg *config.Config, log *logrus.Logger) *Service {
	return &Service{
		db:       db,
		cache:    cache,
		identity: identity,
		pricer:   cart.NewPricer(cfg),
		shipping: checkout.NewShippingPolicy(cfg),
		config:   cfg.WelcomeGift,
		log:      log,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) isPostgres() bool {
	return s.db.Dialector.Name() == "postgres"
}

// inTx runs fn in a transaction. On postgres the transaction is SERIALIZABLE
// and serialization failures are retried with a linear backoff.
func (s *Service) inTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	var opts []*sql.TxOptions
	if s.isPostgres() {
		opts = append(opts, &sql.TxOptions{Isolation: sql.LevelSerializable})
	}

	attempts := s.config.TxRetryAttempts
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		err = s.db.WithContext(ctx).Transaction(fn, opts...)
		if err == nil || !isRetryable(err) || attempt == attempts {
			return err
		}

		s.log.WithFields(logrus.Fields{
			"attempt": attempt,
			"error":   err.Error(),
		}).Warn("welcome gift transaction conflict, retrying")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.config.TxRetryBackoff * time.Duration(attempt)):
		}
	}
	return err
}

// forUpdate adds a row lock where the dialect supports it.
func (s *Service) forUpdate(tx *gorm.DB) *gorm.DB {
	if s.isPostgres() {
		return tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return tx
}

func isRetryable(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// serialization_failure, deadlock_detected
		return pgErr.Code == "40001" || pgErr.Code == "40P01"
	}
	return false
}

func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func normalizeCouponCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func (s *Service) invalidateCatalog(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, activeGiftsCacheKey); err != nil {
		s.log.WithError(err).Warn("failed to invalidate welcome gift cache")
	}
}
