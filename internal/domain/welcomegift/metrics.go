// internal/domain/welcomegift/metrics.go
package welcomegift

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	outcomeSuccess        = "success"
	outcomeNoop           = "noop"
	outcomeInvalidSession = "invalid_session"
	outcomeRejected       = "rejected"
	outcomeError          = "error"
)

var (
	claimsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "welcome_gift_claims_total",
			Help: "Welcome gift claim attempts by outcome.",
		},
		[]string{"outcome"},
	)
	migrationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "welcome_gift_migrations_total",
			Help: "Anonymous-to-user reward migrations by outcome.",
		},
		[]string{"outcome"},
	)
	couponValidationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "welcome_gift_coupon_validations_total",
			Help: "Welcome gift coupon validations by outcome.",
		},
		[]string{"outcome"},
	)
	markUsedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "welcome_gift_mark_used_total",
			Help: "Welcome gift redemptions by outcome.",
		},
		[]string{"outcome"},
	)
)

func init() {
	prometheus.MustRegister(claimsTotal, migrationsTotal, couponValidationsTotal, markUsedTotal)
}

// outcomeOf buckets an error into a low-cardinality label value.
func outcomeOf(err error) string {
	switch {
	case err == nil:
		return outcomeSuccess
	case errors.Is(err, ErrInvalidSession), errors.Is(err, ErrInvalidAnonymousID):
		return outcomeInvalidSession
	case errors.Is(err, ErrInvalidInput),
		errors.Is(err, ErrInvalidCart),
		errors.Is(err, ErrGiftNotFound),
		errors.Is(err, ErrGiftInactive),
		errors.Is(err, ErrAlreadyClaimed),
		errors.Is(err, ErrCartMismatch),
		errors.Is(err, ErrGiftNotClaimed),
		errors.Is(err, ErrAlreadyRedeemed),
		errors.Is(err, ErrMinOrderNotMet),
		errors.Is(err, ErrInsufficientItems),
		errors.Is(err, ErrNoUnusedReward),
		errors.Is(err, ErrRewardAlreadyUsed):
		return outcomeRejected
	}
	return outcomeError
}
