// internal/domain/welcomegift/entity.go
package welcomegift

import (
	"time"
)

// RewardType is the kind of discount a gift grants.
type RewardType string

const (
	RewardPercentage   RewardType = "percentage"
	RewardFixedAmount  RewardType = "fixed_amount"
	RewardBuyOneGetOne RewardType = "buy_one_get_one"
	RewardFreeShipping RewardType = "free_shipping"
)

// Valid reports whether t is a known reward type.
func (t RewardType) Valid() bool {
	switch t {
	case RewardPercentage, RewardFixedAmount, RewardBuyOneGetOne, RewardFreeShipping:
		return true
	}
	return false
}

// Gift is a configured promotional offer shown in the welcome popup.
//
// RewardValue is a percentage for percentage gifts and an amount in paise for
// fixed_amount gifts; it is ignored by the other types. Icon and Color are
// opaque UI tags.
type Gift struct {
	ID             uint       `gorm:"primaryKey" json:"id"`
	Title          string     `gorm:"not null;size:100" json:"title"`
	Description    string     `gorm:"size:500" json:"description"`
	Icon           string     `gorm:"size:50" json:"icon"`
	Color          string     `gorm:"size:50" json:"color"`
	RewardText     string     `gorm:"not null;size:200" json:"rewardText"`
	CouponCode     string     `gorm:"uniqueIndex;not null;size:32" json:"couponCode"`
	DisplayOrder   int        `gorm:"column:display_order;uniqueIndex;not null" json:"order"`
	RewardType     RewardType `gorm:"not null;size:30" json:"rewardType"`
	RewardValue    float64    `gorm:"not null;default:0" json:"rewardValue"`
	MaxDiscount    *int64     `json:"maxDiscount,omitempty"`
	MinOrderAmount int64      `gorm:"not null;default:0" json:"minOrderAmount"`
	IsActive       bool       `gorm:"not null;index" json:"isActive"`
	UsageCount     int64      `gorm:"not null;default:0" json:"usageCount"`
	LastUsedAt     *time.Time `json:"lastUsedAt,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

func (Gift) TableName() string { return "welcome_gifts" }

// RewardSnapshot is copied from the gift at claim time and never rewritten,
// so later catalogue edits do not change what a customer was promised.
type RewardSnapshot struct {
	Title      string     `gorm:"size:100" json:"title"`
	Text       string     `gorm:"size:200" json:"text"`
	CouponCode string     `gorm:"size:32;index" json:"couponCode"`
	Type       RewardType `gorm:"size:30" json:"type"`
}

func snapshotOf(g *Gift) RewardSnapshot {
	return RewardSnapshot{
		Title:      g.Title,
		Text:       g.RewardText,
		CouponCode: g.CouponCode,
		Type:       g.RewardType,
	}
}

// UserReward is one redeemable instance of a gift held by exactly one identity:
// a registered user or an anonymous visitor id.
type UserReward struct {
	ID          uint    `gorm:"primaryKey" json:"id"`
	GiftID      uint    `gorm:"not null;index" json:"giftId"`
	UserID      *uint   `gorm:"index;uniqueIndex:idx_user_rewards_unused_user,where:is_used = false AND user_id IS NOT NULL" json:"userId,omitempty"`
	AnonymousID *string `gorm:"size:128;index;uniqueIndex:idx_user_rewards_unused_anon,where:is_used = false AND anonymous_id IS NOT NULL" json:"anonymousId,omitempty"`

	Reward RewardSnapshot `gorm:"embedded;embeddedPrefix:reward_" json:"reward"`

	ClaimedAt    time.Time  `gorm:"not null" json:"claimedAt"`
	IsUsed       bool       `gorm:"not null;default:false;index" json:"isUsed"`
	UsedAt       *time.Time `json:"usedAt,omitempty"`
	UsedOrderRef string     `gorm:"size:100" json:"usedOrderRef,omitempty"`

	MigratedFromAnonymousID *string    `gorm:"size:128" json:"migratedFromAnonymousId,omitempty"`
	MigratedAt              *time.Time `json:"migratedAt,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	Gift *Gift `gorm:"foreignKey:GiftID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT;" json:"gift,omitempty"`
}

func (UserReward) TableName() string { return "user_rewards" }

// Identity is whoever is acting: an authenticated user, an anonymous visitor, or neither.
type Identity struct {
	UserID      *uint
	AnonymousID string
}

// IsUser reports whether the identity is an authenticated user.
func (i Identity) IsUser() bool { return i.UserID != nil }
