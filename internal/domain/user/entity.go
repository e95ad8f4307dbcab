// internal/domain/user/entity.go
package user

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

// User represents the user entity
type User struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	Email       string     `gorm:"uniqueIndex;not null;size:255" json:"email"`
	Password    string     `gorm:"not null;size:255" json:"-"`
	FirstName   string     `gorm:"size:100" json:"first_name"`
	LastName    string     `gorm:"size:100" json:"last_name"`
	Phone       string     `gorm:"size:20" json:"phone"`
	IsActive    bool       `gorm:"default:true" json:"is_active"`
	IsAdmin     bool       `gorm:"default:false" json:"is_admin"`
	LastLoginAt *time.Time `json:"last_login_at"`

	// Denormalised from user_rewards; written in the same transaction as the claim or migration.
	HasClaimedWelcomeGift bool  `gorm:"default:false" json:"has_claimed_welcome_gift"`
	WelcomeGiftID         *uint `gorm:"index" json:"welcome_gift_id,omitempty"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName overrides the table name for User
func (User) TableName() string {
	return "users"
}

// BeforeCreate hook to handle business logic before user creation
func (u *User) BeforeCreate(tx *gorm.DB) error {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	return nil
}

// GetFullName returns the user's full name
func (u *User) GetFullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// GetDisplayName returns display name (full name or email)
func (u *User) GetDisplayName() string {
	if fullName := u.GetFullName(); fullName != "" {
		return fullName
	}
	return u.Email
}
