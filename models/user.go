package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// User roles
const (
	RoleUser  = 0
	RoleAdmin = 1
)

// User is an email-login account. Email doubles as the username.
type User struct {
	ID           uint   `json:"id" gorm:"primaryKey"`
	Email        string `json:"email" gorm:"uniqueIndex;not null"`
	DisplayName  string `json:"display_name" gorm:"size:50;not null"`
	PasswordHash string `json:"-" gorm:"not null"`
	Role         int    `json:"role" gorm:"default:0"`

	AvatarURL string `json:"avatar_url,omitempty"`

	// Location, used by the weather endpoint
	City      *string          `json:"city,omitempty" gorm:"size:100"`
	Country   *string          `json:"country,omitempty" gorm:"size:100"`
	Latitude  *decimal.Decimal `json:"latitude,omitempty" gorm:"type:decimal(9,6)"`
	Longitude *decimal.Decimal `json:"longitude,omitempty" gorm:"type:decimal(9,6)"`

	IsActive bool `json:"is_active" gorm:"default:true"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// Login throttle policy
const (
	LoginMaxAttempts   = 5
	LoginWindowMinutes = 10
	LoginLockMinutes   = 15
)

// LoginThrottle tracks failed login attempts per (email, ip) and locks the
// pair out after repeated failures inside the window.
type LoginThrottle struct {
	ID           uint       `json:"id" gorm:"primaryKey"`
	Email        string     `json:"email" gorm:"uniqueIndex:idx_throttle_email_ip;not null"`
	IP           string     `json:"ip" gorm:"uniqueIndex:idx_throttle_email_ip"`
	FailedCount  int        `json:"failed_count" gorm:"default:0"`
	LastFailedAt *time.Time `json:"last_failed_at,omitempty"`
	LockedUntil  *time.Time `json:"locked_until,omitempty"`
}

// IsLocked reports whether the lockout is still in effect.
func (t *LoginThrottle) IsLocked(now time.Time) bool {
	return t.LockedUntil != nil && t.LockedUntil.After(now)
}

// RegisterFailure bumps the counter, resetting it if the last failure fell
// outside the window, and locks the pair once the limit is hit. The caller
// persists the row.
func (t *LoginThrottle) RegisterFailure(now time.Time) {
	if t.LastFailedAt == nil || now.Sub(*t.LastFailedAt) > LoginWindowMinutes*time.Minute {
		t.FailedCount = 1
	} else {
		t.FailedCount++
	}
	t.LastFailedAt = &now
	if t.FailedCount >= LoginMaxAttempts {
		locked := now.Add(LoginLockMinutes * time.Minute)
		t.LockedUntil = &locked
	}
}

// Reset clears the failure state after a successful login.
func (t *LoginThrottle) Reset() {
	t.FailedCount = 0
	t.LastFailedAt = nil
	t.LockedUntil = nil
}

// PasswordResetToken is a single-use, expiring token for the reset flow.
type PasswordResetToken struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	UserID    uint      `json:"user_id" gorm:"not null;index"`
	User      User      `json:"-" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	Token     string    `json:"-" gorm:"size:64;uniqueIndex;not null"`
	ExpiresAt time.Time `json:"expires_at" gorm:"index"`
	Used      bool      `json:"used" gorm:"default:false"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// IsValid reports whether the token can still redeem a reset.
func (t *PasswordResetToken) IsValid(now time.Time) bool {
	return !t.Used && t.ExpiresAt.After(now)
}
