package models

import (
	"time"
)

// Participant roles
const (
	RoleParticipant = 0
	RoleOwner       = 1
)

// Participant states
const (
	StateActive   = "active"
	StateInactive = "inactive"
	StateLeft     = "left"
)

func ValidParticipantState(s string) bool {
	return s == StateActive || s == StateInactive || s == StateLeft
}

// Participant is a user's membership in a challenge. At most one row per
// (challenge, user) pair; the creator is inserted as OWNER/ACTIVE atomically
// with the challenge itself.
type Participant struct {
	ID          string    `json:"id" gorm:"primaryKey;size:36"`
	ChallengeID uint      `json:"challenge_id" gorm:"not null;uniqueIndex:idx_participant_challenge_user"`
	UserID      uint      `json:"user_id" gorm:"not null;uniqueIndex:idx_participant_challenge_user"`
	User        User      `json:"user,omitempty" gorm:"foreignKey:UserID"`
	Role        int       `json:"role" gorm:"default:0"`
	State       string    `json:"state" gorm:"size:20;default:'active'"`
	JoinedAt    time.Time `json:"joined_at" gorm:"autoCreateTime"`
}
