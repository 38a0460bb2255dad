package models

import (
	"time"

	"github.com/google/uuid"
)

type Invitation struct {
	ID             uuid.UUID  `json:"id" db:"id"`
	FamilyID       uuid.UUID  `json:"family_id" db:"family_id"`
	Token          string     `json:"-" db:"token"`
	InvitedEmail   string     `json:"invited_email" db:"invited_email"`
	InvitedBy      uuid.UUID  `json:"invited_by" db:"invited_by"`
	Status         string     `json:"status" db:"status"`
	ExpiresAt      time.Time  `json:"expires_at" db:"expires_at"`
	FailedAttempts int        `json:"failed_attempts" db:"failed_attempts"`
	IsLocked       bool       `json:"is_locked" db:"is_locked"`
	LockedUntil    *time.Time `json:"locked_until,omitempty" db:"locked_until"`
	AcceptedBy     *uuid.UUID `json:"accepted_by,omitempty" db:"accepted_by"`
	AcceptedAt     *time.Time `json:"accepted_at,omitempty" db:"accepted_at"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`

	// Populated by token lookups joined with the owning family.
	Family *Family `json:"family,omitempty" db:"-"`
}

const (
	InvitationStatusPending   = "pending"
	InvitationStatusAccepted  = "accepted"
	InvitationStatusExpired   = "expired"
	InvitationStatusCancelled = "cancelled"
)

func (i *Invitation) IsExpired(now time.Time) bool {
	return now.After(i.ExpiresAt)
}

// IsLockedAt reports whether a lockout cool-down is still running at now.
func (i *Invitation) IsLockedAt(now time.Time) bool {
	return i.IsLocked && i.LockedUntil != nil && i.LockedUntil.After(now)
}

// FailureState is the post-increment result of a failed redemption attempt.
type FailureState struct {
	FailedAttempts int
	IsLocked       bool
	LockedUntil    *time.Time
}
