package dto

import (
	"time"

	"github.com/google/uuid"
)

type CreateInvitationRequest struct {
	Email string `json:"email"`
}

type InvitationResponse struct {
	ID             uuid.UUID  `json:"id"`
	FamilyID       uuid.UUID  `json:"family_id"`
	InvitedEmail   string     `json:"invited_email"`
	Status         string     `json:"status"`
	ExpiresAt      time.Time  `json:"expires_at"`
	FailedAttempts int        `json:"failed_attempts"`
	IsLocked       bool       `json:"is_locked"`
	LockedUntil    *time.Time `json:"locked_until,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	JoinLink       string     `json:"join_link,omitempty"`
}

// InvitationPreviewResponse is what the join page shows before redemption.
type InvitationPreviewResponse struct {
	FamilyName   string     `json:"family_name"`
	InvitedEmail string     `json:"invited_email"`
	Status       string     `json:"status"`
	ExpiresAt    time.Time  `json:"expires_at"`
	IsLocked     bool       `json:"is_locked"`
	LockedUntil  *time.Time `json:"locked_until,omitempty"`
}

// RedeemInvitationRequest falls back to the caller's identity email when
// Email is empty.
type RedeemInvitationRequest struct {
	Email string `json:"email"`
	PIN   string `json:"pin"`
}

type RedeemInvitationResponse struct {
	FamilyID uuid.UUID            `json:"family_id"`
	Member   FamilyMemberResponse `json:"member"`
}
