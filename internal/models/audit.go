package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	AuditFamilyCreated           = "FAMILY_CREATED"
	AuditMemberAdded             = "MEMBER_ADDED"
	AuditInvitationCreated       = "INVITATION_CREATED"
	AuditInvitationFailedAttempt = "INVITATION_FAILED_ATTEMPT"
	AuditInvitationLocked        = "INVITATION_LOCKED"
	AuditInvitationValidated     = "INVITATION_VALIDATED"
	AuditInvitationAccepted      = "INVITATION_ACCEPTED"
	AuditInvitationExpired       = "INVITATION_EXPIRED"
	AuditInvitationCancelled     = "INVITATION_CANCELLED"
	AuditGameLocked              = "GAME_LOCKED"
	AuditGameLockConflict        = "GAME_LOCK_CONFLICT"
	AuditGameUnlocked            = "GAME_UNLOCKED"
	AuditGameForceUnlocked       = "GAME_FORCE_UNLOCKED"
)

type AuditLogEntry struct {
	FamilyID      *uuid.UUID     `json:"family_id,omitempty"`
	UserID        *uuid.UUID     `json:"user_id,omitempty"`
	ActionType    string         `json:"action_type"`
	ActionDetails map[string]any `json:"action_details,omitempty"`
	IPAddress     string         `json:"ip_address,omitempty"`
	UserAgent     string         `json:"user_agent,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
}
