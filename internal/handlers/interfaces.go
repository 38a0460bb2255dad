package handlers

import (
	"context"
	"time"

	"github.com/dimitrije/family-core/internal/models"
	"github.com/google/uuid"
)

// FamilyServiceInterface defines the methods used by handlers from FamilyService
type FamilyServiceInterface interface {
	CreateFamily(ctx context.Context, ownerID uuid.UUID, name string) (*models.Family, error)
	GetFamilyForUser(ctx context.Context, userID uuid.UUID) (*models.Family, error)
	GetByID(ctx context.Context, familyID uuid.UUID) (*models.Family, error)
	CountMembers(ctx context.Context, familyID uuid.UUID) (int, error)
	ListMembers(ctx context.Context, familyID uuid.UUID) ([]models.FamilyMember, error)
	IsOwner(ctx context.Context, familyID, userID uuid.UUID) (bool, error)
	IsMember(ctx context.Context, familyID, userID uuid.UUID) (bool, error)
}

// InvitationServiceInterface defines the methods used by handlers from InvitationService
type InvitationServiceInterface interface {
	CreateInvitation(ctx context.Context, familyID uuid.UUID, invitedEmail string, invitedBy uuid.UUID) (*models.Invitation, string, error)
	GetByToken(ctx context.Context, token string) (*models.Invitation, error)
	Redeem(ctx context.Context, token, email, pin string, userID uuid.UUID) (*models.FamilyMember, error)
	Cancel(ctx context.Context, invitationID, familyID, actorID uuid.UUID) error
	ListPending(ctx context.Context, familyID uuid.UUID) ([]models.Invitation, error)
}

// GameLockServiceInterface defines the methods used by handlers from GameLockService
type GameLockServiceInterface interface {
	Lock(ctx context.Context, familyID uuid.UUID, gameID string, userID uuid.UUID) (models.LockResult, error)
	Unlock(ctx context.Context, familyID uuid.UUID, gameID string, userID uuid.UUID) error
	ForceUnlock(ctx context.Context, familyID uuid.UUID, gameID string, actorID uuid.UUID) error
	ListActive(ctx context.Context, familyID uuid.UUID) ([]models.GameLock, error)
}

// EmailServiceInterface defines the methods used by handlers from EmailService
type EmailServiceInterface interface {
	IsConfigured() bool
	SendFamilyInvite(to, familyName, joinLink string, validFor time.Duration) error
}

// Pinger reports whether the store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}
