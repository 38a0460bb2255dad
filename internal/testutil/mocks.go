package testutil

import (
	"context"
	"time"

	"github.com/dimitrije/family-core/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockFamilyService mocks the FamilyService
type MockFamilyService struct {
	mock.Mock
}

func (m *MockFamilyService) CreateFamily(ctx context.Context, ownerID uuid.UUID, name string) (*models.Family, error) {
	args := m.Called(ctx, ownerID, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Family), args.Error(1)
}

func (m *MockFamilyService) GetFamilyForUser(ctx context.Context, userID uuid.UUID) (*models.Family, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Family), args.Error(1)
}

func (m *MockFamilyService) GetByID(ctx context.Context, familyID uuid.UUID) (*models.Family, error) {
	args := m.Called(ctx, familyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Family), args.Error(1)
}

func (m *MockFamilyService) CountMembers(ctx context.Context, familyID uuid.UUID) (int, error) {
	args := m.Called(ctx, familyID)
	return args.Int(0), args.Error(1)
}

func (m *MockFamilyService) ListMembers(ctx context.Context, familyID uuid.UUID) ([]models.FamilyMember, error) {
	args := m.Called(ctx, familyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.FamilyMember), args.Error(1)
}

func (m *MockFamilyService) IsOwner(ctx context.Context, familyID, userID uuid.UUID) (bool, error) {
	args := m.Called(ctx, familyID, userID)
	return args.Bool(0), args.Error(1)
}

func (m *MockFamilyService) IsMember(ctx context.Context, familyID, userID uuid.UUID) (bool, error) {
	args := m.Called(ctx, familyID, userID)
	return args.Bool(0), args.Error(1)
}

// MockInvitationService mocks the InvitationService
type MockInvitationService struct {
	mock.Mock
}

func (m *MockInvitationService) CreateInvitation(ctx context.Context, familyID uuid.UUID, invitedEmail string, invitedBy uuid.UUID) (*models.Invitation, string, error) {
	args := m.Called(ctx, familyID, invitedEmail, invitedBy)
	if args.Get(0) == nil {
		return nil, "", args.Error(2)
	}
	return args.Get(0).(*models.Invitation), args.String(1), args.Error(2)
}

func (m *MockInvitationService) GetByToken(ctx context.Context, token string) (*models.Invitation, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Invitation), args.Error(1)
}

func (m *MockInvitationService) Redeem(ctx context.Context, token, email, pin string, userID uuid.UUID) (*models.FamilyMember, error) {
	args := m.Called(ctx, token, email, pin, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.FamilyMember), args.Error(1)
}

func (m *MockInvitationService) Cancel(ctx context.Context, invitationID, familyID, actorID uuid.UUID) error {
	args := m.Called(ctx, invitationID, familyID, actorID)
	return args.Error(0)
}

func (m *MockInvitationService) ListPending(ctx context.Context, familyID uuid.UUID) ([]models.Invitation, error) {
	args := m.Called(ctx, familyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Invitation), args.Error(1)
}

// MockGameLockService mocks the GameLockService
type MockGameLockService struct {
	mock.Mock
}

func (m *MockGameLockService) Lock(ctx context.Context, familyID uuid.UUID, gameID string, userID uuid.UUID) (models.LockResult, error) {
	args := m.Called(ctx, familyID, gameID, userID)
	return args.Get(0).(models.LockResult), args.Error(1)
}

func (m *MockGameLockService) Unlock(ctx context.Context, familyID uuid.UUID, gameID string, userID uuid.UUID) error {
	args := m.Called(ctx, familyID, gameID, userID)
	return args.Error(0)
}

func (m *MockGameLockService) ForceUnlock(ctx context.Context, familyID uuid.UUID, gameID string, actorID uuid.UUID) error {
	args := m.Called(ctx, familyID, gameID, actorID)
	return args.Error(0)
}

func (m *MockGameLockService) ListActive(ctx context.Context, familyID uuid.UUID) ([]models.GameLock, error) {
	args := m.Called(ctx, familyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.GameLock), args.Error(1)
}

// MockEmailService mocks the EmailService
type MockEmailService struct {
	mock.Mock
}

func (m *MockEmailService) IsConfigured() bool {
	args := m.Called()
	return args.Bool(0)
}

func (m *MockEmailService) SendFamilyInvite(to, familyName, joinLink string, validFor time.Duration) error {
	args := m.Called(to, familyName, joinLink, validFor)
	return args.Error(0)
}

// MockPinger mocks a store health probe
type MockPinger struct {
	mock.Mock
}

func (m *MockPinger) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
