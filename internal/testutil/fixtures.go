package testutil

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/dimitrije/family-core/internal/database"
	"github.com/dimitrije/family-core/internal/models"
	"github.com/google/uuid"
)

// Fixtures inserts rows directly, bypassing the services under test.
type Fixtures struct {
	db      *database.DB
	counter int
}

func NewFixtures(db *database.DB) *Fixtures {
	return &Fixtures{db: db}
}

// CreateFamily inserts a family with a known PIN and its owner membership.
func (f *Fixtures) CreateFamily(t *testing.T, ownerID uuid.UUID, pin string) *models.Family {
	t.Helper()
	f.counter++
	ctx := context.Background()

	family := &models.Family{
		OwnerID:    ownerID,
		Name:       fmt.Sprintf("Family %d", f.counter),
		PINCode:    pin,
		MaxMembers: models.DefaultMaxMembers,
	}

	err := f.db.Pool.QueryRow(ctx, `
		INSERT INTO families (owner_id, name, pin_code, max_members)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`, family.OwnerID, family.Name, family.PINCode, family.MaxMembers).Scan(&family.ID, &family.CreatedAt)
	if err != nil {
		t.Fatalf("failed to create family: %v", err)
	}

	_, err = f.db.Pool.Exec(ctx, `
		INSERT INTO family_members (family_id, user_id, role) VALUES ($1, $2, $3)
	`, family.ID, ownerID, models.RoleOwner)
	if err != nil {
		t.Fatalf("failed to add family owner: %v", err)
	}

	return family
}

// AddMembers inserts n members with random user ids.
func (f *Fixtures) AddMembers(t *testing.T, familyID uuid.UUID, n int) {
	t.Helper()
	for range n {
		_, err := f.db.Pool.Exec(context.Background(), `
			INSERT INTO family_members (family_id, user_id, role) VALUES ($1, $2, $3)
		`, familyID, uuid.New(), models.RoleMember)
		if err != nil {
			t.Fatalf("failed to add family member: %v", err)
		}
	}
}

// CreateInvitation inserts a pending invitation and returns its token.
func (f *Fixtures) CreateInvitation(t *testing.T, familyID, invitedBy uuid.UUID, email string, expiresAt time.Time) *models.Invitation {
	t.Helper()
	f.counter++

	inv := &models.Invitation{
		FamilyID:     familyID,
		Token:        fmt.Sprintf("%064d", f.counter),
		InvitedEmail: email,
		InvitedBy:    invitedBy,
		Status:       models.InvitationStatusPending,
		ExpiresAt:    expiresAt,
	}

	err := f.db.Pool.QueryRow(context.Background(), `
		INSERT INTO family_invitations (family_id, token, invited_email, invited_by, status, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`, inv.FamilyID, inv.Token, inv.InvitedEmail, inv.InvitedBy, inv.Status, inv.ExpiresAt).Scan(&inv.ID, &inv.CreatedAt)
	if err != nil {
		t.Fatalf("failed to create invitation: %v", err)
	}

	return inv
}

// SetFailedAttempts overwrites the failure counter of an invitation.
func (f *Fixtures) SetFailedAttempts(t *testing.T, invitationID uuid.UUID, attempts int) {
	t.Helper()
	_, err := f.db.Pool.Exec(context.Background(), `
		UPDATE family_invitations SET failed_attempts = $2 WHERE id = $1
	`, invitationID, attempts)
	if err != nil {
		t.Fatalf("failed to set failed attempts: %v", err)
	}
}
