package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/dimitrije/family-core/internal/audit"
	"github.com/dimitrije/family-core/internal/database"
	"github.com/dimitrije/family-core/internal/models"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

var (
	ErrFamilyNotFound   = errors.New("family not found")
	ErrFamilyExists     = errors.New("user already owns a family")
	ErrCapacityExceeded = errors.New("family has reached its member limit")
	ErrAlreadyMember    = errors.New("user is already a family member")
	ErrNotFamilyOwner   = errors.New("only the family owner can do this")
)

const familyColumns = `id, owner_id, name, pin_code, max_members, created_at`

type FamilyService struct {
	db      *database.DB
	auditor audit.Recorder
	opts    options
}

func NewFamilyService(db *database.DB, auditor audit.Recorder, opts ...Option) *FamilyService {
	return &FamilyService{db: db, auditor: auditor, opts: buildOptions(opts)}
}

func familyDest(f *models.Family) []any {
	return []any{&f.ID, &f.OwnerID, &f.Name, &f.PINCode, &f.MaxMembers, &f.CreatedAt}
}

// CreateFamily writes the family and its owner membership in one
// transaction. The returned family carries the plaintext PIN so the owner can
// share it.
func (s *FamilyService) CreateFamily(ctx context.Context, ownerID uuid.UUID, name string) (*models.Family, error) {
	pin, err := GeneratePIN()
	if err != nil {
		return nil, err
	}

	var family models.Family
	err = s.db.WithTx(ctx, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			INSERT INTO families (owner_id, name, pin_code, max_members)
			VALUES ($1, $2, $3, $4)
			RETURNING `+familyColumns,
			ownerID, name, pin, models.DefaultMaxMembers).Scan(familyDest(&family)...)
		if err != nil {
			if database.IsUniqueViolation(err) {
				return ErrFamilyExists
			}
			return fmt.Errorf("failed to create family: %w", err)
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO family_members (family_id, user_id, role)
			VALUES ($1, $2, $3)
		`, family.ID, ownerID, models.RoleOwner)
		if err != nil {
			return fmt.Errorf("failed to add owner as member: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.auditor.Record(ctx, models.AuditLogEntry{
		FamilyID:      &family.ID,
		UserID:        &ownerID,
		ActionType:    models.AuditFamilyCreated,
		ActionDetails: map[string]any{"name": family.Name},
	})

	return &family, nil
}

// GetFamilyByOwner returns nil without an error when the owner has no family yet.
func (s *FamilyService) GetFamilyByOwner(ctx context.Context, ownerID uuid.UUID) (*models.Family, error) {
	var family models.Family
	err := s.db.Pool.QueryRow(ctx, `
		SELECT `+familyColumns+`
		FROM families WHERE owner_id = $1
	`, ownerID).Scan(familyDest(&family)...)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &family, nil
}

// GetFamilyForUser returns the family the user belongs to, preferring the one
// they own. It returns nil without an error when there is none.
func (s *FamilyService) GetFamilyForUser(ctx context.Context, userID uuid.UUID) (*models.Family, error) {
	var family models.Family
	err := s.db.Pool.QueryRow(ctx, `
		SELECT f.id, f.owner_id, f.name, f.pin_code, f.max_members, f.created_at
		FROM families f
		JOIN family_members fm ON f.id = fm.family_id
		WHERE fm.user_id = $1
		ORDER BY (fm.role = 'owner') DESC, fm.joined_at
		LIMIT 1
	`, userID).Scan(familyDest(&family)...)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &family, nil
}

func (s *FamilyService) GetByID(ctx context.Context, familyID uuid.UUID) (*models.Family, error) {
	var family models.Family
	err := s.db.Pool.QueryRow(ctx, `
		SELECT `+familyColumns+`
		FROM families WHERE id = $1
	`, familyID).Scan(familyDest(&family)...)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrFamilyNotFound
	}
	if err != nil {
		return nil, err
	}
	return &family, nil
}

func (s *FamilyService) CountMembers(ctx context.Context, familyID uuid.UUID) (int, error) {
	var count int
	err := s.db.Pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM family_members WHERE family_id = $1
	`, familyID).Scan(&count)
	return count, err
}

func (s *FamilyService) ListMembers(ctx context.Context, familyID uuid.UUID) ([]models.FamilyMember, error) {
	var members []models.FamilyMember
	err := pgxscan.Select(ctx, s.db.Pool, &members, `
		SELECT id, family_id, user_id, role, joined_at
		FROM family_members
		WHERE family_id = $1
		ORDER BY joined_at
	`, familyID)
	if err != nil {
		return nil, err
	}
	return members, nil
}

func (s *FamilyService) IsOwner(ctx context.Context, familyID, userID uuid.UUID) (bool, error) {
	var ownerID uuid.UUID
	err := s.db.Pool.QueryRow(ctx, `SELECT owner_id FROM families WHERE id = $1`, familyID).Scan(&ownerID)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, ErrFamilyNotFound
	}
	if err != nil {
		return false, err
	}
	return ownerID == userID, nil
}

func (s *FamilyService) IsMember(ctx context.Context, familyID, userID uuid.UUID) (bool, error) {
	var exists bool
	err := s.db.Pool.QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM family_members WHERE family_id = $1 AND user_id = $2)
	`, familyID, userID).Scan(&exists)
	return exists, err
}

// AddMember inserts a member row while holding the family row lock, so the
// capacity check and the insert cannot interleave with another join.
func (s *FamilyService) AddMember(ctx context.Context, familyID, userID uuid.UUID) (*models.FamilyMember, error) {
	var member *models.FamilyMember
	err := s.db.WithTx(ctx, func(tx pgx.Tx) error {
		var err error
		member, err = s.addMemberTx(ctx, tx, familyID, userID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.recordMemberAdded(ctx, member)
	return member, nil
}

func (s *FamilyService) addMemberTx(ctx context.Context, q database.Querier, familyID, userID uuid.UUID) (*models.FamilyMember, error) {
	var maxMembers int
	err := q.QueryRow(ctx, `
		SELECT max_members FROM families WHERE id = $1 FOR UPDATE
	`, familyID).Scan(&maxMembers)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrFamilyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock family: %w", err)
	}

	var exists bool
	err = q.QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM family_members WHERE family_id = $1 AND user_id = $2)
	`, familyID, userID).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("failed to check membership: %w", err)
	}
	if exists {
		return nil, ErrAlreadyMember
	}

	var count int
	err = q.QueryRow(ctx, `
		SELECT COUNT(*) FROM family_members WHERE family_id = $1
	`, familyID).Scan(&count)
	if err != nil {
		return nil, fmt.Errorf("failed to count members: %w", err)
	}
	if count >= maxMembers {
		return nil, ErrCapacityExceeded
	}

	var member models.FamilyMember
	err = q.QueryRow(ctx, `
		INSERT INTO family_members (family_id, user_id, role)
		VALUES ($1, $2, $3)
		RETURNING id, family_id, user_id, role, joined_at
	`, familyID, userID, models.RoleMember).Scan(
		&member.ID, &member.FamilyID, &member.UserID, &member.Role, &member.JoinedAt,
	)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return nil, ErrAlreadyMember
		}
		return nil, fmt.Errorf("failed to add member: %w", err)
	}
	return &member, nil
}

func (s *FamilyService) recordMemberAdded(ctx context.Context, member *models.FamilyMember) {
	s.auditor.Record(ctx, models.AuditLogEntry{
		FamilyID:      &member.FamilyID,
		UserID:        &member.UserID,
		ActionType:    models.AuditMemberAdded,
		ActionDetails: map[string]any{"role": member.Role},
	})
}
