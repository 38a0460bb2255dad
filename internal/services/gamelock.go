package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/dimitrije/family-core/internal/audit"
	"github.com/dimitrije/family-core/internal/config"
	"github.com/dimitrije/family-core/internal/database"
	"github.com/dimitrije/family-core/internal/models"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// claimAttempts bounds the retries when a conflicting lease disappears between
// the claim and the holder read.
const claimAttempts = 3

// ErrGameLockContended is returned when the lease kept changing hands for
// every claim attempt.
var ErrGameLockContended = errors.New("game lock is changing hands, try again")

type GameLockService struct {
	db       *database.DB
	families *FamilyService
	auditor  audit.Recorder
	cfg      config.FamilyConfig
	opts     options
}

func NewGameLockService(db *database.DB, families *FamilyService, auditor audit.Recorder, cfg config.FamilyConfig, opts ...Option) *GameLockService {
	return &GameLockService{
		db:       db,
		families: families,
		auditor:  auditor,
		cfg:      cfg,
		opts:     buildOptions(opts),
	}
}

// Lock claims or renews the lease on a game. A lease held by someone else is
// reported through LockResult.OK, not as an error.
func (s *GameLockService) Lock(ctx context.Context, familyID uuid.UUID, gameID string, userID uuid.UUID) (models.LockResult, error) {
	var result models.LockResult
	var err error
	for range claimAttempts {
		err = s.db.Pool.QueryRow(ctx, `
			SELECT acquired, locked_by, expires_at
			FROM claim_game_lock($1, $2, $3, $4, $5)
		`, familyID, gameID, userID, s.cfg.GameLockMinutes, s.opts.clock.Now()).Scan(&result.OK, &result.LockedBy, &result.ExpiresAt)
		if !errors.Is(err, pgx.ErrNoRows) {
			break
		}
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return models.LockResult{}, ErrGameLockContended
	}
	if err != nil {
		if database.IsForeignKeyViolation(err) {
			return models.LockResult{}, ErrFamilyNotFound
		}
		return models.LockResult{}, fmt.Errorf("failed to claim game lock: %w", err)
	}

	entry := models.AuditLogEntry{
		FamilyID: &familyID,
		UserID:   &userID,
		ActionDetails: map[string]any{
			"game_id":    gameID,
			"expires_at": result.ExpiresAt,
		},
	}
	if result.OK {
		entry.ActionType = models.AuditGameLocked
		s.opts.metrics.GameLockClaim("acquired")
	} else {
		entry.ActionType = models.AuditGameLockConflict
		entry.ActionDetails["locked_by"] = result.LockedBy
		s.opts.metrics.GameLockClaim("conflict")
	}
	s.auditor.Record(ctx, entry)

	return result, nil
}

// Unlock releases the caller's own lease. Releasing a lease the caller does
// not hold is a no-op.
func (s *GameLockService) Unlock(ctx context.Context, familyID uuid.UUID, gameID string, userID uuid.UUID) error {
	tag, err := s.db.Pool.Exec(ctx, `
		DELETE FROM game_locks
		WHERE family_id = $1 AND game_id = $2 AND locked_by = $3
	`, familyID, gameID, userID)
	if err != nil {
		return fmt.Errorf("failed to release game lock: %w", err)
	}

	if tag.RowsAffected() > 0 {
		s.auditor.Record(ctx, models.AuditLogEntry{
			FamilyID:      &familyID,
			UserID:        &userID,
			ActionType:    models.AuditGameUnlocked,
			ActionDetails: map[string]any{"game_id": gameID},
		})
	}
	return nil
}

// ForceUnlock lets the family owner clear a lease held by anyone.
func (s *GameLockService) ForceUnlock(ctx context.Context, familyID uuid.UUID, gameID string, actorID uuid.UUID) error {
	isOwner, err := s.families.IsOwner(ctx, familyID, actorID)
	if err != nil {
		return err
	}
	if !isOwner {
		return ErrNotFamilyOwner
	}

	var holder uuid.UUID
	err = s.db.Pool.QueryRow(ctx, `
		DELETE FROM game_locks
		WHERE family_id = $1 AND game_id = $2
		RETURNING locked_by
	`, familyID, gameID).Scan(&holder)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to force release game lock: %w", err)
	}

	s.auditor.Record(ctx, models.AuditLogEntry{
		FamilyID:   &familyID,
		UserID:     &actorID,
		ActionType: models.AuditGameForceUnlocked,
		ActionDetails: map[string]any{
			"game_id":   gameID,
			"locked_by": holder,
		},
	})
	return nil
}

// GetActive returns nil without an error when nobody holds the game.
func (s *GameLockService) GetActive(ctx context.Context, familyID uuid.UUID, gameID string) (*models.GameLock, error) {
	var lock models.GameLock
	err := s.db.Pool.QueryRow(ctx, `
		SELECT family_id, game_id, locked_by, expires_at, locked_at
		FROM game_locks
		WHERE family_id = $1 AND game_id = $2 AND expires_at > $3
	`, familyID, gameID, s.opts.clock.Now()).Scan(
		&lock.FamilyID, &lock.GameID, &lock.LockedBy, &lock.ExpiresAt, &lock.LockedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &lock, nil
}

func (s *GameLockService) ListActive(ctx context.Context, familyID uuid.UUID) ([]models.GameLock, error) {
	var locks []models.GameLock
	err := pgxscan.Select(ctx, s.db.Pool, &locks, `
		SELECT family_id, game_id, locked_by, expires_at, locked_at
		FROM game_locks
		WHERE family_id = $1 AND expires_at > $2
		ORDER BY locked_at
	`, familyID, s.opts.clock.Now())
	if err != nil {
		return nil, err
	}
	return locks, nil
}
