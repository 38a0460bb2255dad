package services

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"

	"github.com/dimitrije/family-core/internal/audit"
	"github.com/dimitrije/family-core/internal/config"
	"github.com/dimitrije/family-core/internal/database"
	"github.com/dimitrije/family-core/internal/models"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

var (
	ErrInvalidToken              = errors.New("invalid invitation token")
	ErrInvitationNotFound        = errors.New("invitation not found")
	ErrAlreadyConsumed           = errors.New("invitation has already been used")
	ErrInvitationExpired         = errors.New("invitation has expired")
	ErrLockedOut                 = errors.New("too many failed attempts, try again later")
	ErrLockedOutAfterMaxAttempts = errors.New("maximum attempts reached, invitation is locked")
	ErrEmailMismatch             = errors.New("email does not match the invitation")
	ErrWrongPIN                  = errors.New("incorrect family PIN")
)

const invitationColumns = `id, family_id, token, invited_email, invited_by, status, expires_at,
	failed_attempts, is_locked, locked_until, accepted_by, accepted_at, created_at`

type InvitationService struct {
	db       *database.DB
	families *FamilyService
	auditor  audit.Recorder
	cfg      config.FamilyConfig
	opts     options
}

func NewInvitationService(db *database.DB, families *FamilyService, auditor audit.Recorder, cfg config.FamilyConfig, opts ...Option) *InvitationService {
	return &InvitationService{
		db:       db,
		families: families,
		auditor:  auditor,
		cfg:      cfg,
		opts:     buildOptions(opts),
	}
}

func invitationDest(i *models.Invitation) []any {
	return []any{
		&i.ID, &i.FamilyID, &i.Token, &i.InvitedEmail, &i.InvitedBy, &i.Status, &i.ExpiresAt,
		&i.FailedAttempts, &i.IsLocked, &i.LockedUntil, &i.AcceptedBy, &i.AcceptedAt, &i.CreatedAt,
	}
}

// CreateInvitation stores a pending invitation and returns it together with
// the shareable join link.
func (s *InvitationService) CreateInvitation(ctx context.Context, familyID uuid.UUID, invitedEmail string, invitedBy uuid.UUID) (*models.Invitation, string, error) {
	token, err := GenerateInviteToken()
	if err != nil {
		return nil, "", err
	}
	expiresAt := ExpiresAt(s.opts.clock.Now(), s.cfg.InviteExpiry())

	var inv models.Invitation
	err = s.db.Pool.QueryRow(ctx, `
		INSERT INTO family_invitations (family_id, token, invited_email, invited_by, status, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+invitationColumns,
		familyID, token, strings.TrimSpace(invitedEmail), invitedBy, models.InvitationStatusPending, expiresAt,
	).Scan(invitationDest(&inv)...)
	if err != nil {
		if database.IsForeignKeyViolation(err) {
			return nil, "", ErrFamilyNotFound
		}
		return nil, "", fmt.Errorf("failed to create invitation: %w", err)
	}

	s.auditor.Record(ctx, models.AuditLogEntry{
		FamilyID:   &familyID,
		UserID:     &invitedBy,
		ActionType: models.AuditInvitationCreated,
		ActionDetails: map[string]any{
			"invitation_id": inv.ID,
			"invited_email": inv.InvitedEmail,
			"expires_at":    inv.ExpiresAt,
		},
	})

	return &inv, JoinLink(s.cfg.FrontendURL, token), nil
}

// GetByToken resolves an invitation together with its family, including the
// family PIN.
func (s *InvitationService) GetByToken(ctx context.Context, token string) (*models.Invitation, error) {
	var inv models.Invitation
	var family models.Family
	dest := append(invitationDest(&inv), familyDest(&family)...)

	err := s.db.Pool.QueryRow(ctx, `
		SELECT i.id, i.family_id, i.token, i.invited_email, i.invited_by, i.status, i.expires_at,
			i.failed_attempts, i.is_locked, i.locked_until, i.accepted_by, i.accepted_at, i.created_at,
			f.id, f.owner_id, f.name, f.pin_code, f.max_members, f.created_at
		FROM family_invitations i
		JOIN families f ON f.id = i.family_id
		WHERE i.token = $1
	`, token).Scan(dest...)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrInvalidToken
	}
	if err != nil {
		return nil, err
	}

	inv.Family = &family
	return &inv, nil
}

// ValidateAndConsume runs the ordered redemption checks. On success the
// invitation's failure counters are reset and it is returned still pending;
// Redeem is the all-or-nothing path that also joins the family.
func (s *InvitationService) ValidateAndConsume(ctx context.Context, token, email, pin string) (*models.Invitation, error) {
	inv, err := s.validate(ctx, token, email, pin)
	if err != nil {
		s.opts.metrics.Redemption(redemptionOutcome(err))
		return nil, err
	}
	return inv, nil
}

func (s *InvitationService) validate(ctx context.Context, token, email, pin string) (*models.Invitation, error) {
	inv, err := s.GetByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	now := s.opts.clock.Now()

	if inv.Status != models.InvitationStatusPending {
		return nil, ErrAlreadyConsumed
	}
	if inv.IsExpired(now) {
		if err := s.expire(ctx, inv); err != nil {
			return nil, err
		}
		return nil, ErrInvitationExpired
	}
	if inv.IsLockedAt(now) {
		return nil, ErrLockedOut
	}

	if !emailMatches(inv.InvitedEmail, email) {
		return nil, s.registerFailure(ctx, inv, ErrEmailMismatch)
	}
	if subtle.ConstantTimeCompare([]byte(inv.Family.PINCode), []byte(pin)) != 1 {
		return nil, s.registerFailure(ctx, inv, ErrWrongPIN)
	}

	tag, err := s.db.Pool.Exec(ctx, `
		UPDATE family_invitations
		SET failed_attempts = 0, is_locked = FALSE, locked_until = NULL
		WHERE id = $1 AND status = 'pending' AND NOT (is_locked AND locked_until > $2)
	`, inv.ID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to reset invitation attempts: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, s.raceOutcome(ctx, inv.ID)
	}

	inv.FailedAttempts = 0
	inv.IsLocked = false
	inv.LockedUntil = nil

	s.auditor.Record(ctx, models.AuditLogEntry{
		FamilyID:      &inv.FamilyID,
		ActionType:    models.AuditInvitationValidated,
		ActionDetails: map[string]any{"invitation_id": inv.ID},
	})

	return inv, nil
}

// raceOutcome explains a reset that matched no row: another request either
// consumed the invitation or locked it after our read.
func (s *InvitationService) raceOutcome(ctx context.Context, invitationID uuid.UUID) error {
	var status string
	err := s.db.Pool.QueryRow(ctx, `
		SELECT status FROM family_invitations WHERE id = $1
	`, invitationID).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrInvalidToken
	}
	if err != nil {
		return err
	}
	if status != models.InvitationStatusPending {
		return ErrAlreadyConsumed
	}
	return ErrLockedOut
}

func (s *InvitationService) expire(ctx context.Context, inv *models.Invitation) error {
	tag, err := s.db.Pool.Exec(ctx, `
		UPDATE family_invitations SET status = $2
		WHERE id = $1 AND status = 'pending'
	`, inv.ID, models.InvitationStatusExpired)
	if err != nil {
		return fmt.Errorf("failed to expire invitation: %w", err)
	}

	if tag.RowsAffected() > 0 {
		s.auditor.Record(ctx, models.AuditLogEntry{
			FamilyID:      &inv.FamilyID,
			ActionType:    models.AuditInvitationExpired,
			ActionDetails: map[string]any{"invitation_id": inv.ID},
		})
	}
	return nil
}

// registerFailure counts a failed attempt through the store's atomic
// procedure and turns the resulting lock state into the returned error. An
// attempt only reports the lockout it caused; a request that lost the race to
// another failing attempt gets ErrLockedOut.
func (s *InvitationService) registerFailure(ctx context.Context, inv *models.Invitation, reason error) error {
	now := s.opts.clock.Now()

	var st models.FailureState
	err := s.db.Pool.QueryRow(ctx, `
		SELECT failed_attempts, is_locked, locked_until
		FROM register_invitation_failure($1, $2, $3, $4)
	`, inv.ID, s.cfg.MaxFailedAttempts, s.cfg.LockoutMinutes, now).Scan(&st.FailedAttempts, &st.IsLocked, &st.LockedUntil)
	if err != nil {
		return fmt.Errorf("failed to register failed attempt: %w", err)
	}

	s.auditor.Record(ctx, models.AuditLogEntry{
		FamilyID:   &inv.FamilyID,
		ActionType: models.AuditInvitationFailedAttempt,
		ActionDetails: map[string]any{
			"invitation_id":   inv.ID,
			"reason":          redemptionOutcome(reason),
			"failed_attempts": st.FailedAttempts,
		},
	})

	if !st.IsLocked {
		return reason
	}

	crossed := st.FailedAttempts == s.cfg.MaxFailedAttempts || st.FailedAttempts == inv.FailedAttempts+1
	if !crossed {
		return ErrLockedOut
	}

	s.opts.metrics.Lockout()
	s.auditor.Record(ctx, models.AuditLogEntry{
		FamilyID:   &inv.FamilyID,
		ActionType: models.AuditInvitationLocked,
		ActionDetails: map[string]any{
			"invitation_id":   inv.ID,
			"failed_attempts": st.FailedAttempts,
			"locked_until":    st.LockedUntil,
		},
	})
	return ErrLockedOutAfterMaxAttempts
}

// MarkAccepted finalizes a pending invitation. A second call fails with
// ErrAlreadyConsumed.
func (s *InvitationService) MarkAccepted(ctx context.Context, invitationID, userID uuid.UUID) error {
	inv, err := s.markAcceptedTx(ctx, s.db.Pool, invitationID, userID)
	if err != nil {
		return err
	}
	s.recordAccepted(ctx, inv, userID)
	return nil
}

func (s *InvitationService) markAcceptedTx(ctx context.Context, q database.Querier, invitationID, userID uuid.UUID) (*models.Invitation, error) {
	var inv models.Invitation
	err := q.QueryRow(ctx, `
		UPDATE family_invitations
		SET status = $2, accepted_by = $3, accepted_at = $4
		WHERE id = $1 AND status = 'pending'
		RETURNING `+invitationColumns,
		invitationID, models.InvitationStatusAccepted, userID, s.opts.clock.Now(),
	).Scan(invitationDest(&inv)...)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrAlreadyConsumed
	}
	if err != nil {
		return nil, fmt.Errorf("failed to accept invitation: %w", err)
	}
	return &inv, nil
}

func (s *InvitationService) recordAccepted(ctx context.Context, inv *models.Invitation, userID uuid.UUID) {
	s.auditor.Record(ctx, models.AuditLogEntry{
		FamilyID:      &inv.FamilyID,
		UserID:        &userID,
		ActionType:    models.AuditInvitationAccepted,
		ActionDetails: map[string]any{"invitation_id": inv.ID},
	})
}

// Redeem validates the credentials and then, in one transaction, joins the
// family and accepts the invitation. Either both writes land or neither does.
func (s *InvitationService) Redeem(ctx context.Context, token, email, pin string, userID uuid.UUID) (*models.FamilyMember, error) {
	inv, err := s.ValidateAndConsume(ctx, token, email, pin)
	if err != nil {
		return nil, err
	}

	var member *models.FamilyMember
	var accepted *models.Invitation
	err = s.db.WithTx(ctx, func(tx pgx.Tx) error {
		var status string
		err := tx.QueryRow(ctx, `
			SELECT status FROM family_invitations WHERE id = $1 FOR UPDATE
		`, inv.ID).Scan(&status)
		if err != nil {
			return fmt.Errorf("failed to lock invitation: %w", err)
		}
		if status != models.InvitationStatusPending {
			return ErrAlreadyConsumed
		}

		member, err = s.families.addMemberTx(ctx, tx, inv.FamilyID, userID)
		if err != nil {
			return err
		}

		accepted, err = s.markAcceptedTx(ctx, tx, inv.ID, userID)
		return err
	})
	if err != nil {
		s.opts.metrics.Redemption(redemptionOutcome(err))
		return nil, err
	}

	s.families.recordMemberAdded(ctx, member)
	s.recordAccepted(ctx, accepted, userID)
	s.opts.metrics.Redemption("success")

	return member, nil
}

// Cancel withdraws a pending invitation of the family.
func (s *InvitationService) Cancel(ctx context.Context, invitationID, familyID, actorID uuid.UUID) error {
	tag, err := s.db.Pool.Exec(ctx, `
		UPDATE family_invitations SET status = $3
		WHERE id = $1 AND family_id = $2 AND status = 'pending'
	`, invitationID, familyID, models.InvitationStatusCancelled)
	if err != nil {
		return fmt.Errorf("failed to cancel invitation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrInvitationNotFound
	}

	s.auditor.Record(ctx, models.AuditLogEntry{
		FamilyID:      &familyID,
		UserID:        &actorID,
		ActionType:    models.AuditInvitationCancelled,
		ActionDetails: map[string]any{"invitation_id": invitationID},
	})
	return nil
}

func (s *InvitationService) ListPending(ctx context.Context, familyID uuid.UUID) ([]models.Invitation, error) {
	var invitations []models.Invitation
	err := pgxscan.Select(ctx, s.db.Pool, &invitations, `
		SELECT `+invitationColumns+`
		FROM family_invitations
		WHERE family_id = $1 AND status = 'pending' AND expires_at > $2
		ORDER BY created_at DESC
	`, familyID, s.opts.clock.Now())
	if err != nil {
		return nil, err
	}
	return invitations, nil
}

func emailMatches(invited, supplied string) bool {
	return strings.EqualFold(strings.TrimSpace(invited), strings.TrimSpace(supplied))
}

func redemptionOutcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrInvalidToken):
		return "invalid_token"
	case errors.Is(err, ErrAlreadyConsumed):
		return "already_consumed"
	case errors.Is(err, ErrInvitationExpired):
		return "expired"
	case errors.Is(err, ErrLockedOutAfterMaxAttempts):
		return "locked_after_max_attempts"
	case errors.Is(err, ErrLockedOut):
		return "locked_out"
	case errors.Is(err, ErrEmailMismatch):
		return "email_mismatch"
	case errors.Is(err, ErrWrongPIN):
		return "wrong_pin"
	case errors.Is(err, ErrCapacityExceeded):
		return "capacity_exceeded"
	case errors.Is(err, ErrAlreadyMember):
		return "already_member"
	default:
		return "error"
	}
}
