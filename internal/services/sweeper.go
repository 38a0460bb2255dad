package services

import (
	"context"
	"fmt"
	"time"

	"github.com/dimitrije/family-core/internal/database"
	"github.com/rs/zerolog/log"
)

// StaleLockGrace is how long an expired game lease is kept before the sweeper
// deletes it. Expired leases are already inert; the grace only keeps recent
// holders visible to operators.
const StaleLockGrace = time.Hour

type SweepResult struct {
	ExpiredInvitations int64
	RemovedGameLocks   int64
}

// Sweeper reclaims rows that lazy expiry has left behind. Nothing depends on
// it for correctness.
type Sweeper struct {
	db   *database.DB
	opts options
}

func NewSweeper(db *database.DB, opts ...Option) *Sweeper {
	return &Sweeper{db: db, opts: buildOptions(opts)}
}

func (s *Sweeper) Sweep(ctx context.Context) (SweepResult, error) {
	now := s.opts.clock.Now()
	var result SweepResult

	tag, err := s.db.Pool.Exec(ctx, `
		UPDATE family_invitations SET status = 'expired'
		WHERE status = 'pending' AND expires_at < $1
	`, now)
	if err != nil {
		return result, fmt.Errorf("failed to expire invitations: %w", err)
	}
	result.ExpiredInvitations = tag.RowsAffected()

	tag, err = s.db.Pool.Exec(ctx, `
		DELETE FROM game_locks WHERE expires_at < $1
	`, now.Add(-StaleLockGrace))
	if err != nil {
		return result, fmt.Errorf("failed to remove stale game locks: %w", err)
	}
	result.RemovedGameLocks = tag.RowsAffected()

	s.opts.metrics.SweeperRemoved("invitations", result.ExpiredInvitations)
	s.opts.metrics.SweeperRemoved("game_locks", result.RemovedGameLocks)

	return result, nil
}

// Run sweeps every interval until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			result, err := s.Sweep(ctx)
			if err != nil {
				log.Error().Err(err).Msg("sweep failed")
				continue
			}
			log.Debug().
				Int64("expired_invitations", result.ExpiredInvitations).
				Int64("removed_game_locks", result.RemovedGameLocks).
				Msg("sweep finished")
		}
	}
}
