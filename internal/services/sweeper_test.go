package services

import (
	"context"
	"testing"
	"time"

	"github.com/dimitrije/family-core/internal/clock"
	"github.com/dimitrije/family-core/internal/database"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSweeper_Sweep(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	now := time.Date(2025, 6, 2, 3, 0, 0, 0, time.UTC)
	sweeper := NewSweeper(&database.DB{Pool: mock}, WithClock(clock.NewManual(now)))

	mock.ExpectExec(`UPDATE family_invitations SET status = 'expired'`).
		WithArgs(now).
		WillReturnResult(pgxmock.NewResult("UPDATE", 4))
	mock.ExpectExec(`DELETE FROM game_locks WHERE expires_at`).
		WithArgs(now.Add(-StaleLockGrace)).
		WillReturnResult(pgxmock.NewResult("DELETE", 2))

	result, err := sweeper.Sweep(context.Background())

	require.NoError(t, err)
	assert.Equal(t, int64(4), result.ExpiredInvitations)
	assert.Equal(t, int64(2), result.RemovedGameLocks)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSweeper_Sweep_StopsOnError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	sweeper := NewSweeper(&database.DB{Pool: mock})

	mock.ExpectExec(`UPDATE family_invitations`).
		WithArgs(pgxmock.AnyArg()).
		WillReturnError(assert.AnError)

	_, err = sweeper.Sweep(context.Background())

	assert.ErrorIs(t, err, assert.AnError)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSweeper_RunStopsWithContext(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	sweeper := NewSweeper(&database.DB{Pool: mock})
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		sweeper.Run(ctx, time.Hour)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
