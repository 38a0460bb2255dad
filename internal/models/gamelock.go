package models

import (
	"time"

	"github.com/google/uuid"
)

type GameLock struct {
	FamilyID  uuid.UUID `json:"family_id" db:"family_id"`
	GameID    string    `json:"game_id" db:"game_id"`
	LockedBy  uuid.UUID `json:"locked_by" db:"locked_by"`
	ExpiresAt time.Time `json:"expires_at" db:"expires_at"`
	LockedAt  time.Time `json:"locked_at" db:"locked_at"`
}

func (l *GameLock) IsActive(now time.Time) bool {
	return l.ExpiresAt.After(now)
}

// LockResult is the outcome of a claim. A conflict is reported with OK false
// and the current holder, not as an error.
type LockResult struct {
	OK        bool      `json:"ok"`
	LockedBy  uuid.UUID `json:"locked_by"`
	ExpiresAt time.Time `json:"expires_at"`
}
