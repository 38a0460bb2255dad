package dto

import (
	"time"

	"github.com/google/uuid"
)

type LockGameResponse struct {
	OK        bool       `json:"ok"`
	LockedBy  *uuid.UUID `json:"locked_by,omitempty"`
	ExpiresAt time.Time  `json:"expires_at"`
}

type GameLockResponse struct {
	GameID    string    `json:"game_id"`
	LockedBy  uuid.UUID `json:"locked_by"`
	ExpiresAt time.Time `json:"expires_at"`
	LockedAt  time.Time `json:"locked_at"`
}

type MessageResponse struct {
	Message string `json:"message"`
}
