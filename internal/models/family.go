package models

import (
	"time"

	"github.com/google/uuid"
)

// DefaultMaxMembers is the roster capacity given to every new family.
const DefaultMaxMembers = 6

type Family struct {
	ID         uuid.UUID `json:"id" db:"id"`
	OwnerID    uuid.UUID `json:"owner_id" db:"owner_id"`
	Name       string    `json:"name" db:"name"`
	PINCode    string    `json:"pin_code,omitempty" db:"pin_code"`
	MaxMembers int       `json:"max_members" db:"max_members"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

type FamilyMember struct {
	ID       uuid.UUID `json:"id" db:"id"`
	FamilyID uuid.UUID `json:"family_id" db:"family_id"`
	UserID   uuid.UUID `json:"user_id" db:"user_id"`
	Role     string    `json:"role" db:"role"`
	JoinedAt time.Time `json:"joined_at" db:"joined_at"`
}

const (
	RoleOwner  = "owner"
	RoleMember = "member"
)
