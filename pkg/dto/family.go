package dto

import (
	"time"

	"github.com/google/uuid"
)

type CreateFamilyRequest struct {
	Name string `json:"name"`
}

// FamilyResponse carries the PIN only for the owner.
type FamilyResponse struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	OwnerID     uuid.UUID `json:"owner_id"`
	MaxMembers  int       `json:"max_members"`
	MemberCount int       `json:"member_count"`
	Role        string    `json:"role"`
	PINCode     string    `json:"pin_code,omitempty"`
}

type FamilyMemberResponse struct {
	ID       uuid.UUID `json:"id"`
	UserID   uuid.UUID `json:"user_id"`
	Role     string    `json:"role"`
	JoinedAt time.Time `json:"joined_at"`
}
