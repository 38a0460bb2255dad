package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/dimitrije/family-core/internal/middleware"
	"github.com/dimitrije/family-core/internal/models"
	"github.com/dimitrije/family-core/internal/services"
	"github.com/dimitrije/family-core/pkg/dto"
	"github.com/google/uuid"
	"github.com/m1z23r/drift/pkg/drift"
)

const maxFamilyNameLength = 255

type FamilyHandler struct {
	familyService FamilyServiceInterface
}

func NewFamilyHandler(familyService FamilyServiceInterface) *FamilyHandler {
	return &FamilyHandler{familyService: familyService}
}

func (h *FamilyHandler) Create(c *drift.Context) {
	userID := middleware.GetUserID(c)
	if userID == uuid.Nil {
		c.Unauthorized("not authenticated")
		return
	}

	var req dto.CreateFamilyRequest
	if err := c.BindJSON(&req); err != nil {
		c.BadRequest("invalid request body")
		return
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		c.BadRequest("name is required")
		return
	}
	if len(name) > maxFamilyNameLength {
		c.BadRequest("name is too long")
		return
	}

	family, err := h.familyService.CreateFamily(middleware.RequestContext(c), userID, name)
	if err != nil {
		respondError(c, err, "failed to create family")
		return
	}

	_ = c.JSON(http.StatusCreated, familyResponse(family, userID, 1))
}

func (h *FamilyHandler) GetMine(c *drift.Context) {
	userID := middleware.GetUserID(c)
	if userID == uuid.Nil {
		c.Unauthorized("not authenticated")
		return
	}

	ctx := c.Request.Context()
	family, err := h.familyService.GetFamilyForUser(ctx, userID)
	if err != nil {
		respondError(c, err, "failed to get family")
		return
	}
	if family == nil {
		c.NotFound("family not found")
		return
	}

	count, err := h.familyService.CountMembers(ctx, family.ID)
	if err != nil {
		respondError(c, err, "failed to get family")
		return
	}

	_ = c.JSON(http.StatusOK, familyResponse(family, userID, count))
}

func (h *FamilyHandler) ListMembers(c *drift.Context) {
	userID := middleware.GetUserID(c)
	if userID == uuid.Nil {
		c.Unauthorized("not authenticated")
		return
	}

	familyID, ok := parseFamilyID(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	if !requireMember(ctx, c, h.familyService, familyID, userID) {
		return
	}

	members, err := h.familyService.ListMembers(ctx, familyID)
	if err != nil {
		respondError(c, err, "failed to get members")
		return
	}

	response := make([]dto.FamilyMemberResponse, len(members))
	for i := range members {
		response[i] = memberResponse(&members[i])
	}

	_ = c.JSON(http.StatusOK, response)
}

func familyResponse(family *models.Family, userID uuid.UUID, memberCount int) dto.FamilyResponse {
	resp := dto.FamilyResponse{
		ID:          family.ID,
		Name:        family.Name,
		OwnerID:     family.OwnerID,
		MaxMembers:  family.MaxMembers,
		MemberCount: memberCount,
		Role:        models.RoleMember,
	}
	if family.OwnerID == userID {
		resp.Role = models.RoleOwner
		resp.PINCode = family.PINCode
	}
	return resp
}

func memberResponse(m *models.FamilyMember) dto.FamilyMemberResponse {
	return dto.FamilyMemberResponse{
		ID:       m.ID,
		UserID:   m.UserID,
		Role:     m.Role,
		JoinedAt: m.JoinedAt,
	}
}

func parseFamilyID(c *drift.Context) (uuid.UUID, bool) {
	familyID, err := uuid.Parse(c.Param("familyId"))
	if err != nil {
		c.BadRequest("invalid family id")
		return uuid.Nil, false
	}
	return familyID, true
}

// requireMember answers 404 for non-members so family ids are not probeable.
func requireMember(ctx context.Context, c *drift.Context, families FamilyServiceInterface, familyID, userID uuid.UUID) bool {
	isMember, err := families.IsMember(ctx, familyID, userID)
	if err != nil {
		respondError(c, err, "failed to check membership")
		return false
	}
	if !isMember {
		c.NotFound("family not found")
		return false
	}
	return true
}

func requireOwner(ctx context.Context, c *drift.Context, families FamilyServiceInterface, familyID, userID uuid.UUID) bool {
	isOwner, err := families.IsOwner(ctx, familyID, userID)
	if err != nil {
		respondError(c, err, "failed to check ownership")
		return false
	}
	if !isOwner {
		respondError(c, services.ErrNotFamilyOwner, "")
		return false
	}
	return true
}
