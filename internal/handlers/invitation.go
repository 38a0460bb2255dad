package handlers

import (
	"context"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"github.com/dimitrije/family-core/internal/middleware"
	"github.com/dimitrije/family-core/internal/models"
	"github.com/dimitrije/family-core/pkg/dto"
	"github.com/google/uuid"
	"github.com/m1z23r/drift/pkg/drift"
	"github.com/rs/zerolog/log"
)

type InvitationHandler struct {
	invitationService InvitationServiceInterface
	familyService     FamilyServiceInterface
	emailService      EmailServiceInterface
	inviteExpiry      time.Duration
}

func NewInvitationHandler(invitationService InvitationServiceInterface, familyService FamilyServiceInterface, emailService EmailServiceInterface, inviteExpiry time.Duration) *InvitationHandler {
	return &InvitationHandler{
		invitationService: invitationService,
		familyService:     familyService,
		emailService:      emailService,
		inviteExpiry:      inviteExpiry,
	}
}

func (h *InvitationHandler) Create(c *drift.Context) {
	userID := middleware.GetUserID(c)
	if userID == uuid.Nil {
		c.Unauthorized("not authenticated")
		return
	}

	familyID, ok := parseFamilyID(c)
	if !ok {
		return
	}

	var req dto.CreateInvitationRequest
	if err := c.BindJSON(&req); err != nil {
		c.BadRequest("invalid request body")
		return
	}

	email := strings.TrimSpace(req.Email)
	if email == "" {
		c.BadRequest("email is required")
		return
	}
	if _, err := mail.ParseAddress(email); err != nil {
		c.BadRequest("invalid email address")
		return
	}

	ctx := middleware.RequestContext(c)
	if !requireOwner(ctx, c, h.familyService, familyID, userID) {
		return
	}

	inv, link, err := h.invitationService.CreateInvitation(ctx, familyID, email, userID)
	if err != nil {
		respondError(c, err, "failed to create invitation")
		return
	}

	if h.emailService.IsConfigured() {
		h.sendInvite(ctx, inv, link)
	}

	resp := invitationResponse(inv)
	resp.JoinLink = link
	_ = c.JSON(http.StatusCreated, resp)
}

// sendInvite is best effort: the owner still gets the link in the response.
func (h *InvitationHandler) sendInvite(ctx context.Context, inv *models.Invitation, link string) {
	familyName := "your family"
	if family, err := h.familyService.GetByID(ctx, inv.FamilyID); err == nil {
		familyName = family.Name
	}

	if err := h.emailService.SendFamilyInvite(inv.InvitedEmail, familyName, link, h.inviteExpiry); err != nil {
		log.Warn().Err(err).Str("invitation_id", inv.ID.String()).Msg("failed to send invitation email")
	}
}

func (h *InvitationHandler) ListPending(c *drift.Context) {
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
	if !requireOwner(ctx, c, h.familyService, familyID, userID) {
		return
	}

	invitations, err := h.invitationService.ListPending(ctx, familyID)
	if err != nil {
		respondError(c, err, "failed to get invitations")
		return
	}

	response := make([]dto.InvitationResponse, len(invitations))
	for i := range invitations {
		response[i] = invitationResponse(&invitations[i])
	}

	_ = c.JSON(http.StatusOK, response)
}

func (h *InvitationHandler) Cancel(c *drift.Context) {
	userID := middleware.GetUserID(c)
	if userID == uuid.Nil {
		c.Unauthorized("not authenticated")
		return
	}

	familyID, ok := parseFamilyID(c)
	if !ok {
		return
	}

	invitationID, err := uuid.Parse(c.Param("invitationId"))
	if err != nil {
		c.BadRequest("invalid invitation id")
		return
	}

	ctx := middleware.RequestContext(c)
	if !requireOwner(ctx, c, h.familyService, familyID, userID) {
		return
	}

	if err := h.invitationService.Cancel(ctx, invitationID, familyID, userID); err != nil {
		respondError(c, err, "failed to cancel invitation")
		return
	}

	_ = c.JSON(http.StatusOK, dto.MessageResponse{Message: "invitation cancelled"})
}

// Preview shows the join page details for a token. The family PIN is never
// part of the response.
func (h *InvitationHandler) Preview(c *drift.Context) {
	token := c.Param("token")
	if token == "" {
		c.BadRequest("token is required")
		return
	}

	inv, err := h.invitationService.GetByToken(c.Request.Context(), token)
	if err != nil {
		respondError(c, err, "failed to get invitation")
		return
	}

	resp := dto.InvitationPreviewResponse{
		InvitedEmail: inv.InvitedEmail,
		Status:       inv.Status,
		ExpiresAt:    inv.ExpiresAt,
		IsLocked:     inv.IsLocked,
		LockedUntil:  inv.LockedUntil,
	}
	if inv.Family != nil {
		resp.FamilyName = inv.Family.Name
	}

	_ = c.JSON(http.StatusOK, resp)
}

func (h *InvitationHandler) Redeem(c *drift.Context) {
	userID := middleware.GetUserID(c)
	if userID == uuid.Nil {
		c.Unauthorized("not authenticated")
		return
	}

	token := c.Param("token")
	if token == "" {
		c.BadRequest("token is required")
		return
	}

	var req dto.RedeemInvitationRequest
	if err := c.BindJSON(&req); err != nil {
		c.BadRequest("invalid request body")
		return
	}

	pin := strings.TrimSpace(req.PIN)
	if pin == "" {
		c.BadRequest("pin is required")
		return
	}

	email := strings.TrimSpace(req.Email)
	if email == "" {
		email = middleware.GetUserEmail(c)
	}
	if email == "" {
		c.BadRequest("email is required")
		return
	}

	member, err := h.invitationService.Redeem(middleware.RequestContext(c), token, email, pin, userID)
	if err != nil {
		respondError(c, err, "failed to redeem invitation")
		return
	}

	_ = c.JSON(http.StatusOK, dto.RedeemInvitationResponse{
		FamilyID: member.FamilyID,
		Member:   memberResponse(member),
	})
}

func invitationResponse(inv *models.Invitation) dto.InvitationResponse {
	return dto.InvitationResponse{
		ID:             inv.ID,
		FamilyID:       inv.FamilyID,
		InvitedEmail:   inv.InvitedEmail,
		Status:         inv.Status,
		ExpiresAt:      inv.ExpiresAt,
		FailedAttempts: inv.FailedAttempts,
		IsLocked:       inv.IsLocked,
		LockedUntil:    inv.LockedUntil,
		CreatedAt:      inv.CreatedAt,
	}
}
