package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/dimitrije/family-core/internal/middleware"
	"github.com/dimitrije/family-core/internal/services"
	"github.com/dimitrije/family-core/pkg/dto"
	"github.com/google/uuid"
	"github.com/m1z23r/drift/pkg/drift"
)

const maxGameIDLength = 255

type GameLockHandler struct {
	gameLockService GameLockServiceInterface
	familyService   FamilyServiceInterface
}

func NewGameLockHandler(gameLockService GameLockServiceInterface, familyService FamilyServiceInterface) *GameLockHandler {
	return &GameLockHandler{
		gameLockService: gameLockService,
		familyService:   familyService,
	}
}

// gameTarget resolves the caller, family and game of a lock route and checks
// membership.
func (h *GameLockHandler) gameTarget(c *drift.Context) (userID, familyID uuid.UUID, gameID string, ok bool) {
	userID = middleware.GetUserID(c)
	if userID == uuid.Nil {
		c.Unauthorized("not authenticated")
		return
	}

	familyID, ok = parseFamilyID(c)
	if !ok {
		return
	}

	gameID = strings.TrimSpace(c.Param("gameId"))
	if gameID == "" || len(gameID) > maxGameIDLength {
		c.BadRequest("invalid game id")
		return userID, familyID, "", false
	}

	ok = requireMember(c.Request.Context(), c, h.familyService, familyID, userID)
	return
}

func (h *GameLockHandler) Lock(c *drift.Context) {
	userID, familyID, gameID, ok := h.gameTarget(c)
	if !ok {
		return
	}

	result, err := h.gameLockService.Lock(middleware.RequestContext(c), familyID, gameID, userID)
	if errors.Is(err, services.ErrGameLockContended) {
		_ = c.JSON(http.StatusConflict, dto.MessageResponse{Message: err.Error()})
		return
	}
	if err != nil {
		respondError(c, err, "failed to lock game")
		return
	}

	if !result.OK {
		holder := result.LockedBy
		_ = c.JSON(http.StatusConflict, dto.LockGameResponse{
			OK:        false,
			LockedBy:  &holder,
			ExpiresAt: result.ExpiresAt,
		})
		return
	}

	_ = c.JSON(http.StatusOK, dto.LockGameResponse{
		OK:        true,
		ExpiresAt: result.ExpiresAt,
	})
}

func (h *GameLockHandler) Unlock(c *drift.Context) {
	userID, familyID, gameID, ok := h.gameTarget(c)
	if !ok {
		return
	}

	if err := h.gameLockService.Unlock(middleware.RequestContext(c), familyID, gameID, userID); err != nil {
		respondError(c, err, "failed to unlock game")
		return
	}

	_ = c.JSON(http.StatusOK, dto.MessageResponse{Message: "game unlocked"})
}

func (h *GameLockHandler) ForceUnlock(c *drift.Context) {
	userID, familyID, gameID, ok := h.gameTarget(c)
	if !ok {
		return
	}

	if err := h.gameLockService.ForceUnlock(middleware.RequestContext(c), familyID, gameID, userID); err != nil {
		respondError(c, err, "failed to unlock game")
		return
	}

	_ = c.JSON(http.StatusOK, dto.MessageResponse{Message: "game unlocked"})
}

func (h *GameLockHandler) ListActive(c *drift.Context) {
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

	locks, err := h.gameLockService.ListActive(ctx, familyID)
	if err != nil {
		respondError(c, err, "failed to get game locks")
		return
	}

	response := make([]dto.GameLockResponse, len(locks))
	for i, l := range locks {
		response[i] = dto.GameLockResponse{
			GameID:    l.GameID,
			LockedBy:  l.LockedBy,
			ExpiresAt: l.ExpiresAt,
			LockedAt:  l.LockedAt,
		}
	}

	_ = c.JSON(http.StatusOK, response)
}
