package handlers

import (
	"github.com/dimitrije/family-core/internal/middleware"
	"github.com/dimitrije/family-core/internal/sse"
	"github.com/google/uuid"
	"github.com/m1z23r/drift/pkg/drift"
)

// EventHub is the part of sse.Hub the stream handler needs.
type EventHub interface {
	Register(client *sse.Client)
	Unregister(client *sse.Client)
}

type EventsHandler struct {
	hub           EventHub
	familyService FamilyServiceInterface
}

func NewEventsHandler(hub EventHub, familyService FamilyServiceInterface) *EventsHandler {
	return &EventsHandler{
		hub:           hub,
		familyService: familyService,
	}
}

// Stream pushes lock and membership changes of one family to a member until
// the client disconnects.
func (h *EventsHandler) Stream(c *drift.Context) {
	userID := middleware.GetUserID(c)
	if userID == uuid.Nil {
		c.Unauthorized("not authenticated")
		return
	}

	familyID, ok := parseFamilyID(c)
	if !ok {
		return
	}

	if !requireMember(c.Request.Context(), c, h.familyService, familyID, userID) {
		return
	}

	sseCtx := c.SSE()

	clientID := uuid.NewString()
	client := &sse.Client{
		ID:       clientID,
		UserID:   userID,
		FamilyID: familyID,
		Send:     make(chan []byte, 64),
	}

	h.hub.Register(client)
	defer h.hub.Unregister(client)

	if err := sseCtx.SendJSON(map[string]string{
		"type":      "connected",
		"client_id": clientID,
	}, "system", ""); err != nil {
		return
	}

	done := c.Request.Context().Done()
	for {
		select {
		case msg, ok := <-client.Send:
			if !ok {
				return
			}
			if err := sseCtx.Send(string(msg), "message", ""); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}
