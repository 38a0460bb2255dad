// Package sse fans family events out to members connected over server-sent
// events.
package sse

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/dimitrije/family-core/internal/models"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

type Event struct {
	Type     string         `json:"type"`
	FamilyID uuid.UUID      `json:"family_id"`
	UserID   *uuid.UUID     `json:"user_id,omitempty"`
	Data     map[string]any `json:"data,omitempty"`
}

type Client struct {
	ID       string
	UserID   uuid.UUID
	FamilyID uuid.UUID
	Send     chan []byte
}

// streamedActions are the audit actions other family members care about.
// Invitation traffic stays in the audit log only.
var streamedActions = map[string]bool{
	models.AuditGameLocked:        true,
	models.AuditGameUnlocked:      true,
	models.AuditGameForceUnlocked: true,
	models.AuditMemberAdded:       true,
}

type Hub struct {
	clients    map[string]*Client
	register   chan *Client
	unregister chan *Client
	broadcast  chan Event
	quit       chan struct{}
	stopOnce   sync.Once
	mu         sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan Event, 256),
		quit:       make(chan struct{}),
	}
}

// Run processes registrations and broadcasts until Stop is called.
func (h *Hub) Run() {
	for {
		select {
		case <-h.quit:
			h.mu.Lock()
			for id, client := range h.clients {
				delete(h.clients, id)
				close(client.Send)
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.ID] = client
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client.ID]; ok {
				delete(h.clients, client.ID)
				close(client.Send)
			}
			h.mu.Unlock()

		case ev := <-h.broadcast:
			data, err := json.Marshal(ev)
			if err != nil {
				log.Warn().Err(err).Str("type", ev.Type).Msg("failed to encode family event")
				continue
			}
			h.mu.RLock()
			for _, client := range h.clients {
				if client.FamilyID != ev.FamilyID {
					continue
				}
				select {
				case client.Send <- data:
				default:
					// slow consumer
				}
			}
			h.mu.RUnlock()
		}
	}
}

func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.quit) })
}

func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.quit:
		close(client.Send)
	}
}

func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.quit:
	}
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Publish queues ev for delivery. Events are dropped when the queue is full.
func (h *Hub) Publish(ev Event) {
	select {
	case h.broadcast <- ev:
	default:
		log.Warn().Str("type", ev.Type).Msg("family event queue full, event dropped")
	}
}

// Record forwards family-visible audit entries to connected members, so the
// hub can sit next to the audit logger as a recorder.
func (h *Hub) Record(_ context.Context, entry models.AuditLogEntry) {
	if entry.FamilyID == nil || !streamedActions[entry.ActionType] {
		return
	}
	h.Publish(Event{
		Type:     entry.ActionType,
		FamilyID: *entry.FamilyID,
		UserID:   entry.UserID,
		Data:     entry.ActionDetails,
	})
}
