package handlers

import (
	"github.com/dimitrije/agency-api/internal/sse"
	"github.com/google/uuid"
	"github.com/m1z23r/drift/pkg/drift"
)

// StreamHub is the part of the SSE hub the stream handler needs.
type StreamHub interface {
	Register(client *sse.Client)
	Unregister(client *sse.Client)
}

type SSEHandler struct {
	hub StreamHub
}

func NewSSEHandler(hub StreamHub) *SSEHandler {
	return &SSEHandler{hub: hub}
}

// Connect holds the request open and pushes every notification created for
// the caller in the selected tenant until the client goes away.
func (h *SSEHandler) Connect(c *drift.Context) {
	actor, ok := currentMember(c)
	if !ok {
		return
	}

	sseCtx := c.SSE()

	clientID := uuid.NewString()
	client := &sse.Client{
		ID:       clientID,
		UserID:   actor.UserID,
		TenantID: actor.TenantID,
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
			if err := sseCtx.Send(string(msg), "notification", ""); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}
