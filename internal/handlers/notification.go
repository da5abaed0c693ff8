package handlers

import (
	"github.com/dimitrije/agency-api/pkg/dto"
	"github.com/m1z23r/drift/pkg/drift"
)

type NotificationHandler struct {
	notificationService NotificationServiceInterface
}

func NewNotificationHandler(notificationService NotificationServiceInterface) *NotificationHandler {
	return &NotificationHandler{notificationService: notificationService}
}

func (h *NotificationHandler) List(c *drift.Context) {
	actor, ok := currentMember(c)
	if !ok {
		return
	}

	unreadOnly := c.QueryParam("unread") == "true"
	page := pageFromQuery(c)
	items, total, err := h.notificationService.List(c.Request.Context(), actor.TenantID, actor.UserID, unreadOnly, page)
	if err != nil {
		respondError(c, err, "failed to list notifications")
		return
	}

	_ = c.JSON(200, listResponse(items, page, total))
}

func (h *NotificationHandler) UnreadCount(c *drift.Context) {
	actor, ok := currentMember(c)
	if !ok {
		return
	}

	n, err := h.notificationService.UnreadCount(c.Request.Context(), actor.TenantID, actor.UserID)
	if err != nil {
		respondError(c, err, "failed to count notifications")
		return
	}

	_ = c.JSON(200, dto.UnreadCountResponse{Unread: n})
}

func (h *NotificationHandler) MarkRead(c *drift.Context) {
	actor, ok := currentMember(c)
	if !ok {
		return
	}

	id, ok := paramUUID(c, "id", "notification")
	if !ok {
		return
	}

	n, err := h.notificationService.MarkRead(c.Request.Context(), actor.TenantID, actor.UserID, id)
	if err != nil {
		respondError(c, err, "failed to mark notification read")
		return
	}

	_ = c.JSON(200, n)
}

func (h *NotificationHandler) MarkAllRead(c *drift.Context) {
	actor, ok := currentMember(c)
	if !ok {
		return
	}

	updated, err := h.notificationService.MarkAllRead(c.Request.Context(), actor.TenantID, actor.UserID)
	if err != nil {
		respondError(c, err, "failed to mark notifications read")
		return
	}

	_ = c.JSON(200, dto.MarkAllReadResponse{Updated: updated})
}
