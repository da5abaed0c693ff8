package handlers

import (
	"strings"
	"time"

	"github.com/dimitrije/agency-api/internal/middleware"
	"github.com/dimitrije/agency-api/internal/models"
	"github.com/dimitrije/agency-api/internal/services"
	"github.com/dimitrije/agency-api/pkg/dto"
	"github.com/google/uuid"
	"github.com/m1z23r/drift/pkg/drift"
)

type InvitationHandler struct {
	invitationService InvitationServiceInterface
	now               func() time.Time
}

func NewInvitationHandler(invitationService InvitationServiceInterface) *InvitationHandler {
	return &InvitationHandler{invitationService: invitationService, now: time.Now}
}

func (h *InvitationHandler) Create(c *drift.Context) {
	actor, ok := currentMember(c)
	if !ok {
		return
	}

	var req dto.CreateInvitationRequest
	if err := c.BindJSON(&req); err != nil {
		c.BadRequest("invalid request body")
		return
	}

	email := services.NormalizeEmail(req.Email)
	if email == "" || !strings.Contains(email, "@") {
		c.BadRequest("a valid email is required")
		return
	}
	if req.RoleID == uuid.Nil {
		c.BadRequest("role_id is required")
		return
	}

	inv, err := h.invitationService.Create(c.Request.Context(), actor, services.CreateInvitationInput{
		Email:     email,
		RoleID:    req.RoleID,
		ProjectID: req.ProjectID,
	})
	if err != nil {
		respondError(c, err, "failed to create invitation")
		return
	}

	_ = c.JSON(201, dto.NewInvitationResponse(inv, h.now()))
}

// List returns the tenant's invitations. status filters on the effective
// status, so "expired" and "pending" are disjoint.
func (h *InvitationHandler) List(c *drift.Context) {
	actor, ok := currentMember(c)
	if !ok {
		return
	}

	status := c.QueryParam("status")
	switch status {
	case "", models.InvitationPending, models.InvitationAccepted, models.InvitationRejected,
		models.InvitationCancelled, models.InvitationExpired:
	default:
		c.BadRequest("invalid status filter")
		return
	}

	page := pageFromQuery(c)
	invs, total, err := h.invitationService.List(c.Request.Context(), actor.TenantID, status, page)
	if err != nil {
		respondError(c, err, "failed to list invitations")
		return
	}

	_ = c.JSON(200, listResponse(dto.NewInvitationResponses(invs, h.now()), page, total))
}

// ListMine returns the caller's pending invitations across all tenants.
func (h *InvitationHandler) ListMine(c *drift.Context) {
	email := middleware.GetUserEmail(c)
	if email == "" {
		c.Unauthorized("not authenticated")
		return
	}

	invs, err := h.invitationService.ListMine(c.Request.Context(), email)
	if err != nil {
		respondError(c, err, "failed to list invitations")
		return
	}

	_ = c.JSON(200, dto.NewInvitationResponses(invs, h.now()))
}

// Preview is public: anyone holding the token may see who invited them where.
func (h *InvitationHandler) Preview(c *drift.Context) {
	token := c.Param("token")
	if token == "" {
		c.BadRequest("token is required")
		return
	}

	inv, err := h.invitationService.GetByToken(c.Request.Context(), token)
	if err != nil {
		respondError(c, err, "failed to load invitation")
		return
	}

	_ = c.JSON(200, dto.NewInvitationPreview(inv, h.now()))
}

func (h *InvitationHandler) Accept(c *drift.Context) {
	userID := middleware.GetUserID(c)
	if userID == uuid.Nil {
		c.Unauthorized("not authenticated")
		return
	}

	id, ok := paramUUID(c, "id", "invitation")
	if !ok {
		return
	}

	inv, err := h.invitationService.AcceptByID(c.Request.Context(), userID, middleware.GetUserEmail(c), id)
	if err != nil {
		respondError(c, err, "failed to accept invitation")
		return
	}

	_ = c.JSON(200, dto.NewInvitationResponse(inv, h.now()))
}

func (h *InvitationHandler) AcceptByToken(c *drift.Context) {
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

	inv, err := h.invitationService.AcceptByToken(c.Request.Context(), userID, middleware.GetUserEmail(c), token)
	if err != nil {
		respondError(c, err, "failed to accept invitation")
		return
	}

	_ = c.JSON(200, dto.NewInvitationResponse(inv, h.now()))
}

func (h *InvitationHandler) Reject(c *drift.Context) {
	email := middleware.GetUserEmail(c)
	if email == "" {
		c.Unauthorized("not authenticated")
		return
	}

	id, ok := paramUUID(c, "id", "invitation")
	if !ok {
		return
	}

	inv, err := h.invitationService.Reject(c.Request.Context(), email, id)
	if err != nil {
		respondError(c, err, "failed to reject invitation")
		return
	}

	_ = c.JSON(200, dto.NewInvitationResponse(inv, h.now()))
}

func (h *InvitationHandler) Cancel(c *drift.Context) {
	actor, ok := currentMember(c)
	if !ok {
		return
	}

	id, ok := paramUUID(c, "id", "invitation")
	if !ok {
		return
	}

	inv, err := h.invitationService.Cancel(c.Request.Context(), actor.TenantID, id)
	if err != nil {
		respondError(c, err, "failed to cancel invitation")
		return
	}

	_ = c.JSON(200, dto.NewInvitationResponse(inv, h.now()))
}

func (h *InvitationHandler) Resend(c *drift.Context) {
	actor, ok := currentMember(c)
	if !ok {
		return
	}

	id, ok := paramUUID(c, "id", "invitation")
	if !ok {
		return
	}

	inv, err := h.invitationService.Resend(c.Request.Context(), actor.TenantID, id)
	if err != nil {
		respondError(c, err, "failed to resend invitation")
		return
	}

	_ = c.JSON(200, dto.NewInvitationResponse(inv, h.now()))
}
