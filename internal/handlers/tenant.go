package handlers

import (
	"errors"
	"strings"

	"github.com/dimitrije/agency-api/internal/middleware"
	"github.com/dimitrije/agency-api/internal/models"
	"github.com/dimitrije/agency-api/internal/services"
	"github.com/dimitrije/agency-api/pkg/dto"
	"github.com/google/uuid"
	"github.com/m1z23r/drift/pkg/drift"
)

type TenantHandler struct {
	tenantService TenantServiceInterface
}

func NewTenantHandler(tenantService TenantServiceInterface) *TenantHandler {
	return &TenantHandler{tenantService: tenantService}
}

func (h *TenantHandler) Create(c *drift.Context) {
	userID := middleware.GetUserID(c)
	if userID == uuid.Nil {
		c.Unauthorized("not authenticated")
		return
	}

	var req dto.CreateTenantRequest
	if err := c.BindJSON(&req); err != nil {
		c.BadRequest("invalid request body")
		return
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		c.BadRequest("name is required")
		return
	}
	slug := services.Slugify(req.Slug)
	if slug == "" {
		slug = services.Slugify(name)
	}
	if slug == "" {
		c.BadRequest("slug is required")
		return
	}

	tenant, err := h.tenantService.Create(c.Request.Context(), name, slug, userID)
	if err != nil {
		respondError(c, err, "failed to create tenant")
		return
	}

	_ = c.JSON(201, dto.NewTenantResponse(tenant, models.RoleOwner))
}

// List returns every tenant the caller belongs to, with the caller's role.
func (h *TenantHandler) List(c *drift.Context) {
	userID := middleware.GetUserID(c)
	if userID == uuid.Nil {
		c.Unauthorized("not authenticated")
		return
	}

	tenants, err := h.tenantService.ListForUser(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err, "failed to list tenants")
		return
	}

	response := make([]dto.TenantResponse, len(tenants))
	for i := range tenants {
		response[i] = dto.NewTenantResponse(&tenants[i].Tenant, tenants[i].Role)
	}
	_ = c.JSON(200, response)
}

func (h *TenantHandler) Get(c *drift.Context) {
	userID := middleware.GetUserID(c)
	if userID == uuid.Nil {
		c.Unauthorized("not authenticated")
		return
	}

	tenantID, ok := paramUUID(c, "id", "tenant")
	if !ok {
		return
	}

	ctx := c.Request.Context()

	membership, err := h.tenantService.GetMembership(ctx, tenantID, userID)
	if err != nil {
		// Non-members cannot tell a foreign tenant from a missing one.
		respondError(c, notMemberAsNotFound(err), "failed to load tenant")
		return
	}

	tenant, err := h.tenantService.GetByID(ctx, tenantID)
	if err != nil {
		respondError(c, err, "failed to load tenant")
		return
	}

	_ = c.JSON(200, dto.NewTenantResponse(tenant, membership.Role))
}

func notMemberAsNotFound(err error) error {
	if errors.Is(err, services.ErrNotTenantMember) {
		return services.ErrTenantNotFound
	}
	return err
}

func (h *TenantHandler) ListMembers(c *drift.Context) {
	actor, ok := currentMember(c)
	if !ok {
		return
	}

	page := pageFromQuery(c)
	members, total, err := h.tenantService.ListMembers(c.Request.Context(), actor.TenantID, page)
	if err != nil {
		respondError(c, err, "failed to list members")
		return
	}

	response := make([]dto.MemberResponse, len(members))
	for i := range members {
		response[i] = dto.NewMemberResponse(&members[i])
	}
	_ = c.JSON(200, listResponse(response, page, total))
}

// UpdateMember changes a member's role and/or hourly rate.
func (h *TenantHandler) UpdateMember(c *drift.Context) {
	actor, ok := currentMember(c)
	if !ok {
		return
	}

	userID, ok := paramUUID(c, "userId", "user")
	if !ok {
		return
	}

	var req dto.UpdateMemberRequest
	if err := c.BindJSON(&req); err != nil {
		c.BadRequest("invalid request body")
		return
	}
	if req.RoleID == nil && req.HourlyRate == nil {
		c.BadRequest("role_id or hourly_rate is required")
		return
	}
	if req.HourlyRate != nil && *req.HourlyRate < 0 {
		c.BadRequest("hourly_rate must not be negative")
		return
	}

	ctx := c.Request.Context()

	if req.RoleID != nil {
		if _, err := h.tenantService.UpdateMemberRole(ctx, actor.TenantID, userID, *req.RoleID); err != nil {
			respondError(c, err, "failed to update member")
			return
		}
	}
	if req.HourlyRate != nil {
		if err := h.tenantService.UpdateMemberRate(ctx, actor.TenantID, userID, *req.HourlyRate); err != nil {
			respondError(c, err, "failed to update member")
			return
		}
	}

	member, err := h.tenantService.GetMembership(ctx, actor.TenantID, userID)
	if err != nil {
		respondError(c, err, "failed to load member")
		return
	}
	_ = c.JSON(200, dto.NewMemberResponse(member))
}

func (h *TenantHandler) RemoveMember(c *drift.Context) {
	actor, ok := currentMember(c)
	if !ok {
		return
	}

	userID, ok := paramUUID(c, "userId", "user")
	if !ok {
		return
	}

	if err := h.tenantService.RemoveMember(c.Request.Context(), actor.TenantID, userID); err != nil {
		respondError(c, err, "failed to remove member")
		return
	}

	_ = c.JSON(200, dto.MessageResponse{Message: "member removed"})
}

// Delete removes the selected tenant. The path id must name it.
func (h *TenantHandler) Delete(c *drift.Context) {
	actor, ok := currentMember(c)
	if !ok {
		return
	}

	tenantID, ok := paramUUID(c, "id", "tenant")
	if !ok {
		return
	}
	if tenantID != actor.TenantID {
		respondError(c, services.ErrTenantNotFound, "failed to delete tenant")
		return
	}

	if err := h.tenantService.Delete(c.Request.Context(), tenantID); err != nil {
		respondError(c, err, "failed to delete tenant")
		return
	}

	_ = c.JSON(200, dto.MessageResponse{Message: "tenant deleted"})
}

func (h *TenantHandler) ListRoles(c *drift.Context) {
	roles, err := h.tenantService.ListRoles(c.Request.Context())
	if err != nil {
		respondError(c, err, "failed to list roles")
		return
	}

	response := make([]dto.RoleResponse, len(roles))
	for i, r := range roles {
		response[i] = dto.RoleResponse{ID: r.ID, Name: r.Name, Description: r.Description}
	}
	_ = c.JSON(200, response)
}
