package handlers

import (
	"strings"

	"github.com/dimitrije/agency-api/internal/models"
	"github.com/dimitrije/agency-api/internal/services"
	"github.com/dimitrije/agency-api/pkg/dto"
	"github.com/m1z23r/drift/pkg/drift"
)

type ProjectHandler struct {
	projectService ProjectServiceInterface
}

func NewProjectHandler(projectService ProjectServiceInterface) *ProjectHandler {
	return &ProjectHandler{projectService: projectService}
}

func (h *ProjectHandler) List(c *drift.Context) {
	actor, ok := currentMember(c)
	if !ok {
		return
	}

	page := pageFromQuery(c)
	projects, total, err := h.projectService.List(c.Request.Context(), actor, page)
	if err != nil {
		respondError(c, err, "failed to list projects")
		return
	}

	_ = c.JSON(200, listResponse(projects, page, total))
}

func (h *ProjectHandler) Create(c *drift.Context) {
	actor, ok := currentMember(c)
	if !ok {
		return
	}

	var req dto.CreateProjectRequest
	if err := c.BindJSON(&req); err != nil {
		c.BadRequest("invalid request body")
		return
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		c.BadRequest("name is required")
		return
	}
	if req.HourlyRate < 0 {
		c.BadRequest("hourly_rate must not be negative")
		return
	}

	project, err := h.projectService.Create(c.Request.Context(), actor.TenantID, actor.UserID, services.ProjectInput{
		Name:        name,
		Description: req.Description,
		ClientName:  req.ClientName,
		HourlyRate:  req.HourlyRate,
		BudgetHours: req.BudgetHours,
	})
	if err != nil {
		respondError(c, err, "failed to create project")
		return
	}

	_ = c.JSON(201, project)
}

func (h *ProjectHandler) Get(c *drift.Context) {
	actor, ok := currentMember(c)
	if !ok {
		return
	}

	id, ok := paramUUID(c, "id", "project")
	if !ok {
		return
	}

	project, err := h.projectService.GetForMember(c.Request.Context(), actor, id)
	if err != nil {
		respondError(c, err, "failed to load project")
		return
	}

	_ = c.JSON(200, project)
}

func (h *ProjectHandler) Update(c *drift.Context) {
	actor, ok := currentMember(c)
	if !ok {
		return
	}

	id, ok := paramUUID(c, "id", "project")
	if !ok {
		return
	}

	var req dto.UpdateProjectRequest
	if err := c.BindJSON(&req); err != nil {
		c.BadRequest("invalid request body")
		return
	}
	if req.Name != nil && strings.TrimSpace(*req.Name) == "" {
		c.BadRequest("name must not be empty")
		return
	}
	if req.Status != nil && *req.Status != models.ProjectStatusActive && *req.Status != models.ProjectStatusArchived {
		c.BadRequest("invalid status")
		return
	}

	project, err := h.projectService.Update(c.Request.Context(), actor.UserID, actor.TenantID, id, services.ProjectUpdate{
		Name:        req.Name,
		Description: req.Description,
		ClientName:  req.ClientName,
		Status:      req.Status,
		HourlyRate:  req.HourlyRate,
		BudgetHours: req.BudgetHours,
	})
	if err != nil {
		respondError(c, err, "failed to update project")
		return
	}

	_ = c.JSON(200, project)
}

func (h *ProjectHandler) Delete(c *drift.Context) {
	actor, ok := currentMember(c)
	if !ok {
		return
	}

	id, ok := paramUUID(c, "id", "project")
	if !ok {
		return
	}

	if err := h.projectService.Delete(c.Request.Context(), actor.TenantID, id); err != nil {
		respondError(c, err, "failed to delete project")
		return
	}

	_ = c.JSON(200, dto.MessageResponse{Message: "project deleted"})
}

func (h *ProjectHandler) ListMembers(c *drift.Context) {
	actor, ok := currentMember(c)
	if !ok {
		return
	}

	id, ok := paramUUID(c, "id", "project")
	if !ok {
		return
	}

	ctx := c.Request.Context()
	if _, err := h.projectService.GetForMember(ctx, actor, id); err != nil {
		respondError(c, err, "failed to load project")
		return
	}

	members, err := h.projectService.ListMembers(ctx, actor.TenantID, id)
	if err != nil {
		respondError(c, err, "failed to list project members")
		return
	}
	if members == nil {
		members = []models.ProjectMember{}
	}

	_ = c.JSON(200, members)
}

func (h *ProjectHandler) RemoveMember(c *drift.Context) {
	actor, ok := currentMember(c)
	if !ok {
		return
	}

	id, ok := paramUUID(c, "id", "project")
	if !ok {
		return
	}
	userID, ok := paramUUID(c, "userId", "user")
	if !ok {
		return
	}

	if err := h.projectService.RemoveMember(c.Request.Context(), actor.TenantID, id, userID); err != nil {
		respondError(c, err, "failed to remove project member")
		return
	}

	_ = c.JSON(200, dto.MessageResponse{Message: "member removed"})
}
