package handlers

import (
	"strings"
	"time"

	"github.com/dimitrije/agency-api/internal/models"
	"github.com/dimitrije/agency-api/internal/services"
	"github.com/dimitrije/agency-api/pkg/dto"
	"github.com/google/uuid"
	"github.com/m1z23r/drift/pkg/drift"
)

type TaskHandler struct {
	taskService    TaskServiceInterface
	projectService ProjectServiceInterface
}

func NewTaskHandler(taskService TaskServiceInterface, projectService ProjectServiceInterface) *TaskHandler {
	return &TaskHandler{taskService: taskService, projectService: projectService}
}

func dateOrNil(d *dto.Date) *time.Time {
	if d == nil || d.IsZero() {
		return nil
	}
	t := d.Time
	return &t
}

// visibleTask loads the task and checks that the caller may see its project.
func (h *TaskHandler) visibleTask(c *drift.Context, actor *models.TenantUser, id uuid.UUID) (*models.Task, bool) {
	ctx := c.Request.Context()
	task, err := h.taskService.Get(ctx, actor.TenantID, id)
	if err != nil {
		respondError(c, err, "failed to load task")
		return nil, false
	}
	if _, err := h.projectService.GetForMember(ctx, actor, task.ProjectID); err != nil {
		respondError(c, services.ErrTaskNotFound, "failed to load task")
		return nil, false
	}
	return task, true
}

func (h *TaskHandler) List(c *drift.Context) {
	actor, ok := currentMember(c)
	if !ok {
		return
	}

	projectID, ok := paramUUID(c, "id", "project")
	if !ok {
		return
	}
	assignee, ok := queryUUID(c, "assignee_id")
	if !ok {
		return
	}
	status := c.QueryParam("status")
	if status != "" && !models.ValidTaskStatus(status) {
		c.BadRequest("invalid status filter")
		return
	}

	ctx := c.Request.Context()
	if _, err := h.projectService.GetForMember(ctx, actor, projectID); err != nil {
		respondError(c, err, "failed to load project")
		return
	}

	page := pageFromQuery(c)
	tasks, total, err := h.taskService.List(ctx, actor.TenantID, projectID, services.TaskFilter{
		Status:     status,
		AssigneeID: assignee,
	}, page)
	if err != nil {
		respondError(c, err, "failed to list tasks")
		return
	}

	_ = c.JSON(200, listResponse(tasks, page, total))
}

func (h *TaskHandler) Create(c *drift.Context) {
	actor, ok := currentMember(c)
	if !ok {
		return
	}

	projectID, ok := paramUUID(c, "id", "project")
	if !ok {
		return
	}

	var req dto.CreateTaskRequest
	if err := c.BindJSON(&req); err != nil {
		c.BadRequest("invalid request body")
		return
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		c.BadRequest("title is required")
		return
	}

	ctx := c.Request.Context()
	if _, err := h.projectService.GetForMember(ctx, actor, projectID); err != nil {
		respondError(c, err, "failed to load project")
		return
	}

	task, err := h.taskService.Create(ctx, actor.TenantID, projectID, actor.UserID, services.TaskInput{
		Title:          title,
		Description:    req.Description,
		Status:         req.Status,
		Priority:       req.Priority,
		AssigneeID:     req.AssigneeID,
		EstimatedHours: req.EstimatedHours,
		DueDate:        dateOrNil(req.DueDate),
	})
	if err != nil {
		respondError(c, err, "failed to create task")
		return
	}

	_ = c.JSON(201, task)
}

func (h *TaskHandler) Get(c *drift.Context) {
	actor, ok := currentMember(c)
	if !ok {
		return
	}

	id, ok := paramUUID(c, "taskId", "task")
	if !ok {
		return
	}

	task, ok := h.visibleTask(c, actor, id)
	if !ok {
		return
	}

	_ = c.JSON(200, task)
}

func (h *TaskHandler) Update(c *drift.Context) {
	actor, ok := currentMember(c)
	if !ok {
		return
	}

	id, ok := paramUUID(c, "taskId", "task")
	if !ok {
		return
	}

	var req dto.UpdateTaskRequest
	if err := c.BindJSON(&req); err != nil {
		c.BadRequest("invalid request body")
		return
	}
	if req.Title != nil && strings.TrimSpace(*req.Title) == "" {
		c.BadRequest("title must not be empty")
		return
	}

	if _, ok := h.visibleTask(c, actor, id); !ok {
		return
	}

	task, err := h.taskService.Update(c.Request.Context(), actor.UserID, actor.TenantID, id, services.TaskUpdate{
		Title:          req.Title,
		Description:    req.Description,
		Status:         req.Status,
		Priority:       req.Priority,
		AssigneeID:     req.AssigneeID,
		ClearAssignee:  req.Unassign,
		EstimatedHours: req.EstimatedHours,
		DueDate:        dateOrNil(req.DueDate),
	})
	if err != nil {
		respondError(c, err, "failed to update task")
		return
	}

	_ = c.JSON(200, task)
}

func (h *TaskHandler) Delete(c *drift.Context) {
	actor, ok := currentMember(c)
	if !ok {
		return
	}

	id, ok := paramUUID(c, "taskId", "task")
	if !ok {
		return
	}

	if _, ok := h.visibleTask(c, actor, id); !ok {
		return
	}

	if err := h.taskService.Delete(c.Request.Context(), actor.TenantID, id); err != nil {
		respondError(c, err, "failed to delete task")
		return
	}

	_ = c.JSON(200, dto.MessageResponse{Message: "task deleted"})
}
