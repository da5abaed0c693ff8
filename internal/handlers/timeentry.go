package handlers

import (
	"time"

	"github.com/dimitrije/agency-api/internal/services"
	"github.com/dimitrije/agency-api/pkg/dto"
	"github.com/m1z23r/drift/pkg/drift"
)

type TimeEntryHandler struct {
	timeEntryService TimeEntryServiceInterface
}

func NewTimeEntryHandler(timeEntryService TimeEntryServiceInterface) *TimeEntryHandler {
	return &TimeEntryHandler{timeEntryService: timeEntryService}
}

func boolOr(b *bool, fallback bool) bool {
	if b == nil {
		return fallback
	}
	return *b
}

func (h *TimeEntryHandler) Start(c *drift.Context) {
	actor, ok := currentMember(c)
	if !ok {
		return
	}

	taskID, ok := paramUUID(c, "taskId", "task")
	if !ok {
		return
	}

	// The body is optional.
	var req dto.StartTimerRequest
	_ = c.BindJSON(&req)

	entry, err := h.timeEntryService.Start(c.Request.Context(), actor, taskID, req.Description, boolOr(req.Billable, true))
	if err != nil {
		respondError(c, err, "failed to start timer")
		return
	}

	_ = c.JSON(201, entry)
}

func (h *TimeEntryHandler) Stop(c *drift.Context) {
	actor, ok := currentMember(c)
	if !ok {
		return
	}

	taskID, ok := paramUUID(c, "taskId", "task")
	if !ok {
		return
	}

	entry, err := h.timeEntryService.Stop(c.Request.Context(), actor, taskID)
	if err != nil {
		respondError(c, err, "failed to stop timer")
		return
	}

	_ = c.JSON(200, entry)
}

func queryDate(c *drift.Context, name string) (*time.Time, bool) {
	raw := c.QueryParam(name)
	if raw == "" {
		return nil, true
	}
	t, err := dto.ParseDate(raw)
	if err != nil {
		c.BadRequest("invalid " + name)
		return nil, false
	}
	return &t, true
}

// List returns time entries. Members only ever see their own; approvers may
// filter by user_id.
func (h *TimeEntryHandler) List(c *drift.Context) {
	actor, ok := currentMember(c)
	if !ok {
		return
	}

	var f services.TimeEntryFilter
	if f.UserID, ok = queryUUID(c, "user_id"); !ok {
		return
	}
	if f.ProjectID, ok = queryUUID(c, "project_id"); !ok {
		return
	}
	if f.TaskID, ok = queryUUID(c, "task_id"); !ok {
		return
	}
	if f.From, ok = queryDate(c, "from"); !ok {
		return
	}
	if f.To, ok = queryDate(c, "to"); !ok {
		return
	}

	page := pageFromQuery(c)
	entries, total, err := h.timeEntryService.List(c.Request.Context(), actor, f, page)
	if err != nil {
		respondError(c, err, "failed to list time entries")
		return
	}

	_ = c.JSON(200, listResponse(entries, page, total))
}

func (h *TimeEntryHandler) Create(c *drift.Context) {
	actor, ok := currentMember(c)
	if !ok {
		return
	}

	var req dto.CreateTimeEntryRequest
	if err := c.BindJSON(&req); err != nil {
		c.BadRequest("invalid request body")
		return
	}
	if req.TaskID == nil && req.ProjectID == nil {
		c.BadRequest("task_id or project_id is required")
		return
	}
	if req.StartedAt.IsZero() || req.EndedAt.IsZero() {
		c.BadRequest("started_at and ended_at are required")
		return
	}

	entry, err := h.timeEntryService.Create(c.Request.Context(), actor, services.TimeEntryInput{
		ProjectID:   req.ProjectID,
		TaskID:      req.TaskID,
		Description: req.Description,
		StartedAt:   req.StartedAt,
		EndedAt:     req.EndedAt,
		Billable:    boolOr(req.Billable, true),
	})
	if err != nil {
		respondError(c, err, "failed to create time entry")
		return
	}

	_ = c.JSON(201, entry)
}

func (h *TimeEntryHandler) Update(c *drift.Context) {
	actor, ok := currentMember(c)
	if !ok {
		return
	}

	id, ok := paramUUID(c, "id", "time entry")
	if !ok {
		return
	}

	var req dto.UpdateTimeEntryRequest
	if err := c.BindJSON(&req); err != nil {
		c.BadRequest("invalid request body")
		return
	}

	entry, err := h.timeEntryService.Update(c.Request.Context(), actor, id, services.TimeEntryUpdate{
		Description: req.Description,
		StartedAt:   req.StartedAt,
		EndedAt:     req.EndedAt,
		Billable:    req.Billable,
	})
	if err != nil {
		respondError(c, err, "failed to update time entry")
		return
	}

	_ = c.JSON(200, entry)
}

func (h *TimeEntryHandler) Delete(c *drift.Context) {
	actor, ok := currentMember(c)
	if !ok {
		return
	}

	id, ok := paramUUID(c, "id", "time entry")
	if !ok {
		return
	}

	if err := h.timeEntryService.Delete(c.Request.Context(), actor, id); err != nil {
		respondError(c, err, "failed to delete time entry")
		return
	}

	_ = c.JSON(200, dto.MessageResponse{Message: "time entry deleted"})
}
