package handlers

import (
	"context"
	"strings"

	"github.com/dimitrije/agency-api/internal/models"
	"github.com/dimitrije/agency-api/internal/services"
	"github.com/dimitrije/agency-api/pkg/dto"
	"github.com/google/uuid"
	"github.com/m1z23r/drift/pkg/drift"
)

type TimesheetHandler struct {
	timesheetService TimesheetServiceInterface
}

func NewTimesheetHandler(timesheetService TimesheetServiceInterface) *TimesheetHandler {
	return &TimesheetHandler{timesheetService: timesheetService}
}

func (h *TimesheetHandler) Create(c *drift.Context) {
	actor, ok := currentMember(c)
	if !ok {
		return
	}

	var req dto.CreateTimesheetRequest
	if err := c.BindJSON(&req); err != nil {
		c.BadRequest("invalid request body")
		return
	}
	if req.WeekStart.IsZero() {
		c.BadRequest("week_start is required")
		return
	}

	ts, err := h.timesheetService.Create(c.Request.Context(), actor, req.WeekStart.Time)
	if err != nil {
		respondError(c, err, "failed to create timesheet")
		return
	}

	_ = c.JSON(201, ts)
}

func (h *TimesheetHandler) List(c *drift.Context) {
	actor, ok := currentMember(c)
	if !ok {
		return
	}

	var f services.TimesheetFilter
	f.Status = c.QueryParam("status")
	switch f.Status {
	case "", models.TimesheetDraft, models.TimesheetSubmitted, models.TimesheetApproved, models.TimesheetRejected:
	default:
		c.BadRequest("invalid status filter")
		return
	}
	if f.UserID, ok = queryUUID(c, "user_id"); !ok {
		return
	}

	page := pageFromQuery(c)
	sheets, total, err := h.timesheetService.List(c.Request.Context(), actor, f, page)
	if err != nil {
		respondError(c, err, "failed to list timesheets")
		return
	}

	_ = c.JSON(200, listResponse(sheets, page, total))
}

func (h *TimesheetHandler) Get(c *drift.Context) {
	actor, ok := currentMember(c)
	if !ok {
		return
	}

	id, ok := paramUUID(c, "id", "timesheet")
	if !ok {
		return
	}

	ts, err := h.timesheetService.Get(c.Request.Context(), actor, id)
	if err != nil {
		respondError(c, err, "failed to load timesheet")
		return
	}

	_ = c.JSON(200, ts)
}

func (h *TimesheetHandler) LinkEntries(c *drift.Context) {
	actor, ok := currentMember(c)
	if !ok {
		return
	}

	id, ok := paramUUID(c, "id", "timesheet")
	if !ok {
		return
	}

	var req dto.LinkEntriesRequest
	if err := c.BindJSON(&req); err != nil {
		c.BadRequest("invalid request body")
		return
	}
	if len(req.EntryIDs) == 0 {
		c.BadRequest("entry_ids is required")
		return
	}

	ts, err := h.timesheetService.LinkEntries(c.Request.Context(), actor, id, req.EntryIDs)
	if err != nil {
		respondError(c, err, "failed to link entries")
		return
	}

	_ = c.JSON(200, ts)
}

func (h *TimesheetHandler) UnlinkEntry(c *drift.Context) {
	actor, ok := currentMember(c)
	if !ok {
		return
	}

	id, ok := paramUUID(c, "id", "timesheet")
	if !ok {
		return
	}
	entryID, ok := paramUUID(c, "entryId", "time entry")
	if !ok {
		return
	}

	ts, err := h.timesheetService.UnlinkEntry(c.Request.Context(), actor, id, entryID)
	if err != nil {
		respondError(c, err, "failed to unlink entry")
		return
	}

	_ = c.JSON(200, ts)
}

func (h *TimesheetHandler) Submit(c *drift.Context) {
	h.transition(c, "failed to submit timesheet", h.timesheetService.Submit)
}

func (h *TimesheetHandler) Approve(c *drift.Context) {
	h.transition(c, "failed to approve timesheet", h.timesheetService.Approve)
}

func (h *TimesheetHandler) Reopen(c *drift.Context) {
	h.transition(c, "failed to reopen timesheet", h.timesheetService.Reopen)
}

func (h *TimesheetHandler) Reject(c *drift.Context) {
	actor, ok := currentMember(c)
	if !ok {
		return
	}

	id, ok := paramUUID(c, "id", "timesheet")
	if !ok {
		return
	}

	// The body is optional.
	var req dto.RejectTimesheetRequest
	_ = c.BindJSON(&req)

	ts, err := h.timesheetService.Reject(c.Request.Context(), actor, id, strings.TrimSpace(req.Reason))
	if err != nil {
		respondError(c, err, "failed to reject timesheet")
		return
	}

	_ = c.JSON(200, ts)
}

type timesheetAction func(ctx context.Context, actor *models.TenantUser, id uuid.UUID) (*models.Timesheet, error)

func (h *TimesheetHandler) transition(c *drift.Context, fallback string, action timesheetAction) {
	actor, ok := currentMember(c)
	if !ok {
		return
	}

	id, ok := paramUUID(c, "id", "timesheet")
	if !ok {
		return
	}

	ts, err := action(c.Request.Context(), actor, id)
	if err != nil {
		respondError(c, err, fallback)
		return
	}

	_ = c.JSON(200, ts)
}
