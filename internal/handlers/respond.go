package handlers

import (
	"errors"
	"strconv"

	"github.com/dimitrije/agency-api/internal/logging"
	"github.com/dimitrije/agency-api/internal/middleware"
	"github.com/dimitrije/agency-api/internal/models"
	"github.com/dimitrije/agency-api/internal/services"
	"github.com/dimitrije/agency-api/pkg/dto"
	"github.com/google/uuid"
	"github.com/m1z23r/drift/pkg/drift"
)

var notFoundErrors = []error{
	services.ErrTenantNotFound,
	services.ErrMemberNotFound,
	services.ErrRoleNotFound,
	services.ErrProjectNotFound,
	services.ErrInvitationNotFound,
	services.ErrTaskNotFound,
	services.ErrTimeEntryNotFound,
	services.ErrTimesheetNotFound,
	services.ErrInvoiceNotFound,
	services.ErrPayrollNotFound,
	services.ErrNotificationNotFound,
}

var forbiddenErrors = []error{
	services.ErrForbidden,
	services.ErrNotTenantMember,
	services.ErrNotProjectMember,
	services.ErrOwnerImmutable,
	services.ErrInvitationEmailMismatch,
	services.ErrEntryLocked,
}

var badRequestErrors = []error{
	services.ErrInvalidTransition,
	services.ErrNoFieldsToUpdate,
	services.ErrInvalidStatus,
	services.ErrInvitationNotPending,
	services.ErrInvitationExpired,
	services.ErrNoRunningTimer,
	services.ErrInvalidTimeRange,
	services.ErrNothingToInvoice,
	services.ErrInvalidAmount,
	services.ErrInvalidCurrency,
	services.ErrInvalidPeriod,
	services.ErrNothingToPay,
}

var conflictCodes = map[error]string{
	services.ErrSlugTaken:           "slug_taken",
	services.ErrInvitationDuplicate: "invitation_exists",
	services.ErrAlreadyMember:       "already_member",
	services.ErrTimerRunning:        "timer_running",
	services.ErrTimesheetExists:     "timesheet_exists",
	services.ErrPayrollOverlap:      "payroll_overlap",
}

func isAny(err error, targets []error) (error, bool) {
	for _, target := range targets {
		if errors.Is(err, target) {
			return target, true
		}
	}
	return nil, false
}

// respondError maps a service error onto an HTTP response. Anything it does
// not recognise is logged and reported as a 500 carrying fallback.
func respondError(c *drift.Context, err error, fallback string) {
	if target, ok := isAny(err, notFoundErrors); ok {
		c.NotFound(target.Error())
		return
	}
	if target, ok := isAny(err, forbiddenErrors); ok {
		c.Forbidden(target.Error())
		return
	}
	if target, ok := isAny(err, badRequestErrors); ok {
		c.BadRequest(target.Error())
		return
	}
	for target, code := range conflictCodes {
		if errors.Is(err, target) {
			_ = c.JSON(409, dto.ConflictResponse{Code: code, Message: target.Error()})
			return
		}
	}
	if errors.Is(err, services.ErrInvitationSendFailed) {
		c.BadGateway(services.ErrInvitationSendFailed.Error())
		return
	}

	logging.FromContext(c.Request.Context()).Error(fallback, "error", err)
	c.InternalServerError(fallback)
}

// paramUUID parses a path parameter, answering 400 when it is malformed.
func paramUUID(c *drift.Context, name, what string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.BadRequest("invalid " + what + " id")
		return uuid.Nil, false
	}
	return id, true
}

// queryUUID parses an optional query parameter.
func queryUUID(c *drift.Context, name string) (*uuid.UUID, bool) {
	raw := c.QueryParam(name)
	if raw == "" {
		return nil, true
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		c.BadRequest("invalid " + name)
		return nil, false
	}
	return &id, true
}

func pageFromQuery(c *drift.Context) models.Page {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	perPage, _ := strconv.Atoi(c.QueryParam("per_page"))
	return models.Page{Page: page, PerPage: perPage}.Normalize()
}

func listResponse[T any](items []T, page models.Page, total int) dto.List[T] {
	return dto.NewList(items, page.Page, page.PerPage, total)
}

// currentMember returns the caller's membership in the selected tenant.
func currentMember(c *drift.Context) (*models.TenantUser, bool) {
	m := middleware.GetMembership(c)
	if m == nil {
		c.Forbidden("tenant membership required")
		return nil, false
	}
	return m, true
}
