package services

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrForbidden         = errors.New("forbidden")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrNoFieldsToUpdate  = errors.New("no fields to update")
	ErrInvalidStatus     = errors.New("invalid status")
)

var (
	ErrTenantNotFound   = errors.New("tenant not found")
	ErrSlugTaken        = errors.New("tenant slug already taken")
	ErrNotTenantMember  = errors.New("not a member of this tenant")
	ErrMemberNotFound   = errors.New("member not found")
	ErrRoleNotFound     = errors.New("role not found")
	ErrOwnerImmutable   = errors.New("the tenant owner cannot be changed or removed")
	ErrProjectNotFound  = errors.New("project not found")
	ErrNotProjectMember = errors.New("not a member of this project")
)

var (
	ErrInvitationNotFound      = errors.New("invitation not found")
	ErrInvitationDuplicate     = errors.New("an active invitation already exists for this email")
	ErrAlreadyMember           = errors.New("user is already a member")
	ErrInvitationNotPending    = errors.New("invitation is no longer pending")
	ErrInvitationExpired       = errors.New("invitation has expired")
	ErrInvitationEmailMismatch = errors.New("invitation was sent to a different email")
	ErrInvitationSendFailed    = errors.New("failed to send invitation email")
)

var (
	ErrTaskNotFound      = errors.New("task not found")
	ErrTimeEntryNotFound = errors.New("time entry not found")
	ErrTimerRunning      = errors.New("a timer is already running")
	ErrNoRunningTimer    = errors.New("no running timer for this task")
	ErrEntryLocked       = errors.New("time entry belongs to a timesheet that is not a draft")
	ErrInvalidTimeRange  = errors.New("end time must be after start time")
)

var (
	ErrTimesheetNotFound = errors.New("timesheet not found")
	ErrTimesheetExists   = errors.New("a timesheet already exists for this week")
)

var (
	ErrInvoiceNotFound      = errors.New("invoice not found")
	ErrNothingToInvoice     = errors.New("no billable time to invoice in this period")
	ErrInvalidAmount        = errors.New("amount must be positive")
	ErrInvalidCurrency      = errors.New("unknown currency code")
	ErrInvalidPeriod        = errors.New("period end must not be before period start")
	ErrPayrollNotFound      = errors.New("payroll batch not found")
	ErrNothingToPay         = errors.New("no billable time in this period")
	ErrPayrollOverlap       = errors.New("a payroll batch already covers part of this period")
	ErrNotificationNotFound = errors.New("notification not found")
)

const pgUniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

// notFound maps pgx.ErrNoRows to the given sentinel.
func notFound(err, sentinel error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return sentinel
	}
	return err
}
