package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestInvitation_EffectiveStatus(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		status    string
		expiresAt time.Time
		want      string
		active    bool
	}{
		{"pending not expired", InvitationPending, now.Add(time.Hour), InvitationPending, true},
		{"pending expired", InvitationPending, now.Add(-time.Hour), InvitationExpired, false},
		{"pending expiring now", InvitationPending, now, InvitationExpired, false},
		{"accepted past expiry", InvitationAccepted, now.Add(-time.Hour), InvitationAccepted, false},
		{"cancelled", InvitationCancelled, now.Add(time.Hour), InvitationCancelled, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv := &Invitation{Status: tt.status, ExpiresAt: tt.expiresAt}
			assert.Equal(t, tt.want, inv.EffectiveStatus(now))
			assert.Equal(t, tt.active, inv.IsActive(now))
		})
	}
}

func TestWeekBounds(t *testing.T) {
	tests := []struct {
		name string
		in   time.Time
		want string
	}{
		{"monday", time.Date(2026, 3, 9, 8, 0, 0, 0, time.UTC), "2026-03-09"},
		{"wednesday", time.Date(2026, 3, 11, 23, 59, 0, 0, time.UTC), "2026-03-09"},
		{"sunday", time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC), "2026-03-09"},
		{"across month", time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC), "2026-03-30"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end := WeekBounds(tt.in)
			assert.Equal(t, tt.want, start.Format("2006-01-02"))
			assert.Equal(t, time.Monday, start.Weekday())
			assert.Equal(t, time.Sunday, end.Weekday())
			assert.Equal(t, 6*24*time.Hour, end.Sub(start))
		})
	}
}

func TestSplitHours(t *testing.T) {
	h := SplitHours(45*60, 30*60)
	assert.Equal(t, 45.0, h.Total)
	assert.Equal(t, 30.0, h.Billable)
	assert.Equal(t, 40.0, h.Regular)
	assert.Equal(t, 5.0, h.Overtime)

	h = SplitHours(90, 0)
	assert.Equal(t, 1.5, h.Total)
	assert.Equal(t, 1.5, h.Regular)
	assert.Equal(t, 0.0, h.Overtime)

	assert.Equal(t, TimesheetHours{}, SplitHours(0, 0))
}

func TestTimesheet_States(t *testing.T) {
	ts := &Timesheet{Status: TimesheetDraft}
	assert.True(t, ts.IsEditable())
	assert.False(t, ts.CanReopen())

	ts.Status = TimesheetSubmitted
	assert.False(t, ts.IsEditable())
	assert.False(t, ts.CanReopen())

	ts.Status = TimesheetRejected
	assert.True(t, ts.CanReopen())
}

func TestDurationMinutesBetween(t *testing.T) {
	start := time.Date(2026, 3, 9, 9, 0, 0, 0, time.UTC)
	assert.Equal(t, 90, DurationMinutesBetween(start, start.Add(90*time.Minute+20*time.Second)))
	assert.Equal(t, 0, DurationMinutesBetween(start, start.Add(-time.Hour)))
}

func TestPage_Normalize(t *testing.T) {
	assert.Equal(t, Page{Page: 1, PerPage: DefaultPerPage}, Page{}.Normalize())
	assert.Equal(t, MaxPerPage, Page{Page: 2, PerPage: 500}.Limit())
	assert.Equal(t, 40, Page{Page: 3, PerPage: 20}.Offset())
}

func TestValidators(t *testing.T) {
	assert.True(t, ValidTaskStatus(TaskStatusReview))
	assert.False(t, ValidTaskStatus("blocked"))
	assert.True(t, ValidTaskPriority(TaskPriorityUrgent))
	assert.True(t, ValidInvoiceStatus(InvoiceVoid))
	assert.False(t, ValidInvoiceStatus("overdue"))
	assert.Equal(t, 10.13, RoundMoney(10.125))
}
