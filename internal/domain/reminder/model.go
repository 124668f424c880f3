package reminder

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Status is the stored lifecycle state of a reminder. StatusOverdue is never
// persisted; it is derived at read time (see EffectiveStatus).
type Status string

const (
	StatusPending   Status = "pending"
	StatusOverdue   Status = "overdue"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// Priority classifies how urgent a vaccination reminder is.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

var validPriorities = map[Priority]bool{
	PriorityLow: true, PriorityMedium: true, PriorityHigh: true, PriorityCritical: true,
}

// Reminder maps to the reminder table. One scheduled vaccination action owned
// by a user. All dates and times are stored in UTC; ScheduledTime and
// NotifyTime are 24-hour wall-clock strings ("09:00").
type Reminder struct {
	ID          uuid.UUID `db:"id" json:"id"`
	UserID      string    `db:"user_id" json:"user_id"`
	Name        string    `db:"name" json:"name"`
	Description string    `db:"description" json:"description,omitempty"`
	Notes       string    `db:"notes" json:"notes,omitempty"`

	ScheduledDate time.Time         `db:"scheduled_date" json:"scheduled_date"`
	ScheduledTime string            `db:"scheduled_time" json:"scheduled_time"`
	IsRecurring   bool              `db:"is_recurring" json:"is_recurring"`
	Recurrence    *RecurringPattern `db:"recurrence" json:"recurrence,omitempty"`

	Priority           Priority `db:"priority" json:"priority"`
	GovernmentMandated bool     `db:"government_mandated" json:"government_mandated"`

	Status        Status     `db:"status" json:"status"`
	CompletedDate *time.Time `db:"completed_date" json:"completed_date,omitempty"`

	// Occurrence counts the position in a recurrence chain, starting at 1 for
	// the reminder that opened the chain.
	Occurrence int `db:"occurrence" json:"occurrence"`

	EnableNotifications bool     `db:"enable_notifications" json:"enable_notifications"`
	Channels            []string `db:"channels" json:"notification_methods,omitempty"`
	AdvanceDays         []int    `db:"advance_days" json:"advance_notification_days,omitempty"`
	NotifyTime          string   `db:"notify_time" json:"notify_time,omitempty"`

	NextDueDate *time.Time `db:"next_due_date" json:"next_due_date,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// DueAt combines the scheduled date and time-of-day into the due instant.
func (r *Reminder) DueAt() time.Time {
	return CombineDateTime(r.ScheduledDate, r.ScheduledTime)
}

// NotifyClock returns the time-of-day notifications fire at. Falls back to the
// scheduled time when no dedicated notification time is configured.
func (r *Reminder) NotifyClock() string {
	if r.NotifyTime != "" {
		return r.NotifyTime
	}
	return r.ScheduledTime
}

// ParseDate parses an ISO-8601 calendar date ("2025-03-01") as midnight UTC.
func ParseDate(s string) (time.Time, error) {
	d, err := time.ParseInLocation("2006-01-02", s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", s)
	}
	return d, nil
}

// ParseClock validates a 24-hour wall-clock string ("09:00").
func ParseClock(s string) error {
	if _, err := time.Parse("15:04", s); err != nil {
		return fmt.Errorf("invalid time %q: expected HH:MM", s)
	}
	return nil
}

// CombineDateTime places a wall-clock string on a calendar date, in UTC.
// An unparseable clock falls back to midnight.
func CombineDateTime(date time.Time, clock string) time.Time {
	t, err := time.Parse("15:04", clock)
	if err != nil {
		return time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	}
	return time.Date(date.Year(), date.Month(), date.Day(), t.Hour(), t.Minute(), 0, 0, time.UTC)
}
