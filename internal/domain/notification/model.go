package notification

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// InstanceStatus tracks a planned notification through delivery.
// StatusDispatching is a transient claim state: a dispatcher worker moves an
// instance out of pending before invoking the delivery collaborator so no
// other worker can pick it up.
type InstanceStatus string

const (
	StatusPending     InstanceStatus = "pending"
	StatusDispatching InstanceStatus = "dispatching"
	StatusSent        InstanceStatus = "sent"
	StatusFailed      InstanceStatus = "failed"
)

// Failure reasons recorded on instances that never reached a collaborator or
// timed out inside one.
const (
	ReasonSuppressed = "suppressed"
	ReasonTimeout    = "timeout"
)

// Instance is one planned (channel, fire-time) delivery obligation derived
// from a reminder. At most one instance exists per (reminder, offset, channel).
type Instance struct {
	ID           uuid.UUID      `db:"id" json:"id"`
	ReminderID   uuid.UUID      `db:"reminder_id" json:"reminder_id"`
	UserID       string         `db:"user_id" json:"user_id"`
	Channel      string         `db:"channel" json:"channel"`
	OffsetDays   int            `db:"offset_days" json:"offset_days"`
	ScheduledFor time.Time      `db:"scheduled_for" json:"scheduled_for"`
	Status       InstanceStatus `db:"status" json:"status"`
	SentAt       *time.Time     `db:"sent_at" json:"sent_at,omitempty"`
	FailReason   string         `db:"fail_reason" json:"fail_reason,omitempty"`
	CreatedAt    time.Time      `db:"created_at" json:"created_at"`
}

// Key identifies the instance within its reminder's planned set.
func (i *Instance) Key() string {
	return fmt.Sprintf("%d/%s", i.OffsetDays, i.Channel)
}
