package notification

import (
	"context"

	"github.com/google/uuid"

	"github.com/arogya/reminder/internal/domain/reminder"
)

// Planner expands a reminder's notification settings into planned instances
// and keeps the stored set in sync with the reminder. It implements
// reminder.Planner.
type Planner struct {
	instances Repository
}

func NewPlanner(instances Repository) *Planner {
	return &Planner{instances: instances}
}

// Plan expands advance-day offsets × channels into instances with absolute
// fire times. Pure: no stored state is touched.
//
// Offsets whose fire time already passed are still emitted; the dispatcher
// treats them as immediately due, matching "reminder already overdue"
// semantics. The exception is offsets falling before the reminder's creation
// time, which are dropped to avoid notification storms on import or backfill.
func Plan(r *reminder.Reminder) []*Instance {
	if !r.EnableNotifications || len(r.Channels) == 0 || len(r.AdvanceDays) == 0 {
		return nil
	}

	clock := r.NotifyClock()
	due := r.DueAt()
	seen := make(map[string]bool)
	var out []*Instance
	for _, offset := range r.AdvanceDays {
		if offset < 0 {
			continue
		}
		fireAt := reminder.CombineDateTime(r.ScheduledDate.AddDate(0, 0, -offset), clock)
		// A notify clock later than the due clock would push the same-day
		// instance past the due instant; no instance may fire after it.
		if fireAt.After(due) {
			fireAt = due
		}
		if !r.CreatedAt.IsZero() && fireAt.Before(r.CreatedAt) {
			continue
		}
		for _, ch := range r.Channels {
			inst := &Instance{
				ReminderID:   r.ID,
				UserID:       r.UserID,
				Channel:      ch,
				OffsetDays:   offset,
				ScheduledFor: fireAt,
				Status:       StatusPending,
			}
			if seen[inst.Key()] {
				continue
			}
			seen[inst.Key()] = true
			out = append(out, inst)
		}
	}
	return out
}

// Replan regenerates the stored instance set for a reminder. A reminder with
// notifications disabled, or no channels or offsets, ends up with no planned
// instances at all.
func (p *Planner) Replan(ctx context.Context, r *reminder.Reminder) error {
	return p.instances.ReplaceForReminder(ctx, r.ID, Plan(r))
}

// Discard removes every planned instance for a reminder.
func (p *Planner) Discard(ctx context.Context, reminderID uuid.UUID) error {
	return p.instances.DeleteByReminder(ctx, reminderID)
}
