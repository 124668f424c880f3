package reminder

import "time"

// EffectiveStatus derives the status reported to callers. A stored pending
// reminder whose due instant has passed reads as overdue; nothing is written
// back, so rescheduling to the future reverts it to pending with no separate
// transition. Completed and cancelled always win over the clock.
func EffectiveStatus(r *Reminder, now time.Time) Status {
	if r.Status == StatusPending && !now.Before(r.DueAt()) {
		return StatusOverdue
	}
	return r.Status
}

// IsOverdue reports whether the reminder reads as overdue at now.
func IsOverdue(r *Reminder, now time.Time) bool {
	return EffectiveStatus(r, now) == StatusOverdue
}
