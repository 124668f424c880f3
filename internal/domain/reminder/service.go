package reminder

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/arogya/reminder/internal/platform/delivery"
)

const defaultLockTimeout = 5 * time.Second

// Service owns the canonical reminder set: validation, per-id serialization,
// recurrence chaining and notification re-planning on every mutation.
type Service struct {
	repo        Repository
	planner     Planner
	locks       *keyedLocks
	lockTimeout time.Duration
	logger      zerolog.Logger
	now         func() time.Time
}

func NewService(repo Repository, planner Planner, logger zerolog.Logger) *Service {
	return &Service{
		repo:        repo,
		planner:     planner,
		locks:       newKeyedLocks(),
		lockTimeout: defaultLockTimeout,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Create validates and stores a new reminder, computes its next due date and
// plans its notifications. The write and the plan commit as one unit so the
// stored instance set always matches the stored reminder.
func (s *Service) Create(ctx context.Context, r *Reminder) error {
	if err := s.validate(r); err != nil {
		return err
	}
	r.Status = StatusPending
	r.CompletedDate = nil
	if r.Occurrence < 1 {
		r.Occurrence = 1
	}
	s.refreshNextDue(r)

	return s.repo.Transact(ctx, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, r); err != nil {
			return fmt.Errorf("create reminder: %w", err)
		}
		if err := s.planner.Replan(ctx, r); err != nil {
			return fmt.Errorf("plan notifications: %w", err)
		}
		return nil
	})
}

// Get returns a reminder with its effective status filled in.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Reminder, error) {
	r, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	r.Status = EffectiveStatus(r, s.now())
	return r, nil
}

// Patch carries the updatable fields of a reminder. Nil pointers leave the
// stored value untouched. ClearRecurrence removes the pattern, which is only
// legal when the reminder ends up non-recurring.
type Patch struct {
	Name                *string
	Description         *string
	Notes               *string
	ScheduledDate       *time.Time
	ScheduledTime       *string
	IsRecurring         *bool
	Recurrence          *RecurringPattern
	ClearRecurrence     bool
	Priority            *Priority
	Status              *Status
	EnableNotifications *bool
	Channels            *[]string
	AdvanceDays         *[]int
	NotifyTime          *string
}

// Update merges the patch under the per-reminder lock, recomputes the next due
// date and re-plans notifications. Validation failures leave the stored row
// untouched.
func (s *Service) Update(ctx context.Context, id uuid.UUID, p Patch) (*Reminder, error) {
	if err := s.locks.acquire(id, s.lockTimeout); err != nil {
		return nil, err
	}
	defer s.locks.release(id)

	r, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	merged := *r
	applyPatch(&merged, p)
	if p.Status != nil {
		switch *p.Status {
		case StatusPending, StatusCancelled:
			merged.Status = *p.Status
		default:
			return nil, &ValidationError{Field: "status", Message: "only pending and cancelled may be set directly"}
		}
	}
	if err := s.validate(&merged); err != nil {
		return nil, err
	}
	s.refreshNextDue(&merged)

	err = s.repo.Transact(ctx, func(ctx context.Context) error {
		if err := s.repo.Update(ctx, &merged); err != nil {
			return fmt.Errorf("update reminder: %w", err)
		}
		if merged.Status == StatusCancelled {
			if err := s.planner.Discard(ctx, merged.ID); err != nil {
				return fmt.Errorf("discard notifications: %w", err)
			}
			return nil
		}
		if err := s.planner.Replan(ctx, &merged); err != nil {
			return fmt.Errorf("replan notifications: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &merged, nil
}

// Delete removes the reminder and every planned notification instance.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.locks.acquire(id, s.lockTimeout); err != nil {
		return err
	}
	defer s.locks.release(id)

	return s.repo.Transact(ctx, func(ctx context.Context) error {
		if err := s.repo.Delete(ctx, id); err != nil {
			return err
		}
		if err := s.planner.Discard(ctx, id); err != nil {
			return fmt.Errorf("discard notifications: %w", err)
		}
		return nil
	})
}

// MarkCompleted archives the reminder as completed. A recurring reminder whose
// next occurrence is still inside the pattern's bounds atomically spawns one
// pending sibling for that date; the completion and the sibling commit or roll
// back together. Returns the completed reminder and the sibling, if any.
func (s *Service) MarkCompleted(ctx context.Context, id uuid.UUID, completedAt *time.Time) (*Reminder, *Reminder, error) {
	if err := s.locks.acquire(id, s.lockTimeout); err != nil {
		return nil, nil, err
	}
	defer s.locks.release(id)

	r, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if r.Status == StatusCompleted {
		return r, nil, nil
	}

	when := s.now()
	if completedAt != nil {
		when = completedAt.UTC()
	}
	r.Status = StatusCompleted
	r.CompletedDate = &when

	var sibling *Reminder
	if r.IsRecurring && r.Recurrence != nil && r.NextDueDate != nil &&
		r.Recurrence.HasNext(*r.NextDueDate, r.Occurrence) {
		next := *r
		next.ID = uuid.Nil
		next.ScheduledDate = *r.NextDueDate
		next.Status = StatusPending
		next.CompletedDate = nil
		next.Occurrence = r.Occurrence + 1
		s.refreshNextDue(&next)
		sibling = &next
	}

	err = s.repo.Transact(ctx, func(ctx context.Context) error {
		if err := s.repo.Update(ctx, r); err != nil {
			return fmt.Errorf("complete reminder: %w", err)
		}
		if err := s.planner.Discard(ctx, r.ID); err != nil {
			return fmt.Errorf("discard notifications: %w", err)
		}
		if sibling != nil {
			if err := s.repo.Create(ctx, sibling); err != nil {
				return fmt.Errorf("create recurrence sibling: %w", err)
			}
			if err := s.planner.Replan(ctx, sibling); err != nil {
				return fmt.Errorf("plan sibling notifications: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	if sibling != nil {
		s.logger.Info().
			Str("reminder", r.ID.String()).
			Str("sibling", sibling.ID.String()).
			Int("occurrence", sibling.Occurrence).
			Msg("recurrence sibling created")
	}
	return r, sibling, nil
}

// ListByUser returns a page of the user's reminders with effective statuses.
func (s *Service) ListByUser(ctx context.Context, userID string, limit, offset int) ([]*Reminder, int, error) {
	items, total, err := s.repo.ListByUser(ctx, userID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	now := s.now()
	for _, r := range items {
		r.Status = EffectiveStatus(r, now)
	}
	return items, total, nil
}

// ListByStatus returns the user's reminders whose effective status matches.
func (s *Service) ListByStatus(ctx context.Context, userID string, status Status) ([]*Reminder, error) {
	all, err := s.repo.ListAllByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	var out []*Reminder
	for _, r := range all {
		if eff := EffectiveStatus(r, now); eff == status {
			r.Status = eff
			out = append(out, r)
		}
	}
	sortByDue(out)
	return out, nil
}

// ListOverdue returns the user's reminders that currently read as overdue.
// Overdue never auto-resolves; entries stay here until completed, cancelled or
// deleted.
func (s *Service) ListOverdue(ctx context.Context, userID string) ([]*Reminder, error) {
	return s.ListByStatus(ctx, userID, StatusOverdue)
}

// ListUpcoming returns pending reminders due within the next withinDays days.
func (s *Service) ListUpcoming(ctx context.Context, userID string, withinDays int) ([]*Reminder, error) {
	all, err := s.repo.ListAllByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	horizon := now.AddDate(0, 0, withinDays)
	var out []*Reminder
	for _, r := range all {
		if EffectiveStatus(r, now) != StatusPending {
			continue
		}
		if due := r.DueAt(); !due.Before(now) && !due.After(horizon) {
			out = append(out, r)
		}
	}
	sortByDue(out)
	return out, nil
}

func sortByDue(items []*Reminder) {
	sort.Slice(items, func(i, j int) bool {
		return items[i].DueAt().Before(items[j].DueAt())
	})
}

func applyPatch(r *Reminder, p Patch) {
	if p.Name != nil {
		r.Name = *p.Name
	}
	if p.Description != nil {
		r.Description = *p.Description
	}
	if p.Notes != nil {
		r.Notes = *p.Notes
	}
	if p.ScheduledDate != nil {
		r.ScheduledDate = *p.ScheduledDate
	}
	if p.ScheduledTime != nil {
		r.ScheduledTime = *p.ScheduledTime
	}
	if p.IsRecurring != nil {
		r.IsRecurring = *p.IsRecurring
	}
	if p.Recurrence != nil {
		r.Recurrence = p.Recurrence
	}
	if p.ClearRecurrence {
		r.Recurrence = nil
	}
	if p.Priority != nil {
		r.Priority = *p.Priority
	}
	if p.EnableNotifications != nil {
		r.EnableNotifications = *p.EnableNotifications
	}
	if p.Channels != nil {
		r.Channels = *p.Channels
	}
	if p.AdvanceDays != nil {
		r.AdvanceDays = *p.AdvanceDays
	}
	if p.NotifyTime != nil {
		r.NotifyTime = *p.NotifyTime
	}
}

func (s *Service) validate(r *Reminder) error {
	if r.UserID == "" {
		return &ValidationError{Field: "user_id", Message: "is required"}
	}
	if r.Name == "" {
		return &ValidationError{Field: "name", Message: "is required"}
	}
	if r.ScheduledDate.IsZero() {
		return &ValidationError{Field: "scheduled_date", Message: "is required"}
	}
	if err := ParseClock(r.ScheduledTime); err != nil {
		return &ValidationError{Field: "scheduled_time", Message: err.Error()}
	}
	if r.NotifyTime != "" {
		if err := ParseClock(r.NotifyTime); err != nil {
			return &ValidationError{Field: "notify_time", Message: err.Error()}
		}
	}
	if r.Priority == "" {
		r.Priority = PriorityMedium
	}
	if !validPriorities[r.Priority] {
		return &ValidationError{Field: "priority", Message: "must be low, medium, high or critical"}
	}
	if r.IsRecurring && r.Recurrence == nil {
		return &ValidationError{Field: "recurrence", Message: "required while is_recurring is true"}
	}
	if !r.IsRecurring && r.Recurrence != nil {
		return &ValidationError{Field: "recurrence", Message: "present on a non-recurring reminder"}
	}
	if r.Recurrence != nil {
		if err := r.Recurrence.Validate(); err != nil {
			return err
		}
	}
	if r.EnableNotifications {
		if len(r.Channels) == 0 {
			return &ValidationError{Field: "notification_methods", Message: "at least one channel is required when notifications are enabled"}
		}
		for _, ch := range r.Channels {
			if !delivery.ValidChannel(ch) {
				return &ValidationError{Field: "notification_methods", Message: fmt.Sprintf("unknown channel %q", ch)}
			}
		}
		for _, d := range r.AdvanceDays {
			if d < 0 {
				return &ValidationError{Field: "advance_notification_days", Message: "offsets must be non-negative"}
			}
		}
	}
	return nil
}

// refreshNextDue recomputes the derived next occurrence date.
func (s *Service) refreshNextDue(r *Reminder) {
	if !r.IsRecurring || r.Recurrence == nil {
		r.NextDueDate = nil
		return
	}
	next := r.Recurrence.NextOccurrence(r.ScheduledDate)
	r.NextDueDate = &next
}
