package govschedule

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/arogya/reminder/internal/domain/reminder"
	"github.com/arogya/reminder/internal/platform/delivery"
)

// Defaults applied to reminders the reconciler creates. Users tune them
// afterwards like any other reminder.
var (
	defaultChannels    = []string{string(delivery.ChannelWebsite)}
	defaultAdvanceDays = []int{7, 1, 0}
)

const defaultClock = "09:00"

// Service merges an externally supplied mandatory vaccination schedule into a
// user's reminders. Reconciliation is additive: it only ever creates reminders
// for doses not already represented, and never edits or removes existing ones.
type Service struct {
	reminders *reminder.Service
	store     reminder.Repository
	logger    zerolog.Logger
	now       func() time.Time
}

func NewService(reminders *reminder.Service, store reminder.Repository, logger zerolog.Logger) *Service {
	return &Service{
		reminders: reminders,
		store:     store,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Reconcile creates a government-mandated reminder for each upcoming dose the
// user does not already have one for, and returns only the newly created
// reminders. Running it again with the same schedule creates nothing: a dose
// is skipped when any of the user's reminders already mentions its vaccine and
// dose number.
func (s *Service) Reconcile(ctx context.Context, userID string, sched Schedule) ([]*reminder.Reminder, error) {
	if userID == "" {
		return nil, &reminder.ValidationError{Field: "user_id", Message: "is required"}
	}
	if sched.AgeInMonths < 0 {
		return nil, &reminder.ValidationError{Field: "age_in_months", Message: "must be non-negative"}
	}

	existing, err := s.store.ListAllByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list reminders: %w", err)
	}

	birth := estimatedBirthDate(s.now(), sched.AgeInMonths)

	var created []*reminder.Reminder
	for _, dose := range sched.Doses {
		if dose.Vaccine == "" {
			return created, &reminder.ValidationError{Field: "vaccine", Message: "is required on every dose"}
		}
		// Doses the user has already aged past are not reconciled; catch-up is
		// an explicit user action.
		if dose.AgeMonths < sched.AgeInMonths {
			continue
		}
		if matchesExisting(existing, dose) {
			continue
		}

		r := &reminder.Reminder{
			UserID:              userID,
			Name:                doseName(dose),
			Description:         dose.Description,
			ScheduledDate:       birth.AddDate(0, dose.AgeMonths, 0),
			ScheduledTime:       defaultClock,
			Priority:            dosePriority(dose),
			GovernmentMandated:  true,
			EnableNotifications: true,
			Channels:            append([]string(nil), defaultChannels...),
			AdvanceDays:         append([]int(nil), defaultAdvanceDays...),
		}
		if err := s.reminders.Create(ctx, r); err != nil {
			return created, fmt.Errorf("create reminder for %s: %w", r.Name, err)
		}
		s.logger.Info().
			Str("user", userID).
			Str("vaccine", dose.Vaccine).
			Int("dose", dose.DoseNumber).
			Msg("reconciled government schedule dose")
		created = append(created, r)
		existing = append(existing, r)
	}
	return created, nil
}

func dosePriority(dose DoseEntry) reminder.Priority {
	if dose.Mandatory {
		return reminder.PriorityHigh
	}
	return reminder.PriorityMedium
}

func doseName(dose DoseEntry) string {
	if dose.DoseNumber > 0 {
		return fmt.Sprintf("%s - Dose %d", dose.Vaccine, dose.DoseNumber)
	}
	return dose.Vaccine
}

// matchesExisting reports whether any reminder already covers the dose: its
// name or description mentions the vaccine and, when numbered, the dose.
func matchesExisting(existing []*reminder.Reminder, dose DoseEntry) bool {
	vaccine := strings.ToLower(dose.Vaccine)
	doseTag := ""
	if dose.DoseNumber > 0 {
		doseTag = fmt.Sprintf("dose %d", dose.DoseNumber)
	}
	for _, r := range existing {
		text := strings.ToLower(r.Name + " " + r.Description)
		if !strings.Contains(text, vaccine) {
			continue
		}
		if doseTag == "" || strings.Contains(text, doseTag) {
			return true
		}
	}
	return false
}

// estimatedBirthDate derives a birth date from the user's age in whole months,
// truncated to midnight UTC like every scheduled date.
func estimatedBirthDate(now time.Time, ageInMonths int) time.Time {
	b := now.AddDate(0, -ageInMonths, 0)
	return time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
}
