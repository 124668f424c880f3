package reminder

import (
	"time"
)

// RecurrenceKind is the unit a recurring reminder repeats on.
type RecurrenceKind string

const (
	RecurDaily   RecurrenceKind = "daily"
	RecurWeekly  RecurrenceKind = "weekly"
	RecurMonthly RecurrenceKind = "monthly"
	RecurYearly  RecurrenceKind = "yearly"
)

var validRecurrenceKinds = map[RecurrenceKind]bool{
	RecurDaily: true, RecurWeekly: true, RecurMonthly: true, RecurYearly: true,
}

// RecurringPattern describes how a completed recurring reminder spawns its next
// occurrence. When both EndDate and MaxOccurrences are set the chain stops at
// whichever bound is reached first.
type RecurringPattern struct {
	Kind           RecurrenceKind `json:"type"`
	Interval       int            `json:"interval"`
	EndDate        *time.Time     `json:"end_date,omitempty"`
	MaxOccurrences *int           `json:"max_occurrences,omitempty"`
}

// Validate rejects malformed patterns at construction time so NextOccurrence
// never has to.
func (p *RecurringPattern) Validate() error {
	if !validRecurrenceKinds[p.Kind] {
		return &ValidationError{Field: "recurrence.type", Message: "must be daily, weekly, monthly or yearly"}
	}
	if p.Interval < 1 {
		return &ValidationError{Field: "recurrence.interval", Message: "must be a positive integer"}
	}
	if p.MaxOccurrences != nil && *p.MaxOccurrences < 1 {
		return &ValidationError{Field: "recurrence.max_occurrences", Message: "must be a positive integer"}
	}
	return nil
}

// NextOccurrence computes the occurrence that follows date. Monthly and yearly
// steps preserve the day-of-month, clamping to the last day of the target
// month when it is shorter (Jan 31 + 1 month = Feb 29 in a leap year, Feb 28
// otherwise).
func (p *RecurringPattern) NextOccurrence(date time.Time) time.Time {
	switch p.Kind {
	case RecurDaily:
		return date.AddDate(0, 0, p.Interval)
	case RecurWeekly:
		return date.AddDate(0, 0, 7*p.Interval)
	case RecurMonthly:
		return addMonthsClamped(date, p.Interval)
	case RecurYearly:
		return addMonthsClamped(date, 12*p.Interval)
	}
	return date
}

// HasNext reports whether a chain at the given occurrence number may continue
// to nextDate without crossing the pattern's bounds.
func (p *RecurringPattern) HasNext(nextDate time.Time, occurrence int) bool {
	if p.EndDate != nil && nextDate.After(*p.EndDate) {
		return false
	}
	if p.MaxOccurrences != nil && occurrence+1 > *p.MaxOccurrences {
		return false
	}
	return true
}

// addMonthsClamped adds months without the normalization time.AddDate performs
// (which would turn Jan 31 + 1 month into Mar 2/3).
func addMonthsClamped(date time.Time, months int) time.Time {
	y, m, d := date.Date()
	m += time.Month(months)
	// Normalize month overflow manually so the year is right before clamping.
	y += int(m-1) / 12
	m = (m-1)%12 + 1
	if m < 1 {
		m += 12
		y--
	}
	if last := daysIn(y, m); d > last {
		d = last
	}
	h, min, sec := date.Clock()
	return time.Date(y, m, d, h, min, sec, date.Nanosecond(), date.Location())
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
