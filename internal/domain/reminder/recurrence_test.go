package reminder

import (
	"testing"
	"time"
)

func date(s string) time.Time {
	d, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestNextOccurrence(t *testing.T) {
	tests := []struct {
		name    string
		pattern RecurringPattern
		from    string
		want    string
	}{
		{"daily", RecurringPattern{Kind: RecurDaily, Interval: 1}, "2025-03-01", "2025-03-02"},
		{"daily interval 3", RecurringPattern{Kind: RecurDaily, Interval: 3}, "2025-03-30", "2025-04-02"},
		{"weekly", RecurringPattern{Kind: RecurWeekly, Interval: 1}, "2025-01-01", "2025-01-08"},
		{"weekly interval 2", RecurringPattern{Kind: RecurWeekly, Interval: 2}, "2025-12-25", "2026-01-08"},
		{"monthly", RecurringPattern{Kind: RecurMonthly, Interval: 1}, "2025-03-15", "2025-04-15"},
		{"monthly clamps to leap feb", RecurringPattern{Kind: RecurMonthly, Interval: 1}, "2024-01-31", "2024-02-29"},
		{"monthly clamps to non-leap feb", RecurringPattern{Kind: RecurMonthly, Interval: 1}, "2025-01-31", "2025-02-28"},
		{"monthly clamps 31st to 30-day month", RecurringPattern{Kind: RecurMonthly, Interval: 1}, "2025-08-31", "2025-09-30"},
		{"monthly interval crosses year", RecurringPattern{Kind: RecurMonthly, Interval: 14}, "2025-01-31", "2026-03-31"},
		{"yearly", RecurringPattern{Kind: RecurYearly, Interval: 1}, "2025-06-10", "2026-06-10"},
		{"yearly clamps feb 29", RecurringPattern{Kind: RecurYearly, Interval: 1}, "2024-02-29", "2025-02-28"},
		{"yearly interval 4 keeps feb 29", RecurringPattern{Kind: RecurYearly, Interval: 4}, "2024-02-29", "2028-02-29"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.pattern.NextOccurrence(date(tt.from))
			if !got.Equal(date(tt.want)) {
				t.Errorf("NextOccurrence(%s) = %s, want %s", tt.from, got.Format("2006-01-02"), tt.want)
			}
		})
	}
}

func TestNextOccurrence_PreservesClock(t *testing.T) {
	p := RecurringPattern{Kind: RecurMonthly, Interval: 1}
	from := time.Date(2025, 1, 31, 9, 30, 0, 0, time.UTC)
	got := p.NextOccurrence(from)
	want := time.Date(2025, 2, 28, 9, 30, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("NextOccurrence = %s, want %s", got, want)
	}
}

func TestPatternValidate(t *testing.T) {
	bad := -1
	zero := 0
	one := 1
	tests := []struct {
		name    string
		pattern RecurringPattern
		wantErr bool
	}{
		{"valid daily", RecurringPattern{Kind: RecurDaily, Interval: 1}, false},
		{"valid with max occurrences", RecurringPattern{Kind: RecurWeekly, Interval: 2, MaxOccurrences: &one}, false},
		{"unknown kind", RecurringPattern{Kind: "hourly", Interval: 1}, true},
		{"zero interval", RecurringPattern{Kind: RecurDaily, Interval: 0}, true},
		{"negative interval", RecurringPattern{Kind: RecurDaily, Interval: -2}, true},
		{"zero max occurrences", RecurringPattern{Kind: RecurDaily, Interval: 1, MaxOccurrences: &zero}, true},
		{"negative max occurrences", RecurringPattern{Kind: RecurDaily, Interval: 1, MaxOccurrences: &bad}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.pattern.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !IsValidation(err) {
				t.Errorf("expected a ValidationError, got %T", err)
			}
		})
	}
}

func TestHasNext(t *testing.T) {
	end := date("2025-03-01")
	max := 3

	unbounded := RecurringPattern{Kind: RecurWeekly, Interval: 1}
	if !unbounded.HasNext(date("2999-01-01"), 1000) {
		t.Error("unbounded pattern should always continue")
	}

	byDate := RecurringPattern{Kind: RecurWeekly, Interval: 1, EndDate: &end}
	if !byDate.HasNext(date("2025-03-01"), 1) {
		t.Error("next date on the end date should continue")
	}
	if byDate.HasNext(date("2025-03-02"), 1) {
		t.Error("next date past the end date should stop")
	}

	byCount := RecurringPattern{Kind: RecurWeekly, Interval: 1, MaxOccurrences: &max}
	if !byCount.HasNext(date("2025-01-08"), 2) {
		t.Error("occurrence 2 of 3 should continue")
	}
	if byCount.HasNext(date("2025-01-15"), 3) {
		t.Error("occurrence 3 of 3 should stop")
	}

	both := RecurringPattern{Kind: RecurWeekly, Interval: 1, EndDate: &end, MaxOccurrences: &max}
	if both.HasNext(date("2025-03-02"), 1) {
		t.Error("end date bound should stop the chain even with occurrences left")
	}
	if both.HasNext(date("2025-02-01"), 3) {
		t.Error("occurrence bound should stop the chain even before the end date")
	}
}
