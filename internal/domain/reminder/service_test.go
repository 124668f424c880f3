package reminder

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// =========== Mocks ===========

type mockRepo struct {
	store map[uuid.UUID]*Reminder
}

func newMockRepo() *mockRepo {
	return &mockRepo{store: make(map[uuid.UUID]*Reminder)}
}

func (m *mockRepo) Create(_ context.Context, r *Reminder) error {
	r.ID = uuid.New()
	r.CreatedAt = time.Now().UTC()
	r.UpdatedAt = r.CreatedAt
	cp := *r
	m.store[r.ID] = &cp
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*Reminder, error) {
	r, ok := m.store[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (m *mockRepo) Update(_ context.Context, r *Reminder) error {
	if _, ok := m.store[r.ID]; !ok {
		return ErrNotFound
	}
	r.UpdatedAt = time.Now().UTC()
	cp := *r
	m.store[r.ID] = &cp
	return nil
}

func (m *mockRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := m.store[id]; !ok {
		return ErrNotFound
	}
	delete(m.store, id)
	return nil
}

func (m *mockRepo) ListByUser(_ context.Context, userID string, limit, offset int) ([]*Reminder, int, error) {
	all, _ := m.ListAllByUser(nil, userID)
	return all, len(all), nil
}

func (m *mockRepo) ListAllByUser(_ context.Context, userID string) ([]*Reminder, error) {
	var out []*Reminder
	for _, r := range m.store {
		if r.UserID == userID {
			cp := *r
			out = append(out, &cp)
		}
	}
	return out, nil
}

// Transact mirrors the pg repo's transaction semantics: a failing fn leaves
// the store exactly as it was.
func (m *mockRepo) Transact(ctx context.Context, fn func(ctx context.Context) error) error {
	snapshot := make(map[uuid.UUID]*Reminder, len(m.store))
	for id, r := range m.store {
		cp := *r
		snapshot[id] = &cp
	}
	if err := fn(ctx); err != nil {
		m.store = snapshot
		return err
	}
	return nil
}

type mockPlanner struct {
	replanned  []uuid.UUID
	discarded  []uuid.UUID
	replanErr  error
	discardErr error
}

func (m *mockPlanner) Replan(_ context.Context, r *Reminder) error {
	if m.replanErr != nil {
		return m.replanErr
	}
	m.replanned = append(m.replanned, r.ID)
	return nil
}

func (m *mockPlanner) Discard(_ context.Context, id uuid.UUID) error {
	if m.discardErr != nil {
		return m.discardErr
	}
	m.discarded = append(m.discarded, id)
	return nil
}

func newTestService() (*Service, *mockRepo, *mockPlanner) {
	repo := newMockRepo()
	planner := &mockPlanner{}
	svc := NewService(repo, planner, zerolog.Nop())
	return svc, repo, planner
}

func validReminder() *Reminder {
	return &Reminder{
		UserID:              "user-1",
		Name:                "Polio",
		ScheduledDate:       date("2025-03-01"),
		ScheduledTime:       "09:00",
		Priority:            PriorityHigh,
		EnableNotifications: true,
		Channels:            []string{"website"},
		AdvanceDays:         []int{7, 1, 0},
	}
}

// =========== Create ===========

func TestService_Create(t *testing.T) {
	svc, repo, planner := newTestService()

	r := validReminder()
	if err := svc.Create(context.Background(), r); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.ID == uuid.Nil {
		t.Error("expected an id to be assigned")
	}
	if r.Status != StatusPending {
		t.Errorf("status = %s, want pending", r.Status)
	}
	if r.Occurrence != 1 {
		t.Errorf("occurrence = %d, want 1", r.Occurrence)
	}
	if _, ok := repo.store[r.ID]; !ok {
		t.Error("reminder not stored")
	}
	if len(planner.replanned) != 1 || planner.replanned[0] != r.ID {
		t.Errorf("expected one replan for the new reminder, got %v", planner.replanned)
	}
}

func TestService_Create_Recurring(t *testing.T) {
	svc, _, _ := newTestService()

	r := validReminder()
	r.IsRecurring = true
	r.Recurrence = &RecurringPattern{Kind: RecurWeekly, Interval: 1}
	if err := svc.Create(context.Background(), r); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.NextDueDate == nil {
		t.Fatal("expected next due date on a recurring reminder")
	}
	if !r.NextDueDate.Equal(date("2025-03-08")) {
		t.Errorf("next due = %s, want 2025-03-08", r.NextDueDate.Format("2006-01-02"))
	}
}

func TestService_Create_Validation(t *testing.T) {
	svc, _, planner := newTestService()

	tests := []struct {
		name   string
		mutate func(*Reminder)
	}{
		{"missing user", func(r *Reminder) { r.UserID = "" }},
		{"missing name", func(r *Reminder) { r.Name = "" }},
		{"missing date", func(r *Reminder) { r.ScheduledDate = time.Time{} }},
		{"bad time", func(r *Reminder) { r.ScheduledTime = "9am" }},
		{"bad priority", func(r *Reminder) { r.Priority = "urgent" }},
		{"recurring without pattern", func(r *Reminder) { r.IsRecurring = true }},
		{"pattern without recurring", func(r *Reminder) {
			r.Recurrence = &RecurringPattern{Kind: RecurDaily, Interval: 1}
		}},
		{"bad pattern", func(r *Reminder) {
			r.IsRecurring = true
			r.Recurrence = &RecurringPattern{Kind: "hourly", Interval: 1}
		}},
		{"notifications without channels", func(r *Reminder) { r.Channels = nil }},
		{"unknown channel", func(r *Reminder) { r.Channels = []string{"pigeon"} }},
		{"negative offset", func(r *Reminder) { r.AdvanceDays = []int{-1} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := validReminder()
			tt.mutate(r)
			err := svc.Create(context.Background(), r)
			if !IsValidation(err) {
				t.Errorf("expected a validation error, got %v", err)
			}
		})
	}
	if len(planner.replanned) != 0 {
		t.Errorf("rejected creates must not plan notifications, got %v", planner.replanned)
	}
}

func TestService_Create_DefaultsPriority(t *testing.T) {
	svc, _, _ := newTestService()
	r := validReminder()
	r.Priority = ""
	if err := svc.Create(context.Background(), r); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Priority != PriorityMedium {
		t.Errorf("priority = %s, want medium default", r.Priority)
	}
}

// =========== Get / Update / Delete ===========

func TestService_Get_DerivesOverdue(t *testing.T) {
	svc, _, _ := newTestService()
	r := validReminder()
	if err := svc.Create(context.Background(), r); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	svc.now = func() time.Time { return time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC) }
	got, err := svc.Get(context.Background(), r.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Status != StatusOverdue {
		t.Errorf("status = %s, want overdue", got.Status)
	}
}

func TestService_Update(t *testing.T) {
	svc, repo, planner := newTestService()
	r := validReminder()
	if err := svc.Create(context.Background(), r); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	name := "Polio booster"
	newDate := date("2025-05-01")
	got, err := svc.Update(context.Background(), r.ID, Patch{Name: &name, ScheduledDate: &newDate})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Name != name {
		t.Errorf("name = %q, want %q", got.Name, name)
	}
	if !got.ScheduledDate.Equal(newDate) {
		t.Errorf("scheduled date = %s, want %s", got.ScheduledDate, newDate)
	}
	if stored := repo.store[r.ID]; stored.Name != name {
		t.Error("update not persisted")
	}
	// Create + update each replan.
	if len(planner.replanned) != 2 {
		t.Errorf("expected 2 replans, got %d", len(planner.replanned))
	}
}

func TestService_Create_ReplanFailureRollsBack(t *testing.T) {
	svc, repo, planner := newTestService()
	planner.replanErr = errors.New("instance store down")

	err := svc.Create(context.Background(), validReminder())
	if err == nil {
		t.Fatal("expected the planner failure to propagate")
	}
	if len(repo.store) != 0 {
		t.Error("a create whose plan failed must not persist the reminder")
	}
}

func TestService_Update_ReplanFailurePropagates(t *testing.T) {
	svc, repo, planner := newTestService()
	r := validReminder()
	if err := svc.Create(context.Background(), r); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	planner.replanErr = errors.New("instance store down")
	newDate := date("2025-04-01")
	_, err := svc.Update(context.Background(), r.ID, Patch{ScheduledDate: &newDate})
	if err == nil {
		t.Fatal("expected the planner failure to propagate")
	}
	// The stored reminder must still match its planned instance set.
	if stored := repo.store[r.ID]; !stored.ScheduledDate.Equal(date("2025-03-01")) {
		t.Errorf("stored date = %s, want the pre-update 2025-03-01", stored.ScheduledDate.Format("2006-01-02"))
	}
}

func TestService_Update_RejectsDirectCompletion(t *testing.T) {
	svc, repo, _ := newTestService()
	r := validReminder()
	if err := svc.Create(context.Background(), r); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	completed := StatusCompleted
	_, err := svc.Update(context.Background(), r.ID, Patch{Status: &completed})
	if !IsValidation(err) {
		t.Fatalf("expected a validation error, got %v", err)
	}
	if repo.store[r.ID].Status != StatusPending {
		t.Error("rejected update must leave the stored row untouched")
	}
}

func TestService_Update_CancelDiscardsNotifications(t *testing.T) {
	svc, _, planner := newTestService()
	r := validReminder()
	if err := svc.Create(context.Background(), r); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cancelled := StatusCancelled
	got, err := svc.Update(context.Background(), r.ID, Patch{Status: &cancelled})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Status != StatusCancelled {
		t.Errorf("status = %s, want cancelled", got.Status)
	}
	if len(planner.discarded) != 1 || planner.discarded[0] != r.ID {
		t.Errorf("expected notifications discarded for %s, got %v", r.ID, planner.discarded)
	}
}

func TestService_Update_RejectsPatternRemovalWhileRecurring(t *testing.T) {
	svc, _, _ := newTestService()
	r := validReminder()
	r.IsRecurring = true
	r.Recurrence = &RecurringPattern{Kind: RecurWeekly, Interval: 1}
	if err := svc.Create(context.Background(), r); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err := svc.Update(context.Background(), r.ID, Patch{ClearRecurrence: true})
	if !IsValidation(err) {
		t.Errorf("expected a validation error, got %v", err)
	}
}

func TestService_Update_NotFound(t *testing.T) {
	svc, _, _ := newTestService()
	_, err := svc.Update(context.Background(), uuid.New(), Patch{})
	if err != ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestService_Update_LockTimeout(t *testing.T) {
	svc, _, _ := newTestService()
	r := validReminder()
	if err := svc.Create(context.Background(), r); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	svc.lockTimeout = 20 * time.Millisecond
	if err := svc.locks.acquire(r.ID, time.Second); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer svc.locks.release(r.ID)

	_, err := svc.Update(context.Background(), r.ID, Patch{})
	if err != ErrConflict {
		t.Errorf("expected ErrConflict while the lock is held, got %v", err)
	}
}

func TestService_Delete(t *testing.T) {
	svc, repo, planner := newTestService()
	r := validReminder()
	if err := svc.Create(context.Background(), r); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := svc.Delete(context.Background(), r.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := repo.store[r.ID]; ok {
		t.Error("reminder still stored after delete")
	}
	if len(planner.discarded) != 1 {
		t.Errorf("expected planned notifications discarded, got %v", planner.discarded)
	}
	if err := svc.Delete(context.Background(), r.ID); err != ErrNotFound {
		t.Errorf("expected ErrNotFound on second delete, got %v", err)
	}
}

// =========== MarkCompleted ===========

func TestService_MarkCompleted_NonRecurring(t *testing.T) {
	svc, _, planner := newTestService()
	r := validReminder()
	if err := svc.Create(context.Background(), r); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	done, next, err := svc.MarkCompleted(context.Background(), r.ID, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if done.Status != StatusCompleted {
		t.Errorf("status = %s, want completed", done.Status)
	}
	if done.CompletedDate == nil {
		t.Error("expected completed date to be set")
	}
	if next != nil {
		t.Error("non-recurring completion must not spawn a sibling")
	}
	if len(planner.discarded) != 1 {
		t.Errorf("expected planned notifications discarded, got %v", planner.discarded)
	}
}

func TestService_MarkCompleted_SpawnsSibling(t *testing.T) {
	svc, repo, planner := newTestService()
	r := validReminder()
	r.IsRecurring = true
	r.Recurrence = &RecurringPattern{Kind: RecurWeekly, Interval: 1}
	if err := svc.Create(context.Background(), r); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	done, next, err := svc.MarkCompleted(context.Background(), r.ID, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if next == nil {
		t.Fatal("expected a sibling for the next occurrence")
	}
	if next.ID == done.ID || next.ID == uuid.Nil {
		t.Error("sibling must be a new row")
	}
	if !next.ScheduledDate.Equal(date("2025-03-08")) {
		t.Errorf("sibling scheduled for %s, want 2025-03-08", next.ScheduledDate.Format("2006-01-02"))
	}
	if next.Status != StatusPending {
		t.Errorf("sibling status = %s, want pending", next.Status)
	}
	if next.Occurrence != 2 {
		t.Errorf("sibling occurrence = %d, want 2", next.Occurrence)
	}
	if next.NextDueDate == nil || !next.NextDueDate.Equal(date("2025-03-15")) {
		t.Error("sibling next due date not advanced")
	}
	if len(repo.store) != 2 {
		t.Errorf("expected original plus sibling stored, got %d rows", len(repo.store))
	}
	if len(planner.discarded) != 1 || planner.discarded[0] != done.ID {
		t.Errorf("expected completed reminder's notifications discarded, got %v", planner.discarded)
	}
	// Create of the original plus plan of the sibling.
	if len(planner.replanned) != 2 || planner.replanned[1] != next.ID {
		t.Errorf("expected sibling planned, got %v", planner.replanned)
	}
}

func TestService_MarkCompleted_SiblingPlanFailureRollsBack(t *testing.T) {
	svc, repo, planner := newTestService()
	r := validReminder()
	r.IsRecurring = true
	r.Recurrence = &RecurringPattern{Kind: RecurWeekly, Interval: 1}
	if err := svc.Create(context.Background(), r); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	planner.replanErr = errors.New("instance store down")
	_, _, err := svc.MarkCompleted(context.Background(), r.ID, nil)
	if err == nil {
		t.Fatal("expected the planner failure to propagate")
	}
	if len(repo.store) != 1 {
		t.Fatalf("expected the sibling rolled back, got %d rows", len(repo.store))
	}
	if repo.store[r.ID].Status != StatusPending {
		t.Error("completion must roll back with the failed sibling plan")
	}
}

func TestService_MarkCompleted_Idempotent(t *testing.T) {
	svc, _, _ := newTestService()
	r := validReminder()
	r.IsRecurring = true
	r.Recurrence = &RecurringPattern{Kind: RecurWeekly, Interval: 1}
	if err := svc.Create(context.Background(), r); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, _, err := svc.MarkCompleted(context.Background(), r.ID, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	done, next, err := svc.MarkCompleted(context.Background(), r.ID, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if done.Status != StatusCompleted {
		t.Errorf("status = %s, want completed", done.Status)
	}
	if next != nil {
		t.Error("repeated completion must not spawn another sibling")
	}
}

func TestService_MarkCompleted_ExplicitDate(t *testing.T) {
	svc, _, _ := newTestService()
	r := validReminder()
	if err := svc.Create(context.Background(), r); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	at := time.Date(2025, 3, 2, 10, 0, 0, 0, time.UTC)
	done, _, err := svc.MarkCompleted(context.Background(), r.ID, &at)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if done.CompletedDate == nil || !done.CompletedDate.Equal(at) {
		t.Errorf("completed date = %v, want %s", done.CompletedDate, at)
	}
}

func TestService_MarkCompleted_MaxOccurrencesBound(t *testing.T) {
	svc, _, _ := newTestService()
	max := 2
	r := validReminder()
	r.IsRecurring = true
	r.Recurrence = &RecurringPattern{Kind: RecurWeekly, Interval: 1, MaxOccurrences: &max}
	if err := svc.Create(context.Background(), r); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, second, err := svc.MarkCompleted(context.Background(), r.ID, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if second == nil {
		t.Fatal("occurrence 1 of 2 should spawn a sibling")
	}

	_, third, err := svc.MarkCompleted(context.Background(), second.ID, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if third != nil {
		t.Error("occurrence 2 of 2 must end the chain")
	}
}

func TestService_MarkCompleted_EndDateBound(t *testing.T) {
	svc, _, _ := newTestService()
	end := date("2025-03-05")
	r := validReminder()
	r.IsRecurring = true
	r.Recurrence = &RecurringPattern{Kind: RecurWeekly, Interval: 1, EndDate: &end}
	if err := svc.Create(context.Background(), r); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Next occurrence 2025-03-08 falls past the end date.
	_, next, err := svc.MarkCompleted(context.Background(), r.ID, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if next != nil {
		t.Error("chain must stop at the end date")
	}
}

// =========== Listings ===========

func TestService_ListOverdueAndUpcoming(t *testing.T) {
	svc, _, _ := newTestService()
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	overdue := validReminder()
	overdue.Name = "BCG"
	overdue.ScheduledDate = date("2025-03-01")
	soon := validReminder()
	soon.Name = "Hepatitis B"
	soon.ScheduledDate = date("2025-03-14")
	far := validReminder()
	far.Name = "MMR"
	far.ScheduledDate = date("2025-06-01")
	for _, r := range []*Reminder{overdue, soon, far} {
		if err := svc.Create(context.Background(), r); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if _, _, err := svc.MarkCompleted(context.Background(), overdue.ID, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// A completed reminder never reads as overdue.
	late := validReminder()
	late.Name = "DPT"
	late.ScheduledDate = date("2025-03-05")
	if err := svc.Create(context.Background(), late); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := svc.ListOverdue(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0].Name != "DPT" {
		t.Fatalf("overdue = %v, want just DPT", names(got))
	}
	if got[0].Status != StatusOverdue {
		t.Errorf("status = %s, want overdue", got[0].Status)
	}

	up, err := svc.ListUpcoming(context.Background(), "user-1", 7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(up) != 1 || up[0].Name != "Hepatitis B" {
		t.Fatalf("upcoming = %v, want just Hepatitis B", names(up))
	}
}

func names(items []*Reminder) []string {
	var out []string
	for _, r := range items {
		out = append(out, r.Name)
	}
	return out
}
