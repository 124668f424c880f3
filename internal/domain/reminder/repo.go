package reminder

import (
	"context"

	"github.com/google/uuid"
)

// Repository is the persistence collaborator for reminders. Implementations
// must return ErrNotFound for unknown ids.
type Repository interface {
	Create(ctx context.Context, r *Reminder) error
	GetByID(ctx context.Context, id uuid.UUID) (*Reminder, error)
	Update(ctx context.Context, r *Reminder) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]*Reminder, int, error)
	ListAllByUser(ctx context.Context, userID string) ([]*Reminder, error)

	// Transact runs fn atomically: every repository call made with the context
	// fn receives commits or rolls back as one unit.
	Transact(ctx context.Context, fn func(ctx context.Context) error) error
}

// Planner regenerates the planned notification instances for a reminder after
// a mutation, and discards them when the reminder is deleted, completed or
// cancelled.
type Planner interface {
	Replan(ctx context.Context, r *Reminder) error
	Discard(ctx context.Context, reminderID uuid.UUID) error
}
