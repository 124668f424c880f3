package notification

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository is the persistence collaborator for notification instances.
type Repository interface {
	// ReplaceForReminder atomically discards the reminder's planned set and
	// stores the new one. Replanning with unchanged input therefore yields an
	// identical set, never duplicates.
	ReplaceForReminder(ctx context.Context, reminderID uuid.UUID, items []*Instance) error
	DeleteByReminder(ctx context.Context, reminderID uuid.UUID) error

	// ListDue returns pending instances with scheduled_for <= now.
	ListDue(ctx context.Context, now time.Time, limit int) ([]*Instance, error)

	// Claim atomically moves a pending instance to dispatching. Returns false
	// when another worker got there first.
	Claim(ctx context.Context, id uuid.UUID) (bool, error)

	MarkSent(ctx context.Context, id uuid.UUID, at time.Time) error
	MarkFailed(ctx context.Context, id uuid.UUID, reason string) error

	ListByReminder(ctx context.Context, reminderID uuid.UUID) ([]*Instance, error)
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]*Instance, int, error)
	CountByStatus(ctx context.Context) (map[string]int, error)
}
