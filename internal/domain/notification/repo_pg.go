package notification

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/arogya/reminder/internal/domain/reminder"
	"github.com/arogya/reminder/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type repoPG struct{ pool *pgxpool.Pool }

// NewRepoPG creates the PostgreSQL-backed notification instance repository.
func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const cols = `id, reminder_id, user_id, channel, offset_days,
	scheduled_for, status, sent_at, fail_reason, created_at`

func scanInstance(row pgx.Row) (*Instance, error) {
	var inst Instance
	err := row.Scan(&inst.ID, &inst.ReminderID, &inst.UserID, &inst.Channel, &inst.OffsetDays,
		&inst.ScheduledFor, &inst.Status, &inst.SentAt, &inst.FailReason, &inst.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, reminder.ErrNotFound
		}
		return nil, err
	}
	return &inst, nil
}

func (r *repoPG) ReplaceForReminder(ctx context.Context, reminderID uuid.UUID, items []*Instance) error {
	return db.WithTx(ctx, r.pool, func(ctx context.Context) error {
		if _, err := r.conn(ctx).Exec(ctx,
			`DELETE FROM notification_instance WHERE reminder_id = $1`, reminderID); err != nil {
			return err
		}
		for _, inst := range items {
			if inst.ID == uuid.Nil {
				inst.ID = uuid.New()
			}
			if inst.CreatedAt.IsZero() {
				inst.CreatedAt = time.Now().UTC()
			}
			if _, err := r.conn(ctx).Exec(ctx, `
				INSERT INTO notification_instance (id, reminder_id, user_id, channel, offset_days,
					scheduled_for, status, sent_at, fail_reason, created_at)
				VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
				inst.ID, inst.ReminderID, inst.UserID, inst.Channel, inst.OffsetDays,
				inst.ScheduledFor, inst.Status, inst.SentAt, inst.FailReason, inst.CreatedAt); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *repoPG) DeleteByReminder(ctx context.Context, reminderID uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx,
		`DELETE FROM notification_instance WHERE reminder_id = $1`, reminderID)
	return err
}

func (r *repoPG) ListDue(ctx context.Context, now time.Time, limit int) ([]*Instance, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+cols+` FROM notification_instance
		 WHERE status = $1 AND scheduled_for <= $2
		 ORDER BY scheduled_for LIMIT $3`,
		StatusPending, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectInstances(rows)
}

func (r *repoPG) Claim(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE notification_instance SET status = $1 WHERE id = $2 AND status = $3`,
		StatusDispatching, id, StatusPending)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *repoPG) MarkSent(ctx context.Context, id uuid.UUID, at time.Time) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE notification_instance SET status = $1, sent_at = $2 WHERE id = $3`,
		StatusSent, at, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return reminder.ErrNotFound
	}
	return nil
}

func (r *repoPG) MarkFailed(ctx context.Context, id uuid.UUID, reason string) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE notification_instance SET status = $1, fail_reason = $2 WHERE id = $3`,
		StatusFailed, reason, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return reminder.ErrNotFound
	}
	return nil
}

func (r *repoPG) ListByReminder(ctx context.Context, reminderID uuid.UUID) ([]*Instance, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+cols+` FROM notification_instance WHERE reminder_id = $1
		 ORDER BY scheduled_for, channel`, reminderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectInstances(rows)
}

func (r *repoPG) ListByUser(ctx context.Context, userID string, limit, offset int) ([]*Instance, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM notification_instance WHERE user_id = $1`, userID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+cols+` FROM notification_instance WHERE user_id = $1
		 ORDER BY scheduled_for DESC LIMIT $2 OFFSET $3`,
		userID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	items, err := collectInstances(rows)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *repoPG) CountByStatus(ctx context.Context) (map[string]int, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT status, COUNT(*) FROM notification_instance GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return counts, nil
}

func collectInstances(rows pgx.Rows) ([]*Instance, error) {
	var items []*Instance
	for rows.Next() {
		inst, err := scanInstance(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, inst)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
