package reminder

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/arogya/reminder/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type repoPG struct{ pool *pgxpool.Pool }

// NewRepoPG creates the PostgreSQL-backed reminder repository.
func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const cols = `id, user_id, name, description, notes,
	scheduled_date, scheduled_time, is_recurring, recurrence,
	priority, government_mandated, status, completed_date, occurrence,
	enable_notifications, channels, advance_days, notify_time,
	next_due_date, created_at, updated_at`

func scanReminder(row pgx.Row) (*Reminder, error) {
	var rem Reminder
	var recurrence []byte
	err := row.Scan(&rem.ID, &rem.UserID, &rem.Name, &rem.Description, &rem.Notes,
		&rem.ScheduledDate, &rem.ScheduledTime, &rem.IsRecurring, &recurrence,
		&rem.Priority, &rem.GovernmentMandated, &rem.Status, &rem.CompletedDate, &rem.Occurrence,
		&rem.EnableNotifications, &rem.Channels, &rem.AdvanceDays, &rem.NotifyTime,
		&rem.NextDueDate, &rem.CreatedAt, &rem.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if len(recurrence) > 0 {
		var p RecurringPattern
		if err := json.Unmarshal(recurrence, &p); err != nil {
			return nil, fmt.Errorf("decode recurrence: %w", err)
		}
		rem.Recurrence = &p
	}
	return &rem, nil
}

func encodeRecurrence(p *RecurringPattern) ([]byte, error) {
	if p == nil {
		return nil, nil
	}
	return json.Marshal(p)
}

func (r *repoPG) Create(ctx context.Context, rem *Reminder) error {
	rem.ID = uuid.New()
	now := time.Now().UTC()
	rem.CreatedAt = now
	rem.UpdatedAt = now

	recurrence, err := encodeRecurrence(rem.Recurrence)
	if err != nil {
		return fmt.Errorf("encode recurrence: %w", err)
	}
	_, err = r.conn(ctx).Exec(ctx, `
		INSERT INTO reminder (id, user_id, name, description, notes,
			scheduled_date, scheduled_time, is_recurring, recurrence,
			priority, government_mandated, status, completed_date, occurrence,
			enable_notifications, channels, advance_days, notify_time,
			next_due_date, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21)`,
		rem.ID, rem.UserID, rem.Name, rem.Description, rem.Notes,
		rem.ScheduledDate, rem.ScheduledTime, rem.IsRecurring, recurrence,
		rem.Priority, rem.GovernmentMandated, rem.Status, rem.CompletedDate, rem.Occurrence,
		rem.EnableNotifications, rem.Channels, rem.AdvanceDays, rem.NotifyTime,
		rem.NextDueDate, rem.CreatedAt, rem.UpdatedAt)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Reminder, error) {
	return scanReminder(r.conn(ctx).QueryRow(ctx, `SELECT `+cols+` FROM reminder WHERE id = $1`, id))
}

func (r *repoPG) Update(ctx context.Context, rem *Reminder) error {
	rem.UpdatedAt = time.Now().UTC()
	recurrence, err := encodeRecurrence(rem.Recurrence)
	if err != nil {
		return fmt.Errorf("encode recurrence: %w", err)
	}
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE reminder SET name=$2, description=$3, notes=$4,
			scheduled_date=$5, scheduled_time=$6, is_recurring=$7, recurrence=$8,
			priority=$9, status=$10, completed_date=$11, occurrence=$12,
			enable_notifications=$13, channels=$14, advance_days=$15, notify_time=$16,
			next_due_date=$17, updated_at=$18
		WHERE id = $1`,
		rem.ID, rem.Name, rem.Description, rem.Notes,
		rem.ScheduledDate, rem.ScheduledTime, rem.IsRecurring, recurrence,
		rem.Priority, rem.Status, rem.CompletedDate, rem.Occurrence,
		rem.EnableNotifications, rem.Channels, rem.AdvanceDays, rem.NotifyTime,
		rem.NextDueDate, rem.UpdatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM reminder WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) ListByUser(ctx context.Context, userID string, limit, offset int) ([]*Reminder, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM reminder WHERE user_id = $1`, userID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+cols+` FROM reminder WHERE user_id = $1
		 ORDER BY scheduled_date, scheduled_time LIMIT $2 OFFSET $3`,
		userID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	items, err := collectReminders(rows)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *repoPG) ListAllByUser(ctx context.Context, userID string) ([]*Reminder, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+cols+` FROM reminder WHERE user_id = $1 ORDER BY scheduled_date, scheduled_time`,
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectReminders(rows)
}

func (r *repoPG) Transact(ctx context.Context, fn func(ctx context.Context) error) error {
	return db.WithTx(ctx, r.pool, fn)
}

func collectReminders(rows pgx.Rows) ([]*Reminder, error) {
	var items []*Reminder
	for rows.Next() {
		rem, err := scanReminder(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, rem)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
