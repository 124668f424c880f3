package notification

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/arogya/reminder/internal/domain/reminder"
	"github.com/arogya/reminder/internal/platform/delivery"
)

// ReminderSource is the subset of the reminder repository the dispatcher needs
// to decide whether an instance should still fire.
type ReminderSource interface {
	GetByID(ctx context.Context, id uuid.UUID) (*reminder.Reminder, error)
}

// Dispatcher polls due notification instances on a fixed cadence and hands
// each one to its channel's delivery collaborator exactly once. Delivery
// failures are recorded on the instance, never retried here and never allowed
// to halt a tick.
type Dispatcher struct {
	instances Repository
	reminders ReminderSource
	senders   *delivery.Registry
	directory delivery.Directory
	renderer  delivery.Renderer
	logger    zerolog.Logger

	// Interval is the polling cadence, on the order of a minute.
	Interval time.Duration
	// BatchSize caps the instances fetched per tick.
	BatchSize int
	// Workers bounds concurrent collaborator calls within a tick.
	Workers int
	// SendTimeout bounds each collaborator call; a timed-out call is failed,
	// never left pending.
	SendTimeout time.Duration

	cron *cron.Cron
	now  func() time.Time
}

func NewDispatcher(instances Repository, reminders ReminderSource, senders *delivery.Registry,
	directory delivery.Directory, renderer delivery.Renderer, logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		instances:   instances,
		reminders:   reminders,
		senders:     senders,
		directory:   directory,
		renderer:    renderer,
		logger:      logger,
		Interval:    time.Minute,
		BatchSize:   100,
		Workers:     10,
		SendTimeout: 10 * time.Second,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Start schedules the polling loop. Ticks run until Stop is called.
func (d *Dispatcher) Start() error {
	if d.cron != nil {
		return errors.New("dispatcher already started")
	}
	c := cron.New(cron.WithSeconds())
	if _, err := c.AddFunc(fmt.Sprintf("@every %s", d.Interval), func() {
		d.Tick(context.Background())
	}); err != nil {
		return fmt.Errorf("schedule dispatch job: %w", err)
	}
	c.Start()
	d.cron = c
	d.logger.Info().Dur("interval", d.Interval).Msg("notification dispatcher started")
	return nil
}

// Stop halts the polling loop and waits for a running tick to finish.
func (d *Dispatcher) Stop() {
	if d.cron == nil {
		return
	}
	<-d.cron.Stop().Done()
	d.cron = nil
	d.logger.Info().Msg("notification dispatcher stopped")
}

// Tick runs one scan-claim-dispatch pass. Exported so the HTTP layer and tests
// can force a pass without waiting for the cadence.
func (d *Dispatcher) Tick(ctx context.Context) {
	now := d.now()
	due, err := d.instances.ListDue(ctx, now, d.BatchSize)
	if err != nil {
		d.logger.Error().Err(err).Msg("failed to list due notifications")
		return
	}
	if len(due) == 0 {
		return
	}

	workers := d.Workers
	if workers < 1 {
		workers = 1
	}
	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup

	for _, inst := range due {
		claimed, err := d.instances.Claim(ctx, inst.ID)
		if err != nil {
			d.logger.Error().Err(err).Str("instance", inst.ID.String()).Msg("failed to claim notification")
			continue
		}
		if !claimed {
			continue
		}

		wg.Add(1)
		go func(inst *Instance) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			d.dispatchOne(ctx, inst, now)
		}(inst)
	}
	wg.Wait()
}

func (d *Dispatcher) dispatchOne(ctx context.Context, inst *Instance, now time.Time) {
	r, err := d.reminders.GetByID(ctx, inst.ReminderID)
	if err != nil {
		// A reminder deleted while its notification was in flight counts as
		// suppression, not an error.
		if !errors.Is(err, reminder.ErrNotFound) {
			d.logger.Error().Err(err).Str("instance", inst.ID.String()).Msg("failed to load reminder")
		}
		d.markFailed(ctx, inst, ReasonSuppressed)
		return
	}
	if r.Status == reminder.StatusCompleted || r.Status == reminder.StatusCancelled {
		d.markFailed(ctx, inst, ReasonSuppressed)
		return
	}

	sender, err := d.senders.Sender(delivery.Channel(inst.Channel))
	if err != nil {
		d.markFailed(ctx, inst, err.Error())
		return
	}

	contact, err := d.directory.Lookup(ctx, inst.UserID)
	if err != nil {
		d.markFailed(ctx, inst, "contact lookup: "+err.Error())
		return
	}

	msg, err := d.renderer.Render(templateFor(inst, r, now), contact.Language, map[string]string{
		"vaccine":   r.Name,
		"due_date":  r.ScheduledDate.Format("2006-01-02"),
		"due_time":  r.ScheduledTime,
		"days_left": strconv.Itoa(inst.OffsetDays),
	})
	if err != nil {
		d.markFailed(ctx, inst, "render: "+err.Error())
		return
	}

	hints := delivery.Hints{
		Priority:           string(r.Priority),
		RequireInteraction: inst.OffsetDays == 0 && r.Priority == reminder.PriorityCritical,
	}

	sendCtx, cancel := context.WithTimeout(ctx, d.SendTimeout)
	defer cancel()
	if err := sender.Send(sendCtx, contact, msg, hints); err != nil {
		reason := err.Error()
		if errors.Is(err, context.DeadlineExceeded) {
			reason = ReasonTimeout
		}
		d.logger.Warn().Err(err).
			Str("instance", inst.ID.String()).
			Str("channel", inst.Channel).
			Msg("delivery failed")
		d.markFailed(ctx, inst, reason)
		return
	}

	if err := d.instances.MarkSent(ctx, inst.ID, d.now()); err != nil {
		d.logger.Error().Err(err).Str("instance", inst.ID.String()).Msg("failed to mark sent")
	}
}

func (d *Dispatcher) markFailed(ctx context.Context, inst *Instance, reason string) {
	if err := d.instances.MarkFailed(ctx, inst.ID, reason); err != nil {
		d.logger.Error().Err(err).Str("instance", inst.ID.String()).Msg("failed to mark failed")
	}
}

// templateFor picks the message template: advance notice for positive offsets,
// and for same-day instances either due-today or overdue depending on whether
// the due instant has already passed.
func templateFor(inst *Instance, r *reminder.Reminder, now time.Time) string {
	if inst.OffsetDays > 0 {
		return delivery.TemplateAdvance
	}
	if now.After(r.DueAt()) {
		return delivery.TemplateOverdue
	}
	return delivery.TemplateDueSame
}
