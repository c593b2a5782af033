package reminder

import (
	"context"
	"fmt"
	"time"

	"github.com/clientflow-hq/clientflow/internal/domain/models"
	"github.com/clientflow-hq/clientflow/internal/notify"
	pkglogger "github.com/clientflow-hq/clientflow/internal/pkg/logger"
	"github.com/clientflow-hq/clientflow/internal/pkg/metrics"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// LogStore is satisfied by *repositories.NotificationLogRepository.
type LogStore interface {
	Create(ctx context.Context, entry *models.NotificationLog) error
	HasSuccess(ctx context.Context, reminderID uuid.UUID) (bool, error)
}

// Lease optionally guards a sweep against overlapping ticks. The sweep is
// correct without it (claims are atomic); the lease only avoids wasted
// contention when many sweepers race on the same window.
type Lease interface {
	Acquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

type SweeperConfig struct {
	BatchSize       int
	DeliveryTimeout time.Duration
	DeliveryRate    float64
}

type Sweeper struct {
	reminders    ReminderStore
	appointments AppointmentStore
	logs         LogStore
	resolver     notify.Resolver
	channels     *notify.Registry
	lease        Lease

	cfg     SweeperConfig
	limiter *rate.Limiter
}

func NewSweeper(
	reminders ReminderStore,
	appointments AppointmentStore,
	logs LogStore,
	resolver notify.Resolver,
	channels *notify.Registry,
	lease Lease,
	cfg SweeperConfig,
) *Sweeper {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 200
	}
	if cfg.DeliveryTimeout <= 0 {
		cfg.DeliveryTimeout = 30 * time.Second
	}
	if cfg.DeliveryRate <= 0 {
		cfg.DeliveryRate = 10
	}

	return &Sweeper{
		reminders:    reminders,
		appointments: appointments,
		logs:         logs,
		resolver:     resolver,
		channels:     channels,
		lease:        lease,
		cfg:          cfg,
		limiter:      rate.NewLimiter(rate.Limit(cfg.DeliveryRate), 1),
	}
}

// ProcessPending claims and delivers every pending reminder due at or before
// now, earliest first. Each item is isolated: one failing reminder never
// blocks the rest. Returns the number of reminders driven to sent or failed.
func (s *Sweeper) ProcessPending(ctx context.Context, now time.Time) (int, error) {
	if s.lease != nil {
		acquired, err := s.lease.Acquire(ctx)
		if err != nil {
			return 0, fmt.Errorf("failed to acquire sweep lease: %w", err)
		}
		if !acquired {
			log.Debug().Msg("Sweep lease held elsewhere, skipping tick")
			return 0, nil
		}
		defer func() {
			if err := s.lease.Release(ctx); err != nil {
				log.Error().Err(err).Msg("Failed to release sweep lease")
			}
		}()
	}

	start := time.Now()
	defer func() {
		metrics.SweepDuration.Observe(time.Since(start).Seconds())
	}()

	due, err := s.reminders.FindDue(ctx, now, s.cfg.BatchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch due reminders: %w", err)
	}
	if len(due) == 0 {
		return 0, nil
	}

	processed := 0
	for i := range due {
		select {
		case <-ctx.Done():
			return processed, ctx.Err()
		default:
		}

		if s.processOne(ctx, &due[i]) {
			processed++
		}
	}

	log.Info().
		Int("due", len(due)).
		Int("processed", processed).
		Dur("duration", time.Since(start)).
		Msg("Sweep completed")

	return processed, nil
}

// ReleaseStale returns reminders whose claim outlived the threshold to
// pending. A sweep that died between claim and delivery leaves its row in
// processing; releasing it lets the next sweep reclaim, and the audit-log
// de-duplication check keeps the re-delivery safe.
func (s *Sweeper) ReleaseStale(ctx context.Context, threshold time.Duration) (int64, error) {
	released, err := s.reminders.ReleaseStaleProcessing(ctx, threshold)
	if err != nil {
		return 0, fmt.Errorf("failed to release stale reminder claims: %w", err)
	}
	if released > 0 {
		log.Warn().Int64("count", released).Msg("Released stale reminder claims")
	}
	return released, nil
}

// processOne drives a single reminder to sent or failed. Returns false when
// another sweep already claimed it.
func (s *Sweeper) processOne(ctx context.Context, rem *models.AppointmentReminder) bool {
	logger := pkglogger.WithReminderID(rem.ID.String()).
		With().
		Str("channel", rem.Channel).
		Logger()

	// Wait before claiming. A claim taken and then abandoned when the sweep
	// deadline interrupts the wait would strand the row in processing.
	if err := s.limiter.Wait(ctx); err != nil {
		logger.Debug().Err(err).Msg("Rate limiter interrupted, leaving reminder pending")
		return false
	}

	claimed, err := s.reminders.Claim(ctx, rem.ID)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to claim reminder")
		return false
	}
	if !claimed {
		// Another sweeper won the row. Not an error.
		logger.Debug().Msg("Reminder claimed elsewhere, skipping")
		return false
	}

	// The audit trail doubles as the de-duplication check: a reminder with a
	// successful log entry is never delivered again.
	if sent, err := s.logs.HasSuccess(ctx, rem.ID); err == nil && sent {
		logger.Warn().Msg("Reminder already has a successful delivery log, marking sent")
		if err := s.reminders.MarkSent(ctx, rem.ID); err != nil {
			logger.Error().Err(err).Msg("Failed to mark reminder sent")
		}
		return false
	}

	rendered, recipient, err := s.prepare(ctx, rem)
	if err != nil {
		s.recordFailure(ctx, rem, recipient, err, &logger)
		return true
	}

	deliverCtx, cancel := context.WithTimeout(ctx, s.cfg.DeliveryTimeout)
	defer cancel()

	channel, err := s.channels.Get(rem.Channel)
	if err != nil {
		s.recordFailure(ctx, rem, recipient, err, &logger)
		return true
	}

	deliverStart := time.Now()
	err = channel.Send(deliverCtx, recipient, rendered)
	metrics.DeliveryDuration.WithLabelValues(rem.Channel).Observe(time.Since(deliverStart).Seconds())

	if err != nil {
		s.recordFailure(ctx, rem, recipient, err, &logger)
		return true
	}

	s.recordSuccess(ctx, rem, recipient, &logger)
	return true
}

func (s *Sweeper) prepare(ctx context.Context, rem *models.AppointmentReminder) (notify.Rendered, string, error) {
	appointment, err := s.appointments.FindByID(ctx, rem.AppointmentID)
	if err != nil {
		return notify.Rendered{}, "", fmt.Errorf("failed to load appointment: %w", err)
	}

	var recipient string
	switch rem.Channel {
	case models.ChannelEmail:
		recipient = appointment.ContactEmail
	case models.ChannelSMS:
		recipient = appointment.ContactPhone
	}
	if recipient == "" {
		return notify.Rendered{}, "", fmt.Errorf("appointment %s has no %s recipient", appointment.ID, rem.Channel)
	}

	rendered, err := s.resolver.Render(ctx, rem.TemplateID, map[string]interface{}{
		"contact_name": appointment.ContactName,
		"scheduled_at": appointment.ScheduledAt,
		"channel":      rem.Channel,
		"timing":       rem.Timing,
	})
	if err != nil {
		return notify.Rendered{}, recipient, err
	}

	return rendered, recipient, nil
}

func (s *Sweeper) recordSuccess(ctx context.Context, rem *models.AppointmentReminder, recipient string, logger *zerolog.Logger) {
	// The terminal mark must land even when the sweep deadline has passed.
	ctx = context.WithoutCancel(ctx)

	entry := &models.NotificationLog{
		ReminderID: rem.ID,
		TemplateID: rem.TemplateID,
		Channel:    rem.Channel,
		Recipient:  recipient,
		Outcome:    models.OutcomeSent,
	}
	if err := s.logs.Create(ctx, entry); err != nil {
		logger.Error().Err(err).Msg("Failed to write notification log")
	}
	if err := s.reminders.MarkSent(ctx, rem.ID); err != nil {
		logger.Error().Err(err).Msg("Failed to mark reminder sent")
	}

	metrics.RemindersSweptTotal.WithLabelValues(rem.Channel, models.OutcomeSent).Inc()
	logger.Info().Str("recipient", recipient).Msg("Reminder delivered")
}

// recordFailure marks the reminder failed, terminally. Retries are a new
// reminder row, never a resurrection of this one.
func (s *Sweeper) recordFailure(ctx context.Context, rem *models.AppointmentReminder, recipient string, cause error, logger *zerolog.Logger) {
	ctx = context.WithoutCancel(ctx)

	msg := cause.Error()
	entry := &models.NotificationLog{
		ReminderID: rem.ID,
		TemplateID: rem.TemplateID,
		Channel:    rem.Channel,
		Recipient:  recipient,
		Outcome:    models.OutcomeFailed,
		Error:      &msg,
	}
	if err := s.logs.Create(ctx, entry); err != nil {
		logger.Error().Err(err).Msg("Failed to write notification log")
	}
	if err := s.reminders.MarkFailed(ctx, rem.ID); err != nil {
		logger.Error().Err(err).Msg("Failed to mark reminder failed")
	}

	metrics.RemindersSweptTotal.WithLabelValues(rem.Channel, models.OutcomeFailed).Inc()
	logger.Warn().Err(cause).Msg("Reminder delivery failed")
}
