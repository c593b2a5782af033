// Package reminder turns future appointment times into due work: the
// Scheduler persists pending reminders at computed fire times, the Sweeper
// claims and delivers the ones that came due.
package reminder

import (
	"context"
	"fmt"
	"time"

	"github.com/clientflow-hq/clientflow/internal/domain/models"
	pkglogger "github.com/clientflow-hq/clientflow/internal/pkg/logger"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// AppointmentStore is the read-only slice of appointment persistence this
// package needs. *repositories.AppointmentRepository satisfies it.
type AppointmentStore interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Appointment, error)
}

// ReminderStore is satisfied by *repositories.ReminderRepository.
type ReminderStore interface {
	Create(ctx context.Context, reminder *models.AppointmentReminder) error
	FindByAppointmentID(ctx context.Context, appointmentID uuid.UUID) ([]models.AppointmentReminder, error)
	FindDue(ctx context.Context, now time.Time, limit int) ([]models.AppointmentReminder, error)
	Claim(ctx context.Context, reminderID uuid.UUID) (bool, error)
	MarkSent(ctx context.Context, reminderID uuid.UUID) error
	MarkFailed(ctx context.Context, reminderID uuid.UUID) error
	CancelPendingByAppointment(ctx context.Context, appointmentID uuid.UUID) (int64, error)
	ReleaseStaleProcessing(ctx context.Context, threshold time.Duration) (int64, error)
}

// Config is one requested reminder: a channel, a lead-time offset and the
// template to render.
type Config struct {
	Enabled       bool      `json:"enabled"`
	Channel       string    `json:"channel" validate:"required,oneof=email sms"`
	Timing        string    `json:"timing" validate:"required,oneof=24h 1h 15m custom"`
	CustomMinutes int       `json:"custom_minutes,omitempty"`
	TemplateID    uuid.UUID `json:"template_id" validate:"required"`
}

// Result reports the outcome for one config entry of a Schedule batch.
type Result struct {
	Index    int
	Skipped  bool
	Reminder *models.AppointmentReminder
	Err      error
}

type Scheduler struct {
	appointments AppointmentStore
	reminders    ReminderStore
	validate     *validator.Validate

	now func() time.Time
}

func NewScheduler(appointments AppointmentStore, reminders ReminderStore) *Scheduler {
	return &Scheduler{
		appointments: appointments,
		reminders:    reminders,
		validate:     validator.New(),
		now:          time.Now,
	}
}

// Offset converts a timing keyword to the lead-time duration before the
// appointment.
func Offset(timing string, customMinutes int) (time.Duration, error) {
	switch timing {
	case models.ReminderTiming24h:
		return 24 * time.Hour, nil
	case models.ReminderTiming1h:
		return time.Hour, nil
	case models.ReminderTiming15m:
		return 15 * time.Minute, nil
	case models.ReminderTimingCustom:
		if customMinutes <= 0 {
			return 0, fmt.Errorf("custom timing requires positive custom_minutes")
		}
		return time.Duration(customMinutes) * time.Minute, nil
	default:
		return 0, fmt.Errorf("unknown timing %q", timing)
	}
}

// Schedule computes fire times for each enabled config and persists them as
// pending reminders. The batch is partial-success: a bad entry is reported in
// its Result while the rest proceed. Prior pending reminders for the
// appointment are superseded first, so re-scheduling never leaves duplicates.
func (s *Scheduler) Schedule(ctx context.Context, appointmentID uuid.UUID, configs []Config) ([]Result, error) {
	appointment, err := s.appointments.FindByID(ctx, appointmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to load appointment: %w", err)
	}
	if appointment.Status == models.AppointmentStatusCancelled {
		return nil, fmt.Errorf("appointment %s is cancelled", appointmentID)
	}

	superseded, err := s.reminders.CancelPendingByAppointment(ctx, appointmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to supersede prior reminders: %w", err)
	}
	if superseded > 0 {
		logger := pkglogger.WithAppointmentID(appointmentID.String())
		logger.Info().Int64("superseded", superseded).Msg("Cancelled prior pending reminders")
	}

	now := s.now()
	results := make([]Result, 0, len(configs))

	for i, cfg := range configs {
		if !cfg.Enabled {
			results = append(results, Result{Index: i, Skipped: true})
			continue
		}

		if err := s.validate.Struct(cfg); err != nil {
			results = append(results, Result{Index: i, Err: &InvalidReminderConfigError{
				Index: i, Reason: err.Error(),
			}})
			continue
		}

		offset, err := Offset(cfg.Timing, cfg.CustomMinutes)
		if err != nil {
			results = append(results, Result{Index: i, Err: &InvalidReminderConfigError{
				Index: i, Reason: err.Error(),
			}})
			continue
		}

		fireAt := appointment.ScheduledAt.Add(-offset)
		if !fireAt.After(now) {
			results = append(results, Result{Index: i, Err: &StaleScheduleError{Index: i, FireAt: fireAt}})
			continue
		}

		rem := &models.AppointmentReminder{
			AppointmentID: appointmentID,
			Channel:       cfg.Channel,
			Timing:        cfg.Timing,
			CustomMinutes: cfg.CustomMinutes,
			TemplateID:    cfg.TemplateID,
			FireAt:        fireAt,
			Status:        models.ReminderStatusPending,
		}
		if err := s.reminders.Create(ctx, rem); err != nil {
			results = append(results, Result{Index: i, Err: fmt.Errorf("failed to persist reminder: %w", err)})
			continue
		}

		results = append(results, Result{Index: i, Reminder: rem})
	}

	return results, nil
}

// RemindersForAppointment lists every reminder row for the appointment,
// earliest fire time first, regardless of status.
func (s *Scheduler) RemindersForAppointment(ctx context.Context, appointmentID uuid.UUID) ([]models.AppointmentReminder, error) {
	return s.reminders.FindByAppointmentID(ctx, appointmentID)
}

// CancelForAppointment cascade-cancels the appointment's still-pending
// reminders so a cancelled appointment leaves no orphaned future sends.
func (s *Scheduler) CancelForAppointment(ctx context.Context, appointmentID uuid.UUID) (int64, error) {
	return s.reminders.CancelPendingByAppointment(ctx, appointmentID)
}
