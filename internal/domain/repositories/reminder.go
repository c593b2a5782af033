package repositories

import (
	"context"
	"time"

	"github.com/clientflow-hq/clientflow/internal/domain/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ReminderRepository struct {
	*BaseRepository[models.AppointmentReminder]
}

func NewReminderRepository(db *gorm.DB) *ReminderRepository {
	return &ReminderRepository{
		BaseRepository: NewBaseRepository[models.AppointmentReminder](db),
	}
}

func (r *ReminderRepository) FindByAppointmentID(ctx context.Context, appointmentID uuid.UUID) ([]models.AppointmentReminder, error) {
	var reminders []models.AppointmentReminder
	err := r.DB().WithContext(ctx).
		Where("appointment_id = ?", appointmentID).
		Order("fire_at ASC").
		Find(&reminders).Error
	return reminders, err
}

// FindDue returns pending reminders whose fire time has passed, earliest due
// first.
func (r *ReminderRepository) FindDue(ctx context.Context, now time.Time, limit int) ([]models.AppointmentReminder, error) {
	var reminders []models.AppointmentReminder
	err := r.DB().WithContext(ctx).
		Where("status = ? AND fire_at <= ?", models.ReminderStatusPending, now).
		Order("fire_at ASC").
		Limit(limit).
		Find(&reminders).Error
	return reminders, err
}

// Claim moves one reminder pending -> processing with a conditional update.
// Two concurrent sweeps racing on the same row see exactly one winner; the
// loser gets claimed=false and moves on.
func (r *ReminderRepository) Claim(ctx context.Context, reminderID uuid.UUID) (bool, error) {
	result := r.DB().WithContext(ctx).Model(&models.AppointmentReminder{}).
		Where("id = ? AND status = ?", reminderID, models.ReminderStatusPending).
		Update("status", models.ReminderStatusProcessing)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *ReminderRepository) MarkSent(ctx context.Context, reminderID uuid.UUID) error {
	return r.DB().WithContext(ctx).Model(&models.AppointmentReminder{}).
		Where("id = ? AND status = ?", reminderID, models.ReminderStatusProcessing).
		Update("status", models.ReminderStatusSent).Error
}

func (r *ReminderRepository) MarkFailed(ctx context.Context, reminderID uuid.UUID) error {
	return r.DB().WithContext(ctx).Model(&models.AppointmentReminder{}).
		Where("id = ? AND status = ?", reminderID, models.ReminderStatusProcessing).
		Update("status", models.ReminderStatusFailed).Error
}

// ReleaseStaleProcessing returns reminders stuck in processing longer than
// the threshold to pending, usually after a sweeper crashed between claim and
// delivery. The notification log keeps the eventual re-delivery idempotent.
func (r *ReminderRepository) ReleaseStaleProcessing(ctx context.Context, threshold time.Duration) (int64, error) {
	cutoff := time.Now().Add(-threshold)
	result := r.DB().WithContext(ctx).Model(&models.AppointmentReminder{}).
		Where("status = ? AND updated_at < ?", models.ReminderStatusProcessing, cutoff).
		Update("status", models.ReminderStatusPending)
	return result.RowsAffected, result.Error
}

// CancelPendingByAppointment supersedes any still-pending reminders for the
// appointment. Used on reschedule and on appointment cancellation.
func (r *ReminderRepository) CancelPendingByAppointment(ctx context.Context, appointmentID uuid.UUID) (int64, error) {
	result := r.DB().WithContext(ctx).Model(&models.AppointmentReminder{}).
		Where("appointment_id = ? AND status = ?", appointmentID, models.ReminderStatusPending).
		Update("status", models.ReminderStatusCancelled)
	return result.RowsAffected, result.Error
}

type NotificationLogRepository struct {
	*BaseRepository[models.NotificationLog]
}

func NewNotificationLogRepository(db *gorm.DB) *NotificationLogRepository {
	return &NotificationLogRepository{
		BaseRepository: NewBaseRepository[models.NotificationLog](db),
	}
}

func (r *NotificationLogRepository) FindByReminderID(ctx context.Context, reminderID uuid.UUID) ([]models.NotificationLog, error) {
	var logs []models.NotificationLog
	err := r.DB().WithContext(ctx).
		Where("reminder_id = ?", reminderID).
		Order("created_at ASC").
		Find(&logs).Error
	return logs, err
}

func (r *NotificationLogRepository) HasSuccess(ctx context.Context, reminderID uuid.UUID) (bool, error) {
	var count int64
	err := r.DB().WithContext(ctx).Model(&models.NotificationLog{}).
		Where("reminder_id = ? AND outcome = ?", reminderID, models.OutcomeSent).
		Count(&count).Error
	return count > 0, err
}

type AppointmentRepository struct {
	*BaseRepository[models.Appointment]
}

func NewAppointmentRepository(db *gorm.DB) *AppointmentRepository {
	return &AppointmentRepository{
		BaseRepository: NewBaseRepository[models.Appointment](db),
	}
}

type TemplateRepository struct {
	*BaseRepository[models.MessageTemplate]
}

func NewTemplateRepository(db *gorm.DB) *TemplateRepository {
	return &TemplateRepository{
		BaseRepository: NewBaseRepository[models.MessageTemplate](db),
	}
}

func (r *TemplateRepository) FindByChannel(ctx context.Context, channel string) ([]models.MessageTemplate, error) {
	var templates []models.MessageTemplate
	err := r.DB().WithContext(ctx).
		Where("channel = ?", channel).
		Order("name ASC").
		Find(&templates).Error
	return templates, err
}
