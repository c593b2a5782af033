package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Appointment status constants
const (
	AppointmentStatusScheduled = "scheduled"
	AppointmentStatusConfirmed = "confirmed"
	AppointmentStatusCancelled = "cancelled"
	AppointmentStatusCompleted = "completed"
)

// Appointment is read-only from the automation core's perspective; the CRUD
// layer owns its lifecycle.
type Appointment struct {
	ID           uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	ContactName  string         `gorm:"size:255;not null" json:"contact_name"`
	ContactEmail string         `gorm:"size:255" json:"contact_email"`
	ContactPhone string         `gorm:"size:50" json:"contact_phone"`
	ScheduledAt  time.Time      `gorm:"not null;index" json:"scheduled_at"`
	Status       string         `gorm:"size:20;not null;default:scheduled" json:"status"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`

	Reminders []AppointmentReminder `gorm:"foreignKey:AppointmentID;constraint:OnDelete:CASCADE" json:"-"`
}

func (Appointment) TableName() string {
	return "appointments"
}

type AppointmentReminder struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	AppointmentID uuid.UUID `gorm:"type:uuid;index;not null" json:"appointment_id"`
	Channel       string    `gorm:"size:10;not null" json:"channel"`
	Timing        string    `gorm:"size:10;not null" json:"timing"`
	CustomMinutes int       `gorm:"default:0" json:"custom_minutes"`
	TemplateID    uuid.UUID `gorm:"type:uuid;not null" json:"template_id"`
	FireAt        time.Time `gorm:"not null;index" json:"fire_at"`
	Status        string    `gorm:"size:20;not null;default:pending;index" json:"status"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`

	Appointment Appointment `gorm:"foreignKey:AppointmentID" json:"-"`
}

func (AppointmentReminder) TableName() string {
	return "appointment_reminders"
}

// NotificationLog is append-only; rows are never updated after creation.
type NotificationLog struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	ReminderID uuid.UUID `gorm:"type:uuid;index;not null" json:"reminder_id"`
	TemplateID uuid.UUID `gorm:"type:uuid" json:"template_id"`
	Channel    string    `gorm:"size:10;not null" json:"channel"`
	Recipient  string    `gorm:"size:255;not null" json:"recipient"`
	Outcome    string    `gorm:"size:10;not null;index" json:"outcome"`
	Error      *string   `gorm:"type:text" json:"error,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

func (NotificationLog) TableName() string {
	return "notification_logs"
}

type MessageTemplate struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	Name      string    `gorm:"size:255;not null" json:"name"`
	Channel   string    `gorm:"size:10;not null;index" json:"channel"`
	Subject   *string   `gorm:"size:255" json:"subject,omitempty"`
	Body      string    `gorm:"type:text;not null" json:"body"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (MessageTemplate) TableName() string {
	return "message_templates"
}
