package models

import (
	"time"

	"github.com/google/uuid"
)

type Execution struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	WorkflowID   uuid.UUID  `gorm:"type:uuid;index;not null" json:"workflow_id"`
	Status       string     `gorm:"size:20;not null;default:pending;index" json:"status"`
	TriggerType  string     `gorm:"size:20;not null" json:"trigger_type"`
	TriggerData  JSON       `gorm:"type:jsonb" json:"trigger_data,omitempty"`
	Output       JSON       `gorm:"type:jsonb" json:"output,omitempty"`
	ErrorMessage *string    `gorm:"type:text" json:"error_message,omitempty"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`

	Workflow Workflow `gorm:"foreignKey:WorkflowID" json:"-"`
}

func (Execution) TableName() string {
	return "workflow_executions"
}

// IsTerminal reports whether the execution reached a final state.
func (e *Execution) IsTerminal() bool {
	return IsTerminalExecutionStatus(e.Status)
}
