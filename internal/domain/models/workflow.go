package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Workflow struct {
	ID             uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	Name           string         `gorm:"size:255;not null" json:"name"`
	Description    *string        `gorm:"type:text" json:"description,omitempty"`
	Status         string         `gorm:"size:20;not null;default:draft;index" json:"status"`
	Tags           StringArray    `gorm:"type:text[]" json:"tags"`
	ExecutionCount int            `gorm:"default:0" json:"execution_count"`
	SuccessCount   int            `gorm:"default:0" json:"success_count"`
	FailureCount   int            `gorm:"default:0" json:"failure_count"`
	LastExecutedAt *time.Time     `json:"last_executed_at,omitempty"`
	ArchivedAt     *time.Time     `json:"archived_at,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`

	// Relations
	Triggers   []Trigger   `gorm:"foreignKey:WorkflowID;constraint:OnDelete:CASCADE" json:"-"`
	Actions    []Action    `gorm:"foreignKey:WorkflowID;constraint:OnDelete:CASCADE" json:"-"`
	Executions []Execution `gorm:"foreignKey:WorkflowID;constraint:OnDelete:CASCADE" json:"-"`
}

func (Workflow) TableName() string {
	return "workflows"
}

// CanFire reports whether new trigger fires are accepted. Paused and archived
// workflows keep their in-flight executions but accept no new ones.
func (w *Workflow) CanFire() bool {
	return w.Status == WorkflowStatusActive
}

type Trigger struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	WorkflowID    uuid.UUID `gorm:"type:uuid;index;not null" json:"workflow_id"`
	TriggerType   string    `gorm:"size:20;not null" json:"trigger_type"`
	TriggerConfig JSON      `gorm:"type:jsonb;default:'{}'" json:"trigger_config"`
	IsActive      bool      `gorm:"default:true" json:"is_active"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`

	Workflow Workflow `gorm:"foreignKey:WorkflowID" json:"-"`
}

func (Trigger) TableName() string {
	return "workflow_triggers"
}

type Action struct {
	ID             uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	WorkflowID     uuid.UUID  `gorm:"type:uuid;index;not null" json:"workflow_id"`
	ActionType     string     `gorm:"size:50;not null" json:"action_type"`
	ActionConfig   JSON       `gorm:"type:jsonb;default:'{}'" json:"action_config"`
	Order          int        `gorm:"column:sort_order;not null;default:0" json:"order"`
	ParentActionID *uuid.UUID `gorm:"type:uuid;index" json:"parent_action_id,omitempty"`
	Condition      *string    `gorm:"type:text" json:"condition,omitempty"`
	OnFailure      string     `gorm:"size:20;not null;default:''" json:"on_failure"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`

	Workflow Workflow `gorm:"foreignKey:WorkflowID" json:"-"`
	Parent   *Action  `gorm:"foreignKey:ParentActionID" json:"-"`
	Children []Action `gorm:"foreignKey:ParentActionID" json:"-"`
}

func (Action) TableName() string {
	return "workflow_actions"
}
