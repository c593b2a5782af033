package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"

	"github.com/lib/pq"
)

// JSON type for JSONB columns
type JSON map[string]interface{}

func (j JSON) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

func (j *JSON) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return errors.New("failed to scan JSON: not a byte slice")
	}
	return json.Unmarshal(bytes, j)
}

// StringArray type for text[] columns
type StringArray = pq.StringArray

// Workflow status constants
const (
	WorkflowStatusDraft    = "draft"
	WorkflowStatusActive   = "active"
	WorkflowStatusPaused   = "paused"
	WorkflowStatusArchived = "archived"
)

// Trigger type constants
const (
	TriggerTypeSchedule = "schedule"
	TriggerTypeEvent    = "event"
	TriggerTypeManual   = "manual"
	TriggerTypeWebhook  = "webhook"
)

// Execution status constants
const (
	ExecutionStatusPending   = "pending"
	ExecutionStatusRunning   = "running"
	ExecutionStatusCompleted = "completed"
	ExecutionStatusFailed    = "failed"
	ExecutionStatusCancelled = "cancelled"
)

// Reminder status constants
const (
	ReminderStatusPending    = "pending"
	ReminderStatusProcessing = "processing"
	ReminderStatusSent       = "sent"
	ReminderStatusFailed     = "failed"
	ReminderStatusCancelled  = "cancelled"
)

// Reminder timing constants
const (
	ReminderTiming24h    = "24h"
	ReminderTiming1h     = "1h"
	ReminderTiming15m    = "15m"
	ReminderTimingCustom = "custom"
)

// Notification channel constants
const (
	ChannelEmail = "email"
	ChannelSMS   = "sms"
)

// Notification outcome constants
const (
	OutcomeSent   = "sent"
	OutcomeFailed = "failed"
)

// Action failure policy constants
const (
	FailurePolicyAbort    = ""
	FailurePolicyContinue = "continue"
)

// IsTerminalExecutionStatus reports whether an execution status admits no
// further transitions.
func IsTerminalExecutionStatus(status string) bool {
	switch status {
	case ExecutionStatusCompleted, ExecutionStatusFailed, ExecutionStatusCancelled:
		return true
	}
	return false
}
