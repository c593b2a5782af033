package reminder

import (
	"fmt"
	"time"
)

// InvalidReminderConfigError rejects one malformed config entry before any
// state mutation. Other entries in the same batch are unaffected.
type InvalidReminderConfigError struct {
	Index  int
	Reason string
}

func (e *InvalidReminderConfigError) Error() string {
	return fmt.Sprintf("reminder config %d is invalid: %s", e.Index, e.Reason)
}

// StaleScheduleError rejects a config whose computed fire time is already in
// the past. The caller is told explicitly; the entry neither disappears nor
// fires immediately.
type StaleScheduleError struct {
	Index  int
	FireAt time.Time
}

func (e *StaleScheduleError) Error() string {
	return fmt.Sprintf("reminder config %d would fire in the past (%s)", e.Index, e.FireAt.Format(time.RFC3339))
}
