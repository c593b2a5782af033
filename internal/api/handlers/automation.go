// Package handlers exposes the trigger boundary of the automation core: the
// CRUD layer and external callers fire workflows and (re)schedule reminders
// through these endpoints.
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/clientflow-hq/clientflow/internal/api/dto"
	"github.com/clientflow-hq/clientflow/internal/domain/models"
	"github.com/clientflow-hq/clientflow/internal/domain/services"
	"github.com/clientflow-hq/clientflow/internal/engine"
	"github.com/clientflow-hq/clientflow/internal/reminder"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AutomationHandler struct {
	workflows *services.WorkflowService
	scheduler *reminder.Scheduler
	validate  *validator.Validate
}

func NewAutomationHandler(workflows *services.WorkflowService, scheduler *reminder.Scheduler) *AutomationHandler {
	return &AutomationHandler{
		workflows: workflows,
		scheduler: scheduler,
		validate:  validator.New(),
	}
}

type fireRequest struct {
	TriggerType string      `json:"trigger_type"`
	Payload     models.JSON `json:"payload"`
}

// Fire handles POST /workflows/{id}/fire.
func (h *AutomationHandler) Fire(w http.ResponseWriter, r *http.Request) {
	workflowID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		dto.Error(w, http.StatusBadRequest, dto.ErrCodeBadRequest, "invalid workflow id")
		return
	}

	var req fireRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		dto.Error(w, http.StatusBadRequest, dto.ErrCodeBadRequest, "invalid request body")
		return
	}
	if req.TriggerType == "" {
		req.TriggerType = models.TriggerTypeManual
	}

	execution, err := h.workflows.Fire(r.Context(), workflowID, req.TriggerType, req.Payload)
	if err != nil {
		var cycleErr *engine.GraphCycleError
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			dto.Error(w, http.StatusNotFound, dto.ErrCodeNotFound, "workflow not found")
		case errors.Is(err, services.ErrWorkflowNotActive), errors.Is(err, services.ErrNoActiveTrigger):
			dto.Error(w, http.StatusConflict, dto.ErrCodeConflict, err.Error())
		case errors.As(err, &cycleErr):
			dto.Error(w, http.StatusUnprocessableEntity, dto.ErrCodeValidation, err.Error())
		default:
			dto.Error(w, http.StatusInternalServerError, dto.ErrCodeInternalServer, "failed to fire workflow")
		}
		return
	}

	dto.JSON(w, http.StatusAccepted, execution)
}

type replaceActionsRequest struct {
	Actions []actionInput `json:"actions"`
}

type actionInput struct {
	ID             *uuid.UUID  `json:"id,omitempty"`
	ActionType     string      `json:"action_type" validate:"required,max=50"`
	ActionConfig   models.JSON `json:"action_config"`
	Order          int         `json:"order" validate:"gte=0"`
	ParentActionID *uuid.UUID  `json:"parent_action_id,omitempty"`
	Condition      *string     `json:"condition,omitempty"`
	OnFailure      string      `json:"on_failure,omitempty" validate:"omitempty,oneof=continue"`
}

// ReplaceActions handles PUT /workflows/{id}/actions.
func (h *AutomationHandler) ReplaceActions(w http.ResponseWriter, r *http.Request) {
	workflowID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		dto.Error(w, http.StatusBadRequest, dto.ErrCodeBadRequest, "invalid workflow id")
		return
	}

	var req replaceActionsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		dto.Error(w, http.StatusBadRequest, dto.ErrCodeBadRequest, "invalid request body")
		return
	}

	for i := range req.Actions {
		if err := h.validate.Struct(req.Actions[i]); err != nil {
			dto.Error(w, http.StatusUnprocessableEntity, dto.ErrCodeValidation,
				fmt.Sprintf("action %d: %v", i, err))
			return
		}
	}

	actions := make([]models.Action, len(req.Actions))
	for i, in := range req.Actions {
		actions[i] = models.Action{
			ActionType:     in.ActionType,
			ActionConfig:   in.ActionConfig,
			Order:          in.Order,
			ParentActionID: in.ParentActionID,
			Condition:      in.Condition,
			OnFailure:      in.OnFailure,
		}
		if in.ID != nil {
			actions[i].ID = *in.ID
		}
	}

	if err := h.workflows.ReplaceActions(r.Context(), workflowID, actions); err != nil {
		var cycleErr *engine.GraphCycleError
		var validationErr *engine.ValidationError
		switch {
		case errors.As(err, &cycleErr), errors.As(err, &validationErr):
			dto.Error(w, http.StatusUnprocessableEntity, dto.ErrCodeValidation, err.Error())
		default:
			dto.Error(w, http.StatusInternalServerError, dto.ErrCodeInternalServer, "failed to replace actions")
		}
		return
	}

	dto.JSON(w, http.StatusOK, map[string]interface{}{"replaced": len(actions)})
}

type scheduleRemindersRequest struct {
	Configs []reminder.Config `json:"configs"`
}

type scheduleResultView struct {
	Index    int                         `json:"index"`
	Skipped  bool                        `json:"skipped,omitempty"`
	Reminder *models.AppointmentReminder `json:"reminder,omitempty"`
	Error    string                      `json:"error,omitempty"`
}

// ScheduleReminders handles POST /appointments/{id}/reminders.
func (h *AutomationHandler) ScheduleReminders(w http.ResponseWriter, r *http.Request) {
	appointmentID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		dto.Error(w, http.StatusBadRequest, dto.ErrCodeBadRequest, "invalid appointment id")
		return
	}

	var req scheduleRemindersRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		dto.Error(w, http.StatusBadRequest, dto.ErrCodeBadRequest, "invalid request body")
		return
	}

	results, err := h.scheduler.Schedule(r.Context(), appointmentID, req.Configs)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			dto.Error(w, http.StatusNotFound, dto.ErrCodeNotFound, "appointment not found")
			return
		}
		dto.Error(w, http.StatusInternalServerError, dto.ErrCodeInternalServer, "failed to schedule reminders")
		return
	}

	views := make([]scheduleResultView, len(results))
	for i, res := range results {
		views[i] = scheduleResultView{Index: res.Index, Skipped: res.Skipped, Reminder: res.Reminder}
		if res.Err != nil {
			views[i].Error = res.Err.Error()
		}
	}

	// Partial success is the contract: the batch reports per-entry outcomes.
	dto.JSON(w, http.StatusMultiStatus, views)
}

// ListReminders handles GET /appointments/{id}/reminders.
func (h *AutomationHandler) ListReminders(w http.ResponseWriter, r *http.Request) {
	appointmentID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		dto.Error(w, http.StatusBadRequest, dto.ErrCodeBadRequest, "invalid appointment id")
		return
	}

	reminders, err := h.scheduler.RemindersForAppointment(r.Context(), appointmentID)
	if err != nil {
		dto.Error(w, http.StatusInternalServerError, dto.ErrCodeInternalServer, "failed to list reminders")
		return
	}

	dto.JSON(w, http.StatusOK, reminders)
}

// CancelReminders handles DELETE /appointments/{id}/reminders.
func (h *AutomationHandler) CancelReminders(w http.ResponseWriter, r *http.Request) {
	appointmentID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		dto.Error(w, http.StatusBadRequest, dto.ErrCodeBadRequest, "invalid appointment id")
		return
	}

	cancelled, err := h.scheduler.CancelForAppointment(r.Context(), appointmentID)
	if err != nil {
		dto.Error(w, http.StatusInternalServerError, dto.ErrCodeInternalServer, "failed to cancel reminders")
		return
	}

	dto.JSON(w, http.StatusOK, map[string]interface{}{"cancelled": cancelled})
}
