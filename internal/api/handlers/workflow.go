package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/clientflow-hq/clientflow/internal/api/dto"
	"github.com/clientflow-hq/clientflow/internal/domain/repositories"
	"github.com/clientflow-hq/clientflow/internal/domain/services"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// WorkflowHandler covers workflow lifecycle management and execution
// housekeeping. Firing lives on AutomationHandler.
type WorkflowHandler struct {
	workflows *services.WorkflowService
}

func NewWorkflowHandler(workflows *services.WorkflowService) *WorkflowHandler {
	return &WorkflowHandler{workflows: workflows}
}

type createWorkflowRequest struct {
	Name        string   `json:"name"`
	Description *string  `json:"description,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

// Create handles POST /workflows.
func (h *WorkflowHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createWorkflowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		dto.Error(w, http.StatusBadRequest, dto.ErrCodeBadRequest, "invalid request body")
		return
	}

	workflow, err := h.workflows.Create(r.Context(), services.CreateWorkflowInput{
		Name:        req.Name,
		Description: req.Description,
		Tags:        req.Tags,
	})
	if err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			dto.Error(w, http.StatusUnprocessableEntity, dto.ErrCodeValidation, err.Error())
			return
		}
		dto.Error(w, http.StatusInternalServerError, dto.ErrCodeInternalServer, "failed to create workflow")
		return
	}

	dto.JSON(w, http.StatusCreated, workflow)
}

// List handles GET /workflows. Accepts ?status=, ?page= and ?per_page=.
func (h *WorkflowHandler) List(w http.ResponseWriter, r *http.Request) {
	opts := listOptionsFromQuery(r)

	workflows, total, err := h.workflows.List(r.Context(), r.URL.Query().Get("status"), opts)
	if err != nil {
		dto.Error(w, http.StatusInternalServerError, dto.ErrCodeInternalServer, "failed to list workflows")
		return
	}

	dto.JSON(w, http.StatusOK, map[string]interface{}{
		"workflows": workflows,
		"total":     total,
	})
}

// Activate handles POST /workflows/{id}/activate.
func (h *WorkflowHandler) Activate(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.workflows.Activate)
}

// Pause handles POST /workflows/{id}/pause.
func (h *WorkflowHandler) Pause(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.workflows.Pause)
}

// Archive handles POST /workflows/{id}/archive.
func (h *WorkflowHandler) Archive(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.workflows.Archive)
}

func (h *WorkflowHandler) transition(w http.ResponseWriter, r *http.Request, apply func(ctx context.Context, id uuid.UUID) error) {
	workflowID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		dto.Error(w, http.StatusBadRequest, dto.ErrCodeBadRequest, "invalid workflow id")
		return
	}

	if err := apply(r.Context(), workflowID); err != nil {
		dto.Error(w, http.StatusInternalServerError, dto.ErrCodeInternalServer, "failed to update workflow status")
		return
	}

	dto.JSON(w, http.StatusOK, map[string]interface{}{"id": workflowID})
}

// Delete handles DELETE /workflows/{id}, cascading to triggers, actions and
// executions.
func (h *WorkflowHandler) Delete(w http.ResponseWriter, r *http.Request) {
	workflowID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		dto.Error(w, http.StatusBadRequest, dto.ErrCodeBadRequest, "invalid workflow id")
		return
	}

	if err := h.workflows.Delete(r.Context(), workflowID); err != nil {
		dto.Error(w, http.StatusInternalServerError, dto.ErrCodeInternalServer, "failed to delete workflow")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListExecutions handles GET /workflows/{id}/executions.
func (h *WorkflowHandler) ListExecutions(w http.ResponseWriter, r *http.Request) {
	workflowID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		dto.Error(w, http.StatusBadRequest, dto.ErrCodeBadRequest, "invalid workflow id")
		return
	}

	executions, total, err := h.workflows.ListExecutions(r.Context(), workflowID, listOptionsFromQuery(r))
	if err != nil {
		dto.Error(w, http.StatusInternalServerError, dto.ErrCodeInternalServer, "failed to list executions")
		return
	}

	dto.JSON(w, http.StatusOK, map[string]interface{}{
		"executions": executions,
		"total":      total,
	})
}

// CancelExecution handles POST /executions/{id}/cancel.
func (h *WorkflowHandler) CancelExecution(w http.ResponseWriter, r *http.Request) {
	executionID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		dto.Error(w, http.StatusBadRequest, dto.ErrCodeBadRequest, "invalid execution id")
		return
	}

	if err := h.workflows.CancelExecution(r.Context(), executionID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			dto.Error(w, http.StatusConflict, dto.ErrCodeConflict, "execution is not cancellable")
			return
		}
		dto.Error(w, http.StatusInternalServerError, dto.ErrCodeInternalServer, "failed to cancel execution")
		return
	}

	dto.JSON(w, http.StatusOK, map[string]interface{}{"id": executionID})
}

// DeleteExecution handles DELETE /executions/{id}. Only executions in a
// terminal state may go.
func (h *WorkflowHandler) DeleteExecution(w http.ResponseWriter, r *http.Request) {
	executionID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		dto.Error(w, http.StatusBadRequest, dto.ErrCodeBadRequest, "invalid execution id")
		return
	}

	if err := h.workflows.DeleteExecution(r.Context(), executionID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			dto.Error(w, http.StatusConflict, dto.ErrCodeConflict, "execution is missing or not terminal")
			return
		}
		dto.Error(w, http.StatusInternalServerError, dto.ErrCodeInternalServer, "failed to delete execution")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func listOptionsFromQuery(r *http.Request) *repositories.ListOptions {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))
	return repositories.NewListOptions(page, perPage)
}
