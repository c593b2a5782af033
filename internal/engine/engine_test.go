package engine

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/clientflow-hq/clientflow/internal/domain/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakeWorkflowStore struct {
	mu       sync.Mutex
	workflow models.Workflow
	actions  []models.Action
	results  []bool
}

func (f *fakeWorkflowStore) FindByID(ctx context.Context, id uuid.UUID) (*models.Workflow, error) {
	wf := f.workflow
	return &wf, nil
}

func (f *fakeWorkflowStore) FindActions(ctx context.Context, workflowID uuid.UUID) ([]models.Action, error) {
	out := make([]models.Action, len(f.actions))
	copy(out, f.actions)
	return out, nil
}

func (f *fakeWorkflowStore) RecordResult(ctx context.Context, workflowID uuid.UUID, succeeded bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.results = append(f.results, succeeded)
	return nil
}

type fakeExecutionStore struct {
	mu   sync.Mutex
	exec models.Execution
}

func (f *fakeExecutionStore) FindByID(ctx context.Context, id uuid.UUID) (*models.Execution, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e := f.exec
	return &e, nil
}

func (f *fakeExecutionStore) UpdateStatus(ctx context.Context, executionID uuid.UUID, from []string, to string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range from {
		if f.exec.Status == s {
			f.exec.Status = to
			now := time.Now()
			switch to {
			case models.ExecutionStatusRunning:
				f.exec.StartedAt = &now
			case models.ExecutionStatusCompleted, models.ExecutionStatusFailed, models.ExecutionStatusCancelled:
				f.exec.CompletedAt = &now
			}
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (f *fakeExecutionStore) SetOutput(ctx context.Context, executionID uuid.UUID, output models.JSON) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.exec.Output = output
	return nil
}

func (f *fakeExecutionStore) SetError(ctx context.Context, executionID uuid.UUID, errorMessage string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.exec.IsTerminal() {
		return nil
	}
	f.exec.Status = models.ExecutionStatusFailed
	f.exec.ErrorMessage = &errorMessage
	now := time.Now()
	f.exec.CompletedAt = &now
	return nil
}

// recordingExecutor notes each executed action's label, optionally failing
// on a chosen one.
type recordingExecutor struct {
	mu        sync.Mutex
	labels    []string
	failLabel string
}

func (r *recordingExecutor) Type() string { return "record" }

func (r *recordingExecutor) Execute(ctx context.Context, execCtx *ExecutionContext) (map[string]interface{}, error) {
	label, _ := execCtx.Config["label"].(string)
	r.mu.Lock()
	r.labels = append(r.labels, label)
	r.mu.Unlock()
	if label != "" && label == r.failLabel {
		return nil, fmt.Errorf("label %s exploded", label)
	}
	return map[string]interface{}{"label": label}, nil
}

func recordAction(label string, order int, parent *uuid.UUID) models.Action {
	return models.Action{
		ID:             uuid.New(),
		ActionType:     "record",
		ActionConfig:   models.JSON{"label": label},
		Order:          order,
		ParentActionID: parent,
	}
}

func newTestEngine(actions []models.Action, exec *recordingExecutor) (*Engine, *fakeWorkflowStore, *fakeExecutionStore) {
	workflows := &fakeWorkflowStore{
		workflow: models.Workflow{ID: uuid.New(), Status: models.WorkflowStatusActive},
		actions:  actions,
	}
	executions := &fakeExecutionStore{
		exec: models.Execution{
			ID:          uuid.New(),
			WorkflowID:  workflows.workflow.ID,
			Status:      models.ExecutionStatusPending,
			TriggerType: models.TriggerTypeManual,
		},
	}
	registry := NewExecutorRegistry(exec)
	return New(workflows, executions, registry), workflows, executions
}

func TestEngineRun_OrderIsRespected(t *testing.T) {
	// Declared out of order on purpose; engine must follow sort order.
	actions := []models.Action{
		recordAction("first", 1, nil),
		recordAction("second", 2, nil),
		recordAction("third", 3, nil),
	}

	recorder := &recordingExecutor{}
	eng, workflows, executions := newTestEngine(actions, recorder)

	require.NoError(t, eng.Run(context.Background(), executions.exec.ID))

	assert.Equal(t, []string{"first", "second", "third"}, recorder.labels)
	assert.Equal(t, models.ExecutionStatusCompleted, executions.exec.Status)
	assert.Equal(t, []bool{true}, workflows.results)
	assert.NotNil(t, executions.exec.CompletedAt)
}

func TestEngineRun_ConditionFalseSkipsSubtree(t *testing.T) {
	cond := "trigger.vip == true"

	parent := recordAction("guarded", 2, nil)
	parent.Condition = &cond
	child := recordAction("guarded-child", 1, &parent.ID)

	actions := []models.Action{
		recordAction("before", 1, nil),
		parent,
		child,
		recordAction("after", 3, nil),
	}

	recorder := &recordingExecutor{}
	eng, workflows, executions := newTestEngine(actions, recorder)
	executions.exec.TriggerData = models.JSON{"vip": false}

	require.NoError(t, eng.Run(context.Background(), executions.exec.ID))

	// The guarded action and its whole subtree produced zero side effects.
	assert.Equal(t, []string{"before", "after"}, recorder.labels)
	assert.Equal(t, models.ExecutionStatusCompleted, executions.exec.Status)
	assert.Equal(t, []bool{true}, workflows.results)
}

func TestEngineRun_FailureAbortsRemainingActions(t *testing.T) {
	actions := []models.Action{
		recordAction("one", 1, nil),
		recordAction("boom", 2, nil),
		recordAction("never", 3, nil),
	}

	recorder := &recordingExecutor{failLabel: "boom"}
	eng, workflows, executions := newTestEngine(actions, recorder)

	require.NoError(t, eng.Run(context.Background(), executions.exec.ID))

	assert.Equal(t, []string{"one", "boom"}, recorder.labels)
	assert.Equal(t, models.ExecutionStatusFailed, executions.exec.Status)
	require.NotNil(t, executions.exec.ErrorMessage)
	assert.Contains(t, *executions.exec.ErrorMessage, "boom")
	assert.Equal(t, []bool{false}, workflows.results)
}

func TestEngineRun_ContinuePolicyKeepsGoing(t *testing.T) {
	flaky := recordAction("boom", 2, nil)
	flaky.OnFailure = models.FailurePolicyContinue

	actions := []models.Action{
		recordAction("one", 1, nil),
		flaky,
		recordAction("three", 3, nil),
	}

	recorder := &recordingExecutor{failLabel: "boom"}
	eng, workflows, executions := newTestEngine(actions, recorder)

	require.NoError(t, eng.Run(context.Background(), executions.exec.ID))

	assert.Equal(t, []string{"one", "boom", "three"}, recorder.labels)
	assert.Equal(t, models.ExecutionStatusCompleted, executions.exec.Status)
	assert.Equal(t, []bool{true}, workflows.results)
}

func TestEngineRun_UnknownActionTypeFails(t *testing.T) {
	actions := []models.Action{
		{ID: uuid.New(), ActionType: "no_such_type", Order: 1},
	}

	recorder := &recordingExecutor{}
	eng, _, executions := newTestEngine(actions, recorder)

	require.NoError(t, eng.Run(context.Background(), executions.exec.ID))

	assert.Equal(t, models.ExecutionStatusFailed, executions.exec.Status)
	require.NotNil(t, executions.exec.ErrorMessage)
	assert.Contains(t, *executions.exec.ErrorMessage, "unknown action type")
}

func TestEngineRun_CyclicGraphFailsWithoutRunningActions(t *testing.T) {
	a := uuid.New()
	b := uuid.New()
	cyclicA := recordAction("a", 1, &b)
	cyclicA.ID = a
	cyclicB := recordAction("b", 2, &a)
	cyclicB.ID = b

	recorder := &recordingExecutor{}
	eng, workflows, executions := newTestEngine([]models.Action{cyclicA, cyclicB}, recorder)

	require.NoError(t, eng.Run(context.Background(), executions.exec.ID))

	assert.Empty(t, recorder.labels)
	assert.Equal(t, models.ExecutionStatusFailed, executions.exec.Status)
	assert.Equal(t, []bool{false}, workflows.results)
}

func TestEngineRun_TerminalExecutionIsNoOp(t *testing.T) {
	actions := []models.Action{recordAction("one", 1, nil)}

	recorder := &recordingExecutor{}
	eng, workflows, executions := newTestEngine(actions, recorder)
	executions.exec.Status = models.ExecutionStatusCompleted

	require.NoError(t, eng.Run(context.Background(), executions.exec.ID))

	assert.Empty(t, recorder.labels)
	assert.Empty(t, workflows.results)
}

func TestEngineRun_OutputsFlowIntoConditions(t *testing.T) {
	first := recordAction("first", 1, nil)
	cond := fmt.Sprintf(`outputs["%s"].label == "first"`, first.ID)
	second := recordAction("second", 2, nil)
	second.Condition = &cond

	recorder := &recordingExecutor{}
	eng, _, executions := newTestEngine([]models.Action{first, second}, recorder)

	require.NoError(t, eng.Run(context.Background(), executions.exec.ID))

	assert.Equal(t, []string{"first", "second"}, recorder.labels)
	assert.Equal(t, models.ExecutionStatusCompleted, executions.exec.Status)
}
