package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/clientflow-hq/clientflow/internal/notify"
	"github.com/google/uuid"
)

// ExecutionContext carries the state visible to one action: the trigger
// payload, variables set by prior actions, outputs of prior actions keyed by
// action id, and the current action's own config.
type ExecutionContext struct {
	ExecutionID uuid.UUID
	WorkflowID  uuid.UUID
	Trigger     map[string]interface{}
	Vars        map[string]interface{}
	Outputs     map[string]map[string]interface{}
	Config      map[string]interface{}
}

// Env builds the condition/template environment for the current state.
func (c *ExecutionContext) Env() map[string]interface{} {
	outputs := make(map[string]interface{}, len(c.Outputs))
	for id, out := range c.Outputs {
		outputs[id] = out
	}
	return map[string]interface{}{
		"trigger": c.Trigger,
		"vars":    c.Vars,
		"outputs": outputs,
	}
}

// Executor performs one action type's side effect.
type Executor interface {
	Type() string
	Execute(ctx context.Context, execCtx *ExecutionContext) (map[string]interface{}, error)
}

type ExecutorRegistry struct {
	executors map[string]Executor
}

func NewExecutorRegistry(executors ...Executor) *ExecutorRegistry {
	r := &ExecutorRegistry{executors: make(map[string]Executor)}
	for _, e := range executors {
		r.Register(e)
	}
	return r
}

func (r *ExecutorRegistry) Register(e Executor) {
	r.executors[e.Type()] = e
}

func (r *ExecutorRegistry) Get(actionType string) Executor {
	return r.executors[actionType]
}

func (r *ExecutorRegistry) List() []string {
	types := make([]string, 0, len(r.executors))
	for t := range r.executors {
		types = append(types, t)
	}
	return types
}

func getString(config map[string]interface{}, key, fallback string) string {
	if v, ok := config[key].(string); ok && v != "" {
		return v
	}
	return fallback
}

// NotifyExecutor sends a templated message through one delivery channel.
// Registered once per channel as "send_email" and "send_sms".
type NotifyExecutor struct {
	channel  notify.Channel
	resolver notify.Resolver
	timeout  time.Duration
}

func NewNotifyExecutor(channel notify.Channel, resolver notify.Resolver, timeout time.Duration) *NotifyExecutor {
	return &NotifyExecutor{channel: channel, resolver: resolver, timeout: timeout}
}

func (e *NotifyExecutor) Type() string {
	return "send_" + e.channel.Name()
}

func (e *NotifyExecutor) Execute(ctx context.Context, execCtx *ExecutionContext) (map[string]interface{}, error) {
	recipient := getString(execCtx.Config, "recipient", "")
	if recipient == "" {
		return nil, fmt.Errorf("recipient is required")
	}

	rawID := getString(execCtx.Config, "template_id", "")
	templateID, err := uuid.Parse(rawID)
	if err != nil {
		return nil, fmt.Errorf("invalid template_id %q: %w", rawID, err)
	}

	rendered, err := e.resolver.Render(ctx, templateID, execCtx.Env())
	if err != nil {
		return nil, err
	}

	sendCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	if err := e.channel.Send(sendCtx, recipient, rendered); err != nil {
		return nil, err
	}

	return map[string]interface{}{
		"channel":   e.channel.Name(),
		"recipient": recipient,
		"sent":      true,
	}, nil
}

// WebhookExecutor posts the execution context to an external URL.
type WebhookExecutor struct {
	client *http.Client
}

func NewWebhookExecutor(timeout time.Duration) *WebhookExecutor {
	return &WebhookExecutor{
		client: &http.Client{Timeout: timeout},
	}
}

func (e *WebhookExecutor) Type() string { return "webhook" }

func (e *WebhookExecutor) Execute(ctx context.Context, execCtx *ExecutionContext) (map[string]interface{}, error) {
	url := getString(execCtx.Config, "url", "")
	if url == "" {
		return nil, fmt.Errorf("url is required")
	}

	payload := map[string]interface{}{
		"workflow_id":  execCtx.WorkflowID.String(),
		"execution_id": execCtx.ExecutionID.String(),
		"trigger":      execCtx.Trigger,
		"vars":         execCtx.Vars,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}

	return map[string]interface{}{
		"url":    url,
		"status": resp.StatusCode,
	}, nil
}

// SetVariableExecutor writes one variable into the execution context.
type SetVariableExecutor struct{}

func (e *SetVariableExecutor) Type() string { return "set_variable" }

func (e *SetVariableExecutor) Execute(ctx context.Context, execCtx *ExecutionContext) (map[string]interface{}, error) {
	name := getString(execCtx.Config, "name", "")
	if name == "" {
		return nil, fmt.Errorf("name is required")
	}
	value := execCtx.Config["value"]
	execCtx.Vars[name] = value
	return map[string]interface{}{"name": name, "value": value}, nil
}

// WaitExecutor pauses the run for a bounded number of seconds.
type WaitExecutor struct {
	maxWait time.Duration
}

func NewWaitExecutor(maxWait time.Duration) *WaitExecutor {
	return &WaitExecutor{maxWait: maxWait}
}

func (e *WaitExecutor) Type() string { return "wait" }

func (e *WaitExecutor) Execute(ctx context.Context, execCtx *ExecutionContext) (map[string]interface{}, error) {
	seconds, _ := execCtx.Config["seconds"].(float64)
	wait := time.Duration(seconds * float64(time.Second))
	if wait <= 0 {
		return map[string]interface{}{"waited": "0s"}, nil
	}
	if wait > e.maxWait {
		wait = e.maxWait
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(wait):
	}

	return map[string]interface{}{"waited": wait.String()}, nil
}
