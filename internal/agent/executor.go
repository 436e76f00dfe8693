package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/linnemanlabs/go-core/log"

	"github.com/linnemanlabs/fraudops/internal/fraud"
)

// DefaultFlowBudget caps the cumulative elapsed time of one flow.
const DefaultFlowBudget = 5 * time.Second

// TraceStore persists step audit records.
type TraceStore interface {
	CreateTrace(ctx context.Context, t *fraud.AgentTrace) error
}

// FlowResult is the outcome of one plan execution.
type FlowResult struct {
	SessionID string            `json:"sessionId"`
	Results   map[string]Result `json:"results"`
	Duration  float64           `json:"duration_seconds"`
	Completed bool              `json:"completed"`
}

// Executor runs plans sequentially against the registry.
type Executor struct {
	registry   *Registry
	traces     TraceStore
	logger     log.Logger
	hooks      Hooks
	flowBudget time.Duration
}

// NewExecutor wires an executor. flowBudget <= 0 selects the default.
func NewExecutor(registry *Registry, traces TraceStore, logger log.Logger, hooks Hooks, flowBudget time.Duration) *Executor {
	if flowBudget <= 0 {
		flowBudget = DefaultFlowBudget
	}
	return &Executor{
		registry:   registry,
		traces:     traces,
		logger:     logger.With("component", "agent_executor"),
		hooks:      hooks,
		flowBudget: flowBudget,
	}
}

// ExecuteFlow walks the plan in order. Steps run strictly sequentially;
// later steps may depend on earlier results. A plan entry is
// "name" or "name:params" where params is a JSON literal or a raw string.
func (e *Executor) ExecuteFlow(ctx context.Context, sctx Context, plan []string) FlowResult {
	start := time.Now()
	results := make(map[string]Result, len(plan))

	L := e.logger.With("session_id", sctx.SessionID)
	L.Info(ctx, "starting agent flow", "plan_steps", len(plan))

	for _, step := range plan {
		if time.Since(start) > e.flowBudget {
			L.Warn(ctx, "flow budget exceeded", "budget", e.flowBudget)
			break
		}

		name, params, _ := strings.Cut(step, ":")
		runner, ok := e.registry.Get(name)
		if !ok {
			L.Warn(ctx, "step not registered, skipping", "step", name)
			continue
		}

		input := prepareInput(params, results)
		result := runner.Execute(ctx, sctx, input)
		results[name] = result

		e.saveTrace(ctx, sctx.SessionID, name, step, input, result)

		if !result.Success && IsCritical(name) {
			L.Error(ctx, fmt.Errorf("%s", result.Error), "critical step failed, aborting flow", "step", name)
			break
		}
	}

	duration := time.Since(start).Seconds()
	completed := len(results) == len(plan)
	L.Info(ctx, "agent flow finished", "duration", duration, "completed", completed)
	if e.hooks.OnFlow != nil {
		e.hooks.OnFlow(completed, duration)
	}

	return FlowResult{
		SessionID: sctx.SessionID,
		Results:   results,
		Duration:  duration,
		Completed: completed,
	}
}

// ExecuteStep runs a single registered step outside a plan.
func (e *Executor) ExecuteStep(ctx context.Context, name string, sctx Context, input any) Result {
	runner, ok := e.registry.Get(name)
	if !ok {
		return Result{Success: false, Error: fmt.Sprintf("step %s not registered", name)}
	}
	result := runner.Execute(ctx, sctx, input)
	e.saveTrace(ctx, sctx.SessionID, name, "execute", input, result)
	return result
}

// prepareInput derives step input from the plan entry's parameter suffix.
// No suffix hands the step the accumulated prior results; a JSON suffix is
// parsed; anything else rides along with the prior results.
func prepareInput(params string, prior map[string]Result) any {
	if params == "" {
		return prior
	}
	var v any
	if err := json.Unmarshal([]byte(params), &v); err == nil {
		return v
	}
	return map[string]any{"params": params, "previousResults": prior}
}

// saveTrace appends the audit row. Trace persistence never fails the flow.
func (e *Executor) saveTrace(ctx context.Context, sessionID, name, action string, input any, result Result) {
	trace := &fraud.AgentTrace{
		ID:        ulid.Make().String(),
		SessionID: sessionID,
		AgentName: name,
		Action:    action,
		Input:     input,
		Output:    result.Data,
		Error:     result.Error,
		Duration:  result.Duration,
		CreatedAt: time.Now().UTC(),
	}
	if err := e.traces.CreateTrace(ctx, trace); err != nil {
		e.logger.Error(ctx, err, "failed to save agent trace", "agent", name)
	}
}
