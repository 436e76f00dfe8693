package agent

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/linnemanlabs/go-core/log"

	"github.com/linnemanlabs/fraudops/internal/fraud"
)

type captureTraces struct {
	mu     sync.Mutex
	traces []*fraud.AgentTrace
	err    error
}

func (c *captureTraces) CreateTrace(_ context.Context, t *fraud.AgentTrace) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.traces = append(c.traces, t)
	return nil
}

func (c *captureTraces) names() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	names := make([]string, 0, len(c.traces))
	for _, tr := range c.traces {
		names = append(names, tr.AgentName)
	}
	return names
}

func newTestExecutor(t *testing.T, traces TraceStore, budget time.Duration, steps ...Step) *Executor {
	t.Helper()
	reg := NewRegistry()
	for _, s := range steps {
		reg.Register(NewRunner(s, testConfig(), log.Nop(), Hooks{}))
	}
	return NewExecutor(reg, traces, log.Nop(), Hooks{}, budget)
}

func recordingStep(name string, order *[]string, mu *sync.Mutex) Step {
	return StepFunc{StepName: name, Fn: func(_ context.Context, _ Context, _ any) (any, error) {
		mu.Lock()
		*order = append(*order, name)
		mu.Unlock()
		return name + " done", nil
	}}
}

func TestExecutor_RunsPlanInOrder(t *testing.T) {
	t.Parallel()

	var (
		mu    sync.Mutex
		order []string
	)
	traces := &captureTraces{}
	e := newTestExecutor(t, traces, 0,
		recordingStep(StepProfile, &order, &mu),
		recordingStep(StepFraud, &order, &mu),
		recordingStep(StepDecide, &order, &mu),
	)

	plan := []string{StepProfile, StepFraud, StepDecide}
	got := e.ExecuteFlow(context.Background(), Context{SessionID: "s1"}, plan)

	if !got.Completed {
		t.Fatal("completed = false")
	}
	if !reflect.DeepEqual(order, plan) {
		t.Errorf("execution order = %v, want %v", order, plan)
	}
	if len(got.Results) != 3 {
		t.Errorf("results = %d, want 3", len(got.Results))
	}
	if !reflect.DeepEqual(traces.names(), plan) {
		t.Errorf("trace agents = %v, want %v", traces.names(), plan)
	}
}

func TestExecutor_UnknownStepSkipped(t *testing.T) {
	t.Parallel()

	var (
		mu    sync.Mutex
		order []string
	)
	e := newTestExecutor(t, &captureTraces{}, 0, recordingStep(StepDecide, &order, &mu))

	got := e.ExecuteFlow(context.Background(), Context{SessionID: "s1"}, []string{"nope", StepDecide})

	if got.Completed {
		t.Error("completed = true with a skipped step")
	}
	if len(got.Results) != 1 {
		t.Errorf("results = %d, want 1", len(got.Results))
	}
	if !reflect.DeepEqual(order, []string{StepDecide}) {
		t.Errorf("order = %v, want only decide", order)
	}
}

func TestExecutor_CriticalFailureAbortsFlow(t *testing.T) {
	t.Parallel()

	var (
		mu    sync.Mutex
		order []string
	)
	broken := StepFunc{StepName: StepFraud, Fn: func(_ context.Context, _ Context, _ any) (any, error) {
		return nil, errors.New("scoring backend down")
	}}
	e := newTestExecutor(t, &captureTraces{}, 0,
		recordingStep(StepProfile, &order, &mu),
		broken,
		recordingStep(StepDecide, &order, &mu),
	)

	got := e.ExecuteFlow(context.Background(), Context{SessionID: "s1"}, []string{StepProfile, StepFraud, StepDecide})

	if got.Completed {
		t.Error("completed = true after critical failure")
	}
	if !reflect.DeepEqual(order, []string{StepProfile}) {
		t.Errorf("order = %v, decide must not run", order)
	}
	if got.Results[StepFraud].Success {
		t.Error("fraud result marked successful")
	}
}

func TestExecutor_NonCriticalFailureContinues(t *testing.T) {
	t.Parallel()

	var (
		mu    sync.Mutex
		order []string
	)
	flaky := StepFunc{StepName: StepKnowledge, Fn: func(_ context.Context, _ Context, _ any) (any, error) {
		return nil, errors.New("kb offline")
	}}
	e := newTestExecutor(t, &captureTraces{}, 0, flaky, recordingStep(StepDecide, &order, &mu))

	got := e.ExecuteFlow(context.Background(), Context{SessionID: "s1"}, []string{StepKnowledge, StepDecide})

	if !got.Completed {
		t.Error("completed = false, non-critical failure should not abort")
	}
	if !reflect.DeepEqual(order, []string{StepDecide}) {
		t.Errorf("order = %v, decide must still run", order)
	}
}

func TestExecutor_FlowBudgetStopsLatePlanSteps(t *testing.T) {
	t.Parallel()

	slow := StepFunc{StepName: StepProfile, Fn: func(_ context.Context, _ Context, _ any) (any, error) {
		time.Sleep(40 * time.Millisecond)
		return "ok", nil
	}}
	var (
		mu    sync.Mutex
		order []string
	)
	e := newTestExecutor(t, &captureTraces{}, 20*time.Millisecond, slow, recordingStep(StepDecide, &order, &mu))

	got := e.ExecuteFlow(context.Background(), Context{SessionID: "s1"}, []string{StepProfile, StepDecide})

	if got.Completed {
		t.Error("completed = true past the flow budget")
	}
	if len(order) != 0 {
		t.Errorf("decide ran after the budget was spent: %v", order)
	}
}

func TestExecutor_TraceFailureIsSwallowed(t *testing.T) {
	t.Parallel()

	e := newTestExecutor(t, &captureTraces{err: errors.New("db down")}, 0, succeedingStep(StepDecide))

	got := e.ExecuteFlow(context.Background(), Context{SessionID: "s1"}, []string{StepDecide})
	if !got.Completed {
		t.Error("trace persistence failure leaked into the flow result")
	}
	if !got.Results[StepDecide].Success {
		t.Error("step result affected by trace failure")
	}
}

func TestExecutor_PlanParamsReachStep(t *testing.T) {
	t.Parallel()

	var seen any
	step := StepFunc{StepName: StepKnowledge, Fn: func(_ context.Context, _ Context, input any) (any, error) {
		seen = input
		return "ok", nil
	}}
	e := newTestExecutor(t, &captureTraces{}, 0, step)

	e.ExecuteFlow(context.Background(), Context{SessionID: "s1"}, []string{StepKnowledge + `:{"query":"chargeback"}`})

	m, ok := seen.(map[string]any)
	if !ok {
		t.Fatalf("input = %T, want map", seen)
	}
	if m["query"] != "chargeback" {
		t.Errorf("query = %v, want chargeback", m["query"])
	}
}

func TestPrepareInput(t *testing.T) {
	t.Parallel()

	prior := map[string]Result{StepProfile: {Success: true, Data: "p"}}

	if got := prepareInput("", prior); !reflect.DeepEqual(got, prior) {
		t.Errorf("empty params: got %v, want prior results", got)
	}

	got := prepareInput(`{"n":1}`, prior)
	m, ok := got.(map[string]any)
	if !ok || m["n"] != float64(1) {
		t.Errorf("json params: got %v", got)
	}

	got = prepareInput("raw text", prior)
	m, ok = got.(map[string]any)
	if !ok {
		t.Fatalf("raw params: got %T", got)
	}
	if m["params"] != "raw text" {
		t.Errorf("params = %v", m["params"])
	}
	if !reflect.DeepEqual(m["previousResults"], prior) {
		t.Errorf("previousResults = %v", m["previousResults"])
	}
}

func TestExecutor_ExecuteStep(t *testing.T) {
	t.Parallel()

	traces := &captureTraces{}
	e := newTestExecutor(t, traces, 0, succeedingStep(StepInsights))

	got := e.ExecuteStep(context.Background(), StepInsights, Context{SessionID: "s1"}, map[string]any{"customerId": "c1"})
	if !got.Success {
		t.Fatalf("success = false, error = %q", got.Error)
	}
	if names := traces.names(); len(names) != 1 || names[0] != StepInsights {
		t.Errorf("traces = %v, want one for insights", names)
	}

	missing := e.ExecuteStep(context.Background(), "nope", Context{SessionID: "s1"}, nil)
	if missing.Success {
		t.Error("success = true for unregistered step")
	}
	if missing.Error == "" {
		t.Error("error is empty for unregistered step")
	}
}
