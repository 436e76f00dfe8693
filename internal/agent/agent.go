// Package agent runs triage steps through a guarded execution envelope.
//
// Each step is wrapped in a Runner that adds a per-attempt timeout, bounded
// retry with exponential backoff, and a per-step circuit breaker. The
// Executor walks an ordered plan of step names sequentially, records an
// audit trace per step, and stops early when the flow budget is spent or a
// critical step fails.
package agent

import "context"

// Context identifies the triage session a step runs within.
type Context struct {
	SessionID     string         `json:"sessionId"`
	CustomerID    string         `json:"customerId,omitempty"`
	TransactionID string         `json:"transactionId,omitempty"`
	Metadata      map[string]any `json:"metadata,omitempty"`
}

// Result is the outcome of one step execution.
type Result struct {
	Success  bool    `json:"success"`
	Data     any     `json:"data,omitempty"`
	Error    string  `json:"error,omitempty"`
	Duration float64 `json:"duration_seconds"`
	Retries  int     `json:"retries"`
}

// Step is a unit of triage work. Process must honor ctx cancellation; the
// runner cancels it on timeout.
type Step interface {
	Name() string
	Process(ctx context.Context, sctx Context, input any) (any, error)
}

// StepFunc adapts a function to the Step interface.
type StepFunc struct {
	StepName string
	Fn       func(ctx context.Context, sctx Context, input any) (any, error)
}

// Name returns the step name.
func (s StepFunc) Name() string { return s.StepName }

// Process invokes the wrapped function.
func (s StepFunc) Process(ctx context.Context, sctx Context, input any) (any, error) {
	return s.Fn(ctx, sctx, input)
}
