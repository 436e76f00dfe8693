package api

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/linnemanlabs/fraudops/internal/agent"
)

type flowRequest struct {
	Plan          []string       `json:"plan,omitempty"`
	CustomerID    string         `json:"customerId,omitempty"`
	TransactionID string         `json:"transactionId,omitempty"`
	Metadata      map[string]any `json:"metadata,omitempty"`

	// Requires* flags build a plan when an explicit one is absent.
	agent.PlanRequest
}

type flowResponse struct {
	Plan                []string `json:"plan"`
	EstimatedDurationMS int      `json:"estimatedDurationMs"`
	agent.FlowResult
}

// handleAgentFlow runs an explicit or derived step plan. Ops tooling
// uses this to replay parts of a triage outside a live session.
func (a *API) handleAgentFlow(w http.ResponseWriter, r *http.Request) {
	var req flowRequest
	if !a.decode(w, r, &req) {
		return
	}

	plan := req.Plan
	if len(plan) == 0 {
		plan = agent.BuildPlan(req.PlanRequest)
	}

	sctx := agent.Context{
		SessionID:     uuid.NewString(),
		CustomerID:    req.CustomerID,
		TransactionID: req.TransactionID,
		Metadata:      req.Metadata,
	}
	result := a.executor.ExecuteFlow(r.Context(), sctx, plan)

	a.writeJSON(w, http.StatusOK, flowResponse{
		Plan:                plan,
		EstimatedDurationMS: agent.EstimatedDuration(plan),
		FlowResult:          result,
	})
}
