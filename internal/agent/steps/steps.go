// Package steps provides the concrete agent steps behind the registry.
// Each constructor binds one domain service to the step protocol.
package steps

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/linnemanlabs/go-core/log"

	"github.com/linnemanlabs/fraudops/internal/agent"
	"github.com/linnemanlabs/fraudops/internal/compliance"
	"github.com/linnemanlabs/fraudops/internal/fraud"
	"github.com/linnemanlabs/fraudops/internal/insights"
	"github.com/linnemanlabs/fraudops/internal/kb"
	"github.com/linnemanlabs/fraudops/internal/redact"
	"github.com/linnemanlabs/fraudops/internal/risk"
	"github.com/linnemanlabs/fraudops/internal/summarize"
)

// Store is the slice of the data layer the read-only steps need.
type Store interface {
	GetCustomer(ctx context.Context, id string) (*fraud.Customer, bool, error)
	GetTransaction(ctx context.Context, id string) (*fraud.Transaction, bool, error)
	ListTransactions(ctx context.Context, customerID string, since time.Time) ([]*fraud.Transaction, error)
	ListDevices(ctx context.Context, customerID string) ([]*fraud.Device, error)
}

// Profile returns the customer record for the session.
func Profile(store Store) agent.Step {
	return agent.StepFunc{StepName: agent.StepProfile, Fn: func(ctx context.Context, sctx agent.Context, _ any) (any, error) {
		if sctx.CustomerID == "" {
			return nil, fraud.Validationf("customerId", "customer id required for profile")
		}
		customer, ok, err := store.GetCustomer(ctx, sctx.CustomerID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fraud.NotFoundf("customer", sctx.CustomerID)
		}
		return customer, nil
	}}
}

// TransactionWindow is how far back the transactions step looks.
const TransactionWindow = risk.Window

// Transactions lists the session customer's recent transactions.
func Transactions(store Store) agent.Step {
	return agent.StepFunc{StepName: agent.StepTransactions, Fn: func(ctx context.Context, sctx agent.Context, _ any) (any, error) {
		if sctx.CustomerID == "" {
			return nil, fraud.Validationf("customerId", "customer id required for transactions")
		}
		txns, err := store.ListTransactions(ctx, sctx.CustomerID, time.Now().Add(-TransactionWindow))
		if err != nil {
			return nil, err
		}
		return map[string]any{
			"transactions": txns,
			"count":        len(txns),
		}, nil
	}}
}

// FraudSignals are the weighted inputs to the fraud score.
type FraudSignals struct {
	Velocity     float64 `json:"velocity"`
	DeviceChange float64 `json:"deviceChange"`
	Location     float64 `json:"location"`
	Merchant     float64 `json:"merchant"`
	Amount       float64 `json:"amount"`
}

// FraudAssessment is the fraud step's verdict on a session.
type FraudAssessment struct {
	Score    float64      `json:"score"`
	Decision string       `json:"decision"`
	Reasons  []string     `json:"reasons"`
	Signals  FraudSignals `json:"signals"`
	Action   string       `json:"action,omitempty"`
}

var highRiskMCCs = map[string]bool{"6011": true, "7995": true}

// Fraud scores the session from transaction velocity, untrusted
// devices, and the flagged transaction's amount and merchant category.
func Fraud(store Store) agent.Step {
	return agent.StepFunc{StepName: agent.StepFraud, Fn: func(ctx context.Context, sctx agent.Context, _ any) (any, error) {
		var signals FraudSignals

		if sctx.CustomerID != "" {
			hourAgo := time.Now().Add(-time.Hour)
			txns, err := store.ListTransactions(ctx, sctx.CustomerID, hourAgo)
			if err != nil {
				return nil, err
			}
			signals.Velocity = math.Min(float64(len(txns))*0.1, 1)

			devices, err := store.ListDevices(ctx, sctx.CustomerID)
			if err != nil {
				return nil, err
			}
			untrusted := 0
			for i := range devices {
				if !devices[i].Trusted {
					untrusted++
				}
			}
			signals.DeviceChange = math.Min(float64(untrusted)*0.3, 1)
		}

		if sctx.TransactionID != "" {
			txn, ok, err := store.GetTransaction(ctx, sctx.TransactionID)
			if err != nil {
				return nil, err
			}
			if ok {
				if txn.Amount > 5000 {
					signals.Amount = 0.5
				}
				if highRiskMCCs[txn.MCC] {
					signals.Merchant = 0.5
				}
			}
		}

		score := scoreSignals(signals)
		return FraudAssessment{
			Score:    score,
			Decision: Decision(score),
			Reasons:  fraudReasons(signals, score),
			Signals:  signals,
			Action:   RecommendedAction(score),
		}, nil
	}}
}

func scoreSignals(s FraudSignals) float64 {
	score := s.Velocity*0.25 + s.DeviceChange*0.25 + s.Location*0.15 + s.Merchant*0.2 + s.Amount*0.15
	return math.Min(score, 1)
}

// Decision maps a score onto the triage decision bands.
func Decision(score float64) string {
	switch {
	case score > 0.8:
		return "BLOCK"
	case score > 0.6:
		return "REVIEW"
	case score > 0.4:
		return "MONITOR"
	default:
		return "APPROVE"
	}
}

// RecommendedAction is the action a score warrants, empty when none.
func RecommendedAction(score float64) string {
	switch {
	case score > 0.8:
		return "FREEZE_CARD"
	case score > 0.6:
		return "CONTACT_CUSTOMER"
	default:
		return ""
	}
}

func fraudReasons(s FraudSignals, score float64) []string {
	var reasons []string
	if s.Velocity > 0.5 {
		reasons = append(reasons, "High transaction velocity detected")
	}
	if s.DeviceChange > 0.3 {
		reasons = append(reasons, "Transaction from untrusted device")
	}
	if s.Amount > 0.3 {
		reasons = append(reasons, "Unusually high transaction amount")
	}
	if s.Merchant > 0.3 {
		reasons = append(reasons, "High-risk merchant category")
	}
	if score > 0.7 {
		reasons = append(reasons, "Overall risk score exceeds threshold")
	}
	return reasons
}

// Knowledge answers anchor lookups and free-text searches, or surfaces
// topic guidance from the session metadata when the input names neither.
func Knowledge(svc *kb.Service) agent.Step {
	return agent.StepFunc{StepName: agent.StepKnowledge, Fn: func(ctx context.Context, sctx agent.Context, input any) (any, error) {
		params, _ := input.(map[string]any)

		if anchor, ok := params["anchor"].(string); ok && anchor != "" {
			return svc.Lookup(ctx, anchor)
		}
		if query, ok := params["query"].(string); ok && query != "" {
			return svc.Search(ctx, query)
		}

		riskScore, _ := sctx.Metadata["riskScore"].(float64)
		action, _ := sctx.Metadata["action"].(string)
		refs, err := svc.Relevant(ctx, riskScore, action)
		if err != nil {
			return nil, err
		}
		return map[string]any{"relevant": refs}, nil
	}}
}

// Compliance evaluates the policy gate for a proposed action.
func Compliance() agent.Step {
	return agent.StepFunc{StepName: agent.StepCompliance, Fn: func(_ context.Context, _ agent.Context, input any) (any, error) {
		req, err := complianceRequest(input)
		if err != nil {
			return nil, err
		}
		return compliance.Evaluate(req), nil
	}}
}

// complianceRequest coerces an arbitrary step input into a request by a
// marshal round trip, so both typed and decoded-JSON inputs work.
func complianceRequest(input any) (compliance.Request, error) {
	var req compliance.Request
	if input == nil {
		return req, nil
	}
	raw, err := json.Marshal(input)
	if err != nil {
		return req, fmt.Errorf("compliance input: %w", err)
	}
	if err := json.Unmarshal(raw, &req); err != nil {
		return req, fmt.Errorf("compliance input: %w", err)
	}
	return req, nil
}

// Verdict is the decide step's consolidation of the flow so far.
type Verdict struct {
	Decision  string   `json:"decision"`
	Severity  string   `json:"severity"`
	RiskScore float64  `json:"riskScore"`
	Approved  bool     `json:"approved"`
	Reasons   []string `json:"reasons"`
	Action    string   `json:"action,omitempty"`
}

// Severity maps a score onto the alert severity bands.
func Severity(score float64) string {
	switch {
	case score > 0.8:
		return string(fraud.SeverityCritical)
	case score > 0.6:
		return string(fraud.SeverityHigh)
	case score > 0.4:
		return string(fraud.SeverityMedium)
	default:
		return string(fraud.SeverityLow)
	}
}

// Decide folds earlier step results into a single verdict. With no
// fraud result in scope everything defaults to an approve.
func Decide() agent.Step {
	return agent.StepFunc{StepName: agent.StepDecide, Fn: func(_ context.Context, _ agent.Context, input any) (any, error) {
		verdict := Verdict{Decision: "APPROVE", Severity: Severity(0), Approved: true}

		prior, _ := input.(map[string]agent.Result)

		if fr, ok := prior[agent.StepFraud]; ok && fr.Success {
			if assessment, ok := fr.Data.(FraudAssessment); ok {
				verdict.RiskScore = assessment.Score
				verdict.Decision = assessment.Decision
				verdict.Severity = Severity(assessment.Score)
				verdict.Reasons = assessment.Reasons
				verdict.Action = assessment.Action
			}
		}

		if cr, ok := prior[agent.StepCompliance]; ok && cr.Success {
			if result, ok := cr.Data.(compliance.Result); ok {
				verdict.Approved = result.Approved
				if !result.Approved {
					verdict.Reasons = append(verdict.Reasons, result.Violations...)
				}
			}
		}

		return verdict, nil
	}}
}

// Proposal is the action step's output. Execution happens elsewhere,
// behind its own compliance gate.
type Proposal struct {
	Action      string `json:"action,omitempty"`
	RequiresOTP bool   `json:"requiresOtp"`
	Note        string `json:"note"`
}

// Action turns the verdict into an action proposal.
func Action() agent.Step {
	return agent.StepFunc{StepName: agent.StepAction, Fn: func(_ context.Context, _ agent.Context, input any) (any, error) {
		prior, _ := input.(map[string]agent.Result)

		dr, ok := prior[agent.StepDecide]
		if !ok || !dr.Success {
			return Proposal{Note: "No decision available, no action proposed"}, nil
		}
		verdict, ok := dr.Data.(Verdict)
		if !ok || verdict.Action == "" {
			return Proposal{Note: "No action warranted"}, nil
		}

		return Proposal{
			Action:      verdict.Action,
			RequiresOTP: verdict.Action == "FREEZE_CARD",
			Note:        fmt.Sprintf("Proposed %s at risk score %.2f", verdict.Action, verdict.RiskScore),
		}, nil
	}}
}

// Redactor strips sensitive values from whatever it is handed.
func Redactor() agent.Step {
	return agent.StepFunc{StepName: agent.StepRedactor, Fn: func(_ context.Context, _ agent.Context, input any) (any, error) {
		return redact.Apply(input), nil
	}}
}

// Insights builds the customer spending report.
func Insights(svc *insights.Service) agent.Step {
	return agent.StepFunc{StepName: agent.StepInsights, Fn: func(ctx context.Context, sctx agent.Context, _ any) (any, error) {
		return svc.Build(ctx, sctx.CustomerID)
	}}
}

// Deps carries the services the full step set needs.
type Deps struct {
	Store     Store
	KB        *kb.Service
	Insights  *insights.Service
	Summarize *summarize.Service
}

// RegisterAll registers a runner for every step in the catalog.
func RegisterAll(reg *agent.Registry, cfg agent.Config, logger log.Logger, hooks agent.Hooks, deps Deps) {
	all := []agent.Step{
		Profile(deps.Store),
		Transactions(deps.Store),
		Fraud(deps.Store),
		Knowledge(deps.KB),
		Compliance(),
		Decide(),
		Action(),
		Redactor(),
		Insights(deps.Insights),
		Summarizer(deps.Summarize),
	}
	for _, step := range all {
		reg.Register(agent.NewRunner(step, cfg, logger, hooks))
	}
}

// Summarizer renders the customer summary and internal notes.
func Summarizer(svc *summarize.Service) agent.Step {
	return agent.StepFunc{StepName: agent.StepSummarizer, Fn: func(ctx context.Context, sctx agent.Context, input any) (any, error) {
		var in summarize.Input
		if params, ok := input.(map[string]any); ok {
			in.Type, _ = params["type"].(string)
			in.Data, _ = params["data"].(map[string]any)
		}
		return svc.Summarize(ctx, sctx.SessionID, in), nil
	}}
}
