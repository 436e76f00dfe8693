package triage

import (
	"time"

	"github.com/linnemanlabs/fraudops/internal/risk"
)

// Request starts a triage run. AlertID is set when re-triaging an
// existing alert; a new alert is only ever created when it is absent.
type Request struct {
	CustomerID    string `json:"customerId"`
	TransactionID string `json:"transactionId,omitempty"`
	AlertID       string `json:"alertId,omitempty"`
}

// Result is the verdict of one triage run.
type Result struct {
	CustomerID      string       `json:"customerId"`
	TransactionID   string       `json:"transactionId,omitempty"`
	AlertID         string       `json:"alertId,omitempty"`
	RiskScore       float64      `json:"riskScore"`
	Decision        string       `json:"decision"`
	Severity        string       `json:"severity"`
	Signals         risk.Signals `json:"signals"`
	Recommendations []string     `json:"recommendations"`
	Timestamp       time.Time    `json:"timestamp"`
}

// RunResult wraps a Result with its session handle and wall time.
type RunResult struct {
	SessionID string  `json:"sessionId"`
	Result    Result  `json:"result"`
	Duration  float64 `json:"duration_seconds"`
}

// Event is one message on a triage progress stream.
type Event struct {
	Type      string  `json:"type"`
	Message   string  `json:"message"`
	Step      int     `json:"step,omitempty"`
	SessionID string  `json:"sessionId,omitempty"`
	Result    *Result `json:"result,omitempty"`
	Error     string  `json:"error,omitempty"`
	Duration  float64 `json:"duration_seconds,omitempty"`
}

// Decision maps a risk score onto the triage decision bands.
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

// SeverityFor maps a risk score onto the alert severity bands.
func SeverityFor(score float64) string {
	switch {
	case score > 0.8:
		return "CRITICAL"
	case score > 0.6:
		return "HIGH"
	case score > 0.4:
		return "MEDIUM"
	default:
		return "LOW"
	}
}
