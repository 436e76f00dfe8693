// Package risk computes the rule-based per-customer risk assessment.
//
// Scoring is pure: the caller fetches the customer's recent activity and
// the package turns it into weighted signals, an overall score, and a
// recommendation list. All thresholds and weights here are part of the
// console's contract with its analysts; change them in lockstep with the
// UI's banding.
package risk

import (
	"math"
	"time"

	"github.com/linnemanlabs/fraudops/internal/fraud"
)

// Window is how far back transactions feed the velocity signal.
const Window = 7 * 24 * time.Hour

// VelocitySignal carries the velocity score and its inputs.
type VelocitySignal struct {
	Score            float64 `json:"score"`
	TransactionCount int     `json:"transactionCount"`
	TotalAmount      float64 `json:"totalAmount"`
}

// DeviceSignal carries the device score and its inputs.
type DeviceSignal struct {
	Score            float64 `json:"score"`
	TotalDevices     int     `json:"totalDevices"`
	UntrustedDevices int     `json:"untrustedDevices"`
}

// HistorySignal carries the history score and its inputs.
type HistorySignal struct {
	Score           float64 `json:"score"`
	ChargebackCount int     `json:"chargebackCount"`
	AlertCount      int     `json:"alertCount"`
}

// Signals groups the three component signals.
type Signals struct {
	Velocity VelocitySignal `json:"velocity"`
	Devices  DeviceSignal   `json:"devices"`
	History  HistorySignal  `json:"history"`
}

// Assessment is the full risk picture for one customer.
type Assessment struct {
	OverallRisk     float64  `json:"overallRisk"`
	Signals         Signals  `json:"signals"`
	Recommendations []string `json:"recommendations"`
}

// Input is everything Score needs. Transactions are the customer's
// activity within Window of Now.
type Input struct {
	Flags           fraud.RiskFlags
	Transactions    []*fraud.Transaction
	Devices         []*fraud.Device
	ChargebackCount int
	AlertCount      int
	Now             time.Time
}

// Score computes the assessment. Deterministic for a given Input.
func Score(in Input) Assessment {
	base := baseScore(in.Flags)
	velocity := velocitySignal(in.Transactions, in.Now)
	devices := deviceSignal(in.Devices)
	history := historySignal(in.ChargebackCount, in.AlertCount)

	// Base risk dominates so the assessment stays consistent with the
	// flag-driven list view.
	overall := base*0.7 + (velocity.Score+devices.Score+history.Score)/3*0.3

	return Assessment{
		OverallRisk: overall,
		Signals: Signals{
			Velocity: velocity,
			Devices:  devices,
			History:  history,
		},
		Recommendations: Recommendations(overall, in.Flags),
	}
}

func baseScore(flags fraud.RiskFlags) float64 {
	switch {
	case flags.PreviousFraud:
		return 0.75
	case flags.HighRiskCountry:
		return 0.45
	default:
		return 0.1
	}
}

func velocitySignal(txns []*fraud.Transaction, now time.Time) VelocitySignal {
	sig := VelocitySignal{TransactionCount: len(txns)}
	for _, t := range txns {
		sig.TotalAmount += t.Amount
	}
	if len(txns) == 0 {
		return sig
	}

	hourAgo := now.Add(-time.Hour)
	hourly := 0
	for _, t := range txns {
		if t.Timestamp.After(hourAgo) {
			hourly++
		}
	}

	switch {
	case hourly > 10:
		sig.Score = 1
	case hourly > 5:
		sig.Score = 0.7
	case hourly > 3:
		sig.Score = 0.4
	default:
		sig.Score = 0.2
	}
	return sig
}

func deviceSignal(devices []*fraud.Device) DeviceSignal {
	sig := DeviceSignal{TotalDevices: len(devices)}
	if len(devices) == 0 {
		// No device history cuts both ways; treat as medium risk.
		sig.Score = 0.5
		return sig
	}
	for _, d := range devices {
		if !d.Trusted {
			sig.UntrustedDevices++
		}
	}
	ratio := float64(sig.UntrustedDevices) / float64(sig.TotalDevices)
	sig.Score = math.Min(ratio*1.5, 1)
	return sig
}

func historySignal(chargebacks, alerts int) HistorySignal {
	return HistorySignal{
		Score:           math.Min(float64(chargebacks)*0.3+float64(alerts)*0.1, 1),
		ChargebackCount: chargebacks,
		AlertCount:      alerts,
	}
}

// Recommendations returns the analyst guidance lines for a score and the
// customer's flags. Flag lines come first, then the band lines.
func Recommendations(score float64, flags fraud.RiskFlags) []string {
	var recs []string

	if flags.PreviousFraud {
		recs = append(recs, "⚠️ Customer has previous fraud history - heightened vigilance required")
	}
	if flags.HighRiskCountry {
		recs = append(recs, "🌍 Customer in high-risk country - verify all cross-border transactions")
	}
	if flags.VIPCustomer {
		recs = append(recs, "⭐ VIP customer - expedite resolution and provide premium support")
	}

	switch {
	case score >= 0.7:
		recs = append(recs,
			"🔴 Immediate card freeze recommended - high risk detected",
			"📞 Contact customer immediately via registered phone number",
			"🔍 Review all recent transactions for potential fraud patterns",
		)
	case score >= 0.4:
		recs = append(recs,
			"🟡 Enhanced monitoring required for next 30 days",
			"🔐 Request additional authentication for high-value transactions",
			"📊 Review spending patterns for anomalies",
		)
	default:
		recs = append(recs,
			"✅ No immediate action required - low risk profile",
			"📈 Continue standard monitoring procedures",
		)
	}

	return recs
}
