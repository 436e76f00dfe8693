// Package compliance evaluates action requests against the console's
// fixed policy rules. Evaluation is pure and never errors for a
// well-formed request.
package compliance

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// Actions with fixed policy treatment.
const (
	ActionFreezeCard      = "FREEZE_CARD"
	ActionUnfreezeCard    = "UNFREEZE_CARD"
	ActionContactCustomer = "CONTACT_CUSTOMER"
	ActionShareData       = "SHARE_DATA"
	ActionCreateDispute   = "CREATE_DISPUTE"
)

// Spending limits in dollars.
const (
	TransactionLimit = 5000
	DailyLimit       = 10000
	HourlyLimit      = 2000
)

var piiPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`),
	regexp.MustCompile(`\b\d{13,19}\b`),
	regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`),
}

// Request is the action under evaluation. Extra carries any additional
// request payload; it participates in the PII scan only.
type Request struct {
	Action          string         `json:"action,omitempty"`
	Amount          float64        `json:"amount,omitempty"`
	DailyTotal      float64        `json:"dailyTotal,omitempty"`
	HourlyTotal     float64        `json:"hourlyTotal,omitempty"`
	RiskScore       float64        `json:"riskScore,omitempty"`
	OTPProvided     bool           `json:"otpProvided,omitempty"`
	ConsentProvided bool           `json:"consentProvided,omitempty"`
	Extra           map[string]any `json:"extra,omitempty"`
}

// LimitCheck reports which spending limits the request exceeds.
type LimitCheck struct {
	Exceeded bool     `json:"exceeded"`
	Details  []string `json:"details"`
}

// Checks is the outcome of the four independent policy checks.
type Checks struct {
	OTPRequired     bool       `json:"otpRequired"`
	ConsentRequired bool       `json:"consentRequired"`
	LimitsExceeded  LimitCheck `json:"limitsExceeded"`
	PIIProtected    bool       `json:"piiProtected"`
}

// Result is the full evaluation outcome.
type Result struct {
	Approved        bool     `json:"approved"`
	Checks          Checks   `json:"checks"`
	Violations      []string `json:"violations"`
	Recommendations []string `json:"recommendations"`
	BlockedAction   string   `json:"blockedAction,omitempty"`
	Reason          string   `json:"reason,omitempty"`
}

// Evaluate runs all checks against the request.
func Evaluate(req Request) Result {
	checks := Checks{
		OTPRequired:     otpRequired(req),
		ConsentRequired: consentRequired(req),
		LimitsExceeded:  checkLimits(req),
		PIIProtected:    piiProtected(req),
	}

	violations := findViolations(checks, req)
	approved := len(violations) == 0

	res := Result{
		Approved:        approved,
		Checks:          checks,
		Violations:      violations,
		Recommendations: recommendations(checks, violations),
	}
	if !approved {
		res.BlockedAction = req.Action
		res.Reason = strings.Join(violations, "; ")
	}
	return res
}

func otpRequired(req Request) bool {
	if req.Action == ActionFreezeCard || req.Action == ActionUnfreezeCard {
		return true
	}
	if req.Amount > 1000 {
		return true
	}
	if req.RiskScore > 0.6 {
		return true
	}
	return false
}

func consentRequired(req Request) bool {
	switch req.Action {
	case ActionContactCustomer, ActionShareData, ActionCreateDispute:
		return true
	}
	return false
}

func checkLimits(req Request) LimitCheck {
	var exceeded []string
	if req.Amount > TransactionLimit {
		exceeded = append(exceeded, fmt.Sprintf("Transaction limit ($%d)", TransactionLimit))
	}
	if req.DailyTotal > DailyLimit {
		exceeded = append(exceeded, fmt.Sprintf("Daily limit ($%d)", DailyLimit))
	}
	if req.HourlyTotal > HourlyLimit {
		exceeded = append(exceeded, fmt.Sprintf("Hourly limit ($%d)", HourlyLimit))
	}
	return LimitCheck{Exceeded: len(exceeded) > 0, Details: exceeded}
}

// piiProtected scans the serialized request. A marshal failure cannot
// happen for the concrete Request type, but if Extra smuggles in an
// unmarshalable value we fail closed.
func piiProtected(req Request) bool {
	text, err := json.Marshal(req)
	if err != nil {
		return false
	}
	for _, p := range piiPatterns {
		if p.Match(text) {
			return false
		}
	}
	return true
}

func findViolations(checks Checks, req Request) []string {
	var violations []string

	if checks.OTPRequired && !req.OTPProvided {
		violations = append(violations, "OTP verification required")
	}
	if checks.ConsentRequired && !req.ConsentProvided {
		violations = append(violations, "Customer consent required")
	}
	if checks.LimitsExceeded.Exceeded {
		violations = append(violations, "Limits exceeded: "+strings.Join(checks.LimitsExceeded.Details, ", "))
	}
	if !checks.PIIProtected {
		violations = append(violations, "PII data must be protected")
	}

	return violations
}

func recommendations(checks Checks, violations []string) []string {
	var recs []string

	if checks.OTPRequired {
		recs = append(recs, "Request OTP verification from customer")
	}
	if checks.ConsentRequired {
		recs = append(recs, "Obtain explicit customer consent")
	}
	if checks.LimitsExceeded.Exceeded {
		recs = append(recs, "Request supervisor approval for limit override")
	}
	if !checks.PIIProtected {
		recs = append(recs, "Redact PII before proceeding")
	}
	if len(violations) == 0 {
		recs = append(recs, "All compliance checks passed")
	}

	return recs
}
