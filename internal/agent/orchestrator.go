package agent

// Step names with dedicated plan slots.
const (
	StepProfile      = "profile"
	StepTransactions = "transactions"
	StepFraud        = "fraud"
	StepKnowledge    = "kb"
	StepCompliance   = "compliance"
	StepDecide       = "decide"
	StepAction       = "action"
	StepRedactor     = "redactor"
	StepInsights     = "insights"
	StepSummarizer   = "summarizer"
)

// PlanRequest selects which steps a flow needs.
type PlanRequest struct {
	RequiresProfile      bool `json:"requiresProfile"`
	RequiresTransactions bool `json:"requiresTransactions"`
	RequiresRiskAnalysis bool `json:"requiresRiskAnalysis"`
	RequiresKnowledge    bool `json:"requiresKnowledge"`
	RequiresCompliance   bool `json:"requiresCompliance"`
	RequiresAction       bool `json:"requiresAction"`
}

// BuildPlan turns the request flags into an ordered step list. The order
// is fixed; "decide" is always present, before any action step.
func BuildPlan(req PlanRequest) []string {
	var plan []string
	if req.RequiresProfile {
		plan = append(plan, StepProfile)
	}
	if req.RequiresTransactions {
		plan = append(plan, StepTransactions)
	}
	if req.RequiresRiskAnalysis {
		plan = append(plan, StepFraud)
	}
	if req.RequiresKnowledge {
		plan = append(plan, StepKnowledge)
	}
	if req.RequiresCompliance {
		plan = append(plan, StepCompliance)
	}
	plan = append(plan, StepDecide)
	if req.RequiresAction {
		plan = append(plan, StepAction)
	}
	return plan
}

// EstimatedDuration is the rough per-step planning estimate surfaced with
// a plan, in milliseconds.
func EstimatedDuration(plan []string) int {
	return len(plan) * 500
}

// IsCritical reports whether a failed step aborts the whole flow.
func IsCritical(name string) bool {
	switch name {
	case StepFraud, StepCompliance:
		return true
	}
	return false
}
