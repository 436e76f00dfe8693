// Package summarize renders customer-facing summaries and internal case
// notes for session outcomes. Templates are the source of truth; a
// language model, when configured, rewrites the customer summary only.
package summarize

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/linnemanlabs/go-core/log"
)

// Provider produces a completion for a prompt. Implementations live
// under internal/llm.
type Provider interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
}

// Input selects the template and carries its substitution data.
type Input struct {
	Type string         `json:"type"`
	Data map[string]any `json:"data"`
}

// Metadata describes when and in which session a summary was produced.
type Metadata struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	SessionID string    `json:"sessionId"`
}

// Output pairs the customer-facing text with the internal case notes.
type Output struct {
	CustomerSummary string   `json:"customerSummary"`
	InternalNotes   string   `json:"internalNotes"`
	Metadata        Metadata `json:"metadata"`
}

// Service renders summaries.
type Service struct {
	provider Provider
	logger   log.Logger
	now      func() time.Time
}

// NewService wires a summarizer. provider may be nil, which disables
// the language model path.
func NewService(provider Provider, logger log.Logger) *Service {
	return &Service{
		provider: provider,
		logger:   logger.With("component", "summarize"),
		now:      time.Now,
	}
}

const rewriteSystem = "You rewrite fraud operations notifications for bank customers. " +
	"Keep the meaning, keep it under three sentences, do not invent facts."

// Summarize renders the template for in.Type. With a provider
// configured, the customer summary is additionally rewritten by the
// model; on any model failure the template text stands.
func (s *Service) Summarize(ctx context.Context, sessionID string, in Input) Output {
	summary := templateSummary(in.Type, in.Data)
	notes := templateNotes(in.Type, in.Data, s.now().UTC())

	if s.provider != nil {
		rewritten, err := s.provider.Complete(ctx, rewriteSystem, summary)
		if err != nil {
			s.logger.Warn(ctx, "model rewrite failed, using template", "type", in.Type, "error", err.Error())
		} else if rewritten != "" {
			summary = rewritten
		}
	}

	return Output{
		CustomerSummary: summary,
		InternalNotes:   notes,
		Metadata: Metadata{
			Type:      in.Type,
			Timestamp: s.now().UTC(),
			SessionID: sessionID,
		},
	}
}

func templateSummary(kind string, data map[string]any) string {
	switch kind {
	case "fraud_alert":
		return fmt.Sprintf(
			"We detected unusual activity on your account. Risk level: %s. Action taken: %s. Please contact us if you have questions.",
			str(data, "riskLevel", "Medium"), str(data, "action", "Under review"))
	case "transaction_review":
		return fmt.Sprintf(
			"Transaction of %s at %s is being reviewed. We'll notify you once the review is complete.",
			str(data, "amount", "N/A"), str(data, "merchant", "merchant"))
	case "card_frozen":
		return fmt.Sprintf(
			"Your card ending in %s has been temporarily frozen for security. Please contact support to unfreeze.",
			str(data, "last4", "XXXX"))
	case "dispute_created":
		return fmt.Sprintf(
			"Dispute #%s has been created for %s. We'll investigate and update you within 2 business days.",
			str(data, "disputeId", "XXXXX"), str(data, "amount", "the transaction"))
	case "compliance_block":
		return fmt.Sprintf(
			"This action requires additional verification. %s",
			str(data, "reason", "Please complete verification steps."))
	default:
		return fmt.Sprintf("Your request has been processed. Reference: %s", str(data, "sessionId", "N/A"))
	}
}

func templateNotes(kind string, data map[string]any, now time.Time) string {
	notes := []string{
		"Type: " + kind,
		"Timestamp: " + now.Format(time.RFC3339),
	}

	if score, ok := data["riskScore"]; ok {
		notes = append(notes, fmt.Sprintf("Risk Score: %v", score))
	}
	if decision := str(data, "decision", ""); decision != "" {
		notes = append(notes, "Decision: "+decision)
	}
	if reasons := strs(data, "reasons"); len(reasons) > 0 {
		notes = append(notes, "Reasons: "+strings.Join(reasons, ", "))
	}
	if action := str(data, "action", ""); action != "" {
		notes = append(notes, "Action: "+action)
	}
	if customer := str(data, "customerId", ""); customer != "" {
		notes = append(notes, "Customer: "+customer)
	}
	if agents, ok := data["agentResults"].(map[string]any); ok && len(agents) > 0 {
		names := make([]string, 0, len(agents))
		for name := range agents {
			names = append(names, name)
		}
		// Map iteration order varies; sort for stable notes.
		sort.Strings(names)
		notes = append(notes, "Agents involved: "+strings.Join(names, ", "))
	}
	if violations := strs(data, "violations"); len(violations) > 0 {
		notes = append(notes, "Compliance violations: "+strings.Join(violations, ", "))
	}

	return strings.Join(notes, "\n")
}

func str(data map[string]any, key, fallback string) string {
	v, ok := data[key]
	if !ok || v == nil {
		return fallback
	}
	switch s := v.(type) {
	case string:
		if s == "" {
			return fallback
		}
		return s
	default:
		return fmt.Sprintf("%v", v)
	}
}

// strs accepts either []string or the []any that JSON decoding yields.
func strs(data map[string]any, key string) []string {
	switch v := data[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			out = append(out, fmt.Sprintf("%v", item))
		}
		return out
	}
	return nil
}
