// Package slack pushes newly raised fraud alerts to Slack via incoming
// webhooks.
package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/linnemanlabs/go-core/log"

	"github.com/linnemanlabs/fraudops/internal/fraud"
)

const (
	maxReasons  = 10
	httpTimeout = 10 * time.Second
)

// Notifier posts alerts to a Slack webhook. Delivery is best effort;
// failures are logged, never surfaced to the triage path.
type Notifier struct {
	webhookURL string
	client     *http.Client
	logger     log.Logger
}

// New creates a new Slack notifier. If webhookURL is empty, every
// notification is a no-op.
func New(webhookURL string, logger log.Logger) *Notifier {
	if logger == nil {
		logger = log.Nop()
	}
	return &Notifier{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: httpTimeout},
		logger:     logger.With("component", "slack"),
	}
}

// AlertCreated posts a raised alert to the configured webhook.
func (n *Notifier) AlertCreated(ctx context.Context, alert *fraud.Alert) {
	if err := n.post(ctx, alert); err != nil {
		n.logger.Warn(ctx, "slack notification failed", "alert_id", alert.ID, "error", err.Error())
		return
	}
	if n.webhookURL != "" {
		n.logger.Info(ctx, "slack notification sent", "alert_id", alert.ID, "severity", string(alert.Severity))
	}
}

func (n *Notifier) post(ctx context.Context, alert *fraud.Alert) error {
	if n.webhookURL == "" {
		return nil
	}

	body, err := json.Marshal(buildMessage(alert))
	if err != nil {
		return fmt.Errorf("slack: marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("slack: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req) //nolint:gosec // G704: webhookURL is from trusted config, not user input
	if err != nil {
		return fmt.Errorf("slack: post webhook: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("slack: webhook returned %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}

func buildMessage(alert *fraud.Alert) map[string]any {
	return map[string]any{
		"blocks": []map[string]any{
			headerBlock(alert),
			{"type": "divider"},
			fieldsBlock(alert),
			{"type": "divider"},
			reasonsBlock(alert),
			{"type": "divider"},
			contextBlock(alert),
		},
	}
}

func headerBlock(alert *fraud.Alert) map[string]any {
	text := fmt.Sprintf("%s Fraud Alert: %s severity", severityEmoji(alert.Severity), alert.Severity)

	return map[string]any{
		"type": "header",
		"text": map[string]any{
			"type": "plain_text",
			"text": text,
		},
	}
}

func fieldsBlock(alert *fraud.Alert) map[string]any {
	fields := []map[string]any{
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Customer:* %s", alert.CustomerID),
		},
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Severity:* %s", alert.Severity),
		},
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Risk score:* %.2f", alert.RiskScore),
		},
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Status:* %s", alert.Status),
		},
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Type:* %s", alert.Type),
		},
	}

	return map[string]any{
		"type":   "section",
		"fields": fields,
	}
}

func reasonsBlock(alert *fraud.Alert) map[string]any {
	reasons := alert.Reasons
	if len(reasons) > maxReasons {
		reasons = reasons[:maxReasons]
	}
	text := strings.Join(reasons, "\n")
	if text == "" {
		text = "_No reasons recorded._"
	}

	return map[string]any{
		"type": "section",
		"text": map[string]any{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Reasons*\n\n%s", text),
		},
	}
}

func contextBlock(alert *fraud.Alert) map[string]any {
	elements := []map[string]any{
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("fraudops • alert %s • %s", alert.ID, alert.CreatedAt.UTC().Format("2006-01-02 15:04 UTC")),
		},
	}

	return map[string]any{
		"type":     "context",
		"elements": elements,
	}
}

func severityEmoji(severity fraud.AlertSeverity) string {
	switch severity {
	case fraud.SeverityCritical:
		return "\U0001f534" // red circle
	case fraud.SeverityHigh:
		return "\U0001f7e0" // orange circle
	case fraud.SeverityMedium:
		return "\U0001f7e1" // yellow circle
	default:
		return "\U0001f7e2" // green circle
	}
}
