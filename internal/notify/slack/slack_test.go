package slack

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/linnemanlabs/go-core/log"

	"github.com/linnemanlabs/fraudops/internal/fraud"
)

func TestAlertCreated_PostsToWebhook(t *testing.T) {
	t.Parallel()

	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("content-type = %q, want application/json", r.Header.Get("Content-Type"))
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := New(srv.URL, log.Nop())
	alert := &fraud.Alert{
		ID:         "01JN123",
		CustomerID: "c1",
		Type:       fraud.AlertTypeFraud,
		Severity:   fraud.SeverityCritical,
		RiskScore:  0.91,
		Reasons:    []string{"Unusual velocity", "New device"},
		Status:     fraud.AlertPending,
		CreatedAt:  time.Date(2026, 2, 26, 14, 23, 0, 0, time.UTC),
	}

	n.AlertCreated(context.Background(), alert)

	blocks, ok := got["blocks"].([]any)
	if !ok {
		t.Fatal("expected blocks array in payload")
	}

	// header, divider, fields, divider, reasons, divider, context = 7 blocks
	if len(blocks) != 7 {
		t.Errorf("blocks count = %d, want 7", len(blocks))
	}

	header := blocks[0].(map[string]any)
	headerText := header["text"].(map[string]any)["text"].(string)
	if !strings.Contains(headerText, "CRITICAL") {
		t.Errorf("header text = %q, want to contain CRITICAL", headerText)
	}
	if !strings.Contains(headerText, "\U0001f534") {
		t.Errorf("header should contain red circle for critical severity")
	}

	reasonsSection := blocks[4].(map[string]any)
	reasonsText := reasonsSection["text"].(map[string]any)["text"].(string)
	if !strings.Contains(reasonsText, "Unusual velocity") {
		t.Errorf("reasons text = %q, want to contain first reason", reasonsText)
	}

	contextSection := blocks[6].(map[string]any)
	elements := contextSection["elements"].([]any)
	contextText := elements[0].(map[string]any)["text"].(string)
	if !strings.Contains(contextText, "alert 01JN123") {
		t.Errorf("context text = %q, want to contain alert id", contextText)
	}
}

func TestAlertCreated_NoOpWithoutURL(t *testing.T) {
	t.Parallel()

	n := New("", log.Nop())

	// Must not panic or attempt any network call.
	n.AlertCreated(context.Background(), &fraud.Alert{ID: "a1"})
}

func TestAlertCreated_SwallowsWebhookFailure(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("internal error"))
	}))
	defer srv.Close()

	n := New(srv.URL, log.Nop())

	// Delivery failures are logged, never propagated.
	n.AlertCreated(context.Background(), &fraud.Alert{ID: "01JN789", Severity: fraud.SeverityHigh})
}

func TestPost_NonOKStatus(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("internal error"))
	}))
	defer srv.Close()

	n := New(srv.URL, log.Nop())
	err := n.post(context.Background(), &fraud.Alert{ID: "01JN789"})
	if err == nil {
		t.Fatal("expected error on non-OK status")
	}
	if !strings.Contains(err.Error(), "500") {
		t.Errorf("error = %q, want to contain status code 500", err.Error())
	}
}

func TestReasonsBlock_Caps(t *testing.T) {
	t.Parallel()

	reasons := make([]string, maxReasons+5)
	for i := range reasons {
		reasons[i] = "reason"
	}
	block := reasonsBlock(&fraud.Alert{Reasons: reasons})
	text := block["text"].(map[string]any)["text"].(string)
	if got := strings.Count(text, "reason"); got != maxReasons {
		t.Errorf("reasons in block = %d, want %d", got, maxReasons)
	}
}

func TestSeverityEmoji(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		severity fraud.AlertSeverity
		want     string
	}{
		{"critical", fraud.SeverityCritical, "\U0001f534"},
		{"high", fraud.SeverityHigh, "\U0001f7e0"},
		{"medium", fraud.SeverityMedium, "\U0001f7e1"},
		{"low", fraud.SeverityLow, "\U0001f7e2"},
		{"empty", fraud.AlertSeverity(""), "\U0001f7e2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := severityEmoji(tt.severity); got != tt.want {
				t.Errorf("severityEmoji(%q) = %q, want %q", tt.severity, got, tt.want)
			}
		})
	}
}

func FuzzSlackBuild(f *testing.F) {
	f.Add("c1", "CRITICAL", "Unusual velocity", 0.91)
	f.Add("", "", "", 0.0)
	f.Add("<@U123> mention", "HIGH", "*bold* _italic_ ~strike~", 0.5)
	f.Add("cust\x00\x01\x02", "sev\nline", "reason\ttab", -1.0)
	f.Add(strings.Repeat("A", 5000), "MEDIUM", strings.Repeat("x", 10000), 1e18)
	f.Add("c2", "LOW", "```code block``` and <http://example.com|link>", 0.2)

	f.Fuzz(func(t *testing.T, customerID, severity, reason string, score float64) {
		alert := &fraud.Alert{
			ID:         "fuzz-id",
			CustomerID: customerID,
			Severity:   fraud.AlertSeverity(severity),
			RiskScore:  score,
			Reasons:    []string{reason},
			Status:     fraud.AlertPending,
			CreatedAt:  time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		}

		// Must not panic
		msg := buildMessage(alert)

		// Must produce valid JSON
		data, err := json.Marshal(msg)
		if err != nil {
			t.Fatalf("buildMessage produced non-marshalable output: %v", err)
		}

		// Must round-trip
		var decoded map[string]any
		if err := json.Unmarshal(data, &decoded); err != nil {
			t.Fatalf("buildMessage JSON does not round-trip: %v", err)
		}

		blocks, ok := decoded["blocks"].([]any)
		if !ok {
			t.Fatal("expected blocks array")
		}
		if len(blocks) != 7 {
			t.Fatalf("blocks count = %d, want 7", len(blocks))
		}
	})
}
