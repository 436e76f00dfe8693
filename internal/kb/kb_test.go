package kb

import (
	"context"
	"strings"
	"testing"

	"github.com/linnemanlabs/fraudops/internal/fraud"
	"github.com/linnemanlabs/fraudops/internal/fraud/memstore"
)

func seedKB(t *testing.T) *memstore.Store {
	t.Helper()
	store := memstore.New()
	ctx := context.Background()

	entries := []fraud.KBEntry{
		{
			ID:      "kb1",
			Anchor:  "fraud-detection",
			Title:   "Fraud Detection Playbook",
			Content: "When a transaction shows velocity anomalies, review the customer device history before escalating to the fraud desk.",
			Chunks:  []string{"Review device history first.", "Escalate above 0.7 risk."},
			Tags:    []string{"fraud", "velocity"},
		},
		{
			ID:      "kb2",
			Anchor:  "card-freeze",
			Title:   "Card Freeze Procedure",
			Content: "Card freeze requires OTP verification. Confirm cardholder identity before freezing.",
			Chunks:  []string{"OTP required for freeze."},
			Tags:    []string{"card", "freeze"},
		},
		{
			ID:      "kb3",
			Anchor:  "customer-verification",
			Title:   "Customer Verification",
			Content: "Verify identity with two independent factors before discussing account details.",
			Chunks:  []string{"Two factors before disclosure."},
		},
	}
	for i := range entries {
		if err := store.CreateKBEntry(ctx, &entries[i]); err != nil {
			t.Fatalf("seed kb: %v", err)
		}
	}
	return store
}

func TestLookup(t *testing.T) {
	t.Parallel()

	svc := NewService(seedKB(t))
	ctx := context.Background()

	got, err := svc.Lookup(ctx, "card-freeze")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if !got.Found {
		t.Fatal("found = false")
	}
	if got.Title != "Card Freeze Procedure" {
		t.Errorf("title = %q", got.Title)
	}
	if got.Citation != "[Card Freeze Procedure](card-freeze)" {
		t.Errorf("citation = %q", got.Citation)
	}
	if len(got.Chunks) != 1 {
		t.Errorf("chunks = %d, want 1", len(got.Chunks))
	}
}

func TestLookup_MissingAnchorFallsBack(t *testing.T) {
	t.Parallel()

	svc := NewService(seedKB(t))
	got, err := svc.Lookup(context.Background(), "no-such-anchor")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if got.Found {
		t.Error("found = true for missing anchor")
	}
	if got.Fallback != "No specific guidance found. Follow standard procedures." {
		t.Errorf("fallback = %q", got.Fallback)
	}
}

func TestSearch(t *testing.T) {
	t.Parallel()

	svc := NewService(seedKB(t))
	got, err := svc.Search(context.Background(), "velocity")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if !got.Found {
		t.Fatal("found = false")
	}
	if len(got.Results) != 1 {
		t.Fatalf("results = %d, want 1", len(got.Results))
	}
	hit := got.Results[0]
	if hit.Title != "Fraud Detection Playbook" {
		t.Errorf("title = %q", hit.Title)
	}
	if !strings.Contains(hit.Snippet, "velocity") {
		t.Errorf("snippet %q does not contain the query", hit.Snippet)
	}
	if hit.Citation != "[Fraud Detection Playbook](fraud-detection)" {
		t.Errorf("citation = %q", hit.Citation)
	}
}

func TestSearch_Fallbacks(t *testing.T) {
	t.Parallel()

	tests := []struct {
		query string
		want  string
	}{
		{"possible fraud ring", "Follow standard fraud detection procedures. Escalate if risk score exceeds 0.7."},
		{"open a dispute", "Process dispute according to standard timeline. Issue provisional credit if applicable."},
		{"unrelated nonsense", "No specific guidance found. Follow standard operating procedures."},
	}

	store := memstore.New()
	svc := NewService(store)
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			t.Parallel()
			got, err := svc.Search(context.Background(), tt.query)
			if err != nil {
				t.Fatalf("Search: %v", err)
			}
			if got.Found {
				t.Error("found = true on empty store")
			}
			if got.Fallback != tt.want {
				t.Errorf("fallback = %q, want %q", got.Fallback, tt.want)
			}
		})
	}
}

func TestRelevant(t *testing.T) {
	t.Parallel()

	svc := NewService(seedKB(t))
	ctx := context.Background()

	tests := []struct {
		name      string
		riskScore float64
		action    string
		want      []string
	}{
		{"high risk", 0.8, "", []string{"Fraud Detection Playbook"}},
		{"freeze in flight", 0.5, "FREEZE_CARD", []string{"Card Freeze Procedure"}},
		{"high risk and freeze", 0.9, "FREEZE_CARD", []string{"Fraud Detection Playbook", "Card Freeze Procedure"}},
		{"nothing notable", 0.2, "", []string{"Customer Verification"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			refs, err := svc.Relevant(ctx, tt.riskScore, tt.action)
			if err != nil {
				t.Fatalf("Relevant: %v", err)
			}
			if len(refs) != len(tt.want) {
				t.Fatalf("refs = %d, want %d", len(refs), len(tt.want))
			}
			for i, title := range tt.want {
				if refs[i].Title != title {
					t.Errorf("refs[%d].Title = %q, want %q", i, refs[i].Title, title)
				}
			}
		})
	}
}

func TestRelevant_PrefersFirstChunk(t *testing.T) {
	t.Parallel()

	svc := NewService(seedKB(t))
	refs, err := svc.Relevant(context.Background(), 0.8, "")
	if err != nil {
		t.Fatalf("Relevant: %v", err)
	}
	if len(refs) != 1 {
		t.Fatalf("refs = %d, want 1", len(refs))
	}
	if refs[0].Content != "Review device history first." {
		t.Errorf("content = %q, want the first chunk", refs[0].Content)
	}
}

func TestExtractSnippet(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("a", 100) + "needle" + strings.Repeat("b", 100)

	tests := []struct {
		name    string
		content string
		query   string
		check   func(t *testing.T, got string)
	}{
		{
			name:    "match in the middle is elided on both sides",
			content: long,
			query:   "needle",
			check: func(t *testing.T, got string) {
				if !strings.HasPrefix(got, "...") || !strings.HasSuffix(got, "...") {
					t.Errorf("snippet %q not elided on both sides", got)
				}
				if !strings.Contains(got, "needle") {
					t.Errorf("snippet %q lost the match", got)
				}
			},
		},
		{
			name:    "match at the start keeps the prefix",
			content: "needle" + strings.Repeat("b", 200),
			query:   "needle",
			check: func(t *testing.T, got string) {
				if !strings.HasPrefix(got, "needle") {
					t.Errorf("snippet = %q", got)
				}
			},
		},
		{
			name:    "no match in content truncates the head",
			content: strings.Repeat("c", 300),
			query:   "needle",
			check: func(t *testing.T, got string) {
				if len(got) != 153 || !strings.HasSuffix(got, "...") {
					t.Errorf("snippet length = %d", len(got))
				}
			},
		},
		{
			name:    "short content without match returned whole",
			content: "short text",
			query:   "needle",
			check: func(t *testing.T, got string) {
				if got != "short text" {
					t.Errorf("snippet = %q", got)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			tt.check(t, extractSnippet(tt.content, tt.query))
		})
	}
}
