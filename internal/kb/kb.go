// Package kb answers procedure questions from the operations knowledge
// base, with canned fallbacks when nothing matches.
package kb

import (
	"context"
	"fmt"
	"strings"

	"github.com/linnemanlabs/fraudops/internal/fraud"
)

const maxSearchResults = 3

// Store is the slice of the data layer the knowledge base needs.
type Store interface {
	GetKBEntry(ctx context.Context, anchor string) (*fraud.KBEntry, bool, error)
	SearchKB(ctx context.Context, query string) ([]*fraud.KBEntry, error)
}

// LookupResult is the answer to an exact-anchor lookup.
type LookupResult struct {
	Found    bool     `json:"found"`
	Title    string   `json:"title,omitempty"`
	Content  string   `json:"content,omitempty"`
	Chunks   []string `json:"chunks,omitempty"`
	Citation string   `json:"citation,omitempty"`
	Fallback string   `json:"fallback,omitempty"`
}

// Hit is one search match with a context snippet.
type Hit struct {
	Title    string `json:"title"`
	Snippet  string `json:"snippet"`
	Citation string `json:"citation"`
}

// SearchResult is the answer to a free-text search.
type SearchResult struct {
	Found    bool   `json:"found"`
	Results  []Hit  `json:"results,omitempty"`
	Fallback string `json:"fallback,omitempty"`
}

// Reference is a knowledge entry surfaced without an explicit query.
type Reference struct {
	Title    string `json:"title"`
	Content  string `json:"content"`
	Citation string `json:"citation"`
}

// Service reads the knowledge base.
type Service struct {
	store Store
}

// NewService wires a knowledge base service.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// Lookup fetches the entry behind an exact anchor.
func (s *Service) Lookup(ctx context.Context, anchor string) (LookupResult, error) {
	entry, ok, err := s.store.GetKBEntry(ctx, anchor)
	if err != nil {
		return LookupResult{}, fmt.Errorf("kb lookup %q: %w", anchor, err)
	}
	if !ok {
		return LookupResult{
			Found:    false,
			Fallback: "No specific guidance found. Follow standard procedures.",
		}, nil
	}
	return LookupResult{
		Found:    true,
		Title:    entry.Title,
		Content:  entry.Content,
		Chunks:   entry.Chunks,
		Citation: citation(entry),
	}, nil
}

// Search matches query text against titles and content, capped at three
// hits, each with a snippet centered on the first match.
func (s *Service) Search(ctx context.Context, query string) (SearchResult, error) {
	entries, err := s.store.SearchKB(ctx, query)
	if err != nil {
		return SearchResult{}, fmt.Errorf("kb search %q: %w", query, err)
	}
	if len(entries) == 0 {
		return SearchResult{
			Found:    false,
			Fallback: fallbackFor(query),
		}, nil
	}
	if len(entries) > maxSearchResults {
		entries = entries[:maxSearchResults]
	}

	hits := make([]Hit, 0, len(entries))
	for _, e := range entries {
		hits = append(hits, Hit{
			Title:    e.Title,
			Snippet:  extractSnippet(e.Content, query),
			Citation: citation(e),
		})
	}
	return SearchResult{Found: true, Results: hits}, nil
}

// Relevant picks entries by topic for a session with no explicit query.
// High risk pulls fraud-detection, a freeze in flight pulls card-freeze,
// otherwise customer-verification.
func (s *Service) Relevant(ctx context.Context, riskScore float64, action string) ([]Reference, error) {
	var topics []string
	if riskScore > 0.7 {
		topics = append(topics, "fraud-detection")
	}
	if action == "FREEZE_CARD" {
		topics = append(topics, "card-freeze")
	}
	if len(topics) == 0 {
		topics = append(topics, "customer-verification")
	}

	var refs []Reference
	for _, topic := range topics {
		entry, ok, err := s.store.GetKBEntry(ctx, topic)
		if err != nil {
			return nil, fmt.Errorf("kb topic %q: %w", topic, err)
		}
		if !ok {
			continue
		}
		content := entry.Content
		if len(entry.Chunks) > 0 {
			content = entry.Chunks[0]
		}
		refs = append(refs, Reference{
			Title:    entry.Title,
			Content:  content,
			Citation: citation(entry),
		})
	}
	return refs, nil
}

func citation(e *fraud.KBEntry) string {
	return fmt.Sprintf("[%s](%s)", e.Title, e.Anchor)
}

// extractSnippet returns up to 50 characters of context on each side of
// the first case-insensitive occurrence of query, or the leading 150
// characters when the query only matched elsewhere (title, tags).
func extractSnippet(content, query string) string {
	idx := strings.Index(strings.ToLower(content), strings.ToLower(query))
	if idx == -1 {
		if len(content) <= 150 {
			return content
		}
		return content[:150] + "..."
	}

	start := max(idx-50, 0)
	end := min(idx+len(query)+50, len(content))

	var b strings.Builder
	if start > 0 {
		b.WriteString("...")
	}
	b.WriteString(content[start:end])
	if end < len(content) {
		b.WriteString("...")
	}
	return b.String()
}

var fallbacks = []struct {
	keyword  string
	guidance string
}{
	{"fraud", "Follow standard fraud detection procedures. Escalate if risk score exceeds 0.7."},
	{"dispute", "Process dispute according to standard timeline. Issue provisional credit if applicable."},
	{"freeze", "Card freeze requires customer authentication. Notify customer immediately."},
}

func fallbackFor(query string) string {
	q := strings.ToLower(query)
	for _, f := range fallbacks {
		if strings.Contains(q, f.keyword) {
			return f.guidance
		}
	}
	return "No specific guidance found. Follow standard operating procedures."
}
