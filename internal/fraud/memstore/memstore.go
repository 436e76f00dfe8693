// Package memstore provides an in-memory implementation of fraud.Store.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/linnemanlabs/fraudops/internal/fraud"
)

// Store holds the fraud domain entities in memory. Suitable for dev/testing
// and the demo seeder.
type Store struct {
	mu           sync.RWMutex
	customers    map[string]*fraud.Customer
	cards        map[string]*fraud.Card
	devices      map[string]*fraud.Device
	transactions map[string]*fraud.Transaction
	chargebacks  map[string]*fraud.Chargeback
	alerts       map[string]*fraud.Alert
	traces       []*fraud.AgentTrace
	kb           map[string]*fraud.KBEntry // anchor -> entry
}

// New initializes a new in-memory Store.
func New() *Store {
	return &Store{
		customers:    make(map[string]*fraud.Customer),
		cards:        make(map[string]*fraud.Card),
		devices:      make(map[string]*fraud.Device),
		transactions: make(map[string]*fraud.Transaction),
		chargebacks:  make(map[string]*fraud.Chargeback),
		alerts:       make(map[string]*fraud.Alert),
		kb:           make(map[string]*fraud.KBEntry),
	}
}

// GetCustomer retrieves a customer by ID. Returns a copy.
func (s *Store) GetCustomer(_ context.Context, id string) (*fraud.Customer, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.customers[id]
	if !ok {
		return nil, false, nil
	}
	cp := *c
	return &cp, true, nil
}

// UpdateCustomerFlags replaces a customer's risk flags.
func (s *Store) UpdateCustomerFlags(_ context.Context, id string, flags fraud.RiskFlags) (*fraud.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.customers[id]
	if !ok {
		return nil, fraud.NotFoundf("customer", id)
	}
	c.RiskFlags = flags
	c.UpdatedAt = time.Now().UTC()
	cp := *c
	return &cp, nil
}

// GetCard retrieves a card by ID. Returns a copy.
func (s *Store) GetCard(_ context.Context, id string) (*fraud.Card, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.cards[id]
	if !ok {
		return nil, false, nil
	}
	cp := *c
	return &cp, true, nil
}

// UpdateCardStatus sets a card's status.
func (s *Store) UpdateCardStatus(_ context.Context, id string, status fraud.CardStatus) (*fraud.Card, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.cards[id]
	if !ok {
		return nil, fraud.NotFoundf("card", id)
	}
	c.Status = status
	c.UpdatedAt = time.Now().UTC()
	cp := *c
	return &cp, nil
}

// ListDevices returns all devices for a customer.
func (s *Store) ListDevices(_ context.Context, customerID string) ([]*fraud.Device, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*fraud.Device
	for _, d := range s.devices {
		if d.CustomerID == customerID {
			cp := *d
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// GetTransaction retrieves a transaction by ID. Returns a copy.
func (s *Store) GetTransaction(_ context.Context, id string) (*fraud.Transaction, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.transactions[id]
	if !ok {
		return nil, false, nil
	}
	cp := *t
	return &cp, true, nil
}

// ListTransactions returns a customer's transactions at or after since,
// newest first.
func (s *Store) ListTransactions(_ context.Context, customerID string, since time.Time) ([]*fraud.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*fraud.Transaction
	for _, t := range s.transactions {
		if t.CustomerID == customerID && !t.Timestamp.Before(since) {
			cp := *t
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	return out, nil
}

// GetChargeback retrieves a chargeback by ID. Returns a copy.
func (s *Store) GetChargeback(_ context.Context, id string) (*fraud.Chargeback, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cb, ok := s.chargebacks[id]
	if !ok {
		return nil, false, nil
	}
	cp := *cb
	return &cp, true, nil
}

// CountChargebacks counts a customer's chargebacks.
func (s *Store) CountChargebacks(_ context.Context, customerID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, cb := range s.chargebacks {
		if cb.CustomerID == customerID {
			n++
		}
	}
	return n, nil
}

// CreateChargeback stores a copy of the chargeback.
func (s *Store) CreateChargeback(_ context.Context, cb *fraud.Chargeback) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *cb
	s.chargebacks[cb.ID] = &cp
	return nil
}

// GetAlert retrieves an alert by ID. Returns a copy.
func (s *Store) GetAlert(_ context.Context, id string) (*fraud.Alert, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.alerts[id]
	if !ok {
		return nil, false, nil
	}
	cp := copyAlert(a)
	return cp, true, nil
}

// ListAlerts returns alerts matching the query, sorted severity desc then
// createdAt desc, with skip/take pagination applied after sorting.
func (s *Store) ListAlerts(_ context.Context, q fraud.AlertQuery) ([]*fraud.Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*fraud.Alert
	for _, a := range s.alerts {
		if !matchAlert(a, q) {
			continue
		}
		out = append(out, copyAlert(a))
	}
	sort.Slice(out, func(i, j int) bool {
		ri, rj := severityRank(out[i].Severity), severityRank(out[j].Severity)
		if ri != rj {
			return ri > rj
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if q.Skip > 0 {
		if q.Skip >= len(out) {
			return nil, nil
		}
		out = out[q.Skip:]
	}
	if q.Take > 0 && q.Take < len(out) {
		out = out[:q.Take]
	}
	return out, nil
}

// CountAlertsExcluding counts a customer's alerts whose status is not
// exclude.
func (s *Store) CountAlertsExcluding(_ context.Context, customerID string, exclude fraud.AlertStatus) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, a := range s.alerts {
		if a.CustomerID == customerID && a.Status != exclude {
			n++
		}
	}
	return n, nil
}

// CreateAlert stores a copy of the alert.
func (s *Store) CreateAlert(_ context.Context, a *fraud.Alert) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.alerts[a.ID] = copyAlert(a)
	return nil
}

// UpdateAlert replaces a stored alert.
func (s *Store) UpdateAlert(_ context.Context, a *fraud.Alert) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.alerts[a.ID]; !ok {
		return fraud.NotFoundf("alert", a.ID)
	}
	s.alerts[a.ID] = copyAlert(a)
	return nil
}

// CreateTrace appends a copy of the agent trace.
func (s *Store) CreateTrace(_ context.Context, t *fraud.AgentTrace) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *t
	s.traces = append(s.traces, &cp)
	return nil
}

// Traces returns a snapshot of the stored traces for a session. Test helper.
func (s *Store) Traces(sessionID string) []*fraud.AgentTrace {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*fraud.AgentTrace
	for _, t := range s.traces {
		if t.SessionID == sessionID {
			cp := *t
			out = append(out, &cp)
		}
	}
	return out
}

// GetKBEntry retrieves a knowledge-base entry by anchor. Returns a copy.
func (s *Store) GetKBEntry(_ context.Context, anchor string) (*fraud.KBEntry, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.kb[anchor]
	if !ok {
		return nil, false, nil
	}
	cp := copyKB(e)
	return cp, true, nil
}

// SearchKB returns entries whose title, content, or tags contain the query,
// case-insensitive, ordered by anchor.
func (s *Store) SearchKB(_ context.Context, query string) ([]*fraud.KBEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	needle := strings.ToLower(query)
	var out []*fraud.KBEntry
	for _, e := range s.kb {
		if kbMatches(e, needle) {
			out = append(out, copyKB(e))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Anchor < out[j].Anchor })
	return out, nil
}

// CreateCustomer stores a copy of the customer.
func (s *Store) CreateCustomer(_ context.Context, c *fraud.Customer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *c
	s.customers[c.ID] = &cp
	return nil
}

// CreateCard stores a copy of the card.
func (s *Store) CreateCard(_ context.Context, c *fraud.Card) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *c
	s.cards[c.ID] = &cp
	return nil
}

// CreateDevice stores a copy of the device.
func (s *Store) CreateDevice(_ context.Context, d *fraud.Device) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *d
	s.devices[d.ID] = &cp
	return nil
}

// CreateTransaction stores a copy of the transaction.
func (s *Store) CreateTransaction(_ context.Context, t *fraud.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *t
	s.transactions[t.ID] = &cp
	return nil
}

// CreateKBEntry stores a copy of the knowledge-base entry, keyed by anchor.
func (s *Store) CreateKBEntry(_ context.Context, e *fraud.KBEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.kb[e.Anchor] = copyKB(e)
	return nil
}

func matchAlert(a *fraud.Alert, q fraud.AlertQuery) bool {
	if q.CustomerID != "" && a.CustomerID != q.CustomerID {
		return false
	}
	if q.Type != "" && a.Type != q.Type {
		return false
	}
	if q.Severity != "" && a.Severity != q.Severity {
		return false
	}
	if q.Status != "" && a.Status != q.Status {
		return false
	}
	if !q.From.IsZero() && a.CreatedAt.Before(q.From) {
		return false
	}
	if !q.To.IsZero() && a.CreatedAt.After(q.To) {
		return false
	}
	return true
}

func severityRank(s fraud.AlertSeverity) int {
	switch s {
	case fraud.SeverityCritical:
		return 3
	case fraud.SeverityHigh:
		return 2
	case fraud.SeverityMedium:
		return 1
	default:
		return 0
	}
}

func copyAlert(a *fraud.Alert) *fraud.Alert {
	cp := *a
	cp.Reasons = append([]string(nil), a.Reasons...)
	if a.Metadata != nil {
		cp.Metadata = make(map[string]any, len(a.Metadata))
		for k, v := range a.Metadata {
			cp.Metadata[k] = v
		}
	}
	if a.TriageData != nil {
		cp.TriageData = make(map[string]any, len(a.TriageData))
		for k, v := range a.TriageData {
			cp.TriageData[k] = v
		}
	}
	return &cp
}

func copyKB(e *fraud.KBEntry) *fraud.KBEntry {
	cp := *e
	cp.Chunks = append([]string(nil), e.Chunks...)
	cp.Tags = append([]string(nil), e.Tags...)
	return &cp
}

func kbMatches(e *fraud.KBEntry, needle string) bool {
	if needle == "" {
		return false
	}
	if strings.Contains(strings.ToLower(e.Title), needle) {
		return true
	}
	if strings.Contains(strings.ToLower(e.Content), needle) {
		return true
	}
	for _, t := range e.Tags {
		if strings.Contains(strings.ToLower(t), needle) {
			return true
		}
	}
	return false
}
