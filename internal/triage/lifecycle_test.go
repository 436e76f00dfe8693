package triage

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/linnemanlabs/go-core/log"

	"github.com/linnemanlabs/fraudops/internal/fraud"
	"github.com/linnemanlabs/fraudops/internal/fraud/memstore"
)

func seedAlert(t *testing.T, store *memstore.Store, id string, severity fraud.AlertSeverity, status fraud.AlertStatus, createdAt time.Time) {
	t.Helper()
	alert := &fraud.Alert{
		ID:         id,
		CustomerID: "c1",
		Type:       fraud.AlertTypeFraud,
		Severity:   severity,
		RiskScore:  0.5,
		Status:     status,
		CreatedAt:  createdAt,
	}
	if err := store.CreateAlert(context.Background(), alert); err != nil {
		t.Fatalf("seed alert %s: %v", id, err)
	}
}

func newLifecycleService(t *testing.T) (*Service, *memstore.Store) {
	t.Helper()
	store := memstore.New()
	customer := &fraud.Customer{ID: "c1", Name: "Jordan Blake"}
	if err := store.CreateCustomer(context.Background(), customer); err != nil {
		t.Fatalf("seed customer: %v", err)
	}
	return NewService(store, log.Nop(), Hooks{}, nil, nil), store
}

func TestGetAlert(t *testing.T) {
	t.Parallel()

	svc, store := newLifecycleService(t)
	seedAlert(t, store, "a1", fraud.SeverityHigh, fraud.AlertPending, time.Now().UTC())

	got, err := svc.GetAlert(context.Background(), "a1")
	if err != nil {
		t.Fatalf("GetAlert: %v", err)
	}
	if got.ID != "a1" {
		t.Errorf("id = %q", got.ID)
	}

	if _, err := svc.GetAlert(context.Background(), "missing"); !errors.Is(err, fraud.ErrNotFound) {
		t.Errorf("error = %v, want not found", err)
	}
}

func TestGetAlerts_Pagination(t *testing.T) {
	t.Parallel()

	svc, store := newLifecycleService(t)
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 7; i++ {
		seedAlert(t, store, fmt.Sprintf("a%d", i), fraud.SeverityLow, fraud.AlertPending, base.Add(time.Duration(i)*time.Minute))
	}

	page, err := svc.GetAlerts(context.Background(), fraud.AlertQuery{Skip: 2, Take: 3})
	if err != nil {
		t.Fatalf("GetAlerts: %v", err)
	}
	if len(page.Alerts) != 3 {
		t.Errorf("alerts = %d, want 3", len(page.Alerts))
	}
	if page.Pagination.Total != 7 {
		t.Errorf("total = %d, want 7", page.Pagination.Total)
	}
	if page.Pagination.Skip != 2 || page.Pagination.Take != 3 {
		t.Errorf("pagination = %+v", page.Pagination)
	}
	// Newest first within one severity; skip 2 lands on a4.
	if page.Alerts[0].ID != "a4" {
		t.Errorf("first alert = %q, want a4", page.Alerts[0].ID)
	}
}

func TestGetAlerts_DefaultPageSize(t *testing.T) {
	t.Parallel()

	svc, store := newLifecycleService(t)
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 55; i++ {
		seedAlert(t, store, fmt.Sprintf("a%d", i), fraud.SeverityLow, fraud.AlertPending, base.Add(time.Duration(i)*time.Second))
	}

	page, err := svc.GetAlerts(context.Background(), fraud.AlertQuery{})
	if err != nil {
		t.Fatalf("GetAlerts: %v", err)
	}
	if len(page.Alerts) != defaultAlertPage {
		t.Errorf("alerts = %d, want %d", len(page.Alerts), defaultAlertPage)
	}
	if page.Pagination.Total != 55 {
		t.Errorf("total = %d, want 55", page.Pagination.Total)
	}
}

func TestUpdateAlert_ResolvedStamp(t *testing.T) {
	t.Parallel()

	svc, store := newLifecycleService(t)
	seedAlert(t, store, "a1", fraud.SeverityHigh, fraud.AlertPending, time.Now().UTC())
	ctx := context.Background()

	got, err := svc.UpdateAlert(ctx, "a1", AlertUpdate{Status: fraud.AlertResolved, TriageData: map[string]any{"analyst": "rivera"}})
	if err != nil {
		t.Fatalf("UpdateAlert: %v", err)
	}
	if got.Status != fraud.AlertResolved {
		t.Errorf("status = %q", got.Status)
	}
	if got.ResolvedAt.IsZero() {
		t.Error("ResolvedAt not stamped")
	}
	if got.TriageData["analyst"] != "rivera" {
		t.Errorf("triage data = %v", got.TriageData)
	}

	// Reopening clears the resolution time.
	got, err = svc.UpdateAlert(ctx, "a1", AlertUpdate{Status: fraud.AlertInReview})
	if err != nil {
		t.Fatalf("UpdateAlert: %v", err)
	}
	if !got.ResolvedAt.IsZero() {
		t.Errorf("ResolvedAt = %v, want cleared", got.ResolvedAt)
	}

	got, err = svc.UpdateAlert(ctx, "a1", AlertUpdate{Status: fraud.AlertFalsePositive})
	if err != nil {
		t.Fatalf("UpdateAlert: %v", err)
	}
	if got.ResolvedAt.IsZero() {
		t.Error("ResolvedAt not stamped for FALSE_POSITIVE")
	}
}

func TestUpdateAlert_Validation(t *testing.T) {
	t.Parallel()

	svc, store := newLifecycleService(t)
	seedAlert(t, store, "a1", fraud.SeverityHigh, fraud.AlertPending, time.Now().UTC())

	if _, err := svc.UpdateAlert(context.Background(), "a1", AlertUpdate{Status: "CLOSED"}); !fraud.IsValidation(err) {
		t.Errorf("error = %v, want validation", err)
	}
	if _, err := svc.UpdateAlert(context.Background(), "missing", AlertUpdate{Status: fraud.AlertInReview}); !errors.Is(err, fraud.ErrNotFound) {
		t.Errorf("error = %v, want not found", err)
	}
}

func TestUpdateAlert_Hook(t *testing.T) {
	t.Parallel()

	store := memstore.New()
	seedAlert(t, store, "a1", fraud.SeverityHigh, fraud.AlertPending, time.Now().UTC())

	var statuses []string
	hooks := Hooks{OnAlertUpdated: func(status string) { statuses = append(statuses, status) }}
	svc := NewService(store, log.Nop(), hooks, nil, nil)

	if _, err := svc.UpdateAlert(context.Background(), "a1", AlertUpdate{Status: fraud.AlertEscalated}); err != nil {
		t.Fatalf("UpdateAlert: %v", err)
	}
	if len(statuses) != 1 || statuses[0] != "ESCALATED" {
		t.Errorf("statuses = %v", statuses)
	}
}

func TestGetQueue_Ordering(t *testing.T) {
	t.Parallel()

	svc, store := newLifecycleService(t)
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	seedAlert(t, store, "low-old", fraud.SeverityLow, fraud.AlertPending, base)
	seedAlert(t, store, "crit-new", fraud.SeverityCritical, fraud.AlertPending, base.Add(3*time.Minute))
	seedAlert(t, store, "crit-old", fraud.SeverityCritical, fraud.AlertPending, base.Add(time.Minute))
	seedAlert(t, store, "high", fraud.SeverityHigh, fraud.AlertInReview, base.Add(2*time.Minute))

	got, err := svc.GetQueue(context.Background(), "")
	if err != nil {
		t.Fatalf("GetQueue: %v", err)
	}
	wantOrder := []string{"crit-old", "crit-new", "high", "low-old"}
	if len(got.Queue) != len(wantOrder) {
		t.Fatalf("queue = %d, want %d", len(got.Queue), len(wantOrder))
	}
	for i, want := range wantOrder {
		if got.Queue[i].ID != want {
			t.Errorf("queue[%d] = %q, want %q", i, got.Queue[i].ID, want)
		}
	}
	if got.Stats["PENDING"] != 3 || got.Stats["IN_REVIEW"] != 1 {
		t.Errorf("stats = %v", got.Stats)
	}
}

func TestGetQueue_FilterKeepsFullStats(t *testing.T) {
	t.Parallel()

	svc, store := newLifecycleService(t)
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	seedAlert(t, store, "a1", fraud.SeverityHigh, fraud.AlertPending, base)
	seedAlert(t, store, "a2", fraud.SeverityHigh, fraud.AlertInReview, base.Add(time.Minute))
	seedAlert(t, store, "a3", fraud.SeverityLow, fraud.AlertResolved, base.Add(2*time.Minute))

	got, err := svc.GetQueue(context.Background(), fraud.AlertPending)
	if err != nil {
		t.Fatalf("GetQueue: %v", err)
	}
	if len(got.Queue) != 1 || got.Queue[0].ID != "a1" {
		t.Errorf("queue = %+v", got.Queue)
	}
	// Stats always cover every alert, not just the filtered view.
	if got.Stats["PENDING"] != 1 || got.Stats["IN_REVIEW"] != 1 || got.Stats["RESOLVED"] != 1 {
		t.Errorf("stats = %v", got.Stats)
	}
}

func TestGetQueue_Cap(t *testing.T) {
	t.Parallel()

	svc, store := newLifecycleService(t)
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < queueCap+10; i++ {
		seedAlert(t, store, fmt.Sprintf("a%d", i), fraud.SeverityMedium, fraud.AlertPending, base.Add(time.Duration(i)*time.Second))
	}

	got, err := svc.GetQueue(context.Background(), "")
	if err != nil {
		t.Fatalf("GetQueue: %v", err)
	}
	if len(got.Queue) != queueCap {
		t.Errorf("queue = %d, want %d", len(got.Queue), queueCap)
	}
	if got.Stats["PENDING"] != queueCap+10 {
		t.Errorf("stats = %v", got.Stats)
	}
	// Oldest first within a severity, so the cap drops the newest.
	if got.Queue[0].ID != "a0" {
		t.Errorf("first = %q, want a0", got.Queue[0].ID)
	}
}

func TestUpdateRiskLevel(t *testing.T) {
	t.Parallel()

	svc, store := newLifecycleService(t)
	ctx := context.Background()

	got, err := svc.UpdateRiskLevel(ctx, "c1", "HIGH")
	if err != nil {
		t.Fatalf("UpdateRiskLevel: %v", err)
	}
	if got.RiskFlags.Level != "HIGH" {
		t.Errorf("level = %q", got.RiskFlags.Level)
	}

	stored, ok, err := store.GetCustomer(ctx, "c1")
	if err != nil || !ok {
		t.Fatalf("get customer: ok=%v err=%v", ok, err)
	}
	if stored.RiskFlags.Level != "HIGH" {
		t.Errorf("stored level = %q", stored.RiskFlags.Level)
	}

	if _, err := svc.UpdateRiskLevel(ctx, "c1", "EXTREME"); !fraud.IsValidation(err) {
		t.Errorf("error = %v, want validation", err)
	}
	if _, err := svc.UpdateRiskLevel(ctx, "missing", "LOW"); !errors.Is(err, fraud.ErrNotFound) {
		t.Errorf("error = %v, want not found", err)
	}
}
