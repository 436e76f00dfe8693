package triage

import (
	"context"
	"sort"
	"time"

	"github.com/linnemanlabs/fraudops/internal/fraud"
)

const (
	defaultAlertPage = 50
	queueCap         = 100
)

// Pagination echoes the window a page was cut from.
type Pagination struct {
	Total int `json:"total"`
	Skip  int `json:"skip"`
	Take  int `json:"take"`
}

// AlertPage is one page of alerts with its pagination envelope.
type AlertPage struct {
	Alerts     []*fraud.Alert `json:"alerts"`
	Pagination Pagination     `json:"pagination"`
}

// Queue is the analyst work queue with per-status counts.
type Queue struct {
	Queue []*fraud.Alert `json:"queue"`
	Stats map[string]int `json:"stats"`
}

// AlertUpdate carries an analyst's change to an alert.
type AlertUpdate struct {
	Status     fraud.AlertStatus `json:"status"`
	TriageData map[string]any    `json:"triageData,omitempty"`
}

// GetAlert fetches one alert.
func (s *Service) GetAlert(ctx context.Context, id string) (*fraud.Alert, error) {
	alert, ok, err := s.store.GetAlert(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fraud.NotFoundf("alert", id)
	}
	return alert, nil
}

// GetAlerts pages through alerts, severity descending then newest
// first. The default page size is 50.
func (s *Service) GetAlerts(ctx context.Context, q fraud.AlertQuery) (AlertPage, error) {
	if q.Take <= 0 {
		q.Take = defaultAlertPage
	}
	if q.Skip < 0 {
		q.Skip = 0
	}

	unpaged := q
	unpaged.Skip, unpaged.Take = 0, 0
	all, err := s.store.ListAlerts(ctx, unpaged)
	if err != nil {
		return AlertPage{}, err
	}

	alerts, err := s.store.ListAlerts(ctx, q)
	if err != nil {
		return AlertPage{}, err
	}

	return AlertPage{
		Alerts:     alerts,
		Pagination: Pagination{Total: len(all), Skip: q.Skip, Take: q.Take},
	}, nil
}

// UpdateAlert applies an analyst's status change. Moving to RESOLVED or
// FALSE_POSITIVE stamps the resolution time; any other status clears
// it. Transitions are not otherwise guarded.
func (s *Service) UpdateAlert(ctx context.Context, id string, update AlertUpdate) (*fraud.Alert, error) {
	if !validAlertStatus(update.Status) {
		return nil, fraud.Validationf("status", "unknown alert status %q", string(update.Status))
	}

	alert, ok, err := s.store.GetAlert(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fraud.NotFoundf("alert", id)
	}

	alert.Status = update.Status
	if update.TriageData != nil {
		alert.TriageData = update.TriageData
	}
	if update.Status == fraud.AlertResolved || update.Status == fraud.AlertFalsePositive {
		alert.ResolvedAt = s.now().UTC()
	} else {
		alert.ResolvedAt = time.Time{}
	}

	if err := s.store.UpdateAlert(ctx, alert); err != nil {
		return nil, err
	}
	if s.hooks.OnAlertUpdated != nil {
		s.hooks.OnAlertUpdated(string(update.Status))
	}
	s.logger.Info(ctx, "alert updated", "alert_id", id, "status", string(update.Status))
	return alert, nil
}

// GetQueue returns the analyst work queue: most severe first, oldest
// first within a severity, capped at 100. Stats count every alert by
// status regardless of the filter.
func (s *Service) GetQueue(ctx context.Context, status fraud.AlertStatus) (Queue, error) {
	all, err := s.store.ListAlerts(ctx, fraud.AlertQuery{})
	if err != nil {
		return Queue{}, err
	}

	stats := make(map[string]int)
	queue := make([]*fraud.Alert, 0, len(all))
	for _, alert := range all {
		stats[string(alert.Status)]++
		if status == "" || alert.Status == status {
			queue = append(queue, alert)
		}
	}

	sort.SliceStable(queue, func(i, j int) bool {
		ri, rj := severityRank(queue[i].Severity), severityRank(queue[j].Severity)
		if ri != rj {
			return ri > rj
		}
		return queue[i].CreatedAt.Before(queue[j].CreatedAt)
	})
	if len(queue) > queueCap {
		queue = queue[:queueCap]
	}

	return Queue{Queue: queue, Stats: stats}, nil
}

// UpdateRiskLevel writes the analyst-assigned risk level into the
// customer's flags.
func (s *Service) UpdateRiskLevel(ctx context.Context, customerID, level string) (*fraud.Customer, error) {
	switch level {
	case "LOW", "MEDIUM", "HIGH":
	default:
		return nil, fraud.Validationf("riskLevel", "risk level must be LOW, MEDIUM or HIGH, got %q", level)
	}

	customer, ok, err := s.store.GetCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fraud.NotFoundf("customer", customerID)
	}

	customer.RiskFlags.Level = level
	updated, err := s.store.UpdateCustomerFlags(ctx, customerID, customer.RiskFlags)
	if err != nil {
		return nil, err
	}
	s.logger.Info(ctx, "customer risk level updated", "customer_id", customerID, "level", level)
	return updated, nil
}

func validAlertStatus(status fraud.AlertStatus) bool {
	switch status {
	case fraud.AlertPending, fraud.AlertInReview, fraud.AlertResolved, fraud.AlertFalsePositive, fraud.AlertEscalated:
		return true
	}
	return false
}

func severityRank(severity fraud.AlertSeverity) int {
	switch severity {
	case fraud.SeverityCritical:
		return 3
	case fraud.SeverityHigh:
		return 2
	case fraud.SeverityMedium:
		return 1
	}
	return 0
}
