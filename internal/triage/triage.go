// Package triage runs fraud triage sessions: it scores a customer,
// decides, raises alerts, and streams progress to subscribers. It also
// owns the analyst-facing alert lifecycle.
package triage

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"

	"github.com/linnemanlabs/go-core/log"

	"github.com/linnemanlabs/fraudops/internal/fraud"
	"github.com/linnemanlabs/fraudops/internal/risk"
)

// alertThreshold is the overall risk above which a run raises an alert.
const alertThreshold = 0.5

// streamCleanupDelay is how long a finished session's stream stays
// subscribable before it is closed and dropped.
const streamCleanupDelay = 5 * time.Second

const eventBuffer = 16

// Notifier pushes high-severity alerts to analysts out of band.
type Notifier interface {
	AlertCreated(ctx context.Context, alert *fraud.Alert)
}

// Publisher emits domain events to the event bus.
type Publisher interface {
	TriageCompleted(ctx context.Context, res RunResult) error
	AlertCreated(ctx context.Context, alert *fraud.Alert) error
}

// Service runs triage and manages alerts.
type Service struct {
	store     fraud.Store
	logger    log.Logger
	hooks     Hooks
	notifier  Notifier
	publisher Publisher

	mu           sync.Mutex
	streams      map[string]chan Event
	cleanupDelay time.Duration
	now          func() time.Time
}

// NewService wires a triage service. notifier and publisher may be nil.
func NewService(store fraud.Store, logger log.Logger, hooks Hooks, notifier Notifier, publisher Publisher) *Service {
	return &Service{
		store:        store,
		logger:       logger.With("component", "triage"),
		hooks:        hooks,
		notifier:     notifier,
		publisher:    publisher,
		streams:      make(map[string]chan Event),
		cleanupDelay: streamCleanupDelay,
		now:          time.Now,
	}
}

// Subscribe returns the progress stream for a session. The second
// return is false when the session is unknown or already cleaned up.
func (s *Service) Subscribe(sessionID string) (<-chan Event, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch, ok := s.streams[sessionID]
	return ch, ok
}

// emit delivers an event to the session's stream. Slow subscribers drop
// events rather than blocking the run.
func (s *Service) emit(sessionID string, ev Event) {
	s.mu.Lock()
	ch, ok := s.streams[sessionID]
	s.mu.Unlock()
	if !ok {
		return
	}
	select {
	case ch <- ev:
	default:
	}
}

// closeStream drops the session after the cleanup delay, letting late
// subscribers catch the buffered tail first.
func (s *Service) closeStream(sessionID string) {
	time.AfterFunc(s.cleanupDelay, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if ch, ok := s.streams[sessionID]; ok {
			close(ch)
			delete(s.streams, sessionID)
		}
	})
}

// Run executes a triage session. The work continues even if the caller
// disconnects; only the returned values are tied to the request.
func (s *Service) Run(ctx context.Context, req Request) (RunResult, error) {
	sessionID := uuid.NewString()
	start := s.now()

	s.mu.Lock()
	s.streams[sessionID] = make(chan Event, eventBuffer)
	s.mu.Unlock()

	ctx = context.WithoutCancel(ctx)
	L := s.logger.With("session_id", sessionID, "customer_id", req.CustomerID)
	L.Info(ctx, "triage started", "transaction_id", req.TransactionID, "alert_id", req.AlertID)

	s.emit(sessionID, Event{Type: "start", Message: "Starting fraud triage", SessionID: sessionID})

	result, err := s.runStages(ctx, sessionID, req)
	duration := s.now().Sub(start).Seconds()

	if err != nil {
		s.emit(sessionID, Event{Type: "error", Message: "Triage failed", Error: err.Error()})
		s.closeStream(sessionID)
		L.Error(ctx, err, "triage failed")
		return RunResult{SessionID: sessionID, Duration: duration}, err
	}

	s.emit(sessionID, Event{Type: "complete", Message: "Triage completed", Result: &result, Duration: duration})
	s.closeStream(sessionID)

	if s.hooks.OnTriage != nil {
		s.hooks.OnTriage(result.Decision, duration)
	}
	L.Info(ctx, "triage completed", "decision", result.Decision, "risk_score", result.RiskScore, "duration", duration)

	run := RunResult{SessionID: sessionID, Result: result, Duration: duration}
	if s.publisher != nil {
		if err := s.publisher.TriageCompleted(ctx, run); err != nil {
			L.Warn(ctx, "triage event publish failed", "error", err.Error())
		}
	}
	return run, nil
}

// stage labels double as trace action labels.
const (
	stageProfile         = "Fetching customer profile"
	stageTransactions    = "Analyzing transaction patterns"
	stageRisk            = "Evaluating risk factors"
	stageRecommendations = "Generating recommendations"
	stageComplete        = "complete"
)

func (s *Service) runStages(ctx context.Context, sessionID string, req Request) (Result, error) {
	runStart := s.now()
	stageStart := runStart

	trace := func(stage string, input, output any, stageErr error) {
		now := s.now()
		errText := ""
		if stageErr != nil {
			errText = stageErr.Error()
		}
		t := &fraud.AgentTrace{
			ID:        ulid.Make().String(),
			SessionID: sessionID,
			AgentName: "triage",
			Action:    stage,
			Input:     input,
			Output:    output,
			Error:     errText,
			Duration:  now.Sub(stageStart).Seconds(),
			CreatedAt: now.UTC(),
		}
		if err := s.store.CreateTrace(ctx, t); err != nil {
			s.logger.Error(ctx, err, "failed to save triage trace", "stage", stage)
		}
		stageStart = now
	}

	s.emit(sessionID, Event{Type: "progress", Message: stageProfile, Step: 1})
	customer, ok, err := s.store.GetCustomer(ctx, req.CustomerID)
	if err != nil {
		trace(stageProfile, req, nil, err)
		return Result{}, err
	}
	if !ok {
		err := fraud.NotFoundf("customer", req.CustomerID)
		trace(stageProfile, req, nil, err)
		return Result{}, err
	}
	trace(stageProfile, req, customer.ID, nil)

	s.emit(sessionID, Event{Type: "progress", Message: stageTransactions, Step: 2})
	now := s.now()
	txns, err := s.store.ListTransactions(ctx, req.CustomerID, now.Add(-risk.Window))
	if err != nil {
		trace(stageTransactions, req.CustomerID, nil, err)
		return Result{}, err
	}
	devices, err := s.store.ListDevices(ctx, req.CustomerID)
	if err != nil {
		trace(stageTransactions, req.CustomerID, nil, err)
		return Result{}, err
	}
	trace(stageTransactions, req.CustomerID, map[string]int{"transactions": len(txns), "devices": len(devices)}, nil)

	s.emit(sessionID, Event{Type: "progress", Message: stageRisk, Step: 3})
	chargebacks, err := s.store.CountChargebacks(ctx, req.CustomerID)
	if err != nil {
		trace(stageRisk, req.CustomerID, nil, err)
		return Result{}, err
	}
	alerts, err := s.store.CountAlertsExcluding(ctx, req.CustomerID, fraud.AlertFalsePositive)
	if err != nil {
		trace(stageRisk, req.CustomerID, nil, err)
		return Result{}, err
	}

	assessment := risk.Score(risk.Input{
		Flags:           customer.RiskFlags,
		Transactions:    txns,
		Devices:         devices,
		ChargebackCount: chargebacks,
		AlertCount:      alerts,
		Now:             now,
	})
	trace(stageRisk, req.CustomerID, assessment.OverallRisk, nil)

	s.emit(sessionID, Event{Type: "progress", Message: stageRecommendations, Step: 4})
	result := Result{
		CustomerID:      req.CustomerID,
		TransactionID:   req.TransactionID,
		AlertID:         req.AlertID,
		RiskScore:       assessment.OverallRisk,
		Decision:        Decision(assessment.OverallRisk),
		Severity:        SeverityFor(assessment.OverallRisk),
		Signals:         assessment.Signals,
		Recommendations: assessment.Recommendations,
		Timestamp:       s.now().UTC(),
	}
	trace(stageRecommendations, req.CustomerID, result.Decision, nil)

	if req.AlertID == "" && assessment.OverallRisk > alertThreshold {
		alert, err := s.raiseAlert(ctx, req, result)
		if err != nil {
			trace(stageComplete, req, nil, err)
			return Result{}, err
		}
		result.AlertID = alert.ID
	}
	trace(stageComplete, req, result, nil)

	return result, nil
}

// raiseAlert persists a new PENDING alert carrying the run's verdict.
func (s *Service) raiseAlert(ctx context.Context, req Request, result Result) (*fraud.Alert, error) {
	metadata := map[string]any{}
	if req.TransactionID != "" {
		metadata["transactionId"] = req.TransactionID
		if txn, ok, err := s.store.GetTransaction(ctx, req.TransactionID); err == nil && ok {
			metadata["cardId"] = txn.CardID
			metadata["amount"] = txn.Amount
		}
	}

	alert := &fraud.Alert{
		ID:         ulid.Make().String(),
		CustomerID: req.CustomerID,
		Type:       fraud.AlertTypeFraud,
		Severity:   fraud.AlertSeverity(result.Severity),
		RiskScore:  result.RiskScore,
		Reasons:    result.Recommendations,
		Status:     fraud.AlertPending,
		Metadata:   metadata,
		CreatedAt:  s.now().UTC(),
	}
	if err := s.store.CreateAlert(ctx, alert); err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "alert raised", "alert_id", alert.ID, "severity", string(alert.Severity), "risk_score", alert.RiskScore)
	if s.hooks.OnAlertCreated != nil {
		s.hooks.OnAlertCreated(string(alert.Severity))
	}
	if s.notifier != nil && (alert.Severity == fraud.SeverityHigh || alert.Severity == fraud.SeverityCritical) {
		s.notifier.AlertCreated(ctx, alert)
	}
	if s.publisher != nil {
		if err := s.publisher.AlertCreated(ctx, alert); err != nil {
			s.logger.Warn(ctx, "alert event publish failed", "alert_id", alert.ID, "error", err.Error())
		}
	}
	return alert, nil
}

// RiskSignals scores a customer without running a full triage session.
func (s *Service) RiskSignals(ctx context.Context, customerID string) (risk.Assessment, error) {
	customer, ok, err := s.store.GetCustomer(ctx, customerID)
	if err != nil {
		return risk.Assessment{}, err
	}
	if !ok {
		return risk.Assessment{}, fraud.NotFoundf("customer", customerID)
	}

	now := s.now()
	txns, err := s.store.ListTransactions(ctx, customerID, now.Add(-risk.Window))
	if err != nil {
		return risk.Assessment{}, err
	}
	devices, err := s.store.ListDevices(ctx, customerID)
	if err != nil {
		return risk.Assessment{}, err
	}
	chargebacks, err := s.store.CountChargebacks(ctx, customerID)
	if err != nil {
		return risk.Assessment{}, err
	}
	alerts, err := s.store.CountAlertsExcluding(ctx, customerID, fraud.AlertFalsePositive)
	if err != nil {
		return risk.Assessment{}, err
	}

	return risk.Score(risk.Input{
		Flags:           customer.RiskFlags,
		Transactions:    txns,
		Devices:         devices,
		ChargebackCount: chargebacks,
		AlertCount:      alerts,
		Now:             now,
	}), nil
}
