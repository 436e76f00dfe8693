// Package api exposes the fraud-operations console over HTTP. Routing
// is chi; handlers translate between JSON and the domain services and
// map the error taxonomy onto status codes.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/linnemanlabs/go-core/log"
	"github.com/linnemanlabs/go-core/xerrors"

	"github.com/linnemanlabs/fraudops/internal/actions"
	"github.com/linnemanlabs/fraudops/internal/agent"
	"github.com/linnemanlabs/fraudops/internal/fraud"
	"github.com/linnemanlabs/fraudops/internal/insights"
	"github.com/linnemanlabs/fraudops/internal/kb"
	"github.com/linnemanlabs/fraudops/internal/triage"
)

// CardStore is the direct read the card endpoint needs.
type CardStore interface {
	GetCard(ctx context.Context, id string) (*fraud.Card, bool, error)
}

// API holds dependencies for HTTP handlers.
type API struct {
	logger   log.Logger
	triage   *triage.Service
	actions  *actions.Service
	kb       *kb.Service
	insights *insights.Service
	executor *agent.Executor
	cards    CardStore
}

// New creates a new API handler.
func New(logger log.Logger, triageSvc *triage.Service, actionsSvc *actions.Service, kbSvc *kb.Service, insightsSvc *insights.Service, executor *agent.Executor, cards CardStore) *API {
	if logger == nil {
		logger = log.Nop()
	}
	if triageSvc == nil {
		panic(xerrors.New("triage service is required"))
	}
	if actionsSvc == nil {
		panic(xerrors.New("actions service is required"))
	}
	return &API{
		logger:   logger,
		triage:   triageSvc,
		actions:  actionsSvc,
		kb:       kbSvc,
		insights: insightsSvc,
		executor: executor,
		cards:    cards,
	}
}

// RegisterRoutes attaches API endpoints to the router.
func (a *API) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/fraud/triage", a.handleTriage)
		r.Get("/fraud/triage/{sessionId}/stream", a.handleTriageStream)
		r.Get("/fraud/risk-signals/{customerId}", a.handleRiskSignals)
		r.Get("/fraud/alerts", a.handleListAlerts)
		r.Get("/fraud/alerts/{id}", a.handleGetAlert)
		r.Put("/fraud/alerts/{id}", a.handleUpdateAlert)
		r.Get("/fraud/queue", a.handleQueue)

		r.Post("/action/freeze-card", a.handleFreezeCard)
		r.Post("/action/unfreeze-card", a.handleUnfreezeCard)
		r.Post("/action/open-dispute", a.handleOpenDispute)
		r.Post("/action/contact-customer", a.handleContactCustomer)

		r.Get("/cards/{id}", a.handleGetCard)
		r.Put("/customers/{id}/risk-level", a.handleUpdateRiskLevel)

		r.Get("/kb", a.handleSearchKB)
		r.Get("/kb/{anchor}", a.handleLookupKB)
		r.Get("/insights/{customerId}", a.handleInsights)

		r.Post("/agents/flow", a.handleAgentFlow)
	})
}

func (a *API) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps the domain error taxonomy to status codes: not-found
// is 404, validation is 400, everything else is an opaque 500.
func (a *API) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, fraud.ErrNotFound):
		a.writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case fraud.IsValidation(err):
		a.writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	default:
		a.logger.Error(r.Context(), err, "request failed", "path", r.URL.Path)
		a.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

func (a *API) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		a.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return false
	}
	return true
}

func (a *API) handleGetCard(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	card, ok, err := a.cards.GetCard(r.Context(), id)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	if !ok {
		a.writeError(w, r, fraud.NotFoundf("card", id))
		return
	}
	a.writeJSON(w, http.StatusOK, card)
}
