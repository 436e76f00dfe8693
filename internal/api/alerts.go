package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/linnemanlabs/fraudops/internal/fraud"
	"github.com/linnemanlabs/fraudops/internal/triage"
)

// alertQueryFromRequest maps the alert list filters off the query
// string. Unparseable skip/take/date values are ignored rather than
// rejected; the service applies its own defaults.
func alertQueryFromRequest(r *http.Request) fraud.AlertQuery {
	q := r.URL.Query()
	query := fraud.AlertQuery{
		CustomerID: q.Get("customerId"),
		Type:       fraud.AlertType(q.Get("type")),
		Severity:   fraud.AlertSeverity(q.Get("severity")),
		Status:     fraud.AlertStatus(q.Get("status")),
	}
	if v, err := strconv.Atoi(q.Get("skip")); err == nil {
		query.Skip = v
	}
	if v, err := strconv.Atoi(q.Get("take")); err == nil {
		query.Take = v
	}
	if t, err := time.Parse(time.RFC3339, q.Get("from")); err == nil {
		query.From = t
	}
	if t, err := time.Parse(time.RFC3339, q.Get("to")); err == nil {
		query.To = t
	}
	return query
}

func (a *API) handleListAlerts(w http.ResponseWriter, r *http.Request) {
	page, err := a.triage.GetAlerts(r.Context(), alertQueryFromRequest(r))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	a.writeJSON(w, http.StatusOK, page)
}

func (a *API) handleGetAlert(w http.ResponseWriter, r *http.Request) {
	alert, err := a.triage.GetAlert(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	a.writeJSON(w, http.StatusOK, alert)
}

func (a *API) handleUpdateAlert(w http.ResponseWriter, r *http.Request) {
	var update triage.AlertUpdate
	if !a.decode(w, r, &update) {
		return
	}

	alert, err := a.triage.UpdateAlert(r.Context(), chi.URLParam(r, "id"), update)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	a.writeJSON(w, http.StatusOK, alert)
}

func (a *API) handleQueue(w http.ResponseWriter, r *http.Request) {
	status := fraud.AlertStatus(r.URL.Query().Get("status"))

	queue, err := a.triage.GetQueue(r.Context(), status)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	a.writeJSON(w, http.StatusOK, queue)
}

func (a *API) handleUpdateRiskLevel(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RiskLevel string `json:"riskLevel"`
	}
	if !a.decode(w, r, &req) {
		return
	}

	customer, err := a.triage.UpdateRiskLevel(r.Context(), chi.URLParam(r, "id"), req.RiskLevel)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	a.writeJSON(w, http.StatusOK, customer)
}
