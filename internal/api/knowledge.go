package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/linnemanlabs/fraudops/internal/fraud"
)

func (a *API) handleLookupKB(w http.ResponseWriter, r *http.Request) {
	res, err := a.kb.Lookup(r.Context(), chi.URLParam(r, "anchor"))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	a.writeJSON(w, http.StatusOK, res)
}

func (a *API) handleSearchKB(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("query")
	if query == "" {
		a.writeError(w, r, fraud.Validationf("query", "query parameter required"))
		return
	}

	res, err := a.kb.Search(r.Context(), query)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	a.writeJSON(w, http.StatusOK, res)
}

func (a *API) handleInsights(w http.ResponseWriter, r *http.Request) {
	report, err := a.insights.Build(r.Context(), chi.URLParam(r, "customerId"))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	a.writeJSON(w, http.StatusOK, report)
}
