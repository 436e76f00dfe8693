package api

import (
	"net/http"

	"github.com/linnemanlabs/fraudops/internal/actions"
	"github.com/linnemanlabs/fraudops/internal/fraud"
)

type cardActionRequest struct {
	CardID string `json:"cardId"`
	OTP    string `json:"otp,omitempty"`
}

func (a *API) handleFreezeCard(w http.ResponseWriter, r *http.Request) {
	var req cardActionRequest
	if !a.decode(w, r, &req) {
		return
	}
	if req.CardID == "" {
		a.writeError(w, r, fraud.Validationf("cardId", "card id required"))
		return
	}

	res, err := a.actions.FreezeCard(r.Context(), req.CardID, req.OTP)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	a.writeJSON(w, http.StatusOK, res)
}

func (a *API) handleUnfreezeCard(w http.ResponseWriter, r *http.Request) {
	var req cardActionRequest
	if !a.decode(w, r, &req) {
		return
	}
	if req.CardID == "" {
		a.writeError(w, r, fraud.Validationf("cardId", "card id required"))
		return
	}

	res, err := a.actions.UnfreezeCard(r.Context(), req.CardID, req.OTP)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	a.writeJSON(w, http.StatusOK, res)
}

func (a *API) handleOpenDispute(w http.ResponseWriter, r *http.Request) {
	var req actions.DisputeRequest
	if !a.decode(w, r, &req) {
		return
	}

	res, err := a.actions.OpenDispute(r.Context(), req)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	a.writeJSON(w, http.StatusOK, res)
}

func (a *API) handleContactCustomer(w http.ResponseWriter, r *http.Request) {
	var req actions.ContactRequest
	if !a.decode(w, r, &req) {
		return
	}

	res, err := a.actions.ContactCustomer(r.Context(), req)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	a.writeJSON(w, http.StatusOK, res)
}
