package api

import (
	"encoding/json"
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/go-chi/chi/v5"

	"github.com/linnemanlabs/fraudops/internal/fraud"
	"github.com/linnemanlabs/fraudops/internal/triage"
)

func (a *API) handleTriage(w http.ResponseWriter, r *http.Request) {
	var req triage.Request
	if !a.decode(w, r, &req) {
		return
	}
	if req.CustomerID == "" {
		a.writeError(w, r, fraud.Validationf("customerId", "customer id required"))
		return
	}

	span := trace.SpanFromContext(r.Context())
	span.SetAttributes(attribute.String("fraudops.customer.id", req.CustomerID))

	res, err := a.triage.Run(r.Context(), req)
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	span.SetAttributes(attribute.String("fraudops.triage.decision", res.Result.Decision))
	a.writeJSON(w, http.StatusOK, res)
}

// handleTriageStream replays a session's progress events as SSE. The
// stream stays open until the session's channel closes or the client
// disconnects.
func (a *API) handleTriageStream(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionId")

	ch, ok := a.triage.Subscribe(sessionID)
	if !ok {
		a.writeError(w, r, fraud.NotFoundf("triage session", sessionID))
		return
	}

	flusher, canFlush := w.(http.Flusher)
	if !canFlush {
		a.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "streaming unsupported"})
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev, open := <-ch:
			if !open {
				return
			}
			payload, err := json.Marshal(ev)
			if err != nil {
				a.logger.Error(r.Context(), err, "failed to encode stream event", "session_id", sessionID)
				continue
			}
			if _, err := w.Write([]byte("data: ")); err != nil {
				return
			}
			if _, err := w.Write(payload); err != nil {
				return
			}
			if _, err := w.Write([]byte("\n\n")); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func (a *API) handleRiskSignals(w http.ResponseWriter, r *http.Request) {
	customerID := chi.URLParam(r, "customerId")

	assessment, err := a.triage.RiskSignals(r.Context(), customerID)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	a.writeJSON(w, http.StatusOK, assessment)
}
