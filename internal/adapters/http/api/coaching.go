package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/okian/coach/internal/domain/coach"
)

// maxDecisionTime bounds the reported thinking time.
const maxDecisionTime = time.Hour

// CoachingHandler serves the model-backed routes.
type CoachingHandler struct {
	deps Dependencies
}

// NewCoachingHandler creates a new coaching handler.
func NewCoachingHandler(deps Dependencies) *CoachingHandler {
	return &CoachingHandler{deps: deps}
}

// HandleScenario handles POST /players/{playerID}/scenarios. An empty body
// lets the coach pick everything.
func (h *CoachingHandler) HandleScenario(w http.ResponseWriter, r *http.Request) {
	const op = "api.scenario"
	var req coach.ScenarioRequest
	if r.ContentLength != 0 {
		if err := decode(r, w, &req); err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
			return
		}
	}
	sc, err := h.deps.NextScenario(r.Context(), chi.URLParam(r, "playerID"), req)
	if err != nil {
		fail(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, sc)
}

type decisionRequest struct {
	Scenario       json.RawMessage `json:"scenario"`
	Action         string          `json:"action"`
	DecisionTimeMs int64           `json:"decisionTimeMs"`
}

// HandleDecision handles POST /players/{playerID}/decisions. The scenario is
// the one returned by the scenarios route, echoed back.
func (h *CoachingHandler) HandleDecision(w http.ResponseWriter, r *http.Request) {
	const op = "api.decision"
	var req decisionRequest
	if err := decode(r, w, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if len(req.Scenario) == 0 || req.DecisionTimeMs < 0 {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}
	sc, err := coach.ParseScenario(string(req.Scenario))
	if err != nil {
		// The scenario came from the client here, not the model.
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	took := time.Duration(min(req.DecisionTimeMs, maxDecisionTime.Milliseconds())) * time.Millisecond

	res, err := h.deps.EvaluateDecision(r.Context(), chi.URLParam(r, "playerID"), sc, req.Action, took)
	if err != nil {
		fail(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
