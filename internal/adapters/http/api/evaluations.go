package api

import (
	"context"
	"net/http"
	"strings"

	service "github.com/okian/coach/internal/app"
	"github.com/okian/coach/internal/domain/profile"
)

// EvaluationDependencies is what POST /evaluations needs.
type EvaluationDependencies interface {
	Submit(ctx context.Context, eventID, playerID string, e profile.Evaluation) (service.Submission, error)
}

// EvaluationsHandler accepts judged decisions for asynchronous recording.
type EvaluationsHandler struct {
	deps EvaluationDependencies
}

// NewEvaluationsHandler creates a new evaluations handler.
func NewEvaluationsHandler(deps EvaluationDependencies) *EvaluationsHandler {
	return &EvaluationsHandler{deps: deps}
}

// evaluationRequest mirrors the OpenAPI schema for POST /evaluations.
type evaluationRequest struct {
	EventID        string   `json:"eventId"`
	PlayerID       string   `json:"playerId"`
	Correct        *bool    `json:"correct"`
	LeakIdentified string   `json:"leakIdentified"`
	Severity       float64  `json:"severity"`
	EVDelta        *float64 `json:"evDelta"`
}

func (e evaluationRequest) validate() error {
	switch {
	case strings.TrimSpace(e.PlayerID) == "":
		return service.ErrInvalidPlayerID
	case e.Correct == nil:
		return NewKind("correct", ErrBadRequest)
	}
	return nil
}

func (e evaluationRequest) evaluation() profile.Evaluation {
	return profile.Evaluation{
		Correct:        *e.Correct,
		LeakIdentified: e.LeakIdentified,
		Severity:       e.Severity,
		EVDelta:        e.EVDelta,
	}
}

type ackResponse struct {
	Status    string          `json:"status"`
	EventID   string          `json:"eventId"`
	Duplicate bool            `json:"duplicate"`
	Warnings  []profile.Issue `json:"warnings,omitempty"`
}

// HandlePostEvaluation handles POST /evaluations requests.
func (h *EvaluationsHandler) HandlePostEvaluation(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_evaluation"
	var req evaluationRequest
	if err := decode(r, w, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := req.validate(); err != nil {
		fail(w, op, err)
		return
	}

	sub, err := h.deps.Submit(r.Context(), req.EventID, req.PlayerID, req.evaluation())
	if err != nil {
		fail(w, op, err)
		return
	}
	if sub.Duplicate {
		writeJSON(w, http.StatusOK, ackResponse{Status: "duplicate", EventID: sub.EventID, Duplicate: true, Warnings: sub.Warnings})
		return
	}
	writeJSON(w, http.StatusAccepted, ackResponse{Status: "accepted", EventID: sub.EventID, Warnings: sub.Warnings})
}
