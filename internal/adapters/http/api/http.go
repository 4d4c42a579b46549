// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/okian/coach/internal/adapters/llm"
	service "github.com/okian/coach/internal/app"
	"github.com/okian/coach/internal/domain/coach"
	"github.com/okian/coach/internal/domain/profile"
)

// maxBodyBytes bounds every request body.
const maxBodyBytes = 1 << 20

// Dependencies required by HTTP handlers. *service.Service satisfies it.
type Dependencies interface {
	StatsProvider

	Submit(ctx context.Context, eventID, playerID string, e profile.Evaluation) (service.Submission, error)

	Profile(ctx context.Context, playerID string) (profile.Profile, error)
	CreateProfile(ctx context.Context, playerID string, level profile.SkillLevel) (profile.Profile, error)
	FocusAreas(ctx context.Context, playerID string, topN int) ([]string, error)
	Difficulty(ctx context.Context, playerID string) (service.DifficultyView, error)
	PromoteSkill(ctx context.Context, playerID string) (profile.Profile, bool, error)
	Recommendations(ctx context.Context, playerID string) (profile.Recommendation, error)
	SessionSummary(ctx context.Context, playerID string) (profile.SessionSummary, error)

	NextScenario(ctx context.Context, playerID string, req coach.ScenarioRequest) (coach.Scenario, error)
	EvaluateDecision(ctx context.Context, playerID string, sc coach.Scenario, action string, decisionTime time.Duration) (service.DecisionResult, error)

	Export(ctx context.Context, playerID string) (service.ExportDocument, error)
	Import(ctx context.Context, doc service.ExportDocument, overwrite bool) (profile.Profile, error)
}

// Server wires HTTP routes for the coaching API.
type Server struct {
	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	evaluationsHandler *EvaluationsHandler
	playersHandler     *PlayersHandler
	coachingHandler    *CoachingHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies) *Server {
	return &Server{
		healthHandler:      NewHealthHandler(),
		statsHandler:       NewStatsHandler(deps),
		evaluationsHandler: NewEvaluationsHandler(deps),
		playersHandler:     NewPlayersHandler(deps),
		coachingHandler:    NewCoachingHandler(deps),
	}
}

// Register attaches all HTTP routes to r.
func (s *Server) Register(r chi.Router) {
	r.Use(middleware.RequestID, middleware.Recoverer)

	r.Get("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	r.Get("/metrics", MetricsMiddleware(s.healthHandler.HandleMetrics, "metrics"))
	r.Get("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	r.Post("/evaluations", MetricsMiddleware(s.evaluationsHandler.HandlePostEvaluation, "evaluations"))

	r.Route("/players", func(r chi.Router) {
		r.Post("/", MetricsMiddleware(s.playersHandler.HandleCreate, "players_create"))
		r.Post("/import", MetricsMiddleware(s.playersHandler.HandleImport, "players_import"))
		r.Route("/{playerID}", func(r chi.Router) {
			r.Get("/", MetricsMiddleware(s.playersHandler.HandleGet, "players_get"))
			r.Get("/focus", MetricsMiddleware(s.playersHandler.HandleFocus, "players_focus"))
			r.Get("/difficulty", MetricsMiddleware(s.playersHandler.HandleDifficulty, "players_difficulty"))
			r.Post("/difficulty", MetricsMiddleware(s.playersHandler.HandlePromote, "players_promote"))
			r.Get("/recommendations", MetricsMiddleware(s.playersHandler.HandleRecommendations, "players_recommendations"))
			r.Get("/session", MetricsMiddleware(s.playersHandler.HandleSession, "players_session"))
			r.Get("/export", MetricsMiddleware(s.playersHandler.HandleExport, "players_export"))
			r.Post("/scenarios", MetricsMiddleware(s.coachingHandler.HandleScenario, "scenarios"))
			r.Post("/decisions", MetricsMiddleware(s.coachingHandler.HandleDecision, "decisions"))
		})
	})
}

// Handler returns a router with every route registered.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	s.Register(r)
	return r
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// fail maps a domain error to its status and code.
func fail(w http.ResponseWriter, op string, err error) {
	status, code := classify(err)
	writeError(w, status, code, Wrap(op, err))
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, ErrBadRequest),
		errors.Is(err, service.ErrInvalidPlayerID),
		errors.Is(err, service.ErrInvalidExport),
		errors.Is(err, profile.ErrInvalidEvaluation),
		errors.Is(err, profile.ErrUnknownSkillLevel),
		errors.Is(err, coach.ErrInvalidRequest),
		errors.Is(err, coach.ErrInvalidCard):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, service.ErrProfileExists):
		return http.StatusConflict, "conflict"
	case errors.Is(err, ErrBackpressure), errors.Is(err, service.ErrBackpressure):
		return http.StatusTooManyRequests, "backpressure"
	case errors.Is(err, service.ErrNoLLM):
		return http.StatusServiceUnavailable, "llm_unavailable"
	case errors.Is(err, service.ErrNotStarted), errors.Is(err, service.ErrStopped):
		return http.StatusServiceUnavailable, "unavailable"
	case errors.Is(err, coach.ErrInvalidResponse),
		errors.Is(err, llm.ErrAllProvidersFailed),
		errors.Is(err, llm.ErrEmptyResponse):
		return http.StatusBadGateway, "bad_gateway"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "timeout"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

// decode reads one bounded JSON body.
func decode(r *http.Request, w http.ResponseWriter, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return err
	}
	if dec.More() {
		return errors.New("unexpected data after JSON body")
	}
	return nil
}
