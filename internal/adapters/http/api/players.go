package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	service "github.com/okian/coach/internal/app"
	"github.com/okian/coach/internal/domain/profile"
)

// maxFocusTopN caps ?top= on the focus route.
const maxFocusTopN = 50

// PlayersHandler serves profile reads, creation, promotion and export.
type PlayersHandler struct {
	deps Dependencies
}

// NewPlayersHandler creates a new players handler.
func NewPlayersHandler(deps Dependencies) *PlayersHandler {
	return &PlayersHandler{deps: deps}
}

type createPlayerRequest struct {
	PlayerID   string `json:"playerId"`
	SkillLevel string `json:"skillLevel"`
}

// HandleCreate handles POST /players. An existing profile is returned with
// 409 and left unchanged.
func (h *PlayersHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	const op = "api.create_player"
	var req createPlayerRequest
	if err := decode(r, w, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	var level profile.SkillLevel
	if req.SkillLevel != "" {
		l, err := profile.ParseSkillLevel(req.SkillLevel)
		if err != nil {
			fail(w, op, err)
			return
		}
		level = l
	}
	p, err := h.deps.CreateProfile(r.Context(), req.PlayerID, level)
	if errors.Is(err, service.ErrProfileExists) {
		writeJSON(w, http.StatusConflict, p)
		return
	}
	if err != nil {
		fail(w, op, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

// HandleGet handles GET /players/{playerID}. Unknown players read as the
// default profile.
func (h *PlayersHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	p, err := h.deps.Profile(r.Context(), chi.URLParam(r, "playerID"))
	if err != nil {
		fail(w, "api.get_player", err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

type focusResponse struct {
	PlayerID   string   `json:"playerId"`
	FocusAreas []string `json:"focusAreas"`
}

// HandleFocus handles GET /players/{playerID}/focus?top=N.
func (h *PlayersHandler) HandleFocus(w http.ResponseWriter, r *http.Request) {
	const op = "api.focus"
	top := 0
	if raw := r.URL.Query().Get("top"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxFocusTopN {
			writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
			return
		}
		top = n
	}
	id := chi.URLParam(r, "playerID")
	areas, err := h.deps.FocusAreas(r.Context(), id, top)
	if err != nil {
		fail(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, focusResponse{PlayerID: id, FocusAreas: areas})
}

// HandleDifficulty handles GET /players/{playerID}/difficulty.
func (h *PlayersHandler) HandleDifficulty(w http.ResponseWriter, r *http.Request) {
	v, err := h.deps.Difficulty(r.Context(), chi.URLParam(r, "playerID"))
	if err != nil {
		fail(w, "api.difficulty", err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

type promoteResponse struct {
	Changed bool            `json:"changed"`
	Profile profile.Profile `json:"profile"`
}

// HandlePromote handles POST /players/{playerID}/difficulty.
func (h *PlayersHandler) HandlePromote(w http.ResponseWriter, r *http.Request) {
	p, changed, err := h.deps.PromoteSkill(r.Context(), chi.URLParam(r, "playerID"))
	if err != nil {
		fail(w, "api.promote", err)
		return
	}
	writeJSON(w, http.StatusOK, promoteResponse{Changed: changed, Profile: p})
}

// HandleRecommendations handles GET /players/{playerID}/recommendations.
func (h *PlayersHandler) HandleRecommendations(w http.ResponseWriter, r *http.Request) {
	rec, err := h.deps.Recommendations(r.Context(), chi.URLParam(r, "playerID"))
	if err != nil {
		fail(w, "api.recommendations", err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// HandleSession handles GET /players/{playerID}/session.
func (h *PlayersHandler) HandleSession(w http.ResponseWriter, r *http.Request) {
	sum, err := h.deps.SessionSummary(r.Context(), chi.URLParam(r, "playerID"))
	if err != nil {
		fail(w, "api.session", err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

// HandleExport handles GET /players/{playerID}/export.
func (h *PlayersHandler) HandleExport(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "playerID")
	doc, err := h.deps.Export(r.Context(), id)
	if err != nil {
		fail(w, "api.export", err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// HandleImport handles POST /players/import?overwrite=true.
func (h *PlayersHandler) HandleImport(w http.ResponseWriter, r *http.Request) {
	const op = "api.import"
	var doc service.ExportDocument
	if err := decode(r, w, &doc); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	overwrite, _ := strconv.ParseBool(r.URL.Query().Get("overwrite"))
	p, err := h.deps.Import(r.Context(), doc, overwrite)
	if err != nil {
		fail(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}
