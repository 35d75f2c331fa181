package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/okian/herobot/internal/domain/catalog"
	"github.com/okian/herobot/internal/domain/types"
)

const defaultSearchLimit = 10

// HeroesHandler serves the read-only hero lookups.
type HeroesHandler struct {
	deps        Dependencies
	searchLimit int
}

// NewHeroesHandler creates a heroes handler. A non-positive searchLimit
// falls back to 10.
func NewHeroesHandler(deps Dependencies, searchLimit int) *HeroesHandler {
	if searchLimit <= 0 {
		searchLimit = defaultSearchLimit
	}
	return &HeroesHandler{deps: deps, searchLimit: searchLimit}
}

type searchResponse struct {
	Query   string         `json:"query"`
	Results []types.Entity `json:"results"`
}

// HandleSearch handles GET /heroes?q=name[&limit=N].
func (h *HeroesHandler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	const op = "api.search_heroes"
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, errors.New("missing q")))
		return
	}
	limit := h.searchLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
			return
		}
		if n > h.searchLimit {
			writeError(w, http.StatusBadRequest, "limit_exceeded", NewKind(op, ErrBadRequest))
			return
		}
		limit = n
	}
	found := h.deps.Search(q)
	if found == nil {
		found = []types.Entity{}
	}
	writeJSON(w, http.StatusOK, searchResponse{Query: q, Results: found[:min(limit, len(found))]})
}

// HandleMatchups handles GET /heroes/{name}/matchups.
func (h *HeroesHandler) HandleMatchups(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_matchups"
	name, ok := heroName(w, r, op)
	if !ok {
		return
	}
	report, err := h.deps.Matchups(r.Context(), name)
	if err != nil {
		writeLookupError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// HandleWinRate handles GET /heroes/{name}/winrate.
func (h *HeroesHandler) HandleWinRate(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_winrate"
	name, ok := heroName(w, r, op)
	if !ok {
		return
	}
	report, err := h.deps.WinRate(r.Context(), name)
	if err != nil {
		writeLookupError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// HandleHeroStats handles GET /heroes/{name}/stats.
func (h *HeroesHandler) HandleHeroStats(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_hero_stats"
	name, ok := heroName(w, r, op)
	if !ok {
		return
	}
	report, err := h.deps.HeroStats(r.Context(), name)
	if err != nil {
		writeLookupError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// HandleHeroStatsByID handles GET /heroes/id/{id}/stats.
func (h *HeroesHandler) HandleHeroStatsByID(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_hero_stats_id"
	id, err := strconv.ParseUint(r.PathValue("id"), 10, 8)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	report, err := h.deps.HeroStatsByID(r.Context(), uint8(id))
	if errors.Is(err, catalog.ErrUnknownEntity) {
		writeError(w, http.StatusNotFound, "not_found", WrapKind(op, ErrNotFound, err))
		return
	}
	if err != nil {
		writeLookupError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func heroName(w http.ResponseWriter, r *http.Request, op string) (string, bool) {
	name := strings.TrimSpace(r.PathValue("name"))
	if name == "" {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, errors.New("missing hero name")))
		return "", false
	}
	return name, true
}
