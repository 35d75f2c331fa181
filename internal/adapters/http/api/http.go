// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/okian/herobot/internal/adapters/stratz"
	"github.com/okian/herobot/internal/domain/catalog"
	"github.com/okian/herobot/internal/domain/dedupe"
	"github.com/okian/herobot/internal/domain/model"
	"github.com/okian/herobot/internal/domain/ranking"
	"github.com/okian/herobot/internal/domain/types"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	dedupe.Deduper

	// Enqueue pushes a command for async processing. Returns false on backpressure.
	Enqueue(ctx context.Context, cmd model.Command) bool

	Search(name string) []types.Entity
	Matchups(ctx context.Context, name string) (types.MatchupReport, error)
	WinRate(ctx context.Context, name string) (types.WinRateReport, error)
	HeroStats(ctx context.Context, name string) (types.HeroStatsReport, error)
	HeroStatsByID(ctx context.Context, id uint8) (types.HeroStatsReport, error)
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler   *HealthHandler
	statsHandler    *StatsHandler
	commandsHandler *CommandsHandler
	heroesHandler   *HeroesHandler
}

// NewServer creates a new API server with all handlers. searchLimit caps
// the number of results GET /heroes returns.
func NewServer(deps Dependencies, statsProvider StatsProvider, searchLimit int) *Server {
	return &Server{
		healthHandler:   NewHealthHandler(),
		statsHandler:    NewStatsHandler(statsProvider),
		commandsHandler: NewCommandsHandler(deps),
		heroesHandler:   NewHeroesHandler(deps, searchLimit),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("POST /commands", MetricsMiddleware(s.commandsHandler.HandlePostCommand, "commands"))
	mux.HandleFunc("GET /heroes", MetricsMiddleware(s.heroesHandler.HandleSearch, "heroes"))
	mux.HandleFunc("GET /heroes/{name}/matchups", MetricsMiddleware(s.heroesHandler.HandleMatchups, "matchups"))
	mux.HandleFunc("GET /heroes/{name}/winrate", MetricsMiddleware(s.heroesHandler.HandleWinRate, "winrate"))
	mux.HandleFunc("GET /heroes/{name}/stats", MetricsMiddleware(s.heroesHandler.HandleHeroStats, "hero_stats"))
	mux.HandleFunc("GET /heroes/id/{id}/stats", MetricsMiddleware(s.heroesHandler.HandleHeroStatsByID, "hero_stats_id"))
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

// writeLookupError translates a hero lookup failure into a status code. An
// unknown id here came back from the remote data, so it counts as upstream.
func writeLookupError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, catalog.ErrEntityNotFound):
		writeError(w, http.StatusNotFound, "not_found", WrapKind(op, ErrNotFound, err))
	case errors.Is(err, ranking.ErrNoData):
		writeError(w, http.StatusUnprocessableEntity, "no_data", WrapKind(op, ErrNoData, err))
	case errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusGatewayTimeout, "timeout", Wrap(op, err))
	case errors.Is(err, stratz.ErrQuery), errors.Is(err, catalog.ErrUnknownEntity):
		writeError(w, http.StatusBadGateway, "upstream_error", WrapKind(op, ErrUpstream, err))
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
	}
}
