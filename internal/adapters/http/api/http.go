// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	service "github.com/okian/inkplay/internal/app"
	"github.com/okian/inkplay/internal/domain/model"
	"github.com/okian/inkplay/pkg/logger"
)

const maxBodyBytes = 1 << 20

// SessionView is the session snapshot returned by every session route.
type SessionView = service.SessionView

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	Catalog(ctx context.Context) ([]service.GameInfo, error)

	StartSession(ctx context.Context, key, playerID string) (SessionView, error)
	Session(ctx context.Context, id string) (SessionView, error)
	EndSession(ctx context.Context, id string) (SessionView, error)
	Reveal(ctx context.Context, id string, index int) (SessionView, error)
	Stroke(ctx context.Context, id string, in service.StrokeInput) (SessionView, error)
	Mix(ctx context.Context, id, tube string) (SessionView, error)

	// Subscribe streams session views until the session ends or cancel is called.
	Subscribe(id string) (<-chan SessionView, func(), error)

	Settings(ctx context.Context) ([]model.Setting, error)
	UpsertSetting(ctx context.Context, s model.Setting) (model.Setting, error)
	RecentWins(ctx context.Context, n int) ([]model.Win, error)
}

// Server wires HTTP routes for the game API.
type Server struct {
	healthHandler *HealthHandler
	statsHandler  *StatsHandler
	gamesHandler  *GamesHandler
	adminHandler  *AdminHandler
	socketHandler *SocketHandler
	auth          *AdminAuth
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...Option) *Server {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = logger.Get().Named("api")
	}
	return &Server{
		healthHandler: NewHealthHandler(),
		statsHandler:  NewStatsHandler(statsProvider),
		gamesHandler:  NewGamesHandler(deps),
		adminHandler:  NewAdminHandler(deps, o.logger),
		socketHandler: NewSocketHandler(deps, o.logger, o.allowedOrigins),
		auth:          NewAdminAuth(o.adminSecret),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))

	mux.HandleFunc("GET /games", MetricsMiddleware(s.gamesHandler.HandleCatalog, "games"))
	mux.HandleFunc("POST /games/{key}/sessions", MetricsMiddleware(s.gamesHandler.HandleStartSession, "start_session"))
	mux.HandleFunc("GET /sessions/{id}", MetricsMiddleware(s.gamesHandler.HandleGetSession, "session"))
	mux.HandleFunc("DELETE /sessions/{id}", MetricsMiddleware(s.gamesHandler.HandleEndSession, "end_session"))
	mux.HandleFunc("POST /sessions/{id}/reveal", MetricsMiddleware(s.gamesHandler.HandleReveal, "reveal"))
	mux.HandleFunc("POST /sessions/{id}/strokes", MetricsMiddleware(s.gamesHandler.HandleStroke, "strokes"))
	mux.HandleFunc("POST /sessions/{id}/mix", MetricsMiddleware(s.gamesHandler.HandleMix, "mix"))
	mux.HandleFunc("GET /sessions/{id}/ws", MetricsMiddleware(s.socketHandler.HandleSocket, "ws"))

	mux.HandleFunc("GET /admin/game-settings", MetricsMiddleware(s.auth.Require(s.adminHandler.HandleListSettings), "admin_settings"))
	mux.HandleFunc("PUT /admin/game-settings/{key}", MetricsMiddleware(s.auth.Require(s.adminHandler.HandleUpsertSetting), "admin_upsert_setting"))
	mux.HandleFunc("GET /admin/wins", MetricsMiddleware(s.auth.Require(s.adminHandler.HandleRecentWins), "admin_wins"))
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

// writeFailure maps err to its status and writes it.
func writeFailure(w http.ResponseWriter, err error) {
	status, code := statusFor(err)
	writeError(w, status, code, err)
}

// decode reads a JSON body of at most maxBodyBytes into v.
func decode(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
