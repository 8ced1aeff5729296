package api

import (
	"context"
	"net/http"
	"strings"

	service "github.com/okian/inkplay/internal/app"
	"github.com/okian/inkplay/internal/domain/precision"
)

// GamesHandler serves the player-facing game routes.
type GamesHandler struct {
	deps Dependencies
}

// NewGamesHandler creates a new games handler.
func NewGamesHandler(deps Dependencies) *GamesHandler {
	return &GamesHandler{deps: deps}
}

type startSessionRequest struct {
	PlayerID string `json:"player_id"`
}

type revealRequest struct {
	Index *int `json:"index"`
}

type strokeRequest struct {
	Points   []precision.Point   `json:"points"`
	Viewport *precision.Viewport `json:"viewport,omitempty"`
}

type mixRequest struct {
	Tube string `json:"tube"`
}

type catalogResponse struct {
	Games []service.GameInfo `json:"games"`
}

// HandleCatalog handles GET /games.
func (h *GamesHandler) HandleCatalog(w http.ResponseWriter, r *http.Request) {
	const op = "api.catalog"
	games, err := h.deps.Catalog(r.Context())
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, catalogResponse{Games: games})
}

// HandleStartSession handles POST /games/{key}/sessions.
func (h *GamesHandler) HandleStartSession(w http.ResponseWriter, r *http.Request) {
	const op = "api.start_session"
	var req startSessionRequest
	if err := decode(w, r, &req); err != nil {
		writeFailure(w, WrapKind(op, ErrBadRequest, err))
		return
	}
	if strings.TrimSpace(req.PlayerID) == "" {
		writeFailure(w, WrapKind(op, ErrBadRequest, service.ErrPlayerRequired))
		return
	}
	v, err := h.deps.StartSession(r.Context(), r.PathValue("key"), req.PlayerID)
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusCreated, v)
}

// HandleGetSession handles GET /sessions/{id}.
func (h *GamesHandler) HandleGetSession(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, "api.get_session", func(ctx context.Context, id string) (SessionView, error) {
		return h.deps.Session(ctx, id)
	})
}

// HandleEndSession handles DELETE /sessions/{id}.
func (h *GamesHandler) HandleEndSession(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, "api.end_session", func(ctx context.Context, id string) (SessionView, error) {
		return h.deps.EndSession(ctx, id)
	})
}

// HandleReveal handles POST /sessions/{id}/reveal.
func (h *GamesHandler) HandleReveal(w http.ResponseWriter, r *http.Request) {
	const op = "api.reveal"
	var req revealRequest
	if err := decode(w, r, &req); err != nil {
		writeFailure(w, WrapKind(op, ErrBadRequest, err))
		return
	}
	if req.Index == nil {
		writeFailure(w, NewKind(op, ErrBadRequest))
		return
	}
	h.respond(w, r, op, func(ctx context.Context, id string) (SessionView, error) {
		return h.deps.Reveal(ctx, id, *req.Index)
	})
}

// HandleStroke handles POST /sessions/{id}/strokes.
func (h *GamesHandler) HandleStroke(w http.ResponseWriter, r *http.Request) {
	const op = "api.stroke"
	var req strokeRequest
	if err := decode(w, r, &req); err != nil {
		writeFailure(w, WrapKind(op, ErrBadRequest, err))
		return
	}
	h.respond(w, r, op, func(ctx context.Context, id string) (SessionView, error) {
		return h.deps.Stroke(ctx, id, service.StrokeInput{Points: req.Points, Viewport: req.Viewport})
	})
}

// HandleMix handles POST /sessions/{id}/mix.
func (h *GamesHandler) HandleMix(w http.ResponseWriter, r *http.Request) {
	const op = "api.mix"
	var req mixRequest
	if err := decode(w, r, &req); err != nil {
		writeFailure(w, WrapKind(op, ErrBadRequest, err))
		return
	}
	h.respond(w, r, op, func(ctx context.Context, id string) (SessionView, error) {
		return h.deps.Mix(ctx, id, req.Tube)
	})
}

func (h *GamesHandler) respond(w http.ResponseWriter, r *http.Request, op string,
	call func(ctx context.Context, id string) (SessionView, error),
) {
	v, err := call(r.Context(), r.PathValue("id"))
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, v)
}
