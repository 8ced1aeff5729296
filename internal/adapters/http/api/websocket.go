package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	service "github.com/okian/inkplay/internal/app"
	"github.com/okian/inkplay/internal/domain/precision"
	"github.com/okian/inkplay/pkg/logger"
	"github.com/okian/inkplay/pkg/metrics"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 << 10
	socketBacklog  = 8
)

// Socket message types.
const (
	MessageSession = "session"
	MessageError   = "error"
	MessagePong    = "pong"
)

// socketMessage is what the server pushes.
type socketMessage struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// socketCommand is what a client may send. Moves mirror the REST routes.
type socketCommand struct {
	Type     string              `json:"type"`
	Index    int                 `json:"index"`
	Tube     string              `json:"tube"`
	Points   []precision.Point   `json:"points"`
	Viewport *precision.Viewport `json:"viewport,omitempty"`
}

// SocketHandler streams session views over a WebSocket and accepts moves.
type SocketHandler struct {
	deps     Dependencies
	logger   logger.Logger
	upgrader websocket.Upgrader
}

// NewSocketHandler creates a new socket handler.
func NewSocketHandler(deps Dependencies, l logger.Logger, allowedOrigins []string) *SocketHandler {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[strings.TrimRight(o, "/")] = true
	}
	return &SocketHandler{
		deps:   deps,
		logger: l,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				if len(allowed) == 0 {
					return true
				}
				return allowed[r.Header.Get("Origin")]
			},
		},
	}
}

// HandleSocket handles GET /sessions/{id}/ws.
func (h *SocketHandler) HandleSocket(w http.ResponseWriter, r *http.Request) {
	const op = "api.socket"
	id := r.PathValue("id")
	updates, cancel, err := h.deps.Subscribe(id)
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	defer cancel()

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		h.logger.Warn(r.Context(), "websocket upgrade failed", logger.Error(err))
		return
	}
	defer conn.Close()

	metrics.IncWebSocketClients()
	defer metrics.DecWebSocketClients()

	ctx, stop := context.WithCancel(context.WithoutCancel(r.Context()))
	defer stop()

	replies := make(chan socketMessage, socketBacklog)
	go h.readLoop(ctx, stop, conn, id, replies)
	h.writeLoop(ctx, conn, updates, replies)
}

// writeLoop is the only writer on conn.
func (h *SocketHandler) writeLoop(ctx context.Context, conn *websocket.Conn,
	updates <-chan SessionView, replies <-chan socketMessage,
) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		var msg socketMessage
		select {
		case <-ctx.Done():
			return
		case v, ok := <-updates:
			if !ok {
				_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
				_ = conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session closed"))
				return
			}
			msg = socketMessage{Type: MessageSession, Data: v}
		case msg = <-replies:
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
			continue
		}

		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(msg); err != nil {
			h.logger.Debug(ctx, "websocket write failed", logger.Error(err))
			return
		}
	}
}

func (h *SocketHandler) readLoop(ctx context.Context, stop context.CancelFunc,
	conn *websocket.Conn, id string, replies chan<- socketMessage,
) {
	defer stop()

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var cmd socketCommand
		if err := conn.ReadJSON(&cmd); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn(ctx, "websocket error", logger.String("session_id", id), logger.Error(err))
			}
			return
		}
		if reply, ok := h.execute(ctx, id, cmd); ok {
			select {
			case replies <- reply:
			case <-ctx.Done():
				return
			}
		}
	}
}

// execute applies one command. Successful moves need no reply: the new view
// arrives through the subscription.
func (h *SocketHandler) execute(ctx context.Context, id string, cmd socketCommand) (socketMessage, bool) {
	const op = "api.socket_command"
	var err error
	switch cmd.Type {
	case "ping":
		return socketMessage{Type: MessagePong}, true
	case "reveal":
		_, err = h.deps.Reveal(ctx, id, cmd.Index)
	case "mix":
		_, err = h.deps.Mix(ctx, id, cmd.Tube)
	case "stroke":
		_, err = h.deps.Stroke(ctx, id, service.StrokeInput{Points: cmd.Points, Viewport: cmd.Viewport})
	default:
		err = NewKind(op, ErrBadRequest)
	}
	if err == nil {
		return socketMessage{}, false
	}
	_, code := statusFor(err)
	return socketMessage{Type: MessageError, Data: errorResponse{Code: code, Message: err.Error()}}, true
}
