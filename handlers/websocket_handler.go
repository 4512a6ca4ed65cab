package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/Dosada05/tournament-engine/models"
	"github.com/Dosada05/tournament-engine/realtime"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

type tournamentLookup interface {
	GetTournament(ctx context.Context, id uuid.UUID) (*models.Tournament, error)
}

type WebSocketHandler struct {
	hub         *realtime.Hub
	tournaments tournamentLookup
	upgrader    websocket.Upgrader
	logger      *slog.Logger
}

// NewWebSocketHandler. Пустой allowedOrigins или "*" разрешает любой Origin.
func NewWebSocketHandler(hub *realtime.Hub, tournaments tournamentLookup, allowedOrigins []string, logger *slog.Logger) *WebSocketHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &WebSocketHandler{
		hub:         hub,
		tournaments: tournaments,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
		logger: logger,
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	set := make(map[string]bool, len(allowed))
	for _, origin := range allowed {
		if origin == "*" {
			return func(*http.Request) bool { return true }
		}
		set[origin] = true
	}
	if len(set) == 0 {
		return func(*http.Request) bool { return true }
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || set[origin]
	}
}

// ServeWs подписывает клиента на события турнира.
// Клиент подключается к /ws/tournaments/{tournamentID}
func (h *WebSocketHandler) ServeWs(w http.ResponseWriter, r *http.Request) {
	id, err := getUUIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if _, err := h.tournaments.GetTournament(r.Context(), id); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade сам отвечает клиенту ошибкой
		h.logger.Warn("failed to upgrade websocket connection",
			slog.String("tournament_id", id.String()),
			slog.Any("error", err))
		return
	}

	client := realtime.NewClient(h.hub, conn, realtime.TournamentRoom(id))
	if !h.hub.Register(client) {
		h.logger.Warn("websocket hub is stopped, dropping connection", slog.String("tournament_id", id.String()))
		conn.Close()
		return
	}

	go client.WritePump()
	go client.ReadPump()
}
