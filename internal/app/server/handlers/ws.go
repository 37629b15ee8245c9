package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/Ranjeet550/kodeshare-relay/internal/app/server/ws"
	"github.com/Ranjeet550/kodeshare-relay/internal/config"
	"github.com/Ranjeet550/kodeshare-relay/internal/core/domain"
	"github.com/Ranjeet550/kodeshare-relay/internal/core/services"
	"github.com/Ranjeet550/kodeshare-relay/internal/platform/logger"
	"github.com/Ranjeet550/kodeshare-relay/pkg/logging"

	"github.com/gorilla/websocket"
)

// WSHandler realizes the client-facing event surface over one
// websocket per connection: handshake on connect, join/change inbound,
// members/content pushes outbound.
type WSHandler struct {
	coordinator *services.SessionCoordinator
	relayCfg    config.RelayConfig
}

func NewWSHandler(coordinator *services.SessionCoordinator, relayCfg config.RelayConfig) *WSHandler {
	return &WSHandler{
		coordinator: coordinator,
		relayCfg:    relayCfg,
	}
}

func (h *WSHandler) Handler(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	sessionCtx := context.WithoutCancel(r.Context())
	ctx, cancel := context.WithCancel(sessionCtx)
	defer cancel()

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			return true // tighten later
		},
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.ErrorContext(r.Context(), "ws handler - upgrade - ws upgrade failed", logging.Err(err))
		cancel()
		return
	}
	defer conn.Close()
	conn.SetCloseHandler(func(code int, text string) error {
		cancel()
		return nil
	})

	socket := ws.NewWebSocket(ctx, conn, h.relayCfg.ReadLimit, h.relayCfg.WriteTimeout)
	client := ws.NewClient(ctx, socket, h.relayCfg.SendBuffer)

	connectionID := h.coordinator.OnConnect(ctx, client)
	// deregister before tearing the client down so broadcasts stop
	// targeting a connection that is already gone
	defer client.Close()
	defer h.coordinator.OnDisconnect(ctx, connectionID)

	if err := socket.WriteMessage(mustJSON(domain.HandshakeResponse{
		Type:         domain.TypeHandshake,
		ConnectionID: connectionID,
	})); err != nil {
		log.ErrorContext(ctx, "ws handler - handshake - write failed",
			logging.Conn(connectionID), logging.Err(err))
		return
	}
	log.InfoContext(ctx, "ws handler - ws connection established", logging.Conn(connectionID))

	// Frames are handled inline: per-origin ordering depends on this
	// loop staying sequential.
	socket.ReadLoop(func(data []byte) {
		h.handleFrame(ctx, log, client, connectionID, data)
	})
}

func (h *WSHandler) handleFrame(ctx context.Context, log *slog.Logger, client *ws.RuntimeClient, connectionID string, data []byte) {
	var env domain.ClientEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		log.WarnContext(ctx, "ws handler - handle frame - malformed envelope discarded",
			logging.Conn(connectionID), logging.Err(err))
		return
	}

	switch env.Type {
	case domain.TypeJoin:
		snap, err := h.coordinator.OnJoin(ctx, connectionID, env.RoomID)
		if err != nil {
			_ = client.Send(ctx, mustJSON(joinError(err)))
			return
		}
		_ = client.Send(ctx, mustJSON(domain.JoinedResponse{
			Type:     domain.TypeJoined,
			RoomID:   snap.RoomID,
			Members:  snap.Members,
			Content:  snap.Content,
			Language: snap.Language,
			Title:    snap.Title,
		}))

	case domain.TypeChange:
		h.coordinator.OnChange(ctx, connectionID, env.Payload)

	default:
		log.WarnContext(ctx, "ws handler - handle frame - unknown frame type discarded",
			logging.Conn(connectionID), slog.String("frame_type", env.Type))
	}
}

func joinError(err error) domain.ErrorMessage {
	code := "join_failed"
	switch {
	case errors.Is(err, domain.ErrInvalidRoomID):
		code = "invalid_room_id"
	case errors.Is(err, domain.ErrHydrationFailed):
		code = "hydration_failed"
	}
	return domain.ErrorMessage{
		Type:    domain.TypeError,
		Code:    code,
		Message: err.Error(),
	}
}

func mustJSON(v any) []byte {
	data, _ := json.Marshal(v)
	return data
}
