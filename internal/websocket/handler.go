package websocket

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"chessclub/internal/broadcast"
	"chessclub/internal/config"
	"chessclub/internal/room"
	"chessclub/pkg/types"
)

// Handler upgrades websocket requests, replays a join snapshot, and pumps
// client intents into the room engine. All state authority stays in the
// engine; the handler only decodes and forwards.
type Handler struct {
	engine   *room.Engine
	gateway  *broadcast.Gateway
	cfg      *config.WebSocketConfig
	upgrader websocket.Upgrader
}

func NewHandler(engine *room.Engine, gateway *broadcast.Gateway, cfg *config.WebSocketConfig, allowedOrigins []string) *Handler {
	originSet := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		originSet[o] = struct{}{}
	}

	return &Handler{
		engine:  engine,
		gateway: gateway,
		cfg:     cfg,
		upgrader: websocket.Upgrader{
			HandshakeTimeout: 10 * time.Second,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" {
					// Non-browser clients send no Origin header.
					return true
				}
				_, ok := originSet[origin]
				return ok
			},
		},
	}
}

// HandleWebSocket validates query parameters, upgrades, subscribes the
// connection to its room and delivers the join snapshot before starting the
// read pump.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	roomID := r.URL.Query().Get("room")
	if roomID == "" {
		roomID = types.DefaultRoomID
	}
	if !types.IsValidID(roomID) {
		http.Error(w, "Invalid room identifier", http.StatusBadRequest)
		return
	}

	participantID := r.URL.Query().Get("user")
	if participantID == "" {
		participantID = uuid.New().String()
	} else if !types.IsValidID(participantID) {
		http.Error(w, "Invalid participant identifier", http.StatusBadRequest)
		return
	}

	name := r.URL.Query().Get("name")

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	wsConn := NewConnection(conn, participantID, name, roomID, h.cfg.WriteTimeout)

	h.gateway.Subscribe(roomID, wsConn)
	snapshot := h.engine.Join(roomID, participantID, name)
	h.sendSnapshot(wsConn, snapshot)

	log.Printf("Participant connected: user=%s room=%s", participantID, roomID)
	go h.handleConnection(wsConn)
}

// sendSnapshot replays the room state to one connection as the same discrete
// events a live update would produce, so clients have a single code path.
func (h *Handler) sendSnapshot(conn *Connection, snap types.RoomSnapshot) {
	h.trySend(conn, types.EventBoardUpdate, types.BoardUpdate{Position: snap.Position, History: snap.History})
	h.trySend(conn, types.EventModeUpdate, types.ModeUpdate{Mode: snap.Mode, Revealed: snap.Revealed})
	h.trySend(conn, types.EventInstructionsUpdate, types.Instructions{Text: snap.Instructions})
	h.trySend(conn, types.EventVoteTally, types.VoteTally{
		Tally:        snap.Tally,
		VotersByMove: snap.VotersByMove,
		Revealed:     snap.Revealed,
	})
	if snap.Timer != nil {
		h.trySend(conn, types.EventTimerUpdate, types.TimerUpdate{Remaining: snap.Timer.Remaining, RevealAt: snap.Timer.RevealAt})
	}
}

func (h *Handler) trySend(conn *Connection, event string, payload interface{}) {
	if err := conn.Send(event, payload); err != nil {
		log.Printf("Failed to send %s to %s: %v", event, conn.ParticipantID(), err)
	}
}

// handleConnection runs the read pump with heartbeat monitoring until the
// client goes away, then unsubscribes. Ballots and names deliberately
// survive the disconnect.
func (h *Handler) handleConnection(conn *Connection) {
	defer func() {
		h.gateway.Unsubscribe(conn.RoomID(), conn)
		_ = conn.Close()
		log.Printf("Participant disconnected: user=%s", conn.ParticipantID())
	}()

	if err := conn.conn.SetReadDeadline(time.Now().Add(h.cfg.ReadTimeout)); err != nil {
		return
	}
	conn.conn.SetPongHandler(func(string) error {
		return conn.conn.SetReadDeadline(time.Now().Add(h.cfg.ReadTimeout))
	})

	ticker := time.NewTicker(h.cfg.PingInterval)
	defer ticker.Stop()
	go func() {
		for {
			select {
			case <-ticker.C:
				if err := conn.conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(h.cfg.WriteTimeout)); err != nil {
					return
				}
			case <-conn.ctx.Done():
				return
			}
		}
	}()

	// Intent rate limit per connection, five per second with a small burst.
	limiter := rate.NewLimiter(5, 10)

	for {
		messageType, data, err := conn.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error for %s: %v", conn.ParticipantID(), err)
			}
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}

		if !limiter.Allow() {
			h.trySend(conn, types.EventError, types.ErrorMessage{Message: "too many requests"})
			continue
		}

		h.dispatch(conn, data)
	}
}

// dispatch decodes one intent envelope and forwards it to the engine. Errors
// go back to the originating connection only.
func (h *Handler) dispatch(conn *Connection, data []byte) {
	var envelope types.Envelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		h.trySend(conn, types.EventError, types.ErrorMessage{Message: "malformed message"})
		return
	}

	switch envelope.Event {
	case types.IntentJoinGame:
		var intent types.JoinGame
		if !h.decode(conn, envelope.Data, &intent) {
			return
		}
		roomID := h.roomFor(conn, intent.RoomID)
		participantID := intent.ParticipantID
		if participantID == "" {
			participantID = conn.ParticipantID()
		}
		if roomID != conn.RoomID() {
			h.gateway.Unsubscribe(conn.RoomID(), conn)
			h.gateway.Subscribe(roomID, conn)
			conn.setRoomID(roomID)
		}
		snapshot := h.engine.Join(roomID, participantID, intent.Name)
		h.sendSnapshot(conn, snapshot)

	case types.IntentSubmitVote:
		var intent types.SubmitVote
		if !h.decode(conn, envelope.Data, &intent) {
			return
		}
		participantID := intent.ParticipantID
		if participantID == "" {
			participantID = conn.ParticipantID()
		}
		h.engine.SubmitVote(h.roomFor(conn, intent.RoomID), participantID, intent.Move, intent.Name)

	case types.IntentRetractVote:
		var intent types.RetractVote
		if !h.decode(conn, envelope.Data, &intent) {
			return
		}
		participantID := intent.ParticipantID
		if participantID == "" {
			participantID = conn.ParticipantID()
		}
		h.engine.RetractVote(h.roomFor(conn, intent.RoomID), participantID)

	case types.IntentUpdateBoard:
		var intent types.UpdateBoard
		if !h.decode(conn, envelope.Data, &intent) {
			return
		}
		if err := h.engine.ApplyPosition(h.roomFor(conn, intent.RoomID), intent.Position, intent.History); err != nil {
			h.trySend(conn, types.EventError, types.ErrorMessage{Message: err.Error()})
		}

	case types.IntentSetMode:
		var intent types.SetMode
		if !h.decode(conn, envelope.Data, &intent) {
			return
		}
		if err := h.engine.SetMode(h.roomFor(conn, intent.RoomID), intent.Mode, intent.Revealed, intent.TimerLength, intent.RevealAt); err != nil {
			h.trySend(conn, types.EventError, types.ErrorMessage{Message: err.Error()})
		}

	case types.IntentInstructionsUpdate:
		var intent types.SetInstructions
		if !h.decode(conn, envelope.Data, &intent) {
			return
		}
		h.engine.SetInstructions(h.roomFor(conn, intent.RoomID), intent.Text)

	case types.IntentResetReveal:
		var intent types.ResetReveal
		if !h.decode(conn, envelope.Data, &intent) {
			return
		}
		h.engine.ResetReveal(h.roomFor(conn, intent.RoomID))

	default:
		h.trySend(conn, types.EventError, types.ErrorMessage{Message: "unknown event: " + envelope.Event})
	}
}

func (h *Handler) decode(conn *Connection, data json.RawMessage, v interface{}) bool {
	if len(data) == 0 {
		h.trySend(conn, types.EventError, types.ErrorMessage{Message: "missing payload"})
		return false
	}
	if err := json.Unmarshal(data, v); err != nil {
		h.trySend(conn, types.EventError, types.ErrorMessage{Message: "malformed payload"})
		return false
	}
	return true
}

func (h *Handler) roomFor(conn *Connection, roomID string) string {
	if roomID != "" {
		return roomID
	}
	return conn.RoomID()
}
