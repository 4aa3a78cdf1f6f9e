package websocket

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"chessclub/internal/broadcast"
	"chessclub/internal/config"
	"chessclub/internal/room"
	"chessclub/internal/rules"
	"chessclub/pkg/types"
)

func newTestServer(t *testing.T) (*httptest.Server, *room.Engine) {
	t.Helper()

	gateway := broadcast.NewGateway()
	engine := room.NewEngine(room.NewRegistry(), gateway, rules.NewEngine(), nil, room.Config{
		TimerLength:   10,
		TimerRevealAt: 3,
		TickInterval:  time.Hour,
	})
	t.Cleanup(engine.Close)

	cfg := &config.WebSocketConfig{
		PingInterval: 30 * time.Second,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 5 * time.Second,
	}
	handler := NewHandler(engine, gateway, cfg, []string{"http://localhost:5173"})

	server := httptest.NewServer(http.HandlerFunc(handler.HandleWebSocket))
	t.Cleanup(server.Close)
	return server, engine
}

func dial(t *testing.T, server *httptest.Server, query string) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "?" + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) types.Envelope {
	t.Helper()

	if err := conn.SetReadDeadline(time.Now().Add(2 * time.Second)); err != nil {
		t.Fatalf("SetReadDeadline failed: %v", err)
	}
	var envelope types.Envelope
	if err := conn.ReadJSON(&envelope); err != nil {
		t.Fatalf("ReadJSON failed: %v", err)
	}
	return envelope
}

// readUntil drains events until one with the wanted name arrives.
func readUntil(t *testing.T, conn *websocket.Conn, event string) types.Envelope {
	t.Helper()

	for i := 0; i < 20; i++ {
		envelope := readEvent(t, conn)
		if envelope.Event == event {
			return envelope
		}
	}
	t.Fatalf("Never received %s", event)
	return types.Envelope{}
}

func sendIntent(t *testing.T, conn *websocket.Conn, event string, payload interface{}) {
	t.Helper()

	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if err := conn.WriteJSON(types.Envelope{Event: event, Data: data}); err != nil {
		t.Fatalf("WriteJSON failed: %v", err)
	}
}

func TestJoinSnapshotReplay(t *testing.T) {
	server, _ := newTestServer(t)
	conn := dial(t, server, "room=classroom-1&user=teacher-1&name=Teacher")

	envelope := readEvent(t, conn)
	if envelope.Event != types.EventBoardUpdate {
		t.Errorf("First event = %s, want %s", envelope.Event, types.EventBoardUpdate)
	}
	var board types.BoardUpdate
	if err := json.Unmarshal(envelope.Data, &board); err != nil {
		t.Fatalf("Unmarshal board failed: %v", err)
	}
	if board.Position != rules.NewEngine().StartingPosition() {
		t.Errorf("Position = %q, want the starting position", board.Position)
	}

	if got := readEvent(t, conn).Event; got != types.EventModeUpdate {
		t.Errorf("Second event = %s, want %s", got, types.EventModeUpdate)
	}
	if got := readEvent(t, conn).Event; got != types.EventInstructionsUpdate {
		t.Errorf("Third event = %s, want %s", got, types.EventInstructionsUpdate)
	}
	if got := readEvent(t, conn).Event; got != types.EventVoteTally {
		t.Errorf("Fourth event = %s, want %s", got, types.EventVoteTally)
	}
}

func TestSubmitVoteBroadcastsTally(t *testing.T) {
	server, _ := newTestServer(t)
	conn := dial(t, server, "room=classroom-2&user=student-1&name=Ada")
	readUntil(t, conn, types.EventVoteTally)

	sendIntent(t, conn, types.IntentSubmitVote, types.SubmitVote{Move: "e2e4"})

	envelope := readUntil(t, conn, types.EventVoteTally)
	var tally types.VoteTally
	if err := json.Unmarshal(envelope.Data, &tally); err != nil {
		t.Fatalf("Unmarshal tally failed: %v", err)
	}
	if tally.Tally["e2e4"] != 1 {
		t.Errorf("Tally[e2e4] = %d, want 1", tally.Tally["e2e4"])
	}
	if voters := tally.VotersByMove["e2e4"]; len(voters) != 1 || voters[0] != "Ada" {
		t.Errorf("VotersByMove[e2e4] = %v, want [Ada]", voters)
	}
}

func TestTallyFansOutToRoomPeers(t *testing.T) {
	server, _ := newTestServer(t)
	voter := dial(t, server, "room=classroom-3&user=student-1&name=Ada")
	observer := dial(t, server, "room=classroom-3&user=student-2&name=Grace")
	readUntil(t, voter, types.EventVoteTally)
	readUntil(t, observer, types.EventVoteTally)

	sendIntent(t, voter, types.IntentSubmitVote, types.SubmitVote{Move: "d2d4"})

	envelope := readUntil(t, observer, types.EventVoteTally)
	var tally types.VoteTally
	if err := json.Unmarshal(envelope.Data, &tally); err != nil {
		t.Fatalf("Unmarshal tally failed: %v", err)
	}
	if tally.Tally["d2d4"] != 1 {
		t.Errorf("Peer tally[d2d4] = %d, want 1", tally.Tally["d2d4"])
	}
}

func TestInvalidRoomIDRejectsHandshake(t *testing.T) {
	server, _ := newTestServer(t)

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "?room=bad%20room"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err == nil {
		t.Fatal("Dial succeeded, want handshake rejection")
	}
	if resp == nil || resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Status = %v, want %d", resp, http.StatusBadRequest)
	}
}

func TestUnknownIntentReturnsError(t *testing.T) {
	server, _ := newTestServer(t)
	conn := dial(t, server, "room=classroom-4&user=student-1")
	readUntil(t, conn, types.EventVoteTally)

	if err := conn.WriteJSON(types.Envelope{Event: "launch_rocket"}); err != nil {
		t.Fatalf("WriteJSON failed: %v", err)
	}

	envelope := readUntil(t, conn, types.EventError)
	var msg types.ErrorMessage
	if err := json.Unmarshal(envelope.Data, &msg); err != nil {
		t.Fatalf("Unmarshal error failed: %v", err)
	}
	if !strings.Contains(msg.Message, "launch_rocket") {
		t.Errorf("Error message = %q, want it to name the event", msg.Message)
	}
}

func TestMalformedPositionErrorsOriginatorOnly(t *testing.T) {
	server, _ := newTestServer(t)
	sender := dial(t, server, "room=classroom-5&user=teacher-1")
	peer := dial(t, server, "room=classroom-5&user=student-1")
	readUntil(t, sender, types.EventVoteTally)
	readUntil(t, peer, types.EventVoteTally)

	sendIntent(t, sender, types.IntentUpdateBoard, types.UpdateBoard{Position: "not a fen"})

	if got := readUntil(t, sender, types.EventError); got.Event != types.EventError {
		t.Fatalf("Sender event = %s, want %s", got.Event, types.EventError)
	}

	// The peer must see nothing from the rejected update.
	if err := peer.SetReadDeadline(time.Now().Add(200 * time.Millisecond)); err != nil {
		t.Fatalf("SetReadDeadline failed: %v", err)
	}
	var envelope types.Envelope
	if err := peer.ReadJSON(&envelope); err == nil {
		t.Errorf("Peer received %s, want no event", envelope.Event)
	}
}

func TestJoinIntentSwitchesRooms(t *testing.T) {
	server, engine := newTestServer(t)
	conn := dial(t, server, "room=classroom-6&user=student-1&name=Ada")
	readUntil(t, conn, types.EventVoteTally)

	sendIntent(t, conn, types.IntentJoinGame, types.JoinGame{RoomID: "classroom-7", Name: "Ada"})
	readUntil(t, conn, types.EventVoteTally)

	if _, err := engine.Snapshot("classroom-7"); err != nil {
		t.Errorf("Snapshot(classroom-7) error = %v, want the room to exist", err)
	}

	// Broadcasts in the new room must now reach the moved connection.
	engine.SubmitVote("classroom-7", "student-2", "g1f3", "Grace")
	envelope := readUntil(t, conn, types.EventVoteTally)
	var tally types.VoteTally
	if err := json.Unmarshal(envelope.Data, &tally); err != nil {
		t.Fatalf("Unmarshal tally failed: %v", err)
	}
	if tally.Tally["g1f3"] != 1 {
		t.Errorf("Tally[g1f3] = %d, want 1", tally.Tally["g1f3"])
	}
}
