package types

import (
	"encoding/json"
	"time"
)

// Room modes. A room in game mode owns a running countdown; poll and
// observe modes leave reveal entirely under teacher control.
const (
	ModePoll    = "poll"
	ModeGame    = "game"
	ModeObserve = "observe"
)

// DefaultRoomID is used whenever an intent or connection does not name a room.
const DefaultRoomID = "default-game"

// Client->server intent names. These match the wire events the frontend emits.
const (
	IntentJoinGame           = "join_game"
	IntentSubmitVote         = "submit_vote"
	IntentRetractVote        = "retract_vote"
	IntentUpdateBoard        = "update_board"
	IntentSetMode            = "set_mode"
	IntentInstructionsUpdate = "instructions_update"
	IntentResetReveal        = "reset_reveal"
)

// Server->client event names.
const (
	EventBoardUpdate         = "board_update"
	EventVoteTally           = "vote_tally"
	EventModeUpdate          = "mode_update"
	EventTimerUpdate         = "timer_update"
	EventInstructionsUpdate  = "instructions_update"
	EventResetReveal         = "reset_reveal"
	EventError               = "error"
)

// Envelope is the wire frame for every websocket message in both directions.
// Data is left raw on the inbound path so each intent decodes its own payload.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Event is the outbound counterpart of Envelope with a concrete payload.
type Event struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data,omitempty"`
}

// JoinGame asks for room membership and a state snapshot.
type JoinGame struct {
	RoomID        string `json:"roomId"`
	ParticipantID string `json:"participantId"`
	Name          string `json:"name,omitempty"`
}

// SubmitVote casts or replaces a participant's ballot. Move is an opaque
// identifier at vote time; legality is checked only at resolution.
type SubmitVote struct {
	RoomID        string `json:"roomId"`
	Move          string `json:"move"`
	ParticipantID string `json:"participantId"`
	Name          string `json:"name,omitempty"`
}

// RetractVote withdraws the participant's active ballot.
type RetractVote struct {
	RoomID        string `json:"roomId"`
	Move          string `json:"move"`
	ParticipantID string `json:"participantId"`
}

// UpdateBoard is the teacher-authoritative position overwrite.
type UpdateBoard struct {
	RoomID   string   `json:"roomId"`
	Position string   `json:"position"`
	History  []string `json:"history"`
}

// SetMode switches the room mode and reveal flag. Timer fields are optional;
// out-of-range values fall back to the room's stored values or the defaults.
type SetMode struct {
	RoomID      string `json:"roomId"`
	Mode        string `json:"mode"`
	Revealed    bool   `json:"revealed"`
	TimerLength *int   `json:"timerLength,omitempty"`
	RevealAt    *int   `json:"revealAt,omitempty"`
}

// SetInstructions overwrites the room's free-text teacher note.
type SetInstructions struct {
	RoomID string `json:"roomId"`
	Text   string `json:"text"`
}

// ResetReveal clears the reveal flag without touching ballots.
type ResetReveal struct {
	RoomID string `json:"roomId"`
}

// BoardUpdate announces a changed position and move history.
type BoardUpdate struct {
	Position string   `json:"position"`
	History  []string `json:"history"`
}

// VoteTally carries the aggregate counts and voter rosters per move.
type VoteTally struct {
	Tally        map[string]int      `json:"tally"`
	VotersByMove map[string][]string `json:"votersByMove"`
	Revealed     bool                `json:"revealed"`
}

// ModeUpdate announces a mode or reveal-flag change.
type ModeUpdate struct {
	Mode     string `json:"mode"`
	Revealed bool   `json:"revealed"`
}

// TimerUpdate is emitted on every countdown tick.
type TimerUpdate struct {
	Remaining int `json:"remaining"`
	RevealAt  int `json:"revealAt"`
}

// Instructions announces the current teacher note.
type Instructions struct {
	Text string `json:"text"`
}

// ErrorMessage is sent to a single originating client, never broadcast.
type ErrorMessage struct {
	Message string `json:"message"`
}

// TimerSnapshot is the live countdown state inside a room snapshot.
type TimerSnapshot struct {
	Remaining int `json:"remaining"`
	RevealAt  int `json:"revealAt"`
	Length    int `json:"length"`
}

// RoomSnapshot is the full per-room state returned to a joining participant
// and by the REST surface. Timer is nil outside game mode.
type RoomSnapshot struct {
	RoomID       string              `json:"roomId"`
	Position     string              `json:"position"`
	History      []string            `json:"history"`
	Mode         string              `json:"mode"`
	Revealed     bool                `json:"revealed"`
	Tally        map[string]int      `json:"tally"`
	VotersByMove map[string][]string `json:"votersByMove"`
	Instructions string              `json:"instructions"`
	Timer        *TimerSnapshot      `json:"timer,omitempty"`
}

// RoomInfo is the listing row for the REST surface.
type RoomInfo struct {
	RoomID       string `json:"roomId"`
	Mode         string `json:"mode"`
	Revealed     bool   `json:"revealed"`
	Participants int    `json:"participants"`
	Ballots      int    `json:"ballots"`
}

// MoveRecord is one archived resolution or position load.
type MoveRecord struct {
	ID        string    `json:"id"`
	RoomID    string    `json:"roomId"`
	SAN       string    `json:"san"`
	Position  string    `json:"position"`
	Votes     int       `json:"votes"`
	ByVote    bool      `json:"byVote"`
	AppliedAt time.Time `json:"appliedAt"`
}
