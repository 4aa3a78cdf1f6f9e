package room

import (
	"fmt"
	"log"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"chessclub/pkg/types"
)

// Broadcaster fans an event out to every subscriber of a room. Implementations
// must not block; the engine emits while holding the room lock.
type Broadcaster interface {
	Broadcast(roomID, event string, payload interface{})
}

// Rules is the external chess-rules collaborator. Calls are pure and fast.
type Rules interface {
	StartingPosition() string
	Validate(fen string) error
	LegalMoves(fen string) ([]string, error)
	Apply(fen, move string) (newFEN string, san string, err error)
}

// Archive records applied moves for later review. Recording must not block;
// failures are the archive's problem, never the room's.
type Archive interface {
	RecordMove(rec types.MoveRecord)
}

// Config carries the engine's countdown defaults.
type Config struct {
	TimerLength   int           // default countdown length in seconds
	TimerRevealAt int           // default reveal threshold
	TickInterval  time.Duration // tick period, one second outside tests
}

// Engine funnels every room mutation through per-room locking and emits the
// resulting events through the broadcaster. It is the only component allowed
// to touch room state.
type Engine struct {
	registry    *Registry
	broadcaster Broadcaster
	rules       Rules
	archive     Archive
	cfg         Config
}

func NewEngine(registry *Registry, broadcaster Broadcaster, rules Rules, archive Archive, cfg Config) *Engine {
	if cfg.TimerLength <= 0 {
		cfg.TimerLength = 10
	}
	if cfg.TimerRevealAt <= 0 || cfg.TimerRevealAt >= cfg.TimerLength {
		cfg.TimerRevealAt = 3
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = time.Second
	}
	return &Engine{
		registry:    registry,
		broadcaster: broadcaster,
		rules:       rules,
		archive:     archive,
		cfg:         cfg,
	}
}

// Join ensures the room exists and returns a state snapshot for the inbound
// participant only; nothing is broadcast. A room created by Join starts at
// the standard chess position.
func (e *Engine) Join(roomID, participantID, name string) types.RoomSnapshot {
	r, created := e.registry.getOrCreate(roomID, func(r *room) {
		r.position = e.rules.StartingPosition()
	})
	if created {
		log.Printf("Created room: id=%s", roomID)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.recordName(participantID, name)
	return r.snapshot()
}

// SubmitVote records the participant's ballot, replacing any prior one, and
// broadcasts the refreshed tally. The move is not checked for legality here;
// resolution handles illegal winners.
func (e *Engine) SubmitVote(roomID, participantID, move, name string) {
	r, _ := e.registry.getOrCreate(roomID, nil)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.recordName(participantID, name)
	r.castBallot(participantID, move)
	e.broadcaster.Broadcast(r.id, types.EventVoteTally, r.tallyEvent())
}

// RetractVote withdraws the participant's active ballot and broadcasts the
// refreshed tally. Unknown rooms and absent ballots are no-ops.
func (e *Engine) RetractVote(roomID, participantID string) {
	r, ok := e.registry.get(roomID)
	if !ok {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.retractBallot(participantID)
	e.broadcaster.Broadcast(r.id, types.EventVoteTally, r.tallyEvent())
}

// ApplyPosition is the teacher-authoritative overwrite: position and history
// are replaced verbatim, ballots cleared, the reveal flag left alone. The
// caller has already computed legality through the rules engine; only the
// position string itself is validated here. Unknown rooms are no-ops.
func (e *Engine) ApplyPosition(roomID, position string, history []string) error {
	r, ok := e.registry.get(roomID)
	if !ok {
		return nil
	}

	if err := e.rules.Validate(position); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPosition, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.position = position
	r.history = make([]string, len(history))
	copy(r.history, history)
	r.clearBallots()

	e.broadcaster.Broadcast(r.id, types.EventBoardUpdate, types.BoardUpdate{Position: r.position, History: r.history})
	e.broadcaster.Broadcast(r.id, types.EventVoteTally, r.tallyEvent())

	if e.archive != nil {
		e.archive.RecordMove(types.MoveRecord{
			ID:        uuid.New().String(),
			RoomID:    r.id,
			SAN:       "(position load)",
			Position:  r.position,
			Votes:     0,
			ByVote:    false,
			AppliedAt: time.Now(),
		})
	}

	if r.mode == types.ModeGame {
		e.startTimerLocked(r)
	}
	return nil
}

// SetMode switches the room's mode and reveal flag. Entering game mode stores
// any valid supplied countdown configuration and (re)starts the timer; other
// modes stop it. Ballots are left intact either way.
func (e *Engine) SetMode(roomID, mode string, revealed bool, timerLength, revealAt *int) error {
	if !types.IsValidMode(mode) {
		return ErrInvalidMode
	}

	r, _ := e.registry.getOrCreate(roomID, nil)

	r.mu.Lock()
	defer r.mu.Unlock()

	r.mode = mode
	r.revealed = revealed

	if mode == types.ModeGame {
		// Out-of-range inputs silently keep the stored values; the timer
		// start normalizes anything still unset or inconsistent.
		if timerLength != nil && *timerLength > 0 {
			r.timerLength = *timerLength
		}
		if revealAt != nil && *revealAt > 0 {
			r.revealAt = *revealAt
		}
		e.startTimerLocked(r)
		return nil
	}

	e.stopTimerLocked(r)
	e.broadcaster.Broadcast(r.id, types.EventModeUpdate, types.ModeUpdate{Mode: r.mode, Revealed: r.revealed})
	return nil
}

// SetInstructions overwrites the teacher note, last write wins. A room that
// does not exist yet is left uncreated and nothing is broadcast.
func (e *Engine) SetInstructions(roomID, text string) {
	r, ok := e.registry.get(roomID)
	if !ok {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.instructions = text
	e.broadcaster.Broadcast(r.id, types.EventInstructionsUpdate, types.Instructions{Text: r.instructions})
}

// ResetReveal forces the reveal flag off without touching ballots, then tells
// view layers to drop any locally cached reveal state.
func (e *Engine) ResetReveal(roomID string) {
	r, ok := e.registry.get(roomID)
	if !ok {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.revealed = false
	e.broadcaster.Broadcast(r.id, types.EventVoteTally, r.tallyEvent())
	e.broadcaster.Broadcast(r.id, types.EventResetReveal, nil)
}

// Snapshot returns the room's full state for the REST surface.
func (e *Engine) Snapshot(roomID string) (types.RoomSnapshot, error) {
	r, ok := e.registry.get(roomID)
	if !ok {
		return types.RoomSnapshot{}, ErrRoomNotFound
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshot(), nil
}

// Rooms lists every known room with summary counts.
func (e *Engine) Rooms() []types.RoomInfo {
	rooms := e.registry.all()
	infos := make([]types.RoomInfo, 0, len(rooms))
	for _, r := range rooms {
		r.mu.Lock()
		infos = append(infos, types.RoomInfo{
			RoomID:       r.id,
			Mode:         r.mode,
			Revealed:     r.revealed,
			Participants: len(r.names),
			Ballots:      len(r.ballots),
		})
		r.mu.Unlock()
	}
	return infos
}

// Close stops every running timer. Room state stays in memory; Close exists
// so shutdown and tests leave no ticking goroutines behind.
func (e *Engine) Close() {
	for _, r := range e.registry.all() {
		r.mu.Lock()
		e.stopTimerLocked(r)
		r.mu.Unlock()
	}
}

// resolveLocked picks and applies one move when a countdown elapses. Caller
// holds the room lock.
//
// The top-voted move wins, ties breaking to the move that entered the tally
// first. An empty tally or an illegal winner falls back to a uniformly random
// legal move. With no legal moves at all the cycle applies nothing.
func (e *Engine) resolveLocked(r *room) {
	legal, err := e.rules.LegalMoves(r.position)
	if err != nil || len(legal) == 0 {
		return
	}

	move, votes, hasVotes := r.votes.leader()
	byVote := hasVotes && contains(legal, move)
	if !byVote {
		move = legal[rand.Intn(len(legal))]
		votes = 0
	}

	newFEN, san, err := e.rules.Apply(r.position, move)
	if err != nil {
		log.Printf("Failed to apply resolved move %s in room %s: %v", move, r.id, err)
		return
	}

	r.position = newFEN
	r.history = append(r.history, san)
	r.clearBallots()
	r.revealed = false

	e.broadcaster.Broadcast(r.id, types.EventBoardUpdate, types.BoardUpdate{Position: r.position, History: r.history})
	e.broadcaster.Broadcast(r.id, types.EventVoteTally, r.tallyEvent())

	if e.archive != nil {
		e.archive.RecordMove(types.MoveRecord{
			ID:        uuid.New().String(),
			RoomID:    r.id,
			SAN:       san,
			Position:  newFEN,
			Votes:     votes,
			ByVote:    byVote,
			AppliedAt: time.Now(),
		})
	}
}

func contains(moves []string, move string) bool {
	for _, m := range moves {
		if m == move {
			return true
		}
	}
	return false
}
