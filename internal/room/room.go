package room

import (
	"sync"

	"chessclub/pkg/types"
)

// room is the authoritative per-room state. Every mutation happens under mu,
// including timer ticks, so operations are discrete steps as far as any
// observer is concerned.
type room struct {
	mu sync.Mutex

	id           string
	position     string
	history      []string
	mode         string
	revealed     bool
	instructions string

	// ballots is the source of truth: at most one move per participant.
	// votes is maintained in lockstep and never diverges.
	ballots map[string]string
	votes   *tally
	names   map[string]string

	// Stored countdown configuration; zero means unset until normalized at
	// timer start. remaining is live only while a timer generation runs.
	timerLength int
	revealAt    int
	remaining   int
	timerGen    uint64
}

func newRoom(id string) *room {
	return &room{
		id:      id,
		mode:    types.ModePoll,
		history: []string{},
		ballots: make(map[string]string),
		votes:   newTally(),
		names:   make(map[string]string),
	}
}

// recordName stores a display name, never clearing a previously known one.
func (r *room) recordName(participantID, name string) {
	if name != "" {
		r.names[participantID] = name
	}
}

// castBallot replaces the participant's ballot, keeping the tally consistent:
// the old entry is decremented and its roster pruned before the new entry is
// incremented.
func (r *room) castBallot(participantID, move string) {
	name := r.names[participantID]
	if prev, ok := r.ballots[participantID]; ok {
		r.votes.remove(prev, name)
	}
	r.votes.add(move, name)
	r.ballots[participantID] = move
}

// retractBallot withdraws the participant's active ballot. Returns false if
// there was nothing to retract.
func (r *room) retractBallot(participantID string) bool {
	move, ok := r.ballots[participantID]
	if !ok {
		return false
	}
	r.votes.remove(move, r.names[participantID])
	delete(r.ballots, participantID)
	return true
}

// clearBallots empties the ledger and the derived tally together.
func (r *room) clearBallots() {
	r.ballots = make(map[string]string)
	r.votes = newTally()
}

// tallyEvent builds the vote_tally payload from the current state.
func (r *room) tallyEvent() types.VoteTally {
	counts, voters := r.votes.snapshot()
	return types.VoteTally{
		Tally:        counts,
		VotersByMove: voters,
		Revealed:     r.revealed,
	}
}

// snapshot captures the full state for a joining participant or the REST
// surface. The timer block is present only in game mode.
func (r *room) snapshot() types.RoomSnapshot {
	counts, voters := r.votes.snapshot()
	history := make([]string, len(r.history))
	copy(history, r.history)

	snap := types.RoomSnapshot{
		RoomID:       r.id,
		Position:     r.position,
		History:      history,
		Mode:         r.mode,
		Revealed:     r.revealed,
		Tally:        counts,
		VotersByMove: voters,
		Instructions: r.instructions,
	}
	if r.mode == types.ModeGame {
		snap.Timer = &types.TimerSnapshot{
			Remaining: r.remaining,
			RevealAt:  r.revealAt,
			Length:    r.timerLength,
		}
	}
	return snap
}

// tally tracks vote counts and voter rosters per move. Moves iterate in the
// order they first entered the tally; a move whose count drops to zero is
// removed entirely and re-inserts at the end, which is what resolution
// tie-breaking relies on.
type tally struct {
	counts map[string]int
	voters map[string][]string
	order  []string
}

func newTally() *tally {
	return &tally{
		counts: make(map[string]int),
		voters: make(map[string][]string),
	}
}

func (t *tally) add(move, name string) {
	if _, exists := t.counts[move]; !exists {
		t.order = append(t.order, move)
	}
	t.counts[move]++

	if name == "" {
		return
	}
	for _, n := range t.voters[move] {
		if n == name {
			return
		}
	}
	t.voters[move] = append(t.voters[move], name)
}

// remove decrements a move's count and prunes the voter's name. A move absent
// from the tally is a no-op rather than an error.
func (t *tally) remove(move, name string) {
	count, exists := t.counts[move]
	if !exists {
		return
	}

	if name != "" {
		roster := t.voters[move]
		for i, n := range roster {
			if n == name {
				t.voters[move] = append(roster[:i], roster[i+1:]...)
				break
			}
		}
		if len(t.voters[move]) == 0 {
			delete(t.voters, move)
		}
	}

	if count <= 1 {
		delete(t.counts, move)
		delete(t.voters, move)
		for i, m := range t.order {
			if m == move {
				t.order = append(t.order[:i], t.order[i+1:]...)
				break
			}
		}
		return
	}
	t.counts[move] = count - 1
}

// leader returns the move with the most votes. Ties break to the move that
// entered the tally first.
func (t *tally) leader() (string, int, bool) {
	best := ""
	bestCount := 0
	for _, move := range t.order {
		if t.counts[move] > bestCount {
			best = move
			bestCount = t.counts[move]
		}
	}
	return best, bestCount, best != ""
}

// snapshot returns copies safe to hand to encoders and other goroutines.
func (t *tally) snapshot() (map[string]int, map[string][]string) {
	counts := make(map[string]int, len(t.counts))
	for move, count := range t.counts {
		counts[move] = count
	}
	voters := make(map[string][]string, len(t.voters))
	for move, roster := range t.voters {
		names := make([]string, len(roster))
		copy(names, roster)
		voters[move] = names
	}
	return counts, voters
}
