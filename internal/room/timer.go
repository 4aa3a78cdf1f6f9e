package room

import (
	"time"

	"chessclub/pkg/types"
)

// The countdown is generation-counted: starting a timer bumps the room's
// generation and every tick re-checks it under the lock, so a replaced timer
// can never mutate state after its successor is installed. This is the sole
// cancellation mechanism.

// startTimerLocked normalizes the room's countdown configuration, resets the
// cycle and launches a fresh ticking goroutine. Caller holds the room lock.
func (e *Engine) startTimerLocked(r *room) {
	if r.timerLength <= 0 {
		r.timerLength = e.cfg.TimerLength
	}
	if r.revealAt <= 0 || r.revealAt >= r.timerLength {
		r.revealAt = e.cfg.TimerRevealAt
	}

	r.remaining = r.timerLength
	r.revealed = false
	r.timerGen++
	gen := r.timerGen

	e.broadcaster.Broadcast(r.id, types.EventVoteTally, r.tallyEvent())
	e.broadcaster.Broadcast(r.id, types.EventTimerUpdate, types.TimerUpdate{Remaining: r.remaining, RevealAt: r.revealAt})
	e.broadcaster.Broadcast(r.id, types.EventModeUpdate, types.ModeUpdate{Mode: types.ModeGame, Revealed: false})

	go e.runTimer(r, gen)
}

// stopTimerLocked invalidates the current generation; the ticking goroutine
// exits on its next tick. Caller holds the room lock.
func (e *Engine) stopTimerLocked(r *room) {
	r.timerGen++
	r.remaining = 0
}

func (e *Engine) runTimer(r *room, gen uint64) {
	ticker := time.NewTicker(e.cfg.TickInterval)
	defer ticker.Stop()

	for range ticker.C {
		if !e.tick(r, gen) {
			return
		}
	}
}

// tick advances the countdown by one step. Returns false when this timer
// generation is finished, either superseded or rolled into the next cycle.
func (e *Engine) tick(r *room, gen uint64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.timerGen != gen || r.mode != types.ModeGame {
		return false
	}

	r.remaining--
	e.broadcaster.Broadcast(r.id, types.EventTimerUpdate, types.TimerUpdate{Remaining: r.remaining, RevealAt: r.revealAt})

	if r.remaining == r.revealAt && !r.revealed {
		r.revealed = true
		e.broadcaster.Broadcast(r.id, types.EventModeUpdate, types.ModeUpdate{Mode: types.ModeGame, Revealed: true})
		e.broadcaster.Broadcast(r.id, types.EventVoteTally, r.tallyEvent())
	}

	if r.remaining <= 0 {
		e.resolveLocked(r)
		// Free-run into the next cycle with whatever countdown configuration
		// the teacher has stored by now.
		e.startTimerLocked(r)
		return false
	}

	return true
}
