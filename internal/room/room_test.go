package room

import "testing"

func TestTallyBallotInvariant(t *testing.T) {
	r := newRoom("g1")
	r.recordName("u1", "Alice")
	r.recordName("u2", "Bob")
	r.recordName("u3", "Cleo")

	// Arbitrary vote/retract sequence; the invariant must hold after each step.
	steps := []func(){
		func() { r.castBallot("u1", "e2e4") },
		func() { r.castBallot("u2", "e2e4") },
		func() { r.castBallot("u3", "d2d4") },
		func() { r.castBallot("u1", "d2d4") },
		func() { r.retractBallot("u2") },
		func() { r.castBallot("u2", "g1f3") },
		func() { r.retractBallot("u3") },
	}

	for i, step := range steps {
		step()

		sum := 0
		counts, voters := r.votes.snapshot()
		for _, c := range counts {
			sum += c
		}
		if sum != len(r.ballots) {
			t.Errorf("Step %d: tally sum %d != active ballots %d", i, sum, len(r.ballots))
		}

		seen := make(map[string]int)
		for _, roster := range voters {
			for _, name := range roster {
				seen[name]++
			}
		}
		for name, n := range seen {
			if n > 1 {
				t.Errorf("Step %d: %s appears in %d rosters", i, name, n)
			}
		}
	}
}

func TestRevoteIdempotent(t *testing.T) {
	r := newRoom("g1")
	r.recordName("u1", "Alice")

	r.castBallot("u1", "e2e4")
	r.castBallot("u1", "e2e4")

	counts, voters := r.votes.snapshot()
	if counts["e2e4"] != 1 {
		t.Errorf("Expected count 1 after identical re-vote, got %d", counts["e2e4"])
	}
	if len(voters["e2e4"]) != 1 || voters["e2e4"][0] != "Alice" {
		t.Errorf("Expected roster [Alice], got %v", voters["e2e4"])
	}
}

func TestBallotMove(t *testing.T) {
	r := newRoom("g1")
	r.recordName("u1", "Alice")

	r.castBallot("u1", "e2e4")
	r.castBallot("u1", "d2d4")

	counts, voters := r.votes.snapshot()
	if _, ok := counts["e2e4"]; ok {
		t.Error("Expected the moved-from entry to be deleted at zero")
	}
	if counts["d2d4"] != 1 {
		t.Errorf("Expected d2d4 count 1, got %d", counts["d2d4"])
	}
	if len(voters["d2d4"]) != 1 || voters["d2d4"][0] != "Alice" {
		t.Errorf("Expected Alice on the d2d4 roster, got %v", voters["d2d4"])
	}
}

func TestRetractWithoutBallot(t *testing.T) {
	r := newRoom("g1")

	if r.retractBallot("ghost") {
		t.Error("Expected retract without an active ballot to report false")
	}
}

func TestTallyRemoveAbsentMove(t *testing.T) {
	tl := newTally()
	tl.add("e2e4", "Alice")

	// Removing a move that is not tallied must be a no-op, not an error.
	tl.remove("d2d4", "Bob")

	counts, _ := tl.snapshot()
	if counts["e2e4"] != 1 || len(counts) != 1 {
		t.Errorf("Expected tally untouched, got %v", counts)
	}
}

func TestTallyLeaderTieBreaksOnInsertionOrder(t *testing.T) {
	tl := newTally()
	tl.add("a", "p1")
	tl.add("b", "p2")
	tl.add("a", "p3")
	tl.add("b", "p4")
	tl.add("c", "p5")

	move, votes, ok := tl.leader()
	if !ok {
		t.Fatal("Expected a leader")
	}
	if move != "a" || votes != 2 {
		t.Errorf("Expected first-inserted move a with 2 votes, got %s with %d", move, votes)
	}
}

func TestTallyReinsertionMovesToEnd(t *testing.T) {
	tl := newTally()
	tl.add("a", "p1")
	tl.add("b", "p2")
	tl.remove("a", "p1")
	tl.add("a", "p3")

	// a left the tally and came back, so b is now first-inserted; on a tie
	// b must win.
	move, _, ok := tl.leader()
	if !ok || move != "b" {
		t.Errorf("Expected b to lead after a's re-insertion, got %s", move)
	}
}

func TestTallyLeaderEmpty(t *testing.T) {
	tl := newTally()

	if _, _, ok := tl.leader(); ok {
		t.Error("Expected no leader from an empty tally")
	}
}

func TestRecordNamePersists(t *testing.T) {
	r := newRoom("g1")

	r.recordName("u1", "Alice")
	r.recordName("u1", "")
	if r.names["u1"] != "Alice" {
		t.Errorf("Expected omitted name to keep Alice, got %q", r.names["u1"])
	}

	r.recordName("u1", "Alicia")
	if r.names["u1"] != "Alicia" {
		t.Errorf("Expected provided name to overwrite, got %q", r.names["u1"])
	}
}

func TestSnapshotTimerOnlyInGameMode(t *testing.T) {
	r := newRoom("g1")

	if snap := r.snapshot(); snap.Timer != nil {
		t.Error("Expected no timer block in poll mode")
	}

	r.mode = "game"
	r.timerLength = 10
	r.revealAt = 3
	r.remaining = 7
	snap := r.snapshot()
	if snap.Timer == nil {
		t.Fatal("Expected a timer block in game mode")
	}
	if snap.Timer.Remaining != 7 || snap.Timer.RevealAt != 3 || snap.Timer.Length != 10 {
		t.Errorf("Unexpected timer snapshot: %+v", snap.Timer)
	}
}
