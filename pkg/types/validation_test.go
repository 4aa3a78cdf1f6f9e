package types

import "testing"

func TestIsValidID(t *testing.T) {
	valid := []string{"default-game", "u1", "Alice_01", "room-42"}
	for _, id := range valid {
		if !IsValidID(id) {
			t.Errorf("Expected %q to be a valid ID", id)
		}
	}

	invalid := []string{"", "has space", "semi;colon", "slash/room", "a\nb"}
	for _, id := range invalid {
		if IsValidID(id) {
			t.Errorf("Expected %q to be rejected", id)
		}
	}
}

func TestIsValidMode(t *testing.T) {
	for _, mode := range []string{ModePoll, ModeGame, ModeObserve} {
		if !IsValidMode(mode) {
			t.Errorf("Expected mode %q to be valid", mode)
		}
	}

	for _, mode := range []string{"", "game2", "POLL", "spectate"} {
		if IsValidMode(mode) {
			t.Errorf("Expected mode %q to be rejected", mode)
		}
	}
}
