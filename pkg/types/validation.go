package types

import "regexp"

// Compiled once; identifiers are validated on every websocket upgrade.
var idRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// IsValidID reports whether a room or participant identifier is acceptable.
// Display names are free text and not validated here.
func IsValidID(id string) bool {
	return id != "" && len(id) <= 128 && idRegex.MatchString(id)
}

// IsValidMode reports whether mode is one of the three room modes.
func IsValidMode(mode string) bool {
	switch mode {
	case ModePoll, ModeGame, ModeObserve:
		return true
	}
	return false
}
