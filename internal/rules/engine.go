// Package rules wraps the chess rules engine the voting core delegates to.
// The core never inspects a board itself; it only asks for legal moves,
// applies a chosen move, and validates teacher-supplied positions.
package rules

import (
	"fmt"

	"github.com/notnil/chess"
)

// Engine is a stateless adapter over notnil/chess. Every call parses the
// given FEN so concurrent use needs no synchronization.
type Engine struct{}

func NewEngine() *Engine {
	return &Engine{}
}

// StartingPosition returns the standard initial position in FEN form.
func (e *Engine) StartingPosition() string {
	return chess.NewGame().Position().String()
}

// Validate reports whether fen parses as a legal position description.
func (e *Engine) Validate(fen string) error {
	if _, err := chess.FEN(fen); err != nil {
		return fmt.Errorf("invalid position %q: %w", fen, err)
	}
	return nil
}

// LegalMoves lists every legal move from fen in UCI notation (e.g. "e2e4",
// "e7e8q"). An unparseable position is an error, not an empty list.
func (e *Engine) LegalMoves(fen string) ([]string, error) {
	game, err := gameFromFEN(fen)
	if err != nil {
		return nil, err
	}

	valid := game.ValidMoves()
	moves := make([]string, len(valid))
	for i, m := range valid {
		moves[i] = m.String()
	}
	return moves, nil
}

// Apply plays the UCI move on fen and returns the resulting position plus
// the move's algebraic notation for the history log.
func (e *Engine) Apply(fen, uci string) (string, string, error) {
	game, err := gameFromFEN(fen)
	if err != nil {
		return "", "", err
	}

	move, err := chess.UCINotation{}.Decode(game.Position(), uci)
	if err != nil {
		return "", "", fmt.Errorf("invalid move %q: %w", uci, err)
	}

	san := chess.AlgebraicNotation{}.Encode(game.Position(), move)
	if err := game.Move(move); err != nil {
		return "", "", fmt.Errorf("illegal move %q: %w", uci, err)
	}

	return game.Position().String(), san, nil
}

func gameFromFEN(fen string) (*chess.Game, error) {
	opt, err := chess.FEN(fen)
	if err != nil {
		return nil, fmt.Errorf("invalid position %q: %w", fen, err)
	}
	return chess.NewGame(opt), nil
}
