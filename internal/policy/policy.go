// Package policy provides move selection strategies for the automated side
package policy

import (
	"errors"

	"github.com/notnil/chess"

	"github.com/cartridge/qchess/internal/storage"
)

// ErrNoLegalMoves is returned when a policy is asked to choose from nothing.
var ErrNoLegalMoves = errors.New("no legal moves to choose from")

// Decision describes a selected move and how it was chosen
type Decision struct {
	Move *chess.Move
	// Explored is true when the move was drawn uniformly from all legal moves
	Explored bool
	// Candidates is the size of the set the move was drawn from
	Candidates int
	// Value is the table value of Move at selection time
	Value float64
}

// Policy interface for move selection
type Policy interface {
	// SelectMove chooses one of legal for the position identified by key.
	// The returned move is always an element of legal.
	SelectMove(key storage.PositionKey, legal []*chess.Move) (Decision, error)
}
