package storage

import (
	"context"
	"errors"

	"github.com/notnil/chess"
)

// ErrNotFound indicates no table has been persisted yet.
var ErrNotFound = errors.New("policy table not found")

// PositionKey identifies a board position by its full FEN: placement, side to
// move, castling rights, en-passant square and both move counters. Two keys
// are equal exactly when every one of those fields matches.
type PositionKey string

// NewPositionKey returns the key for pos.
func NewPositionKey(pos *chess.Position) PositionKey {
	return PositionKey(pos.String())
}

// MoveID is a move in UCI coordinate notation, e.g. "e2e4" or "e7e8q".
type MoveID string

// NewMoveID returns the identifier for m.
func NewMoveID(m *chess.Move) MoveID {
	return MoveID(m.String())
}

// MoveIDs maps moves to their identifiers, preserving order.
func MoveIDs(moves []*chess.Move) []MoveID {
	ids := make([]MoveID, len(moves))
	for i, m := range moves {
		ids[i] = NewMoveID(m)
	}
	return ids
}

// Stats summarizes the contents of a table
type Stats struct {
	Positions      int     `json:"positions"`
	Moves          int     `json:"moves"`
	NonZeroEntries int     `json:"non_zero_entries"`
	MinValue       float64 `json:"min_value"`
	MaxValue       float64 `json:"max_value"`
}

// Backend defines where a policy table lives between sessions
type Backend interface {
	// Load returns the persisted table, or ErrNotFound if none exists
	Load(ctx context.Context) (*Table, error)

	// Save replaces the persisted table with t
	Save(ctx context.Context, t *Table) error

	// Close releases backend resources
	Close() error
}
