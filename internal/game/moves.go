package game

import (
	"errors"
	"strings"

	"github.com/notnil/chess"
)

var promotionPieces = map[string]chess.PieceType{
	"q": chess.Queen,
	"r": chess.Rook,
	"b": chess.Bishop,
	"n": chess.Knight,
}

// nullMove is well-formed coordinate notation but never a legal move.
const nullMove = "0000"

var errUpperCase = errors.New("coordinate notation is lower case")

// parseMove decodes coordinate notation such as "e2e4" or "e7e8q". Squares
// and promotion letters must be lower case.
func parseMove(pos *chess.Position, input string) (*chess.Move, error) {
	text := strings.TrimSpace(input)
	if text == nullMove {
		return nil, &IllegalMoveError{Move: text}
	}
	if text != strings.ToLower(text) {
		return nil, &ParseError{Input: text, Err: errUpperCase}
	}
	m, err := chess.UCINotation{}.Decode(pos, text)
	if err != nil {
		return nil, &ParseError{Input: text, Err: err}
	}
	return m, nil
}

// movesBetween returns the legal moves from s1 to s2. More than one is only
// possible for promotions.
func movesBetween(legal []*chess.Move, s1, s2 chess.Square) []*chess.Move {
	var out []*chess.Move
	for _, m := range legal {
		if m.S1() == s1 && m.S2() == s2 {
			out = append(out, m)
		}
	}
	return out
}

func withPromo(moves []*chess.Move, promo chess.PieceType) *chess.Move {
	for _, m := range moves {
		if m.Promo() == promo {
			return m
		}
	}
	return nil
}

// reachesLastRank reports whether m moves a pawn onto rank 1 or 8.
func reachesLastRank(b *chess.Board, m *chess.Move) bool {
	if b.Piece(m.S1()).Type() != chess.Pawn {
		return false
	}
	r := m.S2().Rank()
	return r == chess.Rank1 || r == chess.Rank8
}

// queenPromotion replaces a promoting pawn move with its queen promotion.
func queenPromotion(b *chess.Board, legal []*chess.Move, m *chess.Move) *chess.Move {
	if !reachesLastRank(b, m) || m.Promo() == chess.Queen {
		return m
	}
	if q := withPromo(movesBetween(legal, m.S1(), m.S2()), chess.Queen); q != nil {
		return q
	}
	return m
}
