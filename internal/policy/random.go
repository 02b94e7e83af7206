package policy

import (
	"math/rand"

	"github.com/notnil/chess"

	"github.com/cartridge/qchess/internal/storage"
)

// RandomPolicy selects uniformly among legal moves
type RandomPolicy struct {
	rng *rand.Rand
}

// NewRandom creates a random policy drawing from rng
func NewRandom(rng *rand.Rand) *RandomPolicy {
	return &RandomPolicy{rng: rng}
}

// SelectMove implements Policy interface
func (p *RandomPolicy) SelectMove(_ storage.PositionKey, legal []*chess.Move) (Decision, error) {
	if len(legal) == 0 {
		return Decision{}, ErrNoLegalMoves
	}
	return Decision{
		Move:       legal[p.rng.Intn(len(legal))],
		Explored:   true,
		Candidates: len(legal),
	}, nil
}
