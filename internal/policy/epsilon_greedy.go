package policy

import (
	"math/rand"

	"github.com/notnil/chess"

	"github.com/cartridge/qchess/internal/storage"
)

// DefaultEpsilon is the exploration probability used when none is configured
const DefaultEpsilon = 0.1

// EpsilonGreedy reads move values from a table. With probability epsilon it
// picks any legal move; otherwise it picks uniformly among the moves holding
// the highest value. It never writes values, it only seeds unseen positions
// with zeros.
type EpsilonGreedy struct {
	table   *storage.Table
	epsilon float64
	rng     *rand.Rand
	explore *RandomPolicy

	// OnInit, if set, is called when a position is added to the table
	OnInit func(key storage.PositionKey, moves int)
}

// NewEpsilonGreedy creates a selector over table. rng is the only source of
// randomness, so a seeded rng makes selection reproducible.
func NewEpsilonGreedy(table *storage.Table, epsilon float64, rng *rand.Rand) *EpsilonGreedy {
	return &EpsilonGreedy{
		table:   table,
		epsilon: epsilon,
		rng:     rng,
		explore: NewRandom(rng),
	}
}

// Epsilon returns the exploration probability
func (p *EpsilonGreedy) Epsilon() float64 {
	return p.epsilon
}

// SelectMove implements Policy interface
func (p *EpsilonGreedy) SelectMove(key storage.PositionKey, legal []*chess.Move) (Decision, error) {
	if len(legal) == 0 {
		return Decision{}, ErrNoLegalMoves
	}

	ids := storage.MoveIDs(legal)
	values, created := p.table.GetOrInit(key, ids)
	if created && p.OnInit != nil {
		p.OnInit(key, len(ids))
	}

	moveValues := make([]float64, len(legal))
	for i, id := range ids {
		moveValues[i] = values[id] // missing ids read as 0
	}

	if p.rng.Float64() < p.epsilon {
		d, err := p.explore.SelectMove(key, legal)
		if err != nil {
			return Decision{}, err
		}
		d.Value = values[storage.NewMoveID(d.Move)]
		return d, nil
	}

	best := moveValues[0]
	for _, v := range moveValues[1:] {
		if v > best {
			best = v
		}
	}
	ties := make([]*chess.Move, 0, len(legal))
	for i, v := range moveValues {
		if v == best {
			ties = append(ties, legal[i])
		}
	}
	if len(ties) == 0 {
		// only reachable when values hold NaN
		ties = legal
	}

	return Decision{
		Move:       ties[p.rng.Intn(len(ties))],
		Candidates: len(ties),
		Value:      best,
	}, nil
}
