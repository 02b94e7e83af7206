// Package game runs one interactive game: a human plays White at the console
// and a policy plays Black.
package game

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/notnil/chess"
	"github.com/rs/zerolog"

	"github.com/cartridge/qchess/internal/config"
	"github.com/cartridge/qchess/internal/metrics"
	"github.com/cartridge/qchess/internal/policy"
	"github.com/cartridge/qchess/internal/render"
	"github.com/cartridge/qchess/internal/storage"
)

// Result summarizes a finished game
type Result struct {
	SessionID string
	Outcome   string // "1-0", "0-1" or "1/2-1/2"
	Method    string
	Plies     int
}

// Session owns the board, the policy table and the console for one game
type Session struct {
	cfg *config.Config
	id  string

	backend storage.Backend
	table   *storage.Table
	policy  policy.Policy

	game     *chess.Game
	state    State
	plies    int
	renderer *render.Renderer

	in  *bufio.Reader
	out io.Writer
	rng *rand.Rand

	logger  zerolog.Logger
	metrics *metrics.Collector
	now     func() time.Time
}

// Option customizes a Session
type Option func(*Session)

// WithInput reads moves from r instead of stdin.
func WithInput(r io.Reader) Option {
	return func(s *Session) { s.in = bufio.NewReader(r) }
}

// WithOutput writes the board and prompts to w instead of stdout.
func WithOutput(w io.Writer) Option {
	return func(s *Session) { s.out = w }
}

// WithLogger sets the structured logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Session) { s.logger = logger }
}

// WithRand overrides the random source derived from the configured seed.
func WithRand(rng *rand.Rand) Option {
	return func(s *Session) { s.rng = rng }
}

// WithPolicy replaces the configured policy.
func WithPolicy(p policy.Policy) Option {
	return func(s *Session) { s.policy = p }
}

// New loads the policy table from backend and prepares a game. A missing
// table is not an error: the session starts from an empty one and says so.
func New(ctx context.Context, cfg *config.Config, backend storage.Backend, opts ...Option) (*Session, error) {
	s := &Session{
		cfg:     cfg,
		id:      uuid.New().String(),
		backend: backend,
		in:      bufio.NewReader(os.Stdin),
		out:     os.Stdout,
		logger:  zerolog.Nop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.logger = s.logger.With().Str("session_id", s.id).Logger()
	s.metrics = metrics.NewCollector(s.logger)

	if s.rng == nil {
		seed := cfg.Seed
		if seed == 0 {
			seed = time.Now().UnixNano()
		}
		s.rng = rand.New(rand.NewSource(seed))
	}

	table, err := backend.Load(ctx)
	fresh := false
	switch {
	case errors.Is(err, storage.ErrNotFound):
		fmt.Fprintln(s.out, "No saved Q-table found, starting fresh.")
		table = storage.NewTable()
		fresh = true
	case err != nil:
		return nil, fmt.Errorf("failed to load policy table: %w", err)
	}
	s.table = table
	s.metrics.TableLoaded(cfg.TablePath, table.Len(), fresh)

	gameOpts := []func(*chess.Game){chess.UseNotation(chess.UCINotation{})}
	if cfg.StartFEN != "" {
		fen, err := chess.FEN(cfg.StartFEN)
		if err != nil {
			return nil, fmt.Errorf("invalid start position: %w", err)
		}
		gameOpts = append(gameOpts, fen)
	}
	s.game = chess.NewGame(gameOpts...)

	if s.policy == nil {
		s.policy = s.newPolicy()
	}
	s.renderer = render.New(s.out, !cfg.NoColor)
	s.state = s.nextState()

	return s, nil
}

func (s *Session) newPolicy() policy.Policy {
	if s.cfg.Policy == config.PolicyRandom {
		return policy.NewRandom(s.rng)
	}
	eg := policy.NewEpsilonGreedy(s.table, s.cfg.Epsilon, s.rng)
	eg.OnInit = func(key storage.PositionKey, moves int) {
		s.metrics.PositionInitialized(string(key), moves)
	}
	return eg
}

// ID returns the session identifier used in logs
func (s *Session) ID() string {
	return s.id
}

// State returns the current control state
func (s *Session) State() State {
	return s.state
}

// Table returns the policy table the session reads and seeds
func (s *Session) Table() *storage.Table {
	return s.table
}

// Run plays until the game is over, then reports the result and saves the
// table. Cancelling ctx between half-moves or closing the input stops the
// game without saving.
func (s *Session) Run(ctx context.Context) (Result, error) {
	started := s.now()
	s.logger.Info().Str("state", s.state.String()).Msg("Game starting")
	fmt.Fprintln(s.out, "Starting the game against the AI...")

	for s.state != GameOver {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}

		fmt.Fprintln(s.out, s.renderer.Render(s.game.Position().Board()))

		var err error
		switch s.state {
		case AwaitingWhiteInput:
			err = s.humanTurn()
		case AwaitingBlackSelection:
			err = s.automatedTurn()
		}
		if err != nil {
			return Result{}, err
		}

		s.state = s.afterMove()
	}

	fmt.Fprintln(s.out, s.renderer.Render(s.game.Position().Board()))
	fmt.Fprintln(s.out, "Game over!")

	outcome, method := s.outcome()
	result := Result{
		SessionID: s.id,
		Outcome:   string(outcome),
		Method:    methodName(method),
		Plies:     s.plies,
	}
	s.metrics.GameFinished(result.Outcome, result.Method, result.Plies, s.now().Sub(started))

	saveStart := s.now()
	if err := s.backend.Save(ctx, s.table); err != nil {
		return result, fmt.Errorf("failed to save policy table: %w", err)
	}
	s.metrics.TableSaved(s.cfg.TablePath, s.table.Len(), s.now().Sub(saveStart))

	fmt.Fprintf(s.out, "Game result: %s\n", result.Outcome)
	return result, nil
}

// humanTurn prompts until a legal move is entered and applies it.
func (s *Session) humanTurn() error {
	for {
		fmt.Fprint(s.out, "Enter your move (e.g., 'e2e4'): ")
		line, err := s.readLine()
		if err != nil {
			return err
		}

		move, err := s.resolveHumanMove(line)
		if err != nil {
			var parseErr *ParseError
			var illegalErr *IllegalMoveError
			switch {
			case errors.As(err, &parseErr):
				fmt.Fprintln(s.out, "Invalid move format, try again.")
				s.metrics.HumanMoveRejected(parseErr.Input, "parse")
			case errors.As(err, &illegalErr):
				fmt.Fprintln(s.out, "Invalid move, try again.")
				s.metrics.HumanMoveRejected(illegalErr.Move, "illegal")
			default:
				return err
			}
			continue
		}

		if err := s.game.Move(move); err != nil {
			return fmt.Errorf("failed to apply %s: %w", move, err)
		}
		s.plies++
		return nil
	}
}

// resolveHumanMove maps input to one of the legal moves. A pawn reaching
// the last rank always asks for the promotion piece; the answer replaces
// any letter typed with the move.
func (s *Session) resolveHumanMove(input string) (*chess.Move, error) {
	pos := s.game.Position()
	parsed, err := parseMove(pos, input)
	if err != nil {
		return nil, err
	}

	candidates := movesBetween(s.game.ValidMoves(), parsed.S1(), parsed.S2())
	if len(candidates) == 0 {
		return nil, &IllegalMoveError{Move: parsed.String()}
	}

	if parsed.Promo() != chess.NoPieceType && withPromo(candidates, parsed.Promo()) == nil {
		return nil, &IllegalMoveError{Move: parsed.String()}
	}

	if !reachesLastRank(pos.Board(), candidates[0]) {
		return candidates[0], nil
	}

	promo, err := s.promptPromotion()
	if err != nil {
		return nil, err
	}
	if m := withPromo(candidates, promo); m != nil {
		return m, nil
	}
	return nil, &IllegalMoveError{Move: parsed.String()}
}

func (s *Session) promptPromotion() (chess.PieceType, error) {
	fmt.Fprint(s.out, "Promote pawn to (q for Queen, r for Rook, b for Bishop, n for Knight): ")
	line, err := s.readLine()
	if err != nil {
		return chess.NoPieceType, err
	}
	if promo, ok := promotionPieces[strings.ToLower(strings.TrimSpace(line))]; ok {
		return promo, nil
	}
	fmt.Fprintln(s.out, "Invalid promotion choice, defaulting to Queen.")
	return chess.Queen, nil
}

// automatedTurn asks the policy for a move, forces queen promotion and
// applies it.
func (s *Session) automatedTurn() error {
	pos := s.game.Position()
	legal := s.game.ValidMoves()

	key := storage.NewPositionKey(pos)
	d, err := s.policy.SelectMove(key, legal)
	if err != nil {
		return fmt.Errorf("failed to select move: %w", err)
	}
	move := queenPromotion(pos.Board(), legal, d.Move)
	value := d.Value
	if move != d.Move {
		value, _ = s.table.Value(key, storage.NewMoveID(move))
	}
	s.metrics.MoveSelected(s.plies+1, move.String(), d.Explored, d.Candidates, value)

	fmt.Fprintf(s.out, "AI move: %s\n", move)
	if err := s.game.Move(move); err != nil {
		return fmt.Errorf("failed to apply %s: %w", move, err)
	}
	s.plies++
	return nil
}

// afterMove announces check or checkmate and picks the next state.
func (s *Session) afterMove() State {
	outcome, method := s.outcome()
	if method == chess.Checkmate {
		fmt.Fprintln(s.out, "Checkmate! The game is over.")
		return GameOver
	}
	if moves := s.game.Moves(); len(moves) > 0 && moves[len(moves)-1].HasTag(chess.Check) {
		fmt.Fprintln(s.out, "King is in check!")
	}
	if outcome != chess.NoOutcome {
		return GameOver
	}
	return s.nextState()
}

func (s *Session) nextState() State {
	if outcome, _ := s.outcome(); outcome != chess.NoOutcome {
		return GameOver
	}
	if s.game.Position().Turn() == chess.White {
		return AwaitingWhiteInput
	}
	return AwaitingBlackSelection
}

// outcome reports the game result, falling back to the position status for
// games that start in a finished position.
func (s *Session) outcome() (chess.Outcome, chess.Method) {
	if o := s.game.Outcome(); o != chess.NoOutcome {
		return o, s.game.Method()
	}
	pos := s.game.Position()
	switch pos.Status() {
	case chess.Checkmate:
		if pos.Turn() == chess.White {
			return chess.BlackWon, chess.Checkmate
		}
		return chess.WhiteWon, chess.Checkmate
	case chess.Stalemate:
		return chess.Draw, chess.Stalemate
	}
	return chess.NoOutcome, chess.NoMethod
}

func methodName(m chess.Method) string {
	switch m {
	case chess.Checkmate:
		return "checkmate"
	case chess.Resignation:
		return "resignation"
	case chess.DrawOffer:
		return "draw_offer"
	case chess.Stalemate:
		return "stalemate"
	case chess.ThreefoldRepetition:
		return "threefold_repetition"
	case chess.FivefoldRepetition:
		return "fivefold_repetition"
	case chess.FiftyMoveRule:
		return "fifty_move_rule"
	case chess.SeventyFiveMoveRule:
		return "seventy_five_move_rule"
	case chess.InsufficientMaterial:
		return "insufficient_material"
	default:
		return "none"
	}
}

func (s *Session) readLine() (string, error) {
	line, err := s.in.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) {
			if line != "" {
				return line, nil
			}
			return "", ErrInputClosed
		}
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return line, nil
}
