package game

import (
	"bytes"
	"context"
	"errors"
	"math/rand"
	"strings"
	"testing"

	"github.com/notnil/chess"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cartridge/qchess/internal/config"
	"github.com/cartridge/qchess/internal/policy"
	"github.com/cartridge/qchess/internal/storage"
)

const startFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

type harness struct {
	session *Session
	backend *storage.MemoryBackend
	out     *bytes.Buffer
}

func newHarness(t *testing.T, fen, input string, opts ...Option) *harness {
	t.Helper()
	cfg := config.Default()
	cfg.NoColor = true
	cfg.StartFEN = fen

	backend := storage.NewMemoryBackend()
	out := &bytes.Buffer{}
	opts = append([]Option{
		WithInput(strings.NewReader(input)),
		WithOutput(out),
		WithRand(rand.New(rand.NewSource(1))),
	}, opts...)

	s, err := New(context.Background(), cfg, backend, opts...)
	require.NoError(t, err)
	return &harness{session: s, backend: backend, out: out}
}

// pickPolicy always returns the first legal move matching want.
type pickPolicy struct {
	want func(*chess.Move) bool
}

func (p pickPolicy) SelectMove(_ storage.PositionKey, legal []*chess.Move) (policy.Decision, error) {
	for _, m := range legal {
		if p.want(m) {
			return policy.Decision{Move: m, Candidates: 1}, nil
		}
	}
	return policy.Decision{}, policy.ErrNoLegalMoves
}

type failingBackend struct {
	storage.MemoryBackend
	loadErr error
}

func (f *failingBackend) Load(context.Context) (*storage.Table, error) {
	return nil, f.loadErr
}

func TestNew_FreshTable(t *testing.T) {
	h := newHarness(t, "", "")

	assert.Contains(t, h.out.String(), "No saved Q-table found, starting fresh.")
	assert.Equal(t, 0, h.session.Table().Len())
	assert.Equal(t, AwaitingWhiteInput, h.session.State())
	assert.NotEmpty(t, h.session.ID())
}

func TestNew_LoadsExistingTable(t *testing.T) {
	table := storage.NewTable()
	table.Set(startFEN, "e2e4", 1)
	backend := storage.NewMemoryBackendWith(table)
	out := &bytes.Buffer{}

	s, err := New(context.Background(), config.Default(), backend, WithOutput(out))
	require.NoError(t, err)
	assert.NotContains(t, out.String(), "starting fresh")
	assert.True(t, table.Equal(s.Table()))
}

func TestNew_LoadFailureIsFatal(t *testing.T) {
	backend := &failingBackend{loadErr: errors.New("permission denied")}

	_, err := New(context.Background(), config.Default(), backend, WithOutput(&bytes.Buffer{}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "permission denied")
}

func TestNew_InvalidStartFEN(t *testing.T) {
	cfg := config.Default()
	cfg.StartFEN = "not a position"

	_, err := New(context.Background(), cfg, storage.NewMemoryBackend(), WithOutput(&bytes.Buffer{}))
	assert.Error(t, err)
}

func TestNew_BlackToMoveStartsWithSelection(t *testing.T) {
	h := newHarness(t, "rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq e3 0 1", "")
	assert.Equal(t, AwaitingBlackSelection, h.session.State())
}

func TestHumanTurn_E2E4(t *testing.T) {
	h := newHarness(t, "", "e2e4\n")

	require.NoError(t, h.session.humanTurn())

	board := h.session.game.Position().Board()
	assert.Equal(t, chess.WhitePawn, board.Piece(chess.E4))
	assert.Equal(t, chess.NoPiece, board.Piece(chess.E2))
	assert.Equal(t, AwaitingBlackSelection, h.session.afterMove())
}

func TestHumanTurn_ParseErrorReprompts(t *testing.T) {
	h := newHarness(t, "", "zz99\ne2e4\n")

	_, err := h.session.resolveHumanMove("zz99")
	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Equal(t, "zz99", parseErr.Input)
	assert.Equal(t, startFEN, h.session.game.Position().String())

	require.NoError(t, h.session.humanTurn())

	out := h.out.String()
	assert.Contains(t, out, "Invalid move format, try again.")
	assert.Equal(t, 2, strings.Count(out, "Enter your move (e.g., 'e2e4'): "))
	assert.Equal(t, chess.WhitePawn, h.session.game.Position().Board().Piece(chess.E4))
	assert.Equal(t, 1, h.session.plies)
}

func TestHumanTurn_IllegalMoveReprompts(t *testing.T) {
	h := newHarness(t, "", "e2e5\ne7e5\ne2e4\n")

	_, err := h.session.resolveHumanMove("e2e5")
	var illegalErr *IllegalMoveError
	require.ErrorAs(t, err, &illegalErr)
	assert.Equal(t, "e2e5", illegalErr.Move)

	require.NoError(t, h.session.humanTurn())

	out := h.out.String()
	assert.Equal(t, 2, strings.Count(out, "Invalid move, try again."))
	assert.Equal(t, chess.WhitePawn, h.session.game.Position().Board().Piece(chess.E4))
}

func TestHumanTurn_PromotionLetterOnNonPawnMoveIsIllegal(t *testing.T) {
	h := newHarness(t, "", "")

	_, err := h.session.resolveHumanMove("e2e4q")
	var illegalErr *IllegalMoveError
	assert.ErrorAs(t, err, &illegalErr)
}

func TestHumanTurn_PromotionAnswerReplacesTypedLetter(t *testing.T) {
	h := newHarness(t, "8/P7/8/8/8/8/8/k1K5 w - - 0 1", "a7a8n\nr\n")

	require.NoError(t, h.session.humanTurn())
	assert.Contains(t, h.out.String(), "Promote pawn to (q for Queen, r for Rook, b for Bishop, n for Knight): ")
	assert.Equal(t, chess.WhiteRook, h.session.game.Position().Board().Piece(chess.A8))
}

func TestHumanTurn_TypedPromotionDefaultsToQueen(t *testing.T) {
	h := newHarness(t, "8/P7/8/8/8/8/8/k1K5 w - - 0 1", "a7a8n\nk\n")

	require.NoError(t, h.session.humanTurn())
	assert.Contains(t, h.out.String(), "Invalid promotion choice, defaulting to Queen.")
	assert.Equal(t, chess.WhiteQueen, h.session.game.Position().Board().Piece(chess.A8))
}

func TestHumanTurn_UpperCaseIsMalformed(t *testing.T) {
	h := newHarness(t, "", "E2E4\ne2e4\n")

	require.NoError(t, h.session.humanTurn())
	assert.Equal(t, 1, strings.Count(h.out.String(), "Invalid move format, try again."))
	assert.Equal(t, chess.WhitePawn, h.session.game.Position().Board().Piece(chess.E4))
}

func TestHumanTurn_NullMoveIsIllegal(t *testing.T) {
	h := newHarness(t, "", "0000\ne2e4\n")

	require.NoError(t, h.session.humanTurn())
	out := h.out.String()
	assert.Equal(t, 1, strings.Count(out, "Invalid move, try again."))
	assert.NotContains(t, out, "Invalid move format")
}

func TestHumanTurn_PromptedPromotion(t *testing.T) {
	h := newHarness(t, "8/P7/8/8/8/8/8/k1K5 w - - 0 1", "a7a8\nR\n")

	require.NoError(t, h.session.humanTurn())
	assert.Contains(t, h.out.String(), "Promote pawn to (q for Queen, r for Rook, b for Bishop, n for Knight): ")
	assert.Equal(t, chess.WhiteRook, h.session.game.Position().Board().Piece(chess.A8))
}

func TestHumanTurn_InputClosed(t *testing.T) {
	h := newHarness(t, "", "")
	assert.ErrorIs(t, h.session.humanTurn(), ErrInputClosed)
}

func TestHumanTurn_LastLineWithoutNewline(t *testing.T) {
	h := newHarness(t, "", "d2d4")
	require.NoError(t, h.session.humanTurn())
	assert.Equal(t, chess.WhitePawn, h.session.game.Position().Board().Piece(chess.D4))
}

func TestAutomatedTurn_InitializesPosition(t *testing.T) {
	h := newHarness(t, "", "e2e4\n")
	require.NoError(t, h.session.humanTurn())

	key := storage.NewPositionKey(h.session.game.Position())
	require.NoError(t, h.session.automatedTurn())

	values, ok := h.session.Table().Lookup(key)
	require.True(t, ok)
	assert.Len(t, values, 20)
	assert.Contains(t, h.out.String(), "AI move: ")
	assert.Equal(t, chess.White, h.session.game.Position().Turn())
	assert.Equal(t, 2, h.session.plies)
}

func TestAutomatedTurn_ForcesQueenPromotion(t *testing.T) {
	underpromote := pickPolicy{want: func(m *chess.Move) bool { return m.Promo() == chess.Knight }}
	h := newHarness(t, "8/8/8/8/8/8/1p6/k5K1 b - - 0 1", "", WithPolicy(underpromote))

	require.NoError(t, h.session.automatedTurn())

	assert.Equal(t, chess.BlackQueen, h.session.game.Position().Board().Piece(chess.B1))
	assert.Contains(t, h.out.String(), "AI move: b2b1q")
	assert.Equal(t, AwaitingWhiteInput, h.session.afterMove())
	assert.Contains(t, h.out.String(), "King is in check!")
}

func TestAutomatedTurn_LogsValueOfPlayedMove(t *testing.T) {
	var logs bytes.Buffer
	underpromote := pickPolicy{want: func(m *chess.Move) bool { return m.Promo() == chess.Knight }}
	h := newHarness(t, "8/8/8/8/8/8/1p6/k5K1 b - - 0 1", "",
		WithPolicy(underpromote),
		WithLogger(zerolog.New(&logs).Level(zerolog.DebugLevel)),
	)
	key := storage.NewPositionKey(h.session.game.Position())
	h.session.Table().Set(key, "b2b1q", 0.75)
	h.session.Table().Set(key, "b2b1n", -0.5)

	require.NoError(t, h.session.automatedTurn())

	assert.Contains(t, logs.String(), `"move":"b2b1q"`)
	assert.Contains(t, logs.String(), `"value":0.75`)
}

func TestRun_CheckmateSavesTable(t *testing.T) {
	h := newHarness(t, "6k1/5ppp/8/8/8/8/8/R5K1 w - - 0 1", "a1a8\n")

	result, err := h.session.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "1-0", result.Outcome)
	assert.Equal(t, "checkmate", result.Method)
	assert.Equal(t, 1, result.Plies)
	assert.Equal(t, GameOver, h.session.State())
	assert.Equal(t, 1, h.backend.Saves())

	out := h.out.String()
	assert.Contains(t, out, "Checkmate! The game is over.")
	assert.Contains(t, out, "Game over!")
	assert.Contains(t, out, "Game result: 1-0")
}

func TestRun_PromotionDefaultsToQueen(t *testing.T) {
	h := newHarness(t, "8/P7/8/8/8/8/8/k1K5 w - - 0 1", "a7a8\nx\n")

	result, err := h.session.Run(context.Background())
	require.NoError(t, err)

	assert.Contains(t, h.out.String(), "Invalid promotion choice, defaulting to Queen.")
	assert.Equal(t, chess.WhiteQueen, h.session.game.Position().Board().Piece(chess.A8))
	assert.Equal(t, "1-0", result.Outcome)
	assert.Equal(t, 1, h.backend.Saves())
}

func TestRun_AutomatedReplyUpdatesTable(t *testing.T) {
	// White mates on the second move whatever Black's forced king move was.
	h := newHarness(t, "7k/8/6K1/8/8/8/8/R7 w - - 0 1", "a1b1\nb1b8\n")

	result, err := h.session.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "1-0", result.Outcome)
	assert.Equal(t, 3, result.Plies)
	assert.Contains(t, h.out.String(), "AI move: h8g8")

	saved, err := h.backend.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, saved.Len())
	assert.True(t, h.session.Table().Equal(saved))
}

func TestRun_StartsInStalemate(t *testing.T) {
	h := newHarness(t, "k7/8/1Q6/8/8/8/8/7K b - - 0 1", "")
	assert.Equal(t, GameOver, h.session.State())

	result, err := h.session.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "1/2-1/2", result.Outcome)
	assert.Equal(t, "stalemate", result.Method)
	assert.Equal(t, 1, h.backend.Saves())
}

func TestRun_InputClosedSkipsSave(t *testing.T) {
	h := newHarness(t, "", "e2e4\n")

	_, err := h.session.Run(context.Background())
	assert.ErrorIs(t, err, ErrInputClosed)
	assert.Equal(t, 0, h.backend.Saves())
}

func TestRun_CancelledContextSkipsSave(t *testing.T) {
	h := newHarness(t, "", "e2e4\n")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := h.session.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, h.backend.Saves())
}

func TestRun_RandomPolicyLeavesTableEmpty(t *testing.T) {
	cfg := config.Default()
	cfg.NoColor = true
	cfg.Policy = config.PolicyRandom
	cfg.StartFEN = "7k/8/6K1/8/8/8/8/R7 w - - 0 1"
	backend := storage.NewMemoryBackend()

	s, err := New(context.Background(), cfg, backend,
		WithInput(strings.NewReader("a1b1\nb1b8\n")),
		WithOutput(&bytes.Buffer{}),
		WithRand(rand.New(rand.NewSource(3))),
	)
	require.NoError(t, err)

	result, err := s.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "1-0", result.Outcome)
	assert.Equal(t, 0, s.Table().Len())
}
