package metrics

import (
	"time"

	"github.com/rs/zerolog"
)

// Collector records game and selector events as structured log lines
type Collector struct {
	logger zerolog.Logger
}

func NewCollector(logger zerolog.Logger) *Collector {
	return &Collector{
		logger: logger,
	}
}

// Track table load outcome
func (c *Collector) TableLoaded(source string, positions int, fresh bool) {
	c.logger.Info().
		Str("metric", "table_loaded").
		Str("source", source).
		Int("positions", positions).
		Bool("fresh", fresh).
		Msg("Policy table loaded")
}

// Track table persistence
func (c *Collector) TableSaved(source string, positions int, duration time.Duration) {
	c.logger.Info().
		Str("metric", "table_saved").
		Str("source", source).
		Int("positions", positions).
		Dur("duration", duration).
		Msg("Policy table saved")
}

// Track lazy initialization of unseen positions
func (c *Collector) PositionInitialized(key string, moves int) {
	c.logger.Debug().
		Str("metric", "position_initialized").
		Str("position", key).
		Int("moves", moves).
		Msg("Position added to policy table")
}

// Track automated move selection
func (c *Collector) MoveSelected(ply int, move string, explored bool, candidates int, value float64) {
	c.logger.Debug().
		Str("metric", "move_selected").
		Int("ply", ply).
		Str("move", move).
		Bool("explored", explored).
		Int("candidates", candidates).
		Float64("value", value).
		Msg("Automated move selected")
}

// Track rejected human input
func (c *Collector) HumanMoveRejected(input string, reason string) {
	c.logger.Debug().
		Str("metric", "human_move_rejected").
		Str("input", input).
		Str("reason", reason).
		Msg("Human move rejected")
}

// Track finished games
func (c *Collector) GameFinished(result string, method string, plies int, duration time.Duration) {
	c.logger.Info().
		Str("metric", "game_finished").
		Str("result", result).
		Str("method", method).
		Int("plies", plies).
		Dur("duration", duration).
		Msg("Game finished")
}
