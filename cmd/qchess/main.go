package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/cartridge/qchess/internal/config"
	"github.com/cartridge/qchess/internal/game"
	"github.com/cartridge/qchess/internal/storage"
)

func newRootCmd() *cobra.Command {
	v := viper.New()
	defaults := config.Default()

	rootCmd := &cobra.Command{
		Use:   "qchess",
		Short: "Play chess against a table-driven opponent",
		Long: `qchess plays one game of chess at the console. You play White by typing
moves in coordinate notation (e2e4, e7e8q); Black answers from a persisted
table of move values using epsilon-greedy selection. The table is loaded at
start and saved when the game ends.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(v)
			if err != nil {
				return err
			}
			return runGame(cmd.Context(), cfg, cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	// Table settings
	flags := rootCmd.PersistentFlags()
	flags.String("table", defaults.TablePath, "Path of the policy table file")
	flags.Bool("ephemeral", defaults.Ephemeral, "Keep the policy table in memory only")

	// Logging
	flags.String("log-level", defaults.LogLevel, "Log level (debug, info, warn, error)")

	// Selection settings
	rootCmd.Flags().String("policy", defaults.Policy, "Move policy (epsilon-greedy, random)")
	rootCmd.Flags().Float64("epsilon", defaults.Epsilon, "Exploration probability")
	rootCmd.Flags().Int64("seed", defaults.Seed, "Random seed (0 seeds from the clock)")

	// Game settings
	rootCmd.Flags().String("start-fen", defaults.StartFEN, "Start from this FEN instead of the initial position")
	rootCmd.Flags().Bool("no-color", defaults.NoColor, "Print the board without colors")

	bindFlags(v, flags, map[string]string{
		"table":     "table_path",
		"ephemeral": "ephemeral",
		"log-level": "log_level",
	})
	bindFlags(v, rootCmd.Flags(), map[string]string{
		"policy":    "policy",
		"epsilon":   "epsilon",
		"seed":      "seed",
		"start-fen": "start_fen",
		"no-color":  "no_color",
	})

	// Environment variables, e.g. QCHESS_TABLE_PATH
	v.SetEnvPrefix("QCHESS")
	v.AutomaticEnv()

	rootCmd.AddCommand(newStatsCmd(v))
	return rootCmd
}

func newStatsCmd(v *viper.Viper) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Summarize the persisted policy table",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(v)
			if err != nil {
				return err
			}
			return printStats(cmd.Context(), cfg, cmd.OutOrStdout(), asJSON)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print statistics as JSON")
	return cmd
}

func bindFlags(v *viper.Viper, flags *pflag.FlagSet, keys map[string]string) {
	for name, key := range keys {
		if err := v.BindPFlag(key, flags.Lookup(name)); err != nil {
			panic(fmt.Sprintf("bind flag %s: %v", name, err))
		}
	}
}

func loadConfig(v *viper.Viper) (*config.Config, error) {
	cfg, err := config.FromViper(v)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func newLogger(cfg *config.Config, w io.Writer) zerolog.Logger {
	lvl, err := cfg.Level()
	if err != nil {
		lvl = zerolog.WarnLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: w, NoColor: cfg.NoColor}).
		Level(lvl).
		With().Timestamp().Logger()
}

func newBackend(cfg *config.Config) storage.Backend {
	if cfg.Ephemeral {
		return storage.NewMemoryBackend()
	}
	return storage.NewFileBackend(cfg.TablePath)
}

func runGame(ctx context.Context, cfg *config.Config, in io.Reader, out, errOut io.Writer) error {
	logger := newLogger(cfg, errOut)

	backend := newBackend(cfg)
	defer func() {
		if err := backend.Close(); err != nil {
			logger.Error().Err(err).Msg("Error closing table backend")
		}
	}()

	session, err := game.New(ctx, cfg, backend,
		game.WithInput(in),
		game.WithOutput(out),
		game.WithLogger(logger),
	)
	if err != nil {
		return err
	}

	result, err := session.Run(ctx)
	if err != nil {
		if errors.Is(err, game.ErrInputClosed) {
			logger.Warn().Msg("Input closed before the game ended; table not saved")
		}
		return err
	}

	logger.Info().
		Str("session_id", result.SessionID).
		Str("result", result.Outcome).
		Str("method", result.Method).
		Int("plies", result.Plies).
		Msg("Game complete")
	return nil
}

func printStats(ctx context.Context, cfg *config.Config, out io.Writer, asJSON bool) error {
	if cfg.Ephemeral {
		return errors.New("stats needs a table file, not an ephemeral table")
	}
	backend := storage.NewFileBackend(cfg.TablePath)
	defer backend.Close()

	table, err := backend.Load(ctx)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		table = storage.NewTable()
	case err != nil:
		return err
	}
	stats := table.Stats()

	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(stats)
	}

	fmt.Fprintf(out, "Table:            %s\n", cfg.TablePath)
	fmt.Fprintf(out, "Positions:        %d\n", stats.Positions)
	fmt.Fprintf(out, "Moves:            %d\n", stats.Moves)
	fmt.Fprintf(out, "Non-zero entries: %d\n", stats.NonZeroEntries)
	if stats.Moves > 0 {
		fmt.Fprintf(out, "Value range:      [%g, %g]\n", stats.MinValue, stats.MaxValue)
	}
	return nil
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
