package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/thalesfsp/autotune"
)

var rootCmd = &cobra.Command{
	Use:   "autotune --space <schema> [flags] -- <command> [args...]",
	Short: "Autotune finds the best configuration for a command by trying candidates within a budget",
	Long: `Autotune tunes the parameters of any runnable command. You describe the
search space in a JSON or YAML schema, pick a strategy and a budget, and
autotune runs the command once per candidate configuration. The command
receives each candidate as AUTOTUNE_PARAM_* environment variables (and as a
JSON document on stdin) and must print a score as the last line of its
standard output. Higher scores win.

Example schema (space.yaml):

  cache_size: [1024, 4096, 16384]
  eviction: [lru, lfu, arc]
  threshold:
    range: [0, 1]

Example run:

  autotune --space space.yaml --strategy random --max-trials 100 -- ./bench.sh`,
	Args: cobra.MinimumNArgs(1),
	RunE: runTuning,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.Flags().String("space", "", "Path to the search space schema (JSON or YAML)")
	rootCmd.Flags().String("config", "", "Path to a settings file (JSON or YAML)")
	rootCmd.Flags().String("env-file", "", "Path to a .env file to load before anything else")

	rootCmd.Flags().String("strategy", "", "Strategy: random, grid, coordinate_descent, successive_halving, hyperband")
	rootCmd.Flags().Int("max-trials", 0, "Maximum number of trials")
	rootCmd.Flags().String("max-cost", "", "Ceiling on summed evaluation time, e.g. 10m")
	rootCmd.Flags().Int("workers", 0, "Number of concurrent evaluations")
	rootCmd.Flags().Int64("seed", 0, "Random seed; 0 seeds from the clock")

	rootCmd.Flags().Int("grid-points", 0, "Grid values per continuous parameter")
	rootCmd.Flags().Int("line-points", 0, "Coordinate descent probes per continuous parameter")
	rootCmd.Flags().Int("restarts", 0, "Coordinate descent restarts after convergence")
	rootCmd.Flags().Int("eta", 0, "Halving factor for successive halving and hyperband")
	rootCmd.Flags().Int("budget", 0, "Resource budget of a successive halving sweep")
	rootCmd.Flags().Float64("min-resource", 0, "Resource level of the first halving rung")
	rootCmd.Flags().Float64("max-resource", 0, "Highest resource level (halving and hyperband)")
	rootCmd.Flags().Bool("focus-best", false, "Seed later hyperband brackets near the best seen")

	rootCmd.Flags().Uint("retries", 0, "Extra attempts per failed evaluation")
	rootCmd.Flags().Int("top", 0, "Number of trials to list in the result table")
	rootCmd.Flags().BoolP("verbose", "v", false, "Log every trial")
}

// runTuning is the whole pipeline: settings, schema, evaluator, session,
// report.
func runTuning(cmd *cobra.Command, args []string) error {
	if envFile, _ := cmd.Flags().GetString("env-file"); envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return errors.Wrap(err, "loading env file")
		}
	}

	cfg, err := loadSettings(cmd)
	if err != nil {
		return err
	}

	logger := newLogger(cfg.Verbose)

	space, err := loadSpace(cfg.Space)
	if err != nil {
		return err
	}

	strategy, err := buildStrategy(space, cfg)
	if err != nil {
		return err
	}

	var evaluator autotune.Evaluator = newCommandEvaluator(args, logger)

	if cfg.Retries > 0 {
		retryCfg := autotune.DefaultRetryConfig()
		retryCfg.MaxTries = cfg.Retries + 1
		retryCfg.Logger = logger

		evaluator, err = autotune.NewRetryEvaluator(evaluator, retryCfg)
		if err != nil {
			return err
		}
	}

	maxCost, err := parseMaxCost(cfg.MaxCost)
	if err != nil {
		return err
	}

	session := autotune.DefaultSessionConfig()
	session.Strategy = strategy
	session.Budget = autotune.Budget{
		MaxTrials: cfg.MaxTrials,
		MaxCost:   maxCost,
	}
	session.NumWorkers = cfg.Workers
	session.Logger = logger

	// Interrupts stop the session between trials; whatever already ran is
	// still reported.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	report, err := autotune.Tune(ctx, space, evaluator, session)

	if report != nil {
		if renderErr := renderReport(report, cfg.Top); renderErr != nil {
			return renderErr
		}
	}

	switch {
	case err == nil:
		return nil
	case autotune.IsBudgetExhausted(err):
		// The normal end of most sessions.
		logger.Info().Msg("Budget exhausted")

		return nil
	default:
		return err
	}
}

// newLogger builds the console logger sessions log through.
func newLogger(verbose bool) zerolog.Logger {
	level := zerolog.InfoLevel

	if verbose {
		level = zerolog.DebugLevel
	}

	return zerolog.New(zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
	}).
		Level(level).
		With().
		Timestamp().
		Logger()
}

// loadSpace reads and parses the search space schema, picking the parser by
// file extension.
func loadSpace(path string) (*autotune.SearchSpace, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "reading search space schema")
	}

	if strings.EqualFold(filepath.Ext(path), ".json") {
		return autotune.ParseSearchSpaceJSON(data)
	}

	return autotune.ParseSearchSpaceYAML(data)
}

// parseMaxCost turns the human-friendly duration setting into a
// time.Duration; empty means no ceiling.
func parseMaxCost(value string) (time.Duration, error) {
	if value == "" {
		return 0, nil
	}

	maxCost, err := time.ParseDuration(value)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid max cost %q", value)
	}

	if maxCost < 0 {
		return 0, fmt.Errorf("max cost must not be negative, got %q", value)
	}

	return maxCost, nil
}
