package autotune

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

// validate checks struct tags on configuration types before a session
// starts.
var validate = validator.New(validator.WithRequiredStructEnabled())

// Config is a single point in the search space: one concrete value per
// parameter, keyed by parameter name. Values are scalars (bool, string, or a
// numeric type) and must be type-consistent with the parameter they belong
// to.
//
// Usage:
//
//	// Example 1: A cache tuning configuration
//	config := autotune.Config{
//	    "cache_size": 4096,
//	    "eviction":   "lru",
//	}
//
//	// Example 2: A threshold configuration with a continuous parameter
//	config := autotune.Config{
//	    "threshold": 0.35,
//	    "enabled":   true,
//	}
//
// Validation:
// - Every parameter of the search space must be present
// - No keys outside the search space are allowed
// - Each value must match its parameter spec (member of the discrete list,
//   or a number within the continuous range)
type Config map[string]any

// Candidate is a configuration a strategy wants evaluated, optionally at a
// reduced resource level.
type Candidate struct {
	// Config is the configuration to evaluate.
	Config Config

	// Resource is the budget level the evaluation should run at.
	// - Zero means full resource: the evaluator's plain Evaluate method runs
	// - Positive values are forwarded to evaluators implementing
	//   ResourceEvaluator
	// - Evaluators without resource support are invoked normally, making the
	//   level advisory only
	Resource float64
}

// Trial is the outcome of evaluating one candidate.
type Trial struct {
	// Index is the global completion index of the trial within the session,
	// 0-based. Trials are indexed in the order they finish, which with
	// concurrent workers is not necessarily the order they were proposed.
	Index int

	// Config is the configuration that was evaluated.
	Config Config

	// Resource is the resource level the trial ran at (zero = full).
	Resource float64

	// Score is the figure of merit returned by the evaluator.
	// Higher is better. NaN when the trial failed.
	Score float64

	// Err is the evaluation error, nil on success.
	Err error

	// Start and End delimit the wall-clock execution of the trial.
	Start time.Time
	End   time.Time

	// Cost is End minus Start.
	Cost time.Duration
}

// TunerStrategy proposes candidates and learns from their outcomes. The
// harness drives every strategy through the same loop: ask for a batch of
// candidates, evaluate them, hand the results back, repeat until the
// strategy returns an empty batch or the budget runs out.
//
// Built-in strategies:
// - RandomTuner: independent uniform samples, no adaptation
// - GridTuner: exhaustive sweep over a discretized space
// - CoordinateDescentTuner: greedy one-dimensional line searches
// - SuccessiveHalvingTuner: resource-aware elimination tournament
// - HyperbandTuner: successive halving across several aggressiveness levels
//
// Implementation notes for custom strategies:
// - Propose must never return more candidates than remaining allows
// - An empty batch means "done"; the harness will not call Propose again
// - Observe is called exactly once per non-empty batch, after every trial of
//   the batch finished; failed trials carry a NaN score
// - When the budget dies mid-batch, Observe receives only the trials that
//   actually ran
//
// Thread safety:
// - The harness calls Propose and Observe from a single goroutine, never
//   concurrently, and never while trials of the current batch are still
//   running. Implementations need no internal locking.
type TunerStrategy interface {
	// Name returns the strategy identifier used in logs and reports.
	Name() string

	// Propose returns the next batch of candidates to evaluate.
	Propose(remaining int) ([]Candidate, error)

	// Observe delivers the finished trials of the last batch, in proposal
	// order.
	Observe(trials []Trial)
}

// ProgressFunc receives a notification after every finished trial: the
// trial's global completion index and its score (NaN for failures).
//
// Usage example:
//
//	cfg.OnTrial = func(index int, score float64) {
//	    fmt.Printf("trial %d finished: %f\n", index, score)
//	}
//
// Important notes:
// - Invocations are serialized by the harness, so implementations need no
//   locking of their own
// - The callback runs on the evaluation path; keep it fast.
type ProgressFunc func(index int, score float64)

// Budget bounds a tuning session. At least one of the two limits must be
// set.
type Budget struct {
	// MaxTrials is the maximum number of evaluations.
	// Zero means no trial limit.
	MaxTrials int `validate:"gte=0"`

	// MaxCost is the ceiling on summed evaluation wall-clock time.
	// Zero means no cost ceiling.
	//
	// The ceiling is checked between trials; a trial that is already running
	// is never interrupted, so the recorded total may overshoot the ceiling
	// by up to one in-flight trial per worker.
	MaxCost time.Duration `validate:"gte=0"`
}

// bounded reports whether at least one budget limit is set.
func (b Budget) bounded() bool {
	return b.MaxTrials > 0 || b.MaxCost > 0
}

// Failed reports whether the trial's evaluation returned an error.
func (t Trial) Failed() bool {
	return t.Err != nil
}

// SessionConfig holds all settings for one tuning session. It controls which
// strategy runs, how much work the session may spend, and how progress is
// surfaced.
//
// Usage example:
//
//	cfg := autotune.DefaultSessionConfig()
//
//	// Spend at most 200 trials.
//	cfg.Budget.MaxTrials = 200
//
//	// Run 4 evaluations concurrently.
//	cfg.NumWorkers = 4
//
//	// Print a line per finished trial.
//	cfg.OnTrial = func(index int, score float64) {
//	    fmt.Printf("trial %d: %f\n", index, score)
//	}
//
//	report, err := autotune.Tune(ctx, space, evaluator, cfg)
//
// Note:
// - Create separate configs for parallel sessions.
type SessionConfig struct {
	// Strategy decides which configurations get evaluated.
	// nil selects a time-seeded RandomTuner with default settings.
	Strategy TunerStrategy

	// Budget bounds the session. At least one limit is required.
	Budget Budget

	// NumWorkers is the number of evaluations allowed to run concurrently.
	// Recommended range: 1 to the evaluator's safe concurrency level.
	NumWorkers int `validate:"gte=1"`

	// OnTrial, when set, is invoked after every finished trial.
	// If nil, no notifications are sent.
	OnTrial ProgressFunc

	// AbortWindow is the number of most recent trials the failure guard
	// inspects. Zero disables the guard.
	AbortWindow int `validate:"gte=0"`

	// AbortThreshold is the failure fraction within AbortWindow at which the
	// session aborts. Only consulted once AbortWindow trials have finished.
	AbortThreshold float64 `validate:"gte=0,lte=1"`

	// Logger receives structured progress events.
	// Defaults to a disabled logger.
	Logger zerolog.Logger
}

//////
// Factory.
//////

// DefaultSessionConfig returns a SessionConfig with sensible defaults: a
// 50-trial budget, a single worker, the failure guard inspecting the last 10
// trials with an 0.8 abort threshold, and a disabled logger. Strategy is
// left nil, which selects a time-seeded RandomTuner at session start.
//
// Default values recommendations:
// - Budget.MaxTrials: 50 (increase for more thorough tuning)
// - NumWorkers: 1 (increase only if the evaluator tolerates concurrency)
// - AbortWindow/AbortThreshold: 10 and 0.8 (catch broken evaluators early)
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		Budget:         Budget{MaxTrials: 50},
		NumWorkers:     1,
		AbortWindow:    10,
		AbortThreshold: 0.8,
		Logger:         zerolog.Nop(),
	}
}
