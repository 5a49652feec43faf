package autotune

import (
	"context"
)

//////
// Exported functionalities.
//////

// Tune runs one tuning session: the strategy proposes candidate
// configurations, a bounded worker pool evaluates them, the strategy sees
// the outcomes and proposes again, until it finishes or the budget runs out.
// The returned report captures everything the session measured.
//
// Parameters:
// - ctx: Cancels the session between trials; in-flight evaluations are left
//   to finish (or to honor ctx themselves)
// - space: The search space candidates are drawn from
// - evaluator: Measures configurations; see Evaluator for the contract
// - cfg: Session settings; start from DefaultSessionConfig()
//
// Returns:
// - *Report: The session outcome. Non-nil whenever a session actually ran,
//   including aborted and budget-exhausted sessions
// - error: nil when the strategy finished within budget. ErrBudgetExhausted
//   when the budget ran out first, an AbortedError when the failure guard
//   tripped, the context error on cancellation, or a ConfigError when the
//   inputs were invalid (in which case the report is nil)
//
// Usage example:
//
//	space, err := autotune.NewSearchSpace(
//	    autotune.Discrete("workers", 1, 2, 4, 8),
//	    autotune.Continuous("threshold", 0, 1),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	evaluator := autotune.EvaluatorFunc(func(ctx context.Context, config autotune.Config) (float64, error) {
//	    return runBenchmark(ctx, config)
//	})
//
//	cfg := autotune.DefaultSessionConfig()
//	cfg.Budget.MaxTrials = 100
//	cfg.NumWorkers = 4
//
//	report, err := autotune.Tune(ctx, space, evaluator, cfg)
//	if err != nil && !autotune.IsBudgetExhausted(err) {
//	    log.Fatal(err)
//	}
//
//	fmt.Printf("best: %v (score %f)\n", report.BestConfig, report.BestScore)
//
// How it works:
// 1. Validates the space, the evaluator, and the session settings
// 2. Asks the strategy for a batch of candidates
// 3. Evaluates the batch on up to NumWorkers concurrent workers, recording
//    score, duration, and failure per trial
// 4. Hands the finished batch back to the strategy and repeats from 2
// 5. Stops when the strategy proposes nothing, the budget is spent, the
//    failure guard trips, or ctx is cancelled
//
// Important notes:
// - Failed trials never stop the session by themselves; they are recorded
//   with a NaN score and tuning continues
// - The score history is append-only and ordered by completion, so with
//   NumWorkers > 1 the order differs from proposal order
// - Reproducibility: strategies draw candidates in Propose, on a single
//   goroutine, so a fixed-seed strategy proposes identical candidates no
//   matter how many workers evaluate them
//
// Best practices:
// - Start with a RandomTuner baseline before reaching for the adaptive
//   strategies
// - Keep NumWorkers at 1 unless the evaluator is safe to run concurrently
// - Give successive halving and hyperband a ResourceEvaluator; they depend
//   on cheap low-resource probes for their advantage
//
// Performance considerations:
// - Total runtime is dominated by evaluations; bookkeeping is O(1) per trial
// - Memory grows linearly with the number of trials (history and report).
func Tune(ctx context.Context, space *SearchSpace, evaluator Evaluator, cfg SessionConfig) (*Report, error) {
	if space == nil {
		return nil, NewConfigError("", "tuning needs a search space", nil)
	}

	if evaluator == nil {
		return nil, NewConfigError("", "tuning needs an evaluator", nil)
	}

	if err := validate.Struct(cfg); err != nil {
		return nil, NewConfigError("", "invalid session settings", err)
	}

	if !cfg.Budget.bounded() {
		return nil, NewConfigError("", "session needs a trial or cost budget", nil)
	}

	if cfg.Strategy == nil {
		strategy, err := NewRandomTuner(space, DefaultRandomTunerConfig())
		if err != nil {
			return nil, err
		}

		cfg.Strategy = strategy
	}

	h := newHarness(space, evaluator, cfg)

	err := h.run(ctx)

	report := h.report()

	h.logger.Info().
		Int("trials", report.Len()).
		Int("failures", report.Failures).
		Float64("best_score", report.BestScore).
		Dur("total_cost", report.TotalCost).
		Msg("Tuning session finished")

	return report, err
}
