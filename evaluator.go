package autotune

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/rs/zerolog"
)

//////
// Const, vars, types.
//////

// Evaluator measures how good a configuration is. It is the only window the
// tuner has into the system under tuning: implementations run a benchmark, a
// simulation, a validation pass, anything that condenses a configuration
// into a single figure of merit.
//
// Contract:
// - Higher scores are better
// - Returning an error marks the trial as failed; the session keeps going
// - Implementations must honor ctx cancellation for long evaluations
//
// Thread safety:
// - Evaluate is called concurrently when SessionConfig.NumWorkers > 1;
//   implementations must be safe for that, or the session must run with a
//   single worker.
//
// Usage example:
//
//	evaluator := autotune.EvaluatorFunc(func(ctx context.Context, config autotune.Config) (float64, error) {
//	    latency, err := runBenchmark(ctx, config)
//	    if err != nil {
//	        return 0, err
//	    }
//
//	    // Lower latency is better, so negate it.
//	    return -latency.Seconds(), nil
//	})
type Evaluator interface {
	// Evaluate measures config and returns its score, higher better.
	Evaluate(ctx context.Context, config Config) (float64, error)
}

// EvaluatorFunc adapts a plain function to the Evaluator interface.
type EvaluatorFunc func(ctx context.Context, config Config) (float64, error)

// ResourceEvaluator is an Evaluator that can also run cheaper, partial
// evaluations. Resource-aware strategies (successive halving, hyperband)
// probe many configurations at small resource levels and spend full
// evaluations only on survivors.
//
// The meaning of a resource level is the evaluator's business: number of
// iterations, fraction of a dataset, seconds of load. The tuner only
// guarantees that levels grow between elimination rounds.
type ResourceEvaluator interface {
	Evaluator

	// EvaluateAt measures config using at most the given resource level.
	EvaluateAt(ctx context.Context, config Config, resource float64) (float64, error)
}

// RetryConfig controls the retry decorator returned by NewRetryEvaluator.
type RetryConfig struct {
	// MaxTries is the total number of attempts per evaluation, first try
	// included.
	MaxTries uint `validate:"gte=1"`

	// InitialInterval seeds the exponential backoff between attempts.
	InitialInterval time.Duration `validate:"gte=0"`

	// MaxInterval caps the backoff between attempts.
	MaxInterval time.Duration `validate:"gte=0"`

	// Logger receives a warning per retried attempt.
	// Defaults to a disabled logger.
	Logger zerolog.Logger
}

// retryEvaluator decorates an Evaluator with retries on failure.
type retryEvaluator struct {
	inner Evaluator
	cfg   RetryConfig
}

// resourceRetryEvaluator additionally forwards EvaluateAt, so wrapping a
// ResourceEvaluator keeps its partial-evaluation capability visible.
type resourceRetryEvaluator struct {
	retryEvaluator
}

// resourceEvaluatorFunc assembles a ResourceEvaluator from two functions.
type resourceEvaluatorFunc struct {
	full EvaluatorFunc
	at   func(ctx context.Context, config Config, resource float64) (float64, error)
}

//////
// Methods.
//////

// Evaluate implements the Evaluator interface.
func (f EvaluatorFunc) Evaluate(ctx context.Context, config Config) (float64, error) {
	return f(ctx, config)
}

// Evaluate implements the Evaluator interface.
func (r *retryEvaluator) Evaluate(ctx context.Context, config Config) (float64, error) {
	return r.retry(ctx, func() (float64, error) {
		return r.inner.Evaluate(ctx, config)
	})
}

// EvaluateAt implements the ResourceEvaluator interface.
func (r *resourceRetryEvaluator) EvaluateAt(ctx context.Context, config Config, resource float64) (float64, error) {
	inner := r.inner.(ResourceEvaluator)

	return r.retry(ctx, func() (float64, error) {
		return inner.EvaluateAt(ctx, config, resource)
	})
}

// retry drives one evaluation through the backoff loop.
func (r *retryEvaluator) retry(ctx context.Context, operation func() (float64, error)) (float64, error) {
	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.InitialInterval = r.cfg.InitialInterval
	expBackoff.MaxInterval = r.cfg.MaxInterval

	attempt := func() (float64, error) {
		score, err := operation()
		if err != nil {
			// A dead context never heals; don't burn attempts on it.
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return 0, backoff.Permanent(err)
			}

			return 0, err
		}

		return score, nil
	}

	return backoff.Retry(
		ctx,
		attempt,
		backoff.WithBackOff(expBackoff),
		backoff.WithMaxTries(r.cfg.MaxTries),
		backoff.WithNotify(func(err error, next time.Duration) {
			r.cfg.Logger.Warn().
				Err(err).
				Dur("next_attempt_in", next).
				Msg("Evaluation failed, retrying")
		}),
	)
}

// Evaluate implements the Evaluator interface.
func (e *resourceEvaluatorFunc) Evaluate(ctx context.Context, config Config) (float64, error) {
	return e.full(ctx, config)
}

// EvaluateAt implements the ResourceEvaluator interface.
func (e *resourceEvaluatorFunc) EvaluateAt(ctx context.Context, config Config, resource float64) (float64, error) {
	if e.at == nil {
		return e.full(ctx, config)
	}

	return e.at(ctx, config, resource)
}

//////
// Factory.
//////

// DefaultRetryConfig returns a RetryConfig with sensible defaults: 3
// attempts, 100ms initial backoff capped at 2s, and a disabled logger.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxTries:        3,
		InitialInterval: 100 * time.Millisecond,
		MaxInterval:     2 * time.Second,
		Logger:          zerolog.Nop(),
	}
}

// NewRetryEvaluator decorates an evaluator with exponential-backoff retries.
// Flaky evaluators (network benchmarks, load generators) fail transiently;
// retrying inside the evaluator keeps those blips from polluting the score
// history with NaN entries.
//
// Parameters:
//   - inner: The evaluator to decorate.
//   - cfg: Retry settings; see DefaultRetryConfig.
//
// Returns:
//   - Evaluator: The decorated evaluator. When inner implements
//     ResourceEvaluator, the returned value does too.
//   - error: A ConfigError when inner is nil or cfg is invalid.
//
// Usage example:
//
//	evaluator, err := autotune.NewRetryEvaluator(benchmark, autotune.DefaultRetryConfig())
//	if err != nil {
//	    log.Fatal(err)
//	}
func NewRetryEvaluator(inner Evaluator, cfg RetryConfig) (Evaluator, error) {
	if inner == nil {
		return nil, NewConfigError("", "retry evaluator needs an inner evaluator", nil)
	}

	if err := validate.Struct(cfg); err != nil {
		return nil, NewConfigError("", "invalid retry settings", err)
	}

	decorated := retryEvaluator{
		inner: inner,
		cfg:   cfg,
	}

	if _, ok := inner.(ResourceEvaluator); ok {
		return &resourceRetryEvaluator{retryEvaluator: decorated}, nil
	}

	return &decorated, nil
}

// NewResourceEvaluator assembles a ResourceEvaluator from two functions: a
// full evaluation and a partial one. When at is nil, partial evaluations
// fall back to the full function.
//
// Usage example:
//
//	evaluator := autotune.NewResourceEvaluator(
//	    func(ctx context.Context, config autotune.Config) (float64, error) {
//	        return runBenchmark(ctx, config, fullIterations)
//	    },
//	    func(ctx context.Context, config autotune.Config, resource float64) (float64, error) {
//	        return runBenchmark(ctx, config, int(resource))
//	    },
//	)
func NewResourceEvaluator(
	full EvaluatorFunc,
	at func(ctx context.Context, config Config, resource float64) (float64, error),
) ResourceEvaluator {
	return &resourceEvaluatorFunc{
		full: full,
		at:   at,
	}
}
