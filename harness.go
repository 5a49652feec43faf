package autotune

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

//////
// Const, vars, types.
//////

// costBatchSize is how many candidates the harness requests per batch when
// only a cost ceiling bounds the session. Small batches let the ceiling be
// rechecked often without forcing strategies into single-trial lockstep.
const costBatchSize = 16

// errNaNScore marks evaluations that returned NaN with a nil error. A NaN
// score with no failure attached would poison every comparison downstream,
// so the harness records such trials as failed.
var errNaNScore = errors.New("evaluator returned NaN score")

// harness executes the propose/evaluate/observe loop of one session. It owns
// the worker pool, all shared bookkeeping, and every stop decision: strategy
// finished, budget exhausted, failure abort, context cancelled.
type harness struct {
	space     *SearchSpace
	evaluator Evaluator
	strategy  TunerStrategy
	cfg       SessionConfig

	sessionID string
	logger    zerolog.Logger

	// mu guards everything below. Workers touch the bookkeeping only while
	// holding it, and the progress callback runs under it so invocations
	// stay serialized.
	mu sync.Mutex

	trials    []Trial
	scores    []float64
	times     []time.Duration
	totalCost time.Duration
	launched  int

	bestIndex int
	bestScore float64

	// recent is a ring buffer over the outcomes of the last AbortWindow
	// trials, true meaning failed.
	recent   []bool
	recentAt int
	recentN  int
	failures int

	aborted *AbortedError
}

//////
// Factory.
//////

// newHarness wires a harness for one session. The caller has already
// validated cfg and filled in the default strategy.
func newHarness(space *SearchSpace, evaluator Evaluator, cfg SessionConfig) *harness {
	sessionID := uuid.New().String()

	logger := cfg.Logger.With().
		Str("session_id", sessionID).
		Str("strategy", cfg.Strategy.Name()).
		Logger()

	h := &harness{
		space:     space,
		evaluator: evaluator,
		strategy:  cfg.Strategy,
		cfg:       cfg,
		sessionID: sessionID,
		logger:    logger,
		bestIndex: -1,
		bestScore: nan(),
	}

	if cfg.AbortWindow > 0 {
		h.recent = make([]bool, cfg.AbortWindow)
	}

	return h
}

//////
// Methods.
//////

// run drives the session until the strategy finishes, the budget runs out,
// the failure guard trips, or ctx dies.
func (h *harness) run(ctx context.Context) error {
	h.logger.Info().
		Int("workers", h.cfg.NumWorkers).
		Int("max_trials", h.cfg.Budget.MaxTrials).
		Dur("max_cost", h.cfg.Budget.MaxCost).
		Msg("Tuning session started")

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		remaining := h.remaining()
		if remaining <= 0 {
			return ErrBudgetExhausted
		}

		batch, err := h.strategy.Propose(remaining)
		if err != nil {
			return errors.Wrap(err, "proposing candidates")
		}

		// An empty batch is the strategy's done signal.
		if len(batch) == 0 {
			return nil
		}

		if len(batch) > remaining {
			h.logger.Warn().
				Int("proposed", len(batch)).
				Int("remaining", remaining).
				Msg("Strategy proposed more candidates than the budget allows, clipping")

			batch = batch[:remaining]
		}

		results, stopErr := h.runBatch(ctx, batch)

		// Adaptive strategies still get to see whatever ran, even when the
		// session is about to end.
		h.strategy.Observe(results)

		if stopErr != nil {
			return stopErr
		}
	}
}

// runBatch evaluates one proposed batch on the worker pool. It returns the
// finished trials in proposal order, plus the error that should end the
// session (abort or cancellation), if any.
func (h *harness) runBatch(ctx context.Context, batch []Candidate) ([]Trial, error) {
	results := make([]Trial, len(batch))
	ran := make([]bool, len(batch))

	var g errgroup.Group

	g.SetLimit(h.cfg.NumWorkers)

	for i, candidate := range batch {
		// Stop issuing work once the session is dying; trials already
		// running are never interrupted.
		if ctx.Err() != nil || h.stopped() {
			break
		}

		g.Go(func() error {
			if !h.admit() {
				return nil
			}

			results[i] = h.runTrial(ctx, candidate)
			ran[i] = true

			return nil
		})
	}

	// Workers never return errors; failures are recorded on their trials.
	_ = g.Wait()

	finished := make([]Trial, 0, len(batch))

	for i := range results {
		if ran[i] {
			finished = append(finished, results[i])
		}
	}

	h.mu.Lock()
	aborted := h.aborted
	h.mu.Unlock()

	if aborted != nil {
		return finished, aborted
	}

	if err := ctx.Err(); err != nil {
		return finished, err
	}

	return finished, nil
}

// runTrial evaluates a single candidate and records the outcome.
func (h *harness) runTrial(ctx context.Context, candidate Candidate) Trial {
	start := time.Now()

	score, err := evaluateCandidate(ctx, h.evaluator, candidate)

	end := time.Now()

	if err == nil && isNaN(score) {
		err = errNaNScore
	}

	if err != nil {
		if !IsEvaluationError(err) {
			err = NewEvaluationError(candidate.Config, err)
		}

		score = nan()
	}

	trial := Trial{
		Config:   candidate.Config,
		Resource: candidate.Resource,
		Score:    score,
		Err:      err,
		Start:    start,
		End:      end,
		Cost:     end.Sub(start),
	}

	h.record(&trial)

	return trial
}

// record appends the trial to the session bookkeeping, updates the best,
// feeds the failure guard, and notifies the progress callback. One lock
// acquisition covers all of it so history, best, and callback order never
// disagree.
func (h *harness) record(trial *Trial) {
	h.mu.Lock()
	defer h.mu.Unlock()

	trial.Index = len(h.trials)

	h.trials = append(h.trials, *trial)
	h.scores = append(h.scores, trial.Score)
	h.times = append(h.times, trial.Cost)
	h.totalCost += trial.Cost

	failed := trial.Failed()

	if failed {
		h.failures++
	} else if h.bestIndex < 0 || trial.Score > h.bestScore {
		h.bestIndex = trial.Index
		h.bestScore = trial.Score
	}

	h.trackFailure(failed)

	h.logger.Debug().
		Int("trial", trial.Index).
		Float64("score", trial.Score).
		Dur("cost", trial.Cost).
		Bool("failed", failed).
		Msg("Trial finished")

	if h.cfg.OnTrial != nil {
		h.cfg.OnTrial(trial.Index, trial.Score)
	}
}

// trackFailure updates the sliding failure window and trips the abort guard
// when the failure rate crosses the threshold. Caller holds mu.
func (h *harness) trackFailure(failed bool) {
	if len(h.recent) == 0 || h.aborted != nil {
		return
	}

	h.recent[h.recentAt] = failed
	h.recentAt = (h.recentAt + 1) % len(h.recent)

	if h.recentN < len(h.recent) {
		h.recentN++
	}

	// The guard only judges full windows; a short unlucky start is not a
	// broken evaluator.
	if h.recentN < len(h.recent) {
		return
	}

	count := 0

	for _, f := range h.recent {
		if f {
			count++
		}
	}

	if float64(count) >= h.cfg.AbortThreshold*float64(len(h.recent)) {
		h.aborted = NewAbortedError(len(h.recent), count)

		h.logger.Error().
			Int("failures", count).
			Int("window", len(h.recent)).
			Msg("Failure rate crossed the abort threshold, stopping session")
	}
}

// remaining returns how many trials the budget still allows. Called between
// batches, when nothing is in flight.
func (h *harness) remaining() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.cfg.Budget.MaxCost > 0 && h.totalCost >= h.cfg.Budget.MaxCost {
		return 0
	}

	if h.cfg.Budget.MaxTrials > 0 {
		return h.cfg.Budget.MaxTrials - len(h.trials)
	}

	return costBatchSize
}

// stopped reports whether the session should issue no further trials.
func (h *harness) stopped() bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.exhaustedLocked()
}

// admit reserves a budget slot for one trial. Workers call it right before
// evaluating; a false return means the trial must not run.
func (h *harness) admit() bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.exhaustedLocked() {
		return false
	}

	h.launched++

	return true
}

// exhaustedLocked reports whether the abort guard tripped or a budget limit
// is spent. Caller holds mu.
func (h *harness) exhaustedLocked() bool {
	if h.aborted != nil {
		return true
	}

	if h.cfg.Budget.MaxTrials > 0 && h.launched >= h.cfg.Budget.MaxTrials {
		return true
	}

	if h.cfg.Budget.MaxCost > 0 && h.totalCost >= h.cfg.Budget.MaxCost {
		return true
	}

	return false
}

// report snapshots the session outcome.
func (h *harness) report() *Report {
	h.mu.Lock()
	defer h.mu.Unlock()

	report := &Report{
		SessionID:      h.sessionID,
		Strategy:       h.strategy.Name(),
		BestScore:      h.bestScore,
		BestIndex:      h.bestIndex,
		ScoreHistory:   append([]float64(nil), h.scores...),
		ExecutionTimes: append([]time.Duration(nil), h.times...),
		TotalCost:      h.totalCost,
		Trials:         append([]Trial(nil), h.trials...),
		Failures:       h.failures,
	}

	if h.bestIndex >= 0 {
		report.BestConfig = cloneConfig(h.trials[h.bestIndex].Config)
	}

	return report
}

//////
// Helper functions.
//////

// evaluateCandidate dispatches to EvaluateAt when the candidate carries a
// resource level and the evaluator supports partial evaluations; otherwise
// the plain full evaluation runs.
func evaluateCandidate(ctx context.Context, evaluator Evaluator, candidate Candidate) (float64, error) {
	if candidate.Resource > 0 {
		if re, ok := evaluator.(ResourceEvaluator); ok {
			return re.EvaluateAt(ctx, candidate.Config, candidate.Resource)
		}
	}

	return evaluator.Evaluate(ctx, candidate.Config)
}
