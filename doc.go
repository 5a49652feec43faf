// Package autotune provides budgeted, black-box tuning of system parameters:
// cache sizes, thresholds, worker counts, anything that can be scored by
// running it. You declare a search space, hand over an evaluator, pick a
// strategy, and the engine spends a bounded budget of trials finding the
// best configuration it can.
//
// # Features
//
// The package includes the following key features:
//
//   - Declarative Search Spaces: Parameters are discrete value lists or
//     continuous ranges, built in code or parsed from JSON/YAML schemas
//   - Pluggable Strategies: Random search, grid search, coordinate descent,
//     successive halving, and hyperband behind one interface
//   - Bounded Concurrency: Evaluations run on a worker pool of configurable
//     size; all bookkeeping stays consistent under concurrency
//   - Complete Reports: Append-only score history, per-trial execution
//     times, total cost, and the best configuration found
//   - Failure Tolerance: Failed trials are recorded and skipped over, with a
//     guard that aborts sessions whose evaluator looks broken
//   - Resource Awareness: Strategies can request cheap partial evaluations
//     from evaluators that support them
//   - Progress Monitoring: A per-trial callback and structured logging
//   - Reproducibility: Strategies take explicit random sources, so equal
//     seeds yield equal proposals regardless of worker count
//
// # Installation
//
// To install the package, use:
//
//	go get github.com/thalesfsp/autotune
//
// # Strategies
//
// The library provides five tuning strategies for different budgets and
// search space shapes:
//
// 1. Random search:
//
//   - Uniform independent samples, no adaptation
//
//   - The baseline every other strategy has to beat
//
//     tuner, _ := NewRandomTuner(space, DefaultRandomTunerConfig())
//
// 2. Grid search:
//
//   - Deterministic sweep over the discretized space
//
//   - Exhaustive for small spaces; order never depends on the budget
//
//     tuner, _ := NewGridTuner(space, DefaultGridTunerConfig())
//
// 3. Coordinate descent:
//
//   - Greedy one-dimensional line searches, round-robin over parameters
//
//   - Cheap local refinement; restarts escape local optima
//
//     tuner, _ := NewCoordinateDescentTuner(space, DefaultCoordinateDescentTunerConfig())
//
// 4. Successive halving:
//
//   - Elimination tournament over increasing resource levels
//
//   - Needs a ResourceEvaluator to realize its cost advantage
//
//     tuner, _ := NewSuccessiveHalvingTuner(space, DefaultSuccessiveHalvingTunerConfig())
//
// 5. Hyperband:
//
//   - Several successive halving brackets at different aggressiveness levels
//
//   - Hedges the exploration/elimination trade-off automatically
//
//     tuner, _ := NewHyperbandTuner(space, DefaultHyperbandTunerConfig())
//
// # Configuration
//
// The SessionConfig struct controls a tuning session:
//
//	type SessionConfig struct {
//	    Strategy       TunerStrategy  // Which tuner proposes candidates
//	    Budget         Budget         // Trial count and/or cost ceiling
//	    NumWorkers     int            // Concurrent evaluations
//	    OnTrial        ProgressFunc   // Per-trial notification
//	    AbortWindow    int            // Failure guard window
//	    AbortThreshold float64        // Failure guard threshold
//	    Logger         zerolog.Logger // Structured progress events
//	}
//
// Recommended settings:
//   - Budget.MaxTrials: 50-500 (more = better results but longer runtime)
//   - NumWorkers: 1 unless the evaluator is concurrency-safe
//   - AbortWindow: 10 with AbortThreshold 0.8 catches broken evaluators
//
// # Thread Safety
//
// All components are designed to be thread-safe:
//   - Safe for concurrent sessions with separate configs
//   - Shared bookkeeping (history, best, cost) is mutex-guarded
//   - Progress callbacks are serialized
//   - Strategies run on a single goroutine; they need no locking
//
// # Contributing
//
// To contribute to the project:
//  1. Fork the repository
//  2. Clone your fork
//  3. Create a feature branch
//  4. Make your changes
//  5. Run tests
//  6. Create a pull request
package autotune
