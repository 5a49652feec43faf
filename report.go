package autotune

import (
	"time"
)

//////
// Const, vars, types.
//////

// Report is the complete outcome of a tuning session. It is returned in
// every case: clean strategy finish, budget exhaustion, failure abort, and
// context cancellation all hand back whatever the session managed to
// measure.
type Report struct {
	// SessionID uniquely identifies the session.
	SessionID string

	// Strategy is the name of the strategy that drove the session.
	Strategy string

	// BestConfig is the best configuration found.
	// nil when no trial succeeded.
	BestConfig Config

	// BestScore is the score of BestConfig.
	// NaN when no trial succeeded.
	BestScore float64

	// BestIndex is the completion index of the best trial.
	// -1 when no trial succeeded.
	BestIndex int

	// ScoreHistory holds one score per finished trial, in completion order.
	// Failed trials appear as NaN. The history is append-only: entry i
	// always belongs to trial i.
	ScoreHistory []float64

	// ExecutionTimes holds the wall-clock duration of every trial, aligned
	// with ScoreHistory.
	ExecutionTimes []time.Duration

	// TotalCost is the sum of ExecutionTimes.
	TotalCost time.Duration

	// Trials holds every finished trial, in completion order.
	Trials []Trial

	// Failures is the number of failed trials.
	Failures int
}

//////
// Methods.
//////

// Best returns the best trial of the session, and whether any trial
// succeeded.
func (r *Report) Best() (Trial, bool) {
	if r.BestIndex < 0 || r.BestIndex >= len(r.Trials) {
		return Trial{}, false
	}

	return r.Trials[r.BestIndex], true
}

// Len returns the number of finished trials.
func (r *Report) Len() int {
	return len(r.Trials)
}

//////
// Exported functionalities.
//////

// BestSoFar derives the running-best curve from a score history: element i
// is the highest score among trials 0..i, ignoring failed (NaN) entries.
// Until the first success the curve is NaN.
//
// Parameters:
//   - scores: A score history, typically Report.ScoreHistory.
//
// Returns:
//   - []float64: A new slice of the same length, monotonically
//     non-decreasing once it leaves NaN.
//
// Usage example:
//
//	curve := autotune.BestSoFar(report.ScoreHistory)
//
//	for i, best := range curve {
//	    fmt.Printf("after trial %d the best score was %f\n", i, best)
//	}
func BestSoFar(scores []float64) []float64 {
	curve := make([]float64, len(scores))

	best := nan()

	for i, score := range scores {
		if !isNaN(score) && (isNaN(best) || score > best) {
			best = score
		}

		curve[i] = best
	}

	return curve
}
