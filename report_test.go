package autotune

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBestSoFar(t *testing.T) {
	scores := []float64{math.NaN(), 1, 3, 2, math.NaN(), 5}

	curve := BestSoFar(scores)
	assert.Len(t, curve, len(scores))

	// The curve stays NaN until the first success, then tracks the running
	// maximum and ignores later failures.
	assert.True(t, math.IsNaN(curve[0]))
	assert.Equal(t, 1.0, curve[1])
	assert.Equal(t, 3.0, curve[2])
	assert.Equal(t, 3.0, curve[3])
	assert.Equal(t, 3.0, curve[4])
	assert.Equal(t, 5.0, curve[5])

	// All failures means the curve never leaves NaN.
	for _, v := range BestSoFar([]float64{math.NaN(), math.NaN()}) {
		assert.True(t, math.IsNaN(v))
	}

	assert.Empty(t, BestSoFar(nil))
}

func TestReportBest(t *testing.T) {
	report := &Report{
		Trials: []Trial{
			{Index: 0, Score: 0.4},
			{Index: 1, Score: 0.9},
		},
		BestIndex: 1,
	}

	best, ok := report.Best()
	assert.True(t, ok)
	assert.Equal(t, 1, best.Index)
	assert.Equal(t, 0.9, best.Score)

	assert.Equal(t, 2, report.Len())

	// No successful trial: Best reports nothing.
	empty := &Report{BestIndex: -1}

	_, ok = empty.Best()
	assert.False(t, ok)

	// A stale index outside the trial list reports nothing rather than
	// panicking.
	stale := &Report{BestIndex: 5}

	_, ok = stale.Best()
	assert.False(t, ok)
}
