package autotune

import (
	"context"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoordinateDescentNeverRegresses(t *testing.T) {
	space := testSpace(t)

	// A pure score the test can compute for any fabricated trial.
	score := func(config Config) float64 {
		shards, _ := toFloat64(config["shards"])
		threshold, _ := toFloat64(config["threshold"])

		return shards/10 + threshold
	}

	tuner, err := NewCoordinateDescentTuner(space, CoordinateDescentTunerConfig{
		Rand:       rand.New(rand.NewSource(7)),
		LinePoints: 5,
	})
	require.NoError(t, err)

	// Drive the propose/observe protocol directly and watch the incumbent.
	index := 0
	last := math.Inf(-1)
	converged := false

	for i := 0; i < 200; i++ {
		batch, err := tuner.Propose(1000)
		require.NoError(t, err)

		if len(batch) == 0 {
			converged = true

			break
		}

		trials := make([]Trial, len(batch))

		for j, candidate := range batch {
			trials[j] = Trial{
				Index:  index,
				Config: candidate.Config,
				Score:  score(candidate.Config),
			}

			index++
		}

		tuner.Observe(trials)

		// The incumbent only ever moves to strictly better configurations.
		if tuner.haveScore {
			assert.GreaterOrEqual(t, tuner.currentScore, last)

			last = tuner.currentScore
		}
	}

	require.True(t, converged)

	// The score is maximized at shards=8, threshold=1.
	assert.Equal(t, 8, tuner.current["shards"])
	assert.InDelta(t, 1.8, tuner.currentScore, 1e-6)
}

func TestCoordinateDescentTuneConverges(t *testing.T) {
	space, err := NewSearchSpace(
		Continuous("x", 0, 1),
		Continuous("y", 0, 1),
	)
	require.NoError(t, err)

	// A smooth concave bowl peaking at (0.7, 0.2).
	evaluator := EvaluatorFunc(func(_ context.Context, config Config) (float64, error) {
		x, _ := toFloat64(config["x"])
		y, _ := toFloat64(config["y"])

		return 1 - (x-0.7)*(x-0.7) - (y-0.2)*(y-0.2), nil
	})

	strategy, err := NewCoordinateDescentTuner(space, CoordinateDescentTunerConfig{
		Rand:       rand.New(rand.NewSource(42)),
		LinePoints: 5,
	})
	require.NoError(t, err)

	cfg := DefaultSessionConfig()
	cfg.Strategy = strategy
	cfg.Budget.MaxTrials = 200

	report, err := Tune(context.Background(), space, evaluator, cfg)

	// Either the descent converged inside the budget or the budget died
	// first; both leave a usable report.
	assert.True(t, err == nil || IsBudgetExhausted(err))
	require.NotNil(t, report)

	assert.Greater(t, report.BestScore, 0.95)

	x, _ := toFloat64(report.BestConfig["x"])
	y, _ := toFloat64(report.BestConfig["y"])

	assert.InDelta(t, 0.7, x, 0.15)
	assert.InDelta(t, 0.2, y, 0.15)
}

func TestCoordinateDescentInitialHonored(t *testing.T) {
	space := testSpace(t)

	tuner, err := NewCoordinateDescentTuner(space, CoordinateDescentTunerConfig{
		Rand:       rand.New(rand.NewSource(1)),
		LinePoints: 5,
		Initial:    Config{"threshold": 0.25},
	})
	require.NoError(t, err)

	// The first batch evaluates the starting point, which carries the
	// explicit initial value; the unspecified parameters were drawn.
	batch, err := tuner.Propose(10)
	require.NoError(t, err)
	require.Len(t, batch, 1)

	assert.Equal(t, 0.25, batch[0].Config["threshold"])
	assert.NoError(t, space.ValidateConfig(batch[0].Config))

	// Starting points outside the space are rejected up front.
	_, err = NewCoordinateDescentTuner(space, CoordinateDescentTunerConfig{
		Rand:       rand.New(rand.NewSource(1)),
		LinePoints: 5,
		Initial:    Config{"unknown": 1},
	})
	assert.True(t, IsConfigError(err))

	_, err = NewCoordinateDescentTuner(space, CoordinateDescentTunerConfig{
		Rand:       rand.New(rand.NewSource(1)),
		LinePoints: 5,
		Initial:    Config{"threshold": 2.5},
	})
	assert.True(t, IsConfigError(err))
}

func TestCoordinateDescentRestarts(t *testing.T) {
	space, err := NewSearchSpace(Discrete("mode", "a", "b"))
	require.NoError(t, err)

	score := func(config Config) float64 {
		if config["mode"] == "b" {
			return 2
		}

		return 1
	}

	tuner, err := NewCoordinateDescentTuner(space, CoordinateDescentTunerConfig{
		Rand:       rand.New(rand.NewSource(9)),
		LinePoints: 3,
		Restarts:   2,
	})
	require.NoError(t, err)

	// Count how often the tuner evaluates a fresh starting point: once at
	// the beginning and once per restart.
	index := 0
	inits := 0
	converged := false

	for i := 0; i < 100; i++ {
		batch, err := tuner.Propose(1000)
		require.NoError(t, err)

		if len(batch) == 0 {
			converged = true

			break
		}

		if tuner.pendingInit {
			inits++
		}

		trials := make([]Trial, len(batch))

		for j, candidate := range batch {
			trials[j] = Trial{
				Index:  index,
				Config: candidate.Config,
				Score:  score(candidate.Config),
			}

			index++
		}

		tuner.Observe(trials)
	}

	require.True(t, converged)
	assert.Equal(t, 3, inits)
	assert.True(t, tuner.done)
	assert.Zero(t, tuner.restartsLeft)
}

func TestCoordinateDescentValidation(t *testing.T) {
	space := testSpace(t)

	_, err := NewCoordinateDescentTuner(nil, DefaultCoordinateDescentTunerConfig())
	assert.True(t, IsConfigError(err))

	_, err = NewCoordinateDescentTuner(space, CoordinateDescentTunerConfig{LinePoints: 5})
	assert.True(t, IsConfigError(err))

	_, err = NewCoordinateDescentTuner(space, CoordinateDescentTunerConfig{
		Rand:       rand.New(rand.NewSource(1)),
		LinePoints: 1,
	})
	assert.True(t, IsConfigError(err))

	tuner, err := NewCoordinateDescentTuner(space, DefaultCoordinateDescentTunerConfig())
	require.NoError(t, err)
	assert.Equal(t, "coordinate_descent", tuner.Name())
}
