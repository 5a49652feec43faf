package autotune

import (
	"context"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHyperbandBracketAccounting(t *testing.T) {
	space, err := NewSearchSpace(Continuous("threshold", 0, 1))
	require.NoError(t, err)

	evaluator := NewResourceEvaluator(
		func(_ context.Context, config Config) (float64, error) {
			v, _ := toFloat64(config["threshold"])

			return v, nil
		},
		func(_ context.Context, config Config, _ float64) (float64, error) {
			v, _ := toFloat64(config["threshold"])

			return v, nil
		},
	)

	strategy, err := NewHyperbandTuner(space, HyperbandTunerConfig{
		Rand:        rand.New(rand.NewSource(42)),
		Eta:         3,
		MaxResource: 27,
	})
	require.NoError(t, err)

	cfg := DefaultSessionConfig()
	cfg.Strategy = strategy
	cfg.Budget.MaxTrials = 100

	report, err := Tune(context.Background(), space, evaluator, cfg)

	// All four brackets ran to completion inside the budget.
	assert.NoError(t, err)
	require.NotNil(t, report)

	// MaxResource 27 at eta 3: brackets start 27@1, 12@3, 6@9 and 4@27,
	// each halving its way up, 69 trials in total.
	assert.Equal(t, 69, report.Len())

	counts := make(map[float64]int)

	for _, trial := range report.Trials {
		counts[trial.Resource]++
	}

	assert.Equal(t, 27, counts[1])
	assert.Equal(t, 21, counts[3])
	assert.Equal(t, 13, counts[9])
	assert.Equal(t, 8, counts[27])
}

func TestHyperbandFocusBestSeedsLaterBrackets(t *testing.T) {
	space, err := NewSearchSpace(
		Continuous("x", 0, 1),
		Discrete("e", "a", "b"),
	)
	require.NoError(t, err)

	tuner, err := NewHyperbandTuner(space, HyperbandTunerConfig{
		Rand:        rand.New(rand.NewSource(7)),
		Eta:         3,
		MaxResource: 9,
		FocusBest:   true,
	})
	require.NoError(t, err)

	// The first bracket samples unbiased: 9 configurations at resource 1.
	batch, err := tuner.Propose(1000)
	require.NoError(t, err)
	require.Len(t, batch, 9)

	index := 0

	feed := func(batch []Candidate, scores []float64) {
		trials := make([]Trial, len(batch))

		for i, candidate := range batch {
			trials[i] = Trial{
				Index:    index,
				Config:   candidate.Config,
				Resource: candidate.Resource,
				Score:    scores[i],
			}

			index++
		}

		tuner.Observe(trials)
	}

	feed(batch, []float64{0, 1, 2, 3, 4, 5, 6, 7, 8})

	// Rung 1 of the bracket: the top three, by descending score.
	batch, err = tuner.Propose(1000)
	require.NoError(t, err)
	require.Len(t, batch, 3)

	feed(batch, []float64{10, 11, 12})

	// The highest score so far belongs to the third rung-1 candidate.
	want := batch[2].Config

	// Rung 2: the single finalist.
	batch, err = tuner.Propose(1000)
	require.NoError(t, err)
	require.Len(t, batch, 1)

	feed(batch, []float64{20})

	// The next bracket starts 5 configurations at resource 3, seeded around
	// the best seen: the incumbent itself first, perturbed neighbors after.
	batch, err = tuner.Propose(1000)
	require.NoError(t, err)
	require.Len(t, batch, 5)

	assert.Equal(t, want, batch[0].Config)

	for _, candidate := range batch {
		assert.Equal(t, 3.0, candidate.Resource)
		assert.NoError(t, space.ValidateConfig(candidate.Config))
	}
}

func TestHyperbandValidation(t *testing.T) {
	space := testSpace(t)

	_, err := NewHyperbandTuner(nil, DefaultHyperbandTunerConfig())
	assert.True(t, IsConfigError(err))

	_, err = NewHyperbandTuner(space, HyperbandTunerConfig{Eta: 3, MaxResource: 27})
	assert.True(t, IsConfigError(err))

	_, err = NewHyperbandTuner(space, HyperbandTunerConfig{
		Rand: rand.New(rand.NewSource(1)), Eta: 1, MaxResource: 27,
	})
	assert.True(t, IsConfigError(err))

	// Hyperband cannot derive its brackets without a resource ceiling.
	_, err = NewHyperbandTuner(space, HyperbandTunerConfig{
		Rand: rand.New(rand.NewSource(1)), Eta: 3,
	})
	assert.True(t, IsConfigError(err))

	tuner, err := NewHyperbandTuner(space, DefaultHyperbandTunerConfig())
	require.NoError(t, err)
	assert.Equal(t, "hyperband", tuner.Name())
}
