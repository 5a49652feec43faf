package autotune

import (
	"math/rand"
	"time"
)

//////
// Const, vars, types.
//////

// RandomTunerConfig holds the settings of a RandomTuner.
type RandomTunerConfig struct {
	// Rand is the random source candidates are drawn from.
	//
	// Required initialization:
	// - MUST be initialized using rand.New(rand.NewSource(seed))
	// - Pass a fixed seed to make a session reproducible
	// - Each tuner should have its own source
	Rand *rand.Rand `validate:"required"`
}

// RandomTuner samples configurations independently and uniformly from the
// search space. It never adapts: outcomes do not influence later proposals.
//
// When to use:
// - As the first strategy against any new search space; it establishes a
//   baseline the adaptive strategies have to beat
// - When evaluations are cheap enough to afford a broad sweep
// - When the space is so irregular that local search would get stuck
//
// Concurrency behavior:
// - The entire remaining budget is proposed as one batch, so workers never
//   wait on a synchronization barrier.
type RandomTuner struct {
	space *SearchSpace
	cfg   RandomTunerConfig
}

//////
// Methods.
//////

// Name implements the TunerStrategy interface.
func (t *RandomTuner) Name() string {
	return "random"
}

// Propose implements the TunerStrategy interface. Sampling happens here, in
// a single goroutine, so a fixed-seed source yields the same candidates no
// matter how many workers later evaluate them.
func (t *RandomTuner) Propose(remaining int) ([]Candidate, error) {
	if remaining <= 0 {
		return nil, nil
	}

	batch := make([]Candidate, remaining)

	for i := range batch {
		batch[i] = Candidate{Config: t.space.Sample(t.cfg.Rand)}
	}

	return batch, nil
}

// Observe implements the TunerStrategy interface. Random search ignores
// outcomes.
func (t *RandomTuner) Observe(_ []Trial) {}

//////
// Factory.
//////

// DefaultRandomTunerConfig returns a RandomTunerConfig with a time-seeded
// random source.
func DefaultRandomTunerConfig() RandomTunerConfig {
	return RandomTunerConfig{
		Rand: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// NewRandomTuner creates a RandomTuner over the given space.
//
// Usage example:
//
//	tuner, err := autotune.NewRandomTuner(space, autotune.RandomTunerConfig{
//	    Rand: rand.New(rand.NewSource(42)),
//	})
func NewRandomTuner(space *SearchSpace, cfg RandomTunerConfig) (*RandomTuner, error) {
	if space == nil {
		return nil, NewConfigError("", "random tuner needs a search space", nil)
	}

	if err := validate.Struct(cfg); err != nil {
		return nil, NewConfigError("", "invalid random tuner settings", err)
	}

	return &RandomTuner{
		space: space,
		cfg:   cfg,
	}, nil
}
