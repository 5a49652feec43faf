package autotune

import (
	"math"
	"math/rand"
	"sort"
	"time"
)

//////
// Const, vars, types.
//////

// SuccessiveHalvingTunerConfig holds the settings of a
// SuccessiveHalvingTuner.
type SuccessiveHalvingTunerConfig struct {
	// Rand draws the rung-0 cohort.
	Rand *rand.Rand `validate:"required"`

	// Budget is the total resource the sweep may spend, in the same units
	// as MinResource. It sizes the rung-0 cohort and, when MaxResource is
	// zero, the number of rungs. Ignored when both InitialConfigs and
	// MaxResource are set.
	Budget int `validate:"gte=0"`

	// Eta is the halving factor: each rung keeps the top 1/Eta of its
	// cohort and multiplies the resource level by Eta.
	// Recommended range: 2-4, with 3 the usual choice.
	Eta int `validate:"gte=2"`

	// MinResource is the resource level of rung 0.
	MinResource float64 `validate:"gt=0"`

	// MaxResource caps the resource level. Zero derives the rung count from
	// Budget instead.
	MaxResource float64 `validate:"gte=0"`

	// InitialConfigs overrides the rung-0 cohort size. Zero derives it from
	// Budget.
	InitialConfigs int `validate:"gte=0"`

	// proposer overrides how the rung-0 cohort is drawn; nil means uniform
	// random sampling. HyperbandTuner injects bracket-specific proposers
	// here.
	proposer func(n int) []Config
}

// SuccessiveHalvingTuner runs an elimination tournament: a large cohort of
// configurations is evaluated cheaply, the best fraction survives to be
// evaluated at Eta times the resource, and so on until a final cohort runs
// at the highest rung. Bad configurations cost almost nothing because they
// are eliminated while evaluations are still cheap.
//
// How it works:
//  1. Draw n0 configurations and evaluate all of them at MinResource
//  2. Rank by score; failed trials are eliminated first, score ties go to
//     the earlier-evaluated trial
//  3. Keep the top floor(n/Eta), multiply the resource by Eta, repeat
//  4. Stop after the planned number of rungs, or when a rung produces no
//     successful trial
//
// Requirements:
// - The evaluator should implement ResourceEvaluator; without it every rung
//   runs full evaluations and the cheap-elimination advantage disappears
//   (the schedule still works, it is just not cheaper)
//
// Concurrency behavior:
// - Each rung is one batch, evaluated in parallel up to the session's
//   worker limit; ranking waits for the whole rung (a barrier).
type SuccessiveHalvingTuner struct {
	space *SearchSpace
	cfg   SuccessiveHalvingTunerConfig

	rung     int
	rungs    int
	resource float64
	cohort   []Config
	done     bool
}

//////
// Methods.
//////

// Name implements the TunerStrategy interface.
func (t *SuccessiveHalvingTuner) Name() string {
	return "successive_halving"
}

// Propose implements the TunerStrategy interface. One batch per rung: the
// current cohort, each candidate stamped with the rung's resource level.
func (t *SuccessiveHalvingTuner) Propose(remaining int) ([]Candidate, error) {
	if t.done || remaining <= 0 {
		return nil, nil
	}

	count := len(t.cohort)

	if count > remaining {
		count = remaining
	}

	batch := make([]Candidate, count)

	for i := 0; i < count; i++ {
		batch[i] = Candidate{
			Config:   cloneConfig(t.cohort[i]),
			Resource: t.resource,
		}
	}

	return batch, nil
}

// Observe implements the TunerStrategy interface. It ranks the rung and
// promotes the survivors.
func (t *SuccessiveHalvingTuner) Observe(trials []Trial) {
	if t.done || len(trials) == 0 {
		return
	}

	successes := make([]Trial, 0, len(trials))

	for _, trial := range trials {
		if !trial.Failed() {
			successes = append(successes, trial)
		}
	}

	// A rung with no survivors means every candidate failed at this
	// resource level; promoting any of them would be promoting noise.
	if len(successes) == 0 {
		t.done = true

		return
	}

	sort.SliceStable(successes, func(i, j int) bool {
		if successes[i].Score != successes[j].Score {
			return successes[i].Score > successes[j].Score
		}

		// Equal scores: the earlier-evaluated trial wins, keeping the
		// ranking deterministic.
		return successes[i].Index < successes[j].Index
	})

	keep := len(trials) / t.cfg.Eta

	if keep < 1 {
		keep = 1
	}

	if keep > len(successes) {
		keep = len(successes)
	}

	t.cohort = make([]Config, keep)

	for i := 0; i < keep; i++ {
		t.cohort[i] = cloneConfig(successes[i].Config)
	}

	t.rung++
	t.resource *= float64(t.cfg.Eta)

	if t.rung >= t.rungs {
		t.done = true

		return
	}

	if t.cfg.MaxResource > 0 && t.resource > t.cfg.MaxResource {
		t.done = true
	}
}

//////
// Factory.
//////

// DefaultSuccessiveHalvingTunerConfig returns a SuccessiveHalvingTunerConfig
// with a time-seeded random source, a budget of 27 resource units starting
// at resource 1, and the usual halving factor of 3.
func DefaultSuccessiveHalvingTunerConfig() SuccessiveHalvingTunerConfig {
	return SuccessiveHalvingTunerConfig{
		Rand:        rand.New(rand.NewSource(time.Now().UnixNano())),
		Budget:      27,
		Eta:         3,
		MinResource: 1,
	}
}

// NewSuccessiveHalvingTuner creates a SuccessiveHalvingTuner over the given
// space.
//
// Sizing rules:
//   - Rungs: floor(log_Eta(MaxResource/MinResource)) + 1 when MaxResource is
//     set, floor(log_Eta(Budget/Eta)) + 1 otherwise
//   - Rung-0 cohort: InitialConfigs when set, otherwise
//     ceil(Budget/(MinResource*rungs)), spending about a rung-equal share of
//     the budget at each level; never below Eta so the first elimination has
//     something to eliminate
//
// Usage example:
//
//	// A budget of 27 resource units with the default eta of 3 yields 3
//	// rungs: 9 configurations at resource 1, the best 3 at resource 3, the
//	// best 1 at resource 9.
//	tuner, err := autotune.NewSuccessiveHalvingTuner(space, autotune.SuccessiveHalvingTunerConfig{
//	    Rand:        rand.New(rand.NewSource(42)),
//	    Budget:      27,
//	    Eta:         3,
//	    MinResource: 1,
//	})
func NewSuccessiveHalvingTuner(space *SearchSpace, cfg SuccessiveHalvingTunerConfig) (*SuccessiveHalvingTuner, error) {
	if space == nil {
		return nil, NewConfigError("", "successive halving tuner needs a search space", nil)
	}

	if err := validate.Struct(cfg); err != nil {
		return nil, NewConfigError("", "invalid successive halving tuner settings", err)
	}

	if cfg.Budget == 0 && (cfg.InitialConfigs == 0 || cfg.MaxResource == 0) {
		return nil, NewConfigError(
			"",
			"successive halving needs a budget, or both an initial cohort size and a max resource",
			nil,
		)
	}

	rungs := 0

	if cfg.MaxResource > 0 {
		rungs = logFloor(cfg.MaxResource/cfg.MinResource, cfg.Eta) + 1
	} else {
		rungs = logFloor(math.Max(1, float64(cfg.Budget/cfg.Eta)), cfg.Eta) + 1
	}

	n0 := cfg.InitialConfigs

	if n0 == 0 {
		n0 = int(math.Ceil(float64(cfg.Budget) / (cfg.MinResource * float64(rungs))))

		if n0 < cfg.Eta {
			n0 = cfg.Eta
		}
	}

	cohort := make([]Config, 0, n0)

	if cfg.proposer != nil {
		for _, config := range cfg.proposer(n0) {
			cohort = append(cohort, cloneConfig(config))
		}
	}

	for len(cohort) < n0 {
		cohort = append(cohort, space.Sample(cfg.Rand))
	}

	return &SuccessiveHalvingTuner{
		space:    space,
		cfg:      cfg,
		rungs:    rungs,
		resource: cfg.MinResource,
		cohort:   cohort,
	}, nil
}
