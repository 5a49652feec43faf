package autotune

import (
	"math"
	"math/rand"
	"time"
)

//////
// Const, vars, types.
//////

// HyperbandTunerConfig holds the settings of a HyperbandTuner.
type HyperbandTunerConfig struct {
	// Rand draws bracket cohorts.
	Rand *rand.Rand `validate:"required"`

	// Eta is the halving factor shared by every bracket.
	// Recommended range: 2-4, with 3 the usual choice.
	Eta int `validate:"gte=2"`

	// MaxResource is the highest resource level any trial may run at. It
	// also determines how many brackets run: floor(log_Eta(MaxResource))+1.
	MaxResource float64 `validate:"gt=0"`

	// FocusBest, when set, seeds later brackets around the best
	// configuration seen so far instead of sampling uniformly. Later
	// brackets start fewer, more expensive trials; spending them near a
	// known good region usually pays off. Leave unset for independent,
	// unbiased brackets.
	FocusBest bool
}

// HyperbandTuner hedges the one bet successive halving forces you to make:
// how aggressively to eliminate. It runs a series of successive halving
// brackets, from maximally exploratory (a huge cohort at a tiny resource)
// down to maximally conservative (a small cohort straight at full resource),
// so that spaces rewarding either style are covered.
//
// Bracket layout for MaxResource = 27, Eta = 3:
//
//	bracket  cohort  starting resource
//	s=3      27      1
//	s=2      12      3
//	s=1      6       9
//	s=0      4       27
//
// Each bracket s starts ceil((sMax+1)/(s+1) * Eta^s) configurations at
// resource MaxResource/Eta^s and halves its way up to MaxResource.
//
// Requirements:
// - Like successive halving, it profits from a ResourceEvaluator; without
//   one every trial runs at full cost and only the scheduling differs.
type HyperbandTuner struct {
	space *SearchSpace
	cfg   HyperbandTunerConfig

	sMax  int
	s     int
	inner *SuccessiveHalvingTuner

	best      Config
	bestScore float64
	haveBest  bool

	done bool
}

//////
// Methods.
//////

// Name implements the TunerStrategy interface.
func (t *HyperbandTuner) Name() string {
	return "hyperband"
}

// Propose implements the TunerStrategy interface. It delegates to the
// current bracket and opens the next one when it finishes.
func (t *HyperbandTuner) Propose(remaining int) ([]Candidate, error) {
	if t.done || remaining <= 0 {
		return nil, nil
	}

	for {
		batch, err := t.inner.Propose(remaining)
		if err != nil {
			return nil, err
		}

		if len(batch) > 0 {
			return batch, nil
		}

		// Current bracket finished; open the next, more conservative one.
		t.s--

		if t.s < 0 {
			t.done = true

			return nil, nil
		}

		inner, err := t.newBracket(t.s)
		if err != nil {
			return nil, err
		}

		t.inner = inner
	}
}

// Observe implements the TunerStrategy interface. It keeps the cross-bracket
// best up to date and forwards the rung to the active bracket.
func (t *HyperbandTuner) Observe(trials []Trial) {
	for _, trial := range trials {
		if trial.Failed() {
			continue
		}

		if !t.haveBest || trial.Score > t.bestScore {
			t.best = cloneConfig(trial.Config)
			t.bestScore = trial.Score
			t.haveBest = true
		}
	}

	t.inner.Observe(trials)
}

// newBracket builds the successive halving run for aggressiveness level s.
func (t *HyperbandTuner) newBracket(s int) (*SuccessiveHalvingTuner, error) {
	n := int(math.Ceil(
		float64(t.sMax+1) / float64(s+1) * float64(ipow(t.cfg.Eta, s)),
	))

	return NewSuccessiveHalvingTuner(t.space, SuccessiveHalvingTunerConfig{
		Rand:           t.cfg.Rand,
		Eta:            t.cfg.Eta,
		MinResource:    t.cfg.MaxResource / float64(ipow(t.cfg.Eta, s)),
		MaxResource:    t.cfg.MaxResource,
		InitialConfigs: n,
		proposer:       t.bracketProposer(s),
	})
}

// bracketProposer returns the cohort proposer for bracket s: nil (uniform
// random) for the first bracket or when FocusBest is off, a sampler
// concentrated around the running best otherwise.
func (t *HyperbandTuner) bracketProposer(s int) func(n int) []Config {
	if !t.cfg.FocusBest || s == t.sMax {
		return nil
	}

	return func(n int) []Config {
		if !t.haveBest || n <= 0 {
			return nil
		}

		// The incumbent itself always gets a seat; brackets at higher
		// resource re-score it honestly.
		configs := make([]Config, 0, n)
		configs = append(configs, cloneConfig(t.best))

		shrink := ipow(t.cfg.Eta, t.sMax-s)

		for len(configs) < n {
			configs = append(configs, t.perturb(t.best, shrink))
		}

		return configs
	}
}

// perturb draws a configuration near base: continuous parameters move within
// a range narrowed by shrink, discrete parameters keep the base value half
// the time.
func (t *HyperbandTuner) perturb(base Config, shrink int) Config {
	config := make(Config, t.space.Len())

	for _, name := range t.space.Names() {
		spec, _ := t.space.Spec(name)

		if spec.Kind == KindDiscrete {
			if t.cfg.Rand.Intn(2) == 0 {
				config[name] = base[name]
			} else {
				config[name] = spec.Values[t.cfg.Rand.Intn(len(spec.Values))]
			}

			continue
		}

		cur, _ := toFloat64(base[name])

		width := (spec.Max - spec.Min) / float64(shrink)

		config[name] = clamp(cur+(t.cfg.Rand.Float64()-0.5)*width, spec.Min, spec.Max)
	}

	return config
}

//////
// Factory.
//////

// DefaultHyperbandTunerConfig returns a HyperbandTunerConfig with a
// time-seeded random source, the usual halving factor of 3, and a maximum
// resource of 27 (yielding 4 brackets).
func DefaultHyperbandTunerConfig() HyperbandTunerConfig {
	return HyperbandTunerConfig{
		Rand:        rand.New(rand.NewSource(time.Now().UnixNano())),
		Eta:         3,
		MaxResource: 27,
	}
}

// NewHyperbandTuner creates a HyperbandTuner over the given space.
//
// Usage example:
//
//	tuner, err := autotune.NewHyperbandTuner(space, autotune.HyperbandTunerConfig{
//	    Rand:        rand.New(rand.NewSource(42)),
//	    Eta:         3,
//	    MaxResource: 81,
//	    FocusBest:   true,
//	})
func NewHyperbandTuner(space *SearchSpace, cfg HyperbandTunerConfig) (*HyperbandTuner, error) {
	if space == nil {
		return nil, NewConfigError("", "hyperband tuner needs a search space", nil)
	}

	if err := validate.Struct(cfg); err != nil {
		return nil, NewConfigError("", "invalid hyperband tuner settings", err)
	}

	t := &HyperbandTuner{
		space:     space,
		cfg:       cfg,
		sMax:      logFloor(cfg.MaxResource, cfg.Eta),
		bestScore: nan(),
	}

	t.s = t.sMax

	inner, err := t.newBracket(t.s)
	if err != nil {
		return nil, err
	}

	t.inner = inner

	return t, nil
}
