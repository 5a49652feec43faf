package autotune

import (
	"math/rand"
	"time"
)

//////
// Const, vars, types.
//////

// CoordinateDescentTunerConfig holds the settings of a
// CoordinateDescentTuner.
type CoordinateDescentTunerConfig struct {
	// Rand draws the starting point (when Initial is nil or partial) and
	// every restart.
	Rand *rand.Rand `validate:"required"`

	// Initial is the starting configuration. It may be partial; missing
	// parameters are drawn at random. nil starts from a pure random sample.
	Initial Config

	// LinePoints is how many evenly spaced probes a continuous parameter
	// gets per visit. Discrete parameters always probe their full value
	// list.
	// Recommended range: 3-9
	LinePoints int `validate:"gte=2"`

	// Restarts is how many fresh random starting points the tuner tries
	// after converging. The harness keeps the global best across restarts;
	// the tuner itself climbs anew each time.
	Restarts int `validate:"gte=0"`
}

// CoordinateDescentTuner climbs the search space one dimension at a time: it
// holds every parameter fixed except one, probes alternative values for that
// parameter, adopts the best probe if it strictly improves the incumbent,
// and moves on to the next dimension. A full pass with no improvement means
// a local optimum; the tuner then restarts from a fresh random point or
// finishes.
//
// Probing details:
// - Dimensions are visited round-robin in ascending name order
// - A discrete dimension probes every value except the incumbent's
// - A continuous dimension probes LinePoints evenly spaced values across a
//   bracket centered on the incumbent value; the bracket halves after every
//   full pass, so the search keeps refining locally
//
// When to use:
// - When parameters influence the score independently enough that
//   one-dimensional improvements compound
// - When the budget is too small for grid search but the space too large
//   for random search to stumble on good regions
//
// Warning:
//   - Like every local search, it converges to a local optimum. Use
//     Restarts (or a HyperbandTuner) when the space is multimodal.
type CoordinateDescentTuner struct {
	space *SearchSpace
	cfg   CoordinateDescentTunerConfig

	names []string

	current      Config
	currentScore float64
	haveScore    bool

	// dim indexes the next dimension to probe; a full cycle through names is
	// one pass.
	dim            int
	improvedInPass bool

	// widths holds the current probe bracket width per continuous
	// parameter.
	widths map[string]float64

	restartsLeft int
	done         bool

	// pendingInit marks the outstanding batch as the incumbent evaluation
	// rather than a line search.
	pendingInit bool
	pendingDim  string
}

//////
// Methods.
//////

// Name implements the TunerStrategy interface.
func (t *CoordinateDescentTuner) Name() string {
	return "coordinate_descent"
}

// Propose implements the TunerStrategy interface. Each batch is either the
// incumbent configuration (session start and restarts) or the probes of one
// dimension's line search. Batches are synchronization points: the next
// dimension is only probed once the previous one is fully scored.
func (t *CoordinateDescentTuner) Propose(remaining int) ([]Candidate, error) {
	if t.done || remaining <= 0 {
		return nil, nil
	}

	// The incumbent needs a score before any line search can compare
	// against it.
	if !t.haveScore {
		t.pendingInit = true

		return []Candidate{{Config: cloneConfig(t.current)}}, nil
	}

	for {
		if t.dim == len(t.names) {
			t.dim = 0

			t.halveWidths()

			if !t.improvedInPass {
				// Local optimum reached.
				if !t.restart() {
					t.done = true

					return nil, nil
				}

				t.pendingInit = true

				return []Candidate{{Config: cloneConfig(t.current)}}, nil
			}

			t.improvedInPass = false
		}

		name := t.names[t.dim]
		t.dim++

		probes := t.lineProbes(name)
		if len(probes) == 0 {
			// Nothing to vary on this dimension (single-valued list or a
			// collapsed bracket); move on.
			continue
		}

		if len(probes) > remaining {
			probes = probes[:remaining]
		}

		t.pendingInit = false
		t.pendingDim = name

		batch := make([]Candidate, len(probes))

		for i, config := range probes {
			batch[i] = Candidate{Config: config}
		}

		return batch, nil
	}
}

// Observe implements the TunerStrategy interface. The incumbent only ever
// moves to a strictly better configuration, so its score never regresses.
func (t *CoordinateDescentTuner) Observe(trials []Trial) {
	if t.done || len(trials) == 0 {
		return
	}

	if t.pendingInit {
		trial := trials[0]

		if trial.Failed() {
			// A failed starting point gives the line searches nothing to
			// compare against; draw a new one.
			t.current = t.space.Sample(t.cfg.Rand)

			return
		}

		t.currentScore = trial.Score
		t.haveScore = true

		return
	}

	bestIdx := -1

	for i, trial := range trials {
		if trial.Failed() {
			continue
		}

		if bestIdx < 0 || trial.Score > trials[bestIdx].Score {
			bestIdx = i
		}
	}

	if bestIdx >= 0 && trials[bestIdx].Score > t.currentScore {
		t.current = cloneConfig(trials[bestIdx].Config)
		t.currentScore = trials[bestIdx].Score
		t.improvedInPass = true
	}
}

// lineProbes builds the probe configurations for one dimension: the
// incumbent with only that parameter varied.
func (t *CoordinateDescentTuner) lineProbes(name string) []Config {
	spec, _ := t.space.Spec(name)

	if spec.Kind == KindDiscrete {
		probes := make([]Config, 0, len(spec.Values))

		for _, value := range spec.Values {
			if scalarEqual(value, t.current[name]) {
				continue
			}

			config := cloneConfig(t.current)
			config[name] = value

			probes = append(probes, config)
		}

		return probes
	}

	width := t.widths[name]
	if width <= 0 {
		return nil
	}

	cur, _ := toFloat64(t.current[name])

	lo := clamp(cur-width/2, spec.Min, spec.Max)
	hi := clamp(cur+width/2, spec.Min, spec.Max)

	probes := make([]Config, 0, t.cfg.LinePoints)

	for _, value := range linspace(lo, hi, t.cfg.LinePoints) {
		if value == cur {
			continue
		}

		config := cloneConfig(t.current)
		config[name] = value

		probes = append(probes, config)
	}

	return probes
}

// halveWidths narrows every continuous probe bracket for the next pass.
func (t *CoordinateDescentTuner) halveWidths() {
	for name := range t.widths {
		t.widths[name] /= 2
	}
}

// resetWidths restores every continuous probe bracket to the full parameter
// range.
func (t *CoordinateDescentTuner) resetWidths() {
	for _, name := range t.names {
		spec, _ := t.space.Spec(name)

		if spec.Kind == KindContinuous {
			t.widths[name] = spec.Max - spec.Min
		}
	}
}

// restart moves the tuner to a fresh random starting point, if any restarts
// are left.
func (t *CoordinateDescentTuner) restart() bool {
	if t.restartsLeft <= 0 {
		return false
	}

	t.restartsLeft--

	t.current = t.space.Sample(t.cfg.Rand)
	t.currentScore = 0
	t.haveScore = false
	t.improvedInPass = false
	t.dim = 0

	t.resetWidths()

	return true
}

//////
// Factory.
//////

// DefaultCoordinateDescentTunerConfig returns a CoordinateDescentTunerConfig
// with a time-seeded random source, 5 probes per continuous line search, and
// no restarts.
func DefaultCoordinateDescentTunerConfig() CoordinateDescentTunerConfig {
	return CoordinateDescentTunerConfig{
		Rand:       rand.New(rand.NewSource(time.Now().UnixNano())),
		LinePoints: 5,
		Restarts:   0,
	}
}

// NewCoordinateDescentTuner creates a CoordinateDescentTuner over the given
// space.
//
// Usage example:
//
//	tuner, err := autotune.NewCoordinateDescentTuner(space, autotune.CoordinateDescentTunerConfig{
//	    Rand:       rand.New(rand.NewSource(42)),
//	    Initial:    autotune.Config{"threshold": 0.5},
//	    LinePoints: 5,
//	    Restarts:   2,
//	})
//
// Important notes:
//   - Initial may cover any subset of the space; the rest is drawn at
//     random. An Initial carrying unknown keys or inadmissible values is a
//     ConfigError.
func NewCoordinateDescentTuner(space *SearchSpace, cfg CoordinateDescentTunerConfig) (*CoordinateDescentTuner, error) {
	if space == nil {
		return nil, NewConfigError("", "coordinate descent tuner needs a search space", nil)
	}

	if err := validate.Struct(cfg); err != nil {
		return nil, NewConfigError("", "invalid coordinate descent tuner settings", err)
	}

	start, err := space.Merge(space.Sample(cfg.Rand), cfg.Initial)
	if err != nil {
		return nil, err
	}

	t := &CoordinateDescentTuner{
		space:        space,
		cfg:          cfg,
		names:        space.Names(),
		current:      start,
		widths:       make(map[string]float64),
		restartsLeft: cfg.Restarts,
	}

	t.resetWidths()

	return t, nil
}
