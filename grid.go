package autotune

//////
// Const, vars, types.
//////

// GridTunerConfig holds the settings of a GridTuner.
type GridTunerConfig struct {
	// GridPoints is the number of evenly spaced values a continuous
	// parameter contributes to the grid, endpoints included. Discrete
	// parameters always contribute their full value list.
	GridPoints int `validate:"gte=2"`
}

// GridTuner sweeps the Cartesian product of the discretized search space in
// a deterministic order: parameters ascend by name, and the last name varies
// fastest. A space with a = [1, 2] and b = [10, 20] is visited as
// (1,10), (1,20), (2,10), (2,20).
//
// The order never depends on the budget: a session that can only afford the
// first k points evaluates exactly the first k points of the full
// enumeration.
//
// Warning:
//   - The grid grows multiplicatively with dimensionality. Check
//     SearchSpace.GridSize before sweeping anything beyond a handful of
//     parameters.
type GridTuner struct {
	space *SearchSpace
	cfg   GridTunerConfig

	names  []string
	values [][]any // aligned with names

	index   []int // odometer over values, last position fastest
	total   int
	emitted int
}

//////
// Methods.
//////

// Name implements the TunerStrategy interface.
func (t *GridTuner) Name() string {
	return "grid"
}

// Propose implements the TunerStrategy interface. All still-unvisited grid
// points the budget allows come back as one batch; grid search has no
// adaptive state, so there is no reason to force workers through batch
// barriers.
func (t *GridTuner) Propose(remaining int) ([]Candidate, error) {
	count := t.total - t.emitted

	if count > remaining {
		count = remaining
	}

	if count <= 0 {
		return nil, nil
	}

	batch := make([]Candidate, count)

	for i := range batch {
		batch[i] = Candidate{Config: t.next()}
	}

	return batch, nil
}

// Observe implements the TunerStrategy interface. Grid search ignores
// outcomes.
func (t *GridTuner) Observe(_ []Trial) {}

// next materializes the current odometer position and advances it.
func (t *GridTuner) next() Config {
	config := make(Config, len(t.names))

	for i, name := range t.names {
		config[name] = t.values[i][t.index[i]]
	}

	for i := len(t.index) - 1; i >= 0; i-- {
		t.index[i]++

		if t.index[i] < len(t.values[i]) {
			break
		}

		t.index[i] = 0
	}

	t.emitted++

	return config
}

//////
// Factory.
//////

// DefaultGridTunerConfig returns a GridTunerConfig with 10 points per
// continuous parameter.
func DefaultGridTunerConfig() GridTunerConfig {
	return GridTunerConfig{
		GridPoints: 10,
	}
}

// NewGridTuner creates a GridTuner over the given space.
//
// Usage example:
//
//	tuner, err := autotune.NewGridTuner(space, autotune.DefaultGridTunerConfig())
//
// Important notes:
//   - The full grid is never materialized up front; points are generated
//     lazily, so huge grids cost nothing until they are actually visited.
func NewGridTuner(space *SearchSpace, cfg GridTunerConfig) (*GridTuner, error) {
	if space == nil {
		return nil, NewConfigError("", "grid tuner needs a search space", nil)
	}

	if err := validate.Struct(cfg); err != nil {
		return nil, NewConfigError("", "invalid grid tuner settings", err)
	}

	names := space.Names()

	values := make([][]any, len(names))

	for i, name := range names {
		spec, _ := space.Spec(name)
		values[i] = spec.gridValues(cfg.GridPoints)
	}

	return &GridTuner{
		space:  space,
		cfg:    cfg,
		names:  names,
		values: values,
		index:  make([]int, len(names)),
		total:  space.GridSize(cfg.GridPoints),
	}, nil
}
