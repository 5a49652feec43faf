package autotune

import (
	"math"
	"math/rand"
	"sort"
)

//////
// Const, vars, types.
//////

// ParameterKind discriminates the two kinds of parameters a search space can
// hold.
type ParameterKind string

const (
	// KindDiscrete parameters draw from an explicit, ordered list of values.
	KindDiscrete ParameterKind = "discrete"

	// KindContinuous parameters draw from a closed numeric interval.
	KindContinuous ParameterKind = "continuous"
)

// ParameterSpec describes a single tunable parameter.
//
// Usage:
//
//	// Example 1: A discrete parameter over explicit values
//	sizes := autotune.ParameterSpec{
//	    Name:   "cache_size",
//	    Kind:   autotune.KindDiscrete,
//	    Values: []any{1024, 4096, 16384},
//	}
//
//	// Example 2: A continuous parameter over a closed interval
//	threshold := autotune.ParameterSpec{
//	    Name: "threshold",
//	    Kind: autotune.KindContinuous,
//	    Min:  0.0,
//	    Max:  1.0,
//	}
//
// Validation:
// - Discrete parameters need at least one value; values must be scalars
// - Continuous parameters need finite bounds with Min <= Max
// - Min == Max is a valid, degenerate interval holding a single value
//
// Warning:
//   - Very wide continuous ranges slow convergence for every strategy; keep
//     bounds as tight as domain knowledge allows.
type ParameterSpec struct {
	// Name identifies the parameter within the space.
	Name string

	// Kind selects between a discrete list and a continuous range.
	Kind ParameterKind

	// Values holds the admissible values of a discrete parameter, in the
	// order given by the schema. Ignored for continuous parameters.
	Values []any

	// Min defines the minimum allowed value (inclusive) of a continuous
	// parameter. Ignored for discrete parameters.
	Min float64

	// Max defines the maximum allowed value (inclusive) of a continuous
	// parameter. Ignored for discrete parameters.
	Max float64
}

// SearchSpace is the declarative schema of everything tunable: a fixed set
// of named parameters, each discrete or continuous. It is the single source
// of truth for which configurations are valid, and every strategy draws its
// candidates from it.
//
// Thread safety:
// - A SearchSpace is immutable after construction and safe for concurrent
//   use by any number of goroutines.
type SearchSpace struct {
	params map[string]ParameterSpec

	// names holds the parameter names in ascending order. Every operation
	// that walks the space (sampling, grid enumeration, coordinate visits)
	// follows this order, so equal seeds yield equal draws.
	names []string
}

//////
// Factory.
//////

// NewSearchSpace builds a SearchSpace from parameter specs.
//
// Parameters:
//   - specs: One spec per tunable parameter. At least one is required.
//
// Returns:
//   - *SearchSpace: The validated, immutable space.
//   - error: A ConfigError when any spec is invalid or a name repeats.
//
// Usage example:
//
//	space, err := autotune.NewSearchSpace(
//	    autotune.Discrete("eviction", "lru", "lfu", "arc"),
//	    autotune.Discrete("shards", 1, 2, 4, 8),
//	    autotune.Continuous("threshold", 0, 1),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// Important notes:
//   - Validation happens here, once, before any evaluation runs. Strategies
//     and the harness can then trust every spec they read.
func NewSearchSpace(specs ...ParameterSpec) (*SearchSpace, error) {
	if len(specs) == 0 {
		return nil, NewConfigError("", "search space needs at least one parameter", nil)
	}

	params := make(map[string]ParameterSpec, len(specs))

	for _, spec := range specs {
		if err := spec.validate(); err != nil {
			return nil, err
		}

		if _, duplicated := params[spec.Name]; duplicated {
			return nil, NewConfigError(spec.Name, "duplicate parameter name", nil)
		}

		params[spec.Name] = spec
	}

	names := make([]string, 0, len(params))

	for name := range params {
		names = append(names, name)
	}

	sort.Strings(names)

	return &SearchSpace{
		params: params,
		names:  names,
	}, nil
}

// Discrete is a convenience constructor for a discrete ParameterSpec.
//
// Usage example:
//
//	autotune.Discrete("eviction", "lru", "lfu", "arc")
func Discrete(name string, values ...any) ParameterSpec {
	return ParameterSpec{
		Name:   name,
		Kind:   KindDiscrete,
		Values: values,
	}
}

// Continuous is a convenience constructor for a continuous ParameterSpec
// bounded by the closed interval [min, max].
//
// Usage example:
//
//	autotune.Continuous("threshold", 0, 1)
func Continuous(name string, min, max float64) ParameterSpec {
	return ParameterSpec{
		Name: name,
		Kind: KindContinuous,
		Min:  min,
		Max:  max,
	}
}

//////
// Methods.
//////

// validate checks a single spec for structural problems.
func (p ParameterSpec) validate() error {
	if p.Name == "" {
		return NewConfigError("", "parameter name must not be empty", nil)
	}

	switch p.Kind {
	case KindDiscrete:
		if len(p.Values) == 0 {
			return NewConfigError(p.Name, "discrete parameter needs at least one value", nil)
		}

		for _, value := range p.Values {
			if !isScalar(value) {
				return NewConfigError(p.Name, "discrete values must be scalars (bool, string, or number)", nil)
			}
		}
	case KindContinuous:
		if math.IsNaN(p.Min) || math.IsNaN(p.Max) ||
			math.IsInf(p.Min, 0) || math.IsInf(p.Max, 0) {
			return NewConfigError(p.Name, "continuous bounds must be finite numbers", nil)
		}

		if p.Min > p.Max {
			return NewConfigError(p.Name, "range lower bound exceeds upper bound", nil)
		}
	default:
		return NewConfigError(p.Name, "unknown parameter kind", nil)
	}

	return nil
}

// sample draws one value uniformly from the parameter.
func (p ParameterSpec) sample(rng *rand.Rand) any {
	if p.Kind == KindDiscrete {
		return p.Values[rng.Intn(len(p.Values))]
	}

	// Degenerate interval: a single admissible value, no randomness needed.
	if p.Min == p.Max {
		return p.Min
	}

	return p.Min + rng.Float64()*(p.Max-p.Min)
}

// gridValues returns the values a grid sweep visits for this parameter:
// every listed value for discrete parameters, points evenly spaced values
// (endpoints included) for continuous ones.
func (p ParameterSpec) gridValues(points int) []any {
	if p.Kind == KindDiscrete {
		values := make([]any, len(p.Values))
		copy(values, p.Values)

		return values
	}

	spaced := linspace(p.Min, p.Max, points)

	values := make([]any, len(spaced))

	for i, v := range spaced {
		values[i] = v
	}

	return values
}

// check reports whether value is admissible for the parameter.
func (p ParameterSpec) check(value any) error {
	if p.Kind == KindDiscrete {
		for _, want := range p.Values {
			if scalarEqual(value, want) {
				return nil
			}
		}

		return NewConfigError(p.Name, "value is not a member of the discrete list", nil)
	}

	number, ok := toFloat64(value)
	if !ok {
		return NewConfigError(p.Name, "continuous parameter requires a numeric value", nil)
	}

	if math.IsNaN(number) || number < p.Min || number > p.Max {
		return NewConfigError(p.Name, "value is outside the parameter range", nil)
	}

	return nil
}

// Names returns the parameter names in ascending order.
func (s *SearchSpace) Names() []string {
	names := make([]string, len(s.names))
	copy(names, s.names)

	return names
}

// Len returns the number of parameters in the space.
func (s *SearchSpace) Len() int {
	return len(s.names)
}

// Spec returns the spec of the named parameter, and whether it exists.
func (s *SearchSpace) Spec(name string) (ParameterSpec, bool) {
	spec, ok := s.params[name]

	return spec, ok
}

// Sample draws a complete configuration uniformly at random: every discrete
// parameter picks one of its listed values, every continuous parameter draws
// uniformly from its interval.
//
// Parameters:
//   - rng: The random source to draw from. Callers own the source; the space
//     never touches global random state.
//
// Returns:
//   - Config: A fresh, valid configuration.
//
// Important notes:
//   - Parameters are drawn in ascending name order, so two samples from
//     equally seeded sources are identical.
//
// Thread safety:
//   - Safe for concurrent use as long as each goroutine brings its own rng;
//     *rand.Rand itself is not thread-safe.
func (s *SearchSpace) Sample(rng *rand.Rand) Config {
	config := make(Config, len(s.names))

	for _, name := range s.names {
		config[name] = s.params[name].sample(rng)
	}

	return config
}

// ValidateConfig checks a configuration against the space: every parameter
// present, no unknown keys, every value admissible for its spec.
//
// Returns:
//   - error: A ConfigError naming the offending parameter, nil when the
//     configuration is valid.
func (s *SearchSpace) ValidateConfig(config Config) error {
	for name := range config {
		if _, ok := s.params[name]; !ok {
			return NewConfigError(name, "parameter is not part of the search space", nil)
		}
	}

	for _, name := range s.names {
		value, ok := config[name]
		if !ok {
			return NewConfigError(name, "configuration is missing a parameter", nil)
		}

		if err := s.params[name].check(value); err != nil {
			return err
		}
	}

	return nil
}

// Merge layers override values over defaults and validates the result
// against the space. It is how a partial assignment (a handful of overrides
// from a file or a flag) becomes a complete configuration.
//
// Parameters:
//   - defaults: The base configuration. Usually complete; may be nil.
//   - overrides: Values replacing their counterparts in defaults. May be nil
//     or partial.
//
// Returns:
//   - Config: A fresh configuration; neither input is modified.
//   - error: A ConfigError when the merged result is incomplete, has keys
//     outside the space, or carries inadmissible values.
func (s *SearchSpace) Merge(defaults, overrides Config) (Config, error) {
	merged := make(Config, s.Len())

	for name, value := range defaults {
		merged[name] = value
	}

	for name, value := range overrides {
		merged[name] = value
	}

	if err := s.ValidateConfig(merged); err != nil {
		return nil, err
	}

	return merged, nil
}

// GridSize returns the number of points a grid sweep with the given
// per-parameter resolution would visit: the product of every discrete list
// length and of points for every continuous parameter.
//
// Important notes:
//   - The product grows multiplicatively with dimensionality; the result
//     saturates at math.MaxInt to keep callers safe from overflow.
func (s *SearchSpace) GridSize(points int) int {
	size := 1

	for _, name := range s.names {
		spec := s.params[name]

		n := points

		if spec.Kind == KindDiscrete {
			n = len(spec.Values)
		}

		if n <= 0 {
			return 0
		}

		if size > math.MaxInt/n {
			return math.MaxInt
		}

		size *= n
	}

	return size
}

//////
// Helper functions.
//////

// isScalar reports whether v is a bool, string, or numeric value.
func isScalar(v any) bool {
	switch v.(type) {
	case bool, string:
		return true
	default:
		_, numeric := toFloat64(v)

		return numeric
	}
}

// scalarEqual compares two scalar values, treating numbers of different
// widths as equal when they denote the same quantity (a decoded schema may
// carry 10 as int while a strategy carries it as float64).
func scalarEqual(a, b any) bool {
	fa, aNum := toFloat64(a)
	fb, bNum := toFloat64(b)

	if aNum && bNum {
		return fa == fb
	}

	if aNum != bNum {
		return false
	}

	return a == b
}
