package main

import (
	"math/rand"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/thalesfsp/autotune"
)

// envPrefix namespaces the environment variables the CLI reads its settings
// from, e.g. AUTOTUNE_MAX_TRIALS=200.
const envPrefix = "AUTOTUNE_"

// validate checks the resolved settings before a session starts.
var validate = validator.New(validator.WithRequiredStructEnabled())

// settings carries every knob of the CLI. Values resolve in order: built-in
// defaults, then the settings file, then AUTOTUNE_* environment variables,
// then explicitly set flags.
type settings struct {
	Space    string `koanf:"space" validate:"required"`
	Strategy string `koanf:"strategy" validate:"oneof=random grid coordinate_descent successive_halving hyperband"`

	MaxTrials int    `koanf:"max_trials" validate:"gte=0"`
	MaxCost   string `koanf:"max_cost"`
	Workers   int    `koanf:"workers" validate:"gte=1"`
	Seed      int64  `koanf:"seed"`

	GridPoints  int     `koanf:"grid_points" validate:"gte=2"`
	LinePoints  int     `koanf:"line_points" validate:"gte=2"`
	Restarts    int     `koanf:"restarts" validate:"gte=0"`
	Eta         int     `koanf:"eta" validate:"gte=2"`
	Budget      int     `koanf:"budget" validate:"gte=0"`
	MinResource float64 `koanf:"min_resource" validate:"gt=0"`
	MaxResource float64 `koanf:"max_resource" validate:"gte=0"`
	FocusBest   bool    `koanf:"focus_best"`

	Retries uint `koanf:"retries"`
	Top     int  `koanf:"top" validate:"gte=1"`
	Verbose bool `koanf:"verbose"`
}

// yamlParser adapts the YAML decoder to koanf's Parser interface. YAML is a
// superset of JSON, so one parser covers both settings file formats.
type yamlParser struct{}

// Unmarshal implements koanf.Parser.
func (yamlParser) Unmarshal(b []byte) (map[string]any, error) {
	var out map[string]any

	if err := yaml.Unmarshal(b, &out); err != nil {
		return nil, err
	}

	return out, nil
}

// Marshal implements koanf.Parser.
func (yamlParser) Marshal(o map[string]any) ([]byte, error) {
	return yaml.Marshal(o)
}

// defaultSettings returns the built-in defaults: 50 random trials on a
// single worker.
func defaultSettings() settings {
	return settings{
		Strategy:    "random",
		MaxTrials:   50,
		Workers:     1,
		GridPoints:  10,
		LinePoints:  5,
		Eta:         3,
		Budget:      27,
		MinResource: 1,
		Top:         10,
	}
}

// loadSettings resolves the CLI settings from all sources.
func loadSettings(cmd *cobra.Command) (settings, error) {
	cfg := defaultSettings()

	k := koanf.New(".")

	if configFile, _ := cmd.Flags().GetString("config"); configFile != "" {
		if err := k.Load(file.Provider(configFile), yamlParser{}); err != nil {
			return cfg, errors.Wrap(err, "loading settings file")
		}
	}

	// Environment variables win over the file.
	err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, envPrefix))
	}), nil)
	if err != nil {
		return cfg, errors.Wrap(err, "loading environment settings")
	}

	if err := k.Unmarshal("", &cfg); err != nil {
		return cfg, errors.Wrap(err, "unmarshalling settings")
	}

	applyFlagOverrides(cmd, &cfg)

	if err := validate.Struct(cfg); err != nil {
		return cfg, errors.Wrap(err, "invalid settings")
	}

	return cfg, nil
}

// applyFlagOverrides copies every explicitly set flag over the resolved
// settings. Flags are the highest-priority source.
func applyFlagOverrides(cmd *cobra.Command, cfg *settings) {
	flags := cmd.Flags()

	if flags.Changed("space") {
		cfg.Space, _ = flags.GetString("space")
	}

	if flags.Changed("strategy") {
		cfg.Strategy, _ = flags.GetString("strategy")
	}

	if flags.Changed("max-trials") {
		cfg.MaxTrials, _ = flags.GetInt("max-trials")
	}

	if flags.Changed("max-cost") {
		cfg.MaxCost, _ = flags.GetString("max-cost")
	}

	if flags.Changed("workers") {
		cfg.Workers, _ = flags.GetInt("workers")
	}

	if flags.Changed("seed") {
		cfg.Seed, _ = flags.GetInt64("seed")
	}

	if flags.Changed("grid-points") {
		cfg.GridPoints, _ = flags.GetInt("grid-points")
	}

	if flags.Changed("line-points") {
		cfg.LinePoints, _ = flags.GetInt("line-points")
	}

	if flags.Changed("restarts") {
		cfg.Restarts, _ = flags.GetInt("restarts")
	}

	if flags.Changed("eta") {
		cfg.Eta, _ = flags.GetInt("eta")
	}

	if flags.Changed("budget") {
		cfg.Budget, _ = flags.GetInt("budget")
	}

	if flags.Changed("min-resource") {
		cfg.MinResource, _ = flags.GetFloat64("min-resource")
	}

	if flags.Changed("max-resource") {
		cfg.MaxResource, _ = flags.GetFloat64("max-resource")
	}

	if flags.Changed("focus-best") {
		cfg.FocusBest, _ = flags.GetBool("focus-best")
	}

	if flags.Changed("retries") {
		cfg.Retries, _ = flags.GetUint("retries")
	}

	if flags.Changed("top") {
		cfg.Top, _ = flags.GetInt("top")
	}

	if flags.Changed("verbose") {
		cfg.Verbose, _ = flags.GetBool("verbose")
	}
}

// buildStrategy constructs the selected tuner over the parsed space.
func buildStrategy(space *autotune.SearchSpace, cfg settings) (autotune.TunerStrategy, error) {
	seed := cfg.Seed

	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	rng := rand.New(rand.NewSource(seed))

	switch cfg.Strategy {
	case "random":
		return autotune.NewRandomTuner(space, autotune.RandomTunerConfig{
			Rand: rng,
		})
	case "grid":
		return autotune.NewGridTuner(space, autotune.GridTunerConfig{
			GridPoints: cfg.GridPoints,
		})
	case "coordinate_descent":
		return autotune.NewCoordinateDescentTuner(space, autotune.CoordinateDescentTunerConfig{
			Rand:       rng,
			LinePoints: cfg.LinePoints,
			Restarts:   cfg.Restarts,
		})
	case "successive_halving":
		return autotune.NewSuccessiveHalvingTuner(space, autotune.SuccessiveHalvingTunerConfig{
			Rand:        rng,
			Budget:      cfg.Budget,
			Eta:         cfg.Eta,
			MinResource: cfg.MinResource,
			MaxResource: cfg.MaxResource,
		})
	case "hyperband":
		maxResource := cfg.MaxResource

		// Hyperband needs a real ceiling to derive its brackets from.
		if maxResource == 0 {
			maxResource = 27
		}

		return autotune.NewHyperbandTuner(space, autotune.HyperbandTunerConfig{
			Rand:        rng,
			Eta:         cfg.Eta,
			MaxResource: maxResource,
			FocusBest:   cfg.FocusBest,
		})
	default:
		return nil, errors.Errorf("unknown strategy %q", cfg.Strategy)
	}
}
