package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/thalesfsp/autotune"
)

const (
	// paramEnvPrefix prefixes the per-parameter environment variables the
	// trial command receives.
	paramEnvPrefix = "AUTOTUNE_PARAM_"

	// resourceEnvVar carries the resource allocation for partial trials.
	resourceEnvVar = "AUTOTUNE_RESOURCE"
)

// commandEvaluator scores configurations by running an external command once
// per trial. The configuration reaches the command two ways:
//
//   - Environment: one AUTOTUNE_PARAM_<NAME> variable per parameter, plus
//     AUTOTUNE_RESOURCE when the strategy allocated a partial resource.
//   - Stdin: a JSON document {"config": {...}, "resource": <float>}.
//
// The command reports the score by printing a single number; the last
// non-empty line of stdout is parsed as a float64. Stderr passes through to
// the terminal. A non-zero exit status fails the trial.
type commandEvaluator struct {
	args   []string
	logger zerolog.Logger
}

// trialPayload is the JSON document written to the command's stdin.
type trialPayload struct {
	Config   autotune.Config `json:"config"`
	Resource float64         `json:"resource,omitempty"`
}

// newCommandEvaluator wraps the given command line as an evaluator.
func newCommandEvaluator(args []string, logger zerolog.Logger) *commandEvaluator {
	return &commandEvaluator{
		args:   args,
		logger: logger,
	}
}

// Evaluate runs the command at full resource.
func (e *commandEvaluator) Evaluate(ctx context.Context, config autotune.Config) (float64, error) {
	return e.run(ctx, config, 0)
}

// EvaluateAt runs the command at a partial resource allocation.
func (e *commandEvaluator) EvaluateAt(ctx context.Context, config autotune.Config, resource float64) (float64, error) {
	return e.run(ctx, config, resource)
}

func (e *commandEvaluator) run(ctx context.Context, config autotune.Config, resource float64) (float64, error) {
	cmd := exec.CommandContext(ctx, e.args[0], e.args[1:]...)

	// Values are passed as environment variables rather than interpolated
	// into the command line, which keeps arbitrary values out of shell
	// parsing entirely.
	extra := make([]string, 0, len(config)+1)

	for name, value := range config {
		extra = append(extra, fmt.Sprintf("%s%s=%v", paramEnvPrefix, envName(name), value))
	}

	if resource > 0 {
		extra = append(extra, fmt.Sprintf("%s=%v", resourceEnvVar, resource))
	}

	cmd.Env = append(cmd.Environ(), extra...)

	payload, err := json.Marshal(trialPayload{
		Config:   config,
		Resource: resource,
	})
	if err != nil {
		return 0, errors.Wrap(err, "encoding trial payload")
	}

	var stdout bytes.Buffer

	cmd.Stdin = bytes.NewReader(payload)
	cmd.Stdout = &stdout
	cmd.Stderr = os.Stderr

	e.logger.Debug().
		Str("command", e.args[0]).
		Interface("config", config).
		Float64("resource", resource).
		Msg("Running trial command")

	if err := cmd.Run(); err != nil {
		return 0, errors.Wrap(err, "running trial command")
	}

	return parseScore(stdout.String())
}

// parseScore extracts the score from the command's stdout: the last
// non-empty line, parsed as a float64.
func parseScore(output string) (float64, error) {
	lines := strings.Split(output, "\n")

	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])

		if line == "" {
			continue
		}

		score, err := strconv.ParseFloat(line, 64)
		if err != nil {
			return 0, errors.Wrapf(err, "parsing score from output line %q", line)
		}

		return score, nil
	}

	return 0, errors.New("trial command produced no output to parse a score from")
}

// envName maps a parameter name onto an environment variable suffix:
// uppercased, with every character outside [A-Z0-9] replaced by an
// underscore.
func envName(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r - 'a' + 'A'
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		default:
			return '_'
		}
	}, name)
}
