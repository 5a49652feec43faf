package autotune

import (
	"encoding/json"

	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

//////
// Const, vars, types.
//////

// rangeSpec is the decoded form of the {"range": [min, max]} schema object.
type rangeSpec struct {
	Range []any `mapstructure:"range"`
}

//////
// Exported functionalities.
//////

// ParseSearchSpace builds a SearchSpace from a raw schema, the decoded form
// of a JSON or YAML document. Each entry maps a parameter name to either a
// list of discrete values or a range object:
//
//	{
//	    "cache_size": [1024, 4096, 16384],
//	    "eviction":   ["lru", "lfu", "arc"],
//	    "threshold":  {"range": [0.0, 1.0]}
//	}
//
// Parameters:
//   - raw: The decoded schema document.
//
// Returns:
//   - *SearchSpace: The validated space.
//   - error: A ConfigError naming the offending parameter when any entry is
//     malformed, or when the schema is empty.
//
// Important notes:
//   - A range object accepts exactly the key "range" with exactly two
//     numeric bounds; anything else is rejected so typos ("rnage", extra
//     keys, three bounds) fail loudly instead of tuning the wrong space.
func ParseSearchSpace(raw map[string]any) (*SearchSpace, error) {
	if len(raw) == 0 {
		return nil, NewConfigError("", "schema defines no parameters", nil)
	}

	specs := make([]ParameterSpec, 0, len(raw))

	for name, entry := range raw {
		spec, err := parseParameter(name, entry)
		if err != nil {
			return nil, err
		}

		specs = append(specs, spec)
	}

	return NewSearchSpace(specs...)
}

// ParseSearchSpaceJSON parses a JSON schema document into a SearchSpace.
//
// Usage example:
//
//	space, err := autotune.ParseSearchSpaceJSON([]byte(`{
//	    "workers":   [1, 2, 4, 8],
//	    "threshold": {"range": [0, 1]}
//	}`))
func ParseSearchSpaceJSON(data []byte) (*SearchSpace, error) {
	var raw map[string]any

	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, NewConfigError("", "schema is not valid JSON", err)
	}

	return ParseSearchSpace(raw)
}

// ParseSearchSpaceYAML parses a YAML schema document into a SearchSpace.
//
// Usage example:
//
//	space, err := autotune.ParseSearchSpaceYAML([]byte(`
//	workers: [1, 2, 4, 8]
//	threshold:
//	  range: [0, 1]
//	`))
func ParseSearchSpaceYAML(data []byte) (*SearchSpace, error) {
	var raw map[string]any

	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, NewConfigError("", "schema is not valid YAML", err)
	}

	return ParseSearchSpace(raw)
}

//////
// Helper functions.
//////

// parseParameter interprets one schema entry: a list means a discrete
// parameter, a map means a range object, anything else is malformed.
func parseParameter(name string, entry any) (ParameterSpec, error) {
	switch v := entry.(type) {
	case []any:
		if len(v) == 0 {
			return ParameterSpec{}, NewConfigError(name, "discrete list is empty", nil)
		}

		values := make([]any, len(v))
		copy(values, v)

		return ParameterSpec{
			Name:   name,
			Kind:   KindDiscrete,
			Values: values,
		}, nil
	case map[string]any:
		return parseRange(name, v)
	default:
		return ParameterSpec{}, NewConfigError(
			name,
			"parameter spec must be a list of values or a range object",
			nil,
		)
	}
}

// parseRange decodes a {"range": [min, max]} object into a continuous spec.
func parseRange(name string, entry map[string]any) (ParameterSpec, error) {
	var rs rangeSpec

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result: &rs,

		// Unknown keys mean the object is not a range spec at all.
		ErrorUnused: true,
	})
	if err != nil {
		return ParameterSpec{}, errors.Wrap(err, "building range decoder")
	}

	if err := decoder.Decode(entry); err != nil {
		return ParameterSpec{}, NewConfigError(
			name,
			"parameter spec must be a list of values or a range object",
			err,
		)
	}

	if len(rs.Range) != 2 {
		return ParameterSpec{}, NewConfigError(name, "range needs exactly two bounds", nil)
	}

	min, okMin := toFloat64(rs.Range[0])
	max, okMax := toFloat64(rs.Range[1])

	if !okMin || !okMax {
		return ParameterSpec{}, NewConfigError(name, "range bounds must be numbers", nil)
	}

	return ParameterSpec{
		Name: name,
		Kind: KindContinuous,
		Min:  min,
		Max:  max,
	}, nil
}
