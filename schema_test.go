package autotune

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSearchSpaceJSON(t *testing.T) {
	space, err := ParseSearchSpaceJSON([]byte(`{
	    "cache_size": [1024, 4096, 16384],
	    "eviction":   ["lru", "lfu", "arc"],
	    "threshold":  {"range": [0.0, 1.0]}
	}`))
	require.NoError(t, err)

	assert.Equal(t, []string{"cache_size", "eviction", "threshold"}, space.Names())

	spec, ok := space.Spec("threshold")
	assert.True(t, ok)
	assert.Equal(t, KindContinuous, spec.Kind)
	assert.Equal(t, 0.0, spec.Min)
	assert.Equal(t, 1.0, spec.Max)

	spec, ok = space.Spec("cache_size")
	assert.True(t, ok)
	assert.Equal(t, KindDiscrete, spec.Kind)
	assert.Len(t, spec.Values, 3)
}

func TestParseSearchSpaceYAML(t *testing.T) {
	space, err := ParseSearchSpaceYAML([]byte(`
workers: [1, 2, 4, 8]
eviction: [lru, lfu]
threshold:
  range: [0, 1]
`))
	require.NoError(t, err)

	assert.Equal(t, []string{"eviction", "threshold", "workers"}, space.Names())

	spec, ok := space.Spec("workers")
	assert.True(t, ok)
	assert.Equal(t, KindDiscrete, spec.Kind)
	assert.Len(t, spec.Values, 4)

	spec, ok = space.Spec("threshold")
	assert.True(t, ok)
	assert.Equal(t, KindContinuous, spec.Kind)
}

func TestParseSearchSpaceRejectsMalformedSchemas(t *testing.T) {
	// A typo in the range key must not silently produce a different space.
	_, err := ParseSearchSpaceJSON([]byte(`{"p": {"rnage": [0, 1]}}`))
	assert.True(t, IsConfigError(err))

	// Extra keys on a range object are rejected for the same reason.
	_, err = ParseSearchSpaceJSON([]byte(`{"p": {"range": [0, 1], "step": 2}}`))
	assert.True(t, IsConfigError(err))

	// Exactly two bounds.
	_, err = ParseSearchSpaceJSON([]byte(`{"p": {"range": [0, 1, 2]}}`))
	assert.True(t, IsConfigError(err))

	_, err = ParseSearchSpaceJSON([]byte(`{"p": {"range": [0]}}`))
	assert.True(t, IsConfigError(err))

	// Bounds must be numbers.
	_, err = ParseSearchSpaceJSON([]byte(`{"p": {"range": ["low", "high"]}}`))
	assert.True(t, IsConfigError(err))

	// Inverted bounds are caught by space validation.
	_, err = ParseSearchSpaceJSON([]byte(`{"p": {"range": [1, 0]}}`))
	assert.True(t, IsConfigError(err))

	// A bare scalar is neither a list nor a range object.
	_, err = ParseSearchSpaceJSON([]byte(`{"p": 42}`))
	assert.True(t, IsConfigError(err))

	// Empty lists have nothing to tune.
	_, err = ParseSearchSpaceJSON([]byte(`{"p": []}`))
	assert.True(t, IsConfigError(err))

	// Discrete values must be scalars.
	_, err = ParseSearchSpaceJSON([]byte(`{"p": [{"x": 1}]}`))
	assert.True(t, IsConfigError(err))

	// Empty schemas have nothing to tune either.
	_, err = ParseSearchSpaceJSON([]byte(`{}`))
	assert.True(t, IsConfigError(err))

	// Broken documents surface as config errors, not panics.
	_, err = ParseSearchSpaceJSON([]byte(`{"p": [1, 2`))
	assert.True(t, IsConfigError(err))

	_, err = ParseSearchSpaceYAML([]byte("p: [1, 2"))
	assert.True(t, IsConfigError(err))
}
