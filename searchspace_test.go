package autotune

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testSpace builds the small mixed space most tests tune against: two
// discrete parameters and one continuous.
func testSpace(t *testing.T) *SearchSpace {
	t.Helper()

	space, err := NewSearchSpace(
		Discrete("eviction", "lru", "lfu", "arc"),
		Discrete("shards", 1, 2, 4, 8),
		Continuous("threshold", 0, 1),
	)
	require.NoError(t, err)

	return space
}

func TestNewSearchSpaceValidation(t *testing.T) {
	// An empty space has nothing to tune.
	_, err := NewSearchSpace()
	assert.True(t, IsConfigError(err))

	// Parameters need names.
	_, err = NewSearchSpace(Discrete("", 1, 2))
	assert.True(t, IsConfigError(err))

	// A discrete parameter without values is empty.
	_, err = NewSearchSpace(Discrete("empty"))
	assert.True(t, IsConfigError(err))

	// Discrete values must be scalars.
	_, err = NewSearchSpace(Discrete("nested", []int{1, 2}))
	assert.True(t, IsConfigError(err))

	// Continuous bounds must be finite.
	_, err = NewSearchSpace(Continuous("nan", math.NaN(), 1))
	assert.True(t, IsConfigError(err))

	_, err = NewSearchSpace(Continuous("inf", 0, math.Inf(1)))
	assert.True(t, IsConfigError(err))

	// Inverted bounds are rejected.
	_, err = NewSearchSpace(Continuous("backwards", 1, 0))
	assert.True(t, IsConfigError(err))

	// Names must be unique.
	_, err = NewSearchSpace(Discrete("dup", 1), Discrete("dup", 2))
	assert.True(t, IsConfigError(err))

	// Kinds outside the two known ones are rejected.
	_, err = NewSearchSpace(ParameterSpec{Name: "odd", Kind: "mystery"})
	assert.True(t, IsConfigError(err))

	// A single-point interval is a valid, degenerate parameter.
	_, err = NewSearchSpace(Continuous("fixed", 0.5, 0.5))
	assert.NoError(t, err)
}

func TestSearchSpaceNamesSorted(t *testing.T) {
	space := testSpace(t)

	// Names come back in ascending order regardless of construction order.
	assert.Equal(t, []string{"eviction", "shards", "threshold"}, space.Names())
	assert.Equal(t, 3, space.Len())

	spec, ok := space.Spec("shards")
	assert.True(t, ok)
	assert.Equal(t, KindDiscrete, spec.Kind)

	_, ok = space.Spec("missing")
	assert.False(t, ok)
}

func TestSampleDeterministicAndInBounds(t *testing.T) {
	space := testSpace(t)

	// Two equally seeded sources draw identical configurations.
	rngA := rand.New(rand.NewSource(42))
	rngB := rand.New(rand.NewSource(42))

	for i := 0; i < 20; i++ {
		a := space.Sample(rngA)
		b := space.Sample(rngB)

		assert.Equal(t, a, b)

		// Every draw is a valid configuration.
		assert.NoError(t, space.ValidateConfig(a))

		threshold, ok := toFloat64(a["threshold"])
		assert.True(t, ok)
		assert.GreaterOrEqual(t, threshold, 0.0)
		assert.LessOrEqual(t, threshold, 1.0)
	}
}

func TestValidateConfig(t *testing.T) {
	space := testSpace(t)

	valid := Config{"eviction": "lru", "shards": 4, "threshold": 0.3}
	assert.NoError(t, space.ValidateConfig(valid))

	// A numeric value keeps its meaning across widths: a float64 4 is the
	// same shard count as the int 4 the schema listed.
	widened := Config{"eviction": "lru", "shards": float64(4), "threshold": 0.3}
	assert.NoError(t, space.ValidateConfig(widened))

	// Missing parameter.
	err := space.ValidateConfig(Config{"eviction": "lru", "shards": 4})
	assert.True(t, IsConfigError(err))

	// Unknown key.
	err = space.ValidateConfig(Config{
		"eviction": "lru", "shards": 4, "threshold": 0.3, "extra": 1,
	})
	assert.True(t, IsConfigError(err))

	// Value outside the discrete list.
	err = space.ValidateConfig(Config{"eviction": "fifo", "shards": 4, "threshold": 0.3})
	assert.True(t, IsConfigError(err))

	// Value outside the continuous range.
	err = space.ValidateConfig(Config{"eviction": "lru", "shards": 4, "threshold": 1.5})
	assert.True(t, IsConfigError(err))

	// Continuous parameters need numbers.
	err = space.ValidateConfig(Config{"eviction": "lru", "shards": 4, "threshold": "high"})
	assert.True(t, IsConfigError(err))
}

func TestMerge(t *testing.T) {
	space := testSpace(t)

	defaults := Config{"eviction": "lru", "shards": 2, "threshold": 0.5}

	merged, err := space.Merge(defaults, Config{"threshold": 0.9})
	require.NoError(t, err)

	// Overrides win; untouched parameters come from the defaults.
	assert.Equal(t, 0.9, merged["threshold"])
	assert.Equal(t, "lru", merged["eviction"])
	assert.Equal(t, 2, merged["shards"])

	// Neither input is modified.
	assert.Equal(t, 0.5, defaults["threshold"])

	// Unknown keys in either layer fail the merge.
	_, err = space.Merge(defaults, Config{"extra": 1})
	assert.True(t, IsConfigError(err))

	// An incomplete result fails the merge.
	_, err = space.Merge(nil, Config{"threshold": 0.9})
	assert.True(t, IsConfigError(err))
}

func TestGridSize(t *testing.T) {
	space := testSpace(t)

	// 3 evictions x 4 shard counts x points per continuous parameter.
	assert.Equal(t, 120, space.GridSize(10))
	assert.Equal(t, 36, space.GridSize(3))

	// All-discrete spaces ignore the resolution entirely.
	discrete, err := NewSearchSpace(
		Discrete("a", 1, 2),
		Discrete("b", 10, 20),
	)
	require.NoError(t, err)

	assert.Equal(t, 4, discrete.GridSize(7))
}
