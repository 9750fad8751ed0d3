package vector

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRejectsCorruptInput(t *testing.T) {
	cases := map[string]string{
		"empty string":    "",
		"not json":        "not-json",
		"empty array":     "[]",
		"object":          `{"a":1}`,
		"truncated array": "[0.1, 0.2",
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			vec, ok := Parse(raw)
			assert.False(t, ok)
			assert.Nil(t, vec)
		})
	}
}

func TestParseEncodeRoundTrip(t *testing.T) {
	original := []float32{0.25, -1.5, 3.0000002, 0}
	encoded := Encode(original)
	require.NotEmpty(t, encoded)

	decoded, ok := Parse(encoded)
	require.True(t, ok)
	assert.Equal(t, original, decoded)
}

func TestEncodeEmptyVector(t *testing.T) {
	assert.Equal(t, "", Encode(nil))
	assert.Equal(t, "", Encode([]float32{}))
}

func TestIsValidRejectsNonFinite(t *testing.T) {
	assert.True(t, IsValid([]float32{0, 1, -1}))
	assert.False(t, IsValid(nil))
	assert.False(t, IsValid([]float32{1, float32(math.NaN())}))
	assert.False(t, IsValid([]float32{float32(math.Inf(1))}))
}

func TestCosine(t *testing.T) {
	t.Run("identical vectors", func(t *testing.T) {
		sim, ok := Cosine([]float32{1, 2, 3}, []float32{1, 2, 3})
		require.True(t, ok)
		assert.InDelta(t, 1.0, sim, 1e-9)
	})

	t.Run("orthogonal vectors", func(t *testing.T) {
		sim, ok := Cosine([]float32{1, 0}, []float32{0, 1})
		require.True(t, ok)
		assert.InDelta(t, 0.0, sim, 1e-9)
	})

	t.Run("opposite vectors", func(t *testing.T) {
		sim, ok := Cosine([]float32{1, 0}, []float32{-1, 0})
		require.True(t, ok)
		assert.InDelta(t, -1.0, sim, 1e-9)
	})

	t.Run("scale invariant", func(t *testing.T) {
		a, okA := Cosine([]float32{1, 2}, []float32{3, 4})
		b, okB := Cosine([]float32{10, 20}, []float32{3, 4})
		require.True(t, okA)
		require.True(t, okB)
		assert.InDelta(t, a, b, 1e-9)
	})

	t.Run("dimension mismatch is not comparable", func(t *testing.T) {
		_, ok := Cosine([]float32{1, 2, 3}, []float32{1, 2})
		assert.False(t, ok)
	})

	t.Run("zero norm is not comparable", func(t *testing.T) {
		_, ok := Cosine([]float32{0, 0}, []float32{1, 2})
		assert.False(t, ok)
		_, ok = Cosine([]float32{1, 2}, []float32{0, 0})
		assert.False(t, ok)
	})
}

func TestNormalize(t *testing.T) {
	out, ok := Normalize([]float32{3, 4})
	require.True(t, ok)
	assert.InDelta(t, 1.0, Norm(out), 1e-6)
	assert.InDelta(t, 0.6, float64(out[0]), 1e-6)
	assert.InDelta(t, 0.8, float64(out[1]), 1e-6)

	_, ok = Normalize([]float32{0, 0, 0})
	assert.False(t, ok)
}
