package ai

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMeanPool_MasksAndNormalises(t *testing.T) {
	hidden := []float32{
		3, 0,
		0, 4,
		100, 100,
	}
	out := meanPool(hidden, []int64{1, 1, 0}, 3, 2)
	require.InDelta(t, 0.6, out[0], 1e-6)
	require.InDelta(t, 0.8, out[1], 1e-6)

	var norm float64
	for _, v := range out {
		norm += float64(v) * float64(v)
	}
	require.InDelta(t, 1.0, math.Sqrt(norm), 1e-6)
}

func TestMeanPool_AllMasked(t *testing.T) {
	out := meanPool([]float32{1, 2}, []int64{0}, 1, 2)
	require.Equal(t, []float32{0, 0}, out)
}
