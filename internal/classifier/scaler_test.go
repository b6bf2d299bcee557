package classifier

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFitScaler_MeanAndStd(t *testing.T) {
	xs := [][]float32{
		{1, 10},
		{3, 10},
		{5, 10},
	}

	s := FitScaler(xs)

	require.Len(t, s.Mean, 2)
	assert.InDelta(t, 3.0, s.Mean[0], 1e-9)
	assert.InDelta(t, 10.0, s.Mean[1], 1e-9)
	// Population std of {1,3,5} is sqrt(8/3).
	assert.InDelta(t, 1.632993, s.Std[0], 1e-5)
	// Zero-variance features keep Std 1 so Transform never divides by zero.
	assert.Equal(t, 1.0, s.Std[1])
}

func TestTransform_Standardizes(t *testing.T) {
	xs := [][]float32{
		{2, 7},
		{4, 7},
	}
	s := FitScaler(xs)

	out := s.Transform(xs)

	require.Len(t, out, 2)
	assert.InDelta(t, -1.0, out[0][0], 1e-9)
	assert.InDelta(t, 1.0, out[1][0], 1e-9)
	assert.InDelta(t, 0.0, out[0][1], 1e-9)
	assert.InDelta(t, 0.0, out[1][1], 1e-9)
}

func TestTransform_UsesFittedStats(t *testing.T) {
	s := &Scaler{Mean: []float64{1, 2}, Std: []float64{2, 4}}

	out := s.Transform([][]float32{{5, 10}})

	assert.InDelta(t, 2.0, out[0][0], 1e-9)
	assert.InDelta(t, 2.0, out[0][1], 1e-9)
}
