package forest

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// separable returns rows where the label is 1 exactly when feature 1 is above 0.5.
func separable(n int) ([][]float32, []uint8) {
	rng := rand.New(rand.NewPCG(7, 7))
	x := make([][]float32, n)
	y := make([]uint8, n)
	for i := range x {
		x[i] = []float32{rng.Float32(), rng.Float32(), rng.Float32()}
		if x[i][1] > 0.5 {
			y[i] = 1
		}
	}
	return x, y
}

func smallParams() Params {
	p := DefaultParams()
	p.Trees = 15
	return p
}

func TestFitLearnsThreshold(t *testing.T) {
	x, y := separable(400)

	f, err := Fit(x, y, smallParams())
	require.NoError(t, err)
	require.Len(t, f.Trees, 15)
	assert.Equal(t, 3, f.Features)

	assert.Equal(t, uint8(1), f.Predict([]float32{0.2, 0.9, 0.4}))
	assert.Equal(t, uint8(0), f.Predict([]float32{0.8, 0.1, 0.6}))
	assert.Greater(t, f.Proba([]float32{0.5, 0.95, 0.5}), 0.5)
}

func TestFitTreesArePureOnTrainingSet(t *testing.T) {
	x, y := separable(200)
	p := smallParams()
	p.Trees = 1
	p.Bootstrap = false

	f, err := Fit(x, y, p)
	require.NoError(t, err)

	for i := range x {
		assert.Equal(t, y[i], f.Trees[0].Predict(x[i]))
	}
}

func TestFitIsDeterministic(t *testing.T) {
	x, y := separable(300)
	p := smallParams()

	p.Workers = 1
	a, err := Fit(x, y, p)
	require.NoError(t, err)
	p.Workers = 8
	b, err := Fit(x, y, p)
	require.NoError(t, err)

	assert.Equal(t, a.Trees, b.Trees)
}

func TestMaxDepthLimitsTrees(t *testing.T) {
	x, y := separable(300)
	p := smallParams()
	p.MaxDepth = 2

	f, err := Fit(x, y, p)
	require.NoError(t, err)
	for i := range f.Trees {
		assert.LessOrEqual(t, f.Trees[i].Depth(), 2)
	}
	nodes, depth := f.Shape()
	assert.LessOrEqual(t, depth, 2)
	assert.Greater(t, depth, 0)
	assert.Greater(t, nodes, len(f.Trees))
}

func TestFitConstantFeaturesGivesSingleLeaf(t *testing.T) {
	x := [][]float32{{1, 1}, {1, 1}, {1, 1}}
	y := []uint8{0, 1, 1}
	p := smallParams()
	p.Bootstrap = false

	f, err := Fit(x, y, p)
	require.NoError(t, err)
	assert.Equal(t, 1, f.Trees[0].Nodes())
	nodes, depth := f.Shape()
	assert.Equal(t, len(f.Trees), nodes)
	assert.Equal(t, 0, depth)
	assert.Equal(t, uint8(1), f.Predict([]float32{1, 1}))
	assert.InDelta(t, 2.0/3, f.Proba([]float32{1, 1}), 1e-6)
}

func TestPredictTieGoesToZero(t *testing.T) {
	f := &Forest{Features: 1, Trees: []Tree{
		{Feature: []int{leaf}, Threshold: []float32{0}, Left: []int32{-1}, Right: []int32{-1}, Value: []float32{1}},
		{Feature: []int{leaf}, Threshold: []float32{0}, Left: []int32{-1}, Right: []int32{-1}, Value: []float32{0}},
	}}
	assert.Equal(t, uint8(0), f.Predict([]float32{3}))
}

func TestFitValidatesInput(t *testing.T) {
	_, err := Fit(nil, nil, smallParams())
	assert.ErrorIs(t, err, ErrEmptyTrainingSet)

	_, err = Fit([][]float32{{1}}, []uint8{0, 1}, smallParams())
	assert.ErrorIs(t, err, ErrLabelMismatch)

	_, err = Fit([][]float32{{1}, {1, 2}}, []uint8{0, 1}, smallParams())
	assert.ErrorIs(t, err, ErrFeatureMismatch)

	_, err = Fit([][]float32{{1}}, []uint8{2}, smallParams())
	assert.ErrorIs(t, err, ErrInvalidLabel)
}

func TestPredictBatchKeepsOrder(t *testing.T) {
	x, y := separable(300)
	f, err := Fit(x, y, smallParams())
	require.NoError(t, err)

	got, err := f.PredictBatch(x, 4)
	require.NoError(t, err)
	require.Len(t, got, len(x))
	for i := range x {
		assert.Equal(t, f.Predict(x[i]), got[i])
	}

	_, err = f.PredictBatch([][]float32{{1}}, 2)
	assert.ErrorIs(t, err, ErrFeatureMismatch)
}
