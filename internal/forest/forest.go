// Package forest implements a random forest of CART trees for binary pixel classification.
package forest

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"runtime"

	"github.com/schollz/progressbar/v3"
	"golang.org/x/sync/errgroup"
)

var (
	ErrEmptyTrainingSet = errors.New("empty training set")
	ErrLabelMismatch    = errors.New("rows and labels differ in length")
	ErrInvalidLabel     = errors.New("labels must be 0 or 1")
	ErrFeatureMismatch  = errors.New("row has an unexpected number of features")
)

// Params are the ensemble hyperparameters.
type Params struct {
	Trees int `json:"trees"`
	// MaxDepth of 0 grows every tree until its leaves are pure.
	MaxDepth        int `json:"max_depth"`
	MinSamplesSplit int `json:"min_samples_split"`
	// MaxFeatures of 0 uses floor(sqrt(features)).
	MaxFeatures int    `json:"max_features"`
	Bootstrap   bool   `json:"bootstrap"`
	Seed        uint64 `json:"seed"`
	// Workers of 0 uses every available CPU.
	Workers      int  `json:"-"`
	ShowProgress bool `json:"-"`
}

func DefaultParams() Params {
	return Params{
		Trees:           200,
		MaxDepth:        0,
		MinSamplesSplit: 2,
		Bootstrap:       true,
		Seed:            42,
	}
}

func (p Params) maxFeatures(n int) int {
	if p.MaxFeatures > 0 {
		return min(p.MaxFeatures, n)
	}
	return max(1, int(math.Sqrt(float64(n))))
}

func (p Params) workers() int {
	if p.Workers > 0 {
		return p.Workers
	}
	return runtime.GOMAXPROCS(0)
}

// Forest is a fitted ensemble. It is never mutated after Fit returns.
type Forest struct {
	Params   Params `json:"params"`
	Features int    `json:"features"`
	Samples  int    `json:"samples"`
	Trees    []Tree `json:"trees"`
}

// Fit grows params.Trees trees concurrently. Every tree draws from its own generator seeded
// from params.Seed and its index, so the result does not depend on scheduling.
func Fit(x [][]float32, y []uint8, params Params) (*Forest, error) {
	if len(x) == 0 {
		return nil, ErrEmptyTrainingSet
	}
	if len(x) != len(y) {
		return nil, fmt.Errorf("%w: %d rows, %d labels", ErrLabelMismatch, len(x), len(y))
	}
	nFeatures := len(x[0])
	for i, row := range x {
		if len(row) != nFeatures {
			return nil, fmt.Errorf("%w: row %d has %d, want %d", ErrFeatureMismatch, i, len(row), nFeatures)
		}
		if y[i] > 1 {
			return nil, fmt.Errorf("%w: row %d has label %d", ErrInvalidLabel, i, y[i])
		}
	}
	if params.Trees <= 0 {
		params.Trees = DefaultParams().Trees
	}
	if params.MinSamplesSplit < 2 {
		params.MinSamplesSplit = 2
	}

	bar := progressbar.DefaultSilent(int64(params.Trees), "Growing trees")
	if params.ShowProgress {
		bar = progressbar.Default(int64(params.Trees), "Growing trees")
	}

	f := &Forest{Params: params, Features: nFeatures, Samples: len(x), Trees: make([]Tree, params.Trees)}
	g := new(errgroup.Group)
	g.SetLimit(params.workers())
	for t := range f.Trees {
		g.Go(func() error {
			f.Trees[t] = fitTree(x, y, params, treeRand(params.Seed, t))
			bar.Add(1)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	bar.Finish()
	return f, nil
}

func treeRand(seed uint64, tree int) *rand.Rand {
	return rand.New(rand.NewPCG(seed, uint64(tree)+1))
}

func fitTree(x [][]float32, y []uint8, params Params, rng *rand.Rand) Tree {
	n := len(x)
	idx := make([]int, n)
	if params.Bootstrap {
		for i := range idx {
			idx[i] = rng.IntN(n)
		}
	} else {
		for i := range idx {
			idx[i] = i
		}
	}
	tree := &Tree{}
	b := &builder{x: x, y: y, params: params, rng: rng, tree: tree}
	b.grow(idx, 0)
	return *tree
}

// Predict returns the majority vote of the trees for one row. Ties go to class 0.
func (f *Forest) Predict(row []float32) uint8 {
	votes := 0
	for i := range f.Trees {
		votes += int(f.Trees[i].Predict(row))
	}
	if 2*votes > len(f.Trees) {
		return 1
	}
	return 0
}

// Proba is the mean wetland probability of the leaves reached by row.
func (f *Forest) Proba(row []float32) float64 {
	var sum float64
	for i := range f.Trees {
		sum += float64(f.Trees[i].Proba(row))
	}
	return sum / float64(len(f.Trees))
}

// Shape returns the total node count and the deepest tree depth of the ensemble.
func (f *Forest) Shape() (nodes, maxDepth int) {
	for i := range f.Trees {
		nodes += f.Trees[i].Nodes()
		maxDepth = max(maxDepth, f.Trees[i].Depth())
	}
	return nodes, maxDepth
}

// PredictBatch classifies every row, splitting the work in contiguous chunks across workers.
// The output keeps the row order.
func (f *Forest) PredictBatch(rows [][]float32, workers int) ([]uint8, error) {
	out := make([]uint8, len(rows))
	for i, row := range rows {
		if len(row) != f.Features {
			return nil, fmt.Errorf("%w: row %d has %d, want %d", ErrFeatureMismatch, i, len(row), f.Features)
		}
	}
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	chunk := (len(rows) + workers - 1) / workers
	if chunk == 0 {
		return out, nil
	}
	g := new(errgroup.Group)
	for start := 0; start < len(rows); start += chunk {
		end := min(start+chunk, len(rows))
		g.Go(func() error {
			for i := start; i < end; i++ {
				out[i] = f.Predict(rows[i])
			}
			return nil
		})
	}
	return out, g.Wait()
}
