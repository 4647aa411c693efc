package dataset

import (
	"errors"
	"math/rand/v2"

	"github.com/wetland-guardian/cienaga-classifier/internal/raster"
	"github.com/wetland-guardian/cienaga-classifier/internal/seed"
)

var (
	ErrNoPositivePixels = errors.New("seed mask has no wetland pixels")
	ErrNoNegativePixels = errors.New("seed mask has no non-wetland pixels")
)

const (
	LabelOther   uint8 = 0
	LabelWetland uint8 = 1
)

// Sample is the balanced contribution of one image: positives first, then negatives.
type Sample struct {
	Rows      []FeatureRow
	Labels    []uint8
	Positives int
	Negatives int
	// NegativeIndexes are the pixel indexes drawn as negatives.
	NegativeIndexes []int
}

// Balance labels every seed pixel as wetland and draws as many non-seed pixels, uniformly and
// without replacement, as there are seed pixels (or all of them if fewer exist).
func Balance(bands raster.BandSet, mask seed.Mask, rng *rand.Rand) (Sample, error) {
	stack, err := NewFeatureStack(bands, mask.Width, mask.Height)
	if err != nil {
		return Sample{}, err
	}
	return BalanceStack(stack, mask, rng)
}

func BalanceStack(stack FeatureStack, mask seed.Mask, rng *rand.Rand) (Sample, error) {
	if len(mask.Data) != stack.Pixels() {
		return Sample{}, ErrShapeMismatch
	}

	var positives, candidates []int
	for i, wet := range mask.Data {
		if wet {
			positives = append(positives, i)
		} else {
			candidates = append(candidates, i)
		}
	}
	if len(positives) == 0 {
		return Sample{}, ErrNoPositivePixels
	}
	if len(candidates) == 0 {
		return Sample{}, ErrNoNegativePixels
	}

	k := min(len(positives), len(candidates))
	negatives := drawWithoutReplacement(candidates, k, rng)

	s := Sample{
		Rows:            make([]FeatureRow, 0, len(positives)+k),
		Labels:          make([]uint8, 0, len(positives)+k),
		Positives:       len(positives),
		Negatives:       k,
		NegativeIndexes: negatives,
	}
	for _, i := range positives {
		s.Rows = append(s.Rows, stack.Row(i))
		s.Labels = append(s.Labels, LabelWetland)
	}
	for _, i := range negatives {
		s.Rows = append(s.Rows, stack.Row(i))
		s.Labels = append(s.Labels, LabelOther)
	}
	return s, nil
}

// drawWithoutReplacement runs a partial Fisher-Yates shuffle on pool and returns its first k
// entries. pool is reordered in place.
func drawWithoutReplacement(pool []int, k int, rng *rand.Rand) []int {
	for i := 0; i < k; i++ {
		j := i + rng.IntN(len(pool)-i)
		pool[i], pool[j] = pool[j], pool[i]
	}
	return pool[:k:k]
}
