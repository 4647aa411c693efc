package dataset

import (
	"math"
	"math/rand/v2"
)

// StratifiedSplit shuffles each class separately and moves testFraction of it into the test
// corpus, so both parts keep the class proportions of c.
func StratifiedSplit(c *Corpus, testFraction float64, seed uint64) (train, test *Corpus) {
	rng := rand.New(rand.NewPCG(seed, seed))
	byClass := map[uint8][]int{}
	for i, l := range c.Labels {
		byClass[l] = append(byClass[l], i)
	}

	train, test = &Corpus{}, &Corpus{}
	for _, label := range []uint8{LabelOther, LabelWetland} {
		idx := byClass[label]
		rng.Shuffle(len(idx), func(i, j int) { idx[i], idx[j] = idx[j], idx[i] })
		nTest := int(math.Round(testFraction * float64(len(idx))))
		for n, i := range idx {
			dst := train
			if n < nTest {
				dst = test
			}
			dst.Rows = append(dst.Rows, c.Rows[i])
			dst.Labels = append(dst.Labels, c.Labels[i])
		}
	}
	return train, test
}
