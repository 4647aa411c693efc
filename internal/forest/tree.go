package forest

import (
	"math/rand/v2"
	"sort"
)

const leaf = -1

// Tree is a binary CART decision tree stored as parallel node arrays. Node 0 is the root.
// Internal nodes send a row left when row[Feature] <= Threshold.
type Tree struct {
	Feature   []int     `json:"feature"`
	Threshold []float32 `json:"threshold"`
	Left      []int32   `json:"left"`
	Right     []int32   `json:"right"`
	// Value is the fraction of wetland samples that reached the node.
	Value []float32 `json:"value"`
}

func (t *Tree) Nodes() int {
	return len(t.Feature)
}

func (t *Tree) leafFor(row []float32) int {
	n := 0
	for t.Feature[n] != leaf {
		if row[t.Feature[n]] <= t.Threshold[n] {
			n = int(t.Left[n])
		} else {
			n = int(t.Right[n])
		}
	}
	return n
}

// Predict returns the majority class of the leaf reached by row. Ties go to class 0.
func (t *Tree) Predict(row []float32) uint8 {
	if t.Proba(row) > 0.5 {
		return 1
	}
	return 0
}

// Proba is the wetland fraction of the leaf reached by row.
func (t *Tree) Proba(row []float32) float32 {
	return t.Value[t.leafFor(row)]
}

func (t *Tree) Depth() int {
	var walk func(n, d int) int
	walk = func(n, d int) int {
		if t.Feature[n] == leaf {
			return d
		}
		return max(walk(int(t.Left[n]), d+1), walk(int(t.Right[n]), d+1))
	}
	return walk(0, 0)
}

func (t *Tree) addNode(value float32) int {
	t.Feature = append(t.Feature, leaf)
	t.Threshold = append(t.Threshold, 0)
	t.Left = append(t.Left, -1)
	t.Right = append(t.Right, -1)
	t.Value = append(t.Value, value)
	return len(t.Feature) - 1
}

type builder struct {
	x      [][]float32
	y      []uint8
	params Params
	rng    *rand.Rand
	tree   *Tree
}

type split struct {
	feature   int
	threshold float32
	// pos is the number of sorted samples sent left
	pos      int
	impurity float64
	order    []int
}

func gini(pos, n int) float64 {
	if n == 0 {
		return 0
	}
	p := float64(pos) / float64(n)
	return 2 * p * (1 - p)
}

func (b *builder) positives(idx []int) int {
	pos := 0
	for _, i := range idx {
		pos += int(b.y[i])
	}
	return pos
}

// grow builds the subtree for the samples in idx and returns its node index.
func (b *builder) grow(idx []int, depth int) int {
	pos := b.positives(idx)
	node := b.tree.addNode(float32(pos) / float32(len(idx)))

	if pos == 0 || pos == len(idx) || len(idx) < b.params.MinSamplesSplit {
		return node
	}
	if b.params.MaxDepth > 0 && depth >= b.params.MaxDepth {
		return node
	}

	best, ok := b.bestSplit(idx)
	if !ok {
		return node
	}

	left := b.grow(best.order[:best.pos], depth+1)
	right := b.grow(best.order[best.pos:], depth+1)

	b.tree.Feature[node] = best.feature
	b.tree.Threshold[node] = best.threshold
	b.tree.Left[node] = int32(left)
	b.tree.Right[node] = int32(right)
	return node
}

// bestSplit draws features in random order and evaluates at least MaxFeatures non-constant ones,
// keeping the split with the lowest weighted Gini impurity.
func (b *builder) bestSplit(idx []int) (split, bool) {
	nFeatures := len(b.x[idx[0]])
	features := b.rng.Perm(nFeatures)

	var best split
	found := false
	visited := 0
	for _, f := range features {
		if visited >= b.params.maxFeatures(nFeatures) && found {
			break
		}
		order := make([]int, len(idx))
		copy(order, idx)
		sort.Slice(order, func(i, j int) bool { return b.x[order[i]][f] < b.x[order[j]][f] })
		if b.x[order[0]][f] == b.x[order[len(order)-1]][f] {
			continue
		}
		visited++

		total := len(order)
		totalPos := b.positives(order)
		leftPos := 0
		for i := 1; i < total; i++ {
			leftPos += int(b.y[order[i-1]])
			lo, hi := b.x[order[i-1]][f], b.x[order[i]][f]
			if lo == hi {
				continue
			}
			impurity := gini(leftPos, i)*float64(i) + gini(totalPos-leftPos, total-i)*float64(total-i)
			if !found || impurity < best.impurity {
				threshold := lo + (hi-lo)/2
				if threshold >= hi {
					threshold = lo
				}
				best = split{feature: f, threshold: threshold, pos: i, impurity: impurity, order: order}
				found = true
			}
		}
	}
	return best, found
}
