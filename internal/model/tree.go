package model

import (
	"math/rand/v2"
	"slices"
)

// TreeParams controls regression tree growth.
type TreeParams struct {
	MaxDepth       int // 0 = unlimited
	MinSamplesLeaf int // minimum rows per leaf, at least 1
	MaxFeatures    int // features considered per split, 0 = all
}

type node struct {
	feature   int // -1 for leaves
	threshold float64
	left      int
	right     int
	value     float64
}

// Tree is a CART regression tree split on squared-error reduction.
type Tree struct {
	nodes []node
}

// Predict routes x to a leaf and returns its mean.
func (t *Tree) Predict(x []float64) float64 {
	if len(t.nodes) == 0 {
		return 0
	}
	i := 0
	for {
		n := &t.nodes[i]
		if n.feature < 0 {
			return n.value
		}
		if x[n.feature] <= n.threshold {
			i = n.left
		} else {
			i = n.right
		}
	}
}

// Depth returns the number of edges on the longest root-to-leaf path.
func (t *Tree) Depth() int {
	if len(t.nodes) == 0 {
		return 0
	}
	var walk func(i int) int
	walk = func(i int) int {
		n := t.nodes[i]
		if n.feature < 0 {
			return 0
		}
		return 1 + max(walk(n.left), walk(n.right))
	}
	return walk(0)
}

// Leaves returns the leaf count.
func (t *Tree) Leaves() int {
	c := 0
	for _, n := range t.nodes {
		if n.feature < 0 {
			c++
		}
	}
	return c
}

type treeBuilder struct {
	X      [][]float64
	y      []float64
	params TreeParams
	rng    *rand.Rand
	tree   *Tree
	order  []int
}

// FitTree grows a tree on the rows selected by idx (repeats allowed).
// rng is only used when MaxFeatures restricts the candidate features.
func FitTree(X [][]float64, y []float64, idx []int, params TreeParams, rng *rand.Rand) *Tree {
	if params.MinSamplesLeaf < 1 {
		params.MinSamplesLeaf = 1
	}
	b := &treeBuilder{
		X:      X,
		y:      y,
		params: params,
		rng:    rng,
		tree:   &Tree{},
		order:  make([]int, len(idx)),
	}
	if len(idx) == 0 {
		b.tree.nodes = append(b.tree.nodes, node{feature: -1})
		return b.tree
	}
	samples := make([]int, len(idx))
	copy(samples, idx)
	b.build(samples, 0)
	return b.tree
}

func (b *treeBuilder) build(samples []int, depth int) int {
	id := len(b.tree.nodes)
	b.tree.nodes = append(b.tree.nodes, node{feature: -1, value: b.mean(samples)})

	if b.params.MaxDepth > 0 && depth >= b.params.MaxDepth {
		return id
	}
	if len(samples) < 2*b.params.MinSamplesLeaf || b.pure(samples) {
		return id
	}

	feature, threshold, ok := b.bestSplit(samples)
	if !ok {
		return id
	}

	// partition in place: left holds x <= threshold
	l := 0
	for i, s := range samples {
		if b.X[s][feature] <= threshold {
			samples[l], samples[i] = samples[i], samples[l]
			l++
		}
	}

	left := b.build(samples[:l], depth+1)
	right := b.build(samples[l:], depth+1)

	n := &b.tree.nodes[id]
	n.feature = feature
	n.threshold = threshold
	n.left = left
	n.right = right
	return id
}

func (b *treeBuilder) bestSplit(samples []int) (int, float64, bool) {
	n := len(samples)
	minLeaf := b.params.MinSamplesLeaf

	total := 0.0
	for _, s := range samples {
		total += b.y[s]
	}
	parentScore := total * total / float64(n)

	bestScore := parentScore
	bestFeature := -1
	bestThreshold := 0.0

	order := b.order[:n]
	for _, f := range b.candidateFeatures() {
		copy(order, samples)
		slices.SortStableFunc(order, func(a, c int) int {
			va, vc := b.X[a][f], b.X[c][f]
			switch {
			case va < vc:
				return -1
			case va > vc:
				return 1
			default:
				return 0
			}
		})

		leftSum := 0.0
		for k := 0; k < n-1; k++ {
			leftSum += b.y[order[k]]
			nl := k + 1
			nr := n - nl
			if nl < minLeaf {
				continue
			}
			if nr < minLeaf {
				break
			}
			lo, hi := b.X[order[k]][f], b.X[order[k+1]][f]
			if lo == hi {
				continue
			}
			rightSum := total - leftSum
			score := leftSum*leftSum/float64(nl) + rightSum*rightSum/float64(nr)
			if score > bestScore+1e-12*max(1, bestScore) {
				bestScore = score
				bestFeature = f
				bestThreshold = lo + (hi-lo)/2
				if bestThreshold >= hi {
					bestThreshold = lo
				}
			}
		}
	}

	return bestFeature, bestThreshold, bestFeature >= 0
}

func (b *treeBuilder) candidateFeatures() []int {
	width := len(b.X[0])
	m := b.params.MaxFeatures
	if m <= 0 || m >= width || b.rng == nil {
		all := make([]int, width)
		for i := range all {
			all[i] = i
		}
		return all
	}
	perm := b.rng.Perm(width)[:m]
	slices.Sort(perm)
	return perm
}

func (b *treeBuilder) mean(samples []int) float64 {
	if len(samples) == 0 {
		return 0
	}
	sum := 0.0
	for _, s := range samples {
		sum += b.y[s]
	}
	return sum / float64(len(samples))
}

func (b *treeBuilder) pure(samples []int) bool {
	first := b.y[samples[0]]
	for _, s := range samples[1:] {
		if b.y[s] != first {
			return false
		}
	}
	return true
}
