package model

import (
	"math/rand/v2"
	"sort"
)

// node is a CART node. Leaves carry value (regression) or class.
type node struct {
	feature   int
	threshold float64
	left      *node
	right     *node
	leaf      bool
	value     float64
	class     int
}

func (n *node) find(x []float64) *node {
	for !n.leaf {
		if x[n.feature] <= n.threshold {
			n = n.left
		} else {
			n = n.right
		}
	}
	return n
}

// treeBuilder grows one tree over a bootstrap sample.
// For classification y holds class indices and nClasses > 0.
type treeBuilder struct {
	x        [][]float64
	y        []float64
	nClasses int
	p        Params
	rng      *rand.Rand
}

func (b *treeBuilder) build(idx []int, depth int) *node {
	if depth >= b.p.MaxDepth || len(idx) < 2*b.p.MinLeaf || b.pure(idx) {
		return b.leaf(idx)
	}

	feat, thr, ok := b.bestSplit(idx)
	if !ok {
		return b.leaf(idx)
	}

	var left, right []int
	for _, i := range idx {
		if b.x[i][feat] <= thr {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	return &node{
		feature:   feat,
		threshold: thr,
		left:      b.build(left, depth+1),
		right:     b.build(right, depth+1),
	}
}

func (b *treeBuilder) pure(idx []int) bool {
	for _, i := range idx[1:] {
		if b.y[i] != b.y[idx[0]] {
			return false
		}
	}
	return true
}

func (b *treeBuilder) leaf(idx []int) *node {
	n := &node{leaf: true}
	if b.nClasses > 0 {
		counts := make([]int, b.nClasses)
		for _, i := range idx {
			counts[int(b.y[i])]++
		}
		n.class = argmax(counts)
		return n
	}
	var sum float64
	for _, i := range idx {
		sum += b.y[i]
	}
	n.value = sum / float64(len(idx))
	return n
}

// bestSplit scans a random subset of features for the threshold with the
// lowest weighted impurity.
func (b *treeBuilder) bestSplit(idx []int) (feature int, threshold float64, ok bool) {
	nf := len(b.x[0])
	features := b.rng.Perm(nf)[:b.p.MaxFeatures]

	best := b.impurity(idx)
	sorted := make([]int, len(idx))
	for _, f := range features {
		copy(sorted, idx)
		sort.SliceStable(sorted, func(a, c int) bool { return b.x[sorted[a]][f] < b.x[sorted[c]][f] })

		acc := b.newAccumulator(sorted)
		for k := 0; k < len(sorted)-1; k++ {
			acc.move(sorted[k])
			nl := k + 1
			if nl < b.p.MinLeaf || len(sorted)-nl < b.p.MinLeaf {
				continue
			}
			lo, hi := b.x[sorted[k]][f], b.x[sorted[k+1]][f]
			if lo == hi {
				continue
			}
			if imp := acc.impurity(); imp < best-1e-12 {
				best = imp
				feature, threshold, ok = f, (lo+hi)/2, true
			}
		}
	}
	return feature, threshold, ok
}

// impurity is n-weighted: SSE for regression, n*gini for classification.
func (b *treeBuilder) impurity(idx []int) float64 {
	return b.newAccumulator(idx).impurity()
}

// accumulator tracks left/right statistics while rows move left.
// It starts with every row on the right.
type accumulator struct {
	b                *treeBuilder
	nl, nr           float64
	suml, sumr       float64
	sql, sqr         float64
	countsl, countsr []float64
}

func (b *treeBuilder) newAccumulator(idx []int) *accumulator {
	a := &accumulator{b: b, nr: float64(len(idx))}
	if b.nClasses > 0 {
		a.countsl = make([]float64, b.nClasses)
		a.countsr = make([]float64, b.nClasses)
	}
	for _, i := range idx {
		y := b.y[i]
		if b.nClasses > 0 {
			a.countsr[int(y)]++
		} else {
			a.sumr += y
			a.sqr += y * y
		}
	}
	return a
}

func (a *accumulator) move(i int) {
	y := a.b.y[i]
	a.nl++
	a.nr--
	if a.b.nClasses > 0 {
		a.countsl[int(y)]++
		a.countsr[int(y)]--
		return
	}
	a.suml += y
	a.sumr -= y
	a.sql += y * y
	a.sqr -= y * y
}

func (a *accumulator) impurity() float64 {
	if a.b.nClasses > 0 {
		return weightedGini(a.countsl, a.nl) + weightedGini(a.countsr, a.nr)
	}
	return sse(a.suml, a.sql, a.nl) + sse(a.sumr, a.sqr, a.nr)
}

func sse(sum, sq, n float64) float64 {
	if n == 0 {
		return 0
	}
	v := sq - sum*sum/n
	if v < 0 {
		return 0
	}
	return v
}

func weightedGini(counts []float64, n float64) float64 {
	if n == 0 {
		return 0
	}
	g := 1.0
	for _, c := range counts {
		p := c / n
		g -= p * p
	}
	return g * n
}

// argmax returns the first index of the largest count.
func argmax[T int | float64](counts []T) int {
	best := 0
	for i, c := range counts {
		if c > counts[best] {
			best = i
		}
	}
	return best
}
