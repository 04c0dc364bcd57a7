package model

import (
	"fmt"
	"math/rand/v2"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"
)

// Forest is a bootstrap ensemble of CART trees. Regression forests average
// leaf values; classification forests take a majority vote.
type Forest struct {
	kind     string
	features []string
	classes  []string
	trees    []*node
}

// FitForestRegressor trains a regression forest on d.Y.
func FitForestRegressor(d Dataset, p Params) (*Forest, error) {
	if err := checkTraining(d, len(d.Y)); err != nil {
		return nil, err
	}
	return fitForest(KindForestRegressor, d, append([]float64(nil), d.Y...), nil, p)
}

// FitForestClassifier trains a classification forest on d.Labels.
// Classes are ordered alphabetically; vote ties go to the first class.
func FitForestClassifier(d Dataset, p Params) (*Forest, error) {
	if err := checkTraining(d, len(d.Labels)); err != nil {
		return nil, err
	}
	seen := map[string]bool{}
	var classes []string
	for _, l := range d.Labels {
		if !seen[l] {
			seen[l] = true
			classes = append(classes, l)
		}
	}
	sort.Strings(classes)
	index := make(map[string]int, len(classes))
	for i, c := range classes {
		index[c] = i
	}
	y := make([]float64, len(d.Labels))
	for i, l := range d.Labels {
		y[i] = float64(index[l])
	}
	return fitForest(KindForestClassifier, d, y, classes, p)
}

func fitForest(kind string, d Dataset, y []float64, classes []string, p Params) (*Forest, error) {
	p = p.withDefaults(len(d.Features))
	f := &Forest{
		kind:     kind,
		features: append([]string(nil), d.Features...),
		classes:  classes,
		trees:    make([]*node, p.Trees),
	}

	// Each tree owns its stream, so the result does not depend on scheduling.
	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for t := 0; t < p.Trees; t++ {
		g.Go(func() error {
			rng := rand.New(rand.NewPCG(p.Seed, uint64(t)+1))
			n := d.Len()
			idx := make([]int, n)
			for i := range idx {
				idx[i] = rng.IntN(n)
			}
			b := &treeBuilder{x: d.X, y: y, nClasses: len(classes), p: p, rng: rng}
			f.trees[t] = b.build(idx, 0)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("train forest: %w", err)
	}
	return f, nil
}

func (f *Forest) Kind() string       { return f.kind }
func (f *Forest) Features() []string { return f.features }

// Classes returns the class labels of a classifier in vote order.
func (f *Forest) Classes() []string { return f.classes }

func (f *Forest) Predict(x []float64) (Prediction, error) {
	if err := checkInput(f.features, x); err != nil {
		return Prediction{}, err
	}
	if len(f.classes) > 0 {
		votes := make([]int, len(f.classes))
		for _, t := range f.trees {
			votes[t.find(x).class]++
		}
		return Prediction{Kind: f.kind, Label: f.classes[argmax(votes)]}, nil
	}
	var sum float64
	for _, t := range f.trees {
		sum += t.find(x).value
	}
	return Prediction{Kind: f.kind, Value: sum / float64(len(f.trees))}, nil
}
