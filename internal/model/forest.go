package model

import (
	"context"
	"fmt"
	"math/rand/v2"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// ForestParams controls the bagged ensemble.
type ForestParams struct {
	Trees   int
	Seed    uint64
	Workers int // concurrent tree fits, 0 = GOMAXPROCS
	Tree    TreeParams
}

// Forest averages bootstrapped regression trees.
type Forest struct {
	params ForestParams
	trees  []*Tree
}

// NewForest creates an unfitted forest.
func NewForest(params ForestParams) *Forest {
	if params.Trees < 1 {
		params.Trees = 1
	}
	return &Forest{params: params}
}

// Fit trains every tree on its own bootstrap sample. Each tree draws from a
// generator derived from (Seed, tree index), so the fitted forest does not
// depend on scheduling.
func (f *Forest) Fit(ctx context.Context, X [][]float64, y []float64) error {
	n := len(X)
	if n == 0 {
		return ErrEmptyTrainingSet
	}
	if len(y) != n {
		return fmt.Errorf("fit forest: %d rows, %d targets", n, len(y))
	}

	workers := f.params.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	trees := make([]*Tree, f.params.Trees)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i := range trees {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			rng := rand.New(rand.NewPCG(f.params.Seed, uint64(i)+1))
			idx := make([]int, n)
			for k := range idx {
				idx[k] = rng.IntN(n)
			}
			trees[i] = FitTree(X, y, idx, f.params.Tree, rng)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return fmt.Errorf("fit forest: %w", err)
	}

	f.trees = trees
	return nil
}

// Size returns the number of fitted trees.
func (f *Forest) Size() int {
	return len(f.trees)
}

// Predict returns the mean tree prediction.
func (f *Forest) Predict(x []float64) (float64, error) {
	mean, _, err := f.PredictDetail(x)
	return mean, err
}

// PredictDetail returns the mean prediction and the share of trees whose
// prediction has the same sign as the mean.
func (f *Forest) PredictDetail(x []float64) (float64, float64, error) {
	if len(f.trees) == 0 {
		return 0, 0, ErrNotFitted
	}

	preds := make([]float64, len(f.trees))
	sum := 0.0
	for i, t := range f.trees {
		preds[i] = t.Predict(x)
		sum += preds[i]
	}
	mean := sum / float64(len(preds))

	want := signOf(mean)
	agree := 0
	for _, p := range preds {
		if signOf(p) == want {
			agree++
		}
	}
	return mean, float64(agree) / float64(len(preds)), nil
}

func signOf(v float64) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}
