package learning

import (
	"math"
	"math/rand"
)

// Forest is a bagged ensemble of weighted regression trees over 0/1
// labels; each tree votes with its leaf probability.
type Forest struct {
	Trees           []*treeNode `json:"trees"`
	NumTrees        int         `json:"num_trees"`
	MaxDepth        int         `json:"max_depth"`
	MinSamplesSplit int         `json:"min_samples_split"`
	MinSamplesLeaf  int         `json:"min_samples_leaf"`
	Seed            int64       `json:"seed"`
}

func NewForest(numTrees, maxDepth, minSplit, minLeaf int, seed int64) *Forest {
	return &Forest{
		NumTrees:        numTrees,
		MaxDepth:        maxDepth,
		MinSamplesSplit: minSplit,
		MinSamplesLeaf:  minLeaf,
		Seed:            seed,
	}
}

// Fit trains the forest on bootstrap resamples, respecting per-row
// sample weights during split selection and leaf estimation.
func (f *Forest) Fit(X [][]float64, y []int, w []float64) error {
	if err := checkTrainingInput(X, y, w); err != nil {
		return err
	}

	targets := make([]float64, len(y))
	for i, label := range y {
		targets[i] = float64(label)
	}

	rng := rand.New(rand.NewSource(f.Seed))
	nFeatures := len(X[0])
	maxFeatures := int(math.Sqrt(float64(nFeatures)))
	if maxFeatures < 1 {
		maxFeatures = 1
	}
	params := treeParams{
		MaxDepth:        f.MaxDepth,
		MinSamplesSplit: f.MinSamplesSplit,
		MinSamplesLeaf:  f.MinSamplesLeaf,
		MaxFeatures:     maxFeatures,
	}

	f.Trees = make([]*treeNode, 0, f.NumTrees)
	for t := 0; t < f.NumTrees; t++ {
		idx := make([]int, len(X))
		for i := range idx {
			idx[i] = rng.Intn(len(X))
		}
		f.Trees = append(f.Trees, buildTree(X, targets, w, idx, 0, params, rng))
	}
	return nil
}

// PredictProba returns the mean leaf probability across trees.
func (f *Forest) PredictProba(x []float64) float64 {
	if len(f.Trees) == 0 {
		return 0
	}
	var sum float64
	for _, t := range f.Trees {
		sum += t.predict(x)
	}
	return clampProb(sum / float64(len(f.Trees)))
}

func clampProb(p float64) float64 {
	if p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}
