package learning

import (
	"math"
	"math/rand"
)

// Boost is a gradient-boosted tree model for binary targets: shallow
// regression trees fit the logistic-loss residuals of the running score.
type Boost struct {
	Trees           []*treeNode `json:"trees"`
	InitScore       float64     `json:"init_score"`
	LearningRate    float64     `json:"learning_rate"`
	NumTrees        int         `json:"num_trees"`
	MaxDepth        int         `json:"max_depth"`
	MinSamplesSplit int         `json:"min_samples_split"`
	MinSamplesLeaf  int         `json:"min_samples_leaf"`
	Seed            int64       `json:"seed"`
}

func NewBoost(numTrees, maxDepth int, learningRate float64, seed int64) *Boost {
	return &Boost{
		NumTrees:        numTrees,
		MaxDepth:        maxDepth,
		MinSamplesSplit: 2,
		MinSamplesLeaf:  1,
		LearningRate:    learningRate,
		Seed:            seed,
	}
}

func (b *Boost) Fit(X [][]float64, y []int, w []float64) error {
	if err := checkTrainingInput(X, y, w); err != nil {
		return err
	}

	// Initial score is the weighted log-odds of the positive class.
	var posW, totalW float64
	for i, label := range y {
		totalW += w[i]
		if label == 1 {
			posW += w[i]
		}
	}
	p := posW / totalW
	const eps = 1e-6
	p = math.Min(math.Max(p, eps), 1-eps)
	b.InitScore = math.Log(p / (1 - p))

	scores := make([]float64, len(y))
	for i := range scores {
		scores[i] = b.InitScore
	}

	rng := rand.New(rand.NewSource(b.Seed))
	params := treeParams{
		MaxDepth:        b.MaxDepth,
		MinSamplesSplit: b.MinSamplesSplit,
		MinSamplesLeaf:  b.MinSamplesLeaf,
	}

	idx := make([]int, len(X))
	for i := range idx {
		idx[i] = i
	}

	residuals := make([]float64, len(y))
	b.Trees = make([]*treeNode, 0, b.NumTrees)
	for t := 0; t < b.NumTrees; t++ {
		for i, label := range y {
			residuals[i] = float64(label) - sigmoid(scores[i])
		}
		tree := buildTree(X, residuals, w, idx, 0, params, rng)
		b.Trees = append(b.Trees, tree)
		for i := range scores {
			scores[i] += b.LearningRate * tree.predict(X[i])
		}
	}
	return nil
}

func (b *Boost) PredictProba(x []float64) float64 {
	score := b.InitScore
	for _, t := range b.Trees {
		score += b.LearningRate * t.predict(x)
	}
	return sigmoid(score)
}

func sigmoid(z float64) float64 {
	return 1 / (1 + math.Exp(-z))
}
