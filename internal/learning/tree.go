package learning

import (
	"math/rand"
	"sort"
)

// treeParams bound the growth of a single regression tree.
type treeParams struct {
	MaxDepth        int
	MinSamplesSplit int
	MinSamplesLeaf  int
	// MaxFeatures limits the features considered per split; 0 means all.
	MaxFeatures int
}

// treeNode is one node of a weighted regression tree. Leaves carry the
// weighted mean of their targets, which doubles as a probability when
// the targets are 0/1 labels.
type treeNode struct {
	Feature   int       `json:"feature,omitempty"`
	Threshold float64   `json:"threshold,omitempty"`
	Left      *treeNode `json:"left,omitempty"`
	Right     *treeNode `json:"right,omitempty"`
	Leaf      bool      `json:"leaf,omitempty"`
	Value     float64   `json:"value"`
}

func (n *treeNode) predict(x []float64) float64 {
	if n.Leaf {
		return n.Value
	}
	if x[n.Feature] <= n.Threshold {
		return n.Left.predict(x)
	}
	return n.Right.predict(x)
}

// buildTree grows a tree on the rows named by idx, splitting on weighted
// squared-error reduction.
func buildTree(X [][]float64, y, w []float64, idx []int, depth int, p treeParams, rng *rand.Rand) *treeNode {
	if depth >= p.MaxDepth || len(idx) < p.MinSamplesSplit || pure(y, idx) {
		return &treeNode{Leaf: true, Value: weightedMean(y, w, idx)}
	}

	feature, threshold, ok := bestSplit(X, y, w, idx, p, rng)
	if !ok {
		return &treeNode{Leaf: true, Value: weightedMean(y, w, idx)}
	}

	var left, right []int
	for _, i := range idx {
		if X[i][feature] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	if len(left) < p.MinSamplesLeaf || len(right) < p.MinSamplesLeaf {
		return &treeNode{Leaf: true, Value: weightedMean(y, w, idx)}
	}

	return &treeNode{
		Feature:   feature,
		Threshold: threshold,
		Left:      buildTree(X, y, w, left, depth+1, p, rng),
		Right:     buildTree(X, y, w, right, depth+1, p, rng),
	}
}

// bestSplit scans candidate features and thresholds for the split with
// the lowest total weighted squared error.
func bestSplit(X [][]float64, y, w []float64, idx []int, p treeParams, rng *rand.Rand) (int, float64, bool) {
	nFeatures := len(X[idx[0]])
	candidates := featureCandidates(nFeatures, p.MaxFeatures, rng)

	bestErr := weightedSSE(y, w, idx)
	var bestFeature int
	var bestThreshold float64
	found := false

	for _, f := range candidates {
		thresholds := splitThresholds(X, idx, f)
		for _, t := range thresholds {
			var left, right []int
			for _, i := range idx {
				if X[i][f] <= t {
					left = append(left, i)
				} else {
					right = append(right, i)
				}
			}
			if len(left) < p.MinSamplesLeaf || len(right) < p.MinSamplesLeaf {
				continue
			}
			err := weightedSSE(y, w, left) + weightedSSE(y, w, right)
			if err < bestErr {
				bestErr = err
				bestFeature = f
				bestThreshold = t
				found = true
			}
		}
	}
	return bestFeature, bestThreshold, found
}

// featureCandidates picks the feature subset considered at one split.
func featureCandidates(n, max int, rng *rand.Rand) []int {
	all := make([]int, n)
	for i := range all {
		all[i] = i
	}
	if max <= 0 || max >= n || rng == nil {
		return all
	}
	rng.Shuffle(n, func(i, j int) { all[i], all[j] = all[j], all[i] })
	return all[:max]
}

// splitThresholds returns midpoints between consecutive distinct values.
func splitThresholds(X [][]float64, idx []int, feature int) []float64 {
	seen := make(map[float64]bool, len(idx))
	var values []float64
	for _, i := range idx {
		v := X[i][feature]
		if !seen[v] {
			seen[v] = true
			values = append(values, v)
		}
	}
	if len(values) < 2 {
		return nil
	}
	sort.Float64s(values)
	thresholds := make([]float64, 0, len(values)-1)
	for i := 1; i < len(values); i++ {
		thresholds = append(thresholds, (values[i-1]+values[i])/2)
	}
	return thresholds
}

func pure(y []float64, idx []int) bool {
	for _, i := range idx[1:] {
		if y[i] != y[idx[0]] {
			return false
		}
	}
	return true
}

func weightedMean(y, w []float64, idx []int) float64 {
	var sum, wsum float64
	for _, i := range idx {
		sum += y[i] * w[i]
		wsum += w[i]
	}
	if wsum == 0 {
		return 0
	}
	return sum / wsum
}

func weightedSSE(y, w []float64, idx []int) float64 {
	mean := weightedMean(y, w, idx)
	var sse float64
	for _, i := range idx {
		d := y[i] - mean
		sse += w[i] * d * d
	}
	return sse
}
