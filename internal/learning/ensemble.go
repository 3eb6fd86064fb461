package learning

import (
	"errors"
	"math/rand"

	"gonum.org/v1/gonum/stat"
)

// Ensemble averages the probabilities of a bagged forest and a boosted
// model, soft-vote style. A sample is predicted viable when the mean
// probability crosses 0.5.
type Ensemble struct {
	Forest *Forest `json:"forest"`
	Boost  *Boost  `json:"boost"`
}

func NewEnsemble(forest *Forest, boost *Boost) *Ensemble {
	return &Ensemble{Forest: forest, Boost: boost}
}

func (e *Ensemble) Fit(X [][]float64, y []int, w []float64) error {
	if err := e.Forest.Fit(X, y, w); err != nil {
		return err
	}
	return e.Boost.Fit(X, y, w)
}

func (e *Ensemble) PredictProba(x []float64) float64 {
	return (e.Forest.PredictProba(x) + e.Boost.PredictProba(x)) / 2
}

func (e *Ensemble) Predict(x []float64) int {
	if e.PredictProba(x) >= 0.5 {
		return 1
	}
	return 0
}

// CrossValidate estimates held-out accuracy of an ensemble with the
// given constructor via k-fold validation. The fold count is capped so
// every fold keeps at least a handful of training rows.
func CrossValidate(newModel func() *Ensemble, X [][]float64, y []int, w []float64, maxFolds int, seed int64) (mean, std float64, err error) {
	if err := checkTrainingInput(X, y, w); err != nil {
		return 0, 0, err
	}

	k := len(X) / 4
	if k > maxFolds {
		k = maxFolds
	}
	if k < 2 {
		k = 2
	}
	if k > len(X) {
		return 0, 0, errors.New("too few samples for cross-validation")
	}

	perm := rand.New(rand.NewSource(seed)).Perm(len(X))

	accuracies := make([]float64, 0, k)
	for fold := 0; fold < k; fold++ {
		var trainX, testX [][]float64
		var trainY, testY []int
		var trainW []float64
		for i, p := range perm {
			if i%k == fold {
				testX = append(testX, X[p])
				testY = append(testY, y[p])
			} else {
				trainX = append(trainX, X[p])
				trainY = append(trainY, y[p])
				trainW = append(trainW, w[p])
			}
		}
		if len(testX) == 0 || len(trainX) == 0 {
			continue
		}

		m := newModel()
		if err := m.Fit(trainX, trainY, trainW); err != nil {
			return 0, 0, err
		}
		correct := 0
		for i, x := range testX {
			if m.Predict(x) == testY[i] {
				correct++
			}
		}
		accuracies = append(accuracies, float64(correct)/float64(len(testX)))
	}
	if len(accuracies) == 0 {
		return 0, 0, errors.New("cross-validation produced no folds")
	}

	mean = stat.Mean(accuracies, nil)
	if len(accuracies) > 1 {
		std = stat.StdDev(accuracies, nil)
	}
	return mean, std, nil
}

func checkTrainingInput(X [][]float64, y []int, w []float64) error {
	if len(X) == 0 {
		return errors.New("empty training set")
	}
	if len(X) != len(y) || len(X) != len(w) {
		return errors.New("training matrix, labels and weights must align")
	}
	width := len(X[0])
	if width == 0 {
		return errors.New("training rows have no features")
	}
	for _, row := range X {
		if len(row) != width {
			return errors.New("ragged training matrix")
		}
	}
	return nil
}
