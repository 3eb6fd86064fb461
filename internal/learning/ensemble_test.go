package learning

import (
	"testing"
)

// syntheticDataset builds a cleanly separable drying dataset: strong
// sun and moderate wind dries kombu, gloom and gale does not.
func syntheticDataset(n int) (X [][]float64, y []int, w []float64) {
	for i := 0; i < n; i++ {
		if i%2 == 0 {
			X = append(X, []float64{4200 + float64(i)*10, 4.5 + float64(i%5)*0.2, 72 + float64(i%7), 5})
			y = append(y, 1)
		} else {
			X = append(X, []float64{1300 + float64(i)*10, 13 + float64(i%5)*0.3, 93 + float64(i%4), 65})
			y = append(y, 0)
		}
		w = append(w, 1.0)
	}
	return X, y, w
}

func TestForest_LearnsSeparableData(t *testing.T) {
	X, y, w := syntheticDataset(40)

	f := NewForest(50, 7, 3, 2, 42)
	if err := f.Fit(X, y, w); err != nil {
		t.Fatalf("Fit: %v", err)
	}

	if p := f.PredictProba([]float64{4500, 5, 74, 3}); p < 0.7 {
		t.Errorf("good day probability = %v, want >= 0.7", p)
	}
	if p := f.PredictProba([]float64{1200, 14, 95, 70}); p > 0.3 {
		t.Errorf("bad day probability = %v, want <= 0.3", p)
	}
}

func TestForest_Deterministic(t *testing.T) {
	X, y, w := syntheticDataset(30)
	x := []float64{3000, 8, 85, 30}

	a := NewForest(30, 7, 3, 2, 42)
	if err := a.Fit(X, y, w); err != nil {
		t.Fatal(err)
	}
	b := NewForest(30, 7, 3, 2, 42)
	if err := b.Fit(X, y, w); err != nil {
		t.Fatal(err)
	}
	if a.PredictProba(x) != b.PredictProba(x) {
		t.Error("same seed should give identical models")
	}
}

func TestBoost_LearnsSeparableData(t *testing.T) {
	X, y, w := syntheticDataset(40)

	b := NewBoost(50, 5, 0.1, 42)
	if err := b.Fit(X, y, w); err != nil {
		t.Fatalf("Fit: %v", err)
	}

	if p := b.PredictProba([]float64{4500, 5, 74, 3}); p < 0.7 {
		t.Errorf("good day probability = %v, want >= 0.7", p)
	}
	if p := b.PredictProba([]float64{1200, 14, 95, 70}); p > 0.3 {
		t.Errorf("bad day probability = %v, want <= 0.3", p)
	}
}

func TestEnsemble_SoftVote(t *testing.T) {
	X, y, w := syntheticDataset(40)

	e := NewEnsemble(NewForest(50, 7, 3, 2, 42), NewBoost(50, 5, 0.1, 42))
	if err := e.Fit(X, y, w); err != nil {
		t.Fatalf("Fit: %v", err)
	}

	good := []float64{4500, 5, 74, 3}
	want := (e.Forest.PredictProba(good) + e.Boost.PredictProba(good)) / 2
	if got := e.PredictProba(good); got != want {
		t.Errorf("PredictProba = %v, want mean of members %v", got, want)
	}
	if e.Predict(good) != 1 {
		t.Error("good day should predict 1")
	}
	if e.Predict([]float64{1200, 14, 95, 70}) != 0 {
		t.Error("bad day should predict 0")
	}
}

func TestFit_InputValidation(t *testing.T) {
	f := NewForest(10, 5, 2, 1, 42)

	if err := f.Fit(nil, nil, nil); err == nil {
		t.Error("empty training set should error")
	}
	if err := f.Fit([][]float64{{1, 2}}, []int{1, 0}, []float64{1}); err == nil {
		t.Error("misaligned labels should error")
	}
	if err := f.Fit([][]float64{{1, 2}, {1}}, []int{1, 0}, []float64{1, 1}); err == nil {
		t.Error("ragged matrix should error")
	}
}

func TestCrossValidate(t *testing.T) {
	X, y, w := syntheticDataset(40)

	newModel := func() *Ensemble {
		return NewEnsemble(NewForest(30, 7, 3, 2, 42), NewBoost(30, 5, 0.1, 42))
	}

	mean, std, err := CrossValidate(newModel, X, y, w, 5, 42)
	if err != nil {
		t.Fatalf("CrossValidate: %v", err)
	}
	if mean < 0.9 {
		t.Errorf("cv accuracy = %v, want >= 0.9 on separable data", mean)
	}
	if std < 0 || std > 0.5 {
		t.Errorf("cv std = %v, out of range", std)
	}
}

func TestCrossValidate_TooFewSamples(t *testing.T) {
	newModel := func() *Ensemble {
		return NewEnsemble(NewForest(5, 3, 2, 1, 42), NewBoost(5, 3, 0.1, 42))
	}
	X := [][]float64{{1, 2, 3, 4}}
	if _, _, err := CrossValidate(newModel, X, []int{1}, []float64{1}, 5, 42); err == nil {
		t.Error("single sample should error")
	}
}

func TestWeightedMean(t *testing.T) {
	y := []float64{0, 1, 1}
	w := []float64{1, 1, 2}
	idx := []int{0, 1, 2}
	if got := weightedMean(y, w, idx); got != 0.75 {
		t.Errorf("weightedMean = %v, want 0.75", got)
	}
}

func TestSplitThresholds(t *testing.T) {
	X := [][]float64{{3}, {1}, {2}, {2}}
	idx := []int{0, 1, 2, 3}
	got := splitThresholds(X, idx, 0)
	want := []float64{1.5, 2.5}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("splitThresholds = %v, want %v", got, want)
	}

	if got := splitThresholds([][]float64{{5}, {5}}, []int{0, 1}, 0); got != nil {
		t.Errorf("constant feature should give no thresholds, got %v", got)
	}
}
