package learning

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/rishirikelp/kelpdry/internal/config"
	"github.com/rishirikelp/kelpdry/internal/models"
	"github.com/rishirikelp/kelpdry/internal/quality"
	"github.com/rishirikelp/kelpdry/internal/store"
)

type fakeOutcomes struct {
	outcomes []models.FieldOutcome
}

func (f *fakeOutcomes) ReadOutcomes() ([]models.FieldOutcome, error) {
	return f.outcomes, nil
}

type fakeWeather struct {
	contexts map[string]*models.WeatherContext
	fail     map[string]bool
	calls    int
}

func (f *fakeWeather) FetchContext(_ context.Context, date time.Time) (*models.WeatherContext, error) {
	f.calls++
	key := date.Format("2006-01-02")
	if f.fail[key] {
		return nil, fmt.Errorf("archive unreachable for %s", key)
	}
	return f.contexts[key], nil
}

func day(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		t.Fatal(err)
	}
	return d
}

func setupRetrainer(t *testing.T, outcomes *fakeOutcomes, weather *fakeWeather) (*Retrainer, *store.Store, string) {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	st := store.New(db)
	if err := st.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	dir := t.TempDir()
	artifactPath := filepath.Join(dir, "model.json")
	qlog := quality.NewLog(filepath.Join(dir, "quality.jsonl"))

	r := NewRetrainer(st, outcomes, weather, qlog, config.Default(), artifactPath)
	return r, st, artifactPath
}

func goodDay() *models.WeatherContext {
	return &models.WeatherContext{RadiationSum: 4500, WindAvg: 5, HumidityMax: 75, PrecipitationMax: 5}
}

func badDay() *models.WeatherContext {
	return &models.WeatherContext{RadiationSum: 1300, WindAvg: 13, HumidityMax: 93, PrecipitationMax: 65}
}

func TestProcessNewRecords_AdmitsAndDedupes(t *testing.T) {
	outcomes := &fakeOutcomes{outcomes: []models.FieldOutcome{
		{Date: day(t, "2026-07-01"), SpotName: "kutsugata", Result: models.ResultComplete},
		{Date: day(t, "2026-07-02"), SpotName: "kutsugata", Result: models.ResultAborted},
	}}
	weather := &fakeWeather{contexts: map[string]*models.WeatherContext{
		"2026-07-01": goodDay(),
		"2026-07-02": badDay(),
	}}
	r, st, _ := setupRetrainer(t, outcomes, weather)

	admitted, err := r.ProcessNewRecords(context.Background())
	if err != nil {
		t.Fatalf("ProcessNewRecords: %v", err)
	}
	if !admitted {
		t.Error("admitted = false, want true")
	}

	count, err := st.CountTrainingSamples()
	if err != nil {
		t.Fatal(err)
	}
	if count != 2 {
		t.Fatalf("training samples = %d, want 2", count)
	}

	// Re-running the same batch admits nothing and fetches no weather.
	fetchesBefore := weather.calls
	admitted, err = r.ProcessNewRecords(context.Background())
	if err != nil {
		t.Fatalf("second ProcessNewRecords: %v", err)
	}
	if admitted {
		t.Error("second run admitted = true, want false")
	}
	if weather.calls != fetchesBefore {
		t.Error("second run should not refetch weather for known samples")
	}
}

func TestProcessNewRecords_SkipsUnreachableDay(t *testing.T) {
	outcomes := &fakeOutcomes{outcomes: []models.FieldOutcome{
		{Date: day(t, "2026-07-01"), SpotName: "kutsugata", Result: models.ResultComplete},
		{Date: day(t, "2026-07-02"), SpotName: "kutsugata", Result: models.ResultComplete},
	}}
	weather := &fakeWeather{
		contexts: map[string]*models.WeatherContext{"2026-07-02": goodDay()},
		fail:     map[string]bool{"2026-07-01": true},
	}
	r, st, _ := setupRetrainer(t, outcomes, weather)

	admitted, err := r.ProcessNewRecords(context.Background())
	if err != nil {
		t.Fatalf("ProcessNewRecords: %v", err)
	}
	if !admitted {
		t.Error("admitted = false, want true for the reachable day")
	}

	count, err := st.CountTrainingSamples()
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("training samples = %d, want 1 (unreachable day skipped)", count)
	}
}

func TestProcessNewRecords_ExcludesNoContextDay(t *testing.T) {
	// Archive answers but has no rows for the date: classified with nil
	// context, logged, excluded from training.
	outcomes := &fakeOutcomes{outcomes: []models.FieldOutcome{
		{Date: day(t, "2026-07-01"), SpotName: "kutsugata", Result: models.ResultComplete},
	}}
	weather := &fakeWeather{contexts: map[string]*models.WeatherContext{}}
	r, st, _ := setupRetrainer(t, outcomes, weather)

	admitted, err := r.ProcessNewRecords(context.Background())
	if err != nil {
		t.Fatalf("ProcessNewRecords: %v", err)
	}
	if admitted {
		t.Error("admitted = true, want false")
	}
	count, err := st.CountTrainingSamples()
	if err != nil {
		t.Fatal(err)
	}
	if count != 0 {
		t.Errorf("training samples = %d, want 0", count)
	}
}

func seedTrainingSamples(t *testing.T, st *store.Store, n int) {
	t.Helper()
	base := day(t, "2026-06-01")
	for i := 0; i < n; i++ {
		s := models.TrainingSample{
			Date:     base.AddDate(0, 0, i),
			SpotName: "kutsugata",
			Weight:   1.0,
		}
		switch i % 3 {
		case 0:
			s.Result = models.ResultComplete
			s.RadiationSum = 4200 + float64(i)*10
			s.WindAvg = 4.5
			s.HumidityMax = 74
			s.PrecipitationMax = 5
			s.QualityScore = 100
		case 1:
			s.Result = models.ResultAborted
			s.RadiationSum = 1300 + float64(i)*10
			s.WindAvg = 13
			s.HumidityMax = 93
			s.PrecipitationMax = 65
			s.QualityScore = 110
		case 2:
			s.Result = models.ResultPartial
			s.RadiationSum = 3000 + float64(i)*10
			s.WindAvg = 6
			s.HumidityMax = 84
			s.PrecipitationMax = 25
			s.QualityScore = 130
			s.Weight = 1.5
		}
		if err := st.AppendTrainingSample(s); err != nil {
			t.Fatalf("AppendTrainingSample: %v", err)
		}
	}
}

func TestRetrain_InsufficientData(t *testing.T) {
	r, st, artifactPath := setupRetrainer(t, &fakeOutcomes{}, &fakeWeather{})
	seedTrainingSamples(t, st, 12)

	_, err := r.Retrain()
	if !errors.Is(err, ErrInsufficientData) {
		t.Fatalf("err = %v, want ErrInsufficientData", err)
	}

	// No artifact must appear on a refused retrain.
	a, err := LoadArtifact(artifactPath)
	if err != nil {
		t.Fatalf("LoadArtifact: %v", err)
	}
	if a != nil {
		t.Errorf("artifact written despite insufficient data: %+v", a)
	}
}

func TestRetrain_KeepsPriorArtifactOnFailure(t *testing.T) {
	r, st, artifactPath := setupRetrainer(t, &fakeOutcomes{}, &fakeWeather{})

	prior := trainedArtifact(t)
	if err := SaveArtifact(artifactPath, prior); err != nil {
		t.Fatalf("SaveArtifact: %v", err)
	}

	seedTrainingSamples(t, st, 5)
	if _, err := r.Retrain(); !errors.Is(err, ErrInsufficientData) {
		t.Fatalf("err = %v, want ErrInsufficientData", err)
	}

	loaded, err := LoadArtifact(artifactPath)
	if err != nil {
		t.Fatalf("LoadArtifact: %v", err)
	}
	if loaded == nil || loaded.TrainingSize != prior.TrainingSize {
		t.Error("prior artifact should survive a failed retrain untouched")
	}
}

func TestRetrain_TrainsAndPersists(t *testing.T) {
	r, st, artifactPath := setupRetrainer(t, &fakeOutcomes{}, &fakeWeather{})
	seedTrainingSamples(t, st, 30)

	artifact, err := r.Retrain()
	if err != nil {
		t.Fatalf("Retrain: %v", err)
	}
	if artifact.TrainingSize < config.Default().Training.MinRows {
		t.Errorf("TrainingSize = %d, want >= %d", artifact.TrainingSize, config.Default().Training.MinRows)
	}
	if artifact.CVAccuracy <= 0 || artifact.CVAccuracy > 1 {
		t.Errorf("CVAccuracy = %v, out of range", artifact.CVAccuracy)
	}

	loaded, err := LoadArtifact(artifactPath)
	if err != nil {
		t.Fatalf("LoadArtifact: %v", err)
	}
	if loaded == nil {
		t.Fatal("artifact not persisted")
	}

	// The trained model must separate an obvious good day from a washout.
	goodP, err := loaded.Predict([]float64{4500, 5, 74, 3})
	if err != nil {
		t.Fatal(err)
	}
	badP, err := loaded.Predict([]float64{1200, 14, 95, 70})
	if err != nil {
		t.Fatal(err)
	}
	if goodP <= badP {
		t.Errorf("good day p=%v should exceed washout p=%v", goodP, badP)
	}

	if r.State() != StateIdle {
		t.Errorf("State = %v, want idle after retrain", r.State())
	}
}

func TestFilterOutliers(t *testing.T) {
	cfg := config.Default().Training

	partials := []models.TrainingSample{
		{Result: models.ResultPartial, RadiationSum: 3000, WindAvg: 6, QualityScore: 130},
		{Result: models.ResultPartial, RadiationSum: 3200, WindAvg: 7, QualityScore: 130},
		{Result: models.ResultPartial, RadiationSum: 2800, WindAvg: 5, QualityScore: 130},
	}
	// Better radiation than the partial median, weaker wind, low quality:
	// this abort is noise and must be dropped.
	noise := models.TrainingSample{Result: models.ResultAborted, RadiationSum: 4000, WindAvg: 4, QualityScore: 60}
	// Same weather but a solid quality score stays.
	trusted := models.TrainingSample{Result: models.ResultAborted, RadiationSum: 4000, WindAvg: 4, QualityScore: 90}

	samples := append(append([]models.TrainingSample{}, partials...), noise, trusted)
	filtered := filterOutliers(samples, cfg)
	if len(filtered) != 4 {
		t.Fatalf("len(filtered) = %d, want 4", len(filtered))
	}
	for _, s := range filtered {
		if s.Result == models.ResultAborted && s.QualityScore == 60 {
			t.Error("low-quality outlier abort survived the filter")
		}
	}
}

func TestFilterOutliers_NoPartials(t *testing.T) {
	cfg := config.Default().Training
	samples := []models.TrainingSample{
		{Result: models.ResultAborted, RadiationSum: 4000, WindAvg: 4, QualityScore: 60},
		{Result: models.ResultComplete, RadiationSum: 4500, WindAvg: 5, QualityScore: 100},
	}
	if got := filterOutliers(samples, cfg); len(got) != 2 {
		t.Errorf("len = %d, want 2 (no partial baseline, nothing dropped)", len(got))
	}
}

func TestBuildDataset_Labels(t *testing.T) {
	samples := []models.TrainingSample{
		{Result: models.ResultComplete, RadiationSum: 4200, WindAvg: 5, Weight: 1.5},
		{Result: models.ResultAborted, RadiationSum: 1300, WindAvg: 13, Weight: 1.0},
		{Result: models.ResultPartial, RadiationSum: 3000, WindAvg: 6, Weight: 1.0},
		{Result: models.ResultPartial, RadiationSum: 3600, WindAvg: 8, Weight: 1.0},
	}

	X, y, w := buildDataset(samples)
	if len(X) != 4 || len(y) != 4 || len(w) != 4 {
		t.Fatalf("dataset sizes = %d/%d/%d, want 4", len(X), len(y), len(w))
	}
	if y[0] != 1 {
		t.Error("complete should label 1")
	}
	if y[1] != 0 {
		t.Error("aborted should label 0")
	}
	// Partial medians are radiation 3000, wind 6: only the stronger
	// partial day clears both and counts as a success.
	if y[2] != 0 {
		t.Error("weak partial should label 0")
	}
	if y[3] != 1 {
		t.Error("strong partial should label 1")
	}
	if w[0] != 1.5 {
		t.Errorf("weight = %v, want 1.5 carried through", w[0])
	}
}
