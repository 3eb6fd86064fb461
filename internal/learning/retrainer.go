package learning

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/rishirikelp/kelpdry/internal/config"
	"github.com/rishirikelp/kelpdry/internal/metrics"
	"github.com/rishirikelp/kelpdry/internal/models"
	"github.com/rishirikelp/kelpdry/internal/quality"
	"github.com/rishirikelp/kelpdry/internal/store"
)

var (
	// ErrInsufficientData means the labeled dataset is below the minimum
	// row count for a retrain. The prior model stays in service.
	ErrInsufficientData = errors.New("not enough training samples")

	// ErrTrainFailed wraps any failure inside the training step itself.
	ErrTrainFailed = errors.New("model training failed")
)

// State names the retrainer's current phase, for status reporting.
type State string

const (
	StateIdle        State = "idle"
	StateCollecting  State = "collecting"
	StateClassifying State = "classifying"
	StateTraining    State = "training"
	StateValidating  State = "validating"
	StatePersisting  State = "persisting"
)

// ContextFetcher retrieves the work-window weather snapshot for one
// date. Returns (nil, nil) when no data exists for the date.
type ContextFetcher interface {
	FetchContext(ctx context.Context, date time.Time) (*models.WeatherContext, error)
}

// OutcomeReader supplies farmer-reported drying outcomes.
type OutcomeReader interface {
	ReadOutcomes() ([]models.FieldOutcome, error)
}

// Retrainer runs the feedback loop: pull new field outcomes, classify
// their quality, admit the usable ones to the training set, and rebuild
// the drying-viability model when enough data has accumulated.
type Retrainer struct {
	store        *store.Store
	outcomes     OutcomeReader
	weather      ContextFetcher
	qlog         *quality.Log
	cfg          config.Config
	artifactPath string
	fetchTimeout time.Duration
	state        State
}

func NewRetrainer(st *store.Store, outcomes OutcomeReader, weather ContextFetcher, qlog *quality.Log, cfg config.Config, artifactPath string) *Retrainer {
	return &Retrainer{
		store:        st,
		outcomes:     outcomes,
		weather:      weather,
		qlog:         qlog,
		cfg:          cfg,
		artifactPath: artifactPath,
		fetchTimeout: 30 * time.Second,
		state:        StateIdle,
	}
}

func (r *Retrainer) State() State { return r.state }

// ProcessNewRecords ingests field outcomes not yet in the training set:
// fetch weather context, classify quality, log the verdict, and admit
// included records. Returns whether any new sample was admitted.
func (r *Retrainer) ProcessNewRecords(ctx context.Context) (bool, error) {
	r.state = StateCollecting
	defer func() { r.state = StateIdle }()

	outcomes, err := r.outcomes.ReadOutcomes()
	if err != nil {
		return false, fmt.Errorf("read field outcomes: %w", err)
	}

	r.state = StateClassifying
	admitted := false
	for _, outcome := range outcomes {
		exists, err := r.store.HasTrainingSample(outcome.Date, outcome.SpotName)
		if err != nil {
			return admitted, fmt.Errorf("check training sample: %w", err)
		}
		if exists {
			continue
		}

		fetchCtx, cancel := context.WithTimeout(ctx, r.fetchTimeout)
		wctx, err := r.weather.FetchContext(fetchCtx, outcome.Date)
		cancel()
		if err != nil {
			// One unreachable day must not block the rest of the batch.
			log.Printf("retrain: weather context for %s unavailable, skipping: %v",
				outcome.Date.Format("2006-01-02"), err)
			metrics.ContextFetches.WithLabelValues("error").Inc()
			continue
		}
		metrics.ContextFetches.WithLabelValues("ok").Inc()

		ann := quality.Classify(outcome, wctx, r.cfg.Quality)
		metrics.SamplesClassified.WithLabelValues(ann.Recommendation).Inc()

		entry := quality.Entry{
			Date:           outcome.Date.Format("2006-01-02"),
			SpotName:       outcome.SpotName,
			Result:         outcome.Result,
			QualityScore:   ann.Score,
			Recommendation: ann.Recommendation,
			Issues:         ann.Issues,
			LoggedAt:       time.Now(),
		}
		if wctx != nil {
			entry.Weather = *wctx
		}
		if err := r.qlog.Append(entry); err != nil {
			return admitted, fmt.Errorf("append quality log: %w", err)
		}

		if ann.Recommendation == models.RecommendExclude {
			log.Printf("retrain: excluding %s/%s (quality %.0f: %v)",
				outcome.Date.Format("2006-01-02"), outcome.SpotName, ann.Score, ann.Issues)
			continue
		}
		if wctx == nil {
			continue
		}

		sample := models.TrainingSample{
			Date:             outcome.Date,
			SpotName:         outcome.SpotName,
			Result:           outcome.Result,
			RadiationSum:     wctx.RadiationSum,
			WindAvg:          wctx.WindAvg,
			HumidityMax:      wctx.HumidityMax,
			PrecipitationMax: wctx.PrecipitationMax,
			QualityScore:     ann.Score,
			Weight:           ann.Weight,
		}
		if err := r.store.AppendTrainingSample(sample); err != nil {
			return admitted, fmt.Errorf("append training sample: %w", err)
		}
		admitted = true
	}
	return admitted, nil
}

// Retrain rebuilds the viability model from the accumulated training
// set. On any failure the previously persisted artifact is untouched.
func (r *Retrainer) Retrain() (*Artifact, error) {
	r.state = StateTraining
	defer func() { r.state = StateIdle }()

	samples, err := r.store.GetTrainingSamples()
	if err != nil {
		return nil, fmt.Errorf("load training samples: %w", err)
	}
	if len(samples) < r.cfg.Training.MinRows {
		metrics.Retrains.WithLabelValues("insufficient").Inc()
		return nil, fmt.Errorf("%w: have %d, need %d",
			ErrInsufficientData, len(samples), r.cfg.Training.MinRows)
	}

	filtered := filterOutliers(samples, r.cfg.Training)
	if len(filtered) < r.cfg.Training.MinRows {
		metrics.Retrains.WithLabelValues("insufficient").Inc()
		return nil, fmt.Errorf("%w: %d usable after outlier filtering, need %d",
			ErrInsufficientData, len(filtered), r.cfg.Training.MinRows)
	}

	X, y, w := buildDataset(filtered)

	p := r.cfg.Training
	newModel := func() *Ensemble {
		return NewEnsemble(
			NewForest(p.ForestTrees, p.ForestMaxDepth, p.ForestMinSplit, p.ForestMinLeaf, p.Seed),
			NewBoost(p.BoostTrees, p.BoostMaxDepth, p.BoostLearningRate, p.Seed),
		)
	}

	r.state = StateValidating
	cvMean, cvStd, err := CrossValidate(newModel, X, y, w, p.CVMaxFolds, p.Seed)
	if err != nil {
		metrics.Retrains.WithLabelValues("failed").Inc()
		return nil, fmt.Errorf("%w: cross-validation: %v", ErrTrainFailed, err)
	}

	r.state = StateTraining
	model := newModel()
	if err := model.Fit(X, y, w); err != nil {
		metrics.Retrains.WithLabelValues("failed").Inc()
		return nil, fmt.Errorf("%w: %v", ErrTrainFailed, err)
	}

	positives := 0
	for _, label := range y {
		positives += label
	}

	artifact := &Artifact{
		Model:        model,
		Features:     FeatureNames,
		TrainingSize: len(X),
		SuccessRate:  float64(positives) / float64(len(y)),
		CVAccuracy:   cvMean,
		CVStd:        cvStd,
		TrainedAt:    time.Now(),
	}

	r.state = StatePersisting
	if err := SaveArtifact(r.artifactPath, artifact); err != nil {
		metrics.Retrains.WithLabelValues("failed").Inc()
		return nil, err
	}

	metrics.Retrains.WithLabelValues("ok").Inc()
	log.Printf("retrain: trained on %d rows, success rate %.2f, cv accuracy %.3f±%.3f",
		artifact.TrainingSize, artifact.SuccessRate, cvMean, cvStd)
	return artifact, nil
}

// filterOutliers drops low-quality aborted rows whose weather looks
// better than the typical partial day: if drying was viable enough for
// a partial result elsewhere, an abort in better conditions and with a
// weak quality score is treated as noise.
func filterOutliers(samples []models.TrainingSample, p config.TrainingParams) []models.TrainingSample {
	var partialRadiation, partialWind []float64
	for _, s := range samples {
		if s.Result == models.ResultPartial {
			partialRadiation = append(partialRadiation, s.RadiationSum)
			partialWind = append(partialWind, s.WindAvg)
		}
	}
	if len(partialRadiation) == 0 {
		return samples
	}
	medRadiation := median(partialRadiation)
	medWind := median(partialWind)

	filtered := make([]models.TrainingSample, 0, len(samples))
	for _, s := range samples {
		if s.Result == models.ResultAborted &&
			s.RadiationSum > medRadiation*p.OutlierRadiationMult &&
			s.WindAvg < medWind*p.OutlierWindMult &&
			s.QualityScore < p.OutlierMaxQuality {
			log.Printf("retrain: dropping outlier abort %s/%s (radiation %.0f, wind %.1f, quality %.0f)",
				s.Date.Format("2006-01-02"), s.SpotName, s.RadiationSum, s.WindAvg, s.QualityScore)
			continue
		}
		filtered = append(filtered, s)
	}
	return filtered
}

// buildDataset turns samples into the training matrix. Complete days are
// positive; partial days are positive only when both radiation and wind
// exceeded the partial medians; aborts are negative.
func buildDataset(samples []models.TrainingSample) (X [][]float64, y []int, w []float64) {
	var partialRadiation, partialWind []float64
	for _, s := range samples {
		if s.Result == models.ResultPartial {
			partialRadiation = append(partialRadiation, s.RadiationSum)
			partialWind = append(partialWind, s.WindAvg)
		}
	}
	medRadiation := median(partialRadiation)
	medWind := median(partialWind)

	for _, s := range samples {
		X = append(X, []float64{s.RadiationSum, s.WindAvg, s.HumidityMax, s.PrecipitationMax})
		label := 0
		switch s.Result {
		case models.ResultComplete:
			label = 1
		case models.ResultPartial:
			if len(partialRadiation) > 0 && s.RadiationSum > medRadiation && s.WindAvg > medWind {
				label = 1
			}
		}
		y = append(y, label)
		w = append(w, s.Weight)
	}
	return X, y, w
}

func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	return stat.Quantile(0.5, stat.Empirical, sorted, nil)
}
