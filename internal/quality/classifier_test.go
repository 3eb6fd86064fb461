package quality

import (
	"reflect"
	"testing"
	"time"

	"github.com/rishirikelp/kelpdry/internal/config"
	"github.com/rishirikelp/kelpdry/internal/models"
)

func outcome(result string) models.FieldOutcome {
	return models.FieldOutcome{
		Date:     time.Date(2026, 7, 3, 0, 0, 0, 0, time.UTC),
		SpotName: "kutsugata",
		Result:   result,
	}
}

func TestClassify_NoWeatherData(t *testing.T) {
	cfg := config.Default().Quality

	ann := Classify(outcome(models.ResultComplete), nil, cfg)
	if ann.Score != 0 {
		t.Errorf("Score = %v, want 0", ann.Score)
	}
	if ann.Recommendation != models.RecommendExclude {
		t.Errorf("Recommendation = %q, want exclude", ann.Recommendation)
	}
	if len(ann.Issues) != 1 || ann.Issues[0] != IssueNoWeatherData {
		t.Errorf("Issues = %v, want [%s]", ann.Issues, IssueNoWeatherData)
	}
}

func TestClassify_SuspiciousAbort(t *testing.T) {
	cfg := config.Default().Quality

	// Abort on a textbook drying day: strong sun, gentle wind, dry air.
	ctx := &models.WeatherContext{RadiationSum: 4500, WindAvg: 5, HumidityMax: 75, PrecipitationMax: 10}
	ann := Classify(outcome(models.ResultAborted), ctx, cfg)

	if ann.Score != 60 {
		t.Errorf("Score = %v, want 60", ann.Score)
	}
	if ann.Recommendation != models.RecommendIncludeNormal {
		t.Errorf("Recommendation = %q, want include-normal", ann.Recommendation)
	}
	if ann.Weight != 1.0 {
		t.Errorf("Weight = %v, want 1.0", ann.Weight)
	}
	if len(ann.Issues) != 1 || ann.Issues[0] != IssueSuspiciousStop {
		t.Errorf("Issues = %v, want [%s]", ann.Issues, IssueSuspiciousStop)
	}
}

func TestClassify_JustifiedAbort(t *testing.T) {
	cfg := config.Default().Quality

	ctx := &models.WeatherContext{RadiationSum: 1800, WindAvg: 13, HumidityMax: 92, PrecipitationMax: 70}
	ann := Classify(outcome(models.ResultAborted), ctx, cfg)

	if ann.Score != 110 {
		t.Errorf("Score = %v, want 110", ann.Score)
	}
	if ann.Recommendation != models.RecommendIncludeHigh {
		t.Errorf("Recommendation = %q, want include-high", ann.Recommendation)
	}
	if ann.Weight != 1.5 {
		t.Errorf("Weight = %v, want 1.5", ann.Weight)
	}
	if len(ann.Issues) != 1 || ann.Issues[0] != IssueJustifiedStop {
		t.Errorf("Issues = %v, want [%s]", ann.Issues, IssueJustifiedStop)
	}
}

func TestClassify_NeutralAbort(t *testing.T) {
	cfg := config.Default().Quality

	// Middling conditions: neither suspicious nor clearly justified.
	ctx := &models.WeatherContext{RadiationSum: 3000, WindAvg: 7, HumidityMax: 85, PrecipitationMax: 40}
	ann := Classify(outcome(models.ResultAborted), ctx, cfg)

	if ann.Score != 100 {
		t.Errorf("Score = %v, want 100", ann.Score)
	}
	if len(ann.Issues) != 0 {
		t.Errorf("Issues = %v, want none", ann.Issues)
	}
	if ann.Recommendation != models.RecommendIncludeHigh {
		t.Errorf("Recommendation = %q, want include-high", ann.Recommendation)
	}
}

func TestClassify_ChallengingSuccess(t *testing.T) {
	cfg := config.Default().Quality

	ctx := &models.WeatherContext{RadiationSum: 2500, WindAvg: 4, HumidityMax: 80, PrecipitationMax: 20}
	ann := Classify(outcome(models.ResultComplete), ctx, cfg)

	if ann.Score != 120 {
		t.Errorf("Score = %v, want 120", ann.Score)
	}
	if len(ann.Issues) != 1 || ann.Issues[0] != IssueValuableEdgeCase {
		t.Errorf("Issues = %v, want [%s]", ann.Issues, IssueValuableEdgeCase)
	}
	if ann.Recommendation != models.RecommendIncludeHigh {
		t.Errorf("Recommendation = %q, want include-high", ann.Recommendation)
	}
}

func TestClassify_SuspiciousSuccess(t *testing.T) {
	cfg := config.Default().Quality

	// Success in conditions where full drying is physically implausible.
	ctx := &models.WeatherContext{RadiationSum: 1000, WindAvg: 3, HumidityMax: 96, PrecipitationMax: 60}
	ann := Classify(outcome(models.ResultComplete), ctx, cfg)

	// Challenging bonus and implausibility penalty both apply: 100+20-30.
	if ann.Score != 90 {
		t.Errorf("Score = %v, want 90", ann.Score)
	}
	want := []string{IssueValuableEdgeCase, IssueSuspiciousSuccess}
	if !reflect.DeepEqual(ann.Issues, want) {
		t.Errorf("Issues = %v, want %v", ann.Issues, want)
	}
}

func TestClassify_PartialBoundary(t *testing.T) {
	cfg := config.Default().Quality

	ctx := &models.WeatherContext{RadiationSum: 3500, WindAvg: 4, HumidityMax: 82, PrecipitationMax: 20}
	ann := Classify(outcome(models.ResultPartial), ctx, cfg)

	if ann.Score != 130 {
		t.Errorf("Score = %v, want 130", ann.Score)
	}
	if len(ann.Issues) != 1 || ann.Issues[0] != IssueBoundaryCondition {
		t.Errorf("Issues = %v, want [%s]", ann.Issues, IssueBoundaryCondition)
	}
	if ann.Weight != 1.5 {
		t.Errorf("Weight = %v, want 1.5", ann.Weight)
	}
}

func TestClassify_InvalidValues(t *testing.T) {
	cfg := config.Default().Quality

	ctx := &models.WeatherContext{RadiationSum: 0, WindAvg: 5, HumidityMax: 85, PrecipitationMax: 20}
	ann := Classify(outcome(models.ResultPartial), ctx, cfg)

	// Partial bonus +30, invalid radiation -50.
	if ann.Score != 80 {
		t.Errorf("Score = %v, want 80", ann.Score)
	}
	found := false
	for _, issue := range ann.Issues {
		if issue == IssueInvalidValues {
			found = true
		}
	}
	if !found {
		t.Errorf("Issues = %v, want %s present", ann.Issues, IssueInvalidValues)
	}
}

func TestClassify_WeightBands(t *testing.T) {
	cfg := config.Default().Quality

	tests := []struct {
		name       string
		ctx        models.WeatherContext
		result     string
		wantRec    string
		wantWeight float64
	}{
		{
			name: "exclude band",
			// Suspicious abort stacked with an invalid wind reading: 100-40-50.
			ctx:        models.WeatherContext{RadiationSum: 4500, WindAvg: -1, HumidityMax: 75, PrecipitationMax: 10},
			result:     models.ResultAborted,
			wantRec:    models.RecommendExclude,
			wantWeight: 0,
		},
		{
			name: "low band",
			// Neutral abort with an invalid wind reading: 100-50.
			ctx:        models.WeatherContext{RadiationSum: 3000, WindAvg: -1, HumidityMax: 85, PrecipitationMax: 40},
			result:     models.ResultAborted,
			wantRec:    models.RecommendIncludeLow,
			wantWeight: 0.5,
		},
		{
			name:       "normal band",
			ctx:        models.WeatherContext{RadiationSum: 4500, WindAvg: 5, HumidityMax: 75, PrecipitationMax: 10},
			result:     models.ResultAborted,
			wantRec:    models.RecommendIncludeNormal,
			wantWeight: 1.0,
		},
		{
			name:       "high band",
			ctx:        models.WeatherContext{RadiationSum: 4500, WindAvg: 5, HumidityMax: 75, PrecipitationMax: 10},
			result:     models.ResultComplete,
			wantRec:    models.RecommendIncludeHigh,
			wantWeight: 1.5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ann := Classify(outcome(tt.result), &tt.ctx, cfg)
			if ann.Recommendation != tt.wantRec {
				t.Errorf("Recommendation = %q, want %q (score %v)", ann.Recommendation, tt.wantRec, ann.Score)
			}
			if ann.Weight != tt.wantWeight {
				t.Errorf("Weight = %v, want %v", ann.Weight, tt.wantWeight)
			}
		})
	}
}

func TestClassify_Deterministic(t *testing.T) {
	cfg := config.Default().Quality
	ctx := &models.WeatherContext{RadiationSum: 4500, WindAvg: 5, HumidityMax: 75, PrecipitationMax: 10}

	first := Classify(outcome(models.ResultAborted), ctx, cfg)
	for i := 0; i < 10; i++ {
		again := Classify(outcome(models.ResultAborted), ctx, cfg)
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("classification not deterministic: %+v vs %+v", first, again)
		}
	}
}
