package accuracy

import (
	"database/sql"
	"math"
	"time"

	"github.com/rishirikelp/kelpdry/internal/config"
	"github.com/rishirikelp/kelpdry/internal/models"
)

// DryingSuccess derives ground-truth drying viability from the observed
// day. Gates are checked in order and the first failing one wins; a
// missing required field fails closed so absent data never reads as a
// good drying day.
func DryingSuccess(o *models.ObservationRecord, cfg config.DryingThresholds) bool {
	if !o.Precipitation.Valid || o.Precipitation.Float64 > 0 {
		return false
	}
	if !o.HumidityMin.Valid || o.HumidityMin.Float64 > cfg.MaxHumidityMin {
		return false
	}
	if !o.WindAvg.Valid || o.WindAvg.Float64 < cfg.MinWindAvg {
		return false
	}
	return true
}

// Score compares one archived forecast against the matching observation
// and produces the accuracy record. Returns nil when either input is
// absent; the caller counts that as a skip, not an error.
func Score(f *models.ForecastRecord, o *models.ObservationRecord, cfg config.Config) *models.AccuracyRecord {
	if f == nil || o == nil {
		return nil
	}

	rec := &models.AccuracyRecord{
		AnalysisDate: time.Now().UTC(),
		SpotName:     f.SpotName,
		TargetDate:   f.TargetDate,
		DaysAhead:    f.DaysAhead,

		TempMaxError:     absError(f.TempMax, o.TempMax),
		TempMinError:     absError(f.TempMin, o.TempMin),
		TempAvgError:     absError(f.TempAvg, o.TempAvg),
		HumidityMinError: absError(f.HumidityMin, o.HumidityMin),
		HumidityAvgError: absError(f.HumidityAvg, o.HumidityAvg),
		WindAvgError:     absError(f.WindAvg, o.WindAvg),
		WindMaxError:     absError(f.WindMax, o.WindMax),
	}

	// Precipitation is judged on rain vs no-rain; an unreported amount
	// counts as a dry day, matching the station convention.
	rec.PrecipitationForecast = f.Precipitation.Float64
	rec.PrecipitationActual = o.Precipitation.Float64
	forecastRain := rec.PrecipitationForecast > cfg.Drying.RainBinarizeMM
	actualRain := rec.PrecipitationActual > cfg.Drying.RainBinarizeMM
	rec.PrecipitationHit = forecastRain == actualRain

	rec.DryingSuccessForecast = f.Viability.Valid &&
		(f.Viability.String == models.ViabilityIdeal || f.Viability.String == models.ViabilityMarginalOK)
	rec.DryingSuccessActual = DryingSuccess(o, cfg.Drying)
	rec.ForecastCorrect = rec.DryingSuccessForecast == rec.DryingSuccessActual

	rec.OverallScore = compositeScore(rec, cfg.Scoring)
	return rec
}

// compositeScore starts at 100 and applies each penalty independently.
func compositeScore(rec *models.AccuracyRecord, w config.ScoreWeights) float64 {
	score := 100.0

	if rec.TempAvgError.Valid {
		score -= math.Min(rec.TempAvgError.Float64*w.TempErrorFactor, w.TempErrorCap)
	}
	if rec.HumidityMinError.Valid {
		score -= math.Min(rec.HumidityMinError.Float64*w.HumidityErrorFactor, w.HumidityErrorCap)
	}
	if rec.WindAvgError.Valid {
		score -= math.Min(rec.WindAvgError.Float64*w.WindErrorFactor, w.WindErrorCap)
	}
	if !rec.PrecipitationHit {
		score -= w.PrecipMissPenalty
	}
	if !rec.ForecastCorrect {
		score -= w.DryingMissPenalty
	}

	return math.Max(score, 0)
}

// absError propagates absence: the error exists only when both sides do.
func absError(forecast, actual sql.NullFloat64) sql.NullFloat64 {
	if !forecast.Valid || !actual.Valid {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: math.Abs(forecast.Float64 - actual.Float64), Valid: true}
}
