package quality

import (
	"github.com/rishirikelp/kelpdry/internal/config"
	"github.com/rishirikelp/kelpdry/internal/models"
)

// Issue strings attached by Classify. The quality log carries these for
// audit, so they are stable identifiers rather than prose.
const (
	IssueNoWeatherData     = "no-weather-data"
	IssueSuspiciousStop    = "good-conditions-but-aborted"
	IssueJustifiedStop     = "aborted-in-poor-conditions"
	IssueValuableEdgeCase  = "success-in-challenging-conditions"
	IssueSuspiciousSuccess = "success-in-extremely-poor-conditions"
	IssueBoundaryCondition = "partial-drying-boundary-data"
	IssueInvalidValues     = "invalid-weather-values"
)

// Classify scores how trustworthy one field-reported outcome is given
// the weather that day, and maps the score to an inclusion
// recommendation and training weight. Pure and deterministic.
func Classify(outcome models.FieldOutcome, ctx *models.WeatherContext, cfg config.QualityThresholds) models.QualityAnnotation {
	if ctx == nil {
		return models.QualityAnnotation{
			Score:          0,
			Issues:         []string{IssueNoWeatherData},
			Recommendation: models.RecommendExclude,
		}
	}

	score := 100.0
	var issues []string

	switch outcome.Result {
	case models.ResultAborted:
		// An abort on a good drying day is likely unrelated to weather;
		// an abort in genuinely bad weather is a trustworthy negative.
		if ctx.RadiationSum > cfg.SuspiciousStopRadiation &&
			ctx.WindAvg < cfg.SuspiciousStopWind &&
			ctx.HumidityMax < cfg.SuspiciousStopHumidity &&
			ctx.PrecipitationMax < cfg.SuspiciousStopPrecip {
			issues = append(issues, IssueSuspiciousStop)
			score -= 40
		} else if ctx.RadiationSum < cfg.PoorRadiation ||
			ctx.WindAvg > cfg.PoorWind ||
			ctx.HumidityMax > cfg.PoorHumidity ||
			ctx.PrecipitationMax > cfg.PoorPrecip {
			issues = append(issues, IssueJustifiedStop)
			score += 10
		}

	case models.ResultComplete:
		if ctx.RadiationSum < cfg.ChallengingRadiation ||
			ctx.WindAvg < cfg.ChallengingWind ||
			ctx.HumidityMax > cfg.ChallengingHumidity {
			issues = append(issues, IssueValuableEdgeCase)
			score += 20
		}
		// Not mutually exclusive with the bonus above: a success under
		// physically implausible conditions is probably a recording error.
		if ctx.RadiationSum < cfg.ExtremeRadiation ||
			ctx.WindAvg > cfg.ExtremeWind ||
			ctx.HumidityMax > cfg.ExtremeHumidity ||
			ctx.PrecipitationMax > cfg.ExtremePrecip {
			issues = append(issues, IssueSuspiciousSuccess)
			score -= 30
		}

	case models.ResultPartial:
		issues = append(issues, IssueBoundaryCondition)
		score += 30
	}

	if ctx.RadiationSum <= 0 || ctx.WindAvg < 0 {
		issues = append(issues, IssueInvalidValues)
		score -= 50
	}

	ann := models.QualityAnnotation{Score: score, Issues: issues}
	switch {
	case score >= cfg.IncludeHighScore:
		ann.Recommendation = models.RecommendIncludeHigh
		ann.Weight = cfg.HighWeight
	case score >= cfg.IncludeNormalScore:
		ann.Recommendation = models.RecommendIncludeNormal
		ann.Weight = cfg.NormalWeight
	case score >= cfg.IncludeLowScore:
		ann.Recommendation = models.RecommendIncludeLow
		ann.Weight = cfg.LowWeight
	default:
		ann.Recommendation = models.RecommendExclude
	}
	return ann
}
