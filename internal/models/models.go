package models

import (
	"database/sql"
	"time"
)

// Spot is a named drying site on the island. Forecasts are archived per
// spot; the single AMeDAS ground station provides the shared daily truth.
type Spot struct {
	Name      string
	Latitude  float64
	Longitude float64
	Active    bool
}

// Viability labels the forecasting engine attaches to a day.
const (
	ViabilityIdeal      = "ideal"
	ViabilityMarginalOK = "marginal-ok"
	ViabilityDifficult  = "difficult"
	ViabilityImpossible = "impossible"
)

// ForecastRecord is one archived multi-horizon forecast, keyed by
// (spot, forecast date, target date). DaysAhead is 1-6.
type ForecastRecord struct {
	ID            int64
	SpotName      string
	ForecastDate  time.Time
	TargetDate    time.Time
	DaysAhead     int
	TempMax       sql.NullFloat64
	TempMin       sql.NullFloat64
	TempAvg       sql.NullFloat64
	HumidityMin   sql.NullFloat64
	HumidityAvg   sql.NullFloat64
	WindAvg       sql.NullFloat64
	WindMax       sql.NullFloat64
	Precipitation sql.NullFloat64
	SunshineHours sql.NullFloat64
	DryingScore   sql.NullFloat64
	Viability     sql.NullString
	CreatedAt     time.Time
}

// ObservationRecord is the authoritative ground-station reading for one
// calendar day. One row per date, replace semantics on re-ingestion.
type ObservationRecord struct {
	ID            int64
	Date          time.Time
	TempMax       sql.NullFloat64
	TempMin       sql.NullFloat64
	TempAvg       sql.NullFloat64
	HumidityMin   sql.NullFloat64
	HumidityAvg   sql.NullFloat64
	WindAvg       sql.NullFloat64
	WindMax       sql.NullFloat64
	Precipitation sql.NullFloat64
	SunshineHours sql.NullFloat64
	CreatedAt     time.Time
}

// AccuracyRecord compares one archived forecast against the matching
// observation. Keyed by (spot, target date, days ahead); recomputed and
// replaced if either input changes.
type AccuracyRecord struct {
	ID                    int64
	AnalysisDate          time.Time
	SpotName              string
	TargetDate            time.Time
	DaysAhead             int
	TempMaxError          sql.NullFloat64
	TempMinError          sql.NullFloat64
	TempAvgError          sql.NullFloat64
	HumidityMinError      sql.NullFloat64
	HumidityAvgError      sql.NullFloat64
	WindAvgError          sql.NullFloat64
	WindMaxError          sql.NullFloat64
	PrecipitationHit      bool
	PrecipitationForecast float64
	PrecipitationActual   float64
	DryingSuccessForecast bool
	DryingSuccessActual   bool
	ForecastCorrect       bool
	OverallScore          float64
	CreatedAt             time.Time
}

// AccuracySummary aggregates accuracy rows. Fields are null when no row
// contributed a value.
type AccuracySummary struct {
	TotalForecasts       int
	TempMAE              sql.NullFloat64
	HumidityMAE          sql.NullFloat64
	WindMAE              sql.NullFloat64
	PrecipitationHitRate sql.NullFloat64
	ForecastAccuracy     sql.NullFloat64
}

// Field-reported outcome categories, as entered by the kombu farmers.
const (
	ResultComplete = "complete"
	ResultPartial  = "partial"
	ResultAborted  = "aborted"
)

// FieldOutcome is one farmer-entered drying result. Immutable once
// recorded; identity is (date, spot).
type FieldOutcome struct {
	Date     time.Time
	SpotName string
	Result   string
}

// WeatherContext is the work-window weather snapshot attached to a field
// outcome before quality classification.
type WeatherContext struct {
	RadiationSum     float64
	WindAvg          float64
	HumidityMax      float64
	PrecipitationMax float64
}

// Quality recommendations mapped from the classifier score.
const (
	RecommendExclude       = "exclude"
	RecommendIncludeLow    = "include-low"
	RecommendIncludeNormal = "include-normal"
	RecommendIncludeHigh   = "include-high"
)

// QualityAnnotation is the classifier verdict for one field outcome.
type QualityAnnotation struct {
	Score          float64
	Issues         []string
	Recommendation string
	Weight         float64
}

// TrainingSample is a quality-annotated outcome admitted to the labeled
// dataset. Identity is (date, spot); never mutated after insertion.
type TrainingSample struct {
	ID               int64
	Date             time.Time
	SpotName         string
	Result           string
	RadiationSum     float64
	WindAvg          float64
	HumidityMax      float64
	PrecipitationMax float64
	QualityScore     float64
	Weight           float64
	CreatedAt        time.Time
}
