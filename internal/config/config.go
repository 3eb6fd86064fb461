package config

// Config carries every empirically derived threshold in one immutable
// object, constructed once at startup and passed into each component.
// The values come from the Kamui/Kutsugata AMeDAS analysis and must not
// be changed without re-deriving them against the drying records.
type Config struct {
	Drying   DryingThresholds
	Scoring  ScoreWeights
	Quality  QualityThresholds
	Training TrainingParams
}

// DryingThresholds define ground-truth drying success from an observation.
type DryingThresholds struct {
	MaxHumidityMin  float64 // drying fails above this daily minimum humidity
	MinWindAvg      float64 // drying fails below this mean wind speed, m/s
	RainBinarizeMM  float64 // precipitation above this counts as a rain day
}

// ScoreWeights define the composite accuracy score penalties.
type ScoreWeights struct {
	TempErrorFactor    float64
	TempErrorCap       float64
	HumidityErrorFactor float64
	HumidityErrorCap    float64
	WindErrorFactor     float64
	WindErrorCap        float64
	PrecipMissPenalty   float64
	DryingMissPenalty   float64
}

// QualityThresholds drive the field-record quality heuristic.
type QualityThresholds struct {
	SuspiciousStopRadiation float64 // abort above this radiation is suspect
	SuspiciousStopWind      float64 // abort below this wind is suspect
	SuspiciousStopHumidity  float64
	SuspiciousStopPrecip    float64

	PoorRadiation float64 // "bad conditions" gates for a justified abort
	PoorWind      float64
	PoorHumidity  float64
	PoorPrecip    float64

	ChallengingRadiation float64 // "challenging but succeeded" gates
	ChallengingWind      float64
	ChallengingHumidity  float64

	ExtremeRadiation float64 // success below/above these is suspect
	ExtremeWind      float64
	ExtremeHumidity  float64
	ExtremePrecip    float64

	IncludeHighScore   float64
	IncludeNormalScore float64
	IncludeLowScore    float64

	HighWeight   float64
	NormalWeight float64
	LowWeight    float64
}

// TrainingParams govern the adaptive retraining procedure.
type TrainingParams struct {
	MinRows              int
	OutlierRadiationMult float64 // aborted rows above this × partial median radiation
	OutlierWindMult      float64 // ... and below this × partial median wind
	OutlierMaxQuality    float64 // ... and below this quality score are dropped
	ForestTrees          int
	ForestMaxDepth       int
	ForestMinSplit       int
	ForestMinLeaf        int
	BoostTrees           int
	BoostMaxDepth        int
	BoostLearningRate    float64
	CVMaxFolds           int
	Seed                 int64
}

// Default returns the production configuration.
func Default() Config {
	return Config{
		Drying: DryingThresholds{
			MaxHumidityMin: 94,
			MinWindAvg:     2.0,
			RainBinarizeMM: 0.5,
		},
		Scoring: ScoreWeights{
			TempErrorFactor:     2,
			TempErrorCap:        20,
			HumidityErrorFactor: 0.3,
			HumidityErrorCap:    30,
			WindErrorFactor:     4,
			WindErrorCap:        20,
			PrecipMissPenalty:   15,
			DryingMissPenalty:   15,
		},
		Quality: QualityThresholds{
			SuspiciousStopRadiation: 4000,
			SuspiciousStopWind:      6.0,
			SuspiciousStopHumidity:  80,
			SuspiciousStopPrecip:    30,
			PoorRadiation:           2000,
			PoorWind:                12,
			PoorHumidity:            90,
			PoorPrecip:              60,
			ChallengingRadiation:    3000,
			ChallengingWind:         2,
			ChallengingHumidity:     85,
			ExtremeRadiation:        1500,
			ExtremeWind:             15,
			ExtremeHumidity:         95,
			ExtremePrecip:           50,
			IncludeHighScore:        80,
			IncludeNormalScore:      60,
			IncludeLowScore:         40,
			HighWeight:              1.5,
			NormalWeight:            1.0,
			LowWeight:               0.5,
		},
		Training: TrainingParams{
			MinRows:              20,
			OutlierRadiationMult: 1.2,
			OutlierWindMult:      0.8,
			OutlierMaxQuality:    70,
			ForestTrees:          100,
			ForestMaxDepth:       7,
			ForestMinSplit:       3,
			ForestMinLeaf:        2,
			BoostTrees:           100,
			BoostMaxDepth:        5,
			BoostLearningRate:    0.1,
			CVMaxFolds:           5,
			Seed:                 42,
		},
	}
}
