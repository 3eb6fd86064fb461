package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rishirikelp/kelpdry/internal/models"
)

const dateFormat = "2006-01-02"

// Store is the durable repository for forecasts, observations, accuracy
// results and training samples. Every write is an idempotent upsert by
// natural key; each upsert is atomic for its own row only.
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) UpsertSpot(sp models.Spot) error {
	_, err := s.db.Exec(`
		INSERT INTO spots (name, latitude, longitude, active)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			latitude = excluded.latitude,
			longitude = excluded.longitude,
			active = excluded.active
	`, sp.Name, sp.Latitude, sp.Longitude, sp.Active)
	return err
}

func (s *Store) ListActiveSpots() ([]models.Spot, error) {
	rows, err := s.db.Query(`SELECT name, latitude, longitude, active FROM spots WHERE active = TRUE ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var spots []models.Spot
	for rows.Next() {
		var sp models.Spot
		if err := rows.Scan(&sp.Name, &sp.Latitude, &sp.Longitude, &sp.Active); err != nil {
			return nil, err
		}
		spots = append(spots, sp)
	}
	return spots, rows.Err()
}

func (s *Store) UpsertForecast(f models.ForecastRecord) error {
	_, err := s.db.Exec(`
		INSERT INTO forecast_archive (spot_name, forecast_date, target_date, days_ahead,
		    temp_max, temp_min, temp_avg, humidity_min, humidity_avg,
		    wind_speed_avg, wind_speed_max, precipitation, sunshine_hours,
		    drying_score, viability)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(spot_name, forecast_date, target_date) DO UPDATE SET
			days_ahead = excluded.days_ahead,
			temp_max = excluded.temp_max,
			temp_min = excluded.temp_min,
			temp_avg = excluded.temp_avg,
			humidity_min = excluded.humidity_min,
			humidity_avg = excluded.humidity_avg,
			wind_speed_avg = excluded.wind_speed_avg,
			wind_speed_max = excluded.wind_speed_max,
			precipitation = excluded.precipitation,
			sunshine_hours = excluded.sunshine_hours,
			drying_score = excluded.drying_score,
			viability = excluded.viability
	`, f.SpotName, f.ForecastDate.Format(dateFormat), f.TargetDate.Format(dateFormat), f.DaysAhead,
		f.TempMax, f.TempMin, f.TempAvg, f.HumidityMin, f.HumidityAvg,
		f.WindAvg, f.WindMax, f.Precipitation, f.SunshineHours,
		f.DryingScore, f.Viability)
	return err
}

// GetForecast returns the archived forecast for a (spot, target date,
// horizon) triple, or nil when none was recorded.
func (s *Store) GetForecast(spotName string, targetDate time.Time, daysAhead int) (*models.ForecastRecord, error) {
	row := s.db.QueryRow(`
		SELECT id, spot_name, forecast_date, target_date, days_ahead,
		       temp_max, temp_min, temp_avg, humidity_min, humidity_avg,
		       wind_speed_avg, wind_speed_max, precipitation, sunshine_hours,
		       drying_score, viability
		FROM forecast_archive
		WHERE spot_name = ? AND target_date = ? AND days_ahead = ?
	`, spotName, targetDate.Format(dateFormat), daysAhead)

	var f models.ForecastRecord
	var forecastDate, target string
	err := row.Scan(&f.ID, &f.SpotName, &forecastDate, &target, &f.DaysAhead,
		&f.TempMax, &f.TempMin, &f.TempAvg, &f.HumidityMin, &f.HumidityAvg,
		&f.WindAvg, &f.WindMax, &f.Precipitation, &f.SunshineHours,
		&f.DryingScore, &f.Viability)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if f.ForecastDate, err = parseDate(forecastDate); err != nil {
		return nil, err
	}
	if f.TargetDate, err = parseDate(target); err != nil {
		return nil, err
	}
	return &f, nil
}

func (s *Store) UpsertObservation(o models.ObservationRecord) error {
	_, err := s.db.Exec(`
		INSERT INTO amedas_actual (observation_date, temp_max, temp_min, temp_avg,
		    humidity_min, humidity_avg, wind_speed_avg, wind_speed_max,
		    precipitation, sunshine_hours)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(observation_date) DO UPDATE SET
			temp_max = excluded.temp_max,
			temp_min = excluded.temp_min,
			temp_avg = excluded.temp_avg,
			humidity_min = excluded.humidity_min,
			humidity_avg = excluded.humidity_avg,
			wind_speed_avg = excluded.wind_speed_avg,
			wind_speed_max = excluded.wind_speed_max,
			precipitation = excluded.precipitation,
			sunshine_hours = excluded.sunshine_hours
	`, o.Date.Format(dateFormat), o.TempMax, o.TempMin, o.TempAvg,
		o.HumidityMin, o.HumidityAvg, o.WindAvg, o.WindMax,
		o.Precipitation, o.SunshineHours)
	return err
}

// GetObservation returns the authoritative reading for a calendar day,
// or nil when the station has not reported yet.
func (s *Store) GetObservation(date time.Time) (*models.ObservationRecord, error) {
	row := s.db.QueryRow(`
		SELECT id, observation_date, temp_max, temp_min, temp_avg,
		       humidity_min, humidity_avg, wind_speed_avg, wind_speed_max,
		       precipitation, sunshine_hours
		FROM amedas_actual
		WHERE observation_date = ?
	`, date.Format(dateFormat))

	var o models.ObservationRecord
	var obsDate string
	err := row.Scan(&o.ID, &obsDate, &o.TempMax, &o.TempMin, &o.TempAvg,
		&o.HumidityMin, &o.HumidityAvg, &o.WindAvg, &o.WindMax,
		&o.Precipitation, &o.SunshineHours)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if o.Date, err = parseDate(obsDate); err != nil {
		return nil, err
	}
	return &o, nil
}

func (s *Store) UpsertAccuracy(a models.AccuracyRecord) error {
	_, err := s.db.Exec(`
		INSERT INTO accuracy_analysis (analysis_date, spot_name, target_date, days_ahead,
		    temp_max_error, temp_min_error, temp_avg_error,
		    humidity_min_error, humidity_avg_error,
		    wind_avg_error, wind_max_error,
		    precipitation_hit, precipitation_forecast, precipitation_actual,
		    drying_success_forecast, drying_success_actual,
		    forecast_correct, overall_score)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(spot_name, target_date, days_ahead) DO UPDATE SET
			analysis_date = excluded.analysis_date,
			temp_max_error = excluded.temp_max_error,
			temp_min_error = excluded.temp_min_error,
			temp_avg_error = excluded.temp_avg_error,
			humidity_min_error = excluded.humidity_min_error,
			humidity_avg_error = excluded.humidity_avg_error,
			wind_avg_error = excluded.wind_avg_error,
			wind_max_error = excluded.wind_max_error,
			precipitation_hit = excluded.precipitation_hit,
			precipitation_forecast = excluded.precipitation_forecast,
			precipitation_actual = excluded.precipitation_actual,
			drying_success_forecast = excluded.drying_success_forecast,
			drying_success_actual = excluded.drying_success_actual,
			forecast_correct = excluded.forecast_correct,
			overall_score = excluded.overall_score
	`, a.AnalysisDate.Format(dateFormat), a.SpotName, a.TargetDate.Format(dateFormat), a.DaysAhead,
		a.TempMaxError, a.TempMinError, a.TempAvgError,
		a.HumidityMinError, a.HumidityAvgError,
		a.WindAvgError, a.WindMaxError,
		a.PrecipitationHit, a.PrecipitationForecast, a.PrecipitationActual,
		a.DryingSuccessForecast, a.DryingSuccessActual,
		a.ForecastCorrect, a.OverallScore)
	return err
}

func (s *Store) GetAccuracy(spotName string, targetDate time.Time, daysAhead int) (*models.AccuracyRecord, error) {
	row := s.db.QueryRow(`
		SELECT id, analysis_date, spot_name, target_date, days_ahead,
		       temp_max_error, temp_min_error, temp_avg_error,
		       humidity_min_error, humidity_avg_error,
		       wind_avg_error, wind_max_error,
		       precipitation_hit, precipitation_forecast, precipitation_actual,
		       drying_success_forecast, drying_success_actual,
		       forecast_correct, overall_score
		FROM accuracy_analysis
		WHERE spot_name = ? AND target_date = ? AND days_ahead = ?
	`, spotName, targetDate.Format(dateFormat), daysAhead)

	var a models.AccuracyRecord
	var analysisDate, target string
	err := row.Scan(&a.ID, &analysisDate, &a.SpotName, &target, &a.DaysAhead,
		&a.TempMaxError, &a.TempMinError, &a.TempAvgError,
		&a.HumidityMinError, &a.HumidityAvgError,
		&a.WindAvgError, &a.WindMaxError,
		&a.PrecipitationHit, &a.PrecipitationForecast, &a.PrecipitationActual,
		&a.DryingSuccessForecast, &a.DryingSuccessActual,
		&a.ForecastCorrect, &a.OverallScore)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if a.AnalysisDate, err = parseDate(analysisDate); err != nil {
		return nil, err
	}
	if a.TargetDate, err = parseDate(target); err != nil {
		return nil, err
	}
	return &a, nil
}

// SummaryFilter narrows QueryAccuracySummary. Zero values mean no filter.
type SummaryFilter struct {
	DaysAhead int // 0 = all horizons
	Start     time.Time
	End       time.Time
}

// QueryAccuracySummary aggregates accuracy rows: per-field MAE ignoring
// NULLs, hit rates as percentages. Returns nil when no rows match.
func (s *Store) QueryAccuracySummary(filter SummaryFilter) (*models.AccuracySummary, error) {
	query := `
		SELECT COUNT(*),
		       AVG(temp_avg_error),
		       AVG(humidity_min_error),
		       AVG(wind_avg_error),
		       AVG(CASE WHEN precipitation_hit THEN 100.0 ELSE 0.0 END),
		       AVG(CASE WHEN forecast_correct THEN 100.0 ELSE 0.0 END)
		FROM accuracy_analysis
		WHERE 1=1`
	var params []any

	if filter.DaysAhead > 0 {
		query += ` AND days_ahead = ?`
		params = append(params, filter.DaysAhead)
	}
	if !filter.Start.IsZero() {
		query += ` AND target_date >= ?`
		params = append(params, filter.Start.Format(dateFormat))
	}
	if !filter.End.IsZero() {
		query += ` AND target_date <= ?`
		params = append(params, filter.End.Format(dateFormat))
	}

	var sum models.AccuracySummary
	err := s.db.QueryRow(query, params...).Scan(&sum.TotalForecasts,
		&sum.TempMAE, &sum.HumidityMAE, &sum.WindMAE,
		&sum.PrecipitationHitRate, &sum.ForecastAccuracy)
	if err != nil {
		return nil, err
	}
	if sum.TotalForecasts == 0 {
		return nil, nil
	}
	return &sum, nil
}

// HorizonStats is one reporting row of QueryAccuracyByHorizon.
type HorizonStats struct {
	DaysAhead        int
	Count            int
	MeanOverallScore float64
	TempMAE          sql.NullFloat64
	ForecastAccuracy sql.NullFloat64
}

// QueryAccuracyByHorizon rolls accuracy up per forecast horizon, for the
// reporting layer.
func (s *Store) QueryAccuracyByHorizon() ([]HorizonStats, error) {
	rows, err := s.db.Query(`
		SELECT days_ahead, COUNT(*), AVG(overall_score),
		       AVG(temp_avg_error),
		       AVG(CASE WHEN forecast_correct THEN 100.0 ELSE 0.0 END)
		FROM accuracy_analysis
		GROUP BY days_ahead
		ORDER BY days_ahead
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stats []HorizonStats
	for rows.Next() {
		var h HorizonStats
		if err := rows.Scan(&h.DaysAhead, &h.Count, &h.MeanOverallScore, &h.TempMAE, &h.ForecastAccuracy); err != nil {
			return nil, err
		}
		stats = append(stats, h)
	}
	return stats, rows.Err()
}

func (s *Store) AppendTrainingSample(t models.TrainingSample) error {
	_, err := s.db.Exec(`
		INSERT INTO training_samples (date, spot_name, result,
		    radiation_sum, wind_speed_avg, humidity_max, precipitation_max,
		    quality_score, data_weight)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(date, spot_name) DO NOTHING
	`, t.Date.Format(dateFormat), t.SpotName, t.Result,
		t.RadiationSum, t.WindAvg, t.HumidityMax, t.PrecipitationMax,
		t.QualityScore, t.Weight)
	return err
}

func (s *Store) HasTrainingSample(date time.Time, spotName string) (bool, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM training_samples WHERE date = ? AND spot_name = ?`,
		date.Format(dateFormat), spotName).Scan(&count)
	return count > 0, err
}

func (s *Store) GetTrainingSamples() ([]models.TrainingSample, error) {
	rows, err := s.db.Query(`
		SELECT id, date, spot_name, result,
		       radiation_sum, wind_speed_avg, humidity_max, precipitation_max,
		       quality_score, data_weight
		FROM training_samples
		ORDER BY date, spot_name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var samples []models.TrainingSample
	for rows.Next() {
		var t models.TrainingSample
		var date string
		if err := rows.Scan(&t.ID, &date, &t.SpotName, &t.Result,
			&t.RadiationSum, &t.WindAvg, &t.HumidityMax, &t.PrecipitationMax,
			&t.QualityScore, &t.Weight); err != nil {
			return nil, err
		}
		if t.Date, err = parseDate(date); err != nil {
			return nil, err
		}
		samples = append(samples, t)
	}
	return samples, rows.Err()
}

func (s *Store) CountTrainingSamples() (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM training_samples`).Scan(&count)
	return count, err
}

func parseDate(v string) (time.Time, error) {
	if len(v) > len(dateFormat) {
		v = v[:len(dateFormat)]
	}
	t, err := time.Parse(dateFormat, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", v, err)
	}
	return t, nil
}
