package accuracy

import (
	"log"
	"time"

	"github.com/rishirikelp/kelpdry/internal/config"
	"github.com/rishirikelp/kelpdry/internal/metrics"
	"github.com/rishirikelp/kelpdry/internal/store"
)

const (
	minDaysAhead = 1
	maxDaysAhead = 6
)

// Analyzer is the nightly batch job that pairs every archived forecast
// with the day's observation and records the accuracy result.
type Analyzer struct {
	store *store.Store
	cfg   config.Config
}

func NewAnalyzer(st *store.Store, cfg config.Config) *Analyzer {
	return &Analyzer{store: st, cfg: cfg}
}

// RunResult summarises one analyzer pass.
type RunResult struct {
	Scored  int
	Skipped int
	Failed  int
}

// Run scores every (spot, horizon) pair for the target date. Missing
// pairings are skipped and counted; a store failure on one row does not
// stop the batch.
func (a *Analyzer) Run(targetDate time.Time) (RunResult, error) {
	var res RunResult

	spots, err := a.store.ListActiveSpots()
	if err != nil {
		return res, err
	}
	if len(spots) == 0 {
		log.Println("analyzer: no active spots configured")
		return res, nil
	}

	obs, err := a.store.GetObservation(targetDate)
	if err != nil {
		return res, err
	}
	if obs == nil {
		log.Printf("analyzer: no observation for %s, skipping all pairs", targetDate.Format("2006-01-02"))
		res.Skipped = len(spots) * maxDaysAhead
		metrics.PairsSkipped.Add(float64(res.Skipped))
		return res, nil
	}

	for _, spot := range spots {
		for daysAhead := minDaysAhead; daysAhead <= maxDaysAhead; daysAhead++ {
			fc, err := a.store.GetForecast(spot.Name, targetDate, daysAhead)
			if err != nil {
				log.Printf("analyzer: get forecast %s/%d: %v", spot.Name, daysAhead, err)
				res.Failed++
				continue
			}

			rec := Score(fc, obs, a.cfg)
			if rec == nil {
				res.Skipped++
				metrics.PairsSkipped.Inc()
				continue
			}

			if err := a.store.UpsertAccuracy(*rec); err != nil {
				log.Printf("analyzer: upsert accuracy %s/%d: %v", spot.Name, daysAhead, err)
				res.Failed++
				continue
			}

			res.Scored++
			metrics.PairsScored.Inc()
		}
	}

	log.Printf("analyzer: %s scored=%d skipped=%d failed=%d",
		targetDate.Format("2006-01-02"), res.Scored, res.Skipped, res.Failed)
	return res, nil
}

// Backfill runs the analyzer for every date in [start, end].
func (a *Analyzer) Backfill(start, end time.Time) (RunResult, error) {
	var total RunResult
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		res, err := a.Run(d)
		if err != nil {
			log.Printf("analyzer: backfill %s: %v", d.Format("2006-01-02"), err)
			continue
		}
		total.Scored += res.Scored
		total.Skipped += res.Skipped
		total.Failed += res.Failed
	}
	return total, nil
}
