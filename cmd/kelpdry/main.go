package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	kongdotenv "github.com/titusjaka/kong-dotenv-go"
	_ "modernc.org/sqlite"

	"github.com/rishirikelp/kelpdry/internal/accuracy"
	"github.com/rishirikelp/kelpdry/internal/api"
	"github.com/rishirikelp/kelpdry/internal/config"
	"github.com/rishirikelp/kelpdry/internal/fieldlog"
	"github.com/rishirikelp/kelpdry/internal/learning"
	"github.com/rishirikelp/kelpdry/internal/models"
	"github.com/rishirikelp/kelpdry/internal/quality"
	"github.com/rishirikelp/kelpdry/internal/store"
	"github.com/rishirikelp/kelpdry/internal/weatherctx"
)

// The four drying spots on Rishiri, with the AMeDAS-adjacent coordinates
// used for archive lookups.
var defaultSpots = []models.Spot{
	{Name: "oshidomari", Latitude: 45.242, Longitude: 141.230, Active: true},
	{Name: "kutsugata", Latitude: 45.178, Longitude: 141.138, Active: true},
	{Name: "oniwaki", Latitude: 45.108, Longitude: 141.288, Active: true},
	{Name: "senposhi", Latitude: 45.098, Longitude: 141.204, Active: true},
}

const (
	rishiriLat = 45.178
	rishiriLon = 141.228
)

type globals struct {
	DB           string `env:"KELPDRY_DB" default:"data/kelpdry.db" help:"Path to SQLite database."`
	FieldLog     string `env:"KELPDRY_FIELD_LOG" default:"data/field_records.csv" help:"Farmer outcome drop file."`
	QualityLog   string `env:"KELPDRY_QUALITY_LOG" default:"data/quality_log.jsonl" help:"Append-only quality audit log."`
	ModelPath    string `env:"KELPDRY_MODEL" default:"data/drying_model.json" help:"Trained model artifact."`
	WeatherURL   string `env:"KELPDRY_WEATHER_URL" default:"" help:"Override weather archive base URL."`
}

type cli struct {
	globals

	Migrate        migrateCmd        `cmd:"" help:"Apply database migrations and seed spots."`
	Analyze        analyzeCmd        `cmd:"" help:"Score archived forecasts against observations for one target date."`
	Backfill       backfillCmd       `cmd:"" help:"Score every target date in a range."`
	Summary        summaryCmd        `cmd:"" help:"Report aggregate forecast accuracy."`
	ProcessRecords processRecordsCmd `cmd:"" name:"process-records" help:"Ingest new field outcomes into the training set."`
	Retrain        retrainCmd        `cmd:"" help:"Rebuild the drying-viability model from the training set."`
	QualitySummary qualitySummaryCmd `cmd:"" name:"quality-summary" help:"Report the quality distribution of field records."`
	Serve          serveCmd          `cmd:"" help:"Serve metrics and read-only accuracy endpoints."`
}

func main() {
	var c cli
	ktx := kong.Parse(&c,
		kong.Name("kelpdry"),
		kong.Description("Forecast accuracy tracking and adaptive retraining for kombu drying."),
		kong.Configuration(kongdotenv.ENVFileReader, ".env"),
	)
	ktx.FatalIfErrorf(ktx.Run(&c.globals))
}

func openStore(g *globals) (*store.Store, *sql.DB, error) {
	db, err := sql.Open("sqlite", g.DB)
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}
	db.Exec("PRAGMA journal_mode=WAL")
	db.Exec("PRAGMA busy_timeout=5000")

	st := store.New(db)
	if err := st.Migrate(); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("migrate: %w", err)
	}
	return st, db, nil
}

func weatherClient(g *globals) *weatherctx.Client {
	if g.WeatherURL != "" {
		return weatherctx.NewClientWithBaseURL(g.WeatherURL, rishiriLat, rishiriLon)
	}
	return weatherctx.NewClient(rishiriLat, rishiriLon)
}

type migrateCmd struct{}

func (m *migrateCmd) Run(g *globals) error {
	st, db, err := openStore(g)
	if err != nil {
		return err
	}
	defer db.Close()

	for _, spot := range defaultSpots {
		if err := st.UpsertSpot(spot); err != nil {
			return fmt.Errorf("seed spot %s: %w", spot.Name, err)
		}
	}

	version, err := st.MigrationVersion()
	if err != nil {
		return err
	}
	log.Printf("database at migration %d, %d spots seeded", version, len(defaultSpots))
	return nil
}

type analyzeCmd struct {
	Date string `help:"Target date to score (YYYY-MM-DD), default yesterday."`
}

func (a *analyzeCmd) Run(g *globals) error {
	st, db, err := openStore(g)
	if err != nil {
		return err
	}
	defer db.Close()

	target := time.Now().AddDate(0, 0, -1)
	if a.Date != "" {
		if target, err = time.Parse("2006-01-02", a.Date); err != nil {
			return fmt.Errorf("parse --date: %w", err)
		}
	}

	analyzer := accuracy.NewAnalyzer(st, config.Default())
	_, err = analyzer.Run(target)
	return err
}

type backfillCmd struct {
	Start string `required:"" help:"First target date (YYYY-MM-DD)."`
	End   string `required:"" help:"Last target date (YYYY-MM-DD)."`
}

func (b *backfillCmd) Run(g *globals) error {
	st, db, err := openStore(g)
	if err != nil {
		return err
	}
	defer db.Close()

	start, err := time.Parse("2006-01-02", b.Start)
	if err != nil {
		return fmt.Errorf("parse --start: %w", err)
	}
	end, err := time.Parse("2006-01-02", b.End)
	if err != nil {
		return fmt.Errorf("parse --end: %w", err)
	}

	analyzer := accuracy.NewAnalyzer(st, config.Default())
	result, err := analyzer.Backfill(start, end)
	if err != nil {
		return err
	}
	log.Printf("analyzer: backfill scored=%d skipped=%d failed=%d",
		result.Scored, result.Skipped, result.Failed)
	return nil
}

type summaryCmd struct {
	DaysAhead int    `help:"Restrict to one forecast horizon (1-6)."`
	Start     string `help:"First target date (YYYY-MM-DD)."`
	End       string `help:"Last target date (YYYY-MM-DD)."`
}

func (s *summaryCmd) Run(g *globals) error {
	st, db, err := openStore(g)
	if err != nil {
		return err
	}
	defer db.Close()

	filter := store.SummaryFilter{DaysAhead: s.DaysAhead}
	if s.Start != "" {
		if filter.Start, err = time.Parse("2006-01-02", s.Start); err != nil {
			return fmt.Errorf("parse --start: %w", err)
		}
	}
	if s.End != "" {
		if filter.End, err = time.Parse("2006-01-02", s.End); err != nil {
			return fmt.Errorf("parse --end: %w", err)
		}
	}

	sum, err := st.QueryAccuracySummary(filter)
	if err != nil {
		return err
	}
	if sum == nil {
		fmt.Println("no accuracy records match")
		return nil
	}

	fmt.Printf("forecasts analyzed: %d\n", sum.TotalForecasts)
	printMAE := func(name string, v sql.NullFloat64, unit string) {
		if v.Valid {
			fmt.Printf("%s MAE: %.2f%s\n", name, v.Float64, unit)
		} else {
			fmt.Printf("%s MAE: n/a\n", name)
		}
	}
	printMAE("temperature", sum.TempMAE, "°C")
	printMAE("humidity", sum.HumidityMAE, "%")
	printMAE("wind", sum.WindMAE, " m/s")
	if sum.PrecipitationHitRate.Valid {
		fmt.Printf("precipitation hit rate: %.1f%%\n", sum.PrecipitationHitRate.Float64)
	}
	if sum.ForecastAccuracy.Valid {
		fmt.Printf("drying forecast accuracy: %.1f%%\n", sum.ForecastAccuracy.Float64)
	}

	horizons, err := st.QueryAccuracyByHorizon()
	if err != nil {
		return err
	}
	for _, h := range horizons {
		fmt.Printf("  %d days ahead: n=%d mean score %.1f\n", h.DaysAhead, h.Count, h.MeanOverallScore)
	}
	return nil
}

type processRecordsCmd struct{}

func (p *processRecordsCmd) Run(g *globals) error {
	st, db, err := openStore(g)
	if err != nil {
		return err
	}
	defer db.Close()

	retrainer := learning.NewRetrainer(st,
		fieldlog.NewReader(g.FieldLog),
		weatherClient(g),
		quality.NewLog(g.QualityLog),
		config.Default(), g.ModelPath)

	admitted, err := retrainer.ProcessNewRecords(context.Background())
	if err != nil {
		return err
	}
	count, err := st.CountTrainingSamples()
	if err != nil {
		return err
	}
	if admitted {
		log.Printf("retrain: training set now %d samples", count)
	} else {
		log.Printf("retrain: no new samples, training set holds %d", count)
	}
	return nil
}

type retrainCmd struct{}

func (r *retrainCmd) Run(g *globals) error {
	st, db, err := openStore(g)
	if err != nil {
		return err
	}
	defer db.Close()

	retrainer := learning.NewRetrainer(st,
		fieldlog.NewReader(g.FieldLog),
		weatherClient(g),
		quality.NewLog(g.QualityLog),
		config.Default(), g.ModelPath)

	artifact, err := retrainer.Retrain()
	if errors.Is(err, learning.ErrInsufficientData) {
		log.Printf("retrain: %v, keeping current model", err)
		return nil
	}
	if err != nil {
		return err
	}
	log.Printf("retrain: model saved to %s (cv accuracy %.3f±%.3f)",
		g.ModelPath, artifact.CVAccuracy, artifact.CVStd)
	return nil
}

type serveCmd struct {
	Port string `env:"KELPDRY_PORT" default:"8080" help:"HTTP server port."`
}

func (s *serveCmd) Run(g *globals) error {
	st, db, err := openStore(g)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	log.Printf("starting server on :%s", s.Port)
	return api.NewServer(st, s.Port, g.ModelPath).Run(ctx)
}

type qualitySummaryCmd struct {
	Since string `help:"Only include entries on or after this date (YYYY-MM-DD)."`
}

func (q *qualitySummaryCmd) Run(g *globals) error {
	var since time.Time
	if q.Since != "" {
		var err error
		if since, err = time.Parse("2006-01-02", q.Since); err != nil {
			return fmt.Errorf("parse --since: %w", err)
		}
	}

	entries, err := quality.NewLog(g.QualityLog).ReadAll(since)
	if err != nil {
		return err
	}
	sum := quality.Summarize(entries)

	fmt.Printf("records: %d\n", sum.TotalRecords)
	fmt.Printf("  high quality (>=80):   %d\n", sum.HighQuality)
	fmt.Printf("  medium quality (60-79): %d\n", sum.MediumQuality)
	fmt.Printf("  low quality (40-59):    %d\n", sum.LowQuality)
	fmt.Printf("  excluded (<40):         %d\n", sum.Excluded)
	for result, st := range sum.ByResult {
		fmt.Printf("  %s: n=%d avg quality %.1f\n", result, st.Count, st.AvgQuality)
	}
	return nil
}
