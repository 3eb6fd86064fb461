// Package api exposes the operational surface: Prometheus metrics, a
// health probe, and read-only JSON views over the accuracy rollups and
// the current model artifact.
package api

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rishirikelp/kelpdry/internal/learning"
	"github.com/rishirikelp/kelpdry/internal/store"
)

type Server struct {
	store        *store.Store
	port         string
	artifactPath string
}

func NewServer(st *store.Store, port, artifactPath string) *Server {
	return &Server{store: st, port: port, artifactPath: artifactPath}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/api/summary", s.handleSummary)
	mux.HandleFunc("/api/horizons", s.handleHorizons)
	mux.HandleFunc("/api/model", s.handleModel)
	return mux
}

func (s *Server) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:    ":" + s.port,
		Handler: s.Handler(),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	filter := store.SummaryFilter{}
	if v := r.URL.Query().Get("days_ahead"); v != "" {
		daysAhead, err := strconv.Atoi(v)
		if err != nil {
			http.Error(w, "invalid days_ahead", http.StatusBadRequest)
			return
		}
		filter.DaysAhead = daysAhead
	}
	if v := r.URL.Query().Get("start"); v != "" {
		start, err := time.Parse("2006-01-02", v)
		if err != nil {
			http.Error(w, "invalid start", http.StatusBadRequest)
			return
		}
		filter.Start = start
	}
	if v := r.URL.Query().Get("end"); v != "" {
		end, err := time.Parse("2006-01-02", v)
		if err != nil {
			http.Error(w, "invalid end", http.StatusBadRequest)
			return
		}
		filter.End = end
	}

	sum, err := s.store.QueryAccuracySummary(filter)
	if err != nil {
		log.Printf("api: summary: %v", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if sum == nil {
		http.Error(w, "no accuracy records", http.StatusNotFound)
		return
	}

	resp := map[string]any{
		"total_forecasts": sum.TotalForecasts,
	}
	if sum.TempMAE.Valid {
		resp["temp_mae"] = sum.TempMAE.Float64
	}
	if sum.HumidityMAE.Valid {
		resp["humidity_mae"] = sum.HumidityMAE.Float64
	}
	if sum.WindMAE.Valid {
		resp["wind_mae"] = sum.WindMAE.Float64
	}
	if sum.PrecipitationHitRate.Valid {
		resp["precipitation_hit_rate"] = sum.PrecipitationHitRate.Float64
	}
	if sum.ForecastAccuracy.Valid {
		resp["forecast_accuracy"] = sum.ForecastAccuracy.Float64
	}
	writeJSON(w, resp)
}

func (s *Server) handleHorizons(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.QueryAccuracyByHorizon()
	if err != nil {
		log.Printf("api: horizons: %v", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	type horizonRow struct {
		DaysAhead        int     `json:"days_ahead"`
		Count            int     `json:"count"`
		MeanOverallScore float64 `json:"mean_overall_score"`
	}
	rows := make([]horizonRow, 0, len(stats))
	for _, h := range stats {
		rows = append(rows, horizonRow{DaysAhead: h.DaysAhead, Count: h.Count, MeanOverallScore: h.MeanOverallScore})
	}
	writeJSON(w, rows)
}

func (s *Server) handleModel(w http.ResponseWriter, r *http.Request) {
	artifact, err := learning.LoadArtifact(s.artifactPath)
	if err != nil {
		log.Printf("api: model: %v", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if artifact == nil {
		http.Error(w, "no model trained yet", http.StatusNotFound)
		return
	}

	writeJSON(w, map[string]any{
		"features":      artifact.Features,
		"training_size": artifact.TrainingSize,
		"success_rate":  artifact.SuccessRate,
		"cv_accuracy":   artifact.CVAccuracy,
		"cv_std":        artifact.CVStd,
		"trained_at":    artifact.TrainedAt,
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("api: encode response: %v", err)
	}
}
