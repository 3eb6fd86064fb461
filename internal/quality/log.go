package quality

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/rishirikelp/kelpdry/internal/models"
)

// Entry is one audit row in the append-only quality log.
type Entry struct {
	Date           string                `json:"date"`
	SpotName       string                `json:"spot_name"`
	Result         string                `json:"result"`
	QualityScore   float64               `json:"quality_score"`
	Recommendation string                `json:"recommendation"`
	Issues         []string              `json:"issues,omitempty"`
	Weather        models.WeatherContext `json:"weather"`
	LoggedAt       time.Time             `json:"logged_at"`
}

// Log is an append-only JSON-lines file of classifier verdicts. Entries
// are never mutated after being written.
type Log struct {
	path string
}

func NewLog(path string) *Log {
	return &Log{path: path}
}

func (l *Log) Append(e Entry) error {
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open quality log: %w", err)
	}
	defer f.Close()

	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal quality entry: %w", err)
	}
	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("append quality entry: %w", err)
	}
	return nil
}

// ReadAll returns every entry dated on or after since; a zero since
// returns the whole log. A missing log file reads as empty.
func (l *Log) ReadAll(since time.Time) ([]Entry, error) {
	f, err := os.Open(l.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open quality log: %w", err)
	}
	defer f.Close()

	var entries []Entry
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var e Entry
		if err := json.Unmarshal(line, &e); err != nil {
			return nil, fmt.Errorf("parse quality log line: %w", err)
		}
		if !since.IsZero() {
			d, err := time.Parse("2006-01-02", e.Date)
			if err != nil || d.Before(since) {
				continue
			}
		}
		entries = append(entries, e)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read quality log: %w", err)
	}
	return entries, nil
}

// Summary buckets log entries by quality band and by reported result.
type Summary struct {
	TotalRecords  int
	HighQuality   int // score >= 80
	MediumQuality int // 60-79
	LowQuality    int // 40-59
	Excluded      int // < 40
	ByResult      map[string]ResultStats
}

type ResultStats struct {
	Count      int
	AvgQuality float64
}

// Summarize rolls up the quality distribution for operator reporting.
func Summarize(entries []Entry) Summary {
	sum := Summary{ByResult: make(map[string]ResultStats)}
	totals := make(map[string]float64)

	for _, e := range entries {
		sum.TotalRecords++
		switch {
		case e.QualityScore >= 80:
			sum.HighQuality++
		case e.QualityScore >= 60:
			sum.MediumQuality++
		case e.QualityScore >= 40:
			sum.LowQuality++
		default:
			sum.Excluded++
		}

		st := sum.ByResult[e.Result]
		st.Count++
		sum.ByResult[e.Result] = st
		totals[e.Result] += e.QualityScore
	}

	for result, st := range sum.ByResult {
		st.AvgQuality = totals[result] / float64(st.Count)
		sum.ByResult[result] = st
	}
	return sum
}
