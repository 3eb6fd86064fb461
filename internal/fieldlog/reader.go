// Package fieldlog reads farmer-reported drying outcomes from the CSV
// drop file. Rows are date,spot,result; malformed rows are logged and
// skipped so one bad entry never blocks the batch.
package fieldlog

import (
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/rishirikelp/kelpdry/internal/models"
)

type Reader struct {
	path string
}

func NewReader(path string) *Reader {
	return &Reader{path: path}
}

// ReadOutcomes parses the drop file. A missing file reads as empty.
func (r *Reader) ReadOutcomes() ([]models.FieldOutcome, error) {
	f, err := os.Open(r.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open field log: %w", err)
	}
	defer f.Close()

	cr := csv.NewReader(f)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	var outcomes []models.FieldOutcome
	line := 0
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			log.Printf("fieldlog: line %d unreadable, skipping: %v", line, err)
			continue
		}
		if line == 1 && strings.EqualFold(record[0], "date") {
			continue
		}

		outcome, err := parseRow(record)
		if err != nil {
			log.Printf("fieldlog: line %d invalid, skipping: %v", line, err)
			continue
		}
		outcomes = append(outcomes, outcome)
	}
	return outcomes, nil
}

func parseRow(record []string) (models.FieldOutcome, error) {
	if len(record) < 3 {
		return models.FieldOutcome{}, fmt.Errorf("expected 3 fields, got %d", len(record))
	}

	date, err := time.Parse("2006-01-02", strings.TrimSpace(record[0]))
	if err != nil {
		return models.FieldOutcome{}, fmt.Errorf("bad date %q: %w", record[0], err)
	}

	spot := strings.TrimSpace(record[1])
	if spot == "" {
		return models.FieldOutcome{}, fmt.Errorf("empty spot name")
	}

	result := strings.ToLower(strings.TrimSpace(record[2]))
	switch result {
	case models.ResultComplete, models.ResultPartial, models.ResultAborted:
	default:
		return models.FieldOutcome{}, fmt.Errorf("unknown result %q", record[2])
	}

	return models.FieldOutcome{Date: date, SpotName: spot, Result: result}, nil
}
