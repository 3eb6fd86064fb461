package learning

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// FeatureNames is the fixed column order of the training matrix. The
// artifact records it so a reader can audit what the model consumes.
var FeatureNames = []string{"radiation_sum", "wind_avg", "humidity_max", "precipitation_max"}

// Artifact is the persisted model plus its training provenance.
type Artifact struct {
	Model        *Ensemble `json:"model"`
	Features     []string  `json:"features"`
	TrainingSize int       `json:"training_size"`
	SuccessRate  float64   `json:"success_rate"`
	CVAccuracy   float64   `json:"cv_accuracy"`
	CVStd        float64   `json:"cv_std"`
	TrainedAt    time.Time `json:"trained_at"`
}

// Predict returns the viability probability for one weather context row
// in FeatureNames order.
func (a *Artifact) Predict(x []float64) (float64, error) {
	if a.Model == nil {
		return 0, fmt.Errorf("artifact has no model")
	}
	if len(x) != len(a.Features) {
		return 0, fmt.Errorf("expected %d features, got %d", len(a.Features), len(x))
	}
	return a.Model.PredictProba(x), nil
}

// SaveArtifact writes the artifact to path atomically: the previous
// artifact stays intact unless the full write succeeds.
func SaveArtifact(path string, a *Artifact) error {
	data, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal model artifact: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".model-*.json")
	if err != nil {
		return fmt.Errorf("create temp artifact: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write model artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close model artifact: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace model artifact: %w", err)
	}
	return nil
}

// LoadArtifact reads a previously saved artifact. A missing file
// returns (nil, nil) so callers can treat "no model yet" as normal.
func LoadArtifact(path string) (*Artifact, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read model artifact: %w", err)
	}
	var a Artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("parse model artifact: %w", err)
	}
	return &a, nil
}
