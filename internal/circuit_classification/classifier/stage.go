package classifier

import (
	"encoding/json"
	"fmt"

	"github.com/GoSim-25-26J-441/onionpop/internal/circuit_classification/domain"
	"github.com/GoSim-25-26J-441/onionpop/internal/circuit_classification/features"
)

// OneClassEstimator is fitted on positive samples only.
type OneClassEstimator interface {
	Fit(X [][]float64) error
	// Decision is the signed distance to the boundary, positive inside.
	Decision(x []float64) (float64, error)
	// Predict returns +1 for inliers, -1 for outliers.
	Predict(x []float64) (int, error)
	Fitted() bool
}

// SupervisedEstimator is fitted on labelled samples.
type SupervisedEstimator interface {
	Fit(X [][]float64, y []float64) error
	Predict(x []float64) (float64, error)
	Fitted() bool
}

// Stage is one yes/no sub-decision of the composite pipeline: it knows which
// features it needs and how to turn a vector into (detected, confidence).
type Stage interface {
	Name() string
	ExtractFeatures(f *features.Features) ([]float64, error)
	PredictWithConfidence(fv []float64) (bool, float64, error)
	Train(X [][]float64, y []float64) error
	Trained() bool
	Snapshot() (Snapshot, error)
	LoadState(state json.RawMessage) error
}

// Snapshot is the serializable form of a stage.
type Snapshot struct {
	Classifier string          `json:"classifier"`
	Params     Params          `json:"params,omitempty"`
	State      json.RawMessage `json:"state,omitempty"`
}

// Predict runs one stage against a circuit's features. A circuit without
// cells carries no evidence for any stage and yields ErrNoFeatures.
func Predict(s Stage, f *features.Features) (bool, float64, error) {
	if !s.Trained() {
		return false, 0, fmt.Errorf("stage %q: %w", s.Name(), domain.ErrNotTrained)
	}
	if f != nil && f.Circuit() != nil && f.Circuit().Len() == 0 {
		return false, 0, fmt.Errorf("stage %q: %w: %w", s.Name(), domain.ErrNoFeatures, domain.ErrEmptyTrace)
	}
	fv, err := s.ExtractFeatures(f)
	if err != nil {
		return false, 0, fmt.Errorf("stage %q: %w: %w", s.Name(), domain.ErrNoFeatures, err)
	}
	if len(fv) == 0 {
		return false, 0, fmt.Errorf("stage %q: %w", s.Name(), domain.ErrNoFeatures)
	}
	return s.PredictWithConfidence(fv)
}
