package classifier

import (
	"encoding/json"
	"fmt"

	"github.com/GoSim-25-26J-441/onionpop/internal/circuit_classification/estimator"
	"github.com/GoSim-25-26J-441/onionpop/internal/circuit_classification/features"
)

const (
	PositionClassifierName = "PositionClassifier"
	PurposeClassifierName  = "PurposeClassifier"

	// countingConfidence is reported for every positive/negative counting
	// verdict; the reference estimators expose no probability.
	countingConfidence = 1.0
)

// countingStage is a supervised binary stage over the counting vector.
type countingStage struct {
	name    string
	params  Params
	model   SupervisedEstimator
	extract func(f *features.Features) []float64
}

func newCountingStage(name string, params Params, extract func(*features.Features) []float64) (countingStage, error) {
	k, err := params.Int("k", estimator.DefaultK)
	if err != nil {
		return countingStage{}, err
	}
	model, err := estimator.NewKNN(k)
	if err != nil {
		return countingStage{}, err
	}
	if params == nil {
		params = Params{}
	}
	return countingStage{name: name, params: params, model: model, extract: extract}, nil
}

func (s *countingStage) Name() string { return s.name }

func (s *countingStage) ExtractFeatures(f *features.Features) ([]float64, error) {
	if f == nil {
		return nil, nil
	}
	return s.extract(f), nil
}

func (s *countingStage) Train(X [][]float64, y []float64) error {
	if err := s.model.Fit(X, y); err != nil {
		return fmt.Errorf("%s: %w", s.name, err)
	}
	return nil
}

func (s *countingStage) Trained() bool { return s.model.Fitted() }

func (s *countingStage) PredictWithConfidence(fv []float64) (bool, float64, error) {
	label, err := s.model.Predict(fv)
	if err != nil {
		return false, 0, fmt.Errorf("%s: %w", s.name, err)
	}
	return label == 1, countingConfidence, nil
}

func (s *countingStage) Snapshot() (Snapshot, error) {
	state, err := json.Marshal(s.model)
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{Classifier: s.name, Params: s.params, State: state}, nil
}

func (s *countingStage) LoadState(state json.RawMessage) error {
	if len(state) == 0 {
		return nil
	}
	if err := json.Unmarshal(state, s.model); err != nil {
		return fmt.Errorf("%s: decode model: %w", s.name, err)
	}
	return nil
}

// PositionClassifier answers "is the observing relay in the expected
// position on this circuit?" (label 1).
type PositionClassifier struct {
	countingStage
}

func NewPositionClassifier(params Params) (*PositionClassifier, error) {
	s, err := newCountingStage(PositionClassifierName, params, (*features.Features).Position)
	if err != nil {
		return nil, err
	}
	return &PositionClassifier{s}, nil
}

// PurposeClassifier answers "is this a general-purpose circuit?" (label 1).
type PurposeClassifier struct {
	countingStage
}

func NewPurposeClassifier(params Params) (*PurposeClassifier, error) {
	s, err := newCountingStage(PurposeClassifierName, params, (*features.Features).Purpose)
	if err != nil {
		return nil, err
	}
	return &PurposeClassifier{s}, nil
}
