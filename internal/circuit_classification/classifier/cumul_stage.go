package classifier

import (
	"encoding/json"
	"fmt"

	"github.com/GoSim-25-26J-441/onionpop/internal/circuit_classification/estimator"
	"github.com/GoSim-25-26J-441/onionpop/internal/circuit_classification/features"
)

const OneClassCUMULName = "OneClassCUMUL"

// OneClassCUMUL answers "is this circuit traffic to the monitored site?".
// It standardizes CUMUL vectors and scores them with a one-class estimator;
// the decision function doubles as the confidence.
type OneClassCUMUL struct {
	params     Params
	points     int
	convention features.SequenceConvention
	scaler     StandardScaler
	model      OneClassEstimator
}

type oneClassState struct {
	Scaler StandardScaler  `json:"scaler"`
	Model  json.RawMessage `json:"model"`
}

// NewOneClassCUMUL reads nu, interpolation_points and sequence from params
// and uses the reference centroid estimator.
func NewOneClassCUMUL(params Params) (*OneClassCUMUL, error) {
	nu, err := params.Float("nu", estimator.DefaultNu)
	if err != nil {
		return nil, err
	}
	model, err := estimator.NewCentroid(nu)
	if err != nil {
		return nil, err
	}
	return NewOneClassCUMULWith(model, params)
}

// NewOneClassCUMULWith wires a caller-supplied one-class estimator.
func NewOneClassCUMULWith(model OneClassEstimator, params Params) (*OneClassCUMUL, error) {
	points, err := params.Int("interpolation_points", features.DefaultInterpolationPoints)
	if err != nil {
		return nil, err
	}
	if points <= 0 {
		return nil, fmt.Errorf("%s: interpolation_points must be positive, got %d", OneClassCUMULName, points)
	}
	conv, err := features.ParseSequenceConvention(params.String("sequence", ""))
	if err != nil {
		return nil, err
	}
	if params == nil {
		params = Params{}
	}
	return &OneClassCUMUL{params: params, points: points, convention: conv, model: model}, nil
}

func (s *OneClassCUMUL) Name() string { return OneClassCUMULName }

// CumulSettings reports the resolution and sign convention the stage
// extracts with.
func (s *OneClassCUMUL) CumulSettings() (int, features.SequenceConvention) {
	return s.points, s.convention
}

func (s *OneClassCUMUL) ExtractFeatures(f *features.Features) ([]float64, error) {
	if f == nil {
		return nil, nil
	}
	return f.Cumul(s.points, s.convention)
}

// Train fits on positive samples; labels are ignored.
func (s *OneClassCUMUL) Train(X [][]float64, _ []float64) error {
	scaled, err := s.scaler.FitTransform(X)
	if err != nil {
		return fmt.Errorf("%s: %w", OneClassCUMULName, err)
	}
	if err := s.model.Fit(scaled); err != nil {
		return fmt.Errorf("%s: %w", OneClassCUMULName, err)
	}
	return nil
}

func (s *OneClassCUMUL) Trained() bool {
	return s.model.Fitted() && len(s.scaler.Mean) > 0
}

func (s *OneClassCUMUL) PredictWithConfidence(fv []float64) (bool, float64, error) {
	x, err := s.scaler.Transform(fv)
	if err != nil {
		return false, 0, fmt.Errorf("%s: %w", OneClassCUMULName, err)
	}
	score, err := s.model.Decision(x)
	if err != nil {
		return false, 0, fmt.Errorf("%s: %w", OneClassCUMULName, err)
	}
	label, err := s.model.Predict(x)
	if err != nil {
		return false, 0, fmt.Errorf("%s: %w", OneClassCUMULName, err)
	}
	return label == 1, score, nil
}

func (s *OneClassCUMUL) Snapshot() (Snapshot, error) {
	model, err := json.Marshal(s.model)
	if err != nil {
		return Snapshot{}, err
	}
	state, err := json.Marshal(oneClassState{Scaler: s.scaler, Model: model})
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{Classifier: OneClassCUMULName, Params: s.params, State: state}, nil
}

func (s *OneClassCUMUL) LoadState(state json.RawMessage) error {
	if len(state) == 0 {
		return nil
	}
	var st oneClassState
	if err := json.Unmarshal(state, &st); err != nil {
		return fmt.Errorf("%s: decode state: %w", OneClassCUMULName, err)
	}
	if len(st.Model) > 0 {
		if err := json.Unmarshal(st.Model, s.model); err != nil {
			return fmt.Errorf("%s: decode model: %w", OneClassCUMULName, err)
		}
	}
	s.scaler = st.Scaler
	return nil
}
