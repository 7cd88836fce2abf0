package classifier

import (
	"fmt"
	"math"

	"github.com/GoSim-25-26J-441/onionpop/internal/circuit_classification/domain"
)

// StandardScaler removes the column mean and divides by the population
// standard deviation. Constant columns keep a unit scale.
type StandardScaler struct {
	Mean  []float64 `json:"mean,omitempty"`
	Scale []float64 `json:"scale,omitempty"`
}

func (s *StandardScaler) Fit(X [][]float64) error {
	if len(X) == 0 || len(X[0]) == 0 {
		return fmt.Errorf("scaler: no training samples")
	}
	dim := len(X[0])
	mean := make([]float64, dim)
	for i, row := range X {
		if len(row) != dim {
			return fmt.Errorf("scaler: %w: row %d", domain.ErrDimensionMismatch, i)
		}
		for j, v := range row {
			mean[j] += v
		}
	}
	n := float64(len(X))
	for j := range mean {
		mean[j] /= n
	}

	scale := make([]float64, dim)
	for _, row := range X {
		for j, v := range row {
			d := v - mean[j]
			scale[j] += d * d
		}
	}
	for j := range scale {
		scale[j] = math.Sqrt(scale[j] / n)
		if scale[j] == 0 {
			scale[j] = 1
		}
	}

	s.Mean, s.Scale = mean, scale
	return nil
}

func (s *StandardScaler) Transform(x []float64) ([]float64, error) {
	if len(x) != len(s.Mean) {
		return nil, fmt.Errorf("scaler: %w: want %d, got %d", domain.ErrDimensionMismatch, len(s.Mean), len(x))
	}
	out := make([]float64, len(x))
	for j, v := range x {
		out[j] = (v - s.Mean[j]) / s.Scale[j]
	}
	return out, nil
}

func (s *StandardScaler) FitTransform(X [][]float64) ([][]float64, error) {
	if err := s.Fit(X); err != nil {
		return nil, err
	}
	out := make([][]float64, len(X))
	for i, row := range X {
		t, err := s.Transform(row)
		if err != nil {
			return nil, err
		}
		out[i] = t
	}
	return out, nil
}
