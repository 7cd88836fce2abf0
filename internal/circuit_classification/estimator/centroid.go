// Package estimator holds small reference estimators that satisfy the
// classifier capabilities. Production deployments may plug in any estimator
// with the same Fit / Predict / Decision contract.
package estimator

import (
	"fmt"
	"math"
	"sort"

	"github.com/GoSim-25-26J-441/onionpop/internal/circuit_classification/domain"
)

// DefaultNu is the expected outlier fraction of the training data.
const DefaultNu = 0.5

// Centroid is a one-class estimator: a sample is an inlier when it lies
// within Radius of the training mean. Radius is the (1-Nu) quantile of the
// training distances.
type Centroid struct {
	Nu     float64   `json:"nu"`
	Center []float64 `json:"center,omitempty"`
	Radius float64   `json:"radius"`
}

func NewCentroid(nu float64) (*Centroid, error) {
	if nu <= 0 || nu > 1 {
		return nil, fmt.Errorf("centroid: nu must be in (0, 1], got %v", nu)
	}
	return &Centroid{Nu: nu}, nil
}

func (c *Centroid) Fit(X [][]float64) error {
	dim, err := dimension(X)
	if err != nil {
		return fmt.Errorf("centroid fit: %w", err)
	}

	center := make([]float64, dim)
	for _, row := range X {
		for j, v := range row {
			center[j] += v
		}
	}
	for j := range center {
		center[j] /= float64(len(X))
	}

	dists := make([]float64, len(X))
	for i, row := range X {
		dists[i] = euclidean(row, center)
	}
	sort.Float64s(dists)

	idx := int(math.Ceil((1-c.Nu)*float64(len(dists)))) - 1
	if idx < 0 {
		idx = 0
	}
	c.Center = center
	c.Radius = dists[idx]
	return nil
}

func (c *Centroid) Fitted() bool { return c != nil && len(c.Center) > 0 }

// Decision is the signed distance to the boundary, positive for inliers.
func (c *Centroid) Decision(x []float64) (float64, error) {
	if !c.Fitted() {
		return 0, domain.ErrNotTrained
	}
	if len(x) != len(c.Center) {
		return 0, fmt.Errorf("centroid: %w: want %d, got %d", domain.ErrDimensionMismatch, len(c.Center), len(x))
	}
	return c.Radius - euclidean(x, c.Center), nil
}

// Predict returns +1 for inliers and -1 for outliers.
func (c *Centroid) Predict(x []float64) (int, error) {
	d, err := c.Decision(x)
	if err != nil {
		return 0, err
	}
	if d >= 0 {
		return 1, nil
	}
	return -1, nil
}

func euclidean(a, b []float64) float64 {
	var s float64
	for i := range a {
		d := a[i] - b[i]
		s += d * d
	}
	return math.Sqrt(s)
}

func dimension(X [][]float64) (int, error) {
	if len(X) == 0 {
		return 0, fmt.Errorf("no training samples")
	}
	dim := len(X[0])
	if dim == 0 {
		return 0, fmt.Errorf("training samples have no features")
	}
	for i, row := range X {
		if len(row) != dim {
			return 0, fmt.Errorf("%w: row %d has %d features, want %d", domain.ErrDimensionMismatch, i, len(row), dim)
		}
	}
	return dim, nil
}
