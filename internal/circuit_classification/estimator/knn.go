package estimator

import (
	"fmt"
	"math"
	"sort"

	"github.com/GoSim-25-26J-441/onionpop/internal/circuit_classification/domain"
)

const DefaultK = 5

// KNN is a k-nearest-neighbour vote over L1 distance, the distance used by
// the Wang et al. website fingerprinting attack.
type KNN struct {
	K int         `json:"k"`
	X [][]float64 `json:"x,omitempty"`
	Y []float64   `json:"y,omitempty"`
}

func NewKNN(k int) (*KNN, error) {
	if k <= 0 {
		return nil, fmt.Errorf("knn: k must be positive, got %d", k)
	}
	return &KNN{K: k}, nil
}

func (m *KNN) Fit(X [][]float64, y []float64) error {
	if _, err := dimension(X); err != nil {
		return fmt.Errorf("knn fit: %w", err)
	}
	if len(X) != len(y) {
		return fmt.Errorf("knn fit: %d samples but %d labels", len(X), len(y))
	}
	m.X = X
	m.Y = y
	return nil
}

func (m *KNN) Fitted() bool { return m != nil && len(m.X) > 0 }

type neighbour struct {
	dist  float64
	label float64
}

// Predict returns the majority label of the K nearest samples. Ties go to
// the label whose nearest member is closest.
func (m *KNN) Predict(x []float64) (float64, error) {
	if !m.Fitted() {
		return 0, domain.ErrNotTrained
	}
	if len(x) != len(m.X[0]) {
		return 0, fmt.Errorf("knn: %w: want %d, got %d", domain.ErrDimensionMismatch, len(m.X[0]), len(x))
	}

	ns := make([]neighbour, len(m.X))
	for i, row := range m.X {
		ns[i] = neighbour{dist: manhattan(row, x), label: m.Y[i]}
	}
	sort.SliceStable(ns, func(i, j int) bool { return ns[i].dist < ns[j].dist })

	k := m.K
	if k > len(ns) {
		k = len(ns)
	}
	votes := map[float64]int{}
	nearest := map[float64]float64{}
	for _, n := range ns[:k] {
		votes[n.label]++
		if _, ok := nearest[n.label]; !ok {
			nearest[n.label] = n.dist
		}
	}

	best, bestVotes, bestDist := 0.0, -1, math.Inf(1)
	for label, v := range votes {
		d := nearest[label]
		if v > bestVotes || (v == bestVotes && d < bestDist) {
			best, bestVotes, bestDist = label, v, d
		}
	}
	return best, nil
}

func manhattan(a, b []float64) float64 {
	var s float64
	for i := range a {
		s += math.Abs(a[i] - b[i])
	}
	return s
}
