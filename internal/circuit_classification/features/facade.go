package features

import (
	"fmt"

	"github.com/GoSim-25-26J-441/onionpop/internal/circuit_classification/domain"
)

const countingKey = "counting"

// Features is the read path classifiers use to get vectors for one circuit.
// Results are memoized per extractor until Reset; callers receive copies.
//
// A Features value is not safe for concurrent use, and the circuit must not
// receive further cells after the first extraction. Distinct circuits can be
// processed concurrently with distinct Features values.
type Features struct {
	circuit *domain.Circuit
	cache   map[string][]float64
}

func New(c *domain.Circuit) *Features {
	return &Features{circuit: c, cache: map[string][]float64{}}
}

func (f *Features) Circuit() *domain.Circuit { return f.circuit }

// Cumul returns the CUMUL vector for the given resolution and convention.
// A nil circuit yields (nil, nil); an empty trace yields ErrEmptyTrace.
func (f *Features) Cumul(points int, conv SequenceConvention) ([]float64, error) {
	if f.circuit == nil {
		return nil, nil
	}
	key := fmt.Sprintf("cumul/%d/%s", points, conv)
	if v, ok := f.cache[key]; ok {
		return clone(v), nil
	}
	v, err := Cumul(CellSequence(f.circuit, conv), points)
	if err != nil {
		return nil, err
	}
	f.cache[key] = v
	return clone(v), nil
}

// WebsiteFingerprint is Cumul with the default resolution and convention.
func (f *Features) WebsiteFingerprint() ([]float64, error) {
	return f.Cumul(DefaultInterpolationPoints, ConventionClient)
}

// Purpose returns the circuit purpose vector, nil for a nil circuit.
func (f *Features) Purpose() []float64 {
	return f.counting()
}

// Position shares the purpose computation and its cache entry.
func (f *Features) Position() []float64 {
	return f.counting()
}

func (f *Features) counting() []float64 {
	if v, ok := f.cache[countingKey]; ok {
		return clone(v)
	}
	v := PurposeFeatures(f.circuit)
	if v != nil {
		f.cache[countingKey] = v
	}
	return clone(v)
}

func clone(v []float64) []float64 {
	if v == nil {
		return nil
	}
	return append(make([]float64, 0, len(v)), v...)
}

// Reset drops every memoized vector.
func (f *Features) Reset() {
	f.cache = map[string][]float64{}
}

// ExtractCumul is the one-shot CUMUL extraction with default settings.
func ExtractCumul(c *domain.Circuit) ([]float64, error) {
	return New(c).WebsiteFingerprint()
}

// ExtractCounting is the one-shot purpose/position extraction.
func ExtractCounting(c *domain.Circuit) []float64 {
	return PurposeFeatures(c)
}
