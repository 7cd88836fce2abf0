package service

import (
	"errors"

	"github.com/GoSim-25-26J-441/onionpop/internal/circuit_classification/domain"
	"github.com/GoSim-25-26J-441/onionpop/internal/circuit_classification/features"
)

// FeatureReport is every vector and summary the extractors produce for one
// circuit.
type FeatureReport struct {
	ChanID          uint64         `json:"chan_id"`
	CircID          uint64         `json:"circ_id"`
	CellCount       int            `json:"cell_count"`
	Cumul           []float64      `json:"cumul,omitempty"`
	Purpose         []float64      `json:"purpose"`
	PurposeNames    []string       `json:"purpose_names"`
	Counts          map[string]int `json:"counts"`
	InitialSequence string         `json:"initial_sequence"`
	Lifetime        float64        `json:"lifetime"`
}

const initialSequenceLen = 10

// ExtractFeatures reports the feature vectors of c. An empty trace has no
// CUMUL vector; it is omitted rather than reported as an error.
func ExtractFeatures(c *domain.Circuit, points int, conv features.SequenceConvention) (*FeatureReport, error) {
	if c == nil {
		return nil, domain.ErrInvalidTrace
	}
	f := features.New(c)
	cumul, err := f.Cumul(points, conv)
	if err != nil && !errors.Is(err, domain.ErrEmptyTrace) {
		return nil, err
	}
	return &FeatureReport{
		ChanID:          c.ChanID,
		CircID:          c.CircID,
		CellCount:       c.Len(),
		Cumul:           cumul,
		Purpose:         f.Purpose(),
		PurposeNames:    features.PurposeFeatureNames(),
		Counts:          features.CountCells(c, 0).Named(),
		InitialSequence: features.InitialCellSequence(c, initialSequenceLen),
		Lifetime:        features.Lifetime(c),
	}, nil
}
