// Package pipeline chains stage classifiers into one composite decision.
package pipeline

import (
	"fmt"

	"github.com/GoSim-25-26J-441/onionpop/internal/circuit_classification/classifier"
	"github.com/GoSim-25-26J-441/onionpop/internal/circuit_classification/domain"
	"github.com/GoSim-25-26J-441/onionpop/internal/circuit_classification/features"
)

// Pipeline is an ordered, immutable list of stages. It is safe for
// concurrent Classify calls as long as each call gets its own Features.
type Pipeline struct {
	stages []classifier.Stage
}

func FromStages(stages ...classifier.Stage) (*Pipeline, error) {
	if len(stages) == 0 {
		return nil, domain.ErrEmptyPipeline
	}
	for i, s := range stages {
		if s == nil {
			return nil, fmt.Errorf("pipeline: stage %d is nil", i)
		}
	}
	out := make([]classifier.Stage, len(stages))
	copy(out, stages)
	return &Pipeline{stages: out}, nil
}

func (p *Pipeline) Len() int { return len(p.stages) }

func (p *Pipeline) Stages() []classifier.Stage {
	out := make([]classifier.Stage, len(p.stages))
	copy(out, p.stages)
	return out
}

func (p *Pipeline) Names() []string {
	out := make([]string, len(p.stages))
	for i, s := range p.stages {
		out[i] = s.Name()
	}
	return out
}

// Last is the stage Compose takes from a pipeline.
func (p *Pipeline) Last() classifier.Stage { return p.stages[len(p.stages)-1] }

// Classify runs the stages in order. The first negative stage stops the run
// and its own confidence is reported. When all stages are positive the
// confidence is the product of the stage confidences. Any stage error
// aborts the whole classification.
func (p *Pipeline) Classify(f *features.Features) (domain.Decision, error) {
	results := make([]domain.StageResult, 0, len(p.stages))
	overall := 1.0

	for i, s := range p.stages {
		detected, conf, err := classifier.Predict(s, f)
		if err != nil {
			return domain.Decision{}, fmt.Errorf("pipeline stage %d: %w", i, err)
		}
		results = append(results, domain.StageResult{Stage: s.Name(), Detected: detected, Confidence: conf})
		if !detected {
			return domain.Decision{Detected: false, Confidence: conf, Stages: results}, nil
		}
		overall *= conf
	}
	return domain.Decision{Detected: true, Confidence: overall, Stages: results}, nil
}

// ClassifyCircuit wraps the circuit in a fresh Features.
func (p *Pipeline) ClassifyCircuit(c *domain.Circuit) (domain.Decision, error) {
	return p.Classify(features.New(c))
}

// Compose builds a pipeline from the last stage of each input, in order.
func Compose(ps ...*Pipeline) (*Pipeline, error) {
	if len(ps) == 0 {
		return nil, domain.ErrEmptyPipeline
	}
	stages := make([]classifier.Stage, 0, len(ps))
	for i, p := range ps {
		if p == nil || p.Len() == 0 {
			return nil, fmt.Errorf("compose input %d: %w", i, domain.ErrEmptyPipeline)
		}
		stages = append(stages, p.Last())
	}
	return FromStages(stages...)
}

// Snapshot is the serializable form of a trained pipeline.
type Snapshot struct {
	Stages []classifier.Snapshot `json:"stages"`
}

func (p *Pipeline) Snapshot() (Snapshot, error) {
	snap := Snapshot{Stages: make([]classifier.Snapshot, 0, len(p.stages))}
	for i, s := range p.stages {
		ss, err := s.Snapshot()
		if err != nil {
			return Snapshot{}, fmt.Errorf("snapshot stage %d (%s): %w", i, s.Name(), err)
		}
		snap.Stages = append(snap.Stages, ss)
	}
	return snap, nil
}

func Restore(snap Snapshot) (*Pipeline, error) {
	stages := make([]classifier.Stage, 0, len(snap.Stages))
	for i, ss := range snap.Stages {
		s, err := classifier.Restore(ss)
		if err != nil {
			return nil, fmt.Errorf("restore stage %d: %w", i, err)
		}
		stages = append(stages, s)
	}
	return FromStages(stages...)
}
