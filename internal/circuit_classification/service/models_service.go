package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/GoSim-25-26J-441/onionpop/internal/circuit_classification/domain"
	"github.com/GoSim-25-26J-441/onionpop/internal/circuit_classification/features"
)

// ModelInfo describes one stored model.
type ModelInfo struct {
	Name    string     `json:"name"`
	SavedAt *time.Time `json:"saved_at,omitempty"`
	Current bool       `json:"current"`
	Served  bool       `json:"served"`
}

type modelLister interface {
	List(ctx context.Context) ([]string, error)
}

type savedAtReporter interface {
	SavedAt(ctx context.Context, name string) (time.Time, error)
}

// Models lists the store's models. Current marks the serving alias target,
// Served the model this instance has loaded.
func (s *ClassificationService) Models(ctx context.Context) ([]ModelInfo, error) {
	lister, ok := s.store.(modelLister)
	if !ok {
		return nil, domain.ErrListingUnsupported
	}
	names, err := lister.List(ctx)
	if err != nil {
		return nil, err
	}

	current := ""
	if cp, ok := s.store.(currentPointer); ok {
		current, _ = cp.Current(ctx)
	}
	served := ""
	if m := s.Current(); m != nil {
		served = m.Name
	}
	reporter, _ := s.store.(savedAtReporter)

	out := make([]ModelInfo, 0, len(names))
	for _, name := range names {
		info := ModelInfo{Name: name, Current: name == current, Served: name == served}
		if reporter != nil {
			at, err := reporter.SavedAt(ctx, name)
			if err != nil {
				s.log.Warn("model save time unavailable", zap.String("model", name), zap.Error(err))
			} else {
				info.SavedAt = &at
			}
		}
		out = append(out, info)
	}
	return out, nil
}

type cumulStage interface {
	CumulSettings() (int, features.SequenceConvention)
}

// FeatureSettings returns the CUMUL resolution and convention of the served
// model's first CUMUL stage, or the given defaults.
func (s *ClassificationService) FeatureSettings(points int, conv features.SequenceConvention) (int, features.SequenceConvention) {
	m := s.Current()
	if m == nil {
		return points, conv
	}
	for _, st := range m.Pipeline.Stages() {
		if cs, ok := st.(cumulStage); ok {
			return cs.CumulSettings()
		}
	}
	return points, conv
}
