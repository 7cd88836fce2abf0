package classifier

import (
	"fmt"
	"sort"

	"github.com/GoSim-25-26J-441/onionpop/internal/circuit_classification/domain"
)

// Factory builds an untrained stage from its config params.
type Factory func(params Params) (Stage, error)

var registered = map[string]Factory{
	OneClassCUMULName: func(p Params) (Stage, error) {
		return NewOneClassCUMUL(p)
	},
	PositionClassifierName: func(p Params) (Stage, error) {
		return NewPositionClassifier(p)
	},
	PurposeClassifierName: func(p Params) (Stage, error) {
		return NewPurposeClassifier(p)
	},
}

func Register(name string, f Factory) {
	if name == "" || f == nil {
		return
	}
	registered[name] = f
}

func Names() []string {
	out := make([]string, 0, len(registered))
	for name := range registered {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func New(name string, params Params) (Stage, error) {
	f, ok := registered[name]
	if !ok {
		return nil, fmt.Errorf("classifier %q: %w", name, domain.ErrUnknownClassifier)
	}
	return f(params)
}

// Restore rebuilds a trained stage from its snapshot.
func Restore(snap Snapshot) (Stage, error) {
	s, err := New(snap.Classifier, snap.Params)
	if err != nil {
		return nil, err
	}
	if err := s.LoadState(snap.State); err != nil {
		return nil, err
	}
	return s, nil
}
