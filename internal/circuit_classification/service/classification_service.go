package service

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/GoSim-25-26J-441/onionpop/internal/api/http/middleware"
	"github.com/GoSim-25-26J-441/onionpop/internal/circuit_classification/domain"
	"github.com/GoSim-25-26J-441/onionpop/internal/circuit_classification/features"
	"github.com/GoSim-25-26J-441/onionpop/internal/circuit_classification/modelstore"
	"github.com/GoSim-25-26J-441/onionpop/internal/circuit_classification/pipeline"
	"github.com/GoSim-25-26J-441/onionpop/internal/metrics"
)

// DecisionRecorder persists decisions. *repository.DecisionRepository
// satisfies it.
type DecisionRecorder interface {
	Create(ctx context.Context, rec *domain.DecisionRecord) error
}

// LoadedModel is the pipeline currently served.
type LoadedModel struct {
	Name      string             `json:"name"`
	Stages    []string           `json:"stages"`
	CreatedAt time.Time          `json:"created_at"`
	LoadedAt  time.Time          `json:"loaded_at"`
	Pipeline  *pipeline.Pipeline `json:"-"`
}

// ClassificationService classifies circuits against the loaded model.
// Models are swapped atomically; in-flight classifications finish on the
// model they started with.
type ClassificationService struct {
	model     atomic.Pointer[LoadedModel]
	store     modelstore.Store
	decisions DecisionRecorder
	metrics   *metrics.Registry
	log       *zap.Logger
}

// NewClassificationService wires the service. decisions and m may be nil.
func NewClassificationService(store modelstore.Store, decisions DecisionRecorder, m *metrics.Registry, log *zap.Logger) *ClassificationService {
	if log == nil {
		log = zap.NewNop()
	}
	return &ClassificationService{store: store, decisions: decisions, metrics: m, log: log}
}

func (s *ClassificationService) Current() *LoadedModel { return s.model.Load() }

// Use serves p under name without going through the store.
func (s *ClassificationService) Use(name string, p *pipeline.Pipeline) {
	s.swap(&LoadedModel{Name: name, Pipeline: p, CreatedAt: time.Now().UTC()})
}

func (s *ClassificationService) swap(m *LoadedModel) {
	m.Stages = m.Pipeline.Names()
	m.LoadedAt = time.Now().UTC()
	s.model.Store(m)
	if s.metrics != nil {
		s.metrics.SetModel(m.Name, len(m.Stages))
	}
	s.log.Info("model loaded", zap.String("model", m.Name), zap.Strings("stages", m.Stages))
}

// Reload fetches name from the store and swaps it in unless the served
// model already has the same name and creation time.
func (s *ClassificationService) Reload(ctx context.Context, name string) (bool, error) {
	if s.store == nil {
		return false, fmt.Errorf("reload %q: no model store configured", name)
	}
	p, env, err := modelstore.LoadPipeline(ctx, s.store, name)
	if err != nil {
		s.recordReload("failed")
		return false, err
	}
	if cur := s.model.Load(); cur != nil && cur.Name == name && cur.CreatedAt.Equal(env.CreatedAt) {
		s.recordReload("unchanged")
		return false, nil
	}
	s.swap(&LoadedModel{Name: name, Pipeline: p, CreatedAt: env.CreatedAt})
	s.recordReload("loaded")
	return true, nil
}

// currentPointer is implemented by stores that keep a serving alias, such as
// the Redis model repository.
type currentPointer interface {
	Current(ctx context.Context) (string, error)
}

// Refresh reloads the model the store's serving alias points at, or
// fallback when the store has no alias or the alias is unset.
func (s *ClassificationService) Refresh(ctx context.Context, fallback string) (bool, error) {
	name, err := s.servingName(ctx, fallback)
	if err != nil {
		s.recordReload("failed")
		return false, err
	}
	return s.Reload(ctx, name)
}

func (s *ClassificationService) servingName(ctx context.Context, fallback string) (string, error) {
	cp, ok := s.store.(currentPointer)
	if !ok {
		return fallback, nil
	}
	name, err := cp.Current(ctx)
	switch {
	case errors.Is(err, domain.ErrModelNotFound), err == nil && name == "":
		return fallback, nil
	case err != nil:
		return "", fmt.Errorf("resolve serving model: %w", err)
	}
	return name, nil
}

func (s *ClassificationService) recordReload(result string) {
	if s.metrics != nil {
		s.metrics.RecordModelReload(result)
	}
}

// Classify runs the served pipeline on c. The decision is recorded when a
// recorder is configured; recording failures are logged, not returned. The
// request id is taken from ctx.
func (s *ClassificationService) Classify(ctx context.Context, c *domain.Circuit) (*domain.DecisionRecord, error) {
	requestID := middleware.GetRequestID(ctx)
	if c == nil {
		return nil, domain.ErrInvalidTrace
	}
	m := s.model.Load()
	if m == nil {
		s.recordError(domain.ErrNoModelLoaded)
		return nil, domain.ErrNoModelLoaded
	}

	start := time.Now()
	d, err := m.Pipeline.Classify(features.New(c))
	if err != nil {
		s.recordError(err)
		return nil, err
	}
	took := time.Since(start)

	if s.metrics != nil {
		s.metrics.RecordClassification(d.Detected, c.Len(), d.Stages, took)
	}

	rec := &domain.DecisionRecord{
		ModelName: m.Name,
		ChanID:    c.ChanID,
		CircID:    c.CircID,
		CellCount: c.Len(),
		Decision:  d,
		RequestID: requestID,
		CreatedAt: time.Now().UTC(),
	}
	if s.decisions != nil {
		if err := s.decisions.Create(ctx, rec); err != nil {
			s.log.Warn("failed to record decision",
				zap.String("request_id", requestID),
				zap.Uint64("circ_id", c.CircID),
				zap.Error(err),
			)
		}
	}

	s.log.Debug("circuit classified",
		zap.String("request_id", requestID),
		zap.Uint64("chan_id", c.ChanID),
		zap.Uint64("circ_id", c.CircID),
		zap.Bool("detected", d.Detected),
		zap.Float64("confidence", d.Confidence),
		zap.Duration("took", took),
	)
	return rec, nil
}

// BatchResult pairs one circuit's decision with its error.
type BatchResult struct {
	ChanID uint64                 `json:"chan_id"`
	CircID uint64                 `json:"circ_id"`
	Record *domain.DecisionRecord `json:"record,omitempty"`
	Error  string                 `json:"error,omitempty"`
}

// ClassifyAll classifies each circuit independently; one failing circuit
// does not stop the rest.
func (s *ClassificationService) ClassifyAll(ctx context.Context, circuits []*domain.Circuit) []BatchResult {
	out := make([]BatchResult, 0, len(circuits))
	for _, c := range circuits {
		res := BatchResult{}
		if c != nil {
			res.ChanID, res.CircID = c.ChanID, c.CircID
		}
		rec, err := s.Classify(ctx, c)
		if err != nil {
			res.Error = err.Error()
		} else {
			res.Record = rec
		}
		out = append(out, res)
	}
	return out
}

func (s *ClassificationService) recordError(err error) {
	if s.metrics != nil {
		s.metrics.RecordClassificationError(ErrorReason(err))
	}
}

// ErrorReason buckets classification errors for metrics and logs.
func ErrorReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrNoFeatures):
		return "no_features"
	case errors.Is(err, domain.ErrNotTrained):
		return "not_trained"
	case errors.Is(err, domain.ErrNoModelLoaded):
		return "no_model"
	default:
		return "other"
	}
}
