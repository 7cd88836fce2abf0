package pipeline

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/GoSim-25-26J-441/onionpop/internal/circuit_classification/classifier"
	"github.com/GoSim-25-26J-441/onionpop/internal/circuit_classification/dataset"
	"github.com/GoSim-25-26J-441/onionpop/internal/circuit_classification/domain"
)

type LoadFunc func(path string, opts dataset.Options) (*dataset.Dataset, error)

// Trainer fits every configured stage. Stages are independent, so they are
// trained in parallel; the resulting pipeline keeps config order.
type Trainer struct {
	Load        LoadFunc
	Log         *zap.Logger
	Parallelism int
}

func NewTrainer(log *zap.Logger) *Trainer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Trainer{Load: dataset.Load, Log: log, Parallelism: runtime.NumCPU()}
}

func (t *Trainer) Train(ctx context.Context, cfg *Config) (*Pipeline, error) {
	if cfg == nil || len(cfg.Stages) == 0 {
		return nil, domain.ErrEmptyPipeline
	}

	stages := make([]classifier.Stage, len(cfg.Stages))
	for i, sc := range cfg.Stages {
		s, err := classifier.New(sc.Classifier, sc.Params)
		if err != nil {
			return nil, fmt.Errorf("stage %d: %w", i, err)
		}
		stages[i] = s
	}

	g, gCtx := errgroup.WithContext(ctx)
	if t.Parallelism > 0 {
		g.SetLimit(t.Parallelism)
	}
	for i, sc := range cfg.Stages {
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			return t.trainStage(i, stages[i], sc)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return FromStages(stages...)
}

func (t *Trainer) trainStage(i int, s classifier.Stage, sc StageConfig) error {
	start := time.Now()
	ds, err := t.Load(sc.Dataset, sc.datasetOptions())
	if err != nil {
		return fmt.Errorf("stage %d (%s): %w", i, sc.Classifier, err)
	}
	if err := s.Train(ds.X, ds.Y); err != nil {
		return fmt.Errorf("stage %d (%s): %w", i, sc.Classifier, err)
	}
	t.Log.Info("stage trained",
		zap.Int("stage", i),
		zap.String("classifier", sc.Classifier),
		zap.String("dataset", sc.Dataset),
		zap.Int("samples", ds.Len()),
		zap.Duration("took", time.Since(start)),
	)
	return nil
}

// TrainFile loads a config file and trains it.
func (t *Trainer) TrainFile(ctx context.Context, path string) (*Pipeline, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}
	return t.Train(ctx, cfg)
}
