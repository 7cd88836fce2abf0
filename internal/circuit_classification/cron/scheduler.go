package cronjob

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// DefaultReloadSpec polls for a new model every five minutes.
const DefaultReloadSpec = "0 */5 * * * *"

// Reloader is satisfied by *service.ClassificationService. Refresh loads the
// model the store's serving alias points at, or fallback.
type Reloader interface {
	Refresh(ctx context.Context, fallback string) (bool, error)
}

// Scheduler periodically reloads the served model from the model store so
// a model published by the worker is picked up without a restart.
type Scheduler struct {
	cron     *cron.Cron
	reloader Reloader
	model    string
	timeout  time.Duration
	log      *zap.Logger
}

func NewScheduler(reloader Reloader, model string, log *zap.Logger) *Scheduler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Scheduler{
		cron:     cron.New(cron.WithSeconds()),
		reloader: reloader,
		model:    model,
		timeout:  30 * time.Second,
		log:      log,
	}
}

// Start registers the reload job on spec (six fields, seconds first) and
// starts the cron loop.
func (s *Scheduler) Start(spec string) error {
	if spec == "" {
		spec = DefaultReloadSpec
	}
	if _, err := s.cron.AddFunc(spec, s.ReloadOnce); err != nil {
		return fmt.Errorf("failed to create reload job: %w", err)
	}
	s.cron.Start()
	s.log.Info("model reload scheduler started", zap.String("spec", spec), zap.String("model", s.model))
	return nil
}

// Stop waits for a running reload to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

func (s *Scheduler) ReloadOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	changed, err := s.reloader.Refresh(ctx, s.model)
	if err != nil {
		s.log.Warn("model reload failed", zap.String("fallback", s.model), zap.Error(err))
		return
	}
	if changed {
		s.log.Info("model reloaded", zap.String("fallback", s.model))
	}
}
