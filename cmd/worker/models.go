package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/GoSim-25-26J-441/onionpop/config"
	"github.com/GoSim-25-26J-441/onionpop/internal/bootstrap"
	"github.com/GoSim-25-26J-441/onionpop/internal/circuit_classification/domain"
	"github.com/GoSim-25-26J-441/onionpop/internal/circuit_classification/modelstore"
	"github.com/GoSim-25-26J-441/onionpop/internal/circuit_classification/pipeline"
)

// localModels reads and writes model files by path.
var localModels = modelstore.NewFileStore("")

func newUsageCmd(opts *rootOptions) *cobra.Command {
	var modelPath string
	cmd := &cobra.Command{
		Use:   "usage",
		Short: "Classify the built-in sample circuit with a trained model",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, _, err := modelstore.LoadPipeline(cmd.Context(), localModels, modelPath)
			if err != nil {
				return err
			}
			d, err := p.ClassifyCircuit(domain.SampleCircuit())
			if err != nil {
				return err
			}
			opts.log.Info("is the circuit a target circuit?", zap.Bool("detected", d.Detected))
			opts.log.Info("confidence (distance to the decision boundary)", zap.Float64("confidence", d.Confidence))
			fmt.Fprintf(cmd.OutOrStdout(), "detected=%t confidence=%g\n", d.Detected, d.Confidence)
			return nil
		},
	}
	cmd.Flags().StringVarP(&modelPath, "model", "m", "webfp_fb.model", "trained model to run")
	return cmd
}

func newTrainCmd(opts *rootOptions) *cobra.Command {
	var (
		output   string
		compress bool
		parallel int
	)
	cmd := &cobra.Command{
		Use:   "train <config file>",
		Short: "Train the classification pipeline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tr := pipeline.NewTrainer(opts.log)
			if parallel > 0 {
				tr.Parallelism = parallel
			}
			p, err := tr.TrainFile(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			opts.log.Info("pipeline trained", zap.Strings("stages", p.Names()))
			if output == "" {
				return nil
			}
			if err := modelstore.SavePipeline(cmd.Context(), localModels, output, p, compress); err != nil {
				return err
			}
			opts.log.Info("model dumped", zap.String("path", output))
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "path where the model should be dumped")
	cmd.Flags().BoolVar(&compress, "compress", false, "snappy-compress the dumped model")
	cmd.Flags().IntVar(&parallel, "parallel", 0, "stages trained concurrently (0 keeps the default)")
	return cmd
}

func newComposeCmd(opts *rootOptions) *cobra.Command {
	var compress bool
	cmd := &cobra.Command{
		Use:   "compose <model1> <model2> ... <new model>",
		Short: "Compose the last stage of each model into one model",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) < 2 {
				return fmt.Errorf("not enough models: want at least one input and an output, got %d", len(args))
			}
			in, out := args[:len(args)-1], args[len(args)-1]

			ps := make([]*pipeline.Pipeline, 0, len(in))
			for _, path := range in {
				p, _, err := modelstore.LoadPipeline(cmd.Context(), localModels, path)
				if err != nil {
					return err
				}
				ps = append(ps, p)
			}
			composed, err := pipeline.Compose(ps...)
			if err != nil {
				return err
			}
			if err := modelstore.SavePipeline(cmd.Context(), localModels, out, composed, compress); err != nil {
				return err
			}
			opts.log.Info("models composed", zap.Strings("stages", composed.Names()), zap.String("path", out))
			return nil
		},
	}
	cmd.Flags().BoolVar(&compress, "compress", false, "snappy-compress the composed model")
	return cmd
}

func newPublishCmd(opts *rootOptions) *cobra.Command {
	var (
		name       string
		setCurrent bool
	)
	cmd := &cobra.Command{
		Use:   "publish <model file>",
		Short: "Copy a model file into the configured model store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if name == "" {
				name = cfg.Model.Name
			}
			return publish(cmd.Context(), cfg, args[0], name, setCurrent, opts.log)
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "name in the store (defaults to MODEL_NAME)")
	cmd.Flags().BoolVar(&setCurrent, "set-current", false, "point the serving alias at the published model (redis store only)")
	return cmd
}

type servingAlias interface {
	SetCurrent(ctx context.Context, name string) error
}

func publish(ctx context.Context, cfg *config.Config, path, name string, setCurrent bool, log *zap.Logger) error {
	if setCurrent && cfg.Model.Store != "redis" {
		return fmt.Errorf("--set-current needs the redis model store, got %q", cfg.Model.Store)
	}
	blob, err := localModels.Load(ctx, path)
	if err != nil {
		return err
	}
	// Refuse to publish something the API could not load.
	if _, _, err := modelstore.Decode(blob); err != nil {
		return err
	}

	var store modelstore.Store
	if cfg.Model.Store == "redis" {
		rdb, err := bootstrap.OpenRedis(ctx, bootstrap.RedisOptions{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return err
		}
		defer rdb.Close()
		store, err = bootstrap.OpenModelStore(ctx, cfg, rdb)
		if err != nil {
			return err
		}
	} else if store, err = bootstrap.OpenModelStore(ctx, cfg, nil); err != nil {
		return err
	}

	if err := store.Save(ctx, name, blob); err != nil {
		return err
	}
	log.Info("model published", zap.String("store", cfg.Model.Store), zap.String("name", name))

	if !setCurrent {
		return nil
	}
	alias, ok := store.(servingAlias)
	if !ok {
		return fmt.Errorf("model store %q has no serving alias", cfg.Model.Store)
	}
	if err := alias.SetCurrent(ctx, name); err != nil {
		return fmt.Errorf("set serving model %q: %w", name, err)
	}
	log.Info("serving alias updated", zap.String("name", name))
	return nil
}
