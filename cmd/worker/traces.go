package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/GoSim-25-26J-441/onionpop/internal/circuit_classification/domain"
	"github.com/GoSim-25-26J-441/onionpop/internal/circuit_classification/features"
	"github.com/GoSim-25-26J-441/onionpop/internal/circuit_classification/ingest/mapper"
	"github.com/GoSim-25-26J-441/onionpop/internal/circuit_classification/ingest/parser"
	"github.com/GoSim-25-26J-441/onionpop/internal/circuit_classification/modelstore"
	"github.com/GoSim-25-26J-441/onionpop/internal/circuit_classification/service"
)

func readCircuits(paths []string) ([]*domain.Circuit, error) {
	var out []*domain.Circuit
	for _, path := range paths {
		t, err := parser.ParseFile(path)
		if err != nil {
			return nil, err
		}
		out = append(out, mapper.ToCircuits(t)...)
	}
	return out, nil
}

type classifyLine struct {
	ChanID     uint64  `json:"chan_id"`
	CircID     uint64  `json:"circ_id"`
	Detected   bool    `json:"detected"`
	Confidence float64 `json:"confidence"`
	Error      string  `json:"error,omitempty"`
}

func newClassifyCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "classify <model> <trace file>...",
		Short: "Classify every circuit of the given traces, one JSON line each",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, env, err := modelstore.LoadPipeline(cmd.Context(), localModels, args[0])
			if err != nil {
				return err
			}
			circuits, err := readCircuits(args[1:])
			if err != nil {
				return err
			}
			opts.log.Info("classifying", zap.String("model", env.Name), zap.Int("circuits", len(circuits)))

			enc := json.NewEncoder(cmd.OutOrStdout())
			for _, c := range circuits {
				line := classifyLine{ChanID: c.ChanID, CircID: c.CircID}
				d, err := p.ClassifyCircuit(c)
				if err != nil {
					line.Error = err.Error()
				} else {
					line.Detected, line.Confidence = d.Detected, d.Confidence
				}
				if err := enc.Encode(line); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func newFeaturesCmd(opts *rootOptions) *cobra.Command {
	var (
		points     int
		convention string
	)
	cmd := &cobra.Command{
		Use:   "features <trace file>...",
		Short: "Print the feature vectors of every circuit, one JSON line each",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			conv, err := features.ParseSequenceConvention(convention)
			if err != nil {
				return err
			}
			circuits, err := readCircuits(args)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			for _, c := range circuits {
				rep, err := service.ExtractFeatures(c, points, conv)
				if err != nil {
					return fmt.Errorf("circuit %d/%d: %w", c.ChanID, c.CircID, err)
				}
				if err := enc.Encode(rep); err != nil {
					return err
				}
			}
			opts.log.Debug("features extracted", zap.Int("circuits", len(circuits)))
			return nil
		},
	}
	cmd.Flags().IntVar(&points, "points", features.DefaultInterpolationPoints, "CUMUL interpolation points")
	cmd.Flags().StringVar(&convention, "sequence", "client", "direction sign convention")
	return cmd
}
