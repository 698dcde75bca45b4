package main

import (
	"context"
	"fmt"
	"os"

	json "github.com/goccy/go-json"
	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"

	"github.com/lowbit-ml/lowbit/internal/calibrate"
	"github.com/lowbit-ml/lowbit/internal/graph"
	"github.com/lowbit-ml/lowbit/internal/quant"
	"github.com/lowbit-ml/lowbit/internal/substitution"
	"github.com/lowbit-ml/lowbit/internal/tensor"
	"github.com/lowbit-ml/lowbit/internal/tpc"
)

func resolveCmd() *cli.Command {
	var (
		statsPath  string
		outputPath string
		skipPasses bool
	)

	return &cli.Command{
		Name:  "resolve",
		Usage: "Resolve, calibrate and post-process a model graph",
		Flags: append(append(commonGraphFlags(), loggingFlags()...),
			&cli.StringFlag{
				Name:        "stats",
				Usage:       "path to per-node activation statistics (JSON); skips activation calibration when omitted",
				Destination: &statsPath,
			},
			&cli.StringFlag{
				Name:        "output",
				Aliases:     []string{"o"},
				Usage:       "output path for the resolved graph (JSON); stdout when omitted",
				Destination: &outputPath,
			},
			&cli.BoolFlag{
				Name:        "skip-passes",
				Usage:       "skip the post-calibration substitution passes",
				Destination: &skipPasses,
			},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			applyCommonConfig(cmd, LoadConfig())
			log := newLog()
			quant.SetLogger(log)

			if graphPath == "" {
				return cli.Exit("error: --graph is required", 1)
			}
			g, err := loadGraph(graphPath)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}

			caps, err := loadCapabilities(capsPath)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			qc, err := loadQuantConfig(quantCfgPath)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}

			log.Info("resolving graph",
				"nodes", len(g.Nodes), "capabilities", caps.Name)
			if err := caps.ResolveGraph(g, &qc); err != nil {
				return cli.Exit(fmt.Sprintf("error: resolve: %v", err), 1)
			}
			if err := calibrate.Weights(g); err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}

			if statsPath != "" {
				stats, err := loadStats(statsPath)
				if err != nil {
					return cli.Exit(fmt.Sprintf("error: %v", err), 1)
				}
				if err := calibrate.Activations(g, stats); err != nil {
					return cli.Exit(fmt.Sprintf("error: %v", err), 1)
				}
			}

			if !skipPasses {
				if err := substitution.Apply(g, log, substitution.NewConcatThresholdUpdate()); err != nil {
					return cli.Exit(fmt.Sprintf("error: passes: %v", err), 1)
				}
			}

			if err := writeGraph(g, outputPath); err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			return nil
		},
	}
}

func loadGraph(path string) (*graph.Graph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening graph %q: %w", path, err)
	}
	defer f.Close()
	return graph.Load(f)
}

func loadCapabilities(path string) (*tpc.CapabilitySet, error) {
	if path == "" {
		return tpc.Default(), nil
	}
	return tpc.LoadFile(path)
}

func loadQuantConfig(path string) (quant.QuantizationConfig, error) {
	qc := quant.DefaultQuantizationConfig()
	if path == "" {
		return qc, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return qc, fmt.Errorf("reading quantization config %q: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &qc); err != nil {
		return qc, fmt.Errorf("parsing quantization config %q: %w", path, err)
	}
	return qc, nil
}

func loadStats(path string) (map[string]tensor.Tensor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading stats %q: %w", path, err)
	}
	var stats map[string]tensor.Tensor
	if err := json.Unmarshal(data, &stats); err != nil {
		return nil, fmt.Errorf("parsing stats %q: %w", path, err)
	}
	return stats, nil
}

func writeGraph(g *graph.Graph, path string) error {
	out := os.Stdout
	if path != "" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("creating output %q: %w", path, err)
		}
		defer f.Close()
		out = f
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(g); err != nil {
		return fmt.Errorf("encoding resolved graph: %w", err)
	}
	return nil
}
