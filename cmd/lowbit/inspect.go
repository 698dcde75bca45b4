package main

import (
	"context"
	"fmt"
	"sort"

	json "github.com/goccy/go-json"
	"github.com/urfave/cli/v3"

	"github.com/lowbit-ml/lowbit/internal/quant"
)

func inspectCmd() *cli.Command {
	var asJSON bool

	return &cli.Command{
		Name:  "inspect",
		Usage: "Print a capability set and its per-operator quantization configs",
		Flags: append(commonGraphFlags(),
			&cli.BoolFlag{
				Name:        "json",
				Usage:       "emit machine-readable JSON",
				Destination: &asJSON,
			},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			applyCommonConfig(cmd, LoadConfig())

			caps, err := loadCapabilities(capsPath)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			if err := caps.Validate(); err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}

			if asJSON {
				data, err := json.MarshalIndent(caps, "", "  ")
				if err != nil {
					return cli.Exit(fmt.Sprintf("error: %v", err), 1)
				}
				fmt.Println(string(data))
				return nil
			}

			fmt.Printf("capability set: %s\n", caps.Name)
			printOpConfig("(default)", &caps.DefaultOp)

			ops := make([]string, 0, len(caps.Operators))
			for op := range caps.Operators {
				ops = append(ops, op)
			}
			sort.Strings(ops)
			for _, op := range ops {
				cfg := caps.Operators[op]
				printOpConfig(op, &cfg)
			}
			return nil
		},
	}
}

func printOpConfig(op string, cfg *quant.OpQuantizationConfig) {
	fmt.Printf("\n%s\n", op)
	fmt.Printf("  activation: %s %d-bit enabled=%t\n",
		cfg.ActivationMethod, cfg.ActivationNBits, cfg.EnableActivationQuantization)
	if cfg.SIMDSize > 0 {
		fmt.Printf("  simd size:  %d\n", cfg.SIMDSize)
	}
	fmt.Printf("  weights default: %s %d-bit per_channel=%t enabled=%t\n",
		cfg.DefaultWeightAttrConfig.Method, cfg.DefaultWeightAttrConfig.NBits,
		cfg.DefaultWeightAttrConfig.PerChannel, cfg.DefaultWeightAttrConfig.Enabled)

	attrs := make([]string, 0, len(cfg.AttrMapping))
	for attr := range cfg.AttrMapping {
		attrs = append(attrs, attr)
	}
	sort.Strings(attrs)
	for _, attr := range attrs {
		a := cfg.AttrMapping[attr]
		fmt.Printf("  attr %q: %s %d-bit per_channel=%t enabled=%t\n",
			attr, a.Method, a.NBits, a.PerChannel, a.Enabled)
	}
}
