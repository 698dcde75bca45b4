// Package calibrate populates the numeric quantization parameters of
// resolved node configs: weight parameters straight from the model's weight
// tensors, activation parameters from statistics collected over a
// representative dataset.
package calibrate

import (
	"fmt"

	"github.com/lowbit-ml/lowbit/internal/graph"
	"github.com/lowbit-ml/lowbit/internal/tensor"
)

// Weights computes and stores weight quantization parameters for every
// enabled attribute of every resolved node. Nodes without a resolved config
// are skipped: resolution is a separate, earlier phase.
func Weights(g *graph.Graph) error {
	for _, n := range g.Nodes {
		p := n.Primary()
		if p == nil {
			continue
		}
		for _, key := range n.AttrKeys() {
			if key.IsPositional() {
				continue
			}
			data, ok := n.Weights[key.Name()]
			if !ok {
				continue
			}
			attrCfg, err := p.Weights.GetAttrConfig(key)
			if err != nil {
				return fmt.Errorf("calibrate: node %q: %w", n.Name, err)
			}
			if !attrCfg.Enabled {
				continue
			}
			if err := attrCfg.CalculateAndSetWeightsParams(data, p.Weights.MinThreshold); err != nil {
				return fmt.Errorf("calibrate: node %q attribute %q: %w", n.Name, key.Name(), err)
			}
		}
	}
	return nil
}

// Activations stores activation quantization parameters computed from the
// per-node output statistics in stats, keyed by node name. Nodes without
// stats or with activation quantization disabled are skipped.
func Activations(g *graph.Graph, stats map[string]tensor.Tensor) error {
	for _, n := range g.Nodes {
		p := n.Primary()
		if p == nil || !p.Activation.Enabled {
			continue
		}
		data, ok := stats[n.Name]
		if !ok {
			continue
		}
		if err := p.Activation.CalculateAndSetActivationParams(data); err != nil {
			return fmt.Errorf("calibrate: node %q activations: %w", n.Name, err)
		}
	}
	return nil
}
