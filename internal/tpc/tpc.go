// Package tpc models target platform capabilities: which quantization
// methods, bit-widths, and attribute configurations each operator type
// supports, independent of any specific model.
package tpc

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/lowbit-ml/lowbit/internal/graph"
	"github.com/lowbit-ml/lowbit/internal/quant"
)

// CapabilitySet maps operator types to their quantization capability. Ops
// without an explicit entry fall back to the default operator config.
type CapabilitySet struct {
	Name      string                                `yaml:"name" json:"name"`
	DefaultOp quant.OpQuantizationConfig            `yaml:"default_op_config" json:"default_op_config"`
	Operators map[string]quant.OpQuantizationConfig `yaml:"operators" json:"operators"`
}

// OpConfig returns the capability config for the given operator type.
func (c *CapabilitySet) OpConfig(op string) *quant.OpQuantizationConfig {
	if cfg, ok := c.Operators[op]; ok {
		return &cfg
	}
	cfg := c.DefaultOp
	return &cfg
}

// Validate checks the capability set for authoring mistakes that would only
// surface deep inside node config construction otherwise.
func (c *CapabilitySet) Validate() error {
	if err := validateOp("default", &c.DefaultOp); err != nil {
		return err
	}
	for op := range c.Operators {
		cfg := c.Operators[op]
		if err := validateOp(op, &cfg); err != nil {
			return err
		}
	}
	return nil
}

func validateOp(op string, cfg *quant.OpQuantizationConfig) error {
	if cfg.EnableActivationQuantization && cfg.ActivationNBits <= 0 {
		return fmt.Errorf("tpc: operator %q enables activation quantization with %d bits", op, cfg.ActivationNBits)
	}
	if cfg.DefaultWeightAttrConfig.Enabled && cfg.DefaultWeightAttrConfig.NBits <= 0 {
		return fmt.Errorf("tpc: operator %q default weight config enables quantization with %d bits", op, cfg.DefaultWeightAttrConfig.NBits)
	}
	for name, attr := range cfg.AttrMapping {
		if attr.Enabled && attr.NBits <= 0 {
			return fmt.Errorf("tpc: operator %q attribute %q enables quantization with %d bits", op, name, attr.NBits)
		}
	}
	return nil
}

// Load reads and validates a capability set from YAML.
func Load(r io.Reader) (*CapabilitySet, error) {
	var c CapabilitySet
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil {
		return nil, fmt.Errorf("tpc: decoding capability set: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// LoadFile reads a capability set from a YAML file.
func LoadFile(path string) (*CapabilitySet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("tpc: %w", err)
	}
	defer f.Close()
	return Load(f)
}

// Default returns the built-in capability set: 8-bit power-of-two
// activations everywhere, per-channel symmetric kernels on the conv and
// dense operators, quantization disabled on everything unnamed.
func Default() *CapabilitySet {
	simd := SuggestedSIMDSize()
	kernel := quant.AttributeQuantizationConfig{
		Method:     quant.MethodSymmetric,
		NBits:      8,
		PerChannel: true,
		Enabled:    true,
	}
	bias := quant.AttributeQuantizationConfig{
		Method: quant.MethodPowerOfTwo,
		NBits:  16,
	}
	weighted := quant.OpQuantizationConfig{
		DefaultWeightAttrConfig: quant.AttributeQuantizationConfig{
			Method: quant.MethodPowerOfTwo,
			NBits:  8,
		},
		AttrMapping: map[string]quant.AttributeQuantizationConfig{
			"kernel": kernel,
			"bias":   bias,
		},
		ActivationMethod:             quant.MethodPowerOfTwo,
		ActivationNBits:              8,
		EnableActivationQuantization: true,
		SIMDSize:                     simd,
	}
	return &CapabilitySet{
		Name: "default",
		DefaultOp: quant.OpQuantizationConfig{
			DefaultWeightAttrConfig: quant.AttributeQuantizationConfig{
				Method: quant.MethodPowerOfTwo,
				NBits:  8,
			},
			ActivationMethod:             quant.MethodPowerOfTwo,
			ActivationNBits:              8,
			EnableActivationQuantization: true,
			SIMDSize:                     simd,
		},
		Operators: map[string]quant.OpQuantizationConfig{
			"Conv2D": weighted,
			"Dense":  weighted,
		},
	}
}

// ResolveGraph combines the user policy with this capability set into a
// resolved quantization configuration for every graph node, stored as the
// node's primary candidate. It is the once-per-node resolution step of
// graph preparation.
func (c *CapabilitySet) ResolveGraph(g *graph.Graph, qc *quant.QuantizationConfig) error {
	for _, n := range g.Nodes {
		opCfg := c.OpConfig(n.Op)
		cfg, err := quant.ResolveNode(qc, opCfg, n.ChannelAxis, n.AttrKeys())
		if err != nil {
			return fmt.Errorf("tpc: resolving node %q: %w", n.Name, err)
		}
		n.Candidates = []*quant.NodeQuantizationConfig{cfg}
	}
	return nil
}
