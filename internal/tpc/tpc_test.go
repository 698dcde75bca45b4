package tpc

import (
	"strings"
	"testing"

	"github.com/lowbit-ml/lowbit/internal/graph"
	"github.com/lowbit-ml/lowbit/internal/quant"
)

const capabilityYAML = `
name: test-target
default_op_config:
  default_weight_attr_config:
    weights_quantization_method: power_of_two
    weights_n_bits: 8
  activation_quantization_method: power_of_two
  activation_n_bits: 8
  enable_activation_quantization: true
  simd_size: 32
operators:
  Conv2D:
    default_weight_attr_config:
      weights_quantization_method: power_of_two
      weights_n_bits: 8
    attr_weights_configs_mapping:
      kernel:
        weights_quantization_method: symmetric
        weights_n_bits: 4
        weights_per_channel_threshold: true
        enable_weights_quantization: true
    activation_quantization_method: power_of_two
    activation_n_bits: 8
    enable_activation_quantization: true
    simd_size: 32
`

func TestLoad(t *testing.T) {
	c, err := Load(strings.NewReader(capabilityYAML))
	if err != nil {
		t.Fatal(err)
	}
	if c.Name != "test-target" {
		t.Errorf("name = %q", c.Name)
	}
	conv := c.OpConfig("Conv2D")
	if conv.AttrMapping["kernel"].NBits != 4 {
		t.Errorf("kernel bits = %d, want 4", conv.AttrMapping["kernel"].NBits)
	}
	if conv.AttrMapping["kernel"].Method != quant.MethodSymmetric {
		t.Errorf("kernel method = %v", conv.AttrMapping["kernel"].Method)
	}

	// Unknown op falls back to the default.
	relu := c.OpConfig("ReLU")
	if relu.ActivationNBits != 8 || len(relu.AttrMapping) != 0 {
		t.Errorf("default fallback broken: %+v", relu)
	}
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	if _, err := Load(strings.NewReader("name: x\nbogus_field: 1\n")); err == nil {
		t.Error("unknown YAML fields must be rejected")
	}
}

func TestLoadRejectsUnknownMethod(t *testing.T) {
	src := strings.Replace(capabilityYAML, "symmetric", "kmeans", 1)
	if _, err := Load(strings.NewReader(src)); err == nil {
		t.Error("unknown quantization method must be rejected")
	}
}

func TestValidate(t *testing.T) {
	c, err := Load(strings.NewReader(capabilityYAML))
	if err != nil {
		t.Fatal(err)
	}
	op := c.Operators["Conv2D"]
	attr := op.AttrMapping["kernel"]
	attr.NBits = 0
	op.AttrMapping["kernel"] = attr
	c.Operators["Conv2D"] = op
	if err := c.Validate(); err == nil {
		t.Error("enabled quantization with zero bits must fail validation")
	}
}

func TestDefaultIsValid(t *testing.T) {
	c := Default()
	if err := c.Validate(); err != nil {
		t.Fatalf("built-in capability set invalid: %v", err)
	}
	if c.OpConfig("Conv2D").SIMDSize <= 0 {
		t.Error("simd size must be positive")
	}
}

func TestSuggestedSIMDSize(t *testing.T) {
	if s := SuggestedSIMDSize(); s < 1 {
		t.Errorf("suggested SIMD size = %d", s)
	}
}

func TestResolveGraph(t *testing.T) {
	g := graph.New()
	conv := &graph.Node{
		Name:        "conv1",
		Op:          "Conv2D",
		Attributes:  []string{"conv1/kernel:0"},
		ChannelAxis: &quant.ChannelAxis{Output: 3, Input: 2},
	}
	relu := &graph.Node{Name: "relu1", Op: "ReLU"}
	for _, n := range []*graph.Node{conv, relu} {
		if err := g.AddNode(n); err != nil {
			t.Fatal(err)
		}
	}
	if err := g.AddEdge("conv1", "relu1"); err != nil {
		t.Fatal(err)
	}

	c, err := Load(strings.NewReader(capabilityYAML))
	if err != nil {
		t.Fatal(err)
	}
	qc := quant.DefaultQuantizationConfig()
	if err := c.ResolveGraph(g, &qc); err != nil {
		t.Fatal(err)
	}

	p := conv.Primary()
	if p == nil {
		t.Fatal("conv1 has no resolved config")
	}
	attr, err := p.Weights.GetAttrConfig(quant.NamedAttr("kernel"))
	if err != nil {
		t.Fatal(err)
	}
	if attr.NBits != 4 || !attr.Enabled {
		t.Errorf("kernel resolution wrong: %+v", attr)
	}
	if relu.Primary() == nil || relu.Primary().Activation.NBits != 8 {
		t.Error("default op resolution wrong")
	}
}

func TestResolveGraphPropagatesFatalErrors(t *testing.T) {
	g := graph.New()
	n := &graph.Node{Name: "const", Op: "ConstHolder", PositionalAttributes: []int{0}}
	if err := g.AddNode(n); err != nil {
		t.Fatal(err)
	}

	c := Default()
	op := c.DefaultOp
	op.DefaultWeightAttrConfig.Enabled = true
	c.DefaultOp = op

	qc := quant.DefaultQuantizationConfig()
	if err := c.ResolveGraph(g, &qc); err == nil {
		t.Error("positional attribute with quantized default must abort resolution")
	}
}
