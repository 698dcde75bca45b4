package quant

import "math"

// MinThresholdDefault is the floor applied to computed thresholds so a
// silent tensor never produces a zero scale.
const MinThresholdDefault = float32(1.0 / (1 << 28))

// QuantizationConfig is the global, user-supplied quantization policy. It is
// immutable once handed to node config construction.
type QuantizationConfig struct {
	ActivationErrorMethod ErrorMethod `yaml:"activation_error_method" json:"activation_error_method"`
	WeightsErrorMethod    ErrorMethod `yaml:"weights_error_method" json:"weights_error_method"`

	ReluBoundToPowerOfTwo         bool `yaml:"relu_bound_to_power_of_2" json:"relu_bound_to_power_of_2"`
	WeightsBiasCorrection         bool `yaml:"weights_bias_correction" json:"weights_bias_correction"`
	WeightsSecondMomentCorrection bool `yaml:"weights_second_moment_correction" json:"weights_second_moment_correction"`
	InputScaling                  bool `yaml:"input_scaling" json:"input_scaling"`
	ActivationChannelEqualization bool `yaml:"activation_channel_equalization" json:"activation_channel_equalization"`

	ShiftNegativeActivationCorrection   bool    `yaml:"shift_negative_activation_correction" json:"shift_negative_activation_correction"`
	ZThreshold                          float64 `yaml:"z_threshold" json:"z_threshold"`
	ShiftNegativeRatio                  float64 `yaml:"shift_negative_ratio" json:"shift_negative_ratio"`
	ShiftNegativeThresholdRecalculation bool    `yaml:"shift_negative_threshold_recalculation" json:"shift_negative_threshold_recalculation"`

	MinThreshold float32 `yaml:"min_threshold" json:"min_threshold"`
	LpValue      float64 `yaml:"l_p_value" json:"l_p_value"`
}

// DefaultQuantizationConfig returns the policy used when the user supplies
// nothing: MSE error metric for both tensors, bias correction on.
func DefaultQuantizationConfig() QuantizationConfig {
	return QuantizationConfig{
		ActivationErrorMethod: ErrorMSE,
		WeightsErrorMethod:    ErrorMSE,
		WeightsBiasCorrection: true,
		// effectively disables z-score outlier removal while staying
		// representable in JSON output
		ZThreshold:         math.MaxFloat64,
		ShiftNegativeRatio: 0.05,
		MinThreshold:       MinThresholdDefault,
		LpValue:            2,
	}
}

// AttributeQuantizationConfig declares, for one conceptual weight attribute,
// whether and how the target platform quantizes it.
type AttributeQuantizationConfig struct {
	Method     Method `yaml:"weights_quantization_method" json:"weights_quantization_method"`
	NBits      int    `yaml:"weights_n_bits" json:"weights_n_bits"`
	PerChannel bool   `yaml:"weights_per_channel_threshold" json:"weights_per_channel_threshold"`
	Enabled    bool   `yaml:"enable_weights_quantization" json:"enable_weights_quantization"`
}

// OpQuantizationConfig is the platform capability declaration for a single
// operator type. AttrMapping keys are matched by substring containment
// against node attribute names, since some frameworks compose attribute
// names from the layer name and the parameter name.
type OpQuantizationConfig struct {
	DefaultWeightAttrConfig AttributeQuantizationConfig            `yaml:"default_weight_attr_config" json:"default_weight_attr_config"`
	AttrMapping             map[string]AttributeQuantizationConfig `yaml:"attr_weights_configs_mapping" json:"attr_weights_configs_mapping"`

	ActivationMethod             Method `yaml:"activation_quantization_method" json:"activation_quantization_method"`
	ActivationNBits              int    `yaml:"activation_n_bits" json:"activation_n_bits"`
	EnableActivationQuantization bool   `yaml:"enable_activation_quantization" json:"enable_activation_quantization"`

	SIMDSize int `yaml:"simd_size" json:"simd_size"`
}

// ChannelAxis is the (input, output) channel axis pair of a weight tensor.
// Only the output axis feeds per-channel parameter computation; the input
// axis is carried for other consumers.
type ChannelAxis struct {
	Output int `json:"output"`
	Input  int `json:"input"`
}

// NodeQuantizationConfig bundles the two resolved configurations of one
// graph node. Mixed-precision candidates are deduplicated by structural
// equality of this pair.
type NodeQuantizationConfig struct {
	Activation *NodeActivationQuantizationConfig `json:"activation"`
	Weights    *NodeWeightsQuantizationConfig    `json:"weights"`
}

// ResolveNode combines the user policy with an operator capability config
// into the node's resolved quantization configuration. It is called once
// per graph node during preparation.
func ResolveNode(qc *QuantizationConfig, opCfg *OpQuantizationConfig, channelAxis *ChannelAxis, attrs []AttrKey) (*NodeQuantizationConfig, error) {
	weights, err := NewNodeWeightsQuantizationConfig(qc, opCfg, channelAxis, attrs)
	if err != nil {
		return nil, err
	}
	activation := NewNodeActivationQuantizationConfig(qc, opCfg,
		ActivationQuantizerFor(opCfg.ActivationMethod),
		ActivationParamsFnFor(opCfg.ActivationMethod))
	return &NodeQuantizationConfig{Activation: activation, Weights: weights}, nil
}

// Equal reports structural equality of both halves.
func (c *NodeQuantizationConfig) Equal(other *NodeQuantizationConfig) bool {
	if c == nil || other == nil {
		return c == other
	}
	return c.Activation.Equal(other.Activation) && c.Weights.Equal(other.Weights)
}
