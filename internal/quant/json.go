package quant

import (
	json "github.com/goccy/go-json"

	"github.com/lowbit-ml/lowbit/pkg/fakequant"
)

// JSON views of the resolved configs for the inspection surfaces. Bound
// functions are reported through their method tags.

type weightsAttrJSON struct {
	Method       Method           `json:"weights_quantization_method"`
	ErrorMethod  ErrorMethod      `json:"weights_error_method"`
	NBits        int              `json:"weights_n_bits"`
	PerChannel   bool             `json:"weights_per_channel_threshold"`
	ChannelAxis  *ChannelAxis     `json:"weights_channels_axis,omitempty"`
	Enabled      bool             `json:"enable_weights_quantization"`
	LpValue      float64          `json:"l_p_value"`
	QuantizerTag Method           `json:"quantizer_tag"`
	ParamsTag    Method           `json:"params_fn_tag"`
	Params       fakequant.Params `json:"weights_quantization_params"`
}

func (c *WeightsAttrQuantizationConfig) MarshalJSON() ([]byte, error) {
	return json.Marshal(weightsAttrJSON{
		Method:       c.Method,
		ErrorMethod:  c.errorMethod,
		NBits:        c.NBits,
		PerChannel:   c.PerChannel,
		ChannelAxis:  c.ChannelAxis,
		Enabled:      c.Enabled,
		LpValue:      c.LpValue,
		QuantizerTag: c.quantizerTag,
		ParamsTag:    c.paramsTag,
		Params:       c.params,
	})
}

type activationJSON struct {
	Method                Method      `json:"activation_quantization_method"`
	ErrorMethod           ErrorMethod `json:"activation_error_method"`
	NBits                 int         `json:"activation_n_bits"`
	Enabled               bool        `json:"enable_activation_quantization"`
	ReluBoundToPowerOfTwo bool        `json:"relu_bound_to_power_of_2"`
	ChannelEqualization   bool        `json:"activation_channel_equalization"`
	InputScaling          bool        `json:"input_scaling"`
	MinThreshold          float32     `json:"min_threshold"`
	LpValue               float64     `json:"l_p_value"`

	ShiftNegativeActivationCorrection   bool    `json:"shift_negative_activation_correction"`
	ZThreshold                          float64 `json:"z_threshold"`
	ShiftNegativeRatio                  float64 `json:"shift_negative_ratio"`
	ShiftNegativeThresholdRecalculation bool    `json:"shift_negative_threshold_recalculation"`

	QuantizerTag Method           `json:"quantizer_tag"`
	ParamsTag    Method           `json:"params_fn_tag"`
	Params       fakequant.Params `json:"activation_quantization_params"`
}

func (c *NodeActivationQuantizationConfig) MarshalJSON() ([]byte, error) {
	return json.Marshal(activationJSON{
		Method:                c.Method,
		ErrorMethod:           c.errorMethod,
		NBits:                 c.NBits,
		Enabled:               c.Enabled,
		ReluBoundToPowerOfTwo: c.ReluBoundToPowerOfTwo,
		ChannelEqualization:   c.ChannelEqualization,
		InputScaling:          c.InputScaling,
		MinThreshold:          c.MinThreshold,
		LpValue:               c.LpValue,

		ShiftNegativeActivationCorrection:   c.ShiftNegativeActivationCorrection,
		ZThreshold:                          c.ZThreshold,
		ShiftNegativeRatio:                  c.ShiftNegativeRatio,
		ShiftNegativeThresholdRecalculation: c.ShiftNegativeThresholdRecalculation,

		QuantizerTag: c.quantizerTag,
		ParamsTag:    c.paramsTag,
		Params:       c.params,
	})
}

type nodeWeightsJSON struct {
	MinThreshold           float32                                   `json:"min_threshold"`
	SIMDSize               int                                       `json:"simd_size"`
	SecondMomentCorrection bool                                      `json:"weights_second_moment_correction"`
	BiasCorrection         bool                                      `json:"weights_bias_correction"`
	Attributes             map[string]*WeightsAttrQuantizationConfig `json:"attributes_config_mapping"`
	PosAttributes          map[int]*WeightsAttrQuantizationConfig    `json:"pos_attributes_config_mapping"`
}

func (c *NodeWeightsQuantizationConfig) MarshalJSON() ([]byte, error) {
	return json.Marshal(nodeWeightsJSON{
		MinThreshold:           c.MinThreshold,
		SIMDSize:               c.SIMDSize,
		SecondMomentCorrection: c.SecondMomentCorrection,
		BiasCorrection:         c.BiasCorrection,
		Attributes:             c.attrConfigs,
		PosAttributes:          c.posAttrConfigs,
	})
}
