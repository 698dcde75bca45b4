package quant

import (
	"errors"
	"fmt"
	"strings"

	"github.com/lowbit-ml/lowbit/internal/tensor"
	"github.com/lowbit-ml/lowbit/pkg/fakequant"
)

// ErrQuantizationDisabled is returned when a parameter-population entry
// point runs against a config whose quantization is disabled. It marks a
// programmer contract violation upstream, not a user error.
var ErrQuantizationDisabled = errors.New("quant: quantization is disabled for this config")

// WeightsAttrQuantizationConfig is the resolved quantization configuration
// of a single weight attribute of a node. Its numeric parameters stay empty
// until CalculateAndSetWeightsParams runs during calibration.
type WeightsAttrQuantizationConfig struct {
	Method      Method
	NBits       int
	PerChannel  bool
	ChannelAxis *ChannelAxis
	Enabled     bool
	LpValue     float64

	errorMethod ErrorMethod

	quantizer fakequant.Builder
	paramsFn  ParamsFn
	// tags mirror the methods the bound functions were derived from;
	// equality and hashing compare tags, not function pointers.
	quantizerTag Method
	paramsTag    Method

	params fakequant.Params
}

// NewWeightsAttrQuantizationConfig resolves an attribute configuration from
// the user policy and the platform's attribute capability. Both bound
// functions derive purely from the capability's quantization method; setting
// the error method later re-derives the params function the same way.
func NewWeightsAttrQuantizationConfig(qc *QuantizationConfig, attrCfg *AttributeQuantizationConfig, channelAxis *ChannelAxis) *WeightsAttrQuantizationConfig {
	c := &WeightsAttrQuantizationConfig{
		Method:      attrCfg.Method,
		NBits:       attrCfg.NBits,
		PerChannel:  attrCfg.PerChannel,
		ChannelAxis: channelAxis,
		Enabled:     attrCfg.Enabled,
		LpValue:     qc.LpValue,
		quantizer:   WeightsQuantizerFor(attrCfg.Method),
		params:      fakequant.Params{},
	}
	c.quantizerTag = attrCfg.Method
	c.SetErrorMethod(qc.WeightsErrorMethod)
	return c
}

// ErrorMethod returns the config's error metric.
func (c *WeightsAttrQuantizationConfig) ErrorMethod() ErrorMethod {
	return c.errorMethod
}

// SetErrorMethod sets the error metric and rebinds the params function. The
// rebinding is a pure lookup on the quantization method, so two configs with
// the same method and different error metrics bind the identical function.
func (c *WeightsAttrQuantizationConfig) SetErrorMethod(v ErrorMethod) {
	c.errorMethod = v
	c.rebindParamsFn()
}

func (c *WeightsAttrQuantizationConfig) rebindParamsFn() {
	c.paramsFn = WeightsParamsFnFor(c.Method)
	c.paramsTag = c.Method
}

// SetQuantizer overrides the fake-quantizer builder. Substitution passes use
// it when they replace a node's quantization behavior wholesale.
func (c *WeightsAttrQuantizationConfig) SetQuantizer(b fakequant.Builder) {
	c.quantizer = b
}

// SetParamsFn overrides the bound parameter-computation function.
func (c *WeightsAttrQuantizationConfig) SetParamsFn(fn ParamsFn) {
	c.paramsFn = fn
}

// Params returns the mutable numeric parameter mapping.
func (c *WeightsAttrQuantizationConfig) Params() fakequant.Params {
	return c.params
}

// SetWeightsQuantizationParams merge-updates the numeric parameters.
// Quantization must be enabled for this attribute.
func (c *WeightsAttrQuantizationConfig) SetWeightsQuantizationParams(p fakequant.Params) error {
	if !c.Enabled {
		return fmt.Errorf("%w: cannot set weights params", ErrQuantizationDisabled)
	}
	c.params.Merge(p)
	return nil
}

// CalculateAndSetWeightsParams computes quantization parameters from the
// attribute's tensor data and stores them. With no bound params function the
// parameter mapping is set empty: that is the defined behavior for methods
// needing no statistical calibration. Per-channel computation happens only
// when both the per-channel flag is set and a channel axis was supplied.
func (c *WeightsAttrQuantizationConfig) CalculateAndSetWeightsParams(t tensor.Tensor, minThreshold float32) error {
	if !c.Enabled {
		return fmt.Errorf("%w: cannot calculate weights params", ErrQuantizationDisabled)
	}
	if c.paramsFn == nil {
		c.params = fakequant.Params{}
		return nil
	}
	perChannel := c.PerChannel && c.ChannelAxis != nil
	axis := 0
	if c.ChannelAxis != nil {
		axis = c.ChannelAxis.Output
	}
	p, err := c.paramsFn(t, c.LpValue, c.NBits, perChannel, axis, minThreshold)
	if err != nil {
		return fmt.Errorf("quant: computing weights params: %w", err)
	}
	return c.SetWeightsQuantizationParams(p)
}

// HasWeightsQuantizationParams reports whether calibration has populated the
// parameter mapping.
func (c *WeightsAttrQuantizationConfig) HasWeightsQuantizationParams() bool {
	return len(c.params) > 0
}

// Set applies a tagged field update. Fields that do not belong to a weights
// attribute config warn and are ignored.
func (c *WeightsAttrQuantizationConfig) Set(f Field, value any) {
	switch f {
	case FieldWeightsErrorMethod:
		if v, ok := asErrorMethod(value); ok {
			c.SetErrorMethod(v)
			return
		}
	case FieldWeightsNBits:
		if v, ok := asInt(value); ok {
			c.NBits = v
			return
		}
	case FieldEnableWeightsQuantization:
		if v, ok := asBool(value); ok {
			c.Enabled = v
			return
		}
	case FieldWeightsPerChannelThreshold:
		if v, ok := asBool(value); ok {
			c.PerChannel = v
			return
		}
	case FieldLpValue:
		if v, ok := asFloat64(value); ok {
			c.LpValue = v
			return
		}
	}
	warnUnknownField("weights_attr", f, value)
}

// Equal reports structural equality over the nine resolved fields, with
// method tags standing in for the bound functions.
func (c *WeightsAttrQuantizationConfig) Equal(other *WeightsAttrQuantizationConfig) bool {
	if c == nil || other == nil {
		return c == other
	}
	return c.quantizerTag == other.quantizerTag &&
		c.paramsTag == other.paramsTag &&
		channelAxisEqual(c.ChannelAxis, other.ChannelAxis) &&
		c.errorMethod == other.errorMethod &&
		c.Method == other.Method &&
		c.NBits == other.NBits &&
		c.PerChannel == other.PerChannel &&
		c.Enabled == other.Enabled &&
		c.LpValue == other.LpValue
}

// Hash returns a structural hash consistent with Equal.
func (c *WeightsAttrQuantizationConfig) Hash() uint64 {
	h := newHasher()
	h.writeInt(int(c.quantizerTag))
	h.writeInt(int(c.paramsTag))
	if c.ChannelAxis != nil {
		h.writeInt(c.ChannelAxis.Output)
		h.writeInt(c.ChannelAxis.Input)
	} else {
		h.writeInt(-1)
	}
	h.writeInt(int(c.errorMethod))
	h.writeInt(int(c.Method))
	h.writeInt(c.NBits)
	h.writeBool(c.PerChannel)
	h.writeBool(c.Enabled)
	h.writeFloat64(c.LpValue)
	return h.sum()
}

// String dumps the resolved fields as one "name: value" line each.
func (c *WeightsAttrQuantizationConfig) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "weights_quantization_method: %s\n", c.Method)
	fmt.Fprintf(&b, "weights_error_method: %s\n", c.errorMethod)
	fmt.Fprintf(&b, "weights_n_bits: %d\n", c.NBits)
	fmt.Fprintf(&b, "weights_per_channel_threshold: %t\n", c.PerChannel)
	if c.ChannelAxis != nil {
		fmt.Fprintf(&b, "weights_channels_axis: (%d, %d)\n", c.ChannelAxis.Output, c.ChannelAxis.Input)
	} else {
		b.WriteString("weights_channels_axis: none\n")
	}
	fmt.Fprintf(&b, "enable_weights_quantization: %t\n", c.Enabled)
	fmt.Fprintf(&b, "l_p_value: %g\n", c.LpValue)
	fmt.Fprintf(&b, "weights_quantization_params: %v\n", c.params)
	return b.String()
}

func channelAxisEqual(a, b *ChannelAxis) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
