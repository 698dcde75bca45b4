package quant

import (
	"errors"
	"fmt"
	"strings"

	"github.com/lowbit-ml/lowbit/internal/tensor"
	"github.com/lowbit-ml/lowbit/pkg/fakequant"
)

// ErrNoQuantizerFn marks a node intended for quantization whose fake-quant
// function resolved to nothing. That is a configuration inconsistency, not a
// user error; callers must propagate it.
var ErrNoQuantizerFn = errors.New("quant: node is intended to be quantized but the fake-quant function is nil")

// NodeActivationQuantizationConfig is the resolved configuration for
// quantizing a node's output activations.
type NodeActivationQuantizationConfig struct {
	Method                Method
	NBits                 int
	Enabled               bool
	ReluBoundToPowerOfTwo bool
	ChannelEqualization   bool
	InputScaling          bool
	MinThreshold          float32
	LpValue               float64

	ShiftNegativeActivationCorrection   bool
	ZThreshold                          float64
	ShiftNegativeRatio                  float64
	ShiftNegativeThresholdRecalculation bool

	errorMethod ErrorMethod

	quantizer    fakequant.Builder
	paramsFn     ParamsFn
	quantizerTag Method
	paramsTag    Method

	params fakequant.Params
}

// NewNodeActivationQuantizationConfig copies the relevant policy and
// capability fields into a resolved activation config. The passed params
// function does not survive construction: the error-method assignment
// re-derives it from the quantization method, and callers must not rely on
// the one they handed in.
func NewNodeActivationQuantizationConfig(qc *QuantizationConfig, opCfg *OpQuantizationConfig, quantizer fakequant.Builder, paramsFn ParamsFn) *NodeActivationQuantizationConfig {
	c := &NodeActivationQuantizationConfig{
		Method:                opCfg.ActivationMethod,
		NBits:                 opCfg.ActivationNBits,
		Enabled:               opCfg.EnableActivationQuantization,
		ReluBoundToPowerOfTwo: qc.ReluBoundToPowerOfTwo,
		ChannelEqualization:   qc.ActivationChannelEqualization,
		InputScaling:          qc.InputScaling,
		MinThreshold:          qc.MinThreshold,
		LpValue:               qc.LpValue,

		ShiftNegativeActivationCorrection:   qc.ShiftNegativeActivationCorrection,
		ZThreshold:                          qc.ZThreshold,
		ShiftNegativeRatio:                  qc.ShiftNegativeRatio,
		ShiftNegativeThresholdRecalculation: qc.ShiftNegativeThresholdRecalculation,

		quantizer:    quantizer,
		paramsFn:     paramsFn,
		quantizerTag: opCfg.ActivationMethod,
		params:       fakequant.Params{},
	}
	c.SetErrorMethod(qc.ActivationErrorMethod)
	return c
}

// ErrorMethod returns the config's error metric.
func (c *NodeActivationQuantizationConfig) ErrorMethod() ErrorMethod {
	return c.errorMethod
}

// SetErrorMethod sets the error metric and rebinds the params function as a
// pure lookup on the quantization method.
func (c *NodeActivationQuantizationConfig) SetErrorMethod(v ErrorMethod) {
	c.errorMethod = v
	c.rebindParamsFn()
}

func (c *NodeActivationQuantizationConfig) rebindParamsFn() {
	c.paramsFn = ActivationParamsFnFor(c.Method)
	c.paramsTag = c.Method
}

// SetQuantizer overrides the fake-quantizer builder.
func (c *NodeActivationQuantizationConfig) SetQuantizer(b fakequant.Builder) {
	c.quantizer = b
}

// SetParamsFn overrides the bound parameter-computation function.
func (c *NodeActivationQuantizationConfig) SetParamsFn(fn ParamsFn) {
	c.paramsFn = fn
}

// ParamsFn returns the currently bound parameter-computation function.
func (c *NodeActivationQuantizationConfig) ParamsFn() ParamsFn {
	return c.paramsFn
}

// Params returns the mutable numeric parameter mapping. Substitution passes
// read and overwrite entries in place.
func (c *NodeActivationQuantizationConfig) Params() fakequant.Params {
	return c.params
}

// QuantizeNodeOutput applies fake quantization to a node's output tensor.
func (c *NodeActivationQuantizationConfig) QuantizeNodeOutput(t tensor.Tensor) (tensor.Tensor, error) {
	if c.quantizer == nil {
		return tensor.Tensor{}, ErrNoQuantizerFn
	}
	fq := c.quantizer(c.NBits, c.params)
	if fq == nil {
		return tensor.Tensor{}, ErrNoQuantizerFn
	}
	out := t.Clone()
	out.Data = fq(t.Data)
	return out, nil
}

// SetActivationQuantizationParams merge-updates the numeric parameters.
// Activation quantization must be enabled.
func (c *NodeActivationQuantizationConfig) SetActivationQuantizationParams(p fakequant.Params) error {
	if !c.Enabled {
		return fmt.Errorf("%w: cannot set activation params", ErrQuantizationDisabled)
	}
	c.params.Merge(p)
	return nil
}

// CalculateAndSetActivationParams computes activation parameters from
// collected statistics tensors, mirroring the weights entry point.
func (c *NodeActivationQuantizationConfig) CalculateAndSetActivationParams(t tensor.Tensor) error {
	if !c.Enabled {
		return fmt.Errorf("%w: cannot calculate activation params", ErrQuantizationDisabled)
	}
	if c.paramsFn == nil {
		c.params = fakequant.Params{}
		return nil
	}
	p, err := c.paramsFn(t, c.LpValue, c.NBits, false, 0, c.MinThreshold)
	if err != nil {
		return fmt.Errorf("quant: computing activation params: %w", err)
	}
	return c.SetActivationQuantizationParams(p)
}

// HasActivationQuantizationParams reports whether calibration has populated
// the parameter mapping.
func (c *NodeActivationQuantizationConfig) HasActivationQuantizationParams() bool {
	return len(c.params) > 0
}

// NoQuantization is the logical negation of HasActivationQuantizationParams.
func (c *NodeActivationQuantizationConfig) NoQuantization() bool {
	return !c.HasActivationQuantizationParams()
}

// Set applies a tagged field update; inapplicable fields warn and are
// ignored.
func (c *NodeActivationQuantizationConfig) Set(f Field, value any) {
	switch f {
	case FieldActivationErrorMethod:
		if v, ok := asErrorMethod(value); ok {
			c.SetErrorMethod(v)
			return
		}
	case FieldActivationNBits:
		if v, ok := asInt(value); ok {
			c.NBits = v
			return
		}
	case FieldEnableActivationQuantization:
		if v, ok := asBool(value); ok {
			c.Enabled = v
			return
		}
	case FieldReluBoundToPowerOfTwo:
		if v, ok := asBool(value); ok {
			c.ReluBoundToPowerOfTwo = v
			return
		}
	case FieldActivationChannelEqualization:
		if v, ok := asBool(value); ok {
			c.ChannelEqualization = v
			return
		}
	case FieldInputScaling:
		if v, ok := asBool(value); ok {
			c.InputScaling = v
			return
		}
	case FieldZThreshold:
		if v, ok := asFloat64(value); ok {
			c.ZThreshold = v
			return
		}
	case FieldShiftNegativeActivationCorrection:
		if v, ok := asBool(value); ok {
			c.ShiftNegativeActivationCorrection = v
			return
		}
	case FieldShiftNegativeRatio:
		if v, ok := asFloat64(value); ok {
			c.ShiftNegativeRatio = v
			return
		}
	case FieldShiftNegativeThresholdRecalculation:
		if v, ok := asBool(value); ok {
			c.ShiftNegativeThresholdRecalculation = v
			return
		}
	case FieldMinThreshold:
		if v, ok := asFloat32(value); ok {
			c.MinThreshold = v
			return
		}
	case FieldLpValue:
		if v, ok := asFloat64(value); ok {
			c.LpValue = v
			return
		}
	}
	warnUnknownField("activation", f, value)
}

// Equal reports structural equality over all fourteen tracked fields. The
// relu-bound flag is deliberately not part of equality; it only steers
// threshold refinement after calibration.
func (c *NodeActivationQuantizationConfig) Equal(other *NodeActivationQuantizationConfig) bool {
	if c == nil || other == nil {
		return c == other
	}
	return c.quantizerTag == other.quantizerTag &&
		c.paramsTag == other.paramsTag &&
		c.errorMethod == other.errorMethod &&
		c.Method == other.Method &&
		c.NBits == other.NBits &&
		c.Enabled == other.Enabled &&
		c.ChannelEqualization == other.ChannelEqualization &&
		c.InputScaling == other.InputScaling &&
		c.MinThreshold == other.MinThreshold &&
		c.LpValue == other.LpValue &&
		c.ShiftNegativeActivationCorrection == other.ShiftNegativeActivationCorrection &&
		c.ZThreshold == other.ZThreshold &&
		c.ShiftNegativeRatio == other.ShiftNegativeRatio &&
		c.ShiftNegativeThresholdRecalculation == other.ShiftNegativeThresholdRecalculation
}

// Hash returns a structural hash consistent with Equal.
func (c *NodeActivationQuantizationConfig) Hash() uint64 {
	h := newHasher()
	h.writeInt(int(c.quantizerTag))
	h.writeInt(int(c.paramsTag))
	h.writeInt(int(c.errorMethod))
	h.writeInt(int(c.Method))
	h.writeInt(c.NBits)
	h.writeBool(c.Enabled)
	h.writeBool(c.ChannelEqualization)
	h.writeBool(c.InputScaling)
	h.writeFloat32(c.MinThreshold)
	h.writeFloat64(c.LpValue)
	h.writeBool(c.ShiftNegativeActivationCorrection)
	h.writeFloat64(c.ZThreshold)
	h.writeFloat64(c.ShiftNegativeRatio)
	h.writeBool(c.ShiftNegativeThresholdRecalculation)
	return h.sum()
}

// String dumps the resolved fields as one "name: value" line each.
func (c *NodeActivationQuantizationConfig) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "activation_quantization_method: %s\n", c.Method)
	fmt.Fprintf(&b, "activation_error_method: %s\n", c.errorMethod)
	fmt.Fprintf(&b, "activation_n_bits: %d\n", c.NBits)
	fmt.Fprintf(&b, "enable_activation_quantization: %t\n", c.Enabled)
	fmt.Fprintf(&b, "relu_bound_to_power_of_2: %t\n", c.ReluBoundToPowerOfTwo)
	fmt.Fprintf(&b, "activation_channel_equalization: %t\n", c.ChannelEqualization)
	fmt.Fprintf(&b, "input_scaling: %t\n", c.InputScaling)
	fmt.Fprintf(&b, "min_threshold: %g\n", c.MinThreshold)
	fmt.Fprintf(&b, "l_p_value: %g\n", c.LpValue)
	fmt.Fprintf(&b, "shift_negative_activation_correction: %t\n", c.ShiftNegativeActivationCorrection)
	fmt.Fprintf(&b, "z_threshold: %g\n", c.ZThreshold)
	fmt.Fprintf(&b, "shift_negative_ratio: %g\n", c.ShiftNegativeRatio)
	fmt.Fprintf(&b, "shift_negative_threshold_recalculation: %t\n", c.ShiftNegativeThresholdRecalculation)
	fmt.Fprintf(&b, "activation_quantization_params: %v\n", c.params)
	return b.String()
}
