package quant

import (
	"fmt"

	"github.com/lowbit-ml/lowbit/internal/logger"
)

// Warnings from the configuration model (unknown field updates, resolvable
// attribute-name ambiguity) go through a package-level logger so that bulk
// callers need no plumbing. Fatal conditions are returned as errors instead.
var log logger.Logger = logger.Default()

// SetLogger replaces the package logger. Tests use it to capture warnings.
func SetLogger(l logger.Logger) {
	if l != nil {
		log = l
	}
}

// Field enumerates the mutable configuration fields addressable through the
// generic Set entry points. Calibration-adjustment and search passes update
// configs through these tags instead of per-field setters; a field that does
// not apply to the receiving config warns and is ignored, never an error.
type Field int

const (
	FieldActivationErrorMethod Field = iota
	FieldActivationNBits
	FieldEnableActivationQuantization
	FieldReluBoundToPowerOfTwo
	FieldActivationChannelEqualization
	FieldInputScaling
	FieldZThreshold
	FieldShiftNegativeActivationCorrection
	FieldShiftNegativeRatio
	FieldShiftNegativeThresholdRecalculation

	FieldWeightsErrorMethod
	FieldWeightsNBits
	FieldEnableWeightsQuantization
	FieldWeightsPerChannelThreshold

	FieldMinThreshold
	FieldLpValue
	FieldSIMDSize
	FieldWeightsBiasCorrection
	FieldWeightsSecondMomentCorrection
)

var fieldNames = map[Field]string{
	FieldActivationErrorMethod:               "activation_error_method",
	FieldActivationNBits:                     "activation_n_bits",
	FieldEnableActivationQuantization:        "enable_activation_quantization",
	FieldReluBoundToPowerOfTwo:               "relu_bound_to_power_of_2",
	FieldActivationChannelEqualization:       "activation_channel_equalization",
	FieldInputScaling:                        "input_scaling",
	FieldZThreshold:                          "z_threshold",
	FieldShiftNegativeActivationCorrection:   "shift_negative_activation_correction",
	FieldShiftNegativeRatio:                  "shift_negative_ratio",
	FieldShiftNegativeThresholdRecalculation: "shift_negative_threshold_recalculation",
	FieldWeightsErrorMethod:                  "weights_error_method",
	FieldWeightsNBits:                        "weights_n_bits",
	FieldEnableWeightsQuantization:           "enable_weights_quantization",
	FieldWeightsPerChannelThreshold:          "weights_per_channel_threshold",
	FieldMinThreshold:                        "min_threshold",
	FieldLpValue:                             "l_p_value",
	FieldSIMDSize:                            "simd_size",
	FieldWeightsBiasCorrection:               "weights_bias_correction",
	FieldWeightsSecondMomentCorrection:       "weights_second_moment_correction",
}

func (f Field) String() string {
	if s, ok := fieldNames[f]; ok {
		return s
	}
	return "unknown_field"
}

// ParseField resolves a field tag from its wire name.
func ParseField(s string) (Field, error) {
	for f, name := range fieldNames {
		if name == s {
			return f, nil
		}
	}
	return 0, fmt.Errorf("unknown config field %q", s)
}

// warnUnknownField implements the shared "ignore unknown, warn" contract.
func warnUnknownField(config string, f Field, value any) {
	log.Warn("field could not be found in the node quantization config and was not updated",
		"config", config, "field", f.String(), "value", value)
}

// Conversion helpers for tagged updates. Callers pass plain Go values; JSON
// decoders hand numbers over as float64, so numeric fields accept both.

func asInt(v any) (int, bool) {
	switch x := v.(type) {
	case int:
		return x, true
	case int64:
		return int(x), true
	case float64:
		return int(x), true
	default:
		return 0, false
	}
}

func asFloat32(v any) (float32, bool) {
	switch x := v.(type) {
	case float32:
		return x, true
	case float64:
		return float32(x), true
	case int:
		return float32(x), true
	default:
		return 0, false
	}
}

func asFloat64(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	default:
		return 0, false
	}
}

func asBool(v any) (bool, bool) {
	b, ok := v.(bool)
	return b, ok
}

func asErrorMethod(v any) (ErrorMethod, bool) {
	switch x := v.(type) {
	case ErrorMethod:
		return x, true
	case string:
		e, err := ParseErrorMethod(x)
		return e, err == nil
	default:
		return 0, false
	}
}
