package quant

import (
	"github.com/lowbit-ml/lowbit/internal/tensor"
	"github.com/lowbit-ml/lowbit/pkg/fakequant"
)

// ParamsFn computes quantization parameters from tensor data. p is the
// Lp-norm exponent of the error search, channelAxis the output channel axis
// (used only when perChannel is set).
type ParamsFn func(t tensor.Tensor, p float64, nBits int, perChannel bool, channelAxis int, minThreshold float32) (fakequant.Params, error)

// The registries are pure lookups from method to function. Weights and
// activations are looked up independently even where the entries coincide,
// so platform capabilities can diverge later without touching call sites.

// WeightsQuantizerFor returns the fake-quantizer builder for a weights
// quantization method, or nil when the method has none.
func WeightsQuantizerFor(m Method) fakequant.Builder {
	return quantizerFor(m)
}

// ActivationQuantizerFor returns the fake-quantizer builder for an
// activation quantization method, or nil when the method has none.
func ActivationQuantizerFor(m Method) fakequant.Builder {
	return quantizerFor(m)
}

func quantizerFor(m Method) fakequant.Builder {
	switch m {
	case MethodPowerOfTwo, MethodSymmetric:
		return fakequant.SymmetricQuantizer
	case MethodUniform:
		return fakequant.UniformQuantizer
	case MethodIdentity:
		return identityQuantizer
	default:
		return nil
	}
}

func identityQuantizer(int, fakequant.Params) fakequant.Quantizer {
	return func(data []float32) []float32 { return data }
}

// WeightsParamsFnFor returns the parameter-computation function for a
// weights quantization method. A nil result is valid: it marks methods that
// need no statistical calibration.
func WeightsParamsFnFor(m Method) ParamsFn {
	return paramsFnFor(m)
}

// ActivationParamsFnFor returns the parameter-computation function for an
// activation quantization method; nil for methods without calibration.
func ActivationParamsFnFor(m Method) ParamsFn {
	return paramsFnFor(m)
}

func paramsFnFor(m Method) ParamsFn {
	switch m {
	case MethodPowerOfTwo:
		return func(t tensor.Tensor, _ float64, _ int, perChannel bool, axis int, minThreshold float32) (fakequant.Params, error) {
			return fakequant.PowerOfTwoParams(t.Data, t.Shape, perChannel, axis, minThreshold), nil
		}
	case MethodSymmetric:
		return func(t tensor.Tensor, _ float64, _ int, perChannel bool, axis int, minThreshold float32) (fakequant.Params, error) {
			return fakequant.SymmetricParams(t.Data, t.Shape, perChannel, axis, minThreshold), nil
		}
	case MethodUniform:
		return func(t tensor.Tensor, _ float64, _ int, perChannel bool, axis int, minThreshold float32) (fakequant.Params, error) {
			return fakequant.UniformParams(t.Data, t.Shape, perChannel, axis, minThreshold), nil
		}
	default:
		return nil
	}
}
