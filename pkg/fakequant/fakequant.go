// Package fakequant implements the numeric side of fake quantization:
// computing clipping thresholds and quantization ranges from tensor data, and
// building quantizer closures that simulate low-precision arithmetic while
// keeping float32 values end to end.
package fakequant

import "math"

// Parameter keys shared between params computation and quantizer builders.
const (
	Threshold = "threshold"
	RangeMin  = "range_min"
	RangeMax  = "range_max"
)

// Params holds computed quantization parameters keyed by name. A scalar
// parameter is a length-1 slice; per-channel parameters carry one value per
// output channel.
type Params map[string][]float32

// Scalar returns the first value stored under key, or false if the key is
// absent or empty.
func (p Params) Scalar(key string) (float32, bool) {
	v, ok := p[key]
	if !ok || len(v) == 0 {
		return 0, false
	}
	return v[0], true
}

// Merge copies every entry of other into p, overwriting existing keys.
func (p Params) Merge(other Params) {
	for k, v := range other {
		p[k] = v
	}
}

// Clone returns a deep copy of p.
func (p Params) Clone() Params {
	out := make(Params, len(p))
	for k, v := range p {
		cp := make([]float32, len(v))
		copy(cp, v)
		out[k] = cp
	}
	return out
}

// Quantizer maps a float32 tensor to its fake-quantized counterpart. The
// output has the same length and dtype as the input.
type Quantizer func(data []float32) []float32

// Builder constructs a Quantizer from a bit-width and computed parameters.
// A nil Quantizer means the parameters are insufficient; the caller treats
// that as a configuration inconsistency.
type Builder func(nBits int, params Params) Quantizer

// SymmetricQuantizer builds a signed symmetric quantizer clipped at the
// threshold parameter. Power-of-two and symmetric methods share it: the
// threshold itself is what differs between them.
func SymmetricQuantizer(nBits int, params Params) Quantizer {
	threshold, ok := params.Scalar(Threshold)
	if !ok || threshold <= 0 || nBits <= 0 {
		return nil
	}
	qMax := float64(int64(1)<<(nBits-1)) - 1
	qMin := -float64(int64(1) << (nBits - 1))
	scale := float64(threshold) / float64(int64(1)<<(nBits-1))
	return func(data []float32) []float32 {
		out := make([]float32, len(data))
		for i, v := range data {
			q := math.Round(float64(v) / scale)
			if q > qMax {
				q = qMax
			} else if q < qMin {
				q = qMin
			}
			out[i] = float32(q * scale)
		}
		return out
	}
}

// UniformQuantizer builds an affine quantizer over [range_min, range_max].
func UniformQuantizer(nBits int, params Params) Quantizer {
	lo, okLo := params.Scalar(RangeMin)
	hi, okHi := params.Scalar(RangeMax)
	if !okLo || !okHi || hi <= lo || nBits <= 0 {
		return nil
	}
	levels := float64(int64(1)<<nBits) - 1
	scale := (float64(hi) - float64(lo)) / levels
	return func(data []float32) []float32 {
		out := make([]float32, len(data))
		for i, v := range data {
			q := math.Round((float64(v) - float64(lo)) / scale)
			if q < 0 {
				q = 0
			} else if q > levels {
				q = levels
			}
			out[i] = float32(q*scale + float64(lo))
		}
		return out
	}
}
