package fakequant

import "math"

// MaxAbs returns the largest absolute value in data, or 0 for empty data.
func MaxAbs(data []float32) float32 {
	var m float32
	for _, v := range data {
		a := v
		if a < 0 {
			a = -a
		}
		if a > m {
			m = a
		}
	}
	return m
}

// MaxAbsPerChannel computes MaxAbs independently for each slice of data along
// the given axis of shape. data is flat row-major; len(data) must equal the
// product of shape.
func MaxAbsPerChannel(data []float32, shape []int, axis int) []float32 {
	if axis < 0 || axis >= len(shape) {
		return nil
	}
	n := shape[axis]
	out := make([]float32, n)

	// inner = product of dims after axis; a flat index i belongs to channel
	// (i / inner) % shape[axis].
	inner := 1
	for _, d := range shape[axis+1:] {
		inner *= d
	}
	if inner == 0 {
		return out
	}
	for i, v := range data {
		c := (i / inner) % n
		a := v
		if a < 0 {
			a = -a
		}
		if a > out[c] {
			out[c] = a
		}
	}
	return out
}

// PowerOfTwoThreshold returns the smallest power of two that covers maxAbs,
// floored at minThreshold. A zero tensor yields minThreshold.
func PowerOfTwoThreshold(maxAbs, minThreshold float32) float32 {
	t := minThreshold
	if maxAbs > 0 {
		p := float32(math.Exp2(math.Ceil(math.Log2(float64(maxAbs)))))
		if p > t {
			t = p
		}
	}
	return t
}

// PowerOfTwoParams computes a symmetric power-of-two clipping threshold for
// data, per channel along axis when perChannel is set.
func PowerOfTwoParams(data []float32, shape []int, perChannel bool, axis int, minThreshold float32) Params {
	if perChannel {
		maxes := MaxAbsPerChannel(data, shape, axis)
		ts := make([]float32, len(maxes))
		for i, m := range maxes {
			ts[i] = PowerOfTwoThreshold(m, minThreshold)
		}
		return Params{Threshold: ts}
	}
	return Params{Threshold: []float32{PowerOfTwoThreshold(MaxAbs(data), minThreshold)}}
}

// SymmetricParams computes an unconstrained symmetric clipping threshold
// (the max absolute value itself), per channel along axis when perChannel is
// set, floored at minThreshold.
func SymmetricParams(data []float32, shape []int, perChannel bool, axis int, minThreshold float32) Params {
	floor := func(m float32) float32 {
		if m < minThreshold {
			return minThreshold
		}
		return m
	}
	if perChannel {
		maxes := MaxAbsPerChannel(data, shape, axis)
		ts := make([]float32, len(maxes))
		for i, m := range maxes {
			ts[i] = floor(m)
		}
		return Params{Threshold: ts}
	}
	return Params{Threshold: []float32{floor(MaxAbs(data))}}
}

// UniformParams computes the [min, max] quantization range of data, per
// channel along axis when perChannel is set. The range always includes zero
// so that zero stays exactly representable.
func UniformParams(data []float32, shape []int, perChannel bool, axis int, minThreshold float32) Params {
	if perChannel {
		lo, hi := minMaxPerChannel(data, shape, axis)
		for i := range lo {
			lo[i], hi[i] = adjustRange(lo[i], hi[i], minThreshold)
		}
		return Params{RangeMin: lo, RangeMax: hi}
	}
	lo, hi := minMax(data)
	lo, hi = adjustRange(lo, hi, minThreshold)
	return Params{RangeMin: []float32{lo}, RangeMax: []float32{hi}}
}

func minMax(data []float32) (float32, float32) {
	if len(data) == 0 {
		return 0, 0
	}
	lo, hi := data[0], data[0]
	for _, v := range data[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return lo, hi
}

func minMaxPerChannel(data []float32, shape []int, axis int) ([]float32, []float32) {
	if axis < 0 || axis >= len(shape) {
		return nil, nil
	}
	n := shape[axis]
	lo := make([]float32, n)
	hi := make([]float32, n)
	seen := make([]bool, n)
	inner := 1
	for _, d := range shape[axis+1:] {
		inner *= d
	}
	if inner == 0 {
		return lo, hi
	}
	for i, v := range data {
		c := (i / inner) % n
		if !seen[c] {
			lo[c], hi[c] = v, v
			seen[c] = true
			continue
		}
		if v < lo[c] {
			lo[c] = v
		}
		if v > hi[c] {
			hi[c] = v
		}
	}
	return lo, hi
}

// adjustRange clamps the range to include zero and widens degenerate ranges
// to at least minThreshold.
func adjustRange(lo, hi, minThreshold float32) (float32, float32) {
	if lo > 0 {
		lo = 0
	}
	if hi < 0 {
		hi = 0
	}
	if hi-lo < minThreshold {
		hi = lo + minThreshold
	}
	return lo, hi
}
