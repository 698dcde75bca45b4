package fakequant

import (
	"math"
	"testing"
)

func TestPowerOfTwoThreshold(t *testing.T) {
	tests := []struct {
		name         string
		maxAbs       float32
		minThreshold float32
		want         float32
	}{
		{"exact power", 4.0, 0, 4.0},
		{"rounds up", 5.0, 0, 8.0},
		{"below one", 0.3, 0, 0.5},
		{"zero tensor uses floor", 0, 0.25, 0.25},
		{"floor wins", 0.1, 1.0, 1.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PowerOfTwoThreshold(tt.maxAbs, tt.minThreshold)
			if got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMaxAbsPerChannel(t *testing.T) {
	// shape (2, 3): rows are channels along axis 0, columns along axis 1.
	data := []float32{1, -5, 2, -3, 4, 0}

	got := MaxAbsPerChannel(data, []int{2, 3}, 0)
	want := []float32{5, 4}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("axis 0: got %v, want %v", got, want)
		}
	}

	got = MaxAbsPerChannel(data, []int{2, 3}, 1)
	want = []float32{3, 5, 2}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("axis 1: got %v, want %v", got, want)
		}
	}

	if MaxAbsPerChannel(data, []int{2, 3}, 2) != nil {
		t.Error("expected nil for out-of-range axis")
	}
}

func TestSymmetricQuantizer(t *testing.T) {
	q := SymmetricQuantizer(8, Params{Threshold: []float32{1.0}})
	if q == nil {
		t.Fatal("expected a quantizer")
	}

	out := q([]float32{0, 0.5, -0.5, 2.0, -2.0})
	// threshold 1.0 at 8 bits: scale = 1/128, clip to [-128, 127] levels.
	if out[0] != 0 {
		t.Errorf("zero should stay exact, got %v", out[0])
	}
	if math.Abs(float64(out[1]-0.5)) > 1.0/128 {
		t.Errorf("0.5 quantized too far: %v", out[1])
	}
	if out[3] != float32(127.0/128.0) {
		t.Errorf("positive clip: got %v, want %v", out[3], float32(127.0/128.0))
	}
	if out[4] != -1.0 {
		t.Errorf("negative clip: got %v, want -1.0", out[4])
	}
}

func TestSymmetricQuantizerMissingParams(t *testing.T) {
	if q := SymmetricQuantizer(8, Params{}); q != nil {
		t.Error("expected nil quantizer without a threshold")
	}
	if q := SymmetricQuantizer(0, Params{Threshold: []float32{1}}); q != nil {
		t.Error("expected nil quantizer for zero bits")
	}
}

func TestUniformQuantizer(t *testing.T) {
	q := UniformQuantizer(2, Params{RangeMin: []float32{0}, RangeMax: []float32{3}})
	if q == nil {
		t.Fatal("expected a quantizer")
	}
	// 2 bits over [0, 3]: representable values 0, 1, 2, 3.
	out := q([]float32{-1, 0.4, 1.6, 10})
	want := []float32{0, 0, 2, 3}
	for i := range want {
		if out[i] != want[i] {
			t.Errorf("out[%d] = %v, want %v", i, out[i], want[i])
		}
	}

	if q := UniformQuantizer(2, Params{RangeMin: []float32{1}, RangeMax: []float32{1}}); q != nil {
		t.Error("expected nil quantizer for degenerate range")
	}
}

func TestUniformParamsIncludesZero(t *testing.T) {
	p := UniformParams([]float32{2, 3, 4}, []int{3}, false, 0, 0)
	lo, _ := p.Scalar(RangeMin)
	hi, _ := p.Scalar(RangeMax)
	if lo != 0 || hi != 4 {
		t.Errorf("got range [%v, %v], want [0, 4]", lo, hi)
	}
}

func TestPowerOfTwoParamsPerChannel(t *testing.T) {
	data := []float32{0.4, -3, 0.2, 1.5}
	p := PowerOfTwoParams(data, []int{2, 2}, true, 0, 0)
	got := p[Threshold]
	want := []float32{4, 2}
	if len(got) != len(want) {
		t.Fatalf("got %d thresholds, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("threshold[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestParamsMergeClone(t *testing.T) {
	p := Params{Threshold: []float32{1}}
	p.Merge(Params{Threshold: []float32{2}, RangeMin: []float32{0}})
	if v, _ := p.Scalar(Threshold); v != 2 {
		t.Errorf("merge should overwrite, got %v", v)
	}

	c := p.Clone()
	c[Threshold][0] = 9
	if v, _ := p.Scalar(Threshold); v != 2 {
		t.Error("clone must not alias the original")
	}
}
