package quant

import (
	"testing"

	"gopkg.in/yaml.v3"
)

func TestParseMethod(t *testing.T) {
	tests := []struct {
		in      string
		want    Method
		wantErr bool
	}{
		{"power_of_two", MethodPowerOfTwo, false},
		{"symmetric", MethodSymmetric, false},
		{"uniform", MethodUniform, false},
		{"identity", MethodIdentity, false},
		{"lut", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseMethod(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseMethod(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if err == nil && got != tt.want {
			t.Errorf("ParseMethod(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestParseErrorMethod(t *testing.T) {
	tests := []struct {
		in      string
		want    ErrorMethod
		wantErr bool
	}{
		{"no_clipping", ErrorNoClipping, false},
		{"mse", ErrorMSE, false},
		{"mae", ErrorMAE, false},
		{"lp", ErrorLp, false},
		{"kl", ErrorKL, false},
		{"hinge", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseErrorMethod(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseErrorMethod(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if err == nil && got != tt.want {
			t.Errorf("ParseErrorMethod(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestMethodYAMLRoundTrip(t *testing.T) {
	var cfg AttributeQuantizationConfig
	src := "weights_quantization_method: symmetric\nweights_n_bits: 4\n"
	if err := yaml.Unmarshal([]byte(src), &cfg); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if cfg.Method != MethodSymmetric || cfg.NBits != 4 {
		t.Fatalf("unexpected config: %+v", cfg)
	}

	out, err := yaml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var back AttributeQuantizationConfig
	if err := yaml.Unmarshal(out, &back); err != nil {
		t.Fatalf("round trip: %v", err)
	}
	if back.Method != MethodSymmetric {
		t.Errorf("round trip method = %v", back.Method)
	}
}

func TestMethodYAMLRejectsUnknown(t *testing.T) {
	var cfg AttributeQuantizationConfig
	err := yaml.Unmarshal([]byte("weights_quantization_method: kmeans\n"), &cfg)
	if err == nil {
		t.Fatal("expected an error for an unknown method name")
	}
}
