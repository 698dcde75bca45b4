package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/lowbit-ml/lowbit/internal/quant"
)

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoadQuantConfigDefaults(t *testing.T) {
	qc, err := loadQuantConfig("")
	if err != nil {
		t.Fatalf("load default config: %v", err)
	}
	if qc.WeightsErrorMethod != quant.ErrorMSE {
		t.Fatalf("default weights error method: got %v", qc.WeightsErrorMethod)
	}
}

func TestLoadQuantConfigOverridesDefaults(t *testing.T) {
	path := writeTempFile(t, "quant.yaml", "weights_error_method: mae\nz_threshold: 3.5\n")

	qc, err := loadQuantConfig(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if qc.WeightsErrorMethod != quant.ErrorMAE {
		t.Fatalf("weights error method: got %v, want mae", qc.WeightsErrorMethod)
	}
	if qc.ZThreshold != 3.5 {
		t.Fatalf("z threshold: got %v, want 3.5", qc.ZThreshold)
	}
	if qc.ActivationErrorMethod != quant.ErrorMSE {
		t.Fatalf("untouched field lost its default: got %v", qc.ActivationErrorMethod)
	}
}

func TestLoadStats(t *testing.T) {
	path := writeTempFile(t, "stats.json",
		`{"relu1": {"shape": [4], "data": [0.5, -1, 2, 3]}}`)

	stats, err := loadStats(path)
	if err != nil {
		t.Fatalf("load stats: %v", err)
	}
	tens, ok := stats["relu1"]
	if !ok {
		t.Fatalf("relu1 missing from stats")
	}
	if tens.Len() != 4 {
		t.Fatalf("stat tensor length: got %d, want 4", tens.Len())
	}
}

func TestLoadGraphMissingFile(t *testing.T) {
	if _, err := loadGraph(filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Fatal("expected error for missing graph file")
	}
}
