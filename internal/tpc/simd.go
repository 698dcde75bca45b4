package tpc

import (
	"runtime"

	"golang.org/x/sys/cpu"
)

// SuggestedSIMDSize returns the float32 lane count of the widest vector
// unit the host CPU offers. Capability authors targeting the host can use
// it as the simd_size default; cross-targeting ones should set their own.
func SuggestedSIMDSize() int {
	switch runtime.GOARCH {
	case "amd64", "386":
		switch {
		case cpu.X86.HasAVX512F:
			return 16
		case cpu.X86.HasAVX2, cpu.X86.HasAVX:
			return 8
		case cpu.X86.HasSSE2:
			return 4
		}
	case "arm64":
		if cpu.ARM64.HasASIMD {
			return 4
		}
	}
	return 1
}
