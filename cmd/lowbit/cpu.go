package main

import (
	"context"
	"fmt"
	"runtime"

	"github.com/urfave/cli/v3"
	"golang.org/x/sys/cpu"

	"github.com/lowbit-ml/lowbit/internal/tpc"
)

func cpuCmd() *cli.Command {
	return &cli.Command{
		Name:  "cpu",
		Usage: "Report detected SIMD features and the suggested simd_size",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			fmt.Printf("arch:      %s\n", runtime.GOARCH)
			switch runtime.GOARCH {
			case "amd64":
				fmt.Printf("avx512f:   %t\n", cpu.X86.HasAVX512F)
				fmt.Printf("avx2:      %t\n", cpu.X86.HasAVX2)
				fmt.Printf("avx:       %t\n", cpu.X86.HasAVX)
				fmt.Printf("sse2:      %t\n", cpu.X86.HasSSE2)
			case "arm64":
				fmt.Printf("asimd:     %t\n", cpu.ARM64.HasASIMD)
			}
			fmt.Printf("simd_size: %d\n", tpc.SuggestedSIMDSize())
			return nil
		},
	}
}
