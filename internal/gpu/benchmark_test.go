package gpu

import (
	"fmt"
	"testing"

	"go.uber.org/zap"
)

func benchmarkFilter(b *testing.B, backend GPUBackend, spec FilterSpec, sizes []int) {
	for _, size := range sizes {
		b.Run(fmt.Sprintf("size_%d", size), func(b *testing.B) {
			src := NewHostImage(size, size)
			for i := range src.Pix {
				src.Pix[i] = uint8(i % 251)
			}

			in, err := backend.Upload(src)
			if err != nil {
				b.Fatal(err)
			}
			defer backend.Free(in)

			b.ResetTimer()

			for i := 0; i < b.N; i++ {
				out, err := backend.Filter(in, spec)
				if err != nil {
					b.Fatal(err)
				}
				if err := backend.Free(out); err != nil {
					b.Fatal(err)
				}
			}

			pixels := float64(size*size) * float64(b.N)
			b.ReportMetric(pixels/b.Elapsed().Seconds()/1e6, "Mpix/s")
		})
	}
}

func BenchmarkGPUBackend_BoxFilter(b *testing.B) {
	// Best available backend: CUDA when built with the tag, else CPU
	manager, err := NewManager(zap.NewNop(), Options{})
	if err != nil {
		b.Fatal(err)
	}
	defer manager.Cleanup()

	benchmarkFilter(b, manager.GetBackend(), CenteredSpec(OpBoxFilter, 5), []int{256, 512, 1024, 2048})
}

func BenchmarkCPUBackend_BoxFilter(b *testing.B) {
	backend := NewCPUBackend(zap.NewNop())
	if err := backend.Initialize(); err != nil {
		b.Fatal(err)
	}
	defer backend.Cleanup()

	// Use smaller sizes for CPU to keep benchmark reasonable
	benchmarkFilter(b, backend, CenteredSpec(OpBoxFilter, 5), []int{64, 256, 512})
}

func BenchmarkCPUBackend_GaussFilter(b *testing.B) {
	backend := NewCPUBackend(zap.NewNop())
	if err := backend.Initialize(); err != nil {
		b.Fatal(err)
	}
	defer backend.Cleanup()

	benchmarkFilter(b, backend, CenteredSpec(OpGaussFilter, 3), []int{64, 256, 512})
}
