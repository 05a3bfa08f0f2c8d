package filesearch

import (
	"fmt"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/Code-Navigation-Search/internal/scheduler"
	"github.com/Adithya-Monish-Kumar-K/Code-Navigation-Search/pkg/config"
)

func benchDataset(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("src/module%d/pkg%d/file_%d.go", i%97, i%13, i)
	}
	return out
}

// BenchmarkFullScan measures a complete scan of datasets of varying size,
// including the per-step result integration.
func BenchmarkFullScan(b *testing.B) {
	for _, n := range []int{1000, 10000, 100000} {
		dataset := benchDataset(n)
		b.Run(fmt.Sprintf("files_%d", n), func(b *testing.B) {
			cfg := config.DefaultSearchConfig()
			cfg.StepDuration = 0
			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				sched := &scheduler.Manual{}
				e := New(dataset, cfg, sched, &scheduler.FakeClock{})
				e.SetSearchText("mod4file")
				sched.Drain(0)
			}
		})
	}
}

// BenchmarkPrefixGrowth measures typing one character at a time, where each
// keystroke re-ranks the held results and continues the scan.
func BenchmarkPrefixGrowth(b *testing.B) {
	dataset := benchDataset(10000)
	cfg := config.DefaultSearchConfig()
	cfg.StepDuration = 0
	query := "module4/file"
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		sched := &scheduler.Manual{}
		e := New(dataset, cfg, sched, &scheduler.FakeClock{})
		for j := 1; j <= len(query); j++ {
			e.SetSearchText(query[:j])
			sched.Drain(3)
		}
		sched.Drain(0)
	}
}
