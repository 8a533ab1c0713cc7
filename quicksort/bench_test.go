package quicksort

import (
	"math/rand"
	"slices"
	"strconv"
	"testing"

	"github.com/aclements/go-perfevent/perfbench"
)

func BenchmarkSort(b *testing.B) {
	for _, n := range []int{16, 64, 1024, 1 << 16} {
		src := make([]float64, n)
		for i := range src {
			src[i] = rand.Float64()
		}
		b.Run("impl=slices/len="+strconv.Itoa(n), func(b *testing.B) {
			benchmarkSort(b, src, slices.Sort[[]float64])
		})
		b.Run("impl=dualPivot/len="+strconv.Itoa(n), func(b *testing.B) {
			benchmarkSort(b, src, Sort[float64])
		})
	}
}

func benchmarkSort(b *testing.B, src []float64, sortFn func([]float64)) {
	s := make([]float64, len(src))
	cs := perfbench.Open(b)
	b.ResetTimer()
	cs.Reset()
	for i := 0; i < b.N; i++ {
		b.StopTimer()
		copy(s, src)
		b.StartTimer()
		sortFn(s)
	}
}
