package parallel

import (
	"sync/atomic"
	"testing"
)

func TestParallelizeCoversEveryItemOnce(t *testing.T) {
	for _, items := range []int{0, 1, 7, 100, 1001} {
		hits := make([]int32, items)
		Parallelize(items, func(start, end int) {
			for i := start; i < end; i++ {
				atomic.AddInt32(&hits[i], 1)
			}
		})
		for i, h := range hits {
			if h != 1 {
				t.Fatalf("items=%d: index %d visited %d times", items, i, h)
			}
		}
	}
}

func TestParallelizeNMoreWorkersThanItems(t *testing.T) {
	var calls int32
	ParallelizeN(3, 16, func(start, end int) {
		atomic.AddInt32(&calls, 1)
		if end-start != 1 {
			t.Errorf("expected single-item ranges, got [%d,%d)", start, end)
		}
	})
	if calls != 3 {
		t.Errorf("expected 3 ranges, got %d", calls)
	}
}

func TestParallelizeWithThresholdSequential(t *testing.T) {
	var ranges [][2]int
	ParallelizeWithThreshold(10, 64, func(start, end int) {
		ranges = append(ranges, [2]int{start, end})
	})
	if len(ranges) != 1 || ranges[0] != [2]int{0, 10} {
		t.Errorf("expected one sequential range [0,10), got %v", ranges)
	}
}
