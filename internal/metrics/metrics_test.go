package metrics

import (
	"sync"
	"testing"
	"time"
)

func TestDisabledNoIncrement(t *testing.T) {
	m := New(Config{Enabled: false})
	m.Inc(MetricCodeRejected)

	if got := m.Value(MetricCodeRejected); got != 0 {
		t.Fatalf("expected 0, got %d", got)
	}
	if s := m.Snapshot(); len(s.Counters) != 0 {
		t.Fatalf("expected empty snapshot, got %v", s.Counters)
	}
}

func TestConcurrentIncrement(t *testing.T) {
	m := New(Config{Enabled: true})

	const goroutines = 16
	const perG = 1000

	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < perG; j++ {
				m.Inc(MetricResetRequested)
			}
		}()
	}
	wg.Wait()

	if got := m.Value(MetricResetRequested); got != goroutines*perG {
		t.Fatalf("expected %d, got %d", goroutines*perG, got)
	}
}

func TestOutOfRangeIgnored(t *testing.T) {
	m := New(Config{Enabled: true})
	m.Inc(MetricIDCount + 3)
	if got := m.Value(MetricIDCount + 3); got != 0 {
		t.Fatalf("expected 0, got %d", got)
	}
}

func TestVerifyLatencyHistogram(t *testing.T) {
	m := New(Config{Enabled: true, EnableLatency: true})

	for _, d := range []time.Duration{
		2 * time.Millisecond,
		7 * time.Millisecond,
		40 * time.Millisecond,
		2 * time.Second,
	} {
		m.Observe(MetricVerifyLatency, d)
	}
	m.Observe(MetricCodeRejected, time.Millisecond)

	buckets := m.Snapshot().Histograms[MetricVerifyLatency]
	want := []uint64{1, 1, 0, 1, 0, 0, 0, 1}
	if len(buckets) != len(want) {
		t.Fatalf("expected %d buckets, got %d", len(want), len(buckets))
	}
	for i := range want {
		if buckets[i] != want[i] {
			t.Fatalf("bucket %d: expected %d, got %d", i, want[i], buckets[i])
		}
	}
}

func TestLatencyRequiresEnabled(t *testing.T) {
	m := New(Config{Enabled: false, EnableLatency: true})
	if m.LatencyEnabled() {
		t.Fatal("latency must stay off when metrics are disabled")
	}
}
