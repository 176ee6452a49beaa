package goAccess

import (
	"sync"
	"testing"
	"time"
)

func TestMetricsDisabledNoIncrement(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: false})
	m.Inc(MetricLoginSuccess)
	m.Add(MetricSessionEvicted, 3)

	if got := m.Value(MetricLoginSuccess); got != 0 {
		t.Fatalf("expected 0, got %d", got)
	}
	if snap := m.Snapshot(); len(snap.Counters) != 0 {
		t.Fatalf("expected empty snapshot when disabled")
	}
}

func TestMetricsNilReceiverSafe(t *testing.T) {
	var m *Metrics
	m.Inc(MetricLoginSuccess)
	m.Observe(MetricValidateLatency, time.Millisecond)
	if m.Value(MetricLoginSuccess) != 0 || m.Enabled() || m.LatencyEnabled() {
		t.Fatalf("nil metrics must be inert")
	}
}

func TestMetricsEnabledIncrement(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})
	m.Inc(MetricTokenIssued)
	m.Inc(MetricTokenIssued)
	m.Add(MetricTokenIssued, 3)

	if got := m.Value(MetricTokenIssued); got != 5 {
		t.Fatalf("expected 5, got %d", got)
	}
}

func TestMetricsParallelSessionLifecycle(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})

	const users = 16
	const loginsPerUser = 250

	var wg sync.WaitGroup
	for u := 0; u < users; u++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < loginsPerUser; i++ {
				m.Inc(MetricSessionCreated)
				m.Add(MetricTokenIssued, 2)
				if i%5 == 0 {
					m.Inc(MetricSessionEvicted)
				}
			}
		}()
	}
	wg.Wait()

	if got := m.Value(MetricSessionCreated); got != users*loginsPerUser {
		t.Fatalf("sessions created = %d, want %d", got, users*loginsPerUser)
	}
	if got := m.Value(MetricTokenIssued); got != 2*users*loginsPerUser {
		t.Fatalf("tokens issued = %d, want %d", got, 2*users*loginsPerUser)
	}
	if got := m.Value(MetricSessionEvicted); got != users*loginsPerUser/5 {
		t.Fatalf("sessions evicted = %d, want %d", got, users*loginsPerUser/5)
	}
}

func TestMetricsLatencyBucketPlacement(t *testing.T) {
	cases := []struct {
		d      time.Duration
		bucket int
	}{
		{0, 0},
		{5 * time.Millisecond, 0},
		{5*time.Millisecond + 900*time.Microsecond, 0},
		{6 * time.Millisecond, 1},
		{25 * time.Millisecond, 2},
		{99 * time.Millisecond, 4},
		{500 * time.Millisecond, 6},
		{3 * time.Second, 7},
	}
	for _, tc := range cases {
		m := NewMetrics(MetricsConfig{Enabled: true, EnableLatencyHistograms: true})
		m.Observe(MetricAuthorizeLatency, tc.d)
		buckets := m.Snapshot().Histograms[MetricAuthorizeLatency]
		if len(buckets) != len(HistogramBoundsMs)+1 {
			t.Fatalf("expected %d buckets, got %d", len(HistogramBoundsMs)+1, len(buckets))
		}
		for i, v := range buckets {
			want := uint64(0)
			if i == tc.bucket {
				want = 1
			}
			if v != want {
				t.Fatalf("%v: bucket %d = %d, want %d", tc.d, i, v, want)
			}
		}
	}
}

func TestMetricsObserveIgnoresCounters(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true, EnableLatencyHistograms: true})
	m.Observe(MetricLoginSuccess, time.Millisecond)

	snap := m.Snapshot()
	if _, ok := snap.Histograms[MetricLoginSuccess]; ok {
		t.Fatalf("counter ids must not produce histograms")
	}
	if _, ok := snap.Counters[MetricValidateLatency]; ok {
		t.Fatalf("histogram ids must not appear as counters")
	}
}

func TestMetricsSnapshotIsDetached(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true, EnableLatencyHistograms: true})
	m.Inc(MetricAuthzDenied)
	m.Observe(MetricValidateLatency, 30*time.Millisecond)

	snap := m.Snapshot()
	m.Inc(MetricAuthzDenied)
	m.Observe(MetricValidateLatency, 30*time.Millisecond)
	snap.Histograms[MetricValidateLatency][3] = 99

	if snap.Counters[MetricAuthzDenied] != 1 {
		t.Fatalf("snapshot counter moved after later Inc: %d", snap.Counters[MetricAuthzDenied])
	}
	if got := m.Snapshot().Histograms[MetricValidateLatency][3]; got != 2 {
		t.Fatalf("live histogram bucket = %d, want 2", got)
	}
}

func TestMetricsLatencyRequiresEnabled(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: false, EnableLatencyHistograms: true})
	if m.LatencyEnabled() {
		t.Fatalf("latency must stay off when metrics are disabled")
	}
}
