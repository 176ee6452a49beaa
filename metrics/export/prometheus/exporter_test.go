package prometheus

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	goAccess "github.com/MrEthical07/goAccess"
	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

type fakeSource struct {
	snapshot goAccess.MetricsSnapshot
	dropped  uint64
}

func (f fakeSource) MetricsSnapshot() goAccess.MetricsSnapshot { return f.snapshot }
func (f fakeSource) AuditDropped() uint64                      { return f.dropped }

func scrape(t *testing.T, h http.Handler) string {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body, err := io.ReadAll(rec.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return string(body)
}

func TestCollectEmptyWhenMetricsDisabled(t *testing.T) {
	exp := NewPrometheusExporterFromSource(fakeSource{
		snapshot: goAccess.MetricsSnapshot{
			Counters:   map[goAccess.MetricID]uint64{},
			Histograms: map[goAccess.MetricID][]uint64{},
		},
	})

	if n := testutil.CollectAndCount(exp); n != 0 {
		t.Fatalf("expected no metrics for disabled engine, got %d", n)
	}
}

func TestHandlerIncludesCounterAndHistogram(t *testing.T) {
	exp := NewPrometheusExporterFromSource(fakeSource{
		snapshot: goAccess.MetricsSnapshot{
			Counters: map[goAccess.MetricID]uint64{
				goAccess.MetricLoginSuccess:   7,
				goAccess.MetricSessionEvicted: 3,
			},
			Histograms: map[goAccess.MetricID][]uint64{
				goAccess.MetricValidateLatency: {1, 2, 3, 4, 5, 6, 7, 8},
			},
		},
		dropped: 2,
	})

	out := scrape(t, exp.Handler())
	for _, want := range []string{
		"goaccess_login_success_total 7",
		"goaccess_session_evicted_total 3",
		`goaccess_validate_latency_seconds_bucket{le="0.005"} 1`,
		`goaccess_validate_latency_seconds_bucket{le="+Inf"} 36`,
		"goaccess_validate_latency_seconds_count 36",
		"goaccess_audit_dropped_total 2",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output, got:\n%s", want, out)
		}
	}
}

func TestRegisterOnSharedRegistry(t *testing.T) {
	exp := NewPrometheusExporterFromSource(fakeSource{
		snapshot: goAccess.MetricsSnapshot{Counters: map[goAccess.MetricID]uint64{goAccess.MetricLogout: 1}},
	})
	reg := promclient.NewRegistry()
	if _, err := exp.Register(reg); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if _, err := exp.Register(reg); err == nil {
		t.Fatal("expected duplicate registration to fail")
	}
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather failed: %v", err)
	}
	if len(families) == 0 {
		t.Fatal("expected gathered families")
	}
}

func TestExporterReadsLiveEngine(t *testing.T) {
	cfg := goAccess.DefaultConfig()
	cfg.Metrics.Enabled = true
	engine, err := goAccess.New().WithConfig(cfg).Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer engine.Close()

	out := scrape(t, NewPrometheusExporter(engine).Handler())
	if !strings.Contains(out, "goaccess_key_rotated_total 1") {
		t.Fatalf("expected initial key rotation counted, got:\n%s", out)
	}
}

func BenchmarkCollect(b *testing.B) {
	exp := NewPrometheusExporterFromSource(fakeSource{
		snapshot: goAccess.MetricsSnapshot{
			Counters: map[goAccess.MetricID]uint64{
				goAccess.MetricLoginSuccess:   1000,
				goAccess.MetricRefreshSuccess: 800,
				goAccess.MetricSessionCreated: 800,
			},
			Histograms: map[goAccess.MetricID][]uint64{
				goAccess.MetricValidateLatency: {10, 20, 30, 40, 50, 60, 70, 80},
			},
		},
	})

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		ch := make(chan promclient.Metric, 64)
		exp.Collect(ch)
	}
}
