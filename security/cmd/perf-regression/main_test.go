package main

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"
)

func benchOutput(scale float64) string {
	var b strings.Builder
	b.WriteString("goos: linux\ngoarch: amd64\npkg: github.com/MrEthical07/goAccess\n")
	for run := 0; run < 3; run++ {
		fmt.Fprintf(&b, "BenchmarkValidateJWTOnly-8   \t 500000\t %.0f ns/op\t 512 B/op\t 9 allocs/op\n", 2000*scale)
		fmt.Fprintf(&b, "BenchmarkValidateStrict-8    \t 300000\t %.0f ns/op\t 800 B/op\t 14 allocs/op\n", 3500*scale)
		fmt.Fprintf(&b, "BenchmarkRefresh-8           \t 100000\t %.0f ns/op\t 2048 B/op\t 40 allocs/op\n", 9000*scale)
		fmt.Fprintf(&b, "BenchmarkLogin-8             \t  50000\t %.0f ns/op\t 4096 B/op\t 70 allocs/op\n", 20000*scale)
		fmt.Fprintf(&b, "BenchmarkAuthorize-8         \t 200000\t %.0f ns/op\t 900 B/op\t 16 allocs/op\n", 4000*scale)
	}
	b.WriteString("PASS\n")
	return b.String()
}

func mustParse(t *testing.T, s string) sampleSet {
	t.Helper()
	set, err := parseBenchmarks(strings.NewReader(s))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	return set
}

func TestParseBenchmarks(t *testing.T) {
	set := mustParse(t, benchOutput(1))
	got := set["BenchmarkValidateStrict"]["ns/op"]
	if len(got) != 3 || got[0] != 3500 {
		t.Fatalf("unexpected samples %v", got)
	}
	if _, ok := set["goos:"]; ok {
		t.Fatal("non-benchmark lines must be ignored")
	}
}

func TestNormalizeBenchmarkName(t *testing.T) {
	tests := map[string]string{
		"BenchmarkRefresh-16":    "BenchmarkRefresh",
		"BenchmarkRefresh":       "BenchmarkRefresh",
		"BenchmarkFoo-bar":       "BenchmarkFoo-bar",
		"BenchmarkAuthorize-8-4": "BenchmarkAuthorize-8",
	}
	for in, want := range tests {
		if got := normalizeBenchmarkName(in); got != want {
			t.Fatalf("normalizeBenchmarkName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestReportWithinThreshold(t *testing.T) {
	var out bytes.Buffer
	err := report(&out, mustParse(t, benchOutput(1)), mustParse(t, benchOutput(1.1)), defaultThreshold)
	if err != nil {
		t.Fatalf("expected pass, got %v\n%s", err, out.String())
	}
	if !strings.Contains(out.String(), "BenchmarkAuthorize ns/op") {
		t.Fatalf("expected authorize row, got %s", out.String())
	}
}

func TestReportDetectsRegression(t *testing.T) {
	var out bytes.Buffer
	err := report(&out, mustParse(t, benchOutput(1)), mustParse(t, benchOutput(1.5)), defaultThreshold)
	if !errors.Is(err, errRegression) {
		t.Fatalf("expected regression, got %v", err)
	}
	if !strings.Contains(out.String(), "BenchmarkLogin ns/op regressed") {
		t.Fatalf("expected login regression line, got %s", out.String())
	}
}

func TestReportMissingSamples(t *testing.T) {
	base := mustParse(t, benchOutput(1))
	delete(base, "BenchmarkRefresh")
	_, failures := compare(base, mustParse(t, benchOutput(1)), defaultThreshold)
	if len(failures) != 1 || !strings.Contains(failures[0], "BenchmarkRefresh") {
		t.Fatalf("unexpected failures %v", failures)
	}
}

func TestMedian(t *testing.T) {
	if got := median([]float64{5, 1, 3}); got != 3 {
		t.Fatalf("odd median = %v", got)
	}
	if got := median([]float64{4, 1, 3, 2}); got != 2.5 {
		t.Fatalf("even median = %v", got)
	}
	if got := median(nil); got != 0 {
		t.Fatalf("empty median = %v", got)
	}
}
