// Command perf-regression compares two `go test -bench` outputs and fails when
// a tracked goAccess benchmark regresses beyond a threshold.
package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

const defaultThreshold = 0.30

var trackedMetrics = map[string][]string{
	"BenchmarkValidateJWTOnly": {"ns/op", "allocs/op"},
	"BenchmarkValidateStrict":  {"ns/op", "allocs/op"},
	"BenchmarkRefresh":         {"ns/op"},
	"BenchmarkLogin":           {"ns/op"},
	"BenchmarkAuthorize":       {"ns/op", "allocs/op"},
}

var errRegression = errors.New("performance regression threshold exceeded")

type sampleSet map[string]map[string][]float64

type comparison struct {
	Benchmark string
	Metric    string
	Baseline  float64
	Candidate float64
	Delta     float64
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		baselinePath  string
		candidatePath string
		threshold     float64
	)
	cmd := &cobra.Command{
		Use:           "perf-regression",
		Short:         "Compare benchmark runs against a baseline",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if threshold < 0 {
				return errors.New("--threshold must be >= 0")
			}
			baseline, err := parseBenchmarkFile(baselinePath)
			if err != nil {
				return fmt.Errorf("parse baseline: %w", err)
			}
			candidate, err := parseBenchmarkFile(candidatePath)
			if err != nil {
				return fmt.Errorf("parse candidate: %w", err)
			}
			return report(cmd.OutOrStdout(), baseline, candidate, threshold)
		},
	}
	cmd.Flags().StringVar(&baselinePath, "baseline", "", "path to baseline benchmark output")
	cmd.Flags().StringVar(&candidatePath, "candidate", "", "path to candidate benchmark output")
	cmd.Flags().Float64Var(&threshold, "threshold", defaultThreshold, "maximum allowed regression ratio (0.30 = +30%)")
	_ = cmd.MarkFlagRequired("baseline")
	_ = cmd.MarkFlagRequired("candidate")
	return cmd
}

func report(w io.Writer, baseline, candidate sampleSet, threshold float64) error {
	rows, failures := compare(baseline, candidate, threshold)

	fmt.Fprintln(w, "perf regression check:")
	fmt.Fprintln(w, "benchmark metric baseline candidate delta")
	for _, r := range rows {
		fmt.Fprintf(w, "%s %s %.3f %.3f %+0.2f%%\n", r.Benchmark, r.Metric, r.Baseline, r.Candidate, r.Delta*100)
	}
	if len(failures) == 0 {
		return nil
	}
	for _, f := range failures {
		fmt.Fprintf(w, "  - %s\n", f)
	}
	return errRegression
}

func compare(baseline, candidate sampleSet, threshold float64) ([]comparison, []string) {
	names := make([]string, 0, len(trackedMetrics))
	for name := range trackedMetrics {
		names = append(names, name)
	}
	sort.Strings(names)

	var (
		rows     []comparison
		failures []string
	)
	for _, benchmark := range names {
		for _, metric := range trackedMetrics[benchmark] {
			baseSamples := baseline[benchmark][metric]
			candidateSamples := candidate[benchmark][metric]
			if len(baseSamples) == 0 || len(candidateSamples) == 0 {
				failures = append(failures, fmt.Sprintf("missing samples for %s %s", benchmark, metric))
				continue
			}

			baseMedian := median(baseSamples)
			candidateMedian := median(candidateSamples)
			if baseMedian <= 0 {
				// allocs/op of zero cannot regress by ratio; any allocation is a failure.
				if metric == "allocs/op" && baseMedian == 0 {
					if candidateMedian > 0 {
						failures = append(failures, fmt.Sprintf("%s %s went from 0 to %.0f", benchmark, metric, candidateMedian))
					}
					rows = append(rows, comparison{benchmark, metric, baseMedian, candidateMedian, 0})
					continue
				}
				failures = append(failures, fmt.Sprintf("invalid baseline median for %s %s", benchmark, metric))
				continue
			}

			delta := (candidateMedian - baseMedian) / baseMedian
			rows = append(rows, comparison{benchmark, metric, baseMedian, candidateMedian, delta})
			if delta > threshold {
				failures = append(failures, fmt.Sprintf("%s %s regressed by %+0.2f%% (limit %+0.2f%%)", benchmark, metric, delta*100, threshold*100))
			}
		}
	}
	return rows, failures
}

func parseBenchmarkFile(path string) (sampleSet, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return parseBenchmarks(file)
}

func parseBenchmarks(r io.Reader) (sampleSet, error) {
	samples := sampleSet{}
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "Benchmark") {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) < 4 {
			continue
		}

		name := normalizeBenchmarkName(fields[0])
		if _, ok := trackedMetrics[name]; !ok {
			continue
		}

		if _, ok := samples[name]; !ok {
			samples[name] = map[string][]float64{}
		}

		for i := 2; i+1 < len(fields); i += 2 {
			value, err := strconv.ParseFloat(fields[i], 64)
			if err != nil {
				continue
			}
			unit := fields[i+1]
			samples[name][unit] = append(samples[name][unit], value)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return samples, nil
}

func normalizeBenchmarkName(raw string) string {
	if idx := strings.LastIndexByte(raw, '-'); idx > 0 {
		if _, err := strconv.Atoi(raw[idx+1:]); err == nil {
			return raw[:idx]
		}
	}
	return raw
}

func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}

	copied := make([]float64, len(values))
	copy(copied, values)
	sort.Float64s(copied)

	mid := len(copied) / 2
	if len(copied)%2 == 1 {
		return copied[mid]
	}
	return (copied[mid-1] + copied[mid]) / 2
}
