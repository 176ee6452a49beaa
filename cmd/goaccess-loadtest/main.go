// Command goaccess-loadtest drives an in-process engine through login,
// validate, refresh and authorize phases and prints latency percentiles.
package main

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	goAccess "github.com/MrEthical07/goAccess"
	"github.com/MrEthical07/goAccess/identity"
	"github.com/MrEthical07/goAccess/permission"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

type options struct {
	users       int
	concurrency int
	ops         int
	strict      bool
}

type loadState struct {
	engine *goAccess.Engine
	tokens []*goAccess.LoginResult
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var opts options
	cmd := &cobra.Command{
		Use:           "goaccess-loadtest",
		Short:         "Load-test an in-process goAccess engine",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if opts.users <= 0 || opts.concurrency <= 0 || opts.ops <= 0 {
				return fmt.Errorf("users, concurrency, and ops must be > 0")
			}
			return run(cmd.Context(), cmd.OutOrStdout(), opts)
		},
	}
	cmd.Flags().IntVar(&opts.users, "users", 10000, "number of users to log in")
	cmd.Flags().IntVar(&opts.concurrency, "concurrency", 256, "number of concurrent workers")
	cmd.Flags().IntVar(&opts.ops, "ops", 200000, "operations per phase")
	cmd.Flags().BoolVar(&opts.strict, "strict", true, "validate in strict mode (session lookup)")
	return cmd
}

func run(ctx context.Context, out io.Writer, opts options) error {
	engine, err := newEngine(opts)
	if err != nil {
		return err
	}
	defer engine.Close()

	state := &loadState{engine: engine, tokens: make([]*goAccess.LoginResult, opts.users)}

	fmt.Fprintf(out, "logging in %d users...\n", opts.users)
	loginStats, err := runPhase(ctx, opts.users, opts.concurrency, func(ctx context.Context, i int, _ *rand.Rand) error {
		res, err := engine.Login(ctx, identity.UserProfile{
			ID:             fmt.Sprintf("user-%d", i),
			Roles:          []string{"editor"},
			Classification: identity.ClassificationRestricted,
			Provider:       "loadtest",
		}, identity.ClientInfo{IP: "10.0.0.1"}, nil)
		if err != nil {
			return err
		}
		state.tokens[i] = res
		return nil
	})
	if err != nil {
		return err
	}

	validateStats, err := runPhase(ctx, opts.ops, opts.concurrency, func(ctx context.Context, _ int, r *rand.Rand) error {
		_, err := engine.ValidateAccess(ctx, state.pick(r).AccessToken)
		return err
	})
	if err != nil {
		return err
	}

	refreshStats, err := runPhase(ctx, opts.ops, opts.concurrency, func(ctx context.Context, _ int, r *rand.Rand) error {
		_, err := engine.Refresh(ctx, state.pick(r).RefreshToken)
		return err
	})
	if err != nil {
		return err
	}

	authorizeStats, err := runPhase(ctx, opts.ops, opts.concurrency, func(ctx context.Context, i int, r *rand.Rand) error {
		tok := state.pick(r)
		dec, _, err := engine.Authorize(ctx, tok.AccessToken, goAccess.AccessRequest{
			Resource: fmt.Sprintf("documents:%d", i%1000),
			Action:   "read",
		})
		if err != nil {
			return err
		}
		if !dec.Allowed {
			return fmt.Errorf("denied: %s", dec.Reason)
		}
		return nil
	})
	if err != nil {
		return err
	}

	fmt.Fprintln(out, "---- results ----")
	printStats(out, "login", loginStats)
	printStats(out, "validate", validateStats)
	printStats(out, "refresh", refreshStats)
	printStats(out, "authorize", authorizeStats)
	return nil
}

func newEngine(opts options) (*goAccess.Engine, error) {
	cfg := goAccess.DefaultConfig()
	cfg.Session.MaxConcurrentSessions = 0
	cfg.Session.CleanupInterval = 0
	cfg.Security.EnableRefreshThrottle = false
	cfg.ValidationMode = goAccess.ModeJWTOnly
	if opts.strict {
		cfg.ValidationMode = goAccess.ModeStrict
	}

	return goAccess.New().
		WithConfig(cfg).
		WithPermissions([]permission.Permission{
			{ID: "documents.read", Resource: "documents:*", Action: "read"},
			{ID: "documents.write", Resource: "documents:*", Action: "write"},
		}).
		WithRoles([]permission.Role{
			{ID: "viewer", Permissions: []string{"documents.read"}},
			{ID: "editor", Permissions: []string{"documents.write"}, InheritsFrom: []string{"viewer"}},
		}).
		Build()
}

func (s *loadState) pick(r *rand.Rand) *goAccess.LoginResult {
	return s.tokens[r.Intn(len(s.tokens))]
}

// runPhase executes op ops times across concurrency workers. Individual
// failures are counted, not returned; only context cancellation aborts.
func runPhase(ctx context.Context, ops, concurrency int, op func(context.Context, int, *rand.Rand) error) (phaseStats, error) {
	var (
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	g, gctx := errgroup.WithContext(ctx)
	start := time.Now()
	for w := 0; w < concurrency; w++ {
		g.Go(func() error {
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(w)*7919))
			local := make([]time.Duration, 0, ops/concurrency+1)
			defer func() {
				mu.Lock()
				latencies = append(latencies, local...)
				mu.Unlock()
			}()
			for {
				if err := gctx.Err(); err != nil {
					return err
				}
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return nil
				}
				t0 := time.Now()
				if err := op(gctx, i, r); err != nil {
					atomic.AddInt64(&failures, 1)
				}
				local = append(local, time.Since(t0))
			}
		})
	}
	if err := g.Wait(); err != nil {
		return phaseStats{}, err
	}
	return computeStats(time.Since(start), latencies, failures), nil
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	idx := (len(samples) - 1) * p / 100
	return samples[idx]
}

func printStats(w io.Writer, name string, s phaseStats) {
	fmt.Fprintf(w, "%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}
