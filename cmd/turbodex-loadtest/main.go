// Command turbodex-loadtest races concurrent refreshes of one token and checks
// that exactly one rotation wins every round.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	auth "github.com/Turbo-Dex/backend"
	redisstore "github.com/Turbo-Dex/backend/store/redis"
)

const loadPassword = "loadtest-password"

func main() {
	var (
		users     = flag.Int("users", 32, "number of accounts to seed")
		racers    = flag.Int("racers", 16, "concurrent refreshes of the same token per round")
		rounds    = flag.Int("rounds", 200, "race rounds")
		chain     = flag.Int("chain", 2000, "sequential rotations in the chain phase")
		redisAddr = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
		prefix    = flag.String("prefix", "tdx-load", "redis key prefix")
	)
	flag.Parse()

	if *users <= 0 || *racers <= 1 || *rounds <= 0 || *chain < 0 {
		fmt.Fprintln(os.Stderr, "users and rounds must be > 0, racers > 1, chain >= 0")
		os.Exit(2)
	}

	ctx := context.Background()

	addr := *redisAddr
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}

	var (
		cleanup func()
		client  redis.UniversalClient
	)
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start miniredis: %v\n", err)
			os.Exit(1)
		}
		client = redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{mr.Addr()}})
		cleanup = func() {
			_ = client.Close()
			mr.Close()
		}
		fmt.Printf("using miniredis at %s\n", mr.Addr())
	} else {
		client = redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		cleanup = func() { _ = client.Close() }
		fmt.Printf("using redis at %s\n", addr)
	}
	defer cleanup()

	engine, err := buildEngine(client, *prefix)
	if err != nil {
		fmt.Fprintf(os.Stderr, "engine build: %v\n", err)
		os.Exit(1)
	}
	defer engine.Close()

	runID := time.Now().UnixNano()
	names := make([]string, *users)
	fmt.Printf("seeding %d users...\n", *users)
	startSeed := time.Now()
	for i := range names {
		names[i] = fmt.Sprintf("load_%d_%d", runID%100000, i)
		if _, _, err := engine.Signup(ctx, names[i], loadPassword, ""); err != nil {
			fmt.Fprintf(os.Stderr, "signup failed: %v\n", err)
			os.Exit(1)
		}
	}
	fmt.Printf("seeded in %s\n", time.Since(startSeed).Round(time.Millisecond))

	race, err := runRacePhase(ctx, engine, names, *racers, *rounds)
	if err != nil {
		fmt.Fprintf(os.Stderr, "race phase: %v\n", err)
		os.Exit(1)
	}
	chainStats, err := runChainPhase(ctx, engine, names[0], *chain)
	if err != nil {
		fmt.Fprintf(os.Stderr, "chain phase: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("---- results ----")
	printStats("race", race.phaseStats)
	fmt.Printf("race: rounds=%d winners=%d reuse=%d violations=%d\n", *rounds, race.winners, race.reuse, race.violations)
	printStats("chain", chainStats)

	snap := engine.MetricsSnapshot()
	fmt.Printf("engine: refresh_success=%d reuse_detected=%d store_unavailable=%d\n",
		snap.Counters[auth.MetricRefreshSuccess],
		snap.Counters[auth.MetricRefreshReuseDetected],
		snap.Counters[auth.MetricStoreUnavailable],
	)

	if race.violations > 0 {
		fmt.Fprintln(os.Stderr, "FAIL: a round did not have exactly one winner")
		os.Exit(1)
	}
}

func buildEngine(client redis.UniversalClient, prefix string) (*auth.Engine, error) {
	cfg := auth.DefaultConfig()
	cfg.JWT.AccessSecret = []byte("loadtest-access-secret")
	cfg.JWT.RefreshSecret = []byte("loadtest-refresh-secret")
	// Cheap hashing keeps the run about the ledger, not argon2.
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1
	cfg.Password.UpgradeOnLogin = false

	return auth.New().
		WithConfig(cfg).
		WithStore(redisstore.New(client, prefix)).
		WithLatencyHistograms(true).
		Build()
}

type raceStats struct {
	phaseStats
	winners    int64
	reuse      int64
	violations int64
}

func runRacePhase(ctx context.Context, engine *auth.Engine, names []string, racers, rounds int) (raceStats, error) {
	var (
		out       raceStats
		latencies = make([]time.Duration, 0, racers*rounds)
		failures  int64
		mu        sync.Mutex
	)

	start := time.Now()
	for round := 0; round < rounds; round++ {
		pair, _, err := engine.Login(ctx, names[round%len(names)], loadPassword)
		if err != nil {
			return out, fmt.Errorf("login: %w", err)
		}

		var (
			wg      sync.WaitGroup
			winners int64
			gate    = make(chan struct{})
		)
		for r := 0; r < racers; r++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				<-gate
				t0 := time.Now()
				_, err := engine.Refresh(ctx, pair.RefreshToken)
				d := time.Since(t0)
				switch {
				case err == nil:
					atomic.AddInt64(&winners, 1)
				case errors.Is(err, auth.ErrReuseDetected):
					atomic.AddInt64(&out.reuse, 1)
				default:
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}()
		}
		close(gate)
		wg.Wait()

		out.winners += winners
		if winners != 1 {
			out.violations++
		}
	}

	out.phaseStats = computeStats(time.Since(start), latencies, failures)
	return out, nil
}

func runChainPhase(ctx context.Context, engine *auth.Engine, name string, steps int) (phaseStats, error) {
	pair, _, err := engine.Login(ctx, name, loadPassword)
	if err != nil {
		return phaseStats{}, fmt.Errorf("login: %w", err)
	}

	var failures int64
	latencies := make([]time.Duration, 0, steps)
	start := time.Now()
	for i := 0; i < steps; i++ {
		t0 := time.Now()
		next, err := engine.Refresh(ctx, pair.RefreshToken)
		latencies = append(latencies, time.Since(t0))
		if err != nil {
			failures++
			return computeStats(time.Since(start), latencies, failures), fmt.Errorf("rotation %d: %w", i, err)
		}
		pair = next
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
		return phaseStats{total: total, failures: failures}
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
	return samples[(len(samples)-1)*p/100]
}

func printStats(name string, s phaseStats) {
	fmt.Printf("%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
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
