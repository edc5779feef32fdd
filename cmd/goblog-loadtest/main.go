// Command goblog-loadtest measures the Redis round trips the engine makes on
// the request path: the revocation lookup on every resolved session and the
// refresh hand-off claimed by replicas racing on one refresh token.
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MrEthical07/goBlog/session"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func main() {
	var (
		tokens      = flag.Int("tokens", 50000, "number of token ids to seed")
		revokedPct  = flag.Int("revoked", 10, "percentage of seeded token ids that are revoked")
		concurrency = flag.Int("concurrency", 256, "number of concurrent workers")
		ops         = flag.Int("ops", 200000, "operations per phase")
		replicas    = flag.Int("replicas", 4, "simulated replicas racing on each refresh token")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, GOBLOG_REDIS_ADDR env or miniredis is used")
		prefix      = flag.String("prefix", "gb-load", "redis key prefix")
	)
	flag.Parse()

	if *tokens <= 0 || *concurrency <= 0 || *ops <= 0 || *replicas <= 0 || *revokedPct < 0 || *revokedPct > 100 {
		fmt.Fprintln(os.Stderr, "tokens, concurrency, ops and replicas must be > 0; revoked must be within [0, 100]")
		os.Exit(2)
	}

	ctx := context.Background()

	addr := *redisAddr
	if addr == "" {
		addr = os.Getenv("GOBLOG_REDIS_ADDR")
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

	store := session.NewStore(client, *prefix)

	ids := make([]string, *tokens)
	fmt.Printf("seeding %d token ids (%d%% revoked)...\n", *tokens, *revokedPct)
	startSeed := time.Now()
	for i := range ids {
		ids[i] = fmt.Sprintf("jti-%d", i)
		if i%100 < *revokedPct {
			if err := store.Revoke(ctx, ids[i], time.Now().Add(time.Hour)); err != nil {
				fmt.Fprintf(os.Stderr, "revoke failed: %v\n", err)
				os.Exit(1)
			}
		}
	}
	fmt.Printf("seeded in %s\n", time.Since(startSeed).Round(time.Millisecond))

	revocationStats := runRevocationPhase(ctx, store, ids, *ops, *concurrency)
	handoffStats := runHandoffPhase(ctx, store, *ops, *concurrency, *replicas)

	fmt.Println("---- results ----")
	printStats("revocation", revocationStats)
	printStats("handoff", handoffStats)
}

// worker drains the shared op cursor, timing each call to fn.
func runPhase(ops, concurrency int, fn func(r *rand.Rand, op, worker int) error) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*7919))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				t0 := time.Now()
				err := fn(r, i, worker)
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	return computeStats(time.Since(start), latencies, failures)
}

func runRevocationPhase(ctx context.Context, store *session.Store, ids []string, ops, concurrency int) phaseStats {
	return runPhase(ops, concurrency, func(r *rand.Rand, _, _ int) error {
		_, err := store.IsRevoked(ctx, ids[r.Intn(len(ids))])
		return err
	})
}

// runHandoffPhase has `replicas` claimers per refresh token. A claimer that
// does not end up with the first writer's tokens counts as a failure.
func runHandoffPhase(ctx context.Context, store *session.Store, ops, concurrency, replicas int) phaseStats {
	var winners sync.Map

	return runPhase(ops, concurrency, func(_ *rand.Rand, op, worker int) error {
		refresh := fmt.Sprintf("refresh-%d", op/replicas)
		proposal := session.Handoff{
			AccessToken:  fmt.Sprintf("access-%d-%d", op, worker),
			RefreshToken: fmt.Sprintf("next-%d-%d", op, worker),
			ExpiresAt:    time.Now().Add(time.Hour),
		}
		got, err := store.ClaimHandoff(ctx, refresh, proposal, 30*time.Second)
		if err != nil {
			return err
		}
		first, _ := winners.LoadOrStore(refresh, got.AccessToken)
		if first.(string) != got.AccessToken {
			return fmt.Errorf("replica diverged on %s", refresh)
		}
		return nil
	})
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
