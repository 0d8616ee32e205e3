// Command goshield-loadtest hammers the sliding-window rate limiter with
// concurrent checks over a pool of client keys and reports throughput and
// latency percentiles per phase.
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

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/MrEthical07/goShield/internal/rate"
)

func main() {
	var (
		keys        = flag.Int("keys", 10000, "number of distinct client keys")
		concurrency = flag.Int("concurrency", 256, "number of concurrent workers")
		ops         = flag.Int("ops", 200000, "operations per phase")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
		prefix      = flag.String("prefix", "shield", "rate limit key prefix")
		window      = flag.Duration("window", time.Minute, "bucket window")
		max         = flag.Int("max", 60, "bucket budget per window")
	)
	flag.Parse()

	if *keys <= 0 || *concurrency <= 0 || *ops <= 0 || *max <= 0 {
		fmt.Fprintln(os.Stderr, "keys, concurrency, ops, and max must be > 0")
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
		addr = mr.Addr()
		client = redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs: []string{addr},
		})
		cleanup = func() {
			_ = client.Close()
			mr.Close()
		}
		fmt.Printf("using miniredis at %s\n", addr)
	} else {
		client = redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs: []string{addr},
		})
		cleanup = func() { _ = client.Close() }
		fmt.Printf("using redis at %s\n", addr)
	}
	defer cleanup()

	policy := rate.Policy{Window: *window, Max: *max}
	limiter := rate.NewLimiter(
		rate.NewRedisStore(client, *prefix),
		map[string]rate.Policy{"load": policy},
		nil,
	)

	memLimiter := rate.NewLimiter(
		rate.NewMemoryStore(),
		map[string]rate.Policy{"load": policy},
		nil,
	)

	redisStats := runPhase(ctx, limiter, *keys, *ops, *concurrency)
	memStats := runPhase(ctx, memLimiter, *keys, *ops, *concurrency)

	fmt.Println("---- results ----")
	printStats("redis", redisStats)
	printStats("memory", memStats)
}

func runPhase(ctx context.Context, limiter *rate.Limiter, keys, ops, concurrency int) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		denied    int64
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
				key := fmt.Sprintf("client-%d", r.Intn(keys))
				t0 := time.Now()
				result, err := limiter.Check(ctx, "load", key)
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				} else if !result.Allowed {
					atomic.AddInt64(&denied, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	total := time.Since(start)
	return computeStats(total, latencies, failures, denied)
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	denied   int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func computeStats(total time.Duration, samples []time.Duration, failures, denied int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		denied:   denied,
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

func printStats(name string, s phaseStats) {
	fmt.Printf("%s: ops=%d denied=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.denied,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}
