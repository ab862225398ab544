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

	goAccount "github.com/MrEthical07/goAccount"
	"github.com/MrEthical07/goAccount/store/redisstore"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

// codeSink keeps the latest recovery code per handle in place of an
// out-of-band channel.
type codeSink struct {
	codes sync.Map
}

func (s *codeSink) NotifyRecoveryCode(_ context.Context, handle, code string) error {
	s.codes.Store(handle, code)
	return nil
}

func main() {
	var (
		accounts    = flag.Int("accounts", 1000, "number of accounts to seed")
		concurrency = flag.Int("concurrency", 64, "number of concurrent workers")
		ops         = flag.Int("ops", 20000, "operations per phase (login, recovery)")
		addresses   = flag.Int("addresses", 4096, "distinct client addresses to spread the per-address budgets")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
		prefix      = flag.String("prefix", "goaccount-lt", "redis key prefix")
		withPass    = flag.Bool("passwords", false, "seed accounts with passwords so logins pay for argon2id")
	)
	flag.Parse()

	if *accounts <= 0 || *concurrency <= 0 || *ops <= 0 || *addresses <= 0 {
		fmt.Fprintln(os.Stderr, "accounts, concurrency, ops and addresses must be > 0")
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
		client = redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		cleanup = func() {
			_ = client.Close()
			mr.Close()
		}
		fmt.Printf("using miniredis at %s\n", addr)
	} else {
		client = redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		cleanup = func() { _ = client.Close() }
		fmt.Printf("using redis at %s\n", addr)
	}
	defer cleanup()

	cfg := goAccount.DefaultConfig()
	cfg.Redis.Prefix = *prefix
	cfg.Recovery.SweepInterval = 0
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1

	codes := &codeSink{}
	engine, err := goAccount.New().
		WithConfig(cfg).
		WithStore(redisstore.New(client, *prefix+":accounts")).
		WithRedis(client).
		WithRecoveryNotifier(codes).
		WithLatencyHistograms(true).
		Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "build engine: %v\n", err)
		os.Exit(1)
	}
	defer engine.Close()

	handles := make([]string, *accounts)
	fmt.Printf("seeding %d accounts...\n", *accounts)
	startSeed := time.Now()
	operator := goAccount.WithOperator(ctx)
	for i := range handles {
		handles[i] = fmt.Sprintf("user-%d", i)
		req := goAccount.CreateAccountRequest{Handle: handles[i], Name: handles[i]}
		if *withPass {
			req.Password = passwordFor(i)
		}
		if _, err := engine.CreateAccount(operator, req); err != nil {
			fmt.Fprintf(os.Stderr, "create %s failed: %v\n", handles[i], err)
			os.Exit(1)
		}
	}
	fmt.Printf("seeded in %s\n", time.Since(startSeed).Round(time.Millisecond))

	loginStats := runPhase(*ops, *concurrency, func(r *rand.Rand, i int) error {
		idx := r.Intn(len(handles))
		pw := ""
		if *withPass {
			pw = passwordFor(idx)
		}
		ctx := goAccount.WithClientIP(ctx, addressFor(i, *addresses))
		_, err := engine.Login(ctx, handles[idx], pw)
		return err
	})

	recoveryStats := runPhase(*ops, *concurrency, func(r *rand.Rand, i int) error {
		handle := handles[r.Intn(len(handles))]
		ctx := goAccount.WithClientIP(ctx, addressFor(i, *addresses))
		if err := engine.RequestRecovery(ctx, handle); err != nil {
			return err
		}
		code, _ := codes.codes.Load(handle)
		s, _ := code.(string)
		return engine.ConfirmRecovery(ctx, handle, s, "")
	})

	fmt.Println("---- results ----")
	printStats("login", loginStats)
	printStats("recovery", recoveryStats)

	snap := engine.MetricsSnapshot()
	fmt.Printf("counters: login_success=%d login_rate_limited=%d recovery_confirm_success=%d recovery_confirm_failure=%d\n",
		snap.Counters[goAccount.MetricLoginSuccess],
		snap.Counters[goAccount.MetricLoginRateLimited],
		snap.Counters[goAccount.MetricRecoveryConfirmSuccess],
		snap.Counters[goAccount.MetricRecoveryConfirmFailure],
	)
}

// runPhase runs ops calls of fn over concurrency workers. Failures include
// rate-limit rejections and codes overwritten by a concurrent request.
func runPhase(ops, concurrency int, fn func(r *rand.Rand, i int) error) phaseStats {
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
				err := fn(r, i)
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

func passwordFor(i int) string {
	return fmt.Sprintf("load-test-password-%d", i)
}

// addressFor spreads calls over a synthetic 10.x.y.z range.
func addressFor(i, n int) string {
	a := i % n
	return fmt.Sprintf("10.%d.%d.%d", (a>>16)&0xff, (a>>8)&0xff, a&0xff)
}
