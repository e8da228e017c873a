package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	goReset "github.com/MrEthical07/goReset"
	"github.com/MrEthical07/goReset/backend"
	"github.com/MrEthical07/goReset/metrics/export/prometheus"
	"github.com/MrEthical07/goReset/password"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

const loadPassword = "Load-Test-Passw0rd"

type phase int

const (
	phaseRequest phase = iota
	phaseVerify
	phaseCommit
	phaseCount
)

var phaseNames = [phaseCount]string{"request", "verify", "commit"}

type recorder struct {
	mu       sync.Mutex
	samples  [phaseCount][]time.Duration
	failures [phaseCount]int64
}

func (r *recorder) observe(p phase, d time.Duration, ok bool) {
	if !ok {
		atomic.AddInt64(&r.failures[p], 1)
	}
	r.mu.Lock()
	r.samples[p] = append(r.samples[p], d)
	r.mu.Unlock()
}

func main() {
	var (
		flows       = flag.Int("flows", 2000, "number of complete reset flows, one per seeded user")
		concurrency = flag.Int("concurrency", 64, "number of concurrent workers")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
		prefix      = flag.String("prefix", "grl", "reset record key prefix")
		argonMemory = flag.Uint("argon-memory", 8*1024, "argon2 memory in KiB for committed passwords")
		metrics     = flag.Bool("metrics", false, "print engine metrics in Prometheus format when done")
	)
	flag.Parse()

	if *flows <= 0 || *concurrency <= 0 {
		fmt.Fprintln(os.Stderr, "flows and concurrency must be > 0")
		os.Exit(2)
	}

	addr := *redisAddr
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}

	var cleanup func()
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start miniredis: %v\n", err)
			os.Exit(1)
		}
		addr = mr.Addr()
		cleanup = mr.Close
		fmt.Printf("using miniredis at %s\n", addr)
	} else {
		cleanup = func() {}
		fmt.Printf("using redis at %s\n", addr)
	}
	defer cleanup()

	rdb := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
	defer rdb.Close()

	cfg := backend.DefaultConfig()
	cfg.RedisPrefix = *prefix
	cfg.EnableIPThrottle = false
	cfg.MaxRequestsPerWindow = 1 << 20
	cfg.ResponseFloor = 0
	cfg.Argon2 = password.Config{Memory: uint32(*argonMemory), Time: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}

	users := backend.NewMemoryUsers()
	for i := 0; i < *flows; i++ {
		users.Put(backend.User{ID: fmt.Sprintf("u-%d", i), Email: emailFor(i)})
	}
	outbox := backend.NewOutbox()

	quiet := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	svc, err := backend.NewService(rdb, users, outbox, cfg, backend.WithLogger(quiet))
	if err != nil {
		fmt.Fprintf(os.Stderr, "backend init failed: %v\n", err)
		os.Exit(1)
	}

	engine, err := goReset.New().
		WithClient(svc).
		WithMetricsEnabled(true).
		WithLatencyHistograms(true).
		Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "engine build failed: %v\n", err)
		os.Exit(1)
	}
	defer engine.Close()

	rec := &recorder{}
	start := time.Now()
	run(engine, outbox, rec, *flows, *concurrency)
	total := time.Since(start)

	fmt.Println("---- results ----")
	fmt.Printf("flows=%d total=%s flows/sec=%.0f\n", *flows, total.Round(time.Millisecond), float64(*flows)/total.Seconds())
	for p := phase(0); p < phaseCount; p++ {
		printStats(phaseNames[p], computeStats(rec.samples[p], rec.failures[p]))
	}

	if *metrics {
		fmt.Println("---- metrics ----")
		fmt.Print(prometheus.NewExporter(engine).Render())
	}
}

func run(engine *goReset.Engine, outbox *backend.Outbox, rec *recorder, flows, concurrency int) {
	var (
		wg     sync.WaitGroup
		cursor int64
	)
	ctx := context.Background()

	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= flows {
					return
				}
				runFlow(ctx, engine, outbox, rec, emailFor(i))
			}
		}()
	}
	wg.Wait()
}

func runFlow(ctx context.Context, engine *goReset.Engine, outbox *backend.Outbox, rec *recorder, email string) {
	flow := engine.NewFlow()

	t0 := time.Now()
	out := flow.RequestReset(ctx, email)
	rec.observe(phaseRequest, time.Since(t0), out.OK())
	if !out.OK() {
		return
	}
	flow.BeginVerification()

	code, ok := outbox.LastCode(email)
	if !ok {
		rec.observe(phaseVerify, 0, false)
		return
	}
	t0 = time.Now()
	out = flow.SubmitCode(ctx, code)
	rec.observe(phaseVerify, time.Since(t0), out.Stage == goReset.StageVerified)
	if out.Stage != goReset.StageVerified {
		return
	}

	t0 = time.Now()
	out = flow.SubmitNewPassword(ctx, loadPassword, loadPassword)
	rec.observe(phaseCommit, time.Since(t0), out.Stage == goReset.StageReset)
}

type phaseStats struct {
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
}

func computeStats(samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{failures: failures}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
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
	fmt.Printf("%s: ops=%d failures=%d p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}

func emailFor(i int) string {
	return fmt.Sprintf("load-%d@example.com", i)
}
