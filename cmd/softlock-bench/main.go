package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mirkobrombin/go-softlock/v1/lock"
	"github.com/mirkobrombin/go-softlock/v1/presets"
)

var (
	concurrency = flag.Int("c", 16, "Concurrency")
	requests    = flag.Int("n", 20000, "Acquire/release cycles")
	target      = flag.String("target", "all", "Target: memory, file, redis")
	redisAddr   = flag.String("redis-addr", "localhost:6379", "Redis Address")
)

func main() {
	flag.Parse()

	targets := strings.Split(*target, ",")
	if *target == "all" {
		targets = []string{"memory", "file", "redis"}
	}

	fmt.Printf("| %-10s | %-10s | %-12s | %-12s |\n", "Backend", "Ops/sec", "Avg Latency", "P99 Latency")
	fmt.Println("|:---|:---|:---|:---|")

	for _, t := range targets {
		runBenchmark(strings.TrimSpace(t))
	}
}

func runBenchmark(name string) {
	var (
		l       *lock.Lock
		cleanup func()
	)

	switch name {
	case "memory":
		l = presets.NewStandalone("bench")

	case "file":
		dir, err := os.MkdirTemp("", "softlock-bench")
		if err != nil {
			log.Printf("temp dir: %v", err)
			return
		}
		l, err = presets.NewFile("bench", filepath.Join(dir, "bench.db"))
		if err != nil {
			log.Printf("file lock: %v", err)
			return
		}
		cleanup = func() {
			_ = l.Close()
			_ = os.RemoveAll(dir)
		}

	case "redis":
		l = presets.NewRedis("bench", presets.RedisOptions{Addr: *redisAddr})
		cleanup = func() { _ = l.Close() }

	default:
		log.Printf("Unknown target: %s", name)
		return
	}

	if cleanup != nil {
		defer cleanup()
	}

	ctx := context.Background()

	// Warmup mints the session and ephemeral ids so workers measure the
	// acquire path, not identity bootstrap.
	if _, held, err := l.Acquire(ctx, 0, 0); err != nil || !held {
		fmt.Printf("| %-10s | %-10s | %-12s | %-12s |\n", name, "ERROR", "-", "-")
		return
	}
	if _, err := l.Release(ctx, 0); err != nil {
		fmt.Printf("| %-10s | %-10s | %-12s | %-12s |\n", name, "ERROR", "-", "-")
		return
	}

	var wg sync.WaitGroup
	var ops int64
	totalReqs := *requests
	latencies := make([]int64, totalReqs)

	start := time.Now()
	chunk := totalReqs / *concurrency

	for i := 0; i < *concurrency; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			// each worker cycles its own slot so cycles stay uncontended
			slot := idx + 1
			offset := idx * chunk
			for j := 0; j < chunk; j++ {
				reqStart := time.Now()
				_, held, err := l.Acquire(ctx, slot, 0)
				if err != nil || !held {
					continue
				}
				if _, err := l.Release(ctx, slot); err != nil {
					continue
				}
				atomic.AddInt64(&ops, 1)
				latencies[offset+j] = time.Since(reqStart).Nanoseconds()
			}
		}(i)
	}

	wg.Wait()
	elapsed := time.Since(start)

	if ops == 0 {
		fmt.Printf("| %-10s | %-10s | %-12s | %-12s |\n", name, "ERROR", "-", "-")
		return
	}

	throughput := float64(ops) / elapsed.Seconds()
	avgLat := float64(elapsed.Nanoseconds()) / float64(ops)

	p99 := "-"
	validLats := make([]int64, 0, ops)
	for _, lat := range latencies {
		if lat > 0 {
			validLats = append(validLats, lat)
		}
	}
	if len(validLats) > 0 {
		sort.Slice(validLats, func(i, j int) bool { return validLats[i] < validLats[j] })
		p99Idx := int(float64(len(validLats)) * 0.99)
		if p99Idx >= len(validLats) {
			p99Idx = len(validLats) - 1
		}
		p99 = fmt.Sprintf("%d", validLats[p99Idx])
	}

	fmt.Printf("| %-10s | %-10.0f | %-12.0f | %-12s |\n", name, throughput, avgLat, p99)
}
