package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

type BenchmarkResult struct {
	TotalOps      int
	SuccessfulOps int
	FailedOps     int
	Duration      time.Duration
	OpsPerSec     float64
	AvgLatency    time.Duration
	MinLatency    time.Duration
	MaxLatency    time.Duration
}

// op issues one request for the i-th operation.
type op func(client *http.Client, i int) error

func main() {
	baseURL := "http://localhost:8080"
	if len(os.Args) > 1 {
		baseURL = os.Args[1]
	}
	container := "orders"
	if len(os.Args) > 2 {
		container = os.Args[2]
	}
	api := baseURL + "/api/containers/" + url.PathEscape(container)

	fmt.Println("=== pkrouting Benchmark Test ===")
	fmt.Printf("Target: %s\n", api)
	fmt.Println()

	if !checkHealth(baseURL) {
		fmt.Printf("ERROR: Node %s is not available\n", baseURL)
		return
	}

	epk := func(client *http.Client, i int) error {
		pk := fmt.Sprintf(`["tenant-%d","order-%d"]`, i%50, i)
		return expectOK(client.Get(api + "/epk?pk=" + url.QueryEscape(pk)))
	}
	exact := func(client *http.Client, i int) error {
		body := fmt.Sprintf(`{"pk":["tenant-%d","order-%d"]}`, i%50, i)
		return expectOK(client.Post(api+"/partitions", "application/json", strings.NewReader(body)))
	}
	prefix := func(client *http.Client, i int) error {
		body := fmt.Sprintf(`{"pk":["tenant-%d"]}`, i%50)
		return expectOK(client.Post(api+"/partitions", "application/json", strings.NewReader(body)))
	}

	fmt.Println("Test 1: Effective keys (1000 operations)")
	printResult(run(1000, 1, epk))

	fmt.Println("\nTest 2: Exact key routing (1000 operations, 10 goroutines)")
	printResult(run(1000, 10, exact))

	fmt.Println("\nTest 3: Prefix routing (1000 operations, 10 goroutines)")
	printResult(run(1000, 10, prefix))

	fmt.Println("\n=== Benchmark Complete ===")
}

func checkHealth(baseURL string) bool {
	resp, err := http.Get(baseURL + "/health")
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

func expectOK(resp *http.Response, err error) error {
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}
	return nil
}

func run(totalOps, concurrency int, fn op) BenchmarkResult {
	client := &http.Client{Timeout: 5 * time.Second}

	var mu sync.Mutex
	successful := 0
	failed := 0
	latencies := make([]time.Duration, 0, totalOps)

	start := time.Now()
	g, _ := errgroup.WithContext(context.Background())
	g.SetLimit(concurrency)
	for i := 0; i < totalOps; i++ {
		i := i
		g.Go(func() error {
			opStart := time.Now()
			err := fn(client, i)
			latency := time.Since(opStart)

			mu.Lock()
			if err == nil {
				successful++
			} else {
				failed++
			}
			latencies = append(latencies, latency)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	duration := time.Since(start)

	// Вычисление статистики латентности
	var lo, hi, sum time.Duration
	if len(latencies) > 0 {
		lo = latencies[0]
		hi = latencies[0]
		for _, lat := range latencies {
			lo = min(lo, lat)
			hi = max(hi, lat)
			sum += lat
		}
	}
	var avgLatency time.Duration
	if len(latencies) > 0 {
		avgLatency = sum / time.Duration(len(latencies))
	}

	return BenchmarkResult{
		TotalOps:      totalOps,
		SuccessfulOps: successful,
		FailedOps:     failed,
		Duration:      duration,
		OpsPerSec:     float64(successful) / duration.Seconds(),
		AvgLatency:    avgLatency,
		MinLatency:    lo,
		MaxLatency:    hi,
	}
}

func printResult(result BenchmarkResult) {
	fmt.Printf("  Total Operations: %d\n", result.TotalOps)
	fmt.Printf("  Successful: %d\n", result.SuccessfulOps)
	fmt.Printf("  Failed: %d\n", result.FailedOps)
	fmt.Printf("  Duration: %v\n", result.Duration)
	fmt.Printf("  Operations/sec: %.2f\n", result.OpsPerSec)
	fmt.Printf("  Avg Latency: %v\n", result.AvgLatency)
	fmt.Printf("  Min Latency: %v\n", result.MinLatency)
	fmt.Printf("  Max Latency: %v\n", result.MaxLatency)
}
