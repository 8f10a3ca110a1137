package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/soltixdb/unitmetrics/internal/units"
)

// BenchmarkConfig holds benchmark configuration
type BenchmarkConfig struct {
	BaseURL       string
	NumUsers      int
	Duration      time.Duration
	WriteWorkers  int
	QueryWorkers  int
	QueryInterval time.Duration
	MaxDataPoints int
	DataTimeRange time.Duration // How far back in time to spread data
	APIKey        string
	OutputDir     string
	HTTPClient    *http.Client
}

// recorder collects the outcome of one kind of operation
type recorder struct {
	mu         sync.Mutex
	latencies  []float64 // ms
	success    int64
	errors     int64
	firstError string
}

func (r *recorder) observe(latency time.Duration, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.latencies = append(r.latencies, float64(latency.Microseconds())/1000)
	if err != nil {
		r.errors++
		if r.firstError == "" {
			r.firstError = err.Error()
		}
		return
	}
	r.success++
}

func (r *recorder) counts() (success, errors int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.success, r.errors
}

// Result represents benchmark results
type Result struct {
	Operation  string
	TotalOps   int64
	SuccessOps int64
	ErrorOps   int64
	Duration   time.Duration
	Throughput float64 // ops/sec
	AvgLatency float64 // ms
	MinLatency float64 // ms
	MaxLatency float64 // ms
	P50Latency float64 // ms
	P95Latency float64 // ms
	P99Latency float64 // ms
	ErrorMsg   string  // First error message
}

func main() {
	config := BenchmarkConfig{}
	flag.StringVar(&config.BaseURL, "url", "http://127.0.0.1:3000", "Base URL of the API")
	flag.IntVar(&config.NumUsers, "users", 10, "Number of distinct user IDs")
	flag.DurationVar(&config.Duration, "duration", 60*time.Second, "Benchmark duration")
	flag.IntVar(&config.WriteWorkers, "write-workers", 10, "Number of concurrent write workers")
	flag.IntVar(&config.QueryWorkers, "query-workers", 5, "Number of concurrent query workers")
	flag.DurationVar(&config.QueryInterval, "query-interval", 10*time.Millisecond, "Interval between queries per worker")
	flag.IntVar(&config.MaxDataPoints, "max-points", 100, "maxDataPoints sent with each query")
	flag.DurationVar(&config.DataTimeRange, "time-range", 30*24*time.Hour, "Time range to spread data across")
	flag.StringVar(&config.APIKey, "api-key", "", "API key for authentication")
	flag.StringVar(&config.OutputDir, "out", "benchmark_results", "Directory for the result file")
	flag.Parse()

	if config.NumUsers < 1 {
		fmt.Fprintln(os.Stderr, "--users must be at least 1")
		os.Exit(1)
	}

	config.HTTPClient = &http.Client{
		Timeout: 30 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 100,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	fmt.Printf("=== unitmetrics Benchmark Tool ===\n")
	printConfig(os.Stdout, config)

	writes, queries := runBenchmark(config)

	writeResult := calculateResult("Write", writes, config.Duration)
	queryResult := calculateResult("Query", queries, config.Duration)

	fmt.Printf("\n=== Benchmark Results ===\n\n")
	printResult(os.Stdout, writeResult)
	fmt.Println()
	printResult(os.Stdout, queryResult)

	saveResults(config, writeResult, queryResult)
}

func runBenchmark(config BenchmarkConfig) (writes, queries *recorder) {
	writes, queries = &recorder{}, &recorder{}

	ctx, cancel := context.WithTimeout(context.Background(), config.Duration)
	defer cancel()

	var wg sync.WaitGroup
	for i := 0; i < config.WriteWorkers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			writeWorker(ctx, id, config, writes)
		}(i)
	}
	for i := 0; i < config.QueryWorkers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			queryWorker(ctx, id, config, queries)
		}(i)
	}

	go progressReporter(ctx, writes, queries, config.Duration)

	wg.Wait()
	return writes, queries
}

func userID(n int) string {
	return "bench-user-" + strconv.Itoa(n)
}

func writeWorker(ctx context.Context, id int, config BenchmarkConfig, rec *recorder) {
	rng := rand.New(rand.NewSource(time.Now().UnixNano() + int64(id)))
	all := units.AllUnits()
	since := time.Now().Add(-config.DataTimeRange)

	for ctx.Err() == nil {
		unit := all[rng.Intn(len(all))]
		body := map[string]interface{}{
			"date":  since.Add(time.Duration(rng.Int63n(int64(config.DataTimeRange)))).UTC().Format(time.RFC3339Nano),
			"value": math.Round(rng.Float64()*100000) / 100,
			"unit":  unit.String(),
		}

		start := time.Now()
		err := makeRequest(ctx, config, http.MethodPost, config.BaseURL+"/v1/metrics", userID(rng.Intn(config.NumUsers)), body)
		if ctx.Err() != nil {
			return
		}
		rec.observe(time.Since(start), err)
	}
}

func queryWorker(ctx context.Context, id int, config BenchmarkConfig, rec *recorder) {
	rng := rand.New(rand.NewSource(time.Now().UnixNano() - int64(id)))
	quantities := []units.Quantity{units.Distance, units.Temperature}

	ticker := time.NewTicker(config.QueryInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			q := quantities[rng.Intn(len(quantities))]
			members := q.Units()
			end := time.Now().UTC()

			params := url.Values{}
			params.Set("type", q.String())
			params.Set("unit", members[rng.Intn(len(members))].String())
			params.Set("startDate", end.Add(-config.DataTimeRange).Format(time.RFC3339))
			params.Set("endDate", end.Format(time.RFC3339))
			params.Set("maxDataPoints", strconv.Itoa(config.MaxDataPoints))

			start := time.Now()
			err := makeRequest(ctx, config, http.MethodGet, config.BaseURL+"/v1/metrics?"+params.Encode(), userID(rng.Intn(config.NumUsers)), nil)
			if ctx.Err() != nil {
				return
			}
			rec.observe(time.Since(start), err)
		}
	}
}

func progressReporter(ctx context.Context, writes, queries *recorder, duration time.Duration) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	startTime := time.Now()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		elapsed := time.Since(startTime)
		w, we := writes.counts()
		q, qe := queries.counts()

		fmt.Printf("[%s remaining] Writes: %d (%.0f/s, %d errors) | Queries: %d (%.0f/s, %d errors)\n",
			(duration - elapsed).Round(time.Second),
			w, float64(w)/elapsed.Seconds(), we,
			q, float64(q)/elapsed.Seconds(), qe)
	}
}

func makeRequest(ctx context.Context, config BenchmarkConfig, method, target, user string, data interface{}) error {
	var body io.Reader
	if data != nil {
		jsonData, err := json.Marshal(data)
		if err != nil {
			return err
		}
		body = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("user-id", user)
	if config.APIKey != "" {
		req.Header.Set("X-API-Key", config.APIKey)
	}

	resp, err := config.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	// Drain so the connection is reused
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 400 {
		return fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	return nil
}

func calculateResult(operation string, rec *recorder, duration time.Duration) Result {
	rec.mu.Lock()
	latencies := append([]float64(nil), rec.latencies...)
	result := Result{
		Operation:  operation,
		TotalOps:   rec.success + rec.errors,
		SuccessOps: rec.success,
		ErrorOps:   rec.errors,
		Duration:   duration,
		ErrorMsg:   rec.firstError,
	}
	rec.mu.Unlock()

	if len(latencies) == 0 {
		return result
	}

	sort.Float64s(latencies)

	var sum float64
	for _, lat := range latencies {
		sum += lat
	}

	result.Throughput = float64(result.SuccessOps) / duration.Seconds()
	result.AvgLatency = sum / float64(len(latencies))
	result.MinLatency = latencies[0]
	result.MaxLatency = latencies[len(latencies)-1]
	result.P50Latency = percentile(latencies, 50)
	result.P95Latency = percentile(latencies, 95)
	result.P99Latency = percentile(latencies, 99)
	return result
}

func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	index := int(math.Ceil(float64(len(sorted))*p/100.0)) - 1
	if index < 0 {
		index = 0
	}
	if index >= len(sorted) {
		index = len(sorted) - 1
	}
	return sorted[index]
}

func printConfig(w io.Writer, config BenchmarkConfig) {
	_, _ = fmt.Fprintf(w, "Configuration:\n")
	_, _ = fmt.Fprintf(w, "  URL: %s\n", config.BaseURL)
	_, _ = fmt.Fprintf(w, "  Users: %d\n", config.NumUsers)
	_, _ = fmt.Fprintf(w, "  Duration: %s\n", config.Duration)
	_, _ = fmt.Fprintf(w, "  Write Workers: %d\n", config.WriteWorkers)
	_, _ = fmt.Fprintf(w, "  Query Workers: %d\n", config.QueryWorkers)
	_, _ = fmt.Fprintf(w, "  Query Interval: %s\n", config.QueryInterval)
	_, _ = fmt.Fprintf(w, "  Max Data Points: %d\n", config.MaxDataPoints)
	_, _ = fmt.Fprintf(w, "  Data Time Range: %s\n\n", config.DataTimeRange)
}

func printResult(w io.Writer, r Result) {
	pct := func(n int64) float64 {
		if r.TotalOps == 0 {
			return 0
		}
		return float64(n) / float64(r.TotalOps) * 100
	}

	_, _ = fmt.Fprintf(w, "=== %s Operations ===\n", r.Operation)
	_, _ = fmt.Fprintf(w, "Total Operations: %d\n", r.TotalOps)
	_, _ = fmt.Fprintf(w, "Success:          %d (%.2f%%)\n", r.SuccessOps, pct(r.SuccessOps))
	_, _ = fmt.Fprintf(w, "Errors:           %d (%.2f%%)\n", r.ErrorOps, pct(r.ErrorOps))
	_, _ = fmt.Fprintf(w, "Duration:         %s\n", r.Duration)
	_, _ = fmt.Fprintf(w, "Throughput:       %.2f ops/sec\n", r.Throughput)
	if r.ErrorOps > 0 && r.ErrorMsg != "" {
		_, _ = fmt.Fprintf(w, "First Error:      %s\n", r.ErrorMsg)
	}
	_, _ = fmt.Fprintf(w, "\nLatency (ms):\n")
	_, _ = fmt.Fprintf(w, "  Min:  %.2f\n", r.MinLatency)
	_, _ = fmt.Fprintf(w, "  Avg:  %.2f\n", r.AvgLatency)
	_, _ = fmt.Fprintf(w, "  P50:  %.2f\n", r.P50Latency)
	_, _ = fmt.Fprintf(w, "  P95:  %.2f\n", r.P95Latency)
	_, _ = fmt.Fprintf(w, "  P99:  %.2f\n", r.P99Latency)
	_, _ = fmt.Fprintf(w, "  Max:  %.2f\n", r.MaxLatency)
}

func saveResults(config BenchmarkConfig, writeResult, queryResult Result) {
	if err := os.MkdirAll(config.OutputDir, 0755); err != nil {
		fmt.Printf("Failed to create result directory: %v\n", err)
		return
	}

	filename := filepath.Join(config.OutputDir,
		fmt.Sprintf("api_benchmark_%s.txt", time.Now().Format("20060102_150405")))

	f, err := os.Create(filename)
	if err != nil {
		fmt.Printf("Failed to create result file: %v\n", err)
		return
	}
	defer func() { _ = f.Close() }()

	_, _ = fmt.Fprintf(f, "=== unitmetrics API Benchmark Results ===\n")
	_, _ = fmt.Fprintf(f, "Date: %s\n\n", time.Now().Format("2006-01-02 15:04:05"))
	printConfig(f, config)
	printResult(f, writeResult)
	_, _ = fmt.Fprintf(f, "\n")
	printResult(f, queryResult)

	fmt.Printf("\nResults saved to: %s\n", filename)
}
