// Load generator for the edr-dash grid endpoint. Workers pick locations from
// a Zipf-skewed pool, so a hot subset of grids exercises the cache while the
// tail forces fresh fetches.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"math"
	"math/rand"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

type Config struct {
	TargetURL      string
	Collection     string
	Locations      string
	Parameters     string
	Datetime       string
	Concurrency    int
	Duration       time.Duration
	ZipfS          float64
	ZipfV          float64
	RequestTimeout time.Duration
	SummaryPath    string
}

func loadConfig() Config {
	var cfg Config
	flag.StringVar(&cfg.TargetURL, "target", "http://localhost:8093", "edr-dash base URL")
	flag.StringVar(&cfg.Collection, "collection", "gfs", "Collection id")
	flag.StringVar(&cfg.Locations, "locations", "", "Comma-separated location ids (required)")
	flag.StringVar(&cfg.Parameters, "parameters", "", "Comma-separated parameter names (empty = all)")
	flag.StringVar(&cfg.Datetime, "datetime", "", "Datetime expression passed through to the server")
	flag.IntVar(&cfg.Concurrency, "concurrency", 8, "Concurrent workers")
	flag.DurationVar(&cfg.Duration, "duration", 60*time.Second, "Test duration")
	flag.Float64Var(&cfg.ZipfS, "zipf-s", 1.3, "Zipf parameter s (>1)")
	flag.Float64Var(&cfg.ZipfV, "zipf-v", 1.0, "Zipf parameter v (>=1)")
	flag.DurationVar(&cfg.RequestTimeout, "timeout", 30*time.Second, "Per-request timeout")
	flag.StringVar(&cfg.SummaryPath, "out", "results/loadgen_summary.json", "Summary JSON path")
	flag.Parse()
	return cfg
}

type sample struct {
	Latency time.Duration
	Status  int
	Err     string
}

type summary struct {
	Start         time.Time `json:"start"`
	End           time.Time `json:"end"`
	DurationSec   float64   `json:"duration_sec"`
	TotalRequests int64     `json:"total"`
	SuccessCount  int64     `json:"success"`
	ErrorCount    int64     `json:"errors"`
	ThroughputRPS float64   `json:"throughput_rps"`
	P50Ms         float64   `json:"p50_ms"`
	P95Ms         float64   `json:"p95_ms"`
	P99Ms         float64   `json:"p99_ms"`
	Concurrency   int       `json:"concurrency"`
	Locations     int       `json:"locations"`
	Target        string    `json:"target"`
	Collection    string    `json:"collection"`
}

func main() {
	cfg := loadConfig()

	locations := splitList(cfg.Locations)
	if len(locations) == 0 {
		log.Fatalf("at least one location is required (-locations)")
	}

	gridURL, err := url.Parse(strings.TrimRight(cfg.TargetURL, "/") +
		"/collections/" + url.PathEscape(cfg.Collection) + "/grid")
	if err != nil {
		log.Fatalf("bad target URL: %v", err)
	}

	httpClient := &http.Client{
		Transport: &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			DialContext:           (&net.Dialer{Timeout: 4 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
			MaxIdleConns:          256,
			MaxIdleConnsPerHost:   128,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   4 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
		},
		Timeout: cfg.RequestTimeout,
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Duration)
	defer cancel()

	samplesChan := make(chan sample, 4096)
	resultsChan := make(chan []sample, 1)
	go func() {
		var all []sample
		for s := range samplesChan {
			all = append(all, s)
		}
		resultsChan <- all
	}()

	seed := time.Now().UnixNano()
	imax := uint64(len(locations) - 1)
	start := time.Now()
	log.Printf("loadgen start target=%s collection=%s dur=%s conc=%d locations=%d",
		cfg.TargetURL, cfg.Collection, cfg.Duration, cfg.Concurrency, len(locations))

	var wg sync.WaitGroup
	wg.Add(cfg.Concurrency)
	for workerID := range cfg.Concurrency {
		go func(id int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(seed + int64(id) + 1))
			var zipf *rand.Zipf
			if imax > 0 {
				zipf = rand.NewZipf(r, cfg.ZipfS, cfg.ZipfV, imax)
			}
			for {
				select {
				case <-ctx.Done():
					return
				default:
				}

				idx := 0
				if zipf != nil {
					idx = int(zipf.Uint64())
				}

				u := *gridURL
				q := u.Query()
				q.Set("location", locations[idx])
				if cfg.Parameters != "" {
					q.Set("parameter-name", cfg.Parameters)
				}
				if cfg.Datetime != "" {
					q.Set("datetime", cfg.Datetime)
				}
				u.RawQuery = q.Encode()

				reqStart := time.Now()
				req, _ := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
				req.Header.Set("Accept", "application/json")
				resp, err := httpClient.Do(req)

				s := sample{Latency: time.Since(reqStart)}
				if err != nil {
					s.Err = err.Error()
				} else {
					s.Status = resp.StatusCode
					_, _ = io.Copy(io.Discard, resp.Body)
					_ = resp.Body.Close()
					if resp.StatusCode < 200 || resp.StatusCode >= 300 {
						s.Err = fmt.Sprintf("status=%d", resp.StatusCode)
					}
				}

				select {
				case samplesChan <- s:
				case <-ctx.Done():
					return
				}
			}
		}(workerID)
	}

	go func() {
		<-ctx.Done()
		wg.Wait()
		close(samplesChan)
	}()

	all := <-resultsChan
	end := time.Now()
	elapsed := end.Sub(start).Seconds()

	var success, errorCount int64
	latencies := make([]float64, 0, len(all))
	for _, s := range all {
		if s.Err == "" {
			success++
			latencies = append(latencies, float64(s.Latency.Microseconds())/1000.0)
		} else {
			errorCount++
		}
	}
	sort.Float64s(latencies)

	out := summary{
		Start:         start.UTC(),
		End:           end.UTC(),
		DurationSec:   elapsed,
		TotalRequests: int64(len(all)),
		SuccessCount:  success,
		ErrorCount:    errorCount,
		ThroughputRPS: float64(len(all)) / elapsed,
		P50Ms:         percentile(latencies, 50),
		P95Ms:         percentile(latencies, 95),
		P99Ms:         percentile(latencies, 99),
		Concurrency:   cfg.Concurrency,
		Locations:     len(locations),
		Target:        cfg.TargetURL,
		Collection:    cfg.Collection,
	}

	if err := os.MkdirAll(filepath.Dir(cfg.SummaryPath), 0o750); err == nil {
		if f, err := os.Create(filepath.Clean(cfg.SummaryPath)); err == nil {
			enc := json.NewEncoder(f)
			enc.SetIndent("", "  ")
			_ = enc.Encode(out)
			_ = f.Close()
		}
	}

	log.Printf("done: total=%d succ=%d err=%d thr=%.2f rps p50=%.1fms p95=%.1fms p99=%.1fms",
		out.TotalRequests, out.SuccessCount, out.ErrorCount, out.ThroughputRPS, out.P50Ms, out.P95Ms, out.P99Ms)
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func percentile(sortedValues []float64, p float64) float64 {
	if len(sortedValues) == 0 {
		return math.NaN()
	}
	if p <= 0 {
		return sortedValues[0]
	}
	if p >= 100 {
		return sortedValues[len(sortedValues)-1]
	}
	k := (p / 100.0) * float64(len(sortedValues)-1)
	f := math.Floor(k)
	i := int(f)
	if i >= len(sortedValues)-1 {
		return sortedValues[len(sortedValues)-1]
	}
	d := k - f
	return sortedValues[i]*(1-d) + sortedValues[i+1]*d
}
