// Benchmark tool for testing Harrier against a labeled watchlist.
//
// Usage:
//   go run cmd/benchmark/main.go -csv /path/to/watchlist.csv -url http://localhost:8080
//
// This tool:
//   1. Reads labeled screening queries (name, entity type, critical label)
//   2. Sends each query to Harrier's search endpoint
//   3. Compares Harrier's verdict (any Critical hit) with the labels
//   4. Calculates precision, recall, F1-score, and confusion matrix
//
// Expected CSV columns: name, entity_type, is_critical (1/0).
package main

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// ScreeningQuery represents one labeled row from the watchlist CSV.
type ScreeningQuery struct {
	Name       string
	EntityType string
	IsCritical bool
}

// SearchRequest is the Harrier API request format.
type SearchRequest struct {
	EntityType string `json:"entityType"`
	Name       string `json:"name"`
}

// SearchResponse is the Harrier API response format.
type SearchResponse struct {
	Results []struct {
		EntityID string `json:"entityId"`
		Risk     struct {
			RiskScore    int    `json:"riskScore"`
			RiskCategory string `json:"riskCategory"`
		} `json:"risk"`
	} `json:"results"`
	Count  int  `json:"count"`
	Cached bool `json:"cached"`
}

// Metrics tracks benchmark results.
type Metrics struct {
	TruePositives  int64 // Critical entity surfaced as Critical
	FalsePositives int64 // Benign query produced a Critical hit
	TrueNegatives  int64 // Benign query stayed below Critical
	FalseNegatives int64 // Critical entity missed

	TotalProcessed int64
	TotalCritical  int64
	TotalBenign    int64
	TotalErrors    int64
	CacheHits      int64

	ProcessingTimeMs int64
}

func main() {
	// Parse flags
	csvPath := flag.String("csv", "", "Path to labeled watchlist CSV file")
	baseURL := flag.String("url", "http://localhost:8080", "Harrier base URL")
	limit := flag.Int("limit", 10000, "Maximum queries to process (0 = all)")
	workers := flag.Int("workers", 10, "Number of concurrent workers")
	criticalOnly := flag.Bool("critical-only", false, "Only test critical-labeled queries")
	verbose := flag.Bool("verbose", false, "Print each query result")
	flag.Parse()

	if *csvPath == "" {
		fmt.Println("Usage: benchmark -csv /path/to/watchlist.csv [-url http://localhost:8080]")
		fmt.Println("\nFlags:")
		flag.PrintDefaults()
		os.Exit(1)
	}

	fmt.Println("╔═══════════════════════════════════════════════════════════════╗")
	fmt.Println("║         HARRIER BENCHMARK - Watchlist Screening               ║")
	fmt.Println("╚═══════════════════════════════════════════════════════════════╝")
	fmt.Printf("\nCSV File:     %s\n", *csvPath)
	fmt.Printf("Harrier URL:  %s\n", *baseURL)
	fmt.Printf("Workers:      %d\n", *workers)
	fmt.Printf("Limit:        %d\n", *limit)
	fmt.Printf("Critical Only: %v\n", *criticalOnly)
	fmt.Println()

	// Check Harrier is running
	if err := checkHealth(*baseURL); err != nil {
		fmt.Printf("ERROR: Harrier not reachable at %s: %v\n", *baseURL, err)
		fmt.Println("\nMake sure Harrier is running:")
		fmt.Println("  cd harrier && go run cmd/harrier/main.go")
		os.Exit(1)
	}
	fmt.Println("✓ Harrier is healthy")

	// Read watchlist data
	fmt.Printf("\nReading watchlist from %s...\n", *csvPath)
	queries, err := readWatchlistCSV(*csvPath, *limit, *criticalOnly)
	if err != nil {
		fmt.Printf("ERROR: Failed to read CSV: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("✓ Loaded %d queries\n", len(queries))

	criticalCount := 0
	for _, q := range queries {
		if q.IsCritical {
			criticalCount++
		}
	}
	fmt.Printf("  - Critical: %d (%.2f%%)\n", criticalCount, 100*float64(criticalCount)/float64(len(queries)))
	fmt.Printf("  - Benign:   %d (%.2f%%)\n", len(queries)-criticalCount, 100*float64(len(queries)-criticalCount)/float64(len(queries)))

	// Run benchmark
	fmt.Printf("\nRunning benchmark with %d workers...\n", *workers)
	startTime := time.Now()
	metrics := runBenchmark(queries, *baseURL, *workers, *verbose)
	duration := time.Since(startTime)

	// Print results
	printResults(metrics, duration)
}

func checkHealth(baseURL string) error {
	resp, err := http.Get(baseURL + "/health")
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unhealthy: status %d", resp.StatusCode)
	}
	return nil
}

func readWatchlistCSV(path string, limit int, criticalOnly bool) ([]ScreeningQuery, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	reader := csv.NewReader(file)

	// Read header
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	// Map column indices
	colIndex := make(map[string]int)
	for i, col := range header {
		colIndex[strings.ToLower(col)] = i
	}

	var queries []ScreeningQuery

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			continue // Skip malformed rows
		}

		isCritical := record[colIndex["is_critical"]] == "1"
		if criticalOnly && !isCritical {
			continue
		}

		entityType := "individual"
		if i, ok := colIndex["entity_type"]; ok && record[i] != "" {
			entityType = record[i]
		}

		queries = append(queries, ScreeningQuery{
			Name:       record[colIndex["name"]],
			EntityType: entityType,
			IsCritical: isCritical,
		})

		if limit > 0 && len(queries) >= limit {
			break
		}
	}

	return queries, nil
}

func runBenchmark(queries []ScreeningQuery, baseURL string, numWorkers int, verbose bool) *Metrics {
	metrics := &Metrics{}

	// Create work channel
	work := make(chan ScreeningQuery, 100)
	var wg sync.WaitGroup

	// Start workers
	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			client := &http.Client{Timeout: 10 * time.Second}

			for q := range work {
				start := time.Now()
				result, err := searchEntity(client, baseURL, q)
				elapsed := time.Since(start).Milliseconds()

				atomic.AddInt64(&metrics.ProcessingTimeMs, elapsed)
				atomic.AddInt64(&metrics.TotalProcessed, 1)

				if err != nil {
					atomic.AddInt64(&metrics.TotalErrors, 1)
					if verbose {
						fmt.Printf("ERROR: %s -> %v\n", q.Name, err)
					}
					continue
				}

				if result.Cached {
					atomic.AddInt64(&metrics.CacheHits, 1)
				}

				// Track actual labels
				if q.IsCritical {
					atomic.AddInt64(&metrics.TotalCritical, 1)
				} else {
					atomic.AddInt64(&metrics.TotalBenign, 1)
				}

				// Any Critical hit counts as a positive screening verdict.
				predicted := false
				topScore := 0
				for _, r := range result.Results {
					if r.Risk.RiskCategory == "Critical" {
						predicted = true
					}
					if r.Risk.RiskScore > topScore {
						topScore = r.Risk.RiskScore
					}
				}
				actual := q.IsCritical

				if predicted && actual {
					atomic.AddInt64(&metrics.TruePositives, 1)
				} else if predicted && !actual {
					atomic.AddInt64(&metrics.FalsePositives, 1)
				} else if !predicted && !actual {
					atomic.AddInt64(&metrics.TrueNegatives, 1)
				} else { // !predicted && actual
					atomic.AddInt64(&metrics.FalseNegatives, 1)
				}

				if verbose {
					status := "✓"
					if (predicted && !actual) || (!predicted && actual) {
						status = "✗"
					}
					name := q.Name
					if len(name) > 20 {
						name = name[:20]
					}
					fmt.Printf("%s %-20s | Type: %-12s | Critical: %-5v | Hits: %3d | Top Score: %3d\n",
						status,
						name,
						q.EntityType,
						q.IsCritical,
						result.Count,
						topScore,
					)
				}
			}
		}()
	}

	// Send work
	for _, q := range queries {
		work <- q
	}
	close(work)

	// Wait for completion
	wg.Wait()

	return metrics
}

func searchEntity(client *http.Client, baseURL string, q ScreeningQuery) (*SearchResponse, error) {
	req := SearchRequest{
		EntityType: q.EntityType,
		Name:       q.Name,
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequest(http.MethodPost, baseURL+"/search", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}

	var result SearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}

	return &result, nil
}

func printResults(m *Metrics, duration time.Duration) {
	fmt.Println("\n╔═══════════════════════════════════════════════════════════════╗")
	fmt.Println("║                      BENCHMARK RESULTS                        ║")
	fmt.Println("╚═══════════════════════════════════════════════════════════════╝")

	fmt.Printf("\n📊 DATASET STATISTICS\n")
	fmt.Printf("   Total Processed:  %d\n", m.TotalProcessed)
	fmt.Printf("   Total Critical:   %d\n", m.TotalCritical)
	fmt.Printf("   Total Benign:     %d\n", m.TotalBenign)
	fmt.Printf("   Errors:           %d\n", m.TotalErrors)
	fmt.Printf("   Cache Hits:       %d\n", m.CacheHits)

	fmt.Printf("\n📈 CONFUSION MATRIX\n")
	fmt.Println("                        Predicted")
	fmt.Println("                    CRIT        PASS")
	fmt.Println("              ┌──────────┬──────────┐")
	fmt.Printf("   Actual  C  │ %8d │ %8d │  (TP, FN)\n", m.TruePositives, m.FalseNegatives)
	fmt.Println("              ├──────────┼──────────┤")
	fmt.Printf("           B  │ %8d │ %8d │  (FP, TN)\n", m.FalsePositives, m.TrueNegatives)
	fmt.Println("              └──────────┴──────────┘")

	// Calculate metrics
	precision := float64(0)
	if m.TruePositives+m.FalsePositives > 0 {
		precision = float64(m.TruePositives) / float64(m.TruePositives+m.FalsePositives)
	}

	recall := float64(0)
	if m.TruePositives+m.FalseNegatives > 0 {
		recall = float64(m.TruePositives) / float64(m.TruePositives+m.FalseNegatives)
	}

	f1 := float64(0)
	if precision+recall > 0 {
		f1 = 2 * (precision * recall) / (precision + recall)
	}

	accuracy := float64(0)
	total := m.TruePositives + m.TrueNegatives + m.FalsePositives + m.FalseNegatives
	if total > 0 {
		accuracy = float64(m.TruePositives+m.TrueNegatives) / float64(total)
	}

	fmt.Printf("\n🎯 SCREENING METRICS\n")
	fmt.Printf("   Precision:  %.4f  (of Critical verdicts, how many were labeled critical)\n", precision)
	fmt.Printf("   Recall:     %.4f  (of critical entities, how many did we surface)\n", recall)
	fmt.Printf("   F1-Score:   %.4f  (harmonic mean of precision & recall)\n", f1)
	fmt.Printf("   Accuracy:   %.4f  (overall correct verdicts)\n", accuracy)

	fmt.Printf("\n🔍 SCREENING ANALYSIS\n")
	if m.TotalCritical > 0 {
		detectionRate := float64(m.TruePositives) / float64(m.TotalCritical) * 100
		missRate := float64(m.FalseNegatives) / float64(m.TotalCritical) * 100
		fmt.Printf("   Critical Surfaced: %d / %d (%.2f%%)\n", m.TruePositives, m.TotalCritical, detectionRate)
		fmt.Printf("   Critical Missed:   %d / %d (%.2f%%) ⚠️\n", m.FalseNegatives, m.TotalCritical, missRate)
	}
	if m.TotalBenign > 0 {
		falseAlarmRate := float64(m.FalsePositives) / float64(m.TotalBenign) * 100
		fmt.Printf("   False Alarms:      %d / %d (%.2f%%)\n", m.FalsePositives, m.TotalBenign, falseAlarmRate)
	}

	fmt.Printf("\n⏱️  PERFORMANCE\n")
	fmt.Printf("   Total Duration:   %v\n", duration.Round(time.Millisecond))
	if m.TotalProcessed > 0 {
		avgMs := float64(m.ProcessingTimeMs) / float64(m.TotalProcessed)
		qps := float64(m.TotalProcessed) / duration.Seconds()
		fmt.Printf("   Avg Latency:      %.2f ms\n", avgMs)
		fmt.Printf("   Throughput:       %.2f queries/sec\n", qps)
	}

	// Interpretation
	fmt.Printf("\n💡 INTERPRETATION\n")
	if recall >= 0.9 {
		fmt.Println("   ✅ Excellent recall - surfacing most critical entities")
	} else if recall >= 0.7 {
		fmt.Println("   ⚠️  Good recall - but missing some critical entities")
	} else if recall >= 0.5 {
		fmt.Println("   ⚠️  Moderate recall - significant misses")
	} else {
		fmt.Println("   ❌ Poor recall - most critical entities are being missed!")
	}

	if precision >= 0.5 {
		fmt.Println("   ✅ Good precision - Critical verdicts are meaningful")
	} else if precision >= 0.2 {
		fmt.Println("   ⚠️  Low precision - many false alarms")
	} else {
		fmt.Println("   ❌ Very low precision - mostly false alarms")
	}

	fmt.Println()
}
