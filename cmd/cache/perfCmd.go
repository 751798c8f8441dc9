package cache

import (
	"context"
	"encoding/csv"
	"fmt"
	"github.com/ValentinKolb/dCache/cmd/util"
	"github.com/ValentinKolb/dCache/lib/cache"
	"github.com/ValentinKolb/dCache/lib/query"
	"github.com/pterm/pterm"
	gometrics "github.com/rcrowley/go-metrics"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"os"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

var (
	perfTestCmd = &cobra.Command{
		Use:     "perf",
		Short:   "Performance testing tool for dCache servers",
		RunE:    runPerf,
		PreRunE: processPerfConfig,
	}
	perfKeyPrefix        = "__test"
	perfLargeValueSizeKB = 100
	perfNumThreads       = 10
	perfKeySpread        = 100
	perfOpsPerTest       = 10000
	perfSkip             = make([]string, 0)
)

func init() {
	// add flags
	key := "skip"
	perfTestCmd.Flags().String(key, "", util.WrapString("Benchmarks to skip (comma separated - e.g. put,get)"))
	key = "threads"
	perfTestCmd.Flags().Int(key, 10, util.WrapString("Number of threads to use for the benchmark"))
	key = "large-value-size"
	perfTestCmd.Flags().Int(key, 100, util.WrapString("How large the value for the put-large test should be (in KB)"))
	key = "keys"
	perfTestCmd.Flags().Int(key, 100, util.WrapString("How many different keys to use for the tests"))
	key = "ops"
	perfTestCmd.Flags().Int(key, 10000, util.WrapString("How many operations to run per test"))
	key = "csv"
	perfTestCmd.Flags().String(key, "", util.WrapString("Optional path to save benchmark results as CSV"))
}

func processPerfConfig(cmd *cobra.Command, _ []string) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	// Read the configuration from the command line flags and environment variables
	perfLargeValueSizeKB = viper.GetInt("large-value-size")
	perfKeySpread = max(viper.GetInt("keys"), 1)
	perfNumThreads = max(viper.GetInt("threads"), 1)
	perfOpsPerTest = max(viper.GetInt("ops"), 1)
	perfSkip = strings.Split(viper.GetString("skip"), ",")

	return nil
}

// perfTest is a single benchmark. op is called with the index of the operation.
type perfTest struct {
	name    string
	prepare func(ctx context.Context, keys []string) error
	op      func(ctx context.Context, i int, key string) error
}

func runPerf(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	pterm.DefaultSection.Println("Performance testing tool for dCache servers")

	// Print configuration
	fmt.Println("Configuration:")
	fmt.Println(util.GetClientConfig().String())
	fmt.Printf("Threads: %d, Operations per test: %d\n\n", perfNumThreads, perfOpsPerTest)

	largeValue := strings.Repeat("x", perfLargeValueSizeKB*1024)
	fill := func(ctx context.Context, keys []string) error {
		entries := make([]cache.Entry, 0, len(keys))
		for _, k := range keys {
			entries = append(entries, cache.Entry{Key: k, Value: "test"})
		}
		return rpcCache.PutAll(ctx, entries...)
	}

	tests := []perfTest{
		{name: "put", op: func(ctx context.Context, _ int, key string) error {
			return rpcCache.Put(ctx, key, "test")
		}},
		{name: "put-large", op: func(ctx context.Context, _ int, key string) error {
			return rpcCache.Put(ctx, key, largeValue)
		}},
		{name: "get", prepare: fill, op: func(ctx context.Context, _ int, key string) error {
			_, _, err := rpcCache.Get(ctx, key)
			return err
		}},
		{name: "containskey", prepare: fill, op: func(ctx context.Context, _ int, key string) error {
			_, err := rpcCache.ContainsKey(ctx, key)
			return err
		}},
		{name: "getall", prepare: fill, op: func(ctx context.Context, i int, key string) error {
			_, err := rpcCache.GetAll(ctx, key, fmt.Sprintf("%s-getall-%d", perfKeyPrefix, (i+1)%perfKeySpread))
			return err
		}},
		{name: "query", prepare: fill, op: func(ctx context.Context, _ int, _ string) error {
			return rpcCache.Query(ctx, query.NewSqlFieldsQuery("scan", perfKeyPrefix+"-query").WithPageSize(10))
		}},
		{name: "mixed", prepare: fill, op: func(ctx context.Context, i int, key string) error {
			var err error
			switch i % 4 {
			case 0:
				err = rpcCache.Put(ctx, key, "test")
			case 1:
				_, _, err = rpcCache.Get(ctx, key)
			case 2:
				_, err = rpcCache.Remove(ctx, key)
			case 3:
				_, err = rpcCache.ContainsKey(ctx, key)
			}
			return err
		}},
	}

	registry := gometrics.NewRegistry()
	for _, test := range tests {
		if shouldSkip(test.name) {
			printResult(test.name, nil)
			continue
		}
		timer := gometrics.GetOrRegisterTimer(test.name, registry)
		if err := runTest(ctx, test, timer); err != nil {
			return fmt.Errorf("%s: %w", test.name, err)
		}
		printResult(test.name, timer)
	}

	// Write results to csv is specified
	if csvPath := viper.GetString("csv"); csvPath != "" {
		fmt.Printf("\nExporting results to CSV: %s\n", csvPath)
		if err := writeResultsToCSV(csvPath, registry); err != nil {
			return fmt.Errorf("failed to export results to CSV: %v", err)
		}
		pterm.Success.Println("Export complete")
	}

	return nil
}

// runTest runs perfOpsPerTest operations on perfNumThreads goroutines and
// records the latency of every operation
func runTest(ctx context.Context, test perfTest, timer gometrics.Timer) error {
	keys := getKeys(test.name)

	if test.prepare != nil {
		if err := test.prepare(ctx, keys); err != nil {
			return err
		}
	}
	defer func() {
		if err := rpcCache.RemoveAll(ctx, keys...); err != nil {
			pterm.Warning.Printfln("(%s) - error removing keys: %v", test.name, err)
		}
	}()

	var next atomic.Int64
	var failures atomic.Int64
	var wg sync.WaitGroup
	for t := 0; t < perfNumThreads; t++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				i := int(next.Add(1) - 1)
				if i >= perfOpsPerTest || ctx.Err() != nil {
					return
				}
				start := time.Now()
				err := test.op(ctx, i, keys[i%len(keys)])
				timer.UpdateSince(start)
				if err != nil {
					failures.Add(1)
				}
			}
		}()
	}
	wg.Wait()

	if n := failures.Load(); n > 0 {
		pterm.Warning.Printfln("(%s) - %d operations failed", test.name, n)
	}
	return ctx.Err()
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

func shouldSkip(test string) bool {
	// Check if the test is in the skip list
	for _, skip := range perfSkip {
		if test == skip {
			return true
		}
	}
	return false
}

// getKeys creates the test keys of a benchmark
func getKeys(prefix string) []string {
	keys := make([]string, perfKeySpread)
	for i := 0; i < perfKeySpread; i++ {
		keys[i] = fmt.Sprintf("%s-%s-%d", perfKeyPrefix, prefix, i)
	}
	return keys
}

// printResult prints the result of a benchmark test in a formatted way
func printResult(test string, timer gometrics.Timer) {
	if timer == nil || timer.Count() == 0 {
		fmt.Printf("%-15sskipped\n", test)
		return
	}

	s := timer.Snapshot()
	ps := s.Percentiles([]float64{0.5, 0.99})
	fmt.Printf("%-15smean %s\tp50 %s\tp99 %s\t%.0f ops/sec\n",
		test,
		time.Duration(s.Mean()),
		time.Duration(ps[0]),
		time.Duration(ps[1]),
		s.RateMean(),
	)
}

// writeResultsToCSV writes benchmark results to a CSV file
func writeResultsToCSV(csvPath string, registry gometrics.Registry) error {
	file, err := os.Create(csvPath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %v", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	config := util.GetClientConfig()

	// Write header
	header := []string{
		"Test", "Count", "MeanNs", "P50Ns", "P99Ns", "OpsPerSec",
		"Endpoints", "TimeoutSec", "RetryCount", "ConnectionsPerEndpoint",
		"Cache", "Serializer", "Transport", "Threads", "LargeValueSizeKB", "Keys Count",
	}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %v", err)
	}

	// Write test results
	var writeErr error
	registry.Each(func(test string, m interface{}) {
		timer, ok := m.(gometrics.Timer)
		if !ok || writeErr != nil {
			return
		}
		s := timer.Snapshot()
		ps := s.Percentiles([]float64{0.5, 0.99})
		row := []string{
			test,
			strconv.FormatInt(s.Count(), 10),
			fmt.Sprintf("%.0f", s.Mean()),
			fmt.Sprintf("%.0f", ps[0]),
			fmt.Sprintf("%.0f", ps[1]),
			fmt.Sprintf("%.0f", s.RateMean()),
			strings.Join(config.Transport.Endpoints, ";"),
			strconv.Itoa(config.TimeoutSecond),
			strconv.Itoa(config.Transport.RetryCount),
			strconv.Itoa(config.Transport.ConnectionsPerEndpoint),
			config.CacheName,
			viper.GetString("serializer"),
			viper.GetString("transport"),
			strconv.Itoa(perfNumThreads),
			strconv.Itoa(perfLargeValueSizeKB),
			strconv.Itoa(perfKeySpread),
		}
		if err := writer.Write(row); err != nil {
			writeErr = fmt.Errorf("failed to write row for test %s: %v", test, err)
		}
	})

	return writeErr
}
