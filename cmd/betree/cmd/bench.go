package cmd

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/fatih/color"
	"github.com/relvacode/iso8601"
	"github.com/spf13/cobra"
	"github.com/wkalt/betree/codec"
	"github.com/wkalt/betree/tree"
)

var (
	benchCount          int
	benchKeySize        int
	benchValueSize      int
	benchMaxNodeSize    int
	benchDynamicEpsilon bool
	benchDir            string
	benchInspect        bool
	benchDeadline       string
)

var benchCmd = &cobra.Command{
	Use:   "bench",
	Short: "drive synthetic load through a tree and report throughput",
}

var benchInsertCmd = &cobra.Command{
	Use:   "insert",
	Short: "insert benchCount random keys and report throughput",
	Run: func(_ *cobra.Command, _ []string) {
		runBench(insertPhase)
	},
}

var benchQueryCmd = &cobra.Command{
	Use:   "query",
	Short: "insert benchCount keys, then query all of them back and report throughput",
	Run: func(_ *cobra.Command, _ []string) {
		runBench(insertPhase, queryPhase)
	},
}

var benchMixedCmd = &cobra.Command{
	Use:   "mixed",
	Short: "interleave inserts, updates, and queries and report throughput",
	Run: func(_ *cobra.Command, _ []string) {
		runBench(mixedPhase)
	},
}

func init() {
	rootCmd.AddCommand(benchCmd)
	benchCmd.AddCommand(benchInsertCmd, benchQueryCmd, benchMixedCmd)

	benchCmd.PersistentFlags().IntVarP(&benchCount, "count", "n", 100000, "number of operations")
	benchCmd.PersistentFlags().IntVarP(&benchKeySize, "keysize", "k", 16, "key size in bytes")
	benchCmd.PersistentFlags().IntVarP(&benchValueSize, "valuesize", "v", 100, "value size in bytes")
	benchCmd.PersistentFlags().IntVarP(&benchMaxNodeSize, "max-node-size", "", 1024, "target node capacity")
	benchCmd.PersistentFlags().BoolVarP(&benchDynamicEpsilon, "dynamic-epsilon", "", false,
		"enable the adaptive epsilon controller")
	benchCmd.PersistentFlags().StringVarP(&benchDir, "dir", "d", "",
		"directory to persist nodes under (defaults to an in-memory store)")
	benchCmd.PersistentFlags().BoolVarP(&benchInspect, "inspect", "i", false,
		"print the resulting tree's shape after the benchmark completes")
	benchCmd.PersistentFlags().StringVarP(&benchDeadline, "deadline", "", "",
		"ISO8601 wall-clock time to cut the run off at (e.g. 2026-08-06T12:00:00Z)")
}

func randKeyN(rng *rand.Rand, seq, size int) string {
	buf := make([]byte, size)
	rng.Read(buf)
	s := fmt.Sprintf("%010d-%x", seq, buf)
	if len(s) > size {
		return s[:size]
	}
	return s
}

func randValueN(rng *rand.Rand, size int) []byte {
	buf := make([]byte, size)
	rng.Read(buf)
	return buf
}

func randKey(rng *rand.Rand, seq int) string {
	return randKeyN(rng, seq, benchKeySize)
}

func randValue(rng *rand.Rand) []byte {
	return randValueN(rng, benchValueSize)
}

type benchPhase func(ctx context.Context, tr *tree.Tree[string, []byte], rng *rand.Rand, keys []string) time.Duration

func runBench(phases ...benchPhase) {
	ctx := context.Background()
	if benchDeadline != "" {
		deadline, err := iso8601.Parse([]byte(benchDeadline))
		checkErr(err)
		var cancel context.CancelFunc
		ctx, cancel = context.WithDeadline(ctx, deadline)
		defer cancel()
	}
	provider, mem := newDemoProvider(benchDir)
	opts := []tree.Option[string, []byte]{
		tree.WithMaxNodeSize[string, []byte](benchMaxNodeSize),
	}
	if benchDynamicEpsilon {
		opts = append(opts, tree.WithDynamicEpsilon[string, []byte]())
	}
	tr := tree.New[string, []byte](provider, bytesCombiner(), codec.StringCodec{}, codec.BytesCodec{}, opts...)
	rng := rand.New(rand.NewSource(1))

	keys := make([]string, benchCount)
	for i := range keys {
		keys[i] = randKey(rng, i)
	}

	bold := color.New(color.Bold)
	for _, phase := range phases {
		elapsed := phase(ctx, tr, rng, keys)
		rate := float64(benchCount) / elapsed.Seconds()
		bold.Printf("%d ops in %s (%.0f ops/sec)\n", benchCount, elapsed, rate)
	}

	checkErr(tr.Sync(ctx))
	hits, misses := tr.CacheStats()
	color.New(color.FgCyan).Printf("cache: %d hits, %d misses\n", hits, misses)
	if mem != nil {
		color.New(color.FgCyan).Printf("backing store: %d resident objects\n", len(mem.Keys()))
	}

	if benchInspect {
		s, err := inspectTree(ctx, tr)
		checkErr(err)
		fmt.Println(s)
	}
}

func insertPhase(ctx context.Context, tr *tree.Tree[string, []byte], rng *rand.Rand, keys []string) time.Duration {
	start := time.Now()
	for _, k := range keys {
		if ctx.Err() != nil {
			break
		}
		checkErr(tr.Insert(ctx, k, randValue(rng)))
	}
	return time.Since(start)
}

func queryPhase(ctx context.Context, tr *tree.Tree[string, []byte], _ *rand.Rand, keys []string) time.Duration {
	start := time.Now()
	for _, k := range keys {
		if ctx.Err() != nil {
			break
		}
		if _, err := tr.Query(ctx, k); err != nil {
			bailf("query %q: %v", k, err)
		}
	}
	return time.Since(start)
}

func mixedPhase(ctx context.Context, tr *tree.Tree[string, []byte], rng *rand.Rand, keys []string) time.Duration {
	start := time.Now()
	for i, k := range keys {
		if ctx.Err() != nil {
			break
		}
		switch i % 3 {
		case 0:
			checkErr(tr.Insert(ctx, k, randValue(rng)))
		case 1:
			checkErr(tr.Update(ctx, k, randValue(rng)))
		default:
			if j := i - 1; j >= 0 {
				_, _ = tr.Query(ctx, keys[j])
			}
		}
	}
	return time.Since(start)
}
