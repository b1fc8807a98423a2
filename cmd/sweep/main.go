// cmd/sweep evaluates a YAML-defined grid of filter and stop parameters
// against historical bars from SQLite, in parallel, and prints the
// ranked results.
//
// Usage:
//
//	go run ./cmd/sweep --db=data/bars.db --symbol=EURUSD --grid=grid.yaml --workers=8
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"runtime"
	"sort"
	"syscall"

	"trendlab-enginev1/internal/store/sqlite"
	"trendlab-enginev1/internal/sweep"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)

	dbPath := flag.String("db", "data/bars.db", "Path to SQLite database")
	symbol := flag.String("symbol", "", "Symbol to evaluate")
	gridPath := flag.String("grid", "grid.yaml", "Path to YAML grid spec")
	workers := flag.Int("workers", runtime.NumCPU(), "Parallel evaluation workers")
	fromTS := flag.Int64("from", 0, "Unix timestamp to start from (0=all)")
	top := flag.Int("top", 20, "Number of top results to print")
	flag.Parse()

	if *symbol == "" {
		flag.Usage()
		log.Fatal("[sweep] --symbol is required")
	}

	spec, err := sweep.LoadGrid(*gridPath)
	if err != nil {
		log.Fatalf("[sweep] %v", err)
	}
	combos, skipped, err := spec.Expand()
	if err != nil {
		log.Fatalf("[sweep] %v", err)
	}
	if skipped > 0 {
		log.Printf("[sweep] skipped %d invalid combinations", skipped)
	}

	reader, err := sqlite.NewReader(*dbPath)
	if err != nil {
		log.Fatalf("[sweep] sqlite open failed: %v", err)
	}
	defer reader.Close()

	bars, err := reader.ReadBars(*symbol, *fromTS)
	if err != nil {
		log.Fatalf("[sweep] read bars failed: %v", err)
	}
	if len(bars) == 0 {
		log.Fatalf("[sweep] no bars found for %s", *symbol)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	runner := &sweep.Runner{
		BaseTF:   spec.BaseTF,
		HigherTF: spec.HigherTF,
		Workers:  *workers,
	}
	results, err := runner.Run(ctx, combos, bars)
	if err != nil {
		log.Printf("[sweep] run ended early: %v", err)
	}

	// Rank by net PnL, errors last.
	ranked := make([]sweep.Result, 0, len(results))
	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
			continue
		}
		ranked = append(ranked, r)
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].NetPnL > ranked[j].NetPnL
	})

	fmt.Printf("\nSweep: %s, %d bars, %d combinations (%d failed)\n\n",
		*symbol, len(bars), len(results), failed)
	fmt.Printf("%-5s %-7s %-6s %-7s %-7s %-8s %-7s %-7s %-9s %-10s\n",
		"rank", "length", "order", "smooth", "atr", "mult", "long", "short", "stopdist", "pnl")
	for i, r := range ranked {
		if i >= *top {
			break
		}
		fmt.Printf("%-5d %-7d %-6d %-7d %-7d %-8.2f %-7d %-7d %-9.5f %+.5f\n",
			i+1,
			r.Combo.Filter.Length, r.Combo.Filter.Order, r.Combo.Filter.AdaptiveSmooth,
			r.Combo.Stop.ATRLength, r.Combo.Stop.BaseMultiplier,
			r.LongSignals, r.ShortSigs, r.AvgStopDist, r.NetPnL)
	}
}
