// cmd/importcsv loads historical OHLCV bars from a CSV export into
// SQLite, resampling them into the configured timeframes on the way so
// backtests and sweeps can replay them directly.
//
// Usage:
//
//	go run ./cmd/importcsv --file=EURUSD60.csv --symbol=EURUSD --tf=300,900,3600
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"strconv"
	"strings"
	"sync"

	"trendlab-enginev1/config"
	"trendlab-enginev1/internal/marketdata/bus"
	"trendlab-enginev1/internal/marketdata/csvload"
	"trendlab-enginev1/internal/marketdata/tfbuilder"
	"trendlab-enginev1/internal/model"
	"trendlab-enginev1/internal/ringbuf"
	sqlitestore "trendlab-enginev1/internal/store/sqlite"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)

	file := flag.String("file", "", "Path to CSV file (Date,Time,Open,High,Low,Close,Volume)")
	symbol := flag.String("symbol", "", "Symbol to assign to imported bars")
	tfStr := flag.String("tf", "", "Comma-separated TFs to resample into (default: ENABLED_TFS env)")
	dbPath := flag.String("db", "data/bars.db", "Path to SQLite database")
	dateFmt := flag.String("date-format", "2006.01.02", "Go layout for the Date column")
	timeFmt := flag.String("time-format", "15:04", "Go layout for the Time column")
	header := flag.Bool("header", true, "Skip the first CSV row")
	flag.Parse()

	if *file == "" || *symbol == "" {
		flag.Usage()
		log.Fatal("[importcsv] --file and --symbol are required")
	}

	var tfs []int
	if *tfStr != "" {
		tfs = parseTFs(*tfStr)
	} else {
		tfs = config.Load().ParseTFs()
	}
	if len(tfs) == 0 {
		log.Fatal("[importcsv] no valid TFs specified")
	}

	res, err := csvload.LoadFile(*file, csvload.Options{
		Symbol:     *symbol,
		DateFormat: *dateFmt,
		TimeFormat: *timeFmt,
		HasHeader:  *header,
	})
	if err != nil {
		log.Fatalf("[importcsv] load failed: %v", err)
	}
	if len(res.Bars) == 0 {
		log.Fatal("[importcsv] no valid bars in file")
	}

	os.MkdirAll("data", 0o755)
	writer, err := sqlitestore.New(sqlitestore.WriterConfig{DBPath: *dbPath})
	if err != nil {
		log.Fatalf("[importcsv] sqlite init failed: %v", err)
	}
	defer writer.Close()

	// Incremental import: skip rows at or before the last stored bar.
	lastTS, err := writer.GetLastTimestamp(*symbol)
	if err != nil {
		log.Fatalf("[importcsv] last timestamp lookup failed: %v", err)
	}
	if lastTS > 0 {
		fresh := res.Bars[:0]
		for _, b := range res.Bars {
			if b.TS.Unix() > lastTS {
				fresh = append(fresh, b)
			}
		}
		if skipped := len(res.Bars) - len(fresh); skipped > 0 {
			log.Printf("[importcsv] skipping %d bars already stored for %s", skipped, *symbol)
		}
		res.Bars = fresh
		if len(res.Bars) == 0 {
			log.Printf("[importcsv] nothing new to import for %s", *symbol)
			return
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Pipeline: ring buffer -> fanout -> {SQLite base bars, TF resampler}.
	ring := ringbuf.New(8192)
	barCh := make(chan model.Bar, 5000)
	tfBarCh := make(chan model.TFBar, 10000)

	fanout := bus.New(5000)
	sqliteBarCh := fanout.Subscribe()
	builderCh := fanout.Subscribe()
	go fanout.Run(ctx, barCh)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		writer.Run(ctx, sqliteBarCh)
	}()

	builder := tfbuilder.New(tfs)
	builder.StaleTolerance = 0 // historical timestamps
	wg.Add(1)
	go func() {
		defer wg.Done()
		for b := range builderCh {
			builder.Run1(b, tfBarCh)
		}
		// Finalize partial buckets, then let the TF writer drain.
		builder.Run(ctx, closedBarChan(), tfBarCh)
		close(tfBarCh)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		writer.RunTFBars(ctx, tfBarCh)
	}()

	// Producer: push all bars through the ring, then drain into barCh.
	go func() {
		for _, b := range res.Bars {
			for !ring.Push(b) {
				// consumer drains below
			}
		}
	}()
	go func() {
		emitted := 0
		for emitted < len(res.Bars) {
			b, ok := ring.Pop()
			if !ok {
				continue
			}
			barCh <- b
			emitted++
		}
		close(barCh)
	}()

	wg.Wait()
	if ring.Overflow() > 0 {
		log.Printf("[importcsv] ring overflow count: %d", ring.Overflow())
	}
	log.Printf("[importcsv] imported %d bars (%d rejected rows) for %s into %s, TFs=%v",
		len(res.Bars), res.Rejected, *symbol, *dbPath, tfs)
}

// closedBarChan returns an already-closed bar channel so Builder.Run
// flushes forming buckets and returns immediately.
func closedBarChan() <-chan model.Bar {
	ch := make(chan model.Bar)
	close(ch)
	return ch
}

func parseTFs(s string) []int {
	var tfs []int
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(p)
		if n, err := strconv.Atoi(p); err == nil && n > 0 {
			tfs = append(tfs, n)
		}
	}
	return tfs
}
