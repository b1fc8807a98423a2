// cmd/signalengine is the live service: it consumes finalized TF bars
// from Redis Streams, runs the adaptive Laguerre filter and the triple
// power stop for every symbol, and publishes filter results, stop
// results, and entry signals back to Redis. Engine state is checkpointed
// periodically to SQLite and Redis so a restart resumes without a full
// warm-up replay.
package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"trendlab-enginev1/config"
	"trendlab-enginev1/internal/logger"
	"trendlab-enginev1/internal/metrics"
	"trendlab-enginev1/internal/model"
	enginesignal "trendlab-enginev1/internal/signal"
	redisstore "trendlab-enginev1/internal/store/redis"
	sqlitestore "trendlab-enginev1/internal/store/sqlite"
)

const snapshotKey = "engine:snapshot"

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)
	slogger := logger.Init("signalengine", slog.LevelInfo)
	log.Println("[signalengine] starting...")

	cfg := config.Load()
	symbols := cfg.ParseSymbols()
	if len(symbols) == 0 {
		log.Fatal("[signalengine] no symbols configured")
	}

	engineCfg, err := cfg.EngineConfig()
	if err != nil {
		log.Fatalf("[signalengine] bad engine config: %v", err)
	}

	// ---- Metrics & health ----
	prom := metrics.NewMetrics()
	health := metrics.NewHealthStatus()
	health.SetEnabledTFs([]int{cfg.BaseTF})
	metricsSrv := metrics.NewServer(cfg.MetricsAddr, health)
	metricsSrv.Start()

	// ---- Graceful shutdown ----
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// ---- SQLite (snapshots + bar persistence) ----
	os.MkdirAll("data", 0o755)
	sqlWriter, err := sqlitestore.New(sqlitestore.WriterConfig{DBPath: cfg.SQLitePath})
	if err != nil {
		log.Fatalf("[signalengine] sqlite init failed: %v", err)
	}
	defer sqlWriter.Close()
	sqlReader, err := sqlitestore.NewReader(cfg.SQLitePath)
	if err != nil {
		log.Fatalf("[signalengine] sqlite reader init failed: %v", err)
	}
	defer sqlReader.Close()
	health.SetSQLiteOK(true)

	// ---- Redis writer + reader ----
	redisWriter, err := redisstore.New(redisstore.WriterConfig{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err != nil {
		log.Fatalf("[signalengine] redis init failed: %v", err)
	}
	defer redisWriter.Close()
	health.SetRedisConnected(true)

	sqlWriter.OnCommit = func(d time.Duration) { prom.SQLiteCommitDur.Observe(d.Seconds()) }
	redisWriter.OnWrite = func(d time.Duration) { prom.RedisWriteDur.Observe(d.Seconds()) }

	hostname, _ := os.Hostname()
	redisReader, err := redisstore.NewReader(redisstore.ReaderConfig{
		Addr:          cfg.RedisAddr,
		Password:      cfg.RedisPassword,
		DB:            cfg.RedisDB,
		ConsumerGroup: "signalengine",
		ConsumerName:  hostname,
	})
	if err != nil {
		log.Fatalf("[signalengine] redis reader init failed: %v", err)
	}
	defer redisReader.Close()

	health.StartLivenessChecker(ctx, redisWriter.Client(), sqlWriter.DB(), 10*time.Second)

	// ---- Circuit breaker around result writes ----
	cb := redisstore.NewCircuitBreaker(5, 10*time.Second)
	cb.OnStateChange = func(from, to redisstore.State) {
		log.Printf("[signalengine] redis circuit breaker: %s -> %s", from, to)
		prom.RedisCircuitBreakerState.Set(float64(to))
		if to == redisstore.StateOpen {
			prom.RedisCircuitBreakerTrips.Inc()
		}
	}
	buffered := redisstore.NewBufferedWriter(ctx, redisWriter, cb, 10000)
	buffered.OnBuffer = func() { prom.RedisBufferedWrites.Inc() }

	// ---- Restore engine from latest snapshot ----
	snap, err := sqlReader.ReadLatestSnapshot()
	if err != nil {
		log.Printf("[signalengine] snapshot load failed, cold-starting: %v", err)
		snap = nil
	}
	if snap == nil {
		if rsnap, rerr := redisReader.ReadSnapshot(ctx, snapshotKey); rerr == nil && rsnap != nil {
			snap = rsnap
			log.Println("[signalengine] restored snapshot from redis")
		}
	}
	engine, err := enginesignal.RestoreEngine(engineCfg, snap)
	if err != nil {
		log.Fatalf("[signalengine] engine init failed: %v", err)
	}
	engine.OnRejectedBar = func() { prom.RejectedBars.Inc() }
	health.SetEngineOK(true)

	// ---- Consume TF bars from Redis Streams ----
	streams := make([]string, 0, len(symbols))
	for _, sym := range symbols {
		tfb := model.TFBar{Symbol: sym, TF: cfg.BaseTF}
		streams = append(streams, tfb.StreamKey())
	}
	if err := redisReader.EnsureConsumerGroup(ctx, streams); err != nil {
		log.Fatalf("[signalengine] consumer group setup failed: %v", err)
	}

	barCh := make(chan model.TFBar, 5000)
	go func() {
		if err := redisReader.RecoverPending(ctx, streams, barCh); err != nil && ctx.Err() == nil {
			log.Printf("[signalengine] pending recovery error: %v", err)
		}
		if err := redisReader.ConsumeTFBars(ctx, streams, barCh); err != nil && ctx.Err() == nil {
			log.Printf("[signalengine] stream consume error: %v", err)
		}
	}()
	go redisReader.StartPELReclaimer(ctx, streams, "signalengine", hostname,
		30*time.Second, 60000, barCh, func(count int) {
			prom.PELMessagesReclaimed.Add(float64(count))
		})

	// ---- Output channels ----
	filterCh := make(chan model.FilterResult, 5000)
	stopCh := make(chan model.StopResult, 5000)
	signalCh := make(chan model.Signal, 1000)
	sqliteBarCh := make(chan model.TFBar, 5000)
	stopOutCh := make(chan model.StopResult, 5000)
	sigOutCh := make(chan model.Signal, 1000)

	go sqlWriter.RunTFBars(ctx, sqliteBarCh)
	go redisWriter.RunStopResults(ctx, stopOutCh)
	go redisWriter.RunSignals(ctx, sigOutCh)

	// Count stop results and signals on the way to the writers.
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case res, ok := <-stopCh:
				if !ok {
					return
				}
				prom.StopResults.Inc()
				select {
				case stopOutCh <- res:
				default:
				}
			case sig, ok := <-signalCh:
				if !ok {
					return
				}
				prom.SignalsTotal.WithLabelValues(sig.Side).Inc()
				slogger.Info("entry signal",
					slog.String("trace_id", logger.GenerateTraceID(sig.Symbol, sig.TS)),
					slog.String("side", sig.Side),
					slog.String("symbol", sig.Symbol),
					slog.Float64("price", sig.Price),
					slog.String("reason", sig.Reason))
				select {
				case sigOutCh <- sig:
				default:
				}
			}
		}
	}()

	// Filter results go through the circuit breaker.
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case res, ok := <-filterCh:
				if !ok {
					return
				}
				buffered.WriteFilterResult(res)
				prom.FilterResults.Inc()
			}
		}
	}()

	// ---- Engine loop (tees bars into SQLite persistence) ----
	engineCh := make(chan model.TFBar, 5000)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case tfb, ok := <-barCh:
				if !ok {
					return
				}
				prom.BarsTotal.Inc()
				prom.BarLag.Set(time.Since(tfb.TS).Seconds())
				health.SetLastBarTime(tfb.TS)
				if !tfb.Forming {
					select {
					case sqliteBarCh <- tfb:
					default:
					}
				}
				select {
				case engineCh <- tfb:
				default:
					log.Printf("[signalengine] engine channel full, dropping bar %s", tfb.Key())
				}
			}
		}
	}()

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case tfb, ok := <-engineCh:
				if !ok {
					return
				}
				if tfb.Forming {
					continue
				}
				start := time.Now()
				fr, sr, signals, ok := engine.Process(tfb)
				prom.FilterComputeDur.Observe(time.Since(start).Seconds())
				if !ok {
					continue
				}
				select {
				case filterCh <- fr:
				default:
				}
				select {
				case stopCh <- sr:
				default:
				}
				for _, s := range signals {
					select {
					case signalCh <- s:
					default:
						log.Printf("[signalengine] signal channel full, dropping %s %s", s.Side, s.Symbol)
					}
				}
			}
		}
	}()

	// ---- Channel saturation gauges ----
	go func() {
		ticker := time.NewTicker(5 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				prom.ChannelSaturationPct.WithLabelValues("engine").
					Set(float64(len(engineCh)) / float64(cap(engineCh)) * 100)
				prom.ChannelSaturationPct.WithLabelValues("filter_out").
					Set(float64(len(filterCh)) / float64(cap(filterCh)) * 100)
			}
		}
	}()

	// ---- Periodic snapshots ----
	if cfg.SnapshotInterval > 0 {
		go func() {
			ticker := time.NewTicker(time.Duration(cfg.SnapshotInterval) * time.Second)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					s := enginesignal.SnapshotEngine(engine)
					if err := sqlWriter.SaveSnapshot(s); err != nil {
						log.Printf("[signalengine] sqlite snapshot failed: %v", err)
					}
					if err := redisReader.WriteSnapshot(ctx, snapshotKey, s); err != nil {
						log.Printf("[signalengine] redis snapshot failed: %v", err)
					}
				}
			}
		}()
	}

	log.Printf("[signalengine] running: symbols=%v baseTF=%ds higherTF=%ds streams=%d",
		symbols, cfg.BaseTF, cfg.HigherTF, len(streams))

	// ---- Wait for shutdown signal ----
	<-sigCh
	log.Println("[signalengine] shutdown signal received, cleaning up...")

	// Final snapshot before exit.
	s := enginesignal.SnapshotEngine(engine)
	if err := sqlWriter.SaveSnapshot(s); err != nil {
		log.Printf("[signalengine] final snapshot failed: %v", err)
	}

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	metricsSrv.Stop(shutdownCtx)

	log.Println("[signalengine] shutdown complete.")
}
