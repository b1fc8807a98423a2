package redis

import (
	"context"
	"fmt"
	"log"
	"time"
	"unsafe"

	"trendlab-enginev1/internal/model"

	goredis "github.com/go-redis/redis/v8"
)

const (
	// Stream trimming: ~1 week of 1m bars + buffer
	streamBarMaxLen  = 12000
	defaultLatestTTL = 30 * time.Minute
)

// WriterConfig configures the Redis writer.
type WriterConfig struct {
	Addr     string // Redis address, e.g. "localhost:6379"
	Password string
	DB       int
}

// Writer writes bars, filter results, stop results, and signals to Redis.
type Writer struct {
	client *goredis.Client

	// OnWrite is called with the wall time of each pipeline execution
	// (optional, for latency metrics).
	OnWrite func(d time.Duration)
}

func (w *Writer) observe(start time.Time) {
	if w.OnWrite != nil {
		w.OnWrite(time.Since(start))
	}
}

// Client returns the underlying Redis client for health checks.
func (w *Writer) Client() *goredis.Client { return w.client }

// New creates a new Redis Writer and pings the server.
func New(cfg WriterConfig) (*Writer, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	log.Printf("[redis] connected to %s", cfg.Addr)
	return &Writer{client: client}, nil
}

// Run reads base bars from barCh and writes them to Redis.
// Blocks until ctx is cancelled or barCh is closed.
func (w *Writer) Run(ctx context.Context, barCh <-chan model.Bar) {
	for {
		select {
		case <-ctx.Done():
			return
		case bar, ok := <-barCh:
			if !ok {
				return
			}
			w.writeBar(ctx, bar)
		}
	}
}

// RunTFBars reads finalized TF bars and writes them to Redis Streams.
// Blocks until ctx is cancelled or channel is closed.
func (w *Writer) RunTFBars(ctx context.Context, tfBarCh <-chan model.TFBar) {
	for {
		select {
		case <-ctx.Done():
			return
		case tfb, ok := <-tfBarCh:
			if !ok {
				return
			}
			if tfb.Forming {
				w.publishForming(ctx, tfb)
				continue
			}
			w.writeTFBar(ctx, tfb)
		}
	}
}

// publishForming publishes a still-forming TF bar via PubSub ONLY (no XADD).
// Used for live preview updates. Uses string concat instead of fmt.Sprintf.
func (w *Writer) publishForming(ctx context.Context, tfb model.TFBar) {
	jsonBytes := tfb.JSON()
	jsonData := *(*string)(unsafe.Pointer(&jsonBytes))
	pubsubCh := "pub:bar:" + model.Itoa(tfb.TF) + "s:" + tfb.Symbol
	w.client.Publish(ctx, pubsubCh, jsonData)
}

// RunFilterResults reads filter results and writes them to Redis Streams.
// Blocks until ctx is cancelled or channel is closed.
func (w *Writer) RunFilterResults(ctx context.Context, resCh <-chan model.FilterResult) {
	for {
		select {
		case <-ctx.Done():
			return
		case res, ok := <-resCh:
			if !ok {
				return
			}
			w.writeFilterResult(ctx, res)
		}
	}
}

// RunStopResults reads stop results and writes them to Redis Streams.
func (w *Writer) RunStopResults(ctx context.Context, resCh <-chan model.StopResult) {
	for {
		select {
		case <-ctx.Done():
			return
		case res, ok := <-resCh:
			if !ok {
				return
			}
			w.writeStopResult(ctx, res)
		}
	}
}

// RunSignals reads entry signals and writes them to the signal stream.
func (w *Writer) RunSignals(ctx context.Context, sigCh <-chan model.Signal) {
	for {
		select {
		case <-ctx.Done():
			return
		case sig, ok := <-sigCh:
			if !ok {
				return
			}
			w.writeSignal(ctx, sig)
		}
	}
}

// WriteFilterBatch writes multiple filter results in a single Redis pipeline.
// This batches XADD + SET + PUBLISH for all results into one network roundtrip.
// Uses pre-built channel names and []byte→string zero-copy, no fmt.Sprintf.
func (w *Writer) WriteFilterBatch(ctx context.Context, results []model.FilterResult) {
	if len(results) == 0 {
		return
	}
	defer w.observe(time.Now())


	pipe := w.client.Pipeline()
	for i := range results {
		res := &results[i]
		if !res.Ready {
			continue
		}

		jsonBytes := res.JSON()
		// Zero-copy []byte→string (safe: jsonBytes is not mutated after this)
		jsonData := *(*string)(unsafe.Pointer(&jsonBytes))

		streamKey := res.StreamKey()
		maxLen := maxLenForTF(res.TF)
		pipe.XAdd(ctx, &goredis.XAddArgs{
			Stream: streamKey,
			MaxLen: maxLen,
			Approx: true,
			Values: map[string]interface{}{"data": jsonData},
		})
		latestKey := "laguerre:" + model.Itoa(res.TF) + "s:latest:" + res.Symbol
		pipe.Set(ctx, latestKey, jsonData, defaultLatestTTL)
		pipe.Publish(ctx, res.PubSubChannel(), jsonData)
	}

	_, err := pipe.Exec(ctx)
	if err != nil {
		log.Printf("[redis] filter batch pipeline error (%d results): %v", len(results), err)
	}
}

// writeBar performs pipelined writes for a base bar.
func (w *Writer) writeBar(ctx context.Context, bar model.Bar) {
	defer w.observe(time.Now())

	latestKey := "bar:latest:" + bar.Symbol
	streamKey := "bar:" + bar.Symbol
	pubsubCh := "pub:bar:" + bar.Symbol
	jsonData := string(bar.JSON())

	pipe := w.client.Pipeline()

	// SET latest bar with TTL
	pipe.Set(ctx, latestKey, jsonData, defaultLatestTTL)

	// XADD to stream with auto-trimming
	pipe.XAdd(ctx, &goredis.XAddArgs{
		Stream: streamKey,
		MaxLen: streamBarMaxLen,
		Approx: true,
		Values: map[string]interface{}{
			"data": jsonData,
		},
	})

	// PUBLISH to pubsub channel
	pipe.Publish(ctx, pubsubCh, jsonData)

	_, err := pipe.Exec(ctx)
	if err != nil {
		log.Printf("[redis] pipeline error for %s: %v", bar.Key(), err)
	}
}

// writeTFBar publishes a finalized TF bar to its Redis Stream.
func (w *Writer) writeTFBar(ctx context.Context, tfb model.TFBar) {
	defer w.observe(time.Now())

	streamKey := tfb.StreamKey()
	maxLen := maxLenForTF(tfb.TF)
	jsonData := string(tfb.JSON())

	pipe := w.client.Pipeline()

	// XADD to TF stream
	pipe.XAdd(ctx, &goredis.XAddArgs{
		Stream: streamKey,
		MaxLen: maxLen,
		Approx: true,
		Values: map[string]interface{}{
			"data": jsonData,
		},
	})

	// SET latest TF bar
	latestKey := "bar:" + model.Itoa(tfb.TF) + "s:latest:" + tfb.Symbol
	pipe.Set(ctx, latestKey, jsonData, defaultLatestTTL)

	// PUBLISH for real-time subscribers
	pubsubCh := "pub:bar:" + model.Itoa(tfb.TF) + "s:" + tfb.Symbol
	pipe.Publish(ctx, pubsubCh, jsonData)

	_, err := pipe.Exec(ctx)
	if err != nil {
		log.Printf("[redis] TF bar pipeline error for %s: %v", tfb.Key(), err)
	}
}

// writeFilterResult publishes a filter result to its Redis Stream.
func (w *Writer) writeFilterResult(ctx context.Context, res model.FilterResult) {
	if !res.Ready {
		return // skip warm-up results
	}
	defer w.observe(time.Now())

	jsonBytes := res.JSON()
	jsonData := *(*string)(unsafe.Pointer(&jsonBytes))

	streamKey := res.StreamKey()
	pipe := w.client.Pipeline()

	pipe.XAdd(ctx, &goredis.XAddArgs{
		Stream: streamKey,
		MaxLen: maxLenForTF(res.TF),
		Approx: true,
		Values: map[string]interface{}{
			"data": jsonData,
		},
	})

	latestKey := "laguerre:" + model.Itoa(res.TF) + "s:latest:" + res.Symbol
	pipe.Set(ctx, latestKey, jsonData, defaultLatestTTL)
	pipe.Publish(ctx, res.PubSubChannel(), jsonData)

	_, err := pipe.Exec(ctx)
	if err != nil {
		log.Printf("[redis] filter pipeline error for %s: %v", res.Symbol, err)
	}
}

// writeStopResult publishes a stop result to its Redis Stream.
func (w *Writer) writeStopResult(ctx context.Context, res model.StopResult) {
	if !res.Ready {
		return
	}
	defer w.observe(time.Now())

	jsonBytes := res.JSON()
	jsonData := *(*string)(unsafe.Pointer(&jsonBytes))

	pipe := w.client.Pipeline()

	pipe.XAdd(ctx, &goredis.XAddArgs{
		Stream: res.StreamKey(),
		MaxLen: 2000,
		Approx: true,
		Values: map[string]interface{}{
			"data": jsonData,
		},
	})

	latestKey := "tps:latest:" + res.Symbol
	pipe.Set(ctx, latestKey, jsonData, defaultLatestTTL)
	pipe.Publish(ctx, res.PubSubChannel(), jsonData)

	_, err := pipe.Exec(ctx)
	if err != nil {
		log.Printf("[redis] stop pipeline error for %s: %v", res.Symbol, err)
	}
}

// writeSignal appends an entry signal to the global signal stream and
// publishes it for real-time subscribers.
func (w *Writer) writeSignal(ctx context.Context, sig model.Signal) {
	defer w.observe(time.Now())

	jsonData := string(sig.JSON())

	pipe := w.client.Pipeline()
	pipe.XAdd(ctx, &goredis.XAddArgs{
		Stream: "signals:" + sig.Symbol,
		MaxLen: 1000,
		Approx: true,
		Values: map[string]interface{}{
			"data": jsonData,
		},
	})
	pipe.Publish(ctx, "pub:signals:"+sig.Symbol, jsonData)

	_, err := pipe.Exec(ctx)
	if err != nil {
		log.Printf("[redis] signal pipeline error for %s: %v", sig.Symbol, err)
	}
}

// maxLenForTF returns a proportional stream MAXLEN: ~1 week of TF bars.
func maxLenForTF(tf int) int64 {
	if tf <= 0 {
		return 2000
	}
	maxLen := int64(604800/tf) + 100
	if maxLen < 200 {
		maxLen = 200
	}
	if maxLen > 20000 {
		maxLen = 20000
	}
	return maxLen
}

// Close closes the Redis client.
func (w *Writer) Close() error {
	return w.client.Close()
}
