// Package redis publishes live pipeline output to Redis: latest book
// snapshots and indicator values for downstream consumers, plus the
// indicator engine checkpoint used to warm-start the processor.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	goredis "github.com/go-redis/redis/v8"

	"mdprocessor/internal/indicator"
	"mdprocessor/internal/model"
)

const (
	defaultLatestTTL = 30 * time.Minute

	checkpointKey = "mdproc:checkpoint:indicators"
)

// WriterConfig configures the Redis writer.
type WriterConfig struct {
	Addr     string // Redis address, e.g. "localhost:6379"
	Password string
	DB       int
}

// Writer publishes book snapshots, indicator results and engine
// checkpoints to Redis.
type Writer struct {
	client *goredis.Client
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

// Close releases the client connection pool.
func (w *Writer) Close() error { return w.client.Close() }

// PublishBookSnapshot writes the latest snapshot for a symbol and
// publishes it for live subscribers.
func (w *Writer) PublishBookSnapshot(ctx context.Context, snap model.BookSnapshot) error {
	data := string(snap.JSON())
	key := "mdproc:book:latest:" + snap.Symbol

	pipe := w.client.Pipeline()
	pipe.Set(ctx, key, data, defaultLatestTTL)
	pipe.Publish(ctx, "pub:book:"+snap.Symbol, data)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis book snapshot %s: %w", snap.Symbol, err)
	}
	return nil
}

// WriteIndicatorBatch writes a batch of indicator results in a single
// pipeline: one SET of the latest value plus one PUBLISH per result.
// Warm-up results are skipped; only defined values are published.
func (w *Writer) WriteIndicatorBatch(ctx context.Context, results []model.IndicatorResult) error {
	if len(results) == 0 {
		return nil
	}

	pipe := w.client.Pipeline()
	n := 0
	for i := range results {
		r := &results[i]
		if !r.Ready {
			continue
		}
		data := string(r.JSON())
		pipe.Set(ctx, "mdproc:ind:latest:"+r.Symbol+":"+r.Name, data, defaultLatestTTL)
		pipe.Publish(ctx, "pub:ind:"+r.Symbol+":"+r.Name, data)
		n++
	}
	if n == 0 {
		return nil
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis indicator batch (%d results): %w", n, err)
	}
	return nil
}

// SaveCheckpoint persists the indicator engine state. The checkpoint
// has no TTL; a stale checkpoint is still a better starting point
// than a cold engine.
func (w *Writer) SaveCheckpoint(ctx context.Context, snap *indicator.EngineSnapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("checkpoint marshal: %w", err)
	}
	if err := w.client.Set(ctx, checkpointKey, data, 0).Err(); err != nil {
		return fmt.Errorf("redis checkpoint set: %w", err)
	}
	return nil
}

// LoadCheckpoint reads the persisted indicator engine state. Returns
// (nil, nil) when no checkpoint exists.
func (w *Writer) LoadCheckpoint(ctx context.Context) (*indicator.EngineSnapshot, error) {
	data, err := w.client.Get(ctx, checkpointKey).Bytes()
	if err == goredis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis checkpoint get: %w", err)
	}

	var snap indicator.EngineSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("checkpoint unmarshal: %w", err)
	}
	return &snap, nil
}
