// Package processor wires the market data pipeline:
// WebSocket feed → ring buffer → order books + indicator engine →
// Redis (latest values, pub/sub) and SQLite (history).
package processor

import (
	"context"
	"log"
	"time"

	"mdprocessor/config"
	"mdprocessor/internal/book"
	"mdprocessor/internal/feed"
	"mdprocessor/internal/indicator"
	"mdprocessor/internal/metrics"
	"mdprocessor/internal/model"
	"mdprocessor/internal/ringbuf"
	redisstore "mdprocessor/internal/store/redis"
	sqlitestore "mdprocessor/internal/store/sqlite"
)

const (
	tickChanCap   = 4096
	depthChanCap  = 8192
	resultChanCap = 8192
	ringCap       = 8192
)

// Service is the top-level orchestrator for the market data processor.
// It wires all dependencies, manages lifecycle, and coordinates goroutines.
type Service struct {
	cfg *config.Config

	engine *indicator.Engine
	books  map[string]*book.Book

	ingest      *feed.Ingest
	ring        *ringbuf.Ring
	redisWriter *redisstore.Writer
	sqlWriter   *sqlitestore.Writer
	prom        *metrics.Metrics
	health      *metrics.HealthStatus
	promServer  *metrics.Server

	tickCh   chan model.Tick
	depthCh  chan model.DepthUpdate
	resultCh chan model.IndicatorResult
}

// New creates a Service from the given Config. Redis and SQLite are
// optional: an empty address or path disables that sink.
func New(cfg *config.Config) (*Service, error) {
	svc := &Service{
		cfg:      cfg,
		books:    make(map[string]*book.Book),
		ring:     ringbuf.New(ringCap),
		prom:     metrics.New(),
		health:   metrics.NewHealthStatus(),
		tickCh:   make(chan model.Tick, tickChanCap),
		depthCh:  make(chan model.DepthUpdate, depthChanCap),
		resultCh: make(chan model.IndicatorResult, resultChanCap),
	}

	var err error
	svc.ingest, err = feed.New(feed.Config{URL: cfg.TickWSURL})
	if err != nil {
		return nil, err
	}
	svc.ingest.OnConnected = func() { svc.health.SetWSConnected(true) }
	svc.ingest.OnReconnect = func() {
		svc.health.SetWSConnected(false)
		svc.prom.WSReconnects.Inc()
	}

	if cfg.RedisAddr != "" {
		svc.redisWriter, err = redisstore.New(redisstore.WriterConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		if err != nil {
			log.Printf("[processor] WARNING: redis init failed: %v (continuing without Redis)", err)
			svc.redisWriter = nil
		}
	}

	if cfg.SQLitePath != "" {
		svc.sqlWriter, err = sqlitestore.New(sqlitestore.WriterConfig{DBPath: cfg.SQLitePath})
		if err != nil {
			log.Printf("[processor] WARNING: sqlite init failed: %v (continuing without SQLite)", err)
			svc.sqlWriter = nil
		} else {
			svc.sqlWriter.OnFlush = func(_ int, d time.Duration) {
				svc.prom.SQLiteCommitDur.Observe(d.Seconds())
			}
		}
	}

	if err := svc.buildEngine(); err != nil {
		return nil, err
	}

	svc.promServer = metrics.NewServer(cfg.MetricsAddr, svc.health)
	return svc, nil
}

// buildEngine constructs the indicator engine, restoring state from the
// Redis checkpoint when one exists.
func (svc *Service) buildEngine() error {
	configs := svc.cfg.ParseIndicators()

	var checkpoint *indicator.EngineSnapshot
	if svc.redisWriter != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()

		snap, err := svc.redisWriter.LoadCheckpoint(ctx)
		if err != nil {
			log.Printf("[processor] checkpoint read error: %v (starting cold)", err)
		} else {
			checkpoint = snap
		}
	}

	engine, err := indicator.RestoreEngine(configs, checkpoint)
	if err != nil {
		return err
	}
	if checkpoint != nil {
		log.Printf("[processor] restored indicator state for %d symbols", len(checkpoint.Symbols))
	}
	svc.engine = engine
	return nil
}

// Run starts all subsystems and blocks until ctx is cancelled.
func (svc *Service) Run(ctx context.Context) error {
	cfg := svc.cfg
	log.Println("[processor] starting market data processor...")
	log.Printf("[processor] symbols: %v", cfg.ParseSymbols())
	log.Printf("[processor] indicators: %s", cfg.Indicators)

	svc.promServer.Start()

	go svc.ingest.Start(ctx, svc.tickCh, svc.depthCh)
	go svc.pumpLoop(ctx)
	go svc.processLoop(ctx)
	if svc.sqlWriter != nil {
		go svc.sqlWriter.Run(ctx, svc.resultCh)
	}

	log.Println("[processor] all systems running. Press Ctrl+C to stop.")
	<-ctx.Done()

	svc.shutdown()
	return nil
}

// pumpLoop moves ticks from the feed channel into the lock-free ring so
// a slow indicator pass sheds load instead of stalling the reader.
func (svc *Service) pumpLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case tk := <-svc.tickCh:
			svc.health.SetLastTickTime(tk.TS)
			if !svc.ring.Push(tk) {
				svc.prom.RingBufOverflow.Inc()
			}
		}
	}
}

// processLoop is the hot path: depth updates mutate books, ticks drive
// the indicator engine. Snapshot and checkpoint timers live in the same
// select so books and engine stay single-goroutine and need no locking.
func (svc *Service) processLoop(ctx context.Context) {
	drain := time.NewTicker(500 * time.Microsecond)
	defer drain.Stop()

	snapInterval := time.Duration(svc.cfg.SnapshotIntervalS) * time.Second
	if snapInterval <= 0 {
		snapInterval = time.Second
	}
	snapTicker := time.NewTicker(snapInterval)
	defer snapTicker.Stop()

	ckptInterval := time.Duration(svc.cfg.CheckpointIntervalS) * time.Second
	if ckptInterval <= 0 {
		ckptInterval = 60 * time.Second
	}
	ckptTicker := time.NewTicker(ckptInterval)
	defer ckptTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case du := <-svc.depthCh:
			svc.applyDepth(du)
		case <-drain.C:
			for {
				tk, ok := svc.ring.Pop()
				if !ok {
					break
				}
				svc.applyTick(tk)
			}
		case <-snapTicker.C:
			svc.publishSnapshots(ctx)
		case <-ckptTicker.C:
			if svc.redisWriter != nil {
				svc.saveCheckpoint(ctx)
			}
		}
	}
}

func (svc *Service) applyDepth(du model.DepthUpdate) {
	b, ok := svc.books[du.Symbol]
	if !ok {
		b = book.New(du.Symbol)
		svc.books[du.Symbol] = b
	}

	start := time.Now()
	var err error
	if du.Side == model.Bid {
		err = b.UpdateBid(du.Price, du.Qty)
	} else {
		err = b.UpdateAsk(du.Price, du.Qty)
	}
	svc.prom.BookUpdateDur.Observe(time.Since(start).Seconds())

	if err != nil {
		svc.prom.BadUpdatesTotal.Inc()
		log.Printf("[processor] rejected depth update %s %s @ %v: %v", du.Symbol, du.Side, du.Price, err)
		return
	}
	svc.prom.DepthUpdatesTotal.WithLabelValues(string(du.Side)).Inc()
}

func (svc *Service) applyTick(tk model.Tick) {
	svc.prom.TicksTotal.Inc()

	start := time.Now()
	results := svc.engine.Process(tk.Symbol, tk.Price, tk.TS)
	svc.prom.IndicatorComputeDur.Observe(time.Since(start).Seconds())
	svc.prom.IndicatorsTotal.Add(float64(len(results)))

	if len(results) == 0 {
		return
	}
	if svc.redisWriter != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		wStart := time.Now()
		if err := svc.redisWriter.WriteIndicatorBatch(ctx, results); err != nil {
			log.Printf("[processor] redis indicator write: %v", err)
		}
		svc.prom.RedisWriteDur.Observe(time.Since(wStart).Seconds())
		cancel()
	}
	if svc.sqlWriter != nil {
		for _, r := range results {
			if !r.Ready {
				continue
			}
			select {
			case svc.resultCh <- r:
			default: // history sink backed up, shed
			}
		}
	}
}

// publishSnapshots pushes one top-of-book snapshot per tracked symbol
// to the configured sinks.
func (svc *Service) publishSnapshots(ctx context.Context) {
	for _, b := range svc.books {
		snap := b.Snapshot(svc.cfg.DepthLevels)
		if svc.redisWriter != nil {
			if err := svc.redisWriter.PublishBookSnapshot(ctx, snap); err != nil {
				log.Printf("[processor] snapshot publish %s: %v", snap.Symbol, err)
				continue
			}
		}
		if svc.sqlWriter != nil {
			if err := svc.sqlWriter.WriteSnapshot(ctx, snap); err != nil {
				log.Printf("[processor] snapshot persist %s: %v", snap.Symbol, err)
				continue
			}
		}
		svc.prom.SnapshotsPublished.Inc()
	}
}

// saveCheckpoint persists indicator state so a restart can resume warm.
func (svc *Service) saveCheckpoint(ctx context.Context) {
	snap, err := indicator.SnapshotEngine(svc.engine)
	if err != nil {
		log.Printf("[processor] checkpoint build: %v", err)
		return
	}
	if err := svc.redisWriter.SaveCheckpoint(ctx, snap); err != nil {
		log.Printf("[processor] checkpoint save: %v", err)
		return
	}
	svc.prom.CheckpointsSaved.Inc()
}

// shutdown saves a final checkpoint and closes connections.
func (svc *Service) shutdown() {
	log.Println("[processor] shutdown signal received...")

	shutCtx, shutCancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer shutCancel()

	if svc.redisWriter != nil {
		svc.saveCheckpoint(shutCtx)
		log.Println("[processor] final checkpoint saved")
		svc.redisWriter.Close()
	}
	if svc.sqlWriter != nil {
		svc.sqlWriter.Close()
	}
	svc.promServer.Stop(shutCtx)

	log.Println("[processor] shutdown complete.")
}
