// Package sqlite persists indicator history and book snapshots to a
// local SQLite database in WAL mode, batched into transactions.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"mdprocessor/internal/model"
)

const (
	defaultBatchSize  = 100
	defaultFlushDelay = 200 * time.Millisecond
)

// WriterConfig configures the SQLite writer.
type WriterConfig struct {
	DBPath string // path to SQLite database file, e.g. "data/mdproc.db"
}

// Writer is a single-goroutine SQLite writer with transaction batching.
type Writer struct {
	db *sql.DB

	// OnFlush, if set, is called after every committed indicator batch.
	OnFlush func(rows int, d time.Duration)
}

// DB returns the underlying sql.DB for health checks.
func (w *Writer) DB() *sql.DB { return w.db }

// New creates a new SQLite Writer and initializes the schema with WAL mode.
func New(cfg WriterConfig) (*Writer, error) {
	db, err := sql.Open("sqlite3", cfg.DBPath+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}

	// Single-writer connection pool
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := createSchema(db); err != nil {
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}

	log.Printf("[sqlite] opened database at %s", cfg.DBPath)
	return &Writer{db: db}, nil
}

func createSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS indicator_values (
			symbol    TEXT    NOT NULL,
			name      TEXT    NOT NULL,
			ts        INTEGER NOT NULL,
			value     REAL    NOT NULL,
			signal    REAL,
			histogram REAL,
			upper     REAL,
			lower     REAL,
			PRIMARY KEY (symbol, name, ts)
		);

		CREATE TABLE IF NOT EXISTS book_snapshots (
			symbol    TEXT    NOT NULL,
			ts        INTEGER NOT NULL,
			mid       REAL,
			spread    REAL,
			imbalance REAL    NOT NULL,
			bids      TEXT    NOT NULL,
			asks      TEXT    NOT NULL,
			PRIMARY KEY (symbol, ts)
		);
	`)
	return err
}

// Close closes the database.
func (w *Writer) Close() error { return w.db.Close() }

// WriteResults inserts a batch of ready indicator results in one
// transaction. Warm-up results are skipped. INSERT OR REPLACE keeps
// multiple updates within one timestamp idempotent.
func (w *Writer) WriteResults(ctx context.Context, results []model.IndicatorResult) error {
	if len(results) == 0 {
		return nil
	}

	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO indicator_values
		(symbol, name, ts, value, signal, histogram, upper, lower)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("sqlite prepare: %w", err)
	}
	defer stmt.Close()

	for i := range results {
		r := &results[i]
		if !r.Ready {
			continue
		}
		if _, err := stmt.ExecContext(ctx,
			r.Symbol, r.Name, r.TS.UnixMilli(),
			r.Value, r.Signal, r.Histogram, r.Upper, r.Lower); err != nil {
			return fmt.Errorf("sqlite insert %s/%s: %w", r.Symbol, r.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite commit: %w", err)
	}
	return nil
}

// WriteSnapshot inserts one book snapshot row, depth sides as JSON.
func (w *Writer) WriteSnapshot(ctx context.Context, snap model.BookSnapshot) error {
	bids, err := json.Marshal(snap.Bids)
	if err != nil {
		return fmt.Errorf("sqlite marshal bids: %w", err)
	}
	asks, err := json.Marshal(snap.Asks)
	if err != nil {
		return fmt.Errorf("sqlite marshal asks: %w", err)
	}

	var mid, spread any
	if snap.HasTop {
		mid, spread = snap.Mid, snap.Spread
	}

	_, err = w.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO book_snapshots
		(symbol, ts, mid, spread, imbalance, bids, asks)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		snap.Symbol, snap.TS.UnixMilli(), mid, spread, snap.Imbalance, string(bids), string(asks))
	if err != nil {
		return fmt.Errorf("sqlite snapshot insert: %w", err)
	}
	return nil
}

// Run consumes indicator results, batching them into transactions of
// up to defaultBatchSize or defaultFlushDelay, whichever comes first.
// Blocks until ctx is cancelled or the channel closes (flushing the
// remainder either way).
func (w *Writer) Run(ctx context.Context, resultCh <-chan model.IndicatorResult) {
	batch := make([]model.IndicatorResult, 0, defaultBatchSize)
	flush := func() {
		if len(batch) == 0 {
			return
		}
		start := time.Now()
		if err := w.WriteResults(context.Background(), batch); err != nil {
			log.Printf("[sqlite] batch write (%d rows): %v", len(batch), err)
		} else if w.OnFlush != nil {
			w.OnFlush(len(batch), time.Since(start))
		}
		batch = batch[:0]
	}

	timer := time.NewTicker(defaultFlushDelay)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			flush()
			return
		case r, ok := <-resultCh:
			if !ok {
				flush()
				return
			}
			batch = append(batch, r)
			if len(batch) >= defaultBatchSize {
				flush()
			}
		case <-timer.C:
			flush()
		}
	}
}
