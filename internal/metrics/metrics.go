// Package metrics exposes Prometheus instrumentation and a combined
// /metrics + /healthz HTTP server for the processor pipeline.
package metrics

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the market data processor.
type Metrics struct {
	TicksTotal        prometheus.Counter
	DepthUpdatesTotal *prometheus.CounterVec // labels: side
	BadUpdatesTotal   prometheus.Counter     // rejected non-finite inputs
	WSReconnects      prometheus.Counter
	RingBufOverflow   prometheus.Counter

	BookUpdateDur       prometheus.Histogram
	IndicatorComputeDur prometheus.Histogram
	IndicatorsTotal     prometheus.Counter

	SnapshotsPublished prometheus.Counter
	CheckpointsSaved   prometheus.Counter
	RedisWriteDur      prometheus.Histogram
	SQLiteCommitDur    prometheus.Histogram
}

// New registers and returns all Prometheus metrics.
func New() *Metrics {
	m := &Metrics{
		TicksTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mdproc_ticks_total",
			Help: "Total ticks received from the feed",
		}),
		DepthUpdatesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mdproc_depth_updates_total",
			Help: "Total order book level updates applied",
		}, []string{"side"}),
		BadUpdatesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mdproc_bad_updates_total",
			Help: "Feed updates rejected for non-finite price or quantity",
		}),
		WSReconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mdproc_ws_reconnects_total",
			Help: "Total WebSocket reconnection attempts",
		}),
		RingBufOverflow: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mdproc_ringbuf_overflow_total",
			Help: "Ticks dropped because the ring buffer was full",
		}),
		BookUpdateDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "mdproc_book_update_seconds",
			Help:    "Order book update latency",
			Buckets: prometheus.ExponentialBuckets(1e-7, 4, 10),
		}),
		IndicatorComputeDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "mdproc_indicator_compute_seconds",
			Help:    "Per-tick indicator computation latency",
			Buckets: prometheus.ExponentialBuckets(1e-7, 4, 10),
		}),
		IndicatorsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mdproc_indicators_total",
			Help: "Total indicator results computed",
		}),
		SnapshotsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mdproc_snapshots_published_total",
			Help: "Book snapshots published to stores",
		}),
		CheckpointsSaved: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mdproc_checkpoints_saved_total",
			Help: "Indicator engine checkpoints saved",
		}),
		RedisWriteDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "mdproc_redis_write_seconds",
			Help:    "Redis write latency",
			Buckets: prometheus.DefBuckets,
		}),
		SQLiteCommitDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "mdproc_sqlite_commit_seconds",
			Help:    "SQLite transaction commit latency",
			Buckets: prometheus.DefBuckets,
		}),
	}

	prometheus.MustRegister(
		m.TicksTotal,
		m.DepthUpdatesTotal,
		m.BadUpdatesTotal,
		m.WSReconnects,
		m.RingBufOverflow,
		m.BookUpdateDur,
		m.IndicatorComputeDur,
		m.IndicatorsTotal,
		m.SnapshotsPublished,
		m.CheckpointsSaved,
		m.RedisWriteDur,
		m.SQLiteCommitDur,
	)

	return m
}

// HealthStatus represents the processor's health.
type HealthStatus struct {
	mu sync.RWMutex

	WSConnected  bool
	LastTickTime time.Time
	StartedAt    time.Time
}

// NewHealthStatus returns a default health status.
func NewHealthStatus() *HealthStatus {
	return &HealthStatus{StartedAt: time.Now()}
}

func (h *HealthStatus) SetWSConnected(v bool) {
	h.mu.Lock()
	h.WSConnected = v
	h.mu.Unlock()
}

func (h *HealthStatus) SetLastTickTime(t time.Time) {
	h.mu.Lock()
	h.LastTickTime = t
	h.mu.Unlock()
}

// ServeHTTP handles the /healthz endpoint.
func (h *HealthStatus) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	status := "healthy"
	code := http.StatusOK
	if !h.WSConnected {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}

	tickAge := ""
	if !h.LastTickTime.IsZero() {
		tickAge = time.Since(h.LastTickTime).Round(time.Millisecond).String()
	}

	body := struct {
		Status      string `json:"status"`
		Uptime      string `json:"uptime"`
		WSConnected bool   `json:"ws_connected"`
		TickAge     string `json:"tick_age,omitempty"`
	}{
		Status:      status,
		Uptime:      time.Since(h.StartedAt).Round(time.Second).String(),
		WSConnected: h.WSConnected,
		TickAge:     tickAge,
	}

	w.Header().Set("Content-Type", "application/json")
	if code != http.StatusOK {
		w.WriteHeader(code)
	}
	json.NewEncoder(w).Encode(body)
}

// Server runs an HTTP server exposing /metrics and /healthz.
type Server struct {
	addr string
	srv  *http.Server
}

// NewServer creates a metrics and health server.
func NewServer(addr string, health *HealthStatus) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", health.ServeHTTP)

	return &Server{
		addr: addr,
		srv:  &http.Server{Addr: addr, Handler: mux},
	}
}

// Start launches the HTTP server in a goroutine.
func (s *Server) Start() {
	go func() {
		log.Printf("[metrics] server listening on %s", s.addr)
		if err := s.srv.ListenAndServe(); err != http.ErrServerClosed {
			log.Printf("[metrics] server error: %v", err)
		}
	}()
}

// Stop gracefully shuts down the metrics server.
func (s *Server) Stop(ctx context.Context) {
	s.srv.Shutdown(ctx)
}
