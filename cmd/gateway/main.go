// cmd/gateway: WebSocket/REST gateway over the processor's output.
// Subscribes to the processor's Redis pub/sub channels and fans live
// book snapshots and indicator values out to WebSocket clients, with a
// small REST API over the latest values.
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/go-redis/redis/v8"

	"mdprocessor/config"
	"mdprocessor/internal/gateway"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)

	cfg := config.Load()
	if cfg.RedisAddr == "" {
		log.Fatal("[gateway] REDIS_ADDR is required")
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	pingCtx, pingCancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		pingCancel()
		log.Fatalf("[gateway] redis ping failed: %v", err)
	}
	pingCancel()
	log.Printf("[gateway] connected to redis at %s", cfg.RedisAddr)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	hub := gateway.NewHub(rdb)
	go hub.Run(ctx)

	srv := &http.Server{
		Addr:    cfg.GatewayAddr,
		Handler: hub.Routes(),
	}
	go func() {
		<-ctx.Done()
		shutCtx, shutCancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer shutCancel()
		srv.Shutdown(shutCtx)
	}()

	log.Printf("[gateway] listening on %s (WebSocket: /ws)", cfg.GatewayAddr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("[gateway] server error: %v", err)
	}
	log.Println("[gateway] shutdown complete.")
}
