package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"mdprocessor/config"
	"mdprocessor/internal/logger"
	"mdprocessor/internal/processor"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)

	cfg := config.Load()
	slg := logger.Init("mdprocessor", logger.ParseLevel(cfg.LogLevel))
	slg.Info("config loaded",
		"feed", cfg.TickWSURL,
		"redis", cfg.RedisAddr != "",
		"sqlite", cfg.SQLitePath != "",
		"metrics_addr", cfg.MetricsAddr,
	)

	svc, err := processor.New(cfg)
	if err != nil {
		log.Fatalf("[mdprocessor] init failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	if err := svc.Run(ctx); err != nil {
		log.Fatalf("[mdprocessor] fatal: %v", err)
	}
}
