// Package config loads application configuration from environment
// variables, with an optional .env file for local development.
package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"mdprocessor/internal/indicator"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	// Feed
	TickWSURL string // tick server WebSocket URL
	Symbols   string // comma-separated symbols to track

	// Indicators, comma-separated specs:
	//   "SMA:20,EMA:9,RSI:14,MACD:12:26:9,BB:20:2"
	Indicators string

	// Infrastructure (empty value disables the component)
	RedisAddr     string
	RedisPassword string
	SQLitePath    string
	MetricsAddr   string
	GatewayAddr   string

	// Cadences
	SnapshotIntervalS   int // book snapshot publish interval
	CheckpointIntervalS int // indicator state checkpoint interval
	DepthLevels         int // levels per side in published snapshots

	LogLevel string
}

// Load reads configuration from the environment with sensible defaults.
// A .env file in the working directory is applied first if present.
func Load() *Config {
	if err := godotenv.Load(); err == nil {
		log.Println("[config] loaded .env file")
	}

	return &Config{
		TickWSURL:  getEnv("TICK_WS_URL", "ws://localhost:9001/ws"),
		Symbols:    getEnv("SYMBOLS", "BTCUSD"),
		Indicators: getEnv("INDICATORS", "SMA:20,EMA:9,RSI:14,MACD:12:26:9,BB:20:2"),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		SQLitePath:    getEnv("SQLITE_PATH", ""),
		MetricsAddr:   getEnv("METRICS_ADDR", ":9090"),
		GatewayAddr:   getEnv("GATEWAY_ADDR", ":8080"),

		SnapshotIntervalS:   getEnvInt("SNAPSHOT_INTERVAL_S", 1),
		CheckpointIntervalS: getEnvInt("CHECKPOINT_INTERVAL_S", 60),
		DepthLevels:         getEnvInt("DEPTH_LEVELS", 10),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}
}

// ParseSymbols splits the Symbols string into a cleaned slice.
func (c *Config) ParseSymbols() []string {
	parts := strings.Split(c.Symbols, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// ParseIndicators parses the Indicators string into indicator configs.
// Invalid entries are logged and skipped rather than aborting startup.
func (c *Config) ParseIndicators() []indicator.Config {
	parts := strings.Split(c.Indicators, ",")
	cfgs := make([]indicator.Config, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		cfg, ok := parseIndicatorSpec(p)
		if !ok {
			log.Printf("[config] skipping invalid indicator spec: %q", p)
			continue
		}
		cfgs = append(cfgs, cfg)
	}
	return cfgs
}

// parseIndicatorSpec parses one colon-separated spec like "SMA:20",
// "MACD:12:26:9" or "BB:20:2".
func parseIndicatorSpec(spec string) (indicator.Config, bool) {
	fields := strings.Split(spec, ":")
	name := strings.ToUpper(strings.TrimSpace(fields[0]))
	args := make([]int, 0, len(fields)-1)
	for _, f := range fields[1:] {
		n, err := strconv.Atoi(strings.TrimSpace(f))
		if err != nil {
			return indicator.Config{}, false
		}
		args = append(args, n)
	}

	switch name {
	case "SMA":
		if len(args) == 1 {
			return indicator.Config{Kind: indicator.KindSMA, Period: args[0]}, true
		}
	case "EMA":
		if len(args) == 1 {
			return indicator.Config{Kind: indicator.KindEMA, Period: args[0]}, true
		}
	case "RSI":
		if len(args) == 1 {
			return indicator.Config{Kind: indicator.KindRSI, Period: args[0]}, true
		}
	case "MACD":
		if len(args) == 3 {
			return indicator.Config{
				Kind: indicator.KindMACD,
				Fast: args[0], Slow: args[1], Signal: args[2],
			}, true
		}
	case "BB":
		if len(args) == 2 {
			return indicator.Config{
				Kind:   indicator.KindBollinger,
				Period: args[0], StdDev: float64(args[1]),
			}, true
		}
	}
	return indicator.Config{}, false
}

func getEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("[config] invalid int for %s: %q, using %d", key, v, fallback)
		return fallback
	}
	return n
}
