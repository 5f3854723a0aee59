package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"skillscope/internal/worker"
)

func main() {
	logger := log.New(os.Stderr, "", log.LstdFlags)

	coreURL := strings.TrimSpace(os.Getenv("CORE_URL"))
	token := strings.TrimSpace(os.Getenv("WORKER_TOKEN"))
	if coreURL == "" || token == "" {
		logger.Fatal("CORE_URL and WORKER_TOKEN are required")
	}

	rawBase := strings.TrimSpace(os.Getenv("SOURCE_RAW_BASE"))
	if rawBase == "" {
		rawBase = "https://raw.githubusercontent.com"
	}

	opts := worker.Options{
		Interval:   envDuration("POLL_INTERVAL", 15*time.Second),
		ClaimLimit: envInt("CLAIM_LIMIT", 10),
		Fetchers:   envInt("FETCH_WORKERS", 4),
		RateLimit:  envInt("FETCH_RATE_LIMIT", 5),
	}

	w := worker.New(
		worker.NewClient(coreURL, token),
		worker.NewFetcher(rawBase),
		logger,
		opts,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Printf("enrichment worker started | core=%s interval=%s", coreURL, opts.Interval)
	if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatalf("worker error: %v", err)
	}
}

func envInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func envDuration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return def
	}
	return d
}
