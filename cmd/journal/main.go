package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"crypto-journal-go/internal/config"
	"crypto-journal-go/internal/database"
	"crypto-journal-go/internal/logger"
	"crypto-journal-go/internal/market"
	"crypto-journal-go/internal/search"
	"crypto-journal-go/internal/server"
	"crypto-journal-go/internal/store"
	"go.uber.org/zap"
)

func main() {
	// Load application configuration
	cfg, err := config.LoadConfig("./configs")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.NewLogger(cfg.Logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	log.Info("Configuration loaded")

	// Initialize database and store
	db, err := database.NewDatabase(&cfg)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	log.Info("Database connection successful and schema migrated.")
	st := store.New(db, log.Named("store"))

	// Setup context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		sigchan := make(chan os.Signal, 1)
		signal.Notify(sigchan, syscall.SIGINT, syscall.SIGTERM)
		<-sigchan
		log.Info("Shutdown signal received, gracefully shutting down...")
		cancel()
	}()

	// Start the background price refresher when market data is enabled
	var refresher *market.Refresher
	if cfg.Market.Enabled {
		client := market.NewClient(&cfg.Market, log.Named("market"))
		interval := time.Duration(cfg.Market.RefreshInterval) * time.Second
		refresher = market.NewRefresher(client, interval, log.Named("market"))
		go refresher.Run(ctx)
	} else {
		log.Info("Market data disabled, unrealized P&L will not be available")
	}

	// Cross-entity search with the configured debounce window
	svc := search.NewService(st, time.Duration(cfg.Search.DebounceMs)*time.Millisecond, log.Named("search"))

	srv := server.New(&cfg.Server, st, svc, refresher, log)
	srv.Start()

	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Stop(shutdownCtx); err != nil {
		log.Error("Failed to stop server cleanly", zap.Error(err))
	}
	log.Info("Journal has been shut down.")
}
