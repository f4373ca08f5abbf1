package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/trogers1052/portfolio-monitor/internal/api"
	"github.com/trogers1052/portfolio-monitor/internal/config"
	"github.com/trogers1052/portfolio-monitor/internal/currency"
	"github.com/trogers1052/portfolio-monitor/internal/database"
	"github.com/trogers1052/portfolio-monitor/internal/importer"
	"github.com/trogers1052/portfolio-monitor/internal/kafka"
	"github.com/trogers1052/portfolio-monitor/internal/logger"
	"github.com/trogers1052/portfolio-monitor/internal/marketdata"
)

func main() {
	cfg := config.Load()

	log := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Pretty: cfg.Log.Pretty,
	})
	logger.SetGlobalLogger(log)

	log.Info().Msg("Starting portfolio monitor")

	policy, err := importer.ParseFailurePolicy(cfg.Import.FailurePolicy)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid import configuration")
	}

	// Initialize database
	db, err := database.New(cfg.Database.ConnectionString())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	if err := db.RunMigrations(cfg.MigrationsPath); err != nil {
		log.Fatal().Err(err).Msg("Failed to run migrations")
	}
	log.Info().Str("path", cfg.MigrationsPath).Msg("Migrations applied")

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// Market data, with an optional Redis layer shared between instances
	opts := marketdata.Options{
		CacheTTL:      cfg.MarketData.CacheTTL,
		NegativeTTL:   cfg.MarketData.NegativeTTL,
		RatePerSecond: cfg.MarketData.RatePerSecond,
		Burst:         cfg.MarketData.Burst,
		MaxRetries:    cfg.MarketData.MaxRetries,
		FetchTimeout:  cfg.MarketData.Timeout,
	}
	if cfg.Redis.Addr != "" {
		shared, err := marketdata.NewRedisCache(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			log.Warn().Err(err).Str("addr", cfg.Redis.Addr).Msg("Redis unavailable, using in-process cache only")
		} else {
			defer shared.Close()
			opts.Shared = shared
			log.Info().Str("addr", cfg.Redis.Addr).Msg("Shared quote cache enabled")
		}
	}
	yahoo := marketdata.NewYahooClient(cfg.MarketData.BaseURL, cfg.MarketData.RequestTimeout, log)
	market := marketdata.NewCachedClient(yahoo, opts, log)

	// Kafka is optional; nil interfaces disable publishing
	var (
		importEvents  importer.EventPublisher
		companyEvents api.EventPublisher
	)
	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		defer producer.Close()
		importEvents = producer
		companyEvents = producer

		prices := kafka.NewPricesConsumer(cfg.Kafka.Brokers, cfg.Kafka.PricesTopic, cfg.Kafka.GroupID, db, log)
		go func() {
			if err := prices.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error().Err(err).Msg("Prices consumer stopped")
			}
		}()
		log.Info().Strs("brokers", cfg.Kafka.Brokers).Str("topic", cfg.Kafka.Topic).Msg("Kafka enabled")
	}

	resolver := importer.NewCompanyResolver(db, market, log)
	pipeline := importer.NewPipeline(db, importer.NewValidator(currency.Default), resolver, importEvents, importer.Config{
		Policy:        policy,
		Concurrency:   cfg.Import.Concurrency,
		LookupTimeout: cfg.MarketData.Timeout,
	}, log)

	handler := api.NewHandler(db, pipeline, resolver, companyEvents, cfg.Import.MaxUploadBytes, log)
	srv := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           api.SetupRoutes(handler, log),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.Info().Str("signal", sig.String()).Msg("Shutting down server...")

	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}
