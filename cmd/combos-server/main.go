package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"combos/internal/amqp"
	"combos/internal/cache"
	"combos/internal/cli"
	apphttp "combos/internal/http"
	applog "combos/internal/log"
	"combos/internal/middleware/ratelimit"
	"combos/internal/services"
	"combos/internal/sources/google"
)

const (
	cacheSweepInterval = time.Minute
	shutdownTimeout    = 30 * time.Second
)

func main() {
	cfg, logger := cli.Bootstrap(applog.ComponentApp)

	ctx, cancel := cli.GracefulShutdown(logger)
	defer cancel()

	svc := services.NewSearchService(services.OptionsFromConfig(cfg), logger)
	limiter := ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: cfg.RateLimitPerMinute})

	deps := apphttp.Deps{
		Search:  svc,
		Limiter: limiter,
		Logger:  logger,
	}

	// Async search is optional; the server still answers synchronous searches without it.
	if cfg.AsyncEnabled() {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, cfg.AMQPResultQueue, logger)
		if err != nil {
			logger.Error("Failed to initialize AMQP client, async search disabled", applog.FieldError, err)
		} else {
			defer client.Close()
			deps.Jobs = client
			logger.Info("AMQP publisher initialized", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		}
	}

	if cfg.SheetsEnabled() {
		sheet, err := google.NewFromEnv(ctx, cfg.GoogleSpreadsheetID, cfg.GoogleSheetRange, logger)
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", applog.FieldError, err)
			os.Exit(1)
		}
		deps.Sheet = sheet
		logger.Info("Spreadsheet source initialized", "range", sheet.Range())
	}

	srv := apphttp.NewServer(":"+cfg.Port, deps)

	// Configure server timeouts and limits
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = cfg.SearchTimeout + 10*time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	janitor := cache.NewJanitor(logger, svc.Cache())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting combos server",
			"port", cfg.Port,
			"async", deps.Jobs != nil,
			"sheets", deps.Sheet != nil,
			applog.FieldOperation, applog.OpStartup)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return janitor.Run(gctx, cacheSweepInterval)
	})
	g.Go(func() error {
		return limiter.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		return cli.ShutdownWithTimeout(shutdownTimeout, srv.Shutdown)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Server error", applog.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}
