package main

import (
	"context"
	"errors"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"combos/internal/amqp"
	"combos/internal/cache"
	"combos/internal/cli"
	applog "combos/internal/log"
	"combos/internal/services"
	"combos/internal/worker"
)

func main() {
	cfg, logger := cli.Bootstrap(applog.ComponentWorker)

	if !cfg.AsyncEnabled() {
		logger.Error("AMQP_URL is required to run the worker")
		os.Exit(1)
	}

	logger.Info("Starting combos-worker", "queue", cfg.AMQPQueue, "result_queue", cfg.AMQPResultQueue)

	ctx, cancel := cli.GracefulShutdown(logger)
	defer cancel()

	svc := services.NewSearchService(services.OptionsFromConfig(cfg), logger)

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, cfg.AMQPResultQueue, logger)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", applog.FieldError, err)
		os.Exit(1)
	}
	defer client.Close()

	searchWorker := worker.NewSearchWorker(svc, client, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return client.ConsumeSearchRequests(gctx, searchWorker.HandleSearchRequest)
	})
	g.Go(func() error {
		return cache.NewJanitor(logger, svc.Cache()).Run(gctx, time.Minute)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Message consumption failed", applog.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Worker shutdown complete")
}
