package main

import (
	"context"
	"errors"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"masraf/internal/amqp"
	"masraf/internal/backend"
	"masraf/internal/cli"
	"masraf/internal/config"
	"masraf/internal/ledger"
	applog "masraf/internal/log"
	"masraf/internal/worker"
)

const statsInterval = 5 * time.Minute

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	cfg := cli.LoadAndValidateConfig(logger, (*config.Config).ValidateWorker)
	log := logger.WithComponent(applog.ComponentWorker)

	log.Info("Starting masraf-worker", "mirror_backend", cfg.MirrorBackend)

	res, err := backend.NewFactory(logger.Logger).Create(context.Background(), cfg.MirrorBackend, cfg)
	if err != nil {
		log.Error("Failed to initialize mirror ledger", applog.FieldError, err)
		os.Exit(1)
	}
	defer res.Close()

	mirror := worker.NewMirrorWorker(ledger.NewSerialized(res.Ledger))
	if err := mirror.Prepare(context.Background()); err != nil {
		log.Error("Mirror ledger is not reachable", applog.FieldError, err)
		os.Exit(1)
	}

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		log.Error("Failed to initialize AMQP client", applog.FieldError, err)
		os.Exit(1)
	}
	defer client.Close()

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return client.Consume(gctx, mirror.HandleRowAppended)
	})
	g.Go(func() error {
		ticker := time.NewTicker(statsInterval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return gctx.Err()
			case <-ticker.C:
				mirrored, failed := mirror.Stats()
				log.Info("Mirror stats", "mirrored", mirrored, "failed", failed)
			}
		}
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("Worker stopped", applog.FieldError, err)
		os.Exit(1)
	}
	<-done
}
