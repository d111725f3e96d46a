package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"masraf/internal/ai"
	"masraf/internal/amqp"
	"masraf/internal/archive"
	"masraf/internal/backend"
	"masraf/internal/cli"
	"masraf/internal/config"
	"masraf/internal/extract"
	apphttp "masraf/internal/http"
	"masraf/internal/ledger"
	applog "masraf/internal/log"
	"masraf/internal/media"
	"masraf/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	cfg := cli.LoadAndValidateConfig(logger, (*config.Config).Validate)

	startup := logger.WithComponent(applog.ComponentApp).With(applog.FieldOperation, applog.OpStartup)
	ctx := context.Background()

	res, err := backend.NewFactory(logger.Logger).Create(ctx, cfg.LedgerBackend, cfg)
	if err != nil {
		startup.Error("Failed to initialize ledger", applog.FieldBackend, cfg.LedgerBackend, applog.FieldError, err)
		os.Exit(1)
	}
	defer res.Close()

	var book ledger.Ledger = ledger.NewSerialized(res.Ledger)
	if err := book.OpenOrCreate(ctx); err != nil {
		startup.Error("Ledger is not reachable", applog.FieldBackend, cfg.LedgerBackend, applog.FieldError, err)
		os.Exit(1)
	}
	info := book.Info()

	if cfg.AMQPURL != "" {
		events, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			startup.Warn("AMQP unavailable, row events disabled", applog.FieldError, err)
		} else {
			defer events.Close()
			book = ledger.NewNotifying(book, events.Notifier(info.Backend))
			startup.Info("Publishing row events", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		}
	}

	vision, err := newVision(ctx, cfg)
	if err != nil {
		startup.Error("Failed to initialize vision model", "provider", cfg.VisionProvider, applog.FieldError, err)
		os.Exit(1)
	}

	pipeline := services.NewPipeline(
		media.NewFetcher(cfg.HTTPTimeout),
		extract.New(vision, cfg.VisionMaxTokens),
		book,
		services.PipelineConfig{
			AccountSID: cfg.TwilioAccountSID,
			AuthToken:  cfg.TwilioAuthToken,
			AuthOrder:  media.Order(cfg.MediaAuthOrder),
		},
	)

	if cfg.ArchiveBucket != "" {
		gcs, err := archive.NewGCS(ctx, cfg.ArchiveBucket)
		if err != nil {
			startup.Warn("Document archive disabled", "bucket", cfg.ArchiveBucket, applog.FieldError, err)
		} else {
			defer gcs.Close()
			pipeline.WithArchive(gcs)
			startup.Info("Archiving documents", "bucket", cfg.ArchiveBucket)
		}
	}

	srv := apphttp.NewServer(":"+cfg.Port, pipeline, info, apphttp.Options{
		Logger:             logger,
		AuthToken:          cfg.TwilioAuthToken,
		ValidateSignature:  cfg.TwilioValidateSignature,
		PublicURL:          cfg.PublicWebhookURL,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
	})

	_, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown failed", applog.FieldError, err)
		}
	})

	startup.Info("Starting masraf",
		"addr", srv.Addr,
		applog.FieldBackend, info.Backend,
		"ledger", info.Location,
		"vision_provider", cfg.VisionProvider)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server failed", applog.FieldError, err)
		os.Exit(1)
	}
	<-done
}

func newVision(ctx context.Context, cfg *config.Config) (ai.Vision, error) {
	if cfg.VisionProvider == config.VisionGemini {
		return ai.NewGeminiVision(ctx, cfg.VisionAPIKey, cfg.VisionBaseURL, cfg.VisionModel, cfg.HTTPTimeout)
	}
	return ai.NewOpenAIVision(cfg.VisionAPIKey, cfg.VisionBaseURL, cfg.VisionModel, cfg.HTTPTimeout), nil
}
