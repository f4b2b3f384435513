package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"

	"omniscore/internal/compose"
	"omniscore/internal/infra"
	"omniscore/internal/library"
	"omniscore/internal/messaging"
	"omniscore/internal/pipeline"
	"omniscore/internal/posts"
	"omniscore/internal/providers"
	"omniscore/internal/providers/genai"
	"omniscore/internal/storage"
)

func main() {
	_ = godotenv.Load()
	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv).With().Str("cmd", "worker").Logger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.NATSURL == "" {
		logger.Fatal().Msg("worker: NATS_URL is required")
	}
	nc, err := infra.NewNATSConn(cfg, "omniscore-worker", logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: nats connection failed")
	}
	defer nc.Drain()

	storagePath := cfg.StoragePath
	if !filepath.IsAbs(storagePath) {
		if abs, err := filepath.Abs(storagePath); err == nil {
			storagePath = abs
		}
	}
	blobs, err := storage.NewFileStore(storagePath, cfg.StorageBaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: failed to configure storage")
	}

	client := genai.NewClient(genai.Options{APIKey: cfg.GeminiAPIKey, BaseURL: cfg.GeminiBaseURL, Logger: &logger})
	if client.Offline() {
		logger.Warn().Msg("worker: gemini api key missing, using synthetic asset generation")
	}

	lib := library.New(library.WithNotifier(messaging.NewLibraryPublisher(nc, cfg.NATSSubjectPrefix, logger)))
	sessions := pipeline.NewManager(ctx, pipeline.Dependencies{
		Generator: providers.NewGeminiStudio(client, blobs, cfg, logger),
		Assets:    lib,
		Posts:     posts.NewStore(),
	}, logger)

	runner := compose.NewRunner(sessions, compose.Options{Blobs: blobs}, logger)
	worker := messaging.NewJobWorker(nc, cfg.NATSSubjectPrefix, runner.Handle, cfg.WorkerConcurrency, logger)

	msgs := make(chan *nats.Msg, cfg.WorkerConcurrency*4)
	sub, err := nc.ChanQueueSubscribe(worker.JobSubject(), messaging.WorkerQueue, msgs)
	if err != nil {
		logger.Fatal().Err(err).Str("subject", worker.JobSubject()).Msg("worker: subscribe failed")
	}

	if err := worker.Serve(ctx, msgs); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error().Err(err).Msg("worker: stopped with error")
	}
	if err := sub.Unsubscribe(); err != nil {
		logger.Warn().Err(err).Msg("worker: unsubscribe failed")
	}
	sessions.Wait()
	logger.Info().Msg("worker: stopped")
}
