package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"omniscore/internal/analytics"
	"omniscore/internal/http/handlers"
	httpapi "omniscore/internal/http/httpapi"
	"omniscore/internal/infra"
	"omniscore/internal/library"
	"omniscore/internal/messaging"
	"omniscore/internal/pipeline"
	"omniscore/internal/posts"
	"omniscore/internal/providers"
	"omniscore/internal/providers/chat"
	"omniscore/internal/providers/genai"
	"omniscore/internal/storage"
	"omniscore/internal/trends"
)

func main() {
	// .env is optional
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	blobs, err := storage.NewFileStore(cfg.StoragePath, cfg.StorageBaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to prepare storage")
	}

	var libOpts []library.Option
	nc, err := infra.NewNATSConn(cfg, "omniscore-api", logger)
	if err != nil {
		logger.Warn().Err(err).Msg("nats unavailable, library events stay local")
	}
	if nc != nil {
		defer nc.Drain()
		libOpts = append(libOpts, library.WithNotifier(messaging.NewLibraryPublisher(nc, cfg.NATSSubjectPrefix, logger)))
	}
	lib := library.New(libOpts...)
	store := posts.NewStore()
	if cfg.SeedDemoData {
		if err := library.SeedDemo(ctx, lib); err != nil {
			logger.Fatal().Err(err).Msg("failed to seed library")
		}
		if err := posts.SeedDemo(ctx, store); err != nil {
			logger.Fatal().Err(err).Msg("failed to seed posts")
		}
	}

	client := genai.NewClient(genai.Options{
		APIKey:  cfg.GeminiAPIKey,
		BaseURL: cfg.GeminiBaseURL,
		Logger:  &logger,
	})
	if client.Offline() {
		logger.Warn().Msg("GEMINI_API_KEY not set, serving synthetic media")
	}
	studio := providers.NewGeminiStudio(client, blobs, cfg, logger)

	var chatBackend chat.Backend = chat.OfflineBackend{}
	if !cfg.Offline() {
		backend, err := chat.NewGeminiBackend(ctx, cfg.GeminiAPIKey, cfg.ChatModel)
		if err != nil {
			logger.Error().Err(err).Msg("chat backend unavailable, using offline replies")
		} else {
			defer backend.Close()
			chatBackend = backend
		}
	}

	trendSvc := trends.NewService(client, cfg.TrendsModel, logger)
	activity := analytics.NewTracker()
	sessions := pipeline.NewManager(ctx, pipeline.Dependencies{
		Generator: studio,
		Assets:    lib,
		Posts:     store,
		Activity:  activity,
	}, logger)

	app := &handlers.App{
		Sessions:   sessions,
		Library:    lib,
		Posts:      store,
		Trends:     trendSvc,
		Chat:       chat.NewService(chatBackend, logger),
		Activity:   activity,
		Blobs:      blobs,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
		StartedAt:  time.Now(),
	}
	router := httpapi.NewRouter(app, httpapi.Options{
		Logger:          logger,
		CORSOrigins:     cfg.CORSAllowedOrigins,
		RateLimitPerMin: cfg.RateLimitPerMin,
		StaticDir:       blobs.BasePath(),
		Docs:            handlers.DocsOptions{ServerURL: cfg.PublicURL},
	})
	server := infra.NewHTTPServer(cfg, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info().Msgf("API listening on :%s", cfg.Port)
		return server.Start()
	})
	g.Go(func() error {
		return trendSvc.Run(gctx, cfg.TrendRefreshEvery)
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return err
		}
		sessions.Wait()
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error().Err(err).Msg("server stopped with error")
		os.Exit(1)
	}
	logger.Info().Msg("server stopped")
}
