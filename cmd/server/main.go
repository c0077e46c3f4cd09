package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"healthyaar-backend/internal/config"
	"healthyaar-backend/internal/database"
	"healthyaar-backend/internal/handlers"
	"healthyaar-backend/internal/logging"
	"healthyaar-backend/internal/middleware"
	"healthyaar-backend/internal/repository"
	"healthyaar-backend/internal/router"
	"healthyaar-backend/internal/services"
	"healthyaar-backend/internal/websocket"
)

const (
	featureLockTTL = 2 * time.Minute
	transcriptTTL  = services.RefreshTokenTTL
)

func main() {
	// ──── Step 1: Load Environment Variables ────
	cfg := config.Load()

	log, err := logging.New(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	log.Info("starting Health Yaar backend", zap.String("env", cfg.Env))

	// ──── Step 2: Initialize PostgreSQL Connection Pool ────
	pool, err := database.NewPostgresPool(cfg.DatabaseURL)
	if err != nil {
		log.Fatal("postgres connection failed", zap.Error(err))
	}
	defer pool.Close()

	// ──── Step 3: Initialize Redis Clients ────
	redisClients, err := database.NewRedisClients(cfg.RedisURL)
	if err != nil {
		log.Fatal("redis connection failed", zap.Error(err))
	}
	defer redisClients.Close()

	// ──── Step 4: Run Database Migrations ────
	if err := database.RunMigrations(pool, log); err != nil {
		log.Fatal("database migration failed", zap.Error(err))
	}

	// ──── Step 5: Initialize Gemini Transport ────
	var generator services.Generator
	switch cfg.GeminiTransport {
	case "sdk":
		sdk, err := services.NewSDKGenerator(context.Background(), cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			log.Fatal("gemini client initialization failed", zap.Error(err))
		}
		defer sdk.Close()
		generator = sdk
	default:
		generator = services.NewRESTGenerator(cfg.GeminiBaseURL, cfg.GeminiModel, cfg.GeminiAPIKey, cfg.GeminiTimeout)
	}
	log.Info("gemini transport ready", zap.String("transport", cfg.GeminiTransport), zap.String("model", cfg.GeminiModel))

	// ──── Initialize Repositories ────
	identityRepo := repository.NewIdentityRepo(pool)
	profileRepo := repository.NewProfileRepo(pool)

	// ──── Initialize Services ────
	kv := services.NewRedisKV(redisClients.State)
	events := services.NewEvents(kv, log)
	tokens := services.NewTokenStore(kv)

	jwtAuth := middleware.NewJWTAuth(cfg.JWTSecret)
	jwtAuth.SetRevocations(tokens)

	gate := services.NewFeatureGate(kv, events, featureLockTTL)
	gateway := services.NewGateway(generator, events, log, cfg.GeminiRequestsPerMin, cfg.GeminiConcurrentReqs, cfg.GeminiTimeout)
	prompts := services.NewPromptBuilder(cfg.ChatHistoryLimit)
	notifier := services.NewNotifier(kv, events, log)
	transcripts := services.NewTranscriptStore(kv, transcriptTTL)
	profiles := services.NewProfileService(profileRepo, kv, cfg.AppID, log)
	reports := services.NewReportService(kv, prompts, gateway, gate, cfg.MaxImageBytes)
	chat := services.NewChatService(transcripts, profiles, prompts, gateway, gate, log)
	summaries := services.NewSummaryService(profiles, prompts, gateway, gate)
	sessions := services.NewSessionService(identityRepo, tokens, jwtAuth, cfg.CustomTokenSecret, events, log,
		transcripts, profiles, reports, notifier)

	// ──── Step 6: Start WebSocket Hub ────
	wsHub := websocket.NewHub(websocket.NewRedisSubscriber(redisClients.PubSub), jwtAuth, services.UpdatesChannel, log)
	defer wsHub.Close()

	// ──── Step 7: Start HTTP Server ────
	r := router.New(jwtAuth, router.Handlers{
		Session:       handlers.NewSessionHandler(sessions, notifier),
		Profile:       handlers.NewProfileHandler(profiles, gate, notifier),
		Chat:          handlers.NewChatHandler(chat, notifier),
		Summary:       handlers.NewSummaryHandler(summaries, notifier),
		Report:        handlers.NewReportHandler(reports, notifier, cfg.MaxImageBytes),
		Notifications: handlers.NewNotificationHandler(notifier),
		Health: handlers.NewHealthHandler(log, map[string]handlers.Pinger{
			"postgres": pool,
			"redis":    redisClients,
		}),
	}, wsHub, log, router.Options{
		FrontendURL:        cfg.FrontendURL,
		RateLimitPerSecond: cfg.RateLimitPerSecond,
	})

	server := &http.Server{
		Addr:        fmt.Sprintf(":%s", cfg.Port),
		Handler:     r,
		ReadTimeout: 15 * time.Second,
		// AI calls can take up to the gateway timeout.
		WriteTimeout: cfg.GeminiTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Info("shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		server.Shutdown(ctx)
	}()

	log.Info("Health Yaar backend ready", zap.String("addr", server.Addr))

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatal("server error", zap.Error(err))
	}
}
