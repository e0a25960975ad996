package main

import (
	"context"
	"crypto/tls"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	gcal "google.golang.org/api/calendar/v3"

	"github.com/raaslabs/raas-platform/internal/api/router"
	"github.com/raaslabs/raas-platform/internal/calendar"
	appconfig "github.com/raaslabs/raas-platform/internal/config"
	"github.com/raaslabs/raas-platform/internal/conversation"
	"github.com/raaslabs/raas-platform/internal/dialogue"
	"github.com/raaslabs/raas-platform/internal/notify"
	"github.com/raaslabs/raas-platform/internal/records"
	"github.com/raaslabs/raas-platform/internal/session"
	"github.com/raaslabs/raas-platform/pkg/logging"
)

func main() {
	_ = godotenv.Load()

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting raas-platform API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx := context.Background()

	redisOpts := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		redisOpts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	redisClient := redis.NewClient(redisOpts)
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Error("redis unreachable", "addr", cfg.RedisAddr, "error", err)
		os.Exit(1)
	}
	store := session.NewStore(redisClient, cfg.SessionTTL, logger)

	engineCfg := conversation.EngineConfig{
		Store:            store,
		Policy:           buildPolicyChain(ctx, cfg, logger),
		Scheduler:        buildScheduler(ctx, cfg, logger),
		Metrics:          conversation.NewTurnMetrics(nil),
		Logger:           logger,
		DefaultDentistID: cfg.DentistID,
	}

	if cfg.DatabaseURL != "" {
		db, err := sql.Open("pgx", cfg.DatabaseURL)
		if err != nil {
			logger.Error("failed to open database", "error", err)
			os.Exit(1)
		}
		defer func() { _ = db.Close() }()
		if err := db.PingContext(ctx); err != nil {
			logger.Error("database unreachable", "error", err)
			os.Exit(1)
		}
		engineCfg.Archive = records.NewStore(db)
		logger.Info("appointment archive enabled")
	}

	if sender := notify.NewSendGridSender(notify.SendGridConfig{
		APIKey:    cfg.SendGridAPIKey,
		FromEmail: cfg.SendGridFromEmail,
		FromName:  cfg.SendGridFromName,
	}, logger); sender != nil {
		engineCfg.Notifier = notify.NewBookingNotifier(sender, cfg.ClinicName)
		logger.Info("booking notices enabled")
	}

	engine := conversation.NewEngine(engineCfg)

	var orchestrator *conversation.Orchestrator
	if cfg.UseMemoryQueue || cfg.ConversationQueueURL == "" {
		orchestrator = conversation.NewOrchestrator(engine, conversation.NewMemoryQueue(256), logger,
			conversation.WithWorkerCount(cfg.WorkerCount))
	} else {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
		if err != nil {
			logger.Error("failed to load AWS config for SQS", "error", err)
			os.Exit(1)
		}
		queue := conversation.NewSQSQueue(sqs.NewFromConfig(awsCfg), cfg.ConversationQueueURL)
		orchestrator = conversation.NewOrchestrator(engine, queue, logger,
			conversation.WithWorkerCount(cfg.WorkerCount))
		logger.Info("conversation queue backed by SQS", "url", cfg.ConversationQueueURL)
	}

	r := router.New(&router.Config{
		Logger:         logger,
		ChatHandler:    conversation.NewHandler(orchestrator, logger),
		MetricsHandler: promhttp.Handler(),
		AppName:        cfg.AppName,
		AppVersion:     cfg.AppVersion,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", "error", err)
	}
	if err := orchestrator.Shutdown(shutdownCtx); err != nil {
		logger.Error("orchestrator shutdown failed", "error", err)
	}
	if err := redisClient.Close(); err != nil {
		logger.Error("redis close failed", "error", err)
	}
	logger.Info("shutdown complete")
}

// buildPolicyChain selects the remote LLM strategy by configuration; the
// rule policy always backs it.
func buildPolicyChain(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) *dialogue.Chain {
	var remote dialogue.Policy

	provider := cfg.LLMProvider
	if provider == "auto" {
		switch {
		case cfg.BedrockModelID != "":
			provider = "bedrock"
		case cfg.GeminiAPIKey != "":
			provider = "gemini"
		default:
			provider = "none"
		}
	}

	switch provider {
	case "bedrock":
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
		if err != nil {
			logger.Error("failed to load AWS config, rule policy only", "error", err)
			break
		}
		client := dialogue.NewBedrockLLMClient(bedrockruntime.NewFromConfig(awsCfg))
		remote = dialogue.NewRemotePolicy(client, cfg.BedrockModelID, cfg.LLMTimeout, logger)
		logger.Info("remote policy enabled", "provider", "bedrock", "model", cfg.BedrockModelID)
	case "gemini":
		client, err := dialogue.NewGeminiLLMClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModelID)
		if err != nil {
			logger.Error("failed to create gemini client, rule policy only", "error", err)
			break
		}
		remote = dialogue.NewRemotePolicy(client, cfg.GeminiModelID, cfg.LLMTimeout, logger)
		logger.Info("remote policy enabled", "provider", "gemini", "model", cfg.GeminiModelID)
	default:
		logger.Info("no remote policy configured, rule policy only")
	}

	return dialogue.NewChain(remote, dialogue.NewRulePolicy(), logger)
}

func buildScheduler(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) calendar.Scheduler {
	if cfg.CalendarProvider == "google" {
		service, err := gcal.NewService(ctx)
		if err != nil {
			logger.Error("google calendar unavailable, serving stub schedule", "error", err)
			service = nil
		}
		return calendar.NewGoogleAdapter(service, calendar.GoogleConfig{
			CalendarID:   cfg.GoogleCalendarID,
			DentistID:    cfg.DentistID,
			ClinicTZ:     cfg.ClinicTZ,
			SlotDuration: cfg.SlotDuration,
		}, logger)
	}

	return calendar.NewCalComClient(calendar.CalComConfig{
		APIKey:       cfg.CalComAPIKey,
		BaseURL:      cfg.CalComBaseURL,
		DentistID:    cfg.DentistID,
		ClinicTZ:     cfg.ClinicTZ,
		SlotDuration: cfg.SlotDuration,
		Timeout:      cfg.CalendarTimeout,
	}, logger)
}
