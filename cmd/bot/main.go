package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/examprep/telegram-bot-go/internal/config"
	"github.com/examprep/telegram-bot-go/internal/database"
	"github.com/examprep/telegram-bot-go/internal/handler"
	"github.com/examprep/telegram-bot-go/internal/jobs"
	"github.com/examprep/telegram-bot-go/internal/middleware"
	"github.com/examprep/telegram-bot-go/internal/notify"
	"github.com/examprep/telegram-bot-go/internal/redis"
	"github.com/examprep/telegram-bot-go/internal/repository"
	"github.com/examprep/telegram-bot-go/internal/service"
	"github.com/examprep/telegram-bot-go/internal/telegram"
)

func main() {
	_ = godotenv.Load()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	setLogLevel(cfg.LogLevel)

	isProduction := os.Getenv("FLY_APP_NAME") != ""
	if err := cfg.Validate(isProduction); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), config.DBPingTimeout)
	if err := db.Ping(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to ping database")
	}
	cancel()
	log.Info().Msg("database connected")

	if err := db.Migrate(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("failed to run migrations")
	}

	redisClient, err := redis.NewClient(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer redisClient.Close()
	log.Info().Msg("redis connected")

	generator, err := service.NewGeminiGenerator(context.Background(), cfg.GeminiAPIKey)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create gemini client")
	}
	defer generator.Close()

	accountRepo := repository.NewAccountRepository(db.DB)
	otpRepo := repository.NewOTPCodeRepository(db.DB)

	notifier := notify.NewResendNotifier(cfg.ResendAPIKey, cfg.EmailFrom)
	botClient := telegram.NewClient(cfg.TelegramBotToken)
	rateLimiter := service.NewRateLimiter(redisClient.Client, cfg.MessagesPerMinute, time.Minute)

	accountService := service.NewAccountService(accountRepo, config.SignupFreeCredits)
	otpService := service.NewOTPService(otpRepo, notifier, cfg.OTPTTL())
	creditService := service.NewCreditService(db, accountRepo, redisClient)
	linkingService := service.NewLinkingService(
		accountService, otpService, creditService, rateLimiter, cfg.LinkSessionTTL(),
	)

	telegramSecretMiddleware := middleware.NewTelegramSecretMiddleware(cfg.TelegramWebhookSecret)
	internalAuthMiddleware := middleware.NewInternalAuthMiddleware(cfg.InternalAPIToken)
	bodyLimitMiddleware := middleware.NewBodyLimitMiddleware(0)

	webhookHandler := handler.NewWebhookHandler(
		accountService, linkingService, creditService, generator, botClient,
		rateLimiter, cfg.PaymentCheckoutURL, config.GenerationTimeout,
	)
	internalHandler := handler.NewInternalHandler(accountService, creditService)

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(config.ServerRequestTimeout))
	r.Use(bodyLimitMiddleware.Handler)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]any{
			"status":    "ok",
			"timestamp": time.Now().UnixMilli(),
		})
	})

	r.Route("/webhook", func(r chi.Router) {
		r.Use(telegramSecretMiddleware.Handler)
		r.Post("/telegram", webhookHandler.Webhook)
	})

	r.Route("/internal/v1", func(r chi.Router) {
		r.Use(internalAuthMiddleware.Handler)
		r.Post("/credits/topup", internalHandler.TopUp)
		r.Get("/accounts/{email}", internalHandler.GetAccount)
	})

	cleanupJob := jobs.NewCleanupJob(otpRepo, linkingService, config.CleanupJobInterval)
	cleanupJob.Start()
	defer cleanupJob.Stop()

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  config.ServerReadTimeout,
		WriteTimeout: 0,
		IdleTimeout:  config.ServerIdleTimeout,
	}

	go func() {
		log.Info().Str("addr", cfg.Addr()).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), config.ServerShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}

func setLogLevel(level string) {
	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}
