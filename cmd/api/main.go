package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"erinnerungslicht-backend/config"
	v1 "erinnerungslicht-backend/internal/delivery/http/v1"
	"erinnerungslicht-backend/internal/usecase"
	"erinnerungslicht-backend/pkg/email"
	"erinnerungslicht-backend/pkg/logger"
	"erinnerungslicht-backend/pkg/metrics"
	"erinnerungslicht-backend/pkg/ratelimit"
	"erinnerungslicht-backend/pkg/redis"
	"erinnerungslicht-backend/pkg/security"
	"erinnerungslicht-backend/pkg/spam"

	"github.com/gin-gonic/gin"
)

// @title           Erinnerungslicht Contact API
// @version         1.0
// @description     Contact form backend: validation, spam screening and mail dispatch.
// @host            localhost:3000
// @BasePath        /api
func main() {
	startedAt := time.Now()

	// 1. Load Config
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if cfg.GinMode != "" {
		gin.SetMode(cfg.GinMode)
	}

	// 2. Setup Loggers
	logger.Init(cfg.IsProduction())
	secLog := security.InitSecurityLogger("erinnerungslicht-contact", security.Environment(cfg.GinMode))
	logger.Log.Info("Starting contact backend", "port", cfg.Port)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// 3. Metrics
	var m *metrics.Metrics
	if cfg.MetricsEnabled {
		m = metrics.New(startedAt)
	}

	// 4. Spam filter
	keywords := cfg.SpamKeywords
	if cfg.SpamKeywordsFile != "" {
		fileKeywords, err := spam.LoadKeywordFile(cfg.SpamKeywordsFile)
		if err != nil {
			logger.Log.Warn("Failed to load spam keywords file", "file", cfg.SpamKeywordsFile, "error", err)
		} else {
			keywords = fileKeywords
		}
	}
	filter := spam.NewFilter(cfg.SpamMinFillTime, keywords)
	if cfg.SpamKeywordsFile != "" {
		if err := spam.WatchKeywordFile(ctx, cfg.SpamKeywordsFile, filter, logger.Log); err != nil {
			logger.Log.Warn("Spam keywords will not be reloaded", "error", err)
		}
	}

	// 5. Rate limiter: Redis when configured, memory otherwise or as fallback
	memory := ratelimit.NewMemory(cfg.ContactRateLimitMax, cfg.ContactRateLimitWindow)
	memory.StartJanitor(ctx, time.Minute)
	var limiter ratelimit.Limiter = memory

	redisClient, err := redis.Connect(ctx, redis.Config{URL: cfg.RedisURL, Password: cfg.RedisPassword})
	switch {
	case errors.Is(err, redis.ErrNotConfigured):
		logger.Log.Info("Rate limiting uses in-memory windows")
	case err != nil:
		logger.Log.Warn("Redis unavailable, rate limiting uses in-memory windows", "error", err)
	default:
		defer redisClient.Close()
		limiter = &ratelimit.Fallback{
			Primary:    ratelimit.NewRedis(redisClient, "rl:contact:", cfg.ContactRateLimitMax, cfg.ContactRateLimitWindow),
			Secondary:  memory,
			FailClosed: cfg.RateLimitFailClosed,
			OnError: func(err error) {
				secLog.LogRateLimitDegraded(context.Background(), "", "", err)
			},
		}
		logger.Log.Info("Rate limiting uses Redis", "fail_closed", cfg.RateLimitFailClosed)
	}

	// 6. Mail: the provider is chosen once and never re-read
	provider := email.SelectProvider(cfg.Mail)
	if provider.IsSandbox() {
		if cfg.IsProduction() {
			logger.Log.Warn("No mail provider configured - messages go to the Ethereal sandbox")
		} else {
			logger.Log.Info("Using Ethereal sandbox for mail")
		}
	}
	logger.Log.Info("Mail provider selected", "provider", provider.String())

	queue := email.NewQueue(cfg.Mail.QueueSize, cfg.Mail.QueueWorkers, m)
	dispatcher := email.NewDispatcher(provider, cfg.Mail.SendTimeout,
		email.WithMetrics(m),
		email.WithSecurityLogger(secLog),
		email.WithLogger(logger.Log),
		email.WithQueue(queue),
	)

	// 7. Setup UseCases
	contactUC := usecase.NewContactUsecase(usecase.ContactDeps{
		Filter: filter,
		Composer: &email.Composer{
			From:     cfg.Mail.FromEmail,
			To:       cfg.Mail.ToEmail,
			SiteName: cfg.SiteName,
			SiteURL:  cfg.SiteURL,
		},
		Mailer:           dispatcher,
		SendConfirmation: cfg.Mail.SendConfirmation,
		Metrics:          m,
		Security:         secLog,
		Logger:           logger.Log,
	})
	healthUC := usecase.NewHealthUsecase(startedAt)

	// 8. Setup Router
	router := v1.NewRouter(v1.RouterDeps{
		ContactUC: contactUC,
		HealthUC:  healthUC,
		Limiter:   limiter,
		Metrics:   m,
		Security:  secLog,
		Config:    cfg,
	})

	// 9. Start Server
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Error("Listen failed", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Log.Error("Server forced to shutdown", "error", err)
	}
	if err := queue.Close(shutdownCtx); err != nil {
		logger.Log.Warn("Confirmation queue not drained", "pending", queue.Len(), "error", err)
	}
	stop()
	_ = secLog.Sync()

	logger.Log.Info("Server exiting")
}
