// File: cmd/server/main.go
package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/iyunix/go-dualotp/internal/auth"
	"github.com/iyunix/go-dualotp/internal/config"
	"github.com/iyunix/go-dualotp/internal/database"
	"github.com/iyunix/go-dualotp/internal/handlers"
	"github.com/iyunix/go-dualotp/internal/ratelimit"
	"github.com/iyunix/go-dualotp/internal/repository/identity"
	"github.com/iyunix/go-dualotp/internal/repository/otp"
	"github.com/iyunix/go-dualotp/internal/repository/session"
	"github.com/iyunix/go-dualotp/internal/services"
	"github.com/iyunix/go-dualotp/internal/services/mail"
	"github.com/iyunix/go-dualotp/internal/services/sms"
	"github.com/iyunix/go-dualotp/internal/services/user_services"
	"github.com/iyunix/go-dualotp/internal/telemetry"
)

const serviceName = "go-dualotp"

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Config Error: %v", err)
	}
	logger := services.NewLogger(serviceName, cfg.Environment, cfg.LogLevel)

	rootCtx, stopSignals := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stopSignals()

	shutdownTracing, err := telemetry.Setup(rootCtx, serviceName, cfg.OTelEndpoint)
	if err != nil {
		log.Fatalf("Telemetry Error: %v", err)
	}

	// --- Stores ---
	db, err := database.Open(cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		log.Fatalf("DB Error: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatalf("DB Migration Error: %v", err)
	}

	policy := otp.Policy{
		Window:      cfg.OTPWindow,
		MaxAttempts: cfg.OTPMaxAttempts,
		HashCost:    cfg.BcryptCost,
	}
	healthChecks := []func(context.Context) error{
		func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	}

	var (
		otpRepo     otp.OTPRepository
		redisClient *redis.Client
	)
	switch cfg.OTPStore {
	case "redis":
		redisClient, err = database.ConnectRedis(rootCtx, cfg.RedisURI)
		if err != nil {
			log.Fatalf("Redis Error: %v", err)
		}
		otpRepo = otp.NewRedisOTPRepository(redisClient, policy)
		healthChecks = append(healthChecks, func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		})
	default:
		sqlStore := otp.NewGormOTPRepository(db, policy)
		otpRepo = sqlStore
		go sweepExpiredOTPs(rootCtx, sqlStore, cfg.OTPWindow, logger)
	}

	identityRepo := identity.NewGormIdentityRepository(db)
	sessionRepo := session.NewGormSessionRepository(db)

	// --- Delivery ---
	var (
		smsProvider  sms.Provider
		mailProvider mail.Provider
	)
	smsConfig := &sms.Config{
		AccountSID: cfg.Twilio.AccountSID,
		AuthToken:  cfg.Twilio.AuthToken,
		From:       cfg.Twilio.From,
		APIURL:     cfg.Twilio.APIURL,
		Timeout:    cfg.Twilio.Timeout,
		MaxRetries: cfg.Twilio.MaxRetries,
	}
	if cfg.IsDev() {
		smsProvider = sms.NewLogProvider(logger)
		mailProvider = mail.NewLogProvider(logger)
	} else {
		smsProvider = sms.NewTwilioProvider(smsConfig)
		mailProvider = mail.NewSendGridProvider(&mail.Config{
			APIKey:  cfg.SendGrid.APIKey,
			From:    cfg.SendGrid.From,
			APIURL:  cfg.SendGrid.APIURL,
			Timeout: cfg.SendGrid.Timeout,
		})
	}

	// --- Services ---
	tokens := auth.NewTokenManager([]byte(cfg.JWTSecretKey), cfg.AccessTokenTTL)
	sessionService := user_services.NewSessionService(sessionRepo, tokens, logger,
		user_services.WithSessionTTL(cfg.SessionTTL),
		user_services.WithHashCost(cfg.BcryptCost),
	)
	verificationService := user_services.NewVerificationService(
		identityRepo,
		otpRepo,
		sessionService,
		sms.NewSender(smsProvider, smsConfig, logger),
		mail.NewSender(mailProvider, logger),
		logger,
		user_services.WithCodeTTL(cfg.OTPTTL),
	)

	// --- Router Setup ---
	trustedProxies, err := ratelimit.ParseTrustedProxies(cfg.TrustedProxies)
	if err != nil {
		log.Fatalf("Config Error: %v", err)
	}
	limiter := ratelimit.NewMemoryRateLimiter(&ratelimit.Config{
		WindowSize:     cfg.RateLimitWindow,
		MaxAttempts:    cfg.RateLimitRequests,
		CleanupPeriod:  10 * time.Minute,
		BanDuration:    5 * time.Minute,
		TrustedProxies: trustedProxies,
	})
	defer limiter.Close()

	router := handlers.NewRouter(handlers.RouterConfig{
		Auth:           handlers.NewAuthHandler(verificationService, sessionService),
		Profile:        handlers.NewProfileHandler(identityRepo),
		Authenticator:  sessionService,
		Limiter:        limiter,
		Logger:         logger,
		AllowedOrigins: cfg.AllowedOrigins,
		HealthChecks:   healthChecks,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// --- Start Server in Goroutine ---
	go func() {
		logger.Info("server starting", "addr", srv.Addr, "env", cfg.Environment, "otp_store", cfg.OTPStore, "db_driver", cfg.DBDriver)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server startup failed: %v", err)
		}
	}()

	// --- Graceful Shutdown ---
	<-rootCtx.Done()
	logger.Info("shutting down server gracefully")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server shutdown failed", "error", err)
	}
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			logger.Error("redis close failed", "error", err)
		}
	}
	if err := database.Close(db); err != nil {
		logger.Error("database close failed", "error", err)
	}
	if err := shutdownTracing(ctx); err != nil {
		logger.Error("tracer shutdown failed", "error", err)
	}
	logger.Info("server stopped")
}

// sweepExpiredOTPs drops challenge rows whose window has closed.
func sweepExpiredOTPs(ctx context.Context, store *otp.GormOTPRepository, every time.Duration, logger services.Logger) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := store.DeleteExpired(ctx)
			if err != nil {
				logger.Warn("OTP sweep failed", "error", err)
				continue
			}
			if n > 0 {
				logger.Debug("OTP sweep", "deleted", n)
			}
		}
	}
}
