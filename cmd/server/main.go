package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"github.com/clearauth/token-service/application/usecase"
	"github.com/clearauth/token-service/infrastructure/config"
	"github.com/clearauth/token-service/infrastructure/http/handler"
	"github.com/clearauth/token-service/infrastructure/http/middleware"
	"github.com/clearauth/token-service/infrastructure/persistence/postgres"
	"github.com/clearauth/token-service/infrastructure/service/logger"
	"github.com/clearauth/token-service/infrastructure/service/password"
	"github.com/clearauth/token-service/infrastructure/service/ratelimit"
	"github.com/clearauth/token-service/infrastructure/service/signer"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	structuredLogger := logger.NewStructuredLogger(logger.LoggerConfig{
		Level:       cfg.LogLevel,
		Format:      cfg.LogFormat,
		ServiceName: "token-service",
	})
	structuredLogger.Info(ctx, "Application starting", map[string]interface{}{
		"env": cfg.Environment,
	})

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		structuredLogger.Error(ctx, "Failed to ping database", err, nil)
		log.Fatalf("Failed to ping database: %v", err)
	}
	structuredLogger.Info(ctx, "Database connection established", nil)

	rateLimitService, err := ratelimit.NewRateLimitService(ratelimit.Config{
		Enabled:       cfg.RateLimitEnabled,
		RedisURL:      cfg.RedisURL,
		IPAttempts:    cfg.RateLimitIPAttempts,
		IPWindow:      cfg.RateLimitIPWindow,
		BlockDuration: cfg.RateLimitBlockDuration,
	}, logrus.New())
	if err != nil {
		structuredLogger.Error(ctx, "Failed to initialize rate limit service", err, map[string]interface{}{
			"redis_url": cfg.RedisURL,
		})
		log.Fatalf("Failed to initialize rate limit service: %v", err)
	}

	tokenSigner, err := signer.NewJWTSigner(signer.Config{
		Key:      cfg.JWTSecret,
		Issuer:   cfg.JWTIssuer,
		Audience: cfg.JWTAudience,
		TokenTTL: cfg.TokenTTL,
	})
	if err != nil {
		structuredLogger.Error(ctx, "Failed to initialize token signer", err, nil)
		log.Fatalf("Failed to initialize token signer: %v", err)
	}

	userDirectory := postgres.NewUserDirectory(db)
	refreshTokenRepo := postgres.NewRefreshTokenRepository(db)
	passwordService := password.NewBcryptPasswordService(10)

	tokenUseCase := usecase.NewTokenUseCase(
		userDirectory,
		refreshTokenRepo,
		tokenSigner,
		passwordService,
		structuredLogger,
	)

	tokenHandler := handler.NewTokenHandler(tokenUseCase)
	rateLimitMiddleware := middleware.NewRateLimitMiddleware(
		rateLimitService,
		structuredLogger,
		cfg.RateLimitIPAttempts,
		cfg.RateLimitIPWindow,
		cfg.RateLimitBlockDuration,
	)

	router := mux.NewRouter()
	router.Use(middleware.CorrelationID)
	router.Handle("/api/token/auth",
		rateLimitMiddleware.RateLimit(http.HandlerFunc(tokenHandler.Auth))).Methods("POST")
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, `{"status":"healthy"}`)
	}).Methods("GET")

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.ServerHost, cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		structuredLogger.Info(ctx, "Starting server", map[string]interface{}{
			"host": cfg.ServerHost,
			"port": cfg.ServerPort,
		})
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			structuredLogger.Error(ctx, "Server failed to start", err, nil)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	structuredLogger.Info(ctx, "Shutting down server...", nil)

	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 30*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		structuredLogger.Error(ctx, "Server forced to shutdown", err, nil)
	}
	structuredLogger.Info(ctx, "Server exited", nil)
}
