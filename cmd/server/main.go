package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	redisStore "github.com/gin-contrib/sessions/redis"
	"github.com/gin-gonic/gin"
	"github.com/yukikurage/stellar-tasks/internal/config"
	"github.com/yukikurage/stellar-tasks/internal/database"
	"github.com/yukikurage/stellar-tasks/internal/handlers"
	"github.com/yukikurage/stellar-tasks/internal/repository"
	"github.com/yukikurage/stellar-tasks/internal/services"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", slog.Any("err", err))
		os.Exit(1)
	}
}

func run() error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	setupLogging(cfg)
	gin.SetMode(cfg.GinMode)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Connect(cfg)
	if err != nil {
		return err
	}
	if err := database.MigrateDatabase(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	store, err := newSessionStore(cfg)
	if err != nil {
		return err
	}

	taskRepo := repository.NewTaskRepository(db)
	userRepo := repository.NewUserRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)

	authService := services.NewAuthService(userRepo, services.AuthConfig{
		JWTSecret:        cfg.JWTSecret,
		TokenTTL:         cfg.JWTTTL,
		AdminInviteToken: cfg.AdminInviteToken,
		Timeout:          cfg.RequestTimeout,
	})
	notificationService := services.NewNotificationService(notificationRepo, cfg.RequestTimeout)
	taskService := services.NewTaskService(taskRepo, userRepo, notificationService, cfg.RequestTimeout)
	dashboardService := services.NewDashboardService(taskRepo, userRepo, cfg.RequestTimeout)

	// AI suggestions stay disabled without a key
	var aiService *services.AIService
	if cfg.OpenAIAPIKey != "" {
		aiService = services.NewAIService(cfg.OpenAIAPIKey)
	}

	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())
	handlers.RegisterRoutes(r, handlers.Handlers{
		Auth:         handlers.NewAuthHandler(authService),
		Task:         handlers.NewTaskHandler(taskService, aiService),
		Notification: handlers.NewNotificationHandler(notificationService),
		Dashboard:    handlers.NewDashboardHandler(dashboardService),
	}, authService, store)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("server starting", slog.String("addr", cfg.HTTPAddr))
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}

	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}
	return nil
}

func setupLogging(cfg *config.Config) {
	var handler slog.Handler
	if cfg.IsProduction() {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})
	} else {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})
	}
	slog.SetDefault(slog.New(handler))
}

// newSessionStore backs the per-client notification cache with redis, or a
// signed cookie when SESSION_STORE=cookie.
func newSessionStore(cfg *config.Config) (sessions.Store, error) {
	options := sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 7, // 7 days
		HttpOnly: true,
		Secure:   cfg.IsProduction(),
		SameSite: http.SameSiteLaxMode,
	}

	if cfg.SessionStore == "cookie" {
		store := cookie.NewStore([]byte(cfg.SessionSecret))
		store.Options(options)
		return store, nil
	}

	redisAddr := cfg.RedisHost + ":" + cfg.RedisPort
	store, err := redisStore.NewStore(
		10,        // Redis pool size
		"tcp",     // network type
		redisAddr, // Redis address from config
		"",        // username (empty for default user)
		"",        // password (empty = no password)
		[]byte(cfg.SessionSecret),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create Redis store: %w", err)
	}
	store.Options(options)
	return store, nil
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		slog.Info("request",
			slog.String("method", c.Request.Method),
			slog.String("path", c.FullPath()),
			slog.Int("status", c.Writer.Status()),
			slog.Duration("latency", time.Since(start)),
		)
	}
}
