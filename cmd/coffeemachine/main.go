// Package main запускает HTTP-сервер кофемашины.
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
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"github.com/mmeshcher/coffee-machine/internal/auth"
	"github.com/mmeshcher/coffee-machine/internal/config"
	"github.com/mmeshcher/coffee-machine/internal/handler"
	"github.com/mmeshcher/coffee-machine/internal/middleware"
	"github.com/mmeshcher/coffee-machine/internal/repository"
	"github.com/mmeshcher/coffee-machine/internal/service"
)

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}

	zcfg := zap.NewProductionConfig()
	if lvl == zapcore.DebugLevel {
		zcfg = zap.NewDevelopmentConfig()
	}
	zcfg.Level = zap.NewAtomicLevelAt(lvl)

	return zcfg.Build()
}

func newStorage(cfg *config.Config) (repository.UnitOfWork, error) {
	if cfg.DatabaseURI == "" {
		return repository.NewMemoryRepository(), nil
	}
	return repository.NewPostgresRepository(cfg.DatabaseURI)
}

func main() {
	logger, _ := zap.NewProduction()
	sugar := logger.Sugar()

	cfg, err := config.Parse()
	if err != nil {
		sugar.Fatalw("configuration error", "error", err.Error())
	}

	if logger, err = newLogger(cfg.LogLevel); err != nil {
		sugar.Fatalw("logger initialization error", "error", err.Error())
	}
	defer logger.Sync()
	sugar = logger.Sugar()

	repo, err := newStorage(cfg)
	if err != nil {
		sugar.Fatalw("storage initialization error", "error", err.Error())
	}
	if cfg.DatabaseURI == "" {
		sugar.Warn("DATABASE_URI is empty, data is kept in memory")
	}

	tokens, err := auth.NewTokens(cfg.JWTKey, cfg.JWTIssuer, cfg.JWTAudience, cfg.TokenLifetime())
	if err != nil {
		sugar.Fatalw("token issuer initialization error", "error", err.Error())
	}

	svc := service.NewService(repo, tokens, logger)
	defer svc.Close()

	h := handler.NewHandler(svc, logger, middleware.NewAuthMiddleware(tokens))

	server := &http.Server{
		Addr:              cfg.RunAddress,
		Handler:           h.SetupRouter(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		sugar.Infow("starting coffee machine server", "addr", cfg.RunAddress)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Graceful shutdown при отмене контекста (сигнал или ошибка сервера)
	g.Go(func() error {
		<-ctx.Done()
		sugar.Info("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		sugar.Info("server stopped gracefully")
		return nil
	})

	if err := g.Wait(); err != nil {
		sugar.Fatalw("application terminated with error", "error", err)
	}
}
