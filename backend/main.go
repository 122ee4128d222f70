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

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"stockroom/m/internal/api"
	"stockroom/m/internal/config"
	"stockroom/m/internal/database"
	"stockroom/m/internal/logger"
	"stockroom/m/internal/migrations"
	"stockroom/m/internal/seed"
)

const shutdownTimeout = 10 * time.Second

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	zl, err := logger.New(cfg.Logger)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	db, err := database.Open(cfg.DatabasePath)
	if err != nil {
		zl.Fatal("open database", zap.String("path", cfg.DatabasePath), zap.Error(err))
	}
	defer db.Close()

	if err := migrations.Run(db); err != nil {
		zl.Fatal("run migrations", zap.Error(err))
	}

	handler := api.New(db, cfg, zl)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if _, err := seed.LoadCatalog(ctx, db, handler.Products(), cfg.SeedCatalog, zl.Named("seed")); err != nil {
		zl.Error("seed catalog", zap.String("path", cfg.SeedCatalog), zap.Error(err))
	}

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           handler.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	go func() {
		zl.Info("inventory server starting",
			zap.String("addr", srv.Addr),
			zap.String("env", cfg.AppEnv),
			zap.String("database", cfg.DatabasePath),
			zap.Bool("auth", cfg.AuthEnabled()),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zl.Fatal("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	zl.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zl.Error("graceful shutdown failed", zap.Error(err))
	}
	zl.Info("server stopped")
}
