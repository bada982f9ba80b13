// Package main запускает HTTP-сервер кассы ЭлектроМакс.
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
	"golang.org/x/sync/errgroup"

	"github.com/electromax/electromax-pos/internal/catalog"
	"github.com/electromax/electromax-pos/internal/config"
	"github.com/electromax/electromax-pos/internal/handler"
	"github.com/electromax/electromax-pos/internal/rates"
	"github.com/electromax/electromax-pos/internal/repository"
	"github.com/electromax/electromax-pos/internal/service"
	"github.com/electromax/electromax-pos/internal/storage"
	"github.com/electromax/electromax-pos/internal/store"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	sugar := logger.Sugar()

	cfg, err := config.Parse()
	if err != nil {
		sugar.Fatalw("configuration error", "error", err.Error())
	}

	fileStore, err := storage.NewFileStore(cfg.DataDir)
	if err != nil {
		sugar.Fatalw("storage initialization error", "error", err.Error())
	}

	var mirror service.Mirror
	if cfg.DatabaseURI != "" {
		repo, err := repository.NewPostgresRepository(cfg.DatabaseURI)
		if err != nil {
			sugar.Fatalw("database initialization error", "error", err.Error())
		}
		mirror = repo
	}

	loader := catalog.NewLoader(cfg.CatalogPath)
	ratesClient := rates.NewClient()

	svc := service.NewService(store.NewLedger(), fileStore, mirror, loader, ratesClient, logger)
	defer svc.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	svc.LoadState(ctx, catalog.Fallback)

	h := handler.NewHandler(svc, logger)
	r := h.SetupRouter()

	server := &http.Server{
		Addr:    cfg.RunAddress,
		Handler: r,
	}

	g, ctx := errgroup.WithContext(ctx)

	// Запуск фонового обновления курса валют
	g.Go(func() error {
		svc.StartRateUpdates(ctx)
		return nil
	})

	// Запуск HTTP-сервера
	g.Go(func() error {
		sugar.Infow("starting electromax server", "addr", cfg.RunAddress)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Graceful shutdown при отмене контекста (сигнал или ошибка в другой горутине)
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
