// Package main запускает HTTP-сервер бэкенда магазина Eguva.
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

	"github.com/eguva/eguva-backend/internal/config"
	"github.com/eguva/eguva-backend/internal/handler"
	"github.com/eguva/eguva-backend/internal/mercadopago"
	"github.com/eguva/eguva-backend/internal/middleware"
	"github.com/eguva/eguva-backend/internal/repository"
	"github.com/eguva/eguva-backend/internal/service"
	"github.com/eguva/eguva-backend/internal/signature"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	sugar := logger.Sugar()

	cfg, err := config.Parse()
	if err != nil {
		sugar.Fatalw("configuration error", "error", err.Error())
	}

	repo, err := repository.NewPostgresRepository(cfg.DatabaseURI)
	if err != nil {
		sugar.Fatalw("database initialization error", "error", err.Error())
	}
	defer repo.Close()

	// Без токена сервис стартует с отключёнными платежами: оформление
	// заказов и админка работают, операции оплаты вернут ошибку.
	var provider service.PaymentProvider
	if cfg.MercadoPagoAccessToken != "" {
		provider = mercadopago.NewClient(cfg.MercadoPagoAccessToken)
	} else {
		sugar.Warn("mercadopago access token is not set, payments disabled")
	}

	svc := service.NewService(repo, provider, logger, cfg.FrontendURL, cfg.BackendURL)

	verifier := signature.NewVerifier(cfg.MercadoPagoWebhookSecret)
	if !verifier.Enabled() {
		sugar.Warn("webhook secret is not set, signature verification disabled")
	}

	authMiddleware := middleware.NewAuthMiddleware(cfg.AuthSecret)
	h := handler.NewHandler(svc, logger, authMiddleware, verifier)

	r := h.SetupRouter()

	server := &http.Server{
		Addr:    cfg.RunAddress,
		Handler: r,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	// Запуск фоновой досверки зависших webhook-уведомлений
	g.Go(func() error {
		svc.StartWebhookRetries(ctx)
		return nil
	})

	// Запуск HTTP-сервера
	g.Go(func() error {
		sugar.Infow("starting eguva server", "addr", cfg.RunAddress)
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
