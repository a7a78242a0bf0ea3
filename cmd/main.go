// cmd/main.go is the application entry point.
// It wires together all layers and starts the HTTP server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Shivanand-hulikatti/concert-ticketing/internal/auth"
	"github.com/Shivanand-hulikatti/concert-ticketing/internal/cache"
	"github.com/Shivanand-hulikatti/concert-ticketing/internal/clock"
	"github.com/Shivanand-hulikatti/concert-ticketing/internal/config"
	"github.com/Shivanand-hulikatti/concert-ticketing/internal/database"
	"github.com/Shivanand-hulikatti/concert-ticketing/internal/handler"
	"github.com/Shivanand-hulikatti/concert-ticketing/internal/payment"
	"github.com/Shivanand-hulikatti/concert-ticketing/internal/qrcode"
	"github.com/Shivanand-hulikatti/concert-ticketing/internal/repository"
	"github.com/Shivanand-hulikatti/concert-ticketing/internal/service"
	"github.com/Shivanand-hulikatti/concert-ticketing/internal/telemetry"
	"github.com/Shivanand-hulikatti/concert-ticketing/migrations"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, err := newLogger(cfg.App)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("service stopped with error", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── 1. Tracing ────────────────────────────────────────────────────────
	shutdownTracing, err := telemetry.Init(ctx, telemetry.Config{
		Enabled:        cfg.OTel.Enabled,
		ServiceName:    cfg.OTel.ServiceName,
		ServiceVersion: cfg.App.Version,
		Environment:    cfg.App.Environment,
		CollectorAddr:  cfg.OTel.CollectorAddr,
	})
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			logger.Warn("tracer shutdown", zap.Error(err))
		}
	}()

	// ── 2. Connect to PostgreSQL and migrate ──────────────────────────────
	pool, err := database.NewPool(ctx, cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer pool.Close()
	logger.Info("connected to PostgreSQL", zap.String("host", cfg.Database.Host), zap.String("db", cfg.Database.DBName))

	if err := migrations.Apply(ctx, pool, logger); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}

	// ── 3. Wire up layers ────────────────────────────────────────────────
	clk := clock.NewSystem()
	eventRepo := repository.NewEventRepository(pool)
	userRepo := repository.NewUserRepository(pool)
	txnRepo := repository.NewTransactionRepository(pool)
	ticketRepo := repository.NewTicketRepository(pool)

	var events service.EventStore = eventRepo
	if cfg.Redis.Enabled() {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer func() { _ = rdb.Close() }()
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warn("redis unreachable; event cache will fall back to PostgreSQL", zap.Error(err))
		}
		events = cache.NewEventCache(eventRepo, rdb, cfg.Redis.EventTTL, logger)
		logger.Info("event cache enabled", zap.String("addr", cfg.Redis.Addr()))
	}

	gateway, err := payment.New(cfg.Payment)
	if err != nil {
		return fmt.Errorf("payment gateway: %w", err)
	}
	var stripeParser handler.StripeParser
	if cfg.Payment.StripeWebhookSecret != "" {
		stripeParser = payment.NewStripeWebhook(cfg.Payment.StripeWebhookSecret)
	}

	qrKey, err := cfg.QR.Key()
	if err != nil {
		return fmt.Errorf("qr key: %w", err)
	}
	codec, err := qrcode.New(qrKey)
	if err != nil {
		return fmt.Errorf("qr codec: %w", err)
	}
	if !codec.Sealed() {
		logger.Warn("QR_SECRET not set; QR codes carry bare ticket ids")
	}

	eventSvc := service.NewEventService(events, clk, logger)
	purchaseSvc := service.NewPurchaseService(events, userRepo, txnRepo, gateway, clk, cfg.Payment.Timeout, logger)
	paymentSvc := service.NewPaymentService(txnRepo, ticketRepo, clk, logger)
	ticketSvc := service.NewTicketService(ticketRepo, codec, clk, logger)

	// ── 4. Build the router ───────────────────────────────────────────────
	router := &handler.Router{
		Log:         logger,
		Auth:        auth.NewVerifier(cfg.Auth.JWTSecret, cfg.Auth.Issuer),
		CORSOrigins: cfg.Server.CORSOrigins,
		Health:      handler.NewHealthHandler(pool, logger),
		Events:      handler.NewEventHandler(eventSvc, logger),
		Purchases:   handler.NewPurchaseHandler(purchaseSvc, logger),
		Webhooks:    handler.NewWebhookHandler(paymentSvc, stripeParser, cfg.Webhook.Secret, logger),
		Tickets:     handler.NewTicketHandler(ticketSvc, logger),
	}

	// ── 5. Start server with graceful shutdown ────────────────────────────
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening",
			zap.Int("port", cfg.Server.Port),
			zap.String("payment_provider", cfg.Payment.Provider),
			zap.String("environment", cfg.App.Environment),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
	}

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	logger.Info("server stopped")
	return nil
}

func newLogger(app config.AppConfig) (*zap.Logger, error) {
	if app.Debug || app.Environment == "development" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
