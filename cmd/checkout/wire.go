package main

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/subfusion/checkout/internal/checkout/app"
	"github.com/subfusion/checkout/internal/checkout/core/domain/pricing"
	"github.com/subfusion/checkout/internal/checkout/infra/adapters/gateway"
	"github.com/subfusion/checkout/internal/checkout/infra/adapters/idempotency"
	"github.com/subfusion/checkout/internal/checkout/infra/adapters/notify"
	"github.com/subfusion/checkout/internal/checkout/infra/adapters/token"
	"github.com/subfusion/checkout/internal/checkout/infra/httpx"
	"github.com/subfusion/checkout/internal/checkout/journal"
	"github.com/subfusion/checkout/internal/checkout/journal/sqlite"
	"github.com/subfusion/checkout/internal/pkg/cache"
	"github.com/subfusion/checkout/internal/pkg/config"
)

const serviceName = "checkout"

// buildRouter wires every adapter from cfg. The returned cleanup closes
// the connections it opened and is safe to call once.
func buildRouter(ctx context.Context, cfg *config.Config) (http.Handler, func(), error) {
	var closers []func() error
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil {
				slog.Error("close failed", "error", err)
			}
		}
	}

	calc := pricing.NewCalculator(cfg.Pricing.FeeRate)

	codec := token.New(cfg.OrderTokenSecret)
	if cfg.OrderTokenSecret == "" {
		slog.Warn("ORDER_TOKEN_SECRET not set, order tokens are unsigned")
	}

	baseURL := gateway.LiveBaseURL
	if cfg.Gateway.Sandbox {
		baseURL = gateway.SandboxBaseURL
	}
	gw := gateway.NewCircuitBreakerGateway(
		gateway.NewSSLCommerz(gateway.Config{
			StoreID:       cfg.Gateway.StoreID,
			StorePassword: cfg.Gateway.StorePassword,
			BaseURL:       baseURL,
			Timeout:       cfg.Gateway.Timeout,
		}, nil),
		gateway.CircuitBreakerConfig{},
	)
	if !cfg.GatewayLive() {
		slog.Warn("SSL_STORE_ID/SSL_STORE_PASSWD not set, checkout runs in demo mode")
	}

	var mailer notify.Mailer
	smtpCfg := notify.SMTPConfig{
		Host:     cfg.Mail.Host,
		Port:     cfg.Mail.Port,
		Secure:   cfg.Mail.Secure,
		Username: cfg.Mail.User,
		Password: cfg.Mail.Pass,
		Timeout:  cfg.Mail.Timeout,
	}
	if smtpCfg.Configured() {
		m, err := notify.NewSMTPMailer(smtpCfg)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		mailer = m
	} else {
		slog.Warn("SMTP not configured, receipts are logged only")
	}
	dispatcher := notify.NewDispatcher(mailer, notify.DispatcherConfig{
		CurrencySymbol: cfg.Pricing.CurrencySymbol,
		From:           cfg.Mail.From,
		MerchantEmail:  cfg.Mail.OwnerEmail,
		Timeout:        cfg.Mail.Timeout,
	})

	idem := idempotency.NewStore(receiptCache(ctx, cfg, &closers))

	var repo journal.Repository
	if cfg.JournalPath != "" {
		r, err := sqlite.Open(cfg.JournalPath)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		closers = append(closers, r.Close)
		repo = r
		slog.Info("reconciliation journal enabled", "path", cfg.JournalPath)
	}

	sessions := app.NewSessionInitiator(calc, codec, gw, repo, app.SessionConfig{
		Live:      cfg.GatewayLive(),
		DemoURL:   gateway.DemoCheckoutURL,
		Currency:  cfg.Pricing.Currency,
		MinCharge: cfg.Pricing.MinCharge,
		BaseURL:   cfg.BaseURL,
	})
	reconciler := app.NewReconciler(gw, codec, dispatcher, idem, repo, app.ReconcilerConfig{
		Currency:   cfg.Pricing.Currency,
		MinCharge:  cfg.Pricing.MinCharge,
		ReceiptTTL: cfg.ReceiptDedupTTL,
	})
	orders := app.NewOrderService(calc, dispatcher, repo, cfg.ManualPayMethods)

	handler := httpx.NewHandler(sessions, reconciler, orders, httpx.HandlerConfig{
		CurrencySymbol: cfg.Pricing.CurrencySymbol,
	})
	router := httpx.NewRouter(handler, httpx.RouterConfig{
		AllowedOrigins: cfg.CORSAllowedOrigins,
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
	})
	return router, cleanup, nil
}

// receiptCache prefers Redis so replays are caught across instances, and
// falls back to process memory when Redis is unset or unreachable.
func receiptCache(ctx context.Context, cfg *config.Config, closers *[]func() error) cache.Cache {
	if cfg.RedisAddr == "" {
		return cache.NewMemoryCache(serviceName)
	}

	rc := cache.NewRedisCache(cfg.RedisAddr, serviceName)
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := rc.Ping(pingCtx); err != nil {
		slog.Warn("redis unreachable, receipt dedup is per process", "addr", cfg.RedisAddr, "error", err)
		_ = rc.Close()
		return cache.NewMemoryCache(serviceName)
	}
	*closers = append(*closers, rc.Close)
	return rc
}
