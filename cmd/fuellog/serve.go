package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"fuellog/internal/adapter/amqp"
	"fuellog/internal/adapter/gemini"
	adapthttp "fuellog/internal/adapter/http"
	"fuellog/internal/app"
	"fuellog/internal/config"
	"fuellog/internal/domain"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the dashboard and API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}
		return serve(cmd.Context(), cfg, logger)
	},
}

func serve(parent context.Context, cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := openStore(cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = st.close() }()

	srv, feed, authSvc, err := newServer(ctx, cfg, st, logger)
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)

	if cfg.AMQPURL != "" {
		pub, err := amqp.Dial(cfg.AMQPURL, cfg.AMQPExchange, logger)
		if err != nil {
			return err
		}
		defer func() { _ = pub.Close() }()
		unsubscribe := feed.SubscribeAll(pub.Handle)
		defer unsubscribe()
		g.Go(func() error { return pub.Run(ctx) })
		logger.Info("publishing record changes", "exchange", cfg.AMQPExchange, "routing_key", amqp.RoutingKey)
	}

	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g.Go(func() error {
		logger.Info("listening", "addr", cfg.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	g.Go(func() error {
		ticker := time.NewTicker(cfg.SessionSweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				if err := authSvc.SweepExpired(ctx); err != nil {
					logger.Warn("session sweep failed", "error", err)
				}
				srv.ReceiptLimiter().Sweep()
			}
		}
	})

	if err := g.Wait(); err != nil {
		logger.Error("server stopped", "error", err)
		return err
	}
	return nil
}

// newServer wires the services over st and applies the auth settings.
func newServer(ctx context.Context, cfg *config.Config, st *store, logger *slog.Logger) (*adapthttp.Server, *app.Feed, *app.AuthService, error) {
	feed := app.NewFeed(st.fuel, logger)
	authSvc := app.NewAuthService(st.users, st.sessions, logger)
	svc := adapthttp.Services{
		Fuel:     app.NewFuelService(st.fuel, feed, logger),
		Stats:    app.NewStatsService(st.fuel, statsPolicy(cfg)),
		Receipts: app.NewReceiptService(receiptExtractor(cfg, logger), logger),
		Auth:     authSvc,
		Feed:     feed,
	}

	srv := adapthttp.New(svc, cfg.WebDir).
		WithLogger(logger).
		WithReceiptLimit(cfg.ReceiptRatePerMin, cfg.ReceiptBurst)
	if cfg.AuthDisabled {
		local, err := authSvc.LocalUser(ctx)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("provision local user: %w", err)
		}
		logger.Warn("authentication disabled, every request acts as the local user", "user_id", local.ID)
		srv = srv.WithoutAuth(local)
	}
	if cfg.OIDCEnabled() {
		oidcCfg, err := adapthttp.NewOIDCConfig(ctx, cfg.OIDCIssuer, cfg.OIDCClientID, cfg.OIDCClientSecret, cfg.OIDCRedirectURL)
		if err != nil {
			return nil, nil, nil, err
		}
		srv = srv.WithOIDC(oidcCfg)
		logger.Info("sso enabled", "issuer", cfg.OIDCIssuer)
	}
	return srv, feed, authSvc, nil
}

func receiptExtractor(cfg *config.Config, logger *slog.Logger) domain.ReceiptExtractor {
	if cfg.GeminiAPIKey == "" {
		logger.Info("GEMINI_API_KEY not set, receipts must be entered by hand")
		return app.ManualExtractor{}
	}
	ext, err := gemini.New(gemini.Config{
		APIKey:  cfg.GeminiAPIKey,
		Model:   cfg.GeminiModel,
		Timeout: cfg.GeminiTimeout,
	})
	if err != nil {
		logger.Warn("receipt extraction disabled", "error", err)
		return app.ManualExtractor{}
	}
	return ext
}
