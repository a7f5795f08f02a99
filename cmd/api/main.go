package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wolfman30/salon-booking/cmd/mainconfig"
	"github.com/wolfman30/salon-booking/internal/api/router"
	"github.com/wolfman30/salon-booking/internal/app/bootstrap"
	appconfig "github.com/wolfman30/salon-booking/internal/config"
	"github.com/wolfman30/salon-booking/internal/customer"
	"github.com/wolfman30/salon-booking/internal/http/handlers"
	httpmiddleware "github.com/wolfman30/salon-booking/internal/http/middleware"
	"github.com/wolfman30/salon-booking/internal/observability/metrics"
	"github.com/wolfman30/salon-booking/internal/salonapi"
	"github.com/wolfman30/salon-booking/internal/session"
	"github.com/wolfman30/salon-booking/internal/suggest"
	"github.com/wolfman30/salon-booking/internal/wizard"
	"github.com/wolfman30/salon-booking/pkg/logging"
)

func main() {
	_ = godotenv.Load()
	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting salon booking API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx := context.Background()
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		logger.Error("invalid timezone", "timezone", cfg.Timezone, "error", err)
		os.Exit(1)
	}

	kv, closeKV := bootstrap.BuildSessionKV(ctx, cfg, logger)
	defer closeKV()

	metricsHandler, upstreamMetrics, bookingMetrics := setupMetrics()

	suggester, closeLLM, err := bootstrap.BuildSuggester(ctx, cfg, func(ctx context.Context) (aws.Config, error) {
		return mainconfig.LoadAWSConfig(ctx, cfg)
	}, bookingMetrics, logger)
	if err != nil {
		logger.Error("failed to configure suggestions", "error", err)
		os.Exit(1)
	}
	defer closeLLM()

	r := buildRouter(cfg, kv, loc, suggester, metricsHandler, upstreamMetrics, bookingMetrics, logger)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
	fmt.Println("Server exited gracefully")
}

func setupMetrics() (http.Handler, *metrics.UpstreamMetrics, *metrics.BookingMetrics) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	handler := promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
	return handler, metrics.NewUpstreamMetrics(reg), metrics.NewBookingMetrics(reg)
}

func buildRouter(
	cfg *appconfig.Config,
	kv session.KV,
	loc *time.Location,
	suggester *suggest.Suggester,
	metricsHandler http.Handler,
	upstreamMetrics *metrics.UpstreamMetrics,
	bookingMetrics *metrics.BookingMetrics,
	logger *logging.Logger,
) http.Handler {
	client := salonapi.NewClient(salonapi.Options{
		IdentityBaseURL: cfg.IdentityBaseURL,
		SalonBaseURL:    cfg.SalonBaseURL,
		AppCode:         cfg.AppCode,
		Timeout:         cfg.UpstreamTimeout,
		Logger:          logger,
		Metrics:         upstreamMetrics,
	})

	sessions := session.NewManager(kv, cfg.SessionTTL, logger)
	customers := customer.NewRegistry(sessions, customer.SalonLookup(client), customer.Backoff{
		Base:        cfg.CustomerRefreshBaseDelay,
		Max:         cfg.CustomerRefreshMaxDelay,
		MaxAttempts: cfg.CustomerRefreshMaxAttempts,
	}, cfg.SessionTTL, logger)

	if !cfg.MetricsEnabled {
		metricsHandler = nil
	}

	return router.New(&router.Config{
		Logger:   logger,
		Sessions: sessions,
		Cookie: httpmiddleware.CookieOptions{
			Name:   cfg.SessionCookieName,
			Secure: cfg.SessionCookieSecure,
			TTL:    cfg.SessionTTL,
		},
		Auth:    handlers.NewAuthHandler(client, customers, logger),
		Catalog: handlers.NewCatalogHandler(client, logger),
		Booking: handlers.NewBookingHandler(handlers.BookingConfig{
			Client:    client,
			Customers: customers,
			Location:  loc,
			Language:  wizard.ParseLanguage(cfg.Language),
			TTL:       cfg.SessionTTL,
			Suggester: suggester,
			Metrics:   bookingMetrics,
			Logger:    logger,
		}),
		Admin:              handlers.NewAdminHandler(client, sessions, cfg.SessionTTL, loc, bookingMetrics, logger),
		MetricsHandler:     metricsHandler,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		RateLimitRPS:       cfg.RateLimitRPS,
		RateLimitBurst:     cfg.RateLimitBurst,
	})
}
