package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/kevin07696/cybermut-service/internal/adapters/cybermut"
	"github.com/kevin07696/cybermut-service/internal/adapters/memory"
	"github.com/kevin07696/cybermut-service/internal/adapters/secrets"
	"github.com/kevin07696/cybermut-service/internal/config"
	paymentHandler "github.com/kevin07696/cybermut-service/internal/handlers/payment"
	"github.com/kevin07696/cybermut-service/internal/middleware"
	"github.com/kevin07696/cybermut-service/pkg/logging"
	ratelimit "github.com/kevin07696/cybermut-service/pkg/middleware"
	"github.com/kevin07696/cybermut-service/pkg/observability"
	"github.com/kevin07696/cybermut-service/pkg/shutdown"
)

func main() {
	configPath := flag.String("config", os.Getenv("CONFIG_FILE"), "path to the YAML configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Environment, cfg.Logger.Level)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	shutdownManager := shutdown.NewManager(logger, cfg.Server.ShutdownTimeout)
	shutdownManager.RegisterNoErr("logger", func() { _ = logger.Sync() })

	logger.Info("Starting cybermut service",
		zap.String("environment", cfg.Environment),
		zap.String("bank", cfg.Cybermut.Bank),
		zap.String("version", cfg.Cybermut.Version),
		zap.String("key_store", cfg.KeyStore.Backend),
	)

	ctx := context.Background()

	store, closeStore, err := secrets.NewFromConfig(ctx, cfg.KeyStore, logger)
	if err != nil {
		logger.Fatal("Failed to initialize key store", zap.Error(err))
	}
	shutdownManager.RegisterFunc("key_store", closeStore)

	gatewayConfig := cfg.Gateway(cybermut.DefaultLanguages)
	keyLoader := cybermut.NewKeyLoader(store, keyPaths(cfg), logger)
	provider := cybermut.NewProvider(gatewayConfig, keyLoader, logger)

	if err := provider.CheckSigningKey(ctx); err != nil {
		// Not fatal: the key can be imported at runtime with cybermut-admin
		logger.Warn("No usable signing key yet", zap.Error(err))
	}

	orders := memory.NewOrderStore(logger,
		memory.WithRiskyAcceptedStatus(memory.OrderStatus(cfg.Cybermut.AcceptedStatus3DSRisky)),
	)
	if cfg.Server.OrdersFile != "" {
		n, err := loadOrders(ctx, orders, cfg.Server.OrdersFile)
		if err != nil {
			logger.Fatal("Failed to load orders", zap.String("file", cfg.Server.OrdersFile), zap.Error(err))
		}
		logger.Info("Loaded orders", zap.Int("count", n))
	}

	handler := paymentHandler.NewCybermutHandler(provider, orders, orders, logger, cfg.Server.TrustProxy)

	var limiter *ratelimit.RateLimiter
	if cfg.RateLimit.Enabled {
		limiter = ratelimit.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst, func(r *http.Request) string {
			return middleware.ClientIP(r, cfg.Server.TrustProxy)
		}, logger)
		shutdownManager.RegisterNoErr("rate_limiter", limiter.Shutdown)
	}

	securityHeaders := middleware.NewSecurityHeaders(
		!cfg.IsProduction(),
		formActionOrigins(),
		[]string{paymentHandler.AutoSubmitScriptHash()},
	)

	router := newRouter(handler, limiter, securityHeaders, logger)

	httpServer := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	healthChecker := observability.NewHealthChecker(2 * time.Second)
	healthChecker.Register("signing_key", provider.CheckSigningKey)
	metricsServer := observability.StartMetricsServer(fmt.Sprintf("%d", cfg.Server.MetricsPort), healthChecker, logger)

	shutdownManager.RegisterHTTPServer("metrics_server", metricsServer)
	shutdownManager.RegisterHTTPServer("http_server", httpServer)

	go func() {
		logger.Info("HTTP server listening", zap.String("address", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to serve HTTP", zap.Error(err))
		}
	}()

	shutdownManager.WaitForSignal(ctx)
	if err := shutdownManager.Shutdown(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newRouter mounts the payment routes
func newRouter(h *paymentHandler.CybermutHandler, limiter *ratelimit.RateLimiter, securityHeaders *middleware.SecurityHeaders, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(recoverer(logger))
	r.Use(observability.HTTPMetrics)
	r.Use(securityHeaders.Middleware)

	r.Route("/payments/cybermut", func(r chi.Router) {
		// Notifications are not rate limited
		r.Post("/notify", h.Notify)
		r.Get("/notify", h.Notify)

		r.Group(func(r chi.Router) {
			if limiter != nil {
				r.Use(limiter.Middleware)
			}
			r.Get("/redirect", h.Redirect)
			r.Get("/success", h.Success)
			r.Get("/error", h.Error)
		})
	})

	return r
}

// recoverer logs panics with zap and answers 500
func recoverer(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					if rec == http.ErrAbortHandler {
						panic(rec)
					}
					logger.Error("Panic recovered in HTTP handler",
						zap.String("path", r.URL.Path),
						zap.String("request_id", chimiddleware.GetReqID(r.Context())),
						zap.Any("panic", rec),
						zap.Stack("stack"),
					)
					http.Error(w, "internal server error", http.StatusInternalServerError)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

func keyPaths(cfg *config.Config) cybermut.KeyPaths {
	return cybermut.KeyPaths{
		SecurityKey:  cfg.KeyStore.Paths.SecurityKey,
		EncryptedKey: cfg.KeyStore.Paths.EncryptedKey,
		SHAKey:       cfg.KeyStore.Paths.SHAKey,
		Key:          cfg.KeyStore.Paths.Key,
	}
}

// formActionOrigins lists every bank payment page origin, live and test share one host
func formActionOrigins() []string {
	seen := make(map[string]bool)
	var origins []string
	for _, bank := range cybermut.Banks() {
		origin := cybermut.EndpointFor(bank).Origin()
		if origin != "" && !seen[origin] {
			seen[origin] = true
			origins = append(origins, origin)
		}
	}
	return origins
}
