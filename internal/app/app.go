package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/softguidetech/karage/internal/api"
	"github.com/softguidetech/karage/internal/cache"
	"github.com/softguidetech/karage/internal/domain/auth"
	"github.com/softguidetech/karage/internal/domain/pos"
	"github.com/softguidetech/karage/internal/domain/tax"
	"github.com/softguidetech/karage/internal/repository"
	"github.com/softguidetech/karage/pkg/health"
	"github.com/softguidetech/karage/pkg/httpmiddleware"
)

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Metrics, cfg *Config) error {
	lg.Info("Initializing", zap.String("addr", cfg.Addr))

	// PostgreSQL pool + migrations.
	pool, err := repository.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return errors.Wrap(err, "create db pool")
	}
	defer pool.Close()

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	// Health check service.
	healthSvc := health.New()
	healthSvc.AddReadinessCheck("postgres", 5*time.Second, health.PingCheck(pool.Ping))
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))
	healthSvc.Start(ctx, 10*time.Second)
	healthSvc.SetReady(true)

	// Repositories.
	apikeyRepo := repository.NewAPIKeyRepository(pool)
	uomRepo := repository.NewUoMRepository(pool)
	productRepo := repository.NewProductRepository(pool)
	vendorRepo := repository.NewVendorRepository(pool)
	sessionRepo := repository.NewSessionRepository(pool)
	saleProductRepo := repository.NewSaleProductRepository(pool)
	methodRepo := repository.NewPaymentMethodRepository(pool)
	fiscalRepo := repository.NewFiscalPositionRepository(pool)
	orderRepo := repository.NewOrderRepository(pool)

	// Authentication.
	authn := auth.NewAuthenticator(apikeyRepo)
	if cfg.Auth.Prefilter {
		if err := authn.LoadPrefilter(ctx); err != nil {
			return errors.Wrap(err, "load api key prefilter")
		}
	}

	// Domain services.
	orderService := pos.NewService(
		sessionRepo,
		saleProductRepo,
		methodRepo,
		fiscalRepo,
		tax.NewCalculator(),
		orderRepo,
	)

	// Optional catalog response cache.
	var responses cache.Cache
	if cfg.Cache.RedisAddr != "" {
		responses = cache.NewRedis(cfg.Cache.RedisAddr, "karage")
		lg.Info("Catalog response cache enabled", zap.String("redis", cfg.Cache.RedisAddr))
	}

	// HTTP handlers.
	h := api.NewHandler(
		api.HandlerConfig{Version: cfg.Version, CacheTTL: cfg.Cache.TTL},
		authn,
		uomRepo,
		productRepo,
		vendorRepo,
		orderService,
		responses,
	)

	root := chi.NewRouter()
	root.Get("/livez", healthSvc.LiveEndpoint)
	root.Get("/readyz", healthSvc.ReadyEndpoint)
	root.Mount("/api/v1", h.Routes())

	handler := httpmiddleware.Wrap(root,
		httpmiddleware.Recovery(),
		httpmiddleware.CORS(httpmiddleware.CORSConfig{
			AllowOrigins: cfg.CORS.Origins,
			AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowHeaders: []string{"Content-Type"},
			MaxAge:       3600,
		}),
		httpmiddleware.RateLimit(httpmiddleware.RateLimitConfig{
			Max:    cfg.RateLimit.Max,
			Window: cfg.RateLimit.Window,
		}),
		httpmiddleware.RequestID(),
		httpmiddleware.InjectLogger(zctx.From(ctx)),
		httpmiddleware.LogRequests(),
	)
	handler = otelhttp.NewHandler(handler, "karage-api",
		otelhttp.WithTracerProvider(m.TracerProvider()),
		otelhttp.WithMeterProvider(m.MeterProvider()),
	)

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler:           handler,
	}

	// Graceful shutdown: wait for context cancellation, drain, then stop.
	shutdownDone := make(chan struct{})
	go func() {
		<-ctx.Done()
		healthSvc.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
		healthSvc.Stop()
		close(shutdownDone)
	}()

	lg.Info("Server listening", zap.String("addr", cfg.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server")
	}
	<-shutdownDone
	return nil
}
