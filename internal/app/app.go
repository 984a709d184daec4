// Package app wires the storefront gateway together: configuration, storage
// backends, the marketplace client, HTTP surface and lifecycle.
package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/agriteranga/storefront/internal/cart"
	"github.com/agriteranga/storefront/internal/handler"
	"github.com/agriteranga/storefront/internal/marketplace"
	"github.com/agriteranga/storefront/internal/storage/localstore"
	"github.com/agriteranga/storefront/internal/storage/postgres"
	"github.com/agriteranga/storefront/pkg/health"
	"github.com/agriteranga/storefront/pkg/httpmiddleware"
)

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the gateway.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing", zap.String("addr", cfg.Addr), zap.String("marketplace", cfg.MarketplaceURL))

	client, err := marketplace.NewClient(cfg.MarketplaceURL)
	if err != nil {
		return errors.Wrap(err, "create marketplace client")
	}

	// Health check service.
	healthSvc := health.New()
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))

	// Guest cart backend: PostgreSQL when configured, files otherwise.
	var (
		newLocal cart.BackendFactory
		catalog  handler.CatalogCache
	)
	if cfg.DatabaseURL != "" {
		pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return errors.Wrap(err, "create db pool")
		}
		defer pool.Close()

		if err := postgres.RunMigrations(ctx, pool); err != nil {
			return errors.Wrap(err, "run migrations")
		}

		healthSvc.AddReadinessCheck("postgres", 5*time.Second, func(ctx context.Context) error {
			return pool.Ping(ctx)
		})

		newLocal = func(ownerID string) cart.LocalBackend {
			return postgres.NewCartStore(pool, ownerID)
		}
		catalog = postgres.NewCatalogRepository(pool)
		lg.Info("Using PostgreSQL cart backend")
	} else {
		newLocal = func(ownerID string) cart.LocalBackend {
			store, err := localstore.New(cfg.DataDir, ownerID)
			if err != nil {
				lg.Error("Create local cart store", zap.String("owner", ownerID), zap.Error(err))
				return brokenBackend{err: err}
			}
			return store
		}
		lg.Info("Using file cart backend", zap.String("dir", cfg.DataDir))
	}

	registry := cart.NewRegistry(newLocal, client)
	h := handler.NewHandler(client, registry, catalog)

	healthSvc.SetReady(true)

	mux := http.NewServeMux()
	mux.HandleFunc("/livez", healthSvc.LiveEndpoint)
	mux.HandleFunc("/readyz", healthSvc.ReadyEndpoint)
	mux.Handle("/api/", http.StripPrefix("/api", h.Routes()))

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler: httpmiddleware.Wrap(mux,
			httpmiddleware.Recovery(),
			httpmiddleware.CORS(httpmiddleware.CORSConfig{
				AllowOrigins:     cfg.CORS.Origins,
				AllowHeaders:     []string{"Content-Type", "Authorization", "X-Device-ID"},
				AllowCredentials: cfg.CORS.AllowCredentials,
				MaxAge:           86400,
			}),
			httpmiddleware.RateLimitWithCleanup(ctx, httpmiddleware.RateLimitConfig{
				Max:    cfg.RateLimit.Max,
				Window: cfg.RateLimit.Window,
			}),
			httpmiddleware.RequestID(),
			httpmiddleware.InjectLogger(zctx.From(ctx)),
			httpmiddleware.Instrument("storefront-gateway",
				otelhttp.WithTracerProvider(m.TracerProvider()),
				otelhttp.WithMeterProvider(m.MeterProvider()),
			),
			httpmiddleware.LogRequests(),
		),
	}

	// Graceful shutdown: stop advertising readiness, drain, then stop.
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
		close(shutdownDone)
	}()

	lg.Info("Server listening", zap.String("addr", cfg.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server")
	}
	<-shutdownDone
	return nil
}

// brokenBackend surfaces a store-creation failure on first use instead of
// crashing the device's request path.
type brokenBackend struct {
	err error
}

func (b brokenBackend) LoadCart(context.Context) ([]cart.Item, error) { return nil, b.err }
func (b brokenBackend) SaveCart(context.Context, []cart.Item) error   { return b.err }
func (b brokenBackend) LastSeenUser(context.Context) (string, error)  { return "", b.err }
func (b brokenBackend) SetLastSeenUser(context.Context, string) error { return b.err }
