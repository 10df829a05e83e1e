package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/rs/zerolog"
	"github.com/unrolled/secure"

	"github.com/Simplici0/sims/internal/config"
	"github.com/Simplici0/sims/internal/db"
	"github.com/Simplici0/sims/internal/logging"
	"github.com/Simplici0/sims/internal/metrics"
	"github.com/Simplici0/sims/internal/migrations"
	"github.com/Simplici0/sims/internal/seed"
	"github.com/Simplici0/sims/internal/store"
)

type server struct {
	store   *store.Store
	log     zerolog.Logger
	metrics *metrics.Metrics
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLog := logging.New(os.Stderr, "info", "json")
		bootLog.Fatal().Err(err).Msg("failed to load config")
	}
	logger := logging.New(os.Stdout, cfg.LogLevel, cfg.LogFormat)
	if len(cfg.DotEnvKeys) > 0 {
		logger.Debug().Strs("keys", cfg.DotEnvKeys).Msg("loaded .env")
	}

	if err := run(cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("server stopped")
	}
}

func run(cfg config.Config, logger zerolog.Logger) error {
	database, err := db.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer database.Close()

	if err := migrations.Up(database); err != nil {
		return err
	}
	version, err := migrations.Version(database)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stats, err := seed.Run(ctx, database, seed.Config{DefaultPrinter: cfg.SeedDefaultPrinter})
	if err != nil {
		return err
	}
	logger.Info().
		Str("db_path", cfg.DBPath).
		Int64("schema_version", version).
		Int("seed_inserts", stats.Inserts).
		Msg("database ready")

	srv := &server{
		store:   store.New(database),
		log:     logger,
		metrics: metrics.New(),
	}

	httpServer := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           srv.routes(cfg),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", httpServer.Addr).Str("env", cfg.AppEnv).Msg("listening")
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

func (s *server) routes(cfg config.Config) http.Handler {
	secureMiddleware := secure.New(secure.Options{
		FrameDeny:          true,
		ContentTypeNosniff: true,
		BrowserXssFilter:   true,
		ReferrerPolicy:     "strict-origin-when-cross-origin",
		SSLRedirect:        cfg.IsProduction(),
		SSLProxyHeaders:    map[string]string{"X-Forwarded-Proto": "https"},
		IsDevelopment:      cfg.IsDev(),
	})

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(logging.Middleware(s.log))
	r.Use(s.metrics.Middleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(cfg.RequestTimeout))
	r.Use(secureMiddleware.Handler)
	r.Use(httprate.Limit(cfg.RateLimitPerMinute, time.Minute, httprate.WithKeyFuncs(httprate.KeyByIP)))

	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/settings", s.handleGetSettings)
		r.Put("/settings", s.handlePutSettings)

		r.Get("/manufacturers", s.handleManufacturers)

		r.Route("/filaments", func(r chi.Router) {
			r.Get("/", s.handleListFilaments)
			r.Post("/", s.handleCreateFilament)
			r.Get("/{id}", s.handleGetFilament)
			r.Put("/{id}", s.handleUpdateFilament)
			r.Patch("/{id}", s.handleUpdateFilament)
			r.Delete("/{id}", s.handleDeleteFilament)
			r.Post("/{id}/adjust", s.handleAdjustFilament)
			r.Delete("/{id}/minimum-override", s.handleResetMinimumOverride)
		})

		r.Route("/parts", func(r chi.Router) {
			r.Get("/", s.handleListParts)
			r.Post("/", s.handleCreatePart)
			r.Get("/{id}", s.handleGetPart)
			r.Put("/{id}", s.handleUpdatePart)
			r.Patch("/{id}", s.handleUpdatePart)
			r.Delete("/{id}", s.handleDeletePart)
		})

		r.Route("/printers", func(r chi.Router) {
			r.Get("/", s.handleListPrinters)
			r.Post("/", s.handleCreatePrinter)
			r.Get("/{id}", s.handleGetPrinter)
			r.Put("/{id}", s.handleRenamePrinter)
			r.Patch("/{id}", s.handleRenamePrinter)
			r.Delete("/{id}", s.handleDeletePrinter)
		})

		r.Route("/print-queue", func(r chi.Router) {
			r.Get("/", s.handleListQueue)
			r.Post("/", s.handleCreateQueueItem)
			r.Put("/order", s.handleReorderQueue)
			r.Get("/{id}", s.handleGetQueueItem)
			r.Put("/{id}", s.handleUpdateQueueItem)
			r.Patch("/{id}", s.handleUpdateQueueItem)
			r.Delete("/{id}", s.handleDeleteQueueItem)
		})

		r.Route("/purchase-list", func(r chi.Router) {
			r.Get("/", s.handleListPurchases)
			r.Post("/", s.handleCreatePurchase)
			r.Post("/reorder-suggestions", s.handleAddReorderSuggestions)
			r.Get("/{id}", s.handleGetPurchase)
			r.Put("/{id}", s.handleUpdatePurchase)
			r.Patch("/{id}", s.handleUpdatePurchase)
			r.Delete("/{id}", s.handleDeletePurchase)
		})

		r.Route("/products", func(r chi.Router) {
			r.Get("/", s.handleListProducts)
			r.Post("/", s.handleCreateProduct)
			r.Get("/summary", s.handleProductSummary)
			r.Get("/{id}", s.handleGetProduct)
			r.Put("/{id}", s.handleUpdateProduct)
			r.Patch("/{id}", s.handleUpdateProduct)
			r.Delete("/{id}", s.handleDeleteProduct)
			r.Get("/{id}/text", s.handleProductText)
			r.Get("/{id}/filaments", s.handleListProductFilaments)
			r.Post("/{id}/filaments", s.handleAttachFilament)
			r.Put("/{id}/filaments/{filamentID}", s.handleSetFilamentUsage)
			r.Delete("/{id}/filaments/{filamentID}", s.handleDetachFilament)
		})
	})

	return r
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		s.log.Error().Err(err).Msg("health check failed")
		http.Error(w, "database unavailable", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}
