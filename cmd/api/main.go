//	@title			PhotoAlbum API
//	@version		1.0
//	@description	Upload, browse and delete photos backed by object storage and a live record feed.
//
//	@host		localhost:8080
//	@BasePath	/api/v1
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				JWT Bearer token. Format: **Bearer {token}**

package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger/v2"
	"golang.org/x/sync/errgroup"

	"github.com/photoalbum/service/internal/apperr"
	"github.com/photoalbum/service/internal/backend"
	"github.com/photoalbum/service/internal/config"
	"github.com/photoalbum/service/internal/gallery"
	"github.com/photoalbum/service/internal/logging"
	"github.com/photoalbum/service/internal/metrics"
	appMiddleware "github.com/photoalbum/service/internal/middleware"
	"github.com/photoalbum/service/internal/uiloop"
	"github.com/photoalbum/service/internal/upload"

	_ "github.com/photoalbum/service/docs/swagger"
)

func main() {
	if err := run(); err != nil {
		os.Exit(1)
	}
}

// run serves the API until SIGINT or SIGTERM. Errors are logged before they
// are returned so main only has to pick the exit code.
func run() error {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		return err
	}
	logger := logging.Setup(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	be, err := backend.Configure(ctx, cfg)
	if err != nil {
		alert, _ := apperr.AlertOf(err)
		logger.Error(alert.Message, "title", alert.Title, "error", err)
		return err
	}
	defer be.Close()

	m := metrics.MustNew(prometheus.DefaultRegisterer)
	loop := uiloop.New()
	defer loop.Close()

	// Wire dependencies: backend → flows → handlers
	flow := upload.NewFlow(be.Objects, be.Posts, m, cfg.JPEGQuality)
	uploadHandler := upload.NewHandler(flow, be.Objects, cfg.MaxUploadBytes)

	g := gallery.New(be.Objects, be.Posts, loop, gallery.Options{
		Concurrency: cfg.FetchConcurrency,
		Metrics:     m,
		OnAlert: func(a apperr.Alert) {
			logger.Warn("alert", "title", a.Title, "message", a.Message)
		},
	})
	galleryHandler := gallery.NewHandler(g, be.Objects, be.Feed)

	// Router
	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(appMiddleware.Logger(logger))
	r.Use(chiMiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		MaxAge:         300,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Handle("/metrics", promhttp.Handler())

	// Swagger UI available at http://localhost:8080/swagger/
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	// API v1
	r.Route("/api/v1/photos", func(r chi.Router) {
		r.Get("/", galleryHandler.List)
		r.Get("/events", galleryHandler.Events)
		r.Get("/{key}", galleryHandler.Image)

		r.Group(func(r chi.Router) {
			if cfg.AuthEnabled() {
				r.Use(appMiddleware.RequireAuth(cfg.JWTSecret))
			} else {
				logger.Warn("JWT_SECRET is empty, mutating routes are unauthenticated")
			}
			r.Post("/", uploadHandler.Upload)
			r.Post("/refresh", galleryHandler.Refresh)
			r.Delete("/{key}", galleryHandler.Delete)
		})
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	eg, egCtx := errgroup.WithContext(ctx)

	events, cancelEvents := be.Feed.Subscribe()
	defer cancelEvents()
	eg.Go(func() error { return be.Feed.Run(egCtx) })
	eg.Go(func() error { return g.Subscribe(egCtx, events) })
	eg.Go(func() error {
		if err := g.Refresh(egCtx); err != nil {
			logger.Warn("initial refresh incomplete", "error", err)
		}
		return nil
	})

	eg.Go(func() error {
		logger.Info("server listening", "port", cfg.Port, "env", cfg.AppEnv)
		logger.Info("swagger UI at http://localhost:" + cfg.Port + "/swagger/")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	eg.Go(func() error {
		<-egCtx.Done()
		logger.Info("shutting down gracefully...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := eg.Wait(); err != nil {
		logger.Error("server stopped with error", "error", err)
		return err
	}
	logger.Info("server stopped")
	return nil
}
