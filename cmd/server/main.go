// Command gallery-server serves the live media gallery over HTTP and reports
// readiness over gRPC health.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/and161185/goph-gallery/internal/backend"
	"github.com/and161185/goph-gallery/internal/config"
	"github.com/and161185/goph-gallery/internal/gallery"
	"github.com/and161185/goph-gallery/internal/logging"
	"github.com/and161185/goph-gallery/internal/metrics"
	"github.com/and161185/goph-gallery/internal/render/html"
	grpcserver "github.com/and161185/goph-gallery/internal/server/grpc"
	httpserver "github.com/and161185/goph-gallery/internal/server/http"
	"github.com/and161185/goph-gallery/internal/service"
	"github.com/and161185/goph-gallery/internal/upload"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

// main loads configuration, opens the stores and runs the HTTP and gRPC servers
// until SIGINT/SIGTERM.
func main() {
	cfgPath := flag.String("config", os.Getenv("GALLERY_CONFIG"), "config file (yaml/toml/json)")
	dev := flag.Bool("dev", false, "development logging and gRPC reflection")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if *dev {
		cfg.Log.Development = true
	}

	logger, err := logging.New(cfg.Log.Development, cfg.Log.Level)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	defer func() { _ = logger.Sync() }()
	logger.Info("starting",
		zap.String("version", version),
		zap.String("buildDate", buildDate),
		zap.String("addr", cfg.Server.Addr),
		zap.String("store", cfg.Store.Driver),
		zap.String("blobs", cfg.Blob.Driver),
	)

	// Context with OS signals
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	be, err := backend.Open(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("open backend", zap.Error(err))
	}
	defer be.Close()
	go be.Run(ctx)

	m := metrics.New()
	catalog := service.NewCatalog(be.Records, cfg.MaxTags)
	vm := gallery.New(catalog,
		gallery.WithLogger(logger.Named("gallery")),
		gallery.WithObserver(m.ObserveEvent),
	)
	defer vm.Close()
	if _, err := vm.Load(ctx); err != nil {
		// The feed supervisor reloads once subscribed.
		logger.Warn("initial gallery load", zap.Error(err))
	}

	uploads := upload.New(be.Blobs, be.Records,
		upload.WithPlaceholders(vm),
		upload.WithLogger(logger.Named("upload")),
		upload.WithTransitionHook(m.UploadTracker(time.Now)),
	)

	health := grpcserver.NewHealth()
	go func() {
		err := gallery.Supervise(ctx, vm, be.Feed, gallery.SuperviseConfig{
			BaseDelay: cfg.Feed.BaseDelay,
			MaxDelay:  cfg.Feed.MaxDelay,
			Log:       logger.Named("feed"),
			OnState: func(up bool) {
				m.FeedState(up)
				health.SetFeed(up)
			},
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("feed supervisor stopped", zap.Error(err))
		}
	}()

	surface, err := html.New()
	if err != nil {
		logger.Fatal("templates", zap.Error(err))
	}
	app, err := httpserver.New(httpserver.Deps{
		View:           vm,
		Catalog:        catalog,
		Uploads:        uploads,
		Limiter:        be.Limiter,
		Health:         be.Records,
		Blobs:          be.BlobHandler,
		Metrics:        m.Handler(),
		Surface:        surface,
		MaxUploadBytes: cfg.Server.MaxUploadBytes,
		Log:            logger.Named("http"),
	})
	if err != nil {
		logger.Fatal("http server", zap.Error(err))
	}
	hs := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           app.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
	}

	gs := grpcserver.NewServer(logger.Named("grpc"), health, *dev)
	lis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
	if err != nil {
		logger.Fatal("listen", zap.Error(err))
	}

	errCh := make(chan error, 2)
	go func() {
		logger.Info("grpc health listening", zap.String("addr", cfg.Server.GRPCAddr))
		errCh <- gs.Serve(lis)
	}()
	go func() {
		logger.Info("http listening", zap.String("addr", cfg.Server.Addr))
		if err := hs.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Wait for stop
	select {
	case <-ctx.Done():
	case err := <-errCh:
		logger.Error("server error", zap.Error(err))
		stop()
	}

	// graceful shutdown
	health.Shutdown()
	vm.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := hs.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	done := make(chan struct{})
	go func() {
		gs.GracefulStop()
		close(done)
	}()
	select {
	case <-done:
	case <-shutdownCtx.Done():
		gs.Stop()
	}

	logger.Info("shutdown complete")
}
