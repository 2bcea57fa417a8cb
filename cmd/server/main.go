// Package main provides the swath geocoding HTTP server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"go.ngs.io/swath-geocoding/internal/adapter/store/swath"
	"go.ngs.io/swath-geocoding/internal/config"
	"go.ngs.io/swath-geocoding/internal/domain"
	"go.ngs.io/swath-geocoding/internal/geocoding"
	httpHandler "go.ngs.io/swath-geocoding/internal/http"
	"go.ngs.io/swath-geocoding/internal/usecase"
)

const (
	appName = "swath-geocoding"
	version = "0.1.0"
)

func main() {
	// Parse command-line flags.
	showHelp := flag.Bool("help", false, "Show usage information")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *showHelp {
		printUsage()
		return
	}

	if *showVersion {
		fmt.Printf("%s version %s\n", appName, version)
		return
	}

	// Load configuration from environment.
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("%v\n", err)
		os.Exit(1)
	}

	logger := createLogger(cfg, appName)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *slog.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(interrupt)

	g, ctx := errgroup.WithContext(ctx)

	// Initialize product store.
	gcCfg := geocoding.DefaultConfig()
	gcCfg.DegreesPerTile = cfg.DegreesPerTile
	gcCfg.MaxAbsError = cfg.MaxAbsErrorPx
	gcCfg.Logger = logger
	if err := gcCfg.Validate(); err != nil {
		return fmt.Errorf("invalid geocoding config: %w", err)
	}

	productStore := swath.NewStore(cfg.DataDir, swath.Options{
		Datum:        domain.WGS84,
		GeoCoding:    gcCfg,
		CacheSize:    cfg.CacheMaxSize,
		CacheTTL:     cfg.CacheTTL,
		ItemsToPrune: cfg.CacheItemsToPrune,
		Logger:       logger,
	})
	defer func() { _ = productStore.Close() }()

	if ids, err := productStore.ListProducts(); err != nil {
		logger.Warn("failed to list products", "data_dir", cfg.DataDir, "error", err)
	} else {
		logger.Info("products found", "data_dir", cfg.DataDir, "count", len(ids))
	}

	// Initialize use case and router.
	geocodingUC := usecase.NewGeoCodingUseCase(productStore, cfg.MaxPointsPerRequest)
	router := httpHandler.SetupRouter(geocodingUC, httpHandler.RouterConfig{
		AllowedOrigins: cfg.CORSAllowedOrigins,
		Logger:         logger,
	})

	addr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g.Go(func() error {
		logger.Info("HTTP server listening", "address", addr, "version", version)
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server failed: %w", err)
		}
		return nil
	})

	// Wait for termination signal or an error from the server.
	select {
	case <-interrupt:
		logger.Warn("received termination signal, starting graceful shutdown")
		cancel()
	case <-ctx.Done():
		logger.Warn("context cancelled, starting graceful shutdown")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", "error", err)
	}

	return g.Wait()
}

func createLogger(cfg config.Config, appName string) *slog.Logger {
	var programLevel slog.Level
	switch strings.ToUpper(cfg.LogLevel) {
	case "DEBUG":
		programLevel = slog.LevelDebug
	case "WARN":
		programLevel = slog.LevelWarn
	case "ERROR":
		programLevel = slog.LevelError
	default:
		programLevel = slog.LevelInfo
	}
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level:     programLevel,
		AddSource: programLevel <= slog.LevelDebug,
	}).WithAttrs([]slog.Attr{slog.String("app", appName)})
	return slog.New(handler)
}

// printUsage prints usage information.
func printUsage() {
	fmt.Printf("Swath Geocoding Server v%s\n\n", version)
	fmt.Println("USAGE:")
	fmt.Println("  server [flags]")
	fmt.Println()
	fmt.Println("FLAGS:")
	fmt.Println("  -help          Show this help message")
	fmt.Println("  -version       Show version information")
	fmt.Println()
	fmt.Println("ENVIRONMENT VARIABLES:")
	fmt.Println("  PORT                    Server port (default: 8080)")
	fmt.Println("  DATA_DIR                Directory of swath NetCDF products (default: ./data)")
	fmt.Println("  LOG_LEVEL               DEBUG, INFO, WARN or ERROR (default: INFO)")
	fmt.Println("  CORS_ALLOWED_ORIGINS    Comma-separated list of allowed origins (default: all origins)")
	fmt.Println("  CACHE_MAX_SIZE          Maximum number of cached geocodings (default: 64)")
	fmt.Println("  CACHE_ITEMS_TO_PRUNE    Geocodings evicted when the cache is full (default: 8)")
	fmt.Println("  CACHE_TTL               Lifetime of a cached geocoding (default: 30m)")
	fmt.Println("  DEGREES_PER_TILE        Target tile extent for inverse approximations (default: 10)")
	fmt.Println("  MAX_ABS_ERROR_PX        Accepted approximation error in pixels (default: 0.5)")
	fmt.Println("  MAX_POINTS_PER_REQUEST  Maximum positions per conversion request (default: 10000)")
	fmt.Println()
	fmt.Println("EXAMPLES:")
	fmt.Println("  # Start server with default settings")
	fmt.Println("  server")
	fmt.Println()
	fmt.Println("  # Serve products from a custom directory")
	fmt.Println("  DATA_DIR=/srv/swaths PORT=3000 server")
	fmt.Println()
	fmt.Println("API ENDPOINTS:")
	fmt.Println("  GET  /health                        Health check")
	fmt.Println("  GET  /metrics                       Prometheus metrics")
	fmt.Println("  GET  /v1/products                   List products")
	fmt.Println("  GET  /v1/products/:id               Product geocoding info")
	fmt.Println("  GET  /v1/products/:id/subset        Geocoding info of a raster crop")
	fmt.Println("  GET  /v1/products/:id/footprint     GeoJSON footprint")
	fmt.Println("  GET  /v1/products/:id/geo?x=&y=     Pixel to geo position")
	fmt.Println("  POST /v1/products/:id/geo           Batch pixel to geo positions")
	fmt.Println("  GET  /v1/products/:id/pixel?lat=&lon=  Geo to pixel position")
	fmt.Println("  POST /v1/products/:id/pixel         Batch geo to pixel positions")
	fmt.Println()
}
