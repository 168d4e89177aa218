package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	httpadapter "github.com/couchcryptid/storm-feature-detect/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/storm-feature-detect/internal/adapter/kafka"
	"github.com/couchcryptid/storm-feature-detect/internal/adapter/mapbox"
	"github.com/couchcryptid/storm-feature-detect/internal/adapter/netcdf"
	"github.com/couchcryptid/storm-feature-detect/internal/config"
	"github.com/couchcryptid/storm-feature-detect/internal/domain"
	"github.com/couchcryptid/storm-feature-detect/internal/grid"
	"github.com/couchcryptid/storm-feature-detect/internal/observability"
	"github.com/couchcryptid/storm-feature-detect/internal/pipeline"
)

func main() {
	_ = godotenv.Load(".env")

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	if err := run(cfg, logger); err != nil {
		logger.Error("detection run failed", "error", err, "fatal", domain.IsFatal(err))
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	metrics := observability.NewMetrics()

	archive, err := netcdf.OpenFile(cfg.InputFile)
	if err != nil {
		return err
	}
	defer archive.Close()

	g, err := loadGrid(cfg, archive)
	if err != nil {
		return fmt.Errorf("build grid: %w", err)
	}
	logger.Info("grid ready", "layout", g.Layout().String(), "nodes", g.Len(),
		"timesteps", archive.NumTimesteps(), "dated", archive.Dated())

	source, err := archive.Source(g, cfg.RequiredFields(), logger)
	if err != nil {
		return err
	}

	// Geocoding is feature-flagged via MAPBOX_ENABLED / MAPBOX_TOKEN.
	var geocoder domain.Geocoder
	if cfg.MapboxEnabled {
		client := mapbox.NewClient(cfg.MapboxToken, cfg.MapboxTimeout, cfg.MapboxRateLimit, metrics, logger)
		geocoder = mapbox.NewCachedGeocoder(client, cfg.MapboxCacheSize, metrics)
		metrics.GeocodeEnabled.Set(1)
		logger.Info("mapbox geocoding enabled", "cache_size", cfg.MapboxCacheSize,
			"timeout", cfg.MapboxTimeout, "rate_limit", cfg.MapboxRateLimit)
	} else {
		logger.Info("mapbox geocoding disabled")
	}

	detector, err := pipeline.NewDetector(g, cfg.Fields, cfg.Cyclone, cfg.River, geocoder, logger)
	if err != nil {
		return err
	}

	writer := kafkaadapter.NewWriter(cfg, logger)
	defer func() {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}()

	p := pipeline.New(source, detector, writer, logger, metrics)
	srv := httpadapter.NewServer(cfg.HTTPAddr, p, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	eg, egCtx := errgroup.WithContext(runCtx)

	// The run ends when the archive is exhausted; that also stops the server.
	eg.Go(func() error {
		defer cancel()
		return p.Run(egCtx)
	})

	eg.Go(func() error {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	eg.Go(func() error {
		<-egCtx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancelShutdown()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("http server shutdown error", "error", err)
		}
		return nil
	})

	err = eg.Wait()
	st := p.Status()
	logger.Info("shutdown complete",
		"timesteps_processed", st.TimestepsProcessed,
		"timesteps_skipped", st.TimestepsSkipped,
		"candidates", st.Candidates,
		"rivers", st.Rivers,
	)
	return err
}

func loadGrid(cfg *config.Config, archive *netcdf.Archive) (*grid.Grid, error) {
	if cfg.ConnectivityFile != "" {
		return grid.ReadConnectivityFile(cfg.ConnectivityFile)
	}
	return archive.LatLonGrid(cfg.Regional)
}
