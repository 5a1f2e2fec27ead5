package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hodel33/flyby33/internal/adsb"
	"github.com/hodel33/flyby33/internal/api"
	"github.com/hodel33/flyby33/internal/config"
	"github.com/hodel33/flyby33/internal/flyby"
	"github.com/hodel33/flyby33/internal/storage/sqlite"
	"github.com/hodel33/flyby33/pkg/logger"
)

func main() {
	configPath := flag.String("config", "config.toml", "Path to configuration file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "flyby33: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	log, err := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		File:   cfg.Logging.File,
	})
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	defer log.Sync()

	log.Info("Starting flyby33",
		logger.String("station", cfg.Station.LocationCoords),
		logger.Float64("radius_km", cfg.Station.RadiusKm))

	observer, err := cfg.Observer()
	if err != nil {
		return err
	}

	engine, err := flyby.NewEngine(cfg.Prediction, log)
	if err != nil {
		return err
	}

	// Persistence is optional: an empty path runs in-memory only
	var store *sqlite.FlightStorage
	if cfg.Storage.Path != "" {
		db, err := sqlite.Open(cfg.Storage.Path)
		if err != nil {
			return err
		}
		defer db.Close()

		store, err = sqlite.NewFlightStorage(db, log)
		if err != nil {
			return err
		}
	}

	client := adsb.NewClient(
		cfg.ADSB.SourceURL,
		observer.Position,
		observer.RadiusKm,
		time.Duration(cfg.ADSB.RequestTimeoutSecs)*time.Second,
		cfg.ADSB.RequestsPerSecond,
		log,
	)

	var recorder adsb.Recorder
	if store != nil {
		recorder = store
	}
	service := adsb.NewService(cfg, observer, client, engine, recorder, log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := service.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("Tracking loop stopped", logger.Error(err))
		}
	}()

	router := api.NewRouter(service, store, cfg, log)
	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router.Routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("HTTP server listening", logger.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info("Shutting down")
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down http server: %w", err)
	}

	log.Info("Shutdown complete")
	return nil
}
