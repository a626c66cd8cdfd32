// Package main is the entry point for the comfortablemove server.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/randytsao24/comfortablemove/internal/api"
	"github.com/randytsao24/comfortablemove/internal/config"
	"github.com/randytsao24/comfortablemove/internal/courtesy"
	"github.com/randytsao24/comfortablemove/internal/history"
	"github.com/randytsao24/comfortablemove/internal/identity"
	"github.com/randytsao24/comfortablemove/internal/location"
	"github.com/randytsao24/comfortablemove/internal/radio"
	"github.com/randytsao24/comfortablemove/internal/stops"
	"github.com/randytsao24/comfortablemove/internal/transit"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		fatal(slog.Default(), "configuration error", err)
	}

	logger := newLogger(cfg)
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		fatal(logger, "configuration error", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	catalog, err := stops.LoadFile(cfg.StopsFile)
	if err != nil {
		fatal(logger, "failed to load stop catalog", err)
	}
	logger.Info("stop catalog loaded",
		"file", cfg.StopsFile,
		"records", catalog.Count(),
		"stops", catalog.GroupCount(),
		"skipped_rows", len(catalog.Skipped()),
	)

	resolver := stops.NewResolver(catalog)
	tracker := location.NewTracker(resolver, logger)

	arrivals := transit.NewArrivalService(cfg.BusAPIKey, cfg.ArrivalURL, cfg.HTTPTimeout, cfg.CacheTTL, logger)
	defer arrivals.Close()
	if !arrivals.HasAPIKey() {
		logger.Warn("BUS_API_KEY not set, arrival lookups disabled")
	}

	alerts := transit.NewAlertService(cfg.AlertsFeedURL, cfg.HTTPTimeout, cfg.CacheTTL)
	defer alerts.Close()

	if err := os.MkdirAll(filepath.Dir(cfg.HistoryDB), 0o755); err != nil {
		fatal(logger, "failed to create history directory", err)
	}
	hist, err := history.Open(ctx, cfg.HistoryDB, logger)
	if err != nil {
		fatal(logger, "failed to open attempt history", err)
	}
	defer hist.Close()

	bt := radio.NewBluetooth(logger)
	notifier := courtesy.NewNotifier(bt,
		identity.New(cfg.BLE.DeviceNamePrefix),
		courtesy.Protocol{
			Service:          cfg.BLE.ServiceID(),
			RXCharacteristic: cfg.BLE.RXCharacteristicID(),
			Message:          cfg.BLE.CourtesySeatMessage,
			ScanTimeout:      cfg.BLE.ScanTimeout(),
		},
		courtesy.WithLogger(logger),
		courtesy.WithRecorder(hist),
		courtesy.WithScanningObserver(func(on bool) {
			logger.Debug("bluetooth scanning", "active", on)
		}),
	)
	if err := bt.Enable(notifier); err != nil {
		logger.Warn("bluetooth unavailable, courtesy notifications will fail", "error", err)
	}

	router := api.NewRouter(cfg, api.Services{
		Stops:      resolver,
		Location:   tracker,
		Arrivals:   arrivals,
		Alerts:     alerts,
		Courtesy:   notifier,
		History:    hist,
		StopCount:  catalog.Count(),
		GroupCount: catalog.GroupCount(),
		Logger:     logger,
	})

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.BLE.ScanTimeout() + time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("comfortablemove server starting",
			"port", cfg.Port,
			"env", cfg.Env,
			"url", "http://localhost:"+cfg.Port,
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fatal(logger, "server failed to start", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	}
}

// newLogger uses text output in development and JSON elsewhere
func newLogger(cfg *config.Config) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.IsDevelopment() {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}

func fatal(logger *slog.Logger, msg string, err error) {
	var cfgErr *config.ConfigurationError
	if errors.As(err, &cfgErr) {
		logger.Error(msg, "field", cfgErr.Field, "reason", cfgErr.Reason)
	} else {
		logger.Error(msg, "error", err)
	}
	os.Exit(1)
}
