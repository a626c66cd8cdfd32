package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/randytsao24/comfortablemove/internal/api/handlers"
	"github.com/randytsao24/comfortablemove/internal/config"
)

const defaultRequestTimeout = 15 * time.Second

// Services are the backends the HTTP handlers read from
type Services struct {
	Stops      handlers.StopProvider
	Location   handlers.LocationProvider
	Arrivals   handlers.ArrivalProvider
	Alerts     handlers.AlertProvider
	Courtesy   handlers.CourtesyProvider
	History    handlers.HistoryProvider
	StopCount  int
	GroupCount int

	// Logger receives request logs; slog.Default() when nil
	Logger *slog.Logger
}

// NewRouter creates and configures the HTTP router with all routes and middleware
func NewRouter(cfg *config.Config, svc Services) http.Handler {
	mux := http.NewServeMux()

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler(svc.Courtesy)
	rootHandler := handlers.NewRootHandler(svc.StopCount, svc.GroupCount)
	locationHandler := handlers.NewLocationHandler(svc.Location)
	stopsHandler := handlers.NewStopsHandler(svc.Stops, svc.Location)
	transitHandler := handlers.NewTransitHandler(svc.Stops, svc.Arrivals, svc.Alerts)
	courtesyHandler := handlers.NewCourtesyHandler(svc.Courtesy, svc.History)

	// Core routes
	mux.HandleFunc("GET /{$}", rootHandler.Index)
	mux.HandleFunc("GET /api", rootHandler.Index)
	mux.HandleFunc("GET /health", healthHandler.Health)
	mux.HandleFunc("/", rootHandler.NotFound)

	// Device location
	mux.HandleFunc("POST /location/fix", locationHandler.PostFix)
	mux.HandleFunc("POST /location/refresh", locationHandler.PostRefresh)

	// Stops
	mux.HandleFunc("GET /stops/current", stopsHandler.GetCurrent)
	mux.HandleFunc("GET /stops/nearest", stopsHandler.GetNearest)
	mux.HandleFunc("GET /stops/closest", stopsHandler.GetClosest)
	mux.HandleFunc("GET /stops/{nodeId}/arrivals", transitHandler.GetArrivals)
	mux.HandleFunc("GET /stops/{nodeId}/alerts", transitHandler.GetServiceAlerts)

	// Courtesy seat notifications
	mux.HandleFunc("POST /courtesy/{route}", courtesyHandler.PostNotify)
	mux.HandleFunc("GET /courtesy/status", courtesyHandler.GetStatus)
	mux.HandleFunc("GET /courtesy/history", courtesyHandler.GetHistory)

	logger := svc.Logger
	if logger == nil {
		logger = slog.Default()
	}

	// Apply middleware stack
	handler := Chain(mux,
		RequestIDs,
		Recovery(logger),
		Logging(logger),
		CORS,
		Timeout(requestTimeout(cfg)),
	)

	return handler
}

// requestTimeout leaves room for a full scan plus the GATT exchange
func requestTimeout(cfg *config.Config) time.Duration {
	t := defaultRequestTimeout
	if scan := cfg.BLE.ScanTimeout() + cfg.HTTPTimeout; scan > t {
		t = scan
	}
	return t
}
