package handlers

import (
	"context"

	"github.com/randytsao24/comfortablemove/internal/courtesy"
	"github.com/randytsao24/comfortablemove/internal/history"
	"github.com/randytsao24/comfortablemove/internal/models"
	"github.com/randytsao24/comfortablemove/internal/transit"
)

// StopProvider abstracts nearest-stop queries for testability.
type StopProvider interface {
	Nearest(p models.Point) (models.ResolvedStop, bool)
	Closest(p models.Point, limit int) []models.ResolvedStop
	ByNodeID(nodeID int) (models.ResolvedStop, bool)
}

// LocationProvider abstracts the device location tracker.
type LocationProvider interface {
	Update(ctx context.Context, p models.Point) (models.ResolvedStop, bool, error)
	Refresh()
	Current() (models.ResolvedStop, bool)
}

// ArrivalProvider abstracts the bus arrival data source.
type ArrivalProvider interface {
	HasAPIKey() bool
	ArrivalsForStop(ctx context.Context, stop models.ResolvedStop) []models.RouteArrival
}

// AlertProvider abstracts the service alerts data source.
type AlertProvider interface {
	GetAlerts(ctx context.Context, routes []string) ([]transit.ServiceAlert, error)
}

// CourtesyProvider abstracts the BLE courtesy seat notifier.
type CourtesyProvider interface {
	Send(ctx context.Context, route string) (bool, error)
	Status() courtesy.Status
}

// HistoryProvider abstracts the attempt history store.
type HistoryProvider interface {
	Recent(ctx context.Context, limit int) ([]history.Attempt, error)
}
