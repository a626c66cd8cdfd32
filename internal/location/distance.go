// Package location turns device fixes into the rider's current stop
package location

import (
	"math"

	"github.com/randytsao24/comfortablemove/internal/models"
)

const earthRadiusMeters = 6371000

// Euclidean returns the planar distance between two points in their own units.
// The stop catalog uses a projected grid, so this is what nearest-stop ranking uses.
func Euclidean(a, b models.Point) float64 {
	dx := a.X - b.X
	dy := a.Y - b.Y
	return math.Sqrt(dx*dx + dy*dy)
}

// Haversine calculates the distance in meters between two lat/lng points
func Haversine(lat1, lng1, lat2, lng2 float64) float64 {
	lat1Rad := lat1 * math.Pi / 180
	lat2Rad := lat2 * math.Pi / 180
	deltaLat := (lat2 - lat1) * math.Pi / 180
	deltaLng := (lng2 - lng1) * math.Pi / 180

	a := math.Sin(deltaLat/2)*math.Sin(deltaLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*
			math.Sin(deltaLng/2)*math.Sin(deltaLng/2)

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusMeters * c
}

// ApproxMeters treats both points as (lng, lat) and returns the great-circle
// distance. Only meaningful when the catalog stores geodetic coordinates.
func ApproxMeters(a, b models.Point) float64 {
	return Haversine(a.Y, a.X, b.Y, b.X)
}
