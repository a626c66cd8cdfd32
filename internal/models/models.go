// Package models defines shared data types
package models

// DefaultDirection is shown until per-stop direction data is available
const DefaultDirection = "direction unavailable"

// Point is a coordinate pair. For live fixes X is longitude and Y is latitude.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// StopRecord is one row of the stop/route dataset
type StopRecord struct {
	NodeID    int     `json:"node_id"`
	RouteID   int     `json:"route_id"`
	RouteName string  `json:"route_name"`
	ArsID     int     `json:"ars_id"`
	StopName  string  `json:"stop_name"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
}

// ResolvedStop is the answer to a nearest-stop query
type ResolvedStop struct {
	ID        int            `json:"id"`
	ArsID     int            `json:"ars_id"`
	StopName  string         `json:"stop_name"`
	Direction string         `json:"direction"`
	X         float64        `json:"x"`
	Y         float64        `json:"y"`
	Routes    []string       `json:"routes"`
	RouteIDs  map[string]int `json:"route_ids"`
	Distance  float64        `json:"distance"`
}

// Equal compares two stops by id, name and served routes.
func (s ResolvedStop) Equal(o ResolvedStop) bool {
	if s.ID != o.ID || s.StopName != o.StopName || len(s.Routes) != len(o.Routes) {
		return false
	}
	for i := range s.Routes {
		if s.Routes[i] != o.Routes[i] {
			return false
		}
	}
	return true
}

// Resolution is a single asynchronous nearest-stop answer
type Resolution struct {
	Stop  ResolvedStop
	Found bool
}

// RouteArrival is the arrival status of one route at a stop
type RouteArrival struct {
	RouteName string `json:"route_name"`
	RouteID   int    `json:"route_id"`
	Message   string `json:"message"`
	HasData   bool   `json:"has_data"`
}
