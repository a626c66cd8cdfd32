package stops

import (
	"context"
	"math"
	"sort"

	"github.com/randytsao24/comfortablemove/internal/location"
	"github.com/randytsao24/comfortablemove/internal/models"
)

// Resolver answers nearest-stop queries against a loaded catalog
type Resolver struct {
	catalog *Catalog
}

// NewResolver creates a resolver over a catalog
func NewResolver(c *Catalog) *Resolver {
	return &Resolver{catalog: c}
}

// Nearest returns the physical stop closest to p by planar distance.
// On equal distances the first group in (name, x, y) order wins.
// It reports false only when the catalog is empty.
func (r *Resolver) Nearest(p models.Point) (models.ResolvedStop, bool) {
	var nearest *Group
	best := math.Inf(1)

	for _, g := range r.catalog.groups {
		dist := location.Euclidean(p, groupPoint(g))
		if dist < best {
			best = dist
			nearest = g
		}
	}

	if nearest == nil {
		return models.ResolvedStop{}, false
	}
	return resolve(nearest, best), true
}

// NearestAsync runs Nearest on its own goroutine. The returned channel
// receives exactly one Resolution and is then closed; it is closed without a
// result if ctx is done first. The computation never blocks on the reader.
func (r *Resolver) NearestAsync(ctx context.Context, p models.Point) <-chan models.Resolution {
	ch := make(chan models.Resolution, 1)

	go func() {
		defer close(ch)
		if ctx.Err() != nil {
			return
		}
		stop, found := r.Nearest(p)
		if ctx.Err() != nil {
			return
		}
		ch <- models.Resolution{Stop: stop, Found: found}
	}()

	return ch
}

// Closest returns up to limit stops ordered by distance from p
func (r *Resolver) Closest(p models.Point, limit int) []models.ResolvedStop {
	type candidate struct {
		group *Group
		dist  float64
	}

	candidates := make([]candidate, 0, len(r.catalog.groups))
	for _, g := range r.catalog.groups {
		candidates = append(candidates, candidate{group: g, dist: location.Euclidean(p, groupPoint(g))})
	}

	// Stable keeps catalog order for ties
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].dist < candidates[j].dist
	})

	if limit > 0 && limit < len(candidates) {
		candidates = candidates[:limit]
	}

	results := make([]models.ResolvedStop, len(candidates))
	for i, c := range candidates {
		results[i] = resolve(c.group, c.dist)
	}
	return results
}

// ByNodeID resolves a stop by node id without a distance
func (r *Resolver) ByNodeID(nodeID int) (models.ResolvedStop, bool) {
	g, ok := r.catalog.Stop(nodeID)
	if !ok {
		return models.ResolvedStop{}, false
	}
	return resolve(g, 0), true
}

func groupPoint(g *Group) models.Point {
	return models.Point{X: g.Stop.X, Y: g.Stop.Y}
}

func resolve(g *Group, dist float64) models.ResolvedStop {
	routes := make([]string, len(g.Routes))
	copy(routes, g.Routes)
	sort.Strings(routes)

	routeIDs := make(map[string]int, len(g.RouteIDs))
	for name, id := range g.RouteIDs {
		routeIDs[name] = id
	}

	return models.ResolvedStop{
		ID:        g.Stop.NodeID,
		ArsID:     g.Stop.ArsID,
		StopName:  g.Stop.StopName,
		Direction: models.DefaultDirection,
		X:         g.Stop.X,
		Y:         g.Stop.Y,
		Routes:    routes,
		RouteIDs:  routeIDs,
		Distance:  dist,
	}
}
