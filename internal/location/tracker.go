package location

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/randytsao24/comfortablemove/internal/models"
)

// ErrFixIgnored is returned for fixes that arrive before Refresh re-arms the tracker
var ErrFixIgnored = errors.New("location fix ignored until refresh")

// Resolver finds the nearest stop off the caller's goroutine
type Resolver interface {
	NearestAsync(ctx context.Context, p models.Point) <-chan models.Resolution
}

// Tracker turns device fixes into the current stop. Only the first fix after
// construction or Refresh is resolved; later fixes are dropped so a moving
// device does not churn the stop the rider is looking at.
type Tracker struct {
	resolver Resolver
	logger   *slog.Logger

	mu    sync.Mutex
	armed bool
	seq   uint64
	fix   *models.Point

	current atomic.Pointer[models.ResolvedStop]
}

// NewTracker creates a tracker that accepts its first fix
func NewTracker(r Resolver, logger *slog.Logger) *Tracker {
	return &Tracker{
		resolver: r,
		logger:   logger,
		armed:    true,
	}
}

// Update offers a fix. When the tracker is armed the fix is resolved and
// published, and Update waits for the answer until ctx is done. A cancelled
// caller does not stop publication.
func (t *Tracker) Update(ctx context.Context, p models.Point) (models.ResolvedStop, bool, error) {
	t.mu.Lock()
	if !t.armed {
		t.mu.Unlock()
		return models.ResolvedStop{}, false, ErrFixIgnored
	}
	t.armed = false
	t.seq++
	seq := t.seq
	t.fix = &p
	t.mu.Unlock()

	ch := t.resolver.NearestAsync(context.Background(), p)
	done := make(chan models.Resolution, 1)

	go func() {
		res, ok := <-ch
		if ok && res.Found {
			t.publish(seq, res.Stop)
		}
		done <- res
	}()

	select {
	case res := <-done:
		return res.Stop, res.Found, nil
	case <-ctx.Done():
		return models.ResolvedStop{}, false, ctx.Err()
	}
}

// Refresh re-arms the tracker so the next fix is resolved
func (t *Tracker) Refresh() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.armed = true
}

// Current returns the most recently resolved stop
func (t *Tracker) Current() (models.ResolvedStop, bool) {
	s := t.current.Load()
	if s == nil {
		return models.ResolvedStop{}, false
	}
	return *s, true
}

// LastFix returns the last fix that was resolved
func (t *Tracker) LastFix() (models.Point, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.fix == nil {
		return models.Point{}, false
	}
	return *t.fix, true
}

// publish stores stop unless a newer query has started since seq
func (t *Tracker) publish(seq uint64, stop models.ResolvedStop) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if seq != t.seq {
		return
	}

	if prev := t.current.Load(); prev != nil && prev.Equal(stop) {
		t.logger.Debug("nearest stop unchanged", "stop", stop.StopName)
	} else {
		t.logger.Info("nearest stop changed", "stop", stop.StopName, "id", stop.ID, "routes", len(stop.Routes))
	}
	t.current.Store(&stop)
}
