package location

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/randytsao24/comfortablemove/internal/models"
)

type mockResolver struct {
	calls atomic.Int32
	found bool
	gate  chan struct{}
}

func (m *mockResolver) NearestAsync(ctx context.Context, p models.Point) <-chan models.Resolution {
	m.calls.Add(1)
	ch := make(chan models.Resolution, 1)
	go func() {
		defer close(ch)
		if m.gate != nil {
			<-m.gate
		}
		ch <- models.Resolution{
			Stop:  models.ResolvedStop{ID: int(p.X), StopName: "Seoul Station", Routes: []string{"721"}},
			Found: m.found,
		}
	}()
	return ch
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestTrackerFirstFixOnly(t *testing.T) {
	r := &mockResolver{found: true}
	tr := NewTracker(r, discardLogger())

	if _, ok := tr.Current(); ok {
		t.Fatal("Current set before any fix")
	}

	stop, found, err := tr.Update(context.Background(), models.Point{X: 1, Y: 2})
	if err != nil || !found || stop.ID != 1 {
		t.Fatalf("Update = %+v, %v, %v", stop, found, err)
	}

	_, _, err = tr.Update(context.Background(), models.Point{X: 5, Y: 5})
	if !errors.Is(err, ErrFixIgnored) {
		t.Errorf("second Update err = %v, want ErrFixIgnored", err)
	}
	if r.calls.Load() != 1 {
		t.Errorf("resolver calls = %d, want 1", r.calls.Load())
	}

	cur, ok := tr.Current()
	if !ok || cur.ID != 1 {
		t.Errorf("Current = %+v, %v", cur, ok)
	}
	if fix, _ := tr.LastFix(); fix.X != 1 {
		t.Errorf("LastFix = %+v", fix)
	}

	tr.Refresh()
	if stop, _, err := tr.Update(context.Background(), models.Point{X: 7, Y: 7}); err != nil || stop.ID != 7 {
		t.Errorf("Update after refresh = %+v, %v", stop, err)
	}
	if cur, _ := tr.Current(); cur.ID != 7 {
		t.Errorf("Current after refresh = %d, want 7", cur.ID)
	}
}

func TestTrackerNotFound(t *testing.T) {
	tr := NewTracker(&mockResolver{found: false}, discardLogger())

	_, found, err := tr.Update(context.Background(), models.Point{X: 1})
	if err != nil || found {
		t.Fatalf("Update = %v, %v", found, err)
	}
	if _, ok := tr.Current(); ok {
		t.Error("Current set for an empty catalog")
	}
}

func TestTrackerCancelledCallerStillPublishes(t *testing.T) {
	r := &mockResolver{found: true, gate: make(chan struct{})}
	tr := NewTracker(r, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, _, err := tr.Update(ctx, models.Point{X: 3}); !errors.Is(err, context.Canceled) {
		t.Fatalf("Update err = %v, want context.Canceled", err)
	}

	close(r.gate)
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cur, ok := tr.Current(); ok && cur.ID == 3 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Error("stop never published")
}
