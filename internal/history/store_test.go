package history

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/randytsao24/comfortablemove/internal/courtesy"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "history.db"), logger)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRecordAndRecent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2025, 10, 10, 8, 0, 0, 0, time.UTC)

	for i, route := range []string{"100", "721", "N16"} {
		err := s.Record(ctx, Attempt{
			ID:         uuid.NewString(),
			Route:      route,
			DeviceName: "BUS_" + route,
			Success:    i%2 == 0,
			StartedAt:  base.Add(time.Duration(i) * time.Minute),
			FinishedAt: base.Add(time.Duration(i)*time.Minute + 3*time.Second),
		})
		if err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	got, err := s.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d attempts, want 2", len(got))
	}
	if got[0].Route != "N16" || got[1].Route != "721" {
		t.Errorf("order = %s, %s; want N16, 721", got[0].Route, got[1].Route)
	}
	if !got[0].Success || got[1].Success {
		t.Errorf("success flags = %v, %v", got[0].Success, got[1].Success)
	}
	if !got[0].FinishedAt.Equal(base.Add(2*time.Minute + 3*time.Second)) {
		t.Errorf("FinishedAt = %v", got[0].FinishedAt)
	}
}

func TestRecentEmpty(t *testing.T) {
	s := openTestStore(t)

	got, err := s.Recent(context.Background(), 0)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("Recent = %v, want empty slice", got)
	}
}

func TestRecordOutcome(t *testing.T) {
	s := openTestStore(t)
	id := uuid.New()

	s.RecordOutcome(courtesy.Outcome{
		AttemptID:  id,
		Route:      "721",
		DeviceName: "BUS_721",
		Err:        errors.New("no matching bus found before scan timeout"),
		StartedAt:  time.Now().Add(-10 * time.Second),
		FinishedAt: time.Now(),
	})

	got, err := s.Recent(context.Background(), 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d attempts, want 1", len(got))
	}
	if got[0].ID != id.String() || got[0].Success || got[0].Error == "" {
		t.Errorf("attempt = %+v", got[0])
	}
}

func TestDuplicateAttemptRejected(t *testing.T) {
	s := openTestStore(t)
	a := Attempt{ID: "same", Route: "721", DeviceName: "BUS_721", StartedAt: time.Now(), FinishedAt: time.Now()}

	if err := s.Record(context.Background(), a); err != nil {
		t.Fatalf("first Record: %v", err)
	}
	if err := s.Record(context.Background(), a); err == nil {
		t.Error("duplicate id accepted")
	}
}
