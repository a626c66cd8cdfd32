package transit

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/randytsao24/comfortablemove/internal/models"
)

const arrivalXML = `<?xml version="1.0" encoding="UTF-8"?>
<ServiceResult>
  <comMsgHeader/>
  <msgHeader>
    <headerCd>0</headerCd>
    <headerMsg>정상적으로 처리되었습니다.</headerMsg>
    <itemCount>1</itemCount>
  </msgHeader>
  <msgBody>
    <itemList>
      <arrmsg1>%s</arrmsg1>
      <arrmsg2>18분2초후[9번째 전]</arrmsg2>
    </itemList>
  </msgBody>
</ServiceResult>`

const emptyXML = `<ServiceResult>
  <msgHeader><headerCd>4</headerCd><headerMsg>결과가 없습니다.</headerMsg></msgHeader>
  <msgBody/>
</ServiceResult>`

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestArrivalService(url string) *ArrivalService {
	return NewArrivalService("test-key", url, time.Second, time.Minute, testLogger())
}

func TestArrival(t *testing.T) {
	var requests atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		q := r.URL.Query()
		if q.Get("ServiceKey") != "test-key" || q.Get("stId") != "101" || q.Get("busRouteId") != "100100118" || q.Get("ord") != "1" {
			t.Errorf("unexpected query %s", r.URL.RawQuery)
		}
		fmt.Fprintf(w, arrivalXML, "10분1초후[6번째 전]")
	}))
	defer srv.Close()

	s := newTestArrivalService(srv.URL)
	defer s.Close()

	msg, ok := s.Arrival(context.Background(), 101, 100100118)
	if !ok || msg != "10분1초후[6번째 전]" {
		t.Fatalf("Arrival = %q, %v", msg, ok)
	}

	s.Arrival(context.Background(), 101, 100100118)
	if requests.Load() != 1 {
		t.Errorf("requests = %d, want 1 (second call cached)", requests.Load())
	}
}

func TestArrivalNoData(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"server error", func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		}},
		{"malformed xml", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("<ServiceResult><msgHeader>"))
		}},
		{"no items", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(emptyXML))
		}},
		{"empty message", func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprintf(w, arrivalXML, "  ")
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			s := newTestArrivalService(srv.URL)
			defer s.Close()

			if msg, ok := s.Arrival(context.Background(), 1, 2); ok {
				t.Errorf("Arrival = %q, want no data", msg)
			}
		})
	}
}

func TestArrivalUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	s := newTestArrivalService(url)
	defer s.Close()

	if _, ok := s.Arrival(context.Background(), 1, 2); ok {
		t.Error("unreachable server reported data")
	}
}

func TestArrivalWithoutAPIKey(t *testing.T) {
	s := NewArrivalService("", "http://127.0.0.1:1", time.Second, time.Minute, testLogger())
	defer s.Close()

	if s.HasAPIKey() {
		t.Error("HasAPIKey = true")
	}
	if _, ok := s.Arrival(context.Background(), 1, 2); ok {
		t.Error("lookup without key reported data")
	}
}

func TestArrivalsForStop(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("busRouteId") {
		case "1":
			fmt.Fprintf(w, arrivalXML, "곧 도착")
		default:
			w.Write([]byte(emptyXML))
		}
	}))
	defer srv.Close()

	s := newTestArrivalService(srv.URL)
	defer s.Close()

	stop := models.ResolvedStop{
		ID:       101,
		Routes:   []string{"100", "721", "N16"},
		RouteIDs: map[string]int{"100": 1, "721": 2},
	}

	got := s.ArrivalsForStop(context.Background(), stop)
	want := []models.RouteArrival{
		{RouteName: "100", RouteID: 1, Message: "곧 도착", HasData: true},
		{RouteName: "721", RouteID: 2, Message: NoArrivalMessage},
		{RouteName: "N16", Message: NoArrivalMessage},
	}

	if len(got) != len(want) {
		t.Fatalf("got %d arrivals, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("arrival[%d] = %+v, want %+v", i, got[i], want[i])
		}
	}
}
