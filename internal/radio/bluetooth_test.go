package radio

import (
	"sync"
	"testing"

	"github.com/google/uuid"
	"tinygo.org/x/bluetooth"

	"github.com/randytsao24/comfortablemove/internal/courtesy"
)

var (
	busService   = uuid.MustParse("6e400001-b5a3-f393-e0a9-e50e24dcca9e")
	heartService = uuid.MustParse("0000180d-0000-1000-8000-00805f9b34fb")
)

type fakePayload struct {
	name     string
	services []uuid.UUID
}

func (p fakePayload) LocalName() string { return p.name }

func (p fakePayload) HasServiceUUID(want bluetooth.UUID) bool {
	for _, id := range p.services {
		if got, err := toBluetooth(id); err == nil && got == want {
			return true
		}
	}
	return false
}

type fakeSink struct {
	mu     sync.Mutex
	events []courtesy.Event
}

func (s *fakeSink) Dispatch(ev courtesy.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
}

// scanningRadio is a Bluetooth set up as if StartScan had just run for busService
func scanningRadio(t *testing.T, sink *fakeSink) *Bluetooth {
	t.Helper()
	want, err := toBluetooth(busService)
	if err != nil {
		t.Fatal(err)
	}
	b := NewBluetooth(nil)
	b.sink = sink
	b.scanning = true
	b.service, b.want = busService, want
	return b
}

func TestUUIDConversion(t *testing.T) {
	ids := []string{
		"6e400001-b5a3-f393-e0a9-e50e24dcca9e",
		"0000180d-0000-1000-8000-00805f9b34fb",
	}

	for _, s := range ids {
		id := uuid.MustParse(s)
		bt, err := toBluetooth(id)
		if err != nil {
			t.Fatalf("toBluetooth(%s): %v", s, err)
		}
		back, ok := fromBluetooth(bt)
		if !ok || back != id {
			t.Errorf("round trip %s = %s, %v", s, back, ok)
		}
	}
}

func TestOperationsOnUnknownPeer(t *testing.T) {
	b := NewBluetooth(nil)
	svc := uuid.MustParse("6e400001-b5a3-f393-e0a9-e50e24dcca9e")

	if err := b.Connect("aa:bb"); err == nil {
		t.Error("Connect to unseen peer succeeded")
	}
	if err := b.DiscoverServices("aa:bb", svc); err == nil {
		t.Error("DiscoverServices without connection succeeded")
	}
	if err := b.DiscoverCharacteristics("aa:bb", svc, svc); err == nil {
		t.Error("DiscoverCharacteristics without services succeeded")
	}
	if err := b.Write("aa:bb", svc, svc, []byte("x")); err == nil {
		t.Error("Write without characteristic succeeded")
	}
	if err := b.CancelConnection("aa:bb"); err != nil {
		t.Errorf("CancelConnection on unknown peer = %v", err)
	}
}

func TestToAdvertisement(t *testing.T) {
	want, err := toBluetooth(busService)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		payload fakePayload
		ok      bool
	}{
		{"bus receiver", fakePayload{name: "BUS_721", services: []uuid.UUID{busService}}, true},
		{"receiver among other services", fakePayload{name: "BUS_147", services: []uuid.UUID{heartService, busService}}, true},
		{"unnamed receiver", fakePayload{services: []uuid.UUID{busService}}, true},
		{"other service", fakePayload{name: "BUS_721", services: []uuid.UUID{heartService}}, false},
		{"no services", fakePayload{name: "headphones"}, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ad, ok := toAdvertisement("aa:bb", -61, tc.payload, busService, want)
			if ok != tc.ok {
				t.Fatalf("ok = %v, want %v", ok, tc.ok)
			}
			if !ok {
				return
			}
			if ad.Peer != "aa:bb" || ad.RSSI != -61 || ad.LocalName != tc.payload.name {
				t.Errorf("unexpected advertisement: %+v", ad)
			}
			if ad.Name != "" {
				t.Errorf("Name = %q, want empty", ad.Name)
			}
			if len(ad.Services) != 1 || ad.Services[0] != busService {
				t.Errorf("Services = %v", ad.Services)
			}
		})
	}
}

func TestOnScanResultRecordsOnlyReceivers(t *testing.T) {
	sink := &fakeSink{}
	b := scanningRadio(t, sink)

	if !b.onScanResult("bus", bluetooth.Address{}, -50, fakePayload{name: "BUS_721", services: []uuid.UUID{busService}}) {
		t.Error("scan stopped for a receiver")
	}
	if !b.onScanResult("watch", bluetooth.Address{}, -70, fakePayload{name: "watch", services: []uuid.UUID{heartService}}) {
		t.Error("scan stopped for an unrelated device")
	}

	if _, ok := b.seen["watch"]; ok {
		t.Error("unrelated device was remembered")
	}
	if _, ok := b.seen["bus"]; !ok {
		t.Error("receiver was not remembered")
	}
	if len(sink.events) != 1 {
		t.Fatalf("dispatched %d events, want 1", len(sink.events))
	}
	if ad, ok := sink.events[0].(courtesy.Advertisement); !ok || ad.Peer != "bus" {
		t.Errorf("event = %#v", sink.events[0])
	}
}

func TestOnScanResultAfterStopRequest(t *testing.T) {
	sink := &fakeSink{}
	b := scanningRadio(t, sink)

	// Stop arrives before the scan loop delivers anything
	b.mu.Lock()
	b.stopScan = true
	b.mu.Unlock()

	if b.onScanResult("bus", bluetooth.Address{}, -50, fakePayload{name: "BUS_721", services: []uuid.UUID{busService}}) {
		t.Error("scan kept running after a stop request")
	}
	if len(sink.events) != 0 {
		t.Errorf("dispatched %d events after stop", len(sink.events))
	}
	if len(b.seen) != 0 {
		t.Errorf("seen = %v, want empty", b.seen)
	}
}

func TestCancelConnectionForgetsPeer(t *testing.T) {
	b := scanningRadio(t, &fakeSink{})
	b.onScanResult("bus", bluetooth.Address{}, -50, fakePayload{name: "BUS_721", services: []uuid.UUID{busService}})

	if err := b.CancelConnection("bus"); err != nil {
		t.Fatalf("CancelConnection: %v", err)
	}
	if len(b.seen) != 0 {
		t.Errorf("seen = %v, want empty", b.seen)
	}
}
