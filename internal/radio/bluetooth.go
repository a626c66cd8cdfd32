// Package radio adapts the host Bluetooth stack to the courtesy notifier
package radio

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"tinygo.org/x/bluetooth"

	"github.com/randytsao24/comfortablemove/internal/courtesy"
)

// Sink receives radio events
type Sink interface {
	Dispatch(courtesy.Event)
}

// Bluetooth implements courtesy.Radio on tinygo's bluetooth package. The
// underlying calls block, so each one runs on its own goroutine and reports
// back through the sink.
type Bluetooth struct {
	adapter *bluetooth.Adapter
	logger  *slog.Logger
	sink    Sink

	mu       sync.Mutex
	scanning bool
	stopScan bool
	service  uuid.UUID
	want     bluetooth.UUID
	seen     map[courtesy.PeerID]bluetooth.Address
	devices  map[courtesy.PeerID]bluetooth.Device
	services map[courtesy.PeerID][]bluetooth.DeviceService
	chars    map[courtesy.PeerID]bluetooth.DeviceCharacteristic
}

var _ courtesy.Radio = (*Bluetooth)(nil)

// NewBluetooth wraps the default adapter
func NewBluetooth(logger *slog.Logger) *Bluetooth {
	return &Bluetooth{
		adapter:  bluetooth.DefaultAdapter,
		logger:   logger,
		seen:     make(map[courtesy.PeerID]bluetooth.Address),
		devices:  make(map[courtesy.PeerID]bluetooth.Device),
		services: make(map[courtesy.PeerID][]bluetooth.DeviceService),
		chars:    make(map[courtesy.PeerID]bluetooth.DeviceCharacteristic),
	}
}

// Enable powers up the adapter and starts delivering events to sink. The
// resulting adapter state is reported to sink before Enable returns.
func (b *Bluetooth) Enable(sink Sink) error {
	b.sink = sink

	if err := b.adapter.Enable(); err != nil {
		sink.Dispatch(courtesy.AdapterStateChanged{State: courtesy.AdapterUnsupported})
		return fmt.Errorf("enable bluetooth adapter: %w", err)
	}

	b.adapter.SetConnectHandler(func(device bluetooth.Device, connected bool) {
		if connected {
			return
		}
		peer := courtesy.PeerID(device.Address.String())
		b.forget(peer)
		b.sink.Dispatch(courtesy.Disconnected{Peer: peer})
	})

	sink.Dispatch(courtesy.AdapterStateChanged{State: courtesy.AdapterPoweredOn})
	return nil
}

func (b *Bluetooth) StartScan(service uuid.UUID) error {
	want, err := toBluetooth(service)
	if err != nil {
		return err
	}

	b.mu.Lock()
	if b.scanning {
		b.mu.Unlock()
		return errors.New("scan already running")
	}
	b.scanning = true
	b.stopScan = false
	b.service, b.want = service, want
	clear(b.seen)
	b.mu.Unlock()

	go func() {
		err := b.adapter.Scan(func(a *bluetooth.Adapter, result bluetooth.ScanResult) {
			peer := courtesy.PeerID(result.Address.String())
			if !b.onScanResult(peer, result.Address, result.RSSI, result) {
				a.StopScan()
			}
		})

		b.mu.Lock()
		b.scanning = false
		b.mu.Unlock()
		if err != nil {
			b.logger.Warn("bluetooth scan ended", "error", err)
		}
	}()
	return nil
}

// advertPayload is the part of a scan result the notifier cares about
type advertPayload interface {
	LocalName() string
	HasServiceUUID(bluetooth.UUID) bool
}

// onScanResult forwards one scan result and reports whether scanning should
// continue. A stop requested before the scan loop was running is applied here.
func (b *Bluetooth) onScanResult(peer courtesy.PeerID, addr bluetooth.Address, rssi int16, payload advertPayload) bool {
	b.mu.Lock()
	if b.stopScan {
		b.mu.Unlock()
		return false
	}
	ad, ok := toAdvertisement(peer, rssi, payload, b.service, b.want)
	if ok {
		b.seen[peer] = addr
	}
	b.mu.Unlock()

	if ok {
		b.sink.Dispatch(ad)
	}
	return true
}

// toAdvertisement converts a scan result for a peripheral that advertises
// service. Other peripherals are dropped.
func toAdvertisement(peer courtesy.PeerID, rssi int16, payload advertPayload, service uuid.UUID, want bluetooth.UUID) (courtesy.Advertisement, bool) {
	if !payload.HasServiceUUID(want) {
		return courtesy.Advertisement{}, false
	}
	return courtesy.Advertisement{
		Peer:      peer,
		LocalName: payload.LocalName(),
		Services:  []uuid.UUID{service},
		RSSI:      int(rssi),
	}, true
}

func (b *Bluetooth) StopScan() error {
	b.mu.Lock()
	b.stopScan = true
	b.mu.Unlock()

	if err := b.adapter.StopScan(); err != nil {
		b.logger.Debug("stop scan", "error", err)
	}
	return nil
}

func (b *Bluetooth) Connect(peer courtesy.PeerID) error {
	b.mu.Lock()
	addr, ok := b.seen[peer]
	b.mu.Unlock()
	if !ok {
		return fmt.Errorf("unknown peer %s", peer)
	}

	go func() {
		device, err := b.adapter.Connect(addr, bluetooth.ConnectionParams{})
		if err != nil {
			b.sink.Dispatch(courtesy.ConnectFailed{Peer: peer, Err: err})
			return
		}

		b.mu.Lock()
		b.devices[peer] = device
		b.mu.Unlock()
		b.sink.Dispatch(courtesy.Connected{Peer: peer})
	}()
	return nil
}

func (b *Bluetooth) DiscoverServices(peer courtesy.PeerID, service uuid.UUID) error {
	want, err := toBluetooth(service)
	if err != nil {
		return err
	}
	device, err := b.device(peer)
	if err != nil {
		return err
	}

	go func() {
		services, err := device.DiscoverServices([]bluetooth.UUID{want})
		if err != nil {
			b.sink.Dispatch(courtesy.ServicesDiscovered{Peer: peer, Err: err})
			return
		}

		b.mu.Lock()
		b.services[peer] = services
		b.mu.Unlock()

		ids := make([]uuid.UUID, 0, len(services))
		for _, s := range services {
			if id, ok := fromBluetooth(s.UUID()); ok {
				ids = append(ids, id)
			}
		}
		b.sink.Dispatch(courtesy.ServicesDiscovered{Peer: peer, Services: ids})
	}()
	return nil
}

func (b *Bluetooth) DiscoverCharacteristics(peer courtesy.PeerID, service, characteristic uuid.UUID) error {
	want, err := toBluetooth(characteristic)
	if err != nil {
		return err
	}

	b.mu.Lock()
	services := b.services[peer]
	b.mu.Unlock()

	var svc *bluetooth.DeviceService
	for i := range services {
		if id, ok := fromBluetooth(services[i].UUID()); ok && id == service {
			svc = &services[i]
			break
		}
	}
	if svc == nil {
		return fmt.Errorf("service %s not discovered on %s", service, peer)
	}

	go func() {
		chars, err := svc.DiscoverCharacteristics([]bluetooth.UUID{want})
		if err != nil {
			b.sink.Dispatch(courtesy.CharacteristicsDiscovered{Peer: peer, Service: service, Err: err})
			return
		}

		ids := make([]uuid.UUID, 0, len(chars))
		for _, c := range chars {
			id, ok := fromBluetooth(c.UUID())
			if !ok {
				continue
			}
			if id == characteristic {
				b.mu.Lock()
				b.chars[peer] = c
				b.mu.Unlock()
			}
			ids = append(ids, id)
		}
		b.sink.Dispatch(courtesy.CharacteristicsDiscovered{Peer: peer, Service: service, Characteristics: ids})
	}()
	return nil
}

func (b *Bluetooth) Write(peer courtesy.PeerID, _, _ uuid.UUID, payload []byte) error {
	b.mu.Lock()
	char, ok := b.chars[peer]
	b.mu.Unlock()
	if !ok {
		return fmt.Errorf("no receive characteristic for %s", peer)
	}

	go func() {
		_, err := char.Write(payload)
		b.sink.Dispatch(courtesy.WriteCompleted{Peer: peer, Err: err})
	}()
	return nil
}

func (b *Bluetooth) CancelConnection(peer courtesy.PeerID) error {
	b.mu.Lock()
	device, ok := b.devices[peer]
	b.mu.Unlock()
	b.forget(peer)

	if !ok {
		return nil
	}
	return device.Disconnect()
}

func (b *Bluetooth) device(peer courtesy.PeerID) (bluetooth.Device, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	device, ok := b.devices[peer]
	if !ok {
		return bluetooth.Device{}, fmt.Errorf("peer %s not connected", peer)
	}
	return device, nil
}

func (b *Bluetooth) forget(peer courtesy.PeerID) {
	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.seen, peer)
	delete(b.devices, peer)
	delete(b.services, peer)
	delete(b.chars, peer)
}

func toBluetooth(id uuid.UUID) (bluetooth.UUID, error) {
	u, err := bluetooth.ParseUUID(id.String())
	if err != nil {
		return bluetooth.UUID{}, fmt.Errorf("convert uuid %s: %w", id, err)
	}
	return u, nil
}

func fromBluetooth(u bluetooth.UUID) (uuid.UUID, bool) {
	id, err := uuid.Parse(u.String())
	return id, err == nil
}
