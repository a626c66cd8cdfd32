package courtesy

import "github.com/google/uuid"

// AdapterState mirrors the host radio's power and permission state
type AdapterState int

const (
	AdapterUnknown AdapterState = iota
	AdapterResetting
	AdapterUnsupported
	AdapterUnauthorized
	AdapterPoweredOff
	AdapterPoweredOn
)

func (s AdapterState) String() string {
	switch s {
	case AdapterResetting:
		return "resetting"
	case AdapterUnsupported:
		return "unsupported"
	case AdapterUnauthorized:
		return "unauthorized"
	case AdapterPoweredOff:
		return "powered_off"
	case AdapterPoweredOn:
		return "powered_on"
	default:
		return "unknown"
	}
}

// PeerID identifies a remote peripheral for the lifetime of one radio session
type PeerID string

// Radio is the BLE central the notifier drives. Every method only starts an
// operation; results come back as events through Notifier.Dispatch. A method
// returning an error means the operation never started.
type Radio interface {
	StartScan(service uuid.UUID) error
	StopScan() error
	Connect(peer PeerID) error
	DiscoverServices(peer PeerID, service uuid.UUID) error
	DiscoverCharacteristics(peer PeerID, service, characteristic uuid.UUID) error
	// Write must request a write acknowledgment from the peer.
	Write(peer PeerID, service, characteristic uuid.UUID, payload []byte) error
	CancelConnection(peer PeerID) error
}
