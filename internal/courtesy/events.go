package courtesy

import "github.com/google/uuid"

// Event is a radio notification consumed by the notifier's transition function.
// The set of events is closed; only this package can add variants.
type Event interface {
	event()
}

// AdapterStateChanged reports a new radio power or permission state
type AdapterStateChanged struct {
	State AdapterState
}

// Advertisement is one advertising packet observed while scanning.
// Name is the peripheral's resolved name, LocalName the advertised one.
type Advertisement struct {
	Peer      PeerID
	Name      string
	LocalName string
	Services  []uuid.UUID
	RSSI      int
}

// Connected reports an established link
type Connected struct {
	Peer PeerID
}

// ConnectFailed reports a link that could not be established
type ConnectFailed struct {
	Peer PeerID
	Err  error
}

// ServicesDiscovered completes a service discovery request
type ServicesDiscovered struct {
	Peer     PeerID
	Services []uuid.UUID
	Err      error
}

// CharacteristicsDiscovered completes a characteristic discovery request
type CharacteristicsDiscovered struct {
	Peer            PeerID
	Service         uuid.UUID
	Characteristics []uuid.UUID
	Err             error
}

// WriteCompleted is the peer's acknowledgment of a write, or its failure
type WriteCompleted struct {
	Peer PeerID
	Err  error
}

// Disconnected reports that a link went away
type Disconnected struct {
	Peer PeerID
	Err  error
}

type scanStarted struct {
	attempt uuid.UUID
}

type scanFailed struct {
	attempt uuid.UUID
	err     error
}

type scanTimeout struct {
	attempt uuid.UUID
}

func (AdapterStateChanged) event()       {}
func (Advertisement) event()             {}
func (Connected) event()                 {}
func (ConnectFailed) event()             {}
func (ServicesDiscovered) event()        {}
func (CharacteristicsDiscovered) event() {}
func (WriteCompleted) event()            {}
func (Disconnected) event()              {}
func (scanStarted) event()               {}
func (scanFailed) event()                {}
func (scanTimeout) event()               {}

func containsUUID(ids []uuid.UUID, want uuid.UUID) bool {
	for _, id := range ids {
		if id == want {
			return true
		}
	}
	return false
}
