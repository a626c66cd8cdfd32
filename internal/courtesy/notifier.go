// Package courtesy drives the BLE exchange that tells a bus a priority-seat
// passenger is waiting: scan for the bus by route, connect, find the receive
// characteristic, write the message, disconnect.
package courtesy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/randytsao24/comfortablemove/internal/identity"
)

var (
	ErrAttemptInFlight    = errors.New("notification attempt already in flight")
	ErrAdapterUnavailable = errors.New("bluetooth adapter unavailable")
	ErrTimeout            = errors.New("no matching bus found before scan timeout")
	ErrProtocolMismatch   = errors.New("peer does not expose the courtesy seat receiver")
	ErrTransport          = errors.New("bluetooth transport error")
)

// State is a step of a notification attempt
type State int

const (
	Idle State = iota
	Scanning
	Connecting
	DiscoveringServices
	DiscoveringCharacteristics
	Writing
	Completed
)

func (s State) String() string {
	switch s {
	case Scanning:
		return "scanning"
	case Connecting:
		return "connecting"
	case DiscoveringServices:
		return "discovering_services"
	case DiscoveringCharacteristics:
		return "discovering_characteristics"
	case Writing:
		return "writing"
	case Completed:
		return "completed"
	default:
		return "idle"
	}
}

// Protocol is the GATT surface and payload the notifier targets
type Protocol struct {
	Service          uuid.UUID
	RXCharacteristic uuid.UUID
	Message          string
	ScanTimeout      time.Duration
}

// Outcome describes a finished attempt
type Outcome struct {
	AttemptID  uuid.UUID
	Route      string
	DeviceName string
	Success    bool
	Err        error
	StartedAt  time.Time
	FinishedAt time.Time
}

// Recorder receives every finished attempt
type Recorder interface {
	RecordOutcome(Outcome)
}

// Status is a point-in-time view of the notifier
type Status struct {
	State    State
	Scanning bool
	Adapter  AdapterState
	Route    string
}

// Option configures a Notifier
type Option func(*Notifier)

// WithLogger sets the diagnostic logger
func WithLogger(l *slog.Logger) Option {
	return func(n *Notifier) { n.logger = l }
}

// WithRecorder sets where finished attempts are reported
func WithRecorder(r Recorder) Option {
	return func(n *Notifier) { n.recorder = r }
}

// WithScanningObserver is called each time the scanning flag toggles
func WithScanningObserver(fn func(bool)) Option {
	return func(n *Notifier) { n.onScanning = fn }
}

// WithAdapterState seeds the adapter state before the radio reports one
func WithAdapterState(s AdapterState) Option {
	return func(n *Notifier) { n.adapter = s }
}

type target struct {
	route      string
	deviceName string
}

type attempt struct {
	id         uuid.UUID
	target     target
	peer       PeerID
	timer      *time.Timer
	onComplete func(bool)
	startedAt  time.Time
	done       bool
}

// effect is radio or callback work issued by a transition. Effects run after
// the state lock is released so a radio may dispatch from inside a call.
type effect func()

// Notifier runs at most one notification attempt at a time
type Notifier struct {
	radio      Radio
	codec      identity.Codec
	proto      Protocol
	logger     *slog.Logger
	recorder   Recorder
	onScanning func(bool)

	mu       sync.Mutex
	adapter  AdapterState
	state    State
	scanning bool
	current  *attempt
}

// NewNotifier creates a notifier over radio. Radio events must be fed to Dispatch.
func NewNotifier(radio Radio, codec identity.Codec, proto Protocol, opts ...Option) *Notifier {
	n := &Notifier{
		radio:  radio,
		codec:  codec,
		proto:  proto,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Notify starts an attempt to deliver the courtesy message to the bus serving
// route. onComplete is called exactly once with the outcome. If the adapter is
// not powered on it is called with false before Notify returns. Notify returns
// ErrAttemptInFlight, without calling onComplete, while another attempt runs.
func (n *Notifier) Notify(route string, onComplete func(bool)) error {
	n.mu.Lock()
	if n.current != nil {
		n.mu.Unlock()
		return ErrAttemptInFlight
	}

	a := &attempt{
		id:         uuid.New(),
		target:     target{route: route, deviceName: n.codec.DeviceName(route)},
		onComplete: onComplete,
		startedAt:  time.Now(),
	}
	n.current = a

	var effects []effect
	if n.adapter != AdapterPoweredOn {
		effects = n.complete(a, fmt.Errorf("%w: adapter is %s", ErrAdapterUnavailable, n.adapter))
	} else {
		n.state = Scanning
		effects = append(effects, n.setScanning(true)...)
		effects = append(effects, func() {
			n.logger.Info("scanning for bus", "attempt", a.id, "route", route, "device", a.target.deviceName)
			if err := n.radio.StartScan(n.proto.Service); err != nil {
				n.Dispatch(scanFailed{attempt: a.id, err: err})
				return
			}
			n.Dispatch(scanStarted{attempt: a.id})
		})
	}
	n.mu.Unlock()

	run(effects)
	return nil
}

// Send is Notify as a blocking call. If ctx ends first it returns ctx.Err();
// the attempt itself still runs to completion.
func (n *Notifier) Send(ctx context.Context, route string) (bool, error) {
	done := make(chan bool, 1)
	if err := n.Notify(route, func(ok bool) { done <- ok }); err != nil {
		return false, err
	}

	select {
	case ok := <-done:
		return ok, nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

// Dispatch feeds one radio event to the state machine
func (n *Notifier) Dispatch(ev Event) {
	n.mu.Lock()
	effects := n.transition(ev)
	n.mu.Unlock()

	run(effects)
}

// Scanning reports whether an attempt is currently scanning
func (n *Notifier) Scanning() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.scanning
}

// AdapterState returns the last adapter state reported by the radio
func (n *Notifier) AdapterState() AdapterState {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.adapter
}

// State returns the current step of the state machine
func (n *Notifier) State() State {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.state
}

// Status returns a consistent snapshot of state, scanning flag and adapter
func (n *Notifier) Status() Status {
	n.mu.Lock()
	defer n.mu.Unlock()

	s := Status{State: n.state, Scanning: n.scanning, Adapter: n.adapter}
	if n.current != nil {
		s.Route = n.current.target.route
	}
	return s
}

// transition applies ev to the current attempt. Caller holds n.mu.
func (n *Notifier) transition(ev Event) []effect {
	if e, ok := ev.(AdapterStateChanged); ok {
		return n.adapterChanged(e.State)
	}

	a := n.current
	if started, ok := ev.(scanStarted); ok && !n.scanning && (a == nil || started.attempt != a.id) {
		// The attempt finished before its scan began; the radio is still scanning for it
		return []effect{n.stopScan}
	}
	if a == nil {
		return nil
	}

	switch e := ev.(type) {
	case scanStarted:
		if e.attempt != a.id || n.state != Scanning || a.timer != nil {
			return nil
		}
		id := a.id
		a.timer = time.AfterFunc(n.proto.ScanTimeout, func() {
			n.Dispatch(scanTimeout{attempt: id})
		})

	case scanFailed:
		if e.attempt == a.id && n.state == Scanning {
			return n.complete(a, fmt.Errorf("%w: start scan: %v", ErrTransport, e.err))
		}

	case scanTimeout:
		if e.attempt == a.id && n.state == Scanning {
			return n.complete(a, ErrTimeout)
		}

	case Advertisement:
		if n.state == Scanning {
			return n.advertisement(a, e)
		}

	case Connected:
		if n.state != Connecting || e.Peer != a.peer {
			return nil
		}
		n.state = DiscoveringServices
		n.logger.Info("connected to bus", "attempt", a.id, "route", a.target.route)
		peer, service := a.peer, n.proto.Service
		return []effect{func() {
			if err := n.radio.DiscoverServices(peer, service); err != nil {
				n.Dispatch(ServicesDiscovered{Peer: peer, Err: err})
			}
		}}

	case ConnectFailed:
		if n.state != Connecting || e.Peer != a.peer {
			return nil
		}
		a.peer = ""
		return n.complete(a, fmt.Errorf("%w: connect: %v", ErrTransport, e.Err))

	case ServicesDiscovered:
		if n.state != DiscoveringServices || e.Peer != a.peer {
			return nil
		}
		if e.Err != nil {
			return n.complete(a, fmt.Errorf("%w: service discovery: %v", ErrProtocolMismatch, e.Err))
		}
		if !containsUUID(e.Services, n.proto.Service) {
			return n.complete(a, fmt.Errorf("%w: service %s not found", ErrProtocolMismatch, n.proto.Service))
		}
		n.state = DiscoveringCharacteristics
		peer, service, rx := a.peer, n.proto.Service, n.proto.RXCharacteristic
		return []effect{func() {
			if err := n.radio.DiscoverCharacteristics(peer, service, rx); err != nil {
				n.Dispatch(CharacteristicsDiscovered{Peer: peer, Service: service, Err: err})
			}
		}}

	case CharacteristicsDiscovered:
		if n.state != DiscoveringCharacteristics || e.Peer != a.peer {
			return nil
		}
		if e.Err != nil {
			return n.complete(a, fmt.Errorf("%w: characteristic discovery: %v", ErrProtocolMismatch, e.Err))
		}
		if !containsUUID(e.Characteristics, n.proto.RXCharacteristic) {
			return n.complete(a, fmt.Errorf("%w: characteristic %s not found", ErrProtocolMismatch, n.proto.RXCharacteristic))
		}
		n.state = Writing
		peer, service, rx := a.peer, n.proto.Service, n.proto.RXCharacteristic
		payload := []byte(n.proto.Message)
		return []effect{func() {
			n.logger.Info("sending courtesy seat message", "attempt", a.id, "route", a.target.route, "bytes", len(payload))
			if err := n.radio.Write(peer, service, rx, payload); err != nil {
				n.Dispatch(WriteCompleted{Peer: peer, Err: err})
			}
		}}

	case WriteCompleted:
		if n.state != Writing || e.Peer != a.peer {
			return nil
		}
		if e.Err != nil {
			return n.complete(a, fmt.Errorf("%w: write: %v", ErrTransport, e.Err))
		}
		return n.complete(a, nil)

	case Disconnected:
		if a.peer == "" || e.Peer != a.peer {
			return nil
		}
		a.peer = ""
		return n.complete(a, fmt.Errorf("%w: peer disconnected during %s", ErrTransport, n.state))
	}

	return nil
}

func (n *Notifier) advertisement(a *attempt, ad Advertisement) []effect {
	if !containsUUID(ad.Services, n.proto.Service) {
		n.logger.Debug("ignoring peripheral without courtesy service", "peer", ad.Peer)
		return nil
	}

	name := ad.Name
	if name == "" {
		name = ad.LocalName
	}
	if name == "" {
		n.logger.Debug("ignoring unnamed peripheral", "peer", ad.Peer)
		return nil
	}

	route, ok := n.codec.RouteNumber(name)
	if !ok || route != a.target.route {
		n.logger.Debug("ignoring other bus", "peer", ad.Peer, "name", name, "rssi", ad.RSSI, "want", a.target.route)
		return nil
	}

	if a.timer != nil {
		a.timer.Stop()
	}
	a.peer = ad.Peer
	n.state = Connecting
	n.logger.Info("found bus, connecting", "attempt", a.id, "route", route, "peer", ad.Peer, "rssi", ad.RSSI)

	effects := n.setScanning(false)
	peer := ad.Peer
	return append(effects, func() {
		if err := n.radio.Connect(peer); err != nil {
			n.Dispatch(ConnectFailed{Peer: peer, Err: err})
		}
	})
}

func (n *Notifier) adapterChanged(s AdapterState) []effect {
	prev := n.adapter
	n.adapter = s
	if prev != s {
		n.logger.Info("bluetooth adapter state changed", "state", s.String())
	}

	if s == AdapterPoweredOn || n.current == nil {
		return nil
	}
	return n.complete(n.current, fmt.Errorf("%w: adapter is %s", ErrAdapterUnavailable, s))
}

// setScanning toggles the scanning flag and returns the radio and observer work
func (n *Notifier) setScanning(on bool) []effect {
	if n.scanning == on {
		return nil
	}
	n.scanning = on

	var effects []effect
	if !on {
		effects = append(effects, n.stopScan)
	}
	if fn := n.onScanning; fn != nil {
		effects = append(effects, func() { fn(on) })
	}
	return effects
}

// complete finishes a, releasing its scan, timer and peer. Caller holds n.mu.
func (n *Notifier) complete(a *attempt, cause error) []effect {
	if a.done {
		return nil
	}
	a.done = true
	if a.timer != nil {
		a.timer.Stop()
	}

	effects := n.setScanning(false)
	n.state = Completed
	n.current = nil

	outcome := Outcome{
		AttemptID:  a.id,
		Route:      a.target.route,
		DeviceName: a.target.deviceName,
		Success:    cause == nil,
		Err:        cause,
		StartedAt:  a.startedAt,
		FinishedAt: time.Now(),
	}

	if n.recorder != nil {
		rec := n.recorder
		effects = append(effects, func() { rec.RecordOutcome(outcome) })
	}

	effects = append(effects, func() {
		if outcome.Success {
			n.logger.Info("courtesy seat notification delivered", "attempt", a.id, "route", a.target.route)
		} else {
			n.logger.Warn("courtesy seat notification failed", "attempt", a.id, "route", a.target.route, "error", cause)
		}
		if a.onComplete != nil {
			a.onComplete(outcome.Success)
		}
	})

	if peer := a.peer; peer != "" {
		effects = append(effects, func() {
			if err := n.radio.CancelConnection(peer); err != nil {
				n.logger.Warn("disconnect failed", "peer", peer, "error", err)
			}
		})
	}

	return effects
}

func (n *Notifier) stopScan() {
	if err := n.radio.StopScan(); err != nil {
		n.logger.Warn("stop scan failed", "error", err)
	}
}

func run(effects []effect) {
	for _, fx := range effects {
		fx()
	}
}
