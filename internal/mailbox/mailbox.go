// Package mailbox implements the named-endpoint message transport consumed
// by internal/watchdogserver and internal/watchdogclient.
//
// The watchdog design treats the transport as an external collaborator:
// some deployments might back it with POSIX message queues, UDP sockets, or
// a message broker. This package ships the one concrete implementation a
// single Go binary (or a handful of goroutines simulating independent
// processes in tests) needs: an in-process registry of named, buffered
// channels. Everything above this package talks to the mailbox.Endpoint
// interface-shaped API only, so a socket-backed implementation could be
// swapped in without touching watchdogserver or watchdogclient.
package mailbox

import (
	"fmt"
	"time"

	"watchdogd/internal/protocol"
)

// DataType tags the kind of payload a Receive call returned, mirroring the
// transport-level envelope tag the original protocol design relies on to
// detect malformed or unexpected frames.
type DataType int

const (
	DataTypeWatchdogMessage DataType = iota
	DataTypeTimedOut
	DataTypeEmptyQueue
)

func (d DataType) String() string {
	switch d {
	case DataTypeWatchdogMessage:
		return "WatchdogMessage"
	case DataTypeTimedOut:
		return "TimedOut"
	case DataTypeEmptyQueue:
		return "EmptyQueue"
	default:
		return "Unknown"
	}
}

// Frame is what Receive hands back. Message is only valid when DataType is
// DataTypeWatchdogMessage.
type Frame struct {
	DataType DataType
	Message  protocol.Message
}

// Mode selects the blocking behavior of a Receive call.
type Mode int

const (
	// Normal blocks until a frame arrives.
	Normal Mode = iota
	// Timed blocks until a frame arrives or the receive timeout elapses.
	Timed
	// Nonblocking returns immediately, reporting DataTypeEmptyQueue if
	// nothing is queued.
	Nonblocking
	// Connectionless blocks the same way Normal does. It exists as a
	// distinct receive option only because the wire protocol
	// distinguishes it for symmetry with the two send primitives; this
	// transport's inbox does not distinguish frames by how they were
	// sent.
	Connectionless
)

// ReceiveOptions configures a single Receive call.
type ReceiveOptions struct {
	Mode Mode
	// Timeout overrides the endpoint's configured receive timeout for
	// Timed receives. Zero means "use the endpoint's configured value."
	Timeout time.Duration
}

const defaultInboxSize = 32

// Network is a registry of named endpoints. Callers open endpoints through
// a shared Network so that Send/SendConnectionless can resolve a
// destination name to its inbox.
type Network struct {
	reg       registry
	inboxSize int
}

// NewNetwork creates an empty registry whose endpoints buffer inboxSize
// messages before Send blocks or SendConnectionless reports the inbox
// full. inboxSize <= 0 uses a sane default. A process normally creates
// exactly one Network and opens every local endpoint (the server's
// "<name>.server" endpoint, each client's unit-name endpoint) on it; tests
// simulating several independent processes share one Network the same way
// independent processes would share one underlying message bus.
func NewNetwork(inboxSize int) *Network {
	if inboxSize <= 0 {
		inboxSize = defaultInboxSize
	}
	return &Network{reg: newRegistry(), inboxSize: inboxSize}
}

// Open registers a new named endpoint. It is an error to open the same name
// twice on one Network without closing it first.
func (n *Network) Open(name string) (*Endpoint, error) {
	if name == "" {
		return nil, fmt.Errorf("mailbox: endpoint name cannot be empty")
	}
	inbox := make(chan protocol.Message, n.inboxSize)
	if err := n.reg.add(name, inbox); err != nil {
		return nil, err
	}
	return &Endpoint{
		name:    name,
		network: n,
		inbox:   inbox,
	}, nil
}

// Endpoint is a single named mailbox. It is safe for concurrent use.
type Endpoint struct {
	name    string
	network *Network
	inbox   chan protocol.Message
	timeout durationBox
}

// durationBox makes the zero value of Endpoint safe to copy-free share a
// mutable timeout across the handful of methods that read/write it, without
// pulling in a separate mutex field for what is always a single int64 under
// the hood.
type durationBox = atomicDuration

// Name returns the name this endpoint was opened with.
func (e *Endpoint) Name() string {
	return e.name
}

// Close unregisters the endpoint. Frames already queued are discarded.
func (e *Endpoint) Close() {
	e.network.reg.remove(e.name)
}

// SetReceiveTimeout configures the deadline used by Timed receives that do
// not supply an explicit ReceiveOptions.Timeout.
func (e *Endpoint) SetReceiveTimeout(d time.Duration) {
	e.timeout.set(d)
}

// ReceiveTimeout returns the currently configured default Timed-receive
// deadline.
func (e *Endpoint) ReceiveTimeout() time.Duration {
	return e.timeout.get()
}

// Send delivers msg to dest, blocking until the destination endpoint's
// inbox has room. It fails if dest does not exist.
func (e *Endpoint) Send(dest string, msg protocol.Message) error {
	msg.Source = e.name
	target, ok := e.network.reg.lookup(dest)
	if !ok {
		return fmt.Errorf("mailbox: unknown destination %q", dest)
	}
	target <- msg
	return nil
}

// SendConnectionless delivers msg to dest without blocking. If the
// destination does not exist or its inbox is full, it returns an error
// instead of waiting; callers treat this as a warning-graded failure, never
// fatal.
func (e *Endpoint) SendConnectionless(dest string, msg protocol.Message) error {
	msg.Source = e.name
	target, ok := e.network.reg.lookup(dest)
	if !ok {
		return fmt.Errorf("mailbox: unknown destination %q", dest)
	}
	select {
	case target <- msg:
		return nil
	default:
		return fmt.Errorf("mailbox: inbox full for destination %q", dest)
	}
}

// Receive waits for the next frame according to opts.Mode.
func (e *Endpoint) Receive(opts ReceiveOptions) Frame {
	switch opts.Mode {
	case Nonblocking:
		select {
		case msg := <-e.inbox:
			return Frame{DataType: DataTypeWatchdogMessage, Message: msg}
		default:
			return Frame{DataType: DataTypeEmptyQueue}
		}
	case Timed:
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = e.timeout.get()
		}
		if timeout <= 0 {
			// No timeout configured; behave like Normal rather than
			// firing immediately.
			msg := <-e.inbox
			return Frame{DataType: DataTypeWatchdogMessage, Message: msg}
		}
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		select {
		case msg := <-e.inbox:
			return Frame{DataType: DataTypeWatchdogMessage, Message: msg}
		case <-timer.C:
			return Frame{DataType: DataTypeTimedOut}
		}
	default: // Normal, Connectionless
		msg := <-e.inbox
		return Frame{DataType: DataTypeWatchdogMessage, Message: msg}
	}
}
