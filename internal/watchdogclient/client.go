// Package watchdogclient is the library a worker process links in to
// register itself with a watchdog server, send liveness kicks, and react
// to a fleet-wide terminate broadcast.
package watchdogclient

import (
	"os"
	"time"

	"log/slog"

	"watchdogd/internal/mailbox"
	"watchdogd/internal/protocol"
	"watchdogd/internal/wlog"
)

const registerReplyTimeout = 10 * time.Millisecond

// Status is the client's lifecycle state.
type Status int

const (
	Unregistered Status = iota
	Stopped
	Running
	Terminating
)

func (s Status) String() string {
	switch s {
	case Unregistered:
		return "Unregistered"
	case Stopped:
		return "Stopped"
	case Running:
		return "Running"
	case Terminating:
		return "Terminating"
	default:
		return "Unknown"
	}
}

// Client is a single unit's connection to its watchdog server.
type Client struct {
	name   string
	logger *slog.Logger
	ep     *mailbox.Endpoint

	status     Status
	serverName string
	settings   protocol.SlotSettings
	onFailure  protocol.ActionOnFailure
}

// New opens a mailbox endpoint named exactly unitName and returns an
// Unregistered client. unitName must be non-empty; violating this is
// fatal, matching the server's treatment of misconfiguration.
func New(logger *slog.Logger, net *mailbox.Network, unitName string) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if unitName == "" {
		wlog.Fatal(logger, "watchdog client requires a non-empty unit name")
		return nil
	}
	ep, err := net.Open(unitName)
	if err != nil {
		wlog.Fatal(logger, "failed to open client mailbox endpoint", "unit", unitName, "err", err)
		return nil
	}
	return &Client{
		name:   unitName,
		logger: logger,
		ep:     ep,
		status: Unregistered,
	}
}

// Status returns the client's current lifecycle state.
func (c *Client) Status() Status {
	return c.status
}

// Close unregisters the client if it is not already Unregistered. It
// satisfies Go's io.Closer-shaped resource-cleanup idiom in place of the
// destructor the original design relied on.
func (c *Client) Close() error {
	if c.status != Unregistered {
		c.Unregister()
	}
	c.ep.Close()
	return nil
}

// Register tells serverName about this unit with the given settings and
// failure policy. A reply is awaited for up to 10ms; failing to see a
// matching RegisterReply within that window, or from the wrong source, is
// fatal.
func (c *Client) Register(serverName string, settings protocol.SlotSettings, onFailure protocol.ActionOnFailure) error {
	if serverName == "" {
		wlog.Fatal(c.logger, "cannot register against an empty server name", "unit", c.name)
		return nil
	}
	if !settings.Valid() {
		wlog.Fatal(c.logger, "cannot register with invalid settings", "unit", c.name, "settings", settings)
		return nil
	}

	c.serverName = serverName + ".server"
	c.settings = settings
	c.onFailure = onFailure

	msg := protocol.Message{
		Class:     protocol.RegisterRequest,
		Name:      c.name,
		Settings:  settings,
		PID:       os.Getpid(),
		OnFailure: onFailure,
	}
	if err := c.ep.Send(c.serverName, msg); err != nil {
		wlog.Fatal(c.logger, "failed to send register request", "unit", c.name, "server", c.serverName, "err", err)
		return nil
	}

	c.ep.SetReceiveTimeout(registerReplyTimeout)
	frame := c.ep.Receive(mailbox.ReceiveOptions{Mode: mailbox.Timed})
	switch {
	case frame.DataType == mailbox.DataTypeTimedOut:
		wlog.Fatal(c.logger, "timed out waiting for register reply", "unit", c.name, "server", c.serverName)
		return nil
	case frame.DataType != mailbox.DataTypeWatchdogMessage:
		wlog.Fatal(c.logger, "unexpected frame data type waiting for register reply", "unit", c.name, "data_type", frame.DataType.String())
		return nil
	case frame.Message.Class != protocol.RegisterReply:
		wlog.Fatal(c.logger, "unexpected message class waiting for register reply", "unit", c.name, "class", frame.Message.Class.String())
		return nil
	case frame.Message.Source != c.serverName:
		wlog.Fatal(c.logger, "register reply from unexpected source", "unit", c.name, "source", frame.Message.Source, "want", c.serverName)
		return nil
	}

	c.status = Stopped
	return nil
}

// Unregister tells the server to forget this unit. No reply is awaited.
func (c *Client) Unregister() {
	c.sendConnectionless(protocol.UnregisterRequest)
	c.status = Unregistered
}

// Start tells the server to arm this unit's timer.
func (c *Client) Start() {
	c.sendConnectionless(protocol.Start)
	c.status = Running
}

// Stop tells the server to disarm this unit's timer.
func (c *Client) Stop() {
	c.sendConnectionless(protocol.Stop)
	c.status = Stopped
}

// Terminate sends a TerminateRequest. It does not change local status;
// the client only transitions to Terminating upon observing
// TerminateBroadcast via Kick.
func (c *Client) Terminate() {
	c.sendConnectionless(protocol.TerminateRequest)
}

// UpdateSettings validates and stores new settings locally, then informs
// the server.
func (c *Client) UpdateSettings(settings protocol.SlotSettings) error {
	if !settings.Valid() {
		wlog.Fatal(c.logger, "cannot update to invalid settings", "unit", c.name, "settings", settings)
		return nil
	}
	c.settings = settings
	msg := protocol.Message{Class: protocol.UpdateSettings, Name: c.name, Settings: settings}
	if err := c.ep.SendConnectionless(c.serverName, msg); err != nil {
		wlog.Warn(c.logger, "failed to send update-settings", "unit", c.name, "err", err)
	}
	return nil
}

// Kick sends a liveness heartbeat and checks for a pending terminate
// broadcast. It returns true if the worker should keep running, false if
// it should shut down cooperatively.
func (c *Client) Kick() bool {
	c.sendConnectionless(protocol.Kick)

	frame := c.ep.Receive(mailbox.ReceiveOptions{Mode: mailbox.Nonblocking})
	switch frame.DataType {
	case mailbox.DataTypeEmptyQueue:
		wlog.Silent(c.logger, "kick observed no pending message", "unit", c.name)
		return true
	case mailbox.DataTypeWatchdogMessage:
		if frame.Message.Class == protocol.TerminateBroadcast {
			c.status = Terminating
			return false
		}
		wlog.Warn(c.logger, "unexpected message class observed during kick", "unit", c.name, "class", frame.Message.Class.String())
		return true
	default:
		wlog.Warn(c.logger, "unexpected frame data type observed during kick", "unit", c.name, "data_type", frame.DataType.String(), "payload", frame.Message.Info())
		return false
	}
}

// Sync blocks until a SyncBroadcast arrives from the configured server.
func (c *Client) Sync() {
	for {
		frame := c.ep.Receive(mailbox.ReceiveOptions{Mode: mailbox.Connectionless})
		if frame.DataType == mailbox.DataTypeWatchdogMessage && frame.Message.Class == protocol.SyncBroadcast && frame.Message.Source == c.serverName {
			return
		}
	}
}

func (c *Client) sendConnectionless(class protocol.MessageClass) {
	msg := protocol.Message{Class: class, Name: c.name}
	if err := c.ep.SendConnectionless(c.serverName, msg); err != nil {
		wlog.Warn(c.logger, "connectionless send failed", "unit", c.name, "class", class.String(), "err", err)
	}
}
