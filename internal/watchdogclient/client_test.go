package watchdogclient

import (
	"testing"
	"time"

	"watchdogd/internal/mailbox"
	"watchdogd/internal/protocol"
	"watchdogd/internal/wlog"
)

// fakeServer answers register requests on a mailbox endpoint so Client
// tests can exercise Register without a real watchdogserver.Server.
func fakeServer(t *testing.T, net *mailbox.Network, name string) *mailbox.Endpoint {
	t.Helper()
	ep, err := net.Open(name + ".server")
	if err != nil {
		t.Fatalf("open fake server endpoint: %v", err)
	}
	return ep
}

func TestRegisterSucceedsOnReply(t *testing.T) {
	net := mailbox.NewNetwork(0)
	server := fakeServer(t, net, "watchdog")
	defer server.Close()

	logger := wlog.New("error")
	c := New(logger, net, "unit-a")
	defer c.Close()

	go func() {
		frame := server.Receive(mailbox.ReceiveOptions{Mode: mailbox.Normal})
		if frame.DataType != mailbox.DataTypeWatchdogMessage || frame.Message.Class != protocol.RegisterRequest {
			t.Errorf("unexpected frame received by fake server: %+v", frame)
			return
		}
		_ = server.SendConnectionless(frame.Message.Source, protocol.Message{Class: protocol.RegisterReply})
	}()

	if err := c.Register("watchdog", protocol.SlotSettings{BaseTTL: 3, TimeoutMS: 50}, protocol.ResetOnly); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if c.Status() != Stopped {
		t.Errorf("status after successful register = %s, want Stopped", c.Status())
	}
}

func TestKickEmptyQueueKeepsRunning(t *testing.T) {
	net := mailbox.NewNetwork(0)
	server := fakeServer(t, net, "watchdog")
	defer server.Close()

	logger := wlog.New("error")
	c := New(logger, net, "unit-a")
	defer c.Close()
	c.serverName = "watchdog.server"

	go func() {
		server.Receive(mailbox.ReceiveOptions{Mode: mailbox.Timed, Timeout: time.Second})
	}()

	if keepRunning := c.Kick(); !keepRunning {
		t.Error("expected Kick to return true with no pending terminate broadcast")
	}
}

func TestKickObservesTerminateBroadcast(t *testing.T) {
	net := mailbox.NewNetwork(0)
	server := fakeServer(t, net, "watchdog")
	defer server.Close()

	logger := wlog.New("error")
	c := New(logger, net, "unit-a")
	defer c.Close()
	c.serverName = "watchdog.server"

	go func() {
		_ = server.SendConnectionless("unit-a", protocol.Message{Class: protocol.TerminateBroadcast})
		frame := server.Receive(mailbox.ReceiveOptions{Mode: mailbox.Timed, Timeout: time.Second})
		if frame.DataType != mailbox.DataTypeWatchdogMessage {
			t.Errorf("fake server expected a kick, got %+v", frame)
			return
		}
	}()

	// Give the server goroutine a moment to deliver the broadcast before
	// the client's non-blocking read.
	time.Sleep(20 * time.Millisecond)

	if keepRunning := c.Kick(); keepRunning {
		t.Error("expected Kick to return false after observing a terminate broadcast")
	}
	if c.Status() != Terminating {
		t.Errorf("status after terminate broadcast = %s, want Terminating", c.Status())
	}
}

func TestCloseUnregistersOnlyWhenRegistered(t *testing.T) {
	net := mailbox.NewNetwork(0)
	server := fakeServer(t, net, "watchdog")
	defer server.Close()

	logger := wlog.New("error")
	c := New(logger, net, "unit-a")

	received := make(chan protocol.Message, 1)
	go func() {
		frame := server.Receive(mailbox.ReceiveOptions{Mode: mailbox.Timed, Timeout: time.Second})
		received <- frame.Message
	}()

	// Not registered: Close must not send anything.
	_ = c.Close()

	select {
	case msg := <-received:
		t.Errorf("expected no message from Close on an unregistered client, got %+v", msg)
	case <-time.After(30 * time.Millisecond):
	}
}
