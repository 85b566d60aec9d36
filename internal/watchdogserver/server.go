// Package watchdogserver implements the watchdog server: it owns the set of
// monitored units, runs a request-dispatch goroutine and an
// expiration-scan goroutine, and drives recovery through a
// processmanager.ProcessManager when a unit's TTL is exhausted.
package watchdogserver

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"watchdogd/internal/history"
	"watchdogd/internal/mailbox"
	"watchdogd/internal/processmanager"
	"watchdogd/internal/protocol"
	"watchdogd/internal/timer"
	"watchdogd/internal/wlog"
)

const defaultScanPeriod = 100 * time.Millisecond

var ignoreAlarmOnce sync.Once

// Server owns a fleet of monitored units, dispatching incoming mailbox
// requests and periodically scanning for expired timers.
type Server struct {
	name       string
	instanceID string
	logger     *slog.Logger
	net        *mailbox.Network
	ep         *mailbox.Endpoint
	pm         processmanager.ProcessManager
	metrics    *Metrics
	history    history.Store

	scanPeriod time.Duration

	mu    sync.Mutex
	units []*unit

	terminating atomic.Bool

	lastTimedOut      atomic.Bool
	lastNonblockEmpty atomic.Bool
}

// Option configures optional Server collaborators.
type Option func(*Server)

// WithMetrics attaches a Prometheus metrics sink. Nil is a valid no-op
// sink and is also what a Server has if this option is never applied.
func WithMetrics(m *Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithHistory attaches an audit-event store. Nil disables history
// recording.
func WithHistory(h history.Store) Option {
	return func(s *Server) { s.history = h }
}

// WithScanPeriod overrides the default 100ms scan interval.
func WithScanPeriod(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.scanPeriod = d
		}
	}
}

// New constructs a server identified by name, opening its mailbox endpoint
// immediately. A non-empty name and a non-nil process manager are
// required; violating either is fatal, matching the original design's
// treatment of misconfiguration as a programmer error.
func New(logger *slog.Logger, net *mailbox.Network, name string, pm processmanager.ProcessManager, opts ...Option) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if name == "" {
		wlog.Fatal(logger, "watchdog server requires a non-empty name")
		return nil
	}
	if pm == nil {
		wlog.Fatal(logger, "watchdog server requires a non-nil process manager")
		return nil
	}

	ignoreAlarmOnce.Do(func() {
		logger.Warn("suppressing process-wide SIGALRM delivery for watchdog timers")
		timer.IgnoreAlarmSignals()
	})

	endpointName := name + ".server"
	ep, err := net.Open(endpointName)
	if err != nil {
		wlog.Fatal(logger, "failed to open server mailbox endpoint", "endpoint", endpointName, "err", err)
		return nil
	}

	s := &Server{
		name:       name,
		instanceID: uuid.NewString(),
		logger:     logger,
		net:        net,
		ep:         ep,
		pm:         pm,
		scanPeriod: defaultScanPeriod,
	}
	for _, opt := range opts {
		opt(s)
	}
	logger.Info("watchdog server ready", "name", name, "instance_id", s.instanceID, "endpoint", endpointName)
	return s
}

// Name returns the server's configured name.
func (s *Server) Name() string {
	return s.name
}

// InstanceID returns a random identifier minted for this Server value,
// useful for correlating log lines across a restart under the same name.
func (s *Server) InstanceID() string {
	return s.instanceID
}

// TimedOut reports whether the most recent request-loop receive returned a
// timeout. Cleared at the start of the next receive.
func (s *Server) TimedOut() bool {
	return s.lastTimedOut.Load()
}

// NonblockingReadEmpty reports whether the most recent receive returned an
// empty-queue indication. Cleared at the start of the next receive.
func (s *Server) NonblockingReadEmpty() bool {
	return s.lastNonblockEmpty.Load()
}

// Snapshot returns a point-in-time, read-only copy of every registered
// unit.
func (s *Server) Snapshot() []UnitSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]UnitSnapshot, 0, len(s.units))
	for _, u := range s.units {
		out = append(out, u.snapshot())
	}
	return out
}

// Start runs the request-dispatch and expiration-scan goroutines until ctx
// is cancelled or Stop is called, then runs terminateAll and returns.
func (s *Server) Start(ctx context.Context) {
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		s.listenForRequests(ctx)
	}()
	go func() {
		defer wg.Done()
		s.checkExpiredUnits(ctx)
	}()

	wg.Wait()
	s.terminateAll()
}

// Stop sets the termination flag, causing both goroutines to exit within
// one scan period plus one receive timeout.
func (s *Server) Stop() {
	s.terminating.Store(true)
}

func (s *Server) listenForRequests(ctx context.Context) {
	s.ep.SetReceiveTimeout(s.scanPeriod)
	for !s.terminating.Load() {
		select {
		case <-ctx.Done():
			s.terminating.Store(true)
			return
		default:
		}

		s.lastTimedOut.Store(false)
		s.lastNonblockEmpty.Store(false)
		frame := s.ep.Receive(mailbox.ReceiveOptions{Mode: mailbox.Timed})

		switch frame.DataType {
		case mailbox.DataTypeTimedOut:
			s.lastTimedOut.Store(true)
			wlog.Silent(s.logger, "request loop receive timed out", "timeout", s.scanPeriod)
			continue
		case mailbox.DataTypeWatchdogMessage:
			s.parseRequest(frame.Message)
		default:
			wlog.Warn(s.logger, "unexpected frame data type on request loop", "data_type", frame.DataType.String())
		}
	}
}

func (s *Server) checkExpiredUnits(ctx context.Context) {
	ticker := time.NewTicker(s.scanPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.terminating.Store(true)
			return
		case <-ticker.C:
		}
		if s.terminating.Load() {
			return
		}
		if s.scanPass() {
			return
		}
	}
}

// scanPass walks the unit set once under the mutex. It returns true if a
// KillAll fired during the pass, signalling the caller to stop scanning.
func (s *Server) scanPass() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	var survivors []*unit
	for _, u := range s.units {
		if !u.Expired() {
			survivors = append(survivors, u)
			continue
		}
		remaining := u.DecrementAndReturnTTL()
		if remaining > 0 {
			u.RestartTimer()
			survivors = append(survivors, u)
			continue
		}
		s.metrics.recordExpiration()
		if s.handleUnitExpirationLocked(u) {
			// KillAll fired: s.units is left as it is and the
			// survivors collected so far are discarded; terminateAll
			// drains the set once both goroutines have returned.
			return true
		}
		// ResetOnly: u is not carried into survivors, it was removed.
	}
	s.units = survivors
	s.metrics.setLiveUnits(len(s.units))
	return false
}

// handleUnitExpirationLocked applies u's configured failure action. Caller
// holds s.mu. Returns true if this call triggered fleet termination.
func (s *Server) handleUnitExpirationLocked(u *unit) bool {
	switch u.onFailure {
	case protocol.KillAll:
		s.terminating.Store(true)
		return true
	default: // ResetOnly
		u.StopTimer()
		s.recordHistory(u.name, u.pid, string(history.KindReset), fmt.Sprintf("ttl exhausted, base_ttl=%d", u.settings.BaseTTL))
		s.metrics.recordReset()
		if err := s.pm.Reset(u.pid); err != nil {
			wlog.Warn(s.logger, "process manager reset failed", "unit", u.name, "pid", u.pid, "err", err)
		}
		return false
	}
}

// parseRequest dispatches a decoded message by class.
func (s *Server) parseRequest(msg protocol.Message) {
	switch msg.Class {
	case protocol.RegisterRequest:
		s.addNewUnit(msg)
	case protocol.UnregisterRequest:
		s.removeUnitByName(msg.Name, true)
	case protocol.UpdateSettings:
		s.withUnit(msg.Name, crash, func(u *unit) {
			u.UpdateSettings(msg.Settings)
		})
	case protocol.Kick:
		s.withUnit(msg.Name, warn, func(u *unit) {
			u.RestartTTL()
			u.RestartTimer()
		})
	case protocol.Start:
		s.withUnit(msg.Name, crash, func(u *unit) {
			u.StartTimer()
		})
	case protocol.Stop:
		s.withUnit(msg.Name, warn, func(u *unit) {
			u.StopTimer()
		})
	case protocol.SyncRequest:
		s.withUnit(msg.Name, ignore, func(u *unit) {})
	case protocol.TerminateRequest:
		s.withUnit(msg.Name, ignore, func(u *unit) {})
	default:
		wlog.Warn(s.logger, "dropping request with unhandled class", "class", msg.Class.String())
	}
}

type lookupMiss int

const (
	ignore lookupMiss = iota
	warn
	crash
)

// withUnit finds the unit named name and applies fn to it under the
// server's mutex. onMiss selects how a missing unit is reported.
func (s *Server) withUnit(name string, onMiss lookupMiss, fn func(*unit)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.units {
		if u.name == name {
			fn(u)
			return
		}
	}
	switch onMiss {
	case crash:
		wlog.Fatal(s.logger, "request referenced unknown unit", "unit", name)
	case warn:
		wlog.Warn(s.logger, "request referenced unknown unit", "unit", name)
	case ignore:
		wlog.Silent(s.logger, "request referenced unknown unit", "unit", name)
	}
}

// addNewUnit registers a new unit from a RegisterRequest. Duplicate names
// are fatal.
func (s *Server) addNewUnit(msg protocol.Message) {
	s.mu.Lock()
	for _, u := range s.units {
		if u.name == msg.Name {
			s.mu.Unlock()
			wlog.Fatal(s.logger, "duplicate unit registration", "unit", msg.Name)
			return
		}
	}
	u := newUnit(s.logger, msg.Name, msg.PID, msg.Settings, msg.OnFailure)
	s.units = append(s.units, u)
	s.metrics.setLiveUnits(len(s.units))
	s.mu.Unlock()

	s.logger.Info("unit registered", "unit", msg.Name, "pid", msg.PID, "on_failure", msg.OnFailure.String())
	s.metrics.recordRegistration()
	s.recordHistory(msg.Name, msg.PID, string(history.KindRegistered), fmt.Sprintf("base_ttl=%d timeout_ms=%d", msg.Settings.BaseTTL, msg.Settings.TimeoutMS))

	reply := protocol.Message{Class: protocol.RegisterReply, Name: msg.Name}
	if err := s.ep.SendConnectionless(msg.Source, reply); err != nil {
		wlog.Warn(s.logger, "failed to send register reply", "unit", msg.Name, "err", err)
	}
}

// removeUnitByName removes the named unit, if present. warnIfMissing
// controls whether absence is logged at warn level (request-driven
// unregister) or silently (internal cleanup paths).
func (s *Server) removeUnitByName(name string, warnIfMissing bool) {
	s.mu.Lock()
	idx := -1
	for i, u := range s.units {
		if u.name == name {
			idx = i
			break
		}
	}
	if idx == -1 {
		s.mu.Unlock()
		if warnIfMissing {
			wlog.Warn(s.logger, "unregister referenced unknown unit", "unit", name)
		}
		return
	}
	u := s.units[idx]
	u.StopTimer()
	s.units = append(s.units[:idx], s.units[idx+1:]...)
	s.metrics.setLiveUnits(len(s.units))
	s.mu.Unlock()

	s.metrics.recordUnregistration()
	s.recordHistory(u.name, u.pid, string(history.KindUnregistered), "")
}

// terminateAll drains the unit set, stopping every timer, and invokes the
// process manager's fleet teardown exactly once.
func (s *Server) terminateAll() {
	s.terminating.Store(true)

	s.mu.Lock()
	pids := make([]int, 0, len(s.units))
	names := make([]string, 0, len(s.units))
	for _, u := range s.units {
		u.StopTimer()
		pids = append(pids, u.pid)
		names = append(names, u.name)
	}
	s.units = nil
	s.metrics.setLiveUnits(0)
	s.mu.Unlock()

	s.recordHistory(s.name, 0, string(history.KindKillAll), fmt.Sprintf("%d units torn down", len(pids)))
	s.metrics.recordKillAll()

	if err := s.pm.KillAll(pids); err != nil {
		wlog.Warn(s.logger, "process manager kill-all failed", "err", err)
	}

	// Best effort: units may have already exited or never opened a
	// reachable endpoint. Failures are warned, not fatal.
	for _, name := range names {
		if err := s.ep.SendConnectionless(name, protocol.Message{Class: protocol.TerminateBroadcast}); err != nil {
			wlog.Warn(s.logger, "failed to deliver terminate broadcast", "unit", name, "err", err)
		}
	}
}

func (s *Server) recordHistory(unitName string, pid int, kind, detail string) {
	if s.history == nil {
		return
	}
	if err := s.history.Append(history.Event{
		UnitName: unitName,
		PID:      pid,
		Kind:     kind,
		Detail:   detail,
	}); err != nil {
		wlog.Warn(s.logger, "failed to append history event", "kind", kind, "unit", unitName, "err", err)
	}
}

// StartSynchronization blocks until the first RegisterRequest arrives,
// then accepts further registrations with a per-attempt timeout,
// refreshing a local countdown on each registration and decrementing it on
// each timeout. Once the countdown reaches zero it broadcasts
// SyncBroadcast to every registered unit and returns. It is never called
// by Start; a caller wanting a bounded-time bring-up barrier invokes it
// explicitly before Start.
func (s *Server) StartSynchronization(timeoutMS uint, baseTTL uint) {
	prior := s.ep.ReceiveTimeout()
	defer s.ep.SetReceiveTimeout(prior)

	s.ep.SetReceiveTimeout(time.Duration(timeoutMS) * time.Millisecond)

	// Block for the first registration without a deadline.
	for {
		frame := s.ep.Receive(mailbox.ReceiveOptions{Mode: mailbox.Normal})
		if frame.DataType == mailbox.DataTypeWatchdogMessage && frame.Message.Class == protocol.RegisterRequest {
			s.addNewUnit(frame.Message)
			break
		}
	}

	ttl := int(baseTTL)
	for ttl > 0 {
		frame := s.ep.Receive(mailbox.ReceiveOptions{Mode: mailbox.Timed})
		switch frame.DataType {
		case mailbox.DataTypeWatchdogMessage:
			if frame.Message.Class == protocol.RegisterRequest {
				s.addNewUnit(frame.Message)
				ttl = int(baseTTL)
			}
		case mailbox.DataTypeTimedOut:
			ttl--
		}
	}

	s.mu.Lock()
	names := make([]string, 0, len(s.units))
	for _, u := range s.units {
		names = append(names, u.name)
	}
	s.mu.Unlock()

	for _, name := range names {
		if err := s.ep.SendConnectionless(name, protocol.Message{Class: protocol.SyncBroadcast}); err != nil {
			wlog.Warn(s.logger, "failed to deliver sync broadcast", "unit", name, "err", err)
		}
	}
}
