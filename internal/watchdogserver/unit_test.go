package watchdogserver

import (
	"testing"
	"time"

	"watchdogd/internal/protocol"
	"watchdogd/internal/timer"
	"watchdogd/internal/wlog"
)

func TestNewUnitInitialTTL(t *testing.T) {
	logger := wlog.New("error")
	u := newUnit(logger, "unit-a", 100, protocol.SlotSettings{BaseTTL: 3, TimeoutMS: 50}, protocol.ResetOnly)
	if u.ttl != 3 {
		t.Errorf("ttl = %d, want 3", u.ttl)
	}
	if u.timer.Status() != timer.Idle {
		t.Error("timer should not be armed by the constructor")
	}
}

func TestUnitDecrementAndReturnTTLSaturates(t *testing.T) {
	logger := wlog.New("error")
	u := newUnit(logger, "unit-a", 1, protocol.SlotSettings{BaseTTL: 2, TimeoutMS: 50}, protocol.ResetOnly)

	if got := u.DecrementAndReturnTTL(); got != 1 {
		t.Errorf("first decrement = %d, want 1", got)
	}
	if got := u.DecrementAndReturnTTL(); got != 0 {
		t.Errorf("second decrement = %d, want 0", got)
	}
	if got := u.DecrementAndReturnTTL(); got != 0 {
		t.Errorf("decrement past zero = %d, want saturate at 0", got)
	}
}

func TestUnitUpdateSettingsResetsTTL(t *testing.T) {
	logger := wlog.New("error")
	u := newUnit(logger, "unit-a", 1, protocol.SlotSettings{BaseTTL: 1, TimeoutMS: 50}, protocol.ResetOnly)
	u.DecrementAndReturnTTL()

	u.UpdateSettings(protocol.SlotSettings{BaseTTL: 5, TimeoutMS: 10})
	if u.ttl != 5 {
		t.Errorf("ttl after UpdateSettings = %d, want 5", u.ttl)
	}

	u.StartTimer()
	time.Sleep(20 * time.Millisecond)
	if !u.Expired() {
		t.Error("expected timer armed with the new deadline to expire")
	}
}

func TestUnitStartStopTimer(t *testing.T) {
	logger := wlog.New("error")
	u := newUnit(logger, "unit-a", 1, protocol.SlotSettings{BaseTTL: 1, TimeoutMS: 10}, protocol.ResetOnly)
	u.StartTimer()
	u.StopTimer()
	time.Sleep(20 * time.Millisecond)
	if u.Expired() {
		t.Error("a stopped timer must never report expired")
	}
}

func TestUnitRestartTimerDoesNotTouchTTL(t *testing.T) {
	logger := wlog.New("error")
	u := newUnit(logger, "unit-a", 1, protocol.SlotSettings{BaseTTL: 3, TimeoutMS: 10}, protocol.ResetOnly)
	u.StartTimer()
	u.DecrementAndReturnTTL()
	u.RestartTimer()
	if u.ttl != 2 {
		t.Errorf("RestartTimer must not change TTL, got %d, want 2", u.ttl)
	}
	time.Sleep(20 * time.Millisecond)
	if !u.Expired() {
		t.Error("expected timer to expire again after its restarted deadline elapses")
	}
}

func TestUnitSnapshot(t *testing.T) {
	logger := wlog.New("error")
	u := newUnit(logger, "unit-a", 77, protocol.SlotSettings{BaseTTL: 3, TimeoutMS: 10}, protocol.KillAll)
	snap := u.snapshot()
	if snap.Name != "unit-a" || snap.PID != 77 || snap.TTL != 3 || snap.OnFailure != protocol.KillAll {
		t.Errorf("unexpected snapshot: %+v", snap)
	}
}
