package timer

import (
	"testing"
	"time"
)

func TestTimerIdleByDefault(t *testing.T) {
	tm := New("unit-a.timer")
	if got := tm.Status(); got != Idle {
		t.Errorf("status = %s, want Idle", got)
	}
}

func TestTimerStartAndExpire(t *testing.T) {
	tm := New("unit-a.timer")
	tm.SetTimeoutMS(20)
	tm.Start()

	if got := tm.Status(); got != Running {
		t.Errorf("status immediately after Start = %s, want Running", got)
	}

	time.Sleep(40 * time.Millisecond)

	if got := tm.Status(); got != Expired {
		t.Errorf("status after deadline = %s, want Expired", got)
	}
}

func TestTimerResetClearsExpiry(t *testing.T) {
	tm := New("unit-a.timer")
	tm.SetTimeoutMS(20)
	tm.Start()
	time.Sleep(40 * time.Millisecond)
	if tm.Status() != Expired {
		t.Fatal("precondition: expected timer to be expired before reset")
	}

	tm.Reset()
	if got := tm.Status(); got != Running {
		t.Errorf("status right after Reset = %s, want Running", got)
	}
}

func TestTimerResetOnIdleIsNoop(t *testing.T) {
	tm := New("unit-a.timer")
	tm.SetTimeoutMS(20)
	tm.Reset()
	if got := tm.Status(); got != Idle {
		t.Errorf("status after Reset on idle timer = %s, want Idle", got)
	}
}

func TestTimerStop(t *testing.T) {
	tm := New("unit-a.timer")
	tm.SetTimeoutMS(10)
	tm.Start()
	tm.Stop()
	time.Sleep(30 * time.Millisecond)
	if got := tm.Status(); got != Idle {
		t.Errorf("status after Stop = %s, want Idle even past the old deadline", got)
	}
}

func TestIgnoreAlarmSignalsIsIdempotent(t *testing.T) {
	IgnoreAlarmSignals()
	IgnoreAlarmSignals()
}
