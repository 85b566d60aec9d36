package watchdogserver

import (
	"log/slog"

	"watchdogd/internal/protocol"
	"watchdogd/internal/timer"
	"watchdogd/internal/wlog"
)

// unit is the server-side record of one monitored worker. It is exclusively
// owned by the server: all access happens while the server's mutex is held.
type unit struct {
	name      string
	pid       int
	settings  protocol.SlotSettings
	onFailure protocol.ActionOnFailure
	timer     *timer.Timer
	ttl       int
}

// newUnit constructs a unit, or logs fatally and returns nil if name is
// empty or settings are invalid. The timer is configured but not armed;
// callers decide when to StartTimer.
func newUnit(logger *slog.Logger, name string, pid int, settings protocol.SlotSettings, onFailure protocol.ActionOnFailure) *unit {
	if name == "" {
		wlog.Fatal(logger, "cannot create unit with empty name")
		return nil
	}
	if !settings.Valid() {
		wlog.Fatal(logger, "cannot create unit with invalid settings", "name", name, "settings", settings)
		return nil
	}
	t := timer.New(name + ".timer")
	t.SetTimeoutMS(settings.TimeoutMS)
	return &unit{
		name:      name,
		pid:       pid,
		settings:  settings,
		onFailure: onFailure,
		timer:     t,
		ttl:       int(settings.BaseTTL),
	}
}

func (u *unit) StartTimer() {
	u.timer.ClearTimeoutSettings()
	u.timer.SetTimeoutMS(u.settings.TimeoutMS)
	u.timer.Start()
}

func (u *unit) RestartTimer() {
	u.timer.Reset()
}

func (u *unit) RestartTTL() {
	u.ttl = int(u.settings.BaseTTL)
}

func (u *unit) StopTimer() {
	u.timer.Stop()
}

// UpdateSettings replaces the unit's settings, sets the timer's configured
// timeout to the new TimeoutMS (used from the next StartTimer or
// RestartTimer), and restores full TTL credit.
func (u *unit) UpdateSettings(s protocol.SlotSettings) {
	u.settings = s
	u.timer.SetTimeoutMS(s.TimeoutMS)
	u.ttl = int(s.BaseTTL)
}

func (u *unit) Expired() bool {
	return u.timer.Status() == timer.Expired
}

// DecrementAndReturnTTL debits one credit and returns the remaining
// balance, saturating at zero.
func (u *unit) DecrementAndReturnTTL() int {
	if u.ttl > 0 {
		u.ttl--
	}
	return u.ttl
}

// UnitSnapshot is a read-only copy of a unit's observable state, safe to
// hand to API/dashboard callers outside the server's mutex.
type UnitSnapshot struct {
	Name      string
	PID       int
	Settings  protocol.SlotSettings
	TTL       int
	OnFailure protocol.ActionOnFailure
}

func (u *unit) snapshot() UnitSnapshot {
	return UnitSnapshot{
		Name:      u.name,
		PID:       u.pid,
		Settings:  u.settings,
		TTL:       u.ttl,
		OnFailure: u.onFailure,
	}
}
