// Package protocol defines the wire types exchanged between a WatchdogClient
// and a WatchdogServer over a mailbox.Endpoint.
package protocol

import "fmt"

// SlotSettings describes how long a unit may run before it must report
// liveness, and how many consecutive misses it may accumulate before
// recovery fires.
type SlotSettings struct {
	BaseTTL   uint
	TimeoutMS uint
}

// Zero reports whether both fields are unset.
func (s SlotSettings) Zero() bool {
	return s.BaseTTL == 0 && s.TimeoutMS == 0
}

// Valid reports whether the settings may be used to arm a unit's timer.
// Both fields must be at least 1.
func (s SlotSettings) Valid() bool {
	return s.BaseTTL >= 1 && s.TimeoutMS >= 1
}

// ActionOnFailure selects the recovery policy for a unit once its TTL is
// exhausted.
type ActionOnFailure int

const (
	ResetOnly ActionOnFailure = iota
	KillAll
)

func (a ActionOnFailure) String() string {
	switch a {
	case ResetOnly:
		return "RESET_ONLY"
	case KillAll:
		return "KILL_ALL"
	default:
		return fmt.Sprintf("ActionOnFailure(%d)", int(a))
	}
}

// MessageClass enumerates the watchdog wire protocol's message types.
type MessageClass int

const (
	None MessageClass = iota
	Any

	RegisterRequest
	RegisterReply
	UnregisterRequest
	Start
	Stop
	Kick
	UpdateSettings
	SyncRequest
	SyncBroadcast
	TerminateRequest
	TerminateBroadcast
)

var classNames = map[MessageClass]string{
	None:                "NONE",
	Any:                 "ANY",
	RegisterRequest:     "REGISTER_REQUEST",
	RegisterReply:       "REGISTER_REPLY",
	UnregisterRequest:   "UNREGISTER_REQUEST",
	Start:               "START",
	Stop:                "STOP",
	Kick:                "KICK",
	UpdateSettings:      "UPDATE_SETTINGS",
	SyncRequest:         "SYNC_REQUEST",
	SyncBroadcast:       "SYNC_BROADCAST",
	TerminateRequest:    "TERMINATE_REQUEST",
	TerminateBroadcast:  "TERMINATE_BROADCAST",
}

func (c MessageClass) String() string {
	if name, ok := classNames[c]; ok {
		return name
	}
	return fmt.Sprintf("MessageClass(%d)", int(c))
}

// Message is the payload exchanged between client and server. Fields that
// are not meaningful for a given Class are left zero.
type Message struct {
	Class     MessageClass
	Source    string
	Name      string
	Settings  SlotSettings
	PID       int
	OnFailure ActionOnFailure
}

// Info renders a short diagnostic summary, used in warning/fatal log lines.
func (m Message) Info() string {
	return fmt.Sprintf("class=%s source=%q name=%q pid=%d on_failure=%s settings={base_ttl=%d timeout_ms=%d}",
		m.Class, m.Source, m.Name, m.PID, m.OnFailure, m.Settings.BaseTTL, m.Settings.TimeoutMS)
}
