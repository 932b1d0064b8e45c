// SPDX-License-Identifier: EPL-2.0

package device

// Use identifies which engine is activating the audio session.
type Use int

const (
	UsePlayback Use = iota
	UseCapture
)

// EventKind classifies asynchronous audio-session events the OS may raise.
type EventKind int

const (
	// EventInterruption signals that another app or the system took over
	// the audio session (e.g. an incoming call). Engines pause.
	EventInterruption EventKind = iota
	// EventInterruptionEnded signals the interruption is over. Engines do
	// not auto-resume; the caller decides.
	EventInterruptionEnded
	// EventRouteChange signals the output/input route changed
	// (headphones unplugged, bluetooth connected).
	EventRouteChange
	// EventFocusLoss signals permanent loss of audio focus. Engines pause.
	EventFocusLoss
)

// Event is one asynchronous session notification.
type Event struct {
	Kind EventKind
}

// SessionManager is the OS audio session/focus collaborator. Engines
// notify it around start/stop and react to the events it raises.
type SessionManager interface {
	// Activate asks the OS for an active session for the given use.
	Activate(use Use) error
	// Deactivate releases the session for the given use.
	Deactivate(use Use)
	// Events delivers asynchronous session events. The channel is owned
	// by the manager and stays open for its lifetime.
	Events() <-chan Event
}

// NopSessions returns a SessionManager that always activates successfully
// and never raises events.
func NopSessions() SessionManager {
	return nopSessions{events: make(chan Event)}
}

type nopSessions struct {
	events chan Event
}

func (n nopSessions) Activate(Use) error   { return nil }
func (n nopSessions) Deactivate(Use)       {}
func (n nopSessions) Events() <-chan Event { return n.events }
