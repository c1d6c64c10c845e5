// Package capability defines what happens over an established
// connection.  A Capability receives the lifecycle events of every
// connection it is attached to and operates on the connection's
// Session rather than a raw net.Conn, which keeps capabilities testable
// and decoupled from transport details.
package capability

import (
	"gochat/internal/session"
)

// Capability handles the per-connection lifecycle events.  The driver
// calls at most one of these at a time for a given connection; calls
// for different connections run in parallel.
type Capability interface {
	// OnConnect fires once, before any message.
	OnConnect(sess *session.Session)
	// OnMessage receives one frame without its terminator.  Returning
	// false ends the connection.
	OnMessage(sess *session.Session, frame string) bool
	// OnDisconnect fires once, whichever side closed the connection.
	OnDisconnect(sess *session.Session)
}

// Starter is implemented by capabilities that want to know when the
// owning server or client starts.
type Starter interface {
	OnStart()
}

// Stopper is implemented by capabilities that want to know when the
// owning server or client has stopped.
type Stopper interface {
	OnStop()
}

// Joiner is implemented by capabilities that want a callback after a
// connection's driver has fully finished.
type Joiner interface {
	OnJoin()
}

// Nop is a Capability that does nothing.  Embed it to implement only
// the hooks you need.
type Nop struct{}

func (Nop) OnConnect(*session.Session)              {}
func (Nop) OnMessage(*session.Session, string) bool { return true }
func (Nop) OnDisconnect(*session.Session)           {}

// ── Optional hook dispatch ───────────────────────────────────────────

// Start fires OnStart if c implements Starter.
func Start(c Capability) {
	if s, ok := c.(Starter); ok {
		s.OnStart()
	}
}

// Stop fires OnStop if c implements Stopper.
func Stop(c Capability) {
	if s, ok := c.(Stopper); ok {
		s.OnStop()
	}
}

// Join fires OnJoin if c implements Joiner and reports whether it did.
func Join(c Capability) bool {
	if j, ok := c.(Joiner); ok {
		j.OnJoin()
		return true
	}
	return false
}
