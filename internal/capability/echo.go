package capability

import (
	"gochat/internal/session"
)

// Echo sends every frame straight back to its sender.
type Echo struct {
	Nop
}

// OnMessage echoes frame.
func (Echo) OnMessage(sess *session.Session, frame string) bool {
	if err := sess.Send(frame); err != nil {
		sess.Logger.Debug("echo: %v", err)
	}
	return true
}
