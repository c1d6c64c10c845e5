package chat

import (
	"fmt"
	"strings"

	"gochat/internal/metrics"
	"gochat/internal/session"
	"gochat/util"
)

// Room is the chat application run over every server connection.  It
// implements capability.Capability plus the Starter and Stopper hooks.
//
// Registry mutations and the notices they cause happen in one Update,
// so every connection sees connects, disconnects and renames in the
// same order.
type Room struct {
	Registry *Registry
	Palette  *Palette
	Logger   *util.Logger
	Metrics  *metrics.Collector
}

// NewRoom returns a Room with an empty registry.  palette may be nil
// for plain text.
func NewRoom(palette *Palette, logger *util.Logger, m *metrics.Collector) *Room {
	if palette == nil {
		palette = NewPalette(false)
	}
	if logger == nil {
		logger = util.NewLogger(0)
	}
	return &Room{
		Registry: NewRegistry(),
		Palette:  palette,
		Logger:   logger,
		Metrics:  m,
	}
}

// OnStart logs that the room is open.
func (r *Room) OnStart() { r.Logger.Info("chat room open") }

// OnStop logs that the room has closed.
func (r *Room) OnStop() {
	r.Logger.Info("chat room closed")
}

// OnConnect registers s and announces it.  The new connection gets the
// help hint instead of the announcement.
func (r *Room) OnConnect(s *session.Session) {
	r.Registry.Update(func(tx *Tx) {
		tx.Add(s)
		n := tx.Count()
		deliverOthers(tx, s, r.Palette.Info(fmt.Sprintf(msgConnected, n)))
		deliverTo(s, r.Palette.Info(msgHelpHint))
		r.Logger.Info("new user connected from %s, users: %d", s.RemoteAddr, n)
	})
}

// OnDisconnect drops s from the registry and tells everyone left.
func (r *Room) OnDisconnect(s *session.Session) {
	r.Registry.Update(func(tx *Tx) {
		name, had := tx.Remove(s)
		if !had {
			name = anonymous
		}
		n := tx.Count()
		deliverAll(tx, r.Palette.Info(fmt.Sprintf(msgDisconnected, name, n)))
		r.Metrics.SetNamedUsers(tx.NamedCount())
		r.Logger.Info("%s disconnected, users: %d", name, n)
	})
}

// OnMessage handles one frame from s.  Only /close returns false.
func (r *Room) OnMessage(s *session.Session, frame string) bool {
	if cmd, ok := ParseCommand(frame); ok {
		return r.dispatch(s, cmd)
	}
	r.say(s, frame)
	return true
}

// say broadcasts chat text to the named connections.
func (r *Room) say(s *session.Session, text string) {
	r.Registry.View(func(tx *Tx) {
		name, named := tx.NameOf(s)
		switch {
		case !named:
			r.reject(s, msgSayNeedsName)
		case tx.NamedCount() <= 1:
			r.reject(s, msgNoReceivers)
		case strings.TrimSpace(text) == "":
			r.reject(s, msgBlank)
		default:
			deliverChat(tx, s,
				r.Palette.Self(fmt.Sprintf(msgToEveryone, text)),
				r.Palette.Broadcast(fmt.Sprintf(msgFrom, name, text)))
		}
	})
}

// reject sends s one corrective notice.
func (r *Room) reject(s *session.Session, text string) {
	r.Metrics.ProtocolViolation()
	r.Logger.Debug("%s: %s", s, strings.SplitN(text, "\n", 2)[0])
	deliverTo(s, r.Palette.Error(text))
}
