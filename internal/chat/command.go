package chat

import (
	"errors"
	"fmt"
	"strings"

	"gochat/internal/session"
)

// Sigil marks a frame as a command.
const Sigil = "/"

// Command is a parsed command frame.
type Command struct {
	Name   string   // lower-cased; "" for a bare sigil
	Params string   // remaining tokens joined with ", "
	Args   []string // remaining tokens
}

// ParseCommand splits a frame that starts with the sigil into its
// command name and parameters.  ok is false for chat text.
func ParseCommand(frame string) (cmd Command, ok bool) {
	if !strings.HasPrefix(frame, Sigil) {
		return Command{}, false
	}
	fields := strings.Fields(frame[len(Sigil):])
	if len(fields) == 0 {
		return Command{}, true
	}
	return Command{
		Name:   strings.ToLower(fields[0]),
		Params: strings.Join(fields[1:], ", "),
		Args:   fields[1:],
	}, true
}

// ParsePrivate splits /pm parameters into target and body.  The target
// ends at the first comma; the body's ", " joins turn back into spaces.
// A comma inside the body is indistinguishable from a joined token
// boundary, so "a,b" in a message reads as "a b".
func ParsePrivate(params string) (target, body string, ok bool) {
	t, b, found := strings.Cut(params, ",")
	if !found {
		return "", "", false
	}
	target = strings.TrimSpace(t)
	body = strings.TrimSpace(strings.Join(strings.Split(b, ", "), " "))
	return target, body, target != "" && body != ""
}

// commandFunc handles one command.  Returning false ends the connection.
type commandFunc func(r *Room, s *session.Session, cmd Command) bool

var commands = map[string]commandFunc{
	"username": (*Room).cmdUsername,
	"pm":       (*Room).cmdPrivate,
	"userlist": (*Room).cmdUserlist,
	"help":     (*Room).cmdHelp,
	"close":    (*Room).cmdClose,
}

func (r *Room) dispatch(s *session.Session, cmd Command) bool {
	r.Logger.Debug("%s: command %q params %q", s, cmd.Name, cmd.Params)
	fn, ok := commands[cmd.Name]
	if !ok {
		r.reject(s, msgInvalidCommand)
		return true
	}
	return fn(r, s, cmd)
}

// ── Handlers ─────────────────────────────────────────────────────────

func (r *Room) cmdUsername(s *session.Session, cmd Command) bool {
	if len(cmd.Args) > 1 {
		r.reject(s, msgNameSpaces)
		return true
	}
	name := strings.Join(cmd.Args, "")
	r.Registry.Update(func(tx *Tx) {
		result, err := tx.Claim(s, name)
		switch {
		case errors.Is(err, ErrInvalidName):
			r.reject(s, msgNameSpaces)
		case errors.Is(err, ErrNameTaken):
			r.reject(s, msgNameTaken)
		case err != nil:
			r.Logger.Warn("%s: claim %q: %v", s, name, err)
		case result == AlreadyYours:
			r.reject(s, fmt.Sprintf(msgNameAlreadySet, name))
		case result == Changed:
			deliverTo(s, r.Palette.Info(fmt.Sprintf(msgNameChanged, name)))
			r.Logger.Info("%s changed username", s)
		case result == Assigned:
			deliverTo(s, r.Palette.Info(fmt.Sprintf(msgNameSet, name)))
			deliverNamed(tx, r.Palette.Info(fmt.Sprintf(msgJoinedRoom, name, tx.NamedCount())))
			r.Logger.Info("%s joined the chat room, named users: %d", s, tx.NamedCount())
		}
		r.Metrics.SetNamedUsers(tx.NamedCount())
	})
	return true
}

func (r *Room) cmdPrivate(s *session.Session, cmd Command) bool {
	r.Registry.View(func(tx *Tx) {
		from, named := tx.NameOf(s)
		if !named {
			r.reject(s, msgPMNeedsName)
			return
		}
		target, body, ok := ParsePrivate(cmd.Params)
		if !ok {
			r.reject(s, msgPMUsage)
			return
		}
		peer, found := tx.Lookup(target)
		if !found || peer == s {
			r.reject(s, fmt.Sprintf(msgNoSuchUser, target))
			return
		}
		deliverTo(peer, r.Palette.From(fmt.Sprintf(msgPMFrom, from, body)))
		deliverTo(s, r.Palette.To(fmt.Sprintf(msgPMTo, target, body)))
	})
	return true
}

func (r *Room) cmdUserlist(s *session.Session, _ Command) bool {
	var names []string
	r.Registry.View(func(tx *Tx) { names = tx.Names() })
	deliverTo(s, r.Palette.Info(strings.Join(names, "\n")))
	return true
}

func (r *Room) cmdHelp(s *session.Session, _ Command) bool {
	deliverTo(s, r.Palette.Info(msgHelp))
	return true
}

func (r *Room) cmdClose(s *session.Session, _ Command) bool {
	deliverTo(s, r.Palette.Error(msgClosing))
	if err := s.Close(); err != nil {
		r.Logger.Debug("%s: close: %v", s, err)
	}
	return false
}
