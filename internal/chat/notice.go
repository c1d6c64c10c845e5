package chat

import (
	"github.com/fatih/color"
)

// Notice texts.
const (
	msgConnected    = "New user has been connected to the server, Current users in the server: %d"
	msgHelpHint     = "/help to refer commands."
	msgDisconnected = "%s has been disconnected from the chatroom and the server, Current users: %d"
	anonymous       = "User"

	msgNameSpaces     = "Spaces can not be included in username"
	msgNameSet        = "Username has set to %s"
	msgJoinedRoom     = "%s has been connected to the chatroom, Current user in the chat room: %d"
	msgNameAlreadySet = "Username already set to %s"
	msgNameTaken      = "Username has already taken"
	msgNameChanged    = "Username has changed to %s"

	msgPMNeedsName = "Set username before sending message."
	msgPMUsage     = "Invalid usage: please use /pm <username> <message>."
	msgNoSuchUser  = "User name %s does not exist"
	msgPMFrom      = "Private message from %s: %s"
	msgPMTo        = "Private message to %s: %s"

	msgClosing        = "closing connection with the server."
	msgInvalidCommand = "Please type a valid command and parameters.\nUse /help to refer usage of command and parameters."

	msgSayNeedsName = "Set your username before sending a message"
	msgNoReceivers  = "There is no connected user to receive a message"
	msgBlank        = "Type any message to send other than whitespace"
	msgToEveryone   = "Message to everyone: %s"
	msgFrom         = "Message from %s: %s"

	msgHelp = "Available commands:\n" +
		"/userlist: Get the list of currently connected users. Usage: /userlist\n" +
		"/pm: Send a private message to a specific user. Usage: /pm <username>, <message_content>\n" +
		"/help: Display this help message. Usage: /help\n" +
		"/username: Set your username. Usage: /username <desired_username>\n" +
		"/close: Close the connection to the server. Usage: /close"
)

// Palette styles notices by class.  The zero Palette and one built
// with NewPalette(false) emit plain text.
type Palette struct {
	info, err, self, broadcast, from, to *color.Color
}

// NewPalette returns a Palette.  With enabled set, escape sequences are
// emitted even when the server's own stdout is not a terminal, since
// they are meant for the clients.
func NewPalette(enabled bool) *Palette {
	p := &Palette{
		info:      color.New(color.Bold, color.FgYellow),
		err:       color.New(color.Bold, color.FgRed, color.BgYellow),
		self:      color.New(color.Bold, color.FgMagenta),
		broadcast: color.New(color.Bold, color.FgGreen),
		from:      color.New(color.Bold, color.FgCyan),
		to:        color.New(color.Bold, color.FgHiBlue),
	}
	for _, c := range []*color.Color{p.info, p.err, p.self, p.broadcast, p.from, p.to} {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

func paint(c *color.Color, s string) string {
	if c == nil {
		return s
	}
	return c.Sprint(s)
}

// Info styles status notices.
func (p *Palette) Info(s string) string { return paint(p.info, s) }

// Error styles corrective notices.
func (p *Palette) Error(s string) string { return paint(p.err, s) }

// Self styles a sender's copy of its own broadcast.
func (p *Palette) Self(s string) string { return paint(p.self, s) }

// Broadcast styles chat text from another user.
func (p *Palette) Broadcast(s string) string { return paint(p.broadcast, s) }

// From styles an incoming private message.
func (p *Palette) From(s string) string { return paint(p.from, s) }

// To styles the sender's copy of a private message.
func (p *Palette) To(s string) string { return paint(p.to, s) }
