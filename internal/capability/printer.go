package capability

import (
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/x/ansi"

	"gochat/internal/session"
)

// Printer writes every received frame to Out on its own line.  It is
// the client front-end: the server does the formatting, the client just
// shows it.
type Printer struct {
	Nop

	Out       io.Writer
	StripANSI bool // drop escape sequences, e.g. when Out is not a terminal

	mu sync.Mutex
}

// OnMessage prints frame.
func (p *Printer) OnMessage(_ *session.Session, frame string) bool {
	if p.StripANSI {
		frame = ansi.Strip(frame)
	}
	p.mu.Lock()
	fmt.Fprintln(p.Out, frame)
	p.mu.Unlock()
	return true
}
