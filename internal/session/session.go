// Package session holds the per-connection state record shared by the
// lifecycle driver and the capability that runs over it.
//
// Capabilities never touch the transport directly: they send through
// the session, which keeps them testable against an in-memory Sender.
package session

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"gochat/util"
)

// Sender is the outbound half of a framed connection.
type Sender interface {
	// Send writes payload as exactly one frame.
	Send(payload []byte) error
	// Close releases the transport.  It must be idempotent.
	Close() error
}

// Session encapsulates the runtime context for a single connection.
type Session struct {
	ID          string
	RemoteAddr  string
	ConnectedAt time.Time
	Logger      *util.Logger

	conn Sender

	mu    sync.Mutex
	name  string
	named bool
}

// New creates a Session bound to conn.  The logger is tagged with the
// session ID.
func New(conn Sender, remoteAddr string, logger *util.Logger) *Session {
	id := uuid.NewString()
	if logger == nil {
		logger = util.NewLogger(0)
	}
	return &Session{
		ID:          id,
		RemoteAddr:  remoteAddr,
		ConnectedAt: time.Now(),
		Logger:      logger.With("conn " + id[:8]),
		conn:        conn,
	}
}

// Send writes one frame to the peer.
func (s *Session) Send(text string) error {
	return s.conn.Send([]byte(text))
}

// Close releases the connection's transport.
func (s *Session) Close() error {
	return s.conn.Close()
}

// Name returns the display name and whether one is set.
func (s *Session) Name() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.name, s.named
}

// SetName records the display name.  Only the chat registry calls this,
// from inside its critical section, so the record and the registry's
// maps never disagree.
func (s *Session) SetName(name string) {
	s.mu.Lock()
	s.name, s.named = name, true
	s.mu.Unlock()
}

// ClearName forgets the display name.  Registry-only, like SetName.
func (s *Session) ClearName() {
	s.mu.Lock()
	s.name, s.named = "", false
	s.mu.Unlock()
}

func (s *Session) String() string {
	if name, ok := s.Name(); ok {
		return fmt.Sprintf("%s (%s)", name, s.RemoteAddr)
	}
	return s.RemoteAddr
}
