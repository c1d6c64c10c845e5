// Package chat is the chat room: the registry of live connections and
// their display names, command dispatch and message routing.
package chat

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"unicode"

	"gochat/internal/session"
)

var (
	// ErrInvalidName is returned by Claim for an empty name or one
	// containing whitespace.
	ErrInvalidName = errors.New("invalid username")
	// ErrNameTaken is returned by Claim when another connection owns
	// the name.
	ErrNameTaken = errors.New("username taken")
	// ErrUnknownSession is returned for a session not in the registry.
	ErrUnknownSession = errors.New("session not registered")
)

// ClaimResult says what a successful Claim did.
type ClaimResult int

const (
	// Assigned: the session had no name and now has one.
	Assigned ClaimResult = iota + 1
	// Changed: the session swapped its old name for a new one.
	Changed
	// AlreadyYours: the session already owns the name; nothing changed.
	AlreadyYours
)

func (r ClaimResult) String() string {
	switch r {
	case Assigned:
		return "assigned"
	case Changed:
		return "changed"
	case AlreadyYours:
		return "already-yours"
	default:
		return "unknown"
	}
}

// Registry tracks every live connection and the name index.  Both maps
// sit behind one lock and are only reachable through Update and View,
// so a compound step (check then insert, remove from both maps, mutate
// then broadcast) is always atomic with respect to other connections.
type Registry struct {
	mu          sync.RWMutex
	connections map[*session.Session]string // "" = unnamed
	names       map[string]*session.Session
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		connections: make(map[*session.Session]string),
		names:       make(map[string]*session.Session),
	}
}

// Update runs fn with exclusive access.
func (r *Registry) Update(fn func(tx *Tx)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fn(&Tx{r: r, writable: true})
}

// View runs fn with shared access.  Mutating calls on a read-only Tx
// panic.
func (r *Registry) View(fn func(tx *Tx)) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn(&Tx{r: r})
}

// Count returns the number of live connections.
func (r *Registry) Count() (n int) {
	r.View(func(tx *Tx) { n = tx.Count() })
	return n
}

// NamedCount returns the number of connections with a name.
func (r *Registry) NamedCount() (n int) {
	r.View(func(tx *Tx) { n = tx.NamedCount() })
	return n
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() (names []string) {
	r.View(func(tx *Tx) { names = tx.Names() })
	return names
}

// ── Tx ───────────────────────────────────────────────────────────────

// Tx is a view of the registry valid only inside Update or View.
type Tx struct {
	r        *Registry
	writable bool
}

func (tx *Tx) mustWrite() {
	if !tx.writable {
		panic("chat: mutating call in read-only registry transaction")
	}
}

// Add registers s with no name.  Adding a registered session is a no-op.
func (tx *Tx) Add(s *session.Session) {
	tx.mustWrite()
	if _, ok := tx.r.connections[s]; ok {
		return
	}
	tx.r.connections[s] = ""
}

// Remove drops s from both maps and returns the name it held.
func (tx *Tx) Remove(s *session.Session) (name string, had bool) {
	tx.mustWrite()
	name, ok := tx.r.connections[s]
	if !ok {
		return "", false
	}
	delete(tx.r.connections, s)
	if name != "" {
		delete(tx.r.names, name)
		s.ClearName()
		return name, true
	}
	return "", false
}

// Claim runs the username state machine for s.
func (tx *Tx) Claim(s *session.Session, name string) (ClaimResult, error) {
	tx.mustWrite()
	if !ValidName(name) {
		return 0, ErrInvalidName
	}
	current, ok := tx.r.connections[s]
	if !ok {
		return 0, ErrUnknownSession
	}
	if current == name {
		return AlreadyYours, nil
	}
	if _, taken := tx.r.names[name]; taken {
		return 0, ErrNameTaken
	}

	result := Assigned
	if current != "" {
		delete(tx.r.names, current)
		result = Changed
	}
	tx.r.connections[s] = name
	tx.r.names[name] = s
	s.SetName(name)
	return result, nil
}

// Lookup returns the session holding name.
func (tx *Tx) Lookup(name string) (*session.Session, bool) {
	s, ok := tx.r.names[name]
	return s, ok
}

// NameOf returns the name of s, if it has one.
func (tx *Tx) NameOf(s *session.Session) (string, bool) {
	name := tx.r.connections[s]
	return name, name != ""
}

// Names returns every registered name, sorted.
func (tx *Tx) Names() []string {
	out := make([]string, 0, len(tx.r.names))
	for name := range tx.r.names {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Sessions returns every live session in connection order.
func (tx *Tx) Sessions() []*session.Session {
	out := make([]*session.Session, 0, len(tx.r.connections))
	for s := range tx.r.connections {
		out = append(out, s)
	}
	sortSessions(out)
	return out
}

// Named returns the sessions that hold a name, ordered by name.
func (tx *Tx) Named() []*session.Session {
	names := tx.Names()
	out := make([]*session.Session, len(names))
	for i, name := range names {
		out[i] = tx.r.names[name]
	}
	return out
}

// Count returns the number of live connections.
func (tx *Tx) Count() int { return len(tx.r.connections) }

// NamedCount returns the number of named connections.
func (tx *Tx) NamedCount() int { return len(tx.r.names) }

// check verifies that the two maps agree.
func (tx *Tx) check() error {
	named := 0
	for s, name := range tx.r.connections {
		if name == "" {
			continue
		}
		named++
		if tx.r.names[name] != s {
			return fmt.Errorf("connection %s holds %q but the index disagrees", s.ID, name)
		}
	}
	if named != len(tx.r.names) {
		return fmt.Errorf("index has %d names, connections hold %d", len(tx.r.names), named)
	}
	for name, s := range tx.r.names {
		if !ValidName(name) {
			return fmt.Errorf("invalid name %q in index", name)
		}
		if got, ok := tx.r.connections[s]; !ok || got != name {
			return fmt.Errorf("index maps %q to a connection that does not hold it", name)
		}
	}
	return nil
}

// ValidName reports whether name can be registered: non-empty with no
// whitespace.
func ValidName(name string) bool {
	return name != "" && strings.IndexFunc(name, unicode.IsSpace) < 0
}

func sortSessions(ss []*session.Session) {
	sort.Slice(ss, func(i, j int) bool {
		if ss[i].ConnectedAt.Equal(ss[j].ConnectedAt) {
			return ss[i].ID < ss[j].ID
		}
		return ss[i].ConnectedAt.Before(ss[j].ConnectedAt)
	})
}
