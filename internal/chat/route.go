package chat

import (
	"gochat/internal/session"
)

// deliverTo sends text to one connection.  The deliver helpers run
// inside a registry transaction; a failed send is logged on the
// recipient's session and never stops the fan-out.
func deliverTo(s *session.Session, text string) {
	if err := s.Send(text); err != nil {
		s.Logger.Debug("send: %v", err)
	}
}

// deliverAll sends text to every live connection.
func deliverAll(tx *Tx, text string) {
	for _, s := range tx.Sessions() {
		deliverTo(s, text)
	}
}

// deliverOthers sends text to every live connection except one.
func deliverOthers(tx *Tx, except *session.Session, text string) {
	for _, s := range tx.Sessions() {
		if s != except {
			deliverTo(s, text)
		}
	}
}

// deliverNamed sends text to every named connection.
func deliverNamed(tx *Tx, text string) {
	for _, s := range tx.Named() {
		deliverTo(s, text)
	}
}

// deliverChat sends self to the sender and others to every other named
// connection.
func deliverChat(tx *Tx, from *session.Session, self, others string) {
	for _, s := range tx.Named() {
		if s == from {
			deliverTo(s, self)
		} else {
			deliverTo(s, others)
		}
	}
}
