// Package core is the orchestration layer.  It runs capabilities over
// connections (the lifecycle Driver, the listening Server and the
// dialing Client) and composes them into complete operational modes,
// with a builder that selects the right mode from a Config.
//
// Architecture layers (bottom → top):
//
//	wire  →  session  →  capability  →  core  →  cmd (CLI)
package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/sync/errgroup"

	ncerr "gochat/internal/errors"
	"gochat/internal/gateway"
	"gochat/util"
)

// Mode represents a complete operational mode of gochat (server or
// client).  Each mode owns its full lifecycle from connection
// establishment to teardown.
type Mode interface {
	Run(ctx context.Context) error
}

// ── Listen ───────────────────────────────────────────────────────────

// ListenMode runs the chat server, plus the admin gateway when one is
// configured, until ctx ends or either fails.
type ListenMode struct {
	Server  *Server
	Host    string
	Port    int
	Gateway *gateway.Gateway // optional
	Logger  *util.Logger
}

// Run serves until ctx is cancelled.
func (m *ListenMode) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return m.Server.Start(m.Host, m.Port)
	})
	g.Go(func() error {
		<-gctx.Done()
		m.Server.Stop()
		return nil
	})
	if m.Gateway != nil {
		g.Go(func() error {
			return m.Gateway.Run(gctx)
		})
	}

	return g.Wait()
}

// ── Connect ──────────────────────────────────────────────────────────

// ConnectMode dials the server and sends each stdin line as a frame.
// Frames from the server are handled by the client's capability.
type ConnectMode struct {
	Client *Client
	Host   string
	Port   int
	Logger *util.Logger

	// Stdin defaults to os.Stdin when nil.
	Stdin io.Reader
}

func (m *ConnectMode) stdin() io.Reader {
	if m.Stdin != nil {
		return m.Stdin
	}
	return os.Stdin
}

// Run connects and relays input until ctx ends, stdin reaches EOF, or
// the server closes the connection.
func (m *ConnectMode) Run(ctx context.Context) error {
	if err := m.Client.Start(ctx, m.Host, m.Port); err != nil {
		return err
	}
	defer m.Client.Stop()

	lines := util.ReadLines(ctx, m.stdin())
	for {
		select {
		case <-ctx.Done():
			m.Logger.Verbose("interrupted, disconnecting from the server")
			return nil
		case <-m.Client.Done():
			m.Logger.Warn("server has closed the connection")
			return nil
		case line, ok := <-lines:
			if !ok {
				m.Logger.Verbose("end of input, disconnecting from the server")
				return nil
			}
			if err := m.Client.SendContext(ctx, []byte(line)); err != nil {
				if errors.Is(err, ncerr.ErrNotRunning) || ncerr.IsClosed(err) {
					m.Logger.Warn("server has closed the connection")
					return nil
				}
				if ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("send: %w", err)
			}
		}
	}
}
