package core

import (
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"gochat/config"
	"gochat/internal/capability"
	ncerr "gochat/internal/errors"
	"gochat/internal/metrics"
	"gochat/internal/session"
	"gochat/internal/wire"
	"gochat/util"
)

// FullNotice is sent to connections turned away by MaxConns.
const FullNotice = "Server is full, please try again later."

// Server is the listener loop.  It runs one Driver per accepted
// connection and, on stop, waits for every driver before firing OnStop.
type Server struct {
	Capability   capability.Capability
	Logger       *util.Logger
	Metrics      *metrics.Collector
	PollInterval time.Duration
	WriteTimeout time.Duration
	MaxConns     int // 0 = unlimited

	initOnce sync.Once
	ready    chan struct{}
	started  atomic.Bool
	bound    atomic.Bool
	stopping atomic.Bool

	mu      sync.Mutex
	addr    net.Addr
	drivers map[*Driver]struct{}
	wg      sync.WaitGroup
}

func (s *Server) init() {
	s.initOnce.Do(func() {
		s.ready = make(chan struct{})
		s.drivers = make(map[*Driver]struct{})
		if s.Logger == nil {
			s.Logger = util.NewLogger(0)
		}
		if s.Capability == nil {
			s.Capability = capability.Nop{}
		}
		if s.PollInterval <= 0 {
			s.PollInterval = config.DefaultPollInterval
		}
	})
}

// Start binds host:port and serves until Stop is called or accepting
// fails.  It blocks, and returns only after every driver has joined and
// OnStop has fired.  A bind failure is returned with nothing left
// running, and Start may be called again.
func (s *Server) Start(host string, port int) error {
	s.init()
	if !s.started.CompareAndSwap(false, true) {
		return ncerr.ErrAlreadyRunning
	}

	address := util.FormatAddr(host, port)
	ln, err := net.Listen("tcp", address)
	if err != nil {
		s.started.Store(false)
		return ncerr.Wrap("listen", address, err)
	}
	tl := ln.(*net.TCPListener)

	s.mu.Lock()
	s.addr = ln.Addr()
	s.mu.Unlock()
	s.bound.Store(true)
	close(s.ready)

	s.Logger.Info("listening on %s", ln.Addr())
	capability.Start(s.Capability)

	err = s.accept(tl)

	// Under mu so no ServeConn can register after the Wait below begins.
	s.mu.Lock()
	s.stopping.Store(true)
	s.mu.Unlock()
	ln.Close()
	s.Logger.Verbose("waiting for %d connection(s) to finish", s.Connections())
	s.wg.Wait()
	s.bound.Store(false)

	capability.Stop(s.Capability)
	s.Logger.Info("server stopped")
	return err
}

// accept runs until stop or an accept fault.
func (s *Server) accept(tl *net.TCPListener) error {
	for s.Running() {
		tl.SetDeadline(time.Now().Add(s.PollInterval)) //nolint:errcheck
		conn, err := tl.Accept()
		if err != nil {
			if ncerr.IsTimeout(err) {
				continue
			}
			if !s.Running() {
				return nil
			}
			s.Logger.Error("accept: %v", err)
			s.Metrics.RecordError(err.Error())
			return ncerr.Wrap("accept", tl.Addr().String(), err)
		}

		d, err := s.track(conn)
		if err != nil {
			continue
		}
		go func() {
			defer s.release(d)
			d.Run()
		}()
	}
	return nil
}

// ServeConn runs a driver for a connection accepted elsewhere (the
// WebSocket gateway) and blocks until it has joined.  The connection is
// tracked like any other, so Start still waits for it on stop.
func (s *Server) ServeConn(conn net.Conn) error {
	s.init()
	d, err := s.track(conn)
	if err != nil {
		return err
	}
	defer s.release(d)
	d.Run()
	return nil
}

// track registers a new driver for conn, or turns conn away.
func (s *Server) track(conn net.Conn) (*Driver, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.Running() {
		conn.Close()
		return nil, ncerr.ErrNotRunning
	}

	wc := wire.NewConn(conn, s.WriteTimeout, s.Metrics)
	if s.MaxConns > 0 && len(s.drivers) >= s.MaxConns {
		s.Logger.Warn("rejecting %s: %d connections open", conn.RemoteAddr(), len(s.drivers))
		s.Metrics.ConnectionRejected()
		wc.SendString(FullNotice) //nolint:errcheck
		wc.Close()
		return nil, ncerr.ErrServerFull
	}

	sess := session.New(wc, conn.RemoteAddr().String(), s.Logger)
	d := newDriver(wc, sess, driverOptions{
		Capability: s.Capability,
		Running:    s.Running,
		Join:       func() { capability.Join(s.Capability) },
		Poll:       s.PollInterval,
		Metrics:    s.Metrics,
	})
	s.drivers[d] = struct{}{}
	s.wg.Add(1)
	s.Metrics.ConnectionOpened()
	s.Logger.Verbose("connection from %s (id %s)", sess.RemoteAddr, sess.ID)
	return d, nil
}

func (s *Server) release(d *Driver) {
	s.mu.Lock()
	delete(s.drivers, d)
	s.mu.Unlock()
	s.Metrics.ConnectionClosed()
	s.Logger.Verbose("connection %s finished", d.Session().RemoteAddr)
	s.wg.Done()
}

// Stop asks the server to shut down.  It returns immediately; Start
// returns once every connection has finished.
func (s *Server) Stop() {
	s.stopping.Store(true)
}

// Running reports whether the server is accepting connections.
func (s *Server) Running() bool {
	return s.bound.Load() && !s.stopping.Load()
}

// Ready is closed once the listener is bound.  A failed bind leaves it
// open, so callers waiting on it should also watch Start's result.
func (s *Server) Ready() <-chan struct{} {
	s.init()
	return s.ready
}

// Addr returns the bound address, or nil before Ready.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// Connections returns the number of live drivers.
func (s *Server) Connections() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.drivers)
}

func (s *Server) String() string {
	if a := s.Addr(); a != nil {
		return fmt.Sprintf("chat server on %s", a)
	}
	return "chat server (unbound)"
}
