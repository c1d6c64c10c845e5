package core

import (
	"bufio"
	"fmt"
	"net"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gochat/internal/capability"
	ncerr "gochat/internal/errors"
	"gochat/internal/metrics"
	"gochat/internal/session"
	"gochat/util"
)

type lifecycle struct {
	capability.Echo
	started, stopped atomic.Int32
	disconnects      atomic.Int32
}

func (l *lifecycle) OnStart() { l.started.Add(1) }
func (l *lifecycle) OnStop()  { l.stopped.Add(1) }

func (l *lifecycle) OnDisconnect(*session.Session) { l.disconnects.Add(1) }

func startServer(t *testing.T, srv *Server) <-chan error {
	t.Helper()
	errc := make(chan error, 1)
	go func() { errc <- srv.Start("127.0.0.1", 0) }()
	select {
	case <-srv.Ready():
	case err := <-errc:
		t.Fatalf("start: %v", err)
	case <-time.After(2 * time.Second):
		t.Fatal("server did not bind")
	}
	return errc
}

func waitStopped(t *testing.T, errc <-chan error) error {
	t.Helper()
	select {
	case err := <-errc:
		return err
	case <-time.After(3 * time.Second):
		t.Fatal("server did not stop")
		return nil
	}
}

func TestServer_EchoAndDrain(t *testing.T) {
	capab := &lifecycle{}
	m := metrics.New()
	srv := &Server{Capability: capab, Metrics: m, PollInterval: 20 * time.Millisecond}
	errc := startServer(t, srv)
	assert.EqualValues(t, 1, capab.started.Load())

	conns := make([]net.Conn, 3)
	for i := range conns {
		c, err := net.Dial("tcp", srv.Addr().String())
		require.NoError(t, err)
		defer c.Close()
		conns[i] = c

		fmt.Fprintf(c, "ping %d  \n", i)
		c.SetReadDeadline(time.Now().Add(2 * time.Second)) //nolint:errcheck
		line, err := bufio.NewReader(c).ReadString('\n')
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprintf("ping %d\n", i), line)
	}
	require.Eventually(t, func() bool { return srv.Connections() == 3 }, time.Second, 5*time.Millisecond)

	srv.Stop()
	require.NoError(t, waitStopped(t, errc))

	assert.EqualValues(t, 3, capab.disconnects.Load(), "every driver finished before Start returned")
	assert.EqualValues(t, 1, capab.stopped.Load())
	assert.Zero(t, srv.Connections())
	assert.Zero(t, m.ActiveConnections())
	assert.EqualValues(t, 3, m.TotalConnections())
	assert.False(t, srv.Running())
}

func TestServer_BindFailure(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	port := ln.Addr().(*net.TCPAddr).Port

	capab := &lifecycle{}
	srv := &Server{Capability: capab}
	err = srv.Start("127.0.0.1", port)

	var ne *ncerr.NetworkError
	require.ErrorAs(t, err, &ne)
	assert.Equal(t, "listen", ne.Op)
	assert.Zero(t, capab.started.Load(), "OnStart must not fire after a bind failure")
	assert.False(t, srv.Running())
	select {
	case <-srv.Ready():
		t.Fatal("Ready closed without a bound listener")
	default:
	}

	// The server is reusable once the port problem is gone.
	srv.PollInterval = 20 * time.Millisecond
	errc := startServer(t, srv)
	assert.True(t, srv.Running())
	srv.Stop()
	require.NoError(t, waitStopped(t, errc))
	assert.EqualValues(t, 1, capab.started.Load())
}

func TestServer_StartTwice(t *testing.T) {
	srv := &Server{PollInterval: 20 * time.Millisecond}
	errc := startServer(t, srv)

	assert.ErrorIs(t, srv.Start("127.0.0.1", 0), ncerr.ErrAlreadyRunning)

	srv.Stop()
	require.NoError(t, waitStopped(t, errc))
}

func TestServer_MaxConns(t *testing.T) {
	m := metrics.New()
	srv := &Server{
		Capability:   capability.Echo{},
		Metrics:      m,
		PollInterval: 20 * time.Millisecond,
		MaxConns:     1,
	}
	errc := startServer(t, srv)
	defer func() {
		srv.Stop()
		waitStopped(t, errc) //nolint:errcheck
	}()

	first, err := net.Dial("tcp", srv.Addr().String())
	require.NoError(t, err)
	defer first.Close()
	require.Eventually(t, func() bool { return srv.Connections() == 1 }, time.Second, 5*time.Millisecond)

	second, err := net.Dial("tcp", srv.Addr().String())
	require.NoError(t, err)
	defer second.Close()

	second.SetReadDeadline(time.Now().Add(2 * time.Second)) //nolint:errcheck
	line, err := bufio.NewReader(second).ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, FullNotice, strings.TrimSpace(line))
	assert.EqualValues(t, 1, m.RejectedConnections())
}

func TestServer_ServeConnRequiresRunning(t *testing.T) {
	srv := &Server{Logger: util.NewLogger(0)}
	a, b := net.Pipe()
	defer b.Close()

	assert.ErrorIs(t, srv.ServeConn(a), ncerr.ErrNotRunning)
}

func TestServer_ServeConnIsDrained(t *testing.T) {
	capab := &lifecycle{}
	srv := &Server{Capability: capab, PollInterval: 20 * time.Millisecond}
	errc := startServer(t, srv)

	a, b := net.Pipe()
	defer b.Close()
	served := make(chan error, 1)
	go func() { served <- srv.ServeConn(a) }()
	require.Eventually(t, func() bool { return srv.Connections() == 1 }, time.Second, 5*time.Millisecond)

	srv.Stop()
	require.NoError(t, waitStopped(t, errc))
	require.NoError(t, <-served)
	assert.EqualValues(t, 1, capab.disconnects.Load())
}
