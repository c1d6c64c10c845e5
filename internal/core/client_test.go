package core

import (
	"bufio"
	"bytes"
	"context"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gochat/internal/capability"
	ncerr "gochat/internal/errors"
	"gochat/internal/session"
	"gochat/internal/transport"
)

// fakeServer accepts one connection and hands it to the test.
func fakeServer(t *testing.T) (host string, port int, conns <-chan net.Conn) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	ch := make(chan net.Conn, 1)
	go func() {
		c, err := ln.Accept()
		if err == nil {
			ch <- c
		}
	}()
	addr := ln.Addr().(*net.TCPAddr)
	return "127.0.0.1", addr.Port, ch
}

type stopCounter struct {
	capability.Nop
	stops atomic.Int32
}

func (s *stopCounter) OnStop() { s.stops.Add(1) }

func TestClient_SendSpacing(t *testing.T) {
	host, port, conns := fakeServer(t)
	c := &Client{PollInterval: 20 * time.Millisecond, SendInterval: 80 * time.Millisecond}
	require.NoError(t, c.Start(context.Background(), host, port))
	defer c.Stop()

	srv := <-conns
	defer srv.Close()

	var (
		mu    sync.Mutex
		times []time.Time
		lines []string
	)
	go func() {
		r := bufio.NewReader(srv)
		for {
			line, err := r.ReadString('\n')
			if err != nil {
				return
			}
			mu.Lock()
			times = append(times, time.Now())
			lines = append(lines, line)
			mu.Unlock()
		}
	}()

	for _, msg := range []string{"one", "two  \n", "three"} {
		require.NoError(t, c.Send([]byte(msg)))
	}

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(lines) == 3
	}, 2*time.Second, 5*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"one\n", "two\n", "three\n"}, lines)
	for i := 1; i < len(times); i++ {
		assert.GreaterOrEqual(t, times[i].Sub(times[i-1]), 60*time.Millisecond,
			"frames %d and %d too close", i-1, i)
	}
}

func TestClient_ServerCloseStopsClient(t *testing.T) {
	host, port, conns := fakeServer(t)
	var out bytes.Buffer
	printer := &capability.Printer{Out: &out}
	sc := &stopCounter{}
	c := &Client{Capability: &printerWithStop{Printer: printer, stop: sc}, PollInterval: 20 * time.Millisecond}
	require.NoError(t, c.Start(context.Background(), host, port))

	srv := <-conns
	srv.Write([]byte("bye from server\n")) //nolint:errcheck
	srv.Close()

	select {
	case <-c.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("client did not stop after server close")
	}
	assert.False(t, c.Running())
	assert.Equal(t, "bye from server\n", out.String())
	assert.EqualValues(t, 1, sc.stops.Load())

	// Stop after the fact is harmless and fires nothing new.
	c.Stop()
	assert.EqualValues(t, 1, sc.stops.Load())
	assert.ErrorIs(t, c.Send([]byte("late")), ncerr.ErrNotRunning)
}

// printerWithStop is a Printer that also counts OnStop.
type printerWithStop struct {
	*capability.Printer
	stop *stopCounter
}

func (p *printerWithStop) OnStop() { p.stop.OnStop() }

func TestClient_StopJoinsDriver(t *testing.T) {
	host, port, conns := fakeServer(t)
	sc := &stopCounter{}
	c := &Client{Capability: sc, PollInterval: 20 * time.Millisecond}
	require.NoError(t, c.Start(context.Background(), host, port))
	srv := <-conns
	defer srv.Close()

	c.Stop()
	select {
	case <-c.Done():
	default:
		t.Fatal("Done should be closed once Stop returns")
	}
	assert.EqualValues(t, 1, sc.stops.Load())

	// The server sees the connection go away.
	srv.SetReadDeadline(time.Now().Add(time.Second)) //nolint:errcheck
	_, err := srv.Read(make([]byte, 1))
	assert.Error(t, err)
}

// slowHook records its callbacks in order and holds OnMessage open.
type slowHook struct {
	capability.Nop
	entered chan struct{}
	hold    time.Duration

	mu     sync.Mutex
	events []string
}

func (h *slowHook) record(ev string) {
	h.mu.Lock()
	h.events = append(h.events, ev)
	h.mu.Unlock()
}

func (h *slowHook) OnMessage(_ *session.Session, frame string) bool {
	h.record("message " + frame)
	close(h.entered)
	time.Sleep(h.hold)
	return true
}

func (h *slowHook) OnDisconnect(*session.Session) { h.record("disconnect") }
func (h *slowHook) OnStop()                       { h.record("stop") }

func TestClient_StopDuringHookWaitsForDriver(t *testing.T) {
	host, port, conns := fakeServer(t)
	h := &slowHook{entered: make(chan struct{}), hold: 300 * time.Millisecond}
	c := &Client{Capability: h, PollInterval: 20 * time.Millisecond}
	require.NoError(t, c.Start(context.Background(), host, port))
	srv := <-conns
	defer srv.Close()

	_, err := srv.Write([]byte("hi\n"))
	require.NoError(t, err)
	select {
	case <-h.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("OnMessage never ran")
	}

	c.Stop()

	select {
	case <-c.finished:
	default:
		t.Fatal("Stop returned before the driver goroutine finished")
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	assert.Equal(t, []string{"message hi", "disconnect", "stop"}, h.events)
}

func TestClient_DialFailure(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()

	c := &Client{Dialer: &transport.TCPDialer{Timeout: time.Second}}
	err = c.Start(context.Background(), "127.0.0.1", port)
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "connect to"))
	assert.False(t, c.Running())
}
