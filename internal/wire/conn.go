// Package wire implements the newline-delimited text framing used by
// every gochat connection.
//
// A frame on the wire is UTF-8 text terminated by a single '\n'.  Send
// normalises outgoing payloads so that each call puts exactly one frame
// on the stream; Buffer reassembles inbound frames from arbitrary read
// chunks.
package wire

import (
	"bytes"
	"net"
	"sync"
	"sync/atomic"
	"time"

	ncerr "gochat/internal/errors"
	"gochat/internal/metrics"
)

// Terminator ends every frame.
const Terminator = '\n'

// trailing is the set stripped from the end of an outgoing payload
// before the terminator is appended.
const trailing = " \t\r\n"

// Conn is a framed connection.  Send is safe for concurrent use; reads
// belong to the single lifecycle driver that owns the Conn.
type Conn struct {
	nc           net.Conn
	writeTimeout time.Duration
	metrics      *metrics.Collector

	wmu    sync.Mutex
	closed atomic.Bool
	once   sync.Once
}

// NewConn wraps nc.  A zero writeTimeout disables write deadlines;
// m may be nil.
func NewConn(nc net.Conn, writeTimeout time.Duration, m *metrics.Collector) *Conn {
	return &Conn{nc: nc, writeTimeout: writeTimeout, metrics: m}
}

// Frame returns payload as a single wire frame: trailing whitespace
// and terminators removed, then one Terminator appended.
func Frame(payload []byte) []byte {
	body := bytes.TrimRight(payload, trailing)
	out := make([]byte, len(body)+1)
	copy(out, body)
	out[len(body)] = Terminator
	return out
}

// Send writes payload as exactly one frame.  The frame goes out in a
// single Write so concurrent senders never interleave.
func (c *Conn) Send(payload []byte) error {
	if c.closed.Load() {
		return ncerr.ErrClosed
	}
	frame := Frame(payload)

	c.wmu.Lock()
	defer c.wmu.Unlock()

	if c.writeTimeout > 0 {
		c.nc.SetWriteDeadline(time.Now().Add(c.writeTimeout)) //nolint:errcheck
	}
	n, err := c.nc.Write(frame)
	c.metrics.BytesSent(int64(n))
	if err != nil {
		if c.closed.Load() || ncerr.IsClosed(err) {
			return ncerr.ErrClosed
		}
		return ncerr.Wrap("write", c.remote(), err)
	}
	c.metrics.FrameSent()
	return nil
}

// SendString is Send for text.
func (c *Conn) SendString(s string) error {
	return c.Send([]byte(s))
}

// Close releases the transport.  Subsequent calls return nil.
func (c *Conn) Close() error {
	var err error
	c.once.Do(func() {
		c.closed.Store(true)
		err = c.nc.Close()
	})
	return err
}

// Closed reports whether Close has been called.
func (c *Conn) Closed() bool { return c.closed.Load() }

// Read reads raw bytes from the transport.
func (c *Conn) Read(p []byte) (int, error) { return c.nc.Read(p) }

// SetReadDeadline sets the deadline for the next Read.
func (c *Conn) SetReadDeadline(t time.Time) error { return c.nc.SetReadDeadline(t) }

// RemoteAddr returns the peer address.
func (c *Conn) RemoteAddr() net.Addr { return c.nc.RemoteAddr() }

func (c *Conn) remote() string {
	if a := c.nc.RemoteAddr(); a != nil {
		return a.String()
	}
	return ""
}
