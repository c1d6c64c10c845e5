package core

import (
	"sync"
	"time"

	"gochat/config"
	"gochat/internal/capability"
	ncerr "gochat/internal/errors"
	"gochat/internal/metrics"
	"gochat/internal/session"
	"gochat/internal/wire"
	"gochat/util"
)

// Driver is the per-connection control loop.  It turns the byte stream
// of one wire.Conn into OnConnect, OnMessage and OnDisconnect calls on
// a Capability, then runs the join hook once the transport is released.
//
// Reads wait at most PollInterval before re-checking the owner's running
// flag, so a stop request is noticed within one interval without
// interrupting a callback in flight.
type Driver struct {
	conn    *wire.Conn
	sess    *session.Session
	cap     capability.Capability
	running func() bool
	join    func()
	poll    time.Duration
	logger  *util.Logger
	metrics *metrics.Collector

	// mu serialises this connection's callbacks and the client's Send.
	mu   sync.Mutex
	done chan struct{}
}

type driverOptions struct {
	Capability capability.Capability
	Running    func() bool
	Join       func()
	Poll       time.Duration
	Logger     *util.Logger
	Metrics    *metrics.Collector
}

func newDriver(conn *wire.Conn, sess *session.Session, o driverOptions) *Driver {
	if o.Poll <= 0 {
		o.Poll = config.DefaultPollInterval
	}
	if o.Join == nil {
		o.Join = func() {}
	}
	return &Driver{
		conn:    conn,
		sess:    sess,
		cap:     o.Capability,
		running: o.Running,
		join:    o.Join,
		poll:    o.Poll,
		logger:  sess.Logger,
		metrics: o.Metrics,
		done:    make(chan struct{}),
	}
}

// Session returns the connection's state record.
func (d *Driver) Session() *session.Session { return d.sess }

// Done is closed once Run has returned.
func (d *Driver) Done() <-chan struct{} { return d.done }

// Lock acquires the callback lock.  Hooks must not call it.
func (d *Driver) Lock() { d.mu.Lock() }

// Unlock releases the callback lock.
func (d *Driver) Unlock() { d.mu.Unlock() }

// Run drives the connection through its whole lifecycle and returns
// after the join hook.
func (d *Driver) Run() {
	defer close(d.done)

	d.hook(func() { d.cap.OnConnect(d.sess) })
	d.stream()
	d.hook(func() { d.cap.OnDisconnect(d.sess) })
	d.conn.Close() //nolint:errcheck
	d.join()
}

// hook runs fn under the callback lock.
func (d *Driver) hook(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	fn()
}

// stream delivers frames until the peer leaves, the capability ends the
// connection, or the owner stops.
func (d *Driver) stream() {
	var buf wire.Buffer
	chunk := util.GetBuf()
	defer util.PutBuf(chunk)

	for d.running() {
		frame, ok := buf.Next()
		if !ok {
			if !d.fill(&buf, *chunk) {
				return
			}
			continue
		}

		d.metrics.FrameReceived()
		keep := true
		d.hook(func() { keep = d.cap.OnMessage(d.sess, frame) })
		if !keep {
			d.logger.Debug("capability closed the connection")
			return
		}
	}
}

// fill reads one chunk into buf.  It reports false when the connection
// is over: peer closed, transport fault, or stop requested.
func (d *Driver) fill(buf *wire.Buffer, chunk []byte) bool {
	for d.running() {
		d.conn.SetReadDeadline(time.Now().Add(d.poll)) //nolint:errcheck
		n, err := d.conn.Read(chunk)
		if n > 0 {
			buf.Write(chunk[:n]) //nolint:errcheck
			d.metrics.BytesReceived(int64(n))
			return true
		}

		switch {
		case err == nil:
			// A zero-byte read means the peer shut down.
			d.logger.Debug("peer closed (empty read)")
			return false
		case ncerr.IsTimeout(err):
			continue
		case ncerr.IsPeerClosed(err):
			d.logger.Debug("peer closed")
			return false
		case ncerr.IsClosed(err) || d.conn.Closed():
			return false
		default:
			d.logger.Warn("read: %v", err)
			d.metrics.RecordError(err.Error())
			return false
		}
	}
	return false
}
