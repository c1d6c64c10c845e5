package core

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"gochat/config"
	"gochat/internal/capability"
	ncerr "gochat/internal/errors"
	"gochat/internal/metrics"
	"gochat/internal/session"
	"gochat/internal/transport"
	"gochat/internal/wire"
	"gochat/util"
)

// Client is the dialing driver: one outbound connection run by a Driver
// on its own goroutine, plus a Send path usable from any goroutine.
type Client struct {
	Capability   capability.Capability
	Dialer       transport.Dialer
	Logger       *util.Logger
	Metrics      *metrics.Collector
	PollInterval time.Duration
	SendInterval time.Duration // minimum spacing between outbound frames
	WriteTimeout time.Duration

	initOnce sync.Once
	done     chan struct{}
	stopOnce sync.Once
	started  atomic.Bool
	running  atomic.Bool

	conn     *wire.Conn
	driver   *Driver
	limiter  *rate.Limiter
	finished chan struct{}
}

func (c *Client) init() {
	c.initOnce.Do(func() {
		c.done = make(chan struct{})
		if c.Logger == nil {
			c.Logger = util.NewLogger(0)
		}
		if c.Capability == nil {
			c.Capability = capability.Nop{}
		}
		if c.Dialer == nil {
			c.Dialer = &transport.TCPDialer{Timeout: config.DefaultConnTimeout}
		}
		if c.SendInterval <= 0 {
			c.SendInterval = config.DefaultSendInterval
		}
	})
}

// Start dials host:port, fires OnStart and launches the driver.  It
// returns as soon as the connection is up; a dial failure is returned
// with nothing left running.
func (c *Client) Start(ctx context.Context, host string, port int) error {
	c.init()
	if !c.started.CompareAndSwap(false, true) {
		return ncerr.ErrAlreadyRunning
	}

	address := util.FormatAddr(host, port)
	c.Logger.Verbose("connecting to %s", address)
	nc, err := c.Dialer.Dial(ctx, "tcp", address)
	if err != nil {
		c.started.Store(false)
		return fmt.Errorf("connect to %s: %w", address, err)
	}
	c.Logger.Verbose("connected to %s", nc.RemoteAddr())

	c.conn = wire.NewConn(nc, c.WriteTimeout, c.Metrics)
	sess := session.New(c.conn, nc.RemoteAddr().String(), c.Logger)
	c.driver = newDriver(c.conn, sess, driverOptions{
		Capability: c.Capability,
		Running:    c.Running,
		Join:       c.onJoin,
		Poll:       c.PollInterval,
		Metrics:    c.Metrics,
	})
	c.limiter = rate.NewLimiter(rate.Every(c.SendInterval), 1)
	c.finished = make(chan struct{})
	c.running.Store(true)
	c.Metrics.ConnectionOpened()

	capability.Start(c.Capability)
	go func() {
		defer close(c.finished)
		c.driver.Run()
	}()
	return nil
}

// Send writes payload as one frame.  It holds the driver's lock for the
// write and waits out the send interval first, so consecutive frames
// are at least SendInterval apart.  Hooks must send through their
// session instead.
func (c *Client) Send(payload []byte) error {
	return c.SendContext(context.Background(), payload)
}

// SendContext is Send with a context bounding the rate-limit wait.
func (c *Client) SendContext(ctx context.Context, payload []byte) error {
	if !c.Running() {
		return ncerr.ErrNotRunning
	}
	c.driver.Lock()
	defer c.driver.Unlock()

	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	return c.conn.Send(payload)
}

// Stop flips the running flag, waits for the driver goroutine to finish
// and fires OnStop once if Start succeeded.  Hooks must not call it: the
// driver cannot finish while one of its hooks is waiting on it.
func (c *Client) Stop() {
	c.stop(true)
}

// stop is Stop with the join optional.  Only the driver goroutine
// itself passes false.
func (c *Client) stop(join bool) {
	c.init()
	c.running.Store(false)
	if join && c.finished != nil {
		<-c.finished
	}
	c.stopOnce.Do(func() {
		if c.conn != nil {
			c.conn.Close() //nolint:errcheck
			c.Metrics.ConnectionClosed()
			capability.Stop(c.Capability)
		}
		close(c.done)
	})
}

// onJoin folds a server-side close into a local stop unless the
// capability handles OnJoin itself.  It runs on the driver goroutine.
func (c *Client) onJoin() {
	if !capability.Join(c.Capability) {
		c.stop(false)
	}
}

// Done is closed once the client has stopped.
func (c *Client) Done() <-chan struct{} {
	c.init()
	return c.done
}

// Running reports whether the connection is live.
func (c *Client) Running() bool { return c.running.Load() }

// Session returns the connection's session, or nil before Start.
func (c *Client) Session() *session.Session {
	if c.driver == nil {
		return nil
	}
	return c.driver.Session()
}
