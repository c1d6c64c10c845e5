package transport

import (
	"context"
	"net"
	"time"

	ncerr "gochat/internal/errors"
)

// TCPDialer establishes plain TCP connections to a chat server.
type TCPDialer struct {
	Timeout   time.Duration // 0 = no dial timeout
	KeepAlive time.Duration // 0 = OS default
}

// Dial connects to address.  Failures come back as *errors.NetworkError
// so RetryDialer can tell a refused connection from a bad address.
func (d *TCPDialer) Dial(ctx context.Context, network, address string) (net.Conn, error) {
	nd := net.Dialer{Timeout: d.Timeout, KeepAlive: d.KeepAlive}
	conn, err := nd.DialContext(ctx, network, address)
	if err != nil {
		return nil, ncerr.Wrap("dial", address, err)
	}
	return conn, nil
}

// Close is a no-op for stateless TCP dialers.
func (d *TCPDialer) Close() error { return nil }
