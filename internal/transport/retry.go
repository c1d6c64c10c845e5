package transport

import (
	"context"
	"net"
	"time"

	ncerr "gochat/internal/errors"
	"gochat/internal/retry"
	"gochat/util"
)

// RetryDialer retries transient dial failures of the wrapped Dialer,
// e.g. a refused connection while the server is still starting.
type RetryDialer struct {
	Dialer  Dialer
	Backoff *retry.Backoff
	Logger  *util.Logger
}

// NewRetryDialer wraps d with n extra attempts.
func NewRetryDialer(d Dialer, n int, maxDelay time.Duration, logger *util.Logger) *RetryDialer {
	b := retry.ForAttempts(n, maxDelay)
	b.Retryable = ncerr.IsRetryable
	rd := &RetryDialer{Dialer: d, Backoff: b, Logger: logger}
	b.OnRetry = rd.logRetry
	return rd
}

// Dial tries the wrapped dialer until it succeeds or the backoff gives up.
func (d *RetryDialer) Dial(ctx context.Context, network, address string) (net.Conn, error) {
	var conn net.Conn
	err := d.Backoff.Do(ctx, func(int) error {
		c, err := d.Dialer.Dial(ctx, network, address)
		if err != nil {
			return err
		}
		conn = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// Close closes the wrapped dialer.
func (d *RetryDialer) Close() error { return d.Dialer.Close() }

func (d *RetryDialer) logRetry(attempt int, err error, wait time.Duration) {
	if d.Logger != nil {
		d.Logger.Verbose("dial attempt %d failed: %v (retrying in %v)",
			attempt, err, wait.Round(time.Millisecond))
	}
}
