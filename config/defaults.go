package config

import "time"

// ── Default values ───────────────────────────────────────────────────
//
// All tuneable defaults live here so they are easy to audit and reuse
// across CLI flags and environment variable loading.

const (
	// DefaultPort is the chat port used when none is given.
	DefaultPort = 8090

	// DefaultPollInterval bounds every blocking accept and read so the
	// loops notice a stop request within this interval.
	DefaultPollInterval = 1 * time.Second

	// DefaultSendInterval is the minimum spacing between two frames sent
	// by the client.
	DefaultSendInterval = 500 * time.Millisecond

	// DefaultWriteTimeout caps a single frame write so one stalled peer
	// cannot hold up a broadcast indefinitely.
	DefaultWriteTimeout = 5 * time.Second

	// DefaultConnTimeout is the TCP dial timeout.
	DefaultConnTimeout = 10 * time.Second

	// DefaultMaxReconnectBackoff caps the exponential backoff between
	// dial attempts when --retries is set.
	DefaultMaxReconnectBackoff = 10 * time.Second

	// DefaultShutdownGrace is how long the admin HTTP server waits for
	// in-flight requests on shutdown.
	DefaultShutdownGrace = 5 * time.Second

	// DefaultLogMaxSizeMB and DefaultLogMaxBackups control --log-file
	// rotation.
	DefaultLogMaxSizeMB  = 10
	DefaultLogMaxBackups = 3
)
