// Package config defines the runtime configuration for gochat and
// provides helpers for parsing ports and validating a session setup.
package config

import (
	"fmt"
	"strconv"
	"time"

	ncerr "gochat/internal/errors"
	"gochat/util"
)

// Config holds every tuneable for a single gochat process.
type Config struct {
	// ── Connection ───────────────────────────────────────────────────
	Host      string // client: server host; listen: bind host ("" = all)
	Port      int    // client: server port
	LocalPort int    // -p: listen port
	Listen    bool
	Timeout   time.Duration // dial timeout
	Retries   int           // extra dial attempts in client mode

	// ── Server ───────────────────────────────────────────────────────
	MaxConns  int    // 0 = unlimited
	AdminAddr string // admin HTTP + WebSocket gateway, "" = disabled
	Echo      bool   // echo frames instead of running the chat room

	// ── Lifecycle ────────────────────────────────────────────────────
	PollInterval time.Duration
	SendInterval time.Duration
	WriteTimeout time.Duration

	// ── Output ───────────────────────────────────────────────────────
	Verbose int
	NoColor bool
	LogFile string
}

// ApplyDefaults fills every zero-valued tuneable with its default.
func (c *Config) ApplyDefaults() {
	if c.Timeout == 0 {
		c.Timeout = DefaultConnTimeout
	}
	if c.PollInterval == 0 {
		c.PollInterval = DefaultPollInterval
	}
	if c.SendInterval == 0 {
		c.SendInterval = DefaultSendInterval
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = DefaultWriteTimeout
	}
}

// ── Port helpers ─────────────────────────────────────────────────────

// ParsePort accepts a decimal port number in 1-65535.
func ParsePort(spec string) (int, error) {
	port, err := strconv.Atoi(spec)
	if err != nil {
		return 0, fmt.Errorf("invalid port %q", spec)
	}
	if port < 1 || port > 65535 {
		return 0, fmt.Errorf("port %d out of range 1-65535", port)
	}
	return port, nil
}

// ── Validation ───────────────────────────────────────────────────────

// Validate checks that the configuration is internally consistent.
func (c *Config) Validate() error {
	if c.Listen {
		if c.LocalPort == 0 {
			return &ncerr.ConfigError{
				Field:   "port",
				Message: "required with -l",
				Hint:    fmt.Sprintf("use -p %d", DefaultPort),
			}
		}
		if c.LocalPort < 1 || c.LocalPort > 65535 {
			return &ncerr.ConfigError{
				Field:   "port",
				Value:   c.LocalPort,
				Message: "out of range 1-65535",
			}
		}
		if c.AdminAddr != "" {
			if _, _, err := util.ParseHostPort(c.AdminAddr); err != nil {
				return &ncerr.ConfigError{
					Field:   "admin",
					Value:   c.AdminAddr,
					Message: "must be host:port",
					Hint:    "use --admin 127.0.0.1:9090",
				}
			}
		}
		if c.Retries > 0 {
			return &ncerr.ConfigError{
				Field:   "retries",
				Value:   c.Retries,
				Message: "only applies to connect mode",
			}
		}
	} else {
		if c.Host == "" {
			return fmt.Errorf("hostname is required (use --help for usage)")
		}
		if c.Port == 0 {
			return fmt.Errorf("destination port is required")
		}
		if c.Echo {
			return &ncerr.ConfigError{
				Field:   "echo",
				Message: "only applies to listen mode",
				Hint:    "add -l -p <port>",
			}
		}
		if c.AdminAddr != "" {
			return &ncerr.ConfigError{
				Field:   "admin",
				Value:   c.AdminAddr,
				Message: "only applies to listen mode",
				Hint:    "add -l -p <port>",
			}
		}
	}

	if c.MaxConns < 0 {
		return &ncerr.ConfigError{
			Field:   "max-conns",
			Value:   c.MaxConns,
			Message: "must not be negative",
			Hint:    "use 0 for no limit",
		}
	}
	if c.Retries < 0 {
		return &ncerr.ConfigError{Field: "retries", Value: c.Retries, Message: "must not be negative"}
	}
	if c.PollInterval < 0 || c.SendInterval < 0 || c.WriteTimeout < 0 || c.Timeout < 0 {
		return fmt.Errorf("timeouts and intervals must not be negative")
	}

	return nil
}
