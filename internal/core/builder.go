package core

import (
	"os"

	"gochat/config"
	"gochat/internal/capability"
	"gochat/internal/chat"
	"gochat/internal/gateway"
	"gochat/internal/metrics"
	"gochat/internal/transport"
	"gochat/util"
)

// Build constructs the appropriate Mode from the given configuration.
// cfg must already be validated.
func Build(cfg *config.Config, logger *util.Logger) (Mode, error) {
	cfg.ApplyDefaults()
	if cfg.Listen {
		return buildListen(cfg, logger), nil
	}
	return buildConnect(cfg, logger), nil
}

// ── mode builders ────────────────────────────────────────────────────

func buildListen(cfg *config.Config, logger *util.Logger) *ListenMode {
	m := metrics.New()
	srv := &Server{
		Capability:   buildCapability(cfg, logger, m),
		Logger:       logger,
		Metrics:      m,
		PollInterval: cfg.PollInterval,
		WriteTimeout: cfg.WriteTimeout,
		MaxConns:     cfg.MaxConns,
	}

	mode := &ListenMode{
		Server: srv,
		Host:   cfg.Host,
		Port:   cfg.LocalPort,
		Logger: logger,
	}
	if cfg.AdminAddr != "" {
		mode.Gateway = gateway.New(cfg.AdminAddr, srv, m, logger.With("gateway"))
	}
	return mode
}

func buildConnect(cfg *config.Config, logger *util.Logger) *ConnectMode {
	client := &Client{
		Capability: &capability.Printer{
			Out:       os.Stdout,
			StripANSI: cfg.NoColor,
		},
		Dialer:       buildDialer(cfg, logger),
		Logger:       logger,
		PollInterval: cfg.PollInterval,
		SendInterval: cfg.SendInterval,
		WriteTimeout: cfg.WriteTimeout,
	}
	return &ConnectMode{
		Client: client,
		Host:   cfg.Host,
		Port:   cfg.Port,
		Logger: logger,
	}
}

// ── shared helpers ───────────────────────────────────────────────────

// buildDialer creates the client's transport.Dialer.
func buildDialer(cfg *config.Config, logger *util.Logger) transport.Dialer {
	d := &transport.TCPDialer{Timeout: cfg.Timeout}
	if cfg.Retries > 0 {
		return transport.NewRetryDialer(d, cfg.Retries, config.DefaultMaxReconnectBackoff, logger)
	}
	return d
}

// buildCapability selects the per-connection behaviour of the server.
func buildCapability(cfg *config.Config, logger *util.Logger, m *metrics.Collector) capability.Capability {
	if cfg.Echo {
		return capability.Echo{}
	}
	return chat.NewRoom(chat.NewPalette(!cfg.NoColor), logger.With("room"), m)
}
