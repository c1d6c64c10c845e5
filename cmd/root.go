// Package cmd wires up the CLI flags and dispatches to the chat core.
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	flag "github.com/spf13/pflag"
	"golang.org/x/term"
	"gopkg.in/natefinch/lumberjack.v2"

	"gochat/config"
	"gochat/internal/core"
	"gochat/util"
)

// version is overridable at link time:
//
//	go build -ldflags "-X gochat/cmd.version=2.0.0"
var version = "1.0.0" //nolint:gochecknoglobals

// stdout is where --version and --dry-run print; tests swap it out.
var stdout io.Writer = os.Stdout //nolint:gochecknoglobals

// Execute parses args and runs the chat server or client.
func Execute(ctx context.Context, args []string) error {
	cfg := &config.Config{}
	config.LoadFromEnv(cfg)

	fs := flag.NewFlagSet("gochat", flag.ContinueOnError)

	// ── connection ───────────────────────────────────────────────
	fs.BoolVarP(&cfg.Listen, "listen", "l", cfg.Listen, "Run the chat server")
	fs.IntVarP(&cfg.LocalPort, "port", "p", cfg.LocalPort, "Port to listen on (with -l)")
	fs.IntVar(&cfg.Retries, "retries", cfg.Retries, "Extra connection attempts on transient dial errors")

	var timeoutSec int
	fs.IntVarP(&timeoutSec, "timeout", "w", 0, "Dial timeout in seconds")

	// ── server ───────────────────────────────────────────────────
	fs.StringVar(&cfg.AdminAddr, "admin", cfg.AdminAddr, "Serve health, metrics and WebSocket clients on host:port")
	fs.IntVar(&cfg.MaxConns, "max-conns", cfg.MaxConns, "Maximum concurrent connections (0 = unlimited)")
	fs.BoolVar(&cfg.Echo, "echo", cfg.Echo, "Echo frames back instead of running the chat room")

	// ── output ───────────────────────────────────────────────────
	fs.CountVarP(&cfg.Verbose, "verbose", "v", "Increase verbosity (repeatable)")
	fs.BoolVar(&cfg.NoColor, "no-color", cfg.NoColor, "Disable coloured notices")
	fs.StringVar(&cfg.LogFile, "log-file", cfg.LogFile, "Write logs to a rotating file instead of stderr")

	var showVersion, showHelp, dryRun bool
	fs.BoolVar(&dryRun, "dry-run", false, "Validate the configuration and exit")
	fs.BoolVar(&showVersion, "version", false, "Print version and exit")
	fs.BoolVarP(&showHelp, "help", "h", false, "Show this help")

	fs.Usage = func() { printUsage(fs) }

	// ── parse ────────────────────────────────────────────────────
	envVerbose := cfg.Verbose
	if err := fs.Parse(args); err != nil {
		return err
	}
	if !fs.Changed("verbose") {
		cfg.Verbose = envVerbose
	}

	if showHelp || len(args) == 0 {
		printUsage(fs)
		return nil
	}
	if showVersion {
		fmt.Fprintf(stdout, "gochat %s\n", version)
		return nil
	}

	if timeoutSec > 0 {
		cfg.Timeout = time.Duration(timeoutSec) * time.Second
	}
	if cfg.Listen && cfg.LocalPort == 0 && !fs.Changed("port") {
		cfg.LocalPort = config.DefaultPort
	}

	// ── positional arguments ─────────────────────────────────────
	if err := parsePositional(cfg, fs.Args()); err != nil {
		return err
	}

	// ── validate ─────────────────────────────────────────────────
	if err := cfg.Validate(); err != nil {
		return err
	}
	if !cfg.Listen && !cfg.NoColor && !term.IsTerminal(int(os.Stdout.Fd())) {
		cfg.NoColor = true
	}
	cfg.ApplyDefaults()

	if dryRun {
		printConfig(cfg)
		return nil
	}

	// ── build components ─────────────────────────────────────────
	logger := util.NewLogger(cfg.Verbose + 1)
	if cfg.LogFile != "" {
		rotator := &lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    config.DefaultLogMaxSizeMB,
			MaxBackups: config.DefaultLogMaxBackups,
		}
		defer rotator.Close()
		logger.SetOutput(rotator)
		logger.SetTimestamps(true)
	}

	mode, err := core.Build(cfg, logger)
	if err != nil {
		return err
	}
	return mode.Run(ctx)
}

// ── helpers ──────────────────────────────────────────────────────────

func parsePositional(cfg *config.Config, remaining []string) error {
	if cfg.Listen {
		switch len(remaining) {
		case 0: // gochat -l [-p PORT]
		case 1:
			cfg.Host = remaining[0]
		case 2:
			cfg.Host = remaining[0]
			port, err := config.ParsePort(remaining[1])
			if err != nil {
				return fmt.Errorf("port: %w", err)
			}
			cfg.LocalPort = port
		default:
			return fmt.Errorf("too many arguments for listen mode")
		}
		return nil
	}

	// Connect mode: host port
	switch len(remaining) {
	case 0:
		if cfg.Host == "" {
			return fmt.Errorf("hostname is required (use --help for usage)")
		}
	case 1:
		cfg.Host = remaining[0]
	case 2:
		cfg.Host = remaining[0]
		port, err := config.ParsePort(remaining[1])
		if err != nil {
			return fmt.Errorf("port: %w", err)
		}
		cfg.Port = port
	default:
		return fmt.Errorf("too many arguments for connect mode")
	}
	if cfg.Port == 0 {
		cfg.Port = config.DefaultPort
	}
	return nil
}

func printConfig(cfg *config.Config) {
	if cfg.Listen {
		fmt.Fprintf(stdout, "mode:       listen\n")
		fmt.Fprintf(stdout, "address:    %s\n", util.FormatAddr(cfg.Host, cfg.LocalPort))
		handler := "chat"
		if cfg.Echo {
			handler = "echo"
		}
		fmt.Fprintf(stdout, "handler:    %s\n", handler)
		fmt.Fprintf(stdout, "max-conns:  %d\n", cfg.MaxConns)
		if cfg.AdminAddr != "" {
			fmt.Fprintf(stdout, "admin:      %s\n", cfg.AdminAddr)
		}
	} else {
		fmt.Fprintf(stdout, "mode:       connect\n")
		fmt.Fprintf(stdout, "address:    %s\n", util.FormatAddr(cfg.Host, cfg.Port))
		fmt.Fprintf(stdout, "retries:    %d\n", cfg.Retries)
		fmt.Fprintf(stdout, "send-every: %s\n", cfg.SendInterval)
	}
	fmt.Fprintf(stdout, "poll:       %s\n", cfg.PollInterval)
	fmt.Fprintf(stdout, "color:      %t\n", !cfg.NoColor)
}

func printUsage(fs *flag.FlagSet) {
	fmt.Fprintf(os.Stderr, `gochat – line-oriented TCP chat v%s

A chat server with named users, private messages and an optional
WebSocket gateway, plus a terminal client.

Usage:
  gochat -l [-p <port>] [options] [host]      Run the server
  gochat [options] <host> [port]              Connect as a client

Options:
`, version)
	fs.PrintDefaults()
	fmt.Fprintf(os.Stderr, `
Chat commands:
  /username <name>      Claim or change your name
  /pm <name>, <text>    Send a private message
  /userlist             List named users
  /help                 Show the command list
  /close                Leave the chat

Examples:
  gochat -l                                   Serve chat on port %d
  gochat -l -p 9000 --admin 127.0.0.1:9090    With metrics and /ws
  gochat 127.0.0.1 9000                       Join a server
`, config.DefaultPort)
}
