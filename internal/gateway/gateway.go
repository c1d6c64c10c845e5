// Package gateway is the optional HTTP side of a gochat server: health
// and metrics endpoints for operators and a WebSocket endpoint that
// lets browser clients join the same chat room.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"runtime"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"gochat/config"
	ncerr "gochat/internal/errors"
	"gochat/internal/metrics"
	"gochat/util"
)

// ConnServer runs the chat lifecycle over an externally accepted
// connection.  *core.Server implements it.
type ConnServer interface {
	ServeConn(conn net.Conn) error
}

// Gateway serves the admin API and the WebSocket bridge.
type Gateway struct {
	Addr          string
	Server        ConnServer
	Metrics       *metrics.Collector
	Logger        *util.Logger
	ShutdownGrace time.Duration

	registry *prometheus.Registry
	ready    chan struct{}
	bound    net.Addr
}

// New returns a Gateway listening on addr once Run is called.
func New(addr string, srv ConnServer, m *metrics.Collector, logger *util.Logger) *Gateway {
	if logger == nil {
		logger = util.NewLogger(0)
	}
	g := &Gateway{
		Addr:          addr,
		Server:        srv,
		Metrics:       m,
		Logger:        logger,
		ShutdownGrace: config.DefaultShutdownGrace,
		ready:         make(chan struct{}),
	}
	g.registry = newRegistry(m)
	return g
}

// Handler returns the gateway's routes.
func (g *Gateway) Handler() http.Handler {
	r := chi.NewRouter()
	r.Get("/health", g.healthHandler)
	r.Get("/stats", g.statsHandler)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(g.registry, promhttp.HandlerOpts{}))
	r.Get("/ws", g.wsHandler)
	return r
}

// Run serves until ctx ends, then shuts down gracefully.
func (g *Gateway) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", g.Addr)
	if err != nil {
		return ncerr.Wrap("listen", g.Addr, err)
	}
	g.bound = ln.Addr()
	close(g.ready)

	srv := &http.Server{
		Handler:           g.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errc := make(chan error, 1)
	go func() {
		g.Logger.Info("admin gateway on http://%s", ln.Addr())
		errc <- srv.Serve(ln)
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), g.ShutdownGrace)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		g.Logger.Warn("shutdown: %v", err)
	}
	g.Logger.Verbose("gateway stopped")
	return nil
}

// Ready is closed once the listener is bound.
func (g *Gateway) Ready() <-chan struct{} { return g.ready }

// BoundAddr returns the listener address after Ready.
func (g *Gateway) BoundAddr() net.Addr { return g.bound }

// ── Handlers ─────────────────────────────────────────────────────────

// healthHandler reports goroutine, connection and named-user counts.
func (g *Gateway) healthHandler(w http.ResponseWriter, _ *http.Request) {
	status := map[string]int64{
		"goroutines":  int64(runtime.NumGoroutine()),
		"connections": g.Metrics.ActiveConnections(),
		"named":       g.Metrics.NamedUsers(),
	}
	writeJSON(w, status)
}

func (g *Gateway) statsHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, g.Metrics.Snapshot())
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}
