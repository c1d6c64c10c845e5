package gateway

import (
	"bufio"
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/coder/websocket"

	ncerr "gochat/internal/errors"
	"gochat/internal/wire"
)

// maxMessage bounds a single WebSocket message from a browser client.
const maxMessage = 1 << 20

// wsAddr is the remote address of a bridged WebSocket client.
type wsAddr string

func (a wsAddr) Network() string { return "websocket" }
func (a wsAddr) String() string  { return string(a) }

// bridgeConn is the server's end of the pipe behind a WebSocket.
type bridgeConn struct {
	net.Conn
	remote net.Addr
}

func (c *bridgeConn) RemoteAddr() net.Addr { return c.remote }

// wsHandler upgrades the request and bridges it into the chat server.
// Each text message from the browser becomes one frame; each frame from
// the server becomes one text message.
func (g *Gateway) wsHandler(w http.ResponseWriter, r *http.Request) {
	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		g.Logger.Warn("websocket accept from %s: %v", r.RemoteAddr, err)
		return
	}
	ws.SetReadLimit(maxMessage)

	ctx := r.Context()
	local, remote := net.Pipe()
	outDone := make(chan struct{})
	go g.pumpIn(ctx, ws, local)
	go func() {
		defer close(outDone)
		g.pumpOut(ctx, ws, local)
	}()

	g.Logger.Verbose("websocket client %s", r.RemoteAddr)
	err = g.Server.ServeConn(&bridgeConn{Conn: remote, remote: wsAddr(r.RemoteAddr)})
	remote.Close()
	<-outDone
	local.Close()

	switch {
	case errors.Is(err, ncerr.ErrServerFull):
		ws.Close(websocket.StatusTryAgainLater, "server full") //nolint:errcheck
	case err != nil:
		ws.Close(websocket.StatusGoingAway, "server stopping") //nolint:errcheck
	default:
		ws.Close(websocket.StatusNormalClosure, "") //nolint:errcheck
	}
}

// pumpIn copies browser messages into the pipe as frames.  It closes
// the pipe when the browser goes away so the driver sees end of stream.
func (g *Gateway) pumpIn(ctx context.Context, ws *websocket.Conn, local net.Conn) {
	defer local.Close()
	for {
		_, data, err := ws.Read(ctx)
		if err != nil {
			return
		}
		if _, err := local.Write(wire.Frame(data)); err != nil {
			return
		}
	}
}

// pumpOut copies frames from the pipe to the browser, one message each.
func (g *Gateway) pumpOut(ctx context.Context, ws *websocket.Conn, local net.Conn) {
	sc := bufio.NewScanner(local)
	sc.Buffer(make([]byte, 0, 4096), maxMessage)
	for sc.Scan() {
		if err := ws.Write(ctx, websocket.MessageText, sc.Bytes()); err != nil {
			local.Close()
			return
		}
	}
}
