package conn

import (
	"context"
	"fmt"
	"net"
	"time"

	"nhooyr.io/websocket"
)

const (
	TransportTCP = "tcp"
	TransportWS  = "ws"

	// TransferPath is the HTTP endpoint on which transfers are tunnelled over websockets.
	TransferPath = "/transfer"

	// MaxMessageSize bounds a single websocket message, and thereby the chunk size usable over websockets.
	MaxMessageSize = 1 << 24
)

// Conn is the byte stream a single transfer session runs over.
type Conn interface {
	net.Conn
	// CloseWrite signals end-of-stream to the peer. Transports that cannot
	// half-close the connection close it completely.
	CloseWrite() error
}

// ------------------ Conn implementations ------------------

type closeWriter interface {
	CloseWrite() error
}

// Wrap returns a Conn for the provided network connection.
func Wrap(c net.Conn) Conn {
	if cw, ok := c.(Conn); ok {
		return cw
	}
	return &stream{Conn: c}
}

// stream is a connection without half-close support.
type stream struct {
	net.Conn
}

func (s *stream) CloseWrite() error {
	if cw, ok := s.Conn.(closeWriter); ok {
		return cw.CloseWrite()
	}
	return s.Conn.Close()
}

// WS returns a Conn reading and writing binary messages on the websocket connection.
// The connection is closed once ctx is done.
func WS(ctx context.Context, ws *websocket.Conn) Conn {
	return Wrap(websocket.NetConn(ctx, ws, websocket.MessageBinary))
}

// ------------------ Idle timeout ------------------------

type idleConn struct {
	Conn
	timeout time.Duration
}

// WithIdleTimeout returns a Conn where every read and write fails if it does
// not complete within d. A non-positive d returns c as is.
func WithIdleTimeout(c Conn, d time.Duration) Conn {
	if d <= 0 {
		return c
	}
	return &idleConn{Conn: c, timeout: d}
}

func (c *idleConn) Read(b []byte) (int, error) {
	if err := c.Conn.SetReadDeadline(time.Now().Add(c.timeout)); err != nil {
		return 0, err
	}
	return c.Conn.Read(b)
}

func (c *idleConn) Write(b []byte) (int, error) {
	if err := c.Conn.SetWriteDeadline(time.Now().Add(c.timeout)); err != nil {
		return 0, err
	}
	return c.Conn.Write(b)
}

// ------------------ Dialing ----------------------------

// Dial connects to the server at addr using the specified transport.
func Dial(ctx context.Context, transport string, addr string) (Conn, error) {
	switch transport {
	case TransportTCP, "":
		var d net.Dialer
		c, err := d.DialContext(ctx, "tcp", addr)
		if err != nil {
			return nil, err
		}
		return Wrap(c), nil
	case TransportWS:
		ws, _, err := websocket.Dial(ctx, fmt.Sprintf("ws://%s%s", addr, TransferPath), nil)
		if err != nil {
			return nil, err
		}
		ws.SetReadLimit(MaxMessageSize)
		return WS(context.Background(), ws), nil
	default:
		return nil, fmt.Errorf("unsupported transport %q", transport)
	}
}
