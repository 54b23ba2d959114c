package conn_test

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/SpatiumPortae/tftcp/internal/conn"
	"github.com/SpatiumPortae/tftcp/internal/logger"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestTCP(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	received := make(chan []byte, 1)
	go func() {
		c, err := ln.Accept()
		if err != nil {
			return
		}
		defer c.Close()
		b, _ := io.ReadAll(c)
		received <- b
		_, _ = c.Write([]byte("bye"))
	}()

	c, err := conn.Dial(context.Background(), conn.TransportTCP, ln.Addr().String())
	require.NoError(t, err)
	defer c.Close()

	_, err = c.Write([]byte("payload"))
	require.NoError(t, err)
	// Half-closing lets the peer observe end-of-stream while we can still read.
	require.NoError(t, c.CloseWrite())
	assert.Equal(t, []byte("payload"), <-received)

	b, err := io.ReadAll(c)
	assert.NoError(t, err)
	assert.Equal(t, "bye", string(b))
}

func TestDialUnsupported(t *testing.T) {
	_, err := conn.Dial(context.Background(), "udp", "127.0.0.1:1")
	assert.Error(t, err)
}

func TestIdleTimeout(t *testing.T) {
	c1, c2 := net.Pipe()
	defer c2.Close()
	c := conn.WithIdleTimeout(conn.Wrap(c1), 50*time.Millisecond)
	defer c.Close()

	_, err := c.Read(make([]byte, 1))
	assert.True(t, errors.Is(err, os.ErrDeadlineExceeded))

	w := conn.Wrap(c2)
	assert.Equal(t, w, conn.WithIdleTimeout(w, 0))
}

func TestWS(t *testing.T) {
	received := make(chan string, 1)
	router := mux.NewRouter()
	router.Use(logger.Middleware(zap.NewNop()))
	router.Use(conn.Middleware())
	router.HandleFunc(conn.TransferPath, func(w http.ResponseWriter, r *http.Request) {
		c, err := conn.FromContext(r.Context())
		if err != nil {
			return
		}
		defer c.Close()
		b, _ := io.ReadAll(c)
		received <- string(b)
	})
	server := httptest.NewServer(router)
	defer server.Close()

	c, err := conn.Dial(context.Background(), conn.TransportWS, strings.TrimPrefix(server.URL, "http://"))
	require.NoError(t, err)
	_, err = c.Write([]byte("over "))
	require.NoError(t, err)
	_, err = c.Write([]byte("websocket"))
	require.NoError(t, err)
	require.NoError(t, c.CloseWrite())

	select {
	case got := <-received:
		assert.Equal(t, "over websocket", got)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for websocket payload")
	}
}

func TestFromContext(t *testing.T) {
	_, err := conn.FromContext(context.Background())
	assert.Error(t, err)
}
