// handlers.go specifies the session handler running one transfer per connection, and the admin HTTP handlers.
package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/SpatiumPortae/tftcp/internal/conn"
	"github.com/SpatiumPortae/tftcp/internal/file"
	"github.com/SpatiumPortae/tftcp/internal/logger"
	"github.com/SpatiumPortae/tftcp/internal/stream"
	"github.com/SpatiumPortae/tftcp/protocol/transfer"
	"go.uber.org/zap"
)

// ------------------------------------------------------- Session -----------------------------------------------------

type sessionState int

// Flows from the top down, errored is reachable from every state.
const (
	awaitingRequest sessionState = iota
	awaitingDispatch
	sending
	receiving
	closed
	errored
)

func (s sessionState) String() string {
	switch s {
	case awaitingRequest:
		return "awaiting_request"
	case awaitingDispatch:
		return "awaiting_dispatch"
	case sending:
		return "sending"
	case receiving:
		return "receiving"
	case closed:
		return "closed"
	case errored:
		return "errored"
	default:
		return ""
	}
}

// session is the context of a single accepted connection.
type session struct {
	conn    conn.Conn
	state   sessionState
	request transfer.Request
	logger  *zap.Logger
}

func (s *session) transition(to sessionState) {
	s.logger.Debug("session state transition",
		zap.Stringer("from", s.state),
		zap.Stringer("to", to))
	s.state = to
}

// fail moves the session to the errored state.
func (s *session) fail(msg string, err error) sessionState {
	s.logger.Error(msg, zap.Error(err))
	s.transition(errored)
	return s.state
}

// handleSession runs the transfer protocol on the connection and returns the final
// state of the session. The connection is closed on every exit path.
func (s *Server) handleSession(c conn.Conn, lgr *zap.Logger) sessionState {
	sess := &session{
		conn:   conn.WithIdleTimeout(c, s.cnf.IOTimeout),
		state:  awaitingRequest,
		logger: lgr,
	}
	defer func() {
		if err := c.Close(); err != nil {
			sess.logger.Debug("closing connection", zap.Error(err))
		}
		sess.logger.Info("session ended", zap.Stringer("state", sess.state))
	}()

	req, err := transfer.ReadRequest(sess.conn)
	switch {
	case errors.Is(err, transfer.ErrInvalidOperation):
		sess.logger.Warn("invalid request type", zap.Error(err))
		if err := transfer.WriteStatus(sess.conn, transfer.Errorf(transfer.MsgInvalidRequestType)); err != nil {
			sess.logger.Error("sending error status", zap.Error(err))
		}
		sess.transition(errored)
		return sess.state
	case err != nil:
		return sess.fail("decoding request", err)
	}
	sess.request = req
	sess.logger = sess.logger.With(
		zap.Stringer("operation", req.Operation),
		zap.String("filename", req.Filename),
	)
	sess.logger.Info("received request")
	sess.transition(awaitingDispatch)

	switch req.Operation {
	case transfer.Read:
		sess.transition(sending)
		return s.sendFile(sess)
	case transfer.Write:
		sess.transition(receiving)
		return s.receiveFile(sess)
	default:
		if err := transfer.WriteStatus(sess.conn, transfer.Errorf(transfer.MsgInvalidRequestType)); err != nil {
			sess.logger.Error("sending error status", zap.Error(err))
		}
		sess.transition(errored)
		return sess.state
	}
}

// sendFile streams the requested file from the storage root to the peer.
func (s *Server) sendFile(sess *session) sessionState {
	f, size, err := s.storage.Open(sess.request.Filename)
	switch {
	case errors.Is(err, file.ErrFileNotFound):
		sess.logger.Info("file not found")
		if err := transfer.WriteStatus(sess.conn, transfer.Errorf(transfer.MsgFileNotFound)); err != nil {
			return sess.fail("sending error status", err)
		}
		sess.transition(closed)
		return sess.state
	case err != nil:
		// The file exists but could not be opened, no payload will follow.
		_ = transfer.WriteStatus(sess.conn, transfer.Errorf("Unable to open file"))
		return sess.fail("opening file", err)
	}
	defer f.Close()

	if err := transfer.WriteStatus(sess.conn, transfer.OK()); err != nil {
		return sess.fail("sending ok status", err)
	}
	n, err := stream.Copy(sess.conn, f, s.cnf.ChunkSize)
	if err != nil {
		return sess.fail("sending file", err)
	}
	sess.logger.Info("file sent successfully", zap.Int64("bytes", n), zap.Int64("size", size))
	sess.transition(closed)
	return sess.state
}

// receiveFile streams the peer's payload into the storage root, truncating any
// existing file. The server never replies on this path.
func (s *Server) receiveFile(sess *session) sessionState {
	status, err := transfer.ReadStatus(sess.conn)
	if err != nil {
		return sess.fail("reading client status", err)
	}
	if !status.OK {
		sess.logger.Warn("client aborted upload", zap.String("status", status.Message))
		sess.transition(closed)
		return sess.state
	}

	f, err := s.storage.Create(sess.request.Filename)
	if err != nil {
		return sess.fail("creating file", err)
	}
	n, err := stream.Copy(f, sess.conn, s.cnf.ChunkSize)
	// The file is closed before the connection, so a peer waiting for the
	// connection to close observes a complete file.
	if closeErr := f.Close(); closeErr != nil && err == nil {
		err = closeErr
	}
	if err != nil {
		return sess.fail("receiving file", err)
	}
	sess.logger.Info("file received successfully", zap.Int64("bytes", n))
	sess.transition(closed)
	return sess.state
}

// -------------------------------------------------------- Admin ------------------------------------------------------

// handleTransfer runs a session over the websocket connection stored in the request context.
// The session is drawn from the same worker pool as TCP sessions.
func (s *Server) handleTransfer() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		logger, err := logger.FromContext(ctx)
		if err != nil {
			return
		}
		c, err := conn.FromContext(ctx)
		if err != nil {
			logger.Error("getting Conn from request context", zap.Error(err))
			return
		}
		logger = logger.With(zap.String("transport", conn.TransportWS))
		logger.Info("client connected")

		done := make(chan struct{})
		if err := s.submit(func() {
			defer close(done)
			s.handleSession(c, logger)
		}); err != nil {
			logger.Warn("rejecting session", zap.Error(err))
			c.Close()
			return
		}
		<-done
	}
}

//nolint:errcheck
func (s *Server) ping() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("pong"))
	}
}

//nolint:errcheck
func (s *Server) handleVersion() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(s.version)
	}
}
