// Package client implements the initiating peer of a transfer.
package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/SpatiumPortae/tftcp/internal/conn"
	"github.com/SpatiumPortae/tftcp/internal/file"
	"github.com/SpatiumPortae/tftcp/internal/stream"
	"github.com/SpatiumPortae/tftcp/protocol/transfer"
	"go.uber.org/zap"
)

var ErrConnectFailed = errors.New("could not connect to server")

// Result describes a completed transfer.
type Result struct {
	Operation transfer.Operation
	Filename  string // name requested from the server
	LocalPath string // file read from (write) or written to (read)
	Bytes     int64  // payload bytes transferred
}

// Run parses the operation and executes the corresponding transfer. An invalid
// operation or filename is rejected before any connection is attempted.
// Progress writers receive a copy of every payload chunk.
func Run(ctx context.Context, operation string, filename string, cnf *Config, progress ...io.Writer) (Result, error) {
	op, err := transfer.ParseOperation(operation)
	if err != nil {
		return Result{}, err
	}
	switch op {
	case transfer.Read:
		return Read(ctx, filename, cnf, progress...)
	default:
		return Write(ctx, filename, cnf, progress...)
	}
}

// Read downloads the named file from the server into a local file named with
// the configured prefix. If the server replies with an error status, a
// *transfer.StatusError is returned and no local file is created.
func Read(ctx context.Context, filename string, cnf *Config, progress ...io.Writer) (Result, error) {
	c := cnf.withDefaults()
	req := transfer.Request{Operation: transfer.Read, Filename: filename}
	if err := req.Validate(); err != nil {
		return Result{}, err
	}
	tc, err := open(ctx, &c, req)
	if err != nil {
		return Result{}, err
	}
	defer tc.Close()

	status, err := transfer.ReadStatus(tc)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %w", stream.ErrTransferFailed, err)
	}
	if err := status.Err(); err != nil {
		c.Logger.Info("server replied with error", zap.String("message", status.Message))
		return Result{}, err
	}

	local := filepath.Join(c.Dir, file.ReceivedName(c.ReceivedPrefix, filename))
	f, err := file.CreateLocal(c.Fs, local)
	if err != nil {
		return Result{}, fmt.Errorf("creating local file: %w", err)
	}
	n, err := stream.Copy(io.MultiWriter(append([]io.Writer{f}, progress...)...), tc, c.ChunkSize)
	if closeErr := f.Close(); closeErr != nil && err == nil {
		err = fmt.Errorf("closing local file: %w", closeErr)
	}
	if err != nil {
		return Result{}, err
	}
	c.Logger.Info("file received", zap.String("local_path", local), zap.Int64("bytes", n))
	return Result{Operation: transfer.Read, Filename: filename, LocalPath: local, Bytes: n}, nil
}

// Write uploads the named local file to the server. If the local file does not
// exist, an error status is sent to the server and file.ErrFileNotFound is returned.
// Write returns once the server has closed the connection.
func Write(ctx context.Context, filename string, cnf *Config, progress ...io.Writer) (Result, error) {
	c := cnf.withDefaults()
	req := transfer.Request{Operation: transfer.Write, Filename: filename}
	if err := req.Validate(); err != nil {
		return Result{}, err
	}
	tc, err := open(ctx, &c, req)
	if err != nil {
		return Result{}, err
	}
	defer tc.Close()

	f, size, err := file.ReadLocal(c.Fs, filename)
	if err != nil {
		msg := "Unable to open file"
		if errors.Is(err, file.ErrFileNotFound) {
			msg = transfer.MsgFileNotFound
		}
		if statusErr := transfer.WriteStatus(tc, transfer.Errorf(msg)); statusErr != nil {
			c.Logger.Warn("sending error status", zap.Error(statusErr))
		}
		return Result{}, err
	}
	defer f.Close()

	if err := transfer.WriteStatus(tc, transfer.OK()); err != nil {
		return Result{}, fmt.Errorf("%w: sending status: %w", stream.ErrTransferFailed, err)
	}
	n, err := stream.Copy(io.MultiWriter(append([]io.Writer{tc}, progress...)...), f, c.ChunkSize)
	if err != nil {
		return Result{}, err
	}
	if err := tc.CloseWrite(); err != nil {
		return Result{}, fmt.Errorf("%w: closing stream: %w", stream.ErrTransferFailed, err)
	}
	// The server closes the connection once the file is stored.
	_, _ = io.Copy(io.Discard, tc)

	c.Logger.Info("file sent", zap.Int64("bytes", n), zap.Int64("size", size))
	return Result{Operation: transfer.Write, Filename: filename, LocalPath: filename, Bytes: n}, nil
}

// open connects to the server and sends the request header.
func open(ctx context.Context, c *Config, req transfer.Request) (conn.Conn, error) {
	c.Logger.Debug("connecting",
		zap.String("addr", c.Addr),
		zap.String("transport", c.Transport),
		zap.Stringer("operation", req.Operation),
		zap.String("filename", req.Filename))
	tc, err := conn.Dial(ctx, c.Transport, c.Addr)
	if err != nil {
		return nil, fmt.Errorf("%w (%s): %w", ErrConnectFailed, c.Addr, err)
	}
	if err := transfer.WriteRequest(tc, req); err != nil {
		tc.Close()
		return nil, fmt.Errorf("%w: sending request: %w", stream.ErrTransferFailed, err)
	}
	return tc, nil
}
