// Package stream implements the chunked copy loop used for payload transfers.
package stream

import (
	"errors"
	"fmt"
	"io"
)

// DefaultChunkSize is the size of the buffer used for every read.
const DefaultChunkSize = 1024

var ErrTransferFailed = errors.New("transfer failed")

// Copy copies from src to dst in chunks of chunkSize bytes until src reaches
// end-of-stream, returning the number of bytes written. Short reads and writes
// count as progress, only hard I/O errors abort the copy. Such errors are
// wrapped in ErrTransferFailed.
func Copy(dst io.Writer, src io.Reader, chunkSize int) (int64, error) {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	buf := make([]byte, chunkSize)
	var written int64
	for {
		nr, rerr := src.Read(buf)
		if nr > 0 {
			n, err := writeAll(dst, buf[:nr])
			written += int64(n)
			if err != nil {
				return written, fmt.Errorf("%w: writing: %w", ErrTransferFailed, err)
			}
		}
		switch {
		case errors.Is(rerr, io.EOF):
			return written, nil
		case rerr != nil:
			return written, fmt.Errorf("%w: reading: %w", ErrTransferFailed, rerr)
		}
	}
}

// writeAll keeps writing until b is consumed. A writer returning a short
// count without an error is retried with the remainder.
func writeAll(w io.Writer, b []byte) (int, error) {
	var total int
	for total < len(b) {
		n, err := w.Write(b[total:])
		if n < 0 || n > len(b)-total {
			return total, errors.New("invalid write result")
		}
		total += n
		if err != nil && !errors.Is(err, io.ErrShortWrite) {
			return total, err
		}
		if n == 0 {
			return total, io.ErrNoProgress
		}
	}
	return total, nil
}

// Counter is an io.Writer that reports the number of bytes written to it on a callback.
type Counter func(n int)

func (c Counter) Write(b []byte) (int, error) {
	c(len(b))
	return len(b), nil
}
