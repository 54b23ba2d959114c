// transfer.go specifies the request header and status messages of the transfer protocol.
package transfer

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
	"unicode"
)

const (
	StatusOK          = "OK"
	StatusErrorPrefix = "ERROR: "

	MsgFileNotFound       = "File not found"
	MsgInvalidRequestType = "Invalid request type"
)

var (
	ErrMalformedRequest = errors.New("malformed request")
	ErrInvalidOperation = errors.New("invalid operation")
	ErrInvalidFilename  = errors.New("invalid filename")
	ErrStringTooLong    = errors.New("string exceeds maximum encodable length")
)

// Operation specifies the transfer direction, relative to the peer initiating the connection.
type Operation int

const (
	Unknown Operation = iota
	Read              // Download, the server streams the file to the client
	Write             // Upload, the client streams the file to the server
)

// ParseOperation parses a case-insensitive operation name.
func ParseOperation(s string) (Operation, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "read":
		return Read, nil
	case "write":
		return Write, nil
	default:
		return Unknown, fmt.Errorf("%w: %q, expected one of (read, write)", ErrInvalidOperation, s)
	}
}

func (o Operation) String() string {
	switch o {
	case Read:
		return "read"
	case Write:
		return "write"
	default:
		return "unknown"
	}
}

// ------------------------------------------------------ Strings ------------------------------------------------------

// WriteString writes s as a 2 byte big-endian length followed by its UTF-8 bytes.
func WriteString(w io.Writer, s string) error {
	if len(s) > math.MaxUint16 {
		return fmt.Errorf("%w: %d bytes", ErrStringTooLong, len(s))
	}
	buf := make([]byte, 2+len(s))
	binary.BigEndian.PutUint16(buf, uint16(len(s)))
	copy(buf[2:], s)
	_, err := w.Write(buf)
	return err
}

// ReadString reads a string written by WriteString. A stream ending before the
// full string arrives yields io.ErrUnexpectedEOF, or io.EOF if nothing was read.
func ReadString(r io.Reader) (string, error) {
	var size [2]byte
	if _, err := io.ReadFull(r, size[:]); err != nil {
		return "", err
	}
	buf := make([]byte, binary.BigEndian.Uint16(size[:]))
	if _, err := io.ReadFull(r, buf); err != nil {
		if errors.Is(err, io.EOF) {
			return "", io.ErrUnexpectedEOF
		}
		return "", err
	}
	return string(buf), nil
}

// ------------------------------------------------------ Request ------------------------------------------------------

// Request is the header a client sends when opening a transfer.
type Request struct {
	Operation Operation
	Filename  string
}

// Validate checks that the request can be encoded and decoded unambiguously.
func (r Request) Validate() error {
	if r.Operation != Read && r.Operation != Write {
		return fmt.Errorf("%w: %s", ErrInvalidOperation, r.Operation)
	}
	if r.Filename == "" {
		return fmt.Errorf("%w: empty filename", ErrInvalidFilename)
	}
	if len(r.Filename) > math.MaxUint16 {
		return fmt.Errorf("%w: %v", ErrInvalidFilename, ErrStringTooLong)
	}
	for _, c := range r.Filename {
		if unicode.IsControl(c) {
			return fmt.Errorf("%w: contains control character %U", ErrInvalidFilename, c)
		}
	}
	return nil
}

// WriteRequest encodes the request header onto w.
func WriteRequest(w io.Writer, req Request) error {
	if err := WriteString(w, req.Operation.String()); err != nil {
		return fmt.Errorf("writing operation: %w", err)
	}
	if err := WriteString(w, req.Filename); err != nil {
		return fmt.Errorf("writing filename: %w", err)
	}
	return nil
}

// ReadRequest decodes a request header from r. Returns ErrMalformedRequest if the
// stream closes before both fields arrive. An unknown operation results in a
// ErrInvalidOperation error, in which case the returned request still carries the filename.
func ReadRequest(r io.Reader) (Request, error) {
	op, err := ReadString(r)
	if err != nil {
		return Request{}, fmt.Errorf("%w: reading operation: %v", ErrMalformedRequest, err)
	}
	filename, err := ReadString(r)
	if err != nil {
		return Request{}, fmt.Errorf("%w: reading filename: %v", ErrMalformedRequest, err)
	}
	operation, err := ParseOperation(op)
	if err != nil {
		return Request{Filename: filename}, err
	}
	return Request{Operation: operation, Filename: filename}, nil
}

// ------------------------------------------------------- Status ------------------------------------------------------

// Status is the single reply the side owning the file sends before any payload.
type Status struct {
	OK      bool
	Message string
}

// OK returns a status allowing the payload to flow.
func OK() Status {
	return Status{OK: true}
}

// Errorf returns an error status, no payload follows it.
func Errorf(format string, args ...any) Status {
	return Status{Message: fmt.Sprintf(format, args...)}
}

func (s Status) String() string {
	if s.OK {
		return StatusOK
	}
	return StatusErrorPrefix + s.Message
}

// Err returns nil for an OK status and a *StatusError otherwise.
func (s Status) Err() error {
	if s.OK {
		return nil
	}
	return &StatusError{Message: s.Message}
}

// WriteStatus encodes the status onto w.
func WriteStatus(w io.Writer, s Status) error {
	return WriteString(w, s.String())
}

// ReadStatus decodes a status from r. Anything but a literal "OK" is treated
// as an error status.
func ReadStatus(r io.Reader) (Status, error) {
	s, err := ReadString(r)
	if err != nil {
		return Status{}, fmt.Errorf("reading status: %w", err)
	}
	if s == StatusOK {
		return OK(), nil
	}
	return Status{Message: strings.TrimPrefix(s, StatusErrorPrefix)}, nil
}

// StatusError is an error status received from the peer.
type StatusError struct {
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("peer replied with error: %s", e.Message)
}

// NotFound reports whether the peer signaled a missing file.
func (e *StatusError) NotFound() bool {
	return strings.Contains(strings.ToLower(e.Message), "not found")
}
