package stream_test

import (
	"bytes"
	"crypto/rand"
	"errors"
	"io"
	"testing"

	"github.com/SpatiumPortae/tftcp/internal/stream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chunkedReader returns at most max bytes per read, recording the largest read request.
type chunkedReader struct {
	r       io.Reader
	max     int
	largest int
}

func (c *chunkedReader) Read(b []byte) (int, error) {
	if len(b) > c.largest {
		c.largest = len(b)
	}
	if len(b) > c.max {
		b = b[:c.max]
	}
	return c.r.Read(b)
}

// shortWriter accepts at most max bytes per write without reporting an error.
type shortWriter struct {
	buf bytes.Buffer
	max int
}

func (s *shortWriter) Write(b []byte) (int, error) {
	if len(b) > s.max {
		b = b[:s.max]
	}
	return s.buf.Write(b)
}

type failingReader struct {
	data []byte
	err  error
}

func (f *failingReader) Read(b []byte) (int, error) {
	if len(f.data) == 0 {
		return 0, f.err
	}
	n := copy(b, f.data)
	f.data = f.data[n:]
	return n, nil
}

type failingWriter struct{ err error }

func (f failingWriter) Write(b []byte) (int, error) { return 0, f.err }

func TestCopy(t *testing.T) {
	t.Run("sizes", func(t *testing.T) {
		for _, size := range []int{0, 1, 1023, 1024, 1025, 100_000} {
			payload := make([]byte, size)
			_, err := rand.Read(payload)
			require.NoError(t, err)

			var dst bytes.Buffer
			n, err := stream.Copy(&dst, bytes.NewReader(payload), stream.DefaultChunkSize)
			assert.NoError(t, err)
			assert.Equal(t, int64(size), n)
			assert.Equal(t, payload, dst.Bytes())
		}
	})

	t.Run("fixed chunk size", func(t *testing.T) {
		src := &chunkedReader{r: bytes.NewReader(make([]byte, 5000)), max: 1 << 20}
		_, err := stream.Copy(io.Discard, src, 512)
		assert.NoError(t, err)
		assert.Equal(t, 512, src.largest)
	})

	t.Run("default chunk size", func(t *testing.T) {
		src := &chunkedReader{r: bytes.NewReader(make([]byte, 5000)), max: 1 << 20}
		_, err := stream.Copy(io.Discard, src, 0)
		assert.NoError(t, err)
		assert.Equal(t, stream.DefaultChunkSize, src.largest)
	})

	t.Run("short reads and writes are progress", func(t *testing.T) {
		payload := []byte("A frog walks into a bank...")
		src := &chunkedReader{r: bytes.NewReader(payload), max: 3}
		dst := &shortWriter{max: 2}
		n, err := stream.Copy(dst, src, 8)
		assert.NoError(t, err)
		assert.Equal(t, int64(len(payload)), n)
		assert.Equal(t, payload, dst.buf.Bytes())
	})

	t.Run("read failure", func(t *testing.T) {
		boom := errors.New("connection reset")
		var dst bytes.Buffer
		n, err := stream.Copy(&dst, &failingReader{data: []byte("partial"), err: boom}, 4)
		assert.ErrorIs(t, err, stream.ErrTransferFailed)
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, int64(7), n)
		assert.Equal(t, "partial", dst.String())
	})

	t.Run("write failure", func(t *testing.T) {
		boom := errors.New("disk full")
		_, err := stream.Copy(failingWriter{err: boom}, bytes.NewReader([]byte("data")), 4)
		assert.ErrorIs(t, err, stream.ErrTransferFailed)
		assert.ErrorIs(t, err, boom)
	})
}

func TestCounter(t *testing.T) {
	var total int
	c := stream.Counter(func(n int) { total += n })
	_, err := stream.Copy(io.MultiWriter(io.Discard, c), bytes.NewReader(make([]byte, 3000)), 1024)
	assert.NoError(t, err)
	assert.Equal(t, 3000, total)
}
