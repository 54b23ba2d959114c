package client

import (
	"net"
	"strconv"

	"github.com/SpatiumPortae/tftcp/internal/conn"
	"github.com/SpatiumPortae/tftcp/internal/file"
	"github.com/SpatiumPortae/tftcp/internal/stream"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// DefaultPort is the well-known port of the transfer server.
const DefaultPort = 6969

// Config specifies a config for the client. Zero values are replaced by defaults.
type Config struct {
	Addr           string // host[:port] of the server, DefaultPort is used when the port is omitted
	Transport      string // conn.TransportTCP or conn.TransportWS
	ChunkSize      int
	ReceivedPrefix string // prefix applied to downloaded file names
	Dir            string // directory downloads are written to, defaults to the working directory

	Fs     afero.Fs
	Logger *zap.Logger
}

func (c *Config) withDefaults() Config {
	var merged Config
	if c != nil {
		merged = *c
	}
	merged.Addr = WithDefaultPort(merged.Addr, DefaultPort)
	if merged.Transport == "" {
		merged.Transport = conn.TransportTCP
	}
	if merged.ChunkSize <= 0 {
		merged.ChunkSize = stream.DefaultChunkSize
	}
	if merged.ReceivedPrefix == "" {
		merged.ReceivedPrefix = file.DEFAULT_RECEIVED_PREFIX
	}
	if merged.Fs == nil {
		merged.Fs = afero.NewOsFs()
	}
	if merged.Logger == nil {
		merged.Logger = zap.NewNop()
	}
	return merged
}

// WithDefaultPort appends port to addr if addr does not specify one.
func WithDefaultPort(addr string, port int) string {
	if _, _, err := net.SplitHostPort(addr); err == nil {
		return addr
	}
	return net.JoinHostPort(addr, strconv.Itoa(port))
}
