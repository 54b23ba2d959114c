package commands

import (
	"errors"
	"fmt"
	"net"
	"strconv"

	"github.com/SpatiumPortae/tftcp/cmd/tftcp/config"
	"github.com/SpatiumPortae/tftcp/internal/conn"
	"github.com/SpatiumPortae/tftcp/internal/logger"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/exp/slices"
)

const (
	transportFlagDesc = "Transport used to reach the server (tcp|ws)"
	tuiStyleFlagDesc  = "Style of the tui (rich|raw)"
)

var validate = validator.New()
var ErrInvalidAddress = errors.New("invalid address provided")

var tuiStyles = []string{config.StyleRich, config.StyleRaw}
var transports = []string{conn.TransportTCP, conn.TransportWS}

// validateAddress validates a hostname or IP, optionally with a port.
func validateAddress(addr string) error {

	// IPv4 and IPv6 address validation.
	err := validate.Var(addr, "ip")
	if err == nil {
		return nil
	}

	// IPv4 or IPv6 or domain or localhost.
	err = validate.Var(addr, "hostname")
	if err == nil {
		return nil
	}

	// IPv4 or domain or localhost and a port. Or just a shortand port (:1234).
	err = validate.Var(addr, "hostname_port")
	if err == nil {
		return nil
	}

	// Also validate IPv6 host + port combination. The hostname_port validator does not validate this.
	_, port, hostPortErr := net.SplitHostPort(addr)
	if hostPortErr != nil {
		return ErrInvalidAddress
	}
	// Additionally, validate the port range.
	if p, err := strconv.Atoi(port); err != nil || p < 0 || p > 65535 {
		return ErrInvalidAddress
	}
	return nil
}

func validateTransport(transport string) error {
	if !slices.Contains(transports, transport) {
		return fmt.Errorf("invalid transport %q, expected one of %v", transport, transports)
	}
	return nil
}

// setupLoggingFromViper returns a logger writing to `.tftcp-[cmd].log` when verbose
// logging is enabled, and a no-op logger otherwise.
func setupLoggingFromViper(cmd string) (*zap.Logger, error) {
	if viper.GetBool("verbose") {
		lgr, err := logger.NewFile(fmt.Sprintf(".tftcp-%s.log", cmd))
		if err != nil {
			return nil, fmt.Errorf("could not log to the provided file: %w", err)
		}
		return lgr, nil
	}
	return zap.NewNop(), nil
}
