package commands

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateAddress(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		for _, addr := range []string{
			"127.0.0.1",
			"127.0.0.1:6969",
			"::1",
			"[::1]:6969",
			"localhost",
			"localhost:6969",
			"files.example.com",
			"files.example.com:6969",
		} {
			assert.NoError(t, validateAddress(addr), addr)
		}
	})
	t.Run("invalid", func(t *testing.T) {
		for _, addr := range []string{
			"",
			"not an address",
			"127.0.0.1:99999",
			"[::1]:port",
		} {
			assert.ErrorIs(t, validateAddress(addr), ErrInvalidAddress, addr)
		}
	})
}

func TestValidateTransport(t *testing.T) {
	assert.NoError(t, validateTransport("tcp"))
	assert.NoError(t, validateTransport("ws"))
	assert.Error(t, validateTransport("udp"))
}
