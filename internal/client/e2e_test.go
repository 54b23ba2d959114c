//nolint:errcheck
package client_test

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"testing"

	"github.com/SpatiumPortae/tftcp/internal/client"
	"github.com/SpatiumPortae/tftcp/internal/conn"
	"github.com/docker/go-connections/nat"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap/zaptest"
)

const (
	transferPort = nat.Port("6969/tcp")
	adminPort    = nat.Port("8080/tcp")
)

type serverContainer struct {
	testcontainers.Container
	TransferAddr string
	AdminAddr    string
}

// TestE2E runs transfers against the server image named by TFTCP_E2E_IMAGE,
// built from the Dockerfile at the repository root.
func TestE2E(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping E2E test...")
	}
	image := os.Getenv("TFTCP_E2E_IMAGE")
	if image == "" {
		t.Skip("TFTCP_E2E_IMAGE not set, skipping E2E test...")
	}
	ctx := context.Background()
	serverC, err := setupServer(ctx, image)
	if err != nil {
		t.Fatalf("unable to setup tftcp server: %s", err)
	}
	t.Cleanup(func() {
		if err := serverC.Terminate(ctx); err != nil {
			t.Fatal(err)
		}
	})

	oracle := "A frog walks into a bank..."
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "frog.txt", []byte(oracle), 0644))

	for transport, addr := range map[string]string{
		conn.TransportTCP: serverC.TransferAddr,
		conn.TransportWS:  serverC.AdminAddr,
	} {
		t.Run(transport, func(t *testing.T) {
			cnf := &client.Config{
				Addr:      addr,
				Transport: transport,
				Fs:        fs,
				Logger:    zaptest.NewLogger(t),
			}
			_, err := client.Write(ctx, "frog.txt", cnf)
			require.NoError(t, err)

			res, err := client.Read(ctx, "frog.txt", cnf)
			require.NoError(t, err)
			b, err := afero.ReadFile(fs, res.LocalPath)
			assert.NoError(t, err)
			assert.Equal(t, oracle, string(b))
		})
	}
}

func setupServer(ctx context.Context, image string) (*serverContainer, error) {
	req := testcontainers.ContainerRequest{
		Image:        image,
		ExposedPorts: []string{string(transferPort), string(adminPort)},
		WaitingFor: wait.ForHTTP("/ping").WithPort(adminPort).WithStatusCodeMatcher(
			func(status int) bool { return status == http.StatusOK }),
	}
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return nil, err
	}
	ip, err := container.Host(ctx)
	if err != nil {
		return nil, err
	}
	mappedTransfer, err := container.MappedPort(ctx, transferPort)
	if err != nil {
		return nil, err
	}
	mappedAdmin, err := container.MappedPort(ctx, adminPort)
	if err != nil {
		return nil, err
	}
	return &serverContainer{
		Container:    container,
		TransferAddr: fmt.Sprintf("%s:%d", ip, mappedTransfer.Int()),
		AdminAddr:    fmt.Sprintf("%s:%d", ip, mappedAdmin.Int()),
	}, nil
}
