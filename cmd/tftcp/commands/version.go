package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/SpatiumPortae/tftcp/cmd/tftcp/tui"
	"github.com/SpatiumPortae/tftcp/internal/semver"
	"github.com/spf13/cobra"
)

func Version(version string) *cobra.Command {
	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Display the installed version of tftcp",
		Long:  "Display the installed version of tftcp, and optionally compare it against a server exposing its admin endpoints.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println(version)
			serverAddr, _ := cmd.Flags().GetString("server")
			if serverAddr == "" {
				return nil
			}
			if err := validateAddress(serverAddr); err != nil {
				return fmt.Errorf("%w: (%s) is not a valid server address", err, serverAddr)
			}
			ver, err := semver.Parse(version)
			if err != nil {
				return fmt.Errorf("parsing version: %w", err)
			}
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			serverVer, err := semver.GetServerVersion(ctx, serverAddr)
			if err != nil {
				return err
			}
			fmt.Println(tui.VersionText(ver, serverVer))
			return nil
		},
	}
	versionCmd.Flags().String("server", "", "admin address (host:port) of a server to compare versions with")
	return versionCmd
}
