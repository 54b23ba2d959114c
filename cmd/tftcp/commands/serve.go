package commands

import (
	"fmt"

	"github.com/SpatiumPortae/tftcp/internal/semver"
	"github.com/SpatiumPortae/tftcp/internal/server"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func Serve(version string) *cobra.Command {
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve files over tftcp",
		Long:  "The serve command accepts read and write requests, storing files under the storage root.",
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			flags := map[string]string{
				"port":            "port",
				"admin_port":      "admin-port",
				"storage_root":    "root",
				"pool_size":       "pool-size",
				"io_timeout":      "io-timeout",
				"confine_storage": "confine",
			}
			for key, flag := range flags {
				if err := viper.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
					return fmt.Errorf("binding %s flag: %w", flag, err)
				}
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ver, err := semver.Parse(version)
			if err != nil {
				return fmt.Errorf("server requires version to be set: %w", err)
			}
			if viper.GetInt("pool_size") <= 0 {
				return fmt.Errorf("pool size must be positive, got %d", viper.GetInt("pool_size"))
			}
			s := server.NewServer(server.Config{
				Port:           viper.GetInt("port"),
				AdminPort:      viper.GetInt("admin_port"),
				StorageRoot:    viper.GetString("storage_root"),
				PoolSize:       viper.GetInt("pool_size"),
				ChunkSize:      viper.GetInt("chunk_size"),
				IOTimeout:      viper.GetDuration("io_timeout"),
				ConfineStorage: viper.GetBool("confine_storage"),
			}, ver)
			s.Start()
			return nil
		},
	}
	serveCmd.Flags().IntP("port", "p", 0, "port to accept transfers on")
	serveCmd.Flags().Int("admin-port", 0, "port of the admin http endpoints (/ping, /version, /transfer), 0 disables them")
	serveCmd.Flags().StringP("root", "r", "", "storage root directory")
	serveCmd.Flags().IntP("pool-size", "n", 0, "maximum number of concurrent sessions")
	serveCmd.Flags().Duration("io-timeout", 0, "idle timeout applied to every read and write of a session, 0 disables it")
	serveCmd.Flags().Bool("confine", false, "resolve all requested filenames inside the storage root")
	return serveCmd
}
