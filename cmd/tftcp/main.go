package main

import (
	"fmt"
	"os"

	"github.com/SpatiumPortae/tftcp/cmd/tftcp/commands"
	"github.com/SpatiumPortae/tftcp/cmd/tftcp/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Set with ldflags.
var version = "v0.0.0"

// rootCmd is the top level `tftcp` command on which the other subcommands are attached to.
var rootCmd = &cobra.Command{
	Use:   "tftcp",
	Short: "tftcp is a minimal file transfer server and client speaking a length-prefixed protocol over TCP.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.Init(); err != nil {
			return err
		}
		if err := viper.BindPFlag("verbose", cmd.Flags().Lookup("verbose")); err != nil {
			return fmt.Errorf("binding verbose flag: %w", err)
		}
		return nil
	},
}

// Entry point of the application.
func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Log debug information to a file on the format `.tftcp-[command].log` in the current directory")
	rootCmd.AddCommand(commands.Serve(version))
	rootCmd.AddCommand(commands.Client())
	rootCmd.AddCommand(commands.Config())
	rootCmd.AddCommand(commands.Version(version))
}
